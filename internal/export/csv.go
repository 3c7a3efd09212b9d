// Package export writes admin reports as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"produce-market/internal/domain"
)

const timeLayout = time.RFC3339

var orderHeader = []string{
	"order_number", "created_at", "status", "payment_method", "payment_status",
	"recipient_name", "phone", "city", "postal_code", "item_count",
	"subtotal", "discount", "delivery_charge", "total", "distance_km", "delivered_at",
}

var customerHeader = []string{
	"email", "full_name", "phone", "joined_at", "segment",
	"order_count", "total_spend", "average_order_value", "first_order_at", "last_order_at",
}

var preOrderHeader = []string{
	"created_at", "product", "quantity", "contact_name", "contact_phone", "contact_email",
	"postal_code", "status", "requires_payment", "amount_due", "payment_status", "expected_date",
}

func WriteOrders(w io.Writer, orders []*domain.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, o := range orders {
		items := 0
		for _, item := range o.Items {
			items += item.Quantity
		}
		record := []string{
			o.OrderNumber,
			o.CreatedAt.UTC().Format(timeLayout),
			string(o.Status),
			string(o.PaymentMethod),
			string(o.PaymentStatus),
			sanitize(o.RecipientName),
			sanitize(o.Phone),
			sanitize(o.City),
			o.PostalCode,
			strconv.Itoa(items),
			o.Subtotal.StringFixed(2),
			o.Discount.StringFixed(2),
			o.DeliveryCharge.StringFixed(2),
			o.Total.StringFixed(2),
			o.DistanceKM.StringFixed(1),
			formatTime(o.DeliveredAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.OrderNumber, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteCustomers(w io.Writer, customers []*domain.CustomerStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(customerHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range customers {
		record := []string{
			sanitize(c.Email),
			sanitize(c.FullName),
			sanitize(c.Phone),
			c.JoinedAt.UTC().Format(timeLayout),
			string(c.Segment),
			strconv.Itoa(c.OrderCount),
			c.TotalSpend.StringFixed(2),
			c.AverageOrderValue.StringFixed(2),
			formatTime(c.FirstOrderAt),
			formatTime(c.LastOrderAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write customer %s: %w", c.Email, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func WritePreOrders(w io.Writer, preOrders []*domain.PreOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(preOrderHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range preOrders {
		expected := ""
		if p.ExpectedDate != nil {
			expected = p.ExpectedDate.Format("2006-01-02")
		}
		record := []string{
			p.CreatedAt.UTC().Format(timeLayout),
			sanitize(p.ProductName),
			strconv.Itoa(p.Quantity),
			sanitize(p.ContactName),
			sanitize(p.ContactPhone),
			sanitize(p.ContactEmail),
			p.PostalCode,
			string(p.Status),
			strconv.FormatBool(p.RequiresPayment),
			p.AmountDue.StringFixed(2),
			string(p.PaymentStatus),
			expected,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write pre-order %s: %w", p.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// sanitize neutralises spreadsheet formula injection in free-text fields.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
