package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dashboard aggregates store performance over a date range
type Dashboard struct {
	From              time.Time             `json:"from"`
	To                time.Time             `json:"to"`
	Revenue           decimal.Decimal       `json:"revenue"`
	OrderCount        int                   `json:"order_count"`
	AverageOrderValue decimal.Decimal       `json:"average_order_value"`
	OrdersByStatus    map[OrderStatus]int   `json:"orders_by_status"`
	NewCustomers      int                   `json:"new_customers"`
	TopProducts       []*ProductSales       `json:"top_products"`
	RevenueByDay      []*DailyRevenue       `json:"revenue_by_day"`
	UniqueVisitors    int                   `json:"unique_visitors"`
	ConversionRate    decimal.Decimal       `json:"conversion_rate"`
	PaymentMethods    map[PaymentMethod]int `json:"payment_methods"`
}

// ProductSales is one row of the top products table
type ProductSales struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// DailyRevenue is one bucket of the revenue chart
type DailyRevenue struct {
	Day     time.Time       `json:"day"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// StockAlert is a product or variant at or below the low-stock threshold
type StockAlert struct {
	ProductID   uuid.UUID  `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	ProductName string     `json:"product_name"`
	VariantName string     `json:"variant_name,omitempty"`
	Stock       int        `json:"stock"`
}

// FillRevenueDays returns one bucket per day in [from, to], inserting zero
// buckets for days without orders.
func FillRevenueDays(from, to time.Time, rows []*DailyRevenue) []*DailyRevenue {
	byDay := make(map[string]*DailyRevenue, len(rows))
	for _, row := range rows {
		byDay[row.Day.UTC().Format("2006-01-02")] = row
	}

	start := truncateDay(from)
	end := truncateDay(to)
	var out []*DailyRevenue
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if row, ok := byDay[day.Format("2006-01-02")]; ok {
			out = append(out, &DailyRevenue{Day: day, Orders: row.Orders, Revenue: row.Revenue})
			continue
		}
		out = append(out, &DailyRevenue{Day: day, Revenue: decimal.Zero})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
