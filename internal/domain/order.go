package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidTransition is returned when a status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// AllOrderStatuses lists statuses in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPacked,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks the order lifecycle. Orders move forward one step
// at a time and may be cancelled until they leave the store.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusPacked || target == OrderStatusCancelled
	case OrderStatusPacked:
		return target == OrderStatusOutForDelivery || target == OrderStatusCancelled
	case OrderStatusOutForDelivery:
		return target == OrderStatusDelivered
	default:
		return false
	}
}

// CustomerCancellable reports whether the customer may still cancel.
func (s OrderStatus) CustomerCancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

// PaymentStatus tracks money collection for orders and pre-orders
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order is a placed checkout with an address snapshot
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	OrderNumber      string          `json:"order_number" db:"order_number"`
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	RecipientName    string          `json:"recipient_name" db:"recipient_name"`
	Phone            string          `json:"phone" db:"phone"`
	Line1            string          `json:"line1" db:"line1"`
	Line2            string          `json:"line2" db:"line2"`
	City             string          `json:"city" db:"city"`
	State            string          `json:"state" db:"state"`
	PostalCode       string          `json:"postal_code" db:"postal_code"`
	Status           OrderStatus     `json:"status" db:"status"`
	PaymentMethod    PaymentMethod   `json:"payment_method" db:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status" db:"payment_status"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount         decimal.Decimal `json:"discount" db:"discount"`
	DeliveryCharge   decimal.Decimal `json:"delivery_charge" db:"delivery_charge"`
	Total            decimal.Decimal `json:"total" db:"total"`
	DistanceKM       decimal.Decimal `json:"distance_km" db:"distance_km"`
	Notes            string          `json:"notes" db:"notes"`
	CancelReason     string          `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`

	Items []*OrderItem `json:"items,omitempty" db:"-"`
}

// OrderItem is a priced snapshot of a cart line at checkout
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty" db:"variant_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	VariantName string          `json:"variant_name" db:"variant_name"`
	Unit        string          `json:"unit" db:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	MRP         decimal.Decimal `json:"mrp" db:"mrp"`
	Quantity    int             `json:"quantity" db:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
}

// TransitionTo moves the order to target, applying the side fields each
// state implies. It does not touch stock.
func (o *Order) TransitionTo(target OrderStatus, reason string, now time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidTransition, o.Status, target)
	}

	o.Status = target
	o.UpdatedAt = now

	switch target {
	case OrderStatusCancelled:
		o.CancelReason = reason
	case OrderStatusDelivered:
		o.DeliveredAt = &now
		// Cash is collected on the doorstep.
		if o.PaymentMethod == PaymentMethodCOD {
			o.PaymentStatus = PaymentStatusPaid
		}
	}
	return nil
}

// MarkPaid records a verified gateway payment and confirms a pending order.
func (o *Order) MarkPaid(paymentID string, now time.Time) {
	o.PaymentStatus = PaymentStatusPaid
	o.GatewayPaymentID = paymentID
	o.UpdatedAt = now
	if o.Status == OrderStatusPending {
		o.Status = OrderStatusConfirmed
	}
}

// OrderNumber formats a human readable order reference.
func OrderNumber(createdAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("PM-%s-%s", createdAt.UTC().Format("20060102"), id.String()[:6])
}

// OrderFilter narrows admin order listings
type OrderFilter struct {
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	From          *time.Time
	To            *time.Time
	Search        string
	UserID        *uuid.UUID
	Page          int
	PageSize      int
}
