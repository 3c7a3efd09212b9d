package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PreOrderStatus represents the reservation state of a pre-order
type PreOrderStatus string

const (
	PreOrderStatusPending   PreOrderStatus = "pending"
	PreOrderStatusConfirmed PreOrderStatus = "confirmed"
	PreOrderStatusFulfilled PreOrderStatus = "fulfilled"
	PreOrderStatusCancelled PreOrderStatus = "cancelled"
)

func (s PreOrderStatus) IsValid() bool {
	switch s {
	case PreOrderStatusPending, PreOrderStatusConfirmed, PreOrderStatusFulfilled, PreOrderStatusCancelled:
		return true
	}
	return false
}

func (s PreOrderStatus) IsTerminal() bool {
	return s == PreOrderStatusFulfilled || s == PreOrderStatusCancelled
}

func (s PreOrderStatus) CanTransitionTo(target PreOrderStatus) bool {
	switch s {
	case PreOrderStatusPending:
		return target == PreOrderStatusConfirmed || target == PreOrderStatusCancelled
	case PreOrderStatusConfirmed:
		return target == PreOrderStatusFulfilled || target == PreOrderStatusCancelled
	default:
		return false
	}
}

// PreOrder reserves a product that is not yet available
type PreOrder struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	ProductID        uuid.UUID       `json:"product_id" db:"product_id"`
	UserID           *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Quantity         int             `json:"quantity" db:"quantity"`
	ContactName      string          `json:"contact_name" db:"contact_name"`
	ContactPhone     string          `json:"contact_phone" db:"contact_phone"`
	ContactEmail     string          `json:"contact_email" db:"contact_email"`
	PostalCode       string          `json:"postal_code" db:"postal_code"`
	ExpectedDate     *time.Time      `json:"expected_date,omitempty" db:"expected_date"`
	Status           PreOrderStatus  `json:"status" db:"status"`
	RequiresPayment  bool            `json:"requires_payment" db:"requires_payment"`
	AmountDue        decimal.Decimal `json:"amount_due" db:"amount_due"`
	PaymentStatus    PaymentStatus   `json:"payment_status" db:"payment_status"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	Notes            string          `json:"notes" db:"notes"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	ProductName string `json:"product_name,omitempty" db:"-"`
}

func (p *PreOrder) TransitionTo(target PreOrderStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot move pre-order from %s to %s", ErrInvalidTransition, p.Status, target)
	}
	p.Status = target
	p.UpdatedAt = now
	return nil
}

// MarkPaid records the upfront payment and confirms a pending reservation.
func (p *PreOrder) MarkPaid(paymentID string, now time.Time) {
	p.PaymentStatus = PaymentStatusPaid
	p.GatewayPaymentID = paymentID
	p.UpdatedAt = now
	if p.Status == PreOrderStatusPending {
		p.Status = PreOrderStatusConfirmed
	}
}

// PreOrderAmountDue computes the upfront amount for a reservation. An
// advance is charged per unit when set; otherwise the full price is due
// only for products that require payment.
func PreOrderAmountDue(p *Product, quantity int) decimal.Decimal {
	qty := decimal.NewFromInt(int64(quantity))
	if p.PreorderAdvance.IsPositive() {
		return p.PreorderAdvance.Mul(qty)
	}
	if p.PreorderRequiresPayment {
		return p.Price.Mul(qty)
	}
	return decimal.Zero
}

// PreOrderFilter narrows admin pre-order listings
type PreOrderFilter struct {
	Status    *PreOrderStatus
	ProductID *uuid.UUID
	UserID    *uuid.UUID
	Page      int
	PageSize  int
}
