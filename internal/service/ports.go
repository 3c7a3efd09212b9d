package service

import (
	"context"

	"produce-market/internal/delivery"
	"produce-market/internal/domain"
	"produce-market/internal/realtime"

	"github.com/shopspring/decimal"
)

// DeliveryEstimator prices delivery to a postal code
type DeliveryEstimator interface {
	Estimate(ctx context.Context, postalCode string, subtotal decimal.Decimal) (*delivery.Estimate, error)
	ValidPostalCode(code string) bool
}

// OrderNotifier sends customer and staff emails for order changes
type OrderNotifier interface {
	OrderPlaced(order *domain.Order, customerEmail string)
	OrderStatusChanged(order *domain.Order, customerEmail string)
}

// PreOrderNotifier sends emails for pre-order changes
type PreOrderNotifier interface {
	PreOrderReceived(p *domain.PreOrder)
	PreOrderStatusChanged(p *domain.PreOrder)
}

// EventPublisher broadcasts order changes to live dashboards
type EventPublisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}
