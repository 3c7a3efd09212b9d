package service

import (
	"context"
	"errors"

	"produce-market/internal/payment"
	"produce-market/internal/repository"

	"go.uber.org/zap"
)

var ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

// PaymentWebhookService applies asynchronous gateway notifications
type PaymentWebhookService interface {
	Handle(ctx context.Context, body []byte, signature string) error
}

type paymentWebhookService struct {
	gateway   payment.Gateway
	orders    OrderService
	preorders PreOrderService
	logger    *zap.Logger
}

func NewPaymentWebhookService(gateway payment.Gateway, orders OrderService, preorders PreOrderService, logger *zap.Logger) PaymentWebhookService {
	return &paymentWebhookService{gateway: gateway, orders: orders, preorders: preorders, logger: nopLogger(logger)}
}

// Handle verifies and applies one webhook delivery. Events for unknown
// gateway orders and unhandled event types are acknowledged and ignored so
// the gateway stops retrying them.
func (s *paymentWebhookService) Handle(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return ErrInvalidWebhookSignature
	}

	event, err := payment.ParseWebhook(body)
	if err != nil {
		return err
	}

	var captured bool
	switch event.Event {
	case payment.EventPaymentCaptured:
		captured = true
	case payment.EventPaymentFailed:
	default:
		s.logger.Debug("Ignoring webhook event", zap.String("event", event.Event))
		return nil
	}

	entity := event.Payment()
	if entity.OrderID == "" {
		return payment.ErrInvalidWebhookPayload
	}

	err = s.orders.ApplyGatewayPayment(ctx, entity.OrderID, entity.ID, captured)
	if errors.Is(err, repository.ErrOrderNotFound) {
		err = s.preorders.ApplyGatewayPayment(ctx, entity.OrderID, entity.ID, captured)
	}
	if errors.Is(err, repository.ErrPreOrderNotFound) {
		s.logger.Warn("Webhook for unknown gateway order", zap.String("gateway_order_id", entity.OrderID))
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("Webhook applied",
		zap.String("event", event.Event),
		zap.String("gateway_order_id", entity.OrderID),
	)
	return nil
}
