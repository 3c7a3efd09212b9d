package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/export"
	"produce-market/internal/payment"
	"produce-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPreOrdersDisabled  = errors.New("pre-orders are currently disabled")
	ErrPreOrderNotAllowed = errors.New("product does not accept pre-orders")
	ErrNoPaymentDue       = errors.New("pre-order has no payment due")
)

type PreOrderInput struct {
	ProductID    uuid.UUID  `json:"product_id" validate:"required"`
	Quantity     int        `json:"quantity" validate:"required,min=1,max=1000"`
	ContactName  string     `json:"contact_name" validate:"required,max=120"`
	ContactPhone string     `json:"contact_phone" validate:"required,max=20"`
	ContactEmail string     `json:"contact_email" validate:"omitempty,email"`
	PostalCode   string     `json:"postal_code" validate:"required"`
	ExpectedDate *time.Time `json:"expected_date"`
	Notes        string     `json:"notes" validate:"max=500"`
}

type PreOrderCheckout struct {
	PreOrder *domain.PreOrder `json:"pre_order"`
	Payment  *PaymentIntent   `json:"payment,omitempty"`
}

// PreOrderService handles reservations for products that are not yet in stock
type PreOrderService interface {
	CreatePreOrder(ctx context.Context, userID *uuid.UUID, in PreOrderInput) (*PreOrderCheckout, error)
	VerifyPreOrderPayment(ctx context.Context, preOrderID uuid.UUID, in VerifyPaymentInput) (*domain.PreOrder, error)
	ApplyGatewayPayment(ctx context.Context, gatewayOrderID, paymentID string, captured bool) error
	ListMyPreOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) (*Page[*domain.PreOrder], error)
	ListPreOrders(ctx context.Context, filter domain.PreOrderFilter) (*Page[*domain.PreOrder], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target domain.PreOrderStatus) (*domain.PreOrder, error)
	ExportPreOrders(ctx context.Context, filter domain.PreOrderFilter, w io.Writer) error
}

type preOrderService struct {
	preorders repository.PreOrderRepository
	products  repository.ProductRepository
	settings  SettingsService
	postal    PostalCodeValidator
	gateway   payment.Gateway
	notifier  PreOrderNotifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewPreOrderService(
	preorders repository.PreOrderRepository,
	products repository.ProductRepository,
	settings SettingsService,
	postal PostalCodeValidator,
	gateway payment.Gateway,
	notifier PreOrderNotifier,
	logger *zap.Logger,
) PreOrderService {
	return &preOrderService{
		preorders: preorders,
		products:  products,
		settings:  settings,
		postal:    postal,
		gateway:   gateway,
		notifier:  notifier,
		logger:    nopLogger(logger),
		now:       time.Now,
	}
}

func (s *preOrderService) CreatePreOrder(ctx context.Context, userID *uuid.UUID, in PreOrderInput) (*PreOrderCheckout, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.PreordersEnabled {
		return nil, ErrPreOrdersDisabled
	}
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	postalCode := strings.Join(strings.Fields(in.PostalCode), "")
	if !s.postal.ValidPostalCode(postalCode) {
		return nil, ErrInvalidPostalCode
	}

	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive || !product.PreorderEnabled {
		return nil, ErrPreOrderNotAllowed
	}

	amountDue := domain.PreOrderAmountDue(product, in.Quantity)
	now := s.now()
	preorder := &domain.PreOrder{
		ID:              uuid.New(),
		ProductID:       product.ID,
		UserID:          userID,
		Quantity:        in.Quantity,
		ContactName:     strings.TrimSpace(in.ContactName),
		ContactPhone:    strings.TrimSpace(in.ContactPhone),
		ContactEmail:    strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		PostalCode:      postalCode,
		ExpectedDate:    in.ExpectedDate,
		Status:          domain.PreOrderStatusPending,
		RequiresPayment: product.PreorderRequiresPayment,
		AmountDue:       amountDue,
		PaymentStatus:   domain.PaymentStatusPending,
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
		ProductName:     product.Name,
	}

	var intent *PaymentIntent
	if preorder.RequiresPayment && amountDue.IsPositive() {
		if !s.gateway.Enabled() {
			return nil, ErrPaymentUnavailable
		}
		gatewayOrder, err := s.gateway.CreateOrder(ctx, payment.CreateOrderRequest{
			Amount:  payment.ToMinorUnits(amountDue),
			Receipt: "PRE-" + preorder.ID.String()[:8],
			Notes:   map[string]string{"pre_order_id": preorder.ID.String()},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create payment order: %w", err)
		}
		preorder.GatewayOrderID = gatewayOrder.ID
		intent = &PaymentIntent{
			KeyID:          s.gateway.KeyID(),
			GatewayOrderID: gatewayOrder.ID,
			Amount:         gatewayOrder.Amount,
			Currency:       gatewayOrder.Currency,
		}
	}

	if err := s.preorders.Create(ctx, preorder); err != nil {
		return nil, err
	}

	s.logger.Info("Pre-order received",
		zap.String("pre_order_id", preorder.ID.String()),
		zap.String("product", product.Name),
		zap.Int("quantity", preorder.Quantity),
	)
	s.notifier.PreOrderReceived(preorder)

	return &PreOrderCheckout{PreOrder: preorder, Payment: intent}, nil
}

func (s *preOrderService) VerifyPreOrderPayment(ctx context.Context, preOrderID uuid.UUID, in VerifyPaymentInput) (*domain.PreOrder, error) {
	preorder, err := s.preorders.FindByID(ctx, preOrderID)
	if err != nil {
		return nil, err
	}
	if preorder.PaymentStatus == domain.PaymentStatusPaid {
		return preorder, nil
	}
	if preorder.GatewayOrderID == "" {
		return nil, ErrNoPaymentDue
	}

	// Mismatches are not persisted. Failed captures arrive via the webhook.
	if in.GatewayOrderID != preorder.GatewayOrderID ||
		!s.gateway.VerifyPaymentSignature(preorder.GatewayOrderID, in.PaymentID, in.Signature) {
		s.logger.Warn("Pre-order payment signature mismatch", zap.String("pre_order_id", preorder.ID.String()))
		return nil, ErrPaymentVerification
	}

	from := preorder.Status
	preorder.MarkPaid(in.PaymentID, s.now())
	if err := s.preorders.Update(ctx, preorder, from); err != nil {
		return nil, err
	}
	s.notifier.PreOrderStatusChanged(preorder)
	return preorder, nil
}

func (s *preOrderService) ApplyGatewayPayment(ctx context.Context, gatewayOrderID, paymentID string, captured bool) error {
	preorder, err := s.preorders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	if preorder.PaymentStatus == domain.PaymentStatusPaid {
		return nil
	}

	now := s.now()
	from := preorder.Status
	if captured {
		preorder.MarkPaid(paymentID, now)
	} else {
		preorder.PaymentStatus = domain.PaymentStatusFailed
		preorder.UpdatedAt = now
	}
	if err := s.preorders.Update(ctx, preorder, from); err != nil {
		return err
	}
	if captured {
		s.notifier.PreOrderStatusChanged(preorder)
	}
	return nil
}

func (s *preOrderService) ListMyPreOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) (*Page[*domain.PreOrder], error) {
	return s.ListPreOrders(ctx, domain.PreOrderFilter{UserID: &userID, Page: page, PageSize: pageSize})
}

func (s *preOrderService) ListPreOrders(ctx context.Context, filter domain.PreOrderFilter) (*Page[*domain.PreOrder], error) {
	filter.Page, filter.PageSize = clampPage(filter.Page, filter.PageSize)
	preorders, total, err := s.preorders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pre-orders: %w", err)
	}
	return newPage(preorders, total, filter.Page, filter.PageSize), nil
}

func (s *preOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.PreOrderStatus) (*domain.PreOrder, error) {
	preorder, err := s.preorders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := preorder.Status
	if err := preorder.TransitionTo(target, s.now()); err != nil {
		return nil, err
	}
	if err := s.preorders.Update(ctx, preorder, from); err != nil {
		return nil, err
	}

	s.logger.Info("Pre-order status changed",
		zap.String("pre_order_id", preorder.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	s.notifier.PreOrderStatusChanged(preorder)
	return preorder, nil
}

func (s *preOrderService) ExportPreOrders(ctx context.Context, filter domain.PreOrderFilter, w io.Writer) error {
	filter.Page, filter.PageSize = 1, 0
	preorders, _, err := s.preorders.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load pre-orders for export: %w", err)
	}
	return export.WritePreOrders(w, preorders)
}
