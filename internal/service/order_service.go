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
	"produce-market/internal/metrics"
	"produce-market/internal/payment"
	"produce-market/internal/realtime"
	"produce-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrBelowMinimumOrder    = errors.New("order subtotal is below the minimum order amount")
	ErrInvalidPaymentMethod = errors.New("payment method must be cod or online")
	ErrPaymentUnavailable   = payment.ErrPaymentUnavailable
	ErrPaymentVerification  = errors.New("payment signature verification failed")
	ErrOrderNotCancellable  = errors.New("order can no longer be cancelled")
	ErrOrderNotPayable      = errors.New("order does not accept online payment")
)

const orderNumberAttempts = 3

type PlaceOrderInput struct {
	AddressID     uuid.UUID            `json:"address_id" validate:"required"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=cod online"`
	Notes         string               `json:"notes" validate:"max=500"`
}

type VerifyPaymentInput struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required"`
	PaymentID      string `json:"payment_id" validate:"required"`
	Signature      string `json:"signature" validate:"required"`
}

// PaymentIntent carries what the storefront needs to open the checkout widget
type PaymentIntent struct {
	KeyID          string `json:"key_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type Checkout struct {
	Order   *domain.Order  `json:"order"`
	Payment *PaymentIntent `json:"payment,omitempty"`
}

// OrderService covers checkout and the order lifecycle
type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*Checkout, error)
	RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*Checkout, error)
	VerifyPayment(ctx context.Context, userID, orderID uuid.UUID, in VerifyPaymentInput) (*domain.Order, error)
	ApplyGatewayPayment(ctx context.Context, gatewayOrderID, paymentID string, captured bool) error

	ListMyOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) (*Page[*domain.Order], error)
	GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
	CancelMyOrder(ctx context.Context, userID, orderID uuid.UUID, reason string) (*domain.Order, error)

	ListOrders(ctx context.Context, filter domain.OrderFilter) (*Page[*domain.Order], error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, reason string) (*domain.Order, error)
	ExportOrders(ctx context.Context, filter domain.OrderFilter, w io.Writer) error
}

type OrderDeps struct {
	Orders    repository.OrderRepository
	Cart      repository.CartRepository
	Products  repository.ProductRepository
	Addresses repository.AddressRepository
	Users     repository.UserRepository
	Settings  SettingsService
	Delivery  DeliveryEstimator
	Gateway   payment.Gateway
	Notifier  OrderNotifier
	Events    EventPublisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type orderService struct {
	OrderDeps
	now func() time.Time
}

func NewOrderService(deps OrderDeps) OrderService {
	deps.Logger = nopLogger(deps.Logger)
	if deps.Events == nil {
		deps.Events = realtime.NoopHub{}
	}
	return &orderService{OrderDeps: deps, now: time.Now}
}

func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*Checkout, error) {
	if !in.PaymentMethod.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}
	if in.PaymentMethod == domain.PaymentMethodOnline && !s.Gateway.Enabled() {
		return nil, ErrPaymentUnavailable
	}

	address, err := s.Addresses.FindByID(ctx, userID, in.AddressID)
	if err != nil {
		return nil, err
	}

	items, err := s.Cart.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]*domain.CartLine, 0, len(items))
	for _, item := range items {
		product, variant, err := resolveLine(ctx, s.Products, item.ProductID, item.VariantID)
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrVariantNotFound) {
			return nil, fmt.Errorf("%w: an item in your cart was removed", ErrProductUnavailable)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load cart product: %w", err)
		}
		if !purchasable(product, variant) {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		if item.Quantity > domain.LineStock(product, variant) {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}
		lines = append(lines, domain.NewCartLine(item, product, variant))
	}
	cart := domain.PriceCart(lines)

	settings, err := s.Settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cart.Subtotal.LessThan(settings.MinOrderAmount) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimumOrder, settings.MinOrderAmount.StringFixed(2))
	}

	estimate, err := s.Delivery.Estimate(ctx, address.PostalCode, cart.Subtotal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &domain.Order{
		ID:             uuid.New(),
		UserID:         userID,
		RecipientName:  address.RecipientName,
		Phone:          address.Phone,
		Line1:          address.Line1,
		Line2:          address.Line2,
		City:           address.City,
		State:          address.State,
		PostalCode:     address.PostalCode,
		Status:         domain.OrderStatusPending,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  domain.PaymentStatusPending,
		Subtotal:       cart.Subtotal,
		Discount:       cart.Discount,
		DeliveryCharge: estimate.Charge,
		Total:          cart.Subtotal.Add(estimate.Charge),
		DistanceKM:     estimate.DistanceKM,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	order.OrderNumber = domain.OrderNumber(now, order.ID)
	for _, line := range lines {
		order.Items = append(order.Items, orderItemFromLine(order.ID, line))
	}

	var intent *PaymentIntent
	if order.PaymentMethod == domain.PaymentMethodOnline {
		intent, err = s.createPaymentIntent(ctx, order)
		if err != nil {
			return nil, err
		}
		order.GatewayOrderID = intent.GatewayOrderID
	}

	if err := s.place(ctx, order); err != nil {
		return nil, err
	}

	s.Metrics.OrderPlaced(string(order.PaymentMethod))
	s.Logger.Info("Order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.Total.StringFixed(2)),
	)
	s.publish(ctx, realtime.EventOrderCreated, order)
	s.Notifier.OrderPlaced(order, s.customerEmail(ctx, order.UserID))

	return &Checkout{Order: order, Payment: intent}, nil
}

// place inserts the order, drawing a fresh order number when the
// generated one is already taken for the day.
func (s *orderService) place(ctx context.Context, order *domain.Order) error {
	var err error
	for range orderNumberAttempts {
		if err = s.Orders.Place(ctx, order); !errors.Is(err, repository.ErrOrderNumberTaken) {
			return err
		}
		s.Logger.Warn("Order number collision", zap.String("order_number", order.OrderNumber))
		order.OrderNumber = domain.OrderNumber(order.CreatedAt, uuid.New())
	}
	return err
}

func orderItemFromLine(orderID uuid.UUID, line *domain.CartLine) *domain.OrderItem {
	item := &domain.OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   line.Product.ID,
		ProductName: line.Product.Name,
		Unit:        line.Product.Unit,
		UnitPrice:   line.UnitPrice,
		MRP:         line.MRP,
		Quantity:    line.Item.Quantity,
		LineTotal:   line.LineTotal,
	}
	if line.Variant != nil {
		id := line.Variant.ID
		item.VariantID = &id
		item.VariantName = line.Variant.Name
	}
	return item
}

func (s *orderService) createPaymentIntent(ctx context.Context, order *domain.Order) (*PaymentIntent, error) {
	gatewayOrder, err := s.Gateway.CreateOrder(ctx, payment.CreateOrderRequest{
		Amount:  payment.ToMinorUnits(order.Total),
		Receipt: order.ID.String(),
		Notes:   map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}
	return &PaymentIntent{
		KeyID:          s.Gateway.KeyID(),
		GatewayOrderID: gatewayOrder.ID,
		Amount:         gatewayOrder.Amount,
		Currency:       gatewayOrder.Currency,
	}, nil
}

// RetryPayment opens a fresh gateway order for an unpaid online order.
func (s *orderService) RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*Checkout, error) {
	order, err := s.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != domain.PaymentMethodOnline ||
		order.Status != domain.OrderStatusPending ||
		order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, ErrOrderNotPayable
	}
	if !s.Gateway.Enabled() {
		return nil, ErrPaymentUnavailable
	}

	intent, err := s.createPaymentIntent(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := s.Orders.SetGatewayOrderID(ctx, order.ID, intent.GatewayOrderID); err != nil {
		return nil, err
	}
	order.GatewayOrderID = intent.GatewayOrderID
	return &Checkout{Order: order, Payment: intent}, nil
}

func (s *orderService) VerifyPayment(ctx context.Context, userID, orderID uuid.UUID, in VerifyPaymentInput) (*domain.Order, error) {
	order, err := s.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, nil
	}
	if order.PaymentMethod != domain.PaymentMethodOnline {
		return nil, ErrOrderNotPayable
	}

	now := s.now()
	from := order.Status
	if in.GatewayOrderID != order.GatewayOrderID ||
		!s.Gateway.VerifyPaymentSignature(order.GatewayOrderID, in.PaymentID, in.Signature) {
		order.PaymentStatus = domain.PaymentStatusFailed
		order.UpdatedAt = now
		if err := s.Orders.UpdatePayment(ctx, order, from); err != nil {
			s.Logger.Error("Failed to record failed payment", zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
		s.publish(ctx, realtime.EventOrderUpdated, order)
		return nil, ErrPaymentVerification
	}

	order.MarkPaid(in.PaymentID, now)
	if err := s.Orders.UpdatePayment(ctx, order, from); err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.EventOrderUpdated, order)
	s.Notifier.OrderStatusChanged(order, s.customerEmail(ctx, order.UserID))
	return order, nil
}

// ApplyGatewayPayment records a webhook outcome. Orders already paid are
// left untouched.
func (s *orderService) ApplyGatewayPayment(ctx context.Context, gatewayOrderID, paymentID string, captured bool) error {
	order, err := s.Orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil
	}

	now := s.now()
	from := order.Status
	if captured {
		order.MarkPaid(paymentID, now)
	} else {
		order.PaymentStatus = domain.PaymentStatusFailed
		order.UpdatedAt = now
	}
	if err := s.Orders.UpdatePayment(ctx, order, from); err != nil {
		return err
	}

	s.publish(ctx, realtime.EventOrderUpdated, order)
	if captured {
		s.Notifier.OrderStatusChanged(order, s.customerEmail(ctx, order.UserID))
	}
	return nil
}

func (s *orderService) ListMyOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) (*Page[*domain.Order], error) {
	return s.ListOrders(ctx, domain.OrderFilter{UserID: &userID, Page: page, PageSize: pageSize})
}

func (s *orderService) GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) CancelMyOrder(ctx context.Context, userID, orderID uuid.UUID, reason string) (*domain.Order, error) {
	order, err := s.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CustomerCancellable() {
		return nil, ErrOrderNotCancellable
	}
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by customer"
	}
	return s.transition(ctx, order, domain.OrderStatusCancelled, reason)
}

func (s *orderService) ListOrders(ctx context.Context, filter domain.OrderFilter) (*Page[*domain.Order], error) {
	filter.Page, filter.PageSize = clampPage(filter.Page, filter.PageSize)
	filter.Search = strings.TrimSpace(filter.Search)

	orders, total, err := s.Orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return newPage(orders, total, filter.Page, filter.PageSize), nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.Orders.FindByID(ctx, orderID)
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, reason string) (*domain.Order, error) {
	order, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, target, strings.TrimSpace(reason))
}

// transition applies a lifecycle move. Cancelling returns the order's
// items to stock in the same transaction.
func (s *orderService) transition(ctx context.Context, order *domain.Order, target domain.OrderStatus, reason string) (*domain.Order, error) {
	from := order.Status
	if err := order.TransitionTo(target, reason, s.now()); err != nil {
		return nil, err
	}

	restore := target == domain.OrderStatusCancelled
	if err := s.Orders.UpdateStatus(ctx, order, from, restore); err != nil {
		return nil, err
	}

	s.Logger.Info("Order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	s.publish(ctx, realtime.EventOrderUpdated, order)
	s.Notifier.OrderStatusChanged(order, s.customerEmail(ctx, order.UserID))
	return order, nil
}

func (s *orderService) ExportOrders(ctx context.Context, filter domain.OrderFilter, w io.Writer) error {
	filter.Page, filter.PageSize = 1, 0
	orders, _, err := s.Orders.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load orders for export: %w", err)
	}
	return export.WriteOrders(w, orders)
}

func (s *orderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	pubCtx, cancel := detached(ctx)
	defer cancel()
	if err := s.Events.Publish(pubCtx, realtime.NewOrderEvent(eventType, order, s.now())); err != nil {
		s.Logger.Warn("Failed to publish order event", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
}

func (s *orderService) customerEmail(ctx context.Context, userID uuid.UUID) string {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		s.Logger.Warn("Failed to look up customer email", zap.String("user_id", userID.String()), zap.Error(err))
		return ""
	}
	return user.Email
}
