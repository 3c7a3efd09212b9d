package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"produce-market/internal/delivery"
	"produce-market/internal/domain"
	"produce-market/internal/payment"
	"produce-market/internal/realtime"
	"produce-market/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	service   OrderService
	orders    *mockOrderRepository
	products  *mockProductRepository
	cart      *mockCartRepository
	addresses *mockAddressRepository
	gateway   *fakeGateway
	estimator *fakeEstimator
	notifier  *recordingNotifier
	events    *recordingPublisher
	settings  *domain.SiteSettings

	user    *domain.User
	address *domain.Address
	apples  *domain.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	f := &orderFixture{
		products:  newMockProductRepository(),
		cart:      newMockCartRepository(),
		addresses: newMockAddressRepository(),
		gateway:   newFakeGateway(),
		estimator: &fakeEstimator{estimate: &delivery.Estimate{
			DistanceKM: decimal.RequireFromString("4.2"),
			Charge:     decimal.RequireFromString("21"),
		}},
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
		settings: &domain.SiteSettings{
			StoreName:      "Test Market",
			MinOrderAmount: decimal.NewFromInt(100),
		},
	}
	f.orders = newMockOrderRepository(f.products, f.cart)

	users := newMockUserRepository()
	f.user = &domain.User{ID: uuid.New(), Email: "buyer@example.com", Role: domain.RoleCustomer}
	require.NoError(t, users.Create(context.Background(), f.user))

	f.address = &domain.Address{
		ID:            uuid.New(),
		UserID:        f.user.ID,
		RecipientName: "Buyer",
		Phone:         "9876543210",
		Line1:         "12 Market Road",
		City:          "Pune",
		State:         "MH",
		PostalCode:    "411001",
	}
	require.NoError(t, f.addresses.Create(context.Background(), f.address))

	f.apples = f.products.add("Apples", 120, 150, 10)

	f.service = NewOrderService(OrderDeps{
		Orders:    f.orders,
		Cart:      f.cart,
		Products:  f.products,
		Addresses: f.addresses,
		Users:     users,
		Settings:  staticSettings{settings: f.settings},
		Delivery:  f.estimator,
		Gateway:   f.gateway,
		Notifier:  f.notifier,
		Events:    f.events,
	})
	return f
}

func (f *orderFixture) addToCart(product *domain.Product, variantID *uuid.UUID, qty int) {
	item := &domain.CartItem{
		ID:        uuid.New(),
		UserID:    f.user.ID,
		ProductID: product.ID,
		VariantID: variantID,
		Quantity:  qty,
		AddedAt:   time.Now(),
	}
	f.cart.items[item.ID] = item
}

func (f *orderFixture) place(t *testing.T, method domain.PaymentMethod) *Checkout {
	t.Helper()
	checkout, err := f.service.PlaceOrder(context.Background(), f.user.ID, PlaceOrderInput{
		AddressID:     f.address.ID,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return checkout
}

func TestPlaceOrderCOD(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 2)

	checkout := f.place(t, domain.PaymentMethodCOD)
	order := checkout.Order

	assert.Nil(t, checkout.Payment)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "240", order.Subtotal.String())
	assert.Equal(t, "60", order.Discount.String())
	assert.Equal(t, "21", order.DeliveryCharge.String())
	assert.Equal(t, "261", order.Total.String())
	assert.Equal(t, "411001", order.PostalCode)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "PM-"))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Apples", order.Items[0].ProductName)

	assert.Equal(t, 8, f.apples.Stock)
	assert.Empty(t, f.cart.items)
	assert.Equal(t, []string{"buyer@example.com"}, f.notifier.placed)
	assert.Equal(t, []string{realtime.EventOrderCreated}, f.events.types())
	assert.Empty(t, f.gateway.created)
}

func TestPlaceOrderOnlineCreatesGatewayOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)

	checkout := f.place(t, domain.PaymentMethodOnline)

	require.NotNil(t, checkout.Payment)
	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, int64(14100), f.gateway.created[0].Amount)
	assert.Equal(t, checkout.Order.ID.String(), f.gateway.created[0].Receipt)
	assert.Equal(t, checkout.Payment.GatewayOrderID, checkout.Order.GatewayOrderID)
	assert.Equal(t, "rzp_test_key", checkout.Payment.KeyID)
	assert.Equal(t, domain.OrderStatusPending, checkout.Order.Status)
}

func TestPlaceOrderRedrawsTakenOrderNumber(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 2)
	f.orders.takenNumbers = 1

	checkout := f.place(t, domain.PaymentMethodOnline)

	require.Len(t, f.orders.attempted, 2)
	assert.NotEqual(t, f.orders.attempted[0], f.orders.attempted[1])
	assert.Equal(t, f.orders.attempted[1], checkout.Order.OrderNumber)
	assert.Regexp(t, `^PM-\d{8}-[0-9a-f]{6}$`, checkout.Order.OrderNumber)
	assert.Len(t, f.gateway.created, 1)
	assert.Equal(t, 8, f.apples.Stock)
}

func TestPlaceOrderGivesUpAfterRepeatedNumberClashes(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	f.orders.takenNumbers = orderNumberAttempts

	_, err := f.service.PlaceOrder(context.Background(), f.user.ID, PlaceOrderInput{
		AddressID:     f.address.ID,
		PaymentMethod: domain.PaymentMethodCOD,
	})
	assert.ErrorIs(t, err, repository.ErrOrderNumberTaken)
	assert.Len(t, f.orders.attempted, orderNumberAttempts)
	assert.Empty(t, f.orders.orders)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *orderFixture) PlaceOrderInput
		wantErr error
	}{
		{
			name: "empty cart",
			setup: func(f *orderFixture) PlaceOrderInput {
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: domain.PaymentMethodCOD}
			},
			wantErr: ErrEmptyCart,
		},
		{
			name: "foreign address",
			setup: func(f *orderFixture) PlaceOrderInput {
				f.addToCart(f.apples, nil, 1)
				other := &domain.Address{ID: uuid.New(), UserID: uuid.New(), PostalCode: "411002"}
				f.addresses.addresses[other.ID] = other
				return PlaceOrderInput{AddressID: other.ID, PaymentMethod: domain.PaymentMethodCOD}
			},
			wantErr: repository.ErrAddressNotFound,
		},
		{
			name: "below minimum",
			setup: func(f *orderFixture) PlaceOrderInput {
				cheap := f.products.add("Lemons", 20, 20, 50)
				f.addToCart(cheap, nil, 2)
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: domain.PaymentMethodCOD}
			},
			wantErr: ErrBelowMinimumOrder,
		},
		{
			name: "not enough stock",
			setup: func(f *orderFixture) PlaceOrderInput {
				f.addToCart(f.apples, nil, 11)
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: domain.PaymentMethodCOD}
			},
			wantErr: ErrInsufficientStock,
		},
		{
			name: "hidden product",
			setup: func(f *orderFixture) PlaceOrderInput {
				f.apples.IsAvailable = false
				f.addToCart(f.apples, nil, 1)
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: domain.PaymentMethodCOD}
			},
			wantErr: ErrProductUnavailable,
		},
		{
			name: "unknown payment method",
			setup: func(f *orderFixture) PlaceOrderInput {
				f.addToCart(f.apples, nil, 1)
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: "card"}
			},
			wantErr: ErrInvalidPaymentMethod,
		},
		{
			name: "gateway not configured",
			setup: func(f *orderFixture) PlaceOrderInput {
				f.gateway.enabled = false
				f.addToCart(f.apples, nil, 1)
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: domain.PaymentMethodOnline}
			},
			wantErr: ErrPaymentUnavailable,
		},
		{
			name: "out of delivery range",
			setup: func(f *orderFixture) PlaceOrderInput {
				f.estimator.err = delivery.ErrOutOfDeliveryRange
				f.addToCart(f.apples, nil, 1)
				return PlaceOrderInput{AddressID: f.address.ID, PaymentMethod: domain.PaymentMethodCOD}
			},
			wantErr: delivery.ErrOutOfDeliveryRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			in := tt.setup(f)

			_, err := f.service.PlaceOrder(context.Background(), f.user.ID, in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.orders.orders)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestPlaceOrderWithVariant(t *testing.T) {
	f := newOrderFixture(t)
	box := f.products.addVariant(f.apples, "box", 500, 3)
	f.addToCart(f.apples, &box.ID, 1)

	order := f.place(t, domain.PaymentMethodCOD).Order

	require.Len(t, order.Items, 1)
	assert.Equal(t, "box", order.Items[0].VariantName)
	assert.Equal(t, "500", order.Items[0].UnitPrice.String())
	assert.Equal(t, 2, box.Stock)
	assert.Equal(t, 10, f.apples.Stock)
}

func TestPublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newOrderFixture(t)
	f.events.err = errors.New("redis down")
	f.addToCart(f.apples, nil, 1)

	checkout := f.place(t, domain.PaymentMethodCOD)
	assert.NotNil(t, checkout.Order)
}

func signPayment(f *orderFixture, gatewayOrderID, paymentID string) string {
	return payment.Sign(f.gateway.secret, []byte(gatewayOrderID+"|"+paymentID))
}

func TestVerifyPayment(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodOnline)
	gatewayID := checkout.Payment.GatewayOrderID
	ctx := context.Background()

	order, err := f.service.VerifyPayment(ctx, f.user.ID, checkout.Order.ID, VerifyPaymentInput{
		GatewayOrderID: gatewayID,
		PaymentID:      "pay_1",
		Signature:      signPayment(f, gatewayID, "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, "pay_1", order.GatewayPaymentID)

	again, err := f.service.VerifyPayment(ctx, f.user.ID, checkout.Order.ID, VerifyPaymentInput{
		GatewayOrderID: gatewayID,
		PaymentID:      "pay_1",
		Signature:      "bogus",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, again.PaymentStatus)
}

func TestVerifyPaymentBadSignatureMarksFailed(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodOnline)

	_, err := f.service.VerifyPayment(context.Background(), f.user.ID, checkout.Order.ID, VerifyPaymentInput{
		GatewayOrderID: checkout.Payment.GatewayOrderID,
		PaymentID:      "pay_1",
		Signature:      signPayment(f, checkout.Payment.GatewayOrderID, "pay_2"),
	})
	assert.ErrorIs(t, err, ErrPaymentVerification)

	stored := f.orders.orders[checkout.Order.ID]
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestVerifyPaymentOtherUsersOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodOnline)

	_, err := f.service.VerifyPayment(context.Background(), uuid.New(), checkout.Order.ID, VerifyPaymentInput{})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestApplyGatewayPaymentIsIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodOnline)
	ctx := context.Background()

	require.NoError(t, f.service.ApplyGatewayPayment(ctx, checkout.Order.GatewayOrderID, "pay_9", true))
	require.NoError(t, f.service.ApplyGatewayPayment(ctx, checkout.Order.GatewayOrderID, "pay_9", false))

	stored := f.orders.orders[checkout.Order.ID]
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)

	err := f.service.ApplyGatewayPayment(ctx, "order_unknown", "pay", true)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestGatewayPaymentDoesNotReviveCancelledOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodOnline)
	f.orders.beforePaymentWrite = func(id uuid.UUID) {
		f.orders.orders[id].Status = domain.OrderStatusCancelled
	}

	err := f.service.ApplyGatewayPayment(context.Background(), checkout.Order.GatewayOrderID, "pay_late", true)
	assert.ErrorIs(t, err, repository.ErrOrderStatusChanged)

	stored := f.orders.orders[checkout.Order.ID]
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, f.notifier.changed)
}

func TestRetryPayment(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodOnline)

	retry, err := f.service.RetryPayment(context.Background(), f.user.ID, checkout.Order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, checkout.Payment.GatewayOrderID, retry.Payment.GatewayOrderID)
	assert.Equal(t, retry.Payment.GatewayOrderID, f.orders.orders[checkout.Order.ID].GatewayOrderID)

	f.addToCart(f.apples, nil, 1)
	cod := f.place(t, domain.PaymentMethodCOD)
	_, err = f.service.RetryPayment(context.Background(), f.user.ID, cod.Order.ID)
	assert.ErrorIs(t, err, ErrOrderNotPayable)
}

func TestCancelMyOrderRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 3)
	checkout := f.place(t, domain.PaymentMethodCOD)
	require.Equal(t, 7, f.apples.Stock)

	order, err := f.service.CancelMyOrder(context.Background(), f.user.ID, checkout.Order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, "cancelled by customer", order.CancelReason)
	assert.Equal(t, 10, f.apples.Stock)
	assert.Contains(t, f.notifier.changed, string(domain.OrderStatusCancelled))
}

func TestCancelMyOrderAfterPacking(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodCOD)
	ctx := context.Background()

	_, err := f.service.UpdateStatus(ctx, checkout.Order.ID, domain.OrderStatusConfirmed, "")
	require.NoError(t, err)
	_, err = f.service.UpdateStatus(ctx, checkout.Order.ID, domain.OrderStatusPacked, "")
	require.NoError(t, err)

	_, err = f.service.CancelMyOrder(ctx, f.user.ID, checkout.Order.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodCOD)
	ctx := context.Background()
	id := checkout.Order.ID

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPacked,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	} {
		_, err := f.service.UpdateStatus(ctx, id, status, "")
		require.NoError(t, err, status)
	}

	stored := f.orders.orders[id]
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.DeliveredAt)

	_, err := f.service.UpdateStatus(ctx, id, domain.OrderStatusCancelled, "late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 9, f.apples.Stock)
	assert.Len(t, f.events.types(), 5)
}

func TestListMyOrdersOnlyReturnsOwnOrders(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	f.place(t, domain.PaymentMethodCOD)

	stranger := &domain.Order{ID: uuid.New(), UserID: uuid.New(), CreatedAt: time.Now()}
	f.orders.orders[stranger.ID] = stranger

	page, err := f.service.ListMyOrders(context.Background(), f.user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, DefaultPageSize, page.PageSize)

	all, err := f.service.ListOrders(context.Background(), domain.OrderFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, MaxPageSize, all.PageSize)
}

func TestExportOrders(t *testing.T) {
	f := newOrderFixture(t)
	f.addToCart(f.apples, nil, 1)
	checkout := f.place(t, domain.PaymentMethodCOD)

	var buf bytes.Buffer
	require.NoError(t, f.service.ExportOrders(context.Background(), domain.OrderFilter{}, &buf))
	assert.Contains(t, buf.String(), checkout.Order.OrderNumber)
}

func TestProperty_CheckoutTotalsAddUp(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("total is subtotal plus delivery and stock drops by quantity", prop.ForAll(
		func(price int64, qty int, charge int64) bool {
			f := newOrderFixture(t)
			f.settings.MinOrderAmount = decimal.Zero
			f.estimator.estimate.Charge = decimal.NewFromInt(charge)
			product := f.products.add("Mango", price, price+10, 100)
			f.addToCart(product, nil, qty)

			checkout, err := f.service.PlaceOrder(context.Background(), f.user.ID, PlaceOrderInput{
				AddressID:     f.address.ID,
				PaymentMethod: domain.PaymentMethodCOD,
			})
			if err != nil {
				t.Logf("place failed: %v", err)
				return false
			}
			order := checkout.Order
			want := decimal.NewFromInt(price * int64(qty))
			return order.Subtotal.Equal(want) &&
				order.Total.Equal(want.Add(decimal.NewFromInt(charge))) &&
				order.Discount.Equal(decimal.NewFromInt(10*int64(qty))) &&
				product.Stock == 100-qty
		},
		gen.Int64Range(1, 2000),
		gen.IntRange(1, 20),
		gen.Int64Range(0, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
