package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"produce-market/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func sampleOrder() *domain.Order {
	variantID := uuid.New()
	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodCOD,
		PaymentStatus: domain.PaymentStatusPending,
		Subtotal:      decimal.RequireFromString("180"),
		Total:         decimal.RequireFromString("200"),
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
	order.OrderNumber = domain.OrderNumber(order.CreatedAt, order.ID)
	order.Items = []*domain.OrderItem{
		{ID: uuid.New(), ProductID: uuid.New(), ProductName: "Tomato", Quantity: 2, UnitPrice: decimal.NewFromInt(40), LineTotal: decimal.NewFromInt(80)},
		{ID: uuid.New(), ProductID: uuid.New(), VariantID: &variantID, ProductName: "Spinach", Quantity: 1, UnitPrice: decimal.NewFromInt(100), LineTotal: decimal.NewFromInt(100)},
	}
	return order
}

func TestPlaceOrderCommitsAllWrites(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(order.Items[0].ProductID, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE product_variants SET stock = stock - $2")).
		WithArgs(*order.Items[1].VariantID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).
		WithArgs(order.UserID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Place(context.Background(), order))
}

func TestPlaceOrderRollsBackWhenStockRanOut(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Place(context.Background(), order)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Contains(t, err.Error(), "Tomato")
}

func TestPlaceOrderReportsTakenOrderNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"})
	mock.ExpectRollback()

	err := repo.Place(context.Background(), order)
	assert.ErrorIs(t, err, ErrOrderNumberTaken)
}

func TestPlaceOrderOtherUniqueViolationIsNotANumberClash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"})
	mock.ExpectRollback()

	err := repo.Place(context.Background(), order)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrderNumberTaken)
}

func TestUpdatePaymentIsGuardedByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()
	order.PaymentMethod = domain.PaymentMethodOnline
	order.MarkPaid("pay_1", testTime)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WithArgs(order.ID, domain.OrderStatusPending, order.PaymentStatus, "pay_1", order.Status, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePayment(context.Background(), order, domain.OrderStatusPending))
}

func TestUpdatePaymentLosesToConcurrentCancel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()
	order.MarkPaid("pay_1", testTime)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePayment(context.Background(), order, domain.OrderStatusPending)
	assert.ErrorIs(t, err, ErrOrderStatusChanged)
}

func TestUpdateStatusRestoresStockOnCancel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()
	require.NoError(t, order.TransitionTo(domain.OrderStatusCancelled, "customer request", testTime))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders")).
		WithArgs(order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, sqlmock.AnyArg(), "customer request", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE product_variants SET stock = stock + $2")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), order, domain.OrderStatusPending, true))
}

func TestUpdateStatusDetectsConcurrentChange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order := sampleOrder()
	order.Status = domain.OrderStatusConfirmed

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), order, domain.OrderStatusPending, false)
	assert.ErrorIs(t, err, ErrOrderStatusChanged)
}

func TestFindOrderNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
