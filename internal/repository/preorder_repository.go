package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrPreOrderNotFound      = errors.New("pre-order not found")
	ErrPreOrderStatusChanged = errors.New("pre-order status changed concurrently")
)

// PreOrderRepository defines the interface for pre-order data access
type PreOrderRepository interface {
	Create(ctx context.Context, preorder *domain.PreOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PreOrder, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PreOrder, error)
	List(ctx context.Context, filter domain.PreOrderFilter) ([]*domain.PreOrder, int, error)
	Update(ctx context.Context, preorder *domain.PreOrder, from domain.PreOrderStatus) error
}

type preOrderRepository struct {
	db *sql.DB
}

// NewPreOrderRepository creates a new instance of PreOrderRepository
func NewPreOrderRepository(db *sql.DB) PreOrderRepository {
	return &preOrderRepository{db: db}
}

const preOrderColumns = `po.id, po.product_id, po.user_id, po.quantity, po.contact_name, po.contact_phone,
	po.contact_email, po.postal_code, po.expected_date, po.status, po.requires_payment, po.amount_due,
	po.payment_status, po.gateway_order_id, po.gateway_payment_id, po.notes, po.created_at, po.updated_at,
	p.name`

func scanPreOrder(row interface{ Scan(...any) error }) (*domain.PreOrder, error) {
	p := &domain.PreOrder{}
	err := row.Scan(
		&p.ID,
		&p.ProductID,
		&p.UserID,
		&p.Quantity,
		&p.ContactName,
		&p.ContactPhone,
		&p.ContactEmail,
		&p.PostalCode,
		&p.ExpectedDate,
		&p.Status,
		&p.RequiresPayment,
		&p.AmountDue,
		&p.PaymentStatus,
		&p.GatewayOrderID,
		&p.GatewayPaymentID,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ProductName,
	)
	return p, err
}

func (r *preOrderRepository) Create(ctx context.Context, preorder *domain.PreOrder) error {
	query := `
		INSERT INTO pre_orders (id, product_id, user_id, quantity, contact_name, contact_phone, contact_email,
			postal_code, expected_date, status, requires_payment, amount_due, payment_status, gateway_order_id,
			gateway_payment_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		preorder.ID,
		preorder.ProductID,
		preorder.UserID,
		preorder.Quantity,
		preorder.ContactName,
		preorder.ContactPhone,
		preorder.ContactEmail,
		preorder.PostalCode,
		preorder.ExpectedDate,
		preorder.Status,
		preorder.RequiresPayment,
		preorder.AmountDue,
		preorder.PaymentStatus,
		preorder.GatewayOrderID,
		preorder.GatewayPaymentID,
		preorder.Notes,
		preorder.CreatedAt,
		preorder.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create pre-order: %w", err)
	}

	return nil
}

func (r *preOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PreOrder, error) {
	return r.findOne(ctx, `WHERE po.id = $1`, id)
}

func (r *preOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PreOrder, error) {
	return r.findOne(ctx, `WHERE po.gateway_order_id = $1 AND po.gateway_order_id <> ''`, gatewayOrderID)
}

func (r *preOrderRepository) findOne(ctx context.Context, where string, arg any) (*domain.PreOrder, error) {
	query := `SELECT ` + preOrderColumns + ` FROM pre_orders po JOIN products p ON p.id = po.product_id ` + where

	preorder, err := scanPreOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPreOrderNotFound
		}
		return nil, fmt.Errorf("failed to find pre-order: %w", err)
	}

	return preorder, nil
}

// List retrieves pre-orders newest first. A PageSize of zero returns all matches.
func (r *preOrderRepository) List(ctx context.Context, filter domain.PreOrderFilter) ([]*domain.PreOrder, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("po.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("po.product_id = $%d", argIndex))
		args = append(args, *filter.ProductID)
		argIndex++
	}
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("po.user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pre_orders po "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pre-orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM pre_orders po
		JOIN products p ON p.id = po.product_id
		%s
		ORDER BY po.created_at DESC, po.id ASC
	`, preOrderColumns, whereClause)
	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.PageSize, offset(filter.Page, filter.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pre-orders: %w", err)
	}
	defer rows.Close()

	preorders := []*domain.PreOrder{}
	for rows.Next() {
		preorder, err := scanPreOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pre-order: %w", err)
		}
		preorders = append(preorders, preorder)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating pre-orders: %w", err)
	}

	return preorders, total, nil
}

// Update persists status, payment and gateway fields
// Update writes the pre-order back if its status is still from.
func (r *preOrderRepository) Update(ctx context.Context, preorder *domain.PreOrder, from domain.PreOrderStatus) error {
	query := `
		UPDATE pre_orders
		SET status = $3, payment_status = $4, gateway_order_id = $5, gateway_payment_id = $6,
		    expected_date = $7, notes = $8, updated_at = $9
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		preorder.ID,
		from,
		preorder.Status,
		preorder.PaymentStatus,
		preorder.GatewayOrderID,
		preorder.GatewayPaymentID,
		preorder.ExpectedDate,
		preorder.Notes,
		preorder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update pre-order: %w", err)
	}

	return requireAffected(result, ErrPreOrderStatusChanged)
}
