package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"produce-market/internal/database"
	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStatusChanged = errors.New("order status changed concurrently")
	ErrOrderNumberTaken   = errors.New("order number already taken")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Place(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, restoreStock bool) error
	UpdatePayment(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, recipient_name, phone, line1, line2, city, state, postal_code,
	status, payment_method, payment_status, gateway_order_id, gateway_payment_id, subtotal, discount,
	delivery_charge, total, distance_km, notes, cancel_reason, created_at, updated_at, delivered_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.RecipientName,
		&o.Phone,
		&o.Line1,
		&o.Line2,
		&o.City,
		&o.State,
		&o.PostalCode,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.GatewayOrderID,
		&o.GatewayPaymentID,
		&o.Subtotal,
		&o.Discount,
		&o.DeliveryCharge,
		&o.Total,
		&o.DistanceKM,
		&o.Notes,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.DeliveredAt,
	)
	return o, err
}

// Place writes the order, its items, the stock decrements and the cart
// clear as one transaction. A line whose stock fell below the ordered
// quantity aborts everything with ErrInsufficientStock.
func (r *orderRepository) Place(ctx context.Context, order *domain.Order) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO orders (id, order_number, user_id, recipient_name, phone, line1, line2, city, state,
				postal_code, status, payment_method, payment_status, gateway_order_id, gateway_payment_id,
				subtotal, discount, delivery_charge, total, distance_km, notes, cancel_reason, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		`
		_, err := tx.ExecContext(
			ctx,
			query,
			order.ID,
			order.OrderNumber,
			order.UserID,
			order.RecipientName,
			order.Phone,
			order.Line1,
			order.Line2,
			order.City,
			order.State,
			order.PostalCode,
			order.Status,
			order.PaymentMethod,
			order.PaymentStatus,
			order.GatewayOrderID,
			order.GatewayPaymentID,
			order.Subtotal,
			order.Discount,
			order.DeliveryCharge,
			order.Total,
			order.DistanceKM,
			order.Notes,
			order.CancelReason,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if violatedConstraint(err) == "orders_order_number_key" {
				return ErrOrderNumberTaken
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range order.Items {
			itemQuery := `
				INSERT INTO order_items (id, order_id, product_id, variant_id, product_name, variant_name, unit,
					unit_price, mrp, quantity, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`
			_, err := tx.ExecContext(
				ctx,
				itemQuery,
				item.ID,
				order.ID,
				item.ProductID,
				item.VariantID,
				item.ProductName,
				item.VariantName,
				item.Unit,
				item.UnitPrice,
				item.MRP,
				item.Quantity,
				item.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			if err := decrementStock(ctx, tx, item); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, order.UserID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

func decrementStock(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	var (
		result sql.Result
		err    error
	)
	if item.VariantID != nil {
		result, err = tx.ExecContext(ctx, `UPDATE product_variants SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, *item.VariantID, item.Quantity)
	} else {
		result, err = tx.ExecContext(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, item.ProductID, item.Quantity)
	}
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if err := requireAffected(result, ErrInsufficientStock); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductName)
		}
		return err
	}
	return nil
}

func restoreStock(ctx context.Context, tx *sql.Tx, items []*domain.OrderItem) error {
	for _, item := range items {
		var err error
		if item.VariantID != nil {
			_, err = tx.ExecContext(ctx, `UPDATE product_variants SET stock = stock + $2 WHERE id = $1`, *item.VariantID, item.Quantity)
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, item.ProductID, item.Quantity)
		}
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}
	return nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// FindByGatewayOrderID retrieves the order a payment gateway order belongs to
func (r *orderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1 AND gateway_order_id <> ''`, gatewayOrderID)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List retrieves orders matching the filter, newest first. A PageSize of
// zero returns every match, which the CSV export relies on.
func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argIndex))
		args = append(args, *filter.PaymentStatus)
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		conditions = append(conditions, fmt.Sprintf("(order_number ILIKE $%d OR phone ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+q+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id ASC`, orderColumns, whereClause)
	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.PageSize, offset(filter.Page, filter.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for _, order := range orders {
		order.Items = []*domain.OrderItem{}
		ids = append(ids, order.ID.String())
		byID[order.ID] = order
	}

	query := `
		SELECT id, order_id, product_id, variant_id, product_name, variant_name, unit, unit_price, mrp, quantity, line_total
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY product_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, "{"+strings.Join(ids, ",")+"}")
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.ProductName,
			&item.VariantName,
			&item.Unit,
			&item.UnitPrice,
			&item.MRP,
			&item.Quantity,
			&item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}

// UpdateStatus persists a status change made by the order state machine.
// The write only applies while the row is still in status from, so two
// admins racing on the same order cannot both win.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, restore bool) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE orders
			SET status = $3, payment_status = $4, cancel_reason = $5, delivered_at = $6, updated_at = $7
			WHERE id = $1 AND status = $2
		`
		result, err := tx.ExecContext(
			ctx,
			query,
			order.ID,
			from,
			order.Status,
			order.PaymentStatus,
			order.CancelReason,
			order.DeliveredAt,
			order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if err := requireAffected(result, ErrOrderStatusChanged); err != nil {
			return err
		}

		if restore {
			return restoreStock(ctx, tx, order.Items)
		}
		return nil
	})
}

// UpdatePayment persists payment fields and the status they imply. The
// write only lands while the order is still in the status it was read with.
func (r *orderRepository) UpdatePayment(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET payment_status = $3, gateway_payment_id = $4, status = $5, updated_at = $6
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, order.ID, from, order.PaymentStatus, order.GatewayPaymentID, order.Status, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order payment: %w", err)
	}

	return requireAffected(result, ErrOrderStatusChanged)
}

func (r *orderRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE orders SET gateway_order_id = $2 WHERE id = $1`, id, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("failed to set gateway order id: %w", err)
	}

	return requireAffected(result, ErrOrderNotFound)
}
