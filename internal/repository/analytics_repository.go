package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"produce-market/internal/domain"

	"github.com/shopspring/decimal"
)

// revenueCondition selects orders that count as earned revenue.
const revenueCondition = `status <> 'cancelled' AND (payment_status = 'paid' OR status = 'delivered')`

// RevenueTotals is the headline figure of the dashboard
type RevenueTotals struct {
	Revenue decimal.Decimal
	Orders  int
}

// AnalyticsRepository runs the aggregate queries behind the admin dashboard
type AnalyticsRepository interface {
	Revenue(ctx context.Context, from, to time.Time) (*RevenueTotals, error)
	OrdersByStatus(ctx context.Context, from, to time.Time) (map[domain.OrderStatus]int, error)
	OrdersByPaymentMethod(ctx context.Context, from, to time.Time) (map[domain.PaymentMethod]int, error)
	NewCustomers(ctx context.Context, from, to time.Time) (int, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]*domain.ProductSales, error)
	RevenueByDay(ctx context.Context, from, to time.Time) ([]*domain.DailyRevenue, error)
	LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error)
}

type analyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository
func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Revenue(ctx context.Context, from, to time.Time) (*RevenueTotals, error) {
	query := `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM orders
		WHERE ` + revenueCondition + ` AND created_at >= $1 AND created_at < $2
	`

	totals := &RevenueTotals{}
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&totals.Revenue, &totals.Orders); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return totals, nil
}

func (r *analyticsRepository) OrdersByStatus(ctx context.Context, from, to time.Time) (map[domain.OrderStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int, len(domain.AllOrderStatuses))
	for _, status := range domain.AllOrderStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status domain.OrderStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

func (r *analyticsRepository) OrdersByPaymentMethod(ctx context.Context, from, to time.Time) (map[domain.PaymentMethod]int, error) {
	query := `
		SELECT payment_method, COUNT(*)
		FROM orders
		WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2
		GROUP BY payment_method
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by payment method: %w", err)
	}
	defer rows.Close()

	counts := map[domain.PaymentMethod]int{domain.PaymentMethodCOD: 0, domain.PaymentMethodOnline: 0}
	for rows.Next() {
		var (
			method domain.PaymentMethod
			count  int
		)
		if err := rows.Scan(&method, &count); err != nil {
			return nil, fmt.Errorf("failed to scan payment method count: %w", err)
		}
		counts[method] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment method counts: %w", err)
	}
	return counts, nil
}

func (r *analyticsRepository) NewCustomers(ctx context.Context, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE role = 'customer' AND created_at >= $1 AND created_at < $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count new customers: %w", err)
	}
	return count, nil
}

// TopProducts ranks products by units sold, then revenue
func (r *analyticsRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]*domain.ProductSales, error) {
	query := `
		SELECT oi.product_id, MAX(oi.product_name), SUM(oi.quantity), SUM(oi.line_total)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> 'cancelled' AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY oi.product_id
		ORDER BY SUM(oi.quantity) DESC, SUM(oi.line_total) DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}
	defer rows.Close()

	products := []*domain.ProductSales{}
	for rows.Next() {
		p := &domain.ProductSales{}
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Quantity, &p.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan product sales: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product sales: %w", err)
	}
	return products, nil
}

// RevenueByDay returns only days that had revenue; callers zero-fill gaps
func (r *analyticsRepository) RevenueByDay(ctx context.Context, from, to time.Time) ([]*domain.DailyRevenue, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE ` + revenueCondition + ` AND created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily revenue: %w", err)
	}
	defer rows.Close()

	days := []*domain.DailyRevenue{}
	for rows.Next() {
		d := &domain.DailyRevenue{}
		if err := rows.Scan(&d.Day, &d.Orders, &d.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan daily revenue: %w", err)
		}
		days = append(days, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily revenue: %w", err)
	}
	return days, nil
}

// LowStock lists active products and variants at or below threshold
func (r *analyticsRepository) LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error) {
	query := `
		SELECT p.id, NULL::uuid, p.name, '', p.stock
		FROM products p
		WHERE p.is_active = TRUE AND p.stock <= $1
		  AND NOT EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.is_active = TRUE)
		UNION ALL
		SELECT p.id, v.id, p.name, v.name, v.stock
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE p.is_active = TRUE AND v.is_active = TRUE AND v.stock <= $1
		ORDER BY 5 ASC, 3 ASC
	`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.StockAlert{}
	for rows.Next() {
		a := &domain.StockAlert{}
		if err := rows.Scan(&a.ProductID, &a.VariantID, &a.ProductName, &a.VariantName, &a.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan stock alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock alerts: %w", err)
	}
	return alerts, nil
}
