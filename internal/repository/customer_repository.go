package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"produce-market/internal/domain"
)

// CustomerRepository aggregates per-customer order history
type CustomerRepository interface {
	ListStats(ctx context.Context, search string) ([]*domain.CustomerStats, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// ListStats returns every customer with raw order aggregates. Cancelled
// orders are excluded; segments are assigned by the caller.
func (r *customerRepository) ListStats(ctx context.Context, search string) ([]*domain.CustomerStats, error) {
	query := `
		SELECT u.id, u.email, u.full_name, COALESCE(u.phone, ''), u.created_at,
		       COUNT(o.id), COALESCE(SUM(o.total), 0), MIN(o.created_at), MAX(o.created_at)
		FROM users u
		LEFT JOIN orders o ON o.user_id = u.id AND o.status <> 'cancelled'
		WHERE u.role = 'customer'
	`
	args := []interface{}{}
	if q := strings.TrimSpace(search); q != "" {
		query += ` AND (u.email ILIKE $1 OR u.full_name ILIKE $1 OR u.phone ILIKE $1)`
		args = append(args, "%"+q+"%")
	}
	query += ` GROUP BY u.id ORDER BY COALESCE(SUM(o.total), 0) DESC, u.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate customers: %w", err)
	}
	defer rows.Close()

	customers := []*domain.CustomerStats{}
	for rows.Next() {
		c := &domain.CustomerStats{}
		err := rows.Scan(
			&c.UserID,
			&c.Email,
			&c.FullName,
			&c.Phone,
			&c.JoinedAt,
			&c.OrderCount,
			&c.TotalSpend,
			&c.FirstOrderAt,
			&c.LastOrderAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}
