package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepository defines the interface for cart data access. Every method
// is scoped to the owning user.
type CartRepository interface {
	ListItems(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error)
	FindItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartItem, error)
	FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*domain.CartItem, error)
	Create(ctx context.Context, item *domain.CartItem) error
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int, now time.Time) error
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, user_id, product_id, variant_id, quantity, added_at, updated_at`

func scanCartItem(row interface{ Scan(...any) error }) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.VariantID, &item.Quantity, &item.AddedAt, &item.UpdatedAt)
	return item, err
}

func (r *cartRepository) ListItems(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE user_id = $1 ORDER BY added_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) FindItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1 AND user_id = $2`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, itemID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// FindLine looks up the cart line for a product and optional variant
func (r *cartRepository) FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT ` + cartColumns + `
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3
	`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, productID, variantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart line: %w", err)
	}

	return item, nil
}

func (r *cartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, variant_id, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query, item.ID, item.UserID, item.ProductID, item.VariantID, item.Quantity, item.AddedAt, item.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int, now time.Time) error {
	query := `UPDATE cart_items SET quantity = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, itemID, userID, quantity, now)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return requireAffected(result, ErrCartItemNotFound)
}

func (r *cartRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return requireAffected(result, ErrCartItemNotFound)
}

func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
