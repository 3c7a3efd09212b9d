package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"produce-market/internal/database"
	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var ErrAddressNotFound = errors.New("address not found")

// AddressRepository defines the interface for address book data access
type AddressRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error)
	Create(ctx context.Context, address *domain.Address) error
	Update(ctx context.Context, address *domain.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

type addressRepository struct {
	db *sql.DB
}

// NewAddressRepository creates a new instance of AddressRepository
func NewAddressRepository(db *sql.DB) AddressRepository {
	return &addressRepository{db: db}
}

const addressColumns = `id, user_id, label, recipient_name, phone, line1, line2, city, state, postal_code,
	landmark, is_default, created_at, updated_at`

func scanAddress(row interface{ Scan(...any) error }) (*domain.Address, error) {
	a := &domain.Address{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Label,
		&a.RecipientName,
		&a.Phone,
		&a.Line1,
		&a.Line2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Landmark,
		&a.IsDefault,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// List returns the default address first, then newest
func (r *addressRepository) List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func (r *addressRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	address, err := scanAddress(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}

	return address, nil
}

// Create inserts an address. The user's first address becomes the default,
// and a new default clears the previous one in the same transaction.
func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, address.UserID).Scan(&existing); err != nil {
			return fmt.Errorf("failed to count addresses: %w", err)
		}
		if existing == 0 {
			address.IsDefault = true
		}

		if address.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, address.UserID); err != nil {
				return fmt.Errorf("failed to clear default address: %w", err)
			}
		}

		query := `
			INSERT INTO addresses (id, user_id, label, recipient_name, phone, line1, line2, city, state,
				postal_code, landmark, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`
		_, err := tx.ExecContext(
			ctx,
			query,
			address.ID,
			address.UserID,
			address.Label,
			address.RecipientName,
			address.Phone,
			address.Line1,
			address.Line2,
			address.City,
			address.State,
			address.PostalCode,
			address.Landmark,
			address.IsDefault,
			address.CreatedAt,
			address.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
}

// Update rewrites the address fields; the default flag is managed by SetDefault.
func (r *addressRepository) Update(ctx context.Context, address *domain.Address) error {
	query := `
		UPDATE addresses
		SET label = $3, recipient_name = $4, phone = $5, line1 = $6, line2 = $7, city = $8, state = $9,
		    postal_code = $10, landmark = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		address.ID,
		address.UserID,
		address.Label,
		address.RecipientName,
		address.Phone,
		address.Line1,
		address.Line2,
		address.City,
		address.State,
		address.PostalCode,
		address.Landmark,
		address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}

	return requireAffected(result, ErrAddressNotFound)
}

// Delete removes an address. When it was the default, the newest remaining
// address is promoted.
func (r *addressRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var wasDefault bool
		err := tx.QueryRowContext(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2 RETURNING is_default`, id, userID).Scan(&wasDefault)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAddressNotFound
			}
			return fmt.Errorf("failed to delete address: %w", err)
		}
		if !wasDefault {
			return nil
		}

		promote := `
			UPDATE addresses SET is_default = TRUE
			WHERE id = (SELECT id FROM addresses WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1)
		`
		if _, err := tx.ExecContext(ctx, promote, userID); err != nil {
			return fmt.Errorf("failed to promote default address: %w", err)
		}
		return nil
	})
}

func (r *addressRepository) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID); err != nil {
			return fmt.Errorf("failed to clear default address: %w", err)
		}

		result, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("failed to set default address: %w", err)
		}
		return requireAffected(result, ErrAddressNotFound)
	})
}
