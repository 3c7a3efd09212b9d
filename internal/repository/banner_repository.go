package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"produce-market/internal/database"
	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var ErrBannerNotFound = errors.New("banner not found")

// BannerRepository defines the interface for banner data access
type BannerRepository interface {
	Create(ctx context.Context, banner *domain.Banner) error
	Update(ctx context.Context, banner *domain.Banner) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error)
	List(ctx context.Context) ([]*domain.Banner, error)
	ListLive(ctx context.Context, now time.Time) ([]*domain.Banner, error)
	Reorder(ctx context.Context, ids []uuid.UUID) error
}

type bannerRepository struct {
	db *sql.DB
}

// NewBannerRepository creates a new instance of BannerRepository
func NewBannerRepository(db *sql.DB) BannerRepository {
	return &bannerRepository{db: db}
}

const bannerColumns = `id, title, subtitle, image_url, link_url, sort_order, is_active, starts_at, ends_at, created_at, updated_at`

func scanBanner(row interface{ Scan(...any) error }) (*domain.Banner, error) {
	b := &domain.Banner{}
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Subtitle,
		&b.ImageURL,
		&b.LinkURL,
		&b.SortOrder,
		&b.IsActive,
		&b.StartsAt,
		&b.EndsAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func (r *bannerRepository) Create(ctx context.Context, banner *domain.Banner) error {
	query := `
		INSERT INTO banners (id, title, subtitle, image_url, link_url, sort_order, is_active, starts_at, ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		banner.ID,
		banner.Title,
		banner.Subtitle,
		banner.ImageURL,
		banner.LinkURL,
		banner.SortOrder,
		banner.IsActive,
		banner.StartsAt,
		banner.EndsAt,
		banner.CreatedAt,
		banner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create banner: %w", err)
	}

	return nil
}

func (r *bannerRepository) Update(ctx context.Context, banner *domain.Banner) error {
	query := `
		UPDATE banners
		SET title = $2, subtitle = $3, image_url = $4, link_url = $5, sort_order = $6, is_active = $7,
		    starts_at = $8, ends_at = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		banner.ID,
		banner.Title,
		banner.Subtitle,
		banner.ImageURL,
		banner.LinkURL,
		banner.SortOrder,
		banner.IsActive,
		banner.StartsAt,
		banner.EndsAt,
		banner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update banner: %w", err)
	}

	return requireAffected(result, ErrBannerNotFound)
}

func (r *bannerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete banner: %w", err)
	}

	return requireAffected(result, ErrBannerNotFound)
}

func (r *bannerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error) {
	banner, err := scanBanner(r.db.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to find banner: %w", err)
	}

	return banner, nil
}

func (r *bannerRepository) List(ctx context.Context) ([]*domain.Banner, error) {
	return r.query(ctx, `SELECT `+bannerColumns+` FROM banners ORDER BY sort_order ASC, created_at ASC`)
}

// ListLive returns active banners whose schedule window contains now
func (r *bannerRepository) ListLive(ctx context.Context, now time.Time) ([]*domain.Banner, error) {
	query := `
		SELECT ` + bannerColumns + `
		FROM banners
		WHERE is_active = TRUE
		  AND (starts_at IS NULL OR starts_at <= $1)
		  AND (ends_at IS NULL OR ends_at > $1)
		ORDER BY sort_order ASC, created_at ASC
	`
	return r.query(ctx, query, now)
}

func (r *bannerRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Banner, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer rows.Close()

	banners := []*domain.Banner{}
	for rows.Next() {
		banner, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan banner: %w", err)
		}
		banners = append(banners, banner)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banners: %w", err)
	}

	return banners, nil
}

// Reorder assigns sort_order 0..n-1 following ids
func (r *bannerRepository) Reorder(ctx context.Context, ids []uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for position, id := range ids {
			result, err := tx.ExecContext(ctx, `UPDATE banners SET sort_order = $2 WHERE id = $1`, id, position)
			if err != nil {
				return fmt.Errorf("failed to reorder banner: %w", err)
			}
			if err := requireAffected(result, ErrBannerNotFound); err != nil {
				return err
			}
		}
		return nil
	})
}
