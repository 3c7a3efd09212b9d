package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"produce-market/internal/domain"
)

var ErrSettingsNotFound = errors.New("site settings not initialised")

// SettingsRepository reads and writes the single site_settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SiteSettings, error)
	Update(ctx context.Context, settings *domain.SiteSettings) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.SiteSettings, error) {
	query := `
		SELECT store_name, support_email, support_phone, origin_lat, origin_lng, origin_postal_code,
		       per_km_charge, free_delivery_threshold, min_order_amount, max_delivery_km,
		       low_stock_threshold, preorders_enabled, updated_at
		FROM site_settings
		WHERE id = 1
	`

	s := &domain.SiteSettings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.StoreName,
		&s.SupportEmail,
		&s.SupportPhone,
		&s.OriginLat,
		&s.OriginLng,
		&s.OriginPostalCode,
		&s.PerKMCharge,
		&s.FreeDeliveryThreshold,
		&s.MinOrderAmount,
		&s.MaxDeliveryKM,
		&s.LowStockThreshold,
		&s.PreordersEnabled,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load site settings: %w", err)
	}

	return s, nil
}

func (r *settingsRepository) Update(ctx context.Context, s *domain.SiteSettings) error {
	query := `
		INSERT INTO site_settings (id, store_name, support_email, support_phone, origin_lat, origin_lng,
			origin_postal_code, per_km_charge, free_delivery_threshold, min_order_amount, max_delivery_km,
			low_stock_threshold, preorders_enabled, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			store_name = EXCLUDED.store_name,
			support_email = EXCLUDED.support_email,
			support_phone = EXCLUDED.support_phone,
			origin_lat = EXCLUDED.origin_lat,
			origin_lng = EXCLUDED.origin_lng,
			origin_postal_code = EXCLUDED.origin_postal_code,
			per_km_charge = EXCLUDED.per_km_charge,
			free_delivery_threshold = EXCLUDED.free_delivery_threshold,
			min_order_amount = EXCLUDED.min_order_amount,
			max_delivery_km = EXCLUDED.max_delivery_km,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			preorders_enabled = EXCLUDED.preorders_enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		s.StoreName,
		s.SupportEmail,
		s.SupportPhone,
		s.OriginLat,
		s.OriginLng,
		s.OriginPostalCode,
		s.PerKMCharge,
		s.FreeDeliveryThreshold,
		s.MinOrderAmount,
		s.MaxDeliveryKM,
		s.LowStockThreshold,
		s.PreordersEnabled,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update site settings: %w", err)
	}

	return nil
}
