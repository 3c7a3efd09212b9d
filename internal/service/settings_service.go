package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/shopspring/decimal"
)

const settingsCacheTTL = 30 * time.Second

var ErrInvalidSettings = errors.New("invalid settings")

// SettingsService serves the store settings row with a short in-process cache
type SettingsService interface {
	Current(ctx context.Context) (*domain.SiteSettings, error)
	Update(ctx context.Context, settings *domain.SiteSettings) (*domain.SiteSettings, error)
}

type settingsService struct {
	repo repository.SettingsRepository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	cached   *domain.SiteSettings
	cachedAt time.Time
}

func NewSettingsService(repo repository.SettingsRepository) SettingsService {
	return &settingsService{repo: repo, ttl: settingsCacheTTL, now: time.Now}
}

// DefaultSettings mirrors the column defaults of a freshly migrated store.
func DefaultSettings() *domain.SiteSettings {
	return &domain.SiteSettings{
		StoreName:             "Produce Market",
		PerKMCharge:           decimal.Zero,
		FreeDeliveryThreshold: decimal.Zero,
		MinOrderAmount:        decimal.Zero,
		MaxDeliveryKM:         decimal.Zero,
		LowStockThreshold:     5,
		PreordersEnabled:      true,
	}
}

// Current returns a copy of the settings so callers cannot mutate the cache.
func (s *settingsService) Current(ctx context.Context) (*domain.SiteSettings, error) {
	s.mu.RLock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		copied := *s.cached
		s.mu.RUnlock()
		return &copied, nil
	}
	s.mu.RUnlock()

	settings, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		settings = DefaultSettings()
	} else if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	s.cached = settings
	s.cachedAt = s.now()
	s.mu.Unlock()

	copied := *settings
	return &copied, nil
}

func (s *settingsService) Update(ctx context.Context, settings *domain.SiteSettings) (*domain.SiteSettings, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	settings.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	return settings, nil
}

func validateSettings(s *domain.SiteSettings) error {
	money := map[string]decimal.Decimal{
		"per_km_charge":           s.PerKMCharge,
		"free_delivery_threshold": s.FreeDeliveryThreshold,
		"min_order_amount":        s.MinOrderAmount,
		"max_delivery_km":         s.MaxDeliveryKM,
	}
	for field, v := range money {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidSettings, field)
		}
	}
	if s.OriginLat < -90 || s.OriginLat > 90 {
		return fmt.Errorf("%w: origin_lat must be within [-90, 90]", ErrInvalidSettings)
	}
	if s.OriginLng < -180 || s.OriginLng > 180 {
		return fmt.Errorf("%w: origin_lng must be within [-180, 180]", ErrInvalidSettings)
	}
	if s.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low_stock_threshold must not be negative", ErrInvalidSettings)
	}
	return nil
}
