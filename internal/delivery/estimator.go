// Package delivery prices doorstep delivery from the distance between the
// store and a customer's postal code.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidPostalCode   = errors.New("invalid postal code")
	ErrPostalCodeNotFound  = errors.New("postal code could not be located")
	ErrOutOfDeliveryRange  = errors.New("address is outside the delivery range")
	ErrGeocoderUnavailable = errors.New("geocoding provider unavailable")
	ErrOriginNotConfigured = errors.New("store origin is not configured")
)

const (
	DefaultCacheTTL      = 30 * 24 * time.Hour
	DefaultNegativeTTL   = time.Hour
	DefaultLookupTimeout = 10 * time.Second
)

// SettingsSource supplies the live pricing settings
type SettingsSource interface {
	Current(ctx context.Context) (*domain.SiteSettings, error)
}

// Estimate is the priced delivery quote for a postal code
type Estimate struct {
	PostalCode   string          `json:"postal_code"`
	Lat          float64         `json:"lat"`
	Lng          float64         `json:"lng"`
	DistanceKM   decimal.Decimal `json:"distance_km"`
	Charge       decimal.Decimal `json:"charge"`
	FreeDelivery bool            `json:"free_delivery"`
	AmountToFree decimal.Decimal `json:"amount_to_free"`
}

type Options struct {
	Country     string
	Pattern     string
	CacheTTL    time.Duration
	NegativeTTL time.Duration
	// LookupTimeout bounds a shared provider call, which outlives any
	// single caller's context.
	LookupTimeout time.Duration
}

type Estimator struct {
	geocoder    Geocoder
	cache       Cache
	settings    SettingsSource
	country     string
	pattern     *regexp.Regexp
	cacheTTL    time.Duration
	negativeTTL time.Duration
	lookupTTL   time.Duration
	group       singleflight.Group
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewEstimator(geocoder Geocoder, cache Cache, settings SettingsSource, opts Options, m *metrics.Metrics, logger *zap.Logger) (*Estimator, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = `^[1-9][0-9]{5}$`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid postal code pattern: %w", err)
	}

	e := &Estimator{
		geocoder:    geocoder,
		cache:       cache,
		settings:    settings,
		country:     strings.ToLower(opts.Country),
		pattern:     re,
		cacheTTL:    opts.CacheTTL,
		negativeTTL: opts.NegativeTTL,
		lookupTTL:   opts.LookupTimeout,
		metrics:     m,
		logger:      logger,
	}
	if e.cacheTTL <= 0 {
		e.cacheTTL = DefaultCacheTTL
	}
	if e.negativeTTL <= 0 {
		e.negativeTTL = DefaultNegativeTTL
	}
	if e.lookupTTL <= 0 {
		e.lookupTTL = DefaultLookupTimeout
	}
	if e.country == "" {
		e.country = "in"
	}
	return e, nil
}

// NormalizePostalCode strips surrounding and inner whitespace.
func NormalizePostalCode(code string) string {
	return strings.Join(strings.Fields(code), "")
}

// ValidPostalCode reports whether code matches the configured pattern after normalisation.
func (e *Estimator) ValidPostalCode(code string) bool {
	return e.pattern.MatchString(NormalizePostalCode(code))
}

// Estimate prices delivery of an order with the given subtotal to postalCode.
func (e *Estimator) Estimate(ctx context.Context, postalCode string, subtotal decimal.Decimal) (*Estimate, error) {
	code := NormalizePostalCode(postalCode)
	if !e.pattern.MatchString(code) {
		return nil, ErrInvalidPostalCode
	}

	settings, err := e.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery settings: %w", err)
	}

	originLat, originLng, err := e.origin(ctx, settings)
	if err != nil {
		return nil, err
	}

	coords, err := e.Geocode(ctx, code)
	if err != nil {
		return nil, err
	}

	distance := decimal.NewFromFloat(HaversineKM(originLat, originLng, coords.Lat, coords.Lng)).Round(1)
	if settings.MaxDeliveryKM.IsPositive() && distance.GreaterThan(settings.MaxDeliveryKM) {
		return nil, fmt.Errorf("%w: %s km exceeds %s km", ErrOutOfDeliveryRange, distance, settings.MaxDeliveryKM)
	}

	charge, free, toFree := Price(distance, subtotal, settings.PerKMCharge, settings.FreeDeliveryThreshold)

	return &Estimate{
		PostalCode:   code,
		Lat:          coords.Lat,
		Lng:          coords.Lng,
		DistanceKM:   distance,
		Charge:       charge,
		FreeDelivery: free,
		AmountToFree: toFree,
	}, nil
}

// Price applies the per-kilometre tariff. Delivery is free once the
// subtotal reaches a positive threshold.
func Price(distanceKM, subtotal, perKM, freeThreshold decimal.Decimal) (charge decimal.Decimal, free bool, amountToFree decimal.Decimal) {
	amountToFree = decimal.Zero
	if freeThreshold.IsPositive() {
		if subtotal.GreaterThanOrEqual(freeThreshold) {
			return decimal.Zero, true, decimal.Zero
		}
		amountToFree = freeThreshold.Sub(subtotal)
	}

	// decimal.Round rounds half away from zero, i.e. half up for charges.
	charge = perKM.Mul(distanceKM).Round(2)
	if charge.IsNegative() {
		charge = decimal.Zero
	}
	return charge, false, amountToFree
}

func (e *Estimator) origin(ctx context.Context, s *domain.SiteSettings) (float64, float64, error) {
	if s.OriginLat != 0 || s.OriginLng != 0 {
		return s.OriginLat, s.OriginLng, nil
	}
	if s.OriginPostalCode == "" {
		return 0, 0, ErrOriginNotConfigured
	}
	coords, err := e.Geocode(ctx, NormalizePostalCode(s.OriginPostalCode))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to locate store origin: %w", err)
	}
	return coords.Lat, coords.Lng, nil
}

// Geocode resolves a normalised postal code through the cache, collapsing
// concurrent misses for the same code into one provider call.
func (e *Estimator) Geocode(ctx context.Context, code string) (Coordinates, error) {
	key := cacheKey(e.country, code)

	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("Geocode cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		e.metrics.GeocodeLookup(metrics.GeocodeHit)
		if cached.NotFound {
			return Coordinates{}, ErrPostalCodeNotFound
		}
		return cached, nil
	}
	e.metrics.GeocodeLookup(metrics.GeocodeMiss)

	ch := e.group.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.lookupTTL)
		defer cancel()

		coords, err := e.geocoder.Geocode(lookupCtx, code, e.country)
		if errors.Is(err, ErrPostalCodeNotFound) {
			e.store(lookupCtx, key, Coordinates{NotFound: true}, e.negativeTTL)
			return Coordinates{}, err
		}
		if err != nil {
			e.metrics.GeocodeLookup(metrics.GeocodeError)
			return Coordinates{}, err
		}
		e.store(lookupCtx, key, coords, e.cacheTTL)
		return coords, nil
	})

	select {
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Coordinates{}, res.Err
		}
		return res.Val.(Coordinates), nil
	}
}

func (e *Estimator) store(ctx context.Context, key string, coords Coordinates, ttl time.Duration) {
	if err := e.cache.Set(ctx, key, coords, ttl); err != nil {
		e.logger.Warn("Geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
}
