package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"produce-market/internal/config"

	"golang.org/x/time/rate"
)

// Geocoder resolves a postal code to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, postalCode, country string) (Coordinates, error)
}

// HTTPGeocoder queries a Nominatim-compatible search endpoint. Outbound
// calls are throttled by a token bucket; most public providers allow one
// request per second.
type HTTPGeocoder struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewHTTPGeocoder(cfg config.GeocoderConfig) *HTTPGeocoder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &HTTPGeocoder{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, postalCode, country string) (Coordinates, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Coordinates{}, fmt.Errorf("geocoder rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("postalcode", postalCode)
	params.Set("countrycodes", country)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to read geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: HTTP %d", ErrGeocoderUnavailable, resp.StatusCode)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return Coordinates{}, ErrPostalCodeNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}

	return Coordinates{Lat: lat, Lng: lng}, nil
}
