package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "in", cfg.Geocoder.Country)
	assert.Equal(t, 720*time.Hour, cfg.Geocoder.CacheTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 2, cfg.Email.Workers)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://shop.example, https://admin.example ,")
	t.Setenv("GEOCODER_RPS", "2.5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg := Load()

	assert.Equal(t, "9191", cfg.Server.Port)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.Server.AllowedOrigins)
	assert.InDelta(t, 2.5, cfg.Geocoder.RequestsPerSecond, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Server.Env = "production"
	cfg.JWT.Secret = ""
	require.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s3cret"
	require.NoError(t, cfg.Validate())

	cfg.Email.Workers = 0
	require.Error(t, cfg.Validate())
}
