package domain

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Alphonso Mangoes":     "alphonso-mangoes",
		"  Leafy -- Greens! ":  "leafy-greens",
		"Tomato (Desi) 1kg":    "tomato-desi-1kg",
		"Exotic & Imported":    "exotic-imported",
		"already-a-slug":       "already-a-slug",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestProperty_SlugsAreURLSafe(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("slugs contain only lowercase alphanumerics and inner dashes", prop.ForAll(
		func(name string) bool {
			slug := Slugify(name)
			if slug == "" {
				return true
			}
			if slug[0] == '-' || slug[len(slug)-1] == '-' {
				return false
			}
			for _, r := range slug {
				if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDiscountPercent(t *testing.T) {
	p := &Product{Price: decimal.RequireFromString("75"), MRP: decimal.RequireFromString("100")}
	assert.Equal(t, int64(25), p.DiscountPercent())

	p.MRP = p.Price
	assert.Equal(t, int64(0), p.DiscountPercent())
}

func TestBannerLiveAt(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.True(t, (&Banner{IsActive: true}).LiveAt(now))
	assert.False(t, (&Banner{IsActive: false}).LiveAt(now))
	assert.True(t, (&Banner{IsActive: true, StartsAt: &before, EndsAt: &after}).LiveAt(now))
	assert.False(t, (&Banner{IsActive: true, StartsAt: &after}).LiveAt(now))
	assert.False(t, (&Banner{IsActive: true, EndsAt: &now}).LiveAt(now))

	assert.False(t, (&Banner{StartsAt: &after, EndsAt: &before}).ValidWindow())
}
