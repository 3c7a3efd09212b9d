package domain

import (
	"time"

	"github.com/google/uuid"
)

// Banner is a promotional slide on the storefront home page
type Banner struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Subtitle  string     `json:"subtitle" db:"subtitle"`
	ImageURL  string     `json:"image_url" db:"image_url"`
	LinkURL   string     `json:"link_url" db:"link_url"`
	SortOrder int        `json:"sort_order" db:"sort_order"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	StartsAt  *time.Time `json:"starts_at,omitempty" db:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// LiveAt reports whether the banner should be shown at t.
func (b *Banner) LiveAt(t time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && b.StartsAt.After(t) {
		return false
	}
	if b.EndsAt != nil && !b.EndsAt.After(t) {
		return false
	}
	return true
}

// ValidWindow reports whether the schedule is well formed.
func (b *Banner) ValidWindow() bool {
	return b.StartsAt == nil || b.EndsAt == nil || b.EndsAt.After(*b.StartsAt)
}
