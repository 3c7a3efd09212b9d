package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address is an entry in a user's address book
type Address struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Label         string    `json:"label" db:"label"`
	RecipientName string    `json:"recipient_name" db:"recipient_name"`
	Phone         string    `json:"phone" db:"phone"`
	Line1         string    `json:"line1" db:"line1"`
	Line2         string    `json:"line2" db:"line2"`
	City          string    `json:"city" db:"city"`
	State         string    `json:"state" db:"state"`
	PostalCode    string    `json:"postal_code" db:"postal_code"`
	Landmark      string    `json:"landmark" db:"landmark"`
	IsDefault     bool      `json:"is_default" db:"is_default"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
