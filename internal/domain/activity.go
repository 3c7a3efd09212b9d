package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	ActivityPageVisit   ActivityKind = "page_visit"
	ActivityAdminAction ActivityKind = "admin_action"
)

// ActivityLog records storefront visits and admin writes
type ActivityLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Kind      ActivityKind    `json:"kind" db:"kind"`
	Path      string          `json:"path" db:"path"`
	Action    string          `json:"action" db:"action"`
	SessionID string          `json:"session_id" db:"session_id"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	Metadata  json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DailyVisits is one bucket of the visit report
type DailyVisits struct {
	Day            time.Time `json:"day"`
	Visits         int       `json:"visits"`
	UniqueSessions int       `json:"unique_sessions"`
}
