package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"produce-market/internal/domain"
)

// ActivityRepository defines the interface for activity log data access
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	List(ctx context.Context, kind *domain.ActivityKind, page, pageSize int) ([]*domain.ActivityLog, int, error)
	DailyVisits(ctx context.Context, since time.Time) ([]*domain.DailyVisits, error)
	UniqueSessions(ctx context.Context, from, to time.Time) (int, error)
}

type activityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new instance of ActivityRepository
func NewActivityRepository(db *sql.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	metadata := []byte(entry.Metadata)
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	query := `
		INSERT INTO activity_logs (id, user_id, kind, path, action, session_id, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.UserID,
		entry.Kind,
		entry.Path,
		entry.Action,
		entry.SessionID,
		entry.UserAgent,
		string(metadata),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

func (r *activityRepository) List(ctx context.Context, kind *domain.ActivityKind, page, pageSize int) ([]*domain.ActivityLog, int, error) {
	whereClause := ""
	args := []interface{}{}
	if kind != nil {
		whereClause = "WHERE kind = $1"
		args = append(args, *kind)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_logs "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, kind, path, action, session_id, user_agent, metadata, created_at
		FROM activity_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []*domain.ActivityLog{}
	for rows.Next() {
		entry := &domain.ActivityLog{}
		var metadata []byte
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Kind,
			&entry.Path,
			&entry.Action,
			&entry.SessionID,
			&entry.UserAgent,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		entry.Metadata = metadata
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating activity: %w", err)
	}

	return entries, total, nil
}

// DailyVisits counts page visits and distinct sessions per day since the given time
func (r *activityRepository) DailyVisits(ctx context.Context, since time.Time) ([]*domain.DailyVisits, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, COUNT(*), COUNT(DISTINCT NULLIF(session_id, ''))
		FROM activity_logs
		WHERE kind = 'page_visit' AND created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visits: %w", err)
	}
	defer rows.Close()

	days := []*domain.DailyVisits{}
	for rows.Next() {
		d := &domain.DailyVisits{}
		if err := rows.Scan(&d.Day, &d.Visits, &d.UniqueSessions); err != nil {
			return nil, fmt.Errorf("failed to scan visits: %w", err)
		}
		days = append(days, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visits: %w", err)
	}

	return days, nil
}

func (r *activityRepository) UniqueSessions(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT NULLIF(session_id, ''))
		FROM activity_logs
		WHERE kind = 'page_visit' AND created_at >= $1 AND created_at < $2
	`

	var sessions int
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&sessions); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return sessions, nil
}
