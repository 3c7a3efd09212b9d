package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrPathRequired = errors.New("path is required")

const (
	DefaultVisitDays = 30
	MaxVisitDays     = 365
	maxUserAgent     = 512
)

type VisitInput struct {
	Path      string `json:"path" validate:"required,max=500"`
	SessionID string `json:"session_id" validate:"max=100"`
	UserAgent string `json:"-"`
}

// AdminAction describes one admin write for the audit trail
type AdminAction struct {
	UserID   uuid.UUID
	Action   string
	Path     string
	Metadata map[string]any
}

// ActivityService records storefront visits and the admin audit trail
type ActivityService interface {
	RecordVisit(ctx context.Context, userID *uuid.UUID, in VisitInput) error
	RecordAdminAction(ctx context.Context, action AdminAction)
	ListActivity(ctx context.Context, kind *domain.ActivityKind, page, pageSize int) (*Page[*domain.ActivityLog], error)
	VisitStats(ctx context.Context, days int) ([]*domain.DailyVisits, error)
}

type activityService struct {
	activity repository.ActivityRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewActivityService(activity repository.ActivityRepository, logger *zap.Logger) ActivityService {
	return &activityService{activity: activity, logger: nopLogger(logger), now: time.Now}
}

func (s *activityService) RecordVisit(ctx context.Context, userID *uuid.UUID, in VisitInput) error {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return ErrPathRequired
	}
	userAgent := in.UserAgent
	if len(userAgent) > maxUserAgent {
		userAgent = userAgent[:maxUserAgent]
	}

	entry := &domain.ActivityLog{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      domain.ActivityPageVisit,
		Path:      path,
		SessionID: strings.TrimSpace(in.SessionID),
		UserAgent: userAgent,
		CreatedAt: s.now(),
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// RecordAdminAction writes the audit entry on a detached context. Failures
// are logged only.
func (s *activityService) RecordAdminAction(ctx context.Context, action AdminAction) {
	metadata := json.RawMessage("{}")
	if len(action.Metadata) > 0 {
		raw, err := json.Marshal(action.Metadata)
		if err != nil {
			s.logger.Warn("Failed to encode activity metadata", zap.String("action", action.Action), zap.Error(err))
		} else {
			metadata = raw
		}
	}

	userID := action.UserID
	entry := &domain.ActivityLog{
		ID:        uuid.New(),
		UserID:    &userID,
		Kind:      domain.ActivityAdminAction,
		Path:      action.Path,
		Action:    action.Action,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}

	writeCtx, cancel := detached(ctx)
	defer cancel()
	if err := s.activity.Create(writeCtx, entry); err != nil {
		s.logger.Warn("Failed to record admin action", zap.String("action", action.Action), zap.Error(err))
	}
}

func (s *activityService) ListActivity(ctx context.Context, kind *domain.ActivityKind, page, pageSize int) (*Page[*domain.ActivityLog], error) {
	page, pageSize = clampPage(page, pageSize)
	entries, total, err := s.activity.List(ctx, kind, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return newPage(entries, total, page, pageSize), nil
}

// VisitStats returns one bucket per day for the last days days, oldest first.
func (s *activityService) VisitStats(ctx context.Context, days int) ([]*domain.DailyVisits, error) {
	if days < 1 {
		days = DefaultVisitDays
	}
	if days > MaxVisitDays {
		days = MaxVisitDays
	}

	today := startOfDay(s.now())
	since := today.AddDate(0, 0, -(days - 1))
	rows, err := s.activity.DailyVisits(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit stats: %w", err)
	}

	byDay := make(map[string]*domain.DailyVisits, len(rows))
	for _, row := range rows {
		byDay[row.Day.UTC().Format(time.DateOnly)] = row
	}
	out := make([]*domain.DailyVisits, 0, days)
	for day := since; !day.After(today); day = day.AddDate(0, 0, 1) {
		if row, ok := byDay[day.Format(time.DateOnly)]; ok {
			out = append(out, &domain.DailyVisits{Day: day, Visits: row.Visits, UniqueSessions: row.UniqueSessions})
			continue
		}
		out = append(out, &domain.DailyVisits{Day: day})
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
