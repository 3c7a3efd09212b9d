package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidBannerWindow = errors.New("banner must end after it starts")
	ErrInvalidBannerOrder  = errors.New("invalid banner order")
)

type BannerInput struct {
	Title     string     `json:"title" validate:"required,max=120"`
	Subtitle  string     `json:"subtitle" validate:"max=240"`
	ImageURL  string     `json:"image_url" validate:"required,url"`
	LinkURL   string     `json:"link_url" validate:"omitempty,max=500"`
	SortOrder int        `json:"sort_order" validate:"min=0"`
	IsActive  bool       `json:"is_active"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
}

// BannerService manages home page promotions
type BannerService interface {
	ListLive(ctx context.Context) ([]*domain.Banner, error)
	List(ctx context.Context) ([]*domain.Banner, error)
	Create(ctx context.Context, in BannerInput) (*domain.Banner, error)
	Update(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, ids []uuid.UUID) ([]*domain.Banner, error)
}

type bannerService struct {
	banners repository.BannerRepository
	now     func() time.Time
}

func NewBannerService(banners repository.BannerRepository) BannerService {
	return &bannerService{banners: banners, now: time.Now}
}

func (s *bannerService) ListLive(ctx context.Context) ([]*domain.Banner, error) {
	banners, err := s.banners.ListLive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	return banners, nil
}

func (s *bannerService) List(ctx context.Context) ([]*domain.Banner, error) {
	banners, err := s.banners.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	return banners, nil
}

func (s *bannerService) Create(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	now := s.now()
	banner := &domain.Banner{ID: uuid.New(), CreatedAt: now}
	if err := s.apply(banner, in, now); err != nil {
		return nil, err
	}
	if err := s.banners.Create(ctx, banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *bannerService) Update(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error) {
	banner, err := s.banners.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(banner, in, s.now()); err != nil {
		return nil, err
	}
	if err := s.banners.Update(ctx, banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *bannerService) apply(banner *domain.Banner, in BannerInput, now time.Time) error {
	banner.Title = strings.TrimSpace(in.Title)
	banner.Subtitle = strings.TrimSpace(in.Subtitle)
	banner.ImageURL = strings.TrimSpace(in.ImageURL)
	banner.LinkURL = strings.TrimSpace(in.LinkURL)
	banner.SortOrder = in.SortOrder
	banner.IsActive = in.IsActive
	banner.StartsAt = in.StartsAt
	banner.EndsAt = in.EndsAt
	banner.UpdatedAt = now
	if !banner.ValidWindow() {
		return ErrInvalidBannerWindow
	}
	return nil
}

func (s *bannerService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.banners.Delete(ctx, id)
}

// Reorder assigns sort_order 0..n-1 following ids.
func (s *bannerService) Reorder(ctx context.Context, ids []uuid.UUID) ([]*domain.Banner, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate banner %s", ErrInvalidBannerOrder, id)
		}
		seen[id] = struct{}{}
	}
	if err := s.banners.Reorder(ctx, ids); err != nil {
		return nil, err
	}
	return s.List(ctx)
}
