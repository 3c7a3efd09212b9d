package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"produce-market/internal/delivery"
	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/google/uuid"
)

var ErrInvalidPostalCode = delivery.ErrInvalidPostalCode

// PostalCodeValidator checks a postal code against the configured format
type PostalCodeValidator interface {
	ValidPostalCode(code string) bool
}

type AddressInput struct {
	Label         string `json:"label" validate:"max=50"`
	RecipientName string `json:"recipient_name" validate:"required,max=120"`
	Phone         string `json:"phone" validate:"required,min=7,max=20"`
	Line1         string `json:"line1" validate:"required,max=200"`
	Line2         string `json:"line2" validate:"max=200"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"required,max=100"`
	PostalCode    string `json:"postal_code" validate:"required,max=12"`
	Landmark      string `json:"landmark" validate:"max=200"`
	IsDefault     bool   `json:"is_default"`
}

type AddressService interface {
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	Create(ctx context.Context, userID uuid.UUID, in AddressInput) (*domain.Address, error)
	Update(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*domain.Address, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

type addressService struct {
	repo      repository.AddressRepository
	validator PostalCodeValidator
	now       func() time.Time
}

func NewAddressService(repo repository.AddressRepository, validator PostalCodeValidator) AddressService {
	return &addressService{repo: repo, validator: validator, now: time.Now}
}

func (s *addressService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	addresses, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	if addresses == nil {
		addresses = []*domain.Address{}
	}
	return addresses, nil
}

func (s *addressService) apply(a *domain.Address, in AddressInput) error {
	code := delivery.NormalizePostalCode(in.PostalCode)
	if !s.validator.ValidPostalCode(code) {
		return ErrInvalidPostalCode
	}
	a.Label = strings.TrimSpace(in.Label)
	a.RecipientName = strings.TrimSpace(in.RecipientName)
	a.Phone = strings.TrimSpace(in.Phone)
	a.Line1 = strings.TrimSpace(in.Line1)
	a.Line2 = strings.TrimSpace(in.Line2)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.PostalCode = code
	a.Landmark = strings.TrimSpace(in.Landmark)
	return nil
}

func (s *addressService) Create(ctx context.Context, userID uuid.UUID, in AddressInput) (*domain.Address, error) {
	now := s.now()
	address := &domain.Address{
		ID:        uuid.New(),
		UserID:    userID,
		IsDefault: in.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(address, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return address, nil
}

func (s *addressService) Update(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*domain.Address, error) {
	address, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(address, in); err != nil {
		return nil, err
	}
	address.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, err
	}
	if in.IsDefault && !address.IsDefault {
		if err := s.repo.SetDefault(ctx, userID, id); err != nil {
			return nil, err
		}
		address.IsDefault = true
	}
	return address, nil
}

func (s *addressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}

func (s *addressService) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.SetDefault(ctx, userID, id)
}
