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
	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost        = 10
	MinPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// UserService covers accounts and session tokens.
type UserService interface {
	Register(ctx context.Context, email, password, fullName, phone string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, phone string) (*domain.User, error)
	CreateAdmin(ctx context.Context, email, password, fullName string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	tokens *tokenIssuer
}

type UserServiceOption func(*userService)

// WithTokenExpiry overrides the access and refresh token lifetimes.
// Non-positive values keep the defaults.
func WithTokenExpiry(access, refresh time.Duration) UserServiceOption {
	return func(s *userService) {
		if access > 0 {
			s.tokens.accessTTL = access
		}
		if refresh > 0 {
			s.tokens.refreshTTL = refresh
		}
	}
}

func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	jwtSecret string,
	opts ...UserServiceOption,
) UserService {
	s := &userService{
		users: userRepo,
		tokens: &tokenIssuer{
			secret:     []byte(jwtSecret),
			refresh:    refreshTokenRepo,
			accessTTL:  AccessTokenExpiration,
			refreshTTL: RefreshTokenExpiration,
			now:        time.Now,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, email, password, fullName, phone string) (*domain.User, error) {
	return s.create(ctx, email, password, fullName, phone, domain.RoleCustomer)
}

// CreateAdmin creates an admin account. An existing account with the same
// email is promoted and keeps its password.
func (s *userService) CreateAdmin(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	existing, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return s.create(ctx, email, password, fullName, "", domain.RoleAdmin)
	case err != nil:
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}

	if err := s.users.SetRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("promote user: %w", err)
	}
	existing.Role = domain.RoleAdmin
	return existing, nil
}

func (s *userService) create(ctx context.Context, email, password, fullName, phone, role string) (*domain.User, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	email = normalizeEmail(email)

	switch _, err := s.users.FindByEmail(ctx, email); {
	case err == nil:
		return nil, repository.ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created := s.tokens.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(fullName),
		Phone:        strings.TrimSpace(phone),
		Role:         role,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the password and issues a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	access, err := s.tokens.access(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.issueRefresh(ctx, user.ID)
	if err != nil {
		return "", "", nil, err
	}
	return access, refresh, user, nil
}

// Logout revokes the refresh token. Unknown tokens are not an error.
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.refresh.Revoke(ctx, refreshToken)
	if err == nil || errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil
	}
	return fmt.Errorf("revoke refresh token: %w", err)
}

func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.redeem(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	access, err := s.tokens.access(user)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	return s.tokens.parse(tokenString)
}

func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, err
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, phone string) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FullName = strings.TrimSpace(fullName)
	user.Phone = strings.TrimSpace(phone)
	user.UpdatedAt = s.tokens.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}
