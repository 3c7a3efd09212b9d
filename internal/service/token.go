package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims carried by access tokens.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access tokens and persists opaque refresh tokens.
type tokenIssuer struct {
	secret     []byte
	refresh    repository.RefreshTokenRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (t *tokenIssuer) access(user *domain.User) (string, error) {
	issued := t.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(t.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *tokenIssuer) keyFunc(token *jwt.Token) (any, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("%w: signing method %v", ErrInvalidToken, token.Header["alg"])
	}
	return t.secret, nil
}

func (t *tokenIssuer) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, t.keyFunc)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !token.Valid:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// issueRefresh stores a new refresh token for user and returns its raw value.
func (t *tokenIssuer) issueRefresh(ctx context.Context, userID uuid.UUID) (string, error) {
	created := t.now()
	record := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: created.Add(t.refreshTTL),
		CreatedAt: created,
	}
	if err := t.refresh.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return record.Token, nil
}

// redeem resolves a refresh token to its owner. Unknown and revoked tokens
// are reported as ErrInvalidToken.
func (t *tokenIssuer) redeem(ctx context.Context, raw string) (uuid.UUID, error) {
	record, err := t.refresh.FindByToken(ctx, raw)
	switch {
	case errors.Is(err, repository.ErrRefreshTokenNotFound), errors.Is(err, repository.ErrRefreshTokenRevoked):
		return uuid.Nil, ErrInvalidToken
	case err != nil:
		return uuid.Nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !t.now().Before(record.ExpiresAt) {
		return uuid.Nil, ErrTokenExpired
	}
	return record.UserID, nil
}
