package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type identityKey int

const (
	UserIDKey identityKey = iota
	UserRoleKey
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
	errTokenExpired  = errors.New("token expired")
	errInvalidToken  = errors.New("invalid token")
	errInvalidClaims = errors.New("invalid token claims")
)

type identity struct {
	userID uuid.UUID
	role   string
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's id and role in the request context.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, jwtSecret)
			if err != nil {
				logger.Debug("Authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the caller's identity when a valid token is sent
// and otherwise lets the request through anonymously.
func OptionalAuth(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, jwtSecret)
			if err != nil {
				if !errors.Is(err, errMissingHeader) {
					logger.Debug("Ignoring unusable token", zap.String("path", r.URL.Path), zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// accessClaims mirrors the claims the account service signs. UserID stays
// a string so a malformed id is reported as bad claims, not a bad token.
type accessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.ContainsRune(token, ' ') {
		return "", errHeaderFormat
	}
	return token, nil
}

func authenticate(r *http.Request, jwtSecret string) (identity, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return identity{}, err
	}

	var claims accessClaims
	_, err = jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return []byte(jwtSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return identity{}, errTokenExpired
	case err != nil:
		return identity{}, errInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || claims.Role == "" {
		return identity{}, errInvalidClaims
	}
	return identity{userID: userID, role: claims.Role}, nil
}

func withIdentity(ctx context.Context, id identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.userID)
	return context.WithValue(ctx, UserRoleKey, id.role)
}

// WithUser returns ctx carrying the given identity. Handlers tests use it
// to skip token minting.
func WithUser(ctx context.Context, userID uuid.UUID, role string) context.Context {
	return withIdentity(ctx, identity{userID: userID, role: role})
}

// GetUserID returns the authenticated caller, if any.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func GetUserRole(ctx context.Context) (string, bool) {
	if role, ok := ctx.Value(UserRoleKey).(string); ok && role != "" {
		return role, true
	}
	return "", false
}
