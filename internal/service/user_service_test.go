package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type accountFixture struct {
	users   *mockUserRepository
	refresh *mockRefreshTokenRepository
	svc     UserService
}

func newAccountFixture(opts ...UserServiceOption) *accountFixture {
	f := &accountFixture{users: newMockUserRepository(), refresh: newMockRefreshTokenRepository()}
	f.svc = NewUserService(f.users, f.refresh, testSecret, opts...)
	return f
}

func credentialGens() []gopter.Gen {
	return []gopter.Gen{
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|in|org)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	}
}

func TestProperty_PasswordsStoredAsBcrypt(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stored hash verifies and never equals the password", prop.ForAll(
		func(email, password string) bool {
			f := newAccountFixture()
			user, err := f.svc.Register(context.Background(), email, password, "Test User", "")
			if err != nil {
				return false
			}
			stored := f.users.users[email]
			return stored != nil &&
				stored.PasswordHash != password &&
				bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil &&
				stored.PasswordHash == user.PasswordHash
		},
		credentialGens()...,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SessionLifecycle(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("login, refresh and logout agree on identity and revocation", prop.ForAll(
		func(email, password, role string) bool {
			ctx := context.Background()
			f := newAccountFixture()
			registered, err := f.svc.Register(ctx, email, password, "Test User", "")
			if err != nil {
				return false
			}
			registered.Role = role

			access, refresh, _, err := f.svc.Login(ctx, email, password)
			if err != nil {
				return false
			}
			claims, err := f.svc.ValidateToken(access)
			if err != nil || claims.UserID != registered.ID || claims.Role != role || claims.ExpiresAt == nil {
				return false
			}

			renewed, err := f.svc.RefreshToken(ctx, refresh)
			if err != nil {
				return false
			}
			if again, err := f.svc.ValidateToken(renewed); err != nil || again.UserID != registered.ID {
				return false
			}

			if err := f.svc.Logout(ctx, refresh); err != nil {
				return false
			}
			_, err = f.svc.RefreshToken(ctx, refresh)
			_, lookupErr := f.refresh.FindByToken(ctx, refresh)
			return errors.Is(err, ErrInvalidToken) && errors.Is(lookupErr, repository.ErrRefreshTokenRevoked)
		},
		append(credentialGens(), gen.OneConstOf(domain.RoleCustomer, domain.RoleAdmin))...,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"normalises email", "  Asha@Example.COM ", "password123", nil},
		{"duplicate after normalising", "ASHA@example.com", "password456", repository.ErrUserAlreadyExists},
		{"short password", "b@example.com", "short", ErrWeakPassword},
	}

	f := newAccountFixture()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.svc.Register(context.Background(), tt.email, tt.password, " Asha Rao ", "9876543210")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "asha@example.com", user.Email)
			assert.Equal(t, "Asha Rao", user.FullName)
			assert.Equal(t, domain.RoleCustomer, user.Role)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@b.com", "password123", "A", "")
	require.NoError(t, err)

	for _, creds := range [][2]string{{"a@b.com", "password124"}, {"missing@b.com", "password123"}} {
		_, _, _, err = f.svc.Login(ctx, creds[0], creds[1])
		assert.ErrorIs(t, err, ErrInvalidCredentials, creds[0])
	}
	assert.Empty(t, f.refresh.tokens)
}

func TestLogoutUnknownTokenIsNoop(t *testing.T) {
	assert.NoError(t, newAccountFixture().svc.Logout(context.Background(), "never-issued"))
}

func TestCreateAdmin(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	customer, err := f.svc.Register(ctx, "ops@store.com", "password123", "Ops", "")
	require.NoError(t, err)

	promoted, err := f.svc.CreateAdmin(ctx, "OPS@store.com", "ignored-pass", "Ops")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, promoted.ID)
	assert.True(t, f.users.users["ops@store.com"].IsAdmin())

	fresh, err := f.svc.CreateAdmin(ctx, "new@store.com", "password123", "New Admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, fresh.Role)
}

func TestUpdateProfile(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	user, err := f.svc.Register(ctx, "a@b.com", "password123", "A", "")
	require.NoError(t, err)

	updated, err := f.svc.UpdateProfile(ctx, user.ID, " Anita B ", " 9000000000 ")
	require.NoError(t, err)
	assert.Equal(t, "Anita B", updated.FullName)
	assert.Equal(t, "9000000000", updated.Phone)

	_, err = f.svc.UpdateProfile(ctx, uuid.New(), "x", "")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestValidateToken(t *testing.T) {
	sign := func(secret string, method jwt.SigningMethod, expires time.Time) string {
		claims := &Claims{
			UserID:           uuid.New(),
			Role:             domain.RoleCustomer,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
		}
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", sign(testSecret, jwt.SigningMethodHS256, later), nil},
		{"expired", sign(testSecret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute)), ErrTokenExpired},
		{"foreign secret", sign("other-secret", jwt.SigningMethodHS256, later), ErrInvalidToken},
		{"other hmac size", sign(testSecret, jwt.SigningMethodHS512, later), ErrInvalidToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
	}

	svc := newAccountFixture().svc
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, domain.RoleCustomer, claims.Role)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRefreshTokenExpires(t *testing.T) {
	f := newAccountFixture(WithTokenExpiry(time.Minute, time.Hour))
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.(*userService).tokens.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@b.com", "password123", "A", "")
	require.NoError(t, err)
	_, refresh, _, err := f.svc.Login(ctx, "a@b.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, clock.Add(time.Hour), f.refresh.tokens[refresh].ExpiresAt)

	clock = clock.Add(time.Hour)
	_, err = f.svc.RefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
