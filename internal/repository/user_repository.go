package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Phone is nullable; callers always see a string.
const selectUser = `SELECT id, email, password_hash, full_name, COALESCE(phone, ''), role, created_at, updated_at FROM users`

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return ErrUserAlreadyExists
	case err != nil:
		return fmt.Errorf("insert user %s: %w", u.Email, err)
	}
	return nil
}

// Update writes the editable profile fields only.
func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = $2, phone = NULLIF($3, ''), updated_at = $4 WHERE id = $1`,
		u.ID, u.FullName, u.Phone, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return requireAffected(res, ErrUserNotFound)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getUser(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *userRepository) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("load user %v: %w", arg, err)
	}
	return &u, nil
}

func (r *userRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role of %s: %w", id, err)
	}
	return requireAffected(res, ErrUserNotFound)
}
