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
	ErrCategoryNotFound         = errors.New("category not found")
	ErrCategoryAlreadyExists    = errors.New("category with this name already exists")
	ErrCategoryInUse            = errors.New("category still has products")
	ErrSubcategoryNotFound      = errors.New("subcategory not found")
	ErrSubcategoryAlreadyExists = errors.New("subcategory with this slug already exists in category")
)

// CategoryRepository defines the interface for category and subcategory data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)

	CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error
	UpdateSubcategory(ctx context.Context, sub *domain.Subcategory) error
	DeleteSubcategory(ctx context.Context, id uuid.UUID) error
	FindSubcategoryByID(ctx context.Context, id uuid.UUID) (*domain.Subcategory, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*domain.Category, error) {
	c := &domain.Category{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.ImageURL,
		&c.SortOrder,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, image_url, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.ImageURL,
		category.SortOrder,
		category.IsActive,
		category.CreatedAt,
		category.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// Update rewrites the editable fields of a category
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, image_url = $5, sort_order = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.ImageURL,
		category.SortOrder,
		category.IsActive,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	return requireAffected(result, ErrCategoryNotFound)
}

// Delete removes a category. Categories referenced by products cannot be removed.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var products int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&products); err != nil {
		return fmt.Errorf("failed to count category products: %w", err)
	}
	if products > 0 {
		return ErrCategoryInUse
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return requireAffected(result, ErrCategoryNotFound)
}

// List retrieves categories ordered for display, each with its subcategories
func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	byID := map[uuid.UUID]*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		category.Subcategories = []*domain.Subcategory{}
		categories = append(categories, category)
		byID[category.ID] = category
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	subs, err := r.listSubcategories(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if parent, ok := byID[sub.CategoryID]; ok {
			parent.Subcategories = append(parent.Subcategories, sub)
		}
	}

	return categories, nil
}

func (r *categoryRepository) listSubcategories(ctx context.Context, activeOnly bool) ([]*domain.Subcategory, error) {
	query := `SELECT id, category_id, name, slug, sort_order, is_active, created_at FROM subcategories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	subs := []*domain.Subcategory{}
	for rows.Next() {
		sub := &domain.Subcategory{}
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.Slug, &sub.SortOrder, &sub.IsActive, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		subs = append(subs, sub)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategories: %w", err)
	}

	return subs, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindBySlug retrieves a category by its URL slug
func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}

	return category, nil
}

func (r *categoryRepository) CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	query := `
		INSERT INTO subcategories (id, category_id, name, slug, sort_order, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query, sub.ID, sub.CategoryID, sub.Name, sub.Slug, sub.SortOrder, sub.IsActive, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubcategoryAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create subcategory: %w", err)
	}

	return nil
}

func (r *categoryRepository) UpdateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	query := `
		UPDATE subcategories
		SET name = $2, slug = $3, sort_order = $4, is_active = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, sub.ID, sub.Name, sub.Slug, sub.SortOrder, sub.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubcategoryAlreadyExists
		}
		return fmt.Errorf("failed to update subcategory: %w", err)
	}

	return requireAffected(result, ErrSubcategoryNotFound)
}

// DeleteSubcategory removes a subcategory; its products fall back to the parent category.
func (r *categoryRepository) DeleteSubcategory(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}

	return requireAffected(result, ErrSubcategoryNotFound)
}

func (r *categoryRepository) FindSubcategoryByID(ctx context.Context, id uuid.UUID) (*domain.Subcategory, error) {
	query := `SELECT id, category_id, name, slug, sort_order, is_active, created_at FROM subcategories WHERE id = $1`

	sub := &domain.Subcategory{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.Slug, &sub.SortOrder, &sub.IsActive, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubcategoryNotFound
		}
		return nil, fmt.Errorf("failed to find subcategory by ID: %w", err)
	}

	return sub, nil
}
