package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"produce-market/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this slug already exists")
	ErrVariantNotFound      = errors.New("product variant not found")
	ErrVariantAlreadyExists = errors.New("product variant with this sku already exists")
	ErrInsufficientStock    = errors.New("insufficient stock")
)

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	Query         string
	FeaturedOnly  bool
	InStockOnly   bool
	ActiveOnly    bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     SortOrder
}

// ProductRepository defines the interface for product and variant data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
	HasOrders(ctx context.Context, id uuid.UUID) (bool, error)

	CreateVariant(ctx context.Context, variant *domain.ProductVariant) error
	UpdateVariant(ctx context.Context, variant *domain.ProductVariant) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error)
	ListVariants(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]*domain.ProductVariant, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, slug, description, category_id, subcategory_id, unit, price, mrp, stock,
	image_url, is_active, is_featured, is_available, preorder_enabled, preorder_requires_payment,
	preorder_advance, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.CategoryID,
		&p.SubcategoryID,
		&p.Unit,
		&p.Price,
		&p.MRP,
		&p.Stock,
		&p.ImageURL,
		&p.IsActive,
		&p.IsFeatured,
		&p.IsAvailable,
		&p.PreorderEnabled,
		&p.PreorderRequiresPayment,
		&p.PreorderAdvance,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, category_id, subcategory_id, unit, price, mrp, stock,
			image_url, is_active, is_featured, is_available, preorder_enabled, preorder_requires_payment,
			preorder_advance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.CategoryID,
		product.SubcategoryID,
		product.Unit,
		product.Price,
		product.MRP,
		product.Stock,
		product.ImageURL,
		product.IsActive,
		product.IsFeatured,
		product.IsAvailable,
		product.PreorderEnabled,
		product.PreorderRequiresPayment,
		product.PreorderAdvance,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, category_id = $5, subcategory_id = $6, unit = $7,
		    price = $8, mrp = $9, stock = $10, image_url = $11, is_active = $12, is_featured = $13,
		    is_available = $14, preorder_enabled = $15, preorder_requires_payment = $16,
		    preorder_advance = $17, updated_at = $18
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.CategoryID,
		product.SubcategoryID,
		product.Unit,
		product.Price,
		product.MRP,
		product.Stock,
		product.ImageURL,
		product.IsActive,
		product.IsFeatured,
		product.IsAvailable,
		product.PreorderEnabled,
		product.PreorderRequiresPayment,
		product.PreorderAdvance,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return requireAffected(result, ErrProductNotFound)
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return requireAffected(result, ErrProductNotFound)
}

// Deactivate hides a product that can no longer be hard-deleted
func (r *productRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET is_active = FALSE, is_featured = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}

	return requireAffected(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a product by its URL slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// List retrieves products with filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"stock":      true,
	}

	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.SubcategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("subcategory_id = $%d", argIndex))
		args = append(args, *filter.SubcategoryID)
		argIndex++
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+q+"%")
		argIndex++
	}
	if filter.FeaturedOnly {
		conditions = append(conditions, "is_featured = TRUE")
	}
	if filter.InStockOnly {
		conditions = append(conditions, "stock > 0")
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, filter.PageSize, offset(filter.Page, filter.PageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

func (r *productRepository) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET is_featured = $2 WHERE id = $1`, id, featured)
	if err != nil {
		return fmt.Errorf("failed to set featured flag: %w", err)
	}
	return requireAffected(result, ErrProductNotFound)
}

// AdjustStock adds delta to the stock and returns the new level. A delta
// that would take stock below zero is rejected without writing.
func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	query := `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock
	`

	var stock int
	err := r.db.QueryRowContext(ctx, query, id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return 0, err
	}
	return 0, ErrInsufficientStock
}

// HasOrders reports whether any order line references the product
func (r *productRepository) HasOrders(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product orders: %w", err)
	}
	return exists, nil
}

const variantColumns = `id, product_id, name, sku, price, mrp, stock, is_active, sort_order, created_at`

func scanVariant(row interface{ Scan(...any) error }) (*domain.ProductVariant, error) {
	v := &domain.ProductVariant{}
	err := row.Scan(
		&v.ID,
		&v.ProductID,
		&v.Name,
		&v.SKU,
		&v.Price,
		&v.MRP,
		&v.Stock,
		&v.IsActive,
		&v.SortOrder,
		&v.CreatedAt,
	)
	return v, err
}

func (r *productRepository) CreateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, name, sku, price, mrp, stock, is_active, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		variant.ID,
		variant.ProductID,
		variant.Name,
		variant.SKU,
		variant.Price,
		variant.MRP,
		variant.Stock,
		variant.IsActive,
		variant.SortOrder,
		variant.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrVariantAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create variant: %w", err)
	}

	return nil
}

func (r *productRepository) UpdateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	query := `
		UPDATE product_variants
		SET name = $2, sku = $3, price = $4, mrp = $5, stock = $6, is_active = $7, sort_order = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		variant.ID,
		variant.Name,
		variant.SKU,
		variant.Price,
		variant.MRP,
		variant.Stock,
		variant.IsActive,
		variant.SortOrder,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrVariantAlreadyExists
		}
		return fmt.Errorf("failed to update variant: %w", err)
	}

	return requireAffected(result, ErrVariantNotFound)
}

func (r *productRepository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	return requireAffected(result, ErrVariantNotFound)
}

func (r *productRepository) FindVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`

	variant, err := scanVariant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to find variant by ID: %w", err)
	}

	return variant, nil
}

func (r *productRepository) ListVariants(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]*domain.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE product_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	variants := []*domain.ProductVariant{}
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, variant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}
