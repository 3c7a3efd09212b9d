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
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidCategory = errors.New("invalid category")
)

// ProductQuery is the storefront or admin listing request
type ProductQuery struct {
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	Query         string
	FeaturedOnly  bool
	InStockOnly   bool
	IncludeHidden bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

type ProductInput struct {
	Name                    string          `json:"name" validate:"required,min=2,max=200"`
	Slug                    string          `json:"slug" validate:"omitempty,max=220"`
	Description             string          `json:"description" validate:"max=5000"`
	CategoryID              uuid.UUID       `json:"category_id" validate:"required"`
	SubcategoryID           *uuid.UUID      `json:"subcategory_id"`
	Unit                    string          `json:"unit" validate:"required,max=30"`
	Price                   decimal.Decimal `json:"price"`
	MRP                     decimal.Decimal `json:"mrp"`
	Stock                   int             `json:"stock" validate:"gte=0"`
	ImageURL                string          `json:"image_url" validate:"omitempty,url"`
	IsActive                bool            `json:"is_active"`
	IsFeatured              bool            `json:"is_featured"`
	IsAvailable             bool            `json:"is_available"`
	PreorderEnabled         bool            `json:"preorder_enabled"`
	PreorderRequiresPayment bool            `json:"preorder_requires_payment"`
	PreorderAdvance         decimal.Decimal `json:"preorder_advance"`
}

type VariantInput struct {
	Name      string          `json:"name" validate:"required,max=100"`
	SKU       string          `json:"sku" validate:"required,max=64"`
	Price     decimal.Decimal `json:"price"`
	MRP       decimal.Decimal `json:"mrp"`
	Stock     int             `json:"stock" validate:"gte=0"`
	IsActive  bool            `json:"is_active"`
	SortOrder int             `json:"sort_order"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

type SubcategoryInput struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Slug      string `json:"slug" validate:"omitempty,max=120"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// CatalogService covers products, variants, categories and subcategories
type CatalogService interface {
	ListProducts(ctx context.Context, q ProductQuery) (*Page[*domain.Product], error)
	GetProduct(ctx context.Context, idOrSlug string, includeHidden bool) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (deactivated bool, err error)
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)

	ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.ProductVariant, error)
	AddVariant(ctx context.Context, productID uuid.UUID, in VariantInput) (*domain.ProductVariant, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, in VariantInput) (*domain.ProductVariant, error)
	DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error

	ListCategories(ctx context.Context, includeHidden bool) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CreateSubcategory(ctx context.Context, categoryID uuid.UUID, in SubcategoryInput) (*domain.Subcategory, error)
	UpdateSubcategory(ctx context.Context, id uuid.UUID, in SubcategoryInput) (*domain.Subcategory, error)
	DeleteSubcategory(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	now        func() time.Time
}

func NewCatalogService(products repository.ProductRepository, categories repository.CategoryRepository) CatalogService {
	return &catalogService{products: products, categories: categories, now: time.Now}
}

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (*Page[*domain.Product], error) {
	page, pageSize := clampPage(q.Page, q.PageSize)

	order := repository.SortOrderAsc
	if strings.EqualFold(q.SortOrder, "desc") {
		order = repository.SortOrderDesc
	}

	products, total, err := s.products.List(ctx, repository.ProductFilter{
		CategoryID:    q.CategoryID,
		SubcategoryID: q.SubcategoryID,
		Query:         strings.TrimSpace(q.Query),
		FeaturedOnly:  q.FeaturedOnly,
		InStockOnly:   q.InStockOnly,
		ActiveOnly:    !q.IncludeHidden,
		Page:          page,
		PageSize:      pageSize,
		SortBy:        q.SortBy,
		SortOrder:     order,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return newPage(products, total, page, pageSize), nil
}

func (s *catalogService) GetProduct(ctx context.Context, idOrSlug string, includeHidden bool) (*domain.Product, error) {
	var (
		product *domain.Product
		err     error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = s.products.FindByID(ctx, id)
	} else {
		product, err = s.products.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !includeHidden {
		return nil, repository.ErrProductNotFound
	}

	variants, err := s.products.ListVariants(ctx, product.ID, !includeHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	product.Variants = variants
	return product, nil
}

func validatePricing(price, mrp decimal.Decimal, stock int) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
	}
	if mrp.LessThan(price) {
		return fmt.Errorf("%w: mrp must be at least the price", ErrInvalidProduct)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

func (s *catalogService) applyProductInput(ctx context.Context, p *domain.Product, in ProductInput) error {
	if in.MRP.IsZero() {
		in.MRP = in.Price
	}
	if err := validatePricing(in.Price, in.MRP, in.Stock); err != nil {
		return err
	}
	if in.PreorderAdvance.IsNegative() {
		return fmt.Errorf("%w: preorder_advance must not be negative", ErrInvalidProduct)
	}

	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fmt.Errorf("%w: unknown category", ErrInvalidProduct)
		}
		return err
	}
	if in.SubcategoryID != nil {
		sub, err := s.categories.FindSubcategoryByID(ctx, *in.SubcategoryID)
		if err != nil {
			if errors.Is(err, repository.ErrSubcategoryNotFound) {
				return fmt.Errorf("%w: unknown subcategory", ErrInvalidProduct)
			}
			return err
		}
		if sub.CategoryID != in.CategoryID {
			return fmt.Errorf("%w: subcategory belongs to another category", ErrInvalidProduct)
		}
	}

	slug := domain.Slugify(in.Slug)
	if slug == "" {
		slug = domain.Slugify(in.Name)
	}
	if slug == "" {
		return fmt.Errorf("%w: name must contain letters or digits", ErrInvalidProduct)
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Slug = slug
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.SubcategoryID = in.SubcategoryID
	p.Unit = in.Unit
	p.Price = in.Price
	p.MRP = in.MRP
	p.Stock = in.Stock
	p.ImageURL = in.ImageURL
	p.IsActive = in.IsActive
	p.IsFeatured = in.IsFeatured
	p.IsAvailable = in.IsAvailable
	p.PreorderEnabled = in.PreorderEnabled
	p.PreorderRequiresPayment = in.PreorderRequiresPayment
	p.PreorderAdvance = in.PreorderAdvance
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	now := s.now()
	product := &domain.Product{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := s.applyProductInput(ctx, product, in); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProductInput(ctx, product, in); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct hides products that appear on past orders and removes the rest.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	ordered, err := s.products.HasOrders(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check product orders: %w", err)
	}
	if ordered {
		return true, s.products.Deactivate(ctx, id)
	}
	return false, s.products.Delete(ctx, id)
}

func (s *catalogService) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	return s.products.SetFeatured(ctx, id, featured)
}

func (s *catalogService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	return s.products.AdjustStock(ctx, id, delta)
}

func (s *catalogService) ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.ProductVariant, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.products.ListVariants(ctx, productID, false)
}

func applyVariantInput(v *domain.ProductVariant, in VariantInput) error {
	if in.MRP.IsZero() {
		in.MRP = in.Price
	}
	if err := validatePricing(in.Price, in.MRP, in.Stock); err != nil {
		return err
	}
	v.Name = strings.TrimSpace(in.Name)
	v.SKU = strings.TrimSpace(in.SKU)
	v.Price = in.Price
	v.MRP = in.MRP
	v.Stock = in.Stock
	v.IsActive = in.IsActive
	v.SortOrder = in.SortOrder
	return nil
}

func (s *catalogService) AddVariant(ctx context.Context, productID uuid.UUID, in VariantInput) (*domain.ProductVariant, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	variant := &domain.ProductVariant{ID: uuid.New(), ProductID: productID, CreatedAt: s.now()}
	if err := applyVariantInput(variant, in); err != nil {
		return nil, err
	}
	if err := s.products.CreateVariant(ctx, variant); err != nil {
		return nil, err
	}
	return variant, nil
}

func (s *catalogService) findVariant(ctx context.Context, productID, variantID uuid.UUID) (*domain.ProductVariant, error) {
	variant, err := s.products.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant.ProductID != productID {
		return nil, repository.ErrVariantNotFound
	}
	return variant, nil
}

func (s *catalogService) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, in VariantInput) (*domain.ProductVariant, error) {
	variant, err := s.findVariant(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if err := applyVariantInput(variant, in); err != nil {
		return nil, err
	}
	if err := s.products.UpdateVariant(ctx, variant); err != nil {
		return nil, err
	}
	return variant, nil
}

func (s *catalogService) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if _, err := s.findVariant(ctx, productID, variantID); err != nil {
		return err
	}
	return s.products.DeleteVariant(ctx, variantID)
}

func (s *catalogService) ListCategories(ctx context.Context, includeHidden bool) ([]*domain.Category, error) {
	categories, err := s.categories.List(ctx, !includeHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func slugFor(slug, name string) (string, error) {
	out := domain.Slugify(slug)
	if out == "" {
		out = domain.Slugify(name)
	}
	if out == "" {
		return "", fmt.Errorf("%w: name must contain letters or digits", ErrInvalidCategory)
	}
	return out, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		SortOrder:   in.SortOrder,
		IsActive:    in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}
	category.Name = strings.TrimSpace(in.Name)
	category.Slug = slug
	category.Description = in.Description
	category.ImageURL = in.ImageURL
	category.SortOrder = in.SortOrder
	category.IsActive = in.IsActive
	category.UpdatedAt = s.now()

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

func (s *catalogService) CreateSubcategory(ctx context.Context, categoryID uuid.UUID, in SubcategoryInput) (*domain.Subcategory, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return nil, err
	}
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}
	sub := &domain.Subcategory{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Name:       strings.TrimSpace(in.Name),
		Slug:       slug,
		SortOrder:  in.SortOrder,
		IsActive:   in.IsActive,
		CreatedAt:  s.now(),
	}
	if err := s.categories.CreateSubcategory(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *catalogService) UpdateSubcategory(ctx context.Context, id uuid.UUID, in SubcategoryInput) (*domain.Subcategory, error) {
	sub, err := s.categories.FindSubcategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return nil, err
	}
	sub.Name = strings.TrimSpace(in.Name)
	sub.Slug = slug
	sub.SortOrder = in.SortOrder
	sub.IsActive = in.IsActive

	if err := s.categories.UpdateSubcategory(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *catalogService) DeleteSubcategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.DeleteSubcategory(ctx, id)
}
