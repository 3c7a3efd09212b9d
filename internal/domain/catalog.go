package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	Name                    string          `json:"name" db:"name"`
	Slug                    string          `json:"slug" db:"slug"`
	Description             string          `json:"description" db:"description"`
	CategoryID              uuid.UUID       `json:"category_id" db:"category_id"`
	SubcategoryID           *uuid.UUID      `json:"subcategory_id,omitempty" db:"subcategory_id"`
	Unit                    string          `json:"unit" db:"unit"`
	Price                   decimal.Decimal `json:"price" db:"price"`
	MRP                     decimal.Decimal `json:"mrp" db:"mrp"`
	Stock                   int             `json:"stock" db:"stock"`
	ImageURL                string          `json:"image_url" db:"image_url"`
	IsActive                bool            `json:"is_active" db:"is_active"`
	IsFeatured              bool            `json:"is_featured" db:"is_featured"`
	IsAvailable             bool            `json:"is_available" db:"is_available"`
	PreorderEnabled         bool            `json:"preorder_enabled" db:"preorder_enabled"`
	PreorderRequiresPayment bool            `json:"preorder_requires_payment" db:"preorder_requires_payment"`
	PreorderAdvance         decimal.Decimal `json:"preorder_advance" db:"preorder_advance"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at" db:"updated_at"`

	Variants []*ProductVariant `json:"variants,omitempty" db:"-"`
}

// Purchasable reports whether the product can be added to a cart.
func (p *Product) Purchasable() bool {
	return p.IsActive && p.IsAvailable
}

// DiscountPercent is the whole-number reduction from MRP, 0 when there is none.
func (p *Product) DiscountPercent() int64 {
	if p.MRP.LessThanOrEqual(p.Price) || p.MRP.IsZero() {
		return 0
	}
	return p.MRP.Sub(p.Price).Div(p.MRP).Mul(decimal.NewFromInt(100)).Floor().IntPart()
}

// ProductVariant is a purchasable pack size of a product
type ProductVariant struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	SKU       string          `json:"sku" db:"sku"`
	Price     decimal.Decimal `json:"price" db:"price"`
	MRP       decimal.Decimal `json:"mrp" db:"mrp"`
	Stock     int             `json:"stock" db:"stock"`
	IsActive  bool            `json:"is_active" db:"is_active"`
	SortOrder int             `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	Subcategories []*Subcategory `json:"subcategories,omitempty" db:"-"`
}

// Subcategory groups products inside a category
type Subcategory struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CategoryID uuid.UUID `json:"category_id" db:"category_id"`
	Name       string    `json:"name" db:"name"`
	Slug       string    `json:"slug" db:"slug"`
	SortOrder  int       `json:"sort_order" db:"sort_order"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// LinePrice resolves the unit price and MRP for a product, preferring the variant.
func LinePrice(p *Product, v *ProductVariant) (price, mrp decimal.Decimal) {
	if v != nil {
		return v.Price, v.MRP
	}
	return p.Price, p.MRP
}

// LineStock resolves the stock available for a product or its variant.
func LineStock(p *Product, v *ProductVariant) int {
	if v != nil {
		return v.Stock
	}
	return p.Stock
}
