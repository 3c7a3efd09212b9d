package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a user's cart
type CartItem struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty" db:"variant_id"`
	Quantity  int        `json:"quantity" db:"quantity"`
	AddedAt   time.Time  `json:"added_at" db:"added_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with its current product snapshot.
type CartLine struct {
	Item      *CartItem       `json:"item"`
	Product   *Product        `json:"product"`
	Variant   *ProductVariant `json:"variant,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	MRP       decimal.Decimal `json:"mrp"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Cart is the priced view of all lines.
type Cart struct {
	Lines     []*CartLine     `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	MRPTotal  decimal.Decimal `json:"mrp_total"`
	Discount  decimal.Decimal `json:"discount"`
}

// NewCartLine prices an item against its product and optional variant.
func NewCartLine(item *CartItem, p *Product, v *ProductVariant) *CartLine {
	price, mrp := LinePrice(p, v)
	return &CartLine{
		Item:      item,
		Product:   p,
		Variant:   v,
		UnitPrice: price,
		MRP:       mrp,
		LineTotal: price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
}

// PriceCart totals lines: subtotal at selling price, discount against MRP.
func PriceCart(lines []*CartLine) *Cart {
	cart := &Cart{
		Lines:    lines,
		Subtotal: decimal.Zero,
		MRPTotal: decimal.Zero,
	}
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Item.Quantity))
		cart.ItemCount += line.Item.Quantity
		cart.Subtotal = cart.Subtotal.Add(line.UnitPrice.Mul(qty))
		cart.MRPTotal = cart.MRPTotal.Add(line.MRP.Mul(qty))
	}
	cart.Discount = cart.MRPTotal.Sub(cart.Subtotal)
	if cart.Discount.IsNegative() {
		cart.Discount = decimal.Zero
	}
	if cart.Lines == nil {
		cart.Lines = []*CartLine{}
	}
	return cart
}
