package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInsufficientStock  = repository.ErrInsufficientStock
)

// CartService manages the per-user server-side cart
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cart     repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewCartService(cart repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartService{cart: cart, products: products, logger: nopLogger(logger), now: time.Now}
}

// resolveLine loads the product and optional variant behind a cart line.
func resolveLine(ctx context.Context, products repository.ProductRepository, productID uuid.UUID, variantID *uuid.UUID) (*domain.Product, *domain.ProductVariant, error) {
	product, err := products.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if variantID == nil {
		return product, nil, nil
	}
	variant, err := products.FindVariantByID(ctx, *variantID)
	if err != nil {
		return nil, nil, err
	}
	if variant.ProductID != product.ID {
		return nil, nil, repository.ErrVariantNotFound
	}
	return product, variant, nil
}

func purchasable(p *domain.Product, v *domain.ProductVariant) bool {
	return p.Purchasable() && (v == nil || v.IsActive)
}

// GetCart prices all lines against current products. Lines whose product
// was removed from the catalogue are dropped.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	items, err := s.cart.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	lines := make([]*domain.CartLine, 0, len(items))
	for _, item := range items {
		product, variant, err := resolveLine(ctx, s.products, item.ProductID, item.VariantID)
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrVariantNotFound) {
			if rmErr := s.cart.Remove(ctx, userID, item.ID); rmErr != nil {
				s.logger.Warn("Failed to drop stale cart line", zap.String("item_id", item.ID.String()), zap.Error(rmErr))
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load cart product: %w", err)
		}
		lines = append(lines, domain.NewCartLine(item, product, variant))
	}

	return domain.PriceCart(lines), nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, variant, err := resolveLine(ctx, s.products, productID, variantID)
	if err != nil {
		return nil, err
	}
	if !purchasable(product, variant) {
		return nil, ErrProductUnavailable
	}

	existing, err := s.cart.FindLine(ctx, userID, productID, variantID)
	if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
		return nil, fmt.Errorf("failed to look up cart line: %w", err)
	}

	total := quantity
	if existing != nil {
		total += existing.Quantity
	}
	if total > domain.LineStock(product, variant) {
		return nil, fmt.Errorf("%w: only %d of %s left", ErrInsufficientStock, domain.LineStock(product, variant), product.Name)
	}

	now := s.now()
	if existing != nil {
		if err := s.cart.UpdateQuantity(ctx, userID, existing.ID, total, now); err != nil {
			return nil, err
		}
	} else {
		item := &domain.CartItem{
			ID:        uuid.New(),
			UserID:    userID,
			ProductID: productID,
			VariantID: variantID,
			Quantity:  quantity,
			AddedAt:   now,
			UpdatedAt: now,
		}
		if err := s.cart.Create(ctx, item); err != nil {
			return nil, err
		}
	}

	return s.GetCart(ctx, userID)
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	item, err := s.cart.FindItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	product, variant, err := resolveLine(ctx, s.products, item.ProductID, item.VariantID)
	if err != nil {
		return nil, err
	}
	if quantity > domain.LineStock(product, variant) {
		return nil, fmt.Errorf("%w: only %d of %s left", ErrInsufficientStock, domain.LineStock(product, variant), product.Name)
	}

	if err := s.cart.UpdateQuantity(ctx, userID, itemID, quantity, s.now()); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.Cart, error) {
	if err := s.cart.Remove(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cart.Clear(ctx, userID)
}
