package transport

import (
	"net/http"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" validate:"gte=1,lte=999"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=999"`
}

type CartHandler struct {
	cart   service.CartService
	logger *zap.Logger
}

func NewCartHandler(cart service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{cart: cart, logger: logger}
}

// RegisterRoutes expects r to already require authentication.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
	})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	cart, err := h.cart.GetCart(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err, "failed to load cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	cart, err := h.cart.AddItem(r.Context(), userID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondError(w, h.logger, err, "failed to add item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	cart, err := h.cart.UpdateQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		respondError(w, h.logger, err, "failed to update item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	cart, err := h.cart.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		respondError(w, h.logger, err, "failed to remove item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.cart.Clear(r.Context(), userID); err != nil {
		respondError(w, h.logger, err, "failed to clear cart")
		return
	}
	noContent(w)
}
