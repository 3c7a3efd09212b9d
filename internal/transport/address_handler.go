package transport

import (
	"net/http"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AddressHandler struct {
	addresses service.AddressService
	logger    *zap.Logger
}

func NewAddressHandler(addresses service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, logger: logger}
}

// RegisterRoutes expects r to already require authentication.
func (h *AddressHandler) RegisterRoutes(r chi.Router) {
	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Put("/{id}/default", h.SetDefault)
	})
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	addresses, err := h.addresses.List(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err, "failed to list addresses")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, addresses)
}

func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.AddressInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	address, err := h.addresses.Create(r.Context(), userID, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to create address")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, address)
}

func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.AddressInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	address, err := h.addresses.Update(r.Context(), userID, id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update address")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, address)
}

func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.addresses.Delete(r.Context(), userID, id); err != nil {
		respondError(w, h.logger, err, "failed to delete address")
		return
	}
	noContent(w)
}

func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.addresses.SetDefault(r.Context(), userID, id); err != nil {
		respondError(w, h.logger, err, "failed to set default address")
		return
	}
	noContent(w)
}
