package transport

import (
	"net/http"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReorderBannersRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// BannerHandler is the admin side of home page banners
type BannerHandler struct {
	banners service.BannerService
	audit   auditor
	logger  *zap.Logger
}

func NewBannerHandler(banners service.BannerService, activity service.ActivityService, logger *zap.Logger) *BannerHandler {
	return &BannerHandler{banners: banners, audit: auditor{activity: activity}, logger: logger}
}

func (h *BannerHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/banners", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/order", h.Reorder)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *BannerHandler) List(w http.ResponseWriter, r *http.Request) {
	banners, err := h.banners.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to list banners")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banners)
}

func (h *BannerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.BannerInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	banner, err := h.banners.Create(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err, "failed to create banner")
		return
	}
	h.audit.record(r, "banner.create", map[string]any{"banner_id": banner.ID, "title": banner.Title})
	middleware.RespondWithJSON(w, http.StatusCreated, banner)
}

func (h *BannerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.BannerInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	banner, err := h.banners.Update(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update banner")
		return
	}
	h.audit.record(r, "banner.update", map[string]any{"banner_id": id})
	middleware.RespondWithJSON(w, http.StatusOK, banner)
}

func (h *BannerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.banners.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete banner")
		return
	}
	h.audit.record(r, "banner.delete", map[string]any{"banner_id": id})
	noContent(w)
}

func (h *BannerHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderBannersRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	banners, err := h.banners.Reorder(r.Context(), req.IDs)
	if err != nil {
		respondError(w, h.logger, err, "failed to reorder banners")
		return
	}
	h.audit.record(r, "banner.reorder", map[string]any{"count": len(req.IDs)})
	middleware.RespondWithJSON(w, http.StatusOK, banners)
}
