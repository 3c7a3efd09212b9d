package transport

import (
	"net/http"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PresignRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=product banner category"`
	ContentType string `json:"content_type" validate:"required"`
}

type ImageHandler struct {
	images service.ImageService
	logger *zap.Logger
}

func NewImageHandler(images service.ImageService, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger}
}

func (h *ImageHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/images/presign", h.Presign)
}

func (h *ImageHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	ticket, err := h.images.PresignUpload(r.Context(), req.Kind, req.ContentType)
	if err != nil {
		respondError(w, h.logger, err, "failed to presign upload")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ticket)
}
