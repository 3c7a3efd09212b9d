package transport

import (
	"net/http"

	"produce-market/internal/domain"
	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SettingsHandler exposes the full settings row to admins
type SettingsHandler struct {
	settings service.SettingsService
	audit    auditor
	logger   *zap.Logger
}

func NewSettingsHandler(settings service.SettingsService, activity service.ActivityService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, audit: auditor{activity: activity}, logger: logger}
}

func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Put("/settings", h.Update)
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Current(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to load settings")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.SiteSettings
	if !decode(w, r, h.logger, &req) {
		return
	}
	settings, err := h.settings.Update(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update settings")
		return
	}
	h.audit.record(r, "settings.update", map[string]any{
		"preorders_enabled": settings.PreordersEnabled,
		"min_order_amount":  settings.MinOrderAmount.String(),
	})
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}
