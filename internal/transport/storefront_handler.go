package transport

import (
	"net/http"
	"strings"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorefrontHandler serves the anonymous read endpoints of the shop
// plus visit tracking
type StorefrontHandler struct {
	banners  service.BannerService
	settings service.SettingsService
	delivery service.DeliveryEstimator
	activity service.ActivityService
	logger   *zap.Logger
}

func NewStorefrontHandler(banners service.BannerService, settings service.SettingsService, estimator service.DeliveryEstimator, activity service.ActivityService, logger *zap.Logger) *StorefrontHandler {
	return &StorefrontHandler{banners: banners, settings: settings, delivery: estimator, activity: activity, logger: logger}
}

// RegisterRoutes mounts the read endpoints. visitLimit throttles visit
// recording, which is the only anonymous write.
func (h *StorefrontHandler) RegisterRoutes(r chi.Router, optionalAuth, visitLimit func(http.Handler) http.Handler) {
	r.Get("/banners", h.ListBanners)
	r.Get("/settings", h.PublicSettings)
	r.Get("/delivery/estimate", h.EstimateDelivery)

	r.Group(func(r chi.Router) {
		r.Use(optionalAuth, visitLimit)
		r.Post("/activity/visit", h.RecordVisit)
	})
}

func (h *StorefrontHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.banners.ListLive(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to list banners")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banners)
}

func (h *StorefrontHandler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Current(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to load settings")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, settings.Public())
}

func (h *StorefrontHandler) EstimateDelivery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	postalCode := strings.TrimSpace(q.Get("postal_code"))
	if postalCode == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "postal_code is required")
		return
	}
	subtotal := decimal.Zero
	if raw := q.Get("subtotal"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid subtotal")
			return
		}
		subtotal = parsed
	}

	estimate, err := h.delivery.Estimate(r.Context(), postalCode, subtotal)
	if err != nil {
		respondError(w, h.logger, err, "failed to estimate delivery")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, estimate)
}

func (h *StorefrontHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	var req service.VisitInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	req.UserAgent = r.UserAgent()
	if req.SessionID == "" {
		req.SessionID = r.Header.Get("X-Session-ID")
	}

	if err := h.activity.RecordVisit(r.Context(), optionalUser(r), req); err != nil {
		respondError(w, h.logger, err, "failed to record visit")
		return
	}
	noContent(w)
}
