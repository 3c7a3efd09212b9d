package transport

import (
	"net/http"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AnalyticsHandler serves the admin dashboard, stock alerts, customer
// segments and the activity log
type AnalyticsHandler struct {
	analytics service.AnalyticsService
	customers service.CustomerService
	activity  service.ActivityService
	audit     auditor
	logger    *zap.Logger
	now       func() time.Time
}

func NewAnalyticsHandler(analytics service.AnalyticsService, customers service.CustomerService, activity service.ActivityService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		customers: customers,
		activity:  activity,
		audit:     auditor{activity: activity},
		logger:    logger,
		now:       time.Now,
	}
}

func (h *AnalyticsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/analytics/dashboard", h.Dashboard)
	r.Get("/analytics/low-stock", h.LowStock)
	r.Get("/customers", h.ListCustomers)
	r.Get("/customers/segments", h.Segments)
	r.Get("/customers/export", h.ExportCustomers)
	r.Get("/activity", h.ListActivity)
	r.Get("/activity/visits", h.VisitStats)
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	var fromAt, toAt time.Time
	if from != nil {
		fromAt = *from
	}
	if to != nil {
		toAt = *to
	}

	dashboard, err := h.analytics.Dashboard(r.Context(), fromAt, toAt)
	if err != nil {
		respondError(w, h.logger, err, "failed to build dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, dashboard)
}

func (h *AnalyticsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.analytics.LowStock(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to load low stock report")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, alerts)
}

func customerFilter(r *http.Request) (domain.CustomerFilter, error) {
	pageNum, pageSize := page(r)
	filter := domain.CustomerFilter{Search: r.URL.Query().Get("q"), Page: pageNum, PageSize: pageSize}
	if raw := r.URL.Query().Get("segment"); raw != "" {
		segment := domain.Segment(raw)
		if !segment.IsValid() {
			return filter, errBadFilter
		}
		filter.Segment = &segment
	}
	return filter, nil
}

func (h *AnalyticsHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter, err := customerFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown segment")
		return
	}
	customers, err := h.customers.ListCustomers(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err, "failed to list customers")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, customers)
}

func (h *AnalyticsHandler) Segments(w http.ResponseWriter, r *http.Request) {
	summary, err := h.customers.SegmentSummary(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to summarise segments")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *AnalyticsHandler) ExportCustomers(w http.ResponseWriter, r *http.Request) {
	filter, err := customerFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown segment")
		return
	}
	csvDownload(w, "customers", h.now())
	if err := h.customers.ExportCustomers(r.Context(), filter, w); err != nil {
		h.logger.Error("Customer export failed", zap.Error(err))
		return
	}
	h.audit.record(r, "customer.export", nil)
}

func (h *AnalyticsHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	var kind *domain.ActivityKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k := domain.ActivityKind(raw)
		if k != domain.ActivityPageVisit && k != domain.ActivityAdminAction {
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown activity kind")
			return
		}
		kind = &k
	}
	pageNum, pageSize := page(r)
	entries, err := h.activity.ListActivity(r.Context(), kind, pageNum, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "failed to list activity")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *AnalyticsHandler) VisitStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.activity.VisitStats(r.Context(), queryInt(r, "days", service.DefaultVisitDays))
	if err != nil {
		respondError(w, h.logger, err, "failed to load visit stats")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stats)
}
