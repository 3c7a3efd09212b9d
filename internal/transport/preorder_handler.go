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

type UpdatePreOrderStatusRequest struct {
	Status domain.PreOrderStatus `json:"status" validate:"required"`
}

type PreOrderHandler struct {
	preorders service.PreOrderService
	audit     auditor
	logger    *zap.Logger
	now       func() time.Time
}

func NewPreOrderHandler(preorders service.PreOrderService, activity service.ActivityService, logger *zap.Logger) *PreOrderHandler {
	return &PreOrderHandler{preorders: preorders, audit: auditor{activity: activity}, logger: logger, now: time.Now}
}

// RegisterRoutes mounts the storefront endpoints. Guests may reserve, so
// creation runs under optional auth; listing requires a signed-in user.
func (h *PreOrderHandler) RegisterRoutes(r chi.Router, optionalAuth, requireAuth, writeLimit func(http.Handler) http.Handler) {
	r.Route("/preorders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth, writeLimit)
			r.Post("/", h.Create)
			r.Post("/{id}/verify-payment", h.VerifyPayment)
		})
		r.With(requireAuth).Get("/mine", h.ListMine)
	})
}

func (h *PreOrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/preorders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/export", h.Export)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

func (h *PreOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.PreOrderInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	checkout, err := h.preorders.CreatePreOrder(r.Context(), optionalUser(r), req)
	if err != nil {
		respondError(w, h.logger, err, "failed to create pre-order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, checkout)
}

func (h *PreOrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.VerifyPaymentInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	preorder, err := h.preorders.VerifyPreOrderPayment(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to verify payment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, preorder)
}

func (h *PreOrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	pageNum, pageSize := page(r)
	preorders, err := h.preorders.ListMyPreOrders(r.Context(), userID, pageNum, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "failed to list pre-orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, preorders)
}

func preOrderFilter(r *http.Request) (domain.PreOrderFilter, error) {
	pageNum, pageSize := page(r)
	filter := domain.PreOrderFilter{Page: pageNum, PageSize: pageSize}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.PreOrderStatus(raw)
		if !status.IsValid() {
			return filter, errBadFilter
		}
		filter.Status = &status
	}
	productID, err := queryUUID(r, "product_id")
	if err != nil {
		return filter, errBadFilter
	}
	filter.ProductID = productID
	return filter, nil
}

func (h *PreOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := preOrderFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid pre-order filter")
		return
	}
	preorders, err := h.preorders.ListPreOrders(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err, "failed to list pre-orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, preorders)
}

func (h *PreOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdatePreOrderStatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	if !req.Status.IsValid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown pre-order status")
		return
	}
	preorder, err := h.preorders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, h.logger, err, "failed to update pre-order status")
		return
	}
	h.audit.record(r, "preorder.status", map[string]any{"preorder_id": id, "status": preorder.Status})
	middleware.RespondWithJSON(w, http.StatusOK, preorder)
}

func (h *PreOrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := preOrderFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid pre-order filter")
		return
	}
	csvDownload(w, "preorders", h.now())
	if err := h.preorders.ExportPreOrders(r.Context(), filter, w); err != nil {
		h.logger.Error("Pre-order export failed", zap.Error(err))
		return
	}
	h.audit.record(r, "preorder.export", nil)
}
