package transport

import (
	"errors"
	"net/http"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
	Reason string             `json:"reason" validate:"max=500"`
}

// OrderHandler serves checkout, customer order history and the admin
// order desk
type OrderHandler struct {
	orders service.OrderService
	stream http.Handler
	audit  auditor
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderHandler wires the handler. stream serves the admin SSE feed and
// may be nil when realtime is disabled.
func NewOrderHandler(orders service.OrderService, stream http.Handler, activity service.ActivityService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, stream: stream, audit: auditor{activity: activity}, logger: logger, now: time.Now}
}

// RegisterRoutes expects r to already require authentication. checkoutLimit
// throttles order placement and payment calls.
func (h *OrderHandler) RegisterRoutes(r chi.Router, checkoutLimit func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListMine)
		r.Get("/{id}", h.GetMine)
		r.Post("/{id}/cancel", h.CancelMine)

		r.Group(func(r chi.Router) {
			r.Use(checkoutLimit)
			r.Post("/", h.PlaceOrder)
			r.Post("/{id}/verify-payment", h.VerifyPayment)
			r.Post("/{id}/retry-payment", h.RetryPayment)
		})
	})
}

func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/export", h.Export)
		if h.stream != nil {
			r.Get("/stream", h.stream.ServeHTTP)
		}
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.PlaceOrderInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	checkout, err := h.orders.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to place order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, checkout)
}

func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.VerifyPaymentInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.orders.VerifyPayment(r.Context(), userID, orderID, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to verify payment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	checkout, err := h.orders.RetryPayment(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err, "failed to retry payment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, checkout)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	pageNum, pageSize := page(r)
	orders, err := h.orders.ListMyOrders(r.Context(), userID, pageNum, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetMyOrder(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) CancelMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if r.ContentLength != 0 && !decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.orders.CancelMyOrder(r.Context(), userID, orderID, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "failed to cancel order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

var errBadFilter = errors.New("invalid filter")

func orderFilter(r *http.Request) (domain.OrderFilter, error) {
	q := r.URL.Query()
	pageNum, pageSize := page(r)
	filter := domain.OrderFilter{Search: q.Get("q"), Page: pageNum, PageSize: pageSize}

	if raw := q.Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !status.IsValid() {
			return filter, errBadFilter
		}
		filter.Status = &status
	}
	if raw := q.Get("payment_status"); raw != "" {
		status := domain.PaymentStatus(raw)
		if !status.IsValid() {
			return filter, errBadFilter
		}
		filter.PaymentStatus = &status
	}
	from, err := queryDate(r, "from")
	if err != nil {
		return filter, errBadFilter
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return filter, errBadFilter
	}
	if to != nil && len(q.Get("to")) == len(time.DateOnly) {
		// A bare date means the whole day.
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	filter.From, filter.To = from, to
	return filter, nil
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order filter")
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		respondError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	if !req.Status.IsValid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "failed to update order status")
		return
	}
	h.audit.record(r, "order.status", map[string]any{
		"order_id":     orderID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Export streams CSV. Errors after the header is written can only be logged.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order filter")
		return
	}
	csvDownload(w, "orders", h.now())
	if err := h.orders.ExportOrders(r.Context(), filter, w); err != nil {
		h.logger.Error("Order export failed", zap.Error(err))
		return
	}
	h.audit.record(r, "order.export", nil)
}
