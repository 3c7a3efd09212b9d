package transport

import (
	"io"
	"net/http"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC of the raw webhook body
const SignatureHeader = "X-Gateway-Signature"

type WebhookHandler struct {
	webhooks service.PaymentWebhookService
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks service.PaymentWebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/webhook", h.Handle)
}

// Handle must see the exact bytes the gateway signed, so the body is read
// raw rather than decoded.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, middleware.MaxBodyBytes))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.webhooks.Handle(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
		respondError(w, h.logger, err, "failed to process webhook")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
