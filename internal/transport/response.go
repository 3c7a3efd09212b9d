package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"produce-market/internal/delivery"
	"produce-market/internal/domain"
	"produce-market/internal/middleware"
	"produce-market/internal/payment"
	"produce-market/internal/repository"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errorStatus maps domain and service sentinels to HTTP statuses. Order
// matters only where one sentinel aliases another.
var errorStatus = []struct {
	err    error
	status int
}{
	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrProductNotFound, http.StatusNotFound},
	{repository.ErrVariantNotFound, http.StatusNotFound},
	{repository.ErrCategoryNotFound, http.StatusNotFound},
	{repository.ErrSubcategoryNotFound, http.StatusNotFound},
	{repository.ErrCartItemNotFound, http.StatusNotFound},
	{repository.ErrAddressNotFound, http.StatusNotFound},
	{repository.ErrOrderNotFound, http.StatusNotFound},
	{repository.ErrPreOrderNotFound, http.StatusNotFound},
	{repository.ErrBannerNotFound, http.StatusNotFound},

	{repository.ErrUserAlreadyExists, http.StatusConflict},
	{repository.ErrProductAlreadyExists, http.StatusConflict},
	{repository.ErrVariantAlreadyExists, http.StatusConflict},
	{repository.ErrCategoryAlreadyExists, http.StatusConflict},
	{repository.ErrSubcategoryAlreadyExists, http.StatusConflict},
	{repository.ErrCategoryInUse, http.StatusConflict},
	{repository.ErrOrderStatusChanged, http.StatusConflict},
	{repository.ErrPreOrderStatusChanged, http.StatusConflict},
	{service.ErrInsufficientStock, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{service.ErrOrderNotCancellable, http.StatusConflict},

	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrTokenExpired, http.StatusUnauthorized},
	{repository.ErrRefreshTokenNotFound, http.StatusUnauthorized},
	{repository.ErrRefreshTokenRevoked, http.StatusUnauthorized},
	{service.ErrInvalidWebhookSignature, http.StatusUnauthorized},

	{service.ErrPreOrdersDisabled, http.StatusForbidden},

	{service.ErrPaymentVerification, http.StatusPaymentRequired},

	{delivery.ErrInvalidPostalCode, http.StatusUnprocessableEntity},
	{delivery.ErrPostalCodeNotFound, http.StatusUnprocessableEntity},
	{delivery.ErrOutOfDeliveryRange, http.StatusUnprocessableEntity},
	{service.ErrEmptyCart, http.StatusUnprocessableEntity},
	{service.ErrBelowMinimumOrder, http.StatusUnprocessableEntity},
	{service.ErrProductUnavailable, http.StatusUnprocessableEntity},
	{service.ErrPreOrderNotAllowed, http.StatusUnprocessableEntity},
	{service.ErrOrderNotPayable, http.StatusUnprocessableEntity},
	{service.ErrNoPaymentDue, http.StatusUnprocessableEntity},

	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{service.ErrWeakPassword, http.StatusBadRequest},
	{service.ErrInvalidProduct, http.StatusBadRequest},
	{service.ErrInvalidCategory, http.StatusBadRequest},
	{service.ErrInvalidBannerWindow, http.StatusBadRequest},
	{service.ErrInvalidBannerOrder, http.StatusBadRequest},
	{service.ErrInvalidSettings, http.StatusBadRequest},
	{service.ErrPathRequired, http.StatusBadRequest},
	{service.ErrInvalidDateRange, http.StatusBadRequest},
	{service.ErrUnknownImageKind, http.StatusBadRequest},
	{service.ErrUnsupportedImageType, http.StatusBadRequest},
	{payment.ErrInvalidWebhookPayload, http.StatusBadRequest},

	{payment.ErrPaymentUnavailable, http.StatusServiceUnavailable},
	{delivery.ErrGeocoderUnavailable, http.StatusServiceUnavailable},
	{delivery.ErrOriginNotConfigured, http.StatusServiceUnavailable},
	{payment.ErrGatewayUnavailable, http.StatusBadGateway},
	{payment.ErrGatewayRequestFailed, http.StatusBadGateway},
}

func statusFor(err error) (int, bool) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// respondError writes the error envelope for err. Known sentinels keep
// their message; anything else is logged and reported as fallback.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status, known := statusFor(err)
	if !known {
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, status, fallback)
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Warn(fallback, zap.Error(err))
	} else {
		logger.Debug(fallback, zap.Error(err))
	}
	middleware.RespondWithError(w, status, rootMessage(err))
}

// rootMessage trims an error chain to its sentinel and any detail
// appended after it, dropping the "failed to ..." context added above.
func rootMessage(err error) string {
	msg := err.Error()
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			if idx := strings.Index(msg, m.err.Error()); idx >= 0 {
				return msg[idx:]
			}
			return m.err.Error()
		}
	}
	return msg
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func optionalUser(r *http.Request) *uuid.UUID {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return nil
	}
	return &userID
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryDate accepts YYYY-MM-DD or RFC 3339.
func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func page(r *http.Request) (int, int) {
	return queryInt(r, "page", 1), queryInt(r, "page_size", service.DefaultPageSize)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// csvDownload prepares headers for an attachment named like orders-20260102.csv
func csvDownload(w http.ResponseWriter, prefix string, now time.Time) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+prefix+"-"+now.Format("20060102")+`.csv"`)
	w.WriteHeader(http.StatusOK)
}
