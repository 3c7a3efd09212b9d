package middleware

import (
	"net/http"

	"produce-market/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin restricts a route group to the admin role.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole answers 403 unless the authenticated role is one of roles.
// It must run after AuthMiddleware.
func RequireRole(roles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	permitted := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		permitted[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := GetUserRole(r.Context())
			if _, ok := permitted[role]; ok && role != "" {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("Forbidden by role",
				zap.String("role", role),
				zap.String("path", r.URL.Path),
				zap.Strings("permitted", roles),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
