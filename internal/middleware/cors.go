package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Session-ID"}
	// Exports are downloaded with the filename from Content-Disposition.
	corsExposed = []string{"Content-Disposition", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
)

// CORSMiddleware admits the configured storefront and admin origins with
// credentials. Development accepts any origin.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   corsMethods,
		AllowedHeaders:   corsHeaders,
		ExposedHeaders:   corsExposed,
		AllowCredentials: true,
		MaxAge:           600,
	}
	if isDevelopment {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	} else {
		opts.AllowedOrigins = allowedOrigins
	}
	return cors.Handler(opts)
}

// DefaultMiddlewareStack is applied ahead of logging and recovery.
func DefaultMiddlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Compress(5, "application/json", "text/csv", "text/html"),
	}
}
