package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// fixedWindow increments the counter and starts its window in one round
// trip. Returns {count, pttl in ms}.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {count, redis.call('PTTL', KEYS[1])}
`)

type windowState struct {
	count int64
	reset time.Duration
}

func hit(r *http.Request, client *redis.Client, key string, window time.Duration) (windowState, error) {
	res, err := fixedWindow.Run(r.Context(), client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return windowState{}, err
	}
	state := windowState{count: res[0], reset: time.Duration(res[1]) * time.Millisecond}
	if state.reset <= 0 {
		state.reset = window
	}
	return state, nil
}

// RateLimitMiddleware is a fixed-window limiter keyed by user id when the
// request is authenticated and by client IP otherwise. Redis failures let
// the request through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := int64(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := rateLimitSubject(r)
			key := config.KeyPrefix + ":" + subject

			state, err := hit(r, redisClient, key, config.Window)
			if err != nil {
				logger.Error("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := max(limit-state.count, 0)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(state.reset).Unix(), 10))

			if state.count <= limit {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("Rate limit exceeded",
				zap.String("subject", subject),
				zap.Int64("count", state.count),
				zap.Int64("limit", limit),
			)
			h.Set("Retry-After", strconv.Itoa(max(int(state.reset.Seconds()), 1)))
			RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
}

func rateLimitSubject(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return "user:" + userID.String()
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
