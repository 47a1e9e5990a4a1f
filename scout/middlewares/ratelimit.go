// scout/middlewares/ratelimit.go
package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"scout/scout/config"
	"scout/scout/services/ratelimit"
	"scout/scout/utils/logging"
	"scout/scout/utils/metrics"
)

// RateLimitMiddleware gates the research endpoint per authenticated user.
// Must sit inside AuthMiddleware so the user id is on the context.
func RateLimitMiddleware(limiter *ratelimit.Limiter, cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limitCfg := ratelimit.Config{
				MaxRequests: cfg.RateLimitMaxRequests,
				Window:      cfg.RateLimitWindow,
				KeyPrefix:   fmt.Sprintf("%s:user:%d", ratelimit.DefaultKeyPrefix, userID),
				MaxRetries:  cfg.RateLimitMaxRetries,
			}

			result := limiter.CheckLimit(r.Context(), limitCfg)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitCfg.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

			if !result.Allowed {
				metrics.RateLimitDenied.Inc()
				retryAfter := int64(time.Until(result.ResetTime).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error":       "rate limit exceeded",
					"retry_after": retryAfter,
				})
				return
			}

			// A write failure means unknown state; keep serving rather
			// than turning a degraded counter store into an outage.
			if err := limiter.RecordHit(r.Context(), limitCfg.Window, limitCfg.KeyPrefix); err != nil {
				logging.ErrorLogger.Error("rate limit hit not counted",
					zap.Int("user_id", userID), zap.Error(err))
			}

			next.ServeHTTP(w, r)
		})
	}
}
