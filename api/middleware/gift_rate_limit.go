package middleware

import (
	"net/http"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// GiftRateLimit throttles the public gift-link routes per client IP so tokens
// cannot be enumerated.
func GiftRateLimit(cfg config.GiftRateLimitConfig, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || cfg.Window <= 0 || cfg.IPLimit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			byIP := counter{scope: "gift:ip:" + ip, limit: cfg.IPLimit, fields: map[string]any{"ip": ip}}
			if throttle(w, r, limiter, logg, cfg.Window, "gift.rate_limit.blocked", byIP) {
				next.ServeHTTP(w, r)
			}
		})
	}
}
