package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// Logging writes one request.complete line per request. Health probes log at
// debug so they stay out of production output.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := wrapRecorder(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       routePattern(r),
				"status":      rec.code(),
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case strings.HasPrefix(r.URL.Path, "/health/"):
				logg.Debug(ctx, "request.complete")
			case rec.code() >= http.StatusInternalServerError:
				logg.Warn(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}
