package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/giftdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// counter is one fixed-window bucket a request is charged against.
type counter struct {
	scope  string
	limit  int
	fields map[string]any
}

// throttle charges the request against every counter in order. It writes the
// response and returns false as soon as one is exhausted or the store fails.
func throttle(w http.ResponseWriter, r *http.Request, limiter windowLimiter, logg *logger.Logger, window time.Duration, event string, counters ...counter) bool {
	ctx := r.Context()
	for _, c := range counters {
		if c.limit <= 0 || c.scope == "" {
			continue
		}
		allowed, hits, err := limiter.FixedWindowAllow(ctx, c.scope, int64(c.limit), window)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
			return false
		}
		if allowed {
			continue
		}
		if logg != nil {
			fields := map[string]any{"attempts": hits, "limit": c.limit, "window_seconds": int(window.Seconds())}
			for k, v := range c.fields {
				fields[k] = v
			}
			logg.Warn(logg.WithFields(ctx, fields), event)
		}
		if secs := int(window.Seconds()); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
		return false
	}
	return true
}

// clientIP prefers the first parseable X-Forwarded-For hop, which is the
// address the load balancer saw.
func clientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(hop)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
