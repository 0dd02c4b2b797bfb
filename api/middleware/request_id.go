package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	// Cloud Run forwards "TRACE_ID/SPAN_ID;o=OPTIONS".
	cloudTraceHeader   = "X-Cloud-Trace-Context"
	maxRequestIDLength = 128
)

// RequestID echoes a sane caller-supplied X-Request-Id or mints one, and tags
// the request context with it and with the Cloud trace id when present.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := logg.WithRequestID(r.Context(), id)
			if trace := cloudTraceID(r.Header.Get(cloudTraceHeader)); trace != "" {
				ctx = logg.WithField(ctx, "trace_id", trace)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validRequestID keeps ids that are safe to echo into headers and logs.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

func cloudTraceID(header string) string {
	trace, _, _ := strings.Cut(header, "/")
	trace = strings.TrimSpace(trace)
	if len(trace) != 32 {
		return ""
	}
	for _, c := range trace {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return ""
		}
	}
	return trace
}
