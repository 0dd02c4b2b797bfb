package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/giftdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// credentialBodyLimit caps how much of a login or register body is buffered
// to find the email.
const credentialBodyLimit = 64 << 10

// AuthRateLimitPolicy limits one credential endpoint per client IP and per
// submitted email address.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{Name: name, Window: window, IPLimit: ipLimit, EmailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

// AuthRateLimit guards credential endpoints. Emails are hashed before they
// reach redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			counters := []counter{{
				scope:  "auth:" + policy.Name + ":ip:" + ip,
				limit:  policy.IPLimit,
				fields: map[string]any{"policy": policy.Name, "scope": "ip", "ip": ip},
			}}

			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, credentialBodyLimit))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if digest := emailDigest(body); digest != "" {
					counters = append(counters, counter{
						scope:  "auth:" + policy.Name + ":email:" + digest,
						limit:  policy.EmailLimit,
						fields: map[string]any{"policy": policy.Name, "scope": "email", "email_hash": digest},
					})
				}
			}

			if throttle(w, r, limiter, logg, policy.Window, "auth.rate_limit.blocked", counters...) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// emailDigest returns the sha256 of the normalized email field, or "" when the
// body carries none.
func emailDigest(body []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
