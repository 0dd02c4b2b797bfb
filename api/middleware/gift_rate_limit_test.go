package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	pkgredis "github.com/angelmondragon/giftdesk-backend/pkg/redis"
)

func TestGiftRateLimitBlocksPerIP(t *testing.T) {
	srv := miniredis.RunT(t)
	store := pkgredis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	cfg := config.GiftRateLimitConfig{Window: time.Minute, IPLimit: 2}

	handler := GiftRateLimit(cfg, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/gifts/tok", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("1.1.1.1:1000"))
	assert.Equal(t, http.StatusOK, hit("1.1.1.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, hit("1.1.1.1:1002"))
	assert.Equal(t, http.StatusOK, hit("2.2.2.2:1000"), "other clients keep their own window")

	srv.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, hit("1.1.1.1:1003"))
}

func TestGiftRateLimitDisabledWithoutLimit(t *testing.T) {
	called := 0
	handler := GiftRateLimit(config.GiftRateLimitConfig{}, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))
	for i := 0; i < 5; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 5, called)
}
