package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

func TestRequestIDEchoesCallerValue(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	handler := RequestID(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logg.Info(r.Context(), "handled")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "105445aa7843bc8bf206b12000100000", line["trace_id"])
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, supplied := range []string{"", "has space", "line\nbreak", strings.Repeat("a", maxRequestIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, supplied)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
		assert.NoError(t, err, "supplied %q", supplied)
	}
}

func TestCloudTraceIDRejectsMalformedHeaders(t *testing.T) {
	assert.Empty(t, cloudTraceID(""))
	assert.Empty(t, cloudTraceID("not-a-trace/1"))
	assert.Empty(t, cloudTraceID("105445AA7843BC8BF206B12000100000/1"))
	assert.Equal(t, "105445aa7843bc8bf206b12000100000", cloudTraceID("105445aa7843bc8bf206b12000100000"))
}
