package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

func TestRequestLogger_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/send", nil))

	reqID := rr.Header().Get("X-Request-ID")
	_, err := uuid.Parse(reqID)
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"request started"`)
	assert.Contains(t, logs, `"msg":"request completed"`)
	assert.Contains(t, logs, `"status":418`)
	assert.Contains(t, logs, `"path":"/send"`)
	assert.Contains(t, logs, reqID)
}

func TestRequestLogger_KeepsCallerRequestID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(logging.NewWithWriter(&buf, "info", "json"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "olx-abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "olx-abc-123", rr.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"request_id":"olx-abc-123"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestRequestLogger_NilLoggerFallsBack(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	})
}
