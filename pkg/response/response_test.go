package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorWithCode(t *testing.T) {
	rr := httptest.NewRecorder()

	ErrorWithCode(rr, http.StatusConflict, "CONCURRENCY_CONFLICT", "loan is busy", errors.New("lock held"))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "CONCURRENCY_CONFLICT", body.Code)
	assert.Equal(t, "loan is busy", body.Message)
	assert.Equal(t, "lock held", body.Error)
}

func TestJSON_SuccessFlag(t *testing.T) {
	rr := httptest.NewRecorder()
	Created(rr, map[string]int{"paid_days": 3})

	var body Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, body.Success)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/v1/dashboard", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/collections", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1:5002"))

	// separate bucket per client
	assert.Equal(t, http.StatusOK, request("10.0.0.2:5000"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		header   map[string]string
		remote   string
		expected string
	}{
		{name: "forwarded chain", header: map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, remote: "10.0.0.9:80", expected: "1.2.3.4"},
		{name: "real ip", header: map[string]string{"X-Real-IP": " 5.6.7.8 "}, remote: "10.0.0.9:80", expected: "5.6.7.8"},
		{name: "remote addr", remote: "9.9.9.9:1234", expected: "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, clientIP(req))
		})
	}
}
