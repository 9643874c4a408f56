package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/bryanwahyu/prodpulse/internal/application/analysis"
	appdiag "github.com/bryanwahyu/prodpulse/internal/application/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/application/ratelimit"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/offline"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/memory"
	"github.com/bryanwahyu/prodpulse/internal/infra/httpserver"
	"github.com/bryanwahyu/prodpulse/internal/middleware"
)

const sampleLog = "java.lang.NullPointerException at com.example.Service.run(Service.java:42)"

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newServer(t *testing.T, limit int, burst *middleware.BurstLimiter) (http.Handler, *memory.HistoryRepository) {
	t.Helper()
	store := memory.NewHistoryRepository()
	svc := &appanalysis.Service{
		Store:    store,
		Limiter:  ratelimit.New(store, limit, 24*time.Hour),
		Provider: appdiag.NewService(offline.New()),
		Clock:    &testClock{t: time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)},
		Limits:   appanalysis.DefaultLimits(),
		Strict:   true,
	}
	h := httpserver.NewRouter(httpserver.Options{
		Service: svc,
		Metrics: middleware.NewMetrics(prometheus.NewRegistry()),
		Burst:   burst,
		Checkers: map[string]middleware.HealthChecker{
			"database": middleware.PingChecker{Target: store},
		},
	})
	return h, store
}

func postAnalyze(h http.Handler, body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func logsBody(t *testing.T, logs string) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{"logs": logs})
	require.NoError(t, err)
	return string(b)
}

func TestAnalyzeEndpoint(t *testing.T) {
	h, _ := newServer(t, 10, nil)

	rec := postAnalyze(h, logsBody(t, sampleLog), "203.0.113.7")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, sampleLog, out["title"])
	assert.NotEmpty(t, out["content"])
	assert.NotEmpty(t, out["severity"])
	assert.Equal(t, "2026-10-16T08:30:00Z", out["timestamp"])
	assert.EqualValues(t, 1, out["analysisId"])
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	h, store := newServer(t, 10, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed json", body: "{", want: "Malformed request body"},
		{name: "missing logs", body: "{}", want: "Validation failed"},
		{name: "empty logs", body: logsBody(t, "   "), want: "Logs cannot be empty"},
		{name: "too short", body: logsBody(t, "boom"), want: "Logs are too short"},
		{name: "too many words", body: logsBody(t, strings.Repeat("err ", 201)), want: "Logs are too long (201 words)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAnalyze(h, tt.body, "203.0.113.8")
			require.Equal(t, http.StatusBadRequest, rec.Code)

			out := decode(t, rec)
			assert.Equal(t, "invalid_input", out["kind"])
			assert.Contains(t, out["message"], tt.want)
			assert.Equal(t, "/api/analyze", out["path"])
		})
	}

	n, err := store.CountSince(context.Background(), "203.0.113.8", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAnalyzeEndpointRateLimited(t *testing.T) {
	h, _ := newServer(t, 2, nil)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, postAnalyze(h, logsBody(t, sampleLog), "198.51.100.1").Code)
	}

	rec := postAnalyze(h, logsBody(t, sampleLog), "198.51.100.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "86400", rec.Header().Get("Retry-After"))

	out := decode(t, rec)
	assert.Equal(t, "rate_limited", out["kind"])
	assert.Equal(t, "Rate limit exceeded. Maximum 2 requests allowed per 24 hours.", out["message"])

	// other identities are unaffected
	assert.Equal(t, http.StatusOK, postAnalyze(h, logsBody(t, sampleLog), "198.51.100.2").Code)
}

func TestRateLimitStatusEndpoint(t *testing.T) {
	h, _ := newServer(t, 10, nil)
	require.Equal(t, http.StatusOK, postAnalyze(h, logsBody(t, sampleLog), "192.0.2.10").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/rate-limit-status", nil)
	req.Header.Set("X-Real-IP", "192.0.2.10")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.EqualValues(t, 9, out["remainingRequests"])
	assert.EqualValues(t, 10, out["limit"])
	assert.EqualValues(t, 24, out["windowHours"])
	assert.Equal(t, "192.0.2.10", out["ipAddress"])
}

func TestHistoryEndpoint(t *testing.T) {
	h, _ := newServer(t, 10, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, postAnalyze(h, logsBody(t, sampleLog), "192.0.2.20").Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil)
	req.Header.Set("X-Forwarded-For", "192.0.2.20, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.EqualValues(t, 2, out["count"])
	items, ok := out["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.EqualValues(t, 3, items[0].(map[string]any)["analysisId"])

	bad := httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBurstLimitedAnalyze(t *testing.T) {
	h, _ := newServer(t, 10, middleware.NewBurstLimiter(0.001, 1))

	require.Equal(t, http.StatusOK, postAnalyze(h, logsBody(t, sampleLog), "192.0.2.30").Code)

	rec := postAnalyze(h, logsBody(t, sampleLog), "192.0.2.30")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoints(t *testing.T) {
	h, _ := newServer(t, 10, nil)

	for _, path := range []string{"/api/health", "/readyz", "/healthz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	down := httpserver.NewRouter(httpserver.Options{
		Service:  &appanalysis.Service{},
		Checkers: map[string]middleware.HealthChecker{"database": middleware.PingChecker{Target: downPinger{}}},
	})
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DOWN", decode(t, rec)["status"])
}

func TestInfoAndMetricsEndpoints(t *testing.T) {
	h, _ := newServer(t, 10, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ProdPulse.AI API", decode(t, rec)["name"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prodpulse_http_requests_total")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": " 203.0.113.1 , 10.0.0.2"}, want: "203.0.113.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.2"}, want: "203.0.113.2"},
		{name: "remote addr", remote: "192.0.2.3:51234", want: "192.0.2.3"},
		{name: "remote without port", remote: "192.0.2.4", want: "192.0.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, httpserver.ClientIP(req))
		})
	}
}
