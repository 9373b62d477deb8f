package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MallLedger/internal/interfaces/http/handlers"
	"github.com/turtacn/MallLedger/internal/interfaces/http/middleware"
	"github.com/turtacn/MallLedger/internal/testutil"
)

type stubScans struct{ calls int }

func (s *stubScans) Run(_ context.Context, names ...string) ([]*alerting.ScanReport, error) {
	s.calls++
	return []*alerting.ScanReport{}, nil
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeHTTPMetrics struct{ requests []recordedRequest }

func (f *fakeHTTPMetrics) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method, route, status})
}

func serveRouter(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "10.0.0.7:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	r := NewRouter(RouterConfig{HealthHandler: handlers.NewHealthHandler("test")})

	assert.Equal(t, http.StatusOK, serveRouter(r, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serveRouter(r, http.MethodGet, "/readyz").Code)
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	var r http.Handler
	require.NotPanics(t, func() { r = NewRouter(RouterConfig{}) })

	assert.Equal(t, http.StatusNotFound, serveRouter(r, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, serveRouter(r, http.MethodPost, "/api/v1/notifications/check-all").Code)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mall"}, nil)
	require.NoError(t, err)
	r := NewRouter(RouterConfig{MetricsCollector: collector, MetricsPath: "/internal/metrics"})

	assert.Equal(t, http.StatusOK, serveRouter(r, http.MethodGet, "/internal/metrics").Code)
	assert.Equal(t, http.StatusNotFound, serveRouter(r, http.MethodGet, "/metrics").Code)
}

func TestNewRouter_RecordsRoutePattern(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	scans := &stubScans{}
	r := NewRouter(RouterConfig{
		NotificationHandler: handlers.NewNotificationHandler(scans, nil, nil),
		HTTPMetrics:         metrics,
	})

	w := serveRouter(r, http.MethodPost, "/api/v1/notifications/check-contracts")
	require.Equal(t, http.StatusOK, w.Code)
	serveRouter(r, http.MethodGet, "/nope")

	require.Len(t, metrics.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodPost, "/api/v1/notifications/check-contracts", http.StatusOK}, metrics.requests[0])
	assert.Equal(t, "unmatched", metrics.requests[1].route)
}

func TestNewRouter_TriggerRoutesAreRateLimited(t *testing.T) {
	scans := &stubScans{}
	r := NewRouter(RouterConfig{
		NotificationHandler: handlers.NewNotificationHandler(scans, nil, nil),
		TriggerLimiter:      middleware.NewTokenBucketLimiter(0.001, 1),
	})

	assert.Equal(t, http.StatusOK, serveRouter(r, http.MethodPost, "/api/v1/notifications/check-all").Code)
	w := serveRouter(r, http.MethodPost, "/api/v1/notifications/check-payments")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1, scans.calls)
}

func TestNewRouter_QueriesAreNotRateLimited(t *testing.T) {
	r := NewRouter(RouterConfig{
		NotificationHandler: handlers.NewNotificationHandler(&stubScans{}, nil, nil),
		TriggerLimiter:      middleware.NewTokenBucketLimiter(0.001, 1),
	})

	// Invalid recipient parameters fail before the inbox is touched.
	for i := 0; i < 3; i++ {
		w := serveRouter(r, http.MethodGet, "/api/v1/notifications/unread/count")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestNewRouter_RequestIDAndLogging(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := NewRouter(RouterConfig{
		HealthHandler: handlers.NewHealthHandler("test"),
		Logger:        logger,
		Logging:       middleware.DefaultLoggingConfig(),
	})

	serveRouter(r, http.MethodGet, "/healthz")
	assert.Empty(t, logger.GetMessages(), "probes are not logged")

	serveRouter(r, http.MethodGet, "/api/v1/unknown")
	assert.Equal(t, 1, logger.CountLevel("warn"))
}

func TestNewRouter_RecoversFromPanics(t *testing.T) {
	r := NewRouter(RouterConfig{
		NotificationHandler: handlers.NewNotificationHandler(nil, nil, nil),
	})

	w := serveRouter(r, http.MethodPost, "/api/v1/notifications/check-all")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

//Personal.AI order the ending
