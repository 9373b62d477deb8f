package middleware

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewTokenBucketLimiter(1, 2)
	l.now = func() time.Time { return now }

	ok, info := l.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewTokenBucketLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.BucketCount())

	now = now.Add(time.Hour)
	l.Allow("c")
	assert.Equal(t, 1, l.BucketCount())
}

func TestRateLimit_Rejects(t *testing.T) {
	h := RateLimit(NewTokenBucketLimiter(0.01, 1))(statusHandler(http.StatusOK))

	first := serve(h, "/api/v1/invoices/generate-monthly")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(h, "/api/v1/invoices/generate-monthly")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	h := RateLimit(nil)(statusHandler(http.StatusAccepted))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusAccepted, serve(h, "/").Code)
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeHTTPMetrics struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(method, route string, statusCode int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, recordedRequest{method, route, statusCode})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	m := &fakeHTTPMetrics{}
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	serve(r, "/invoices/42")
	serve(r, "/nowhere")

	require.Len(t, m.reqs, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/invoices/{id}", http.StatusNoContent}, m.reqs[0])
	assert.Equal(t, unmatchedRoute, m.reqs[1].route)
	assert.Equal(t, http.StatusNotFound, m.reqs[1].status)
}

//Personal.AI order the ending
