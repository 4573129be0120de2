package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"routeeta.transit.dev/internal/clock"
	"routeeta.transit.dev/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(handler http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "192.0.2.1:5000"
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	c := clock.NewMockClock(testNow)
	rl := NewRateLimitMiddleware(2, time.Second, []string{"exempt"}, c)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	t.Run("burst then reject", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, hit(handler, "/?key=a").Code)
		assert.Equal(t, http.StatusOK, hit(handler, "/?key=a").Code)

		rec := hit(handler, "/?key=a")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))

		var body models.ResponseModel
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, http.StatusTooManyRequests, body.Code)
		assert.Equal(t, testNow.UnixMilli(), body.CurrentTime)
	})

	t.Run("keys are independent", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, hit(handler, "/?key=b").Code)
	})

	t.Run("exempt keys are never limited", func(t *testing.T) {
		for range 10 {
			assert.Equal(t, http.StatusOK, hit(handler, "/?key=exempt").Code)
		}
	})

	t.Run("keyless requests are limited per address", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, hit(handler, "/").Code)
		assert.Equal(t, http.StatusOK, hit(handler, "/").Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/").Code)
	})
}

func TestRateLimitDisabled(t *testing.T) {
	rl := NewRateLimitMiddleware(0, time.Second, nil, clock.NewMockClock(testNow))
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	for range 50 {
		assert.Equal(t, http.StatusOK, hit(handler, "/?key=a").Code)
	}
}

func TestRateLimitCleanup(t *testing.T) {
	c := clock.NewMockClock(testNow)
	rl := NewRateLimitMiddleware(5, time.Second, nil, c)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	hit(handler, "/?key=stale")
	c.Advance(11 * time.Minute)
	hit(handler, "/?key=fresh")

	rl.cleanupOnce()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.NotContains(t, rl.limiters, "stale")
	assert.Contains(t, rl.limiters, "fresh")
}

func TestLimiterKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?key=abc", nil)
	assert.Equal(t, "abc", limiterKey(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, "addr:198.51.100.7", limiterKey(req))
}
