package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func setupRateLimitApp(rps float64, burst int) http.Handler {
	app := drift.New()
	app.Use(NewRateLimiter(rate.Limit(rps), burst, false))
	app.Post("/test", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	return app
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	app := setupRateLimitApp(1, 5)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	app := setupRateLimitApp(1, 2)

	for i := 0; i < 2; i++ {
		app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/test", nil))
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body["message"])
}

func TestRateLimiter_DifferentIPsHaveSeparateLimits(t *testing.T) {
	app := setupRateLimitApp(1, 1)

	req1 := httptest.NewRequest(http.MethodPost, "/test", nil)
	req1.RemoteAddr = "1.1.1.1:1234"
	app.ServeHTTP(httptest.NewRecorder(), req1)

	rec1b := httptest.NewRecorder()
	req1b := httptest.NewRequest(http.MethodPost, "/test", nil)
	req1b.RemoteAddr = "1.1.1.1:1234"
	app.ServeHTTP(rec1b, req1b)
	assert.Equal(t, http.StatusTooManyRequests, rec1b.Code)

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/test", nil)
	req2.RemoteAddr = "2.2.2.2:5678"
	app.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	app := setupRateLimitApp(1, 1)

	first := httptest.NewRequest(http.MethodPost, "/test", nil)
	first.RemoteAddr = "1.1.1.1:1234"
	first.Header.Set("X-Forwarded-For", "203.0.113.1")
	app.ServeHTTP(httptest.NewRecorder(), first)

	// A fresh forwarded address does not buy a fresh bucket.
	rec := httptest.NewRecorder()
	second := httptest.NewRequest(http.MethodPost, "/test", nil)
	second.RemoteAddr = "1.1.1.1:1234"
	second.Header.Set("X-Forwarded-For", "203.0.113.2")
	app.ServeHTTP(rec, second)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	assert.Equal(t, "10.0.0.1", clientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req, true))
	assert.Equal(t, "10.0.0.1", clientIP(req, false))
}

func TestRateLimiter_SweepDropsIdleVisitors(t *testing.T) {
	rl := &RateLimiter{rps: 1, burst: 1}
	rl.getVisitor("1.1.1.1")
	rl.getVisitor("2.2.2.2")

	stale, _ := rl.visitors.Load("1.1.1.1")
	stale.(*visitor).lastSeen.Store(time.Now().Add(-2 * visitorIdleTimeout).UnixNano())

	rl.sweep(time.Now())

	_, ok := rl.visitors.Load("1.1.1.1")
	assert.False(t, ok)
	_, ok = rl.visitors.Load("2.2.2.2")
	assert.True(t, ok)
}

// Run with -race: requests refresh lastSeen while the sweep reads it.
func TestRateLimiter_ConcurrentSweep(t *testing.T) {
	rl := &RateLimiter{rps: 1000, burst: 1000}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rl.getVisitor("1.1.1.1")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rl.sweep(time.Now())
			}
		}()
	}
	wg.Wait()

	_, ok := rl.visitors.Load("1.1.1.1")
	assert.True(t, ok)
}
