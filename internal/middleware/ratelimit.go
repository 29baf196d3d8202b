package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"golang.org/x/time/rate"
)

const visitorIdleTimeout = 3 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	// unix nanoseconds; written by requests, read by the cleanup loop
	lastSeen atomic.Int64
}

func newVisitor(limiter *rate.Limiter, now time.Time) *visitor {
	v := &visitor{limiter: limiter}
	v.lastSeen.Store(now.UnixNano())
	return v
}

func (v *visitor) idle(now time.Time) bool {
	return now.Sub(time.Unix(0, v.lastSeen.Load())) > visitorIdleTimeout
}

// RateLimiter tracks per-IP token bucket limiters.
type RateLimiter struct {
	visitors   sync.Map
	rps        rate.Limit
	burst      int
	trustProxy bool
}

// NewRateLimiter returns middleware applying per-IP rate limiting with a
// steady rate of rps and bursts of up to burst requests. X-Forwarded-For is
// only consulted when trustProxy is set.
func NewRateLimiter(rps rate.Limit, burst int, trustProxy bool) drift.HandlerFunc {
	rl := &RateLimiter{rps: rps, burst: burst, trustProxy: trustProxy}
	go rl.cleanupLoop()
	return rl.handle
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	now := time.Now()
	val, ok := rl.visitors.Load(ip)
	if ok {
		v := val.(*visitor)
		v.lastSeen.Store(now.UnixNano())
		return v.limiter
	}

	actual, _ := rl.visitors.LoadOrStore(ip, newVisitor(rate.NewLimiter(rl.rps, rl.burst), now))
	return actual.(*visitor).limiter
}

func (rl *RateLimiter) handle(c *drift.Context) {
	limiter := rl.getVisitor(clientIP(c.Request, rl.trustProxy))

	if !limiter.Allow() {
		c.Response.Header().Set("Retry-After", "1")
		_ = c.JSON(http.StatusTooManyRequests, map[string]string{
			"message": "too many requests, please try again later",
		})
		c.Abort()
		return
	}

	c.Next()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for now := range ticker.C {
		rl.sweep(now)
	}
}

// sweep drops visitors idle for longer than visitorIdleTimeout.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.visitors.Range(func(key, value any) bool {
		if value.(*visitor).idle(now) {
			rl.visitors.Delete(key)
		}
		return true
	})
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
