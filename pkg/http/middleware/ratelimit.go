package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	applogger "SRZones/pkg/logger"
)

const maxTrackedClients = 10_000

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a token bucket per key. Every bucket holds up to burst tokens
// and refills at perSecond.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     float64
	perSecond float64
	now       func() time.Time
}

func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		burst:     float64(burst),
		perSecond: perSecond,
		now:       time.Now,
	}
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTrackedClients {
			l.prune(now)
		}
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	l.refill(b, now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *Limiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * l.perSecond
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now
}

// prune drops buckets that have refilled completely; they behave the same
// as a fresh bucket.
func (l *Limiter) prune(now time.Time) {
	for key, b := range l.buckets {
		l.refill(b, now)
		if b.tokens >= l.burst {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests with 429 once the client IP has spent its
// tokens.
func RateLimit(limiter *Limiter, l *applogger.Logger) echo.MiddlewareFunc {
	retryAfter := "1"
	if limiter.perSecond > 0 && limiter.perSecond < 1 {
		retryAfter = strconv.Itoa(int(1/limiter.perSecond + 0.5))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if limiter.Allow(ip) {
				return next(c)
			}
			l.Debug("rate limited", applogger.String("ip", ip), applogger.String("path", c.Path()))
			c.Response().Header().Set(echo.HeaderRetryAfter, retryAfter)
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": "Too Many Requests",
			})
		}
	}
}
