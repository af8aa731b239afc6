package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// IPごとのトークンバケット
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

func (s *ipLimiter) get(ip string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 使われていないIPを掃除
	for k, e := range s.limiters {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.limiters, k)
		}
	}

	e, ok := s.limiters[ip]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[ip] = e
	}
	e.lastSeen = now
	return e.l
}

// ログインなどへの総当たり対策
func RateLimit(perMinute int, burst int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	store := &ipLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		ttl:      10 * time.Minute,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !store.get(c.RealIP(), time.Now()).Allow() {
				return c.JSON(http.StatusTooManyRequests, errorJSON("too many requests"))
			}
			return next(c)
		}
	}
}
