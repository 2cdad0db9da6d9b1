package ratelim

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const idleTTL = 10 * time.Minute

var nowFn = time.Now

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per client IP.
type Limiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

// New allows perMinute requests per minute per IP. A non-positive value
// disables limiting.
func New(perMinute int) *Limiter {
	l := &Limiter{visitors: make(map[string]*visitor), limit: rate.Inf, burst: 1}
	if perMinute > 0 {
		l.limit = rate.Limit(float64(perMinute) / 60)
		l.burst = perMinute
	}
	return l
}

func (l *Limiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := nowFn()
	if now.Sub(l.lastSweep) > idleTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > idleTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Allow reports whether ip may make another request now.
func (l *Limiter) Allow(ip string) bool {
	return l.get(ip).AllowN(nowFn(), 1)
}

func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}

// WritesOnly limits mutating requests and lets reads through.
func (l *Limiter) WritesOnly() fiber.Handler {
	limit := l.Handler()
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		return limit(c)
	}
}
