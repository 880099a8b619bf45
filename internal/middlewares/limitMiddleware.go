package middlewares

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"spendwise/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated user, or per client
// IP for anonymous requests.
type RateLimiter struct {
	mu           sync.Mutex
	ipVisitors   map[string]*visitor
	userVisitors map[string]*visitor
	rps          rate.Limit
	burst        int
	now          func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		ipVisitors:   make(map[string]*visitor),
		userVisitors: make(map[string]*visitor),
		rps:          rate.Limit(rps),
		burst:        burst,
		now:          time.Now,
	}
}

func (l *RateLimiter) getLimiter(key string, isUser bool) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	visitors := l.ipVisitors
	if isUser {
		visitors = l.userVisitors
	}

	v, exists := visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// CleanupVisitors drops buckets idle for longer than idle, every interval,
// until ctx is done.
func (l *RateLimiter) CleanupVisitors(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(idle)
		}
	}
}

func (l *RateLimiter) sweep(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, visitors := range []map[string]*visitor{l.ipVisitors, l.userVisitors} {
		for key, v := range visitors {
			if now.Sub(v.lastSeen) > idle {
				delete(visitors, key)
			}
		}
	}
}

func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var limiter *rate.Limiter

		if userID, ok := utils.UserIDFromContext(r.Context()); ok {
			limiter = l.getLimiter(userID.Hex(), true)
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			limiter = l.getLimiter(ip, false)
		}

		if !limiter.Allow() {
			utils.SendJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
