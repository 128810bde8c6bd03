package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/utils"

	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token bucket per client IP.
type Limiter struct {
	limit  rate.Limit
	burst  int
	idle   time.Duration
	logger *logger.Logger

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewLimiter(requestsPerSecond float64, burst int, log *logger.Logger) *Limiter {
	return &Limiter{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		idle:     3 * time.Minute,
		logger:   log,
		visitors: make(map[string]*visitor),
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than the idle window.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if time.Since(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}
}

// RunCleanup calls Cleanup every interval until stop is closed.
func (l *Limiter) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-stop:
			return
		}
	}
}

// Middleware answers 429 once a client exceeds its bucket.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.get(ip).Allow() {
			l.logger.LogSecurity("RATE_LIMITED", fmt.Sprintf("%s %s from %s", r.Method, r.URL.Path, ip))
			w.Header().Set("Retry-After", "1")
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.ErrorResponse("RATE_LIMITED", "too many requests, slow down"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
