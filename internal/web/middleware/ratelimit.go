package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles viewer requests per client address. Paths in the exempt
// set are never throttled; an open /events stream is a single long request.
type Limiter struct {
	perSecond rate.Limit
	burst     int
	exempt    map[string]bool

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows each client perSecond requests with bursts of burst.
func NewLimiter(perSecond float64, burst int, exempt ...string) *Limiter {
	l := &Limiter{
		perSecond: rate.Limit(perSecond),
		burst:     max(burst, 1),
		exempt:    make(map[string]bool, len(exempt)),
		clients:   make(map[string]*client),
	}
	for _, p := range exempt {
		l.exempt[p] = true
	}
	return l
}

// Middleware answers 429 with Retry-After once a client's bucket is empty.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		addr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			addr = r.RemoteAddr
		}
		if !l.allow(addr, time.Now()) {
			slog.Warn("viewer rate limit exceeded", "client", addr, "path", r.URL.Path, "chronicle", r.URL.Query().Get("path"))
			w.Header().Set("Retry-After", l.retryAfter())
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) allow(addr string, now time.Time) bool {
	l.mu.Lock()
	c, ok := l.clients[addr]
	if !ok {
		c = &client{tokens: rate.NewLimiter(l.perSecond, l.burst)}
		l.clients[addr] = c
	}
	c.lastSeen = now
	l.mu.Unlock()
	return c.tokens.AllowN(now, 1)
}

// Sweep forgets clients idle since before now-idle and returns how many were
// dropped.
func (l *Limiter) Sweep(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for addr, c := range l.clients {
		if now.Sub(c.lastSeen) > idle {
			delete(l.clients, addr)
			n++
		}
	}
	return n
}

// Run sweeps idle clients every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.Sweep(now, idle)
		case <-ctx.Done():
			return
		}
	}
}

// retryAfter is the whole seconds until one token refills, at least 1.
func (l *Limiter) retryAfter() string {
	if l.perSecond <= 0 {
		return "60"
	}
	return strconv.Itoa(max(1, int(math.Ceil(1/float64(l.perSecond)))))
}
