// Package ratelimit limits mutating requests per client with a fixed
// one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultPerMinute = 60
	defaultCleanup   = 5 * time.Minute
	window           = time.Minute
	staleAfter       = 10 * time.Minute
)

// Config tunes a Limiter. Zero fields take the defaults: 60 requests per
// minute and a five minute cleanup interval.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// Metrics is a snapshot of limiter activity.
type Metrics struct {
	TotalHits   int64 // rejected requests since start
	ClientCount int64
}

// Limiter counts requests per client IP within a fixed window.
type Limiter struct {
	requestsPerMinute int
	cleanupInterval   time.Duration
	now               func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket

	hits    atomic.Int64
	tracked atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	opened time.Time
	last   time.Time
	count  int
}

// NewLimiter starts a limiter with a background sweep of idle clients.
// Call Stop to end the sweep.
func NewLimiter(cfg Config) *Limiter {
	rl := &Limiter{
		requestsPerMinute: cfg.RequestsPerMinute,
		cleanupInterval:   cfg.CleanupInterval,
		now:               time.Now,
		clients:           make(map[string]*bucket),
		stop:              make(chan struct{}),
	}
	if rl.requestsPerMinute <= 0 {
		rl.requestsPerMinute = defaultPerMinute
	}
	if rl.cleanupInterval <= 0 {
		rl.cleanupInterval = defaultCleanup
	}
	go rl.sweepLoop()
	return rl
}

// Allow records a request from clientIP and reports whether it fits in
// the current window.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.clients[clientIP]
	if b == nil || now.Sub(b.opened) >= window {
		rl.clients[clientIP] = &bucket{opened: now, last: now, count: 1}
		rl.tracked.Store(int64(len(rl.clients)))
		return true
	}
	b.count++
	b.last = now
	if b.count <= rl.requestsPerMinute {
		return true
	}
	rl.hits.Add(1)
	return false
}

// RetryAfter is the time left until clientIP's window resets.
func (rl *Limiter) RetryAfter(clientIP string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.clients[clientIP]
	if b == nil {
		return 0
	}
	return max(window-rl.now().Sub(b.opened), 0)
}

func (rl *Limiter) sweepLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanupStaleEntries()
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleAfter)
	for ip, b := range rl.clients {
		if b.last.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
	rl.tracked.Store(int64(len(rl.clients)))
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the background sweep. Repeated calls are no-ops.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: rl.hits.Load(), ClientCount: rl.tracked.Load()}
}

// Middleware limits requests whose method is listed; others pass through.
// With no methods every request is limited. onLimit writes the rejection
// after Retry-After is set; nil falls back to a plain 429.
func (rl *Limiter) Middleware(clientIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request), methods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		limited[m] = struct{}{}
	}
	applies := func(method string) bool {
		if len(limited) == 0 {
			return true
		}
		_, ok := limited[method]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !applies(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if rl.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter(ip).Seconds())+1))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
