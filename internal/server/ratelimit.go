package server

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
)

// ClientLimiters hands out one token bucket per client key and forgets keys
// that have been idle for idleTTL.
type ClientLimiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewClientLimiters(rps float64, burst int) *ClientLimiters {
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiters{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
}

func (c *ClientLimiters) Get(key string) *rate.Limiter {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(c.rps, c.burst)
	c.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

func (c *ClientLimiters) Cleanup() {
	cutoff := time.Now().Add(-c.idleTTL)

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, ent := range c.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (c *ClientLimiters) StartJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}

func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// RateLimitMiddleware rejects requests over the client's budget with 429.
func RateLimitMiddleware(limiters *ClientLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			lim := limiters.Get(key)

			reservation := lim.Reserve()
			if !reservation.OK() {
				tooManyRequests(w, r, key, time.Second)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				tooManyRequests(w, r, key, delay)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, key string, retryAfter time.Duration) {
	ctx := r.Context()
	logging.Warn(ctx, "rate limit exceeded", "client", key, "path", r.URL.Path)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	WriteError(ctx, w, http.StatusTooManyRequests, "Too many requests")
}
