// Package ratelimit implements fixed-window per-client request limits.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Hour

	redisTimeout = 200 * time.Millisecond
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per (scope, client) in fixed windows. Counters
// live in Redis when a client is configured; on a Redis error, or without
// one, a process-local map is used so limiting never blocks requests.
type Limiter struct {
	redis  *redis.Client
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]int
	epoch  int64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithRedis stores counters in Redis.
func WithRedis(client *redis.Client) Option {
	return func(l *Limiter) {
		l.redis = client
	}
}

// WithWindow sets the window length.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// New creates a limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		window: DefaultWindow,
		now:    time.Now,
		logger: slog.Default(),
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ratelimit")
	return l
}

// Allow records one request from client under scope. A limit of zero or
// less disables limiting.
func (l *Limiter) Allow(ctx context.Context, scope, client string, limit int) Decision {
	now := l.now()
	epoch := now.UnixNano() / int64(l.window)
	reset := time.Unix(0, (epoch+1)*int64(l.window))
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: 0, Reset: reset}
	}

	key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, client, epoch)
	count, err := l.incrRedis(ctx, key)
	if err != nil {
		if l.redis != nil {
			l.logger.Warn("redis counter unavailable, counting locally", "err", err)
		}
		count = l.incrLocal(key, epoch)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= limit, Limit: limit, Remaining: remaining, Reset: reset}
}

var errNoRedis = errors.New("no redis client")

func (l *Limiter) incrRedis(ctx context.Context, key string) (int, error) {
	if l.redis == nil {
		return 0, errNoRedis
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	n, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Debug("failed to set counter expiry", "key", key, "err", err)
		}
	}
	return int(n), nil
}

func (l *Limiter) incrLocal(key string, epoch int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch != l.epoch {
		l.counts = make(map[string]int)
		l.epoch = epoch
	}
	l.counts[key]++
	return l.counts[key]
}

// Middleware rejects requests over limit with 429 and sets the
// X-RateLimit-* headers on every response.
func (l *Limiter) Middleware(scope string, limit int, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := l.Allow(r.Context(), scope, ClientIP(r), limit)
		if d.Limit > 0 {
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		}
		if !d.Allowed {
			retry := int(d.Reset.Sub(l.now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": fmt.Sprintf("rate limit exceeded: %d requests per %s", d.Limit, l.window),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP,
// then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
