package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vorot93/otterscan/internal/metrics"
)

const (
	defaultClientTTL  = 10 * time.Minute
	defaultMaxClients = 10_000
)

// Config describes the token buckets. Every client gets its own bucket with
// the same rate; a shared bucket caps the total. MaxClients is a hard cap on
// tracked buckets: idle ones are dropped first, then the least recently seen.
type Config struct {
	RPS            float64
	Burst          int
	TrustForwarded bool
	ClientTTL      time.Duration
	MaxClients     int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies global and per-client request limits.
type Limiter struct {
	cfg    Config
	global *rate.Limiter
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
}

func New(cfg Config) *Limiter {
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = defaultClientTTL
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = defaultMaxClients
	}
	return &Limiter{
		cfg:     cfg,
		global:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		now:     time.Now,
		clients: make(map[string]*bucket),
	}
}

// Middleware returns next unchanged when l is nil, which is how a disabled
// limiter is represented.
func (l *Limiter) Middleware(m *metrics.Metrics, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.clientKey(r)) {
			if m != nil {
				m.RateLimitDropped.Inc()
			}
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow reports whether a request from key may proceed now. The client
// bucket is consulted first so a client over its own limit does not drain
// the shared bucket.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= l.cfg.MaxClients {
			l.evictLocked(now)
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	l.mu.Unlock()

	if !allowed {
		return false
	}
	return l.global.AllowN(now, 1)
}

// Clients returns the number of tracked client buckets.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) evictLocked(now time.Time) {
	threshold := now.Add(-l.cfg.ClientTTL)
	for key, b := range l.clients {
		if b.lastSeen.Before(threshold) {
			delete(l.clients, key)
		}
	}

	for len(l.clients) >= l.cfg.MaxClients {
		var (
			oldestKey  string
			oldestSeen time.Time
			found      bool
		)
		for key, b := range l.clients {
			if !found || b.lastSeen.Before(oldestSeen) {
				oldestKey, oldestSeen, found = key, b.lastSeen, true
			}
		}
		if !found {
			return
		}
		delete(l.clients, oldestKey)
	}
}

// clientKey uses the first X-Forwarded-For hop only behind a trusted proxy.
func (l *Limiter) clientKey(r *http.Request) string {
	if l.cfg.TrustForwarded {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
