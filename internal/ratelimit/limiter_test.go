package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"github.com/vorot93/otterscan/internal/metrics"
)

func TestMiddlewareDropsOverBurst(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	handler := New(Config{RPS: 0.001, Burst: 2}).Middleware(m, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}
	if got := testutil.ToFloat64(m.RateLimitDropped); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}
}

func TestPerClientBuckets(t *testing.T) {
	l := New(Config{RPS: 0.001, Burst: 1})
	l.global = rate.NewLimiter(rate.Inf, 0)

	if !l.Allow("a") {
		t.Fatal("first request from a should pass")
	}
	if l.Allow("a") {
		t.Fatal("second request from a should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("b has its own bucket")
	}
}

func TestEvictsIdleClients(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	l := New(Config{RPS: 1000, Burst: 1000, MaxClients: 2, ClientTTL: time.Minute})
	l.now = func() time.Time { return current }

	l.Allow("a")
	l.Allow("b")
	current = current.Add(2 * time.Minute)
	l.Allow("c")

	if got := l.Clients(); got != 1 {
		t.Fatalf("clients = %d, want 1 after eviction", got)
	}
}

func TestLimitedClientDoesNotDrainSharedBucket(t *testing.T) {
	l := New(Config{RPS: 0.001, Burst: 2})
	l.global = rate.NewLimiter(rate.Limit(0.001), 3)

	for i := 0; i < 10; i++ {
		l.Allow("noisy")
	}
	if !l.Allow("quiet") {
		t.Fatal("quiet client should still get a shared token")
	}
}

func TestMaxClientsIsHardCap(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	l := New(Config{RPS: 1000, Burst: 1000, MaxClients: 2, ClientTTL: time.Hour})
	l.now = func() time.Time { return current }

	l.Allow("a")
	current = current.Add(time.Second)
	l.Allow("b")
	current = current.Add(time.Second)
	l.Allow("c")

	if got := l.Clients(); got != 2 {
		t.Fatalf("clients = %d, want 2", got)
	}
	l.mu.Lock()
	_, hasOldest := l.clients["a"]
	_, hasNewest := l.clients["c"]
	l.mu.Unlock()
	if hasOldest || !hasNewest {
		t.Fatal("expected least recently seen client to be evicted")
	}
}

func TestNilLimiterIsPassthrough(t *testing.T) {
	var l *Limiter
	handler := l.Middleware(nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		trust      bool
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded ignored", remoteAddr: "192.0.2.1:1234", forwarded: "198.51.100.7", want: "192.0.2.1"},
		{name: "forwarded trusted", trust: true, remoteAddr: "192.0.2.1:1234", forwarded: "198.51.100.7, 10.0.0.1", want: "198.51.100.7"},
		{name: "no port", remoteAddr: "192.0.2.9", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			l := New(Config{RPS: 1, Burst: 1, TrustForwarded: tt.trust})
			if got := l.clientKey(req); got != tt.want {
				t.Fatalf("clientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
