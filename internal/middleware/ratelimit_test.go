package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRateLimitConfig_Validate(t *testing.T) {
	if err := DefaultSearchLimit().Validate(); err != nil {
		t.Errorf("default search limit invalid: %v", err)
	}
	if err := (RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Second}).Validate(); err == nil {
		t.Error("expected error for zero requests")
	}
	if err := (RateLimitConfig{RequestsPerWindow: 1}).Validate(); err == nil {
		t.Error("expected error for zero window")
	}
}

func TestInMemoryRateLimitStore_Window(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryRateLimitStore()
	store.now = func() time.Time { return now }
	cfg := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := store.Allow(ctx, "k", cfg)
		if err != nil || !d.Allowed {
			t.Fatalf("request %d should be allowed: %+v %v", i+1, d, err)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, 2-i, d.Remaining)
		}
	}

	now = now.Add(20 * time.Second)
	d, _ := store.Allow(ctx, "k", cfg)
	if d.Allowed {
		t.Fatal("4th request should be blocked")
	}
	if d.RetryAfter != 40 {
		t.Errorf("expected retry after 40s, got %d", d.RetryAfter)
	}

	if d, _ := store.Allow(ctx, "other", cfg); !d.Allowed {
		t.Error("different key should have its own window")
	}

	now = now.Add(41 * time.Second)
	if d, _ := store.Allow(ctx, "k", cfg); !d.Allowed {
		t.Error("request after window reset should be allowed")
	}
}

func TestInMemoryRateLimitStore_Cleanup(t *testing.T) {
	now := time.Now()
	store := NewInMemoryRateLimitStore()
	store.now = func() time.Time { return now }
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second}

	_, _ = store.Allow(context.Background(), "a", cfg)
	now = now.Add(2 * time.Second)
	store.Cleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.buckets) != 0 {
		t.Errorf("expected expired buckets to be removed, %d left", len(store.buckets))
	}
}

func TestInMemoryRateLimitStore_Concurrent(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	cfg := RateLimitConfig{RequestsPerWindow: 50, WindowDuration: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := store.Allow(context.Background(), "shared", cfg)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 allowed, got %d", allowed)
	}
}

func TestIPKeyFunc(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, "10.0.0.2:1234", "ip:203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "ip:198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5678", "ip:192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "ip:2001:db8::1"},
		{"remote addr without port", nil, "192.0.2.9", "ip:192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := IPKeyFunc()(req); got != tt.want {
				t.Errorf("IPKeyFunc() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_Blocks(t *testing.T) {
	m := NewMetrics()
	cfg := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	handler := RateLimiter(NewInMemoryRateLimitStore(), cfg, IPKeyFunc(), m)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/search/foods", nil))
		if i < 2 && last.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, last.Code)
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if ra, err := strconv.Atoi(last.Header().Get("Retry-After")); err != nil || ra < 1 || ra > 60 {
		t.Errorf("unexpected Retry-After %q", last.Header().Get("Retry-After"))
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected remaining 0, got %q", last.Header().Get("X-RateLimit-Remaining"))
	}
	if got := testutil.ToFloat64(m.rateLimitBlocked.WithLabelValues("/search/foods")); got != 1 {
		t.Errorf("expected 1 blocked request, got %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimitRequests.WithLabelValues("/search/foods")); got != 3 {
		t.Errorf("expected 3 checked requests, got %v", got)
	}
}

type failingRateLimitStore struct{}

func (failingRateLimitStore) Allow(context.Context, string, RateLimitConfig) (RateLimitDecision, error) {
	return RateLimitDecision{}, errors.New("connection refused")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	m := NewMetrics()
	called := false
	handler := RateLimiter(failingRateLimitStore{}, DefaultSearchLimit(), IPKeyFunc(), m)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search/suggest", nil))

	if !called || rr.Code != http.StatusOK {
		t.Errorf("expected request to pass through on store error, code %d", rr.Code)
	}
	if got := testutil.ToFloat64(m.rateLimitStoreErrs); got != 1 {
		t.Errorf("expected 1 store error, got %v", got)
	}
}

func TestRateLimiter_NilMetrics(t *testing.T) {
	handler := RateLimiter(NewInMemoryRateLimitStore(), DefaultSearchLimit(), IPKeyFunc(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search/foods", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}
