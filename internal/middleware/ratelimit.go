package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrCodeRateLimited is the error code recorded for rejected requests.
const ErrCodeRateLimited = "rate_limited"

// RateLimitConfig defines a fixed-window limit.
type RateLimitConfig struct {
	// RequestsPerWindow is the maximum number of requests allowed per window. Must be > 0.
	RequestsPerWindow int
	// WindowDuration is the length of one window. Must be > 0.
	WindowDuration time.Duration
}

// Validate checks that both fields are positive.
func (c RateLimitConfig) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("RequestsPerWindow must be > 0 (got %d)", c.RequestsPerWindow)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("WindowDuration must be > 0 (got %s)", c.WindowDuration)
	}
	return nil
}

// DefaultSearchLimit returns the default search endpoint limit (60 requests per minute).
// Type-ahead clients debounce to roughly three calls per second at most.
func DefaultSearchLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 60,
		WindowDuration:    time.Minute,
	}
}

// RateLimitDecision is the outcome of one rate limit check.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the number of whole seconds until the window resets.
	RetryAfter int
}

// RateLimitStore holds rate limit state. Implementations must be safe for
// concurrent use.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, config RateLimitConfig) (RateLimitDecision, error)
}

// bucket is one key's fixed window.
type bucket struct {
	count     int
	windowEnd time.Time
}

// InMemoryRateLimitStore is a fixed-window counter for single-instance
// deployments and tests.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewInMemoryRateLimitStore creates a new in-memory rate limit store.
func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow implements RateLimitStore. It never fails.
func (s *InMemoryRateLimitStore) Allow(_ context.Context, key string, config RateLimitConfig) (RateLimitDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		s.buckets[key] = &bucket{count: 1, windowEnd: now.Add(config.WindowDuration)}
		return RateLimitDecision{Allowed: true, Remaining: config.RequestsPerWindow - 1}, nil
	}

	if b.count < config.RequestsPerWindow {
		b.count++
		return RateLimitDecision{Allowed: true, Remaining: config.RequestsPerWindow - b.count}, nil
	}

	return RateLimitDecision{RetryAfter: retryAfterSeconds(b.windowEnd.Sub(now))}, nil
}

// Cleanup removes expired buckets. Call it periodically, at an interval of a
// few window lengths.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, b := range s.buckets {
		if !now.Before(b.windowEnd) {
			delete(s.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (s *InMemoryRateLimitStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs <= 0 {
		return 1
	}
	return secs
}

// KeyFunc extracts a rate limit key from an HTTP request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys requests by client IP, preferring the first
// X-Forwarded-For entry, then X-Real-IP, then RemoteAddr.
func IPKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return "ip:" + strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return "ip:" + strings.TrimSpace(xri)
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr
		}
		return "ip:" + host
	}
}

// RateLimiter rejects requests over the limit with 429 and a Retry-After
// header. Store errors are logged and the request is let through. metrics
// may be nil.
func RateLimiter(store RateLimitStore, config RateLimitConfig, keyFunc KeyFunc, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := normalizePath(r.URL.Path)
			if metrics != nil {
				metrics.IncRateLimitRequests(endpoint)
			}

			decision, err := store.Allow(r.Context(), keyFunc(r), config)
			if err != nil {
				if metrics != nil {
					metrics.IncRateLimitStoreErrors()
				}
				slog.WarnContext(r.Context(), "rate limit store failed, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				if metrics != nil {
					metrics.IncRateLimitBlocked(endpoint)
				}
				SetErrorCode(r.Context(), ErrCodeRateLimited)

				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
				reset := time.Now().Add(time.Duration(decision.RetryAfter) * time.Second).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"` + ErrCodeRateLimited + `","message":"Too many requests"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
