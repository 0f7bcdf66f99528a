package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/search/foods", "/search/foods"},
		{"/search/foods/", "/search/foods"},
		{"/search/suggest", "/search/suggest"},
		{"/metrics", "/metrics"},
		{"/wp-admin/login.php", "other"},
		{"/search/foods/123", "other"},
		{"/", "other"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))

	for _, target := range []string{"/search/foods?q=a", "/search/foods?q=b", "/search/suggest", "/health", "/random/1"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	tests := []struct {
		path, status string
		want         float64
	}{
		{"/search/foods", "200", 2},
		{"/search/suggest", "400", 1},
		{"other", "400", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, tt.path, tt.status))
		if got != tt.want {
			t.Errorf("requests %s %s = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.httpRequestsTotal); n != 3 {
		t.Errorf("expected 3 label sets (health excluded), got %d", n)
	}
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := NewMetrics().Register(reg); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := NewMetrics().Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if got := len(NewMetrics().Collectors()); got != 6 {
		t.Errorf("expected 6 collectors, got %d", got)
	}
}
