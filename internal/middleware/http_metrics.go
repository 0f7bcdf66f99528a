package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// knownRoutes are recorded under their own path label.
var knownRoutes = map[string]bool{
	"/search/foods":   true,
	"/search/suggest": true,
	"/metrics":        true,
}

// unmatchedRoute collapses every other path into one label value so
// scanners cannot blow up metric cardinality.
const unmatchedRoute = "other"

// normalizePath maps a request path to its metric label.
func normalizePath(path string) string {
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if knownRoutes[path] {
		return path
	}
	return unmatchedRoute
}

// HTTPMetrics records request duration, count and response size.
// /health and /ready are not recorded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
				rw.size,
			)
		})
	}
}
