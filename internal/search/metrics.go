package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricSearchesTotal      = "search_requests_total"
	MetricSearchDuration     = "search_duration_seconds"
	MetricSearchResults      = "search_results"
	MetricSearchStageFailure = "search_stage_failures_total"
)

// Search modes used as metric labels.
const (
	modeFull       = "full"
	modePredictive = "predictive"
)

// Pipeline stage names used in logs, spans and metric labels.
const (
	stageQuery       = "query"
	stageRestaurants = "restaurants"
	stageReviews     = "reviews"
	stageRank        = "rank"
)

// Metrics contains Prometheus metrics for the search pipeline.
type Metrics struct {
	searchesTotal  *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchResults  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchesTotal,
				Help: "Total number of searches by mode and outcome (complete, partial)",
			},
			[]string{"mode", "outcome"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSearchDuration,
				Help:    "Histogram of search pipeline duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"mode"},
		),
		searchResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSearchResults,
				Help:    "Histogram of result counts returned per search",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
			[]string{"mode"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchStageFailure,
				Help: "Total number of failed store fetches by pipeline stage",
			},
			[]string{"stage"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSearch records one finished search.
func (m *Metrics) ObserveSearch(mode string, partial bool, results int, seconds float64) {
	outcome := "complete"
	if partial {
		outcome = "partial"
	}
	m.searchesTotal.WithLabelValues(mode, outcome).Inc()
	m.searchDuration.WithLabelValues(mode).Observe(seconds)
	m.searchResults.WithLabelValues(mode).Observe(float64(results))
}

// IncStageFailure increments the failure counter of a pipeline stage.
func (m *Metrics) IncStageFailure(stage string) {
	m.stageFailures.WithLabelValues(stage).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.searchesTotal,
		m.searchDuration,
		m.searchResults,
		m.stageFailures,
	}
}
