package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/budgetforpublic/budget-api/internal/domain"
)

// Cache labels.
const (
	CacheDocument = "document"
	CacheSession  = "session"
)

// Metrics holds all Prometheus metrics for the budget API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	sourceErrors     *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	fallbacksServed  prometheus.Counter
	selectionChanges *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budget_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sourceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_source_errors_total",
				Help: "Total errors returned by document sources.",
			},
			[]string{"source"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		fallbacksServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budget_fallbacks_served_total",
				Help: "Documents served from the embedded fallback data.",
			},
		),
		selectionChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_selection_changes_total",
				Help: "Selection changes observed across sessions.",
			},
			[]string{"field"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "budget_active_sessions",
				Help: "Sessions currently held by the registry.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrSourceError increments the source error counter.
func (m *Metrics) IncrSourceError(source string) {
	m.sourceErrors.WithLabelValues(source).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrFallback counts a document served from fallback data.
func (m *Metrics) IncrFallback() {
	m.fallbacksServed.Inc()
}

// IncrSelectionChange counts a change of a tracked selection field.
func (m *Metrics) IncrSelectionChange(field string) {
	m.selectionChanges.WithLabelValues(field).Inc()
}

// SetActiveSessions sets the active session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// SelectionChanges returns the cumulative count for a selection field.
func (m *Metrics) SelectionChanges(field string) float64 {
	return getCounterValue(m.selectionChanges, field)
}

// GetCacheSnapshot returns a snapshot of cache-related metrics suitable for
// the GET /v1/metrics/cache endpoint.
func (m *Metrics) GetCacheSnapshot() *domain.CacheMetrics {
	// Prometheus counters expose cumulative values.
	docHits := getCounterValue(m.cacheHits, CacheDocument)
	docMisses := getCounterValue(m.cacheMisses, CacheDocument)
	sessHits := getCounterValue(m.cacheHits, CacheSession)
	sessMisses := getCounterValue(m.cacheMisses, CacheSession)

	var sourceErrors float64
	if mfs, err := m.Registry.Gather(); err == nil {
		for _, mf := range mfs {
			if mf.GetName() != "budget_source_errors_total" {
				continue
			}
			for _, metric := range mf.GetMetric() {
				sourceErrors += metric.GetCounter().GetValue()
			}
		}
	}

	return &domain.CacheMetrics{
		DocumentHits:    int64(docHits),
		DocumentMisses:  int64(docMisses),
		DocumentHitRate: hitRate(docHits, docMisses),
		SessionHits:     int64(sessHits),
		SessionMisses:   int64(sessMisses),
		SessionHitRate:  hitRate(sessHits, sessMisses),
		ActiveSessions:  int64(metricValue(m.activeSessions)),
		SourceErrors:    int64(sourceErrors),
		FallbacksServed: int64(metricValue(m.fallbacksServed)),
		Period:          "all_time",
	}
}

func hitRate(hits, misses float64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return hits / (hits + misses)
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return metricValue(cv.WithLabelValues(label))
}

func metricValue(c prometheus.Metric) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	return 0
}
