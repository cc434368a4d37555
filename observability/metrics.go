package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tradelens"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Analysis metrics
	AnalysisRequestsTotal    *prometheus.CounterVec
	AnalysisDuration         *prometheus.HistogramVec
	AnalysisErrorsTotal      *prometheus.CounterVec
	AnalysisDegradedTotal    *prometheus.CounterVec
	RecommendationActions    *prometheus.CounterVec
	RecommendationScores     *prometheus.HistogramVec
	RecommendationConfidence *prometheus.HistogramVec

	// Producer metrics
	ProducerDuration    *prometheus.HistogramVec
	ProducerErrorsTotal *prometheus.CounterVec
	ProducerRetries     *prometheus.CounterVec
	ProducerScores      *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheEvictions   *prometheus.CounterVec
	CacheEntries     prometheus.Gauge

	// Credential metrics
	CredentialResolutions *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// scoreBuckets are histogram buckets for score metrics (0 to 100)
var scoreBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// confidenceBuckets are histogram buckets for confidence metrics (0 to 100)
var confidenceBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// globalMetrics is the global metrics instance
var (
	globalMetrics *Metrics
	metricsMu     sync.Mutex
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Analysis metrics
		AnalysisRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total number of analysis requests",
			},
			[]string{"context"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Duration of analysis requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"context", "status"},
		),
		AnalysisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "errors_total",
				Help:      "Total number of analysis errors by error code",
			},
			[]string{"code"},
		),
		AnalysisDegradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "degraded_total",
				Help:      "Total number of analyses that substituted a neutral default, by producer",
			},
			[]string{"producer"},
		),
		RecommendationActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recommendation",
				Name:      "actions_total",
				Help:      "Total number of recommendations by label",
			},
			[]string{"action"},
		),
		RecommendationScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "recommendation",
				Name:      "score",
				Help:      "Distribution of synthesis scores",
				Buckets:   scoreBuckets,
			},
			[]string{"action"},
		),
		RecommendationConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "recommendation",
				Name:      "confidence",
				Help:      "Distribution of synthesis confidence levels",
				Buckets:   confidenceBuckets,
			},
			[]string{"action"},
		),

		// Producer metrics
		ProducerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "duration_seconds",
				Help:      "Duration of producer invocations in seconds, including retries",
				Buckets:   defaultBuckets,
			},
			[]string{"producer"},
		),
		ProducerErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "errors_total",
				Help:      "Total number of producer failures after retries",
			},
			[]string{"producer", "error_type"},
		),
		ProducerRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "retries_total",
				Help:      "Total number of producer retry attempts",
			},
			[]string{"producer"},
		),
		ProducerScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "score",
				Help:      "Distribution of producer scores",
				Buckets:   scoreBuckets,
			},
			[]string{"producer"},
		),

		// Cache metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of result cache hits by key kind",
			},
			[]string{"kind"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of result cache misses by key kind",
			},
			[]string{"kind"},
		),
		CacheEvictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of result cache evictions by reason",
			},
			[]string{"reason"},
		),
		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "entries",
				Help:      "Current number of result cache entries",
			},
		),

		// Credential metrics
		CredentialResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credential",
				Name:      "resolutions_total",
				Help:      "Total number of credential resolutions by outcome",
			},
			[]string{"outcome"},
		),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
// registered on the default registry. Calling it again returns the existing instance.
func InitMetrics() *Metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewMetrics(nil)
	}
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return InitMetrics()
}

// RecordAnalysisRequest records an analysis request
func (m *Metrics) RecordAnalysisRequest(context string) {
	m.AnalysisRequestsTotal.WithLabelValues(context).Inc()
}

// RecordAnalysisDuration records the duration of an analysis
func (m *Metrics) RecordAnalysisDuration(context, status string, duration time.Duration) {
	m.AnalysisDuration.WithLabelValues(context, status).Observe(duration.Seconds())
}

// RecordAnalysisError records an analysis error by its public error code
func (m *Metrics) RecordAnalysisError(code string) {
	m.AnalysisErrorsTotal.WithLabelValues(code).Inc()
}

// RecordDegraded records a neutral-default substitution for a producer
func (m *Metrics) RecordDegraded(producer string) {
	m.AnalysisDegradedTotal.WithLabelValues(producer).Inc()
}

// RecordRecommendation records a recommendation
func (m *Metrics) RecordRecommendation(action string, score, confidence float64) {
	m.RecommendationActions.WithLabelValues(action).Inc()
	m.RecommendationScores.WithLabelValues(action).Observe(score)
	m.RecommendationConfidence.WithLabelValues(action).Observe(confidence)
}

// RecordProducerDuration records the duration of a producer invocation
func (m *Metrics) RecordProducerDuration(producer string, duration time.Duration) {
	m.ProducerDuration.WithLabelValues(producer).Observe(duration.Seconds())
}

// RecordProducerError records a producer failure
func (m *Metrics) RecordProducerError(producer, errorType string) {
	m.ProducerErrorsTotal.WithLabelValues(producer, errorType).Inc()
}

// RecordProducerRetry records a retry attempt against a producer
func (m *Metrics) RecordProducerRetry(producer string) {
	m.ProducerRetries.WithLabelValues(producer).Inc()
}

// RecordProducerScore records a producer score
func (m *Metrics) RecordProducerScore(producer string, score float64) {
	m.ProducerScores.WithLabelValues(producer).Observe(score)
}

// RecordCacheHit records a result cache hit
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a result cache miss
func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordCacheEviction records entries removed from the result cache
func (m *Metrics) RecordCacheEviction(reason string, count int) {
	m.CacheEvictions.WithLabelValues(reason).Add(float64(count))
}

// SetCacheEntries sets the current result cache size
func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}

// RecordCredentialResolution records a credential resolution outcome
func (m *Metrics) RecordCredentialResolution(outcome string) {
	m.CredentialResolutions.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveAnalysis records the analysis duration and status
func (t *Timer) ObserveAnalysis(context, status string) {
	t.metrics.RecordAnalysisDuration(context, status, time.Since(t.start))
}

// ObserveProducer records the producer invocation duration
func (t *Timer) ObserveProducer(producer string) {
	t.metrics.RecordProducerDuration(producer, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
