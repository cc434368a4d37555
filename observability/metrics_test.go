package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	// Verify all metrics are initialized
	if m.AnalysisRequestsTotal == nil {
		t.Error("AnalysisRequestsTotal is nil")
	}
	if m.AnalysisDuration == nil {
		t.Error("AnalysisDuration is nil")
	}
	if m.AnalysisErrorsTotal == nil {
		t.Error("AnalysisErrorsTotal is nil")
	}
	if m.AnalysisDegradedTotal == nil {
		t.Error("AnalysisDegradedTotal is nil")
	}
	if m.RecommendationActions == nil {
		t.Error("RecommendationActions is nil")
	}
	if m.ProducerDuration == nil {
		t.Error("ProducerDuration is nil")
	}
	if m.ProducerErrorsTotal == nil {
		t.Error("ProducerErrorsTotal is nil")
	}
	if m.ProducerRetries == nil {
		t.Error("ProducerRetries is nil")
	}
	if m.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
	if m.CacheMissesTotal == nil {
		t.Error("CacheMissesTotal is nil")
	}
	if m.CacheEntries == nil {
		t.Error("CacheEntries is nil")
	}
	if m.CredentialResolutions == nil {
		t.Error("CredentialResolutions is nil")
	}
	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
	if m.CircuitBreakerTrips == nil {
		t.Error("CircuitBreakerTrips is nil")
	}
}

func TestRecordAnalysisRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordAnalysisRequest("investment")
	m.RecordAnalysisRequest("investment")
	m.RecordAnalysisRequest("trading")

	investment := testutil.ToFloat64(m.AnalysisRequestsTotal.WithLabelValues("investment"))
	if investment != 2 {
		t.Errorf("Expected investment count to be 2, got %f", investment)
	}

	trading := testutil.ToFloat64(m.AnalysisRequestsTotal.WithLabelValues("trading"))
	if trading != 1 {
		t.Errorf("Expected trading count to be 1, got %f", trading)
	}
}

func TestRecordAnalysisError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordAnalysisError("INSUFFICIENT_RESULTS")
	m.RecordAnalysisError("INSUFFICIENT_RESULTS")
	m.RecordAnalysisError("MISSING_CREDENTIAL")

	insufficient := testutil.ToFloat64(m.AnalysisErrorsTotal.WithLabelValues("INSUFFICIENT_RESULTS"))
	if insufficient != 2 {
		t.Errorf("Expected INSUFFICIENT_RESULTS count to be 2, got %f", insufficient)
	}

	missing := testutil.ToFloat64(m.AnalysisErrorsTotal.WithLabelValues("MISSING_CREDENTIAL"))
	if missing != 1 {
		t.Errorf("Expected MISSING_CREDENTIAL count to be 1, got %f", missing)
	}
}

func TestRecordDegraded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDegraded("sentiment_eco")

	if got := testutil.ToFloat64(m.AnalysisDegradedTotal.WithLabelValues("sentiment_eco")); got != 1 {
		t.Errorf("Expected sentiment_eco degraded count to be 1, got %f", got)
	}
}

func TestRecordRecommendation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRecommendation("BUY", 86, 80)
	m.RecordRecommendation("SELL", 20, 90)
	m.RecordRecommendation("HOLD", 55, 60)

	for _, action := range []string{"BUY", "SELL", "HOLD"} {
		if got := testutil.ToFloat64(m.RecommendationActions.WithLabelValues(action)); got != 1 {
			t.Errorf("Expected %s count to be 1, got %f", action, got)
		}
	}
}

func TestProducerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordProducerDuration("fundamental", 2*time.Second)
	m.RecordProducerScore("fundamental", 72)
	m.RecordProducerRetry("technical")
	m.RecordProducerRetry("technical")
	m.RecordProducerError("technical", "timeout")

	if got := testutil.ToFloat64(m.ProducerRetries.WithLabelValues("technical")); got != 2 {
		t.Errorf("Expected technical retries to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.ProducerErrorsTotal.WithLabelValues("technical", "timeout")); got != 1 {
		t.Errorf("Expected technical timeout count to be 1, got %f", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordCacheHit("producer")
	m.RecordCacheHit("producer")
	m.RecordCacheMiss("synthesis")
	m.RecordCacheEviction("expired", 3)
	m.SetCacheEntries(42)

	if got := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("producer")); got != 2 {
		t.Errorf("Expected producer hits to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("synthesis")); got != 1 {
		t.Errorf("Expected synthesis misses to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.CacheEvictions.WithLabelValues("expired")); got != 3 {
		t.Errorf("Expected expired evictions to be 3, got %f", got)
	}
	if got := testutil.ToFloat64(m.CacheEntries); got != 42 {
		t.Errorf("Expected cache entries to be 42, got %f", got)
	}
}

func TestRecordCredentialResolution(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordCredentialResolution("cache_hit")
	m.RecordCredentialResolution("missing")

	if got := testutil.ToFloat64(m.CredentialResolutions.WithLabelValues("cache_hit")); got != 1 {
		t.Errorf("Expected cache_hit count to be 1, got %f", got)
	}
}

func TestRecordDBQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDBQuery("select", "user_profiles", 10*time.Millisecond)
	m.RecordDBQuery("select", "user_profiles", 15*time.Millisecond)
	m.RecordDBError("select", "user_profiles")

	if got := testutil.ToFloat64(m.DBQueryTotal.WithLabelValues("select", "user_profiles")); got != 2 {
		t.Errorf("Expected select count to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(m.DBErrorsTotal.WithLabelValues("select", "user_profiles")); got != 1 {
		t.Errorf("Expected error count to be 1, got %f", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("POST", "/api/analyze", "200", 50*time.Millisecond, 1024)
	m.RecordHTTPRequest("POST", "/api/analyze", "400", 5*time.Millisecond, 64)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/analyze", "200")); got != 1 {
		t.Errorf("Expected 200 count to be 1, got %f", got)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetCircuitBreakerState("producer-fundamental", 0) // closed
	m.SetCircuitBreakerState("producer-technical", 2)   // open

	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("producer-technical")); got != 2 {
		t.Errorf("Expected technical state to be 2 (open), got %f", got)
	}

	m.RecordCircuitBreakerTrip("producer-technical")
	m.RecordCircuitBreakerTrip("producer-technical")

	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("producer-technical")); got != 2 {
		t.Errorf("Expected technical trips to be 2, got %f", got)
	}
}

func TestTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	timer := m.NewTimer()
	if timer == nil {
		t.Fatal("NewTimer returned nil")
	}

	time.Sleep(10 * time.Millisecond)

	duration := timer.Duration()
	if duration < 10*time.Millisecond {
		t.Errorf("Expected duration to be at least 10ms, got %v", duration)
	}

	timer.ObserveAnalysis("investment", "success")
	m.NewTimer().ObserveProducer("fundamental")
	m.NewTimer().ObserveDB("select", "user_profiles")

	if got := testutil.CollectAndCount(m.ProducerDuration); got != 1 {
		t.Errorf("Expected 1 producer duration series, got %d", got)
	}
}

func TestGetMetrics_Singleton(t *testing.T) {
	original := globalMetrics
	defer func() { globalMetrics = original }()

	reg := prometheus.NewRegistry()
	globalMetrics = NewMetrics(reg)

	m1 := GetMetrics()
	if m1 == nil {
		t.Fatal("GetMetrics returned nil")
	}

	m2 := GetMetrics()
	if m1 != m2 {
		t.Error("GetMetrics should return the same instance")
	}
}
