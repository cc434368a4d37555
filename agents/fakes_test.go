package agents

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tradelens/cache"
	"tradelens/models"
	"tradelens/services"
)

// fakeProducer counts invocations and delegates to fn
type fakeProducer struct {
	name  models.ProducerName
	calls int32
	fn    func(ctx context.Context, call int) (*models.AnalysisResult, error)
}

func (f *fakeProducer) Name() models.ProducerName {
	return f.name
}

func (f *fakeProducer) Analyze(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error) {
	call := int(atomic.AddInt32(&f.calls, 1))
	return f.fn(ctx, call)
}

func (f *fakeProducer) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

func scoring(name models.ProducerName, score int) *fakeProducer {
	return &fakeProducer{
		name: name,
		fn: func(ctx context.Context, call int) (*models.AnalysisResult, error) {
			return result(score, 0.8), nil
		},
	}
}

func failing(name models.ProducerName, err error) *fakeProducer {
	return &fakeProducer{
		name: name,
		fn: func(ctx context.Context, call int) (*models.AnalysisResult, error) {
			return nil, err
		},
	}
}

func result(score int, confidence float64) *models.AnalysisResult {
	return &models.AnalysisResult{
		Score:      score,
		Confidence: confidence,
		Factors: []models.Factor{
			{Type: models.FactorPositive, Category: "growth", Description: "Revenue growth", Weight: 0.6, Confidence: 0.7},
		},
		Metadata:    map[string]interface{}{},
		DataSources: []string{"test"},
	}
}

var (
	errTransient    = &services.APIError{Service: "test", StatusCode: 503, Code: services.CodeUnavailable, Message: "try later"}
	errUnauthorized = &services.APIError{Service: "test", StatusCode: 401, Code: services.CodeUnauthorized, Message: "bad key"}
)

func testRetry() services.RetryConfig {
	return services.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func newTestCache() *cache.MemoryCache {
	return cache.NewMemoryCache(cache.DefaultTTLs())
}

func newTestAdapter(p Producer, c cache.Cache, opts ...AdapterOption) *Adapter {
	return NewAdapter(p, c, AdapterConfig{Timeout: time.Second, Retry: testRetry()}, opts...)
}

// fakeRecorder captures producer runs
type fakeRecorder struct {
	mu   sync.Mutex
	runs []*models.ProducerRun
}

func (r *fakeRecorder) RecordProducerRun(ctx context.Context, run *models.ProducerRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRecorder) Runs() []*models.ProducerRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ProducerRun(nil), r.runs...)
}
