package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradelens/cache"
	"tradelens/models"
	"tradelens/services"
)

type testProducers struct {
	fundamental  *fakeProducer
	technical    *fakeProducer
	sentimentEco *fakeProducer
}

func (p testProducers) totalCalls() int {
	return p.fundamental.Calls() + p.technical.Calls() + p.sentimentEco.Calls()
}

func newTestOrchestrator(t *testing.T, c cache.Cache, allowDegraded bool, p testProducers) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(c, allowDegraded,
		newTestAdapter(p.fundamental, c),
		newTestAdapter(p.technical, c),
		newTestAdapter(p.sentimentEco, c),
	)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func TestNewOrchestrator_RequiresEachProducerOnce(t *testing.T) {
	c := newTestCache()
	f := newTestAdapter(scoring(models.ProducerFundamental, 50), c)
	tech := newTestAdapter(scoring(models.ProducerTechnical, 50), c)

	if _, err := NewOrchestrator(c, true, f, tech); err == nil {
		t.Error("expected error for a missing producer")
	}
	if _, err := NewOrchestrator(c, true, f, tech, f); err == nil {
		t.Error("expected error for a duplicate producer")
	}
}

func TestOrchestrator_Run_AllSucceed(t *testing.T) {
	c := newTestCache()
	p := testProducers{
		fundamental:  scoring(models.ProducerFundamental, 80),
		technical:    scoring(models.ProducerTechnical, 78),
		sentimentEco: scoring(models.ProducerSentimentEco, 76),
	}
	o := newTestOrchestrator(t, c, true, p)

	bundle, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if bundle.Degraded {
		t.Error("Degraded = true, want false")
	}
	if bundle.Fundamental.Score != 80 || bundle.Technical.Score != 78 || bundle.SentimentEco.Score != 76 {
		t.Errorf("scores = %d/%d/%d, want 80/78/76",
			bundle.Fundamental.Score, bundle.Technical.Score, bundle.SentimentEco.Score)
	}
	if bundle.Get(models.ProducerTechnical) != bundle.Technical {
		t.Error("Get(technical) should return the technical slot")
	}
	if _, ok := c.Get(cache.BundleKey(testRequest)); !ok {
		t.Error("complete bundle should be cached")
	}
}

func TestOrchestrator_Run_BundleCacheSkipsProducers(t *testing.T) {
	c := newTestCache()
	p := testProducers{
		fundamental:  scoring(models.ProducerFundamental, 60),
		technical:    scoring(models.ProducerTechnical, 61),
		sentimentEco: scoring(models.ProducerSentimentEco, 62),
	}
	o := newTestOrchestrator(t, c, true, p)

	first, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Drop the per-producer entries so only the bundle can satisfy the second run
	for _, name := range models.Producers {
		c.Invalidate(cache.ProducerKey(testRequest, name))
	}

	second, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if p.totalCalls() != 3 {
		t.Errorf("producer calls = %d, want 3", p.totalCalls())
	}
	if first != second {
		t.Error("second run should return the cached bundle")
	}
}

func TestOrchestrator_Run_OneFailureDegrades(t *testing.T) {
	c := newTestCache()
	p := testProducers{
		fundamental:  scoring(models.ProducerFundamental, 70),
		technical:    failing(models.ProducerTechnical, errTransient),
		sentimentEco: scoring(models.ProducerSentimentEco, 65),
	}
	o := newTestOrchestrator(t, c, true, p)

	bundle, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !bundle.Degraded {
		t.Error("Degraded = false, want true")
	}
	if bundle.Technical.Score != models.NeutralScore || bundle.Technical.Confidence != models.NeutralConfidence {
		t.Errorf("technical slot = %+v, want neutral default", bundle.Technical)
	}
	if !bundle.Technical.Degraded || bundle.Technical.Producer != models.ProducerTechnical {
		t.Errorf("neutral default should be tagged with its producer: %+v", bundle.Technical)
	}
	if len(bundle.Failures) != 1 || bundle.Failures[0].Producer != models.ProducerTechnical {
		t.Errorf("Failures = %+v, want technical", bundle.Failures)
	}
	if bundle.Failures[0].Code != services.CodeUnavailable {
		t.Errorf("failure code = %q, want %q", bundle.Failures[0].Code, services.CodeUnavailable)
	}
	if _, ok := c.Get(cache.BundleKey(testRequest)); ok {
		t.Error("degraded bundle must not be cached")
	}
}

func TestOrchestrator_Run_InsufficientResults(t *testing.T) {
	p := testProducers{
		fundamental:  failing(models.ProducerFundamental, errUnauthorized),
		technical:    failing(models.ProducerTechnical, errTransient),
		sentimentEco: scoring(models.ProducerSentimentEco, 65),
	}
	o := newTestOrchestrator(t, newTestCache(), true, p)

	bundle, err := o.Run(context.Background(), testRequest, "")
	if bundle != nil {
		t.Error("no bundle should be returned")
	}

	var ire *InsufficientResultsError
	if !errors.As(err, &ire) {
		t.Fatalf("expected *InsufficientResultsError, got %v", err)
	}
	if ire.Succeeded != 1 || ire.Required != 2 {
		t.Errorf("Succeeded/Required = %d/%d, want 1/2", ire.Succeeded, ire.Required)
	}
	if len(ire.Failures) != 2 {
		t.Fatalf("Failures = %+v, want 2", ire.Failures)
	}
	if ire.Failures[0].Producer != models.ProducerFundamental || ire.Failures[1].Producer != models.ProducerTechnical {
		t.Errorf("Failures should be in producer order: %+v", ire.Failures)
	}
	if !ire.Unauthorized() {
		t.Error("Unauthorized() = false, want true")
	}
}

func TestOrchestrator_Run_DegradedDisallowed(t *testing.T) {
	p := testProducers{
		fundamental:  scoring(models.ProducerFundamental, 70),
		technical:    scoring(models.ProducerTechnical, 70),
		sentimentEco: failing(models.ProducerSentimentEco, errTransient),
	}
	o := newTestOrchestrator(t, newTestCache(), false, p)

	_, err := o.Run(context.Background(), testRequest, "")

	var ire *InsufficientResultsError
	if !errors.As(err, &ire) {
		t.Fatalf("expected *InsufficientResultsError, got %v", err)
	}
	if ire.Required != 3 {
		t.Errorf("Required = %d, want 3", ire.Required)
	}
}

func TestOrchestrator_Run_FailureDoesNotCancelOthers(t *testing.T) {
	slow := &fakeProducer{
		name: models.ProducerSentimentEco,
		fn: func(ctx context.Context, call int) (*models.AnalysisResult, error) {
			select {
			case <-time.After(50 * time.Millisecond):
				return result(66, 0.6), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	p := testProducers{
		fundamental:  scoring(models.ProducerFundamental, 70),
		technical:    failing(models.ProducerTechnical, errUnauthorized),
		sentimentEco: slow,
	}
	o := newTestOrchestrator(t, newTestCache(), true, p)

	bundle, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if bundle.SentimentEco.Score != 66 {
		t.Errorf("slow producer score = %d, want 66", bundle.SentimentEco.Score)
	}
}

func TestOrchestrator_Run_TimeframeKeysAreSeparate(t *testing.T) {
	c := newTestCache()
	p := testProducers{
		fundamental:  scoring(models.ProducerFundamental, 60),
		technical:    scoring(models.ProducerTechnical, 60),
		sentimentEco: scoring(models.ProducerSentimentEco, 60),
	}
	o := newTestOrchestrator(t, c, true, p)

	short := models.NewAnalysisRequest("AAPL", models.ContextTrading, models.Timeframe1D)
	long := models.NewAnalysisRequest("aapl", models.ContextTrading, models.Timeframe1Y)

	o.Run(context.Background(), short, "")
	o.Run(context.Background(), long, "")
	o.Run(context.Background(), models.NewAnalysisRequest(" aapl ", models.ContextTrading, models.Timeframe1D), "")

	if p.totalCalls() != 6 {
		t.Errorf("producer calls = %d, want 6", p.totalCalls())
	}
}

func TestOrchestrator_Run_BundleExpiresWithOldestInput(t *testing.T) {
	start := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	now := start
	c := cache.NewMemoryCache(cache.DefaultTTLs(), cache.WithClock(func() time.Time { return now }))
	p := testProducers{
		fundamental: &fakeProducer{
			name: models.ProducerFundamental,
			fn: func(ctx context.Context, call int) (*models.AnalysisResult, error) {
				if call == 1 {
					return nil, errUnauthorized
				}
				return result(70, 0.8), nil
			},
		},
		technical:    scoring(models.ProducerTechnical, 65),
		sentimentEco: scoring(models.ProducerSentimentEco, 60),
	}
	o := newTestOrchestrator(t, c, true, p)

	// t=0: degraded run caches technical and sentiment only
	if _, err := o.Run(context.Background(), testRequest, ""); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// t=4m: full run reuses the 4 minute old technical result
	now = start.Add(4 * time.Minute)
	bundle, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if bundle.Degraded {
		t.Fatal("second run should not be degraded")
	}
	if want := start.Add(cache.DefaultTechnicalTTL); !bundle.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", bundle.ExpiresAt, want)
	}
	if got, ok := c.Expiry(cache.BundleKey(testRequest)); !ok || !got.Equal(bundle.ExpiresAt) {
		t.Errorf("bundle Expiry() = %v, %v, want %v", got, ok, bundle.ExpiresAt)
	}

	// t=8m: the technical input is stale so the bundle must be too
	now = start.Add(8 * time.Minute)
	third, err := o.Run(context.Background(), testRequest, "")
	if err != nil {
		t.Fatalf("third Run() error = %v", err)
	}
	if third == bundle {
		t.Error("third run served a bundle older than its technical input")
	}
	if p.technical.Calls() != 2 {
		t.Errorf("technical calls = %d, want 2", p.technical.Calls())
	}
	if p.fundamental.Calls() != 2 {
		t.Errorf("fundamental calls = %d, want 2", p.fundamental.Calls())
	}
}
