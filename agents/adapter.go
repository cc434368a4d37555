package agents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"tradelens/cache"
	"tradelens/models"
	"tradelens/observability"
	"tradelens/services"
)

// RunRecorder persists producer run audit records
type RunRecorder interface {
	RecordProducerRun(ctx context.Context, run *models.ProducerRun) error
}

// AdapterConfig holds the invocation policy for one producer
type AdapterConfig struct {
	Timeout time.Duration // per attempt
	Retry   services.RetryConfig
}

// Adapter puts the result cache, a per-attempt timeout and bounded retries
// in front of one Producer.
type Adapter struct {
	producer Producer
	cache    cache.Cache
	config   AdapterConfig
	recorder RunRecorder
	group    singleflight.Group
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithRunRecorder records every live invocation
func WithRunRecorder(r RunRecorder) AdapterOption {
	return func(a *Adapter) {
		a.recorder = r
	}
}

// NewAdapter creates a new Adapter
func NewAdapter(producer Producer, c cache.Cache, config AdapterConfig, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		producer: producer,
		cache:    c,
		config:   config,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the wrapped producer's name
func (a *Adapter) Name() models.ProducerName {
	return a.producer.Name()
}

// Invoke returns the cached result for req or calls the producer.
// The live call is detached from ctx: if the caller goes away, Invoke
// returns early but the call and its retries finish and fill the cache.
// Concurrent invocations for the same key and credential share one call.
func (a *Adapter) Invoke(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error) {
	name := a.Name()
	cacheKey := cache.ProducerKey(req, name)

	if v, ok := a.cache.Get(cacheKey); ok {
		if result, ok := v.(*models.AnalysisResult); ok {
			observability.WithProducer(string(name)).Debug("producer cache hit", "ticker", req.Ticker)
			return result, nil
		}
	}

	detached := context.WithoutCancel(ctx)
	ch := a.group.DoChan(flightKey(cacheKey, key), func() (any, error) {
		return a.invoke(detached, cacheKey, req, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AnalysisResult), nil
	case <-ctx.Done():
		return nil, &ProducerError{
			Producer: name,
			Code:     CodeCancelled,
			Err:      ctx.Err(),
		}
	}
}

func (a *Adapter) invoke(ctx context.Context, cacheKey cache.Key, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error) {
	name := a.Name()
	logger := observability.WithProducer(string(name))
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	run := models.NewProducerRun(name, req)

	retry := a.config.Retry
	retry.OnRetry = func(attempt int, err error) {
		metrics.RecordProducerRetry(string(name))
		logger.Warn("retrying producer call",
			"ticker", req.Ticker,
			"retry", attempt,
			"error", err)
	}

	var result *models.AnalysisResult
	attempts := 0
	err := services.WithRetry(ctx, retry, func() error {
		attempts++
		res, err := a.attempt(ctx, req, key)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	timer.ObserveProducer(string(name))

	if err != nil {
		pe := &ProducerError{
			Producer:  name,
			Code:      services.ErrorCode(err),
			Retryable: services.IsRetryable(err),
			Attempts:  attempts,
			Err:       err,
		}
		metrics.RecordProducerError(string(name), pe.Code)
		logger.Warn("producer failed",
			"ticker", req.Ticker,
			"code", pe.Code,
			"attempts", attempts,
			"error", err)
		run.Fail(pe.Code, err, attempts)
		a.record(ctx, run)
		return nil, pe
	}

	a.cache.Put(cacheKey, result, cache.ClassFor(name))
	metrics.RecordProducerScore(string(name), float64(result.Score))
	run.Complete(result, attempts)
	a.record(ctx, run)
	return result, nil
}

// attempt makes a single bounded call and checks the result contract
func (a *Adapter) attempt(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	result, err := a.producer.Analyze(ctx, req, key)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &services.APIError{
			Service: string(a.Name()),
			Code:    services.CodeMalformedResponse,
			Message: "empty result",
		}
	}
	if err := result.Validate(); err != nil {
		return nil, &services.APIError{
			Service: string(a.Name()),
			Code:    services.CodeMalformedResponse,
			Message: err.Error(),
		}
	}

	normalized := *result
	normalized.Producer = a.Name()
	normalized.Degraded = false
	if normalized.Factors == nil {
		normalized.Factors = []models.Factor{}
	}
	if normalized.Metadata == nil {
		normalized.Metadata = map[string]interface{}{}
	}
	if normalized.DataSources == nil {
		normalized.DataSources = []string{}
	}
	return &normalized, nil
}

// flightKey scopes call sharing to one credential so a rejected key never
// answers for another caller. Only a digest prefix of the key is used.
func flightKey(cacheKey cache.Key, key models.APIKey) string {
	sum := sha256.Sum256([]byte(key.Reveal()))
	return cacheKey.String() + "#" + hex.EncodeToString(sum[:8])
}

func (a *Adapter) record(ctx context.Context, run *models.ProducerRun) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordProducerRun(ctx, run); err != nil {
		observability.WithProducer(string(run.Producer)).Warn("failed to record producer run", "error", err)
	}
}

// IsProducerError reports whether err came from a producer invocation
func IsProducerError(err error) bool {
	var pe *ProducerError
	return errors.As(err, &pe)
}
