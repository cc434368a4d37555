package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tradelens/cache"
	"tradelens/models"
	"tradelens/observability"
)

// MinSuccessfulProducers is the fewest live results a bundle may be built from
const MinSuccessfulProducers = 2

// Bundle is the set of producer results handed to synthesis
type Bundle struct {
	Fundamental  *models.AnalysisResult
	Technical    *models.AnalysisResult
	SentimentEco *models.AnalysisResult
	Degraded     bool              // at least one slot holds a neutral default
	Failures     []ProducerFailure // why the defaulted slots failed
	// ExpiresAt is the earliest expiry among the cached inputs. Zero for
	// bundles that are not cached.
	ExpiresAt time.Time
}

// Get returns the result in the named slot
func (b *Bundle) Get(name models.ProducerName) *models.AnalysisResult {
	switch name {
	case models.ProducerFundamental:
		return b.Fundamental
	case models.ProducerTechnical:
		return b.Technical
	case models.ProducerSentimentEco:
		return b.SentimentEco
	default:
		return nil
	}
}

func (b *Bundle) set(name models.ProducerName, r *models.AnalysisResult) {
	switch name {
	case models.ProducerFundamental:
		b.Fundamental = r
	case models.ProducerTechnical:
		b.Technical = r
	case models.ProducerSentimentEco:
		b.SentimentEco = r
	}
}

// Invoker is satisfied by Adapter
type Invoker interface {
	Name() models.ProducerName
	Invoke(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error)
}

// Orchestrator fans a request out to the three producers and applies the
// partial-failure policy to the settled results.
type Orchestrator struct {
	invokers      map[models.ProducerName]Invoker
	cache         cache.Cache
	allowDegraded bool
}

// NewOrchestrator creates a new Orchestrator. Exactly one invoker per
// producer name is required.
func NewOrchestrator(c cache.Cache, allowDegraded bool, invokers ...Invoker) (*Orchestrator, error) {
	byName := make(map[models.ProducerName]Invoker, len(invokers))
	for _, inv := range invokers {
		if _, dup := byName[inv.Name()]; dup {
			return nil, fmt.Errorf("duplicate producer %q", inv.Name())
		}
		byName[inv.Name()] = inv
	}
	for _, name := range models.Producers {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("missing producer %q", name)
		}
	}

	return &Orchestrator{
		invokers:      byName,
		cache:         c,
		allowDegraded: allowDegraded,
	}, nil
}

type settled struct {
	result *models.AnalysisResult
	err    *ProducerError
}

// Run returns the producer results for req. Every producer is allowed to
// settle; one failing never cancels the others.
func (o *Orchestrator) Run(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*Bundle, error) {
	logger := observability.WithSymbol(req.Ticker)
	bundleKey := cache.BundleKey(req)

	if v, ok := o.cache.Get(bundleKey); ok {
		if b, ok := v.(*Bundle); ok {
			logger.Debug("bundle cache hit")
			return b, nil
		}
	}

	slots := make([]settled, len(models.Producers))
	var g errgroup.Group
	for i, name := range models.Producers {
		inv := o.invokers[name]
		g.Go(func() error {
			result, err := inv.Invoke(ctx, req, key)
			if err != nil {
				slots[i].err = asProducerError(inv.Name(), err)
				return nil
			}
			slots[i].result = result
			return nil
		})
	}
	g.Wait()

	bundle := &Bundle{}
	var errs []*ProducerError
	succeeded := 0
	for i, name := range models.Producers {
		if slots[i].err != nil {
			errs = append(errs, slots[i].err)
			bundle.Failures = append(bundle.Failures, failureOf(slots[i].err))
			continue
		}
		bundle.set(name, slots[i].result)
		succeeded++
	}

	if len(errs) == 0 {
		if expiresAt, ok := o.inputExpiry(req); ok {
			bundle.ExpiresAt = expiresAt
			o.cache.PutUntil(bundleKey, bundle, expiresAt)
		}
		return bundle, nil
	}

	required := MinSuccessfulProducers
	if !o.allowDegraded {
		required = len(models.Producers)
	}
	if succeeded < required {
		logger.Warn("insufficient producer results",
			"succeeded", succeeded,
			"required", required)
		return nil, &InsufficientResultsError{
			Succeeded: succeeded,
			Required:  required,
			Failures:  bundle.Failures,
			Errs:      errs,
		}
	}

	metrics := observability.GetMetrics()
	for _, pe := range errs {
		bundle.set(pe.Producer, models.NeutralResult(pe.Producer))
		metrics.RecordDegraded(string(pe.Producer))
		logger.Warn("substituting neutral default",
			"producer", pe.Producer,
			"code", pe.Code)
	}
	bundle.Degraded = true
	return bundle, nil
}

// inputExpiry returns the earliest expiry of the cached producer results
// for req. It reports false if any of them is not cached.
func (o *Orchestrator) inputExpiry(req models.AnalysisRequest) (time.Time, bool) {
	var earliest time.Time
	for _, name := range models.Producers {
		expiresAt, ok := o.cache.Expiry(cache.ProducerKey(req, name))
		if !ok {
			return time.Time{}, false
		}
		if earliest.IsZero() || expiresAt.Before(earliest) {
			earliest = expiresAt
		}
	}
	return earliest, true
}

func asProducerError(name models.ProducerName, err error) *ProducerError {
	var pe *ProducerError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProducerError{
		Producer: name,
		Code:     "UNKNOWN",
		Err:      err,
	}
}
