package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tradelens/agents"
	"tradelens/cache"
	"tradelens/config"
	"tradelens/internal/credentials"
	"tradelens/models"
	"tradelens/observability"
	"tradelens/services"
	"tradelens/synthesis"
)

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
}

// CredentialResolver resolves and forgets per-user producer credentials
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string) (models.APIKey, error)
	Invalidate(userID string)
}

// OrchestratorInterface runs the producer fan-out
type OrchestratorInterface interface {
	Run(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*agents.Bundle, error)
}

// SynthesizerInterface combines producer results
type SynthesizerInterface interface {
	Synthesize(req models.AnalysisRequest, fundamental, technical, sentimentEco *models.AnalysisResult) (*models.SynthesisResult, error)
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg          *config.Config
	repo         RepositoryInterface
	resolver     CredentialResolver
	orchestrator OrchestratorInterface
	synthesizer  SynthesizerInterface
	cache        cache.Cache
	breakers     *services.CircuitBreakerRegistry
	analysisSem  chan struct{}
}

// Deps groups the collaborators App is built from
type Deps struct {
	Repo         RepositoryInterface
	Resolver     CredentialResolver
	Orchestrator OrchestratorInterface
	Synthesizer  SynthesizerInterface
	Cache        cache.Cache
	Breakers     *services.CircuitBreakerRegistry
}

// New creates a new App
func New(cfg *config.Config, deps Deps) *App {
	return &App{
		cfg:          cfg,
		repo:         deps.Repo,
		resolver:     deps.Resolver,
		orchestrator: deps.Orchestrator,
		synthesizer:  deps.Synthesizer,
		cache:        deps.Cache,
		breakers:     deps.Breakers,
		analysisSem:  make(chan struct{}, cfg.Analysis.ConcurrencyLimit),
	}
}

// Shutdown releases held resources
func (a *App) Shutdown(ctx context.Context) {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Repo returns the repository interface for API handlers
func (a *App) Repo() RepositoryInterface {
	return a.repo
}

// Breakers returns the producer circuit-breaker registry, which may be nil
func (a *App) Breakers() *services.CircuitBreakerRegistry {
	return a.breakers
}

// Analyze resolves the caller's credential, runs the producers and returns
// the synthesized response. Every failure is an *models.AppError.
func (a *App) Analyze(ctx context.Context, userID string, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	metrics.RecordAnalysisRequest(string(req.Context))

	result, err := a.analyze(ctx, userID, req)
	if err != nil {
		appErr := models.AsAppError(err)
		metrics.RecordAnalysisError(string(appErr.Code))
		timer.ObserveAnalysis(string(req.Context), "error")
		return nil, appErr
	}

	timer.ObserveAnalysis(string(req.Context), "success")
	metrics.RecordRecommendation(string(result.Recommendation), float64(result.SynthesisScore), result.Confidence)
	return models.NewAnalysisResponse(req.Ticker, result), nil
}

func (a *App) analyze(ctx context.Context, userID string, req models.AnalysisRequest) (*models.SynthesisResult, error) {
	if a.orchestrator == nil || a.synthesizer == nil || a.resolver == nil {
		return nil, models.NewAppError(models.CodeProcessingError, "analysis is not configured", nil)
	}
	if !req.Context.Valid() {
		return nil, models.NewAppError(models.CodeInvalidParameter, fmt.Sprintf("unknown context %q", req.Context), nil)
	}

	select {
	case a.analysisSem <- struct{}{}:
		defer func() { <-a.analysisSem }()
	default:
		return nil, models.NewAppError(models.CodeTooManyRequests, "too many concurrent analyses, try again later", nil)
	}

	logger := observability.WithSymbol(req.Ticker)

	key, err := a.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, credentialError(err)
	}

	synthesisKey := cache.SynthesisKey(req)
	if v, ok := a.cache.Get(synthesisKey); ok {
		if cached, ok := v.(*models.SynthesisResult); ok {
			logger.Debug("synthesis cache hit")
			return cached, nil
		}
	}

	bundle, err := a.orchestrator.Run(ctx, req, key)
	if err != nil {
		var ire *agents.InsufficientResultsError
		if errors.As(err, &ire) {
			if ire.Unauthorized() {
				a.resolver.Invalidate(userID)
			}
			return nil, models.NewAppError(models.CodeInsufficientResults, insufficientMessage(ire), err)
		}
		return nil, err
	}
	if bundle.Degraded {
		logger.Warn("synthesizing with degraded coverage", "failures", len(bundle.Failures))
		a.forgetRejectedCredential(userID, bundle.Failures)
	}

	result, err := a.synthesizer.Synthesize(req, bundle.Fundamental, bundle.Technical, bundle.SentimentEco)
	if err != nil {
		if errors.Is(err, synthesis.ErrContractViolation) {
			logger.Error("synthesis contract violation", "error", err)
		}
		return nil, models.NewAppError(models.CodeProcessingError, "analysis could not be completed", err)
	}

	if !bundle.Degraded && !bundle.ExpiresAt.IsZero() {
		a.cache.PutUntil(synthesisKey, result, bundle.ExpiresAt)
	}

	logger.Info("analysis complete",
		"context", req.Context,
		"score", result.SynthesisScore,
		"recommendation", result.Recommendation,
		"degraded", bundle.Degraded)
	return result, nil
}

func credentialError(err error) error {
	switch {
	case errors.Is(err, credentials.ErrMissingCredential):
		return models.NewAppError(models.CodeMissingCredential, "no API credential is stored for this user", err)
	case errors.Is(err, credentials.ErrDecryptionFailure), errors.Is(err, credentials.ErrInvalidFormat):
		return models.NewAppError(models.CodeInvalidCredential, "the stored API credential is invalid", err)
	default:
		return models.NewAppError(models.CodeProcessingError, "could not load API credential", err)
	}
}

// forgetRejectedCredential drops the cached credential when a producer rejected it
func (a *App) forgetRejectedCredential(userID string, failures []agents.ProducerFailure) {
	for _, f := range failures {
		if f.Code == services.CodeUnauthorized {
			a.resolver.Invalidate(userID)
			return
		}
	}
}

func insufficientMessage(ire *agents.InsufficientResultsError) string {
	parts := make([]string, 0, len(ire.Failures))
	for _, f := range ire.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Producer, f.Code))
	}
	return fmt.Sprintf("only %d of %d required analyses succeeded; failed: %s",
		ire.Succeeded, ire.Required, strings.Join(parts, ", "))
}

// AnalysisSemCapacity returns the capacity of the analysis semaphore (for testing)
func (a *App) AnalysisSemCapacity() int {
	return cap(a.analysisSem)
}
