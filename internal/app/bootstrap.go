package app

import (
	"fmt"
	"time"

	"tradelens/agents"
	"tradelens/cache"
	"tradelens/config"
	"tradelens/internal/credentials"
	"tradelens/models"
	"tradelens/observability"
	"tradelens/services"
	"tradelens/synthesis"
)

// Infra is the storage an App is bootstrapped over. Store is required;
// Repo and Recorder may be nil.
type Infra struct {
	Repo     RepositoryInterface
	Store    credentials.ProfileStore
	Recorder agents.RunRecorder
}

// Bootstrap wires the full analysis stack from configuration: credential
// resolver, result cache, one HTTP producer adapter per producer, the
// orchestrator and the synthesizer. The returned cache is the one App
// uses, so callers can start its sweeper.
func Bootstrap(cfg *config.Config, infra Infra) (*App, *cache.MemoryCache, error) {
	if infra.Store == nil {
		return nil, nil, fmt.Errorf("credential store is required")
	}

	crypto, err := credentials.NewCrypto(cfg.Credentials.Secret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize credential crypto: %w", err)
	}
	format, err := credentials.NewFormat(cfg.Credentials.Prefix, cfg.Credentials.BodyLength)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid credential format: %w", err)
	}

	var resolverOpts []credentials.ResolverOption
	if cfg.HasCredentialProbe() {
		probeTimeout := time.Duration(cfg.Credentials.ProbeTimeoutSeconds) * time.Second
		resolverOpts = append(resolverOpts, credentials.WithProber(credentials.NewHTTPProber(cfg.Credentials.ProbeURL, probeTimeout), probeTimeout))
	}
	resolver := credentials.NewResolver(infra.Store, crypto, format, cfg.CredentialCacheTTL(), resolverOpts...)

	var cacheOpts []cache.Option
	if cfg.Cache.MaxEntries > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	resultCache := cache.NewMemoryCache(cache.TTLsFromConfig(cfg.Cache), cacheOpts...)

	breakers := services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig)
	retry := services.RetryConfigFromAttempts(
		cfg.Producers.MaxAttempts,
		time.Duration(cfg.Producers.InitialBackoffMs)*time.Millisecond,
		time.Duration(cfg.Producers.MaxBackoffMs)*time.Millisecond,
	)

	var adapterOpts []agents.AdapterOption
	if cfg.Producers.RecordRuns && infra.Recorder != nil {
		adapterOpts = append(adapterOpts, agents.WithRunRecorder(infra.Recorder))
	}

	endpoints := []struct {
		name     models.ProducerName
		endpoint config.ProducerEndpoint
	}{
		{models.ProducerFundamental, cfg.Producers.Fundamental},
		{models.ProducerTechnical, cfg.Producers.Technical},
		{models.ProducerSentimentEco, cfg.Producers.SentimentEco},
	}

	invokers := make([]agents.Invoker, 0, len(endpoints))
	for _, ep := range endpoints {
		client := services.NewProducerClient(ep.name, ep.endpoint.URL, ep.endpoint.Timeout(), cfg.Producers.RateLimitPerSecond, breakers)
		invokers = append(invokers, agents.NewAdapter(client, resultCache, agents.AdapterConfig{
			Timeout: ep.endpoint.Timeout(),
			Retry:   retry,
		}, adapterOpts...))
	}

	orchestrator, err := agents.NewOrchestrator(resultCache, cfg.Synthesis.AllowDegraded, invokers...)
	if err != nil {
		return nil, nil, err
	}

	themes, err := config.LoadThemes(cfg.Synthesis.ThemesFile)
	if err != nil {
		return nil, nil, err
	}

	observability.Info("analysis stack ready",
		"fundamental_url", cfg.Producers.Fundamental.URL,
		"technical_url", cfg.Producers.Technical.URL,
		"sentiment_url", cfg.Producers.SentimentEco.URL,
		"allow_degraded", cfg.Synthesis.AllowDegraded,
		"strategy", cfg.Synthesis.Strategy,
		"record_runs", len(adapterOpts) > 0)

	application := New(cfg, Deps{
		Repo:         infra.Repo,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Synthesizer:  synthesis.NewSynthesizer(cfg.Synthesis, themes),
		Cache:        resultCache,
		Breakers:     breakers,
	})
	return application, resultCache, nil
}
