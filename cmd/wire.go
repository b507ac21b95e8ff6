package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dealscout/internal/advisor"
	"github.com/sells-group/dealscout/internal/config"
	"github.com/sells-group/dealscout/internal/discovery"
	"github.com/sells-group/dealscout/internal/orchestrator"
	"github.com/sells-group/dealscout/internal/resilience"
	"github.com/sells-group/dealscout/pkg/anthropic"
)

// buildOrchestrator assembles the pipeline from config: discovery finder,
// Anthropic-backed advisor, and the orchestrator around them.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	if err := cfg.RequireAnthropic(); err != nil {
		return nil, err
	}

	finder, err := buildFinder(cfg.Discovery)
	if err != nil {
		return nil, err
	}

	adv := advisor.New(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		cfg.Anthropic.Temperature,
	)

	return orchestrator.New(finder, adv, orchestrator.Config{
		MaxOffers:     cfg.Pipeline.MaxOffers,
		TopK:          cfg.Pipeline.TopK,
		Workers:       cfg.Pipeline.Workers,
		FetchTimeout:  time.Duration(cfg.Pipeline.FetchTimeoutSecs) * time.Second,
		ScoreTimeout:  time.Duration(cfg.Pipeline.ScoreTimeoutSecs) * time.Second,
		AdviseTimeout: time.Duration(cfg.Pipeline.AdviseTimeoutSecs) * time.Second,
		ProgressEvery: cfg.Pipeline.ProgressEvery,
	}), nil
}

// buildFinder picks the discovery backend: configured marketplace sources
// when a sources file exists, otherwise the built-in static demo offers.
func buildFinder(cfg config.DiscoveryConfig) (discovery.Finder, error) {
	sources, err := discovery.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	var finder discovery.Finder
	if len(sources) == 0 {
		zap.L().Info("discovery: no sources configured, using static demo offers")
		finder = discovery.StaticFinder{}
	} else {
		zap.L().Info("discovery: using marketplace sources", zap.Int("sources", len(sources)))
		finder = discovery.NewHTTPFinder(sources, resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			ResetTimeout:     time.Duration(cfg.ResetTimeoutSecs) * time.Second,
		})
	}

	if cfg.CacheEnabled {
		finder = discovery.NewCachedFinder(finder, cfg.CacheSize, time.Duration(cfg.CacheTTLSecs)*time.Second)
	}

	return finder, nil
}
