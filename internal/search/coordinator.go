package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lorekeep/lorekeep/internal/cache"
	"github.com/lorekeep/lorekeep/internal/config"
	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/provider"
	"github.com/lorekeep/lorekeep/internal/telemetry"
)

// healthWeights score each capability's contribution to overall search
// health. Semantic carries the most weight; losing fuzzy hurts least.
var healthWeights = map[provider.Type]int{
	provider.TypeSemantic: 40,
	provider.TypeKeyword:  35,
	provider.TypeFuzzy:    25,
}

// Coordinator routes queries across the configured providers: analyze,
// select strategies, fan out, fuse. A search degrades through provider
// failures; it never fails because of one.
type Coordinator struct {
	cfg       config.SearchConfig
	providers map[provider.Type]provider.Provider
	analyzer  Analyzer
	fusion    *Fusion
	cache     *cache.Cache[[]*HybridResult]
	metrics   *telemetry.SearchMetrics
	logger    *slog.Logger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithAnalyzer replaces the built-in heuristic analyzer.
func WithAnalyzer(a Analyzer) CoordinatorOption {
	return func(c *Coordinator) { c.analyzer = a }
}

// WithCache attaches a result cache.
func WithCache(rc *cache.Cache[[]*HybridResult]) CoordinatorOption {
	return func(c *Coordinator) { c.cache = rc }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *telemetry.SearchMetrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator builds a coordinator over the given providers. The
// fusion engine and graph booster come preassembled from cfg.
func NewCoordinator(cfg config.SearchConfig, graphCfg config.GraphConfig, providers []provider.Provider, opts ...CoordinatorOption) *Coordinator {
	byType := make(map[provider.Type]provider.Provider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}

	c := &Coordinator{
		cfg:       cfg,
		providers: byType,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.analyzer == nil {
		cached, err := NewCachedAnalyzer(NewHeuristicAnalyzer(), 0)
		if err != nil {
			c.analyzer = NewHeuristicAnalyzer()
		} else {
			c.analyzer = cached
		}
	}
	booster := NewBooster(BoosterConfig{
		BoostFactor: graphCfg.BoostFactor,
		MaxDistance: graphCfg.MaxDistance,
		Enabled:     graphCfg.Enabled,
	})
	c.fusion = NewFusion(booster, c.logger)
	return c
}

// Fusion exposes the fusion engine for standalone re-ranking.
func (c *Coordinator) Fusion() *Fusion {
	return c.fusion
}

// CoordinateSearch runs the full pipeline. It always returns a response;
// "no results" and "fewer strategies than planned" are success states,
// visible through Response.Degraded and Response.Outcomes.
func (c *Coordinator) CoordinateSearch(ctx context.Context, query string, opts Options) *Response {
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}
	if c.cfg.MaxLimit > 0 && limit > c.cfg.MaxLimit {
		limit = c.cfg.MaxLimit
	}
	opts.Limit = limit

	cacheKey := cache.Key(query, opts)
	if c.cache != nil && !opts.BypassCache {
		if cached, ok := c.cache.Get(cacheKey); ok {
			resp := &Response{
				Results:   cached,
				FromCache: true,
				Duration:  time.Since(start),
			}
			c.record(query, resp, nil)
			return resp
		}
	}

	analysis := c.analyzer.Analyze(query)
	capabilities := c.ValidateSearchCapabilities(ctx)
	strategies := c.determineStrategies(analysis, capabilities)

	c.logger.Debug("search plan",
		"query", query,
		"query_type", analysis.Type,
		"strategies", len(strategies))

	outcomes := c.executeStrategies(ctx, query, analysis, strategies, limit)

	var sets []*ResultSet
	degraded := false
	for _, o := range outcomes {
		if !o.Succeeded() {
			degraded = true
			continue
		}
		sets = append(sets, &ResultSet{
			Results:       o.Results,
			Weight:        o.Strategy.Weight,
			Method:        o.Strategy.Type,
			ExecutionTime: time.Since(start),
		})
	}

	resp := &Response{
		Results:  []*HybridResult{},
		Degraded: degraded,
		Outcomes: outcomes,
	}
	if len(sets) > 0 {
		resp.Results = c.fusion.Fuse(sets, FusionOptions{
			Strategy:       FusionRRF,
			MaxResults:     limit,
			ScoreThreshold: opts.ScoreThreshold,
			RRFConstant:    c.cfg.RRFConstant,
			SeedNotes:      opts.SeedNotes,
		})
	}
	resp.Duration = time.Since(start)

	if c.cache != nil && !opts.BypassCache && len(sets) > 0 {
		c.cache.Set(cacheKey, resp.Results)
	}

	c.record(query, resp, outcomes)
	return resp
}

// determineStrategies builds the execution plan: one strategy per
// available capability whose analysis weight clears the inclusion
// threshold, prioritized by fit.
func (c *Coordinator) determineStrategies(analysis *QueryAnalysis, capabilities map[provider.Type]bool) []Strategy {
	var strategies []Strategy
	for _, t := range provider.AllTypes() {
		if !capabilities[t] {
			continue
		}
		weight := analysis.Weights.For(t)
		if weight <= c.cfg.InclusionThreshold {
			continue
		}

		s := Strategy{
			Type:     t,
			Weight:   weight,
			Priority: int(weight * 100),
		}
		switch t {
		case provider.TypeSemantic:
			if analysis.Type == QueryConceptual || analysis.Type == QueryExploratory {
				s.Priority += 20
			}
			if len(analysis.TechnicalTerms) > 2 {
				s.Priority += 15
			}
		case provider.TypeKeyword:
			s.Threshold = c.cfg.KeywordThreshold
			if analysis.Type == QueryExact || len(analysis.ExactPhrases) > 0 {
				s.Priority += 25
			}
			if len(analysis.TechnicalTerms) > 0 {
				s.Priority += 10
			}
		case provider.TypeFuzzy:
			s.Threshold = c.cfg.FuzzyThreshold
			if analysis.Type == QueryExploratory {
				s.Priority += 15
			}
			for _, term := range analysis.FuzzyTerms {
				if len(term) > 8 {
					s.Priority += 10
					break
				}
			}
		}
		strategies = append(strategies, s)
	}

	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Priority > strategies[j].Priority
	})
	return strategies
}

// executeStrategies fans the plan out across providers and joins every
// outcome. Each strategy is isolated: its failure or timeout is recorded
// and never aborts siblings.
func (c *Coordinator) executeStrategies(ctx context.Context, query string, analysis *QueryAnalysis, strategies []Strategy, limit int) []*StrategyOutcome {
	outcomes := make([]*StrategyOutcome, len(strategies))

	g, ctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			outcomes[i] = c.runStrategy(ctx, query, analysis, strategy, limit)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// runStrategy executes one provider call under the per-strategy timeout.
func (c *Coordinator) runStrategy(ctx context.Context, query string, analysis *QueryAnalysis, strategy Strategy, limit int) *StrategyOutcome {
	outcome := &StrategyOutcome{Strategy: strategy}
	start := time.Now()

	if c.cfg.StrategyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.StrategyTimeout)
		defer cancel()
	}

	p := c.providers[strategy.Type]
	results, err := p.Search(ctx, query, provider.Options{
		Limit:     limit,
		Threshold: strategy.Threshold,
		Terms:     strategyTerms(analysis, strategy.Type),
	})
	outcome.Duration = time.Since(start)

	switch {
	case err == nil && ctx.Err() == context.DeadlineExceeded:
		outcome.Err = verrors.StrategyTimeout(string(strategy.Type))
	case err != nil:
		if ctx.Err() == context.DeadlineExceeded {
			outcome.Err = verrors.StrategyTimeout(string(strategy.Type))
		} else {
			outcome.Err = verrors.ProviderFailure(string(strategy.Type), err)
		}
	default:
		outcome.Results = results
	}

	if outcome.Err != nil {
		outcome.Error = outcome.Err.Error()
		c.logger.Warn("strategy failed",
			"strategy", strategy.Type,
			"duration_ms", outcome.Duration.Milliseconds(),
			"error", outcome.Err)
	}
	return outcome
}

// strategyTerms picks the analysis terms relevant to a strategy.
func strategyTerms(analysis *QueryAnalysis, t provider.Type) []string {
	switch t {
	case provider.TypeKeyword:
		if len(analysis.ExactPhrases) > 0 {
			return analysis.ExactPhrases
		}
		return analysis.Keywords
	case provider.TypeFuzzy:
		return analysis.FuzzyTerms
	}
	return nil
}

// ValidateSearchCapabilities probes each provider's availability.
func (c *Coordinator) ValidateSearchCapabilities(ctx context.Context) map[provider.Type]bool {
	capabilities := make(map[provider.Type]bool, len(c.providers))
	for t, p := range c.providers {
		capabilities[t] = p.Available(ctx)
	}
	return capabilities
}

// HealthStatus scores current capability against what is configured:
// the weighted share of configured providers that are available.
func (c *Coordinator) HealthStatus(ctx context.Context) *HealthStatus {
	capabilities := c.ValidateSearchCapabilities(ctx)

	attainable, available := 0, 0
	for t := range c.providers {
		attainable += healthWeights[t]
		if capabilities[t] {
			available += healthWeights[t]
		}
	}

	score := 0
	if attainable > 0 {
		score = available * 100 / attainable
	}
	return &HealthStatus{
		Capabilities: capabilities,
		Score:        score,
		Healthy:      score == 100,
	}
}

// InvalidateCache drops cached results covering the given note IDs. The
// cache is keyed by query, not note, so any mutation clears everything.
func (c *Coordinator) InvalidateCache(noteIDs ...string) {
	if c.cache == nil {
		return
	}
	c.cache.Invalidate("*")
}

// CacheStats reports result-cache behavior, nil without a cache.
func (c *Coordinator) CacheStats() *cache.Stats {
	if c.cache == nil {
		return nil
	}
	stats := c.cache.Stats()
	return &stats
}

// Metrics exposes the metrics collector, nil when not attached.
func (c *Coordinator) Metrics() *telemetry.SearchMetrics {
	return c.metrics
}

// record folds a finished search into metrics.
func (c *Coordinator) record(query string, resp *Response, outcomes []*StrategyOutcome) {
	if c.metrics == nil {
		return
	}

	event := telemetry.SearchEvent{
		Query:       query,
		ResultCount: len(resp.Results),
		Latency:     resp.Duration,
		FromCache:   resp.FromCache,
		Degraded:    resp.Degraded,
		Timestamp:   time.Now(),
	}
	for _, o := range outcomes {
		event.StrategiesRun = append(event.StrategiesRun, o.Strategy.Type)
		if !o.Succeeded() {
			event.StrategiesFailed = append(event.StrategiesFailed, o.Strategy.Type)
		}
	}
	c.metrics.Record(event)
}
