package search

import (
	"fmt"
	"log/slog"
	"sort"

	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/provider"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// FusionStrategy selects the rank-aggregation algorithm.
type FusionStrategy string

const (
	// FusionRRF is Reciprocal Rank Fusion, the default.
	FusionRRF FusionStrategy = "rrf"

	// FusionWeighted sums weight × original score with no rank decay.
	FusionWeighted FusionStrategy = "weighted"

	// FusionSimple concatenates and dedupes, keeping the best score per
	// note. Also the automatic fallback when another algorithm fails.
	FusionSimple FusionStrategy = "simple"
)

// FusionOptions configures one fuse call.
type FusionOptions struct {
	// Strategy defaults to rrf.
	Strategy FusionStrategy

	// MaxResults truncates the fused list (default: 50).
	MaxResults int

	// ScoreThreshold filters fused results by minimum score.
	ScoreThreshold float64

	// RRFConstant overrides k (default: 60).
	RRFConstant int

	// SeedNotes feed the graph booster's seed boost.
	SeedNotes []string

	// DisableGraphBoost skips boosting on the RRF path for this call.
	DisableGraphBoost bool
}

// Fusion merges weighted per-strategy result sets into one ranking.
type Fusion struct {
	booster *Booster
	logger  *slog.Logger
}

// NewFusion builds a fusion engine sharing the given booster.
func NewFusion(booster *Booster, logger *slog.Logger) *Fusion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fusion{booster: booster, logger: logger}
}

// Fuse merges result sets with the chosen algorithm. A failing algorithm
// is recovered by falling back to simple concat+dedupe; fusion never
// fails a search.
func (f *Fusion) Fuse(sets []*ResultSet, opts FusionOptions) []*HybridResult {
	if len(sets) == 0 {
		return []*HybridResult{}
	}
	if opts.Strategy == "" {
		opts.Strategy = FusionRRF
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	if opts.RRFConstant <= 0 {
		opts.RRFConstant = DefaultRRFConstant
	}

	fused, err := f.fuseWith(sets, opts)
	if err != nil {
		vErr := verrors.FusionFailure(string(opts.Strategy), err)
		f.logger.Warn("fusion failed, falling back to simple merge",
			"strategy", opts.Strategy, "error", vErr)
		fused = f.fuseSimple(sets)
	}

	return finalize(fused, opts)
}

// fuseWith dispatches to the selected algorithm, converting panics into
// errors so the fallback path can take over.
func (f *Fusion) fuseWith(sets []*ResultSet, opts FusionOptions) (fused []*HybridResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fusion panic: %v", r)
		}
	}()

	switch opts.Strategy {
	case FusionRRF:
		fused = f.fuseRRF(sets, opts)
	case FusionWeighted:
		fused = f.fuseWeighted(sets)
	case FusionSimple:
		fused = f.fuseSimple(sets)
	default:
		return nil, fmt.Errorf("unknown fusion strategy %q", opts.Strategy)
	}
	return fused, nil
}

// fuseRRF accumulates weight/(k+rank+1) per note across sets, sorts by
// accumulated score, then applies the graph booster and re-sorts.
func (f *Fusion) fuseRRF(sets []*ResultSet, opts FusionOptions) []*HybridResult {
	k := float64(opts.RRFConstant)
	merged := make(map[string]*HybridResult)
	var order []string

	for _, set := range sets {
		for rank, r := range set.Results {
			contribution := set.Weight / (k + float64(rank) + 1)

			h, ok := merged[r.ID]
			if !ok {
				h = newHybridResult(r)
				h.Score = 0
				merged[r.ID] = h
				order = append(order, r.ID)
			}
			h.Score += contribution
			recordMethod(h, set.Method, r.Score)
		}
	}

	fused := make([]*HybridResult, 0, len(order))
	for _, id := range order {
		fused = append(fused, merged[id])
	}
	sortByScore(fused)

	if f.booster != nil && !opts.DisableGraphBoost {
		if f.booster.Boost(fused, opts.SeedNotes) {
			sortByScore(fused)
		}
	}
	return fused
}

// fuseWeighted sums weight × original score per note. No rank decay, no
// graph boosting.
func (f *Fusion) fuseWeighted(sets []*ResultSet) []*HybridResult {
	merged := make(map[string]*HybridResult)
	var order []string

	for _, set := range sets {
		for _, r := range set.Results {
			h, ok := merged[r.ID]
			if !ok {
				h = newHybridResult(r)
				h.Score = 0
				merged[r.ID] = h
				order = append(order, r.ID)
			}
			h.Score += set.Weight * r.Score
			recordMethod(h, set.Method, r.Score)
		}
	}

	fused := make([]*HybridResult, 0, len(order))
	for _, id := range order {
		fused = append(fused, merged[id])
	}
	sortByScore(fused)
	return fused
}

// fuseSimple concatenates and dedupes, keeping each note's best score.
func (f *Fusion) fuseSimple(sets []*ResultSet) []*HybridResult {
	merged := make(map[string]*HybridResult)
	var order []string

	for _, set := range sets {
		for _, r := range set.Results {
			h, ok := merged[r.ID]
			if !ok {
				h = newHybridResult(r)
				merged[r.ID] = h
				order = append(order, r.ID)
			} else if r.Score > h.Score {
				h.Score = r.Score
			}
			recordMethod(h, set.Method, r.Score)
		}
	}

	fused := make([]*HybridResult, 0, len(order))
	for _, id := range order {
		fused = append(fused, merged[id])
	}
	sortByScore(fused)
	return fused
}

// RankResults re-ranks an existing result list outside the primary fuse
// path. Supported strategies: rrf (re-rank by current order), weighted
// (custom per-method weights on MethodScores), linear (sort by score).
func (f *Fusion) RankResults(results []*HybridResult, strategy FusionStrategy, weights map[provider.Type]float64) ([]*HybridResult, error) {
	switch strategy {
	case FusionRRF:
		ranked := make([]*HybridResult, len(results))
		copy(ranked, results)
		for i, r := range ranked {
			r.Score = 1 / (DefaultRRFConstant + float64(i) + 1)
		}
		sortByScore(ranked)
		assignRanks(ranked)
		return ranked, nil
	case FusionWeighted:
		ranked := make([]*HybridResult, len(results))
		copy(ranked, results)
		for _, r := range ranked {
			var score float64
			for method, original := range r.MethodScores {
				w, ok := weights[method]
				if !ok {
					w = 1
				}
				score += w * original
			}
			r.Score = score
		}
		sortByScore(ranked)
		assignRanks(ranked)
		return ranked, nil
	case "linear":
		ranked := make([]*HybridResult, len(results))
		copy(ranked, results)
		sortByScore(ranked)
		assignRanks(ranked)
		return ranked, nil
	default:
		return nil, fmt.Errorf("unknown ranking strategy %q", strategy)
	}
}

// finalize filters by threshold, truncates, and assigns final ranks.
func finalize(fused []*HybridResult, opts FusionOptions) []*HybridResult {
	if opts.ScoreThreshold > 0 {
		kept := fused[:0]
		for _, r := range fused {
			if r.Score >= opts.ScoreThreshold {
				kept = append(kept, r)
			}
		}
		fused = kept
	}
	if len(fused) > opts.MaxResults {
		fused = fused[:opts.MaxResults]
	}
	assignRanks(fused)
	return fused
}

func newHybridResult(r *provider.Result) *HybridResult {
	return &HybridResult{
		Result:       *r,
		MethodScores: make(map[provider.Type]float64),
	}
}

func recordMethod(h *HybridResult, method provider.Type, score float64) {
	if _, seen := h.MethodScores[method]; !seen {
		h.OriginalMethods = append(h.OriginalMethods, method)
		h.MethodScores[method] = score
	}
}

// sortByScore orders by score descending with ID as the deterministic
// tie-break.
func sortByScore(results []*HybridResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

func assignRanks(results []*HybridResult) {
	for i, r := range results {
		r.FinalRank = i + 1
	}
}
