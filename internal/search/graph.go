package search

import (
	"path"
	"sort"
	"strings"

	"github.com/lorekeep/lorekeep/internal/store"
)

// BoosterConfig parameterizes graph boosting. One Booster serves every
// layer that needs link-based rescoring; there is no second copy with
// its own constants.
type BoosterConfig struct {
	// BoostFactor is the per-hop score transfer factor.
	BoostFactor float64

	// MaxDistance is the propagation depth in hops.
	MaxDistance int

	// Enabled gates boosting; a disabled booster leaves scores alone.
	Enabled bool
}

// DefaultBoosterConfig returns the standard boost parameters.
func DefaultBoosterConfig() BoosterConfig {
	return BoosterConfig{BoostFactor: 0.3, MaxDistance: 1, Enabled: true}
}

// Booster rescores fused candidates by link-graph proximity: a note
// linked from an already-high-scoring note in the same candidate set
// gains score. Propagation is local to the candidates — no full-graph
// traversal.
type Booster struct {
	cfg BoosterConfig
}

// NewBooster builds a booster with the given parameters, filling zero
// values with defaults.
func NewBooster(cfg BoosterConfig) *Booster {
	if cfg.BoostFactor <= 0 {
		cfg.BoostFactor = 0.3
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = 1
	}
	return &Booster{cfg: cfg}
}

// Boost rescores candidates in place and returns whether any score
// changed. Seeds are vault paths: exact matches multiply a candidate's
// score by 1.5 before propagation, basename matches by 1.3. The caller
// re-sorts.
func (b *Booster) Boost(results []*HybridResult, seeds []string) bool {
	if !b.cfg.Enabled || len(results) < 1 {
		return false
	}

	adjacency := buildAdjacency(results)
	original := make([]float64, len(results))
	for i, r := range results {
		original[i] = r.Score
	}

	b.applySeedBoost(results, seeds)

	byPath := make(map[string]int, len(results))
	for i, r := range results {
		byPath[r.FilePath] = i
	}

	// Each hop reads the scores as they stood when the hop started, so a
	// boost received this hop does not re-propagate until the next one.
	for distance := 1; distance <= b.cfg.MaxDistance; distance++ {
		snapshot := make([]float64, len(results))
		for i, r := range results {
			snapshot[i] = r.Score
		}
		factor := b.cfg.BoostFactor / float64(distance)

		for i, r := range results {
			for neighbor := range adjacency[r.FilePath] {
				j, ok := byPath[neighbor]
				if !ok || j == i {
					continue
				}
				results[j].Score += snapshot[i] * factor
			}
		}
	}

	changed := false
	for i, r := range results {
		if r.Score != original[i] {
			r.GraphBoosted = true
			if original[i] > 0 {
				r.GraphBoostFactor = r.Score / original[i]
			}
			changed = true
		}
	}
	return changed
}

// applySeedBoost multiplies scores of candidates matching seed paths.
func (b *Booster) applySeedBoost(results []*HybridResult, seeds []string) {
	if len(seeds) == 0 {
		return
	}

	exact := make(map[string]struct{}, len(seeds))
	bases := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		exact[strings.ToLower(s)] = struct{}{}
		bases[normalizeNoteName(path.Base(s))] = struct{}{}
	}

	for _, r := range results {
		p := strings.ToLower(r.FilePath)
		if _, ok := exact[p]; ok {
			r.Score *= 1.5
			continue
		}
		if _, ok := bases[normalizeNoteName(path.Base(r.FilePath))]; ok {
			r.Score *= 1.3
		}
	}
}

// buildAdjacency resolves candidate links to candidate paths and returns
// an undirected adjacency set keyed by path. Links pointing outside the
// candidate set are dropped.
func buildAdjacency(results []*HybridResult) map[string]map[string]struct{} {
	variants := make(map[string]string, len(results)*4)
	basenames := make(map[string]string, len(results))
	for _, r := range results {
		base := strings.ToLower(path.Base(r.FilePath))
		basenames[base] = r.FilePath
		basenames[strings.TrimSuffix(base, path.Ext(base))] = r.FilePath
		for _, v := range nameVariants(r.FilePath) {
			variants[v] = r.FilePath
		}
	}

	adjacency := make(map[string]map[string]struct{}, len(results))
	link := func(a, b string) {
		if a == b {
			return
		}
		if adjacency[a] == nil {
			adjacency[a] = make(map[string]struct{})
		}
		if adjacency[b] == nil {
			adjacency[b] = make(map[string]struct{})
		}
		adjacency[a][b] = struct{}{}
		adjacency[b][a] = struct{}{}
	}

	for _, r := range results {
		for _, l := range append(append([]store.Link{}, r.Outgoing...), r.Incoming...) {
			if target := resolveLink(l, variants, basenames); target != "" {
				link(r.FilePath, target)
			}
		}
	}
	return adjacency
}

// resolveLink maps a link to a candidate path: resolved path first, then
// exact basename, then normalized variants, then substring containment.
func resolveLink(l store.Link, variants, basenames map[string]string) string {
	if l.Path != "" {
		if _, ok := variants[strings.ToLower(l.Path)]; ok {
			return variants[strings.ToLower(l.Path)]
		}
	}

	ref := strings.ToLower(strings.TrimSpace(l.Target))
	if ref == "" && l.Path != "" {
		ref = strings.ToLower(path.Base(l.Path))
	}
	if ref == "" {
		return ""
	}

	if p, ok := basenames[ref]; ok {
		return p
	}
	if p, ok := variants[normalizeNoteName(ref)]; ok {
		return p
	}

	// Last resort: substring containment either way. Deterministic pick
	// via sorted keys.
	norm := normalizeNoteName(ref)
	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, norm) || strings.Contains(norm, k) {
			return variants[k]
		}
	}
	return ""
}

// nameVariants generates normalized lookup keys for a vault path: the
// bare name, separator-swapped forms, a folder-prefixed form, and the
// full path itself.
func nameVariants(filePath string) []string {
	lower := strings.ToLower(filePath)
	base := path.Base(lower)
	name := strings.TrimSuffix(base, path.Ext(base))

	set := map[string]struct{}{
		lower:                    {},
		base:                     {},
		name:                     {},
		normalizeNoteName(name):  {},
		strings.ReplaceAll(name, " ", "_"): {},
		strings.ReplaceAll(name, " ", "-"): {},
	}
	if dir := path.Dir(lower); dir != "." && dir != "/" {
		set[path.Base(dir)+"/"+name] = struct{}{}
	}

	variants := make([]string, 0, len(set))
	for v := range set {
		variants = append(variants, v)
	}
	return variants
}

// normalizeNoteName lowercases, swaps spaces for hyphens, strips the
// extension and remaining special characters.
func normalizeNoteName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "_", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '/':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
