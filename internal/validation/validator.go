// Package validation checks that the backing collections a search type
// depends on exist and respond, and recovers them when they don't.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/store"
)

// SearchType names a search service whose dependencies can be validated.
type SearchType string

const (
	SearchHybrid    SearchType = "hybrid"
	SearchSemantic  SearchType = "semantic"
	SearchFuzzy     SearchType = "fuzzy"
	SearchMemory    SearchType = "memory"
	SearchSession   SearchType = "session"
	SearchWorkspace SearchType = "workspace"
)

// dependencySpec declares what a search type needs and where callers can
// go when it is down.
type dependencySpec struct {
	collections []string
	fallbacks   []SearchType
}

// dependencyTable is the static dependency declaration per search type.
var dependencyTable = map[SearchType]dependencySpec{
	SearchHybrid: {
		collections: []string{store.CollectionNotes, store.CollectionEmbeddings},
		fallbacks:   []SearchType{SearchFuzzy},
	},
	SearchSemantic: {
		collections: []string{store.CollectionNotes, store.CollectionEmbeddings},
		fallbacks:   []SearchType{SearchFuzzy},
	},
	SearchFuzzy: {
		collections: []string{store.CollectionNotes},
	},
	SearchMemory: {
		collections: []string{store.CollectionMemoryTraces},
		fallbacks:   []SearchType{SearchHybrid},
	},
	SearchSession: {
		collections: []string{store.CollectionSessions},
		fallbacks:   []SearchType{SearchMemory},
	},
	SearchWorkspace: {
		collections: []string{store.CollectionWorkspaceMeta},
		fallbacks:   []SearchType{SearchHybrid},
	},
}

// CollectionHealth is one collection's cached health verdict.
type CollectionHealth struct {
	Exists      bool      `json:"exists"`
	Accessible  bool      `json:"accessible"`
	ItemCount   int       `json:"item_count"`
	Issues      []string  `json:"issues,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Healthy reports whether the collection can serve queries.
func (h *CollectionHealth) Healthy() bool {
	return h.Exists && h.Accessible
}

// Result is the outcome of a dependency validation.
type Result struct {
	Valid                bool         `json:"valid"`
	MissingCollections   []string     `json:"missing_collections,omitempty"`
	CorruptedCollections []string     `json:"corrupted_collections,omitempty"`
	FallbackAvailable    bool         `json:"fallback_available"`
	Fallbacks            []SearchType `json:"fallbacks,omitempty"`
}

// RecoveryStatus reports how a failure-triggered recovery attempt ended.
type RecoveryStatus struct {
	Recovered bool         `json:"recovered"`
	Fallbacks []SearchType `json:"fallbacks,omitempty"`
	Err       error        `json:"-"`
}

// DefaultHealthTTL is the collection-health cache window. It is the only
// deliberate staleness in the search stack; mutations must invalidate it.
const DefaultHealthTTL = 30 * time.Second

// Validator owns the health cache and the recovery procedures.
type Validator struct {
	store     store.CollectionStore
	healthTTL time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	health map[string]*CollectionHealth

	// now is a clock hook for cache-expiry tests.
	now func() time.Time
}

// NewValidator builds a validator over the collection store. A zero TTL
// gets the default 30s window.
func NewValidator(s store.CollectionStore, healthTTL time.Duration, logger *slog.Logger) *Validator {
	if healthTTL <= 0 {
		healthTTL = DefaultHealthTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		store:     s,
		healthTTL: healthTTL,
		logger:    logger,
		health:    make(map[string]*CollectionHealth),
		now:       time.Now,
	}
}

// ValidateSearchDependencies checks every collection the search type
// requires, using cached health inside the TTL window.
func (v *Validator) ValidateSearchDependencies(ctx context.Context, searchType SearchType) (*Result, error) {
	spec, ok := dependencyTable[searchType]
	if !ok {
		return nil, verrors.New(verrors.ErrCodeInvalidOption,
			fmt.Sprintf("unknown search type %q", searchType), nil)
	}

	result := &Result{Valid: true}
	for _, name := range spec.collections {
		health := v.collectionHealth(ctx, name)
		if health.Healthy() {
			continue
		}
		result.Valid = false
		if !health.Exists {
			result.MissingCollections = append(result.MissingCollections, name)
		} else {
			result.CorruptedCollections = append(result.CorruptedCollections, name)
		}
	}

	if !result.Valid {
		result.Fallbacks = spec.fallbacks
		result.FallbackAvailable = len(spec.fallbacks) > 0
	}
	return result, nil
}

// EnsureCollectionsReady creates missing collections, soft-recovers
// corrupted ones, and re-validates. A still-invalid state raises a
// dependency error carrying the remediation data.
func (v *Validator) EnsureCollectionsReady(ctx context.Context, searchType SearchType) error {
	result, err := v.ValidateSearchDependencies(ctx, searchType)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	for _, name := range result.MissingCollections {
		if err := v.store.CreateCollection(ctx, name); err != nil {
			v.logger.Warn("failed to create collection", "collection", name, "error", err)
		}
	}
	for _, name := range result.CorruptedCollections {
		if err := v.recoverCollection(ctx, name); err != nil {
			v.logger.Warn("failed to recover collection", "collection", name, "error", err)
		}
	}

	v.InvalidateHealth(append(result.MissingCollections, result.CorruptedCollections...)...)

	result, err = v.ValidateSearchDependencies(ctx, searchType)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	code := verrors.ErrCodeCollectionMissing
	if len(result.MissingCollections) == 0 {
		code = verrors.ErrCodeCollectionCorrupted
	}
	depErr := verrors.New(code,
		fmt.Sprintf("search type %q has unmet dependencies", searchType), nil).
		WithDetail("search_type", string(searchType)).
		WithDetail("missing", strings.Join(result.MissingCollections, ",")).
		WithDetail("corrupted", strings.Join(result.CorruptedCollections, ",")).
		WithDetail("fallbacks", joinSearchTypes(result.Fallbacks))
	if result.FallbackAvailable {
		depErr = depErr.WithSuggestion(
			fmt.Sprintf("fall back to %s search", result.Fallbacks[0]))
	}
	return depErr
}

// HandleSearchFailure clears health state and retries recovery after a
// search against this type failed.
func (v *Validator) HandleSearchFailure(ctx context.Context, searchType SearchType, searchErr error) *RecoveryStatus {
	v.logger.Warn("search failure, attempting dependency recovery",
		"search_type", searchType, "error", searchErr)

	v.ClearHealthCache()

	if err := v.EnsureCollectionsReady(ctx, searchType); err != nil {
		status := &RecoveryStatus{Recovered: false, Err: err}
		if spec, ok := dependencyTable[searchType]; ok {
			status.Fallbacks = spec.fallbacks
		}
		return status
	}
	return &RecoveryStatus{Recovered: true}
}

// InvalidateHealth drops cached health for the named collections; with
// no arguments it drops everything.
func (v *Validator) InvalidateHealth(collections ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(collections) == 0 {
		v.health = make(map[string]*CollectionHealth)
		return
	}
	for _, name := range collections {
		delete(v.health, name)
	}
}

// ClearHealthCache drops all cached health verdicts.
func (v *Validator) ClearHealthCache() {
	v.InvalidateHealth()
}

// collectionHealth returns a cached verdict inside the TTL window or
// probes the collection: existence, count access, and a trial query.
func (v *Validator) collectionHealth(ctx context.Context, name string) *CollectionHealth {
	v.mu.Lock()
	if cached, ok := v.health[name]; ok && v.now().Sub(cached.LastChecked) <= v.healthTTL {
		v.mu.Unlock()
		return cached
	}
	v.mu.Unlock()

	health := v.probeCollection(ctx, name)

	v.mu.Lock()
	v.health[name] = health
	v.mu.Unlock()
	return health
}

func (v *Validator) probeCollection(ctx context.Context, name string) *CollectionHealth {
	health := &CollectionHealth{LastChecked: v.now()}

	exists, err := v.store.HasCollection(ctx, name)
	if err != nil {
		health.Issues = append(health.Issues, fmt.Sprintf("existence check failed: %v", err))
		return health
	}
	if !exists {
		health.Issues = append(health.Issues, "collection does not exist")
		return health
	}
	health.Exists = true

	count, err := v.store.Count(ctx, name)
	if err != nil {
		health.Issues = append(health.Issues, fmt.Sprintf("count failed: %v", err))
		return health
	}
	health.ItemCount = count

	// Trial query: an empty collection passes; a decode failure marks the
	// collection corrupted.
	if _, err := v.store.Query(ctx, name, store.QuerySpec{NResults: 1}); err != nil &&
		!errors.Is(err, store.ErrCollectionNotFound) {
		health.Issues = append(health.Issues, fmt.Sprintf("trial query failed: %v", err))
		return health
	}

	health.Accessible = true
	return health
}

// recoverCollection rebuilds a corrupted collection. Contents are
// dropped; the indexer repopulates on the next pass.
func (v *Validator) recoverCollection(ctx context.Context, name string) error {
	if err := v.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	if err := v.store.CreateCollection(ctx, name); err != nil {
		return fmt.Errorf("recreate collection %s: %w", name, err)
	}
	v.logger.Info("recovered collection", "collection", name)
	return nil
}

func joinSearchTypes(types []SearchType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
