// Package preflight validates the environment before indexing or
// serving: data directory access, disk space, and embedder readiness.
package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lorekeep/lorekeep/internal/embed"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the status as its string form.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

// IsCritical reports whether this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Options configures a preflight run.
type Options struct {
	// DataDir is where indexes and collections live.
	DataDir string

	// Embedder, when set, is probed for availability.
	Embedder embed.Embedder
}

// Run executes every check and returns the results in order.
func Run(ctx context.Context, opts Options) []CheckResult {
	results := []CheckResult{
		CheckDataDir(opts.DataDir),
		CheckDiskSpace(opts.DataDir),
	}
	if opts.Embedder != nil {
		results = append(results, CheckEmbedder(ctx, opts.Embedder))
	}
	return results
}

// HasCriticalFailures reports whether any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// CheckDataDir verifies the data directory exists (or can be created)
// and is writable.
func CheckDataDir(dir string) CheckResult {
	result := CheckResult{Name: "data_dir", Required: true}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	probe := filepath.Join(dir, ".preflight-probe")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = "writable"
	return result
}

// CheckEmbedder probes the embedding backend. Failure is a warning, not
// an error: search degrades to keyword and fuzzy without embeddings.
func CheckEmbedder(ctx context.Context, e embed.Embedder) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}

	if !e.Available(ctx) {
		result.Status = StatusWarn
		result.Message = "unavailable; semantic search disabled"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", e.ModelName(), e.Dimensions())
	return result
}
