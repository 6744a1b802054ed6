// Package watcher monitors a vault directory and emits debounced
// batches of note changes so the indexer can keep the search indexes
// current while the server runs.
package watcher

import (
	"log/slog"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new note was created.
	OpCreate Operation = iota
	// OpModify indicates an existing note was modified.
	OpModify
	// OpDelete indicates a note was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Event represents a single vault file change.
type Event struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is the type of change.
	Op Operation
}

// Options configures a vault watcher.
type Options struct {
	// Root is the vault directory to watch.
	Root string

	// Debounce is the coalescing window for rapid events.
	// Defaults to 500ms.
	Debounce time.Duration

	// Logger receives watcher diagnostics.
	Logger *slog.Logger
}

// withDefaults fills zero option values.
func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
