package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// VaultWatcher watches a vault directory tree with fsnotify and emits
// debounced batches of markdown changes. Hidden directories are skipped;
// new subdirectories are picked up as they appear.
type VaultWatcher struct {
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewVaultWatcher creates a watcher for opts.Root.
func NewVaultWatcher(opts Options) (*VaultWatcher, error) {
	opts = opts.withDefaults()
	if opts.Root == "" {
		return nil, fmt.Errorf("watch root is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &VaultWatcher{
		opts:      opts,
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.Debounce),
		logger:    opts.Logger,
		done:      make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins forwarding events. It
// returns once watching is established; events flow until Close or
// context cancellation.
func (w *VaultWatcher) Start(ctx context.Context) error {
	root, err := filepath.Abs(w.opts.Root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	if err := w.addRecursive(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	go w.run(ctx)
	w.logger.Info("watching vault", "root", root)
	return nil
}

// Events returns the channel of debounced event batches.
func (w *VaultWatcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// Close stops watching and closes the event channel.
func (w *VaultWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	err := w.fsWatcher.Close()
	w.debouncer.Stop()
	return err
}

// run pumps fsnotify events into the debouncer.
func (w *VaultWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handle filters and converts one fsnotify event.
func (w *VaultWatcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	// New directories must be added to the watch set; fsnotify does not
	// recurse on its own.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
		return
	}

	var op Operation
	switch {
	case event.Op.Has(fsnotify.Create):
		op = OpCreate
	case event.Op.Has(fsnotify.Write):
		op = OpModify
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		// A rename looks like a delete here; the new name arrives as its
		// own create event.
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(Event{Path: event.Name, Op: op})
}

// addRecursive registers dir and every non-hidden subdirectory.
func (w *VaultWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}
