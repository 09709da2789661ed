// SPDX-License-Identifier: MPL-2.0

// Package watch monitors the packs directory and triggers debounced
// re-merges when pack files change.
//
// Only the top level of the packs directory is watched: packs are added
// and removed there, and edits inside an unzipped pack directory update
// its modification time. Events are debounced with a timestamp-and-poll
// scheme so that bulk operations, like copying a new pack folder in,
// produce a single trigger after the configured quiet period instead of
// one merge per file.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce     = 5 * time.Second
	defaultPollInterval = time.Second
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the packs directory to monitor. It is created when absent.
		Dir string

		// Debounce is the quiet period after the last relevant event before
		// OnTrigger fires. Zero or negative falls back to 5s.
		Debounce time.Duration

		// PollInterval is how often the debounce timer is checked. Zero or
		// negative falls back to 1s.
		PollInterval time.Duration

		// OnTrigger is called once per quiet period after relevant changes.
		// It runs on the watcher's goroutine; a slow trigger delays further
		// event processing, which is acceptable because a merge supersedes
		// any events that arrived while it ran. A nil callback is a no-op.
		OnTrigger func(ctx context.Context)

		// Logger for watcher lifecycle and event messages. nil falls back to
		// the default logger.
		Logger *log.Logger
	}

	// Watcher monitors the packs directory. Run must be called exactly
	// once; a second call returns an error.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		logger   *log.Logger
		debounce time.Duration
		poll     time.Duration
		started  atomic.Bool
	}
)

// New creates a Watcher for cfg.Dir, creating the directory when it does
// not exist yet.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch: packs directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("watch: create packs directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("watch: watch %q: %w", cfg.Dir, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		poll:     poll,
	}, nil
}

// Run blocks until ctx is cancelled, firing OnTrigger after each quiet
// period that follows relevant pack changes. It returns nil on clean
// cancellation. The watched directory disappearing and fsnotify resource
// exhaustion are fatal and returned as errors; the caller decides
// whether to restart.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing fsnotify watcher", "err", err)
		}
	}()

	w.logger.Info("file watcher started", "dir", w.cfg.Dir)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	// Debounce state: zero means no trigger pending, otherwise the time of
	// the last relevant event. The ticker fires the trigger once the quiet
	// period has elapsed.
	var lastEvent time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped")
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			name := filepath.Base(evt.Name)
			if !relevantName(name) {
				continue
			}
			w.logger.Debug("file change detected", "op", evt.Op.String(), "file", name)
			if lastEvent.IsZero() {
				w.logger.Info("pack file change detected, waiting for quiet period before merging",
					"debounce", w.debounce)
			}
			lastEvent = time.Now()

		case <-ticker.C:
			if !lastEvent.IsZero() && time.Since(lastEvent) >= w.debounce {
				lastEvent = time.Time{}
				w.logger.Info("debounce complete, triggering auto-merge")
				if w.cfg.OnTrigger != nil {
					w.cfg.OnTrigger(ctx)
				}
			}
			// The kernel stops delivering events when the watched directory
			// itself is removed; detect that here and bail out.
			if info, err := os.Stat(w.cfg.Dir); err != nil || !info.IsDir() {
				return fmt.Errorf("watch: packs directory %q no longer exists", w.cfg.Dir)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// isFatalWatchError is platform-specific (see watcher_fatal_*.go).
			if isFatalWatchError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// relevantName reports whether a change to the named directory entry can
// affect the merged output: the root override files, zip pack archives,
// and extensionless names (unzipped pack directories).
func relevantName(name string) bool {
	switch {
	case name == "pack.mcmeta" || name == "pack.png":
		return true
	case strings.HasSuffix(name, ".zip"):
		return true
	case !strings.Contains(name, "."):
		return true
	}
	return false
}
