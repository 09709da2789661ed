// SPDX-License-Identifier: MPL-2.0

// Package orchestrator runs the merge pipeline: merge, validate,
// optionally publish, and track the current artifact.
//
// The pipeline enforces at most one merge at a time. Triggers can come
// from the CLI and from the filesystem watcher concurrently; a trigger
// that arrives while a merge is running is rejected rather than queued,
// because the running merge already picks up the state of the packs
// directory and the watcher will fire again on further changes.
package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"packmerger/internal/artifact"
	"packmerger/internal/publish"
	"packmerger/internal/validate"

	"github.com/charmbracelet/log"
)

// ErrMergeInProgress is returned when a merge is requested while another
// one is still running.
var ErrMergeInProgress = errors.New("a merge is already in progress")

type (
	// Merger produces a merged artifact, or (nil, nil) when there is
	// nothing to merge.
	Merger interface {
		Merge() (*artifact.Artifact, error)
	}

	// Checker validates a merged archive.
	Checker interface {
		Validate(path string) *validate.Result
	}

	// State is an immutable snapshot of the pipeline after a completed
	// merge. Readers get a consistent view without locking.
	State struct {
		Artifact   *artifact.Artifact
		URL        string
		Validation *validate.Result
		MergedAt   time.Time
	}

	// Options configures a Pipeline.
	Options struct {
		Merger    Merger
		Checker   Checker
		Publisher publish.Publisher

		// AutoPublish publishes after every merge that produced an
		// artifact. A publish failure is logged and the merge still
		// counts; the previous URL is carried forward.
		AutoPublish bool

		// OnNewArtifact is called after a merge whose artifact hash
		// differs from the previous one. oldHex is empty on the first
		// merge. Called on the merging goroutine.
		OnNewArtifact func(oldHex, newHex string)

		Logger *log.Logger
	}

	// Pipeline coordinates merge runs. Safe for concurrent use.
	Pipeline struct {
		opts    Options
		logger  *log.Logger
		running atomic.Bool
		state   atomic.Pointer[State]
	}
)

// New creates a Pipeline. Merger is required; Checker and Publisher may
// be nil to skip those stages.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Running reports whether a merge is currently executing.
func (p *Pipeline) Running() bool { return p.running.Load() }

// Current returns the snapshot of the last completed merge, or nil if
// none has completed yet.
func (p *Pipeline) Current() *State { return p.state.Load() }

// RequestMerge starts a merge on a new goroutine. A request that arrives
// while a merge is running is dropped with a log line; see the package
// comment for why it is not queued.
func (p *Pipeline) RequestMerge(ctx context.Context) {
	go func() {
		if _, err := p.RunOnce(ctx); err != nil {
			if errors.Is(err, ErrMergeInProgress) {
				p.logger.Info("merge already in progress, ignoring trigger")
				return
			}
			p.logger.Error("merge failed", "err", err)
		}
	}()
}

// RunOnce executes one merge pipeline synchronously. It returns
// ErrMergeInProgress when another merge holds the guard, and (nil, nil)
// when the merger found nothing to do.
func (p *Pipeline) RunOnce(ctx context.Context) (*State, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrMergeInProgress
	}
	defer p.running.Store(false)

	a, err := p.opts.Merger.Merge()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}

	next := &State{Artifact: a, MergedAt: time.Now()}

	if p.opts.Checker != nil {
		next.Validation = p.opts.Checker.Validate(a.Path)
		if n := next.Validation.Errors(); n > 0 {
			p.logger.Error("merged pack has validation errors", "errors", n)
		}
	}

	prev := p.state.Load()
	oldHex := ""
	if prev != nil {
		oldHex = prev.Artifact.HexHash()
		next.URL = prev.URL
	}
	newHex := a.HexHash()
	changed := oldHex != newHex

	if p.opts.AutoPublish && p.opts.Publisher != nil {
		url, err := p.opts.Publisher.Publish(ctx, a)
		if err != nil {
			p.logger.Error("publish failed", "provider", p.opts.Publisher.Name(), "err", err)
		} else {
			next.URL = url
		}
	}

	p.state.Store(next)

	if changed {
		p.logger.Info("merged pack changed", "sha1", newHex)
		if p.opts.OnNewArtifact != nil {
			p.opts.OnNewArtifact(oldHex, newHex)
		}
	} else {
		p.logger.Info("merged pack unchanged", "sha1", newHex)
	}

	return next, nil
}
