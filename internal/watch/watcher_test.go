// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestWatcher(t *testing.T, dir string, onTrigger func(ctx context.Context)) *Watcher {
	t.Helper()
	w, err := New(Config{
		Dir:          dir,
		Debounce:     150 * time.Millisecond,
		PollInterval: 25 * time.Millisecond,
		OnTrigger:    onTrigger,
		Logger:       log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return w
}

// TestWatcherDebounce verifies that rapid successive pack changes
// coalesce into a single trigger after the quiet period.
func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	triggered := make(chan struct{}, 10)

	w := newTestWatcher(t, dir, func(context.Context) {
		triggered <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Drop several pack archives in rapid succession, well within the
	// debounce window.
	for _, name := range []string{"a.zip", "b.zip", "c.zip"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for trigger")
	}

	// Settle to catch extra triggers from the same event burst.
	select {
	case <-triggered:
		t.Error("expected a single debounced trigger, got more than one")
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

// TestWatcherIgnoresIrrelevantFiles confirms that changes to files that
// cannot affect the merged output do not trigger a merge.
func TestWatcherIgnoresIrrelevantFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	triggered := make(chan struct{}, 10)

	w := newTestWatcher(t, dir, func(context.Context) {
		triggered <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-triggered:
		t.Error("irrelevant file change should not trigger a merge")
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

// TestWatcherDirRemoved verifies that deleting the watched directory is
// a fatal condition reported to the caller.
func TestWatcherDirRemoved(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	dir := filepath.Join(parent, "packs")

	w := newTestWatcher(t, dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give the watcher a moment to enter its loop, then pull the
	// directory out from under it.
	time.Sleep(50 * time.Millisecond)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Run() should fail when the watched directory disappears")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
}

// TestWatcherRunTwice ensures the single-use contract is enforced.
func TestWatcherRunTwice(t *testing.T) {
	t.Parallel()

	w := newTestWatcher(t, t.TempDir(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if err := w.Run(ctx); err == nil {
		t.Error("second Run() should return an error")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
}

// TestWatcherCreatesMissingDir verifies New creates the packs directory
// when it does not exist yet.
func TestWatcherCreatesMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "packs")
	_ = newTestWatcher(t, dir, nil)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("packs directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("packs path exists but is not a directory")
	}
}

func TestRelevantName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{name: "pack.mcmeta", want: true},
		{name: "pack.png", want: true},
		{name: "base.zip", want: true},
		{name: "seasonal-pack", want: true},
		{name: "notes.txt", want: false},
		{name: "pack.png.bak", want: false},
		{name: "archive.zip.part", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := relevantName(tt.name); got != tt.want {
				t.Errorf("relevantName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
