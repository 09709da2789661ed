// SPDX-License-Identifier: MPL-2.0

// Package engine combines resource packs into one merged archive.
//
// Packs are processed from lowest to highest priority so that a
// higher-priority pack naturally supersedes a lower one: overwrite-class
// paths via last-write-wins, merge-class paths by folding each new
// contribution into the accumulated tree with the new contribution as
// the high side. Override files placed directly at the packs root
// (pack.mcmeta, pack.png) are applied after all packs, bypassing
// priority entirely.
package engine

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"packmerger/internal/artifact"
	"packmerger/internal/issue"
	"packmerger/pkg/mergetree"
	"packmerger/pkg/pack"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/flate"
)

// Options configures a merge engine.
type Options struct {
	// PacksDir is the directory scanned for pack sources.
	PacksDir string
	// OutputPath is the merged archive's destination.
	OutputPath string
	// Priority lists pack names, first = highest priority.
	Priority []string
	// Include and Exclude are the active target's per-target rules.
	Include []string
	Exclude []string
	// IncludeUnlisted merges discovered packs absent from all lists at
	// lowest priority.
	IncludeUnlisted bool
	// StripJunk removes hidden files and OS/VCS metadata before merging.
	StripJunk bool
	// CompressionLevel is the zip deflate level, 0-9.
	CompressionLevel int
	// SizeWarningMB logs a warning above this size; 0 disables it.
	SizeWarningMB int
	// PackFormat and Description fill a synthesized pack.mcmeta when no
	// pack or override provides one.
	PackFormat  int
	Description string
}

// Engine performs merges. It is stateless between calls: every Merge
// re-discovers packs and rebuilds the order from scratch.
type Engine struct {
	opts   Options
	logger *log.Logger
}

// New creates an Engine. A nil logger falls back to the default logger.
func New(opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{opts: opts, logger: logger}
}

// mergedEntry is one accumulated merge-class tree plus the treatment it
// was classified with.
type mergedEntry struct {
	class mergetree.Class
	tree  *mergetree.Object
}

// Merge discovers packs, merges them in priority order, applies
// overrides, and writes the merged archive. It returns (nil, nil) when
// there is nothing to do — no packs discovered or an empty final file
// set — which is a legitimate outcome, not an error. Only output write
// failures return an error.
func (e *Engine) Merge() (*artifact.Artifact, error) {
	sources, err := pack.Discover(e.opts.PacksDir)
	if err != nil {
		e.logger.Warn("cannot read packs directory", "dir", e.opts.PacksDir, "err", err)
		return nil, nil
	}
	if len(sources) == 0 {
		e.logger.Warn("no resource packs found", "dir", e.opts.PacksDir)
		return nil, nil
	}

	byName := make(map[string]pack.Source, len(sources))
	available := make([]string, 0, len(sources))
	for _, src := range sources {
		byName[src.Name] = src
		available = append(available, src.Name)
	}
	e.logger.Info("discovered packs", "count", len(sources), "packs", available)

	order := e.BuildOrder(available, e.opts.Priority, e.opts.Include, e.opts.Exclude)
	e.logger.Info("merge order (highest priority first)", "order", order)

	files := newFileSet()
	merged := make(map[string]*mergedEntry)
	var mergedOrder []string

	// Lowest priority first: later (higher-priority) contributions
	// overwrite or merge over earlier ones.
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		src, ok := byName[name]
		if !ok {
			e.logger.Warn("pack disappeared before merge, skipping", "pack", name)
			continue
		}
		walkErr := src.Walk(func(rel string, data []byte) error {
			if e.opts.StripJunk && isJunk(rel) {
				e.logger.Debug("stripping junk", "path", rel)
				return nil
			}
			e.processFile(rel, data, files, merged, &mergedOrder)
			return nil
		}, func(rel string, err error) {
			e.logger.Warn("cannot read pack file, skipping", "pack", name, "path", rel, "err", err)
		})
		if walkErr != nil {
			// A corrupt or unreadable pack is skipped, never fatal to the
			// run.
			e.logger.Warn("failed to read pack, skipping", "pack", name, "err", walkErr)
			continue
		}
		e.logger.Debug("merged pack", "pack", name)
	}

	// Serialize the accumulated merge-class trees into the flat file set
	// at their paths.
	for _, path := range mergedOrder {
		files.put(path, mergetree.Encode(merged[path].tree))
	}

	e.applyOverrides(files)

	if files.len() == 0 {
		e.logger.Warn("no files to merge after processing all packs")
		return nil, nil
	}

	if !files.has(pack.OverrideMeta) {
		e.logger.Info("no pack.mcmeta found, generating default")
		files.put(pack.OverrideMeta, e.defaultMeta())
	}

	if err := e.writeArchive(files); err != nil {
		return nil, err
	}

	a, err := artifact.FromFile(e.opts.OutputPath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("hash merged archive").
			WithResource(e.opts.OutputPath).
			Wrap(err).
			BuildError()
	}

	e.logger.Info("merged pack written",
		"path", e.opts.OutputPath,
		"size", humanize.Bytes(uint64(a.Size)),
		"sha1", a.HexHash())

	if e.opts.SizeWarningMB > 0 && a.Size > int64(e.opts.SizeWarningMB)*1024*1024 {
		e.logger.Warn("merged pack exceeds size threshold; large packs may fail to download on slow connections",
			"size", humanize.Bytes(uint64(a.Size)),
			"threshold_mb", e.opts.SizeWarningMB)
	}

	return a, nil
}

// processFile routes one pack file into the overwrite set or the
// merge-class accumulator according to its path classification.
func (e *Engine) processFile(rel string, data []byte, files *fileSet, merged map[string]*mergedEntry, mergedOrder *[]string) {
	class := mergetree.Classify(rel)
	if class == mergetree.ClassOverwrite {
		files.put(rel, data)
		return
	}

	tree, ok := mergetree.Parse(data)
	if !ok {
		// Malformed structured text at a mergeable path falls back to raw
		// overwrite for this one file rather than aborting the run.
		e.logger.Warn("invalid JSON in mergeable file, using raw content", "path", rel)
		files.put(rel, data)
		return
	}

	existing, seen := merged[rel]
	if !seen {
		merged[rel] = &mergedEntry{class: class, tree: tree}
		*mergedOrder = append(*mergedOrder, rel)
		return
	}

	// The new contribution comes from a higher-priority pack: it is the
	// high side against the accumulated tree.
	if class == mergetree.ClassConcatSounds {
		existing.tree = mergetree.MergeSounds(tree, existing.tree)
	} else {
		existing.tree = mergetree.DeepMerge(tree, existing.tree)
	}
	e.logger.Debug("JSON merged", "path", rel, "treatment", class)
}

// applyOverrides replaces the merged pack.mcmeta and pack.png with the
// override files at the packs root, when present. Overrides bypass
// priority entirely.
func (e *Engine) applyOverrides(files *fileSet) {
	for _, name := range []string{pack.OverrideMeta, pack.OverrideIcon} {
		path := filepath.Join(e.opts.PacksDir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			e.logger.Warn("cannot read override file, ignoring", "path", path, "err", err)
			continue
		}
		e.logger.Info("using custom override from packs folder", "file", name)
		files.put(name, data)
	}
}

// defaultMeta synthesizes a minimal valid pack.mcmeta.
func (e *Engine) defaultMeta() []byte {
	meta := mergetree.NewObject()
	inner := mergetree.NewObject()
	inner.Set("pack_format", mergetree.Scalar{Value: json.Number(strconv.Itoa(e.opts.PackFormat))})
	inner.Set("description", mergetree.Scalar{Value: e.opts.Description})
	meta.Set("pack", inner)
	return mergetree.Encode(meta)
}

// archiveEpoch is the fixed modification time stamped on every archive
// entry. Zip timestamps would otherwise make every merge produce new
// bytes, defeating hash-based change detection.
var archiveEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// writeArchive writes the file set as a zip at OutputPath, entries in
// file-set order, deflated at the configured level.
func (e *Engine) writeArchive(files *fileSet) error {
	if err := os.MkdirAll(filepath.Dir(e.opts.OutputPath), 0o755); err != nil {
		return issue.NewErrorContext().
			WithOperation("create output directory").
			WithResource(filepath.Dir(e.opts.OutputPath)).
			WithSuggestion("Check directory permissions").
			Wrap(err).
			BuildError()
	}

	out, err := os.Create(e.opts.OutputPath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("create merged archive").
			WithResource(e.opts.OutputPath).
			WithSuggestion("Check directory permissions").
			Wrap(err).
			BuildError()
	}

	zw := zip.NewWriter(out)
	level := e.opts.CompressionLevel
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	writeErr := func() error {
		for _, path := range files.paths {
			w, err := zw.CreateHeader(&zip.FileHeader{
				Name:     path,
				Method:   zip.Deflate,
				Modified: archiveEpoch,
			})
			if err != nil {
				return fmt.Errorf("engine: create entry %q: %w", path, err)
			}
			if _, err := w.Write(files.contents[path]); err != nil {
				return fmt.Errorf("engine: write entry %q: %w", path, err)
			}
		}
		return nil
	}()

	if err := zw.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("engine: finalize archive: %w", err)
	}
	if err := out.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("engine: close archive: %w", err)
	}
	if writeErr != nil {
		return issue.NewErrorContext().
			WithOperation("write merged archive").
			WithResource(e.opts.OutputPath).
			Wrap(writeErr).
			BuildError()
	}
	return nil
}
