// SPDX-License-Identifier: MPL-2.0

// Package pack provides discovery of resource pack sources and uniform
// read access to their files.
//
// A pack is either a zip archive or a directory that looks like an
// unzipped resource pack (it carries a pack.mcmeta or an assets/
// subtree). Packs live side by side in a single packs root; two reserved
// filenames at that root — pack.mcmeta and pack.png — are post-merge
// override files, not packs, and are excluded from discovery along with
// hidden (dot-prefixed) entries.
package pack

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// OverrideMeta is the reserved metadata override filename at the
	// packs root. It replaces the merged pack.mcmeta unconditionally.
	OverrideMeta = "pack.mcmeta"

	// OverrideIcon is the reserved icon override filename at the packs
	// root. It replaces the merged pack.png unconditionally.
	OverrideIcon = "pack.png"

	// ZipSuffix marks archive packs.
	ZipSuffix = ".zip"

	// assetsDir is the conventional content directory that qualifies a
	// bare directory as a pack even without a pack.mcmeta.
	assetsDir = "assets"
)

type (
	// Kind distinguishes archive packs from directory packs.
	Kind int

	// Source is one discovered pack. Sources carry no open handles and
	// are re-enumerated on every merge; there is no persistent identity
	// across runs.
	Source struct {
		// Name is the entry name at the packs root (e.g. "base.zip" or
		// "seasonal"). Names are the identifiers used in priority and
		// include/exclude configuration.
		Name string
		// Kind is KindZip or KindDir.
		Kind Kind
		// Path is the absolute or root-relative location of the pack.
		Path string
	}
)

const (
	// KindZip is a .zip archive pack.
	KindZip Kind = iota
	// KindDir is an unzipped directory pack.
	KindDir
)

// String returns the kind name for logs.
func (k Kind) String() string {
	if k == KindZip {
		return "zip"
	}
	return "directory"
}

// Discover scans root and returns every valid pack source, sorted by
// name so callers see a deterministic order. A directory qualifies when
// it contains a pack.mcmeta file or an assets/ subdirectory; any .zip
// file qualifies. The reserved override filenames and hidden entries are
// skipped.
func Discover(root string) ([]Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("pack: read packs root %q: %w", root, err)
	}

	var sources []Source
	for _, entry := range entries {
		name := entry.Name()
		if name == OverrideMeta || name == OverrideIcon {
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(root, name)
		if entry.IsDir() {
			if !looksLikePack(path) {
				continue
			}
			sources = append(sources, Source{Name: name, Kind: KindDir, Path: path})
		} else if strings.HasSuffix(name, ZipSuffix) {
			sources = append(sources, Source{Name: name, Kind: KindZip, Path: path})
		}
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

// looksLikePack reports whether dir has the structural markers of an
// unzipped resource pack.
func looksLikePack(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, OverrideMeta)); err == nil {
		return true
	}
	if info, err := os.Stat(filepath.Join(dir, assetsDir)); err == nil && info.IsDir() {
		return true
	}
	return false
}

// Walk invokes visit for every regular file in the source with its
// normalized relative path and raw content, in a stable order. Files
// inside a directory source that cannot be read are reported through
// onError (which may be nil) and skipped; a source that cannot be opened
// at all returns an error. A non-nil error from visit aborts the walk.
func (s Source) Walk(visit func(rel string, data []byte) error, onError func(rel string, err error)) error {
	switch s.Kind {
	case KindZip:
		return s.walkZip(visit)
	default:
		return s.walkDir(visit, onError)
	}
}

func (s Source) walkZip(visit func(rel string, data []byte) error) error {
	zr, err := zip.OpenReader(s.Path)
	if err != nil {
		return fmt.Errorf("pack: open archive %q: %w", s.Name, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rel := NormalizePath(entry.Name)
		if rel == "" {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("pack: open entry %q in %q: %w", entry.Name, s.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("pack: read entry %q in %q: %w", entry.Name, s.Name, err)
		}
		if err := visit(rel, data); err != nil {
			return err
		}
	}
	return nil
}

func (s Source) walkDir(visit func(rel string, data []byte) error, onError func(rel string, err error)) error {
	walkErr := filepath.WalkDir(s.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			// Skip unreadable subtrees rather than aborting the pack.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		relOS, relErr := filepath.Rel(s.Path, path)
		if relErr != nil {
			return nil
		}
		rel := NormalizePath(filepath.ToSlash(relOS))
		if rel == "" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			if onError != nil {
				onError(rel, readErr)
			}
			return nil
		}
		return visit(rel, data)
	})
	if walkErr != nil {
		return fmt.Errorf("pack: walk directory %q: %w", s.Name, walkErr)
	}
	return nil
}

// NormalizePath converts backslashes to forward slashes and strips
// leading slashes so paths key consistently across zip entries and
// directory walks regardless of OS.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	return strings.TrimLeft(path, "/")
}
