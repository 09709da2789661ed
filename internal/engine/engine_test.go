// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDirPack lays out a directory pack under root.
func writeDirPack(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, name, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// writeZipPack writes a zip pack under root.
func writeZipPack(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(root, name))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for rel, content := range files {
		w, err := zw.Create(rel)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// readArchive reads every entry of the merged zip into a map.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		out[f.Name] = string(data)
	}
	return out
}

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(t.TempDir(), "out", "merged-pack.zip")
	}
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = 6
	}
	if opts.PackFormat == 0 {
		opts.PackFormat = 46
	}
	if opts.Description == "" {
		opts.Description = "Merged resource pack"
	}
	return New(opts, log.New(io.Discard))
}

func TestMergeOverwriteHighestWins(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeDirPack(t, packs, "high", map[string]string{
		"assets/game/textures/item/sword.png": "HIGH",
	})
	writeDirPack(t, packs, "low", map[string]string{
		"assets/game/textures/item/sword.png": "LOW",
		"assets/game/lang/en_us.json":         `{"hello":"world"}`,
	})

	e := testEngine(t, Options{
		PacksDir: packs,
		Priority: []string{"high", "low"},
	})
	a, err := e.Merge()
	require.NoError(t, err)
	require.NotNil(t, a)

	got := readArchive(t, e.opts.OutputPath)
	assert.Equal(t, "HIGH", got["assets/game/textures/item/sword.png"])
	assert.Equal(t, `{"hello":"world"}`, got["assets/game/lang/en_us.json"])
}

func TestMergeModelsDeepMerged(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeDirPack(t, packs, "high", map[string]string{
		"assets/game/models/item/stick.json": `{"a": 1, "b": {"x": 2}}`,
	})
	writeDirPack(t, packs, "low", map[string]string{
		"assets/game/models/item/stick.json": `{"b": {"x": 3, "y": 4}, "c": 5}`,
	})

	e := testEngine(t, Options{
		PacksDir: packs,
		Priority: []string{"high", "low"},
	})
	_, err := e.Merge()
	require.NoError(t, err)

	got := readArchive(t, e.opts.OutputPath)
	var model struct {
		A int `json:"a"`
		B struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"b"`
		C int `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(got["assets/game/models/item/stick.json"]), &model))
	assert.Equal(t, 1, model.A)
	assert.Equal(t, 2, model.B.X, "conflicting leaf should come from the higher-priority pack")
	assert.Equal(t, 4, model.B.Y)
	assert.Equal(t, 5, model.C)
}

func TestMergeSoundsConcatenated(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeDirPack(t, packs, "high", map[string]string{
		"assets/game/sounds.json": `{"ambient.cave": {"sounds": ["s1"]}}`,
	})
	writeDirPack(t, packs, "mid", map[string]string{
		"assets/game/sounds.json": `{"ambient.cave": {"sounds": ["s2"]}}`,
	})
	writeDirPack(t, packs, "low", map[string]string{
		"assets/game/sounds.json": `{"ambient.cave": {"sounds": ["s3"]}, "music.menu": {"sounds": ["m1"]}}`,
	})

	e := testEngine(t, Options{
		PacksDir: packs,
		Priority: []string{"high", "mid", "low"},
	})
	_, err := e.Merge()
	require.NoError(t, err)

	got := readArchive(t, e.opts.OutputPath)
	var sounds map[string]struct {
		Sounds []string `json:"sounds"`
	}
	require.NoError(t, json.Unmarshal([]byte(got["assets/game/sounds.json"]), &sounds))
	assert.Equal(t, []string{"s1", "s2", "s3"}, sounds["ambient.cave"].Sounds,
		"sound entries should be ordered by descending pack priority")
	assert.Equal(t, []string{"m1"}, sounds["music.menu"].Sounds)
}

func TestMergeDeterministic(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeZipPack(t, packs, "base.zip", map[string]string{
		"pack.mcmeta":                        `{"pack": {"pack_format": 46, "description": "base"}}`,
		"assets/game/models/item/rod.json":   `{"parent": "item/generated"}`,
		"assets/game/textures/item/rod.png":  "PNG",
		"assets/game/sounds.json":            `{"use.rod": {"sounds": ["cast"]}}`,
		"assets/game/blockstates/stone.json": `{"variants": {"": {"model": "block/stone"}}}`,
	})
	writeDirPack(t, packs, "extras", map[string]string{
		"assets/game/models/item/rod.json": `{"textures": {"layer0": "item/rod"}}`,
	})

	e := testEngine(t, Options{
		PacksDir: packs,
		Priority: []string{"extras", "base.zip"},
	})
	first, err := e.Merge()
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := e.Merge()
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.Hash, second.Hash,
		"re-merging unchanged inputs must produce a byte-identical archive")
}

func TestMergeJunkStripping(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"assets/game/textures/a.png": "A",
		".DS_Store":                  "junk",
		"assets/Thumbs.db":           "junk",
		"__MACOSX/._a.png":           "junk",
		".git/config":                "junk",
	}

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		packs := t.TempDir()
		writeZipPack(t, packs, "p.zip", files)
		e := testEngine(t, Options{PacksDir: packs, Priority: []string{"p.zip"}, StripJunk: true})
		_, err := e.Merge()
		require.NoError(t, err)

		got := readArchive(t, e.opts.OutputPath)
		assert.Contains(t, got, "assets/game/textures/a.png")
		assert.NotContains(t, got, ".DS_Store")
		assert.NotContains(t, got, "assets/Thumbs.db")
		assert.NotContains(t, got, "__MACOSX/._a.png")
		assert.NotContains(t, got, ".git/config")
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		packs := t.TempDir()
		writeZipPack(t, packs, "p.zip", files)
		e := testEngine(t, Options{PacksDir: packs, Priority: []string{"p.zip"}})
		_, err := e.Merge()
		require.NoError(t, err)

		got := readArchive(t, e.opts.OutputPath)
		assert.Contains(t, got, ".DS_Store")
		assert.Contains(t, got, "assets/Thumbs.db")
	})
}

func TestMergeRootOverrides(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeDirPack(t, packs, "high", map[string]string{
		"pack.mcmeta": `{"pack": {"pack_format": 46, "description": "from pack"}}`,
		"pack.png":    "PACKICON",
	})
	require.NoError(t, os.WriteFile(filepath.Join(packs, "pack.mcmeta"),
		[]byte(`{"pack": {"pack_format": 46, "description": "override"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(packs, "pack.png"), []byte("OVERRIDEICON"), 0o644))

	e := testEngine(t, Options{PacksDir: packs, Priority: []string{"high"}})
	_, err := e.Merge()
	require.NoError(t, err)

	got := readArchive(t, e.opts.OutputPath)
	assert.Contains(t, got["pack.mcmeta"], "override")
	assert.Equal(t, "OVERRIDEICON", got["pack.png"])
}

func TestMergeSynthesizesMeta(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeDirPack(t, packs, "bare", map[string]string{
		"assets/game/textures/a.png": "A",
	})

	e := testEngine(t, Options{
		PacksDir:    packs,
		Priority:    []string{"bare"},
		PackFormat:  46,
		Description: "Merged resource pack",
	})
	_, err := e.Merge()
	require.NoError(t, err)

	got := readArchive(t, e.opts.OutputPath)
	var meta struct {
		Pack struct {
			PackFormat  int    `json:"pack_format"`
			Description string `json:"description"`
		} `json:"pack"`
	}
	require.NoError(t, json.Unmarshal([]byte(got["pack.mcmeta"]), &meta))
	assert.Equal(t, 46, meta.Pack.PackFormat)
	assert.Equal(t, "Merged resource pack", meta.Pack.Description)
}

func TestMergeInvalidJSONFallsBackToRaw(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	writeDirPack(t, packs, "broken", map[string]string{
		"assets/game/models/item/bad.json": `{"unterminated": `,
	})

	e := testEngine(t, Options{PacksDir: packs, Priority: []string{"broken"}})
	_, err := e.Merge()
	require.NoError(t, err)

	got := readArchive(t, e.opts.OutputPath)
	assert.Equal(t, `{"unterminated": `, got["assets/game/models/item/bad.json"])
}

func TestMergeNoPacks(t *testing.T) {
	t.Parallel()
	e := testEngine(t, Options{PacksDir: t.TempDir()})
	a, err := e.Merge()
	require.NoError(t, err)
	assert.Nil(t, a, "an empty packs directory is not an error, just nothing to do")
}

func TestMergeMissingPacksDir(t *testing.T) {
	t.Parallel()
	e := testEngine(t, Options{PacksDir: filepath.Join(t.TempDir(), "absent")})
	a, err := e.Merge()
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestMergeCorruptZipSkipped(t *testing.T) {
	t.Parallel()
	packs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(packs, "corrupt.zip"), []byte("not a zip"), 0o644))
	writeDirPack(t, packs, "good", map[string]string{
		"assets/game/textures/a.png": "A",
	})

	e := testEngine(t, Options{PacksDir: packs, Priority: []string{"corrupt.zip", "good"}})
	a, err := e.Merge()
	require.NoError(t, err)
	require.NotNil(t, a)

	got := readArchive(t, e.opts.OutputPath)
	assert.Equal(t, "A", got["assets/game/textures/a.png"])
}

func TestBuildOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name            string
		available       []string
		priority        []string
		include         []string
		exclude         []string
		includeUnlisted bool
		want            []string
	}{
		{
			name:            "priority order preserved",
			available:       []string{"a", "b", "c"},
			priority:        []string{"c", "a", "b"},
			includeUnlisted: true,
			want:            []string{"c", "a", "b"},
		},
		{
			name:            "missing priority entries skipped",
			available:       []string{"a"},
			priority:        []string{"ghost", "a"},
			includeUnlisted: true,
			want:            []string{"a"},
		},
		{
			name:            "unlisted appended lexicographically",
			available:       []string{"zeta", "alpha", "mid"},
			priority:        []string{"mid"},
			includeUnlisted: true,
			want:            []string{"mid", "alpha", "zeta"},
		},
		{
			name:            "unlisted dropped when disabled",
			available:       []string{"zeta", "alpha", "mid"},
			priority:        []string{"mid"},
			includeUnlisted: false,
			want:            []string{"mid"},
		},
		{
			name:            "exclude removes priority-listed pack",
			available:       []string{"a", "b"},
			priority:        []string{"a", "b"},
			exclude:         []string{"b"},
			includeUnlisted: true,
			want:            []string{"a"},
		},
		{
			name:            "include appended last",
			available:       []string{"a", "extra"},
			priority:        []string{"a"},
			include:         []string{"extra"},
			includeUnlisted: true,
			want:            []string{"a", "extra"},
		},
		{
			name:            "include never duplicates priority entry",
			available:       []string{"a", "b"},
			priority:        []string{"a", "b"},
			include:         []string{"a"},
			includeUnlisted: true,
			want:            []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := testEngine(t, Options{IncludeUnlisted: tt.includeUnlisted})
			got := e.BuildOrder(tt.available, tt.priority, tt.include, tt.exclude)
			assert.Equal(t, tt.want, got)
		})
	}
}
