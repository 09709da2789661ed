// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"packmerger/internal/artifact"
	"packmerger/internal/config"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact(t *testing.T, content string) *artifact.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merged-pack.zip")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	a, err := artifact.FromFile(path)
	require.NoError(t, err)
	return a
}

func TestLocalDirPublish(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p := NewLocalDir(config.LocalDirConfig{
		Dir:     dir,
		BaseURL: "https://packs.example.com/files/",
	}, log.New(io.Discard))

	a := testArtifact(t, "pack bytes")
	url, err := p.Publish(context.Background(), a)
	require.NoError(t, err)

	wantName := "pack-" + a.HexHash() + ".zip"
	assert.Equal(t, "https://packs.example.com/files/"+wantName, url)

	published, err := os.ReadFile(filepath.Join(dir, wantName))
	require.NoError(t, err)
	assert.Equal(t, "pack bytes", string(published))
}

func TestLocalDirPublishCreatesDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "public")

	p := NewLocalDir(config.LocalDirConfig{Dir: dir, BaseURL: "http://localhost:8080"}, log.New(io.Discard))
	a := testArtifact(t, "x")

	_, err := p.Publish(context.Background(), a)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalDirPublishMissingArtifact(t *testing.T) {
	t.Parallel()
	p := NewLocalDir(config.LocalDirConfig{Dir: t.TempDir(), BaseURL: "http://localhost"}, log.New(io.Discard))

	a := testArtifact(t, "x")
	require.NoError(t, os.Remove(a.Path))

	_, err := p.Publish(context.Background(), a)
	assert.Error(t, err)
}

func TestLocalDirPublishCancelled(t *testing.T) {
	t.Parallel()
	p := NewLocalDir(config.LocalDirConfig{Dir: t.TempDir(), BaseURL: "http://localhost"}, log.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Publish(ctx, testArtifact(t, "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsLocalDir(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	p := New(cfg, log.New(io.Discard))
	assert.Equal(t, config.ProviderLocalDir, p.Name())
}
