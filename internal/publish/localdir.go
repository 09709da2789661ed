// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"packmerger/internal/artifact"
	"packmerger/internal/config"
	"packmerger/internal/issue"

	"github.com/charmbracelet/log"
)

// LocalDir publishes by copying the artifact into a directory served by
// an external web server (nginx, a CDN sync job, a shared mount). The
// copy is written to a temp file first and renamed into place so readers
// never observe a partially written pack.
type LocalDir struct {
	cfg    config.LocalDirConfig
	logger *log.Logger
}

// NewLocalDir creates a local-directory publisher.
func NewLocalDir(cfg config.LocalDirConfig, logger *log.Logger) *LocalDir {
	if logger == nil {
		logger = log.Default()
	}
	return &LocalDir{cfg: cfg, logger: logger}
}

// Name implements Publisher.
func (p *LocalDir) Name() string { return config.ProviderLocalDir }

// Publish implements Publisher. The published filename embeds the
// artifact's SHA-1, so clients caching by URL re-download exactly when
// the content changed.
func (p *LocalDir) Publish(ctx context.Context, a *artifact.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("pack-%s.zip", a.HexHash())
	dest := filepath.Join(p.cfg.Dir, name)

	if err := p.copyArtifact(a.Path, dest); err != nil {
		return "", issue.NewErrorContext().
			WithOperation("publish merged pack").
			WithResource(dest).
			WithSuggestion("Check that publish.localdir.dir exists and is writable").
			Wrap(err).
			BuildError()
	}

	downloadURL, err := url.JoinPath(p.cfg.BaseURL, name)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("build download URL").
			WithResource(p.cfg.BaseURL).
			WithSuggestion("Check that publish.localdir.base_url is a valid URL").
			Wrap(err).
			BuildError()
	}

	p.logger.Info("pack published", "path", dest, "url", downloadURL)
	return downloadURL, nil
}

func (p *LocalDir) copyArtifact(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pack-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
