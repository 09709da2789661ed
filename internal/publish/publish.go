// SPDX-License-Identifier: MPL-2.0

// Package publish moves a merged pack artifact to the location it is
// served from and reports the download URL clients should use.
package publish

import (
	"context"

	"packmerger/internal/artifact"
	"packmerger/internal/config"

	"github.com/charmbracelet/log"
)

// Publisher places a merged pack artifact where clients can download it.
type Publisher interface {
	// Publish makes the artifact available and returns its public
	// download URL. Implementations embed the artifact's content hash in
	// the published name so every revision gets a distinct, cacheable
	// URL.
	Publish(ctx context.Context, a *artifact.Artifact) (string, error)

	// Name identifies the provider in logs and status output.
	Name() string
}

// New selects the publisher for cfg.Publish.Provider. Config validation
// rejects unknown providers, so the switch is exhaustive for loaded
// configs; a zero-value config falls through to the local directory
// provider.
func New(cfg *config.Config, logger *log.Logger) Publisher {
	switch cfg.Publish.Provider {
	case config.ProviderLocalDir:
		return NewLocalDir(cfg.Publish.LocalDir, logger)
	default:
		logger.Warn("no publish provider configured, using local directory", "provider", cfg.Publish.Provider)
		return NewLocalDir(cfg.Publish.LocalDir, logger)
	}
}
