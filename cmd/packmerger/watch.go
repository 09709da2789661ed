// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"packmerger/internal/orchestrator"
	"packmerger/internal/publish"
	"packmerger/internal/validate"
	"packmerger/internal/watch"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the packs directory and re-merge on changes",
	Long: `Watch runs until interrupted, monitoring the packs directory for
added, changed, or removed packs. Changes are debounced so bulk
operations trigger a single merge once the directory settles. When
publish.auto is enabled, every merge that produces a new pack is
published automatically.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	logger := newLogger(cfg)
	msgs := loadMessages(logger)

	if !cfg.Watch.Enabled {
		fmt.Println(WarningStyle.Render("Watching is disabled in configuration (watch.enabled: false)"))
		return nil
	}

	pipeline := orchestrator.New(orchestrator.Options{
		Merger:      newEngine(cfg, logger),
		Checker:     validate.New(logger),
		Publisher:   publish.New(cfg, logger),
		AutoPublish: cfg.Publish.Auto,
		OnNewArtifact: func(_, newHex string) {
			fmt.Println(SuccessStyle.Render(msgs.Render("merge.changed", "sha1", newHex)))
		},
		Logger: logger,
	})

	watcher, err := watch.New(watch.Config{
		Dir:          cfg.PacksDir,
		Debounce:     cfg.Debounce(),
		PollInterval: cfg.PollInterval(),
		OnTrigger: func(ctx context.Context) {
			pipeline.RequestMerge(ctx)
		},
		Logger: logger,
	})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Println(SubtitleStyle.Render(msgs.Render("watch.started", "dir", cfg.PacksDir)))

	g, ctx := errgroup.WithContext(cmd.Context())
	if cfg.Merge.AutoMergeOnStart {
		g.Go(func() error {
			if _, err := pipeline.RunOnce(ctx); err != nil {
				// The watcher keeps running; the operator can fix the packs
				// and save again.
				logger.Error("initial merge failed", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Println(SubtitleStyle.Render(msgs.Render("watch.stopped")))
	return nil
}
