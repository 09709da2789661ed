// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"packmerger/internal/orchestrator"
	"packmerger/internal/publish"
	"packmerger/internal/validate"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	// forcePublish publishes the artifact even when publish.auto is off.
	forcePublish bool

	mergeCmd = &cobra.Command{
		Use:   "merge",
		Short: "Merge all resource packs once and exit",
		Long: `Merge combines every configured resource pack into a single zip
in the output directory, validates the result, and optionally publishes
it. The merge order comes from the priority list and the active target's
include/exclude rules.`,
		RunE: runMerge,
	}
)

func init() {
	mergeCmd.Flags().BoolVar(&forcePublish, "publish", false, "publish the merged pack even when publish.auto is disabled")
}

func runMerge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	logger := newLogger(cfg)
	msgs := loadMessages(logger)

	pipeline := orchestrator.New(orchestrator.Options{
		Merger:      newEngine(cfg, logger),
		Checker:     validate.New(logger),
		Publisher:   publish.New(cfg, logger),
		AutoPublish: cfg.Publish.Auto || forcePublish,
		Logger:      logger,
	})

	fmt.Println(SubtitleStyle.Render(msgs.Render("merge.starting")))

	state, err := pipeline.RunOnce(cmd.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrMergeInProgress) {
			fmt.Println(WarningStyle.Render(msgs.Render("merge.in_progress")))
			return nil
		}
		fmt.Println(ErrorStyle.Render(msgs.Render("merge.failed", "error", formatErrorForDisplay(err, verbose))))
		return &ExitError{Code: 1, Err: err}
	}
	if state == nil {
		fmt.Println(WarningStyle.Render(msgs.Render("merge.nothing")))
		return nil
	}

	a := state.Artifact
	fmt.Println(SuccessStyle.Render(msgs.Render("merge.complete",
		"path", a.Path,
		"size", humanize.Bytes(uint64(a.Size)))))
	fmt.Println(SubtitleStyle.Render("SHA-1: ") + ValueStyle.Render(a.HexHash()))

	if v := state.Validation; v != nil && !v.Clean() {
		printValidation(v)
	}
	if state.URL != "" {
		fmt.Println(SuccessStyle.Render(msgs.Render("publish.complete", "url", state.URL)))
	}
	return nil
}

// printValidation lists validation findings with severity-matched styling.
func printValidation(res *validate.Result) {
	for _, issue := range res.Issues {
		style := WarningStyle
		if issue.Severity == validate.SeverityError {
			style = ErrorStyle
		}
		fmt.Println(style.Render(issue.Severity.String()+": ") + issue.Message)
	}
}
