// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for packmerger.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"packmerger/internal/config"
	"packmerger/internal/engine"
	"packmerger/internal/issue"
	"packmerger/internal/messages"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "packmerger",
		Short: "Merge resource packs into a single distributable archive",
		Long: TitleStyle.Render("packmerger") + SubtitleStyle.Render(" - resource pack merger") + `

packmerger combines multiple resource packs from a packs directory into
one zip, resolving conflicts by a configured priority order. Structured
JSON files (models, blockstates, sounds.json) are merged content-aware
so contributions from several packs survive in the output.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Drop pack zips or directories into the packs folder
  2. List them under 'priority:' in packmerger.yml
  3. Run: packmerger merge

` + SubtitleStyle.Render("Examples:") + `
  packmerger merge             Merge once and exit
  packmerger watch             Merge on every pack change
  packmerger validate          Check the merged pack for problems
  packmerger status            Show the current merged artifact`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./packmerger.yml)")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig applies the --config flag before any command loads
// configuration.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}
}

// loadConfig loads and validates the configuration, surfacing failures
// in actionable form.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the logger shared by all components of one command
// invocation.
func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "packmerger",
	})
	if verbose || cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newEngine wires the merge engine from configuration.
func newEngine(cfg *config.Config, logger *log.Logger) *engine.Engine {
	target := cfg.ActiveTarget()
	return engine.New(engine.Options{
		PacksDir:         cfg.PacksDir,
		OutputPath:       outputPath(cfg),
		Priority:         cfg.Priority,
		Include:          target.Include,
		Exclude:          target.Exclude,
		IncludeUnlisted:  cfg.Merge.IncludeUnlisted,
		StripJunk:        cfg.Merge.StripJunkFiles,
		CompressionLevel: cfg.Merge.CompressionLevel,
		SizeWarningMB:    cfg.Merge.SizeWarningMB,
		PackFormat:       cfg.Merge.PackFormat,
		Description:      cfg.Merge.Description,
	}, logger)
}

// outputPath returns the merged archive location for the active target.
func outputPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDir, cfg.OutputName())
}

// loadMessages loads the message catalog, overlaid with ./messages_en.yml
// when present. Catalog problems degrade to the built-in messages.
func loadMessages(logger *log.Logger) *messages.Catalog {
	cat, err := messages.Load("messages_en.yml")
	if err != nil {
		logger.Warn("loading message overlay", "err", err)
		cat, _ = messages.Load("")
	}
	return cat
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
