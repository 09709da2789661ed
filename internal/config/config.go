// SPDX-License-Identifier: MPL-2.0

// Package config loads the packmerger configuration file.
//
// Configuration is a YAML file, by default "packmerger.yml" in the
// working directory; a missing file means pure defaults. All values are
// read once per load into a typed Config — components never touch viper
// directly.
package config

import (
	"errors"
	"fmt"
	"os"

	"packmerger/internal/issue"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name (without extension).
	ConfigFileName = "packmerger"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yml"
)

// configFilePathOverride is set by the CLI --config flag.
var configFilePathOverride string

// SetConfigFilePathOverride forces subsequent loads to read the given
// file instead of searching the default locations.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}

// Load reads the configuration, applying defaults for anything the file
// does not set, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("packs_dir", defaults.PacksDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("target", defaults.Target)
	v.SetDefault("priority", defaults.Priority)
	v.SetDefault("merge.auto_merge_on_start", defaults.Merge.AutoMergeOnStart)
	v.SetDefault("merge.include_unlisted", defaults.Merge.IncludeUnlisted)
	v.SetDefault("merge.strip_junk_files", defaults.Merge.StripJunkFiles)
	v.SetDefault("merge.compression_level", defaults.Merge.CompressionLevel)
	v.SetDefault("merge.size_warning_mb", defaults.Merge.SizeWarningMB)
	v.SetDefault("merge.pack_format", defaults.Merge.PackFormat)
	v.SetDefault("merge.description", defaults.Merge.Description)
	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce_seconds", defaults.Watch.DebounceSeconds)
	v.SetDefault("watch.poll_interval_ms", defaults.Watch.PollIntervalMillis)
	v.SetDefault("publish.auto", defaults.Publish.Auto)
	v.SetDefault("publish.provider", defaults.Publish.Provider)
	v.SetDefault("publish.localdir.dir", defaults.Publish.LocalDir.Dir)
	v.SetDefault("publish.localdir.base_url", defaults.Publish.LocalDir.BaseURL)
	v.SetDefault("debug", defaults.Debug)

	if configFilePathOverride != "" {
		if _, err := os.Stat(configFilePathOverride); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePathOverride).
				WithSuggestion("Verify the --config path is correct").
				Wrap(err).
				BuildError()
		}
		v.SetConfigFile(configFilePathOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse configuration").
				WithResource(configFilePathOverride).
				WithSuggestion("Check the YAML syntax").
				Wrap(err).
				BuildError()
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file means pure defaults; anything
			// else (unreadable, malformed) is surfaced.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("parse configuration").
					WithResource(v.ConfigFileUsed()).
					WithSuggestion("Check the YAML syntax").
					Wrap(err).
					BuildError()
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(v.ConfigFileUsed()).
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}
