// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCompressionLevel is returned when the zip compression
	// level is outside 0-9.
	ErrInvalidCompressionLevel = errors.New("invalid compression level")
	// ErrInvalidDebounce is returned when the watch debounce window is
	// not positive.
	ErrInvalidDebounce = errors.New("invalid debounce window")
	// ErrInvalidPollInterval is returned when the watch poll interval is
	// not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval")
	// ErrInvalidPublishProvider is returned when publish.provider is not
	// a known variant.
	ErrInvalidPublishProvider = errors.New("invalid publish provider")
)

type (
	// Config is the fully resolved packmerger configuration. It is loaded
	// once per invocation; components receive the values they need at
	// construction time and never re-read the file themselves.
	Config struct {
		// PacksDir is the directory scanned for pack sources.
		PacksDir string `mapstructure:"packs_dir"`
		// OutputDir is where merged archives are written.
		OutputDir string `mapstructure:"output_dir"`
		// Target selects which per-target include/exclude rules apply.
		Target string `mapstructure:"target"`
		// Priority lists pack names in merge order, first = highest.
		Priority []string `mapstructure:"priority"`
		// Targets holds per-target include/exclude rules keyed by target
		// name (lowercase).
		Targets map[string]Target `mapstructure:"targets"`

		Merge   MergeConfig   `mapstructure:"merge"`
		Watch   WatchConfig   `mapstructure:"watch"`
		Publish PublishConfig `mapstructure:"publish"`

		// Debug enables verbose logging.
		Debug bool `mapstructure:"debug"`
	}

	// Target adds or removes packs from the merge for one deployment
	// target, on top of the global priority list.
	Target struct {
		// Include lists extra packs merged at lowest priority.
		Include []string `mapstructure:"include"`
		// Exclude lists packs dropped from the merge for this target.
		Exclude []string `mapstructure:"exclude"`
	}

	// MergeConfig controls the merge engine.
	MergeConfig struct {
		// AutoMergeOnStart triggers a merge when the watch daemon starts.
		AutoMergeOnStart bool `mapstructure:"auto_merge_on_start"`
		// IncludeUnlisted merges discovered packs that appear in no
		// configuration list, at lowest priority with a warning.
		IncludeUnlisted bool `mapstructure:"include_unlisted"`
		// StripJunkFiles removes hidden files and OS/VCS metadata from
		// the output.
		StripJunkFiles bool `mapstructure:"strip_junk_files"`
		// CompressionLevel is the zip deflate level, 0-9.
		CompressionLevel int `mapstructure:"compression_level"`
		// SizeWarningMB logs a warning when the merged archive exceeds
		// this many megabytes. 0 disables the warning.
		SizeWarningMB int `mapstructure:"size_warning_mb"`
		// PackFormat is the pack_format written into a synthesized
		// pack.mcmeta when no pack provides one.
		PackFormat int `mapstructure:"pack_format"`
		// Description is the description for a synthesized pack.mcmeta.
		Description string `mapstructure:"description"`
	}

	// WatchConfig controls the packs-directory watcher.
	WatchConfig struct {
		// Enabled turns the watcher on in the watch command.
		Enabled bool `mapstructure:"enabled"`
		// DebounceSeconds is the quiet period after the last relevant
		// change before a merge triggers.
		DebounceSeconds int `mapstructure:"debounce_seconds"`
		// PollIntervalMillis is how often the debounce timer is checked.
		PollIntervalMillis int `mapstructure:"poll_interval_ms"`
	}

	// PublishConfig selects and configures the artifact publisher.
	PublishConfig struct {
		// Auto publishes automatically after a merge that produced a new
		// artifact hash.
		Auto bool `mapstructure:"auto"`
		// Provider names the publisher variant. "localdir" is the only
		// built-in.
		Provider string `mapstructure:"provider"`
		// LocalDir configures the localdir provider.
		LocalDir LocalDirConfig `mapstructure:"localdir"`
	}

	// LocalDirConfig configures the local-directory publisher.
	LocalDirConfig struct {
		// Dir is the public directory the artifact is copied into.
		Dir string `mapstructure:"dir"`
		// BaseURL is the URL prefix under which Dir is served.
		BaseURL string `mapstructure:"base_url"`
	}
)

// ProviderLocalDir is the built-in publisher variant.
const ProviderLocalDir = "localdir"

// DefaultConfig returns the configuration used when no file is present.
// Defaults mirror a sensible single-target deployment.
func DefaultConfig() *Config {
	return &Config{
		PacksDir:  "packs",
		OutputDir: "output",
		Target:    "default",
		Merge: MergeConfig{
			AutoMergeOnStart: true,
			IncludeUnlisted:  true,
			StripJunkFiles:   true,
			CompressionLevel: 6,
			SizeWarningMB:    100,
			PackFormat:       46,
			Description:      "Merged resource pack",
		},
		Watch: WatchConfig{
			Enabled:            true,
			DebounceSeconds:    5,
			PollIntervalMillis: 1000,
		},
		Publish: PublishConfig{
			Auto:     false,
			Provider: ProviderLocalDir,
			LocalDir: LocalDirConfig{
				Dir:     "public",
				BaseURL: "http://localhost:8080/",
			},
		},
	}
}

// Validate checks value constraints that viper's type mapping cannot
// express.
func (c *Config) Validate() error {
	if c.Merge.CompressionLevel < 0 || c.Merge.CompressionLevel > 9 {
		return fmt.Errorf("%w: %d (must be 0-9)", ErrInvalidCompressionLevel, c.Merge.CompressionLevel)
	}
	if c.Watch.DebounceSeconds <= 0 {
		return fmt.Errorf("%w: %d seconds", ErrInvalidDebounce, c.Watch.DebounceSeconds)
	}
	if c.Watch.PollIntervalMillis <= 0 {
		return fmt.Errorf("%w: %d ms", ErrInvalidPollInterval, c.Watch.PollIntervalMillis)
	}
	if c.Publish.Provider != ProviderLocalDir {
		return fmt.Errorf("%w: %q", ErrInvalidPublishProvider, c.Publish.Provider)
	}
	return nil
}

// ActiveTarget returns the include/exclude rules for the configured
// target. Target names match case-insensitively; an unknown target has
// no rules.
func (c *Config) ActiveTarget() Target {
	if c.Targets == nil {
		return Target{}
	}
	return c.Targets[strings.ToLower(c.Target)]
}

// OutputName returns the merged archive filename for the active target.
// Non-default targets get a target-prefixed name so multi-target setups
// can share one output directory.
func (c *Config) OutputName() string {
	if c.Target != "" && !strings.EqualFold(c.Target, "default") {
		return c.Target + "-merged-pack.zip"
	}
	return "merged-pack.zip"
}

// Debounce returns the watch debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceSeconds) * time.Second
}

// PollInterval returns the watch poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalMillis) * time.Millisecond
}
