// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"packmerger/internal/artifact"
	"packmerger/pkg/pack"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show discovered packs and the current merged artifact",
	Long: `Status lists the packs found in the packs directory, the merge order
they would be combined in, and the current merged archive with its size
and SHA-1 hash. When the artifact has been published, the download URL
is shown as well.`,
	RunE: runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	logger := newLogger(cfg)
	msgs := loadMessages(logger)

	fmt.Println(TitleStyle.Render("packmerger status"))
	fmt.Println(SubtitleStyle.Render("Target: ") + cfg.Target)

	sources, err := pack.Discover(cfg.PacksDir)
	if err != nil {
		fmt.Println(WarningStyle.Render("Packs directory unreadable: ") + cfg.PacksDir)
	} else {
		fmt.Printf("%s %d in %s\n", SubtitleStyle.Render("Packs:"), len(sources), cfg.PacksDir)
		available := make([]string, len(sources))
		for i, src := range sources {
			available[i] = src.Name
		}
		target := cfg.ActiveTarget()
		order := newEngine(cfg, logger).BuildOrder(available, cfg.Priority, target.Include, target.Exclude)
		for i, name := range order {
			fmt.Printf("  %2d. %s\n", i+1, name)
		}
	}

	a, err := artifact.FromFile(outputPath(cfg))
	if err != nil {
		fmt.Println(SubtitleStyle.Render(msgs.Render("status.never_merged")))
		return nil
	}

	fmt.Println(SubtitleStyle.Render(msgs.Render("status.current",
		"sha1", a.HexHash(),
		"size", humanize.Bytes(uint64(a.Size)),
		"when", humanize.Time(a.CreatedAt))))

	if u := publishedURL(cfg.Publish.LocalDir.Dir, cfg.Publish.LocalDir.BaseURL, a); u != "" {
		fmt.Println(SubtitleStyle.Render(msgs.Render("status.url", "url", u)))
	}
	return nil
}

// publishedURL returns the download URL when the current artifact has
// been copied into the publish directory, empty otherwise.
func publishedURL(dir, baseURL string, a *artifact.Artifact) string {
	name := "pack-" + a.HexHash() + ".zip"
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return ""
	}
	u, err := url.JoinPath(baseURL, name)
	if err != nil {
		return ""
	}
	return u
}
