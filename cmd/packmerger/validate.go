// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"packmerger/internal/validate"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [archive]",
	Short: "Check a merged pack for structural problems",
	Long: `Validate inspects a merged pack zip for missing or malformed
pack.mcmeta, JSON syntax errors, and dangling texture or model
references. Without an argument it checks the active target's merged
archive in the output directory.

Errors mean clients may reject the pack; warnings mean it loads but may
show visual glitches. The exit code is non-zero when errors are found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	logger := newLogger(cfg)
	msgs := loadMessages(logger)

	path := outputPath(cfg)
	if len(args) == 1 {
		path = args[0]
	}

	fmt.Println(SubtitleStyle.Render(msgs.Render("validate.starting")) + " " + ValueStyle.Render(path))

	res := validate.New(logger).Validate(path)
	if res.Clean() {
		fmt.Println(SuccessStyle.Render(msgs.Render("validate.clean")))
		return nil
	}

	printValidation(res)
	fmt.Println(SubtitleStyle.Render(msgs.Render("validate.complete",
		"warnings", strconv.Itoa(res.Warnings()),
		"errors", strconv.Itoa(res.Errors()))))

	if res.Errors() > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("validation found %d errors", res.Errors())}
	}
	return nil
}
