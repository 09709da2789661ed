// SPDX-License-Identifier: MPL-2.0

// Package messages holds the operator-facing message catalog.
//
// Messages live in a YAML catalog with dot-separated keys and
// {placeholder} substitution. The built-in catalog is embedded in the
// binary; a user-supplied file overlays individual keys so deployments
// can reword messages without forking.
package messages

import (
	"fmt"
	"os"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed messages_en.yml
var defaultCatalog []byte

// Catalog resolves message keys to templates.
type Catalog struct {
	entries map[string]string
}

// Load returns the built-in catalog overlaid with the file at userPath.
// An empty userPath or a missing file yields the built-in catalog alone;
// a present but malformed file is an error.
func Load(userPath string) (*Catalog, error) {
	entries := make(map[string]string)
	if err := mergeYAML(entries, defaultCatalog); err != nil {
		// The embedded catalog is part of the binary; failing to parse it
		// is a build defect, not a runtime condition.
		return nil, fmt.Errorf("messages: parse built-in catalog: %w", err)
	}

	if userPath != "" {
		data, err := os.ReadFile(userPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("messages: read %s: %w", userPath, err)
		default:
			if err := mergeYAML(entries, data); err != nil {
				return nil, fmt.Errorf("messages: parse %s: %w", userPath, err)
			}
		}
	}

	return &Catalog{entries: entries}, nil
}

// Render resolves key and substitutes placeholders from alternating
// name/value pairs, so Render("merge.done", "sha1", hex) replaces
// {sha1}. An unknown key renders as <key> so the miss is visible instead
// of silent.
func (c *Catalog) Render(key string, pairs ...string) string {
	template, ok := c.entries[key]
	if !ok {
		return "<" + key + ">"
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		template = strings.ReplaceAll(template, "{"+pairs[i]+"}", pairs[i+1])
	}
	return template
}

// Has reports whether the catalog defines key.
func (c *Catalog) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// mergeYAML flattens a nested YAML document into dot-separated keys and
// writes them over entries.
func mergeYAML(entries map[string]string, data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	flatten(entries, "", doc)
	return nil
}

func flatten(entries map[string]string, prefix string, doc map[string]any) {
	for key, value := range doc {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(entries, full, v)
		case string:
			entries[full] = v
		default:
			entries[full] = fmt.Sprint(v)
		}
	}
}
