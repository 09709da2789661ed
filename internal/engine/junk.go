// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// junkPatterns are doublestar globs matched against the lowercased
// relative path of every pack file when junk stripping is enabled. They
// cover hidden files and directories, OS metadata, and VCS subtrees that
// commonly travel inside hand-built pack archives. A leading "**/" also
// matches zero directories, so each pattern applies at the pack root.
var junkPatterns = []string{
	"**/.*",
	"**/.*/**",
	"**/thumbs.db",
	"**/desktop.ini",
	"**/__macosx/**",
	"**/.git/**",
}

// isJunk reports whether the normalized relative path should be stripped
// from the merged output.
func isJunk(rel string) bool {
	lower := strings.ToLower(rel)
	for _, pat := range junkPatterns {
		if matched, err := doublestar.Match(pat, lower); err == nil && matched {
			return true
		}
	}
	return false
}
