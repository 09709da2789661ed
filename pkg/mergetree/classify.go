// SPDX-License-Identifier: MPL-2.0

package mergetree

import "regexp"

// Class is the merge treatment for a file path within a resource pack.
type Class int

const (
	// ClassOverwrite replaces the file wholesale; the higher-priority
	// pack's copy wins. This is the default for every path.
	ClassOverwrite Class = iota

	// ClassDeepMerge deep-merges JSON content key by key (model and
	// blockstate definitions).
	ClassDeepMerge

	// ClassConcatSounds deep-merges JSON content and additionally
	// concatenates the per-event "sounds" arrays (sounds.json).
	ClassConcatSounds
)

// String returns the treatment name for logs.
func (c Class) String() string {
	switch c {
	case ClassDeepMerge:
		return "deep-merge"
	case ClassConcatSounds:
		return "concat-sounds"
	default:
		return "overwrite"
	}
}

var (
	modelRe      = regexp.MustCompile(`(?i)^assets/[^/]+/models/.+\.json$`)
	blockstateRe = regexp.MustCompile(`(?i)^assets/[^/]+/blockstates/.+\.json$`)
	soundsRe     = regexp.MustCompile(`(?i)^assets/[^/]+/sounds\.json$`)
)

// Classify maps a normalized forward-slash relative path to its merge
// treatment. It is pure and total: any path it does not recognize as
// mergeable JSON classifies as ClassOverwrite.
func Classify(path string) Class {
	switch {
	case soundsRe.MatchString(path):
		return ClassConcatSounds
	case modelRe.MatchString(path), blockstateRe.MatchString(path):
		return ClassDeepMerge
	default:
		return ClassOverwrite
	}
}
