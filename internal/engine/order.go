// SPDX-License-Identifier: MPL-2.0

package engine

import "sort"

// BuildOrder resolves the final merge order (first = highest priority)
// from the discovered pack names and the configured lists.
//
// Resolution runs in three passes, first rule wins, each name emitted at
// most once:
//
//  1. names from the configured priority list, in listed order, that are
//     discovered and not excluded for the active target
//  2. discovered names in no configuration list, appended in
//     lexicographic order with an operator-visible warning (their
//     position was never made explicit) — skipped entirely when
//     includeUnlisted is false
//  3. names from the target's include list that are discovered and not
//     yet emitted, appended last (lowest priority)
func (e *Engine) BuildOrder(available, priority, include, exclude []string) []string {
	availableSet := make(map[string]struct{}, len(available))
	for _, name := range available {
		availableSet[name] = struct{}{}
	}
	excludeSet := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excludeSet[name] = struct{}{}
	}
	listed := make(map[string]struct{}, len(priority)+len(include))
	for _, name := range priority {
		listed[name] = struct{}{}
	}
	for _, name := range include {
		listed[name] = struct{}{}
	}

	var ordered []string
	emitted := make(map[string]struct{})
	emit := func(name string) {
		if _, done := emitted[name]; done {
			return
		}
		emitted[name] = struct{}{}
		ordered = append(ordered, name)
	}

	for _, name := range priority {
		if _, ok := availableSet[name]; !ok {
			continue
		}
		if _, skip := excludeSet[name]; skip {
			continue
		}
		emit(name)
	}

	if e.opts.IncludeUnlisted {
		var unlisted []string
		for _, name := range available {
			if _, ok := listed[name]; !ok {
				unlisted = append(unlisted, name)
			}
		}
		sort.Strings(unlisted)
		for _, name := range unlisted {
			if _, done := emitted[name]; done {
				continue
			}
			e.logger.Warn("pack not listed in priority config, merging at lowest priority", "pack", name)
			emit(name)
		}
	}

	for _, name := range include {
		if _, ok := availableSet[name]; !ok {
			continue
		}
		emit(name)
	}

	return ordered
}
