// SPDX-License-Identifier: MPL-2.0

// Package validate checks a merged resource pack archive for structural
// problems and dangling references before it is handed to clients.
package validate

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"packmerger/pkg/mergetree"
	"packmerger/pkg/pack"

	"github.com/charmbracelet/log"
)

// Severity classifies a validation finding.
type Severity int

const (
	// SeverityWarning marks a non-critical issue; the pack works but may
	// show visual glitches.
	SeverityWarning Severity = iota
	// SeverityError marks a critical issue; clients may reject the pack.
	SeverityError
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

type (
	// Issue is one validation finding.
	Issue struct {
		Severity Severity
		Message  string
	}

	// Result collects the findings of one validation run.
	Result struct {
		Issues []Issue
	}
)

// Warnings returns the number of warning-severity issues.
func (r *Result) Warnings() int { return r.count(SeverityWarning) }

// Errors returns the number of error-severity issues.
func (r *Result) Errors() int { return r.count(SeverityError) }

// Clean reports whether the run found no issues at all.
func (r *Result) Clean() bool { return len(r.Issues) == 0 }

func (r *Result) count(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

func (r *Result) add(s Severity, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: s, Message: fmt.Sprintf(format, args...)})
}

var (
	modelPathRe      = regexp.MustCompile(`(?i)^assets/[^/]+/models/.+\.json$`)
	blockstatePathRe = regexp.MustCompile(`(?i)^assets/[^/]+/blockstates/.+\.json$`)
)

// Validator validates merged pack archives.
type Validator struct {
	logger *log.Logger
}

// New creates a Validator. A nil logger falls back to the default logger.
func New(logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{logger: logger}
}

// Validate opens the merged archive at path and runs every check. It
// always returns a Result; an unreadable archive is itself reported as
// an error-severity issue rather than a Go error, so callers can treat
// validation as advisory.
//
// Checks, in order:
//
//  1. pack.mcmeta exists and carries a pack.pack_format field
//  2. every .json entry parses
//  3. model texture references resolve to a .png in the archive
//  4. blockstate model references resolve to a model .json in the archive
func (v *Validator) Validate(path string) *Result {
	res := &Result{}

	zr, err := zip.OpenReader(path)
	if err != nil {
		res.add(SeverityError, "could not open merged pack for validation: %v", err)
		v.logger.Error("validation failed to open archive", "path", path, "err", err)
		return res
	}
	defer zr.Close()

	entries := make(map[string][]byte)
	allPaths := make(map[string]struct{})
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := pack.NormalizePath(f.Name)
		allPaths[name] = struct{}{}

		rc, err := f.Open()
		if err != nil {
			res.add(SeverityWarning, "could not read entry %s: %v", name, err)
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			res.add(SeverityWarning, "could not read entry %s: %v", name, err)
			continue
		}
		entries[name] = data
	}

	v.checkMeta(entries, res)
	v.checkSyntax(entries, res)
	v.checkReferences(entries, allPaths, res)

	v.logger.Info("validation complete", "warnings", res.Warnings(), "errors", res.Errors())
	return res
}

// checkMeta verifies pack.mcmeta presence and its pack.pack_format
// field.
func (v *Validator) checkMeta(entries map[string][]byte, res *Result) {
	data, ok := entries[pack.OverrideMeta]
	if !ok {
		res.add(SeverityError, "pack.mcmeta is missing from merged pack")
		return
	}
	meta, ok := mergetree.Parse(data)
	if !ok {
		res.add(SeverityError, "pack.mcmeta contains invalid JSON")
		return
	}
	inner := meta.GetObject("pack")
	if inner == nil {
		res.add(SeverityError, "pack.mcmeta is missing 'pack.pack_format' field")
		return
	}
	if _, ok := inner.Get("pack_format"); !ok {
		res.add(SeverityError, "pack.mcmeta is missing 'pack.pack_format' field")
	}
}

// checkSyntax parses every .json entry and reports syntax errors.
func (v *Validator) checkSyntax(entries map[string][]byte, res *Result) {
	for name, data := range entries {
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		if !json.Valid(data) {
			res.add(SeverityWarning, "invalid JSON: %s", name)
			v.logger.Debug("invalid JSON entry", "path", name)
		}
	}
}

// checkReferences verifies texture references in models and model
// references in blockstates against the archive's path set.
func (v *Validator) checkReferences(entries map[string][]byte, allPaths map[string]struct{}, res *Result) {
	for name, data := range entries {
		switch {
		case modelPathRe.MatchString(name):
			model, ok := mergetree.Parse(data)
			if !ok {
				continue // already reported by checkSyntax
			}
			textures := model.GetObject("textures")
			if textures == nil {
				continue
			}
			for _, key := range textures.Keys() {
				ref, ok := textures.GetString(key)
				if !ok {
					continue
				}
				// "#slot" references point at other texture slots of the
				// same model, never at files.
				if strings.HasPrefix(ref, "#") {
					continue
				}
				if !refExists(allPaths, ref, "textures", ".png") {
					res.add(SeverityWarning, "model %s references missing texture: %s", name, ref)
				}
			}

		case blockstatePathRe.MatchString(name):
			blockstate, ok := mergetree.Parse(data)
			if !ok {
				continue
			}
			v.checkBlockstate(blockstate, name, allPaths, res)
		}
	}
}

// checkBlockstate walks both blockstate formats: the "variants" map and
// the "multipart" condition/apply array.
func (v *Validator) checkBlockstate(blockstate *mergetree.Object, name string, allPaths map[string]struct{}, res *Result) {
	if variants := blockstate.GetObject("variants"); variants != nil {
		for _, key := range variants.Keys() {
			node, _ := variants.Get(key)
			v.checkModelRef(node, name, allPaths, res)
		}
	}
	if multipart := blockstate.GetArray("multipart"); multipart != nil {
		for _, part := range multipart {
			obj, ok := part.(*mergetree.Object)
			if !ok {
				continue
			}
			if apply, ok := obj.Get("apply"); ok {
				v.checkModelRef(apply, name, allPaths, res)
			}
		}
	}
}

// checkModelRef checks one variant value: either an object with a
// "model" field or an array of weighted alternatives.
func (v *Validator) checkModelRef(node mergetree.Node, name string, allPaths map[string]struct{}, res *Result) {
	switch n := node.(type) {
	case *mergetree.Object:
		ref, ok := n.GetString("model")
		if !ok {
			return
		}
		if !refExists(allPaths, ref, "models", ".json") {
			res.add(SeverityWarning, "blockstate %s references missing model: %s", name, ref)
		}
	case mergetree.Array:
		for _, item := range n {
			v.checkModelRef(item, name, allPaths, res)
		}
	}
}

// refExists resolves a "namespace:path" reference (namespace defaults to
// "minecraft") to assets/<namespace>/<kind>/<path><ext> and checks the
// archive for it, accepting an all-lowercase variant as a match.
func refExists(allPaths map[string]struct{}, ref, kind, ext string) bool {
	namespace := "minecraft"
	path := ref
	if ns, rest, found := strings.Cut(ref, ":"); found {
		namespace = ns
		path = rest
	}
	full := "assets/" + namespace + "/" + kind + "/" + path + ext
	if _, ok := allPaths[full]; ok {
		return true
	}
	_, ok := allPaths[strings.ToLower(full)]
	return ok
}
