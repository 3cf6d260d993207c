// Package intent decides whether an AI operation on a block should create,
// update or replace its content.
package intent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blockcanvas/indy/internal/jsonutil"
)

// Intent is the classified purpose of an AI-driven block operation.
type Intent string

const (
	Create  Intent = "create"
	Update  Intent = "update"
	Replace Intent = "replace"
)

// sectionCandidates are compared first, in this order, before any other
// top-level key.
var sectionCandidates = []string{"elements", "layout", "background", "content", "style"}

const maxListedSections = 3

// Input carries the data needed to classify an operation.
type Input struct {
	// Current is the block's present data; nil means the block does not exist.
	Current       map[string]any
	DefaultData   map[string]any
	SchemaSummary string
}

// Result is the classification with a human-readable justification.
type Result struct {
	Intent Intent `json:"intent"`
	Reason string `json:"reason"`
}

// ShouldCreateBlock reports whether there is no existing data to work from.
func ShouldCreateBlock(current map[string]any) bool {
	return current == nil
}

// ShouldReplaceBlock reports whether current still matches the defaults.
func ShouldReplaceBlock(current, defaultData map[string]any) bool {
	return current != nil && jsonutil.Equal(current, defaultData)
}

// Classify applies the decision order: create when there is no data, replace
// when the data equals the defaults, otherwise update naming the changed
// top-level sections.
func Classify(in Input) Result {
	if ShouldCreateBlock(in.Current) {
		return Result{Intent: Create, Reason: "Block has no existing data, so new content will be created."}
	}

	if ShouldReplaceBlock(in.Current, in.DefaultData) {
		return Result{
			Intent: Replace,
			Reason: "Block data is identical to defaults, suggest new content.",
		}
	}

	changed := ChangedSections(in.Current, in.DefaultData)
	if len(changed) > 0 {
		listed := changed
		if len(listed) > maxListedSections {
			listed = listed[:maxListedSections]
		}
		reason := "User has customized " + strings.Join(listed, ", ")
		if extra := len(changed) - len(listed); extra > 0 {
			reason += fmt.Sprintf(" and %d more", extra)
		}
		return Result{Intent: Update, Reason: reason + "; preserve existing content and apply targeted changes."}
	}

	return Result{Intent: Update, Reason: "Block has been customized; apply targeted changes."}
}

// ChangedSections lists top-level keys whose values differ between current
// and defaults. Keys only in current are suffixed "(added)", keys only in
// defaults "(removed)".
func ChangedSections(current, defaultData map[string]any) []string {
	var changed []string
	check := func(key string) {
		cur, inCurrent := current[key]
		def, inDefault := defaultData[key]
		switch {
		case inCurrent && inDefault:
			if !jsonutil.Equal(cur, def) {
				changed = append(changed, key)
			}
		case inCurrent:
			changed = append(changed, key+" (added)")
		case inDefault:
			changed = append(changed, key+" (removed)")
		}
	}

	known := make(map[string]bool, len(sectionCandidates))
	for _, key := range sectionCandidates {
		known[key] = true
		check(key)
	}

	var others []string
	seen := map[string]bool{}
	for _, m := range []map[string]any{current, defaultData} {
		for key := range m {
			if !known[key] && !seen[key] {
				seen[key] = true
				others = append(others, key)
			}
		}
	}
	sort.Strings(others)
	for _, key := range others {
		check(key)
	}
	return changed
}
