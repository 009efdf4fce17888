// Package filter implements the listing tag matching engine.
package filter

import (
	"slices"

	"arcana_bot/internal/model"
)

// PrimaryTagCount is the number of leading tags treated as most representative
// of a listing when primary-only matching is requested.
const PrimaryTagCount = 3

// Match checks whether a listing with the given tag ids passes the filter.
// Any excluded id rejects the listing, even if it is also included.
// An empty include set accepts everything not excluded.
// Otherwise at least one included id must be present (OR logic), checked
// against the primary tags only when f.PrimaryOnly is set.
func Match(tagIDs []int, f model.SearchFilter) bool {
	for _, id := range f.Exclude {
		if slices.Contains(tagIDs, id) {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}

	candidates := tagIDs
	if f.PrimaryOnly && len(candidates) >= PrimaryTagCount {
		candidates = candidates[:PrimaryTagCount]
	}

	for _, id := range f.Include {
		if slices.Contains(candidates, id) {
			return true
		}
	}
	return false
}

// Without returns ids with every element of drop removed, preserving order.
func Without(ids, drop []int) []int {
	var out []int
	for _, id := range ids {
		if !slices.Contains(drop, id) {
			out = append(out, id)
		}
	}
	return out
}
