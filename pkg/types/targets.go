package domain

import (
	"maps"
	"slices"
	"strings"
)

// TargetSet is the set of product identifiers a user wants alerts for.
// An empty set means every product is a target.
type TargetSet map[string]struct{}

// ParseTargets splits a comma-separated list into a TargetSet. Entries are
// trimmed and lowercased; empty entries are dropped.
func ParseTargets(raw string) TargetSet {
	return NewTargetSet(strings.Split(raw, ","))
}

// NewTargetSet builds a TargetSet from individual identifiers.
func NewTargetSet(ids []string) TargetSet {
	t := make(TargetSet, len(ids))
	for _, id := range ids {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		t[id] = struct{}{}
	}
	return t
}

// All reports whether the set selects every product.
func (t TargetSet) All() bool {
	return len(t) == 0
}

// Includes reports whether id is targeted.
func (t TargetSet) Includes(id string) bool {
	if t.All() {
		return true
	}
	_, ok := t[id]
	return ok
}

// IDs returns the targeted identifiers, sorted.
func (t TargetSet) IDs() []string {
	return slices.Sorted(maps.Keys(t))
}

// String renders the set back into its comma-separated form.
func (t TargetSet) String() string {
	return strings.Join(t.IDs(), ",")
}
