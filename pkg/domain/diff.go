package domain

import (
	"reflect"
	"slices"
)

// StateDiff represents the changes a node applied to the state.
// It is designed to be serialized to JSON next to the log entry it belongs to.
type StateDiff struct {
	// Set contains added or modified keys with their new value.
	Set map[string]any `json:"set,omitempty"`

	// Removed lists keys present before but absent after, in their old order.
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between before and after.
// If before is nil, every key of after is reported as set.
// It returns nil when nothing changed.
func Diff(before, after *State) *StateDiff {
	diff := &StateDiff{}

	after.Range(func(k string, newVal any) bool {
		oldVal, exists := before.Get(k)
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			if diff.Set == nil {
				diff.Set = make(map[string]any)
			}
			diff.Set[k] = deepCopy(newVal)
		}
		return true
	})

	before.Range(func(k string, _ any) bool {
		if !after.Has(k) {
			diff.Removed = append(diff.Removed, k)
		}
		return true
	})

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d == nil || (len(d.Set) == 0 && len(d.Removed) == 0)
}

// Clone returns a deep copy of d.
func (d *StateDiff) Clone() *StateDiff {
	if d == nil {
		return nil
	}
	out := &StateDiff{Removed: slices.Clone(d.Removed)}
	if d.Set != nil {
		out.Set = make(map[string]any, len(d.Set))
		for k, v := range d.Set {
			out.Set[k] = deepCopy(v)
		}
	}
	return out
}
