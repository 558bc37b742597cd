package tables

import "fmt"

// SizeKind names a standard-size ladder.
type SizeKind string

const (
	KindCopper      SizeKind = "conductor_copper"
	KindAluminum    SizeKind = "conductor_aluminum"
	KindBreaker     SizeKind = "breaker"
	KindTransformer SizeKind = "transformer"
)

// ConductorKind returns the ladder kind for a conductor material.
func ConductorKind(m Material) SizeKind {
	if m == Aluminum {
		return KindAluminum
	}
	return KindCopper
}

// SizeEntry is one rung of a standard-size ladder.
type SizeEntry struct {
	Label    string  `json:"label"`
	Capacity float64 `json:"capacity"` // amps for conductors/breakers, kVA for transformers
}

// StandardSizeTable is an ordered sequence of discrete capacities, strictly
// increasing by Capacity.
type StandardSizeTable struct {
	Kind    SizeKind    `json:"kind"`
	Entries []SizeEntry `json:"entries"`
}

// Len returns the number of rungs.
func (t StandardSizeTable) Len() int {
	return len(t.Entries)
}

// Max returns the largest rung. The table must not be empty.
func (t StandardSizeTable) Max() SizeEntry {
	return t.Entries[len(t.Entries)-1]
}

// FirstAtLeast returns the index of the first entry whose capacity is
// >= required, scanning ascending.
func (t StandardSizeTable) FirstAtLeast(required float64) (int, bool) {
	for i, e := range t.Entries {
		if e.Capacity >= required {
			return i, true
		}
	}
	return len(t.Entries) - 1, false
}

// Index returns the position of label in the table.
func (t StandardSizeTable) Index(label string) (int, bool) {
	for i, e := range t.Entries {
		if e.Label == label {
			return i, true
		}
	}
	return -1, false
}

func (t StandardSizeTable) validate() error {
	if len(t.Entries) == 0 {
		return fmt.Errorf("%s table is empty", t.Kind)
	}
	for i := 1; i < len(t.Entries); i++ {
		if t.Entries[i].Capacity <= t.Entries[i-1].Capacity {
			return fmt.Errorf("%s table not strictly increasing at %q (%g <= %g)",
				t.Kind, t.Entries[i].Label, t.Entries[i].Capacity, t.Entries[i-1].Capacity)
		}
	}
	return nil
}

// formatCapacity renders ladder labels the way catalogs print them:
// "30", "37.5".
func formatCapacity(v float64) string {
	return fmt.Sprintf("%g", v)
}
