package engine

import (
	"math"

	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// LADDER SELECTION: Shared by breaker and transformer sizing
// ============================================================================

// selectRung picks the smallest rung ≥ required. When none qualifies the
// largest rung is returned with exceeded set.
func selectRung(t tables.StandardSizeTable, required float64, alternatives int) SizingResult {
	idx, ok := t.FirstAtLeast(required)
	selected := t.Entries[idx]
	res := SizingResult{
		Kind:             t.Kind,
		SelectedSize:     selected.Label,
		RatedCapacity:    selected.Capacity,
		RequiredCapacity: required,
		MarginPercent:    marginPercent(selected.Capacity, required),
		CapacityExceeded: !ok,
	}

	lo := idx - alternatives
	if lo < 0 {
		lo = 0
	}
	for _, e := range t.Entries[lo:idx] {
		res.Rejected = append(res.Rejected, Candidate{
			Size:          e.Label,
			RatedCapacity: e.Capacity,
			MarginPercent: marginPercent(e.Capacity, required),
			RejectedFor:   RejectCapacity,
		})
	}
	for _, e := range nextRungs(t.Entries, idx, alternatives) {
		res.Alternatives = append(res.Alternatives, Candidate{
			Size:          e.Label,
			RatedCapacity: e.Capacity,
			MarginPercent: marginPercent(e.Capacity, required),
		})
	}
	return res
}

func nextRungs(entries []tables.SizeEntry, idx, n int) []tables.SizeEntry {
	hi := idx + 1 + n
	if hi > len(entries) {
		hi = len(entries)
	}
	if idx+1 >= hi {
		return nil
	}
	return entries[idx+1 : hi]
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func phaseFactor(phases int) float64 {
	if phases == 3 {
		return math.Sqrt(3)
	}
	return 1
}
