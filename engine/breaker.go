package engine

import (
	"github.com/spektr-org/voltcalc/tables"
)

// RequiredBreakerRating is load × continuous factor (when continuous) plus
// non-continuous amps at 100%.
func RequiredBreakerRating(in BreakerInput, continuousFactor float64) float64 {
	if in.Continuous {
		return in.LoadAmps*continuousFactor + in.NonContinuousAmps
	}
	return in.LoadAmps + in.NonContinuousAmps
}

// SizeBreaker selects the smallest standard breaker for a load. When the
// fault-current stage ran, the selected frame's interrupting rating is
// checked against the available symmetrical current. The rating is never
// raised to chase interrupting capacity; a shortfall is a failing record.
func SizeBreaker(repo *tables.Repository, in BreakerInput, rules RuleConfiguration) (*BreakerResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Fault != nil && (!isFinite(in.Fault.SymmetricalAmps) || in.Fault.SymmetricalAmps <= 0) {
		return nil, &InputError{Field: "fault.symmetricalAmps", Reason: "must be > 0"}
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}

	ladder, err := repo.StandardSizes(tables.KindBreaker)
	if err != nil {
		return nil, err
	}
	required := RequiredBreakerRating(in, rules.ContinuousFactor)
	sel := selectRung(ladder, required, rules.Alternatives)
	sel.Revision = repo.Revision()

	interrupting := in.InterruptingAmps
	if interrupting == 0 {
		interrupting, err = repo.InterruptingRating(sel.RatedCapacity)
		if err != nil {
			return nil, err
		}
	}

	res := &BreakerResult{SizingResult: sel, InterruptingAmps: interrupting}
	ev := NewEvaluator(rules)
	res.Compliance = []ComplianceRecord{
		ev.CapacityAvailable(sel),
		ev.AmpacityMargin(sel),
	}
	if in.Fault != nil {
		res.AvailableFaultAmps = in.Fault.SymmetricalAmps
		res.Compliance = append(res.Compliance, ev.InterruptingCapacity(interrupting, in.Fault.SymmetricalAmps))
	}
	return res, nil
}
