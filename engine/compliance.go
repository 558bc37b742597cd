package engine

import (
	"fmt"
)

// ============================================================================
// COMPLIANCE: Rule records over sizing results
// ============================================================================
// The Evaluator is stateless: callers hand it the values that feed each rule
// and get one ComplianceRecord per rule back. A passing value within
// WarningBandPercent of its threshold is reported as a warning so reviewers
// see designs sitting on the edge.
// ============================================================================

// Status of a single rule check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusWarning Status = "warning"
)

// Rule identifiers.
const (
	RuleVoltageDropMax       = "voltage_drop_max"
	RuleAmpacityMarginMin    = "ampacity_margin_min"
	RuleCapacityMarginMin    = "capacity_margin_min"
	RuleCapacityAvailable    = "capacity_available"
	RuleInterruptingCapacity = "interrupting_capacity"
	RuleVoltageRegulation    = "voltage_regulation"
	RuleEfficiency           = "efficiency"
)

// ComplianceRecord is the outcome of one rule against one result.
type ComplianceRecord struct {
	RuleID      string  `json:"ruleId"`
	Description string  `json:"description"`
	Status      Status  `json:"status"`
	Measured    float64 `json:"measured"`
	Threshold   float64 `json:"threshold"`
	Margin      float64 `json:"margin"` // distance to the threshold, negative when breached
}

func allPass(records []ComplianceRecord) bool {
	for _, r := range records {
		if r.Status == StatusFail {
			return false
		}
	}
	return true
}

// Failures returns the failing records.
func Failures(records []ComplianceRecord) []ComplianceRecord {
	var out []ComplianceRecord
	for _, r := range records {
		if r.Status == StatusFail {
			out = append(out, r)
		}
	}
	return out
}

// Evaluator applies the rule thresholds of a RuleConfiguration.
type Evaluator struct {
	rules RuleConfiguration
}

// NewEvaluator binds an Evaluator to a rule set.
func NewEvaluator(rules RuleConfiguration) Evaluator {
	return Evaluator{rules: rules}
}

// VoltageDrop checks a drop percentage against the configured limit.
func (e Evaluator) VoltageDrop(percent float64) ComplianceRecord {
	limit := e.rules.VoltageDropLimitPercent
	return e.atMost(RuleVoltageDropMax,
		fmt.Sprintf("voltage drop ≤ %g%%", limit), percent, limit, StatusFail)
}

// AmpacityMargin checks that the selected rating exceeds the requirement by
// at least the configured margin.
func (e Evaluator) AmpacityMargin(r SizingResult) ComplianceRecord {
	floor := e.rules.AmpacityMarginMinPercent
	return e.atLeast(RuleAmpacityMarginMin,
		fmt.Sprintf("ampacity margin ≥ %g%%", floor), r.MarginPercent, floor, StatusFail)
}

// CapacityMargin is AmpacityMargin for kVA-rated equipment.
func (e Evaluator) CapacityMargin(r SizingResult) ComplianceRecord {
	floor := e.rules.AmpacityMarginMinPercent
	return e.atLeast(RuleCapacityMarginMin,
		fmt.Sprintf("capacity margin ≥ %g%%", floor), r.MarginPercent, floor, StatusFail)
}

// CapacityAvailable fails when the ladder was exhausted.
func (e Evaluator) CapacityAvailable(r SizingResult) ComplianceRecord {
	rec := ComplianceRecord{
		RuleID:      RuleCapacityAvailable,
		Description: fmt.Sprintf("standard %s size available", r.Kind),
		Status:      StatusPass,
		Measured:    r.RatedCapacity,
		Threshold:   r.RequiredCapacity,
		Margin:      r.RatedCapacity - r.RequiredCapacity,
	}
	if r.CapacityExceeded {
		rec.Status = StatusFail
	}
	return rec
}

// InterruptingCapacity checks interrupting ÷ available fault current against
// the configured minimum ratio.
func (e Evaluator) InterruptingCapacity(interruptingAmps, availableAmps float64) ComplianceRecord {
	ratio := interruptingAmps / availableAmps
	return e.atLeast(RuleInterruptingCapacity,
		fmt.Sprintf("interrupting rating ≥ %g × available fault current", e.rules.InterruptingMarginMin),
		ratio, e.rules.InterruptingMarginMin, StatusFail)
}

// VoltageRegulation flags (but does not fail) poor regulation.
func (e Evaluator) VoltageRegulation(percent float64) ComplianceRecord {
	limit := e.rules.VoltageRegulationWarnPercent
	return e.atMost(RuleVoltageRegulation,
		fmt.Sprintf("voltage regulation ≤ %g%%", limit), percent, limit, StatusWarning)
}

// Efficiency flags (but does not fail) high conductor losses.
func (e Evaluator) Efficiency(percent float64) ComplianceRecord {
	floor := e.rules.EfficiencyWarnPercent
	return e.atLeast(RuleEfficiency,
		fmt.Sprintf("efficiency ≥ %g%%", floor), percent, floor, StatusWarning)
}

// atMost checks measured ≤ limit. breach is the status on violation; the
// warning band only applies to rules that can fail.
func (e Evaluator) atMost(id, desc string, measured, limit float64, breach Status) ComplianceRecord {
	rec := ComplianceRecord{
		RuleID:      id,
		Description: desc,
		Status:      StatusPass,
		Measured:    measured,
		Threshold:   limit,
		Margin:      limit - measured,
	}
	switch {
	case measured > limit:
		rec.Status = breach
	case breach == StatusFail && measured > limit*(1-e.rules.WarningBandPercent/100):
		rec.Status = StatusWarning
	}
	return rec
}

// atLeast checks measured ≥ min. A zero minimum has no warning band.
func (e Evaluator) atLeast(id, desc string, measured, floor float64, breach Status) ComplianceRecord {
	rec := ComplianceRecord{
		RuleID:      id,
		Description: desc,
		Status:      StatusPass,
		Measured:    measured,
		Threshold:   floor,
		Margin:      measured - floor,
	}
	switch {
	case measured < floor:
		rec.Status = breach
	case breach == StatusFail && floor > 0 && measured < floor*(1+e.rules.WarningBandPercent/100):
		rec.Status = StatusWarning
	}
	return rec
}
