package engine

import (
	"math"

	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// LOAD FLOW: Steady-state power on a chosen conductor
// ============================================================================
// S = V × I (× √3 three-phase), P = S × pf, Q = S × sin(acos pf).
// Copper loss is I² × R over every current-carrying conductor of the run.
// Regulation above, or efficiency below, the configured thresholds yields
// warning records, never failures.
// ============================================================================

// AnalyzeLoadFlow computes power, regulation and losses for a load on the
// given conductor size.
func AnalyzeLoadFlow(repo *tables.Repository, in LoadFlowInput, rules RuleConfiguration) (*LoadFlowResult, error) {
	p := in.Load.withDefaults()
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	if in.Size == "" {
		return nil, invalid("size", "", "is required")
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}

	imp, err := repo.Impedance(in.Size, p.Material)
	if err != nil {
		return nil, err
	}
	vd, err := voltageDrop(repo, in.Size, p.Material, p.TotalCurrent(), p.DistanceFt, p.Voltage, rules.VoltageDropLimitPercent)
	if err != nil {
		return nil, err
	}

	i := p.TotalCurrent()
	kva := p.Voltage * i * phaseFactor(p.Phases) / 1000
	kw := kva * p.PowerFactor
	kvar := kva * math.Sin(math.Acos(p.PowerFactor))

	r := imp.Resistance
	if r == 0 {
		r = imp.Effective
	}
	conductors := 2.0
	if p.Phases == 3 {
		conductors = 3
	}
	loss := i * i * r * (p.DistanceFt / repo.ReferenceLengthFt()) * conductors
	eff := kw * 1000 / (kw*1000 + loss) * 100

	ev := NewEvaluator(rules)
	return &LoadFlowResult{
		Revision:           repo.Revision(),
		Size:               in.Size,
		RealPowerKW:        kw,
		ReactivePowerKVAR:  kvar,
		ApparentPowerKVA:   kva,
		PowerFactor:        p.PowerFactor,
		VoltageDropPercent: vd.Percent,
		CopperLossWatts:    loss,
		EfficiencyPercent:  eff,
		Compliance: []ComplianceRecord{
			ev.VoltageRegulation(vd.Percent),
			ev.Efficiency(eff),
		},
	}, nil
}
