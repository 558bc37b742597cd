package engine

import (
	"math"

	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// FAULT CURRENT
// ============================================================================
// transformer_only:  I_sc = FLA × (100 / %Z), the infinite-bus simplification.
//                    Source MVA and the conductor run are ignored.
// point_to_point:    utility, transformer and conductor impedances are summed
//                    as R + jX (Ω per phase) and I_sc = V / (√3 · |Z|), or
//                    V / |Z| single-phase.
//
// Asymmetrical current is symmetrical × √(1 + 2e^(−2π / (X/R))) when X/R is
// known, otherwise × the configured multiplier.
// ============================================================================

// TransformerFLA is kVA × 1000 / (V × √3) three-phase, kVA × 1000 / V
// single-phase.
func TransformerFLA(kva, voltage float64, phases int) float64 {
	return kva * 1000 / (voltage * phaseFactor(phases))
}

// AsymmetricalFactor returns the peak asymmetry multiplier for an X/R ratio.
func AsymmetricalFactor(xr float64) float64 {
	return math.Sqrt(1 + 2*math.Exp(-2*math.Pi/xr))
}

// FaultCurrent computes the available fault current at the fault point.
func FaultCurrent(repo *tables.Repository, in FaultInput, rules RuleConfiguration) (*FaultCurrentResult, error) {
	if in.Conductor != nil {
		run := *in.Conductor
		if run.Material == "" {
			run.Material = tables.Copper
		}
		if run.ParallelSets == 0 {
			run.ParallelSets = 1
		}
		in.Conductor = &run
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}

	fla := TransformerFLA(in.TransformerKVA, in.Voltage, in.Phases)
	res := &FaultCurrentResult{
		Method:         rules.FaultMethod,
		Revision:       repo.Revision(),
		TransformerFLA: fla,
		Multiplier:     100 / in.ImpedancePercent,
	}

	switch rules.FaultMethod {
	case FaultPointToPoint:
		z, err := pointToPoint(repo, in, rules)
		if err != nil {
			return nil, err
		}
		res.Impedance = z
		res.SymmetricalAmps = in.Voltage / (phaseFactor(in.Phases) * z.TotalOhms)
		if z.TotalR > 0 {
			res.XRRatio = z.TotalX / z.TotalR
		}
	default:
		res.SymmetricalAmps = fla * res.Multiplier
		res.XRRatio = in.XRRatio
		res.ConductorIgnored = in.Conductor != nil
	}

	if res.XRRatio > 0 {
		res.AsymmetricalFactor = AsymmetricalFactor(res.XRRatio)
	} else {
		res.AsymmetricalFactor = rules.AsymmetricalMultiplier
	}
	res.AsymmetricalAmps = res.SymmetricalAmps * res.AsymmetricalFactor
	return res, nil
}

func pointToPoint(repo *tables.Repository, in FaultInput, rules RuleConfiguration) (*ImpedanceBreakdown, error) {
	v2 := in.Voltage * in.Voltage
	z := &ImpedanceBreakdown{}

	// Transformer, split into R and X by its X/R ratio.
	xr := in.XRRatio
	if xr == 0 {
		xr = rules.DefaultXRRatio
	}
	zt := in.ImpedancePercent / 100 * v2 / (in.TransformerKVA * 1000)
	rt := zt / math.Sqrt(1+xr*xr)
	z.TransformerOhms = zt
	z.TotalR += rt
	z.TotalX += rt * xr

	// Utility source, treated as purely reactive. Zero MVA is an infinite bus.
	if in.SourceMVA > 0 {
		zs := v2 / (in.SourceMVA * 1e6)
		z.SourceOhms = zs
		z.TotalX += zs
	}

	if run := in.Conductor; run != nil {
		imp, err := repo.Impedance(run.Size, run.Material)
		if err != nil {
			return nil, err
		}
		scale := run.LengthFt / repo.ReferenceLengthFt() / float64(run.ParallelSets)
		if in.Phases == 1 {
			scale *= 2 // out and back
		}
		r, x := imp.Resistance*scale, imp.Reactance*scale
		if r == 0 && x == 0 {
			r = imp.Effective * scale
		}
		z.ConductorOhms = math.Hypot(r, x)
		z.TotalR += r
		z.TotalX += x
	}

	z.TotalOhms = math.Hypot(z.TotalR, z.TotalX)
	return z, nil
}
