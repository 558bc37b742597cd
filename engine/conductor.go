package engine

import (
	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// CONDUCTOR SIZING: Ampacity with derating, then voltage drop
// ============================================================================
// Walk the material's ladder smallest-first in the configured insulation
// column. A rung is accepted when its derated ampacity covers the required
// ampacity AND the drop at the actual load current stays within the limit.
// If no rung qualifies the largest one is returned flagged CapacityExceeded.
// ============================================================================

// RequiredAmpacity is continuous current × continuous factor plus
// non-continuous current at 100%.
func RequiredAmpacity(p LoadProfile, continuousFactor float64) float64 {
	if p.Continuous {
		return p.Current*continuousFactor + p.NonContinuousCurrent
	}
	return p.Current + p.NonContinuousCurrent
}

// SizeConductor selects the smallest conductor for a load profile.
func SizeConductor(repo *tables.Repository, p LoadProfile, rules RuleConfiguration) (*ConductorResult, error) {
	p = p.withDefaults()
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}

	ladder, err := repo.ConductorSizes(p.Material, rules.TemperatureRatingC)
	if err != nil {
		return nil, err
	}
	factors, err := deration(repo, p.AmbientC, p.ConductorCount, rules.TemperatureRatingC)
	if err != nil {
		return nil, err
	}

	required := RequiredAmpacity(p, rules.ContinuousFactor)
	load := p.TotalCurrent()

	candidate := func(e tables.SizeEntry) (Candidate, VoltageDropResult, error) {
		rated := e.Capacity * factors.Combined()
		vd, err := voltageDrop(repo, e.Label, p.Material, load, p.DistanceFt, p.Voltage, rules.VoltageDropLimitPercent)
		if err != nil {
			return Candidate{}, VoltageDropResult{}, err
		}
		return Candidate{
			Size:               e.Label,
			RatedCapacity:      rated,
			MarginPercent:      marginPercent(rated, required),
			VoltageDropPercent: vd.Percent,
		}, vd, nil
	}

	var (
		rejected []Candidate
		chosen   = -1
		chosenC  Candidate
		chosenVD VoltageDropResult
	)
	for i, e := range ladder.Entries {
		c, vd, err := candidate(e)
		if err != nil {
			return nil, err
		}
		switch {
		case c.RatedCapacity < required:
			c.RejectedFor = RejectCapacity
		case !vd.Acceptable:
			c.RejectedFor = RejectVoltageDrop
		default:
			chosen, chosenC, chosenVD = i, c, vd
		}
		if chosen >= 0 {
			break
		}
		rejected = append(rejected, c)
	}

	exceeded := chosen < 0
	if exceeded {
		chosen = len(ladder.Entries) - 1
		last := rejected[len(rejected)-1]
		rejected = rejected[:len(rejected)-1]
		chosenC = last
		chosenC.RejectedFor = ""
		chosenVD, err = voltageDrop(repo, last.Size, p.Material, load, p.DistanceFt, p.Voltage, rules.VoltageDropLimitPercent)
		if err != nil {
			return nil, err
		}
	}
	if n := rules.Alternatives; len(rejected) > n {
		rejected = rejected[len(rejected)-n:]
	}

	base := ladder.Entries[chosen].Capacity
	res := &ConductorResult{
		SizingResult: SizingResult{
			Kind:             ladder.Kind,
			Revision:         repo.Revision(),
			SelectedSize:     chosenC.Size,
			RatedCapacity:    chosenC.RatedCapacity,
			RequiredCapacity: required,
			MarginPercent:    chosenC.MarginPercent,
			CapacityExceeded: exceeded,
			Rejected:         rejected,
		},
		Material:           p.Material,
		TemperatureRatingC: rules.TemperatureRatingC,
		BaseAmpacity:       base,
		Factors:            factors,
		VoltageDrop:        chosenVD,
	}
	for _, e := range nextRungs(ladder.Entries, chosen, rules.Alternatives) {
		c, _, err := candidate(e)
		if err != nil {
			return nil, err
		}
		res.Alternatives = append(res.Alternatives, c)
	}

	ev := NewEvaluator(rules)
	res.Compliance = []ComplianceRecord{
		ev.CapacityAvailable(res.SizingResult),
		ev.AmpacityMargin(res.SizingResult),
		ev.VoltageDrop(chosenVD.Percent),
	}
	return res, nil
}

// ============================================================================
// VOLTAGE DROP
// ============================================================================

// VoltageDrop computes V_drop = I × Z × (distance / reference length) for a
// known conductor and compares the percentage against the limit.
func VoltageDrop(repo *tables.Repository, in VoltageDropInput, rules RuleConfiguration) (*VoltageDropResult, error) {
	if in.Material == "" {
		in.Material = tables.Copper
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}
	vd, err := voltageDrop(repo, in.Size, in.Material, in.Current, in.DistanceFt, in.Voltage, rules.VoltageDropLimitPercent)
	if err != nil {
		return nil, err
	}
	return &vd, nil
}

func voltageDrop(repo *tables.Repository, size string, material tables.Material, current, distanceFt, voltage, limit float64) (VoltageDropResult, error) {
	imp, err := repo.Impedance(size, material)
	if err != nil {
		return VoltageDropResult{}, err
	}
	volts := current * imp.Effective * (distanceFt / repo.ReferenceLengthFt())
	pct := volts / voltage * 100
	return VoltageDropResult{
		Size:         size,
		Material:     material,
		Impedance:    imp.Effective,
		Volts:        volts,
		Percent:      pct,
		LimitPercent: limit,
		Acceptable:   pct <= limit,
	}, nil
}
