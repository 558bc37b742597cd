package engine

import (
	"github.com/spektr-org/voltcalc/tables"
)

// SizeTransformer selects the smallest standard kVA rating that carries
// load ÷ efficiency.
func SizeTransformer(repo *tables.Repository, in TransformerInput, rules RuleConfiguration) (*TransformerResult, error) {
	if in.Efficiency == 0 {
		in.Efficiency = rules.DefaultEfficiency
	}
	if in.Phases == 0 {
		in.Phases = 3
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}

	ladder, err := repo.StandardSizes(tables.KindTransformer)
	if err != nil {
		return nil, err
	}
	required := in.LoadKVA / in.Efficiency
	sel := selectRung(ladder, required, rules.Alternatives)
	sel.Revision = repo.Revision()

	kva := sel.RatedCapacity
	res := &TransformerResult{
		SizingResult:          sel,
		Efficiency:            in.Efficiency,
		PrimaryFLA:            TransformerFLA(kva, in.PrimaryVoltage, in.Phases),
		SecondaryFLA:          TransformerFLA(kva, in.SecondaryVoltage, in.Phases),
		UtilizationPercent:    in.LoadKVA / kva * 100,
		CapacityMarginPercent: (kva - required) / kva * 100,
	}
	ev := NewEvaluator(rules)
	res.Compliance = []ComplianceRecord{
		ev.CapacityAvailable(sel),
		ev.CapacityMargin(sel),
	}
	return res, nil
}
