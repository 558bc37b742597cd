package engine

import (
	"fmt"
)

// ============================================================================
// RULE CONFIGURATION: Code-derived constants, injected per Calculator
// ============================================================================
// Every constant the sizing engines depend on lives here so a jurisdiction or
// code-revision change is a configuration change. A RuleConfiguration is
// copied into the Calculator at construction and never mutated afterwards.
// ============================================================================

// RuleConfiguration holds the tunable constants of the rule set.
type RuleConfiguration struct {
	// CodeTableRevision must match the repository's revision. Empty means
	// "whatever revision the repository carries".
	CodeTableRevision string `json:"codeTableRevision,omitempty" yaml:"code_table_revision"`

	ContinuousFactor        float64 `json:"continuousFactor" yaml:"continuous_factor" validate:"finite,gte=1"`
	VoltageDropLimitPercent float64 `json:"voltageDropLimitPercent" yaml:"voltage_drop_limit_percent" validate:"finite,gt=0"`
	TemperatureRatingC      int     `json:"temperatureRatingC" yaml:"temperature_rating_c" validate:"gt=0"`

	LockedRotorMultiplier float64 `json:"lockedRotorMultiplier" yaml:"locked_rotor_multiplier" validate:"finite,gt=0"`
	SoftStartFactor       float64 `json:"softStartFactor" yaml:"soft_start_factor" validate:"finite,gt=0,lte=1"`
	VFDStartFactor        float64 `json:"vfdStartFactor" yaml:"vfd_start_factor" validate:"finite,gt=0"`

	FaultMethod            FaultMethod `json:"faultMethod" yaml:"fault_method" validate:"oneof=transformer_only point_to_point"`
	AsymmetricalMultiplier float64     `json:"asymmetricalMultiplier" yaml:"asymmetrical_multiplier" validate:"finite,gte=1"` // when X/R is unknown
	DefaultXRRatio         float64     `json:"defaultXRRatio" yaml:"default_xr_ratio" validate:"finite,gt=0"`                 // transformer X/R for point-to-point when none given

	DefaultEfficiency float64 `json:"defaultEfficiency" yaml:"default_efficiency" validate:"finite,gt=0,lte=1"`

	Alternatives int `json:"alternatives" yaml:"alternatives" validate:"gte=0"`

	AmpacityMarginMinPercent     float64 `json:"ampacityMarginMinPercent" yaml:"ampacity_margin_min_percent" validate:"finite,gte=0"`
	InterruptingMarginMin        float64 `json:"interruptingMarginMin" yaml:"interrupting_margin_min" validate:"finite,gt=0"` // interrupting ÷ available
	WarningBandPercent           float64 `json:"warningBandPercent" yaml:"warning_band_percent" validate:"finite,gte=0,lt=100"`
	VoltageRegulationWarnPercent float64 `json:"voltageRegulationWarnPercent" yaml:"voltage_regulation_warn_percent" validate:"finite,gt=0"`
	EfficiencyWarnPercent        float64 `json:"efficiencyWarnPercent" yaml:"efficiency_warn_percent" validate:"finite,gt=0,lte=100"`
}

// DefaultRules returns the 2023 rule set.
func DefaultRules() RuleConfiguration {
	return RuleConfiguration{
		CodeTableRevision:            "2023",
		ContinuousFactor:             1.25,
		VoltageDropLimitPercent:      3.0,
		TemperatureRatingC:           75,
		LockedRotorMultiplier:        6.0,
		SoftStartFactor:              0.4,
		VFDStartFactor:               1.1,
		FaultMethod:                  FaultTransformerOnly,
		AsymmetricalMultiplier:       1.8,
		DefaultXRRatio:               4.0,
		DefaultEfficiency:            0.95,
		Alternatives:                 3,
		AmpacityMarginMinPercent:     0,
		InterruptingMarginMin:        1.0,
		WarningBandPercent:           10,
		VoltageRegulationWarnPercent: 5,
		EfficiencyWarnPercent:        90,
	}
}

// Validate reports the first unusable constant.
func (r RuleConfiguration) Validate() error {
	if err := validateStruct(r); err != nil {
		return fmt.Errorf("rule configuration: %w", err)
	}
	return nil
}
