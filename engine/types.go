package engine

import (
	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// VOLTCALC ENGINE TYPES
// ============================================================================
// Inputs are plain values built per call and never mutated by the engine.
// Results are produced once and returned by value/pointer; the engine keeps
// no reference to them.
// ============================================================================

// ============================================================================
// LOAD PROFILE: Input to conductor sizing, voltage drop, load flow
// ============================================================================

// LoadProfile describes one circuit's load and installation conditions.
//
// Phases, PowerFactor, ConductorCount and Material are optional: their zero
// values are replaced by 3, 0.85, 3 and copper. Current, Voltage and
// DistanceFt are required and must be finite and positive. AmbientC may be
// zero or negative.
type LoadProfile struct {
	Current              float64         `json:"current" yaml:"current" validate:"finite,gt=0"`                                  // design current (A)
	NonContinuousCurrent float64         `json:"nonContinuousCurrent,omitempty" yaml:"non_continuous_current" validate:"finite,gte=0"` // added at 100%
	Voltage              float64         `json:"voltage" yaml:"voltage" validate:"finite,gt=0"`
	Phases               int             `json:"phases" yaml:"phases" validate:"oneof=1 3"`
	DistanceFt           float64         `json:"distanceFt" yaml:"distance_ft" validate:"finite,gt=0"` // one-way run length
	PowerFactor          float64         `json:"powerFactor" yaml:"power_factor" validate:"finite,gt=0,lte=1"`
	Continuous           bool            `json:"continuous" yaml:"continuous"` // Current runs 3h or more
	AmbientC             float64         `json:"ambientC" yaml:"ambient_c" validate:"finite"`
	ConductorCount       int             `json:"conductorCount" yaml:"conductor_count" validate:"gte=1"` // current-carrying conductors in the raceway
	Material             tables.Material `json:"material" yaml:"material" validate:"oneof=copper aluminum"`
}

func (p LoadProfile) withDefaults() LoadProfile {
	if p.Phases == 0 {
		p.Phases = 3
	}
	if p.PowerFactor == 0 {
		p.PowerFactor = 0.85
	}
	if p.ConductorCount == 0 {
		p.ConductorCount = 3
	}
	if p.Material == "" {
		p.Material = tables.Copper
	}
	return p
}

// TotalCurrent is the current that actually flows: continuous plus
// non-continuous.
func (p LoadProfile) TotalCurrent() float64 {
	return p.Current + p.NonContinuousCurrent
}

// ============================================================================
// DERATING
// ============================================================================

// DerationFactors are the multipliers applied to a base ampacity. Each lies
// in (0, 1].
type DerationFactors struct {
	TemperatureFactor float64 `json:"temperatureFactor"`
	FillFactor        float64 `json:"fillFactor"`
}

// Combined returns the product of all factors.
func (f DerationFactors) Combined() float64 {
	return f.TemperatureFactor * f.FillFactor
}

// ============================================================================
// SIZING RESULT: Common shape of every ladder selection
// ============================================================================

// Candidate is a ladder rung considered during selection.
type Candidate struct {
	Size               string  `json:"size"`
	RatedCapacity      float64 `json:"ratedCapacity"` // after derating
	MarginPercent      float64 `json:"marginPercent"`
	VoltageDropPercent float64 `json:"voltageDropPercent,omitempty"`
	RejectedFor        string  `json:"rejectedFor,omitempty"` // "capacity", "voltage_drop"
}

// Rejection reasons.
const (
	RejectCapacity    = "capacity"
	RejectVoltageDrop = "voltage_drop"
)

// SizingResult is the outcome of a standard-size selection.
type SizingResult struct {
	Kind             tables.SizeKind `json:"kind"`
	Revision         string          `json:"revision"`
	SelectedSize     string          `json:"selectedSize"`
	RatedCapacity    float64         `json:"ratedCapacity"` // after derating
	RequiredCapacity float64         `json:"requiredCapacity"`
	MarginPercent    float64         `json:"marginPercent"`

	// CapacityExceeded marks a best-effort result: no rung satisfied every
	// rule, so the largest rung is reported for human review.
	CapacityExceeded bool `json:"capacityExceeded"`

	Alternatives []Candidate `json:"alternatives,omitempty"` // next larger rungs
	Rejected     []Candidate `json:"rejected,omitempty"`     // closest smaller rungs that failed a rule

	Compliance []ComplianceRecord `json:"compliance"`
}

// Compliant reports whether the selection is usable as-is.
func (r SizingResult) Compliant() bool {
	return !r.CapacityExceeded && allPass(r.Compliance)
}

func marginPercent(rated, required float64) float64 {
	if required == 0 {
		return 0
	}
	return (rated - required) / required * 100
}

// ============================================================================
// VOLTAGE DROP
// ============================================================================

// VoltageDropInput is a single voltage-drop check for a known conductor.
type VoltageDropInput struct {
	Voltage    float64         `json:"voltage" yaml:"voltage" validate:"finite,gt=0"`
	Current    float64         `json:"current" yaml:"current" validate:"finite,gt=0"`
	DistanceFt float64         `json:"distanceFt" yaml:"distance_ft" validate:"finite,gt=0"`
	Size       string          `json:"size" yaml:"size" validate:"required"`
	Material   tables.Material `json:"material" yaml:"material" validate:"oneof=copper aluminum"`
}

// VoltageDropResult reports the drop along one conductor run.
type VoltageDropResult struct {
	Size         string          `json:"size"`
	Material     tables.Material `json:"material"`
	Impedance    float64         `json:"impedance"` // Ω per reference length
	Volts        float64         `json:"volts"`
	Percent      float64         `json:"percent"`
	LimitPercent float64         `json:"limitPercent"`
	Acceptable   bool            `json:"acceptable"`
}

// ============================================================================
// CONDUCTOR
// ============================================================================

// ConductorResult is the outcome of conductor sizing.
type ConductorResult struct {
	SizingResult
	Material           tables.Material   `json:"material"`
	TemperatureRatingC int               `json:"temperatureRatingC"`
	BaseAmpacity       float64           `json:"baseAmpacity"`
	Factors            DerationFactors   `json:"factors"`
	VoltageDrop        VoltageDropResult `json:"voltageDrop"`
}

// ============================================================================
// FAULT CURRENT
// ============================================================================

// FaultMethod selects how available fault current is computed.
type FaultMethod string

const (
	// FaultTransformerOnly reproduces the simplified calculation: transformer
	// FLA × (100 / %Z). Source and conductor impedances are accepted and
	// ignored.
	FaultTransformerOnly FaultMethod = "transformer_only"

	// FaultPointToPoint sums source, transformer and conductor impedances in
	// ohms before computing the current.
	FaultPointToPoint FaultMethod = "point_to_point"
)

// ConductorRun is the cable between the transformer secondary and the fault
// point.
type ConductorRun struct {
	Size         string          `json:"size" yaml:"size" validate:"required"`
	Material     tables.Material `json:"material" yaml:"material" validate:"oneof=copper aluminum"`
	LengthFt     float64         `json:"lengthFt" yaml:"length_ft" validate:"finite,gt=0"`
	ParallelSets int             `json:"parallelSets,omitempty" yaml:"parallel_sets" validate:"gte=1"`
}

// FaultInput describes the source feeding the fault point. Phases must be
// declared.
type FaultInput struct {
	TransformerKVA   float64       `json:"transformerKVA" yaml:"transformer_kva" validate:"finite,gt=0"`
	Voltage          float64       `json:"voltage" yaml:"voltage" validate:"finite,gt=0"` // secondary, line-to-line
	Phases           int           `json:"phases" yaml:"phases" validate:"oneof=1 3"`
	ImpedancePercent float64       `json:"impedancePercent" yaml:"impedance_percent" validate:"finite,gt=0"`
	XRRatio          float64       `json:"xrRatio,omitempty" yaml:"xr_ratio" validate:"finite,gte=0"`      // 0 = unknown
	SourceMVA        float64       `json:"sourceMVA,omitempty" yaml:"source_mva" validate:"finite,gte=0"` // 0 = infinite bus
	Conductor        *ConductorRun `json:"conductor,omitempty" yaml:"conductor"`
}

// ImpedanceBreakdown lists the series impedances (Ω per phase) used by the
// point-to-point method.
type ImpedanceBreakdown struct {
	SourceOhms      float64 `json:"sourceOhms"`
	TransformerOhms float64 `json:"transformerOhms"`
	ConductorOhms   float64 `json:"conductorOhms"`
	TotalR          float64 `json:"totalR"`
	TotalX          float64 `json:"totalX"`
	TotalOhms       float64 `json:"totalOhms"`
}

// FaultCurrentResult is the available fault current at the fault point.
type FaultCurrentResult struct {
	Method             FaultMethod         `json:"method"`
	Revision           string              `json:"revision"`
	TransformerFLA     float64             `json:"transformerFLA"`
	Multiplier         float64             `json:"multiplier"`
	SymmetricalAmps    float64             `json:"symmetricalAmps"`
	AsymmetricalAmps   float64             `json:"asymmetricalAmps"`
	AsymmetricalFactor float64             `json:"asymmetricalFactor"`
	XRRatio            float64             `json:"xrRatio,omitempty"`
	Impedance          *ImpedanceBreakdown `json:"impedance,omitempty"`
	ConductorIgnored   bool                `json:"conductorIgnored,omitempty"`
}

// ============================================================================
// BREAKER
// ============================================================================

// BreakerInput describes the load a breaker protects. Fault, when set, is
// the output of the fault-current stage and enables the interrupting check.
type BreakerInput struct {
	LoadAmps          float64             `json:"loadAmps" yaml:"load_amps" validate:"finite,gt=0"`
	NonContinuousAmps float64             `json:"nonContinuousAmps,omitempty" yaml:"non_continuous_amps" validate:"finite,gte=0"`
	Continuous        bool                `json:"continuous" yaml:"continuous"`
	InterruptingAmps  float64             `json:"interruptingAmps,omitempty" yaml:"interrupting_amps" validate:"finite,gte=0"` // overrides the table frame rating
	Fault             *FaultCurrentResult `json:"fault,omitempty" yaml:"-" validate:"-"`
}

// BreakerResult is the outcome of breaker sizing.
type BreakerResult struct {
	SizingResult
	InterruptingAmps   float64 `json:"interruptingAmps"`
	AvailableFaultAmps float64 `json:"availableFaultAmps,omitempty"`
}

// ============================================================================
// TRANSFORMER
// ============================================================================

// TransformerInput describes the connected load. Efficiency 0 means the
// configured default; Phases 0 means three-phase.
type TransformerInput struct {
	LoadKVA          float64 `json:"loadKVA" yaml:"load_kva" validate:"finite,gt=0"`
	Efficiency       float64 `json:"efficiency,omitempty" yaml:"efficiency" validate:"finite,gt=0,lte=1"`
	PrimaryVoltage   float64 `json:"primaryVoltage" yaml:"primary_voltage" validate:"finite,gt=0"`
	SecondaryVoltage float64 `json:"secondaryVoltage" yaml:"secondary_voltage" validate:"finite,gt=0"`
	Phases           int     `json:"phases,omitempty" yaml:"phases" validate:"oneof=1 3"`
}

// TransformerResult is the outcome of transformer sizing.
type TransformerResult struct {
	SizingResult
	Efficiency            float64 `json:"efficiency"`
	PrimaryFLA            float64 `json:"primaryFLA"`
	SecondaryFLA          float64 `json:"secondaryFLA"`
	UtilizationPercent    float64 `json:"utilizationPercent"`
	CapacityMarginPercent float64 `json:"capacityMarginPercent"` // (selected − required) / selected
}

// ============================================================================
// MOTOR
// ============================================================================

// StartMethod is how a motor is brought up to speed.
type StartMethod string

const (
	StartDirectOnLine StartMethod = "dol"
	StartSoftStart    StartMethod = "soft_start"
	StartVFD          StartMethod = "vfd"
)

// MotorInput describes a three-phase induction motor.
type MotorInput struct {
	HP         float64     `json:"hp" yaml:"hp" validate:"finite,gt=0"`
	Voltage    float64     `json:"voltage" yaml:"voltage" validate:"finite,gt=0"`
	Method     StartMethod `json:"method,omitempty" yaml:"method" validate:"oneof=dol soft_start vfd"`
	CodeLetter string      `json:"codeLetter,omitempty" yaml:"code_letter"` // NEMA locked-rotor code letter
}

// MotorResult reports full-load and starting currents.
type MotorResult struct {
	Revision              string           `json:"revision"`
	HP                    float64          `json:"hp"`
	Voltage               float64          `json:"voltage"`
	FLA                   float64          `json:"fla"`
	FLASource             tables.FLASource `json:"flaSource"`
	LockedRotorMultiplier float64          `json:"lockedRotorMultiplier"`
	LockedRotorAmps       float64          `json:"lockedRotorAmps"`
	StartingAmps          float64          `json:"startingAmps"`
	Method                StartMethod      `json:"method"`
	CodeLetter            string           `json:"codeLetter,omitempty"`
}

// BranchLoad turns the motor into the load input of its branch breaker.
// Motors are continuous loads at their full-load current.
func (m MotorResult) BranchLoad() BreakerInput {
	return BreakerInput{LoadAmps: m.FLA, Continuous: true}
}

// ContactorResult is the NEMA starter size for a motor.
type ContactorResult struct {
	Revision string  `json:"revision"`
	HP       float64 `json:"hp"`
	Voltage  float64 `json:"voltage"`
	NEMASize string  `json:"nemaSize"`
}

// ============================================================================
// LOAD FLOW
// ============================================================================

// LoadFlowInput analyses a load on an already chosen conductor.
type LoadFlowInput struct {
	Load LoadProfile `json:"load" yaml:"load"`
	Size string      `json:"size" yaml:"size" validate:"required"`
}

// LoadFlowResult is the steady-state power picture of one run.
type LoadFlowResult struct {
	Revision           string             `json:"revision"`
	Size               string             `json:"size"`
	RealPowerKW        float64            `json:"realPowerKW"`
	ReactivePowerKVAR  float64            `json:"reactivePowerKVAR"`
	ApparentPowerKVA   float64            `json:"apparentPowerKVA"`
	PowerFactor        float64            `json:"powerFactor"`
	VoltageDropPercent float64            `json:"voltageDropPercent"`
	CopperLossWatts    float64            `json:"copperLossWatts"`
	EfficiencyPercent  float64            `json:"efficiencyPercent"`
	Compliance         []ComplianceRecord `json:"compliance"`
}
