package tables

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// ============================================================================
// REPOSITORY: Immutable lookup surface over one Dataset
// ============================================================================
// Built once per process (or per revision) by New(). Nothing mutates a
// Repository after construction, so any number of goroutines may share one
// without locking.
//
// Lookups fail with *LookupError rather than inventing a default. The only
// documented fallback is the motor FLA linear approximation outside the
// tabulated HP range.
// ============================================================================

// voltageClassTolerance is how far a system voltage may sit from a tabulated
// voltage class and still use it (480 V → 460 V class).
const voltageClassTolerance = 0.10

// FLASource tells the caller how a motor full-load current was obtained.
type FLASource string

const (
	FLATable        FLASource = "table"
	FLAInterpolated FLASource = "interpolated"
	FLAApproximated FLASource = "approximated"
)

// Impedance is a conductor's per-reference-length impedance.
type Impedance struct {
	Resistance  float64 `json:"resistance"`
	Reactance   float64 `json:"reactance"`
	Effective   float64 `json:"effective"`
	PowerFactor float64 `json:"powerFactor"`
}

// Repository answers table lookups for one code-table revision.
type Repository struct {
	ds         Dataset
	conductors map[Material][]ConductorSpec
	bySize     map[Material]map[string]int

	breakers     StandardSizeTable
	transformers StandardSizeTable
	motors       []motorCurve
}

type motorCurve struct {
	voltage  float64
	fallback float64
	minHP    float64
	maxHP    float64
	exact    map[float64]float64
	curve    interp.PiecewiseLinear
}

// New validates a Dataset and builds an immutable Repository from a deep
// copy of it.
func New(ds Dataset) (*Repository, error) {
	if ds.Revision == "" {
		return nil, fmt.Errorf("dataset has no revision")
	}
	if ds.ReferenceLengthFt <= 0 {
		return nil, fmt.Errorf("dataset %s: reference_length_ft must be > 0", ds.Revision)
	}
	if ds.DefaultRatingC == 0 {
		ds.DefaultRatingC = 75
	}

	ds = ds.clone()
	r := &Repository{
		ds:         ds,
		conductors: make(map[Material][]ConductorSpec),
		bySize:     make(map[Material]map[string]int),
	}

	if err := r.indexConductors(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Revision, err)
	}
	if err := r.indexLadders(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Revision, err)
	}
	if err := r.indexMotors(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Revision, err)
	}
	if err := validateSteps(ds); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Revision, err)
	}
	return r, nil
}

func (r *Repository) indexConductors() error {
	if len(r.ds.Conductors) == 0 {
		return fmt.Errorf("no conductors")
	}
	for _, c := range r.ds.Conductors {
		if !c.Material.Valid() {
			return fmt.Errorf("conductor %q: unknown material %q", c.Size, c.Material)
		}
		if _, dup := r.bySize[c.Material][c.Size]; dup {
			return fmt.Errorf("conductor %s %q listed twice", c.Material, c.Size)
		}
		if c.Impedance <= 0 {
			return fmt.Errorf("conductor %s %q: impedance must be > 0", c.Material, c.Size)
		}
		if r.bySize[c.Material] == nil {
			r.bySize[c.Material] = make(map[string]int)
		}
		r.bySize[c.Material][c.Size] = len(r.conductors[c.Material])
		r.conductors[c.Material] = append(r.conductors[c.Material], c)
	}

	// Every rating column present on a material's first row must be present
	// and strictly increasing down the whole ladder.
	for m, specs := range r.conductors {
		for rating := range specs[0].Ampacity {
			t, err := r.ConductorSizes(m, rating)
			if err != nil {
				return err
			}
			if err := t.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repository) indexLadders() error {
	r.breakers = StandardSizeTable{Kind: KindBreaker}
	for _, b := range r.ds.Breakers {
		r.breakers.Entries = append(r.breakers.Entries, SizeEntry{Label: formatCapacity(b.Amps), Capacity: b.Amps})
	}
	if err := r.breakers.validate(); err != nil {
		return err
	}

	r.transformers = StandardSizeTable{Kind: KindTransformer}
	for _, kva := range r.ds.TransformersKVA {
		r.transformers.Entries = append(r.transformers.Entries, SizeEntry{Label: formatCapacity(kva), Capacity: kva})
	}
	return r.transformers.validate()
}

func (r *Repository) indexMotors() error {
	for _, t := range r.ds.MotorFLA {
		if len(t.Points) < 2 {
			return fmt.Errorf("motor_fla %gV: need at least 2 points", t.Voltage)
		}
		mc := motorCurve{
			voltage:  t.Voltage,
			fallback: t.FallbackAmpsPerHP,
			exact:    make(map[float64]float64, len(t.Points)),
		}
		xs := make([]float64, len(t.Points))
		ys := make([]float64, len(t.Points))
		for i, p := range t.Points {
			if i > 0 && p.HP <= xs[i-1] {
				return fmt.Errorf("motor_fla %gV: HP not strictly increasing at %g", t.Voltage, p.HP)
			}
			xs[i], ys[i] = p.HP, p.Amps
			mc.exact[p.HP] = p.Amps
		}
		if err := mc.curve.Fit(xs, ys); err != nil {
			return fmt.Errorf("motor_fla %gV: %w", t.Voltage, err)
		}
		mc.minHP, mc.maxHP = xs[0], xs[len(xs)-1]
		r.motors = append(r.motors, mc)
	}
	return nil
}

func validateSteps(ds Dataset) error {
	for i, s := range ds.TemperatureCorrection {
		for rating, f := range s.Factors {
			if f <= 0 || f > 1 {
				return fmt.Errorf("temperature factor %g for %d°C outside (0, 1]", f, rating)
			}
		}
		if i > 0 && s.MaxAmbientC != 0 && s.MaxAmbientC <= ds.TemperatureCorrection[i-1].MaxAmbientC {
			return fmt.Errorf("temperature_correction not increasing at %g°C", s.MaxAmbientC)
		}
	}
	for i, s := range ds.FillAdjustment {
		if s.Factor <= 0 || s.Factor > 1 {
			return fmt.Errorf("fill factor %g outside (0, 1]", s.Factor)
		}
		if i > 0 && s.MaxConductors != 0 && s.MaxConductors <= ds.FillAdjustment[i-1].MaxConductors {
			return fmt.Errorf("fill_adjustment not increasing at %d conductors", s.MaxConductors)
		}
	}
	return nil
}

// ============================================================================
// METADATA
// ============================================================================

// Revision returns the code-table revision this repository was built from.
func (r *Repository) Revision() string {
	return r.ds.Revision
}

// BaseAmbientC returns the ambient temperature the ampacity tables assume.
func (r *Repository) BaseAmbientC() float64 {
	return r.ds.BaseAmbientC
}

// ReferenceLengthFt returns the length impedances are tabulated per.
func (r *Repository) ReferenceLengthFt() float64 {
	return r.ds.ReferenceLengthFt
}

// DefaultRatingC returns the insulation column used when none is given.
func (r *Repository) DefaultRatingC() int {
	return r.ds.DefaultRatingC
}

// Dataset returns a deep copy of the underlying data, e.g. to derive a
// modified revision.
func (r *Repository) Dataset() Dataset {
	return r.ds.clone()
}

// ============================================================================
// CONDUCTORS
// ============================================================================

// Ampacity returns the base ampacity of (material, size) in the given
// insulation temperature column.
func (r *Repository) Ampacity(material Material, ratingC int, size string) (float64, error) {
	spec, err := r.conductor(material, size)
	if err != nil {
		return 0, err
	}
	amps, ok := spec.Ampacity[ratingC]
	if !ok {
		return 0, missf("ampacity", "%s %s at %d°C", material, size, ratingC)
	}
	return amps, nil
}

// Impedance returns the per-reference-length impedance of (size, material).
func (r *Repository) Impedance(size string, material Material) (Impedance, error) {
	spec, err := r.conductor(material, size)
	if err != nil {
		return Impedance{}, err
	}
	return Impedance{
		Resistance:  spec.Resistance,
		Reactance:   spec.Reactance,
		Effective:   spec.Impedance,
		PowerFactor: spec.PowerFactor,
	}, nil
}

func (r *Repository) conductor(material Material, size string) (ConductorSpec, error) {
	idx, ok := r.bySize[material][size]
	if !ok {
		return ConductorSpec{}, missf("conductors", "%s %s", material, size)
	}
	return r.conductors[material][idx], nil
}

// ConductorSizes returns the conductor ladder for a material with capacities
// taken from the given insulation column.
func (r *Repository) ConductorSizes(material Material, ratingC int) (StandardSizeTable, error) {
	specs := r.conductors[material]
	if len(specs) == 0 {
		return StandardSizeTable{}, missf("conductors", "material %s", material)
	}
	t := StandardSizeTable{Kind: ConductorKind(material), Entries: make([]SizeEntry, 0, len(specs))}
	for _, c := range specs {
		amps, ok := c.Ampacity[ratingC]
		if !ok {
			return StandardSizeTable{}, missf("ampacity", "%s %s at %d°C", material, c.Size, ratingC)
		}
		t.Entries = append(t.Entries, SizeEntry{Label: c.Size, Capacity: amps})
	}
	return t, nil
}

// StandardSizes returns a copy of the ladder for kind. Conductor ladders use
// the dataset's default insulation column.
func (r *Repository) StandardSizes(kind SizeKind) (StandardSizeTable, error) {
	switch kind {
	case KindCopper:
		return r.ConductorSizes(Copper, r.ds.DefaultRatingC)
	case KindAluminum:
		return r.ConductorSizes(Aluminum, r.ds.DefaultRatingC)
	case KindBreaker:
		return copyTable(r.breakers), nil
	case KindTransformer:
		return copyTable(r.transformers), nil
	}
	return StandardSizeTable{}, missf("standard_sizes", "kind %q", kind)
}

func copyTable(t StandardSizeTable) StandardSizeTable {
	return StandardSizeTable{Kind: t.Kind, Entries: append([]SizeEntry(nil), t.Entries...)}
}

// InterruptingRating returns the interrupting rating of a standard breaker.
func (r *Repository) InterruptingRating(amps float64) (float64, error) {
	for _, b := range r.ds.Breakers {
		if b.Amps == amps {
			return b.InterruptingAmps, nil
		}
	}
	return 0, missf("breakers", "%gA", amps)
}

// ============================================================================
// CORRECTION FACTORS
// ============================================================================

// TemperatureFactor returns the ambient correction for an insulation column.
// Identity at or below the table's base temperature.
func (r *Repository) TemperatureFactor(ambientC float64, ratingC int) (float64, error) {
	if ambientC <= r.ds.BaseAmbientC {
		return 1.0, nil
	}
	for _, s := range r.ds.TemperatureCorrection {
		if s.MaxAmbientC != 0 && ambientC > s.MaxAmbientC {
			continue
		}
		f, ok := s.Factors[ratingC]
		if !ok {
			return 0, missf("temperature_correction", "%d°C insulation at %g°C ambient", ratingC, ambientC)
		}
		return f, nil
	}
	return 0, missf("temperature_correction", "%g°C ambient", ambientC)
}

// FillFactor returns the raceway adjustment for the number of
// current-carrying conductors.
func (r *Repository) FillFactor(conductors int) (float64, error) {
	if len(r.ds.FillAdjustment) == 0 {
		return 1.0, nil
	}
	for _, s := range r.ds.FillAdjustment {
		if s.MaxConductors == 0 || conductors <= s.MaxConductors {
			return s.Factor, nil
		}
	}
	return 0, missf("fill_adjustment", "%d conductors", conductors)
}

// ============================================================================
// MOTORS
// ============================================================================

// MotorFLA returns the full-load current for a motor. Tabulated HP values are
// returned as-is, values inside the tabulated range are linearly
// interpolated, and values outside it use HP × the class's documented
// amps-per-HP constant.
func (r *Repository) MotorFLA(hp, voltage float64) (float64, FLASource, error) {
	mc, ok := r.motorClass(voltage)
	if !ok {
		return 0, "", missf("motor_fla", "%gV", voltage)
	}
	if amps, ok := mc.exact[hp]; ok {
		return amps, FLATable, nil
	}
	if hp > mc.minHP && hp < mc.maxHP {
		return mc.curve.Predict(hp), FLAInterpolated, nil
	}
	if mc.fallback <= 0 {
		return 0, "", missf("motor_fla", "%g HP at %gV", hp, voltage)
	}
	return hp * mc.fallback, FLAApproximated, nil
}

func (r *Repository) motorClass(voltage float64) (*motorCurve, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, mc := range r.motors {
		d := math.Abs(voltage-mc.voltage) / mc.voltage
		if d <= voltageClassTolerance && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return nil, false
	}
	return &r.motors[best], true
}

// CodeLetterKVAPerHP returns the locked-rotor kVA per HP for a NEMA code
// letter (upper bound of the letter's range).
func (r *Repository) CodeLetterKVAPerHP(letter string) (float64, error) {
	v, ok := r.ds.CodeLetters[letter]
	if !ok {
		return 0, missf("code_letters", "letter %q", letter)
	}
	return v, nil
}

// CodeLetters returns the known code letters in alphabetical order.
func (r *Repository) CodeLetters() []string {
	out := make([]string, 0, len(r.ds.CodeLetters))
	for k := range r.ds.CodeLetters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ContactorSize returns the smallest NEMA contactor size rated for the motor.
func (r *Repository) ContactorSize(hp, voltage float64) (string, error) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range r.ds.Contactors {
		d := math.Abs(voltage-c.Voltage) / c.Voltage
		if d <= voltageClassTolerance && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", missf("contactors", "%gV", voltage)
	}
	for _, s := range r.ds.Contactors[best].Sizes {
		if hp <= s.MaxHP {
			return s.NEMASize, nil
		}
	}
	return "", missf("contactors", "%g HP at %gV", hp, voltage)
}
