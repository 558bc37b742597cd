package tables

// ============================================================================
// DATASET: Versioned code-table reference data
// ============================================================================
// One Dataset holds every table the sizing engines consult for a single
// code-table revision (e.g. "2023"). Datasets are plain data: they are loaded
// from YAML (builtin or consumer-supplied) and turned into an immutable
// Repository by New(). Swapping revisions never requires code changes.
// ============================================================================

// Material is a conductor material.
type Material string

const (
	Copper   Material = "copper"
	Aluminum Material = "aluminum"
)

// Valid reports whether m is a known conductor material.
func (m Material) Valid() bool {
	return m == Copper || m == Aluminum
}

// Dataset describes the complete reference data for one code-table revision.
type Dataset struct {
	Revision    string `yaml:"revision" json:"revision"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	BaseAmbientC      float64 `yaml:"base_ambient_c" json:"baseAmbientC"`           // table base temperature (°C)
	ReferenceLengthFt float64 `yaml:"reference_length_ft" json:"referenceLengthFt"` // impedances are per this length
	DefaultRatingC    int     `yaml:"default_rating_c" json:"defaultRatingC"`       // insulation column used by StandardSizes

	Conductors            []ConductorSpec   `yaml:"conductors" json:"conductors"`
	TemperatureCorrection []TemperatureStep `yaml:"temperature_correction" json:"temperatureCorrection"`
	FillAdjustment        []FillStep        `yaml:"fill_adjustment" json:"fillAdjustment"`

	Breakers        []BreakerRating `yaml:"breakers" json:"breakers"`
	TransformersKVA []float64       `yaml:"transformers_kva" json:"transformersKVA"`

	MotorFLA    []MotorFLATable    `yaml:"motor_fla" json:"motorFLA"`
	CodeLetters map[string]float64 `yaml:"code_letters,omitempty" json:"codeLetters,omitempty"` // NEMA letter → max kVA per HP
	Contactors  []ContactorTable   `yaml:"contactors,omitempty" json:"contactors,omitempty"`
}

// ConductorSpec is one row of the conductor table. Immutable reference data.
type ConductorSpec struct {
	Material    Material        `yaml:"material" json:"material"`
	Size        string          `yaml:"size" json:"size"`           // AWG / kcmil label: "12", "1/0", "250"
	Ampacity    map[int]float64 `yaml:"ampacity" json:"ampacity"`   // insulation rating (°C) → amps
	Resistance  float64         `yaml:"resistance" json:"resistance"` // Ω per reference length
	Reactance   float64         `yaml:"reactance" json:"reactance"`   // Ω per reference length
	Impedance   float64         `yaml:"impedance" json:"impedance"`   // effective Z at PowerFactor, Ω per reference length
	PowerFactor float64         `yaml:"power_factor" json:"powerFactor"`
}

// TemperatureStep applies to ambients up to MaxAmbientC (0 = no upper bound).
type TemperatureStep struct {
	MaxAmbientC float64         `yaml:"max_ambient_c" json:"maxAmbientC"`
	Factors     map[int]float64 `yaml:"factors" json:"factors"` // insulation rating (°C) → multiplier
}

// FillStep applies to raceways holding up to MaxConductors current-carrying
// conductors (0 = no upper bound).
type FillStep struct {
	MaxConductors int     `yaml:"max_conductors" json:"maxConductors"`
	Factor        float64 `yaml:"factor" json:"factor"`
}

// BreakerRating is a standard trip rating and the interrupting rating of
// its typical frame.
type BreakerRating struct {
	Amps             float64 `yaml:"amps" json:"amps"`
	InterruptingAmps float64 `yaml:"interrupting_amps" json:"interruptingAmps"`
}

// MotorFLATable holds full-load currents for one voltage class.
type MotorFLATable struct {
	Voltage           float64         `yaml:"voltage" json:"voltage"`
	FallbackAmpsPerHP float64         `yaml:"fallback_amps_per_hp" json:"fallbackAmpsPerHP"` // used outside the HP range
	Points            []MotorFLAPoint `yaml:"points" json:"points"`
}

// MotorFLAPoint is one (HP, FLA) pair.
type MotorFLAPoint struct {
	HP   float64 `yaml:"hp" json:"hp"`
	Amps float64 `yaml:"amps" json:"amps"`
}

// ContactorTable lists NEMA contactor sizes for one voltage class.
type ContactorTable struct {
	Voltage float64           `yaml:"voltage" json:"voltage"`
	Sizes   []ContactorRating `yaml:"sizes" json:"sizes"`
}

// ContactorRating is the largest motor a NEMA size can switch.
type ContactorRating struct {
	NEMASize string  `yaml:"nema_size" json:"nemaSize"`
	MaxHP    float64 `yaml:"max_hp" json:"maxHP"`
}

// clone returns a deep copy so a Repository never shares memory with the
// Dataset it was built from.
func (d Dataset) clone() Dataset {
	out := d

	out.Conductors = make([]ConductorSpec, len(d.Conductors))
	for i, c := range d.Conductors {
		c.Ampacity = cloneIntMap(c.Ampacity)
		out.Conductors[i] = c
	}

	out.TemperatureCorrection = make([]TemperatureStep, len(d.TemperatureCorrection))
	for i, s := range d.TemperatureCorrection {
		s.Factors = cloneIntMap(s.Factors)
		out.TemperatureCorrection[i] = s
	}

	out.FillAdjustment = append([]FillStep(nil), d.FillAdjustment...)
	out.Breakers = append([]BreakerRating(nil), d.Breakers...)
	out.TransformersKVA = append([]float64(nil), d.TransformersKVA...)

	out.MotorFLA = make([]MotorFLATable, len(d.MotorFLA))
	for i, m := range d.MotorFLA {
		m.Points = append([]MotorFLAPoint(nil), m.Points...)
		out.MotorFLA[i] = m
	}

	if d.CodeLetters != nil {
		out.CodeLetters = make(map[string]float64, len(d.CodeLetters))
		for k, v := range d.CodeLetters {
			out.CodeLetters[k] = v
		}
	}

	out.Contactors = make([]ContactorTable, len(d.Contactors))
	for i, c := range d.Contactors {
		c.Sizes = append([]ContactorRating(nil), c.Sizes...)
		out.Contactors[i] = c
	}
	return out
}

func cloneIntMap(m map[int]float64) map[int]float64 {
	if m == nil {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
