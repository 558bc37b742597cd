package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// CALCULATOR: Dispatcher over the sizing engines
// ============================================================================
// Entry point: New(repo, opts...) then Calculate(req) or the typed methods.
//
// Pipeline per request:
//   1. Validate the payload for req.Kind
//   2. Dispatch to the engine (conductor / breaker / transformer / ...)
//   3. Attach compliance records
//   4. Return Response
//
// A Calculator holds only immutable state (repository, copied rules, logger)
// and may be shared by any number of goroutines.
// ============================================================================

// Kind selects the calculation a Request runs.
type Kind string

const (
	KindConductor       Kind = "conductor"
	KindBreaker         Kind = "breaker"
	KindTransformer     Kind = "transformer"
	KindMotor           Kind = "motor"
	KindContactor       Kind = "contactor"
	KindFaultCurrent    Kind = "fault_current"
	KindVoltageDrop     Kind = "voltage_drop"
	KindLoadFlow        Kind = "load_flow"
	KindProtectedFeeder Kind = "protected_feeder"
)

// Kinds lists every supported request kind.
func Kinds() []Kind {
	return []Kind{
		KindConductor, KindBreaker, KindTransformer, KindMotor, KindContactor,
		KindFaultCurrent, KindVoltageDrop, KindLoadFlow, KindProtectedFeeder,
	}
}

// ContactorInput asks for a NEMA starter size.
type ContactorInput struct {
	HP      float64 `json:"hp" yaml:"hp" validate:"finite,gt=0"`
	Voltage float64 `json:"voltage" yaml:"voltage" validate:"finite,gt=0"`
}

// FeederInput chains fault current into breaker sizing. Load, when set,
// sizes the feeder conductor as well.
type FeederInput struct {
	Fault   FaultInput   `json:"fault" yaml:"fault"`
	Breaker BreakerInput `json:"breaker" yaml:"breaker"`
	Load    *LoadProfile `json:"load,omitempty" yaml:"load"`
}

// FeederResult holds each stage's output.
type FeederResult struct {
	Fault     *FaultCurrentResult `json:"fault"`
	Breaker   *BreakerResult      `json:"breaker"`
	Conductor *ConductorResult    `json:"conductor,omitempty"`
}

// Compliant reports whether every stage passed.
func (f FeederResult) Compliant() bool {
	if f.Breaker == nil || !f.Breaker.Compliant() {
		return false
	}
	return f.Conductor == nil || f.Conductor.Compliant()
}

// Request is one calculation. Exactly the payload matching Kind is read.
type Request struct {
	ID          string            `json:"id,omitempty" yaml:"id"`
	Kind        Kind              `json:"kind" yaml:"kind"`
	Load        *LoadProfile      `json:"load,omitempty" yaml:"load"`
	Breaker     *BreakerInput     `json:"breaker,omitempty" yaml:"breaker"`
	Transformer *TransformerInput `json:"transformer,omitempty" yaml:"transformer"`
	Motor       *MotorInput       `json:"motor,omitempty" yaml:"motor"`
	Contactor   *ContactorInput   `json:"contactor,omitempty" yaml:"contactor"`
	Fault       *FaultInput       `json:"fault,omitempty" yaml:"fault"`
	VoltageDrop *VoltageDropInput `json:"voltageDrop,omitempty" yaml:"voltage_drop"`
	LoadFlow    *LoadFlowInput    `json:"loadFlow,omitempty" yaml:"load_flow"`
	Feeder      *FeederInput      `json:"feeder,omitempty" yaml:"feeder"`
}

// Response carries the result for the request's Kind.
type Response struct {
	ID          string              `json:"id,omitempty"`
	Kind        Kind                `json:"kind"`
	Conductor   *ConductorResult    `json:"conductor,omitempty"`
	Breaker     *BreakerResult      `json:"breaker,omitempty"`
	Transformer *TransformerResult  `json:"transformer,omitempty"`
	Motor       *MotorResult        `json:"motor,omitempty"`
	Contactor   *ContactorResult    `json:"contactor,omitempty"`
	Fault       *FaultCurrentResult `json:"fault,omitempty"`
	VoltageDrop *VoltageDropResult  `json:"voltageDrop,omitempty"`
	LoadFlow    *LoadFlowResult     `json:"loadFlow,omitempty"`
	Feeder      *FeederResult       `json:"feeder,omitempty"`
}

// Compliant reports whether the response has no failing rule and no
// exhausted ladder. Responses without rules are compliant.
func (r *Response) Compliant() bool {
	switch {
	case r.Conductor != nil:
		return r.Conductor.Compliant()
	case r.Breaker != nil:
		return r.Breaker.Compliant()
	case r.Transformer != nil:
		return r.Transformer.Compliant()
	case r.VoltageDrop != nil:
		return r.VoltageDrop.Acceptable
	case r.LoadFlow != nil:
		return allPass(r.LoadFlow.Compliance)
	case r.Feeder != nil:
		return r.Feeder.Compliant()
	}
	return true
}

// Records returns every compliance record carried by the response.
func (r *Response) Records() []ComplianceRecord {
	var out []ComplianceRecord
	switch {
	case r.Conductor != nil:
		out = append(out, r.Conductor.Compliance...)
	case r.Breaker != nil:
		out = append(out, r.Breaker.Compliance...)
	case r.Transformer != nil:
		out = append(out, r.Transformer.Compliance...)
	case r.VoltageDrop != nil:
		vd := r.VoltageDrop
		rec := ComplianceRecord{
			RuleID:      RuleVoltageDropMax,
			Description: fmt.Sprintf("voltage drop ≤ %g%%", vd.LimitPercent),
			Status:      StatusPass,
			Measured:    vd.Percent,
			Threshold:   vd.LimitPercent,
			Margin:      vd.LimitPercent - vd.Percent,
		}
		if !vd.Acceptable {
			rec.Status = StatusFail
		}
		out = append(out, rec)
	case r.LoadFlow != nil:
		out = append(out, r.LoadFlow.Compliance...)
	case r.Feeder != nil:
		if r.Feeder.Breaker != nil {
			out = append(out, r.Feeder.Breaker.Compliance...)
		}
		if r.Feeder.Conductor != nil {
			out = append(out, r.Feeder.Conductor.Compliance...)
		}
	}
	return out
}

// Status folds the response into one status: fail when not compliant,
// warning when any rule warns, pass otherwise.
func (r *Response) Status() Status {
	if !r.Compliant() {
		return StatusFail
	}
	for _, rec := range r.Records() {
		if rec.Status == StatusWarning {
			return StatusWarning
		}
	}
	return StatusPass
}

// Calculator runs sizing calculations against one table revision.
type Calculator struct {
	repo   *tables.Repository
	rules  RuleConfiguration
	logger *zap.Logger
}

// New builds a Calculator. The rule set is validated and must name the
// repository's revision (or none, in which case it adopts it).
//
// Options:
//   - WithRules(rules): replaces the default rule set
//   - WithVoltageDropLimit(pct), WithContinuousFactor(f), WithFaultMethod(m),
//     WithAlternatives(n): override single constants
//   - WithLogger(logger): zap logger, no-op by default
func New(repo *tables.Repository, opts ...Option) (*Calculator, error) {
	if repo == nil {
		return nil, fmt.Errorf("nil table repository")
	}
	cfg := applyOptions(opts)
	if cfg.Rules.CodeTableRevision == "" {
		cfg.Rules.CodeTableRevision = repo.Revision()
	}
	if err := checkRules(cfg.Rules, repo.Revision()); err != nil {
		return nil, err
	}
	return &Calculator{repo: repo, rules: cfg.Rules, logger: cfg.Logger}, nil
}

// Rules returns a copy of the active rule set.
func (c *Calculator) Rules() RuleConfiguration { return c.rules }

// Repository returns the table repository in use.
func (c *Calculator) Repository() *tables.Repository { return c.repo }

// Conductor sizes a conductor for a load profile.
func (c *Calculator) Conductor(p LoadProfile) (*ConductorResult, error) {
	res, err := SizeConductor(c.repo, p, c.rules)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("conductor sized",
		zap.String("size", res.SelectedSize),
		zap.Float64("required", res.RequiredCapacity),
		zap.Float64("rated", res.RatedCapacity),
		zap.Float64("voltage_drop_pct", res.VoltageDrop.Percent),
		zap.Bool("capacity_exceeded", res.CapacityExceeded))
	c.warnExceeded(res.SizingResult)
	return res, nil
}

// Breaker sizes a breaker.
func (c *Calculator) Breaker(in BreakerInput) (*BreakerResult, error) {
	res, err := SizeBreaker(c.repo, in, c.rules)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("breaker sized",
		zap.String("size", res.SelectedSize),
		zap.Float64("required", res.RequiredCapacity),
		zap.Float64("interrupting_amps", res.InterruptingAmps))
	c.warnExceeded(res.SizingResult)
	for _, r := range Failures(res.Compliance) {
		if r.RuleID == RuleInterruptingCapacity {
			c.logger.Warn("available fault current exceeds interrupting rating",
				zap.String("size", res.SelectedSize),
				zap.Float64("interrupting_amps", res.InterruptingAmps),
				zap.Float64("available_amps", res.AvailableFaultAmps))
		}
	}
	return res, nil
}

// Transformer sizes a transformer.
func (c *Calculator) Transformer(in TransformerInput) (*TransformerResult, error) {
	res, err := SizeTransformer(c.repo, in, c.rules)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("transformer sized",
		zap.String("kva", res.SelectedSize),
		zap.Float64("required_kva", res.RequiredCapacity),
		zap.Float64("utilization_pct", res.UtilizationPercent))
	c.warnExceeded(res.SizingResult)
	return res, nil
}

// Motor computes motor currents.
func (c *Calculator) Motor(in MotorInput) (*MotorResult, error) {
	res, err := SizeMotor(c.repo, in, c.rules)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("motor analysed",
		zap.Float64("hp", res.HP),
		zap.Float64("fla", res.FLA),
		zap.String("fla_source", string(res.FLASource)),
		zap.Float64("starting_amps", res.StartingAmps))
	return res, nil
}

// Contactor returns the NEMA starter size for a motor.
func (c *Calculator) Contactor(in ContactorInput) (*ContactorResult, error) {
	return SizeContactor(c.repo, in, c.rules)
}

// FaultCurrent computes available fault current with the configured method.
func (c *Calculator) FaultCurrent(in FaultInput) (*FaultCurrentResult, error) {
	res, err := FaultCurrent(c.repo, in, c.rules)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fault current computed",
		zap.String("method", string(res.Method)),
		zap.Float64("symmetrical_amps", res.SymmetricalAmps),
		zap.Float64("asymmetrical_amps", res.AsymmetricalAmps))
	if res.ConductorIgnored {
		c.logger.Info("conductor run ignored by transformer_only fault method")
	}
	return res, nil
}

// VoltageDrop checks the drop along a known conductor.
func (c *Calculator) VoltageDrop(in VoltageDropInput) (*VoltageDropResult, error) {
	return VoltageDrop(c.repo, in, c.rules)
}

// LoadFlow analyses a load on a chosen conductor.
func (c *Calculator) LoadFlow(in LoadFlowInput) (*LoadFlowResult, error) {
	return AnalyzeLoadFlow(c.repo, in, c.rules)
}

// ProtectedFeeder runs fault current first and feeds its symmetrical current
// into breaker sizing, then sizes the conductor when a load is given. The
// first failing stage aborts the pipeline.
func (c *Calculator) ProtectedFeeder(in FeederInput) (*FeederResult, error) {
	fault, err := c.FaultCurrent(in.Fault)
	if err != nil {
		return nil, fmt.Errorf("fault stage: %w", err)
	}
	b := in.Breaker
	b.Fault = fault
	breaker, err := c.Breaker(b)
	if err != nil {
		return nil, fmt.Errorf("breaker stage: %w", err)
	}
	out := &FeederResult{Fault: fault, Breaker: breaker}
	if in.Load != nil {
		out.Conductor, err = c.Conductor(*in.Load)
		if err != nil {
			return nil, fmt.Errorf("conductor stage: %w", err)
		}
	}
	return out, nil
}

// Calculate dispatches a Request on its Kind.
func (c *Calculator) Calculate(req Request) (*Response, error) {
	resp := &Response{ID: req.ID, Kind: req.Kind}
	var err error

	switch req.Kind {
	case KindConductor:
		if req.Load == nil {
			return nil, missingPayload("load", req.Kind)
		}
		resp.Conductor, err = c.Conductor(*req.Load)
	case KindBreaker:
		if req.Breaker == nil {
			return nil, missingPayload("breaker", req.Kind)
		}
		resp.Breaker, err = c.Breaker(*req.Breaker)
	case KindTransformer:
		if req.Transformer == nil {
			return nil, missingPayload("transformer", req.Kind)
		}
		resp.Transformer, err = c.Transformer(*req.Transformer)
	case KindMotor:
		if req.Motor == nil {
			return nil, missingPayload("motor", req.Kind)
		}
		resp.Motor, err = c.Motor(*req.Motor)
	case KindContactor:
		if req.Contactor == nil {
			return nil, missingPayload("contactor", req.Kind)
		}
		resp.Contactor, err = c.Contactor(*req.Contactor)
	case KindFaultCurrent:
		if req.Fault == nil {
			return nil, missingPayload("fault", req.Kind)
		}
		resp.Fault, err = c.FaultCurrent(*req.Fault)
	case KindVoltageDrop:
		if req.VoltageDrop == nil {
			return nil, missingPayload("voltageDrop", req.Kind)
		}
		resp.VoltageDrop, err = c.VoltageDrop(*req.VoltageDrop)
	case KindLoadFlow:
		if req.LoadFlow == nil {
			return nil, missingPayload("loadFlow", req.Kind)
		}
		resp.LoadFlow, err = c.LoadFlow(*req.LoadFlow)
	case KindProtectedFeeder:
		if req.Feeder == nil {
			return nil, missingPayload("feeder", req.Kind)
		}
		resp.Feeder, err = c.ProtectedFeeder(*req.Feeder)
	default:
		return nil, invalid("kind", string(req.Kind), "is not a supported calculation")
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func missingPayload(field string, kind Kind) error {
	return &InputError{Field: field, Reason: fmt.Sprintf("is required for kind %q", kind)}
}

func (c *Calculator) warnExceeded(r SizingResult) {
	if r.CapacityExceeded {
		c.logger.Warn("standard sizes exhausted, reporting largest",
			zap.String("kind", string(r.Kind)),
			zap.String("size", r.SelectedSize),
			zap.Float64("required", r.RequiredCapacity))
	}
}
