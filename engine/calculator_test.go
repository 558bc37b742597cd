package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// ============================================================================
// RULES + OPTIONS
// ============================================================================

func TestDefaultRulesValidate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())
}

func TestRulesValidateRejects(t *testing.T) {
	tests := map[string]func(*RuleConfiguration){
		"continuous factor below one": func(r *RuleConfiguration) { r.ContinuousFactor = 0.8 },
		"NaN voltage drop limit":      func(r *RuleConfiguration) { r.VoltageDropLimitPercent = math.NaN() },
		"unknown fault method":        func(r *RuleConfiguration) { r.FaultMethod = "ohmic" },
		"negative alternatives":       func(r *RuleConfiguration) { r.Alternatives = -1 },
		"soft start above one":        func(r *RuleConfiguration) { r.SoftStartFactor = 1.5 },
	}
	for name, edit := range tests {
		t.Run(name, func(t *testing.T) {
			r := DefaultRules()
			edit(&r)
			err := r.Validate()
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewAppliesOptions(t *testing.T) {
	calc, err := New(testRepo(t),
		WithVoltageDropLimit(5),
		WithContinuousFactor(1.0),
		WithFaultMethod(FaultPointToPoint),
		WithAlternatives(1),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	r := calc.Rules()
	assert.Equal(t, 5.0, r.VoltageDropLimitPercent)
	assert.Equal(t, 1.0, r.ContinuousFactor)
	assert.Equal(t, FaultPointToPoint, r.FaultMethod)
	assert.Equal(t, 1, r.Alternatives)

	res, err := calc.Breaker(BreakerInput{LoadAmps: 20, Continuous: true})
	require.NoError(t, err)
	assert.Equal(t, "20", res.SelectedSize)
	assert.Len(t, res.Alternatives, 1)
}

func TestNewAdoptsRepositoryRevision(t *testing.T) {
	rules := DefaultRules()
	rules.CodeTableRevision = ""
	calc, err := New(testRepo(t), WithRules(rules))
	require.NoError(t, err)
	assert.Equal(t, "2023", calc.Rules().CodeTableRevision)
}

func TestNewRejectsMismatchedRevision(t *testing.T) {
	rules := DefaultRules()
	rules.CodeTableRevision = "2023-simplified"
	_, err := New(testRepo(t), WithRules(rules))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(nil)
	assert.Error(t, err)

	_, err = New(testRepo(t), WithVoltageDropLimit(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEnginesRejectInvalidRules(t *testing.T) {
	repo := testRepo(t)
	load := feeder480()
	fault := FaultInput{TransformerKVA: 75, Voltage: 480, Phases: 3, ImpedancePercent: 2.5}

	engines := map[string]func(RuleConfiguration) error{
		"conductor": func(r RuleConfiguration) error {
			_, err := SizeConductor(repo, load, r)
			return err
		},
		"breaker": func(r RuleConfiguration) error {
			_, err := SizeBreaker(repo, BreakerInput{LoadAmps: 20, Continuous: true}, r)
			return err
		},
		"transformer": func(r RuleConfiguration) error {
			_, err := SizeTransformer(repo, TransformerInput{LoadKVA: 600, Efficiency: 0.95, PrimaryVoltage: 4160, SecondaryVoltage: 480}, r)
			return err
		},
		"motor": func(r RuleConfiguration) error {
			_, err := SizeMotor(repo, MotorInput{HP: 33, Voltage: 480}, r)
			return err
		},
		"contactor": func(r RuleConfiguration) error {
			_, err := SizeContactor(repo, ContactorInput{HP: 33, Voltage: 480}, r)
			return err
		},
		"fault current": func(r RuleConfiguration) error {
			_, err := FaultCurrent(repo, fault, r)
			return err
		},
		"voltage drop": func(r RuleConfiguration) error {
			_, err := VoltageDrop(repo, VoltageDropInput{Voltage: 120, Current: 10, DistanceFt: 100, Size: "12"}, r)
			return err
		},
		"load flow": func(r RuleConfiguration) error {
			_, err := AnalyzeLoadFlow(repo, LoadFlowInput{Load: load, Size: "1/0"}, r)
			return err
		},
	}

	negativeAlternatives := DefaultRules()
	negativeAlternatives.Alternatives = -1
	nanFactor := DefaultRules()
	nanFactor.ContinuousFactor = math.NaN()
	rulesets := map[string]RuleConfiguration{
		"negative alternatives": negativeAlternatives,
		"NaN continuous factor": nanFactor,
		"zero value":            {},
	}

	for kind, run := range engines {
		for name, rules := range rulesets {
			t.Run(kind+"/"+name, func(t *testing.T) {
				var err error
				require.NotPanics(t, func() { err = run(rules) })
				assert.ErrorIs(t, err, ErrInvalidInput)
			})
		}
	}
}

func testCalc(t *testing.T, opts ...Option) *Calculator {
	t.Helper()
	calc, err := New(testRepo(t), opts...)
	require.NoError(t, err)
	return calc
}

// ============================================================================
// COMPLIANCE
// ============================================================================

func TestEvaluatorVoltageDropBand(t *testing.T) {
	ev := NewEvaluator(DefaultRules())

	assert.Equal(t, StatusPass, ev.VoltageDrop(1.67).Status)
	assert.Equal(t, StatusWarning, ev.VoltageDrop(2.8).Status)
	assert.Equal(t, StatusPass, ev.VoltageDrop(2.6).Status)
	assert.Equal(t, StatusWarning, ev.VoltageDrop(3.0).Status)

	fail := ev.VoltageDrop(3.5)
	assert.Equal(t, StatusFail, fail.Status)
	assert.InDelta(t, -0.5, fail.Margin, 1e-9)
	assert.Equal(t, RuleVoltageDropMax, fail.RuleID)
}

func TestEvaluatorWithoutBand(t *testing.T) {
	rules := DefaultRules()
	rules.WarningBandPercent = 0
	ev := NewEvaluator(rules)
	assert.Equal(t, StatusPass, ev.VoltageDrop(2.99).Status)
	assert.Equal(t, StatusPass, ev.InterruptingCapacity(14000, 13900).Status)
}

func TestEvaluatorAmpacityMargin(t *testing.T) {
	rules := DefaultRules()
	rules.AmpacityMarginMinPercent = 10
	ev := NewEvaluator(rules)

	assert.Equal(t, StatusPass, ev.AmpacityMargin(SizingResult{MarginPercent: 20}).Status)
	assert.Equal(t, StatusWarning, ev.AmpacityMargin(SizingResult{MarginPercent: 10.5}).Status)
	assert.Equal(t, StatusFail, ev.AmpacityMargin(SizingResult{MarginPercent: 5}).Status)
}

func TestFailures(t *testing.T) {
	records := []ComplianceRecord{
		{RuleID: "a", Status: StatusPass},
		{RuleID: "b", Status: StatusFail},
		{RuleID: "c", Status: StatusWarning},
	}
	got := Failures(records)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].RuleID)
	assert.False(t, allPass(records))
	assert.True(t, allPass(records[:1]))
}

// ============================================================================
// DISPATCH
// ============================================================================

func TestCalculateDispatch(t *testing.T) {
	calc := testCalc(t)
	load := feeder480()

	reqs := []Request{
		{Kind: KindConductor, Load: &load},
		{Kind: KindBreaker, Breaker: &BreakerInput{LoadAmps: 20, Continuous: true}},
		{Kind: KindTransformer, Transformer: &TransformerInput{LoadKVA: 600, Efficiency: 0.95, PrimaryVoltage: 4160, SecondaryVoltage: 480}},
		{Kind: KindMotor, Motor: &MotorInput{HP: 33, Voltage: 480}},
		{Kind: KindContactor, Contactor: &ContactorInput{HP: 33, Voltage: 480}},
		{Kind: KindFaultCurrent, Fault: &FaultInput{TransformerKVA: 75, Voltage: 480, Phases: 3, ImpedancePercent: 2.5}},
		{Kind: KindVoltageDrop, VoltageDrop: &VoltageDropInput{Voltage: 120, Current: 10, DistanceFt: 100, Size: "12"}},
		{Kind: KindLoadFlow, LoadFlow: &LoadFlowInput{Load: load, Size: "1/0"}},
		{Kind: KindProtectedFeeder, Feeder: &FeederInput{
			Fault:   FaultInput{TransformerKVA: 75, Voltage: 480, Phases: 3, ImpedancePercent: 2.5},
			Breaker: BreakerInput{LoadAmps: 100, Continuous: true},
			Load:    &load,
		}},
	}
	require.Len(t, reqs, len(Kinds()))

	for _, req := range reqs {
		t.Run(string(req.Kind), func(t *testing.T) {
			req.ID = "item-" + string(req.Kind)
			resp, err := calc.Calculate(req)
			require.NoError(t, err)
			assert.Equal(t, req.ID, resp.ID)
			assert.Equal(t, req.Kind, resp.Kind)
			assert.True(t, resp.Compliant())
		})
	}
}

func TestCalculateResults(t *testing.T) {
	calc := testCalc(t)

	resp, err := calc.Calculate(Request{Kind: KindVoltageDrop, VoltageDrop: &VoltageDropInput{Voltage: 120, Current: 10, DistanceFt: 100, Size: "12"}})
	require.NoError(t, err)
	require.NotNil(t, resp.VoltageDrop)
	assert.InDelta(t, 1.6667, resp.VoltageDrop.Percent, 1e-4)

	resp, err = calc.Calculate(Request{Kind: KindTransformer, Transformer: &TransformerInput{LoadKVA: 600, Efficiency: 0.95, PrimaryVoltage: 4160, SecondaryVoltage: 480}})
	require.NoError(t, err)
	require.NotNil(t, resp.Transformer)
	assert.Equal(t, "750", resp.Transformer.SelectedSize)
	assert.Nil(t, resp.Conductor)
}

func TestCalculateRejectsBadRequests(t *testing.T) {
	calc := testCalc(t)

	_, err := calc.Calculate(Request{Kind: "switchgear"})
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "kind", ie.Field)

	for _, k := range Kinds() {
		_, err := calc.Calculate(Request{Kind: k})
		assert.ErrorIs(t, err, ErrInvalidInput, "missing payload for %s", k)
	}
}

func TestCalculateNonCompliantIsNotAnError(t *testing.T) {
	calc := testCalc(t)
	load := feeder480()
	load.Current = 400

	resp, err := calc.Calculate(Request{Kind: KindConductor, Load: &load})
	require.NoError(t, err)
	assert.False(t, resp.Compliant())
	assert.True(t, resp.Conductor.CapacityExceeded)
}

func TestCapacityExceededIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calc := testCalc(t, WithLogger(zap.New(core)))

	_, err := calc.Breaker(BreakerInput{LoadAmps: 400})
	require.NoError(t, err)

	entries := logs.FilterMessage("standard sizes exhausted, reporting largest").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "250", entries[0].ContextMap()["size"])
}

func TestInterruptingShortfallIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calc := testCalc(t, WithLogger(zap.New(core)))

	_, err := calc.ProtectedFeeder(FeederInput{
		Fault:   FaultInput{TransformerKVA: 1000, Voltage: 480, Phases: 3, ImpedancePercent: 5.75},
		Breaker: BreakerInput{LoadAmps: 20, Continuous: true},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("available fault current exceeds interrupting rating").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "30", entries[0].ContextMap()["size"])
	assert.Equal(t, 14000.0, entries[0].ContextMap()["interrupting_amps"])
}

// ============================================================================
// PROTECTED FEEDER PIPELINE
// ============================================================================

func TestProtectedFeeder(t *testing.T) {
	calc := testCalc(t)

	res, err := calc.ProtectedFeeder(FeederInput{
		Fault:   FaultInput{TransformerKVA: 75, Voltage: 480, Phases: 3, ImpedancePercent: 2.5},
		Breaker: BreakerInput{LoadAmps: 20, Continuous: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "30", res.Breaker.SelectedSize)
	assert.Equal(t, res.Fault.SymmetricalAmps, res.Breaker.AvailableFaultAmps)
	assert.Equal(t, StatusPass, record(t, res.Breaker.Compliance, RuleInterruptingCapacity).Status)
	assert.Nil(t, res.Conductor)
	assert.True(t, res.Compliant())
}

func TestProtectedFeederInterruptingFailure(t *testing.T) {
	calc := testCalc(t)

	// 1000 kVA at 5.75% Z delivers ~20.9 kA into a 14 kA frame.
	res, err := calc.ProtectedFeeder(FeederInput{
		Fault:   FaultInput{TransformerKVA: 1000, Voltage: 480, Phases: 3, ImpedancePercent: 5.75},
		Breaker: BreakerInput{LoadAmps: 20, Continuous: true},
	})
	require.NoError(t, err)
	assert.InDelta(t, 20918, res.Fault.SymmetricalAmps, 1)
	assert.Equal(t, StatusFail, record(t, res.Breaker.Compliance, RuleInterruptingCapacity).Status)
	assert.False(t, res.Compliant())
}

func TestProtectedFeederStopsAtFirstFailingStage(t *testing.T) {
	calc := testCalc(t)

	_, err := calc.ProtectedFeeder(FeederInput{
		Fault:   FaultInput{TransformerKVA: 75, Voltage: 480, ImpedancePercent: 2.5},
		Breaker: BreakerInput{LoadAmps: 20},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "fault stage")
}

// ============================================================================
// BATCH
// ============================================================================

func batchRequests() []Request {
	load := feeder480()
	bad := feeder480()
	bad.Voltage = -480
	return []Request{
		{ID: "feeder", Kind: KindConductor, Load: &load},
		{Kind: KindBreaker, Breaker: &BreakerInput{LoadAmps: 20, Continuous: true}},
		{Kind: KindConductor, Load: &bad},
		{Kind: KindMotor, Motor: &MotorInput{HP: 10, Voltage: 120}},
		{Kind: KindTransformer, Transformer: &TransformerInput{LoadKVA: 600, PrimaryVoltage: 4160, SecondaryVoltage: 480}},
	}
}

func TestRunBatchKeepsOrderAndIsolatesErrors(t *testing.T) {
	out := RunBatch(context.Background(), testCalc(t), batchRequests(), 2)
	require.Len(t, out, 5)

	for i, o := range out {
		assert.Equal(t, i, o.Index)
		assert.NotEmpty(t, o.ID)
	}
	assert.Equal(t, "feeder", out[0].ID)
	assert.Equal(t, "1/0", out[0].Response.Conductor.SelectedSize)
	assert.Equal(t, "30", out[1].Response.Breaker.SelectedSize)

	assert.ErrorIs(t, out[2].Err, ErrInvalidInput)
	assert.Contains(t, out[2].Error, "voltage")
	assert.Nil(t, out[2].Response)

	assert.ErrorIs(t, out[3].Err, ErrTableLookupMiss)
	assert.Equal(t, "750", out[4].Response.Transformer.SelectedSize)
}

func TestRunBatchParallelismDoesNotChangeResults(t *testing.T) {
	calc := testCalc(t)
	serial := RunBatch(context.Background(), calc, batchRequests(), 1)
	wide := RunBatch(context.Background(), calc, batchRequests(), 8)
	unbounded := RunBatch(context.Background(), calc, batchRequests(), 0)

	ignoreErr := cmpopts.IgnoreFields(BatchOutcome{}, "Err")
	if diff := cmp.Diff(serial, wide, ignoreErr); diff != "" {
		t.Errorf("parallelism changed results (-serial +wide):\n%s", diff)
	}
	if diff := cmp.Diff(serial, unbounded, ignoreErr); diff != "" {
		t.Errorf("parallelism changed results (-serial +unbounded):\n%s", diff)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := RunBatch(ctx, testCalc(t), batchRequests(), 1)
	require.Len(t, out, 5)
	for _, o := range out {
		assert.True(t, errors.Is(o.Err, context.Canceled), "item %d: %v", o.Index, o.Err)
		assert.Nil(t, o.Response)
	}
}

func TestRequestIDIsDeterministic(t *testing.T) {
	reqs := batchRequests()

	a := RequestID(reqs[1], 1)
	b := RequestID(reqs[1], 1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, RequestID(reqs[1], 2))
	assert.NotEqual(t, a, RequestID(reqs[4], 1))

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())

	nan := Request{Kind: KindBreaker, Breaker: &BreakerInput{LoadAmps: math.NaN()}}
	assert.NotEqual(t, RequestID(nan, 0), RequestID(nan, 1))
}
