package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// FIXTURES
// ============================================================================

func testCalc(t *testing.T) *engine.Calculator {
	t.Helper()
	repo, err := tables.Builtin("2023")
	require.NoError(t, err)
	calc, err := engine.New(repo)
	require.NoError(t, err)
	return calc
}

func feeder() *engine.LoadProfile {
	return &engine.LoadProfile{Current: 100, Voltage: 480, DistanceFt: 100, Continuous: true}
}

// ============================================================================
// FORMATTING
// ============================================================================

func TestNumber(t *testing.T) {
	assert.Equal(t, "1.67", Number(5.0/3, 2))
	assert.Equal(t, "1.01", Number(1.005, 2))
	assert.Equal(t, "150.0", Number(150, 1))
	assert.Equal(t, "3608", Number(3608.44, 0))
	assert.Equal(t, "-0.50", Number(-0.5, 2))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 631.58, Round(600/0.95, 2))
	assert.Equal(t, 2.5, Round(2.45, 1))
}

func TestUnits(t *testing.T) {
	assert.Equal(t, "125.0 A", Amps(125))
	assert.Equal(t, "0.25%", Percent(0.25))
	assert.Equal(t, "37.5 kVA", KVA(37.5))
}

// ============================================================================
// TABLES
// ============================================================================

func TestBuildTable(t *testing.T) {
	calc := testCalc(t)
	bad := feeder()
	bad.Voltage = 0
	big := feeder()
	big.Current = 400

	outcomes := engine.RunBatch(context.Background(), calc, []engine.Request{
		{ID: "f1", Kind: engine.KindConductor, Load: feeder()},
		{ID: "b1", Kind: engine.KindBreaker, Breaker: &engine.BreakerInput{LoadAmps: 20, Continuous: true}},
		{ID: "bad", Kind: engine.KindConductor, Load: bad},
		{ID: "big", Kind: engine.KindConductor, Load: big},
	}, 2)

	table := BuildTable("Panel LP-1", outcomes)
	assert.Equal(t, "Panel LP-1", table.Title)
	require.Len(t, table.Rows, 4)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Columns))
	}

	assert.Equal(t, []string{"f1", "conductor", "1/0", "125.0 A", "150.0 A", "20.0", "pass", "drop 0.25%"}, table.Rows[0])
	assert.Equal(t, "30", table.Rows[1][2])
	assert.Equal(t, "AIC 14000 A", table.Rows[1][7])
	assert.Equal(t, StatusError, table.Rows[2][6])
	assert.Contains(t, table.Rows[2][7], "voltage")
	assert.Equal(t, "fail", table.Rows[3][6])
	assert.Equal(t, "standard sizes exhausted", table.Rows[3][7])

	require.NotNil(t, table.Summary)
	assert.Equal(t, "Total (4 items)", table.Summary.Label)
	assert.Equal(t, "2", table.Summary.Values["pass"])
	assert.Equal(t, "1", table.Summary.Values["fail"])
	assert.Equal(t, "1", table.Summary.Values[StatusError])
	assert.Equal(t, "0", table.Summary.Values["warning"])
}

func TestBuildTableEmpty(t *testing.T) {
	table := BuildTable("empty", nil)
	assert.Empty(t, table.Rows)
	assert.NotEmpty(t, table.Columns)
	assert.Equal(t, "Total (0 items)", table.Summary.Label)
}

func TestBuildComplianceTable(t *testing.T) {
	calc := testCalc(t)
	res, err := calc.Conductor(*feeder())
	require.NoError(t, err)

	table := BuildComplianceTable("1/0 feeder", res.Compliance)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, engine.RuleCapacityAvailable, table.Rows[0][0])
	assert.Equal(t, "0.25", table.Rows[2][2])
	assert.Equal(t, "3.00", table.Rows[2][3])
	assert.Equal(t, "0", table.Summary.Values["failed"])
}

// ============================================================================
// TEXT
// ============================================================================

func TestBuildTextConductor(t *testing.T) {
	resp, err := testCalc(t).Calculate(engine.Request{Kind: engine.KindConductor, Load: feeder()})
	require.NoError(t, err)

	td := BuildText(resp)
	assert.Equal(t, "1/0", td.Value)
	assert.Equal(t, 150.0, td.RawValue)
	assert.Equal(t, engine.StatusPass, td.Status)
	assert.Equal(t, "1/0 copper: 150.0 A rated for 125.0 A required (margin 20.00%), drop 0.25%", td.Headline)
}

func TestBuildTextVoltageDrop(t *testing.T) {
	resp, err := testCalc(t).Calculate(engine.Request{
		Kind:        engine.KindVoltageDrop,
		VoltageDrop: &engine.VoltageDropInput{Voltage: 120, Current: 20, DistanceFt: 100, Size: "12"},
	})
	require.NoError(t, err)

	td := BuildText(resp)
	assert.Equal(t, "3.33", td.Value)
	assert.Equal(t, engine.StatusFail, td.Status)
	assert.Contains(t, td.Headline, "exceeds 3.00%")
	assert.Contains(t, td.Headline, "[FAIL: voltage_drop_max]")
}

func TestBuildTextFault(t *testing.T) {
	resp, err := testCalc(t).Calculate(engine.Request{
		Kind:  engine.KindFaultCurrent,
		Fault: &engine.FaultInput{TransformerKVA: 75, Voltage: 480, Phases: 3, ImpedancePercent: 2.5},
	})
	require.NoError(t, err)

	td := BuildText(resp)
	assert.Equal(t, "3608", td.Value)
	assert.Equal(t, "A", td.Unit)
	assert.Contains(t, td.Headline, "×1.800")
	assert.Contains(t, td.Headline, "transformer_only")
}

func TestBuildTextFeeder(t *testing.T) {
	resp, err := testCalc(t).Calculate(engine.Request{
		Kind: engine.KindProtectedFeeder,
		Feeder: &engine.FeederInput{
			Fault:   engine.FaultInput{TransformerKVA: 1000, Voltage: 480, Phases: 3, ImpedancePercent: 5.75},
			Breaker: engine.BreakerInput{LoadAmps: 20, Continuous: true},
			Load:    feeder(),
		},
	})
	require.NoError(t, err)

	td := BuildText(resp)
	assert.Equal(t, "30", td.Value)
	assert.Equal(t, engine.StatusFail, td.Status)
	assert.Contains(t, td.Headline, "1/0 copper conductor")
	assert.Contains(t, td.Headline, "interrupting_capacity")
}
