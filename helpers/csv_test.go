package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/tables"
)

const worksheet = `ID,Kind,Current,Voltage,Distance Ft,Continuous,Ambient C,Material,Load Amps,HP,Transformer KVA,Impedance Percent,Phases,Notes
F-1,conductor,100,480,100,yes,30,Copper,,,,,,main feeder
B-1,breaker,,,,true,,,20,,,,,
M-1,motor,,480,,,,,,33,,,,
X-1,fault_current,,480,,,,,,,75,2.5,3,
`

func TestParseRequestsCSV(t *testing.T) {
	reqs, rowErrs, err := ParseRequestsCSV([]byte(worksheet))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, reqs, 4)

	c := reqs[0]
	assert.Equal(t, "F-1", c.ID)
	assert.Equal(t, engine.KindConductor, c.Kind)
	require.NotNil(t, c.Load)
	assert.Equal(t, 100.0, c.Load.Current)
	assert.Equal(t, 480.0, c.Load.Voltage)
	assert.Equal(t, 100.0, c.Load.DistanceFt)
	assert.True(t, c.Load.Continuous)
	assert.Equal(t, tables.Copper, c.Load.Material)
	assert.Zero(t, c.Load.Phases)
	assert.Nil(t, c.Breaker)

	require.NotNil(t, reqs[1].Breaker)
	assert.Equal(t, 20.0, reqs[1].Breaker.LoadAmps)
	assert.True(t, reqs[1].Breaker.Continuous)

	require.NotNil(t, reqs[2].Motor)
	assert.Equal(t, 33.0, reqs[2].Motor.HP)

	require.NotNil(t, reqs[3].Fault)
	assert.Equal(t, 3, reqs[3].Fault.Phases)
	assert.Nil(t, reqs[3].Fault.Conductor)
}

func TestParseRequestsCSVRunsThroughEngine(t *testing.T) {
	reqs, _, err := ParseRequestsCSV([]byte(worksheet))
	require.NoError(t, err)

	repo, err := tables.Builtin("2023")
	require.NoError(t, err)
	calc, err := engine.New(repo)
	require.NoError(t, err)

	outcomes := engine.RunBatch(context.Background(), calc, reqs, 0)
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		require.NoError(t, o.Err, o.ID)
	}
	assert.Equal(t, "1/0", outcomes[0].Response.Conductor.SelectedSize)
	assert.Equal(t, "30", outcomes[1].Response.Breaker.SelectedSize)
	assert.InDelta(t, 43.6, outcomes[2].Response.Motor.FLA, 1e-9)
	assert.InDelta(t, 3608.4, outcomes[3].Response.Fault.SymmetricalAmps, 0.1)
}

func TestParseRequestsCSVRowErrors(t *testing.T) {
	data := `id,kind,current,voltage,continuous,size
ok,voltage_drop,20,120,,12
bad-num,conductor,lots,480,,
bad-bool,conductor,10,480,maybe,
,,,,,
nokind,,10,480,,
odd,transformer_sizing,,,,
quote,conductor,1"0,480,,
last,voltage_drop,10,240,,10
`
	reqs, rowErrs, err := ParseRequestsCSV([]byte(data))
	require.NoError(t, err)

	require.Len(t, reqs, 2)
	assert.Equal(t, "ok", reqs[0].ID)
	assert.Equal(t, "12", reqs[0].VoltageDrop.Size)
	assert.Equal(t, "last", reqs[1].ID)

	require.Len(t, rowErrs, 5)
	assert.Equal(t, 3, rowErrs[0].Row)
	assert.Equal(t, "bad-num", rowErrs[0].ID)
	assert.Contains(t, rowErrs[0].Error(), "current")
	assert.Contains(t, rowErrs[1].Error(), "not a boolean")
	assert.Equal(t, 6, rowErrs[2].Row)
	assert.Contains(t, rowErrs[2].Error(), "kind is empty")
	assert.Contains(t, rowErrs[3].Error(), "unknown kind")
	assert.Equal(t, 8, rowErrs[4].Row)
}

func TestParseRequestsCSVFeeder(t *testing.T) {
	data := "kind,transformer_kva,voltage,phases,impedance_percent,load_amps,continuous,current,distance_ft,size,material\n" +
		"protected_feeder,1000,480,3,5.75,100,true,100,100,1/0,copper\n"
	reqs, rowErrs, err := ParseRequestsCSV([]byte(data))
	require.NoError(t, err)
	require.Empty(t, rowErrs)
	require.Len(t, reqs, 1)

	fd := reqs[0].Feeder
	require.NotNil(t, fd)
	assert.Equal(t, 1000.0, fd.Fault.TransformerKVA)
	require.NotNil(t, fd.Fault.Conductor)
	assert.Equal(t, "1/0", fd.Fault.Conductor.Size)
	assert.Equal(t, 100.0, fd.Fault.Conductor.LengthFt)
	assert.Equal(t, 100.0, fd.Breaker.LoadAmps)
	require.NotNil(t, fd.Load)
	assert.True(t, fd.Load.Continuous)
}

func TestParseRequestsCSVHeader(t *testing.T) {
	_, _, err := ParseRequestsCSV(nil)
	assert.Error(t, err)

	_, _, err = ParseRequestsCSV([]byte("id,current\na,10\n"))
	assert.ErrorContains(t, err, "no kind column")
}

func TestParseRequestsCSVHeaderSpellings(t *testing.T) {
	for _, header := range []string{
		"kind,current,voltage,distance_ft",
		"Kind,Current,Voltage,Distance Ft",
		"kind,current,voltage,distanceFt",
		"Kind,Current,Voltage,Distance-Ft",
	} {
		t.Run(header, func(t *testing.T) {
			reqs, rowErrs, err := ParseRequestsCSV([]byte(header + "\nconductor,100,480,250\n"))
			require.NoError(t, err)
			require.Empty(t, rowErrs)
			require.Len(t, reqs, 1)
			require.NotNil(t, reqs[0].Load)
			assert.Equal(t, 250.0, reqs[0].Load.DistanceFt)
		})
	}
}
