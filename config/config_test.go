package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/tables"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, tables.DefaultRevision, cfg.Dataset.Revision)
	assert.Empty(t, cfg.Rules.CodeTableRevision)
	assert.Equal(t, 1.25, cfg.Rules.ContinuousFactor)
	assert.NoError(t, cfg.Validate())
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := writeFile(t, "voltcalc.yaml", `
dataset:
  revision: 2023-simplified
rules:
  voltage_drop_limit_percent: 5
  fault_method: point_to_point
logging:
  level: debug
batch:
  parallelism: 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2023-simplified", cfg.Dataset.Revision)
	assert.Equal(t, 5.0, cfg.Rules.VoltageDropLimitPercent)
	assert.Equal(t, engine.FaultPointToPoint, cfg.Rules.FaultMethod)
	assert.Equal(t, 1.25, cfg.Rules.ContinuousFactor, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Rules.Alternatives)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Batch.Parallelism)
}

func TestLoadEnvironmentWins(t *testing.T) {
	path := writeFile(t, "voltcalc.yaml", "dataset:\n  revision: \"2023\"\nlogging:\n  level: info\n")
	t.Setenv(EnvRevision, "2023-simplified")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvParallelism, "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2023-simplified", cfg.Dataset.Revision)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Batch.Parallelism)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "rules: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeFile(t, "rules.yaml", "rules:\n  continuous_factor: 0.8\n"))
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
	var ie *engine.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "continuousFactor", ie.Field)

	_, err = Load(writeFile(t, "level.yaml", "logging:\n  level: chatty\n"))
	assert.ErrorContains(t, err, "logging.level")

	t.Setenv(EnvParallelism, "many")
	_, err = Load("")
	assert.ErrorContains(t, err, EnvParallelism)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Rules.Alternatives = 1
	cfg.Dataset.ConductorsCSV = "conductors.csv"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestOpenRepository(t *testing.T) {
	cfg := Default()
	repo, err := cfg.OpenRepository()
	require.NoError(t, err)
	assert.Equal(t, "2023", repo.Revision())

	cfg.Dataset.Revision = "1999"
	_, err = cfg.OpenRepository()
	assert.ErrorIs(t, err, tables.ErrLookupMiss)
}

func TestOpenRepositoryFromFile(t *testing.T) {
	base, err := tables.Builtin("2023")
	require.NoError(t, err)
	data, err := tables.Marshal(base.Dataset())
	require.NoError(t, err)

	cfg := Default()
	cfg.Dataset.Path = writeFile(t, "tables.yaml", string(data))
	cfg.Dataset.Revision = "ignored"
	repo, err := cfg.OpenRepository()
	require.NoError(t, err)
	assert.Equal(t, "2023", repo.Revision())
}

func TestOpenRepositoryConductorCSV(t *testing.T) {
	cfg := Default()
	cfg.Dataset.ConductorsCSV = writeFile(t, "conductors.csv",
		"Material,Size,Ampacity 75,Impedance\ncopper,12,25,2.0\ncopper,10,35,1.2\ncopper,8,50,0.78\n")

	repo, err := cfg.OpenRepository()
	require.NoError(t, err)
	amps, err := repo.Ampacity(tables.Copper, 75, "8")
	require.NoError(t, err)
	assert.Equal(t, 50.0, amps)
	_, err = repo.Ampacity(tables.Copper, 75, "1/0")
	assert.ErrorIs(t, err, tables.ErrLookupMiss)

	cfg.Dataset.ConductorsCSV = filepath.Join(t.TempDir(), "nope.csv")
	_, err = cfg.OpenRepository()
	assert.ErrorContains(t, err, "conductor CSV")
}

func TestNewCalculator(t *testing.T) {
	cfg := Default()
	cfg.Dataset.Revision = "2023-simplified"
	calc, err := cfg.NewCalculator(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "2023-simplified", calc.Rules().CodeTableRevision)

	cfg.Rules.CodeTableRevision = "2023"
	_, err = cfg.NewCalculator(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestLoggingBuild(t *testing.T) {
	logger, err := Logging{Level: "debug"}.Build()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = Logging{}.Build()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = Logging{Level: "loud"}.Build()
	assert.Error(t, err)
}
