// Package config resolves voltcalc runtime settings by layering defaults,
// an optional YAML file, and finally environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/tables"
)

// Environment overrides, applied after the file.
const (
	EnvRevision    = "VOLTCALC_REVISION"
	EnvDataset     = "VOLTCALC_DATASET"
	EnvLogLevel    = "VOLTCALC_LOG_LEVEL"
	EnvParallelism = "VOLTCALC_PARALLELISM"
)

// Config captures everything needed to build a Calculator.
type Config struct {
	Dataset Dataset                  `yaml:"dataset"`
	Rules   engine.RuleConfiguration `yaml:"rules"`
	Logging Logging                  `yaml:"logging"`
	Batch   Batch                    `yaml:"batch"`
}

// Dataset selects the code tables.
type Dataset struct {
	// Revision names a builtin table set. Ignored when Path is set.
	Revision string `yaml:"revision"`
	// Path points at a YAML dataset on disk.
	Path string `yaml:"path,omitempty"`
	// ConductorsCSV replaces the dataset's conductor table.
	ConductorsCSV string `yaml:"conductors_csv,omitempty"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development,omitempty"`
}

// Batch tunes batch evaluation.
type Batch struct {
	// Parallelism bounds concurrent calculations. 0 means unbounded.
	Parallelism int `yaml:"parallelism"`
}

// Default returns the builtin configuration. Rules carry no revision so
// they follow whichever dataset is opened.
func Default() Config {
	rules := engine.DefaultRules()
	rules.CodeTableRevision = ""
	return Config{
		Dataset: Dataset{Revision: tables.DefaultRevision},
		Rules:   rules,
		Logging: Logging{Level: "info"},
		Batch:   Batch{Parallelism: 4},
	}
}

// Load reads path over the defaults, then applies the environment. An
// empty path skips the file. Keys missing from the file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvRevision)); v != "" {
		c.Dataset.Revision = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataset)); v != "" {
		c.Dataset.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvParallelism)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", EnvParallelism, v)
		}
		c.Batch.Parallelism = n
	}
	return nil
}

// Validate checks the settings that can be checked without opening the
// dataset.
func (c Config) Validate() error {
	if c.Batch.Parallelism < 0 {
		return fmt.Errorf("batch.parallelism must be >= 0, got %d", c.Batch.Parallelism)
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	return c.Rules.Validate()
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ============================================================================
// CONSTRUCTION
// ============================================================================

// OpenRepository loads the configured tables: a file when Path is set,
// otherwise the builtin Revision, with the conductor table optionally
// replaced from CSV.
func (c Config) OpenRepository() (*tables.Repository, error) {
	var (
		repo *tables.Repository
		err  error
	)
	if c.Dataset.Path != "" {
		repo, err = tables.LoadFile(c.Dataset.Path)
	} else {
		repo, err = tables.Builtin(c.Dataset.Revision)
	}
	if err != nil {
		return nil, err
	}
	if c.Dataset.ConductorsCSV == "" {
		return repo, nil
	}

	data, err := os.ReadFile(c.Dataset.ConductorsCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to read conductor CSV: %w", err)
	}
	specs, err := tables.ParseConductorCSV(data)
	if err != nil {
		return nil, err
	}
	ds := repo.Dataset()
	ds.Conductors = specs
	return tables.New(ds)
}

// NewCalculator opens the repository and builds a Calculator with the
// configured rules.
func (c Config) NewCalculator(logger *zap.Logger) (*engine.Calculator, error) {
	repo, err := c.OpenRepository()
	if err != nil {
		return nil, err
	}
	return engine.New(repo, engine.WithRules(c.Rules), engine.WithLogger(logger))
}

// Build creates the zap logger.
func (l Logging) Build() (*zap.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func (l Logging) level() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
