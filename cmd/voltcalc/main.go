package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/voltcalc/config"
	"github.com/spektr-org/voltcalc/engine"
)

// ============================================================================
// VOLTCALC CLI: Electrical sizing and compliance from the shell
// ============================================================================

const version = "0.3.0"

var (
	// Global flags
	configPath  string
	revision    string
	datasetPath string
	format      string
	outFile     string
	verbose     bool
	strict      bool

	cfg    config.Config
	logger *zap.Logger
	calc   *engine.Calculator
)

// errNonCompliant is returned under --strict when any result fails a rule.
var errNonCompliant = errors.New("result is not compliant")

var rootCmd = &cobra.Command{
	Use:     "voltcalc",
	Short:   "Electrical sizing and compliance calculator",
	Version: version,
	Long: `voltcalc sizes conductors, breakers, transformers and motor circuits
against a revision of the electrical code tables, and reports every
compliance rule it checked with its margin.

Configuration is layered: builtin defaults, then --config (YAML), then the
VOLTCALC_REVISION, VOLTCALC_DATASET, VOLTCALC_LOG_LEVEL and
VOLTCALC_PARALLELISM environment variables, then flags.

Formats:
  json      Full JSON output (default)
  pretty    Pretty-printed JSON
  text      One headline per result
  csv       Outcome table (ready for Sheets/Excel)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if revision != "" {
			cfg.Dataset.Revision = revision
		}
		if datasetPath != "" {
			cfg.Dataset.Path = datasetPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		switch format {
		case "json", "pretty", "text", "csv":
		default:
			return fmt.Errorf("unknown --format %q (json, pretty, text, csv)", format)
		}

		logger, err = cfg.Logging.Build()
		if err != nil {
			return err
		}
		calc, err = cfg.NewCalculator(logger)
		if err != nil {
			return err
		}
		logger.Debug("calculator ready",
			zap.String("revision", calc.Repository().Revision()),
			zap.String("faultMethod", string(calc.Rules().FaultMethod)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML configuration")
	pf.StringVar(&revision, "revision", "", "Builtin code table revision (default from config)")
	pf.StringVar(&datasetPath, "dataset", "", "Path to a YAML code table dataset")
	pf.StringVarP(&format, "format", "f", "json", "Output format: json, pretty, text, csv")
	pf.StringVarP(&outFile, "out", "o", "", "Write output to file instead of stdout")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVar(&strict, "strict", false, "Exit with status 2 when any result is not compliant")

	rootCmd.AddCommand(
		conductorCmd(),
		breakerCmd(),
		transformerCmd(),
		motorCmd(),
		contactorCmd(),
		faultCmd(),
		vdropCmd(),
		loadflowCmd(),
		batchCmd(),
		tablesCmd(),
	)
}

func main() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, errNonCompliant):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}
