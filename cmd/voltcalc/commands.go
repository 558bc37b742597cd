package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/helpers"
	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// SINGLE CALCULATIONS
// ============================================================================

func addLoadFlags(fs *pflag.FlagSet, p *engine.LoadProfile, material *string) {
	fs.Float64Var(&p.Current, "current", 0, "Load current (A)")
	fs.Float64Var(&p.NonContinuousCurrent, "non-continuous", 0, "Additional non-continuous current (A)")
	fs.Float64Var(&p.Voltage, "voltage", 0, "System voltage (V)")
	fs.IntVar(&p.Phases, "phases", 3, "1 or 3")
	fs.Float64Var(&p.DistanceFt, "distance", 0, "One-way run length (ft)")
	fs.Float64Var(&p.PowerFactor, "pf", 0.85, "Power factor")
	fs.BoolVar(&p.Continuous, "continuous", false, "Load runs 3 hours or more")
	fs.Float64Var(&p.AmbientC, "ambient", 30, "Ambient temperature (°C)")
	fs.IntVar(&p.ConductorCount, "conductors", 3, "Current-carrying conductors in the raceway")
	fs.StringVar(material, "material", string(tables.Copper), "copper or aluminum")
}

func conductorCmd() *cobra.Command {
	var p engine.LoadProfile
	var material string
	cmd := &cobra.Command{
		Use:   "conductor",
		Short: "Size a feeder or branch conductor",
		Example: `  voltcalc conductor --current 100 --voltage 480 --distance 100 --continuous
  voltcalc conductor --current 40 --voltage 240 --phases 1 --distance 250 --material aluminum -f text`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Material = tables.Material(material)
			return run(calc, engine.Request{Kind: engine.KindConductor, Load: &p})
		},
	}
	addLoadFlags(cmd.Flags(), &p, &material)
	return cmd
}

func breakerCmd() *cobra.Command {
	var in engine.BreakerInput
	cmd := &cobra.Command{
		Use:     "breaker",
		Short:   "Size an overcurrent protective device",
		Example: `  voltcalc breaker --load-amps 20 --continuous`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(calc, engine.Request{Kind: engine.KindBreaker, Breaker: &in})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&in.LoadAmps, "load-amps", 0, "Load current (A)")
	fs.Float64Var(&in.NonContinuousAmps, "non-continuous", 0, "Additional non-continuous current (A)")
	fs.BoolVar(&in.Continuous, "continuous", false, "Load runs 3 hours or more")
	fs.Float64Var(&in.InterruptingAmps, "interrupting", 0, "Interrupting rating override (A)")
	return cmd
}

func transformerCmd() *cobra.Command {
	var in engine.TransformerInput
	cmd := &cobra.Command{
		Use:     "transformer",
		Short:   "Size a distribution transformer",
		Example: `  voltcalc transformer --load-kva 600 --primary 4160 --secondary 480`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(calc, engine.Request{Kind: engine.KindTransformer, Transformer: &in})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&in.LoadKVA, "load-kva", 0, "Connected load (kVA)")
	fs.Float64Var(&in.Efficiency, "efficiency", 0, "Efficiency 0-1 (default from rules)")
	fs.Float64Var(&in.PrimaryVoltage, "primary", 0, "Primary voltage (V)")
	fs.Float64Var(&in.SecondaryVoltage, "secondary", 0, "Secondary voltage (V)")
	fs.IntVar(&in.Phases, "phases", 3, "1 or 3")
	return cmd
}

func motorCmd() *cobra.Command {
	var in engine.MotorInput
	var method string
	cmd := &cobra.Command{
		Use:     "motor",
		Short:   "Full-load and starting current of an induction motor",
		Example: `  voltcalc motor --hp 50 --voltage 480 --method soft_start`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Method = engine.StartMethod(method)
			return run(calc, engine.Request{Kind: engine.KindMotor, Motor: &in})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&in.HP, "hp", 0, "Motor horsepower")
	fs.Float64Var(&in.Voltage, "voltage", 0, "Motor voltage (V)")
	fs.StringVar(&method, "method", string(engine.StartDirectOnLine), "dol, soft_start or vfd")
	fs.StringVar(&in.CodeLetter, "code-letter", "", "NEMA locked-rotor code letter")
	return cmd
}

func contactorCmd() *cobra.Command {
	var in engine.ContactorInput
	cmd := &cobra.Command{
		Use:   "contactor",
		Short: "NEMA starter size for a motor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(calc, engine.Request{Kind: engine.KindContactor, Contactor: &in})
		},
	}
	cmd.Flags().Float64Var(&in.HP, "hp", 0, "Motor horsepower")
	cmd.Flags().Float64Var(&in.Voltage, "voltage", 0, "Motor voltage (V)")
	return cmd
}

func faultCmd() *cobra.Command {
	var (
		in       engine.FaultInput
		cable    engine.ConductorRun
		material string
		method   string
	)
	cmd := &cobra.Command{
		Use:   "fault",
		Short: "Available short-circuit current",
		Example: `  voltcalc fault --kva 1000 --voltage 480 --impedance 5.75
  voltcalc fault --kva 1000 --voltage 480 --impedance 5.75 --method point_to_point --size 1/0 --length 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cable.Size != "" {
				cable.Material = tables.Material(material)
				in.Conductor = &cable
			}
			fc := calc
			if method != "" {
				rules := calc.Rules()
				rules.FaultMethod = engine.FaultMethod(method)
				c, err := engine.New(calc.Repository(), engine.WithRules(rules), engine.WithLogger(logger))
				if err != nil {
					return err
				}
				fc = c
			}
			return run(fc, engine.Request{Kind: engine.KindFaultCurrent, Fault: &in})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&in.TransformerKVA, "kva", 0, "Transformer rating (kVA)")
	fs.Float64Var(&in.Voltage, "voltage", 0, "Secondary line-to-line voltage (V)")
	fs.IntVar(&in.Phases, "phases", 3, "1 or 3")
	fs.Float64Var(&in.ImpedancePercent, "impedance", 0, "Transformer impedance (%Z)")
	fs.Float64Var(&in.XRRatio, "xr", 0, "Transformer X/R ratio (0 = unknown)")
	fs.Float64Var(&in.SourceMVA, "source-mva", 0, "Utility short-circuit MVA (0 = infinite bus)")
	fs.StringVar(&method, "method", "", "transformer_only or point_to_point (default from rules)")
	fs.StringVar(&cable.Size, "size", "", "Conductor size to the fault point")
	fs.StringVar(&material, "material", string(tables.Copper), "Conductor material")
	fs.Float64Var(&cable.LengthFt, "length", 0, "Conductor length (ft)")
	fs.IntVar(&cable.ParallelSets, "parallel", 1, "Parallel conductor sets")
	return cmd
}

func vdropCmd() *cobra.Command {
	var in engine.VoltageDropInput
	var material string
	cmd := &cobra.Command{
		Use:     "vdrop",
		Short:   "Voltage drop along a known conductor",
		Example: `  voltcalc vdrop --voltage 120 --current 20 --distance 100 --size 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Material = tables.Material(material)
			return run(calc, engine.Request{Kind: engine.KindVoltageDrop, VoltageDrop: &in})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&in.Voltage, "voltage", 0, "System voltage (V)")
	fs.Float64Var(&in.Current, "current", 0, "Load current (A)")
	fs.Float64Var(&in.DistanceFt, "distance", 0, "One-way run length (ft)")
	fs.StringVar(&in.Size, "size", "", "Conductor size")
	fs.StringVar(&material, "material", string(tables.Copper), "copper or aluminum")
	return cmd
}

func loadflowCmd() *cobra.Command {
	var in engine.LoadFlowInput
	var material string
	cmd := &cobra.Command{
		Use:   "loadflow",
		Short: "Power, losses and regulation of a load on a chosen conductor",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Load.Material = tables.Material(material)
			return run(calc, engine.Request{Kind: engine.KindLoadFlow, LoadFlow: &in})
		},
	}
	addLoadFlags(cmd.Flags(), &in.Load, &material)
	cmd.Flags().StringVar(&in.Size, "size", "", "Conductor size")
	return cmd
}

// run calculates one request with c and writes the response.
func run(c *engine.Calculator, req engine.Request) error {
	resp, err := c.Calculate(req)
	if err != nil {
		return err
	}
	if err := writeResponse(resp); err != nil {
		return err
	}
	if strict && resp.Status() == engine.StatusFail {
		return errNonCompliant
	}
	return nil
}

// ============================================================================
// BATCH
// ============================================================================

func batchCmd() *cobra.Command {
	var (
		parallelism int
		title       string
	)
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run every request in a CSV, YAML or JSON file",
		Long: `Runs a worksheet of calculations concurrently and reports one outcome
per request, in input order. A failing request does not stop the batch.

CSV files need a kind column; see the README for the other columns.
YAML and JSON files hold a list of requests.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read batch file: %w", err)
			}
			reqs, err := decodeRequests(args[0], data)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parallelism") {
				parallelism = cfg.Batch.Parallelism
			}
			if title == "" {
				title = filepath.Base(args[0])
			}

			outcomes := engine.RunBatch(context.Background(), calc, reqs, parallelism)
			if err := writeOutcomes(title, outcomes); err != nil {
				return err
			}
			if strict {
				for _, o := range outcomes {
					if o.Err != nil || o.Response.Status() == engine.StatusFail {
						return errNonCompliant
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "Concurrent calculations (default from config, 0 = unbounded)")
	cmd.Flags().StringVar(&title, "title", "", "Report title (default: file name)")
	return cmd
}

// decodeRequests picks the decoder from the file extension.
func decodeRequests(name string, data []byte) ([]engine.Request, error) {
	var reqs []engine.Request
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		parsed, rowErrs, err := helpers.ParseRequestsCSV(data)
		if err != nil {
			return nil, err
		}
		for _, re := range rowErrs {
			logger.Warn("skipping CSV row", zap.Int("row", re.Row), zap.String("id", re.ID), zap.Error(re.Err))
		}
		reqs = parsed
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("failed to parse batch YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("failed to parse batch JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported batch file %q (use .csv, .yaml or .json)", name)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("batch file %s holds no requests", name)
	}
	return reqs, nil
}

// ============================================================================
// TABLES
// ============================================================================

func tablesCmd() *cobra.Command {
	var (
		kind string
		dump bool
	)
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List builtin revisions, one standard-size ladder, or the active dataset",
		Example: `  voltcalc tables
  voltcalc tables --kind breaker -f pretty
  voltcalc tables --dump --revision 2023-simplified > tables.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := calc.Repository()
			if dump {
				data, err := tables.Marshal(repo.Dataset())
				if err != nil {
					return err
				}
				return withOutput(func(w io.Writer) error {
					_, err := w.Write(data)
					return err
				})
			}
			if kind == "" {
				return writeValue(struct {
					Active    string   `json:"active"`
					Revisions []string `json:"revisions"`
				}{repo.Revision(), tables.Revisions()}, strings.Join(tables.Revisions(), "\n"))
			}
			ladder, err := repo.StandardSizes(tables.SizeKind(kind))
			if err != nil {
				return err
			}
			labels := make([]string, len(ladder.Entries))
			for i, e := range ladder.Entries {
				labels[i] = e.Label
			}
			return writeValue(ladder, strings.Join(labels, " "))
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "conductor_copper, conductor_aluminum, breaker or transformer")
	cmd.Flags().BoolVar(&dump, "dump", false, "Write the active dataset as YAML")
	return cmd
}
