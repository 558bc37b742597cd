package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/report"
)

// ============================================================================
// OUTPUT
// ============================================================================

// output opens --out or stdout. The returned func closes a file.
func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func writeResponse(resp *engine.Response) error {
	return withOutput(func(w io.Writer) error {
		switch format {
		case "text":
			_, err := fmt.Fprintln(w, report.BuildText(resp).Headline)
			return err
		case "csv":
			table := report.BuildTable(string(resp.Kind), []engine.BatchOutcome{{ID: resp.ID, Response: resp}})
			return writeTableCSV(w, table)
		default:
			return writeJSON(w, resp)
		}
	})
}

func writeOutcomes(title string, outcomes []engine.BatchOutcome) error {
	return withOutput(func(w io.Writer) error {
		switch format {
		case "text":
			for _, o := range outcomes {
				line := o.Error
				if o.Response != nil {
					line = report.BuildText(o.Response).Headline
				}
				if _, err := fmt.Fprintf(w, "%s\t%s\n", o.ID, line); err != nil {
					return err
				}
			}
			return nil
		case "csv":
			return writeTableCSV(w, report.BuildTable(title, outcomes))
		default:
			return writeJSON(w, outcomes)
		}
	})
}

// writeValue renders v as JSON, or text as-is for --format text/csv.
func writeValue(v interface{}, text string) error {
	return withOutput(func(w io.Writer) error {
		if format == "text" || format == "csv" {
			_, err := fmt.Fprintln(w, text)
			return err
		}
		return writeJSON(w, v)
	})
}

func withOutput(fn func(io.Writer) error) error {
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if outFile != "" {
		logger.Info("output written", zap.String("path", outFile))
	}
	return nil
}

func writeTableCSV(w io.Writer, table *report.TableData) error {
	cw := csv.NewWriter(w)
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeJSON(w io.Writer, v interface{}) error {
	var (
		out []byte
		err error
	)
	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
