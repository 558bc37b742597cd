package helpers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/voltcalc/engine"
	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// CSV HELPER: Parses a CSV worksheet into []engine.Request
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, S3, Sheets).
// Every row needs a kind column; the other columns fill the payload for
// that kind and are ignored otherwise. Headers are normalised the same way
// the table loader does it ("Distance Ft", "distanceFt" → distance_ft).
//
// A bad row does not abort the import: it is reported as a RowError and the
// remaining rows are still returned.
// ============================================================================

// RequestColumns lists the recognised header keys.
var RequestColumns = []string{
	"id", "kind",
	"current", "non_continuous_current", "voltage", "phases", "distance_ft",
	"power_factor", "continuous", "ambient_c", "conductors", "material",
	"load_kva", "efficiency", "primary_voltage", "secondary_voltage",
	"hp", "method", "code_letter",
	"transformer_kva", "impedance_percent", "xr_ratio", "source_mva",
	"size", "load_amps", "interrupting_amps",
}

// RowError is a CSV row that could not be turned into a request.
// Row is 1-based and counts the header line.
type RowError struct {
	Row int    `json:"row"`
	ID  string `json:"id,omitempty"`
	Err error  `json:"-"`
}

func (e *RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.ID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseRequestsCSV parses CSV bytes into requests. The error return is only
// set when the header itself is unusable.
func ParseRequestsCSV(data []byte) ([]engine.Request, []RowError, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	known := make(map[string]bool, len(RequestColumns))
	for _, c := range RequestColumns {
		known[c] = true
	}
	keys := make([]string, len(headers))
	hasKind := false
	for i, h := range headers {
		key := tables.HeaderKey(strings.TrimSpace(h))
		if !known[key] {
			continue // unmapped columns are skipped
		}
		keys[i] = key
		if key == "kind" {
			hasKind = true
		}
	}
	if !hasKind {
		return nil, nil, fmt.Errorf("CSV header has no kind column")
	}

	var (
		requests []engine.Request
		rowErrs  []RowError
	)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Err: err})
			continue
		}

		r := rowValues{}
		empty := true
		for i, val := range row {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			val = strings.TrimSpace(val)
			if val != "" {
				empty = false
				r[keys[i]] = val
			}
		}
		if empty {
			continue
		}

		req, err := r.request()
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, ID: r["id"], Err: err})
			continue
		}
		requests = append(requests, req)
	}

	return requests, rowErrs, nil
}

// ============================================================================
// ROW DECODING
// ============================================================================

type rowValues map[string]string

func (r rowValues) request() (engine.Request, error) {
	req := engine.Request{ID: r["id"], Kind: engine.Kind(strings.ToLower(r["kind"]))}
	p := &parser{row: r}

	switch req.Kind {
	case engine.KindConductor:
		req.Load = p.load()
	case engine.KindBreaker:
		req.Breaker = p.breaker()
	case engine.KindTransformer:
		req.Transformer = &engine.TransformerInput{
			LoadKVA:          p.float("load_kva"),
			Efficiency:       p.float("efficiency"),
			PrimaryVoltage:   p.float("primary_voltage"),
			SecondaryVoltage: p.float("secondary_voltage"),
			Phases:           p.int("phases"),
		}
	case engine.KindMotor:
		req.Motor = &engine.MotorInput{
			HP:         p.float("hp"),
			Voltage:    p.float("voltage"),
			Method:     engine.StartMethod(strings.ToLower(r["method"])),
			CodeLetter: r["code_letter"],
		}
	case engine.KindContactor:
		req.Contactor = &engine.ContactorInput{HP: p.float("hp"), Voltage: p.float("voltage")}
	case engine.KindFaultCurrent:
		req.Fault = p.fault()
	case engine.KindVoltageDrop:
		req.VoltageDrop = &engine.VoltageDropInput{
			Voltage:    p.float("voltage"),
			Current:    p.float("current"),
			DistanceFt: p.float("distance_ft"),
			Size:       r["size"],
			Material:   tables.Material(strings.ToLower(r["material"])),
		}
	case engine.KindLoadFlow:
		req.LoadFlow = &engine.LoadFlowInput{Load: *p.load(), Size: r["size"]}
	case engine.KindProtectedFeeder:
		fd := &engine.FeederInput{Fault: *p.fault(), Breaker: *p.breaker()}
		if _, ok := r["current"]; ok {
			fd.Load = p.load()
		}
		req.Feeder = fd
	case "":
		return req, fmt.Errorf("kind is empty")
	default:
		return req, fmt.Errorf("unknown kind %q", r["kind"])
	}

	if p.err != nil {
		return req, p.err
	}
	return req, nil
}

// parser keeps the first conversion error so payload literals stay flat.
type parser struct {
	row rowValues
	err error
}

func (p *parser) float(key string) float64 {
	val, ok := p.row[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %q is not a number", key, val)
	}
	return f
}

func (p *parser) int(key string) int {
	val, ok := p.row[key]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %q is not an integer", key, val)
	}
	return n
}

func (p *parser) bool(key string) bool {
	val, ok := p.row[key]
	if !ok {
		return false
	}
	switch strings.ToLower(val) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	b, err := strconv.ParseBool(val)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %q is not a boolean", key, val)
	}
	return b
}

func (p *parser) load() *engine.LoadProfile {
	return &engine.LoadProfile{
		Current:              p.float("current"),
		NonContinuousCurrent: p.float("non_continuous_current"),
		Voltage:              p.float("voltage"),
		Phases:               p.int("phases"),
		DistanceFt:           p.float("distance_ft"),
		PowerFactor:          p.float("power_factor"),
		Continuous:           p.bool("continuous"),
		AmbientC:             p.float("ambient_c"),
		ConductorCount:       p.int("conductors"),
		Material:             tables.Material(strings.ToLower(p.row["material"])),
	}
}

func (p *parser) breaker() *engine.BreakerInput {
	return &engine.BreakerInput{
		LoadAmps:          p.float("load_amps"),
		NonContinuousAmps: p.float("non_continuous_current"),
		Continuous:        p.bool("continuous"),
		InterruptingAmps:  p.float("interrupting_amps"),
	}
}

func (p *parser) fault() *engine.FaultInput {
	in := &engine.FaultInput{
		TransformerKVA:   p.float("transformer_kva"),
		Voltage:          p.float("voltage"),
		Phases:           p.int("phases"),
		ImpedancePercent: p.float("impedance_percent"),
		XRRatio:          p.float("xr_ratio"),
		SourceMVA:        p.float("source_mva"),
	}
	if size, ok := p.row["size"]; ok {
		in.Conductor = &engine.ConductorRun{
			Size:     size,
			Material: tables.Material(strings.ToLower(p.row["material"])),
			LengthFt: p.float("distance_ft"),
		}
	}
	return in
}
