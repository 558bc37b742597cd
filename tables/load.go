package tables

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// LOADING: YAML datasets, builtin revisions, CSV conductor import
// ============================================================================
// Builtin revisions are embedded YAML files named <revision>.yaml. Consumers
// can load their own file with LoadFile, or replace a builtin's conductor
// table with a CSV export via ParseConductorCSV + Dataset + New.
// ============================================================================

// DefaultRevision is the revision used when none is configured.
const DefaultRevision = "2023"

//go:embed data/*.yaml
var builtinFS embed.FS

// Parse decodes a YAML dataset without building a Repository.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("failed to parse dataset YAML: %w", err)
	}
	return ds, nil
}

// Load parses a YAML dataset and builds a Repository from it.
func Load(data []byte) (*Repository, error) {
	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(ds)
}

// LoadFile reads and loads a YAML dataset from disk.
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Load(data)
}

// Builtin loads one of the embedded revisions.
func Builtin(revision string) (*Repository, error) {
	if revision == "" {
		revision = DefaultRevision
	}
	data, err := builtinFS.ReadFile(path.Join("data", revision+".yaml"))
	if err != nil {
		return nil, &LookupError{Table: "revisions", Key: strconv.Quote(revision)}
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if ds.Revision != revision {
		return nil, fmt.Errorf("builtin %s.yaml declares revision %q", revision, ds.Revision)
	}
	return New(ds)
}

// Revisions lists the embedded revisions.
func Revisions() []string {
	entries, err := builtinFS.ReadDir("data")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, ".yaml") {
			out = append(out, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(out)
	return out
}

// Marshal encodes a dataset back to YAML.
func Marshal(ds Dataset) ([]byte, error) {
	return yaml.Marshal(ds)
}

// ============================================================================
// CSV CONDUCTOR IMPORT
// ============================================================================

// conductorColumns maps normalized headers to setters. Ampacity columns are
// named ampacity_<rating> (ampacity_60, ampacity_75, ...).
var conductorColumns = map[string]func(*ConductorSpec, float64){
	"resistance":   func(c *ConductorSpec, v float64) { c.Resistance = v },
	"reactance":    func(c *ConductorSpec, v float64) { c.Reactance = v },
	"impedance":    func(c *ConductorSpec, v float64) { c.Impedance = v },
	"power_factor": func(c *ConductorSpec, v float64) { c.PowerFactor = v },
}

// ParseConductorCSV reads a conductor table. Required columns: material,
// size, impedance and at least one ampacity_<rating> column. Unknown columns
// are ignored; malformed numbers fail the whole import since this is
// reference data.
func ParseConductorCSV(data []byte) ([]ConductorSpec, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	keys := make([]string, len(headers))
	seen := make(map[string]bool)
	for i, h := range headers {
		keys[i] = HeaderKey(strings.TrimSpace(h))
		seen[keys[i]] = true
	}
	for _, required := range []string{"material", "size", "impedance"} {
		if !seen[required] {
			return nil, fmt.Errorf("conductor CSV missing %q column", required)
		}
	}

	var specs []ConductorSpec
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("conductor CSV line %d: %w", line, err)
		}

		spec := ConductorSpec{Ampacity: make(map[int]float64)}
		for i, raw := range row {
			if i >= len(keys) {
				break
			}
			val := strings.TrimSpace(raw)
			key := keys[i]

			switch {
			case key == "material":
				spec.Material = Material(strings.ToLower(val))
			case key == "size":
				spec.Size = val
			case strings.HasPrefix(key, "ampacity_"):
				rating, err := strconv.Atoi(strings.TrimPrefix(key, "ampacity_"))
				if err != nil {
					continue
				}
				if val == "" {
					continue
				}
				f, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return nil, fmt.Errorf("conductor CSV line %d: %s=%q: %w", line, key, val, err)
				}
				spec.Ampacity[rating] = f
			default:
				set, ok := conductorColumns[key]
				if !ok || val == "" {
					continue
				}
				f, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return nil, fmt.Errorf("conductor CSV line %d: %s=%q: %w", line, key, val, err)
				}
				set(&spec, f)
			}
		}

		if len(spec.Ampacity) == 0 {
			return nil, fmt.Errorf("conductor CSV line %d: no ampacity columns", line)
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("conductor CSV has no data rows")
	}
	return specs, nil
}

// HeaderKey normalises a CSV column header: "Ampacity 75" or "powerFactor"
// → "ampacity_75", "power_factor". A one-letter lowercase prefix stays
// attached, so "Load kVA" → "load_kva".
func HeaderKey(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			prefix := unicode.IsLower(prev) && (i == 1 || !unicode.IsLetter(runes[i-2]))
			if (unicode.IsLower(prev) || unicode.IsDigit(prev)) && !prefix {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	s = strings.Trim(s, "_")
	return s
}
