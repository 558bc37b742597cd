package report

import (
	"fmt"

	"github.com/spektr-org/voltcalc/engine"
)

// ============================================================================
// TABLE BUILDER: Produces TableData from batch outcomes
// ============================================================================
// One row per outcome, in input order. Failed items keep their row with the
// error in the notes column so a batch report never drops an item.
// ============================================================================

// TableData is a render-ready table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "status"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// Status shown for items that returned an error.
const StatusError = "error"

var outcomeColumns = []Column{
	{Key: "id", Label: "ID", Type: "text", Align: "left"},
	{Key: "kind", Label: "Calculation", Type: "text", Align: "left"},
	{Key: "selected", Label: "Selected", Type: "text", Align: "left"},
	{Key: "required", Label: "Required", Type: "number", Align: "right"},
	{Key: "rated", Label: "Rated", Type: "number", Align: "right"},
	{Key: "margin", Label: "Margin %", Type: "number", Align: "right"},
	{Key: "status", Label: "Status", Type: "status", Align: "center"},
	{Key: "notes", Label: "Notes", Type: "text", Align: "left"},
}

// BuildTable produces a table from batch outcomes.
func BuildTable(title string, outcomes []engine.BatchOutcome) *TableData {
	rows := make([][]string, 0, len(outcomes))
	counts := map[string]int{}

	for _, o := range outcomes {
		if o.Err != nil || o.Response == nil {
			msg := o.Error
			if msg == "" && o.Err != nil {
				msg = o.Err.Error()
			}
			rows = append(rows, []string{o.ID, "", "", "", "", "", StatusError, msg})
			counts[StatusError]++
			continue
		}
		row := Row(o.Response)
		row[0] = o.ID
		rows = append(rows, row)
		counts[row[6]]++
	}

	return &TableData{
		Title:   title,
		Columns: append([]Column(nil), outcomeColumns...),
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("Total (%d items)", len(outcomes)),
			Values: map[string]string{
				string(engine.StatusPass):    fmt.Sprintf("%d", counts[string(engine.StatusPass)]),
				string(engine.StatusWarning): fmt.Sprintf("%d", counts[string(engine.StatusWarning)]),
				string(engine.StatusFail):    fmt.Sprintf("%d", counts[string(engine.StatusFail)]),
				StatusError:                  fmt.Sprintf("%d", counts[StatusError]),
			},
		},
	}
}

// Row renders one response with the outcome columns.
func Row(resp *engine.Response) []string {
	var selected, required, rated, margin, notes string

	sizing := func(s engine.SizingResult, unit func(float64) string) {
		selected = s.SelectedSize
		required = unit(s.RequiredCapacity)
		rated = unit(s.RatedCapacity)
		margin = Number(s.MarginPercent, 1)
		if s.CapacityExceeded {
			notes = "standard sizes exhausted"
		}
	}

	switch {
	case resp.Conductor != nil:
		sizing(resp.Conductor.SizingResult, Amps)
		if notes == "" {
			notes = "drop " + Percent(resp.Conductor.VoltageDrop.Percent)
		}
	case resp.Breaker != nil:
		sizing(resp.Breaker.SizingResult, Amps)
		if notes == "" {
			notes = "AIC " + Number(resp.Breaker.InterruptingAmps, 0) + " A"
		}
	case resp.Transformer != nil:
		sizing(resp.Transformer.SizingResult, KVA)
		if notes == "" {
			notes = "utilization " + Percent(resp.Transformer.UtilizationPercent)
		}
	case resp.Motor != nil:
		m := resp.Motor
		selected = Amps(m.FLA)
		notes = fmt.Sprintf("FLA %s, start %s", m.FLASource, Amps(m.StartingAmps))
	case resp.Contactor != nil:
		selected = "NEMA " + resp.Contactor.NEMASize
	case resp.Fault != nil:
		selected = Number(resp.Fault.SymmetricalAmps, 0) + " A sym"
		notes = Number(resp.Fault.AsymmetricalAmps, 0) + " A asym"
	case resp.VoltageDrop != nil:
		selected = resp.VoltageDrop.Size
		notes = "drop " + Percent(resp.VoltageDrop.Percent)
	case resp.LoadFlow != nil:
		lf := resp.LoadFlow
		selected = lf.Size
		notes = fmt.Sprintf("%s kW, loss %s W", Number(lf.RealPowerKW, 1), Number(lf.CopperLossWatts, 0))
	case resp.Feeder != nil && resp.Feeder.Breaker != nil:
		sizing(resp.Feeder.Breaker.SizingResult, Amps)
		if notes == "" {
			notes = "fault " + Number(resp.Feeder.Fault.SymmetricalAmps, 0) + " A"
		}
	}

	return []string{resp.ID, string(resp.Kind), selected, required, rated, margin, string(resp.Status()), notes}
}

// BuildComplianceTable lists compliance records.
func BuildComplianceTable(title string, records []engine.ComplianceRecord) *TableData {
	rows := make([][]string, 0, len(records))
	failed := 0
	for _, r := range records {
		rows = append(rows, []string{
			r.RuleID,
			r.Description,
			Number(r.Measured, 2),
			Number(r.Threshold, 2),
			string(r.Status),
		})
		if r.Status == engine.StatusFail {
			failed++
		}
	}
	return &TableData{
		Title: title,
		Columns: []Column{
			{Key: "rule", Label: "Rule", Type: "text", Align: "left"},
			{Key: "description", Label: "Description", Type: "text", Align: "left"},
			{Key: "measured", Label: "Measured", Type: "number", Align: "right"},
			{Key: "threshold", Label: "Threshold", Type: "number", Align: "right"},
			{Key: "status", Label: "Status", Type: "status", Align: "center"},
		},
		Rows: rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("Total (%d rules)", len(records)),
			Values: map[string]string{"failed": fmt.Sprintf("%d", failed)},
		},
	}
}
