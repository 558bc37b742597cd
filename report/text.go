package report

import (
	"fmt"
	"strings"

	"github.com/spektr-org/voltcalc/engine"
)

// ============================================================================
// TEXT BUILDER: One-line answers for single calculations
// ============================================================================

// TextData is the headline value of a single calculation.
type TextData struct {
	Value    string        `json:"value"`
	RawValue float64       `json:"rawValue"`
	Unit     string        `json:"unit"`
	Status   engine.Status `json:"status"`
	Headline string        `json:"headline"`
}

// BuildText produces the headline value for a response.
func BuildText(resp *engine.Response) *TextData {
	td := &TextData{Status: resp.Status()}

	switch {
	case resp.Conductor != nil:
		c := resp.Conductor
		td.Value, td.Unit = c.SelectedSize, "AWG"
		td.RawValue = c.RatedCapacity
		td.Headline = fmt.Sprintf("%s %s: %s rated for %s required (margin %s), drop %s",
			c.SelectedSize, c.Material, Amps(c.RatedCapacity), Amps(c.RequiredCapacity),
			Percent(c.MarginPercent), Percent(c.VoltageDrop.Percent))
	case resp.Breaker != nil:
		b := resp.Breaker
		td.Value, td.Unit, td.RawValue = b.SelectedSize, "A", b.RatedCapacity
		td.Headline = fmt.Sprintf("%s A breaker for %s required, interrupting %s A",
			b.SelectedSize, Amps(b.RequiredCapacity), Number(b.InterruptingAmps, 0))
	case resp.Transformer != nil:
		x := resp.Transformer
		td.Value, td.Unit, td.RawValue = x.SelectedSize, "kVA", x.RatedCapacity
		td.Headline = fmt.Sprintf("%s kVA transformer for %s required, utilization %s",
			x.SelectedSize, KVA(x.RequiredCapacity), Percent(x.UtilizationPercent))
	case resp.Motor != nil:
		m := resp.Motor
		td.Value, td.Unit, td.RawValue = Number(m.FLA, 1), "A", m.FLA
		td.Headline = fmt.Sprintf("%g HP at %g V: FLA %s (%s), locked rotor %s, %s start %s",
			m.HP, m.Voltage, Amps(m.FLA), m.FLASource, Amps(m.LockedRotorAmps), m.Method, Amps(m.StartingAmps))
	case resp.Contactor != nil:
		c := resp.Contactor
		td.Value, td.Unit = c.NEMASize, "NEMA"
		td.Headline = fmt.Sprintf("NEMA size %s starter for %g HP at %g V", c.NEMASize, c.HP, c.Voltage)
	case resp.Fault != nil:
		f := resp.Fault
		td.Value, td.Unit, td.RawValue = Number(f.SymmetricalAmps, 0), "A", f.SymmetricalAmps
		td.Headline = fmt.Sprintf("%s A symmetrical, %s A asymmetrical (×%s, %s)",
			Number(f.SymmetricalAmps, 0), Number(f.AsymmetricalAmps, 0), Number(f.AsymmetricalFactor, 3), f.Method)
	case resp.VoltageDrop != nil:
		v := resp.VoltageDrop
		td.Value, td.Unit, td.RawValue = Number(v.Percent, 2), "%", v.Percent
		verdict := "acceptable"
		if !v.Acceptable {
			verdict = "exceeds " + Percent(v.LimitPercent)
		}
		td.Headline = fmt.Sprintf("%s V drop on %s %s (%s), %s",
			Number(v.Volts, 2), v.Size, v.Material, Percent(v.Percent), verdict)
	case resp.LoadFlow != nil:
		lf := resp.LoadFlow
		td.Value, td.Unit, td.RawValue = Number(lf.RealPowerKW, 1), "kW", lf.RealPowerKW
		td.Headline = fmt.Sprintf("%s kW / %s kVAR / %s, regulation %s, efficiency %s",
			Number(lf.RealPowerKW, 1), Number(lf.ReactivePowerKVAR, 1), KVA(lf.ApparentPowerKVA),
			Percent(lf.VoltageDropPercent), Percent(lf.EfficiencyPercent))
	case resp.Feeder != nil && resp.Feeder.Breaker != nil:
		fd := resp.Feeder
		td.Value, td.Unit, td.RawValue = fd.Breaker.SelectedSize, "A", fd.Breaker.RatedCapacity
		parts := []string{
			fmt.Sprintf("%s A available", Number(fd.Fault.SymmetricalAmps, 0)),
			fmt.Sprintf("%s A breaker (AIC %s A)", fd.Breaker.SelectedSize, Number(fd.Breaker.InterruptingAmps, 0)),
		}
		if fd.Conductor != nil {
			parts = append(parts, fmt.Sprintf("%s %s conductor", fd.Conductor.SelectedSize, fd.Conductor.Material))
		}
		td.Headline = strings.Join(parts, ", ")
	}

	if failed := engine.Failures(resp.Records()); len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, r := range failed {
			ids[i] = r.RuleID
		}
		td.Headline += " [FAIL: " + strings.Join(ids, ", ") + "]"
	}
	return td
}
