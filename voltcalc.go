// Package voltcalc provides an electrical sizing and compliance engine.
// Conductors, breakers, transformers and motor circuits, checked against
// a revision of the code tables.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/voltcalc/engine"
//	    "github.com/spektr-org/voltcalc/tables"
//	)
//
//	repo, _ := tables.Builtin("2023")
//	calc, err := engine.New(repo,
//	    engine.WithVoltageDropLimit(3),
//	    engine.WithFaultMethod(engine.FaultPointToPoint),
//	)
//	res, err := calc.Conductor(engine.LoadProfile{
//	    Current: 100, Voltage: 480, DistanceFt: 100, Continuous: true,
//	})
//
// Every result carries the compliance records it was checked against.
// A result that fails a rule is still a result; errors are reserved for
// invalid input and missing table entries.
//
// Code tables live in the tables package as versioned YAML datasets.
// Rendering (tables, one-line summaries) is in report, CSV import in
// helpers, file and environment configuration in config.
// The engine never performs I/O: all computation is local.
package voltcalc
