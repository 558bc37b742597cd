package tables

import (
	"errors"
	"fmt"
)

// ErrLookupMiss is returned (wrapped in *LookupError) when a requested
// combination is absent from the reference data and no documented fallback
// applies.
var ErrLookupMiss = errors.New("table lookup miss")

// LookupError names the table and key that could not be resolved.
type LookupError struct {
	Table string
	Key   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("table lookup miss: %s has no entry for %s", e.Table, e.Key)
}

func (e *LookupError) Unwrap() error {
	return ErrLookupMiss
}

func missf(table, format string, args ...interface{}) error {
	return &LookupError{Table: table, Key: fmt.Sprintf(format, args...)}
}
