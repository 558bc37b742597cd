package engine

import (
	"errors"
	"fmt"

	"github.com/spektr-org/voltcalc/tables"
)

// ErrInvalidInput marks non-finite, negative or zero values where positive
// ones are required. Returned wrapped in *InputError.
var ErrInvalidInput = errors.New("invalid input")

// ErrTableLookupMiss marks a combination absent from the reference data.
// Returned wrapped in *tables.LookupError.
var ErrTableLookupMiss = tables.ErrLookupMiss

// InputError names the field that could not be used.
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s=%s %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, value, reason string) error {
	return &InputError{Field: field, Value: value, Reason: reason}
}
