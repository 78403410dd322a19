package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for collaborator operations. The integrator itself is total
// and never returns an error.
var (
	// ErrInvalidState indicates a state with NaN or Inf coordinates.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrRunNotFound indicates a stored run could not be located.
	ErrRunNotFound = errors.New("dynamo: run not found")

	// ErrEmptyRun indicates a stored run without any recorded samples.
	ErrEmptyRun = errors.New("dynamo: run has no samples")
)

// ParamError reports a single parameter outside its accepted range.
type ParamError struct {
	Field    string
	Value    float64
	Min, Max float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s=%g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

func (e *ParamError) Unwrap() error {
	return ErrParameterBounds
}
