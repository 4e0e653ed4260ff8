package sim

import (
	"errors"
	"fmt"
)

// Sentinel kinds, matched with errors.Is.
var (
	// ErrConfig marks problems detected before any integration starts.
	ErrConfig = errors.New("sim: configuration error")
	// ErrNumerical marks failures of a single run during integration.
	ErrNumerical = errors.New("sim: numerical error")
)

// ConfigError describes an invalid subject, equation or parameter vector.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "sim: " + e.Reason
	}
	return fmt.Sprintf("sim: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NumericalError carries enough context to reproduce a failed run.
// Compartment is -1 when the failure is not tied to one compartment.
type NumericalError struct {
	SubjectID   string
	From, To    float64
	Time        float64
	Compartment int
	Params      []float64
	Wrapped     error
}

func (e *NumericalError) Error() string {
	msg := fmt.Sprintf("sim: subject %q: integration over [%g, %g] failed at t=%g", e.SubjectID, e.From, e.To, e.Time)
	if e.Compartment >= 0 {
		msg += fmt.Sprintf(" (compartment %d)", e.Compartment)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *NumericalError) Unwrap() error {
	return e.Wrapped
}

func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

// ErrNonFinite is reported when a state component becomes NaN or infinite.
var ErrNonFinite = errors.New("non-finite state")

// NonFiniteError locates the first NaN or Inf met by a solver. Time is the
// point integration could not advance past; Compartment is -1 when unknown.
type NonFiniteError struct {
	Time        float64
	Compartment int
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("non-finite state at t=%g (compartment %d)", e.Time, e.Compartment)
}

func (e *NonFiniteError) Is(target error) bool {
	return target == ErrNonFinite
}
