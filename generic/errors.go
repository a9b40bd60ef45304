/*
errors.go - Error kinds for the payroll engine

PURPOSE:
  All error types in one place. Every component returns these as values;
  nothing panics for control flow.

ERROR KINDS:
  1. Validation    - malformed input, rejected before any employee is processed
  2. Calculation   - one employee failed; the batch continues
  3. Configuration - bracket tables or rates unusable; the whole batch fails
  4. Store         - persistence conflicts (locked results, missing rows)

USAGE:
  var calcErr *generic.CalculationError
  if errors.As(err, &calcErr) && calcErr.Code == generic.CodeNoBracketMatch {
      ...
  }

  if errors.Is(err, generic.ErrCalculation) { ... }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks malformed or missing required input.
	ErrValidation = errors.New("validation error")

	// ErrCalculation marks a per-employee failure.
	ErrCalculation = errors.New("calculation error")

	// ErrConfiguration marks missing or unparseable bracket tables or rates.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = fmt.Errorf("%w: invalid period: end before start", ErrValidation)

	// ErrResultLocked is returned when a recalculation would overwrite a
	// confirmed or paid result.
	ErrResultLocked = errors.New("payroll result is confirmed and cannot be overwritten")

	// ErrInvalidStatusTransition is returned for transitions outside the lifecycle.
	ErrInvalidStatusTransition = errors.New("invalid payroll status transition")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrResultNotFound is returned when no result exists for employee+period.
	ErrResultNotFound = errors.New("payroll result not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field      string
	EmployeeID string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.EmployeeID != "" {
		return fmt.Sprintf("invalid %s for employee %s: %s", e.Field, e.EmployeeID, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CalculationCode tags the cause of a per-employee failure.
type CalculationCode string

const (
	CodeNoBracketMatch   CalculationCode = "no_bracket_match"
	CodeInvalidTimestamp CalculationCode = "invalid_timestamp"
	CodeInvalidShift     CalculationCode = "invalid_shift"
	CodeNegativeNetPay   CalculationCode = "negative_net_pay"
)

// CalculationError is a per-employee failure. It is isolated: the batch
// reports it and carries on with the next employee.
type CalculationError struct {
	EmployeeID string
	Code       CalculationCode
	Message    string
	Err        error
}

func (e *CalculationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EmployeeID != "" {
		msg = fmt.Sprintf("employee %s: %s", e.EmployeeID, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CalculationError) Unwrap() error { return e.Err }

func (e *CalculationError) Is(target error) bool { return target == ErrCalculation }

// WithEmployee returns a copy tagged with the employee ID.
func (e *CalculationError) WithEmployee(id string) *CalculationError {
	c := *e
	c.EmployeeID = id
	return &c
}

// ConfigurationError is fatal to a batch.
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool    { return errors.Is(err, ErrValidation) }
func IsCalculation(err error) bool   { return errors.Is(err, ErrCalculation) }
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrResultNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsValidation(err) || errors.Is(err, ErrResultLocked) || errors.Is(err, ErrInvalidStatusTransition)
}
