/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is/errors.As; the API layer maps
  them to machine-readable kinds and HTTP statuses.

ERROR CATEGORIES:
  1. Configuration errors - Malformed tier rule sets, bad percentages
  2. Conflict errors - Duplicate period, invalid status transition
  3. Authorization errors - Actor not permitted to perform the operation

USAGE:
  if errors.Is(err, commission.ErrDuplicatePeriod) {
      // expected during idempotent re-runs; treat as a skip
  }

SEE ALSO:
  - tier.go: Returns ConfigurationError for gapped rule sets
  - generator.go: Converts ErrDuplicatePeriod to a skip outcome
  - settlement.go: Returns InvalidTransitionError / PermissionDeniedError
*/
package commission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration indicates a malformed tier rule set (gaps, overlaps,
	// missing unbounded top tier, negative percentage). Fatal to the single
	// evaluation, never retried automatically.
	ErrConfiguration = errors.New("invalid tier configuration")

	// ErrMissingRevenue is returned when a percentage rule is evaluated
	// without a revenue figure. Indicates a rule/data mismatch.
	ErrMissingRevenue = errors.New("revenue required for percentage rule")

	// ErrDuplicatePeriod is returned when a commission already exists for
	// the same (representative, period) tuple. Expected and recoverable:
	// the batch generator converts it to a skip.
	ErrDuplicatePeriod = errors.New("commission already exists for period")

	// ErrInvalidTransition is returned when a settlement operation is
	// attempted from a status that does not permit it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPermissionDenied is returned when the actor's role or identity
	// does not allow the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCommissionNotFound is returned when a referenced commission
	// doesn't exist.
	ErrCommissionNotFound = errors.New("commission not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError names the specific defect in a tier rule set.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid tier configuration: %s", e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// MissingRevenueError identifies which rule needed revenue.
type MissingRevenueError struct {
	Tier int
}

func (e *MissingRevenueError) Error() string {
	return fmt.Sprintf("tier %d uses a percentage rule but no revenue was supplied", e.Tier)
}

func (e *MissingRevenueError) Unwrap() error { return ErrMissingRevenue }

// DuplicatePeriodError identifies the surviving record.
type DuplicatePeriodError struct {
	RepresentativeID RepresentativeID
	Period           Period
	ExistingID       CommissionID
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("commission already exists for %s in %s (id: %s)",
		e.RepresentativeID, e.Period, e.ExistingID)
}

func (e *DuplicatePeriodError) Unwrap() error { return ErrDuplicatePeriod }

// InvalidTransitionError records the attempted edge.
type InvalidTransitionError struct {
	CommissionID CommissionID
	From         Status
	To           Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("commission %s: cannot transition from %s to %s",
		e.CommissionID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PermissionDeniedError records who was refused what.
type PermissionDeniedError struct {
	Actor     Actor
	Operation string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("actor %s (%s) may not %s", e.Actor.ID, e.Actor.Role, e.Operation)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict returns true for errors caused by concurrent or repeated
// operations on the same record. Safe to surface as HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicatePeriod) || errors.Is(err, ErrInvalidTransition)
}

// IsClientError returns true if the error is due to the caller's input or
// timing rather than an engine fault.
func IsClientError(err error) bool {
	return IsConflict(err) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsConfigError returns true for rule-set defects that an administrator
// must fix before the evaluation can be retried.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrMissingRevenue)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCommissionNotFound)
}
