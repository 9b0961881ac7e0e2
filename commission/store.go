/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the boundary between the engine and its storage plus the
  external subsystems it reads from. Different implementations can use
  SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:          Commission persistence (insert, conditional status update, query)
  Directory:      Representative identity source (external, read-only)
  ActivitySource: Signed-contract counts and revenue (external, read-only)
  RuleSource:     Administrator-maintained tier rule configuration

UNIQUENESS CONTRACT:
  Insert MUST enforce the (representative, periodStart, periodEnd)
  uniqueness at the storage layer (a unique index, not an application
  check) so the insert itself is the concurrency gate. The loser of a
  race receives ErrDuplicatePeriod.

CONDITIONAL UPDATES:
  UpdateStatus performs the precondition check and write as one atomic
  read-modify-write: the update only applies if the record's current
  persisted status is in allowedFrom. Two concurrent approvals cannot
  both succeed; the loser receives ErrInvalidTransition.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite store
  - commission/store/memory.go: In-memory for testing

SEE ALSO:
  - generator.go: Writes through Store, reads the collaborators
  - settlement.go: Drives UpdateStatus
*/
package commission

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Commission persistence
// =============================================================================

// QueryFilter narrows a commission query. Zero values mean "no filter".
type QueryFilter struct {
	RepresentativeID RepresentativeID
	Status           Status
	PeriodFrom       time.Time // matches records whose period start >= PeriodFrom
	PeriodTo         time.Time // matches records whose period end <= PeriodTo
}

// StatusUpdate carries the fields written alongside a status transition.
type StatusUpdate struct {
	NewStatus Status
	PaidDate  *time.Time // set only when transitioning to paid
}

// Store persists commission records and enforces the uniqueness invariant.
type Store interface {
	// Insert persists a new commission. Returns DuplicatePeriodError if a
	// record for the same (representative, period) tuple already exists.
	// The uniqueness check and write are a single atomic unit.
	Insert(ctx context.Context, c Commission) (Commission, error)

	// FindExisting returns the commission for the tuple, or nil.
	FindExisting(ctx context.Context, rep RepresentativeID, period Period) (*Commission, error)

	// Get returns a commission by ID, or ErrCommissionNotFound.
	Get(ctx context.Context, id CommissionID) (Commission, error)

	// UpdateStatus applies upd only if the record's current persisted
	// status is one of allowedFrom, atomically. Returns the updated record,
	// InvalidTransitionError when the precondition fails, or
	// ErrCommissionNotFound.
	UpdateStatus(ctx context.Context, id CommissionID, allowedFrom []Status, upd StatusUpdate) (Commission, error)

	// Query returns commissions matching the filter, ordered by period
	// start then representative.
	Query(ctx context.Context, filter QueryFilter) ([]Commission, error)
}

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// Directory lists the representatives eligible for commission runs.
// Supplied by the identity/user subsystem.
type Directory interface {
	ListRepresentatives(ctx context.Context) ([]Representative, error)
}

// ActivitySource supplies per-representative activity for a period.
// A missing summary must be returned as a zero-valued summary, not an error.
type ActivitySource interface {
	GetActivitySummary(ctx context.Context, rep RepresentativeID, period Period) (ActivitySummary, error)
}

// RuleSource supplies the administrator-maintained tier rule set, ordered
// ascending by MinContracts. The set is snapshotted at the start of a
// batch run; concurrent edits during a run are out of scope.
type RuleSource interface {
	ListTierRules(ctx context.Context) (RuleSet, error)
}
