/*
settlement.go - Payment lifecycle state machine

PURPOSE:
  Governs the lifecycle of a single commission record:

    pending ──▶ paymentRequested ──▶ paid
       │              │
       ├──▶ rejected ◀┤
       ├──▶ cancelled ◀┘
       └──────▶ paid (admin may approve directly)

  paid, rejected, and cancelled are terminal.

AUTHORIZATION:
  - requestPayment: administrator, or the representative who owns the
    record (a representative may request their own payout, never another's)
  - approvePayment / reject / cancel: administrator only
  Checks live here, at the engine boundary, regardless of caller.

ATOMICITY:
  Every transition is evaluated against the record's current PERSISTED
  status: the store applies the update conditionally on the allowed prior
  statuses in a single write. A rejected transition leaves the record
  unchanged; the loser of a concurrent race gets InvalidTransitionError.

SEE ALSO:
  - store.go: UpdateStatus contract
  - facade.go: Read-side visibility rules
*/
package commission

import (
	"context"
	"time"
)

// transitions maps each target status to the statuses it may be entered
// from. Anything absent is forbidden.
var transitions = map[Status][]Status{
	StatusPaymentRequested: {StatusPending},
	StatusPaid:             {StatusPending, StatusPaymentRequested},
	StatusRejected:         {StatusPending, StatusPaymentRequested},
	StatusCancelled:        {StatusPending, StatusPaymentRequested},
}

// AllowedFrom returns the statuses from which `to` may be entered.
func AllowedFrom(to Status) []Status {
	return transitions[to]
}

// CanTransition reports whether from → to is a permitted edge.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// =============================================================================
// SETTLEMENT SERVICE
// =============================================================================

// SettlementService applies lifecycle transitions to commission records.
type SettlementService struct {
	Store  Store
	Events Events

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// RequestPayment moves a pending commission to paymentRequested. Allowed
// for administrators, or for the representative who owns the commission.
func (s *SettlementService) RequestPayment(ctx context.Context, id CommissionID, actor Actor) (Commission, error) {
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Commission{}, err
	}
	if !actor.Role.IsAdmin() && actor.ID != current.RepresentativeID {
		return Commission{}, &PermissionDeniedError{Actor: actor, Operation: "request payment for commission " + string(id)}
	}
	return s.transition(ctx, id, StatusPaymentRequested, StatusUpdate{NewStatus: StatusPaymentRequested})
}

// ApprovePayment marks a commission paid and stamps PaidDate with the
// approval time. Administrator only; allowed from pending (direct
// approval) or paymentRequested.
func (s *SettlementService) ApprovePayment(ctx context.Context, id CommissionID, actor Actor) (Commission, error) {
	if !actor.Role.IsAdmin() {
		return Commission{}, &PermissionDeniedError{Actor: actor, Operation: "approve payment for commission " + string(id)}
	}
	paidAt := s.now()
	return s.transition(ctx, id, StatusPaid, StatusUpdate{NewStatus: StatusPaid, PaidDate: &paidAt})
}

// Reject declines a commission. Administrator only.
func (s *SettlementService) Reject(ctx context.Context, id CommissionID, actor Actor) (Commission, error) {
	if !actor.Role.IsAdmin() {
		return Commission{}, &PermissionDeniedError{Actor: actor, Operation: "reject commission " + string(id)}
	}
	return s.transition(ctx, id, StatusRejected, StatusUpdate{NewStatus: StatusRejected})
}

// Cancel voids a commission. Administrator only. Cancellation is a
// terminal status, not removal: the record stays in storage.
func (s *SettlementService) Cancel(ctx context.Context, id CommissionID, actor Actor) (Commission, error) {
	if !actor.Role.IsAdmin() {
		return Commission{}, &PermissionDeniedError{Actor: actor, Operation: "cancel commission " + string(id)}
	}
	return s.transition(ctx, id, StatusCancelled, StatusUpdate{NewStatus: StatusCancelled})
}

func (s *SettlementService) transition(ctx context.Context, id CommissionID, to Status, upd StatusUpdate) (Commission, error) {
	// Observed status feeds the event only. The store re-checks the
	// persisted status atomically with the write; if a concurrent
	// transition wins between this read and the update, the update fails
	// and no event is published.
	observed, err := s.Store.Get(ctx, id)
	if err != nil {
		return Commission{}, err
	}
	updated, err := s.Store.UpdateStatus(ctx, id, AllowedFrom(to), upd)
	if err != nil {
		return Commission{}, err
	}
	publish(ctx, s.Events, Event{Type: EventStatusTransition, Commission: updated, Previous: observed.Status})
	return updated, nil
}

func (s *SettlementService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
