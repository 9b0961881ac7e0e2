// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements commission.Store plus the collaborator interfaces so
// tests can run the whole engine against one fixture. The uniqueness and
// conditional-update semantics match the SQLite store: everything happens
// under one lock, so check-then-insert and check-then-update are atomic.
type Memory struct {
	mu          sync.RWMutex
	commissions map[commission.CommissionID]commission.Commission
	byTuple     map[tuple]commission.CommissionID

	reps       []commission.Representative
	activities map[tuple]commission.ActivitySummary
	rules      commission.RuleSet
}

type tuple struct {
	Rep         commission.RepresentativeID
	PeriodStart string
	PeriodEnd   string
}

func tupleOf(rep commission.RepresentativeID, p commission.Period) tuple {
	return tuple{
		Rep:         rep,
		PeriodStart: p.Start.Format("2006-01-02"),
		PeriodEnd:   p.End.Format("2006-01-02"),
	}
}

func NewMemory() *Memory {
	return &Memory{
		commissions: make(map[commission.CommissionID]commission.Commission),
		byTuple:     make(map[tuple]commission.CommissionID),
		activities:  make(map[tuple]commission.ActivitySummary),
	}
}

// =============================================================================
// commission.Store
// =============================================================================

func (m *Memory) Insert(_ context.Context, c commission.Commission) (commission.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := tupleOf(c.RepresentativeID, c.Period)
	if existingID, ok := m.byTuple[k]; ok {
		return commission.Commission{}, &commission.DuplicatePeriodError{
			RepresentativeID: c.RepresentativeID,
			Period:           c.Period,
			ExistingID:       existingID,
		}
	}
	// An ID collision across distinct tuples is a caller bug, never an
	// idempotent re-run. Records are immutable here; refuse to overwrite.
	if _, ok := m.commissions[c.ID]; ok {
		return commission.Commission{}, fmt.Errorf("commission id %s already exists", c.ID)
	}

	m.commissions[c.ID] = c
	m.byTuple[k] = c.ID
	return c, nil
}

func (m *Memory) FindExisting(_ context.Context, rep commission.RepresentativeID, period commission.Period) (*commission.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byTuple[tupleOf(rep, period)]
	if !ok {
		return nil, nil
	}
	c := m.commissions[id]
	return &c, nil
}

func (m *Memory) Get(_ context.Context, id commission.CommissionID) (commission.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.commissions[id]
	if !ok {
		return commission.Commission{}, commission.ErrCommissionNotFound
	}
	return c, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id commission.CommissionID, allowedFrom []commission.Status, upd commission.StatusUpdate) (commission.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.commissions[id]
	if !ok {
		return commission.Commission{}, commission.ErrCommissionNotFound
	}

	permitted := false
	for _, s := range allowedFrom {
		if c.Status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		return commission.Commission{}, &commission.InvalidTransitionError{
			CommissionID: id,
			From:         c.Status,
			To:           upd.NewStatus,
		}
	}

	c.Status = upd.NewStatus
	if upd.PaidDate != nil {
		paid := *upd.PaidDate
		c.PaidDate = &paid
	}
	m.commissions[id] = c
	return c, nil
}

func (m *Memory) Query(_ context.Context, filter commission.QueryFilter) ([]commission.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []commission.Commission
	for _, c := range m.commissions {
		if filter.RepresentativeID != "" && c.RepresentativeID != filter.RepresentativeID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if !filter.PeriodFrom.IsZero() && c.Period.Start.Before(filter.PeriodFrom) {
			continue
		}
		if !filter.PeriodTo.IsZero() && c.Period.End.After(filter.PeriodTo) {
			continue
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Period.Start.Equal(result[j].Period.Start) {
			return result[i].Period.Start.Before(result[j].Period.Start)
		}
		return result[i].RepresentativeID < result[j].RepresentativeID
	})
	return result, nil
}

// =============================================================================
// Collaborator fixtures (commission.Directory / ActivitySource / RuleSource)
// =============================================================================

func (m *Memory) ListRepresentatives(_ context.Context) ([]commission.Representative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]commission.Representative, len(m.reps))
	copy(result, m.reps)
	return result, nil
}

func (m *Memory) GetActivitySummary(_ context.Context, rep commission.RepresentativeID, period commission.Period) (commission.ActivitySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Missing summary means no qualifying activity, not an error.
	return m.activities[tupleOf(rep, period)], nil
}

func (m *Memory) ListTierRules(_ context.Context) (commission.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(commission.RuleSet, len(m.rules))
	copy(result, m.rules)
	return result, nil
}

// SetRepresentatives replaces the representative fixture.
func (m *Memory) SetRepresentatives(reps []commission.Representative) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reps = append([]commission.Representative(nil), reps...)
}

// SetActivity records an activity summary for a representative and period.
func (m *Memory) SetActivity(rep commission.RepresentativeID, period commission.Period, summary commission.ActivitySummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[tupleOf(rep, period)] = summary
}

// SetRules replaces the tier rule fixture.
func (m *Memory) SetRules(rules commission.RuleSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(commission.RuleSet(nil), rules...)
}
