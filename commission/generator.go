/*
generator.go - Monthly batch generation

PURPOSE:
  For a given period, sweeps all representatives, counts their signed
  contracts, resolves the tier, computes the amount, and persists one
  pending commission per representative. The sweep is best-effort and
  idempotent: re-running with the same arguments produces zero additional
  inserts beyond what is missing.

PER-REPRESENTATIVE OUTCOMES:
  created:               New pending commission persisted
  skipped/alreadyExists: A record for the tuple already exists (including
                         losing an insert race to a concurrent run)
  skipped/zeroAmount:    No qualifying activity, nothing to pay
  failed:                Activity lookup or rule evaluation failed; the
                         sweep continues with the next representative

PRECONDITIONS:
  Only administrator-equivalent roles may trigger generation. The
  permission failure is the only error the call itself returns; partial
  failures are reported, never thrown.

SEE ALSO:
  - tier.go: Tier resolution
  - amount.go: Payout computation
  - store.go: Insert as the concurrency gate
*/
package commission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// =============================================================================
// GENERATION REPORT
// =============================================================================

// SkipReason distinguishes "nothing to do" outcomes in the report so
// operators are not alarmed by idempotent re-runs.
type SkipReason string

const (
	SkipAlreadyExists SkipReason = "alreadyExists"
	SkipZeroAmount    SkipReason = "zeroAmount"
)

type SkippedEntry struct {
	RepresentativeID RepresentativeID
	Reason           SkipReason
}

type FailedEntry struct {
	RepresentativeID RepresentativeID
	Cause            string
}

// GenerationReport enumerates successes, skips, and failures of one sweep
// so an operator can re-run selectively.
type GenerationReport struct {
	Period  Period
	Created []Commission
	Skipped []SkippedEntry
	Failed  []FailedEntry
}

// =============================================================================
// BATCH GENERATOR
// =============================================================================

// BatchGenerator produces commission records for a period. Safe for
// concurrent invocation: the storage-level uniqueness constraint ensures
// exactly one record survives per representative/period regardless of how
// many sweeps race.
type BatchGenerator struct {
	Store     Store
	Directory Directory
	Activity  ActivitySource
	Rules     RuleSource
	Events    Events

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// GenerateForPeriod runs one sweep. Only the precondition failures
// (permission, malformed period, unloadable configuration or directory)
// surface as errors; per-representative failures land in the report.
func (g *BatchGenerator) GenerateForPeriod(ctx context.Context, period Period, actor Actor) (*GenerationReport, error) {
	if !actor.Role.IsAdmin() {
		return nil, &PermissionDeniedError{Actor: actor, Operation: "generate commissions"}
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	// Snapshot the rule set once; administrators may edit rules between
	// runs, never observed mid-run.
	rules, err := g.Rules.ListTierRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tier rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	reps, err := g.Directory.ListRepresentatives(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list representatives: %w", err)
	}

	report := &GenerationReport{Period: period}
	for _, rep := range reps {
		g.processRepresentative(ctx, period, rules, rep, report)
	}

	log.Printf("[Generator] period %s: %d created, %d skipped, %d failed",
		period, len(report.Created), len(report.Skipped), len(report.Failed))
	return report, nil
}

func (g *BatchGenerator) processRepresentative(ctx context.Context, period Period, rules RuleSet, rep Representative, report *GenerationReport) {
	existing, err := g.Store.FindExisting(ctx, rep.ID, period)
	if err != nil {
		report.Failed = append(report.Failed, FailedEntry{RepresentativeID: rep.ID, Cause: err.Error()})
		return
	}
	if existing != nil {
		report.Skipped = append(report.Skipped, SkippedEntry{RepresentativeID: rep.ID, Reason: SkipAlreadyExists})
		return
	}

	summary, err := g.Activity.GetActivitySummary(ctx, rep.ID, period)
	if err != nil {
		report.Failed = append(report.Failed, FailedEntry{RepresentativeID: rep.ID, Cause: err.Error()})
		return
	}

	rule, err := ResolveTier(summary.ContractsSigned, rules)
	if err != nil {
		report.Failed = append(report.Failed, FailedEntry{RepresentativeID: rep.ID, Cause: err.Error()})
		return
	}

	// Revenue is only consulted when the resolved tier needs it.
	var revenue *Money
	if rule.IsPercentage() {
		revenue = &summary.TotalRevenue
	}

	amount, err := ComputeAmount(rule, revenue)
	if err != nil {
		report.Failed = append(report.Failed, FailedEntry{RepresentativeID: rep.ID, Cause: err.Error()})
		return
	}
	if amount.IsZero() {
		report.Skipped = append(report.Skipped, SkippedEntry{RepresentativeID: rep.ID, Reason: SkipZeroAmount})
		return
	}

	now := g.now()
	created, err := g.Store.Insert(ctx, Commission{
		ID:               NewCommissionID(rep.ID, period),
		RepresentativeID: rep.ID,
		Amount:           amount,
		Tier:             rule.Tier,
		Period:           period,
		Status:           StatusPending,
		CreatedAt:        now,
	})
	if err != nil {
		// A concurrent sweep or manual insert won the race. Exactly one
		// record survives; the loser reports a skip, not a failure.
		if errors.Is(err, ErrDuplicatePeriod) {
			report.Skipped = append(report.Skipped, SkippedEntry{RepresentativeID: rep.ID, Reason: SkipAlreadyExists})
			return
		}
		report.Failed = append(report.Failed, FailedEntry{RepresentativeID: rep.ID, Cause: err.Error()})
		return
	}

	report.Created = append(report.Created, created)
	publish(ctx, g.Events, Event{Type: EventCreated, Commission: created})
}

func (g *BatchGenerator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// NewCommissionID derives a stable ID from the full tuple, so re-runs
// racing on the same representative/period generate the same candidate ID
// while distinct periods, even within one month, never share an ID.
func NewCommissionID(rep RepresentativeID, period Period) CommissionID {
	return CommissionID(fmt.Sprintf("com-%s-%s-%s",
		rep, period.Start.Format("20060102"), period.End.Format("20060102")))
}
