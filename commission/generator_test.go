package commission_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/commission/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var admin = commission.Actor{ID: "admin-1", Role: commission.RoleAdmin}

func march() commission.Period { return commission.MonthOf(2025, time.March) }

// twoTierRules is the rulebook used across these tests:
// 0-10 contracts pay a fixed 500, 11+ pay 15% of revenue.
func twoTierRules() commission.RuleSet {
	max10 := 10
	fixed := commission.NewMoney(500)
	pct := commission.NewMoney(15)
	return commission.RuleSet{
		{Tier: 1, MinContracts: 0, MaxContracts: &max10, FixedAmount: &fixed},
		{Tier: 2, MinContracts: 11, Percentage: &pct},
	}
}

func newFixture(t *testing.T) (*store.Memory, *commission.BatchGenerator) {
	t.Helper()
	mem := store.NewMemory()
	mem.SetRules(twoTierRules())
	gen := &commission.BatchGenerator{
		Store:     mem,
		Directory: mem,
		Activity:  mem,
		Rules:     mem,
	}
	return mem, gen
}

func rep(id string) commission.Representative {
	return commission.Representative{
		ID:   commission.RepresentativeID(id),
		Name: "Rep " + id,
		Role: commission.RoleRepresentative,
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerateForPeriod_TierAndAmountAssignment(t *testing.T) {
	// GIVEN: rep-a signed 5 contracts, rep-b signed 20 with 10k revenue
	// WHEN: Generating commissions for March
	// THEN: rep-a gets tier 1 / 500 fixed, rep-b gets tier 2 / 1500

	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a"), rep("rep-b")})
	mem.SetActivity("rep-a", march(), commission.ActivitySummary{ContractsSigned: 5})
	mem.SetActivity("rep-b", march(), commission.ActivitySummary{
		ContractsSigned: 20,
		TotalRevenue:    commission.NewMoney(10000),
	})

	report, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	require.NoError(t, err)
	require.Len(t, report.Created, 2)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)

	byRep := map[commission.RepresentativeID]commission.Commission{}
	for _, c := range report.Created {
		byRep[c.RepresentativeID] = c
	}

	a := byRep["rep-a"]
	assert.Equal(t, 1, a.Tier)
	assert.True(t, a.Amount.Equal(commission.NewMoney(500)), "rep-a amount %s", a.Amount)
	assert.Equal(t, commission.StatusPending, a.Status)

	b := byRep["rep-b"]
	assert.Equal(t, 2, b.Tier)
	assert.True(t, b.Amount.Equal(commission.NewMoney(1500)), "rep-b amount %s", b.Amount)
	assert.Equal(t, commission.StatusPending, b.Status)
}

func TestGenerateForPeriod_Idempotent(t *testing.T) {
	// GIVEN: A completed March run for two representatives
	// WHEN: Re-running March with identical arguments
	// THEN: Zero new inserts; second report only skipped: alreadyExists

	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a"), rep("rep-b")})
	mem.SetActivity("rep-a", march(), commission.ActivitySummary{ContractsSigned: 5})
	mem.SetActivity("rep-b", march(), commission.ActivitySummary{
		ContractsSigned: 20,
		TotalRevenue:    commission.NewMoney(10000),
	})

	ctx := context.Background()
	first, err := gen.GenerateForPeriod(ctx, march(), admin)
	require.NoError(t, err)
	require.Len(t, first.Created, 2)

	second, err := gen.GenerateForPeriod(ctx, march(), admin)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Failed)
	require.Len(t, second.Skipped, 2)
	for _, s := range second.Skipped {
		assert.Equal(t, commission.SkipAlreadyExists, s.Reason)
	}

	all, err := mem.Query(ctx, commission.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "re-run must not add records")
}

func TestGenerateForPeriod_ZeroActivity(t *testing.T) {
	// A missing summary means zero contracts: tier 1 applies but pays a
	// fixed 500, so a commission IS generated. With a zero-paying rule
	// set the representative is skipped instead.

	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-idle")})
	// No activity recorded for rep-idle.

	report, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	require.NoError(t, err)
	require.Len(t, report.Created, 1, "tier 1 pays fixed 500 even at zero contracts")
	assert.Equal(t, 1, report.Created[0].Tier)
}

func TestGenerateForPeriod_ZeroAmountSkipped(t *testing.T) {
	mem, gen := newFixture(t)

	// Bottom tier pays nothing; no commission for idle representatives.
	max10 := 10
	zero := commission.ZeroMoney()
	pct := commission.NewMoney(15)
	mem.SetRules(commission.RuleSet{
		{Tier: 1, MinContracts: 0, MaxContracts: &max10, FixedAmount: &zero},
		{Tier: 2, MinContracts: 11, Percentage: &pct},
	})
	mem.SetRepresentatives([]commission.Representative{rep("rep-idle")})

	report, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, commission.SkipZeroAmount, report.Skipped[0].Reason)
}

func TestGenerateForPeriod_PermissionDenied(t *testing.T) {
	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a")})

	nonAdmin := commission.Actor{ID: "rep-a", Role: commission.RoleRepresentative}
	_, err := gen.GenerateForPeriod(context.Background(), march(), nonAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrPermissionDenied)

	// The precondition failure must not touch any data.
	all, err := mem.Query(context.Background(), commission.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGenerateForPeriod_InvalidRuleSetAborts(t *testing.T) {
	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a")})

	// Gapped configuration: the whole run aborts before touching data.
	max5 := 5
	fixed := commission.NewMoney(100)
	pct := commission.NewMoney(10)
	mem.SetRules(commission.RuleSet{
		{Tier: 1, MinContracts: 0, MaxContracts: &max5, FixedAmount: &fixed},
		{Tier: 2, MinContracts: 8, Percentage: &pct},
	})

	_, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	assert.ErrorIs(t, err, commission.ErrConfiguration)
}

// failingActivity wraps an ActivitySource and fails for selected reps.
type failingActivity struct {
	inner   commission.ActivitySource
	failFor map[commission.RepresentativeID]bool
}

func (f *failingActivity) GetActivitySummary(ctx context.Context, rep commission.RepresentativeID, period commission.Period) (commission.ActivitySummary, error) {
	if f.failFor[rep] {
		return commission.ActivitySummary{}, fmt.Errorf("activity source unavailable for %s", rep)
	}
	return f.inner.GetActivitySummary(ctx, rep, period)
}

func TestGenerateForPeriod_PerRepresentativeFailureDoesNotAbort(t *testing.T) {
	// GIVEN: The activity lookup fails for rep-b only
	// WHEN: Generating for March
	// THEN: rep-a and rep-c succeed, rep-b lands in Failed, no error thrown

	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a"), rep("rep-b"), rep("rep-c")})
	mem.SetActivity("rep-a", march(), commission.ActivitySummary{ContractsSigned: 3})
	mem.SetActivity("rep-c", march(), commission.ActivitySummary{ContractsSigned: 7})

	gen.Activity = &failingActivity{
		inner:   mem,
		failFor: map[commission.RepresentativeID]bool{"rep-b": true},
	}

	report, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	require.NoError(t, err, "partial failures never abort the batch")
	assert.Len(t, report.Created, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, commission.RepresentativeID("rep-b"), report.Failed[0].RepresentativeID)
	assert.Contains(t, report.Failed[0].Cause, "activity source unavailable")

	// A re-run after fixing the source fills in only the missing record.
	gen.Activity = mem
	mem.SetActivity("rep-b", march(), commission.ActivitySummary{ContractsSigned: 1})
	retry, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	require.NoError(t, err)
	require.Len(t, retry.Created, 1)
	assert.Equal(t, commission.RepresentativeID("rep-b"), retry.Created[0].RepresentativeID)
	assert.Len(t, retry.Skipped, 2)
}

func TestGenerateForPeriod_ConcurrentRunsInsertExactlyOnce(t *testing.T) {
	// Two sweeps race for the same period. The storage uniqueness gate
	// must leave exactly one record per representative, with losers
	// reporting alreadyExists skips rather than failures.

	mem, gen := newFixture(t)
	var reps []commission.Representative
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("rep-%02d", i)
		reps = append(reps, rep(id))
		mem.SetActivity(commission.RepresentativeID(id), march(),
			commission.ActivitySummary{ContractsSigned: 5})
	}
	mem.SetRepresentatives(reps)

	const runs = 4
	reports := make([]*commission.GenerationReport, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := gen.GenerateForPeriod(context.Background(), march(), admin)
			if err != nil {
				t.Errorf("run %d: %v", i, err)
				return
			}
			reports[i] = r
		}(i)
	}
	wg.Wait()

	totalCreated := 0
	for _, r := range reports {
		require.NotNil(t, r)
		assert.Empty(t, r.Failed, "losing a race is a skip, not a failure")
		totalCreated += len(r.Created)
		assert.Equal(t, len(reps), len(r.Created)+len(r.Skipped))
	}
	assert.Equal(t, len(reps), totalCreated, "each representative inserted exactly once across all runs")

	all, err := mem.Query(context.Background(), commission.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(reps))

	seen := map[string]bool{}
	for _, c := range all {
		key := string(c.RepresentativeID) + c.Period.String()
		assert.False(t, seen[key], "duplicate tuple %s", key)
		seen[key] = true
	}
}

func TestNewCommissionID_DistinguishesFullTuple(t *testing.T) {
	// The ID must be stable for one tuple (concurrent sweeps race on the
	// same candidate) and distinct for any change to representative,
	// period start, or period end.
	p := march()
	id := commission.NewCommissionID("rep-a", p)
	assert.Equal(t, id, commission.NewCommissionID("rep-a", p))
	assert.NotEqual(t, id, commission.NewCommissionID("rep-b", p))

	shorter := commission.Period{Start: p.Start, End: p.Start.AddDate(0, 0, 14)}
	assert.NotEqual(t, id, commission.NewCommissionID("rep-a", shorter))

	later := commission.Period{Start: p.Start.AddDate(0, 0, 15), End: p.End}
	assert.NotEqual(t, id, commission.NewCommissionID("rep-a", later))
}

func TestGenerateForPeriod_DistinctPeriodsWithinOneMonth(t *testing.T) {
	// GIVEN: Activity recorded for the first and second half of March
	// WHEN: Generating each half-month period separately
	// THEN: Both records survive with distinct IDs; the uniqueness key is
	//       the full tuple, not the calendar month

	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a")})

	firstHalf := commission.Period{
		Start: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
	secondHalf := commission.Period{
		Start: time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	mem.SetActivity("rep-a", firstHalf, commission.ActivitySummary{ContractsSigned: 3})
	mem.SetActivity("rep-a", secondHalf, commission.ActivitySummary{ContractsSigned: 7})

	ctx := context.Background()
	first, err := gen.GenerateForPeriod(ctx, firstHalf, admin)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := gen.GenerateForPeriod(ctx, secondHalf, admin)
	require.NoError(t, err)
	require.Len(t, second.Created, 1)
	assert.Empty(t, second.Skipped)
	assert.Empty(t, second.Failed)

	assert.NotEqual(t, first.Created[0].ID, second.Created[0].ID,
		"periods sharing a month must not share an ID")

	all, err := mem.Query(ctx, commission.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2, "both half-month records must survive")
	assert.True(t, all[0].Period.Equal(firstHalf))
	assert.True(t, all[1].Period.Equal(secondHalf))
}

func TestGenerateForPeriod_ManualInsertWinsRace(t *testing.T) {
	// A record inserted outside the generator (e.g. by a concurrent run)
	// between the existence check and the insert surfaces as
	// DuplicatePeriodError and is reported as alreadyExists.

	mem, gen := newFixture(t)
	mem.SetRepresentatives([]commission.Representative{rep("rep-a")})
	mem.SetActivity("rep-a", march(), commission.ActivitySummary{ContractsSigned: 5})

	_, err := mem.Insert(context.Background(), commission.Commission{
		ID:               "com-manual",
		RepresentativeID: "rep-a",
		Amount:           commission.NewMoney(500),
		Tier:             1,
		Period:           march(),
		Status:           commission.StatusPending,
		CreatedAt:        time.Now().UTC(),
	})
	require.NoError(t, err)

	report, err := gen.GenerateForPeriod(context.Background(), march(), admin)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, commission.SkipAlreadyExists, report.Skipped[0].Reason)

	// And a direct duplicate insert is its own error.
	_, err = mem.Insert(context.Background(), commission.Commission{
		ID:               "com-dup",
		RepresentativeID: "rep-a",
		Period:           march(),
		Status:           commission.StatusPending,
	})
	var dupErr *commission.DuplicatePeriodError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, commission.CommissionID("com-manual"), dupErr.ExistingID)
}
