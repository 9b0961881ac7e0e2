package commission_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/commission/store"
)

func facadeFixture(t *testing.T) (*store.Memory, *commission.Facade) {
	t.Helper()
	mem := store.NewMemory()
	seedCommission(t, mem, "com-a-mar", "rep-a", commission.StatusPending)
	seedCommission(t, mem, "com-b-mar", "rep-b", commission.StatusPaid)

	april := commission.MonthOf(2025, time.April)
	_, err := mem.Insert(context.Background(), commission.Commission{
		ID:               "com-a-apr",
		RepresentativeID: "rep-a",
		Amount:           commission.NewMoney(750),
		Tier:             1,
		Period:           april,
		Status:           commission.StatusPaymentRequested,
		CreatedAt:        time.Now().UTC(),
	})
	require.NoError(t, err)

	return mem, &commission.Facade{Store: mem}
}

func TestFacade_AdminSeesEverything(t *testing.T) {
	_, f := facadeFixture(t)

	all, err := f.Query(context.Background(), admin, commission.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Admin filters are honored as given.
	onlyB, err := f.Query(context.Background(), admin, commission.QueryFilter{RepresentativeID: "rep-b"})
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, commission.CommissionID("com-b-mar"), onlyB[0].ID)
}

func TestFacade_RepresentativePinnedToOwnRecords(t *testing.T) {
	// GIVEN: rep-a asks for rep-b's commissions
	// WHEN: Querying through the facade
	// THEN: The filter is overridden; rep-a gets only their own records

	_, f := facadeFixture(t)
	repA := commission.Actor{ID: "rep-a", Role: commission.RoleRepresentative}

	got, err := f.Query(context.Background(), repA, commission.QueryFilter{RepresentativeID: "rep-b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, commission.RepresentativeID("rep-a"), c.RepresentativeID)
	}
}

func TestFacade_StatusAndPeriodFilters(t *testing.T) {
	_, f := facadeFixture(t)
	repA := commission.Actor{ID: "rep-a", Role: commission.RoleRepresentative}

	pending, err := f.Query(context.Background(), repA, commission.QueryFilter{Status: commission.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, commission.CommissionID("com-a-mar"), pending[0].ID)

	april := commission.MonthOf(2025, time.April)
	inApril, err := f.Query(context.Background(), repA, commission.QueryFilter{
		PeriodFrom: april.Start,
		PeriodTo:   april.End,
	})
	require.NoError(t, err)
	require.Len(t, inApril, 1)
	assert.Equal(t, commission.CommissionID("com-a-apr"), inApril[0].ID)
}

func TestFacade_GetHidesForeignRecords(t *testing.T) {
	// Another representative's record reads as not found, never as
	// forbidden, so existence is not leaked.

	_, f := facadeFixture(t)
	repA := commission.Actor{ID: "rep-a", Role: commission.RoleRepresentative}
	ctx := context.Background()

	own, err := f.Get(ctx, repA, "com-a-mar")
	require.NoError(t, err)
	assert.Equal(t, commission.RepresentativeID("rep-a"), own.RepresentativeID)

	_, err = f.Get(ctx, repA, "com-b-mar")
	assert.ErrorIs(t, err, commission.ErrCommissionNotFound)

	_, err = f.Get(ctx, repA, "com-nonexistent")
	assert.ErrorIs(t, err, commission.ErrCommissionNotFound)

	asAdmin, err := f.Get(ctx, admin, "com-b-mar")
	require.NoError(t, err)
	assert.Equal(t, commission.CommissionID("com-b-mar"), asAdmin.ID)
}
