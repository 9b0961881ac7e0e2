package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/commission-engine/commission"
)

func marchCommission(id, repID string) commission.Commission {
	return commission.Commission{
		ID:               commission.CommissionID(id),
		RepresentativeID: commission.RepresentativeID(repID),
		Amount:           commission.NewMoney(500),
		Tier:             1,
		Period:           commission.MonthOf(2025, time.March),
		Status:           commission.StatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestMemoryInsert_RejectsDuplicateTuple(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Insert(ctx, marchCommission("com-1", "rep-a")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err := mem.Insert(ctx, marchCommission("com-2", "rep-a"))
	var dupErr *commission.DuplicatePeriodError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicatePeriodError, got %v", err)
	}
	if dupErr.ExistingID != "com-1" {
		t.Errorf("existing ID = %s, want com-1", dupErr.ExistingID)
	}
}

func TestMemoryInsert_RejectsIDCollisionAcrossTuples(t *testing.T) {
	// GIVEN: A stored commission with ID com-1 for rep-a
	// WHEN: Inserting a different tuple reusing the same ID
	// THEN: The insert fails as a plain error, never DuplicatePeriodError,
	//       and the original record is untouched

	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Insert(ctx, marchCommission("com-1", "rep-a")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err := mem.Insert(ctx, marchCommission("com-1", "rep-b"))
	if err == nil {
		t.Fatal("expected ID collision to fail")
	}
	if errors.Is(err, commission.ErrDuplicatePeriod) {
		t.Errorf("ID collision must not classify as a duplicate period: %v", err)
	}

	got, err := mem.Get(ctx, "com-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.RepresentativeID != "rep-a" {
		t.Errorf("original record overwritten: now belongs to %s", got.RepresentativeID)
	}

	// The losing tuple was never stored.
	found, err := mem.FindExisting(ctx, "rep-b", commission.MonthOf(2025, time.March))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found != nil {
		t.Errorf("rep-b tuple must not exist, got %v", found)
	}
}
