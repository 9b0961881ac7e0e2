package commission

import (
	"errors"
	"testing"
)

func TestComputeAmount_FixedIsIndependentOfRevenue(t *testing.T) {
	rule := fixed(1, 0, intp(10), 500)

	revenues := []*Money{nil, moneyPtr(0), moneyPtr(10000), moneyPtr(99.99)}
	for _, rev := range revenues {
		amount, err := ComputeAmount(rule, rev)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !amount.Equal(NewMoney(500)) {
			t.Errorf("revenue %v: got %s, want 500.00", rev, amount)
		}
	}
}

func TestComputeAmount_Percentage(t *testing.T) {
	rule := percentage(2, 11, nil, 15)

	amount, err := ComputeAmount(rule, moneyPtr(10000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(NewMoney(1500)) {
		t.Errorf("got %s, want 1500.00", amount)
	}
}

func TestComputeAmount_RoundsHalfUpToMinorUnit(t *testing.T) {
	cases := []struct {
		pct     float64
		revenue float64
		want    string
	}{
		{15, 100.03, "15.00"},  // 15.0045 rounds down
		{15, 100.10, "15.02"},  // 15.015 rounds half up
		{12.5, 100.00, "12.50"},
		{33, 0.05, "0.02"},     // 0.0165 -> 0.02
	}

	for _, tc := range cases {
		rule := percentage(1, 0, nil, tc.pct)
		amount, err := ComputeAmount(rule, moneyPtr(tc.revenue))
		if err != nil {
			t.Fatalf("pct=%v revenue=%v: unexpected error: %v", tc.pct, tc.revenue, err)
		}
		if amount.String() != tc.want {
			t.Errorf("pct=%v revenue=%v: got %s, want %s", tc.pct, tc.revenue, amount, tc.want)
		}
	}
}

func TestComputeAmount_PercentageWithoutRevenue(t *testing.T) {
	rule := percentage(2, 11, nil, 15)

	_, err := ComputeAmount(rule, nil)
	if !errors.Is(err, ErrMissingRevenue) {
		t.Fatalf("expected ErrMissingRevenue, got %v", err)
	}

	var mrErr *MissingRevenueError
	if !errors.As(err, &mrErr) {
		t.Fatalf("expected *MissingRevenueError, got %T", err)
	}
	if mrErr.Tier != 2 {
		t.Errorf("error should name tier 2, got %d", mrErr.Tier)
	}
}

func TestComputeAmount_NegativeInputsAreConfigurationErrors(t *testing.T) {
	if _, err := ComputeAmount(fixed(1, 0, nil, -10), nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("negative fixed amount: expected ErrConfiguration, got %v", err)
	}
	if _, err := ComputeAmount(percentage(1, 0, nil, 10), moneyPtr(-500)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("negative revenue: expected ErrConfiguration, got %v", err)
	}
}

func TestComputeAmount_NeverNegative(t *testing.T) {
	rules := fourTiers()
	for count := 0; count <= 50; count++ {
		rule, err := ResolveTier(count, rules)
		if err != nil {
			t.Fatal(err)
		}
		var rev *Money
		if rule.IsPercentage() {
			rev = moneyPtr(float64(count) * 123.45)
		}
		amount, err := ComputeAmount(rule, rev)
		if err != nil {
			t.Fatalf("count %d: %v", count, err)
		}
		if amount.IsNegative() {
			t.Errorf("count %d: negative amount %s", count, amount)
		}
	}
}
