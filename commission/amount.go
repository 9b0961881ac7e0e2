package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// minorUnitPlaces is the currency's minor-unit precision.
const minorUnitPlaces = 2

// ComputeAmount computes the payout for a resolved tier rule.
//
// Fixed-amount rules return the amount unchanged, independent of revenue.
// Percentage rules require a revenue figure and pay
// revenue * percentage / 100, rounded half-up to the minor unit.
//
// A nil revenue against a percentage rule is a MissingRevenueError. A
// negative result (bad percentage or revenue) is a ConfigurationError and
// is never persisted.
func ComputeAmount(rule TierRule, revenue *Money) (Money, error) {
	if rule.FixedAmount != nil {
		if rule.FixedAmount.IsNegative() {
			return Money{}, &ConfigurationError{Detail: fmt.Sprintf("tier %d: negative fixed amount", rule.Tier)}
		}
		return *rule.FixedAmount, nil
	}

	if rule.Percentage == nil {
		return Money{}, &ConfigurationError{Detail: fmt.Sprintf("tier %d: no fixed amount or percentage configured", rule.Tier)}
	}
	if revenue == nil {
		return Money{}, &MissingRevenueError{Tier: rule.Tier}
	}
	if revenue.IsNegative() {
		return Money{}, &ConfigurationError{Detail: fmt.Sprintf("tier %d: negative revenue %s", rule.Tier, revenue)}
	}

	// decimal.Round rounds half away from zero; for non-negative operands
	// that is exactly round-half-up.
	amount := Money{Value: revenue.Value.Mul(rule.Percentage.Value).Div(hundred).Round(minorUnitPlaces)}
	if amount.IsNegative() {
		return Money{}, &ConfigurationError{Detail: fmt.Sprintf("tier %d: computed negative amount %s", rule.Tier, amount)}
	}
	return amount, nil
}
