/*
tier.go - Tier rules and resolution

PURPOSE:
  A tier rule set is an ordered list of contiguous, non-overlapping
  threshold bands over signed-contract counts. Each band pays either a
  fixed amount or a percentage of period revenue. Resolution finds the
  single band containing a contract count.

RULE SET INVARIANTS (enforced by RuleSet.Validate):
  - Rules ordered ascending by MinContracts, first rule starts at 0
  - Bands are contiguous: next MinContracts = previous MaxContracts + 1
  - Exactly the highest tier is unbounded (MaxContracts == nil)
  - Each rule sets exactly one of FixedAmount / Percentage
  - Percentage is in [0, 100]

RESOLUTION:
  A gapped or empty rule set yields a ConfigurationError naming the gap.
  There is deliberately NO fallback to the lowest tier: a count that no
  rule covers is an administrator problem, not an implicit tier-1 sale.

SEE ALSO:
  - amount.go: Computes the payout from a resolved rule
  - factory/rules.go: JSON configuration and config-time validation
*/
package commission

import "fmt"

// =============================================================================
// TIER RULE - One threshold band
// =============================================================================

// TierRule is a single commission bracket. Exactly one of FixedAmount or
// Percentage must be set; MaxContracts is nil for the unbounded top tier.
type TierRule struct {
	Tier         int
	MinContracts int
	MaxContracts *int

	FixedAmount *Money
	Percentage  *Money
}

// IsPercentage reports whether the rule pays a share of revenue.
func (r TierRule) IsPercentage() bool { return r.Percentage != nil }

// Covers reports whether the contract count falls inside this band.
func (r TierRule) Covers(contracts int) bool {
	if contracts < r.MinContracts {
		return false
	}
	return r.MaxContracts == nil || contracts <= *r.MaxContracts
}

// validate checks the single-rule invariants.
func (r TierRule) validate() error {
	if r.MinContracts < 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("tier %d: negative minContracts %d", r.Tier, r.MinContracts)}
	}
	if r.MaxContracts != nil && *r.MaxContracts < r.MinContracts {
		return &ConfigurationError{Detail: fmt.Sprintf("tier %d: maxContracts %d below minContracts %d", r.Tier, *r.MaxContracts, r.MinContracts)}
	}
	if (r.FixedAmount == nil) == (r.Percentage == nil) {
		return &ConfigurationError{Detail: fmt.Sprintf("tier %d: exactly one of fixedAmount or percentage must be set", r.Tier)}
	}
	if r.FixedAmount != nil && r.FixedAmount.IsNegative() {
		return &ConfigurationError{Detail: fmt.Sprintf("tier %d: negative fixed amount", r.Tier)}
	}
	if r.Percentage != nil {
		if r.Percentage.IsNegative() || r.Percentage.Value.GreaterThan(hundred) {
			return &ConfigurationError{Detail: fmt.Sprintf("tier %d: percentage must be within [0, 100]", r.Tier)}
		}
	}
	return nil
}

// =============================================================================
// RULE SET - Ordered list of bands
// =============================================================================

// RuleSet is an administrator-maintained, read-only-at-evaluation list of
// tier rules ordered ascending by MinContracts.
type RuleSet []TierRule

// Validate checks contiguity, non-overlap, and the unbounded top tier.
// Called at configuration time; evaluation assumes a validated set but
// still refuses to resolve through a gap.
func (rs RuleSet) Validate() error {
	if len(rs) == 0 {
		return &ConfigurationError{Detail: "rule set is empty"}
	}
	if rs[0].MinContracts != 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("first tier must start at 0 contracts, starts at %d", rs[0].MinContracts)}
	}
	for i, r := range rs {
		if err := r.validate(); err != nil {
			return err
		}
		last := i == len(rs)-1
		if last {
			if r.MaxContracts != nil {
				return &ConfigurationError{Detail: fmt.Sprintf("top tier %d must be unbounded", r.Tier)}
			}
			continue
		}
		if r.MaxContracts == nil {
			return &ConfigurationError{Detail: fmt.Sprintf("tier %d is unbounded but is not the top tier", r.Tier)}
		}
		next := rs[i+1]
		if next.MinContracts != *r.MaxContracts+1 {
			return &ConfigurationError{Detail: fmt.Sprintf(
				"tiers %d and %d are not contiguous: %d..%d then %d",
				r.Tier, next.Tier, r.MinContracts, *r.MaxContracts, next.MinContracts)}
		}
	}
	return nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveTier scans rules ascending by MinContracts and returns the first
// rule covering the contract count. A count no rule covers is a
// ConfigurationError naming the gap; there is no silent fallback.
func ResolveTier(contracts int, rules RuleSet) (TierRule, error) {
	if contracts < 0 {
		return TierRule{}, &ConfigurationError{Detail: fmt.Sprintf("negative contract count %d", contracts)}
	}
	if len(rules) == 0 {
		return TierRule{}, &ConfigurationError{Detail: "rule set is empty"}
	}
	for _, r := range rules {
		if r.Covers(contracts) {
			return r, nil
		}
	}
	return TierRule{}, &ConfigurationError{
		Detail: fmt.Sprintf("no tier rule covers %d contracts (gap in rule set)", contracts),
	}
}
