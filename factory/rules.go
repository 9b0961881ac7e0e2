/*
Package factory provides JSON to tier rule-set conversion.

PURPOSE:
  Converts JSON tier-rule definitions into commission.RuleSet values.
  This enables rule configuration without code changes - an administrator
  can define the commission brackets in JSON, and the factory validates
  and creates the proper Go structs.

WHY JSON?
  - Non-developers can modify rule sets
  - Easy integration with an admin UI
  - Version control for rule definitions
  - Database storage of rule configs

JSON SCHEMA:
  {
    "rules": [
      {"tier": 1, "min_contracts": 0,  "max_contracts": 10, "fixed_amount": 500},
      {"tier": 2, "min_contracts": 11, "percentage": 15}
    ]
  }

  A rule with no "max_contracts" is unbounded and must be the top tier.
  Exactly one of "fixed_amount" / "percentage" per rule.

VALIDATION:
  ParseRuleSet applies commission.RuleSet.Validate, so contiguity,
  non-overlap, and the unbounded top tier are checked at configuration
  time - a malformed set never reaches evaluation.

USAGE:
  rules, err := factory.ParseRuleSet(jsonString)
  if err != nil {
      // rejected at configuration time
  }

SEE ALSO:
  - commission/tier.go: RuleSet invariants and resolution
  - store/sqlite/sqlite.go: ReplaceTierRules persistence
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleSetJSON is the JSON representation of a tier rule set.
type RuleSetJSON struct {
	Rules []TierRuleJSON `json:"rules"`
}

// TierRuleJSON represents a single threshold band.
type TierRuleJSON struct {
	Tier         int      `json:"tier"`
	MinContracts int      `json:"min_contracts"`
	MaxContracts *int     `json:"max_contracts,omitempty"`
	FixedAmount  *float64 `json:"fixed_amount,omitempty"`
	Percentage   *float64 `json:"percentage,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRuleSet converts a JSON document into a validated RuleSet.
func ParseRuleSet(jsonStr string) (commission.RuleSet, error) {
	var doc RuleSetJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("invalid rule set JSON: %w", err)
	}
	return FromJSON(doc)
}

// FromJSON converts an already-decoded document into a validated RuleSet.
func FromJSON(doc RuleSetJSON) (commission.RuleSet, error) {
	rules := make(commission.RuleSet, 0, len(doc.Rules))
	for _, rj := range doc.Rules {
		r := commission.TierRule{
			Tier:         rj.Tier,
			MinContracts: rj.MinContracts,
		}
		if rj.MaxContracts != nil {
			v := *rj.MaxContracts
			r.MaxContracts = &v
		}
		if rj.FixedAmount != nil {
			m := commission.Money{Value: decimal.NewFromFloat(*rj.FixedAmount)}
			r.FixedAmount = &m
		}
		if rj.Percentage != nil {
			m := commission.Money{Value: decimal.NewFromFloat(*rj.Percentage)}
			r.Percentage = &m
		}
		rules = append(rules, r)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ToJSON converts a RuleSet back to its JSON document form.
func ToJSON(rules commission.RuleSet) RuleSetJSON {
	doc := RuleSetJSON{Rules: make([]TierRuleJSON, 0, len(rules))}
	for _, r := range rules {
		rj := TierRuleJSON{
			Tier:         r.Tier,
			MinContracts: r.MinContracts,
		}
		if r.MaxContracts != nil {
			v := *r.MaxContracts
			rj.MaxContracts = &v
		}
		if r.FixedAmount != nil {
			v, _ := r.FixedAmount.Value.Float64()
			rj.FixedAmount = &v
		}
		if r.Percentage != nil {
			v, _ := r.Percentage.Value.Float64()
			rj.Percentage = &v
		}
		doc.Rules = append(doc.Rules, rj)
	}
	return doc
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultRuleSetJSON is a starter four-tier configuration: fixed payouts
// for the lower brackets, revenue percentage at the top.
func DefaultRuleSetJSON() string {
	doc := RuleSetJSON{Rules: []TierRuleJSON{
		{Tier: 1, MinContracts: 0, MaxContracts: intPtr(5), FixedAmount: floatPtr(250)},
		{Tier: 2, MinContracts: 6, MaxContracts: intPtr(10), FixedAmount: floatPtr(500)},
		{Tier: 3, MinContracts: 11, MaxContracts: intPtr(20), FixedAmount: floatPtr(1000)},
		{Tier: 4, MinContracts: 21, Percentage: floatPtr(15)},
	}}
	b, _ := json.Marshal(doc)
	return string(b)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
