/*
Package commission provides the commission calculation and settlement engine.

PURPOSE:
  This package turns raw sales activity (signed-contract counts and revenue
  per representative and period) into commission records, carries them
  through a payment-request/approval lifecycle, and guarantees that the
  same representative/period combination is never billed twice.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A non-negative decimal amount in the system currency
  - Commission: One settlement record with a closed status enumeration
  - Representative/ActivitySummary: Read-only facts from collaborators
  - Role: Who may perform which operation

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Closed enumerations: Status and Tier are typed, no string mapping tables
  3. Idempotency: At most one Commission per (representative, period)
  4. Centralized authorization: Role checks live in the engine, not callers

USAGE:
  gen := &commission.BatchGenerator{Store: store, Directory: dir, ...}
  report, err := gen.GenerateForPeriod(ctx, commission.MonthOf(2025, time.March), commission.RoleAdmin)

SEE ALSO:
  - tier.go: Tier rules and resolution
  - amount.go: Amount computation
  - generator.go: Monthly batch generation
  - settlement.go: Payment lifecycle state machine
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount in the system currency
// =============================================================================

// Money is a currency-agnostic decimal amount. The engine operates in a
// single currency with two minor-unit digits.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money    { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int) Money { return Money{Value: decimal.NewFromInt(int64(value))} }
func ZeroMoney() Money                { return Money{Value: decimal.Zero} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money  { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) IsZero() bool       { return m.Value.IsZero() }
func (m Money) IsNegative() bool   { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool { return m.Value.Equal(o.Value) }
func (m Money) String() string     { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS AND ROLES
// =============================================================================

type CommissionID string
type RepresentativeID string

// Role marks what an actor is allowed to do. Only two roles matter to the
// engine: administrators (full control) and representatives (own records).
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleRepresentative Role = "representative"
)

// IsAdmin reports whether the role is administrator-equivalent.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Actor is the identity performing an operation, as established by the
// calling layer. The engine trusts the identity and enforces authorization.
type Actor struct {
	ID   RepresentativeID
	Role Role
}

// =============================================================================
// STATUS - Closed settlement lifecycle enumeration
// =============================================================================

type Status string

const (
	StatusPending          Status = "pending"
	StatusPaymentRequested Status = "paymentRequested"
	StatusPaid             Status = "paid"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusRejected || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaymentRequested, StatusPaid, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// COMMISSION - One settlement record
// =============================================================================

// Commission is a single settlement record. Created only by the batch
// generator, mutated only through settlement transitions, never deleted
// (cancellation is a terminal status, not removal).
type Commission struct {
	ID               CommissionID
	RepresentativeID RepresentativeID
	Amount           Money
	Tier             int
	Period           Period
	Status           Status
	PaidDate         *time.Time
	CreatedAt        time.Time
}

// =============================================================================
// EXTERNAL COLLABORATOR FACTS (read-only inputs)
// =============================================================================

// Representative is supplied by the identity subsystem. The engine never
// mutates it; it only needs the ID and whether the person earns commissions.
type Representative struct {
	ID   RepresentativeID
	Name string
	Role Role
}

// ActivitySummary is supplied by the sales/quote subsystem for one
// representative and period. A missing summary is equivalent to zero
// contracts signed.
type ActivitySummary struct {
	ContractsSigned int
	TotalRevenue    Money
}
