/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements commission.Store and the collaborator interfaces
  (Directory, ActivitySource, RuleSource) using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  commission.Store:          Commission persistence
  commission.Directory:      Representative records
  commission.ActivitySource: Activity summaries
  commission.RuleSource:     Tier rule configuration

UNIQUENESS ENFORCEMENT:
  The invariant over (representative_id, period_start, period_end) is a
  UNIQUE index, not application code. The INSERT itself is the
  concurrency gate: under concurrent batch runs exactly one record
  survives and the loser gets DuplicatePeriodError.

CONDITIONAL STATUS UPDATES:
  UpdateStatus is a single UPDATE keyed on the expected prior statuses.
  Zero rows affected means the persisted status changed underneath the
  caller (or the record is missing); the caller gets
  InvalidTransitionError or ErrCommissionNotFound. Commissions are never
  deleted; cancellation is a status.

KEY TABLES:
  commissions:        Settlement records (unique per representative/period)
  tier_rules:         Administrator-maintained threshold bands
  representatives:    Identity records (external collaborator data)
  activity_summaries: Per-representative, per-period sales facts

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - commission/store.go: Interface definitions
  - commission/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/commission-engine/commission"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection for the whole pool: SQLite allows a single writer
	// anyway, and with ":memory:" every pooled connection would otherwise
	// see its own independent empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Commission settlement records
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		representative_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		tier INTEGER NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_date TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: the idempotency guarantee. At most one commission per
	-- (representative, period); the INSERT is the concurrency gate.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_commissions_rep_period
		ON commissions(representative_id, period_start, period_end);

	CREATE INDEX IF NOT EXISTS idx_commissions_representative
		ON commissions(representative_id);
	CREATE INDEX IF NOT EXISTS idx_commissions_status
		ON commissions(status);
	CREATE INDEX IF NOT EXISTS idx_commissions_period
		ON commissions(period_start, period_end);

	-- Tier rules (configuration, maintained by administrators)
	CREATE TABLE IF NOT EXISTS tier_rules (
		tier INTEGER PRIMARY KEY,
		min_contracts INTEGER NOT NULL,
		max_contracts INTEGER,
		fixed_amount TEXT,
		percentage TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tier_rules_min
		ON tier_rules(min_contracts);

	-- Representatives (external collaborator data)
	CREATE TABLE IF NOT EXISTS representatives (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'representative',
		created_at TEXT NOT NULL
	);

	-- Activity summaries (external collaborator data)
	CREATE TABLE IF NOT EXISTS activity_summaries (
		representative_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		contracts_signed INTEGER NOT NULL DEFAULT 0,
		total_revenue TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (representative_id, period_start, period_end)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

const dateFormat = "2006-01-02"

// =============================================================================
// COMMISSION STORE (commission.Store interface)
// =============================================================================

// Insert persists a new commission. The unique index converts a racing
// duplicate into DuplicatePeriodError.
func (s *Store) Insert(ctx context.Context, c commission.Commission) (commission.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO commissions
		(id, representative_id, amount, tier, period_start, period_end, status, paid_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var paidDate *string
	if c.PaidDate != nil {
		t := c.PaidDate.UTC().Format(time.RFC3339)
		paidDate = &t
	}

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.RepresentativeID,
		c.Amount.Value.String(),
		c.Tier,
		c.Period.Start.Format(dateFormat),
		c.Period.End.Format(dateFormat),
		c.Status,
		paidDate,
		c.CreatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isDuplicateTupleError(err) {
			existingID := s.existingID(ctx, c.RepresentativeID, c.Period)
			return commission.Commission{}, &commission.DuplicatePeriodError{
				RepresentativeID: c.RepresentativeID,
				Period:           c.Period,
				ExistingID:       existingID,
			}
		}
		return commission.Commission{}, fmt.Errorf("failed to insert commission: %w", err)
	}

	return c, nil
}

func (s *Store) existingID(ctx context.Context, rep commission.RepresentativeID, period commission.Period) commission.CommissionID {
	var id commission.CommissionID
	s.db.QueryRowContext(ctx,
		"SELECT id FROM commissions WHERE representative_id = ? AND period_start = ? AND period_end = ?",
		rep, period.Start.Format(dateFormat), period.End.Format(dateFormat),
	).Scan(&id)
	return id
}

// FindExisting returns the commission for the tuple, or nil.
func (s *Store) FindExisting(ctx context.Context, rep commission.RepresentativeID, period commission.Period) (*commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectCommission + " WHERE representative_id = ? AND period_start = ? AND period_end = ?"

	commissions, err := s.queryCommissions(ctx, query,
		rep, period.Start.Format(dateFormat), period.End.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	if len(commissions) == 0 {
		return nil, nil
	}
	return &commissions[0], nil
}

// Get returns a commission by ID.
func (s *Store) Get(ctx context.Context, id commission.CommissionID) (commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getLocked(ctx, id)
}

// UpdateStatus applies the update only if the current persisted status is
// one of allowedFrom. The precondition and write are one UPDATE statement.
func (s *Store) UpdateStatus(ctx context.Context, id commission.CommissionID, allowedFrom []commission.Status, upd commission.StatusUpdate) (commission.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(allowedFrom) == 0 {
		return commission.Commission{}, &commission.InvalidTransitionError{CommissionID: id, To: upd.NewStatus}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(allowedFrom)), ",")
	query := fmt.Sprintf(
		"UPDATE commissions SET status = ?, paid_date = COALESCE(?, paid_date) WHERE id = ? AND status IN (%s)",
		placeholders,
	)

	var paidDate *string
	if upd.PaidDate != nil {
		t := upd.PaidDate.UTC().Format(time.RFC3339)
		paidDate = &t
	}

	args := []any{upd.NewStatus, paidDate, id}
	for _, st := range allowedFrom {
		args = append(args, st)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return commission.Commission{}, fmt.Errorf("failed to update commission status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return commission.Commission{}, err
	}
	if affected == 0 {
		// Distinguish a lost race from a missing record.
		current, getErr := s.getLocked(ctx, id)
		if getErr != nil {
			return commission.Commission{}, getErr
		}
		return commission.Commission{}, &commission.InvalidTransitionError{
			CommissionID: id,
			From:         current.Status,
			To:           upd.NewStatus,
		}
	}

	return s.getLocked(ctx, id)
}

func (s *Store) getLocked(ctx context.Context, id commission.CommissionID) (commission.Commission, error) {
	commissions, err := s.queryCommissions(ctx, selectCommission+" WHERE id = ?", id)
	if err != nil {
		return commission.Commission{}, err
	}
	if len(commissions) == 0 {
		return commission.Commission{}, commission.ErrCommissionNotFound
	}
	return commissions[0], nil
}

// Query returns commissions matching the filter.
func (s *Store) Query(ctx context.Context, filter commission.QueryFilter) ([]commission.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectCommission + " WHERE 1=1"
	var args []any

	if filter.RepresentativeID != "" {
		query += " AND representative_id = ?"
		args = append(args, filter.RepresentativeID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if !filter.PeriodFrom.IsZero() {
		query += " AND period_start >= ?"
		args = append(args, filter.PeriodFrom.Format(dateFormat))
	}
	if !filter.PeriodTo.IsZero() {
		query += " AND period_end <= ?"
		args = append(args, filter.PeriodTo.Format(dateFormat))
	}

	query += " ORDER BY period_start ASC, representative_id ASC"
	return s.queryCommissions(ctx, query, args...)
}

const selectCommission = `
	SELECT id, representative_id, amount, tier, period_start, period_end, status, paid_date, created_at
	FROM commissions
`

func (s *Store) queryCommissions(ctx context.Context, query string, args ...any) ([]commission.Commission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commissions: %w", err)
	}
	defer rows.Close()

	var commissions []commission.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, c)
	}

	return commissions, rows.Err()
}

func scanCommission(rows *sql.Rows) (commission.Commission, error) {
	var (
		c           commission.Commission
		amount      string
		periodStart string
		periodEnd   string
		paidDate    sql.NullString
		createdAt   string
	)

	err := rows.Scan(
		&c.ID, &c.RepresentativeID, &amount, &c.Tier,
		&periodStart, &periodEnd, &c.Status, &paidDate, &createdAt,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan commission: %w", err)
	}

	c.Amount = commission.MustParseMoney(amount)
	start, _ := time.Parse(dateFormat, periodStart)
	end, _ := time.Parse(dateFormat, periodEnd)
	c.Period = commission.Period{Start: start, End: end}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if paidDate.Valid {
		t, _ := time.Parse(time.RFC3339, paidDate.String)
		c.PaidDate = &t
	}

	return c, nil
}

// =============================================================================
// TIER RULE STORE (commission.RuleSource interface)
// =============================================================================

// ListTierRules returns the rule set ordered ascending by min_contracts.
func (s *Store) ListTierRules(ctx context.Context) (commission.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT tier, min_contracts, max_contracts, fixed_amount, percentage FROM tier_rules ORDER BY min_contracts ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules commission.RuleSet
	for rows.Next() {
		var (
			r            commission.TierRule
			maxContracts sql.NullInt64
			fixed        sql.NullString
			pct          sql.NullString
		)
		if err := rows.Scan(&r.Tier, &r.MinContracts, &maxContracts, &fixed, &pct); err != nil {
			return nil, err
		}
		if maxContracts.Valid {
			v := int(maxContracts.Int64)
			r.MaxContracts = &v
		}
		if fixed.Valid {
			m := commission.MustParseMoney(fixed.String)
			r.FixedAmount = &m
		}
		if pct.Valid {
			m := commission.MustParseMoney(pct.String)
			r.Percentage = &m
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ReplaceTierRules swaps in a new rule set atomically. The set is
// validated before any write; a malformed set never reaches the table.
func (s *Store) ReplaceTierRules(ctx context.Context, rules commission.RuleSet) error {
	if err := rules.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tier_rules"); err != nil {
		return err
	}

	for _, r := range rules {
		var maxContracts *int64
		if r.MaxContracts != nil {
			v := int64(*r.MaxContracts)
			maxContracts = &v
		}
		var fixed, pct *string
		if r.FixedAmount != nil {
			v := r.FixedAmount.Value.String()
			fixed = &v
		}
		if r.Percentage != nil {
			v := r.Percentage.Value.String()
			pct = &v
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO tier_rules (tier, min_contracts, max_contracts, fixed_amount, percentage) VALUES (?, ?, ?, ?, ?)",
			r.Tier, r.MinContracts, maxContracts, fixed, pct,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tier rule %d: %w", r.Tier, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// REPRESENTATIVE STORE (commission.Directory interface)
// =============================================================================

// ListRepresentatives returns all known representatives.
func (s *Store) ListRepresentatives(ctx context.Context) ([]commission.Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, role FROM representatives ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []commission.Representative
	for rows.Next() {
		var r commission.Representative
		if err := rows.Scan(&r.ID, &r.Name, &r.Role); err != nil {
			return nil, err
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

// SaveRepresentative inserts or updates a representative record.
func (s *Store) SaveRepresentative(ctx context.Context, r commission.Representative) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO representatives (id, name, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Role, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetRepresentative retrieves a representative by ID, or nil.
func (s *Store) GetRepresentative(ctx context.Context, id commission.RepresentativeID) (*commission.Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r commission.Representative
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role FROM representatives WHERE id = ?", id,
	).Scan(&r.ID, &r.Name, &r.Role)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// ACTIVITY STORE (commission.ActivitySource interface)
// =============================================================================

// GetActivitySummary returns activity for a representative and period.
// A missing row is a zero summary, not an error.
func (s *Store) GetActivitySummary(ctx context.Context, rep commission.RepresentativeID, period commission.Period) (commission.ActivitySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		summary commission.ActivitySummary
		revenue string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT contracts_signed, total_revenue FROM activity_summaries
		 WHERE representative_id = ? AND period_start = ? AND period_end = ?`,
		rep, period.Start.Format(dateFormat), period.End.Format(dateFormat),
	).Scan(&summary.ContractsSigned, &revenue)

	if err == sql.ErrNoRows {
		return commission.ActivitySummary{}, nil
	}
	if err != nil {
		return commission.ActivitySummary{}, err
	}

	summary.TotalRevenue = commission.MustParseMoney(revenue)
	return summary, nil
}

// SaveActivitySummary records activity facts for a representative/period.
func (s *Store) SaveActivitySummary(ctx context.Context, rep commission.RepresentativeID, period commission.Period, summary commission.ActivitySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO activity_summaries (representative_id, period_start, period_end, contracts_signed, total_revenue)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(representative_id, period_start, period_end) DO UPDATE SET
			contracts_signed = excluded.contracts_signed,
			total_revenue = excluded.total_revenue
	`

	_, err := s.db.ExecContext(ctx, query,
		rep,
		period.Start.Format(dateFormat),
		period.End.Format(dateFormat),
		summary.ContractsSigned,
		summary.TotalRevenue.Value.String(),
	)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"commissions", "tier_rules", "representatives", "activity_summaries"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// isDuplicateTupleError matches only a violation of the
// (representative_id, period_start, period_end) unique index. Other unique
// failures, notably an id PRIMARY KEY collision across distinct tuples,
// are caller bugs and must surface as plain errors, never as the
// recoverable DuplicatePeriodError the generator converts to a skip.
func isDuplicateTupleError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key") {
		return false
	}
	return strings.Contains(msg, "commissions.representative_id")
}
