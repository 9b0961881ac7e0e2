package commission

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The settlement interval for a commission
// =============================================================================

// Period is a contiguous calendar interval [Start, End], typically one
// calendar month. Commissions are always scoped to a period; the
// (representative, period) pair is the idempotency key.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar-month period containing the given month.
func MonthOf(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0).AddDate(0, 0, -1),
	}
}

// NewPeriod builds a period and validates its ordering.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: start.UTC(), End: end.UTC()}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate checks that the period is well-formed.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrInvalidPeriod
	}
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if t falls within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Equal compares two periods by their day boundaries.
func (p Period) Equal(o Period) bool {
	return sameDay(p.Start, o.Start) && sameDay(p.End, o.End)
}

// Next returns the following calendar month when p is a calendar month,
// otherwise the interval of the same length starting after End.
func (p Period) Next() Period {
	if sameDay(p.Start, time.Date(p.Start.Year(), p.Start.Month(), 1, 0, 0, 0, 0, time.UTC)) &&
		sameDay(p.End, p.Start.AddDate(0, 1, 0).AddDate(0, 0, -1)) {
		return MonthOf(p.Start.AddDate(0, 1, 0).Year(), p.Start.AddDate(0, 1, 0).Month())
	}
	length := p.End.Sub(p.Start)
	start := p.End.AddDate(0, 0, 1)
	return Period{Start: start, End: start.Add(length)}
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s]", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
