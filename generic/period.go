package generic

import "time"

// =============================================================================
// PERIOD - Billing window for commission accrual
// =============================================================================

// Period defines the time boundary a commission is computed for.
//
// Examples:
//   - Monthly commission for March 2025: Mar 1 - Mar 31
//   - Ad-hoc simulation: any [Start, End] the administrator picks
type Period struct {
	Start TimePoint
	End   TimePoint
}

// MonthPeriod returns the calendar month containing the given year/month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Key is a stable identifier used in idempotency keys, e.g. "2025-03-01_2025-03-31".
func (p Period) Key() string {
	return p.Start.String() + "_" + p.End.String()
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
