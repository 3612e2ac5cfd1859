package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Concrete time abstraction used as ledger keys
// =============================================================================

type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMinute
)

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

func DayOf(t time.Time) TimePoint {
	u := t.UTC()
	return NewTimePoint(u.Year(), u.Month(), u.Day())
}

func Today() TimePoint {
	return DayOf(time.Now())
}

// ParseDay parses a "2006-01-02" date.
func ParseDay(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return DayOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	switch tp.Granularity {
	case GranularityDay:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return tp.Time
	}
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, 0, n), Granularity: tp.Granularity}
}

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	switch tp.Granularity {
	case GranularityDay:
		return tp.Time.Format("2006-01-02")
	default:
		return tp.Time.Format(time.RFC3339)
	}
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return TimePoint{Time: t, Granularity: GranularityDay}
}

// MonthsBetween returns the elapsed calendar months from -> to, with the
// partial month expressed as a fraction of that month's length.
// 2024-01-15 -> 2025-01-15 is exactly 12.
func MonthsBetween(from, to TimePoint) float64 {
	f, t := from.normalize(), to.normalize()
	if t.Before(f) {
		return -MonthsBetween(to, from)
	}

	months := (t.Year()-f.Year())*12 + int(t.Month()) - int(f.Month())
	anchor := f.AddDate(0, months, 0)
	for anchor.After(t) {
		months--
		anchor = f.AddDate(0, months, 0)
	}

	next := f.AddDate(0, months+1, 0)
	span := next.Sub(anchor).Hours()
	if span <= 0 {
		return float64(months)
	}
	return float64(months) + t.Sub(anchor).Hours()/span
}
