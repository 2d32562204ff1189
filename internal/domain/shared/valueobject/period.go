package valueobject

import (
	"fmt"
	"time"
)

// Period is a value object representing one calendar month, the granularity
// at which accounts are sealed.
type Period struct {
	year  int
	month time.Month
}

// NewPeriod creates a Period for the given year and month
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 1 {
		return Period{}, fmt.Errorf("year must be positive, got %d", year)
	}
	return Period{year: year, month: time.Month(month)}, nil
}

// PeriodOf returns the Period containing the given date
func PeriodOf(t time.Time) Period {
	return Period{year: t.Year(), month: t.Month()}
}

// Year returns the period's year
func (p Period) Year() int {
	return p.year
}

// Month returns the period's month (1-12)
func (p Period) Month() int {
	return int(p.month)
}

// Start returns the first day of the period
func (p Period) Start() time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Days returns the number of days in the period
func (p Period) Days() int {
	return p.End().Day()
}

// Previous returns the preceding calendar month
func (p Period) Previous() Period {
	if p.month == time.January {
		return Period{year: p.year - 1, month: time.December}
	}
	return Period{year: p.year, month: p.month - 1}
}

// Next returns the following calendar month
func (p Period) Next() Period {
	if p.month == time.December {
		return Period{year: p.year + 1, month: time.January}
	}
	return Period{year: p.year, month: p.month + 1}
}

// Contains reports whether the given date falls inside the period
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.year && t.Month() == p.month
}

// Before reports whether this period precedes the other
func (p Period) Before(other Period) bool {
	if p.year != other.year {
		return p.year < other.year
	}
	return p.month < other.month
}

// After reports whether this period follows the other
func (p Period) After(other Period) bool {
	return other.Before(p)
}

// Equals reports whether both periods are the same calendar month
func (p Period) Equals(other Period) bool {
	return p.year == other.year && p.month == other.month
}

// String returns the period formatted as YYYY-MM
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}
