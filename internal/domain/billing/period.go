// Package billing defines rent invoices, the calendar-month billing period and
// the pure classifier that derives an invoice's payment state.
package billing

import (
	"fmt"
	"time"

	"github.com/turtacn/MallLedger/pkg/errors"
)

// Period is a calendar month, the unit of the billing cycle.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t, read in t's own location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, errors.New(errors.ErrCodeInvalidPeriod, "period must be formatted YYYY-MM").WithDetail(s)
	}
	return PeriodOf(t), nil
}

// Start is 00:00 UTC on the first day of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the exclusive upper bound: the first day of the next month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// IssueDate is the date stamped on invoices generated for the period.
func (p Period) IssueDate() time.Time {
	return p.Start()
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t) == p
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// DateOf truncates t to its calendar date, expressed as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.  Negative when b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

//Personal.AI order the ending
