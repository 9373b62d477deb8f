package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the derived payment state of an invoice.
type Status string

const (
	StatusPaid           Status = "Paid"
	StatusPendingCurrent Status = "PendingCurrent"
	StatusOverdue        Status = "Overdue"
)

// Classify derives the payment state from the ledger fields and now.  It is
// pure: the same billed, offset, due date and now always give the same result.
//
//	Paid            remaining <= 0
//	Overdue         remaining > 0 and the calendar date of now is after the due date
//	PendingCurrent  otherwise
func Classify(inv *Invoice, now time.Time) Status {
	return ClassifyAmounts(inv.Amount, inv.PaidAmount, inv.DueDate, now)
}

// ClassifyAmounts is Classify over the raw inputs.
func ClassifyAmounts(billed, offset decimal.Decimal, dueDate, now time.Time) Status {
	if billed.Sub(offset).LessThanOrEqual(decimal.Zero) {
		return StatusPaid
	}
	if DateOf(now).After(DateOf(dueDate)) {
		return StatusOverdue
	}
	return StatusPendingCurrent
}

// DaysOverdue is the number of whole days now is past the due date, or zero
// when the invoice is not overdue.
func DaysOverdue(inv *Invoice, now time.Time) int {
	if Classify(inv, now) != StatusOverdue {
		return 0
	}
	return DaysBetween(inv.DueDate, now)
}

// View is an invoice together with its derived state, as returned by queries.
type View struct {
	*Invoice
	Status      Status          `json:"status"`
	Remaining   decimal.Decimal `json:"remaining"`
	DaysOverdue int             `json:"days_overdue"`
}

// NewView classifies inv at now.
func NewView(inv *Invoice, now time.Time) View {
	return View{
		Invoice:     inv,
		Status:      Classify(inv, now),
		Remaining:   inv.Remaining(),
		DaysOverdue: DaysOverdue(inv, now),
	}
}

//Personal.AI order the ending
