package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a rent invoice for one store and one period.  Only the ledger
// fields are stored; payment state is always derived by Classify.
type Invoice struct {
	ID        int64     `json:"id"`
	StoreID   int64     `json:"store_id"`
	RenterID  int64     `json:"renter_id"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`

	// Amount is the billed amount.
	Amount decimal.Decimal `json:"amount"`

	// PaidAmount is the cumulative offset: standing debits applied at issue
	// time plus payments recorded afterwards.
	PaidAmount decimal.Decimal `json:"paid_amount"`

	Notes     string    `json:"notes,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Period returns the billing period of the invoice.
func (i *Invoice) Period() Period {
	return PeriodOf(i.IssueDate)
}

// Remaining is billed minus offset.  It may be negative when the offset
// exceeds the bill.
func (i *Invoice) Remaining() decimal.Decimal {
	return i.Amount.Sub(i.PaidAmount)
}

// InvoiceRepository is the invoice store.  The (store, year, month) identity
// is unique; Create reports a violation as BILL_005.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	FindByStorePeriod(ctx context.Context, storeID int64, p Period) (*Invoice, error)
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	ListByStore(ctx context.Context, storeID int64) ([]*Invoice, error)
	ListByRenter(ctx context.Context, renterID int64) ([]*Invoice, error)

	// ListUnpaid returns invoices whose offset is below the billed amount,
	// ordered by due date.
	ListUnpaid(ctx context.Context) ([]*Invoice, error)

	// UpdatePaidAmount persists PaidAmount when the stored version still
	// equals inv.Version and bumps the version.  A mismatch yields
	// retry.ErrStaleVersion.
	UpdatePaidAmount(ctx context.Context, inv *Invoice) error
}

//Personal.AI order the ending
