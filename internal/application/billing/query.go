package billing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/retry"
)

// QueryService is the invoice read side plus payment recording.  Every view
// is classified at read time.
type QueryService interface {
	Get(ctx context.Context, id int64) (*domain.View, error)
	ListByStore(ctx context.Context, storeID int64) ([]domain.View, error)

	// ListByRenter returns the renter's invoices, newest issue date first.
	ListByRenter(ctx context.Context, renterID int64) ([]domain.View, error)

	// ListOverdue returns unpaid invoices past their due date, most overdue
	// first.
	ListOverdue(ctx context.Context) ([]domain.View, error)

	// ListPending returns unpaid invoices that are not yet overdue, earliest
	// due date first.
	ListPending(ctx context.Context) ([]domain.View, error)

	// RecordPayment adds amount to the invoice offset.
	RecordPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (*domain.View, error)
}

type queryServiceImpl struct {
	invoices domain.InvoiceRepository
	logger   logging.Logger
	now      func() time.Time
}

// NewQueryService constructs a QueryService.
func NewQueryService(invoices domain.InvoiceRepository, logger logging.Logger, now func() time.Time) QueryService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &queryServiceImpl{invoices: invoices, logger: logger.Named("invoice-query"), now: now}
}

func (s *queryServiceImpl) Get(ctx context.Context, id int64) (*domain.View, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := domain.NewView(inv, s.now())
	return &v, nil
}

func (s *queryServiceImpl) ListByStore(ctx context.Context, storeID int64) ([]domain.View, error) {
	invs, err := s.invoices.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return s.views(invs, func(domain.View) bool { return true }), nil
}

func (s *queryServiceImpl) ListByRenter(ctx context.Context, renterID int64) ([]domain.View, error) {
	invs, err := s.invoices.ListByRenter(ctx, renterID)
	if err != nil {
		return nil, err
	}
	out := s.views(invs, func(domain.View) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssueDate.After(out[j].IssueDate) })
	return out, nil
}

func (s *queryServiceImpl) ListOverdue(ctx context.Context) ([]domain.View, error) {
	invs, err := s.invoices.ListUnpaid(ctx)
	if err != nil {
		return nil, err
	}
	out := s.views(invs, func(v domain.View) bool { return v.Status == domain.StatusOverdue })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysOverdue > out[j].DaysOverdue })
	return out, nil
}

func (s *queryServiceImpl) ListPending(ctx context.Context) ([]domain.View, error) {
	invs, err := s.invoices.ListUnpaid(ctx)
	if err != nil {
		return nil, err
	}
	out := s.views(invs, func(v domain.View) bool { return v.Status == domain.StatusPendingCurrent })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *queryServiceImpl) RecordPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (*domain.View, error) {
	if !amount.IsPositive() {
		return nil, errors.New(errors.ErrCodeInvalidAmount, "payment amount must be positive").WithDetail(amount.String())
	}

	saved, err := retry.WithOptimisticRetry(ctx,
		func(ctx context.Context) (*domain.Invoice, error) {
			return s.invoices.GetByID(ctx, invoiceID)
		},
		func(inv *domain.Invoice) (*domain.Invoice, error) {
			inv.PaidAmount = inv.PaidAmount.Add(amount)
			return inv, nil
		},
		s.invoices.UpdatePaidAmount,
	)
	if err != nil {
		return nil, err
	}

	v := domain.NewView(saved, s.now())
	s.logger.Info("payment recorded",
		logging.Int64("invoice_id", invoiceID),
		logging.String("amount", amount.StringFixed(2)),
		logging.String("remaining", v.Remaining.StringFixed(2)),
		logging.String("status", string(v.Status)))
	return &v, nil
}

func (s *queryServiceImpl) views(invs []*domain.Invoice, keep func(domain.View) bool) []domain.View {
	now := s.now()
	out := make([]domain.View, 0, len(invs))
	for _, inv := range invs {
		v := domain.NewView(inv, now)
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

//Personal.AI order the ending
