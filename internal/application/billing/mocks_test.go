package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/retry"
)

// ---------------------------------------------------------------------------
// leasing sources
// ---------------------------------------------------------------------------

type mockStores struct{ mock.Mock }

func (m *mockStores) GetStore(ctx context.Context, storeID int64) (*leasing.Store, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Store), args.Error(1)
}

func (m *mockStores) RenterForStore(ctx context.Context, storeID, preferred int64) (*leasing.Renter, error) {
	args := m.Called(ctx, storeID, preferred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Renter), args.Error(1)
}

func (m *mockStores) GetRenter(ctx context.Context, renterID int64) (*leasing.Renter, error) {
	args := m.Called(ctx, renterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Renter), args.Error(1)
}

type mockContracts struct{ mock.Mock }

func (m *mockContracts) ActiveContractsCovering(ctx context.Context, storeID int64, from, to time.Time) ([]*leasing.StoreRentContract, error) {
	args := m.Called(ctx, storeID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*leasing.StoreRentContract), args.Error(1)
}

func (m *mockContracts) StoresWithCoverage(ctx context.Context, from, to time.Time) ([]int64, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockContracts) ActiveContractsEndingBetween(ctx context.Context, from, to time.Time) ([]*leasing.StoreRentContract, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*leasing.StoreRentContract), args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) StandingDebitsFor(ctx context.Context, renterID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, renterID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishInvoiceGenerated(ctx context.Context, inv *domain.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingMetrics) RecordInvoiceOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}

// ---------------------------------------------------------------------------
// in-memory invoice store enforcing the (store, year, month) identity
// ---------------------------------------------------------------------------

type memInvoices struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Invoice

	// staleSaves makes the next n UpdatePaidAmount calls fail as stale.
	staleSaves int
	// raceOnCreate makes Create report a unique violation once.
	raceOnCreate bool
}

func newMemInvoices() *memInvoices {
	return &memInvoices{rows: map[int64]*domain.Invoice{}}
}

func (r *memInvoices) Create(_ context.Context, inv *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raceOnCreate {
		r.raceOnCreate = false
		return errors.New(errors.ErrCodeInvoiceConflict, "duplicate key value violates unique constraint")
	}
	for _, row := range r.rows {
		if row.StoreID == inv.StoreID && row.Period() == inv.Period() {
			return errors.New(errors.ErrCodeInvoiceConflict, "duplicate key value violates unique constraint")
		}
	}
	r.nextID++
	inv.ID = r.nextID
	inv.Version = 1
	cp := *inv
	r.rows[inv.ID] = &cp
	return nil
}

func (r *memInvoices) FindByStorePeriod(_ context.Context, storeID int64, p domain.Period) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.StoreID == storeID && row.Period() == p {
			cp := *row
			return &cp, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvoiceNotFound, "invoice not found")
}

func (r *memInvoices) GetByID(_ context.Context, id int64) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvoiceNotFound, "invoice not found")
	}
	cp := *row
	return &cp, nil
}

func (r *memInvoices) list(keep func(*domain.Invoice) bool) []*domain.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Invoice
	for _, row := range r.rows {
		if keep(row) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memInvoices) ListByStore(_ context.Context, storeID int64) ([]*domain.Invoice, error) {
	return r.list(func(i *domain.Invoice) bool { return i.StoreID == storeID }), nil
}

func (r *memInvoices) ListByRenter(_ context.Context, renterID int64) ([]*domain.Invoice, error) {
	return r.list(func(i *domain.Invoice) bool { return i.RenterID == renterID }), nil
}

func (r *memInvoices) ListUnpaid(_ context.Context) ([]*domain.Invoice, error) {
	return r.list(func(i *domain.Invoice) bool { return i.Remaining().IsPositive() }), nil
}

func (r *memInvoices) UpdatePaidAmount(_ context.Context, inv *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[inv.ID]
	if !ok {
		return errors.New(errors.ErrCodeInvoiceNotFound, "invoice not found")
	}
	if r.staleSaves > 0 {
		r.staleSaves--
		row.Version++
		return retry.ErrStaleVersion
	}
	if row.Version != inv.Version {
		return retry.ErrStaleVersion
	}
	row.PaidAmount = inv.PaidAmount
	row.Version++
	inv.Version = row.Version
	return nil
}

func (r *memInvoices) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

//Personal.AI order the ending
