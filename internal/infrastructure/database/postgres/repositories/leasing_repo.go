package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

const contractColumns = `id, store_id, renter_id, start_date, end_date, monthly_rent, status`

// LeasingRepo reads stores, renters, store-rent contracts and standing
// debits.  It implements leasing.StoreSource, leasing.ContractSource and
// leasing.LedgerSource.
type LeasingRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

var (
	_ leasing.StoreSource    = (*LeasingRepo)(nil)
	_ leasing.ContractSource = (*LeasingRepo)(nil)
	_ leasing.LedgerSource   = (*LeasingRepo)(nil)
)

func NewLeasingRepo(conn *postgres.Connection, log logging.Logger) *LeasingRepo {
	return &LeasingRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func (r *LeasingRepo) GetStore(ctx context.Context, storeID int64) (*leasing.Store, error) {
	s := &leasing.Store{}
	err := r.executor.QueryRowContext(ctx, `SELECT id, name, mall_id FROM stores WHERE id = $1`, storeID).
		Scan(&s.ID, &s.Name, &s.MallID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeStoreNotFound, "store not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load store")
	}
	return s, nil
}

// RenterForStore picks preferredRenterID when it is associated with the
// store, otherwise the lowest associated renter id.
func (r *LeasingRepo) RenterForStore(ctx context.Context, storeID, preferredRenterID int64) (*leasing.Renter, error) {
	query := `
		SELECT r.id, r.name, r.phone_number
		FROM renters r
		JOIN store_renters sr ON sr.renter_id = r.id
		WHERE sr.store_id = $1
		ORDER BY (r.id = $2) DESC, r.id
		LIMIT 1
	`
	return r.renter(ctx, query, storeID, preferredRenterID)
}

func (r *LeasingRepo) GetRenter(ctx context.Context, renterID int64) (*leasing.Renter, error) {
	return r.renter(ctx, `SELECT id, name, phone_number FROM renters WHERE id = $1`, renterID)
}

func (r *LeasingRepo) renter(ctx context.Context, query string, args ...interface{}) (*leasing.Renter, error) {
	rn := &leasing.Renter{}
	err := r.executor.QueryRowContext(ctx, query, args...).Scan(&rn.ID, &rn.Name, &rn.PhoneNumber)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeRenterNotFound, "renter not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load renter")
	}
	return rn, nil
}

func (r *LeasingRepo) ActiveContractsCovering(ctx context.Context, storeID int64, from, to time.Time) ([]*leasing.StoreRentContract, error) {
	query := `SELECT ` + contractColumns + ` FROM store_rent_contracts
		WHERE store_id = $1 AND status = 'Active' AND start_date < $3 AND end_date > $2
		ORDER BY id`
	return r.contracts(ctx, query, storeID, from, to)
}

func (r *LeasingRepo) StoresWithCoverage(ctx context.Context, from, to time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT store_id FROM store_rent_contracts
		WHERE status = 'Active' AND start_date < $2 AND end_date > $1
		ORDER BY store_id
	`
	rows, err := r.executor.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list covered stores")
	}
	ids, err := collect(rows, func(s scanner) (int64, error) {
		var id int64
		err := s.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan covered stores")
	}
	return ids, nil
}

func (r *LeasingRepo) ActiveContractsEndingBetween(ctx context.Context, from, to time.Time) ([]*leasing.StoreRentContract, error) {
	query := `SELECT ` + contractColumns + ` FROM store_rent_contracts
		WHERE status = 'Active' AND end_date BETWEEN $1 AND $2
		ORDER BY end_date, id`
	return r.contracts(ctx, query, from, to)
}

func (r *LeasingRepo) contracts(ctx context.Context, query string, args ...interface{}) ([]*leasing.StoreRentContract, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list store contracts")
	}
	out, err := collect(rows, func(s scanner) (*leasing.StoreRentContract, error) {
		c := &leasing.StoreRentContract{}
		var status string
		if err := s.Scan(&c.ID, &c.StoreID, &c.RenterID, &c.StartDate, &c.EndDate, &c.MonthlyRent, &status); err != nil {
			return nil, err
		}
		c.Status = leasing.ContractStatus(status)
		return c, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan store contracts")
	}
	return out, nil
}

func (r *LeasingRepo) StandingDebitsFor(ctx context.Context, renterID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.executor.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM renter_debits WHERE renter_id = $1 AND is_active`, renterID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to sum standing debits")
	}
	return total, nil
}

//Personal.AI order the ending
