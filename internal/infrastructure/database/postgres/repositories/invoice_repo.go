package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/retry"
)

const invoiceColumns = `id, store_id, renter_id, issue_date, due_date, amount, paid_amount, notes, version, created_at`

type postgresInvoiceRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresInvoiceRepo returns the rent_invoices store.
func NewPostgresInvoiceRepo(conn *postgres.Connection, log logging.Logger) billing.InvoiceRepository {
	return &postgresInvoiceRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func (r *postgresInvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) error {
	p := inv.Period()
	query := `
		INSERT INTO rent_invoices (
			store_id, renter_id, issue_date, period_year, period_month, due_date,
			amount, paid_amount, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at
	`
	err := r.executor.QueryRowContext(ctx, query,
		inv.StoreID, inv.RenterID, inv.IssueDate, p.Year, int(p.Month), inv.DueDate,
		inv.Amount, inv.PaidAmount, inv.Notes,
	).Scan(&inv.ID, &inv.Version, &inv.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			r.log.Warn("invoice identity already taken",
				logging.Int64("store_id", inv.StoreID),
				logging.String("period", p.String()),
				logging.String("constraint", constraint),
			)
			return errors.Wrap(err, errors.ErrCodeInvoiceConflict, "invoice already exists for store and period")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create invoice")
	}
	return nil
}

func (r *postgresInvoiceRepo) FindByStorePeriod(ctx context.Context, storeID int64, p billing.Period) (*billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM rent_invoices
		WHERE store_id = $1 AND period_year = $2 AND period_month = $3`
	return r.one(ctx, query, storeID, p.Year, int(p.Month))
}

func (r *postgresInvoiceRepo) GetByID(ctx context.Context, id int64) (*billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM rent_invoices WHERE id = $1`
	return r.one(ctx, query, id)
}

func (r *postgresInvoiceRepo) ListByStore(ctx context.Context, storeID int64) ([]*billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM rent_invoices WHERE store_id = $1 ORDER BY issue_date DESC, id DESC`
	return r.many(ctx, query, storeID)
}

func (r *postgresInvoiceRepo) ListByRenter(ctx context.Context, renterID int64) ([]*billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM rent_invoices WHERE renter_id = $1 ORDER BY issue_date DESC, id DESC`
	return r.many(ctx, query, renterID)
}

func (r *postgresInvoiceRepo) ListUnpaid(ctx context.Context) ([]*billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM rent_invoices WHERE paid_amount < amount ORDER BY due_date, id`
	return r.many(ctx, query)
}

func (r *postgresInvoiceRepo) UpdatePaidAmount(ctx context.Context, inv *billing.Invoice) error {
	query := `
		UPDATE rent_invoices SET paid_amount = $2, version = version + 1
		WHERE id = $1 AND version = $3
		RETURNING version
	`
	err := r.executor.QueryRowContext(ctx, query, inv.ID, inv.PaidAmount, inv.Version).Scan(&inv.Version)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update invoice payment")
	}

	// Either the row is gone or another writer bumped the version.
	var exists bool
	if err := r.executor.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rent_invoices WHERE id = $1)`, inv.ID).Scan(&exists); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check invoice")
	}
	if !exists {
		return errors.New(errors.ErrCodeInvoiceNotFound, "invoice not found")
	}
	return retry.ErrStaleVersion
}

func (r *postgresInvoiceRepo) one(ctx context.Context, query string, args ...interface{}) (*billing.Invoice, error) {
	inv, err := scanInvoice(r.executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeInvoiceNotFound, "invoice not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load invoice")
	}
	return inv, nil
}

func (r *postgresInvoiceRepo) many(ctx context.Context, query string, args ...interface{}) ([]*billing.Invoice, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list invoices")
	}
	out, err := collect(rows, scanInvoice)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan invoices")
	}
	return out, nil
}

func scanInvoice(s scanner) (*billing.Invoice, error) {
	inv := &billing.Invoice{}
	err := s.Scan(
		&inv.ID, &inv.StoreID, &inv.RenterID, &inv.IssueDate, &inv.DueDate,
		&inv.Amount, &inv.PaidAmount, &inv.Notes, &inv.Version, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.IssueDate = billing.DateOf(inv.IssueDate)
	inv.DueDate = billing.DateOf(inv.DueDate)
	return inv, nil
}

//Personal.AI order the ending
