package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/turtacn/MallLedger/internal/domain/workforce"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// WorkforceRepo reads employees, employment contracts and attendance.
type WorkforceRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

var (
	_ workforce.EmployeeSource           = (*WorkforceRepo)(nil)
	_ workforce.EmploymentContractSource = (*WorkforceRepo)(nil)
	_ workforce.AttendanceSource         = (*WorkforceRepo)(nil)
)

func NewWorkforceRepo(conn *postgres.Connection, log logging.Logger) *WorkforceRepo {
	return &WorkforceRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func scanEmployee(s scanner) (*workforce.Employee, error) {
	e := &workforce.Employee{}
	if err := s.Scan(&e.ID, &e.Name, &e.Phone, &e.IsActive); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *WorkforceRepo) ActiveEmployees(ctx context.Context) ([]*workforce.Employee, error) {
	rows, err := r.executor.QueryContext(ctx, `SELECT id, full_name, phone, is_active FROM employees WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list employees")
	}
	out, err := collect(rows, scanEmployee)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan employees")
	}
	return out, nil
}

func (r *WorkforceRepo) GetEmployee(ctx context.Context, id int64) (*workforce.Employee, error) {
	e, err := scanEmployee(r.executor.QueryRowContext(ctx, `SELECT id, full_name, phone, is_active FROM employees WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeEmployeeNotFound, "employee not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load employee")
	}
	return e, nil
}

func (r *WorkforceRepo) ActiveContractsCovering(ctx context.Context, employeeID int64, asOf time.Time) ([]*workforce.EmploymentContract, error) {
	query := `
		SELECT id, employee_id, start_date, end_date, status FROM employment_contracts
		WHERE employee_id = $1 AND status = 'Active' AND start_date <= $2 AND end_date > $2
		ORDER BY id
	`
	return r.contracts(ctx, query, employeeID, asOf)
}

func (r *WorkforceRepo) ActiveContractsEndingBetween(ctx context.Context, from, to time.Time) ([]*workforce.EmploymentContract, error) {
	query := `
		SELECT id, employee_id, start_date, end_date, status FROM employment_contracts
		WHERE status = 'Active' AND end_date BETWEEN $1 AND $2
		ORDER BY end_date, id
	`
	return r.contracts(ctx, query, from, to)
}

func (r *WorkforceRepo) contracts(ctx context.Context, query string, args ...interface{}) ([]*workforce.EmploymentContract, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list employment contracts")
	}
	out, err := collect(rows, func(s scanner) (*workforce.EmploymentContract, error) {
		c := &workforce.EmploymentContract{}
		err := s.Scan(&c.ID, &c.EmployeeID, &c.StartDate, &c.EndDate, &c.Status)
		return c, err
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan employment contracts")
	}
	return out, nil
}

func (r *WorkforceRepo) HasRecordOn(ctx context.Context, employeeID int64, date time.Time) (bool, error) {
	var ok bool
	err := r.executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendances WHERE employee_id = $1 AND date = $2)`, employeeID, date,
	).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check attendance")
	}
	return ok, nil
}

func (r *WorkforceRepo) CountAbsencesSince(ctx context.Context, employeeID int64, since time.Time) (int, error) {
	var n int
	err := r.executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendances WHERE employee_id = $1 AND status = $2 AND date >= $3`,
		employeeID, workforce.StatusAbsent, since,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count absences")
	}
	return n, nil
}

//Personal.AI order the ending
