package alerting

import (
	"context"
	"time"

	"github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/domain/workforce"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
)

// Scanner names, also used by the trigger endpoints and the CLI.
const (
	ScannerContractExpiry = "contract-expiry"
	ScannerPaymentOverdue = "payment-overdue"
	ScannerAbsence        = "absence"
	ScannerAbsenceLimit   = "absence-limit"
)

// Scanner detects one kind of condition.  Scanners share no state; running
// them in any order yields the same findings.  A subject that cannot be
// evaluated is reported in the output and does not stop the pass.  On
// cancellation the findings gathered so far are returned with the context
// error.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, now time.Time) (*ScanOutput, error)
}

const dateKey = "2006-01-02"

// ---------------------------------------------------------------------------
// Contract expiry
// ---------------------------------------------------------------------------

type contractExpiryScanner struct {
	classifier     *SeverityClassifier
	employees      workforce.EmployeeSource
	employment     workforce.EmploymentContractSource
	stores         leasing.StoreSource
	storeContracts leasing.ContractSource
	logger         logging.Logger
}

// NewContractExpiryScanner raises a finding for every active employment or
// store contract ending within the warning window.
func NewContractExpiryScanner(
	classifier *SeverityClassifier,
	employees workforce.EmployeeSource,
	employment workforce.EmploymentContractSource,
	stores leasing.StoreSource,
	storeContracts leasing.ContractSource,
	logger logging.Logger,
) Scanner {
	return &contractExpiryScanner{
		classifier:     classifier,
		employees:      employees,
		employment:     employment,
		stores:         stores,
		storeContracts: storeContracts,
		logger:         orNop(logger).Named(ScannerContractExpiry),
	}
}

func (s *contractExpiryScanner) Name() string { return ScannerContractExpiry }

func (s *contractExpiryScanner) Scan(ctx context.Context, now time.Time) (*ScanOutput, error) {
	out := &ScanOutput{}
	today := billing.DateOf(now)
	until := today.AddDate(0, 0, s.classifier.Threshold(notification.TypeContractExpiry))

	employment, err := s.employment.ActiveContractsEndingBetween(ctx, today, until)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		s.logger.Warn("employment contract query failed", logging.Err(err))
		out.fail(notification.EntityEmploymentContract, 0, err)
	}
	for _, c := range employment {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !c.IsActive() {
			continue
		}
		days, sev, ok := s.grade(today, c.EndDate)
		if !ok {
			continue
		}
		emp, err := s.employees.GetEmployee(ctx, c.EmployeeID)
		if err != nil {
			s.logger.Warn("employee lookup failed", logging.Int64("contract_id", c.ID), logging.Err(err))
			out.fail(notification.EntityEmploymentContract, c.ID, err)
			continue
		}
		out.Findings = append(out.Findings, Finding{
			Type:          notification.TypeContractExpiry,
			Title:         TitleEmployeeContractExpiring,
			Message:       contractExpiryMessage("employee", emp.Name, days),
			Severity:      sev,
			Magnitude:     days,
			Subject:       emp.Name,
			RecipientType: notification.RecipientEmployee,
			RecipientID:   emp.ID,
			EntityType:    notification.EntityEmploymentContract,
			EntityID:      c.ID,
			ConditionKey:  c.EndDate.Format(dateKey),
		})
	}

	leases, err := s.storeContracts.ActiveContractsEndingBetween(ctx, today, until)
	if err != nil {
		return out, err
	}
	for _, c := range leases {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !c.IsActive() {
			continue
		}
		days, sev, ok := s.grade(today, c.EndDate)
		if !ok {
			continue
		}
		store, err := s.stores.GetStore(ctx, c.StoreID)
		if err != nil {
			s.logger.Warn("store lookup failed", logging.Int64("contract_id", c.ID), logging.Err(err))
			out.fail(notification.EntityStoreRentContract, c.ID, err)
			continue
		}
		out.Findings = append(out.Findings, Finding{
			Type:          notification.TypeContractExpiry,
			Title:         TitleStoreContractExpiring,
			Message:       contractExpiryMessage("store", store.Name, days),
			Severity:      sev,
			Magnitude:     days,
			Subject:       store.Name,
			RecipientType: notification.RecipientRenter,
			RecipientID:   c.RenterID,
			EntityType:    notification.EntityStoreRentContract,
			EntityID:      c.ID,
			ConditionKey:  c.EndDate.Format(dateKey),
		})
	}
	return out, nil
}

func (s *contractExpiryScanner) grade(today, end time.Time) (int, notification.Severity, bool) {
	days := billing.DaysBetween(today, end)
	if days < 0 {
		return 0, "", false
	}
	sev := s.classifier.Classify(notification.TypeContractExpiry, days)
	return days, sev, sev.AtLeast(notification.SeverityWarning)
}

// ---------------------------------------------------------------------------
// Payment overdue
// ---------------------------------------------------------------------------

type paymentOverdueScanner struct {
	classifier *SeverityClassifier
	invoices   billing.InvoiceRepository
	stores     leasing.StoreSource
	logger     logging.Logger
}

// NewPaymentOverdueScanner raises a finding for every overdue invoice at
// least the configured number of days past due.
func NewPaymentOverdueScanner(classifier *SeverityClassifier, invoices billing.InvoiceRepository, stores leasing.StoreSource, logger logging.Logger) Scanner {
	return &paymentOverdueScanner{
		classifier: classifier,
		invoices:   invoices,
		stores:     stores,
		logger:     orNop(logger).Named(ScannerPaymentOverdue),
	}
}

func (s *paymentOverdueScanner) Name() string { return ScannerPaymentOverdue }

func (s *paymentOverdueScanner) Scan(ctx context.Context, now time.Time) (*ScanOutput, error) {
	out := &ScanOutput{}
	threshold := s.classifier.Threshold(notification.TypePaymentOverdue)

	invoices, err := s.invoices.ListUnpaid(ctx)
	if err != nil {
		return out, err
	}
	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if billing.Classify(inv, now) != billing.StatusOverdue {
			continue
		}
		days := billing.DaysOverdue(inv, now)
		if days < threshold {
			continue
		}
		sev := s.classifier.Classify(notification.TypePaymentOverdue, days)
		if !sev.AtLeast(notification.SeverityWarning) {
			continue
		}
		store, err := s.stores.GetStore(ctx, inv.StoreID)
		if err != nil {
			s.logger.Warn("store lookup failed", logging.Int64("invoice_id", inv.ID), logging.Err(err))
			out.fail(notification.EntityRentInvoice, inv.ID, err)
			continue
		}
		amount := inv.Remaining().StringFixed(2)
		out.Findings = append(out.Findings, Finding{
			Type:          notification.TypePaymentOverdue,
			Title:         TitlePaymentOverdue,
			Message:       paymentOverdueMessage(amount, store.Name, days),
			Severity:      sev,
			Magnitude:     days,
			Subject:       store.Name,
			RecipientType: notification.RecipientRenter,
			RecipientID:   inv.RenterID,
			EntityType:    notification.EntityRentInvoice,
			EntityID:      inv.ID,
			Metadata:      map[string]string{metaAmount: amount},
		})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Absence
// ---------------------------------------------------------------------------

type absenceScanner struct {
	classifier      *SeverityClassifier
	employees       workforce.EmployeeSource
	attendance      workforce.AttendanceSource
	employment      workforce.EmploymentContractSource
	requireContract bool
	logger          logging.Logger
}

// AbsenceOption customises the absence scanner.
type AbsenceOption func(*absenceScanner)

// RequireContract limits the absence scan to employees holding an active
// employment contract covering the day.
func RequireContract(src workforce.EmploymentContractSource) AbsenceOption {
	return func(s *absenceScanner) {
		s.employment = src
		s.requireContract = src != nil
	}
}

// NewAbsenceScanner raises a finding for every active employee without an
// attendance record for the day.
func NewAbsenceScanner(classifier *SeverityClassifier, employees workforce.EmployeeSource, attendance workforce.AttendanceSource, logger logging.Logger, opts ...AbsenceOption) Scanner {
	s := &absenceScanner{
		classifier: classifier,
		employees:  employees,
		attendance: attendance,
		logger:     orNop(logger).Named(ScannerAbsence),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *absenceScanner) Name() string { return ScannerAbsence }

func (s *absenceScanner) Scan(ctx context.Context, now time.Time) (*ScanOutput, error) {
	out := &ScanOutput{}
	today := billing.DateOf(now)
	sev := s.classifier.Classify(notification.TypeAbsence, 1)
	if !sev.AtLeast(notification.SeverityWarning) {
		return out, nil
	}

	employees, err := s.employees.ActiveEmployees(ctx)
	if err != nil {
		return out, err
	}
	for _, e := range employees {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if s.requireContract {
			contracts, err := s.employment.ActiveContractsCovering(ctx, e.ID, today)
			if err != nil {
				out.fail(notification.EntityEmployee, e.ID, err)
				continue
			}
			if len(contracts) == 0 {
				continue
			}
		}
		present, err := s.attendance.HasRecordOn(ctx, e.ID, today)
		if err != nil {
			s.logger.Warn("attendance lookup failed", logging.Int64("employee_id", e.ID), logging.Err(err))
			out.fail(notification.EntityEmployee, e.ID, err)
			continue
		}
		if present {
			continue
		}
		out.Findings = append(out.Findings, Finding{
			Type:          notification.TypeAbsence,
			Title:         TitleEmployeeAbsent,
			Message:       absenceMessage(e.Name),
			Severity:      sev,
			Magnitude:     1,
			Subject:       e.Name,
			RecipientType: notification.RecipientEmployee,
			RecipientID:   e.ID,
			EntityType:    notification.EntityEmployee,
			EntityID:      e.ID,
			ConditionKey:  today.Format(dateKey),
		})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Absence limit
// ---------------------------------------------------------------------------

type absenceLimitScanner struct {
	classifier *SeverityClassifier
	employees  workforce.EmployeeSource
	attendance workforce.AttendanceSource
	logger     logging.Logger
}

// NewAbsenceLimitScanner raises a finding for every active employee whose
// absences since the first of the month reach the configured limit.
func NewAbsenceLimitScanner(classifier *SeverityClassifier, employees workforce.EmployeeSource, attendance workforce.AttendanceSource, logger logging.Logger) Scanner {
	return &absenceLimitScanner{
		classifier: classifier,
		employees:  employees,
		attendance: attendance,
		logger:     orNop(logger).Named(ScannerAbsenceLimit),
	}
}

func (s *absenceLimitScanner) Name() string { return ScannerAbsenceLimit }

func (s *absenceLimitScanner) Scan(ctx context.Context, now time.Time) (*ScanOutput, error) {
	out := &ScanOutput{}
	period := billing.PeriodOf(now)
	limit := s.classifier.Threshold(notification.TypeAbsenceLimit)
	if limit < 1 {
		limit = 1
	}

	employees, err := s.employees.ActiveEmployees(ctx)
	if err != nil {
		return out, err
	}
	for _, e := range employees {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		count, err := s.attendance.CountAbsencesSince(ctx, e.ID, period.Start())
		if err != nil {
			s.logger.Warn("absence count failed", logging.Int64("employee_id", e.ID), logging.Err(err))
			out.fail(notification.EntityEmployee, e.ID, err)
			continue
		}
		if count < limit {
			continue
		}
		sev := s.classifier.Classify(notification.TypeAbsenceLimit, count)
		if !sev.AtLeast(notification.SeverityWarning) {
			continue
		}
		out.Findings = append(out.Findings, Finding{
			Type:          notification.TypeAbsenceLimit,
			Title:         TitleAbsenceLimitExceeded,
			Message:       absenceLimitMessage(e.Name, count),
			Severity:      sev,
			Magnitude:     count,
			Subject:       e.Name,
			RecipientType: notification.RecipientEmployee,
			RecipientID:   e.ID,
			EntityType:    notification.EntityEmployee,
			EntityID:      e.ID,
			ConditionKey:  period.String(),
		})
	}
	return out, nil
}

func orNop(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NewNopLogger()
	}
	return l
}

//Personal.AI order the ending
