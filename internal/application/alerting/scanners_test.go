package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/domain/workforce"
	"github.com/turtacn/MallLedger/pkg/errors"
)

func defaultClassifier() *SeverityClassifier {
	return NewSeverityClassifier(NewPolicyHolder(nil))
}

func TestContractExpiryScanner_SeverityBoundary(t *testing.T) {
	now := day(2025, 6, 1).Add(9 * time.Hour)
	wf := newFakeWorkforce()
	wf.addEmployee(1, "Mya", "+959100000001")
	wf.addEmployee(2, "Hla", "+959100000002")
	wf.contracts = []*workforce.EmploymentContract{
		{ID: 10, EmployeeID: 1, StartDate: day(2024, 6, 1), EndDate: day(2025, 6, 9), Status: "Active"},
		{ID: 11, EmployeeID: 2, StartDate: day(2024, 6, 1), EndDate: day(2025, 6, 8), Status: "Active"},
		{ID: 12, EmployeeID: 2, StartDate: day(2024, 6, 1), EndDate: day(2025, 8, 1), Status: "Active"},
	}
	ls := newFakeLeasing()
	ls.stores[5] = &leasing.Store{ID: 5, Name: "A-12"}
	ls.contracts = []*leasing.StoreRentContract{
		{ID: 20, StoreID: 5, RenterID: 42, EndDate: day(2025, 6, 21), Status: leasing.ContractActive},
		{ID: 21, StoreID: 5, RenterID: 43, EndDate: day(2025, 6, 5), Status: leasing.ContractCancelled},
	}

	sc := NewContractExpiryScanner(defaultClassifier(), wf, wf, ls, ls, nil)
	out, err := sc.Scan(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, out.Findings, 3)

	byEntity := map[int64]Finding{}
	for _, f := range out.Findings {
		byEntity[f.EntityID] = f
	}
	assert.Equal(t, 8, byEntity[10].Magnitude)
	assert.Equal(t, notification.SeverityWarning, byEntity[10].Severity)
	assert.Equal(t, 7, byEntity[11].Magnitude)
	assert.Equal(t, notification.SeverityCritical, byEntity[11].Severity)
	assert.Equal(t, "Contract for employee Hla will expire in 7 days.", byEntity[11].Message)
	assert.Equal(t, notification.RecipientEmployee, byEntity[11].RecipientType)
	assert.Equal(t, "2025-06-08", byEntity[11].ConditionKey)

	store := byEntity[20]
	assert.Equal(t, TitleStoreContractExpiring, store.Title)
	assert.Equal(t, notification.RecipientRenter, store.RecipientType)
	assert.Equal(t, int64(42), store.RecipientID)
	assert.Equal(t, notification.EntityStoreRentContract, store.EntityType)
	assert.Equal(t, notification.SeverityWarning, store.Severity)
}

func TestContractExpiryScanner_MissingEmployeeIsSubjectFailure(t *testing.T) {
	wf := newFakeWorkforce()
	wf.contracts = []*workforce.EmploymentContract{
		{ID: 10, EmployeeID: 404, EndDate: day(2025, 6, 3), Status: "Active"},
	}
	sc := NewContractExpiryScanner(defaultClassifier(), wf, wf, newFakeLeasing(), newFakeLeasing(), nil)

	out, err := sc.Scan(context.Background(), day(2025, 6, 1))
	require.NoError(t, err)
	assert.Empty(t, out.Findings)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, int64(10), out.Failures[0].EntityID)
}

func TestContractExpiryScanner_EmploymentFailureStillScansStores(t *testing.T) {
	wf := newFakeWorkforce()
	wf.contractErr = errors.New(errors.ErrCodeDatabaseError, "timeout")
	ls := newFakeLeasing()
	ls.stores[5] = &leasing.Store{ID: 5, Name: "A-12"}
	ls.contracts = []*leasing.StoreRentContract{
		{ID: 20, StoreID: 5, RenterID: 42, EndDate: day(2025, 6, 21), Status: leasing.ContractActive},
	}

	out, err := NewContractExpiryScanner(defaultClassifier(), wf, wf, ls, ls, nil).Scan(context.Background(), day(2025, 6, 1))
	require.NoError(t, err)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, int64(20), out.Findings[0].EntityID)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, notification.EntityEmploymentContract, out.Failures[0].EntityType)
	assert.Contains(t, out.Failures[0].Error, "timeout")
}

func TestPaymentOverdueScanner(t *testing.T) {
	ls := newFakeLeasing()
	ls.stores[5] = &leasing.Store{ID: 5, Name: "A-12"}
	inv := func(id int64, due time.Time, billed, paid int64) *billing.Invoice {
		return &billing.Invoice{ID: id, StoreID: 5, RenterID: 42, DueDate: due,
			Amount: decimal.NewFromInt(billed), PaidAmount: decimal.NewFromInt(paid)}
	}
	invoices := &fakeInvoices{unpaid: []*billing.Invoice{
		inv(1, day(2025, 3, 8), 1200, 200),  // 6 days overdue: below threshold
		inv(2, day(2025, 3, 7), 1200, 200),  // 7 days: warning
		inv(3, day(2025, 2, 12), 1200, 200), // 30 days: critical
		inv(4, day(2025, 2, 1), 1200, 1200), // paid
	}}

	sc := NewPaymentOverdueScanner(defaultClassifier(), invoices, ls, nil)
	out, err := sc.Scan(context.Background(), day(2025, 3, 14))
	require.NoError(t, err)
	require.Len(t, out.Findings, 2)

	assert.Equal(t, int64(2), out.Findings[0].EntityID)
	assert.Equal(t, 7, out.Findings[0].Magnitude)
	assert.Equal(t, notification.SeverityWarning, out.Findings[0].Severity)
	assert.Equal(t, "Payment of 1000.00 for store A-12 is overdue by 7 days.", out.Findings[0].Message)
	assert.Equal(t, "1000.00", out.Findings[0].Metadata[metaAmount])

	assert.Equal(t, int64(3), out.Findings[1].EntityID)
	assert.Equal(t, 30, out.Findings[1].Magnitude)
	assert.Equal(t, notification.SeverityCritical, out.Findings[1].Severity)
	assert.Equal(t, notification.EntityRentInvoice, out.Findings[1].EntityType)
	assert.Empty(t, out.Findings[1].ConditionKey)
}

func TestAbsenceScanner(t *testing.T) {
	today := day(2025, 4, 10)
	wf := newFakeWorkforce()
	wf.addEmployee(1, "Mya", "+959100000001")
	wf.addEmployee(2, "Hla", "+959100000002")
	wf.record(2, today, workforce.StatusPresent)

	sc := NewAbsenceScanner(defaultClassifier(), wf, wf, nil)
	out, err := sc.Scan(context.Background(), today.Add(18*time.Hour))
	require.NoError(t, err)
	require.Len(t, out.Findings, 1)

	f := out.Findings[0]
	assert.Equal(t, int64(1), f.EntityID)
	assert.Equal(t, notification.SeverityWarning, f.Severity)
	assert.Equal(t, notification.EntityEmployee, f.EntityType)
	assert.Equal(t, "2025-04-10", f.ConditionKey)
	assert.Equal(t, "Employee Mya was absent today.", f.Message)

	// a record for E makes the finding go away
	wf.record(1, today, workforce.StatusLeave)
	out, err = sc.Scan(context.Background(), today)
	require.NoError(t, err)
	assert.Empty(t, out.Findings)
}

func TestAbsenceScanner_RequireContract(t *testing.T) {
	today := day(2025, 4, 10)
	wf := newFakeWorkforce()
	wf.addEmployee(1, "Mya", "")
	wf.addEmployee(2, "Hla", "")
	wf.contracts = []*workforce.EmploymentContract{
		{ID: 1, EmployeeID: 2, StartDate: day(2025, 1, 1), EndDate: day(2026, 1, 1), Status: "Active"},
	}

	sc := NewAbsenceScanner(defaultClassifier(), wf, wf, nil, RequireContract(wf))
	out, err := sc.Scan(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, int64(2), out.Findings[0].EntityID)
}

func TestAbsenceScanner_LookupFailureDoesNotAbort(t *testing.T) {
	wf := newFakeWorkforce()
	wf.addEmployee(1, "Mya", "")
	wf.addEmployee(2, "Hla", "")
	wf.failOn[1] = errors.New(errors.ErrCodeDatabaseError, "timeout")

	out, err := NewAbsenceScanner(defaultClassifier(), wf, wf, nil).Scan(context.Background(), day(2025, 4, 10))
	require.NoError(t, err)
	assert.Len(t, out.Findings, 1)
	assert.Len(t, out.Failures, 1)
}

func TestAbsenceLimitScanner(t *testing.T) {
	wf := newFakeWorkforce()
	wf.addEmployee(1, "Mya", "")
	wf.addEmployee(2, "Hla", "")
	for _, d := range []int{2, 3, 7} {
		wf.record(1, day(2025, 4, d), workforce.StatusAbsent)
	}
	wf.record(1, day(2025, 3, 30), workforce.StatusAbsent) // previous month
	wf.record(2, day(2025, 4, 2), workforce.StatusAbsent)
	wf.record(2, day(2025, 4, 3), workforce.StatusAbsent)
	wf.record(2, day(2025, 4, 4), workforce.StatusLeave)

	out, err := NewAbsenceLimitScanner(defaultClassifier(), wf, wf, nil).Scan(context.Background(), day(2025, 4, 10))
	require.NoError(t, err)
	require.Len(t, out.Findings, 1)

	f := out.Findings[0]
	assert.Equal(t, int64(1), f.EntityID)
	assert.Equal(t, 3, f.Magnitude)
	assert.Equal(t, notification.SeverityCritical, f.Severity)
	assert.Equal(t, "2025-04", f.ConditionKey)
	assert.Equal(t, "Employee Mya has been absent 3 times this month.", f.Message)
}

func TestScanners_StopOnCancel(t *testing.T) {
	wf := newFakeWorkforce()
	wf.addEmployee(1, "Mya", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewAbsenceScanner(defaultClassifier(), wf, wf, nil).Scan(ctx, day(2025, 4, 10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Findings)
}

//Personal.AI order the ending
