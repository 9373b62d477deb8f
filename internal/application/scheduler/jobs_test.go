package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
)

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) GenerateForPeriod(ctx context.Context, p domain.Period) (*appbilling.BatchResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.BatchResult), args.Error(1)
}

func (m *mockGenerator) GenerateForStore(ctx context.Context, storeID int64, issueDate time.Time) (*appbilling.StoreOutcome, error) {
	args := m.Called(ctx, storeID, issueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.StoreOutcome), args.Error(1)
}

type scanFunc func(ctx context.Context) ([]*alerting.ScanReport, error)

func (f scanFunc) RunAll(ctx context.Context) ([]*alerting.ScanReport, error) { return f(ctx) }

type purgeFunc func(ctx context.Context) (inbox.PurgeResult, error)

func (f purgeFunc) Purge(ctx context.Context) (inbox.PurgeResult, error) { return f(ctx) }

var march = domain.Period{Year: 2025, Month: time.March}

func TestMonthlyBillingJob_WaitsForBillingDay(t *testing.T) {
	gen := &mockGenerator{}
	j := MonthlyBillingJob(gen, 5, time.Hour, nil)

	assert.Empty(t, j.Key(time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03", j.Key(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03", j.Key(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestMonthlyBillingJob_RunsOncePerPeriod(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateForPeriod", mock.Anything, march).
		Return(&appbilling.BatchResult{Period: "2025-03", Created: 4, Skipped: 1}, nil).Once()

	s := New(nil, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, s.Add(MonthlyBillingJob(gen, 1, time.Hour, nil)))

	status, err := s.RunNow(context.Background(), JobMonthlyBilling)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, status)

	status, err = s.RunNow(context.Background(), JobMonthlyBilling)
	require.NoError(t, err)
	assert.Equal(t, StatusNotDue, status)
	gen.AssertExpectations(t)
}

func TestMonthlyBillingJob_RetriesAfterStoreFailures(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateForPeriod", mock.Anything, march).
		Return(&appbilling.BatchResult{Period: "2025-03", Created: 3, Failed: 1}, nil).Once()
	gen.On("GenerateForPeriod", mock.Anything, march).
		Return(&appbilling.BatchResult{Period: "2025-03", Created: 1, Skipped: 3}, nil).Once()

	s := New(nil, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, s.Add(MonthlyBillingJob(gen, 1, time.Hour, nil)))

	status, err := s.RunNow(context.Background(), JobMonthlyBilling)
	assert.EqualError(t, err, "period 2025-03: 1 stores failed")
	assert.Equal(t, StatusFailed, status)

	status, err = s.RunNow(context.Background(), JobMonthlyBilling)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, status)
	gen.AssertExpectations(t)
}

func TestMonthlyBillingJob_CancelledRunStaysDue(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateForPeriod", mock.Anything, march).
		Return(&appbilling.BatchResult{Period: "2025-03", Cancelled: true}, context.Canceled)
	j := MonthlyBillingJob(gen, 1, time.Hour, nil)

	assert.ErrorIs(t, j.Run(context.Background(), fixedNow), context.Canceled)
	assert.Equal(t, "2025-03", j.Key(fixedNow))
}

func TestScanJob(t *testing.T) {
	t.Run("clean pass", func(t *testing.T) {
		j := ScanJob(scanFunc(func(context.Context) ([]*alerting.ScanReport, error) {
			return []*alerting.ScanReport{{Scanner: alerting.ScannerAbsence, Findings: 2, Raised: 2}}, nil
		}), time.Hour, nil)
		assert.Equal(t, "all", j.Key(fixedNow))
		assert.NoError(t, j.Run(context.Background(), fixedNow))
	})

	t.Run("write failures fail the run", func(t *testing.T) {
		j := ScanJob(scanFunc(func(context.Context) ([]*alerting.ScanReport, error) {
			return []*alerting.ScanReport{
				{Scanner: alerting.ScannerAbsence, Failed: 1},
				{Scanner: alerting.ScannerPaymentOverdue, Failed: 2},
			}, nil
		}), time.Hour, nil)
		assert.EqualError(t, j.Run(context.Background(), fixedNow), "3 findings could not be written")
	})

	t.Run("failed scanner fails the run", func(t *testing.T) {
		j := ScanJob(scanFunc(func(context.Context) ([]*alerting.ScanReport, error) {
			return []*alerting.ScanReport{
				{Scanner: alerting.ScannerContractExpiry, Raised: 1},
				{Scanner: alerting.ScannerAbsence, Error: "db down"},
			}, nil
		}), time.Hour, nil)
		assert.EqualError(t, j.Run(context.Background(), fixedNow), "1 scanners failed, 0 findings could not be written")
	})

	t.Run("cancellation", func(t *testing.T) {
		j := ScanJob(scanFunc(func(context.Context) ([]*alerting.ScanReport, error) {
			return nil, context.DeadlineExceeded
		}), time.Hour, nil)
		assert.ErrorIs(t, j.Run(context.Background(), fixedNow), context.DeadlineExceeded)
	})
}

func TestPurgeJob_KeyedByDay(t *testing.T) {
	purged := 0
	j := PurgeJob(purgeFunc(func(context.Context) (inbox.PurgeResult, error) {
		purged++
		return inbox.PurgeResult{notification.SeverityInfo: 4}, nil
	}), 24*time.Hour, nil)

	assert.Equal(t, "2025-03-14", j.Key(fixedNow))
	require.NoError(t, j.Run(context.Background(), fixedNow))
	assert.Equal(t, 1, purged)
}

//Personal.AI order the ending
