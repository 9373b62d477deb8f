package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/config"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
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

type mockQueries struct {
	mock.Mock
	appbilling.QueryService
}

func (m *mockQueries) views(args mock.Arguments) ([]domain.View, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.View), args.Error(1)
}

func (m *mockQueries) ListOverdue(ctx context.Context) ([]domain.View, error) {
	return m.views(m.Called(ctx))
}

func (m *mockQueries) ListPending(ctx context.Context) ([]domain.View, error) {
	return m.views(m.Called(ctx))
}

type mockScans struct{ mock.Mock }

func (m *mockScans) Run(ctx context.Context, names ...string) ([]*alerting.ScanReport, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*alerting.ScanReport), args.Error(1)
}

type mockInbox struct {
	mock.Mock
	inbox.Service
}

func (m *mockInbox) UnreadCount(ctx context.Context, r notification.Recipient) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInbox) Purge(ctx context.Context) (inbox.PurgeResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(inbox.PurgeResult), args.Error(1)
}

type fakeMigrator struct {
	version uint
	dirty   bool
	err     error
	calls   []string
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	if f.err != nil {
		return f.err
	}
	f.version = 3
	return nil
}

func (f *fakeMigrator) Down(steps int) error {
	f.calls = append(f.calls, "down")
	f.version -= uint(steps)
	return f.err
}

func (f *fakeMigrator) Status() (postgres.MigrationState, error) {
	return postgres.MigrationState{Version: f.version, Dirty: f.dirty}, nil
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.version, f.dirty = uint(v), false
	return f.err
}

// harness wires mocks into Dependencies and counts service lifecycles.
type harness struct {
	gen      *mockGenerator
	queries  *mockQueries
	scans    *mockScans
	inbox    *mockInbox
	migrator *fakeMigrator
	opened   int
	closed   int
	openErr  error
}

func newHarness() *harness {
	return &harness{
		gen:      &mockGenerator{},
		queries:  &mockQueries{},
		scans:    &mockScans{},
		inbox:    &mockInbox{},
		migrator: &fakeMigrator{version: 2},
	}
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		Services: func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Services, error) {
			if h.openErr != nil {
				return nil, h.openErr
			}
			h.opened++
			return &Services{
				Generator: h.gen,
				Invoices:  h.queries,
				Scans:     h.scans,
				Inbox:     h.inbox,
				Close:     func() error { h.closed++; return nil },
			}, nil
		},
		Migrator: func(cfg *config.Config) MigrationRunner { return h.migrator },
	}
}

// run executes mallctl with a minimal valid config file.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(h.deps())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mallledger.yaml")
	body := "database:\n  host: localhost\n  user: mall\n  db_name: mallledger\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func overdueView(id int64, days int) domain.View {
	issue := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := &domain.Invoice{
		ID: id, StoreID: 5, RenterID: 3,
		IssueDate: issue, DueDate: issue.AddDate(0, 0, 7),
		Amount: decimal.NewFromInt(1500), PaidAmount: decimal.Zero,
	}
	return domain.NewView(inv, inv.DueDate.AddDate(0, 0, days))
}

//Personal.AI order the ending
