package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/channels"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

// --- Billing ---

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

var _ appbilling.Generator = (*mockGenerator)(nil)

type mockQueries struct{ mock.Mock }

func (m *mockQueries) Get(ctx context.Context, id int64) (*domain.View, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.View), args.Error(1)
}

func (m *mockQueries) views(args mock.Arguments) ([]domain.View, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.View), args.Error(1)
}

func (m *mockQueries) ListByStore(ctx context.Context, storeID int64) ([]domain.View, error) {
	return m.views(m.Called(ctx, storeID))
}

func (m *mockQueries) ListByRenter(ctx context.Context, renterID int64) ([]domain.View, error) {
	return m.views(m.Called(ctx, renterID))
}

func (m *mockQueries) ListOverdue(ctx context.Context) ([]domain.View, error) {
	return m.views(m.Called(ctx))
}

func (m *mockQueries) ListPending(ctx context.Context) ([]domain.View, error) {
	return m.views(m.Called(ctx))
}

func (m *mockQueries) RecordPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (*domain.View, error) {
	args := m.Called(ctx, invoiceID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.View), args.Error(1)
}

var _ appbilling.QueryService = (*mockQueries)(nil)

// --- Alerting / inbox ---

type mockScans struct{ mock.Mock }

func (m *mockScans) Run(ctx context.Context, names ...string) ([]*alerting.ScanReport, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*alerting.ScanReport), args.Error(1)
}

type mockInbox struct{ mock.Mock }

func (m *mockInbox) List(ctx context.Context, f notification.ListFilter) (*common.PageResponse[*notification.Notification], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*common.PageResponse[*notification.Notification]), args.Error(1)
}

func (m *mockInbox) one(args mock.Arguments) (*notification.Notification, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *mockInbox) Get(ctx context.Context, id int64) (*notification.Notification, error) {
	return m.one(m.Called(ctx, id))
}

func (m *mockInbox) UnreadCount(ctx context.Context, r notification.Recipient) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInbox) MarkRead(ctx context.Context, id int64) (*notification.Notification, error) {
	return m.one(m.Called(ctx, id))
}

func (m *mockInbox) MarkAllRead(ctx context.Context, r notification.Recipient) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInbox) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInbox) Purge(ctx context.Context) (inbox.PurgeResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(inbox.PurgeResult), args.Error(1)
}

var _ inbox.Service = (*mockInbox)(nil)

// --- Messaging ---

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, to, text string) error {
	return m.Called(ctx, to, text).Error(0)
}

func (m *mockSender) SendBulk(ctx context.Context, to []string, text string) (*channels.BulkResult, error) {
	args := m.Called(ctx, to, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channels.BulkResult), args.Error(1)
}

// --- Helpers ---

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func route(method, pattern string, fn http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Method(method, pattern, fn)
	return r
}

//Personal.AI order the ending
