package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/testutil"
	"github.com/turtacn/MallLedger/pkg/errors"
)

var march2025 = domain.Period{Year: 2025, Month: time.March}

func newInvoiceHandler() (*InvoiceHandler, *mockGenerator, *mockQueries) {
	gen, q := &mockGenerator{}, &mockQueries{}
	h := NewInvoiceHandler(gen, q, nil, testutil.NewMockLogger())
	h.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return h, gen, q
}

func sampleView() *domain.View {
	inv := &domain.Invoice{
		ID: 9, StoreID: 5, RenterID: 3,
		IssueDate:  march2025.IssueDate(),
		DueDate:    march2025.IssueDate().AddDate(0, 0, 7),
		Amount:     decimal.NewFromInt(1200),
		PaidAmount: decimal.NewFromInt(200),
	}
	v := domain.NewView(inv, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	return &v
}

func TestGenerateMonthly_ExplicitPeriod(t *testing.T) {
	h, gen, _ := newInvoiceHandler()
	gen.On("GenerateForPeriod", mock.Anything, march2025).
		Return(&appbilling.BatchResult{Period: "2025-03", Created: 2, Skipped: 1}, nil)

	w := do(t, http.HandlerFunc(h.GenerateMonthly), http.MethodPost, "/invoices/generate-monthly?period=2025-03", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[appbilling.BatchResult](t, w)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	gen.AssertExpectations(t)
}

func TestGenerateMonthly_DefaultsToCurrentPeriod(t *testing.T) {
	h, gen, _ := newInvoiceHandler()
	gen.On("GenerateForPeriod", mock.Anything, march2025).Return(&appbilling.BatchResult{Period: "2025-03"}, nil)

	w := do(t, http.HandlerFunc(h.GenerateMonthly), http.MethodPost, "/invoices/generate-monthly", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	gen.AssertExpectations(t)
}

func TestGenerateMonthly_InvalidPeriod(t *testing.T) {
	h, gen, _ := newInvoiceHandler()

	w := do(t, http.HandlerFunc(h.GenerateMonthly), http.MethodPost, "/invoices/generate-monthly?period=March", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeInvalidPeriod), decode[ErrorResponse](t, w).Code)
	gen.AssertNotCalled(t, "GenerateForPeriod", mock.Anything, mock.Anything)
}

func TestGenerateMonthly_CancelledReturnsPartial(t *testing.T) {
	h, gen, _ := newInvoiceHandler()
	gen.On("GenerateForPeriod", mock.Anything, march2025).
		Return(&appbilling.BatchResult{Period: "2025-03", Created: 1, Cancelled: true}, context.Canceled)

	w := do(t, http.HandlerFunc(h.GenerateMonthly), http.MethodPost, "/x?period=2025-03", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	res := decode[appbilling.BatchResult](t, w)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.Created)
}

func TestGenerateForStore_Created(t *testing.T) {
	h, gen, _ := newInvoiceHandler()
	gen.On("GenerateForStore", mock.Anything, int64(5), march2025.IssueDate()).
		Return(&appbilling.StoreOutcome{StoreID: 5, Period: "2025-03", Outcome: appbilling.OutcomeCreated}, nil)

	router := route(http.MethodPost, "/invoices/generate/{storeId}", h.GenerateForStore)
	w := do(t, router, http.MethodPost, "/invoices/generate/5?period=2025-03", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, appbilling.OutcomeCreated, decode[appbilling.StoreOutcome](t, w).Outcome)
}

func TestGenerateForStore_InvoiceDate(t *testing.T) {
	h, gen, _ := newInvoiceHandler()
	issue := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	gen.On("GenerateForStore", mock.Anything, int64(5), issue).
		Return(&appbilling.StoreOutcome{StoreID: 5, Outcome: appbilling.OutcomeSkippedExisting}, nil)

	router := route(http.MethodPost, "/invoices/generate/{storeId}", h.GenerateForStore)
	w := do(t, router, http.MethodPost, "/invoices/generate/5?invoiceDate=2025-03-10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, appbilling.OutcomeSkippedExisting, decode[appbilling.StoreOutcome](t, w).Outcome)
}

func TestGenerateForStore_Errors(t *testing.T) {
	router := func(h *InvoiceHandler) http.Handler {
		return route(http.MethodPost, "/invoices/generate/{storeId}", h.GenerateForStore)
	}

	t.Run("bad store id", func(t *testing.T) {
		h, _, _ := newInvoiceHandler()
		w := do(t, router(h), http.MethodPost, "/invoices/generate/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad invoice date", func(t *testing.T) {
		h, _, _ := newInvoiceHandler()
		w := do(t, router(h), http.MethodPost, "/invoices/generate/5?invoiceDate=10/03/2025", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown store", func(t *testing.T) {
		h, gen, _ := newInvoiceHandler()
		gen.On("GenerateForStore", mock.Anything, int64(77), mock.Anything).
			Return(nil, errors.New(errors.ErrCodeStoreNotFound, "unknown store").WithDetail("store_id=77"))
		w := do(t, router(h), http.MethodPost, "/invoices/generate/77", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, string(errors.ErrCodeStoreNotFound), resp.Code)
		assert.Equal(t, "store_id=77", resp.Detail)
	})

	t.Run("conflict", func(t *testing.T) {
		h, gen, _ := newInvoiceHandler()
		gen.On("GenerateForStore", mock.Anything, int64(5), mock.Anything).
			Return(nil, errors.New(errors.ErrCodeInvoiceConflict, "duplicate invoice identity"))
		w := do(t, router(h), http.MethodPost, "/invoices/generate/5", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("deadline in the chain", func(t *testing.T) {
		h, gen, _ := newInvoiceHandler()
		gen.On("GenerateForStore", mock.Anything, int64(5), mock.Anything).
			Return(nil, errors.Wrap(context.DeadlineExceeded, errors.ErrCodeDatabaseError, "select contracts"))
		w := do(t, router(h), http.MethodPost, "/invoices/generate/5", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestInvoiceGet(t *testing.T) {
	h, _, q := newInvoiceHandler()
	q.On("Get", mock.Anything, int64(9)).Return(sampleView(), nil)
	q.On("Get", mock.Anything, int64(10)).Return(nil, errors.New(errors.ErrCodeInvoiceNotFound, "invoice not found"))
	router := route(http.MethodGet, "/invoices/{id}", h.Get)

	w := do(t, router, http.MethodGet, "/invoices/9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "PendingCurrent", body["status"])
	assert.Equal(t, "1000", body["remaining"])
	assert.Equal(t, float64(5), body["store_id"])

	w = do(t, router, http.MethodGet, "/invoices/10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceLists(t *testing.T) {
	h, _, q := newInvoiceHandler()
	q.On("ListOverdue", mock.Anything).Return([]domain.View{*sampleView()}, nil)
	q.On("ListPending", mock.Anything).Return(nil, nil)
	q.On("ListByStore", mock.Anything, int64(5)).Return([]domain.View{*sampleView(), *sampleView()}, nil)
	q.On("ListByRenter", mock.Anything, int64(3)).Return(nil, errors.New(errors.ErrCodeDatabaseError, "boom"))

	r := chi.NewRouter()
	r.Get("/invoices/overdue", h.ListOverdue)
	r.Get("/invoices/pending", h.ListPending)
	r.Get("/stores/{storeId}/invoices", h.ListByStore)
	r.Get("/renters/{renterId}/invoices", h.ListByRenter)

	w := do(t, r, http.MethodGet, "/invoices/overdue", nil)
	assert.Equal(t, 1, int(decode[map[string]interface{}](t, w)["count"].(float64)))

	w = do(t, r, http.MethodGet, "/invoices/pending", nil)
	assert.JSONEq(t, `{"items":[],"count":0}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/stores/5/invoices", nil)
	assert.Equal(t, 2, int(decode[map[string]interface{}](t, w)["count"].(float64)))

	w = do(t, r, http.MethodGet, "/renters/3/invoices", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "database error", decode[ErrorResponse](t, w).Message)
}

type fakePaymentMetrics struct{ applied, rejected int }

func (f *fakePaymentMetrics) RecordPayment(applied bool) {
	if applied {
		f.applied++
	} else {
		f.rejected++
	}
}

func TestRecordPayment(t *testing.T) {
	h, _, q := newInvoiceHandler()
	metrics := &fakePaymentMetrics{}
	h.metrics = metrics
	amount250 := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(250)) })
	q.On("RecordPayment", mock.Anything, int64(9), amount250).Return(sampleView(), nil)
	q.On("RecordPayment", mock.Anything, int64(9), mock.Anything).
		Return(nil, errors.New(errors.ErrCodeInvalidAmount, "payment amount must be positive"))
	router := route(http.MethodPost, "/invoices/{id}/payments", h.RecordPayment)

	w := do(t, router, http.MethodPost, "/invoices/9/payments", map[string]string{"amount": "250.00"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/invoices/9/payments", map[string]string{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeInvalidAmount), decode[ErrorResponse](t, w).Code)

	w = do(t, router, http.MethodPost, "/invoices/9/payments", map[string]string{"amt": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	assert.Equal(t, 1, metrics.applied)
	assert.Equal(t, 1, metrics.rejected)
}

//Personal.AI order the ending
