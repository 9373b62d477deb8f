package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// PaymentMetrics counts recorded payments.
type PaymentMetrics interface {
	RecordPayment(applied bool)
}

// InvoiceHandler handles invoice generation, queries and payments.
type InvoiceHandler struct {
	generator appbilling.Generator
	queries   appbilling.QueryService
	metrics   PaymentMetrics
	logger    logging.Logger
	now       func() time.Time
}

// NewInvoiceHandler creates a new InvoiceHandler.  metrics may be nil.
func NewInvoiceHandler(generator appbilling.Generator, queries appbilling.QueryService, metrics PaymentMetrics, logger logging.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		generator: generator,
		queries:   queries,
		metrics:   metrics,
		logger:    orNop(logger).Named("invoice-handler"),
		now:       time.Now,
	}
}

// RecordPaymentRequest is the request body for recording a payment.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

// periodParam reads ?period=YYYY-MM, defaulting to the current period.
func (h *InvoiceHandler) periodParam(r *http.Request) (domain.Period, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return domain.PeriodOf(h.now().UTC()), nil
	}
	return domain.ParsePeriod(raw)
}

// GenerateMonthly handles POST /api/v1/invoices/generate-monthly?period=YYYY-MM.
// A cancelled run answers 503 with the partial result.
func (h *InvoiceHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	p, err := h.periodParam(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	result, err := h.generator.GenerateForPeriod(r.Context(), p)
	if err != nil {
		if result != nil && result.Cancelled {
			writeJSON(w, http.StatusServiceUnavailable, result)
			return
		}
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GenerateForStore handles POST /api/v1/invoices/generate/{storeId}.  The
// issue date comes from ?invoiceDate=YYYY-MM-DD, else from ?period, else the
// current period.  A created invoice answers 201; every other outcome 200.
func (h *InvoiceHandler) GenerateForStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "storeId")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	var issueDate time.Time
	if raw := r.URL.Query().Get("invoiceDate"); raw != "" {
		issueDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeAppError(w, r, h.logger, errors.New(errors.ErrCodeInvalidPeriod, "invoiceDate must be formatted YYYY-MM-DD").WithDetail(raw))
			return
		}
	} else {
		p, err := h.periodParam(r)
		if err != nil {
			writeAppError(w, r, h.logger, err)
			return
		}
		issueDate = p.IssueDate()
	}

	outcome, err := h.generator.GenerateForStore(r.Context(), storeID, issueDate)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if outcome.Outcome == appbilling.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, outcome)
}

// Get handles GET /api/v1/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	v, err := h.queries.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListByStore handles GET /api/v1/stores/{storeId}/invoices.
func (h *InvoiceHandler) ListByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "storeId")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.writeViews(w, r, func() ([]domain.View, error) { return h.queries.ListByStore(r.Context(), storeID) })
}

// ListByRenter handles GET /api/v1/renters/{renterId}/invoices.
func (h *InvoiceHandler) ListByRenter(w http.ResponseWriter, r *http.Request) {
	renterID, err := pathID(r, "renterId")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.writeViews(w, r, func() ([]domain.View, error) { return h.queries.ListByRenter(r.Context(), renterID) })
}

// ListOverdue handles GET /api/v1/invoices/overdue.
func (h *InvoiceHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	h.writeViews(w, r, func() ([]domain.View, error) { return h.queries.ListOverdue(r.Context()) })
}

// ListPending handles GET /api/v1/invoices/pending.
func (h *InvoiceHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.writeViews(w, r, func() ([]domain.View, error) { return h.queries.ListPending(r.Context()) })
}

// RecordPayment handles POST /api/v1/invoices/{id}/payments.
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	var req RecordPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	v, err := h.queries.RecordPayment(r.Context(), id, req.Amount)
	if h.metrics != nil {
		h.metrics.RecordPayment(err == nil)
	}
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *InvoiceHandler) writeViews(w http.ResponseWriter, r *http.Request, list func() ([]domain.View, error)) {
	views, err := list()
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if views == nil {
		views = []domain.View{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: views, Count: len(views)})
}

//Personal.AI order the ending
