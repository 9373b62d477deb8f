// Package billing is the recurring rent-billing engine: it turns active store
// contracts into exactly one invoice per store per calendar month and serves
// the invoice read side with derived payment state.
package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// ---------------------------------------------------------------------------
// Outcomes
// ---------------------------------------------------------------------------

// Outcome is what happened to one store in a generation run.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeSkippedExisting Outcome = "skipped_existing"
	OutcomeNoCoverage      Outcome = "no_coverage"
	OutcomeFailed          Outcome = "failed"
)

// StoreOutcome is the per-store result of a generation run.
type StoreOutcome struct {
	StoreID    int64            `json:"store_id"`
	Period     string           `json:"period"`
	Outcome    Outcome          `json:"outcome"`
	ContractID int64            `json:"contract_id,omitempty"`
	Invoice    *domain.Invoice  `json:"invoice,omitempty"`
	Anomaly    string           `json:"anomaly,omitempty"`
	Code       errors.ErrorCode `json:"code,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// BatchResult aggregates a GenerateForPeriod run.  No-coverage stores count as
// skipped.
type BatchResult struct {
	Period    string         `json:"period"`
	Created   int            `json:"created"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Conflicts int            `json:"conflicts"`
	Anomalies int            `json:"anomalies"`
	Cancelled bool           `json:"cancelled,omitempty"`
	Outcomes  []StoreOutcome `json:"outcomes"`
}

func (r *BatchResult) add(o StoreOutcome) {
	switch o.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeSkippedExisting, OutcomeNoCoverage:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
		if o.Code == errors.ErrCodeInvoiceConflict {
			r.Conflicts++
		}
	}
	if o.Anomaly != "" {
		r.Anomalies++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// EventPublisher announces generated invoices.  Publishing is best effort.
type EventPublisher interface {
	PublishInvoiceGenerated(ctx context.Context, inv *domain.Invoice) error
}

// Metrics records generation outcomes.
type Metrics interface {
	RecordInvoiceOutcome(outcome string)
}

// GeneratorConfig holds the billing policy.
type GeneratorConfig struct {
	GraceDays int
}

// DefaultGraceDays is the gap between issue date and due date.
const DefaultGraceDays = 7

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Generator produces rent invoices.
type Generator interface {
	// GenerateForPeriod generates invoices for every store with coverage in
	// p.  A failing store never aborts the batch.  When ctx is cancelled the
	// remaining stores are not processed and the partial result is returned
	// together with the context error.
	GenerateForPeriod(ctx context.Context, p domain.Period) (*BatchResult, error)

	// GenerateForStore generates the invoice of one store for the period
	// containing issueDate, stamped with issueDate.  Already-generated and
	// no-coverage are outcomes, not errors.
	GenerateForStore(ctx context.Context, storeID int64, issueDate time.Time) (*StoreOutcome, error)
}

type generatorImpl struct {
	invoices  domain.InvoiceRepository
	stores    leasing.StoreSource
	contracts leasing.ContractSource
	ledger    leasing.LedgerSource
	publisher EventPublisher
	metrics   Metrics
	logger    logging.Logger
	grace     time.Duration
	now       func() time.Time
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*generatorImpl)

// WithPublisher attaches an invoice event publisher.
func WithPublisher(p EventPublisher) GeneratorOption {
	return func(g *generatorImpl) { g.publisher = p }
}

// WithMetrics attaches an outcome recorder.
func WithMetrics(m Metrics) GeneratorOption {
	return func(g *generatorImpl) { g.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *generatorImpl) { g.now = now }
}

// NewGenerator constructs a Generator.
func NewGenerator(
	cfg GeneratorConfig,
	invoices domain.InvoiceRepository,
	stores leasing.StoreSource,
	contracts leasing.ContractSource,
	ledger leasing.LedgerSource,
	logger logging.Logger,
	opts ...GeneratorOption,
) Generator {
	if cfg.GraceDays < 0 {
		cfg.GraceDays = DefaultGraceDays
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	g := &generatorImpl{
		invoices:  invoices,
		stores:    stores,
		contracts: contracts,
		ledger:    ledger,
		logger:    logger.Named("invoice-generator"),
		grace:     time.Duration(cfg.GraceDays) * 24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateForPeriod implements Generator.
func (g *generatorImpl) GenerateForPeriod(ctx context.Context, p domain.Period) (*BatchResult, error) {
	if p.IsZero() {
		return nil, errors.New(errors.ErrCodeInvalidPeriod, "period is required")
	}
	storeIDs, err := g.contracts.StoresWithCoverage(ctx, p.Start(), p.End())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "list stores with coverage")
	}

	result := &BatchResult{Period: p.String(), Outcomes: make([]StoreOutcome, 0, len(storeIDs))}
	g.logger.Info("invoice generation started",
		logging.String("period", p.String()), logging.Int("stores", len(storeIDs)))

	for _, storeID := range storeIDs {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			g.logger.Warn("invoice generation cancelled",
				logging.String("period", p.String()), logging.Int("processed", len(result.Outcomes)))
			return result, err
		}
		outcome, err := g.generate(ctx, storeID, p.IssueDate())
		if err != nil {
			outcome = failedOutcome(storeID, p, err)
			g.record(OutcomeFailed)
			g.logger.Error("invoice generation failed for store",
				logging.Int64("store_id", storeID), logging.String("period", p.String()), logging.Err(err))
		}
		result.add(*outcome)
	}

	g.logger.Info("invoice generation finished",
		logging.String("period", p.String()),
		logging.Int("created", result.Created),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed))
	return result, nil
}

// GenerateForStore implements Generator.
func (g *generatorImpl) GenerateForStore(ctx context.Context, storeID int64, issueDate time.Time) (*StoreOutcome, error) {
	if storeID <= 0 {
		return nil, errors.InvalidParam("store id must be positive")
	}
	if issueDate.IsZero() {
		return nil, errors.New(errors.ErrCodeInvalidPeriod, "issue date is required")
	}
	outcome, err := g.generate(ctx, storeID, issueDate)
	if err != nil {
		g.record(OutcomeFailed)
		return nil, err
	}
	return outcome, nil
}

func (g *generatorImpl) generate(ctx context.Context, storeID int64, issueDate time.Time) (*StoreOutcome, error) {
	issueDate = domain.DateOf(issueDate)
	p := domain.PeriodOf(issueDate)
	out := &StoreOutcome{StoreID: storeID, Period: p.String()}

	if _, err := g.stores.GetStore(ctx, storeID); err != nil {
		return nil, err
	}

	existing, err := g.invoices.FindByStorePeriod(ctx, storeID, p)
	switch {
	case err == nil:
		out.Outcome = OutcomeSkippedExisting
		out.Invoice = existing
		out.Code = errors.ErrCodeAlreadyGenerated
		g.record(out.Outcome)
		return out, nil
	case !errors.IsNotFound(err):
		return nil, err
	}

	candidates, err := g.contracts.ActiveContractsCovering(ctx, storeID, p.Start(), p.End())
	if err != nil {
		return nil, err
	}
	contract, anomaly := selectContract(candidates, p, issueDate)
	if contract == nil {
		out.Outcome = OutcomeNoCoverage
		out.Code = errors.ErrCodeNoCoverage
		g.record(out.Outcome)
		g.logger.Info("no contract covers period",
			logging.Int64("store_id", storeID), logging.String("period", p.String()))
		return out, nil
	}
	out.ContractID = contract.ID
	if anomaly != "" {
		out.Anomaly = anomaly
		g.logger.Warn("overlapping contracts",
			logging.Int64("store_id", storeID),
			logging.String("period", p.String()),
			logging.String("candidates", anomaly),
			logging.Int64("selected_contract_id", contract.ID))
	}

	renter, err := g.stores.RenterForStore(ctx, storeID, contract.RenterID)
	if err != nil {
		return nil, err
	}
	offset, err := g.ledger.StandingDebitsFor(ctx, renter.ID)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invoice{
		StoreID:    storeID,
		RenterID:   renter.ID,
		IssueDate:  issueDate,
		DueDate:    issueDate.Add(g.grace),
		Amount:     contract.MonthlyRent,
		PaidAmount: offset,
		Notes:      fmt.Sprintf("Monthly rent %s, contract #%d", p, contract.ID),
		CreatedAt:  g.now().UTC(),
	}
	if err := g.invoices.Create(ctx, inv); err != nil {
		if errors.IsConflict(err) {
			g.logger.Error("duplicate invoice identity",
				logging.Int64("store_id", storeID), logging.String("period", p.String()), logging.Err(err))
			return nil, errors.Wrap(err, errors.ErrCodeInvoiceConflict,
				"invoice already exists for store and period; concurrent generation suspected").
				WithDetail(fmt.Sprintf("store=%d period=%s", storeID, p))
		}
		return nil, err
	}

	out.Outcome = OutcomeCreated
	out.Invoice = inv
	g.record(out.Outcome)
	g.logger.Info("invoice created",
		logging.Int64("invoice_id", inv.ID),
		logging.Int64("store_id", storeID),
		logging.String("period", p.String()),
		logging.String("amount", inv.Amount.StringFixed(2)),
		logging.String("offset", inv.PaidAmount.StringFixed(2)))

	if g.publisher != nil {
		if err := g.publisher.PublishInvoiceGenerated(ctx, inv); err != nil {
			g.logger.Warn("publish invoice event failed", logging.Int64("invoice_id", inv.ID), logging.Err(err))
		}
	}
	return out, nil
}

func (g *generatorImpl) record(o Outcome) {
	if g.metrics != nil {
		g.metrics.RecordInvoiceOutcome(string(o))
	}
}

func failedOutcome(storeID int64, p domain.Period, err error) *StoreOutcome {
	return &StoreOutcome{
		StoreID: storeID,
		Period:  p.String(),
		Outcome: OutcomeFailed,
		Code:    errors.GetCode(err),
		Error:   err.Error(),
	}
}

// selectContract picks the contract to bill.  Contracts covering the issue
// date win; ties go to the highest id.  When more than one contract was a
// candidate the returned anomaly lists their ids.
func selectContract(contracts []*leasing.StoreRentContract, p domain.Period, issueDate time.Time) (*leasing.StoreRentContract, string) {
	var candidates []*leasing.StoreRentContract
	for _, c := range contracts {
		if c != nil && c.IsActive() && c.Overlaps(p.Start(), p.End()) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, ""
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID > candidates[j].ID })

	chosen := candidates[0]
	for _, c := range candidates {
		if c.Covers(issueDate) {
			chosen = c
			break
		}
	}
	if len(candidates) == 1 {
		return chosen, ""
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = fmt.Sprintf("%d", c.ID)
	}
	return chosen, "overlapping contracts: " + strings.Join(ids, ",")
}

//Personal.AI order the ending
