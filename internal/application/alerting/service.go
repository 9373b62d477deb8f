package alerting

import (
	"context"
	"time"

	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// Scan groups exposed by the trigger endpoints.
var (
	GroupContracts  = []string{ScannerContractExpiry}
	GroupPayments   = []string{ScannerPaymentOverdue}
	GroupAttendance = []string{ScannerAbsence, ScannerAbsenceLimit}
)

// FindingMetrics counts findings by writer outcome.
type FindingMetrics interface {
	RecordFinding(findingType, status string)
}

// ScanReport is the user-visible result of one scanner pass.
type ScanReport struct {
	Scanner    string           `json:"scanner"`
	Findings   int              `json:"findings"`
	Raised     int              `json:"raised"`
	Suppressed int              `json:"suppressed"`
	Superseded int              `json:"superseded"`
	Failed     int              `json:"failed"`
	Sent       int              `json:"sent"`
	SendFailed int              `json:"send_failed"`
	Cancelled  bool             `json:"cancelled,omitempty"`
	Error      string           `json:"error,omitempty"`
	Failures   []SubjectFailure `json:"failures,omitempty"`
	Duration   string           `json:"duration"`
}

// ScanService runs scanners through the writer and the dispatcher.
type ScanService struct {
	scanners   []Scanner
	byName     map[string]Scanner
	writer     *Writer
	dispatcher Dispatcher
	metrics    FindingMetrics
	logger     logging.Logger
	now        func() time.Time
}

// NewScanService wires scanners to writer and dispatcher.  dispatcher and
// metrics may be nil.
func NewScanService(scanners []Scanner, writer *Writer, dispatcher Dispatcher, metrics FindingMetrics, logger logging.Logger, now func() time.Time) *ScanService {
	if now == nil {
		now = time.Now
	}
	s := &ScanService{
		scanners:   scanners,
		byName:     make(map[string]Scanner, len(scanners)),
		writer:     writer,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     orNop(logger).Named("scan-service"),
		now:        now,
	}
	for _, sc := range scanners {
		s.byName[sc.Name()] = sc
	}
	return s
}

// Names lists the registered scanners in run order.
func (s *ScanService) Names() []string {
	names := make([]string, len(s.scanners))
	for i, sc := range s.scanners {
		names[i] = sc.Name()
	}
	return names
}

// Run executes the named scanners in order.  A scanner that fails is noted in
// its report and the run moves on; only a cancelled context stops the run,
// returning the reports for the passes already made with the error.
func (s *ScanService) Run(ctx context.Context, names ...string) ([]*ScanReport, error) {
	if len(names) == 0 {
		names = s.Names()
	}
	reports := make([]*ScanReport, 0, len(names))
	for _, name := range names {
		sc, ok := s.byName[name]
		if !ok {
			return reports, errors.InvalidParam("unknown scanner").WithDetail(name)
		}
		report, err := s.runOne(ctx, sc)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// RunAll executes every scanner.
func (s *ScanService) RunAll(ctx context.Context) ([]*ScanReport, error) {
	return s.Run(ctx)
}

func (s *ScanService) runOne(ctx context.Context, sc Scanner) (*ScanReport, error) {
	start := time.Now()
	report := &ScanReport{Scanner: sc.Name()}
	defer func() { report.Duration = time.Since(start).String() }()

	out, scanErr := sc.Scan(ctx, s.now())
	if out != nil {
		report.Findings = len(out.Findings)
		report.Failures = append(report.Failures, out.Failures...)
		report.Failed = len(out.Failures)
	}
	if scanErr != nil && ctx.Err() == nil {
		report.Error = scanErr.Error()
		s.logger.Error("scan failed", logging.String("scanner", sc.Name()), logging.Err(scanErr))
	}

	if out != nil {
		for _, f := range out.Findings {
			if err := ctx.Err(); err != nil {
				break
			}
			s.handle(ctx, f, report)
		}
	}

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		s.logger.Warn("scan cancelled", logging.String("scanner", sc.Name()))
		return report, err
	}
	if report.Error != "" {
		return report, nil
	}
	s.logger.Info("scan finished",
		logging.String("scanner", sc.Name()),
		logging.Int("findings", report.Findings),
		logging.Int("raised", report.Raised),
		logging.Int("suppressed", report.Suppressed),
		logging.Int("failed", report.Failed))
	return report, nil
}

func (s *ScanService) handle(ctx context.Context, f Finding, report *ScanReport) {
	res, err := s.writer.Write(ctx, f)
	if err != nil {
		report.Failed++
		report.Failures = append(report.Failures, SubjectFailure{EntityType: f.EntityType, EntityID: f.EntityID, Error: err.Error()})
		s.count(f, "failed")
		s.logger.Error("notification write failed", logging.String("identity", f.Identity().String()), logging.Err(err))
		return
	}
	s.count(f, string(res.Status))

	switch res.Status {
	case WriteSuppressed:
		report.Suppressed++
		return
	case WriteSuperseded:
		report.Superseded++
	}
	report.Raised++

	if s.dispatcher == nil {
		return
	}
	d := s.dispatcher.Dispatch(ctx, res.Notification)
	report.Sent += d.Sent
	report.SendFailed += d.Failed
}

func (s *ScanService) count(f Finding, status string) {
	if s.metrics != nil {
		s.metrics.RecordFinding(string(f.Type), status)
	}
}

//Personal.AI order the ending
