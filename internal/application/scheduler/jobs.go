package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
)

// Job names.
const (
	JobMonthlyBilling = "monthly-billing"
	JobScans          = "notification-scans"
	JobPurge          = "notification-purge"
)

// Scanner runs every notification scanner.
type Scanner interface {
	RunAll(ctx context.Context) ([]*alerting.ScanReport, error)
}

// MonthlyBillingJob generates the current period's invoices once the billing
// day has been reached.  A period whose run had store failures is retried on
// the next tick; generation skips the stores already invoiced.
func MonthlyBillingJob(gen appbilling.Generator, billingDay int, interval time.Duration, logger logging.Logger) Job {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := &monthlyBilling{gen: gen, day: billingDay, logger: logger.Named(JobMonthlyBilling)}
	return Job{Name: JobMonthlyBilling, Interval: interval, Key: b.key, Run: b.run}
}

type monthlyBilling struct {
	gen    appbilling.Generator
	day    int
	logger logging.Logger

	mu   sync.Mutex
	done domain.Period
}

func (b *monthlyBilling) key(now time.Time) string {
	if now.Day() < b.day {
		return ""
	}
	p := domain.PeriodOf(now)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == p {
		return ""
	}
	return p.String()
}

func (b *monthlyBilling) run(ctx context.Context, now time.Time) error {
	p := domain.PeriodOf(now)
	res, err := b.gen.GenerateForPeriod(ctx, p)
	if err != nil {
		return err
	}
	b.logger.Info("monthly billing run",
		logging.String("period", res.Period),
		logging.Int("created", res.Created),
		logging.Int("skipped", res.Skipped),
		logging.Int("failed", res.Failed),
		logging.Int("anomalies", res.Anomalies))
	if res.Failed > 0 {
		return fmt.Errorf("period %s: %d stores failed", res.Period, res.Failed)
	}
	b.mu.Lock()
	b.done = p
	b.mu.Unlock()
	return nil
}

// ScanJob runs every notification scanner each interval.  Overlapping runs
// on two workers are harmless; the writer suppresses duplicates.
func ScanJob(scans Scanner, interval time.Duration, logger logging.Logger) Job {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named(JobScans)
	return Job{
		Name:     JobScans,
		Interval: interval,
		Key:      func(time.Time) string { return "all" },
		Run: func(ctx context.Context, _ time.Time) error {
			reports, err := scans.RunAll(ctx)
			failed, broken := 0, 0
			for _, r := range reports {
				failed += r.Failed
				if r.Error != "" {
					broken++
				}
				logger.Info("scan pass",
					logging.String("scanner", r.Scanner),
					logging.Int("findings", r.Findings),
					logging.Int("raised", r.Raised),
					logging.Int("suppressed", r.Suppressed),
					logging.Int("sent", r.Sent),
					logging.Int("send_failed", r.SendFailed))
			}
			if err != nil {
				return err
			}
			if broken > 0 {
				return fmt.Errorf("%d scanners failed, %d findings could not be written", broken, failed)
			}
			if failed > 0 {
				return fmt.Errorf("%d findings could not be written", failed)
			}
			return nil
		},
	}
}

// Purger deletes read notifications past their retention.
type Purger interface {
	Purge(ctx context.Context) (inbox.PurgeResult, error)
}

// PurgeJob applies the inbox retention once per day.
func PurgeJob(purger Purger, interval time.Duration, logger logging.Logger) Job {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named(JobPurge)
	return Job{
		Name:     JobPurge,
		Interval: interval,
		Key:      func(now time.Time) string { return now.UTC().Format("2006-01-02") },
		Run: func(ctx context.Context, _ time.Time) error {
			res, err := purger.Purge(ctx)
			if err != nil {
				return err
			}
			logger.Info("notifications purged", logging.Int64("deleted", res.Total()))
			return nil
		},
	}
}

//Personal.AI order the ending
