package bootstrap

import (
	"time"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/domain/workforce"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/redis"
	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/prometheus"
)

// eventSource stamps every event this process publishes.
const eventSource = "mallledger"

// Stores are the domain data sources the services read from.
type Stores struct {
	Invoices      billing.InvoiceRepository
	Notifications notification.Repository
	Leasing       interface {
		leasing.StoreSource
		leasing.ContractSource
		leasing.LedgerSource
	}
	Workforce interface {
		workforce.EmployeeSource
		workforce.EmploymentContractSource
		workforce.AttendanceSource
	}
}

// Services is the application layer of one process.
type Services struct {
	Policy    *alerting.PolicyHolder
	Generator appbilling.Generator
	Invoices  appbilling.QueryService
	Scans     *alerting.ScanService
	Router    *alerting.Router
	Inbox     inbox.Service

	// Events is nil when Kafka is disabled.
	Events *kafka.EventPublisher
}

// Metrics is everything the services record.
type Metrics interface {
	appbilling.Metrics
	alerting.DispatchMetrics
	alerting.FindingMetrics
	CacheMetrics
	PublishMetrics
}

// Options are the pieces of a Services graph that differ between the
// production wiring and tests.
type Options struct {
	Stores   Stores
	Cache    inbox.CountCache
	Producer kafka.Publisher
	Senders  map[notification.Channel]alerting.Sender
	Metrics  Metrics
	Now      func() time.Time
}

// PostgresStores binds the repositories to the open connection.
func PostgresStores(infra *Infrastructure, logger logging.Logger) Stores {
	return Stores{
		Invoices:      repositories.NewPostgresInvoiceRepo(infra.DB, logger),
		Notifications: repositories.NewPostgresNotificationRepo(infra.DB, logger),
		Leasing:       repositories.NewLeasingRepo(infra.DB, logger),
		Workforce:     repositories.NewWorkforceRepo(infra.DB, logger),
	}
}

// BuildServices wires the application services over infra.
func BuildServices(cfg *config.Config, infra *Infrastructure, logger logging.Logger) (*Services, error) {
	opts := Options{
		Stores:  PostgresStores(infra, logger),
		Senders: make(map[notification.Channel]alerting.Sender),
		Metrics: infra.Metrics,
	}
	if infra.Redis != nil {
		opts.Cache = redis.NewUnreadCountCache(infra.Redis, cfg.Redis.UnreadCountTTL, logger)
	}
	if infra.Producer != nil {
		opts.Producer = infra.Producer
	}
	// a typed nil in the map would read as an enabled channel
	if infra.WhatsApp != nil {
		opts.Senders[notification.ChannelWhatsApp] = infra.WhatsApp
	}
	if infra.SMS != nil {
		opts.Senders[notification.ChannelSMS] = infra.SMS
	}
	return NewServices(cfg, opts, logger)
}

// NewServices assembles the services from explicit parts.
func NewServices(cfg *config.Config, opts Options, logger logging.Logger) (*Services, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var metrics Metrics = noopMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	holder := alerting.NewPolicyHolder(policy)
	classifier := alerting.NewSeverityClassifier(holder)
	st := opts.Stores

	svc := &Services{Policy: holder}

	var cache inbox.CountCache
	publishers := alerting.Publishers{}
	if opts.Cache != nil {
		cache = countedCache{CountCache: opts.Cache, metrics: metrics}
		if p, ok := opts.Cache.(alerting.NotificationPublisher); ok {
			publishers = append(publishers, p)
		}
	}
	genOpts := []appbilling.GeneratorOption{appbilling.WithMetrics(metrics), appbilling.WithClock(opts.Now)}
	if opts.Producer != nil {
		svc.Events = kafka.NewEventPublisher(countedPublisher{next: opts.Producer, metrics: metrics}, eventSource)
		publishers = append(publishers, svc.Events)
		genOpts = append(genOpts, appbilling.WithPublisher(svc.Events))
	}

	svc.Generator = appbilling.NewGenerator(
		appbilling.GeneratorConfig{GraceDays: cfg.Billing.GraceDays},
		st.Invoices, st.Leasing, st.Leasing, st.Leasing, logger, genOpts...)
	svc.Invoices = appbilling.NewQueryService(st.Invoices, logger, opts.Now)
	svc.Inbox = inbox.NewService(st.Notifications, cache, holder, logger, opts.Now)

	directory := alerting.NewDirectory(st.Workforce, st.Leasing)
	svc.Router = alerting.NewRouter(holder, opts.Senders, directory, metrics, logger)

	var dispatcher alerting.Dispatcher = svc.Router
	if cfg.Notifications.DispatchMode == config.DispatchQueued {
		if svc.Events != nil {
			dispatcher = alerting.NewQueuedDispatcher(svc.Events, logger)
		} else {
			logger.Warn("queued dispatch needs kafka; dispatching inline")
		}
	}

	var publisher alerting.NotificationPublisher
	if len(publishers) > 0 {
		publisher = publishers
	}
	writer := alerting.NewWriter(st.Notifications, publisher, logger, opts.Now)
	scanners := []alerting.Scanner{
		alerting.NewContractExpiryScanner(classifier, st.Workforce, st.Workforce, st.Leasing, st.Leasing, logger),
		alerting.NewPaymentOverdueScanner(classifier, st.Invoices, st.Leasing, logger),
		alerting.NewAbsenceScanner(classifier, st.Workforce, st.Workforce, logger),
		alerting.NewAbsenceLimitScanner(classifier, st.Workforce, st.Workforce, logger),
	}
	svc.Scans = alerting.NewScanService(scanners, writer, dispatcher, metrics, logger, opts.Now)

	logger.Info("services assembled",
		logging.String("dispatch_mode", cfg.Notifications.DispatchMode),
		logging.Int("channels", len(opts.Senders)),
		logging.Bool("unread_cache", cache != nil),
		logging.Bool("events", svc.Events != nil))
	return svc, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordInvoiceOutcome(string)        {}
func (noopMetrics) RecordChannelSend(string, string)   {}
func (noopMetrics) RecordFinding(string, string)       {}
func (noopMetrics) RecordCacheAccess(string, bool)     {}
func (noopMetrics) RecordEventPublished(string, error) {}

var _ Metrics = (*prometheus.AppMetrics)(nil)

//Personal.AI order the ending
