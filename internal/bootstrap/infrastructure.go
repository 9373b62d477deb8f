// Package bootstrap assembles MallLedger's infrastructure clients and
// application services from configuration.  The API server, the worker and
// mallctl all build their object graph here.
package bootstrap

import (
	"fmt"

	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/redis"
	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/channels"
	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MallLedger/internal/interfaces/http/handlers"
)

// Infrastructure holds the process's external clients.  Optional clients are
// nil when their section is disabled.
type Infrastructure struct {
	DB        *postgres.Connection
	Redis     *redis.Client
	Producer  *kafka.Producer
	WhatsApp  *channels.WhatsApp
	SMS       *channels.SMS
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	logger logging.Logger
}

// OpenInfrastructure connects to every configured backend.  service labels
// the exported metrics.  On error everything opened so far is closed.
func OpenInfrastructure(cfg *config.Config, service string, logger logging.Logger) (*Infrastructure, error) {
	if logger == nil {
		logger = logging.Default()
	}
	infra := &Infrastructure{logger: logger}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics, service), logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	infra.Collector = collector
	infra.Metrics = prometheus.NewAppMetrics(collector)

	db, err := postgres.NewConnection(postgres.FromConfig(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	infra.DB = db

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Redis = rc
	}

	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		infra.Producer = p
	}

	n := cfg.Notifications
	if n.WhatsApp.Enabled {
		w, err := channels.NewWhatsApp(n.WhatsApp, n.DefaultRegion, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("whatsapp: %w", err)
		}
		infra.WhatsApp = w
	}
	if n.SMS.Enabled {
		s, err := channels.NewSMS(n.SMS, n.DefaultRegion, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("sms: %w", err)
		}
		infra.SMS = s
	}

	logger.Info("infrastructure initialized",
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("kafka", infra.Producer != nil),
		logging.Bool("whatsapp", infra.WhatsApp != nil),
		logging.Bool("sms", infra.SMS != nil))
	return infra, nil
}

// HealthCheckers lists the readiness checks of the opened backends.
func (i *Infrastructure) HealthCheckers() []handlers.HealthChecker {
	var checks []handlers.HealthChecker
	if i.DB != nil {
		checks = append(checks, handlers.CheckFunc{Component: "postgres", Fn: i.DB.HealthCheck})
	}
	if i.Redis != nil {
		checks = append(checks, handlers.CheckFunc{Component: "redis", Fn: i.Redis.HealthCheck})
	}
	return checks
}

// Close releases every client, producer first so in-flight events flush
// before the stores go away.  The first error is returned.
func (i *Infrastructure) Close() error {
	var first error
	keep := func(component string, err error) {
		if err == nil {
			return
		}
		i.logger.Warn("failed to close client", logging.String("component", component), logging.Err(err))
		if first == nil {
			first = err
		}
	}
	if i.Producer != nil {
		keep("kafka", i.Producer.Close())
		i.Producer = nil
	}
	if i.Redis != nil {
		keep("redis", i.Redis.Close())
		i.Redis = nil
	}
	if i.DB != nil {
		keep("postgres", i.DB.Close())
		i.DB = nil
	}
	return first
}

//Personal.AI order the ending
