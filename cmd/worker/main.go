// Worker entry point for MallLedger.  The worker runs the periodic batches
// (monthly invoicing, notification scans, retention purge) and, in queued
// dispatch mode, consumes notification.dispatch events and fans them out to
// the messaging channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MallLedger/internal/application/scheduler"
	"github.com/turtacn/MallLedger/internal/bootstrap"
	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/redis"
	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/MallLedger/internal/interfaces/http"
	"github.com/turtacn/MallLedger/internal/interfaces/http/handlers"
)

const (
	billingCheckInterval = time.Hour
	purgeInterval        = 24 * time.Hour
	topicSetupTimeout    = 30 * time.Second
	healthShutdown       = 5 * time.Second
)

// Build-time variable injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MALL_* environment only)")
	noSchedule := flag.Bool("no-schedule", false, "do not run the periodic batches")
	noConsume := flag.Bool("no-consume", false, "do not consume queued dispatch events")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	schedule := cfg.Scheduler.Enabled && !*noSchedule
	consume := cfg.Notifications.DispatchMode == config.DispatchQueued && !*noConsume
	if err := run(cfg, schedule, consume, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, schedule, consume bool, logger logging.Logger) error {
	logger.Info("starting MallLedger worker",
		logging.String("version", version),
		logging.Bool("scheduler", schedule),
		logging.Bool("dispatch_consumer", consume))
	if !schedule && !consume {
		logger.Warn("nothing to run; serving health endpoints only")
	}

	infra, err := bootstrap.OpenInfrastructure(cfg, "worker", logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := bootstrap.BuildServices(cfg, infra, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var consumer *kafka.Consumer
	if consume {
		if consumer, err = startDispatchConsumer(ctx, cfg, svc, logger); err != nil {
			return err
		}
		defer consumer.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	if schedule {
		sched, err := newScheduler(cfg, infra, svc, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Start(gctx) })
	}

	health := newHealthServer(cfg, infra, logger)
	g.Go(health.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("worker shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), healthShutdown)
		defer cancel()
		return health.Shutdown(sctx)
	})

	err = g.Wait()
	if consumer != nil {
		logger.Info("dispatch consumer stopped",
			logging.Int64("processed", consumer.Processed()),
			logging.Int64("dead_lettered", consumer.DeadLettered()))
	}
	logger.Info("MallLedger worker stopped")
	return err
}

// newScheduler registers the periodic batches.  Without Redis the batches
// run unguarded, which is only safe with a single worker.
func newScheduler(cfg *config.Config, infra *bootstrap.Infrastructure, svc *bootstrap.Services, logger logging.Logger) (*scheduler.Scheduler, error) {
	var locks scheduler.LockProvider
	if infra.Redis != nil {
		factory := redis.NewLockFactory(infra.Redis, logger)
		ttl := cfg.Scheduler.LockTTL
		locks = func(name string) scheduler.Mutex {
			return factory.NewMutex(name, redis.WithLockTTL(ttl), redis.WithWatchdog(true))
		}
	} else {
		logger.Warn("redis disabled; scheduled batches are not guarded against other workers")
	}

	s := scheduler.New(locks, logger, scheduler.WithMetrics(infra.Metrics))
	for _, j := range []scheduler.Job{
		scheduler.MonthlyBillingJob(svc.Generator, cfg.Scheduler.BillingDay, billingCheckInterval, logger),
		scheduler.ScanJob(svc.Scans, cfg.Scheduler.ScanInterval, logger),
		scheduler.PurgeJob(svc.Inbox, purgeInterval, logger),
	} {
		if err := s.Add(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// startDispatchConsumer makes sure the topics exist and starts consuming
// notification.dispatch.  Channel failures are logged by the router and never
// redelivered: a retry would resend the channels that succeeded.
func startDispatchConsumer(ctx context.Context, cfg *config.Config, svc *bootstrap.Services, logger logging.Logger) (*kafka.Consumer, error) {
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka topic manager: %w", err)
	}
	tctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	err = tm.EnsureDefaultTopics(tctx)
	cancel()
	_ = tm.Close()
	if err != nil {
		return nil, fmt.Errorf("kafka topics: %w", err)
	}

	consumer, err := kafka.NewConsumer(kafka.DispatchConsumerConfig(cfg.Kafka), logger)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Subscribe(kafka.TopicNotificationDispatch, kafka.NewDispatchHandler(
		func(ctx context.Context, n *notification.Notification) error {
			report := svc.Router.Dispatch(ctx, n)
			logger.Debug("dispatched queued notification",
				logging.Int64("notification_id", n.ID),
				logging.Int("sent", report.Sent),
				logging.Int("failed", report.Failed))
			return nil
		}, logger))
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return nil, err
	}
	return consumer, nil
}

// newHealthServer exposes liveness, readiness and metrics on the scheduler's
// health port.
func newHealthServer(cfg *config.Config, infra *bootstrap.Infrastructure, logger logging.Logger) *httpserver.Server {
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logger:           logger,
		MetricsCollector: infra.Collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	return httpserver.NewServer(config.ServerConfig{
		Port:            cfg.Scheduler.HealthPort,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: healthShutdown,
	}, router, logger)
}

//Personal.AI order the ending
