// API server entry point for MallLedger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/MallLedger/internal/bootstrap"
	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/MallLedger/internal/interfaces/http"
	"github.com/turtacn/MallLedger/internal/interfaces/http/handlers"
	"github.com/turtacn/MallLedger/internal/interfaces/http/middleware"
)

// Build-time variable injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MALL_* environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("api server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	logger.Info("starting MallLedger API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.String("dispatch_mode", cfg.Notifications.DispatchMode))

	infra, err := bootstrap.OpenInfrastructure(cfg, "apiserver", logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	if cfg.Database.AutoMigrate {
		if err := infra.DB.RunMigrations(cfg.Database.MigrationPath); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("database migrated", logging.String("path", cfg.Database.MigrationPath))
	}

	svc, err := bootstrap.BuildServices(cfg, infra, logger)
	if err != nil {
		return err
	}

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			policy, err := next.Policy()
			if err != nil {
				logger.Warn("ignoring notification policy change", logging.Err(err))
				return
			}
			svc.Policy.Update(policy)
			logger.Info("notification policy reloaded")
		}, func(err error) {
			logger.Warn("configuration change rejected", logging.Err(err))
		})
		if err != nil {
			logger.Warn("configuration hot reload disabled", logging.Err(err))
		}
	}

	// a disabled channel must stay an untyped nil
	var whatsapp, sms handlers.BulkSender
	if infra.WhatsApp != nil {
		whatsapp = infra.WhatsApp
	}
	if infra.SMS != nil {
		sms = infra.SMS
	}

	routerCfg := httpserver.RouterConfig{
		InvoiceHandler:      handlers.NewInvoiceHandler(svc.Generator, svc.Invoices, infra.Metrics, logger),
		NotificationHandler: handlers.NewNotificationHandler(svc.Scans, svc.Inbox, logger),
		MessagingHandler:    handlers.NewMessagingHandler(whatsapp, sms, logger),
		HealthHandler:       handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logging: middleware.LoggingConfig{
			SkipPaths:     []string{"/healthz", "/readyz", cfg.Metrics.Path},
			SlowThreshold: cfg.Server.SlowThreshold,
		},
		HTTPMetrics: infra.Metrics,
		Logger:      logger,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = infra.Collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if cfg.Server.TriggerRate > 0 {
		routerCfg.TriggerLimiter = middleware.NewTokenBucketLimiter(cfg.Server.TriggerRate, cfg.Server.TriggerBurst)
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

//Personal.AI order the ending
