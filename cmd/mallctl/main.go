// Command mallctl is the MallLedger operator CLI.
package main

import (
	"context"
	"os"

	"github.com/turtacn/MallLedger/internal/bootstrap"
	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	deps := cli.Dependencies{
		Services: openServices,
		Migrator: func(cfg *config.Config) cli.MigrationRunner {
			return postgres.NewMigrator(cfg.Database.MigrationPath, postgres.FromConfig(cfg.Database).URL())
		},
	}
	if err := cli.Execute(deps); err != nil {
		os.Exit(1)
	}
}

func openServices(_ context.Context, cfg *config.Config, logger logging.Logger) (*cli.Services, error) {
	infra, err := bootstrap.OpenInfrastructure(cfg, "mallctl", logger)
	if err != nil {
		return nil, err
	}
	svc, err := bootstrap.BuildServices(cfg, infra, logger)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return &cli.Services{
		Generator: svc.Generator,
		Invoices:  svc.Invoices,
		Scans:     svc.Scans,
		Inbox:     svc.Inbox,
		Close:     infra.Close,
	}, nil
}

//Personal.AI order the ending
