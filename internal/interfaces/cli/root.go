// Package cli implements mallctl, the operator command line for MallLedger.
// Commands run the same application services as the API server directly
// against the configured database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/MallLedger/internal/application/alerting"
	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/config"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
}

// ScanRunner runs named finding scanners; no names means all of them.
type ScanRunner interface {
	Run(ctx context.Context, names ...string) ([]*alerting.ScanReport, error)
}

// MigrationRunner is the schema migration surface used by the migrate
// subcommands.
type MigrationRunner interface {
	Up() error
	Down(steps int) error
	Status() (postgres.MigrationState, error)
	Force(version int) error
}

// Services are the application services a command may use.  Close releases
// whatever the factory opened.
type Services struct {
	Generator appbilling.Generator
	Invoices  appbilling.QueryService
	Scans     ScanRunner
	Inbox     inbox.Service
	Close     func() error
}

// Dependencies builds services on demand, after flags and configuration are
// resolved.  Commands that never touch the database never open it.
type Dependencies struct {
	Services func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Services, error)
	Migrator func(cfg *config.Config) MigrationRunner
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	deps     Dependencies
	services *Services
}

// Services opens the application services once per invocation.
func (c *CLIContext) Services(ctx context.Context) (*Services, error) {
	if c.services != nil {
		return c.services, nil
	}
	if c.deps.Services == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "command requires service dependencies")
	}
	svc, err := c.deps.Services(ctx, c.Config, c.Logger)
	if err != nil {
		return nil, err
	}
	c.services = svc
	return svc, nil
}

// Migrator returns the schema migrator for the configured database.
func (c *CLIContext) Migrator() (MigrationRunner, error) {
	if c.deps.Migrator == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "command requires a migrator")
	}
	return c.deps.Migrator(c.Config), nil
}

func (c *CLIContext) close() {
	if c.services != nil && c.services.Close != nil {
		if err := c.services.Close(); err != nil {
			c.Logger.Warn("failed to release services", logging.Err(err))
		}
	}
	c.services = nil
}

// NewRootCommand creates the root cobra command with all global flags and
// subcommands.
func NewRootCommand(deps Dependencies) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "mallctl",
		Short:   "MallLedger operator CLI",
		Long:    "mallctl generates rent invoices, runs notification scans and manages the\nMallLedger schema from the command line.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: MALL_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "global operation timeout")

	cmd.AddCommand(
		NewInvoiceCmd(),
		NewScanCmd(),
		NewNotificationCmd(),
		NewMigrateCmd(),
	)

	return cmd
}

// persistentPreRun initializes config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps Dependencies) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return fmt.Errorf("invalid output format %q (must be text, json or table)", opts.OutputFormat)
	}

	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
		deps:         deps,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initLogger creates a console logger on stderr so that stdout stays
// machine-readable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", opts.LogLevel)
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.InvalidParam("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.InvalidParam("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext bounds a command by the global timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc, *CLIContext, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := cmd.Context()
	if cliCtx.Timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, cliCtx, nil
	}
	ctx, cancel := context.WithTimeout(ctx, cliCtx.Timeout)
	return ctx, cancel, cliCtx, nil
}

// runWithServices opens the services, runs fn under the command timeout and
// releases the services whatever fn returns.
func runWithServices(cmd *cobra.Command, fn func(ctx context.Context, cliCtx *CLIContext, svc *Services) error) error {
	ctx, cancel, cliCtx, err := commandContext(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	svc, err := cliCtx.Services(ctx)
	if err != nil {
		return err
	}
	defer cliCtx.close()
	return fn(ctx, cliCtx, svc)
}

// Execute is the main entry point for mallctl.  SIGINT and SIGTERM cancel the
// running command, which then reports whatever it completed.
func Execute(deps Dependencies) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand(deps)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// tableProvider is implemented by results that render as a table.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "json"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}

	switch format {
	case "json":
		return printJSON(cmd, data)
	case "table":
		if tp, ok := data.(tableProvider); ok {
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
			return nil
		}
		return printText(cmd, data)
	default:
		return printText(cmd, data)
	}
}

// marshalList encodes a nil slice as [] rather than null.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printText outputs a human summary when data has one, else its table.
func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	case tableProvider:
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(v.TableHeaders(), v.TableRows()))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, colWidths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(colWidths))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending
