package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	appbilling "github.com/turtacn/MallLedger/internal/application/billing"
	domain "github.com/turtacn/MallLedger/internal/domain/billing"
)

// NewInvoiceCmd returns the mallctl invoice subcommand.
func NewInvoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Generate and inspect rent invoices",
	}
	cmd.AddCommand(
		newGenerateCmd(),
		newGenerateStoreCmd(),
		newListInvoicesCmd("list-overdue", "List unpaid invoices past their due date", appbilling.QueryService.ListOverdue),
		newListInvoicesCmd("list-pending", "List unpaid invoices not yet due", appbilling.QueryService.ListPending),
	)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate invoices for every store with rental coverage in a period",
		Long: `Generate one invoice per store for the billing period.  Stores that
already have an invoice for the period are skipped; a failing store never
aborts the run.  Interrupting the command reports the stores completed so far.`,
		Example: "  mallctl invoice generate --period 2025-03",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolvePeriod(period, time.Now())
			if err != nil {
				return err
			}
			return runWithServices(cmd, func(ctx context.Context, cliCtx *CLIContext, svc *Services) error {
				res, err := svc.Generator.GenerateForPeriod(ctx, p)
				if res != nil {
					if perr := PrintResult(cmd, batchOutput{res}); perr != nil {
						return perr
					}
				}
				if err != nil {
					if isCancellation(err) && res != nil {
						return fmt.Errorf("generation interrupted after %d stores: %w", len(res.Outcomes), err)
					}
					return err
				}
				if res.Failed > 0 {
					return fmt.Errorf("%d stores failed", res.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "billing period YYYY-MM (default: current month)")
	return cmd
}

func newGenerateStoreCmd() *cobra.Command {
	var (
		period      string
		invoiceDate string
	)

	cmd := &cobra.Command{
		Use:     "generate-store STORE_ID",
		Short:   "Generate the invoice of a single store",
		Args:    cobra.ExactArgs(1),
		Example: "  mallctl invoice generate-store 12 --invoice-date 2025-03-10",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || storeID <= 0 {
				return fmt.Errorf("invalid store id %q", args[0])
			}
			if period != "" && invoiceDate != "" {
				return fmt.Errorf("--period and --invoice-date are mutually exclusive")
			}

			var issue time.Time
			if invoiceDate != "" {
				if issue, err = time.Parse("2006-01-02", invoiceDate); err != nil {
					return fmt.Errorf("invalid --invoice-date %q (want YYYY-MM-DD)", invoiceDate)
				}
			} else {
				p, err := resolvePeriod(period, time.Now())
				if err != nil {
					return err
				}
				issue = p.IssueDate()
			}

			return runWithServices(cmd, func(ctx context.Context, cliCtx *CLIContext, svc *Services) error {
				out, err := svc.Generator.GenerateForStore(ctx, storeID, issue)
				if err != nil {
					return err
				}
				return PrintResult(cmd, outcomeOutput{out})
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "billing period YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&invoiceDate, "invoice-date", "", "explicit issue date YYYY-MM-DD")
	return cmd
}

func newListInvoicesCmd(use, short string, list func(appbilling.QueryService, context.Context) ([]domain.View, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, cliCtx *CLIContext, svc *Services) error {
				views, err := list(svc.Invoices, ctx)
				if err != nil {
					return err
				}
				return PrintResult(cmd, invoiceList(views))
			})
		},
	}
}

// resolvePeriod parses raw, defaulting to the period containing now.
func resolvePeriod(raw string, now time.Time) (domain.Period, error) {
	if raw == "" {
		return domain.PeriodOf(now), nil
	}
	p, err := domain.ParsePeriod(raw)
	if err != nil {
		return domain.Period{}, fmt.Errorf("invalid --period %q (want YYYY-MM)", raw)
	}
	return p, nil
}

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

type batchOutput struct{ *appbilling.BatchResult }

func (b batchOutput) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Period %s: %d created, %d skipped, %d failed", b.Period, b.Created, b.Skipped, b.Failed)
	if b.Conflicts > 0 {
		fmt.Fprintf(&sb, ", %d conflicts", b.Conflicts)
	}
	if b.Anomalies > 0 {
		fmt.Fprintf(&sb, ", %d anomalies", b.Anomalies)
	}
	if b.Cancelled {
		sb.WriteString(" (cancelled)")
	}
	for _, o := range b.Outcomes {
		if o.Outcome == appbilling.OutcomeFailed {
			fmt.Fprintf(&sb, "\n  store %d: %s", o.StoreID, o.Error)
		}
	}
	return sb.String()
}

func (b batchOutput) TableHeaders() []string {
	return []string{"STORE", "OUTCOME", "INVOICE", "AMOUNT", "NOTE"}
}

func (b batchOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		rows = append(rows, outcomeRow(o))
	}
	return rows
}

type outcomeOutput struct{ *appbilling.StoreOutcome }

func (o outcomeOutput) String() string {
	if o.Invoice != nil {
		return fmt.Sprintf("Store %d (%s): %s invoice %d for %s", o.StoreID, o.Period, o.Outcome, o.Invoice.ID, o.Invoice.Amount.StringFixed(2))
	}
	return fmt.Sprintf("Store %d (%s): %s", o.StoreID, o.Period, o.Outcome)
}

func (o outcomeOutput) TableHeaders() []string { return batchOutput{}.TableHeaders() }

func (o outcomeOutput) TableRows() [][]string { return [][]string{outcomeRow(*o.StoreOutcome)} }

func outcomeRow(o appbilling.StoreOutcome) []string {
	id, amount := "", ""
	if o.Invoice != nil {
		id = strconv.FormatInt(o.Invoice.ID, 10)
		amount = o.Invoice.Amount.StringFixed(2)
	}
	note := o.Anomaly
	if o.Error != "" {
		note = o.Error
	}
	return []string{strconv.FormatInt(o.StoreID, 10), string(o.Outcome), id, amount, note}
}

type invoiceList []domain.View

func (l invoiceList) MarshalJSON() ([]byte, error) {
	return marshalList([]domain.View(l))
}

func (l invoiceList) TableHeaders() []string {
	return []string{"ID", "STORE", "RENTER", "ISSUED", "DUE", "AMOUNT", "REMAINING", "STATUS", "DAYS OVERDUE"}
}

func (l invoiceList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			strconv.FormatInt(v.StoreID, 10),
			strconv.FormatInt(v.RenterID, 10),
			v.IssueDate.Format("2006-01-02"),
			v.DueDate.Format("2006-01-02"),
			v.Amount.StringFixed(2),
			v.Remaining.StringFixed(2),
			string(v.Status),
			strconv.Itoa(v.DaysOverdue),
		})
	}
	return rows
}

//Personal.AI order the ending
