package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MallLedger/internal/application/alerting"
)

// NewScanCmd returns the mallctl scan subcommand.  Each child runs one group
// of finding scanners once, exactly as the scheduler would.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run notification scans",
		Long: `Run finding scanners once and report what they raised.  A condition that
is already notified at the same or a higher severity is suppressed, so scans
are safe to repeat.`,
	}
	cmd.AddCommand(
		newScanGroupCmd("contracts", "Check employment and rental contract expiry", alerting.GroupContracts),
		newScanGroupCmd("payments", "Check overdue rent invoices", alerting.GroupPayments),
		newScanGroupCmd("attendance", "Check employee absences and absence limits", alerting.GroupAttendance),
		newScanGroupCmd("all", "Run every scanner", nil),
	)
	return cmd
}

func newScanGroupCmd(use, short string, names []string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, cliCtx *CLIContext, svc *Services) error {
				reports, err := svc.Scans.Run(ctx, names...)
				if perr := PrintResult(cmd, scanOutput(reports)); perr != nil {
					return perr
				}
				if err != nil {
					return err
				}
				var failed int
				for _, r := range reports {
					failed += r.Failed
				}
				if failed > 0 {
					return fmt.Errorf("%d findings could not be written", failed)
				}
				return nil
			})
		},
	}
}

type scanOutput []*alerting.ScanReport

func (s scanOutput) MarshalJSON() ([]byte, error) {
	return marshalList([]*alerting.ScanReport(s))
}

func (s scanOutput) String() string {
	if len(s) == 0 {
		return "No scanners ran."
	}
	lines := make([]string, 0, len(s))
	for _, r := range s {
		line := fmt.Sprintf("%-16s %d findings: %d raised, %d suppressed, %d superseded, %d failed; %d sent",
			r.Scanner, r.Findings, r.Raised, r.Suppressed, r.Superseded, r.Failed, r.Sent)
		if r.Cancelled {
			line += " (cancelled)"
		}
		if r.Error != "" {
			line += " (error: " + r.Error + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (s scanOutput) TableHeaders() []string {
	return []string{"SCANNER", "FINDINGS", "RAISED", "SUPPRESSED", "SUPERSEDED", "FAILED", "SENT", "SEND FAILED", "DURATION"}
}

func (s scanOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, r := range s {
		rows = append(rows, []string{
			r.Scanner,
			strconv.Itoa(r.Findings),
			strconv.Itoa(r.Raised),
			strconv.Itoa(r.Suppressed),
			strconv.Itoa(r.Superseded),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Sent),
			strconv.Itoa(r.SendFailed),
			r.Duration,
		})
	}
	return rows
}

//Personal.AI order the ending
