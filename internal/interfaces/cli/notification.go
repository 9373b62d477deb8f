package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/domain/notification"
)

// NewNotificationCmd returns the mallctl notification subcommand.
func NewNotificationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notification",
		Short: "Inspect and maintain the notification inbox",
	}
	cmd.AddCommand(newUnreadCountCmd(), newPurgeCmd())
	return cmd
}

func newUnreadCountCmd() *cobra.Command {
	var (
		recipientType string
		recipientID   int64
	)

	cmd := &cobra.Command{
		Use:     "unread-count",
		Short:   "Count unread notifications of one recipient",
		Args:    cobra.NoArgs,
		Example: "  mallctl notification unread-count --recipient-type Renter --recipient-id 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := notification.ParseRecipientType(recipientType)
			if err != nil {
				return fmt.Errorf("invalid --recipient-type %q (must be Employee or Renter)", recipientType)
			}
			if recipientID <= 0 {
				return fmt.Errorf("--recipient-id must be positive")
			}
			recipient := notification.Recipient{Type: rt, ID: recipientID}

			return runWithServices(cmd, func(ctx context.Context, cliCtx *CLIContext, svc *Services) error {
				n, err := svc.Inbox.UnreadCount(ctx, recipient)
				if err != nil {
					return err
				}
				return PrintResult(cmd, unreadOutput{Recipient: recipient, Count: n})
			})
		},
	}
	cmd.Flags().StringVar(&recipientType, "recipient-type", "", "Employee or Renter")
	cmd.Flags().Int64Var(&recipientID, "recipient-id", 0, "recipient id")
	_ = cmd.MarkFlagRequired("recipient-type")
	_ = cmd.MarkFlagRequired("recipient-id")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete read notifications past their retention window",
		Long: `Delete read notifications older than the retention configured for their
severity (notifications.retention_days).  Unread notifications are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, func(ctx context.Context, cliCtx *CLIContext, svc *Services) error {
				res, err := svc.Inbox.Purge(ctx)
				if err != nil {
					return err
				}
				return PrintResult(cmd, purgeOutput{Deleted: res.Total(), BySeverity: res})
			})
		},
	}
}

type unreadOutput struct {
	notification.Recipient
	Count int64 `json:"count"`
}

func (u unreadOutput) String() string {
	return fmt.Sprintf("%s %d has %d unread notifications", u.Type, u.ID, u.Count)
}

func (u unreadOutput) TableHeaders() []string { return []string{"RECIPIENT TYPE", "RECIPIENT ID", "UNREAD"} }

func (u unreadOutput) TableRows() [][]string {
	return [][]string{{string(u.Type), strconv.FormatInt(u.ID, 10), strconv.FormatInt(u.Count, 10)}}
}

type purgeOutput struct {
	Deleted    int64             `json:"deleted"`
	BySeverity inbox.PurgeResult `json:"by_severity"`
}

func (p purgeOutput) String() string {
	return fmt.Sprintf("Purged %d notifications", p.Deleted)
}

func (p purgeOutput) TableHeaders() []string { return []string{"SEVERITY", "DELETED"} }

func (p purgeOutput) TableRows() [][]string {
	sevs := make([]notification.Severity, 0, len(p.BySeverity))
	for s := range p.BySeverity {
		sevs = append(sevs, s)
	}
	sort.Slice(sevs, func(i, j int) bool { return sevs[i].Rank() < sevs[j].Rank() })

	rows := make([][]string, 0, len(sevs))
	for _, s := range sevs {
		rows = append(rows, []string{string(s), strconv.FormatInt(p.BySeverity[s], 10)})
	}
	return rows
}

//Personal.AI order the ending
