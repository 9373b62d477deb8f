package alerting

import (
	"context"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
)

// Sender delivers one text to one phone number over a messaging channel.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// RecipientDirectory resolves the phone number of a notification recipient.
type RecipientDirectory interface {
	PhoneFor(ctx context.Context, rt notification.RecipientType, id int64) (string, error)
}

// DispatchMetrics counts channel sends by outcome.
type DispatchMetrics interface {
	RecordChannelSend(channel, status string)
}

// Dispatcher hands a persisted notification to the messaging channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *notification.Notification) DispatchReport
}

// ChannelAttempt is one send.
type ChannelAttempt struct {
	Channel notification.Channel `json:"channel"`
	To      string               `json:"to"`
	Admin   bool                 `json:"admin,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// DispatchReport summarises the fan-out of one notification.
type DispatchReport struct {
	NotificationID int64            `json:"notification_id"`
	Queued         bool             `json:"queued,omitempty"`
	Sent           int              `json:"sent"`
	Failed         int              `json:"failed"`
	Attempts       []ChannelAttempt `json:"attempts,omitempty"`
}

func (r *DispatchReport) record(a ChannelAttempt) {
	if a.Error == "" {
		r.Sent++
	} else {
		r.Failed++
	}
	r.Attempts = append(r.Attempts, a)
}

// channelOrder is the order channels are attempted in.
var channelOrder = []notification.Channel{notification.ChannelWhatsApp, notification.ChannelSMS}

// Router is the inline Dispatcher.  Channel failures are logged and counted,
// never returned: the notification is already persisted.
type Router struct {
	policy    *PolicyHolder
	senders   map[notification.Channel]Sender
	directory RecipientDirectory
	metrics   DispatchMetrics
	logger    logging.Logger
}

// NewRouter constructs a Router.  Channels without a sender are skipped.
func NewRouter(policy *PolicyHolder, senders map[notification.Channel]Sender, directory RecipientDirectory, metrics DispatchMetrics, logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Router{
		policy:    policy,
		senders:   senders,
		directory: directory,
		metrics:   metrics,
		logger:    logger.Named("dispatch-router"),
	}
}

// ShouldSend reports whether severity goes out on ch under the active policy.
func (r *Router) ShouldSend(severity notification.Severity, ch notification.Channel) bool {
	return r.policy.Current().ShouldSend(severity, ch)
}

// Dispatch sends n to its recipient on every channel its severity enables,
// then to the admin phones when the policy asks for it.
func (r *Router) Dispatch(ctx context.Context, n *notification.Notification) DispatchReport {
	report := DispatchReport{NotificationID: n.ID}
	policy := r.policy.Current()

	var channels []notification.Channel
	for _, ch := range channelOrder {
		if policy.ShouldSend(n.Severity, ch) && r.senders[ch] != nil {
			channels = append(channels, ch)
		}
	}

	if len(channels) > 0 {
		phone, err := r.directory.PhoneFor(ctx, n.RecipientType, n.RecipientID)
		switch {
		case err != nil:
			r.logger.Warn("recipient phone unresolved",
				logging.Int64("notification_id", n.ID),
				logging.String("recipient_type", string(n.RecipientType)),
				logging.Int64("recipient_id", n.RecipientID),
				logging.Err(err))
		case phone == "":
			r.logger.Warn("recipient has no phone number",
				logging.Int64("notification_id", n.ID),
				logging.String("recipient_type", string(n.RecipientType)),
				logging.Int64("recipient_id", n.RecipientID))
		default:
			text := ChannelText(n)
			for _, ch := range channels {
				report.record(r.send(ctx, n, ch, phone, text, false))
			}
		}
	}

	if policy.ShouldNotifyAdmin(n.Severity) {
		r.NotifyAdmin(ctx, n, &report)
	}
	return report
}

// NotifyAdmin sends an admin summary of n to every configured admin phone on
// every globally enabled channel.
func (r *Router) NotifyAdmin(ctx context.Context, n *notification.Notification, report *DispatchReport) {
	policy := r.policy.Current()
	text := adminText(n)
	for _, phone := range policy.AdminPhones {
		for _, ch := range channelOrder {
			if !channelEnabled(policy, ch) || r.senders[ch] == nil {
				continue
			}
			report.record(r.send(ctx, n, ch, phone, text, true))
		}
	}
}

func (r *Router) send(ctx context.Context, n *notification.Notification, ch notification.Channel, to, text string, admin bool) ChannelAttempt {
	attempt := ChannelAttempt{Channel: ch, To: to, Admin: admin}
	if err := r.senders[ch].Send(ctx, to, text); err != nil {
		attempt.Error = err.Error()
		r.count(ch, "failed")
		r.logger.Error("channel send failed",
			logging.Int64("notification_id", n.ID),
			logging.String("channel", string(ch)),
			logging.Bool("admin", admin),
			logging.Err(err))
		return attempt
	}
	r.count(ch, "sent")
	r.logger.Debug("channel send ok",
		logging.Int64("notification_id", n.ID),
		logging.String("channel", string(ch)),
		logging.Bool("admin", admin))
	return attempt
}

func (r *Router) count(ch notification.Channel, status string) {
	if r.metrics != nil {
		r.metrics.RecordChannelSend(string(ch), status)
	}
}

func channelEnabled(p *notification.Policy, ch notification.Channel) bool {
	switch ch {
	case notification.ChannelWhatsApp:
		return p.WhatsAppEnabled
	case notification.ChannelSMS:
		return p.SMSEnabled
	default:
		return false
	}
}

//Personal.AI order the ending
