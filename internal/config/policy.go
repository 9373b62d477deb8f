package config

import (
	"fmt"
	"time"

	"github.com/turtacn/MallLedger/internal/domain/notification"
)

// Dispatch modes.
const (
	DispatchInline = "inline"
	DispatchQueued = "queued"
)

// domainDirections fixes which way each domain's magnitude escalates.
var domainDirections = map[notification.Type]notification.Direction{
	notification.TypeContractExpiry: notification.Countdown,
	notification.TypePaymentOverdue: notification.Escalating,
	notification.TypeAbsence:        notification.Escalating,
	notification.TypeAbsenceLimit:   notification.Escalating,
}

// ResolvePolicy converts the raw notification section into the typed policy
// injected into scanners and the dispatch router.  Every domain tag must end
// up with thresholds; unknown keys are rejected rather than ignored.
func ResolvePolicy(raw NotificationsConfig) (*notification.Policy, error) {
	p := &notification.Policy{
		Thresholds:      make(map[notification.Type]notification.Thresholds, len(raw.Thresholds)),
		Channels:        make(map[notification.Severity]notification.ChannelRule, len(raw.Channels)),
		Retention:       make(map[notification.Severity]time.Duration, len(raw.RetentionDays)),
		AdminPhones:     append([]string(nil), raw.AdminPhones...),
		DefaultRegion:   raw.DefaultRegion,
		WhatsAppEnabled: raw.WhatsApp.Enabled,
		SMSEnabled:      raw.SMS.Enabled,
	}

	for key, th := range raw.Thresholds {
		t, err := notification.ParseType(key)
		if err != nil {
			return nil, fmt.Errorf("config: notifications.thresholds: %w", err)
		}
		if th.WarningAt < 0 || th.CriticalAt < 0 {
			return nil, fmt.Errorf("config: notifications.thresholds.%s must not be negative", key)
		}
		dir := domainDirections[t]
		if th.CriticalAt > 0 {
			if dir == notification.Countdown && th.CriticalAt > th.WarningAt {
				return nil, fmt.Errorf("config: notifications.thresholds.%s: critical_at %d must be <= warning_at %d",
					key, th.CriticalAt, th.WarningAt)
			}
			if dir == notification.Escalating && th.WarningAt > 0 && th.CriticalAt < th.WarningAt {
				return nil, fmt.Errorf("config: notifications.thresholds.%s: critical_at %d must be >= warning_at %d",
					key, th.CriticalAt, th.WarningAt)
			}
		}
		p.Thresholds[t] = notification.Thresholds{WarningAt: th.WarningAt, CriticalAt: th.CriticalAt, Direction: dir}
	}
	for _, t := range notification.Types {
		if _, ok := p.Thresholds[t]; !ok {
			return nil, fmt.Errorf("config: notifications.thresholds is missing %s", t)
		}
	}

	for key, rule := range raw.Channels {
		sev, err := notification.ParseSeverity(key)
		if err != nil {
			return nil, fmt.Errorf("config: notifications.channels: %w", err)
		}
		p.Channels[sev] = notification.ChannelRule{
			SendWhatsApp: rule.SendWhatsApp,
			SendSMS:      rule.SendSMS,
			NotifyAdmin:  rule.NotifyAdmin,
		}
	}

	for key, days := range raw.RetentionDays {
		sev, err := notification.ParseSeverity(key)
		if err != nil {
			return nil, fmt.Errorf("config: notifications.retention_days: %w", err)
		}
		if days < 1 {
			return nil, fmt.Errorf("config: notifications.retention_days.%s must be >= 1, got %d", key, days)
		}
		p.Retention[sev] = time.Duration(days) * 24 * time.Hour
	}

	return p, nil
}

// Policy returns the typed notification policy of c.
func (c *Config) Policy() (*notification.Policy, error) {
	return ResolvePolicy(c.Notifications)
}

//Personal.AI order the ending
