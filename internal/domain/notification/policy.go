package notification

import "time"

// Direction says whether a larger magnitude is more severe.
type Direction int

const (
	// Escalating: more days overdue or more absences is worse.
	Escalating Direction = iota
	// Countdown: fewer days left is worse.
	Countdown
)

// Thresholds are the magnitudes at which a domain reaches Warning and
// Critical.  CriticalAt of zero disables the Critical tier.
type Thresholds struct {
	WarningAt  int       `json:"warning_at"`
	CriticalAt int       `json:"critical_at"`
	Direction  Direction `json:"direction"`
}

// ChannelRule is the fan-out for one severity.
type ChannelRule struct {
	SendWhatsApp bool `json:"send_whatsapp"`
	SendSMS      bool `json:"send_sms"`
	NotifyAdmin  bool `json:"notify_admin"`
}

// Policy is the resolved notification policy.  It is built once at startup
// and passed by value or pointer as plain data; nothing queries configuration
// per call.
type Policy struct {
	Thresholds      map[Type]Thresholds
	Channels        map[Severity]ChannelRule
	Retention       map[Severity]time.Duration
	AdminPhones     []string
	DefaultRegion   string
	WhatsAppEnabled bool
	SMSEnabled      bool
}

// ThresholdsFor returns the thresholds of t and whether any are configured.
func (p *Policy) ThresholdsFor(t Type) (Thresholds, bool) {
	th, ok := p.Thresholds[t]
	return th, ok
}

// ShouldSend reports whether notifications of severity go out on ch.  The
// global per-channel switch wins over the per-severity rule.
func (p *Policy) ShouldSend(severity Severity, ch Channel) bool {
	rule, ok := p.Channels[severity]
	if !ok {
		return false
	}
	switch ch {
	case ChannelWhatsApp:
		return p.WhatsAppEnabled && rule.SendWhatsApp
	case ChannelSMS:
		return p.SMSEnabled && rule.SendSMS
	default:
		return false
	}
}

// ShouldNotifyAdmin reports whether severity also fans out to admin phones.
func (p *Policy) ShouldNotifyAdmin(severity Severity) bool {
	rule, ok := p.Channels[severity]
	return ok && rule.NotifyAdmin && len(p.AdminPhones) > 0
}

// RetentionFor returns how long read notifications of severity are kept.
func (p *Policy) RetentionFor(severity Severity) time.Duration {
	if d, ok := p.Retention[severity]; ok && d > 0 {
		return d
	}
	return DefaultRetention
}

// DefaultRetention applies to severities without a configured retention.
const DefaultRetention = 30 * 24 * time.Hour

// DefaultPolicy mirrors the reference business policy.
func DefaultPolicy() *Policy {
	return &Policy{
		Thresholds: map[Type]Thresholds{
			TypeContractExpiry: {WarningAt: 30, CriticalAt: 7, Direction: Countdown},
			TypePaymentOverdue: {WarningAt: 7, CriticalAt: 30, Direction: Escalating},
			TypeAbsence:        {WarningAt: 1, CriticalAt: 0, Direction: Escalating},
			TypeAbsenceLimit:   {WarningAt: 3, CriticalAt: 3, Direction: Escalating},
		},
		Channels: map[Severity]ChannelRule{
			SeverityCritical: {SendWhatsApp: true, SendSMS: true, NotifyAdmin: false},
			SeverityWarning:  {SendWhatsApp: true},
			SeverityInfo:     {},
		},
		Retention: map[Severity]time.Duration{
			SeverityInfo:     DefaultRetention,
			SeverityWarning:  DefaultRetention,
			SeverityCritical: DefaultRetention,
		},
		DefaultRegion:   "MM",
		WhatsAppEnabled: true,
		SMSEnabled:      true,
	}
}

//Personal.AI order the ending
