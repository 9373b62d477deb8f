package alerting

import (
	"sync/atomic"

	"github.com/turtacn/MallLedger/internal/domain/notification"
)

// PolicyHolder shares the resolved policy between the classifier, scanners
// and router.  A reload swaps the whole snapshot.
type PolicyHolder struct {
	p atomic.Pointer[notification.Policy]
}

// NewPolicyHolder wraps p.  A nil p falls back to the default policy.
func NewPolicyHolder(p *notification.Policy) *PolicyHolder {
	h := &PolicyHolder{}
	h.Update(p)
	return h
}

// Current returns the active snapshot.
func (h *PolicyHolder) Current() *notification.Policy {
	return h.p.Load()
}

// Update replaces the active snapshot.
func (h *PolicyHolder) Update(p *notification.Policy) {
	if p == nil {
		p = notification.DefaultPolicy()
	}
	h.p.Store(p)
}

// SeverityClassifier maps a finding's magnitude to a tier using the
// configured thresholds of its domain.
type SeverityClassifier struct {
	policy *PolicyHolder
}

// NewSeverityClassifier constructs a classifier over policy.
func NewSeverityClassifier(policy *PolicyHolder) *SeverityClassifier {
	return &SeverityClassifier{policy: policy}
}

// Classify grades magnitude for domain t.  Domains without thresholds and
// magnitudes short of the warning threshold are Info.
func (c *SeverityClassifier) Classify(t notification.Type, magnitude int) notification.Severity {
	th, ok := c.policy.Current().ThresholdsFor(t)
	if !ok {
		return notification.SeverityInfo
	}
	return classify(th, magnitude)
}

// Threshold returns the warning threshold of t, which doubles as the
// qualifying bound of its scanner.
func (c *SeverityClassifier) Threshold(t notification.Type) int {
	th, _ := c.policy.Current().ThresholdsFor(t)
	return th.WarningAt
}

func classify(th notification.Thresholds, m int) notification.Severity {
	switch th.Direction {
	case notification.Countdown:
		if th.CriticalAt > 0 && m <= th.CriticalAt {
			return notification.SeverityCritical
		}
		if m <= th.WarningAt {
			return notification.SeverityWarning
		}
	default:
		if th.CriticalAt > 0 && m >= th.CriticalAt {
			return notification.SeverityCritical
		}
		if th.WarningAt > 0 && m >= th.WarningAt {
			return notification.SeverityWarning
		}
	}
	return notification.SeverityInfo
}

//Personal.AI order the ending
