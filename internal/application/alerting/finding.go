// Package alerting is the rule-based notification engine: scanners detect
// conditions, the severity classifier grades them, the writer persists them
// without duplicating unresolved conditions and the router fans them out to
// messaging channels.
package alerting

import (
	"strconv"
	"time"

	"github.com/turtacn/MallLedger/internal/domain/notification"
)

// Metadata keys carrying template arguments so channel text can be rendered
// from the persisted notification alone.
const (
	metaSubject = "subject"
	metaAmount  = "amount"
)

// Finding is an ephemeral detection produced by a scanner and consumed
// immediately by the writer.
type Finding struct {
	Type          notification.Type
	Title         string
	Message       string
	Severity      notification.Severity
	Magnitude     int
	Subject       string
	RecipientType notification.RecipientType
	RecipientID   int64
	EntityType    notification.EntityType
	EntityID      int64
	ConditionKey  string
	Metadata      map[string]string
}

// Identity returns the deduplication key of the condition.
func (f Finding) Identity() notification.Identity {
	return notification.Identity{
		Type:         f.Type,
		EntityType:   f.EntityType,
		EntityID:     f.EntityID,
		ConditionKey: f.ConditionKey,
	}
}

// Notification converts the finding into an unsaved notification.
func (f Finding) Notification(now time.Time) *notification.Notification {
	n := &notification.Notification{
		Type:              f.Type,
		Title:             f.Title,
		Message:           f.Message,
		Severity:          f.Severity,
		RecipientType:     f.RecipientType,
		RecipientID:       f.RecipientID,
		RelatedEntityType: f.EntityType,
		RelatedEntityID:   f.EntityID,
		ConditionKey:      f.ConditionKey,
		CreatedAt:         now.UTC(),
	}
	for k, v := range f.Metadata {
		n.SetMeta(k, v)
	}
	n.SetMeta(notification.MetaMagnitude, strconv.Itoa(f.Magnitude))
	if f.Subject != "" {
		n.SetMeta(metaSubject, f.Subject)
	}
	return n
}

// SubjectFailure records a subject a scanner could not evaluate.
type SubjectFailure struct {
	EntityType notification.EntityType `json:"entity_type"`
	EntityID   int64                   `json:"entity_id"`
	Error      string                  `json:"error"`
}

// ScanOutput is what one scanner pass yields.
type ScanOutput struct {
	Findings []Finding
	Failures []SubjectFailure
}

func (o *ScanOutput) fail(et notification.EntityType, id int64, err error) {
	o.Failures = append(o.Failures, SubjectFailure{EntityType: et, EntityID: id, Error: err.Error()})
}

//Personal.AI order the ending
