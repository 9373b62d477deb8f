// Package notification defines the persisted notification record, its
// severity tiers and the typed dispatch policy consulted by the alerting
// pipeline.
package notification

import (
	"fmt"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Severity
// ─────────────────────────────────────────────────────────────────────────────

// Severity is the tier that drives persistence and channel fan-out.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Severities lists every tier from lowest to highest.
var Severities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

// Rank orders severities; unknown values rank below Info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether s is one of the defined tiers.
func (s Severity) IsValid() bool { return s.Rank() > 0 }

// AtLeast reports whether s is the same tier as other or above it.
func (s Severity) AtLeast(other Severity) bool { return s.Rank() >= other.Rank() }

// ParseSeverity accepts any casing of a tier name.
func ParseSeverity(raw string) (Severity, error) {
	for _, s := range Severities {
		if strings.EqualFold(string(s), raw) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", raw)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tags
// ─────────────────────────────────────────────────────────────────────────────

// Type is the domain tag of a notification.
type Type string

const (
	TypeContractExpiry Type = "ContractExpiry"
	TypePaymentOverdue Type = "PaymentOverdue"
	TypeAbsence        Type = "Absence"
	TypeAbsenceLimit   Type = "AbsenceLimit"
)

// Types lists every domain tag the scanners produce.
var Types = []Type{TypeContractExpiry, TypePaymentOverdue, TypeAbsence, TypeAbsenceLimit}

// ParseType accepts any casing of a domain tag, with or without underscores.
func ParseType(raw string) (Type, error) {
	norm := strings.ReplaceAll(raw, "_", "")
	for _, t := range Types {
		if strings.EqualFold(string(t), norm) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown notification type %q", raw)
}

// RecipientType names who a notification is addressed to.
type RecipientType string

const (
	RecipientEmployee RecipientType = "Employee"
	RecipientRenter   RecipientType = "Renter"
)

// ParseRecipientType accepts any casing.
func ParseRecipientType(raw string) (RecipientType, error) {
	for _, r := range []RecipientType{RecipientEmployee, RecipientRenter} {
		if strings.EqualFold(string(r), raw) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown recipient type %q", raw)
}

// EntityType names the record a notification is about.
type EntityType string

const (
	EntityEmploymentContract EntityType = "EmploymentContract"
	EntityStoreRentContract  EntityType = "StoreRentContract"
	EntityRentInvoice        EntityType = "RentInvoice"
	EntityEmployee           EntityType = "Employee"
)

// Channel is an outbound messaging transport.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// ─────────────────────────────────────────────────────────────────────────────
// Notification
// ─────────────────────────────────────────────────────────────────────────────

// Identity is the deduplication key of an unresolved condition.  ConditionKey
// separates recurring conditions on the same entity, such as one absence per
// day or one absence-limit breach per month; it is empty when the entity alone
// identifies the condition.
type Identity struct {
	Type         Type       `json:"type"`
	EntityType   EntityType `json:"related_entity_type"`
	EntityID     int64      `json:"related_entity_id"`
	ConditionKey string     `json:"condition_key,omitempty"`
}

func (i Identity) String() string {
	if i.ConditionKey == "" {
		return fmt.Sprintf("%s/%s/%d", i.Type, i.EntityType, i.EntityID)
	}
	return fmt.Sprintf("%s/%s/%d/%s", i.Type, i.EntityType, i.EntityID, i.ConditionKey)
}

// Metadata keys written by the alerting pipeline.
const (
	MetaMagnitude    = "magnitude"
	MetaSupersededBy = "supersededBy"
	MetaSupersedes   = "supersedes"
	MetaAnomaly      = "anomaly"
)

// Notification is a persisted alert.  Only the read state changes after
// creation.
type Notification struct {
	ID                int64             `json:"id"`
	Type              Type              `json:"type"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	Severity          Severity          `json:"severity"`
	RecipientType     RecipientType     `json:"recipient_type"`
	RecipientID       int64             `json:"recipient_id"`
	RelatedEntityType EntityType        `json:"related_entity_type"`
	RelatedEntityID   int64             `json:"related_entity_id"`
	ConditionKey      string            `json:"condition_key,omitempty"`
	IsRead            bool              `json:"is_read"`
	ReadAt            *time.Time        `json:"read_at,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Version           int               `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Identity returns the deduplication key of n.
func (n *Notification) Identity() Identity {
	return Identity{
		Type:         n.Type,
		EntityType:   n.RelatedEntityType,
		EntityID:     n.RelatedEntityID,
		ConditionKey: n.ConditionKey,
	}
}

// MarkRead sets the read state.  Marking an already-read notification keeps
// the original timestamp.
func (n *Notification) MarkRead(at time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	t := at.UTC()
	n.ReadAt = &t
}

// SetMeta stores a metadata entry, allocating the map on first use.
func (n *Notification) SetMeta(key, value string) {
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}
	n.Metadata[key] = value
}

//Personal.AI order the ending
