package notification

import (
	"context"
	"time"

	"github.com/turtacn/MallLedger/pkg/types/common"
)

// Recipient addresses an inbox.
type Recipient struct {
	Type RecipientType `json:"recipient_type"`
	ID   int64         `json:"recipient_id"`
}

// ListFilter narrows an inbox listing.
type ListFilter struct {
	Recipient  Recipient
	UnreadOnly bool
	Type       Type
	Severity   Severity
	Pagination common.Pagination
}

// Repository persists notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error

	// FindUnreadByIdentity returns the unread notifications carrying id,
	// highest severity first.
	FindUnreadByIdentity(ctx context.Context, id Identity) ([]*Notification, error)

	// Supersede inserts n and marks every notification in old as read with
	// MetaSupersededBy pointing at n, atomically.
	Supersede(ctx context.Context, old []*Notification, n *Notification, at time.Time) error

	GetByID(ctx context.Context, id int64) (*Notification, error)
	List(ctx context.Context, f ListFilter) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, r Recipient) (int64, error)

	// UpdateRead persists the read state when the stored version equals
	// n.Version.  A mismatch yields retry.ErrStaleVersion.
	UpdateRead(ctx context.Context, n *Notification) error

	MarkAllRead(ctx context.Context, r Recipient, at time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error

	// PurgeReadBefore deletes read notifications of severity read before
	// cutoff.
	PurgeReadBefore(ctx context.Context, severity Severity, cutoff time.Time) (int64, error)
}

//Personal.AI order the ending
