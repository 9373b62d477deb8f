package alerting

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// WriteStatus is what the writer did with a finding.
type WriteStatus string

const (
	WriteCreated    WriteStatus = "created"
	WriteSuppressed WriteStatus = "suppressed"
	WriteSuperseded WriteStatus = "superseded"
)

// WriteResult reports the persisted (or matching) notification.
type WriteResult struct {
	Status       WriteStatus
	Notification *notification.Notification
	Superseded   []int64
}

// NotificationPublisher announces created notifications.  Publishing is best
// effort.
type NotificationPublisher interface {
	PublishNotificationCreated(ctx context.Context, n *notification.Notification) error
}

// Publishers fans one event out to several publishers.  Every publisher is
// tried; the first error is returned.
type Publishers []NotificationPublisher

func (ps Publishers) PublishNotificationCreated(ctx context.Context, n *notification.Notification) error {
	var first error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.PublishNotificationCreated(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Writer persists findings and is the single enforcement point for "no
// duplicate unresolved notification per identity".
type Writer struct {
	repo      notification.Repository
	publisher NotificationPublisher
	logger    logging.Logger
	now       func() time.Time
}

// NewWriter constructs a Writer.  publisher may be nil.
func NewWriter(repo notification.Repository, publisher NotificationPublisher, logger logging.Logger, now func() time.Time) *Writer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &Writer{repo: repo, publisher: publisher, logger: logger.Named("notification-writer"), now: now}
}

// Write persists f unless an unread notification with the same identity
// already covers it.  An unread one of the same or higher severity suppresses
// f; lower-severity ones are marked read and superseded by the new record.
func (w *Writer) Write(ctx context.Context, f Finding) (*WriteResult, error) {
	if !f.Severity.IsValid() {
		return nil, errors.New(errors.ErrCodeValidation, "finding has no severity").WithDetail(f.Identity().String())
	}

	existing, err := w.repo.FindUnreadByIdentity(ctx, f.Identity())
	if err != nil {
		return nil, err
	}
	var lower []*notification.Notification
	for _, n := range existing {
		if n.Severity.AtLeast(f.Severity) {
			w.logger.Debug("finding suppressed",
				logging.String("identity", f.Identity().String()),
				logging.Int64("existing_id", n.ID),
				logging.String("severity", string(f.Severity)))
			return &WriteResult{Status: WriteSuppressed, Notification: n}, nil
		}
		lower = append(lower, n)
	}

	now := w.now()
	n := f.Notification(now)

	if len(lower) == 0 {
		if err := w.repo.Create(ctx, n); err != nil {
			if errors.IsConflict(err) {
				// another writer raised the same condition first
				w.logger.Warn("unread notification created concurrently",
					logging.String("identity", f.Identity().String()))
				return &WriteResult{Status: WriteSuppressed}, nil
			}
			return nil, err
		}
		w.created(ctx, n)
		return &WriteResult{Status: WriteCreated, Notification: n}, nil
	}

	ids := make([]int64, len(lower))
	strs := make([]string, len(lower))
	for i, o := range lower {
		ids[i] = o.ID
		strs[i] = strconv.FormatInt(o.ID, 10)
	}
	n.SetMeta(notification.MetaSupersedes, strings.Join(strs, ","))
	if err := w.repo.Supersede(ctx, lower, n, now); err != nil {
		if errors.IsConflict(err) {
			w.logger.Warn("unread notification created concurrently",
				logging.String("identity", f.Identity().String()))
			return &WriteResult{Status: WriteSuppressed}, nil
		}
		return nil, err
	}
	w.logger.Info("notification escalated",
		logging.String("identity", f.Identity().String()),
		logging.String("severity", string(f.Severity)),
		logging.String("supersedes", n.Metadata[notification.MetaSupersedes]))
	w.created(ctx, n)
	return &WriteResult{Status: WriteSuperseded, Notification: n, Superseded: ids}, nil
}

func (w *Writer) created(ctx context.Context, n *notification.Notification) {
	w.logger.Info("notification created",
		logging.Int64("notification_id", n.ID),
		logging.String("type", string(n.Type)),
		logging.String("severity", string(n.Severity)),
		logging.String("recipient_type", string(n.RecipientType)),
		logging.Int64("recipient_id", n.RecipientID))
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishNotificationCreated(ctx, n); err != nil {
		w.logger.Warn("publish notification event failed", logging.Int64("notification_id", n.ID), logging.Err(err))
	}
}

//Personal.AI order the ending
