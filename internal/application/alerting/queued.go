package alerting

import (
	"context"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
)

// DispatchPublisher enqueues a notification for out-of-process dispatch.
type DispatchPublisher interface {
	PublishDispatch(ctx context.Context, n *notification.Notification) error
}

// QueuedDispatcher hands notifications to a queue instead of the channels.
// The consumer side calls Router.Dispatch.
type QueuedDispatcher struct {
	publisher DispatchPublisher
	logger    logging.Logger
}

// NewQueuedDispatcher constructs a QueuedDispatcher.
func NewQueuedDispatcher(publisher DispatchPublisher, logger logging.Logger) *QueuedDispatcher {
	return &QueuedDispatcher{publisher: publisher, logger: orNop(logger).Named("queued-dispatch")}
}

// Dispatch implements Dispatcher.  A publish failure is logged and reported;
// the notification stays persisted.
func (q *QueuedDispatcher) Dispatch(ctx context.Context, n *notification.Notification) DispatchReport {
	report := DispatchReport{NotificationID: n.ID, Queued: true}
	if err := q.publisher.PublishDispatch(ctx, n); err != nil {
		report.Failed++
		q.logger.Error("enqueue dispatch failed", logging.Int64("notification_id", n.ID), logging.Err(err))
	}
	return report
}

//Personal.AI order the ending
