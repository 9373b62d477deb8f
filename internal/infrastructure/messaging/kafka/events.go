package kafka

import (
	"context"
	"strconv"

	"github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

// Publisher is the part of Producer the event publisher needs.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// EventPublisher turns domain records into enveloped events.  It serves
// as the billing event publisher, the notification-created publisher and the
// queued dispatch publisher.
type EventPublisher struct {
	producer Publisher
	source   string
}

// NewEventPublisher constructs an EventPublisher stamping events with source.
func NewEventPublisher(producer Publisher, source string) *EventPublisher {
	if source == "" {
		source = "mallledger"
	}
	return &EventPublisher{producer: producer, source: source}
}

// PublishInvoiceGenerated keys by store so one store's invoices stay ordered.
func (e *EventPublisher) PublishInvoiceGenerated(ctx context.Context, inv *billing.Invoice) error {
	return e.publish(ctx, TopicInvoiceGenerated, EventInvoiceGenerated,
		strconv.FormatInt(inv.StoreID, 10), NewInvoiceGeneratedPayload(inv))
}

func (e *EventPublisher) PublishNotificationCreated(ctx context.Context, n *notification.Notification) error {
	return e.publish(ctx, TopicNotificationCreated, EventNotificationCreated,
		n.Identity().String(), NotificationPayload{Notification: n})
}

func (e *EventPublisher) PublishDispatch(ctx context.Context, n *notification.Notification) error {
	return e.publish(ctx, TopicNotificationDispatch, EventNotificationDispatch,
		n.Identity().String(), NotificationPayload{Notification: n})
}

func (e *EventPublisher) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, e.source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return e.producer.Publish(ctx, msg)
}

// DispatchFunc delivers one notification to its channels.
type DispatchFunc func(ctx context.Context, n *notification.Notification) error

// NewDispatchHandler decodes notification.dispatch events and hands them to
// dispatch.  Undecodable messages are logged and acknowledged; retrying them
// cannot help.
func NewDispatchHandler(dispatch DispatchFunc, logger logging.Logger) common.MessageHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("dispatch-consumer")
	return func(ctx context.Context, msg *common.Message) error {
		n, err := DecodeNotification(msg)
		if err != nil {
			logger.Error("discarding undecodable dispatch event",
				logging.Int64("offset", msg.Offset),
				logging.Int("partition", msg.Partition),
				logging.Err(err))
			return nil
		}
		return dispatch(ctx, n)
	}
}

// DecodeNotification extracts the notification from a notification.created
// or notification.dispatch message.
func DecodeNotification(msg *common.Message) (*notification.Notification, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return nil, err
	}
	var p NotificationPayload
	if err := env.DecodePayload(&p); err != nil {
		return nil, err
	}
	if p.Notification == nil {
		return nil, errors.New(errors.ErrCodeSerialization, "event carries no notification").WithDetail(env.EventID)
	}
	return p.Notification, nil
}

//Personal.AI order the ending
