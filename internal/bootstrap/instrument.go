package bootstrap

import (
	"context"

	"github.com/turtacn/MallLedger/internal/application/inbox"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

// CacheMetrics counts cache lookups.
type CacheMetrics interface {
	RecordCacheAccess(cache string, hit bool)
}

// PublishMetrics counts broker publishes.
type PublishMetrics interface {
	RecordEventPublished(topic string, err error)
}

const unreadCountCache = "unread_count"

// countedCache records hit and miss on every unread-count lookup.
type countedCache struct {
	inbox.CountCache
	metrics CacheMetrics
}

func (c countedCache) GetUnreadCount(ctx context.Context, r notification.Recipient) (int64, bool, error) {
	n, hit, err := c.CountCache.GetUnreadCount(ctx, r)
	if err == nil {
		c.metrics.RecordCacheAccess(unreadCountCache, hit)
	}
	return n, hit, err
}

// countedPublisher records the outcome of every publish by topic.
type countedPublisher struct {
	next    kafka.Publisher
	metrics PublishMetrics
}

func (p countedPublisher) Publish(ctx context.Context, msg *common.ProducerMessage) error {
	err := p.next.Publish(ctx, msg)
	p.metrics.RecordEventPublished(msg.Topic, err)
	return err
}

//Personal.AI order the ending
