package redis

import (
	"context"
	stderrors "errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// DefaultUnreadCountTTL bounds staleness when an invalidation is missed.
const DefaultUnreadCountTTL = 5 * time.Minute

// UnreadCountCache stores per-recipient unread counts.  It satisfies
// inbox.CountCache.
type UnreadCountCache struct {
	client *Client
	logger logging.Logger
	ttl    time.Duration
	jitter func(time.Duration) time.Duration
}

// NewUnreadCountCache returns a cache whose entries live for ttl, with up to
// 10% jitter so recipients warmed together do not expire together.
func NewUnreadCountCache(client *Client, ttl time.Duration, log logging.Logger) *UnreadCountCache {
	if ttl <= 0 {
		ttl = DefaultUnreadCountTTL
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &UnreadCountCache{client: client, logger: log, ttl: ttl, jitter: jitterTTL}
}

func (c *UnreadCountCache) key(r notification.Recipient) string {
	return c.client.Key("unread", string(r.Type), strconv.FormatInt(r.ID, 10))
}

func (c *UnreadCountCache) GetUnreadCount(ctx context.Context, r notification.Recipient) (int64, bool, error) {
	rdb := c.client.Underlying()
	if rdb == nil {
		return 0, false, ErrClientClosed
	}
	n, err := rdb.Get(ctx, c.key(r)).Int64()
	if stderrors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read unread count")
	}
	return n, true, nil
}

func (c *UnreadCountCache) SetUnreadCount(ctx context.Context, r notification.Recipient, n int64) error {
	rdb := c.client.Underlying()
	if rdb == nil {
		return ErrClientClosed
	}
	if err := rdb.Set(ctx, c.key(r), n, c.jitter(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write unread count")
	}
	return nil
}

func (c *UnreadCountCache) InvalidateUnreadCount(ctx context.Context, r notification.Recipient) error {
	rdb := c.client.Underlying()
	if rdb == nil {
		return ErrClientClosed
	}
	if err := rdb.Del(ctx, c.key(r)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to invalidate unread count")
	}
	return nil
}

// PublishNotificationCreated drops the recipient's cached count so the next
// read reflects the new notification.  It lets the cache ride on the
// writer's publisher hook.
func (c *UnreadCountCache) PublishNotificationCreated(ctx context.Context, n *notification.Notification) error {
	return c.InvalidateUnreadCount(ctx, notification.Recipient{Type: n.RecipientType, ID: n.RecipientID})
}

func jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	// +/- 10%
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

//Personal.AI order the ending
