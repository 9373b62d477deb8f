// Package inbox serves the read side of notifications: listings, unread
// counts, read state, deletion and retention purges.
package inbox

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/retry"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

// CountCache caches unread counts per recipient.
type CountCache interface {
	GetUnreadCount(ctx context.Context, r notification.Recipient) (int64, bool, error)
	SetUnreadCount(ctx context.Context, r notification.Recipient, n int64) error
	InvalidateUnreadCount(ctx context.Context, r notification.Recipient) error
}

// PolicySource yields the active notification policy.
type PolicySource interface {
	Current() *notification.Policy
}

// PurgeResult counts deleted notifications per severity.
type PurgeResult map[notification.Severity]int64

// Total sums all severities.
func (p PurgeResult) Total() int64 {
	var n int64
	for _, v := range p {
		n += v
	}
	return n
}

// Service is the inbox API.
type Service interface {
	List(ctx context.Context, f notification.ListFilter) (*common.PageResponse[*notification.Notification], error)
	Get(ctx context.Context, id int64) (*notification.Notification, error)
	UnreadCount(ctx context.Context, r notification.Recipient) (int64, error)

	// MarkRead is idempotent: an already-read notification keeps its first
	// read time.
	MarkRead(ctx context.Context, id int64) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, r notification.Recipient) (int64, error)
	Delete(ctx context.Context, id int64) error

	// Purge deletes read notifications older than their severity's
	// retention.
	Purge(ctx context.Context) (PurgeResult, error)
}

type serviceImpl struct {
	repo   notification.Repository
	cache  CountCache
	policy PolicySource
	logger logging.Logger
	now    func() time.Time

	// loads collapses concurrent cache-miss counts for one recipient.
	loads singleflight.Group
}

// NewService constructs the inbox Service.  cache may be nil.
func NewService(repo notification.Repository, cache CountCache, policy PolicySource, logger logging.Logger, now func() time.Time) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &serviceImpl{repo: repo, cache: cache, policy: policy, logger: logger.Named("inbox"), now: now}
}

func (s *serviceImpl) List(ctx context.Context, f notification.ListFilter) (*common.PageResponse[*notification.Notification], error) {
	if err := validRecipient(f.Recipient); err != nil {
		return nil, err
	}
	if f.Pagination.Page < 1 {
		f.Pagination.Page = 1
	}
	if f.Pagination.PageSize < 1 {
		f.Pagination.PageSize = common.DefaultPageSize
	}
	if err := f.Pagination.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid pagination")
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &common.PageResponse[*notification.Notification]{
		Items:    items,
		Total:    int(total),
		Page:     f.Pagination.Page,
		PageSize: f.Pagination.PageSize,
	}, nil
}

func (s *serviceImpl) Get(ctx context.Context, id int64) (*notification.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *serviceImpl) UnreadCount(ctx context.Context, r notification.Recipient) (int64, error) {
	if err := validRecipient(r); err != nil {
		return 0, err
	}
	if s.cache != nil {
		n, ok, err := s.cache.GetUnreadCount(ctx, r)
		if err != nil {
			s.logger.Warn("unread count cache read failed", logging.Err(err))
		} else if ok {
			return n, nil
		}
	}

	v, err, _ := s.loads.Do(string(r.Type)+":"+strconv.FormatInt(r.ID, 10), func() (interface{}, error) {
		n, err := s.repo.CountUnread(ctx, r)
		if err != nil {
			return int64(0), err
		}
		if s.cache != nil {
			if err := s.cache.SetUnreadCount(ctx, r, n); err != nil {
				s.logger.Warn("unread count cache write failed", logging.Err(err))
			}
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (s *serviceImpl) MarkRead(ctx context.Context, id int64) (*notification.Notification, error) {
	var changed bool
	n, err := retry.WithOptimisticRetry(ctx,
		func(ctx context.Context) (*notification.Notification, error) {
			return s.repo.GetByID(ctx, id)
		},
		func(n *notification.Notification) (*notification.Notification, error) {
			changed = !n.IsRead
			n.MarkRead(s.now())
			return n, nil
		},
		func(ctx context.Context, n *notification.Notification) error {
			if !changed {
				return nil
			}
			return s.repo.UpdateRead(ctx, n)
		},
	)
	if err != nil {
		return nil, err
	}
	if changed {
		s.invalidate(ctx, recipientOf(n))
	}
	return n, nil
}

func (s *serviceImpl) MarkAllRead(ctx context.Context, r notification.Recipient) (int64, error) {
	if err := validRecipient(r); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, r, s.now())
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, r)
	s.logger.Info("notifications marked read",
		logging.String("recipient_type", string(r.Type)), logging.Int64("recipient_id", r.ID), logging.Int64("count", n))
	return n, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if !n.IsRead {
		s.invalidate(ctx, recipientOf(n))
	}
	return nil
}

func (s *serviceImpl) Purge(ctx context.Context) (PurgeResult, error) {
	policy := notification.DefaultPolicy()
	if s.policy != nil {
		policy = s.policy.Current()
	}
	now := s.now()
	result := PurgeResult{}
	for _, sev := range notification.Severities {
		cutoff := now.Add(-policy.RetentionFor(sev))
		n, err := s.repo.PurgeReadBefore(ctx, sev, cutoff)
		if err != nil {
			return result, err
		}
		result[sev] = n
	}
	s.logger.Info("read notifications purged", logging.Int64("deleted", result.Total()))
	return result, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, r notification.Recipient) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUnreadCount(ctx, r); err != nil {
		s.logger.Warn("unread count cache invalidation failed", logging.Err(err))
	}
}

func recipientOf(n *notification.Notification) notification.Recipient {
	return notification.Recipient{Type: n.RecipientType, ID: n.RecipientID}
}

func validRecipient(r notification.Recipient) error {
	if _, err := notification.ParseRecipientType(string(r.Type)); err != nil {
		return errors.New(errors.ErrCodeValidation, "unknown recipient type").WithDetail(string(r.Type))
	}
	if r.ID <= 0 {
		return errors.New(errors.ErrCodeValidation, "recipient id must be positive")
	}
	return nil
}

//Personal.AI order the ending
