package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/infrastructure/database/postgres"
	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
	"github.com/turtacn/MallLedger/pkg/retry"
	"github.com/turtacn/MallLedger/pkg/types/common"
)

const notificationColumns = `id, type, title, message, severity, recipient_type, recipient_id,
	related_entity_type, related_entity_id, condition_key, is_read, read_at, metadata, version, created_at`

const severityRank = `CASE severity WHEN 'Critical' THEN 3 WHEN 'Warning' THEN 2 ELSE 1 END`

type postgresNotificationRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresNotificationRepo returns the notifications store.  The partial
// unique index on unread identity backs the writer's deduplication; a
// violation surfaces as COMMON_006.
func NewPostgresNotificationRepo(conn *postgres.Connection, log logging.Logger) notification.Repository {
	return &postgresNotificationRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func (r *postgresNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return insertNotification(ctx, r.executor, n)
}

func insertNotification(ctx context.Context, ex queryExecutor, n *notification.Notification) error {
	meta, err := marshalMeta(n.Metadata)
	if err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO notifications (
			type, title, message, severity, recipient_type, recipient_id,
			related_entity_type, related_entity_id, condition_key, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
		RETURNING id, version
	`
	err = ex.QueryRowContext(ctx, query,
		string(n.Type), n.Title, n.Message, string(n.Severity), string(n.RecipientType), n.RecipientID,
		string(n.RelatedEntityType), n.RelatedEntityID, n.ConditionKey, meta, n.CreatedAt,
	).Scan(&n.ID, &n.Version)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return errors.Wrap(err, errors.ErrCodeConflict, "unread notification already exists").
				WithDetail(n.Identity().String())
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create notification")
	}
	n.IsRead = false
	n.ReadAt = nil
	return nil
}

func (r *postgresNotificationRepo) FindUnreadByIdentity(ctx context.Context, id notification.Identity) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE type = $1 AND related_entity_type = $2 AND related_entity_id = $3 AND condition_key = $4 AND NOT is_read
		ORDER BY ` + severityRank + ` DESC, id`
	return r.many(ctx, query, string(id.Type), string(id.EntityType), id.EntityID, id.ConditionKey)
}

// Supersede retires the old rows before inserting n so the partial unique
// index on unread identity never sees two unread rows.
func (r *postgresNotificationRepo) Supersede(ctx context.Context, old []*notification.Notification, n *notification.Notification, at time.Time) error {
	at = at.UTC()
	return postgres.WithTransaction(ctx, r.conn.DB(), func(tx *sql.Tx) error {
		for _, o := range old {
			if _, err := tx.ExecContext(ctx,
				`UPDATE notifications SET is_read = TRUE, read_at = $2, version = version + 1 WHERE id = $1 AND NOT is_read`,
				o.ID, at,
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to retire superseded notification")
			}
		}

		if err := insertNotification(ctx, tx, n); err != nil {
			return err
		}

		ref := strconv.FormatInt(n.ID, 10)
		for _, o := range old {
			if _, err := tx.ExecContext(ctx,
				`UPDATE notifications SET metadata = metadata || jsonb_build_object('`+notification.MetaSupersededBy+`', $2::text) WHERE id = $1`,
				o.ID, ref,
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to link superseded notification")
			}
			o.MarkRead(at)
			o.SetMeta(notification.MetaSupersededBy, ref)
			o.Version++
		}
		return nil
	})
}

func (r *postgresNotificationRepo) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	n, err := scanNotification(r.executor.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load notification")
	}
	return n, nil
}

func (r *postgresNotificationRepo) List(ctx context.Context, f notification.ListFilter) ([]*notification.Notification, int64, error) {
	where := []string{"recipient_type = $1", "recipient_id = $2"}
	args := []interface{}{string(f.Recipient.Type), f.Recipient.ID}
	if f.UnreadOnly {
		where = append(where, "NOT is_read")
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Severity != "" {
		args = append(args, string(f.Severity))
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count notifications")
	}

	page := f.Pagination
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = common.DefaultPageSize
	}
	if page.PageSize > common.MaxPageSize {
		page.PageSize = common.MaxPageSize
	}
	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		notificationColumns, cond, len(args)-1, len(args))

	items, err := r.many(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *postgresNotificationRepo) CountUnread(ctx context.Context, rc notification.Recipient) (int64, error) {
	var n int64
	err := r.executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_type = $1 AND recipient_id = $2 AND NOT is_read`,
		string(rc.Type), rc.ID,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count unread notifications")
	}
	return n, nil
}

func (r *postgresNotificationRepo) UpdateRead(ctx context.Context, n *notification.Notification) error {
	err := r.executor.QueryRowContext(ctx, `
		UPDATE notifications SET is_read = $2, read_at = $3, version = version + 1
		WHERE id = $1 AND version = $4
		RETURNING version`,
		n.ID, n.IsRead, n.ReadAt, n.Version,
	).Scan(&n.Version)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update notification")
	}

	var exists bool
	if err := r.executor.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`, n.ID).Scan(&exists); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check notification")
	}
	if !exists {
		return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
	}
	return retry.ErrStaleVersion
}

func (r *postgresNotificationRepo) MarkAllRead(ctx context.Context, rc notification.Recipient, at time.Time) (int64, error) {
	res, err := r.executor.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $3, version = version + 1
		WHERE recipient_type = $1 AND recipient_id = $2 AND NOT is_read`,
		string(rc.Type), rc.ID, at.UTC(),
	)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark notifications read")
	}
	return res.RowsAffected()
}

func (r *postgresNotificationRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.executor.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete notification")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
	}
	return nil
}

func (r *postgresNotificationRepo) PurgeReadBefore(ctx context.Context, severity notification.Severity, cutoff time.Time) (int64, error) {
	res, err := r.executor.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read AND severity = $1 AND read_at < $2`,
		string(severity), cutoff.UTC(),
	)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to purge notifications")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info("purged read notifications",
			logging.String("severity", string(severity)),
			logging.Int64("deleted", n),
			logging.Time("cutoff", cutoff))
	}
	return n, nil
}

func (r *postgresNotificationRepo) many(ctx context.Context, query string, args ...interface{}) ([]*notification.Notification, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list notifications")
	}
	out, err := collect(rows, scanNotification)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan notifications")
	}
	return out, nil
}

func scanNotification(s scanner) (*notification.Notification, error) {
	n := &notification.Notification{}
	var (
		typ, sev, rtype, etype string
		readAt                 sql.NullTime
		meta                   []byte
	)
	err := s.Scan(
		&n.ID, &typ, &n.Title, &n.Message, &sev, &rtype, &n.RecipientID,
		&etype, &n.RelatedEntityID, &n.ConditionKey, &n.IsRead, &readAt, &meta, &n.Version, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Type = notification.Type(typ)
	n.Severity = notification.Severity(sev)
	n.RecipientType = notification.RecipientType(rtype)
	n.RelatedEntityType = notification.EntityType(etype)
	if readAt.Valid {
		t := readAt.Time.UTC()
		n.ReadAt = &t
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return nil, fmt.Errorf("notification %d metadata: %w", n.ID, err)
		}
		if len(n.Metadata) == 0 {
			n.Metadata = nil
		}
	}
	return n, nil
}

func marshalMeta(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode notification metadata")
	}
	return string(b), nil
}

//Personal.AI order the ending
