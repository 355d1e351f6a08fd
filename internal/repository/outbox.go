package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/kindroute/internal/domain"
)

// notificationColumns is the shared list of columns for outbox queries.
var notificationColumns = []string{
	"id", "recipient_id", "recipient_kind", "channel", "type", "title", "message",
	"reference_id", "status", "attempts", "last_error", "created_at", "delivered_at",
}

// OutboxRepository handles database operations for the notification outbox.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// insertNotifications enqueues notifications within the caller's transaction.
func insertNotifications(ctx context.Context, tx pgx.Tx, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	qb := psql.Insert("notification_outbox").Columns(
		"id", "recipient_id", "recipient_kind", "channel", "type", "title", "message",
		"reference_id", "status", "created_at",
	)
	for _, n := range notifications {
		qb = qb.Values(
			n.ID, n.Recipient.ID, n.Recipient.Kind, n.Channel, n.Type, n.Title, n.Message,
			n.ReferenceID, n.Status, n.CreatedAt,
		)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build insertNotifications query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}
	return nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.Recipient.ID,
			&n.Recipient.Kind,
			&n.Channel,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.ReferenceID,
			&n.Status,
			&n.Attempts,
			&n.LastError,
			&n.CreatedAt,
			&n.DeliveredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return notifications, nil
}

// claimCTE leases pending records. SKIP LOCKED lets several workers poll
// the same table without handing out a record twice. RETURNING has no order,
// so the caller sorts the leased rows outside the CTE.
const claimCTE = `WITH claimed AS (
	UPDATE notification_outbox o
	SET attempts = o.attempts + 1,
	    locked_until = NOW() + make_interval(secs => ?)
	FROM (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending'
		  AND (locked_until IS NULL OR locked_until <= NOW())
		ORDER BY created_at, id
		LIMIT ?
		FOR UPDATE SKIP LOCKED
	) c
	WHERE o.id = c.id
	RETURNING o.*
)`

// ClaimNotifications leases up to limit pending records for lease, oldest
// first, and increments their attempt counters.
func (r *OutboxRepository) ClaimNotifications(ctx context.Context, limit int, lease time.Duration) ([]*domain.Notification, error) {
	query, args, err := psql.
		Select(notificationColumns...).
		Prefix(claimCTE, lease.Seconds(), limit).
		From("claimed").
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ClaimNotifications query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}

	return scanNotifications(rows)
}

// MarkDelivered records a successful delivery.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string) error {
	query, args, err := psql.
		Update("notification_outbox").
		Set("status", domain.NotificationDelivered).
		Set("delivered_at", sq.Expr("NOW()")).
		Set("locked_until", nil).
		Set("last_error", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build MarkDelivered query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notification delivered: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery. A nil retryAt gives up on the record;
// otherwise it becomes claimable again at retryAt.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id, reason string, retryAt *time.Time) error {
	status := domain.NotificationFailed
	if retryAt != nil {
		status = domain.NotificationPending
	}

	query, args, err := psql.
		Update("notification_outbox").
		Set("status", status).
		Set("last_error", reason).
		Set("locked_until", retryAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build MarkFailed query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (r *OutboxRepository) ListNotifications(ctx context.Context, recipient domain.EntityRef, limit int) ([]*domain.Notification, error) {
	query, args, err := psql.
		Select(notificationColumns...).
		From("notification_outbox").
		Where(sq.Eq{
			"recipient_id":   recipient.ID,
			"recipient_kind": recipient.Kind,
		}).
		OrderBy("created_at DESC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListNotifications query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	return scanNotifications(rows)
}
