package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	if n.NextAttemptAt.IsZero() {
		n.NextAttemptAt = now
	}

	var data any
	if len(n.Data) > 0 {
		encoded, err := json.Marshal(n.Data)
		if err != nil {
			return gatewayErr("encode notification data", err)
		}
		data = string(encoded)
	}

	query := `INSERT INTO notifications (id, account_id, type, title, body, data, status, attempts, last_error, next_attempt_at, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		n.ID,
		n.AccountID,
		n.Type,
		n.Title,
		n.Body,
		data,
		n.Status,
		n.Attempts,
		n.LastError,
		n.NextAttemptAt.UTC(),
		now,
	)
	if err != nil {
		return gatewayErr("create notification", err)
	}

	db.publish(events.CollectionNotifications, events.ChangeInsert, n.ID,
		map[string]string{"account_id": n.AccountID, "type": n.Type}, n)
	return nil
}

// ListDueNotifications returns pending notifications whose next attempt is not after now, oldest first.
func (db *DB) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	query := `SELECT id, account_id, type, title, body, data, status, attempts, last_error, next_attempt_at, created_at, sent_at
              FROM notifications
              WHERE status = ? AND next_attempt_at <= ?
              ORDER BY next_attempt_at, rowid
              LIMIT ?`
	rows, err := db.QueryContext(ctx, query, models.NotificationPending, now.UTC(), limit)
	if err != nil {
		return nil, gatewayErr("list due notifications", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var (
			n      models.Notification
			data   sql.NullString
			sentAt sql.NullTime
		)
		err := rows.Scan(
			&n.ID,
			&n.AccountID,
			&n.Type,
			&n.Title,
			&n.Body,
			&data,
			&n.Status,
			&n.Attempts,
			&n.LastError,
			&n.NextAttemptAt,
			&n.CreatedAt,
			&sentAt,
		)
		if err != nil {
			return nil, gatewayErr("scan notification", err)
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &n.Data); err != nil {
				return nil, gatewayErr("decode notification data", err)
			}
		}
		if sentAt.Valid {
			t := sentAt.Time
			n.SentAt = &t
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list due notifications", err)
	}
	return out, nil
}

func (db *DB) MarkNotificationSent(ctx context.Context, id string, at time.Time) error {
	return db.updateNotification(ctx, "mark notification sent",
		`UPDATE notifications SET status = ?, attempts = attempts + 1, sent_at = ? WHERE id = ?`,
		models.NotificationSent, at.UTC(), id)
}

func (db *DB) MarkNotificationRetry(ctx context.Context, id, lastErr string, next time.Time) error {
	return db.updateNotification(ctx, "mark notification retry",
		`UPDATE notifications SET attempts = attempts + 1, last_error = ?, next_attempt_at = ? WHERE id = ?`,
		lastErr, next.UTC(), id)
}

func (db *DB) MarkNotificationFailed(ctx context.Context, id, lastErr string) error {
	return db.updateNotification(ctx, "mark notification failed",
		`UPDATE notifications SET status = ?, attempts = attempts + 1, last_error = ? WHERE id = ?`,
		models.NotificationFailed, lastErr, id)
}

func (db *DB) updateNotification(ctx context.Context, op, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return gatewayErr(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
