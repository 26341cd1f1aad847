package database

import (
	"context"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

func (db *DB) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO messages (id, booking_id, sender_id, receiver_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		msg.ID,
		msg.BookingID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Body,
		msg.CreatedAt.UTC(),
	)
	if err != nil {
		return gatewayErr("create message", err)
	}

	db.publish(events.CollectionMessages, events.ChangeInsert, msg.ID, map[string]string{
		"booking_id":  msg.BookingID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
	}, msg)
	return nil
}

func (db *DB) ListMessages(ctx context.Context, q domain.Query) ([]*models.Message, error) {
	clause, args, err := buildQuery(q, messageColumns, "created_at")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, booking_id, sender_id, receiver_id, body, created_at FROM messages`+clause, args...)
	if err != nil {
		return nil, gatewayErr("list messages", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.BookingID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt); err != nil {
			return nil, gatewayErr("scan message", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list messages", err)
	}
	return messages, nil
}
