package service

import (
	"context"
	"fmt"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func nopLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger != nil {
		return logger
	}
	nop := zerolog.Nop()
	return &nop
}

func requireSession(sess session.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("%w: %w", domain.ErrForbidden, session.ErrNoSession)
	}
	return nil
}

// partyRole resolves the role the caller plays in booking from the booking itself.
func partyRole(b *models.Booking, sess session.Session) (models.Role, error) {
	if err := requireSession(sess); err != nil {
		return "", err
	}
	role, ok := b.PartyRole(sess.AccountID)
	if !ok {
		return "", domain.ErrForbidden
	}
	return role, nil
}

// outbox writes notification rows for the notification worker.
// A failed insert is logged and never fails the operation that caused it.
type outbox struct {
	store  domain.NotificationStore
	logger *zerolog.Logger
}

func (o outbox) notify(ctx context.Context, accountID, typ, title, body string, data map[string]string) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Data:      data,
		Status:    models.NotificationPending,
	}
	if err := o.store.CreateNotification(ctx, n); err != nil {
		o.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("type", typ).
			Msg("Failed to queue notification")
	}
}

// dateOnly drops the clock part of t, keeping the calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
