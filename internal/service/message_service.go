package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MessageService is the append-only chat between the two parties of a booking.
type MessageService struct {
	gw     domain.Gateway
	outbox outbox
	logger *zerolog.Logger
}

func NewMessageService(gw domain.Gateway, logger *zerolog.Logger) *MessageService {
	logger = nopLogger(logger)
	return &MessageService{
		gw:     gw,
		outbox: outbox{store: gw, logger: logger},
		logger: logger,
	}
}

func (s *MessageService) Send(ctx context.Context, sess session.Session, bookingID, body string) (*models.Message, error) {
	booking, err := s.gw.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := partyRole(booking, sess); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.Invalid("message must not be empty")
	}
	if utf8.RuneCountInString(body) > models.MaxMessageLength {
		return nil, domain.Invalid("message is too long")
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		BookingID:  booking.ID,
		SenderID:   sess.AccountID,
		ReceiverID: booking.Counterpart(sess.AccountID),
		Body:       body,
	}
	if err := s.gw.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("booking_id", bookingID).Str("message_id", msg.ID).Msg("Message sent")

	preview := body
	if utf8.RuneCountInString(preview) > 80 {
		preview = string([]rune(preview)[:80]) + "..."
	}
	s.outbox.notify(ctx, msg.ReceiverID, models.NotificationNewMessage, "New message", preview,
		map[string]string{"booking_id": booking.ID, "message_id": msg.ID})

	return msg, nil
}

// Thread returns the booking's messages, oldest first.
func (s *MessageService) Thread(ctx context.Context, sess session.Session, bookingID string) ([]*models.Message, error) {
	booking, err := s.gw.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := partyRole(booking, sess); err != nil {
		return nil, err
	}
	return s.gw.ListMessages(ctx, domain.NewQuery().Eq("booking_id", bookingID).Order("created_at", false))
}

// Watch subscribes to new messages of a booking. The caller starts and stops the subscription.
func (s *MessageService) Watch(ctx context.Context, sess session.Session, bookingID string) (*events.Subscription, error) {
	booking, err := s.gw.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := partyRole(booking, sess); err != nil {
		return nil, err
	}
	return s.gw.Subscribe(events.CollectionMessages, map[string]string{"booking_id": bookingID}, events.ChangeInsert), nil
}
