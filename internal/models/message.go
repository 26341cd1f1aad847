package models

import "time"

type Message struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is an outbox row delivered by the notification worker.
type Notification struct {
	ID            string             `json:"id"`
	AccountID     string             `json:"account_id"`
	Type          string             `json:"type"`
	Title         string             `json:"title"`
	Body          string             `json:"body"`
	Data          map[string]string  `json:"data,omitempty"`
	Status        NotificationStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	LastError     string             `json:"last_error,omitempty"`
	NextAttemptAt time.Time          `json:"next_attempt_at"`
	CreatedAt     time.Time          `json:"created_at"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
}
