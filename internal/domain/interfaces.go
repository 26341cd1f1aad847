package domain

import (
	"context"
	"time"

	"servicehub/internal/events"
	"servicehub/internal/models"
)

type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	UpsertAccount(ctx context.Context, account *models.Account) error
}

type ListingStore interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	CreateListing(ctx context.Context, listing *models.Listing) error
	UpdateListing(ctx context.Context, listing *models.Listing) error
	ListListings(ctx context.Context, q Query) ([]*models.Listing, error)
}

type AvailabilityStore interface {
	ReplaceAvailability(ctx context.Context, providerID string, windows []models.AvailabilityWindow) error
	ListAvailability(ctx context.Context, providerID string) ([]models.AvailabilityWindow, error)
	BlockDate(ctx context.Context, blocked *models.BlockedDate) error
	UnblockDate(ctx context.Context, providerID string, date time.Time) error
	ListBlockedDates(ctx context.Context, providerID string, from, to time.Time) ([]*models.BlockedDate, error)
}

type BookingStore interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	// CreateBooking inserts a pending booking, failing with ErrDateBlocked or ErrSlotTaken
	// when the provider is unavailable. The check and the insert are atomic.
	CreateBooking(ctx context.Context, booking *models.Booking) error
	// UpdateBookingStatus writes status only if the stored version equals fromVersion.
	UpdateBookingStatus(ctx context.Context, id string, fromVersion int64, status models.BookingStatus) (*models.Booking, error)
	UpdateBookingLocation(ctx context.Context, id string, role models.Role, loc models.Location) (*models.Booking, error)
	ListBookings(ctx context.Context, q Query) ([]*models.Booking, error)
}

type VerificationStore interface {
	GetVerificationCode(ctx context.Context, bookingID string) (*models.VerificationCode, error)
	// UpsertVerificationCode replaces any previous code of the booking.
	UpsertVerificationCode(ctx context.Context, code *models.VerificationCode) error
	// CompleteWithCode atomically marks the code verified and moves the booking to completed.
	// It fails with ErrMismatch unless the stored code equals code and is unverified, and with
	// ErrConcurrentModification unless the booking is still at fromVersion. Nothing changes on failure.
	CompleteWithCode(ctx context.Context, bookingID, code string, fromVersion int64, at time.Time) (*models.Booking, error)
}

type ReviewStore interface {
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id string) (*models.Review, error)
	UpdateReviewResponse(ctx context.Context, id, response string, at time.Time) (*models.Review, error)
	ListReviews(ctx context.Context, q Query) ([]*models.Review, error)
	RatingSummaries(ctx context.Context, listingIDs []string) (map[string]models.RatingSummary, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, q Query) ([]*models.Message, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error)
	MarkNotificationSent(ctx context.Context, id string, at time.Time) error
	MarkNotificationRetry(ctx context.Context, id string, lastErr string, next time.Time) error
	MarkNotificationFailed(ctx context.Context, id string, lastErr string) error
}

// Subscriber opens change streams over gateway collections.
type Subscriber interface {
	Subscribe(collection string, match map[string]string, types ...events.ChangeType) *events.Subscription
}

// Gateway is the full data boundary used by the services.
type Gateway interface {
	AccountStore
	ListingStore
	AvailabilityStore
	BookingStore
	VerificationStore
	ReviewStore
	MessageStore
	NotificationStore
	Subscriber
	Ping(ctx context.Context) error
}

// AttemptLimiter counts attempts per key inside a window.
type AttemptLimiter interface {
	// Allow records an attempt and reports whether it is within limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}
