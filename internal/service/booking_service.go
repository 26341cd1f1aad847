package service

import (
	"context"
	"fmt"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/geo"
	"servicehub/internal/lifecycle"
	"servicehub/internal/metrics"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultMaxDaysAhead = 365

type BookingService struct {
	gw           domain.Gateway
	outbox       outbox
	maxDaysAhead int
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewBookingService(gw domain.Gateway, maxDaysAhead int, logger *zerolog.Logger) *BookingService {
	if maxDaysAhead <= 0 {
		maxDaysAhead = defaultMaxDaysAhead
	}
	logger = nopLogger(logger)
	return &BookingService{
		gw:           gw,
		outbox:       outbox{store: gw, logger: logger},
		maxDaysAhead: maxDaysAhead,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

type CreateBookingRequest struct {
	ListingID        string           `json:"listing_id"`
	Date             time.Time        `json:"date"`
	TimeSlot         string           `json:"time_slot"`
	CustomerLocation *models.Location `json:"customer_location,omitempty"`
}

// validateDate rejects past dates and dates beyond the booking horizon.
func (s *BookingService) validateDate(date time.Time, slot string) error {
	today := dateOnly(s.now().UTC())
	day := dateOnly(date)
	if day.Before(today) {
		return domain.Invalid("date is in the past")
	}
	if day.After(today.AddDate(0, 0, s.maxDaysAhead)) {
		return domain.Invalid(fmt.Sprintf("date is more than %d days ahead", s.maxDaysAhead))
	}

	start, err := slotStart(day, slot)
	if err != nil {
		return domain.Invalid("time slot must be HH:MM")
	}
	if !start.After(s.now().UTC()) {
		return domain.Invalid("time slot has already started")
	}
	return nil
}

// Create books a listing slot for the calling customer. The new booking is pending.
func (s *BookingService) Create(ctx context.Context, sess session.Session, req CreateBookingRequest) (*models.Booking, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsCustomer() {
		return nil, domain.ErrForbidden
	}

	listing, err := s.gw.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Archived {
		return nil, domain.Invalid("listing is no longer offered")
	}
	if listing.ProviderID == sess.AccountID {
		return nil, domain.Invalid("providers cannot book their own listings")
	}
	if err := s.validateDate(req.Date, req.TimeSlot); err != nil {
		return nil, err
	}
	if req.CustomerLocation != nil && !req.CustomerLocation.Valid() {
		return nil, domain.Invalid("location is out of range")
	}

	day := dateOnly(req.Date)
	slot, _ := time.Parse(models.SlotLayout, req.TimeSlot)
	timeSlot := slot.Format(models.SlotLayout)

	windows, err := s.gw.ListAvailability(ctx, listing.ProviderID)
	if err != nil {
		return nil, err
	}
	if len(windows) > 0 && !slotOffered(windows, day.Weekday(), timeSlot) {
		return nil, domain.Invalid("provider does not work at this time")
	}

	booking := &models.Booking{
		ID:               uuid.NewString(),
		ListingID:        listing.ID,
		CustomerID:       sess.AccountID,
		ProviderID:       listing.ProviderID,
		Date:             day,
		TimeSlot:         timeSlot,
		TotalPrice:       listing.Price,
		Status:           models.StatusPending,
		CustomerLocation: req.CustomerLocation,
	}
	if err := s.gw.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("listing_id", booking.ListingID).
		Str("customer_id", booking.CustomerID).
		Str("date", day.Format(models.DateLayout)).
		Str("slot", booking.TimeSlot).
		Msg("Booking created")

	s.outbox.notify(ctx, booking.ProviderID, models.NotificationBookingStatus,
		"New booking request",
		fmt.Sprintf("%s on %s at %s", listing.Title, day.Format(models.DateLayout), booking.TimeSlot),
		map[string]string{"booking_id": booking.ID, "status": string(booking.Status)})

	return booking, nil
}

// slotOffered reports whether a one-hour slot starting at slot fits into one of the windows of weekday.
func slotOffered(windows []models.AvailabilityWindow, weekday time.Weekday, slot string) bool {
	for _, s := range expandSlots(windows, weekday) {
		if s.Start == slot {
			return true
		}
	}
	return false
}

// Get returns a booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, sess session.Session, id string) (*models.Booking, error) {
	booking, err := s.gw.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := partyRole(booking, sess); err != nil {
		return nil, err
	}
	return booking, nil
}

// List returns the caller's bookings, newest first. An empty status lists every status.
func (s *BookingService) List(ctx context.Context, sess session.Session, status models.BookingStatus) ([]*models.Booking, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	field := "customer_id"
	if sess.IsProvider() {
		field = "provider_id"
	}
	q := domain.NewQuery().Eq(field, sess.AccountID).Order("created_at", true)
	if status != "" {
		if !status.Valid() {
			return nil, domain.Invalid(fmt.Sprintf("unknown status %q", status))
		}
		q = q.Eq("status", status)
	}
	return s.gw.ListBookings(ctx, q)
}

// AllowedTransitions lists the statuses the caller may move the booking to.
func (s *BookingService) AllowedTransitions(ctx context.Context, sess session.Session, id string) ([]models.BookingStatus, error) {
	booking, err := s.gw.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := partyRole(booking, sess)
	if err != nil {
		return nil, err
	}
	return lifecycle.AllowedTransitions(booking.Status, role), nil
}

// UpdateStatus moves the booking to next on behalf of the caller.
// version is the version the caller last read; 0 means the current one.
// On any failure the stored booking is left untouched.
func (s *BookingService) UpdateStatus(ctx context.Context, sess session.Session, id string, next models.BookingStatus, version int64) (*models.Booking, error) {
	booking, err := s.gw.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := partyRole(booking, sess)
	if err != nil {
		return nil, err
	}
	if version != 0 && version != booking.Version {
		return nil, domain.ErrConcurrentModification
	}
	if err := lifecycle.Validate(booking.Status, next, role); err != nil {
		return nil, err
	}

	updated, err := s.gw.UpdateBookingStatus(ctx, id, booking.Version, next)
	if err != nil {
		return nil, err
	}

	metrics.IncTransition(string(booking.Status), string(next))
	s.logger.Info().
		Str("booking_id", id).
		Str("from", string(booking.Status)).
		Str("to", string(next)).
		Str("by", string(role)).
		Msg("Booking status changed")

	s.outbox.notify(ctx, updated.Counterpart(sess.AccountID), models.NotificationBookingStatus,
		"Booking "+string(next),
		fmt.Sprintf("Booking on %s at %s is now %s", updated.Date.Format(models.DateLayout), updated.TimeSlot, next),
		map[string]string{"booking_id": updated.ID, "status": string(next)})

	return updated, nil
}

func (s *BookingService) Accept(ctx context.Context, sess session.Session, id string, version int64) (*models.Booking, error) {
	return s.UpdateStatus(ctx, sess, id, models.StatusAccepted, version)
}

func (s *BookingService) Cancel(ctx context.Context, sess session.Session, id string, version int64) (*models.Booking, error) {
	return s.UpdateStatus(ctx, sess, id, models.StatusCancelled, version)
}

// Complete closes the booking without a code exchange. VerificationService.VerifyCode is the
// customer-confirmed path to the same status.
func (s *BookingService) Complete(ctx context.Context, sess session.Session, id string, version int64) (*models.Booking, error) {
	return s.UpdateStatus(ctx, sess, id, models.StatusCompleted, version)
}

// ShareLocation stores the caller's side of the booking location.
func (s *BookingService) ShareLocation(ctx context.Context, sess session.Session, id string, loc models.Location) (*models.Booking, error) {
	if !loc.Valid() {
		return nil, domain.Invalid("location is out of range")
	}
	booking, err := s.gw.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := partyRole(booking, sess)
	if err != nil {
		return nil, err
	}
	if lifecycle.IsTerminal(booking.Status) {
		return nil, domain.Invalid("booking is closed")
	}
	return s.gw.UpdateBookingLocation(ctx, id, role, loc)
}

// Distance returns the distance in km between the two parties of a booking.
func (s *BookingService) Distance(ctx context.Context, sess session.Session, id string) (float64, error) {
	booking, err := s.Get(ctx, sess, id)
	if err != nil {
		return 0, err
	}
	if booking.CustomerLocation == nil || booking.ProviderLocation == nil {
		return 0, domain.Invalid("both parties must share their location first")
	}
	return geo.Between(*booking.CustomerLocation, *booking.ProviderLocation), nil
}

// Watch subscribes to changes of the caller's bookings. The caller starts and stops the subscription.
func (s *BookingService) Watch(sess session.Session) (*events.Subscription, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	field := "customer_id"
	if sess.IsProvider() {
		field = "provider_id"
	}
	return s.gw.Subscribe(events.CollectionBookings, map[string]string{field: sess.AccountID}), nil
}
