package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const slotLength = time.Hour

type ListingService struct {
	gw     domain.Gateway
	logger *zerolog.Logger
	now    func() time.Time
}

func NewListingService(gw domain.Gateway, logger *zerolog.Logger) *ListingService {
	return &ListingService{
		gw:     gw,
		logger: nopLogger(logger),
		now:    time.Now,
	}
}

func (s *ListingService) WithClock(now func() time.Time) *ListingService {
	s.now = now
	return s
}

// ListingInput is the editable part of a listing.
type ListingInput struct {
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	PriceType   models.PriceType `json:"price_type"`
	ImageURL    string           `json:"image_url"`
	Location    *models.Location `json:"location"`
}

func (in ListingInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return domain.Invalid("title is required")
	case len(in.Title) > 200:
		return domain.Invalid("title is too long")
	case strings.TrimSpace(in.Category) == "":
		return domain.Invalid("category is required")
	case in.Price <= 0:
		return domain.Invalid("price must be positive")
	case !in.PriceType.Valid():
		return domain.Invalid("price type must be fixed, hourly or per_project")
	case in.Location != nil && !in.Location.Valid():
		return domain.Invalid("location is out of range")
	}
	return nil
}

func (in ListingInput) apply(l *models.Listing) {
	l.Title = strings.TrimSpace(in.Title)
	l.Category = strings.ToLower(strings.TrimSpace(in.Category))
	l.Description = strings.TrimSpace(in.Description)
	l.Price = in.Price
	l.PriceType = in.PriceType
	l.ImageURL = strings.TrimSpace(in.ImageURL)
	l.Location = in.Location
}

func (s *ListingService) Create(ctx context.Context, sess session.Session, in ListingInput) (*models.Listing, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsProvider() {
		return nil, domain.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	listing := &models.Listing{ID: uuid.NewString(), ProviderID: sess.AccountID}
	in.apply(listing)
	if err := s.gw.CreateListing(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info().Str("listing_id", listing.ID).Str("provider_id", listing.ProviderID).Msg("Listing created")
	return listing, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	return s.gw.GetListing(ctx, id)
}

// owned loads a listing the caller owns.
func (s *ListingService) owned(ctx context.Context, sess session.Session, id string) (*models.Listing, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	listing, err := s.gw.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.ProviderID != sess.AccountID {
		return nil, domain.ErrForbidden
	}
	return listing, nil
}

func (s *ListingService) Update(ctx context.Context, sess session.Session, id string, in ListingInput) (*models.Listing, error) {
	listing, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if listing.Archived {
		return nil, domain.Invalid("archived listings cannot be edited")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	in.apply(listing)
	if err := s.gw.UpdateListing(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Archive hides the listing from search and new bookings. Existing bookings are untouched.
func (s *ListingService) Archive(ctx context.Context, sess session.Session, id string) (*models.Listing, error) {
	listing, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if listing.Archived {
		return listing, nil
	}

	listing.Archived = true
	if err := s.gw.UpdateListing(ctx, listing); err != nil {
		return nil, err
	}
	s.logger.Info().Str("listing_id", listing.ID).Msg("Listing archived")
	return listing, nil
}

// ByProvider lists a provider's listings, newest first. Archived listings are included
// only when the caller is that provider.
func (s *ListingService) ByProvider(ctx context.Context, sess session.Session, providerID string) ([]*models.Listing, error) {
	q := domain.NewQuery().Eq("provider_id", providerID).Order("created_at", true)
	if sess.AccountID != providerID {
		q = q.Eq("archived", false)
	}
	return s.gw.ListListings(ctx, q)
}

// SetAvailability replaces the caller's weekly working windows.
func (s *ListingService) SetAvailability(ctx context.Context, sess session.Session, windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsProvider() {
		return nil, domain.ErrForbidden
	}

	normalized, err := normalizeWindows(windows)
	if err != nil {
		return nil, err
	}
	for i := range normalized {
		normalized[i].ProviderID = sess.AccountID
	}

	if err := s.gw.ReplaceAvailability(ctx, sess.AccountID, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (s *ListingService) Availability(ctx context.Context, providerID string) ([]models.AvailabilityWindow, error) {
	return s.gw.ListAvailability(ctx, providerID)
}

// AvailableSlots expands the provider's windows for date into one-hour slots.
// Slots held by pending or accepted bookings, or already in the past, are unavailable.
// A blocked date or a day without windows yields no slots.
func (s *ListingService) AvailableSlots(ctx context.Context, listingID string, date time.Time) ([]models.Slot, error) {
	listing, err := s.gw.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	day := dateOnly(date)

	blocked, err := s.gw.ListBlockedDates(ctx, listing.ProviderID, day, day)
	if err != nil {
		return nil, err
	}
	if len(blocked) > 0 {
		return []models.Slot{}, nil
	}

	windows, err := s.gw.ListAvailability(ctx, listing.ProviderID)
	if err != nil {
		return nil, err
	}
	slots := expandSlots(windows, day.Weekday())
	if len(slots) == 0 {
		return slots, nil
	}

	bookings, err := s.gw.ListBookings(ctx, domain.NewQuery().
		Eq("provider_id", listing.ProviderID).
		Eq("date", day.Format(models.DateLayout)).
		In("status", models.StatusPending, models.StatusAccepted))
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		taken[b.TimeSlot] = true
	}

	now := s.now().UTC()
	for i := range slots {
		start, _ := slotStart(day, slots[i].Start)
		slots[i].Available = !taken[slots[i].Start] && start.After(now)
	}
	return slots, nil
}

func (s *ListingService) BlockDate(ctx context.Context, sess session.Session, date time.Time, reason string) (*models.BlockedDate, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsProvider() {
		return nil, domain.ErrForbidden
	}
	day := dateOnly(date)
	if day.Before(dateOnly(s.now().UTC())) {
		return nil, domain.Invalid("cannot block a past date")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return nil, domain.Invalid("reason is too long")
	}

	blocked := &models.BlockedDate{ProviderID: sess.AccountID, Date: day, Reason: reason}
	if err := s.gw.BlockDate(ctx, blocked); err != nil {
		return nil, err
	}
	s.logger.Info().Str("provider_id", sess.AccountID).Str("date", day.Format(models.DateLayout)).Msg("Date blocked")
	return blocked, nil
}

func (s *ListingService) UnblockDate(ctx context.Context, sess session.Session, date time.Time) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if !sess.IsProvider() {
		return domain.ErrForbidden
	}
	return s.gw.UnblockDate(ctx, sess.AccountID, dateOnly(date))
}

func (s *ListingService) BlockedDates(ctx context.Context, providerID string, from, to time.Time) ([]*models.BlockedDate, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, domain.Invalid("range end is before its start")
	}
	return s.gw.ListBlockedDates(ctx, providerID, from, to)
}

// normalizeWindows validates windows and sorts them by day and start.
// Windows of the same day must not overlap.
func normalizeWindows(windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error) {
	out := make([]models.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
			return nil, domain.Invalid(fmt.Sprintf("day of week %d is out of range", w.DayOfWeek))
		}
		start, err := time.Parse(models.SlotLayout, w.Start)
		if err != nil {
			return nil, domain.Invalid(fmt.Sprintf("start %q must be HH:MM", w.Start))
		}
		end, err := time.Parse(models.SlotLayout, w.End)
		if err != nil {
			return nil, domain.Invalid(fmt.Sprintf("end %q must be HH:MM", w.End))
		}
		if !end.After(start) {
			return nil, domain.Invalid(fmt.Sprintf("window %s-%s ends before it starts", w.Start, w.End))
		}
		w.Start = start.Format(models.SlotLayout)
		w.End = end.Format(models.SlotLayout)
		out = append(out, w)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].Start < out[j].Start
	})
	for i := 1; i < len(out); i++ {
		if out[i].DayOfWeek == out[i-1].DayOfWeek && out[i].Start < out[i-1].End {
			return nil, domain.Invalid(fmt.Sprintf("windows on %s overlap", out[i].DayOfWeek))
		}
	}
	return out, nil
}

// expandSlots cuts the windows of weekday into consecutive one-hour slots.
// A trailing remainder shorter than an hour is dropped.
func expandSlots(windows []models.AvailabilityWindow, weekday time.Weekday) []models.Slot {
	slots := []models.Slot{}
	for _, w := range windows {
		if w.DayOfWeek != weekday {
			continue
		}
		start, err := time.Parse(models.SlotLayout, w.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(models.SlotLayout, w.End)
		if err != nil {
			continue
		}
		for t := start; !t.Add(slotLength).After(end); t = t.Add(slotLength) {
			slots = append(slots, models.Slot{
				Start:     t.Format(models.SlotLayout),
				End:       t.Add(slotLength).Format(models.SlotLayout),
				Available: true,
			})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

// slotStart combines a date and an HH:MM slot into a UTC instant.
func slotStart(day time.Time, slot string) (time.Time, error) {
	t, err := time.Parse(models.SlotLayout, slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
