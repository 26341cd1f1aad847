package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/gatewaytest"
	"servicehub/internal/models"
	"servicehub/internal/repository"
	"servicehub/internal/session"

	"github.com/stretchr/testify/require"
)

// Monday 2 June 2025, 09:00 UTC
var baseTime = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the fake gateway and the services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	ctx   context.Context
	clock *testClock
	gw    *gatewaytest.Fake

	provider session.Session
	customer session.Session
	stranger session.Session

	listing *models.Listing

	accounts     *AccountService
	listings     *ListingService
	bookings     *BookingService
	verification *VerificationService
	reviews      *ReviewService
	messages     *MessageService
	search       *SearchService
	analytics    *AnalyticsService
}

func mustSession(t *testing.T, id string, role models.Role) session.Session {
	t.Helper()
	sess, err := session.New(id, role)
	require.NoError(t, err)
	return sess
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: baseTime}
	gw := gatewaytest.New()
	gw.SetClock(clock.Now)

	f := &fixture{
		ctx:      context.Background(),
		clock:    clock,
		gw:       gw,
		provider: mustSession(t, "provider-1", models.RoleProvider),
		customer: mustSession(t, "customer-1", models.RoleCustomer),
		stranger: mustSession(t, "customer-2", models.RoleCustomer),

		accounts:  NewAccountService(gw, nil),
		listings:  NewListingService(gw, nil).WithClock(clock.Now),
		bookings:  NewBookingService(gw, 30, nil).WithClock(clock.Now),
		reviews:   NewReviewService(gw, nil),
		messages:  NewMessageService(gw, nil),
		search:    NewSearchService(gw, config.SearchConfig{DefaultRadiusKm: 10, MaxRadiusKm: 50, MaxResults: 20}, nil),
		analytics: NewAnalyticsService(gw, nil).WithClock(clock.Now),
	}
	f.verification = NewVerificationService(gw, repository.NewMemoryAttemptLimiter(),
		config.VerificationConfig{CodeTTL: 10 * time.Minute, MaxAttempts: 5, AttemptWindow: 10 * time.Minute}, nil).
		WithClock(clock.Now)

	listing, err := f.listings.Create(f.ctx, f.provider, ListingInput{
		Title:     "Kitchen plumbing",
		Category:  "Plumbing",
		Price:     1500,
		PriceType: models.PriceFixed,
		Location:  &models.Location{Latitude: 19.0760, Longitude: 72.8777},
	})
	require.NoError(t, err)
	f.listing = listing
	return f
}

// book creates a pending booking for the customer tomorrow at slot.
func (f *fixture) book(t *testing.T, slot string) *models.Booking {
	t.Helper()
	b, err := f.bookings.Create(f.ctx, f.customer, CreateBookingRequest{
		ListingID: f.listing.ID,
		Date:      baseTime.AddDate(0, 0, 1),
		TimeSlot:  slot,
	})
	require.NoError(t, err)
	return b
}

// accepted creates a booking and has the provider accept it.
func (f *fixture) accepted(t *testing.T, slot string) *models.Booking {
	t.Helper()
	b := f.book(t, slot)
	b, err := f.bookings.Accept(f.ctx, f.provider, b.ID, b.Version)
	require.NoError(t, err)
	return b
}

func notificationsFor(gw *gatewaytest.Fake, accountID string) []models.Notification {
	var out []models.Notification
	for _, n := range gw.Notifications() {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out
}
