package service

import (
	"context"
	"io"
	"sort"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/export"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/rs/zerolog"
)

const (
	defaultStatsDays = 30
	maxStatsDays     = 365
)

type AnalyticsService struct {
	gw     domain.Gateway
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAnalyticsService(gw domain.Gateway, logger *zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		gw:     gw,
		logger: nopLogger(logger),
		now:    time.Now,
	}
}

func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// Stats summarizes the caller's bookings dated within the last days days.
// Earnings count completed bookings only.
func (s *AnalyticsService) Stats(ctx context.Context, sess session.Session, days int) (*models.ProviderStats, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsProvider() {
		return nil, domain.ErrForbidden
	}
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		return nil, domain.Invalid("analytics window is limited to 365 days")
	}

	today := dateOnly(s.now().UTC())
	from := today.AddDate(0, 0, -days)
	monthStart := today.AddDate(0, 0, -30)

	bookings, err := s.gw.ListBookings(ctx, domain.NewQuery().
		Eq("provider_id", sess.AccountID).
		Gte("date", from.Format(models.DateLayout)).
		Order("date", true))
	if err != nil {
		return nil, err
	}
	listings, err := s.gw.ListListings(ctx, domain.NewQuery().Eq("provider_id", sess.AccountID))
	if err != nil {
		return nil, err
	}
	reviews, err := s.gw.ListReviews(ctx, domain.NewQuery().Eq("provider_id", sess.AccountID))
	if err != nil {
		return nil, err
	}

	stats := &models.ProviderStats{
		ProviderID:     sess.AccountID,
		Days:           days,
		TotalBookings:  len(bookings),
		ByStatus:       make(map[models.BookingStatus]int, len(models.BookingStatuses)),
		RevenueByMonth: make(map[string]float64),
	}

	perListing := make(map[string]*models.ListingStats, len(listings))
	for _, l := range listings {
		perListing[l.ID] = &models.ListingStats{ListingID: l.ID, Title: l.Title}
	}

	for _, b := range bookings {
		stats.ByStatus[b.Status]++

		ls, ok := perListing[b.ListingID]
		if !ok {
			ls = &models.ListingStats{ListingID: b.ListingID}
			perListing[b.ListingID] = ls
		}
		ls.Bookings++

		if b.Status != models.StatusCompleted {
			continue
		}
		ls.Completed++
		ls.Revenue += b.TotalPrice
		stats.TotalEarnings += b.TotalPrice
		if !b.Date.Before(monthStart) {
			stats.MonthlyEarnings += b.TotalPrice
		}
		stats.RevenueByMonth[b.Date.Format("2006-01")] += b.TotalPrice
		stats.CompletedBookings = append(stats.CompletedBookings, b)
	}

	stats.Listings = make([]models.ListingStats, 0, len(perListing))
	for _, ls := range perListing {
		stats.Listings = append(stats.Listings, *ls)
	}
	sort.Slice(stats.Listings, func(i, j int) bool {
		a, b := stats.Listings[i], stats.Listings[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		if a.Bookings != b.Bookings {
			return a.Bookings > b.Bookings
		}
		return a.ListingID < b.ListingID
	})

	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		stats.ReviewCount = len(reviews)
		stats.AverageRating = float64(total) / float64(len(reviews))
	}

	return stats, nil
}

// Export writes Stats as an xlsx workbook to w.
func (s *AnalyticsService) Export(ctx context.Context, sess session.Session, days int, w io.Writer) error {
	stats, err := s.Stats(ctx, sess, days)
	if err != nil {
		return err
	}
	if err := export.WriteProviderReport(w, stats, s.now()); err != nil {
		return err
	}
	s.logger.Info().
		Str("provider_id", sess.AccountID).
		Int("days", stats.Days).
		Int("bookings", stats.TotalBookings).
		Msg("Analytics exported")
	return nil
}
