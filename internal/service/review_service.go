package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ReviewService struct {
	gw     domain.Gateway
	logger *zerolog.Logger
	now    func() time.Time
}

func NewReviewService(gw domain.Gateway, logger *zerolog.Logger) *ReviewService {
	return &ReviewService{
		gw:     gw,
		logger: nopLogger(logger),
		now:    time.Now,
	}
}

// Submit records the customer's review of a completed booking. A booking is reviewed at most once.
func (s *ReviewService) Submit(ctx context.Context, sess session.Session, bookingID string, rating int, comment string) (*models.Review, error) {
	booking, err := s.gw.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	role, err := partyRole(booking, sess)
	if err != nil {
		return nil, err
	}
	if role != models.RoleCustomer {
		return nil, domain.ErrForbidden
	}
	if booking.Status != models.StatusCompleted {
		return nil, domain.Invalid("only completed bookings can be reviewed")
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, domain.Invalid(fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating))
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > models.MaxMessageLength {
		return nil, domain.Invalid("comment is too long")
	}

	review := &models.Review{
		ID:         uuid.NewString(),
		BookingID:  booking.ID,
		ListingID:  booking.ListingID,
		ProviderID: booking.ProviderID,
		CustomerID: booking.CustomerID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.gw.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("review_id", review.ID).
		Str("listing_id", review.ListingID).
		Int("rating", rating).
		Msg("Review submitted")
	return review, nil
}

// Respond sets the provider's public answer to a review. A later call replaces it.
func (s *ReviewService) Respond(ctx context.Context, sess session.Session, reviewID, response string) (*models.Review, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	review, err := s.gw.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ProviderID != sess.AccountID {
		return nil, domain.ErrForbidden
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return nil, domain.Invalid("response must not be empty")
	}
	if len(response) > models.MaxMessageLength {
		return nil, domain.Invalid("response is too long")
	}
	return s.gw.UpdateReviewResponse(ctx, reviewID, response, s.now().UTC())
}

// ForListing returns the reviews of a listing, newest first.
func (s *ReviewService) ForListing(ctx context.Context, listingID string) ([]*models.Review, error) {
	return s.gw.ListReviews(ctx, domain.NewQuery().Eq("listing_id", listingID).Order("created_at", true))
}

// Summaries returns the rating summary of every listing id that has reviews.
func (s *ReviewService) Summaries(ctx context.Context, listingIDs []string) (map[string]models.RatingSummary, error) {
	if len(listingIDs) == 0 {
		return map[string]models.RatingSummary{}, nil
	}
	return s.gw.RatingSummaries(ctx, listingIDs)
}
