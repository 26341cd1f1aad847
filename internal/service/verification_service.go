package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/domain"
	"servicehub/internal/lifecycle"
	"servicehub/internal/metrics"
	"servicehub/internal/models"
	"servicehub/internal/session"
	"servicehub/internal/verification"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 10 * time.Minute
)

// VerificationService runs the code exchange that completes an accepted booking.
// The provider generates a code and shows it to the customer on site; the customer submits it.
type VerificationService struct {
	gw      domain.Gateway
	limiter domain.AttemptLimiter
	outbox  outbox
	cfg     config.VerificationConfig
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewVerificationService(gw domain.Gateway, limiter domain.AttemptLimiter, cfg config.VerificationConfig, logger *zerolog.Logger) *VerificationService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = verification.DefaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = defaultAttemptWindow
	}
	logger = nopLogger(logger)
	return &VerificationService{
		gw:      gw,
		limiter: limiter,
		outbox:  outbox{store: gw, logger: logger},
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

func attemptKey(bookingID string) string {
	return "verify:" + bookingID
}

// GenerateCode issues a fresh code for the booking, replacing any previous one.
// The returned record carries the code; nothing else does.
func (s *VerificationService) GenerateCode(ctx context.Context, sess session.Session, bookingID string) (*models.VerificationCode, error) {
	booking, err := s.gw.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	role, err := partyRole(booking, sess)
	if err != nil {
		return nil, err
	}
	if role != models.RoleProvider {
		return nil, domain.ErrForbidden
	}
	if err := lifecycle.Validate(booking.Status, models.StatusCompleted, models.RoleProvider); err != nil {
		return nil, err
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return nil, err
	}
	rec := verification.NewRecord(booking, code, s.now().UTC(), s.cfg.CodeTTL)
	if err := s.gw.UpsertVerificationCode(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.limiter.Reset(ctx, attemptKey(bookingID)); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("Failed to reset verification attempts")
	}

	metrics.IncVerification("generated")
	s.logger.Info().
		Str("booking_id", bookingID).
		Time("expires_at", rec.ExpiresAt).
		Msg("Verification code generated")

	s.outbox.notify(ctx, booking.CustomerID, models.NotificationVerificationCode,
		"Confirm service completion",
		"Your provider asked to complete the booking. Enter the code they show you.",
		map[string]string{"booking_id": booking.ID, "expires_at": rec.ExpiresAt.Format(time.RFC3339)})

	return rec, nil
}

// VerifyCode checks the submitted code and completes the booking on a match.
// Verification and completion are written together; on any failure the code stays unverified.
func (s *VerificationService) VerifyCode(ctx context.Context, sess session.Session, bookingID, submitted string) (*models.Booking, error) {
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

	allowed, err := s.limiter.Allow(ctx, attemptKey(bookingID), s.cfg.MaxAttempts, s.cfg.AttemptWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: attempt limiter: %w", domain.ErrGatewayFailure, err)
	}
	if !allowed {
		metrics.IncVerification("limited")
		return nil, domain.ErrTooManyAttempts
	}

	code, err := verification.Normalize(submitted)
	if err != nil {
		metrics.IncVerification("invalid")
		return nil, err
	}

	rec, err := s.gw.GetVerificationCode(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := verification.Check(rec, code, now); err != nil {
		metrics.IncVerification(outcome(err))
		s.logger.Info().Err(err).Str("booking_id", bookingID).Msg("Verification rejected")
		return nil, err
	}

	// the provider initiated completion, so the provider row of the transition table applies
	if err := lifecycle.Validate(booking.Status, models.StatusCompleted, models.RoleProvider); err != nil {
		return nil, err
	}

	completed, err := s.gw.CompleteWithCode(ctx, bookingID, code, booking.Version, now)
	if err != nil {
		metrics.IncVerification(outcome(err))
		return nil, err
	}

	metrics.IncVerification("verified")
	metrics.IncTransition(string(booking.Status), string(models.StatusCompleted))
	s.logger.Info().Str("booking_id", bookingID).Msg("Booking completed by verification code")

	s.outbox.notify(ctx, completed.ProviderID, models.NotificationBookingStatus,
		"Booking completed",
		fmt.Sprintf("The customer confirmed the booking on %s at %s", completed.Date.Format(models.DateLayout), completed.TimeSlot),
		map[string]string{"booking_id": completed.ID, "status": string(completed.Status)})

	return completed, nil
}

// Status reports the state of the booking's code without revealing it.
func (s *VerificationService) Status(ctx context.Context, sess session.Session, bookingID string) (*models.VerificationCode, error) {
	booking, err := s.gw.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := partyRole(booking, sess); err != nil {
		return nil, err
	}
	rec, err := s.gw.GetVerificationCode(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	rec.Code = ""
	return rec, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrMismatch):
		return "mismatch"
	case errors.Is(err, domain.ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	}
	return "error"
}
