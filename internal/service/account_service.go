package service

import (
	"context"
	"errors"
	"strings"

	"servicehub/internal/domain"
	"servicehub/internal/models"
	"servicehub/internal/session"

	"github.com/rs/zerolog"
)

type AccountService struct {
	accounts domain.AccountStore
	logger   *zerolog.Logger
}

func NewAccountService(accounts domain.AccountStore, logger *zerolog.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		logger:   nopLogger(logger),
	}
}

// ProfileUpdate holds the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	City     *string `json:"city"`
	Bio      *string `json:"bio"`
}

// EnsureAccount returns the caller's account, creating it on first sight.
func (s *AccountService) EnsureAccount(ctx context.Context, sess session.Session) (*models.Account, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccount(ctx, sess.AccountID)
	if err == nil {
		if acc.Role != sess.Role {
			s.logger.Warn().
				Str("account_id", acc.ID).
				Str("stored_role", string(acc.Role)).
				Str("token_role", string(sess.Role)).
				Msg("Session role differs from stored account role")
		}
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	acc = &models.Account{
		ID:    sess.AccountID,
		Role:  sess.Role,
		Email: sess.Email,
	}
	if err := s.accounts.UpsertAccount(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", acc.ID).Str("role", string(acc.Role)).Msg("Account created")
	return acc, nil
}

func (s *AccountService) GetProfile(ctx context.Context, sess session.Session) (*models.Account, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.accounts.GetAccount(ctx, sess.AccountID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, sess session.Session, upd ProfileUpdate) (*models.Account, error) {
	acc, err := s.GetProfile(ctx, sess)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, domain.Invalid("full name must not be empty")
		}
		if len(name) > 200 {
			return nil, domain.Invalid("full name is too long")
		}
		acc.FullName = name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		if !validPhone(phone) {
			return nil, domain.Invalid("phone must contain 7 to 15 digits")
		}
		acc.Phone = phone
	}
	if upd.City != nil {
		acc.City = strings.TrimSpace(*upd.City)
	}
	if upd.Bio != nil {
		bio := strings.TrimSpace(*upd.Bio)
		if len(bio) > models.MaxMessageLength {
			return nil, domain.Invalid("bio is too long")
		}
		acc.Bio = bio
	}

	if err := s.accounts.UpsertAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// validPhone accepts an empty value or 7..15 digits with an optional leading plus
// and spaces or dashes between groups.
func validPhone(phone string) bool {
	if phone == "" {
		return true
	}
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
