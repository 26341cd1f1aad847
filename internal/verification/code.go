package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"
)

const (
	CodeLength = 6
	DefaultTTL = 10 * time.Minute

	minCode = 100000
	maxCode = 999999
)

var codeSpan = big.NewInt(maxCode - minCode + 1)

// GenerateCode returns a uniformly random code in 100000..999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}

// Normalize trims the submitted code and left-pads it with zeros to six digits.
func Normalize(submitted string) (string, error) {
	code := strings.TrimSpace(submitted)
	if code == "" {
		return "", domain.Invalid("code is required")
	}
	if len(code) > CodeLength {
		return "", domain.Invalid("code must have at most 6 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", domain.Invalid("code must contain digits only")
		}
	}
	return strings.Repeat("0", CodeLength-len(code)) + code, nil
}

// Check validates a normalized submitted code against the stored record at now.
func Check(rec *models.VerificationCode, submitted string, now time.Time) error {
	if rec == nil {
		return domain.ErrNotFound
	}
	if rec.Verified {
		return domain.ErrAlreadyVerified
	}
	if now.After(rec.ExpiresAt) {
		return domain.ErrExpired
	}
	if !Equal(rec.Code, submitted) {
		return domain.ErrMismatch
	}
	return nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// NewRecord builds a fresh unverified record for booking expiring ttl after now.
func NewRecord(booking *models.Booking, code string, now time.Time, ttl time.Duration) *models.VerificationCode {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &models.VerificationCode{
		BookingID:  booking.ID,
		Code:       code,
		CustomerID: booking.CustomerID,
		ProviderID: booking.ProviderID,
		ExpiresAt:  now.Add(ttl),
		Verified:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
