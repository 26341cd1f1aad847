package gatewaytest

import (
	"context"
	"testing"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeCompleteWithCode(t *testing.T) {
	f := New()
	ctx := context.Background()

	b := &models.Booking{
		ID:         "b-1",
		ListingID:  "l-1",
		CustomerID: "c-1",
		ProviderID: "p-1",
		Date:       time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC),
		TimeSlot:   "10:00",
		Status:     models.StatusAccepted,
	}
	require.NoError(t, f.CreateBooking(ctx, b))

	_, err := f.CompleteWithCode(ctx, b.ID, "123456", b.Version, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.UpsertVerificationCode(ctx, &models.VerificationCode{
		BookingID: b.ID, Code: "123456", CustomerID: "c-1", ProviderID: "p-1", ExpiresAt: time.Now().Add(10 * time.Minute),
	}))

	_, err = f.CompleteWithCode(ctx, b.ID, "654321", b.Version, time.Now())
	assert.ErrorIs(t, err, domain.ErrMismatch)

	_, err = f.CompleteWithCode(ctx, b.ID, "123456", b.Version+1, time.Now())
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	completed, err := f.CompleteWithCode(ctx, b.ID, "123456", b.Version, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	// a repeated correct submission reports the code as used
	_, err = f.CompleteWithCode(ctx, b.ID, "123456", completed.Version, time.Now())
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}
