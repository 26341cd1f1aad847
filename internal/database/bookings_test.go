package database

import (
	"context"
	"testing"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	date := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)
	b := testBooking("p1", "c1", date, "10:00")
	b.CustomerLocation = &models.Location{Latitude: 19.07, Longitude: 72.87}
	require.NoError(t, db.CreateBooking(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.True(t, got.Date.Equal(date))
	assert.Equal(t, "10:00", got.TimeSlot)
	assert.Equal(t, models.StatusPending, got.Status)
	require.NotNil(t, got.CustomerLocation)
	assert.InDelta(t, 19.07, got.CustomerLocation.Latitude, 1e-9)
	assert.Nil(t, got.ProviderLocation)

	_, err = db.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateBooking_SlotAndBlockedDate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateBooking(ctx, testBooking("p1", "c1", date, "10:00")))

	err := db.CreateBooking(ctx, testBooking("p1", "c2", date, "10:00"))
	assert.ErrorIs(t, err, domain.ErrSlotTaken)

	// another provider or another slot is fine
	require.NoError(t, db.CreateBooking(ctx, testBooking("p2", "c2", date, "10:00")))
	require.NoError(t, db.CreateBooking(ctx, testBooking("p1", "c2", date, "11:00")))

	require.NoError(t, db.BlockDate(ctx, &models.BlockedDate{ProviderID: "p1", Date: date.AddDate(0, 0, 1)}))
	err = db.CreateBooking(ctx, testBooking("p1", "c3", date.AddDate(0, 0, 1), "10:00"))
	assert.ErrorIs(t, err, domain.ErrDateBlocked)
}

func TestCreateBooking_CancelledSlotIsReusable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)

	first := testBooking("p1", "c1", date, "10:00")
	require.NoError(t, db.CreateBooking(ctx, first))
	_, err := db.UpdateBookingStatus(ctx, first.ID, first.Version, models.StatusCancelled)
	require.NoError(t, err)

	assert.NoError(t, db.CreateBooking(ctx, testBooking("p1", "c2", date, "10:00")))
}

func TestUpdateBookingStatus_OptimisticLocking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := testBooking("p1", "c1", time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC), "10:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	updated, err := db.UpdateBookingStatus(ctx, b.ID, 1, models.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	// stale version
	_, err = db.UpdateBookingStatus(ctx, b.ID, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)

	_, err = db.UpdateBookingStatus(ctx, "missing", 1, models.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateBookingLocation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := testBooking("p1", "c1", time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC), "10:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	updated, err := db.UpdateBookingLocation(ctx, b.ID, models.RoleProvider, models.Location{Latitude: 1, Longitude: 2})
	require.NoError(t, err)
	require.NotNil(t, updated.ProviderLocation)
	assert.Equal(t, 2.0, updated.ProviderLocation.Longitude)
	assert.Equal(t, int64(1), updated.Version)

	_, err = db.UpdateBookingLocation(ctx, b.ID, models.Role("admin"), models.Location{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = db.UpdateBookingLocation(ctx, "missing", models.RoleCustomer, models.Location{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)

	slots := []string{"09:00", "10:00", "11:00"}
	for _, slot := range slots {
		require.NoError(t, db.CreateBooking(ctx, testBooking("p1", "c1", date, slot)))
	}
	require.NoError(t, db.CreateBooking(ctx, testBooking("p2", "c2", date, "09:00")))

	all, err := db.ListBookings(ctx, domain.NewQuery().Eq("provider_id", "p1").Order("created_at", true))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "11:00", all[0].TimeSlot)
	assert.Equal(t, "09:00", all[2].TimeSlot)

	limited, err := db.ListBookings(ctx, domain.NewQuery().Eq("customer_id", "c1").Take(2))
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	inSlots, err := db.ListBookings(ctx, domain.NewQuery().In("time_slot", "09:00", "11:00"))
	require.NoError(t, err)
	assert.Len(t, inSlots, 3)

	byDate, err := db.ListBookings(ctx, domain.NewQuery().Gte("date", "2030-05-11"))
	require.NoError(t, err)
	assert.Empty(t, byDate)
}
