package service

import (
	"testing"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingCreateValidation(t *testing.T) {
	f := newFixture(t)

	valid := ListingInput{Title: "Deep cleaning", Category: "Cleaning", Price: 800, PriceType: models.PriceHourly}

	tests := []struct {
		name   string
		mutate func(*ListingInput)
	}{
		{"no title", func(in *ListingInput) { in.Title = "  " }},
		{"no category", func(in *ListingInput) { in.Category = "" }},
		{"zero price", func(in *ListingInput) { in.Price = 0 }},
		{"bad price type", func(in *ListingInput) { in.PriceType = "daily" }},
		{"bad location", func(in *ListingInput) { in.Location = &models.Location{Latitude: 0, Longitude: 200} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.listings.Create(f.ctx, f.provider, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := f.listings.Create(f.ctx, f.customer, valid)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	l, err := f.listings.Create(f.ctx, f.provider, valid)
	require.NoError(t, err)
	assert.Equal(t, "cleaning", l.Category)
	assert.Equal(t, f.provider.AccountID, l.ProviderID)
	assert.NotEmpty(t, l.ID)
}

func TestListingUpdateAndArchive(t *testing.T) {
	f := newFixture(t)
	other := mustSession(t, "provider-2", models.RoleProvider)

	in := ListingInput{Title: "Bathroom plumbing", Category: "plumbing", Price: 2000, PriceType: models.PricePerProject}
	_, err := f.listings.Update(f.ctx, other, f.listing.ID, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.listings.Update(f.ctx, f.provider, f.listing.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Bathroom plumbing", updated.Title)
	assert.Nil(t, updated.Location)

	archived, err := f.listings.Archive(f.ctx, f.provider, f.listing.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	_, err = f.listings.Update(f.ctx, f.provider, f.listing.ID, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	public, err := f.listings.ByProvider(f.ctx, f.customer, f.provider.AccountID)
	require.NoError(t, err)
	assert.Empty(t, public)

	own, err := f.listings.ByProvider(f.ctx, f.provider, f.provider.AccountID)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestSetAvailability(t *testing.T) {
	f := newFixture(t)

	saved, err := f.listings.SetAvailability(f.ctx, f.provider, []models.AvailabilityWindow{
		{DayOfWeek: time.Tuesday, Start: "14:00", End: "18:00"},
		{DayOfWeek: time.Monday, Start: "9:00", End: "12:00"},
		{DayOfWeek: time.Tuesday, Start: "09:00", End: "12:00"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, time.Monday, saved[0].DayOfWeek)
	assert.Equal(t, "09:00", saved[0].Start)
	assert.Equal(t, "09:00", saved[1].Start)
	assert.Equal(t, "14:00", saved[2].Start)

	stored, err := f.listings.Availability(f.ctx, f.provider.AccountID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	bad := [][]models.AvailabilityWindow{
		{{DayOfWeek: 7, Start: "09:00", End: "10:00"}},
		{{DayOfWeek: time.Monday, Start: "9am", End: "10:00"}},
		{{DayOfWeek: time.Monday, Start: "12:00", End: "10:00"}},
		{{DayOfWeek: time.Monday, Start: "09:00", End: "12:00"}, {DayOfWeek: time.Monday, Start: "11:00", End: "13:00"}},
	}
	for _, windows := range bad {
		_, err := f.listings.SetAvailability(f.ctx, f.provider, windows)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	_, err = f.listings.SetAvailability(f.ctx, f.customer, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cleared, err := f.listings.SetAvailability(f.ctx, f.provider, nil)
	require.NoError(t, err)
	assert.Empty(t, cleared)
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t)
	tomorrow := baseTime.AddDate(0, 0, 1)

	_, err := f.listings.SetAvailability(f.ctx, f.provider, []models.AvailabilityWindow{
		{DayOfWeek: tomorrow.Weekday(), Start: "09:00", End: "11:30"},
		{DayOfWeek: tomorrow.Weekday(), Start: "14:00", End: "15:00"},
		{DayOfWeek: baseTime.Weekday(), Start: "08:00", End: "11:00"},
	})
	require.NoError(t, err)

	f.book(t, "10:00")

	slots, err := f.listings.AvailableSlots(f.ctx, f.listing.ID, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{
		{Start: "09:00", End: "10:00", Available: true},
		{Start: "10:00", End: "11:00", Available: false},
		{Start: "14:00", End: "15:00", Available: true},
	}, slots)

	// slots that already started today are unavailable
	today, err := f.listings.AvailableSlots(f.ctx, f.listing.ID, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{
		{Start: "08:00", End: "09:00", Available: false},
		{Start: "09:00", End: "10:00", Available: false},
		{Start: "10:00", End: "11:00", Available: true},
	}, today)

	none, err := f.listings.AvailableSlots(f.ctx, f.listing.ID, baseTime.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.listings.BlockDate(f.ctx, f.provider, tomorrow, "")
	require.NoError(t, err)
	blocked, err := f.listings.AvailableSlots(f.ctx, f.listing.ID, tomorrow)
	require.NoError(t, err)
	assert.Empty(t, blocked)

	_, err = f.listings.AvailableSlots(f.ctx, "missing", tomorrow)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledBookingFreesSlot(t *testing.T) {
	f := newFixture(t)
	tomorrow := baseTime.AddDate(0, 0, 1)

	_, err := f.listings.SetAvailability(f.ctx, f.provider, []models.AvailabilityWindow{
		{DayOfWeek: tomorrow.Weekday(), Start: "10:00", End: "11:00"},
	})
	require.NoError(t, err)

	b := f.book(t, "10:00")
	_, err = f.bookings.Cancel(f.ctx, f.provider, b.ID, 0)
	require.NoError(t, err)

	slots, err := f.listings.AvailableSlots(f.ctx, f.listing.ID, tomorrow)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Available)
}

func TestBlockedDates(t *testing.T) {
	f := newFixture(t)
	d1 := baseTime.AddDate(0, 0, 2)
	d2 := baseTime.AddDate(0, 0, 5)

	_, err := f.listings.BlockDate(f.ctx, f.provider, d2, "conference")
	require.NoError(t, err)
	blocked, err := f.listings.BlockDate(f.ctx, f.provider, d1.Add(10*time.Hour), " vacation ")
	require.NoError(t, err)
	assert.Equal(t, "vacation", blocked.Reason)
	assert.Equal(t, 0, blocked.Date.Hour())

	_, err = f.listings.BlockDate(f.ctx, f.provider, baseTime.AddDate(0, 0, -1), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.listings.BlockDate(f.ctx, f.customer, d1, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	all, err := f.listings.BlockedDates(f.ctx, f.provider.AccountID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.Before(all[1].Date))

	window, err := f.listings.BlockedDates(f.ctx, f.provider.AccountID, d1, d1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, window, 1)

	_, err = f.listings.BlockedDates(f.ctx, f.provider.AccountID, d2, d1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.listings.UnblockDate(f.ctx, f.provider, d1))
	assert.ErrorIs(t, f.listings.UnblockDate(f.ctx, f.provider, d1), domain.ErrNotFound)
}
