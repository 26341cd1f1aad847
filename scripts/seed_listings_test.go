package main

import (
	"context"
	"testing"
	"time"

	"servicehub/internal/gatewaytest"
	"servicehub/internal/models"
	"servicehub/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const seedYAML = `
providers:
  - id: provider-1
    email: ravi@example.com
    full_name: Ravi Kumar
    city: Pune
    availability:
      - {day: monday, start: "09:00", end: "13:00"}
      - {day: Sat, start: "10:00", end: "12:00"}
    listings:
      - title: Deep cleaning
        category: Cleaning
        price: 800
        price_type: hourly
        latitude: 18.52
        longitude: 73.85
      - title: Sofa shampoo
        category: Cleaning
        price: 1500
  - email: skipped@example.com
`

func TestSeed(t *testing.T) {
	var file SeedFile
	require.NoError(t, yaml.Unmarshal([]byte(seedYAML), &file))

	logger := zerolog.Nop()
	gw := gatewaytest.New()
	accounts := service.NewAccountService(gw, &logger)
	listings := service.NewListingService(gw, &logger)
	ctx := context.Background()

	res, err := seed(ctx, accounts, listings, &file)
	require.NoError(t, err)
	assert.Equal(t, seedResult{providers: 1, created: 2}, res)

	acc, err := gw.GetAccount(ctx, "provider-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleProvider, acc.Role)
	assert.Equal(t, "Ravi Kumar", acc.FullName)
	assert.Equal(t, "Pune", acc.City)

	windows, err := listings.Availability(ctx, "provider-1")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, time.Monday, windows[0].DayOfWeek)
	assert.Equal(t, time.Saturday, windows[1].DayOfWeek)

	// a second run updates by title
	file.Providers[0].Listings[1].Price = 1800
	res, err = seed(ctx, accounts, listings, &file)
	require.NoError(t, err)
	assert.Equal(t, seedResult{providers: 1, updated: 2}, res)
}

func TestSeedRejectsBadWindow(t *testing.T) {
	logger := zerolog.Nop()
	gw := gatewaytest.New()
	file := &SeedFile{Providers: []SeedProvider{{
		ID:           "provider-1",
		Availability: []SeedWindow{{Day: "someday", Start: "09:00", End: "10:00"}},
	}}}

	_, err := seed(context.Background(), service.NewAccountService(gw, &logger), service.NewListingService(gw, &logger), file)
	assert.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{"sunday": time.Sunday, "Wed": time.Wednesday, " FRIDAY ": time.Friday} {
		got, err := parseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseWeekday("")
	assert.Error(t, err)
}
