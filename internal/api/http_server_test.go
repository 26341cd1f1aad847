package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/domain"
	"servicehub/internal/export"
	"servicehub/internal/gatewaytest"
	"servicehub/internal/models"
	"servicehub/internal/repository"
	"servicehub/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testAPI struct {
	t      *testing.T
	gw     *gatewaytest.Fake
	srv    *HTTPServer
	ts     *httptest.Server
	tokens map[string]string
}

func newTestAPI(t *testing.T, cfg config.APIConfig) *testAPI {
	t.Helper()
	gw := gatewaytest.New()
	svc := Services{
		Accounts:  service.NewAccountService(gw, nil),
		Listings:  service.NewListingService(gw, nil),
		Bookings:  service.NewBookingService(gw, 30, nil),
		Reviews:   service.NewReviewService(gw, nil),
		Messages:  service.NewMessageService(gw, nil),
		Search:    service.NewSearchService(gw, config.SearchConfig{DefaultRadiusKm: 10, MaxRadiusKm: 50, MaxResults: 20}, nil),
		Analytics: service.NewAnalyticsService(gw, nil),
		Verification: service.NewVerificationService(gw, repository.NewMemoryAttemptLimiter(),
			config.VerificationConfig{CodeTTL: 10 * time.Minute, MaxAttempts: 3, AttemptWindow: 10 * time.Minute}, nil),
		Store: gw,
	}
	cfg.Auth = testAuth
	srv := NewHTTPServer(cfg, svc, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	a := &testAPI{t: t, gw: gw, srv: srv, ts: ts, tokens: map[string]string{}}
	for id, role := range map[string]models.Role{
		"provider-1": models.RoleProvider,
		"customer-1": models.RoleCustomer,
		"customer-2": models.RoleCustomer,
	} {
		token, err := IssueToken(testAuth, id, role, id+"@example.com", time.Hour)
		require.NoError(t, err)
		a.tokens[id] = token
	}
	return a
}

func (a *testAPI) do(as, method, path string, body any) *http.Response {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.ts.URL+path, rdr)
	require.NoError(a.t, err)
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[as])
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.ts.Client().Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// call performs a request, checks the status and decodes the body into out.
func (a *testAPI) call(as, method, path string, body any, wantStatus int, out any) {
	a.t.Helper()
	resp := a.do(as, method, path, body)
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		a.t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func (a *testAPI) errorCode(as, method, path string, body any) (int, string) {
	a.t.Helper()
	resp := a.do(as, method, path, body)
	var e errorBody
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&e))
	return resp.StatusCode, e.Code
}

func (a *testAPI) createListing() *models.Listing {
	a.t.Helper()
	var listing models.Listing
	a.call("provider-1", http.MethodPost, "/api/v1/listings", service.ListingInput{
		Title:     "Kitchen plumbing",
		Category:  "plumbing",
		Price:     1500,
		PriceType: models.PriceFixed,
		Location:  &models.Location{Latitude: 19.0760, Longitude: 72.8777},
	}, http.StatusCreated, &listing)
	return &listing
}

func bookingDate() string {
	return time.Now().UTC().AddDate(0, 0, 2).Format(models.DateLayout)
}

func (a *testAPI) createBooking(listingID, slot string) *models.Booking {
	a.t.Helper()
	var booking models.Booking
	a.call("customer-1", http.MethodPost, "/api/v1/bookings", createBookingRequest{
		ListingID: listingID, Date: bookingDate(), TimeSlot: slot,
	}, http.StatusCreated, &booking)
	return &booking
}

func TestHealthEndpoints(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})

	a.call("", http.MethodGet, "/healthz", nil, http.StatusOK, nil)
	a.call("", http.MethodGet, "/api/v1/readyz", nil, http.StatusOK, nil)

	a.gw.Fail(errors.New("disk gone"))
	a.call("", http.MethodGet, "/readyz", nil, http.StatusServiceUnavailable, nil)
	a.call("", http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})

	code, machine := a.errorCode("", http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", machine)

	resp := a.do("", http.MethodGet, "/api/v1/me", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestProfileFlow(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})

	var me models.Account
	a.call("customer-1", http.MethodGet, "/api/v1/me", nil, http.StatusOK, &me)
	assert.Equal(t, "customer-1", me.ID)
	assert.Equal(t, models.RoleCustomer, me.Role)
	assert.Equal(t, "customer-1@example.com", me.Email)

	a.call("customer-1", http.MethodPut, "/api/v1/me", map[string]string{"full_name": "Asha", "city": "Mumbai"}, http.StatusOK, &me)
	assert.Equal(t, "Asha", me.FullName)
	assert.Equal(t, "Mumbai", me.City)

	code, machine := a.errorCode("customer-1", http.MethodPut, "/api/v1/me", map[string]string{"phone": "abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", machine)

	code, _ = a.errorCode("customer-1", http.MethodPut, "/api/v1/me", map[string]string{"nickname": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListingEndpoints(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()

	code, machine := a.errorCode("customer-1", http.MethodPost, "/api/v1/listings", service.ListingInput{Title: "x", Category: "y", Price: 1, PriceType: models.PriceFixed})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", machine)

	var got listingResponse
	a.call("customer-1", http.MethodGet, "/api/v1/listings/"+listing.ID, nil, http.StatusOK, &got)
	assert.Equal(t, "Kitchen plumbing", got.Title)
	assert.Zero(t, got.Rating.Count)

	var search struct {
		Results []service.SearchResult `json:"results"`
	}
	a.call("customer-1", http.MethodGet, "/api/v1/listings?category=plumbing&lat=19.08&lon=72.88&radius_km=5", nil, http.StatusOK, &search)
	require.Len(t, search.Results, 1)
	require.NotNil(t, search.Results[0].DistanceKm)

	code, _ = a.errorCode("customer-1", http.MethodGet, "/api/v1/listings?lat=19.08", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var slots struct {
		Slots []models.Slot `json:"slots"`
	}
	a.call("customer-1", http.MethodGet, "/api/v1/listings/"+listing.ID+"/slots?date="+bookingDate(), nil, http.StatusOK, &slots)
	assert.NotNil(t, slots.Slots)
	assert.Empty(t, slots.Slots)

	weekday := time.Now().UTC().AddDate(0, 0, 2).Weekday()
	a.call("provider-1", http.MethodPut, "/api/v1/provider/availability", availabilityRequest{Windows: []models.AvailabilityWindow{
		{DayOfWeek: weekday, Start: "09:00", End: "12:00"},
	}}, http.StatusOK, nil)
	a.call("customer-1", http.MethodGet, "/api/v1/listings/"+listing.ID+"/slots?date="+bookingDate(), nil, http.StatusOK, &slots)
	require.Len(t, slots.Slots, 3)
	assert.Equal(t, models.Slot{Start: "09:00", End: "10:00", Available: true}, slots.Slots[0])

	code, _ = a.errorCode("customer-1", http.MethodGet, "/api/v1/listings/"+listing.ID+"/slots", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var archived models.Listing
	a.call("provider-1", http.MethodDelete, "/api/v1/listings/"+listing.ID, nil, http.StatusOK, &archived)
	assert.True(t, archived.Archived)

	var mine struct {
		Listings []models.Listing `json:"listings"`
	}
	a.call("customer-1", http.MethodGet, "/api/v1/providers/provider-1/listings", nil, http.StatusOK, &mine)
	assert.Empty(t, mine.Listings)

	code, machine = a.errorCode("customer-1", http.MethodGet, "/api/v1/listings/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", machine)
}

func TestScheduleEndpoints(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})

	windows := availabilityRequest{Windows: []models.AvailabilityWindow{
		{DayOfWeek: time.Monday, Start: "09:00", End: "12:00"},
	}}
	var set availabilityRequest
	a.call("provider-1", http.MethodPut, "/api/v1/provider/availability", windows, http.StatusOK, &set)
	require.Len(t, set.Windows, 1)

	var public availabilityRequest
	a.call("customer-1", http.MethodGet, "/api/v1/providers/provider-1/availability", nil, http.StatusOK, &public)
	assert.Equal(t, set.Windows, public.Windows)

	day := time.Now().UTC().AddDate(0, 0, 3).Format(models.DateLayout)
	a.call("provider-1", http.MethodPost, "/api/v1/provider/blocked-dates", blockDateRequest{Date: day, Reason: "holiday"}, http.StatusCreated, nil)

	var blocked struct {
		BlockedDates []models.BlockedDate `json:"blocked_dates"`
	}
	a.call("customer-1", http.MethodGet, "/api/v1/providers/provider-1/blocked-dates", nil, http.StatusOK, &blocked)
	require.Len(t, blocked.BlockedDates, 1)
	assert.Equal(t, "holiday", blocked.BlockedDates[0].Reason)

	a.call("provider-1", http.MethodDelete, "/api/v1/provider/blocked-dates/"+day, nil, http.StatusNoContent, nil)
	a.call("customer-1", http.MethodGet, "/api/v1/providers/provider-1/blocked-dates", nil, http.StatusOK, &blocked)
	assert.Empty(t, blocked.BlockedDates)

	code, _ := a.errorCode("provider-1", http.MethodDelete, "/api/v1/provider/blocked-dates/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()
	booking := a.createBooking(listing.ID, "10:00")
	assert.Equal(t, models.StatusPending, booking.Status)

	code, machine := a.errorCode("customer-2", http.MethodPost, "/api/v1/bookings", createBookingRequest{ListingID: listing.ID, Date: bookingDate(), TimeSlot: "10:00"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "slot_taken", machine)

	var transitions struct {
		Transitions []models.BookingStatus `json:"transitions"`
	}
	a.call("provider-1", http.MethodGet, "/api/v1/bookings/"+booking.ID+"/transitions", nil, http.StatusOK, &transitions)
	assert.ElementsMatch(t, []models.BookingStatus{models.StatusAccepted, models.StatusCancelled}, transitions.Transitions)

	code, machine = a.errorCode("customer-1", http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", statusRequest{Status: models.StatusAccepted})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", machine)

	code, machine = a.errorCode("customer-2", http.MethodGet, "/api/v1/bookings/"+booking.ID, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", machine)

	var accepted models.Booking
	a.call("provider-1", http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", statusRequest{Status: models.StatusAccepted, Version: booking.Version}, http.StatusOK, &accepted)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	code, machine = a.errorCode("provider-1", http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", statusRequest{Status: models.StatusCancelled, Version: booking.Version})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "concurrent_modification", machine)

	code, _ = a.errorCode("provider-1", http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", statusRequest{Status: "done"})
	assert.Equal(t, http.StatusBadRequest, code)

	// locations and distance
	code, _ = a.errorCode("customer-1", http.MethodGet, "/api/v1/bookings/"+booking.ID+"/distance", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	a.call("customer-1", http.MethodPut, "/api/v1/bookings/"+booking.ID+"/location", models.Location{Latitude: 19.0760, Longitude: 72.8777}, http.StatusOK, nil)
	a.call("provider-1", http.MethodPut, "/api/v1/bookings/"+booking.ID+"/location", models.Location{Latitude: 18.5204, Longitude: 73.8567}, http.StatusOK, nil)
	var dist map[string]float64
	a.call("customer-1", http.MethodGet, "/api/v1/bookings/"+booking.ID+"/distance", nil, http.StatusOK, &dist)
	assert.InDelta(t, 120, dist["distance_km"], 5)

	var list struct {
		Bookings []models.Booking `json:"bookings"`
	}
	a.call("customer-1", http.MethodGet, "/api/v1/bookings?status=accepted", nil, http.StatusOK, &list)
	require.Len(t, list.Bookings, 1)
	a.call("customer-2", http.MethodGet, "/api/v1/bookings", nil, http.StatusOK, &list)
	assert.Empty(t, list.Bookings)
}

func TestVerificationOverHTTP(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()
	booking := a.createBooking(listing.ID, "11:00")
	path := "/api/v1/bookings/" + booking.ID

	code, machine := a.errorCode("provider-1", http.MethodPost, path+"/verification", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", machine)

	a.call("provider-1", http.MethodPost, path+"/status", statusRequest{Status: models.StatusAccepted}, http.StatusOK, nil)

	code, _ = a.errorCode("customer-1", http.MethodPost, path+"/verification", nil)
	assert.Equal(t, http.StatusForbidden, code)

	var generated generatedCodeResponse
	a.call("provider-1", http.MethodPost, path+"/verification", nil, http.StatusCreated, &generated)
	require.Len(t, generated.Code, 6)

	var st map[string]any
	a.call("customer-1", http.MethodGet, path+"/verification", nil, http.StatusOK, &st)
	assert.NotContains(t, st, "code")
	assert.Equal(t, false, st["verified"])

	wrong := "000000"
	if generated.Code == wrong {
		wrong = "111111"
	}
	code, machine = a.errorCode("customer-1", http.MethodPost, path+"/verification/verify", verifyRequest{Code: wrong})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "mismatch", machine)

	var completed models.Booking
	a.call("customer-1", http.MethodPost, path+"/verification/verify", verifyRequest{Code: generated.Code}, http.StatusOK, &completed)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	code, machine = a.errorCode("customer-1", http.MethodPost, path+"/verification/verify", verifyRequest{Code: generated.Code})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_verified", machine)

	// reviews on the completed booking
	var review models.Review
	a.call("customer-1", http.MethodPost, path+"/review", reviewRequest{Rating: 5, Comment: "Great"}, http.StatusCreated, &review)
	code, machine = a.errorCode("customer-1", http.MethodPost, path+"/review", reviewRequest{Rating: 4})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_reviewed", machine)

	a.call("provider-1", http.MethodPost, "/api/v1/reviews/"+review.ID+"/response", responseRequest{Response: "Thanks"}, http.StatusOK, &review)
	assert.Equal(t, "Thanks", review.ProviderResponse)

	var reviews struct {
		Reviews []models.Review `json:"reviews"`
	}
	a.call("customer-2", http.MethodGet, "/api/v1/listings/"+listing.ID+"/reviews", nil, http.StatusOK, &reviews)
	require.Len(t, reviews.Reviews, 1)

	var got listingResponse
	a.call("customer-2", http.MethodGet, "/api/v1/listings/"+listing.ID, nil, http.StatusOK, &got)
	assert.Equal(t, models.RatingSummary{Average: 5, Count: 1}, got.Rating)
}

func TestVerificationAttemptLimitOverHTTP(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()
	booking := a.createBooking(listing.ID, "12:00")
	path := "/api/v1/bookings/" + booking.ID
	a.call("provider-1", http.MethodPost, path+"/status", statusRequest{Status: models.StatusAccepted}, http.StatusOK, nil)

	var generated generatedCodeResponse
	a.call("provider-1", http.MethodPost, path+"/verification", nil, http.StatusCreated, &generated)

	wrong := "000000"
	if generated.Code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 3; i++ {
		code, _ := a.errorCode("customer-1", http.MethodPost, path+"/verification/verify", verifyRequest{Code: wrong})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	}
	code, machine := a.errorCode("customer-1", http.MethodPost, path+"/verification/verify", verifyRequest{Code: generated.Code})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "too_many_attempts", machine)
}

func TestMessagesOverHTTP(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()
	booking := a.createBooking(listing.ID, "13:00")
	path := "/api/v1/bookings/" + booking.ID + "/messages"

	a.call("customer-1", http.MethodPost, path, messageRequest{Body: "Is 10 ok?"}, http.StatusCreated, nil)
	a.call("provider-1", http.MethodPost, path, messageRequest{Body: "Yes"}, http.StatusCreated, nil)

	code, _ := a.errorCode("customer-1", http.MethodPost, path, messageRequest{Body: "   "})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.errorCode("customer-2", http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, code)

	var thread struct {
		Messages []models.Message `json:"messages"`
	}
	a.call("provider-1", http.MethodGet, path, nil, http.StatusOK, &thread)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "Is 10 ok?", thread.Messages[0].Body)
	assert.Equal(t, "provider-1", thread.Messages[0].ReceiverID)
}

func TestMessageStream(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()
	booking := a.createBooking(listing.ID, "14:00")
	path := "/api/v1/bookings/" + booking.ID + "/messages"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.ts.URL+path+"/stream?access_token="+a.tokens["provider-1"], nil)
	require.NoError(t, err)
	resp, err := a.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription is registered once the headers are flushed; wait for it
	require.Eventually(t, func() bool { return a.gw.Hub().Active() > 0 }, time.Second, 5*time.Millisecond)

	a.call("customer-1", http.MethodPost, path, messageRequest{Body: "On my way"}, http.StatusCreated, nil)

	events := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				events <- strings.TrimPrefix(line, "data: ")
				return
			}
		}
	}()

	select {
	case data := <-events:
		var msg models.Message
		require.NoError(t, json.Unmarshal([]byte(data), &msg))
		assert.Equal(t, "On my way", msg.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("no message event received")
	}

	code, _ := a.errorCode("customer-2", http.MethodGet, path+"/stream", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAnalyticsOverHTTP(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	listing := a.createListing()
	booking := a.createBooking(listing.ID, "15:00")
	a.call("provider-1", http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", statusRequest{Status: models.StatusAccepted}, http.StatusOK, nil)
	a.call("provider-1", http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", statusRequest{Status: models.StatusCompleted}, http.StatusOK, nil)

	var stats models.ProviderStats
	a.call("provider-1", http.MethodGet, "/api/v1/provider/analytics?days=30", nil, http.StatusOK, &stats)
	assert.Equal(t, 1, stats.TotalBookings)
	assert.InDelta(t, 1500, stats.TotalEarnings, 0.001)

	code, _ := a.errorCode("provider-1", http.MethodGet, "/api/v1/provider/analytics?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.errorCode("customer-1", http.MethodGet, "/api/v1/provider/analytics", nil)
	assert.Equal(t, http.StatusForbidden, code)

	resp := a.do("provider-1", http.MethodGet, "/api/v1/provider/analytics/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "servicehub_report_")

	wb, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{export.SheetSummary, export.SheetBookings, export.SheetServices}, wb.GetSheetList())
}

func TestGatewayFailureMapsToUnavailable(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{})
	a.call("customer-1", http.MethodGet, "/api/v1/me", nil, http.StatusOK, nil)

	a.gw.Fail(errors.New("database is locked"))
	code, machine := a.errorCode("customer-1", http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", machine)
}

func TestHTTPRateLimit(t *testing.T) {
	a := newTestAPI(t, config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 2}})

	a.call("", http.MethodGet, "/healthz", nil, http.StatusOK, nil)
	a.call("", http.MethodGet, "/healthz", nil, http.StatusOK, nil)
	code, machine := a.errorCode("", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", machine)
}

func TestClassify(t *testing.T) {
	status, body := classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", body.Code)

	status, body = classify(fmt.Errorf("create booking: %w", domain.Invalid("time slot is not offered")))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "time slot is not offered", body.Error)
}
