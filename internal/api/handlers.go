package api

import (
	"bytes"
	"net/http"
	"strings"

	"servicehub/internal/export"
	"servicehub/internal/models"
	"servicehub/internal/service"

	"github.com/go-chi/chi/v5"
)

// Accounts

func (s *HTTPServer) handleGetMe(w http.ResponseWriter, r *http.Request) {
	acc, err := s.svc.Accounts.GetProfile(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *HTTPServer) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd service.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	acc, err := s.svc.Accounts.UpdateProfile(r.Context(), sessionFrom(r), upd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// Listings

type listingResponse struct {
	*models.Listing
	Rating models.RatingSummary `json:"rating"`
}

func (s *HTTPServer) handleSearchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.SearchQuery{
		Category:   q.Get("category"),
		Term:       q.Get("q"),
		ProviderID: q.Get("provider_id"),
	}

	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	lon, hasLon, err := queryFloat(r, "lon")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if hasLat != hasLon {
		badRequest(w, "lat and lon must be given together")
		return
	}
	if hasLat {
		query.Origin = &models.Location{Latitude: lat, Longitude: lon}
	}
	if query.RadiusKm, _, err = queryFloat(r, "radius_km"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if query.Limit, err = queryInt(r, "limit"); err != nil {
		badRequest(w, err.Error())
		return
	}

	results, err := s.svc.Search.Search(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *HTTPServer) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var in service.ListingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	listing, err := s.svc.Listings.Create(r.Context(), sessionFrom(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (s *HTTPServer) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listing, err := s.svc.Listings.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ratings, err := s.svc.Reviews.Summaries(r.Context(), []string{id})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listingResponse{Listing: listing, Rating: ratings[id]})
}

func (s *HTTPServer) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	var in service.ListingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	listing, err := s.svc.Listings.Update(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *HTTPServer) handleArchiveListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.svc.Listings.Archive(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *HTTPServer) handleListingReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Listings.Get(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	reviews, err := s.svc.Reviews.ForListing(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *HTTPServer) handleListingSlots(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if strings.TrimSpace(raw) == "" {
		badRequest(w, "date is required")
		return
	}
	date, err := parseDate(raw)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	slots, err := s.svc.Listings.AvailableSlots(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date.Format(models.DateLayout), "slots": slots})
}

// Provider schedule

type availabilityRequest struct {
	Windows []models.AvailabilityWindow `json:"windows"`
}

func (s *HTTPServer) writeAvailability(w http.ResponseWriter, r *http.Request, providerID string) {
	windows, err := s.svc.Listings.Availability(r.Context(), providerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if windows == nil {
		windows = []models.AvailabilityWindow{}
	}
	writeJSON(w, http.StatusOK, availabilityRequest{Windows: windows})
}

func (s *HTTPServer) handleOwnAvailability(w http.ResponseWriter, r *http.Request) {
	s.writeAvailability(w, r, sessionFrom(r).AccountID)
}

func (s *HTTPServer) handleProviderAvailability(w http.ResponseWriter, r *http.Request) {
	s.writeAvailability(w, r, chi.URLParam(r, "id"))
}

func (s *HTTPServer) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	var body availabilityRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	windows, err := s.svc.Listings.SetAvailability(r.Context(), sessionFrom(r), body.Windows)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityRequest{Windows: windows})
}

type blockDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (s *HTTPServer) handleBlockDate(w http.ResponseWriter, r *http.Request) {
	var body blockDateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	date, err := parseDate(body.Date)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	blocked, err := s.svc.Listings.BlockDate(r.Context(), sessionFrom(r), date, body.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, blocked)
}

func (s *HTTPServer) handleUnblockDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Listings.UnblockDate(r.Context(), sessionFrom(r), date); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleProviderBlockedDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := s.now().UTC()
	if raw := q.Get("from"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		from = d
	}
	to := from.AddDate(0, 0, 90)
	if raw := q.Get("to"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		to = d
	}

	blocked, err := s.svc.Listings.BlockedDates(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if blocked == nil {
		blocked = []*models.BlockedDate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocked_dates": blocked})
}

func (s *HTTPServer) handleProviderListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.svc.Listings.ByProvider(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// Analytics

func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	stats, err := s.svc.Analytics.Stats(r.Context(), sessionFrom(r), days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := s.svc.Analytics.Export(r.Context(), sessionFrom(r), days, &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
