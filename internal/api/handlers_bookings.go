package api

import (
	"net/http"
	"time"

	"servicehub/internal/models"
	"servicehub/internal/service"

	"github.com/go-chi/chi/v5"
)

type createBookingRequest struct {
	ListingID        string           `json:"listing_id"`
	Date             string           `json:"date"`
	TimeSlot         string           `json:"time_slot"`
	CustomerLocation *models.Location `json:"customer_location,omitempty"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	date, err := parseDate(body.Date)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	booking, err := s.svc.Bookings.Create(r.Context(), sessionFrom(r), service.CreateBookingRequest{
		ListingID:        body.ListingID,
		Date:             date,
		TimeSlot:         body.TimeSlot,
		CustomerLocation: body.CustomerLocation,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	status := models.BookingStatus(r.URL.Query().Get("status"))
	bookings, err := s.svc.Bookings.List(r.Context(), sessionFrom(r), status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.Get(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := s.svc.Bookings.AllowedTransitions(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if next == nil {
		next = []models.BookingStatus{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": next})
}

type statusRequest struct {
	Status  models.BookingStatus `json:"status"`
	Version int64                `json:"version"`
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if !body.Status.Valid() {
		badRequest(w, "unknown status")
		return
	}
	booking, err := s.svc.Bookings.UpdateStatus(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.Status, body.Version)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleShareLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if !decodeJSON(w, r, &loc) {
		return
	}
	booking, err := s.svc.Bookings.ShareLocation(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), loc)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDistance(w http.ResponseWriter, r *http.Request) {
	km, err := s.svc.Bookings.Distance(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"distance_km": km})
}

// Verification

type generatedCodeResponse struct {
	BookingID string    `json:"booking_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *HTTPServer) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Verification.GenerateCode(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, generatedCodeResponse{BookingID: rec.BookingID, Code: rec.Code, ExpiresAt: rec.ExpiresAt})
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (s *HTTPServer) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	booking, err := s.svc.Verification.VerifyCode(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.Code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Verification.Status(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Messages

type messageRequest struct {
	Body string `json:"body"`
}

func (s *HTTPServer) handleThread(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.Messages.Thread(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *HTTPServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	msg, err := s.svc.Messages.Send(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.Body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Reviews

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *HTTPServer) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var body reviewRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	review, err := s.svc.Reviews.Submit(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.Rating, body.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

type responseRequest struct {
	Response string `json:"response"`
}

func (s *HTTPServer) handleRespondReview(w http.ResponseWriter, r *http.Request) {
	var body responseRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	review, err := s.svc.Reviews.Respond(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.Response)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
