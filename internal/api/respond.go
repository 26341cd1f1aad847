package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorKind struct {
	target  error
	status  int
	code    string
	message string
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "invalid input"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden", "forbidden"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition", "this status change is not allowed"},
	{domain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification", "the booking was changed by someone else, reload and retry"},
	{domain.ErrSlotTaken, http.StatusConflict, "slot_taken", "this time slot is already booked"},
	{domain.ErrDateBlocked, http.StatusConflict, "date_blocked", "the provider is unavailable on this date"},
	{domain.ErrAlreadyReviewed, http.StatusConflict, "already_reviewed", "this booking has already been reviewed"},
	{domain.ErrAlreadyVerified, http.StatusConflict, "already_verified", "this code has already been used"},
	{domain.ErrExpired, http.StatusGone, "expired", "the code has expired, ask the provider for a new one"},
	{domain.ErrMismatch, http.StatusUnprocessableEntity, "mismatch", "the code does not match"},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts", "too many attempts, try again later"},
	{domain.ErrGatewayFailure, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable"},
}

// classify maps a service error to a status, a machine code and a user-facing message.
func classify(err error) (int, errorBody) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		msg := k.message
		if reason, ok := domain.Reason(err); ok {
			msg = reason
		}
		return k.status, errorBody{Error: msg, Code: k.code}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: message, Code: code})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).
			Str("request_id", requestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid_input", message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			badRequest(w, "request body is required")
			return false
		}
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", raw)
	}
	return d, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func queryFloat(r *http.Request, key string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
	return f, true, nil
}
