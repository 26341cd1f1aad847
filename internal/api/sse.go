package api

import (
	"fmt"
	"net/http"
	"time"

	"servicehub/internal/events"
	"servicehub/internal/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	sseBuffer    = 16
	sseKeepAlive = 15 * time.Second
)

func (s *HTTPServer) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Messages.Watch(r.Context(), sessionFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.stream(w, r, sub, "message")
}

func (s *HTTPServer) handleBookingStream(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Bookings.Watch(sessionFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.stream(w, r, sub, "booking")
}

// stream writes each change record as a server-sent event until the client goes away.
// A client that cannot keep up loses changes rather than stalling the hub.
func (s *HTTPServer) stream(w http.ResponseWriter, r *http.Request, sub *events.Subscription, event string) {
	defer sub.Stop()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	changes := make(chan events.Change, sseBuffer)
	err := sub.Start(r.Context(), func(c events.Change) {
		select {
		case changes <- c:
		default:
			metrics.IncDroppedChange(c.Collection)
		}
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to start stream subscription")
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-changes:
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", c.Key, event, c.Record); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
