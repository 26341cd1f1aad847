package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Services is everything the HTTP API calls into.
type Services struct {
	Accounts     *service.AccountService
	Listings     *service.ListingService
	Bookings     *service.BookingService
	Verification *service.VerificationService
	Reviews      *service.ReviewService
	Messages     *service.MessageService
	Search       *service.SearchService
	Analytics    *service.AnalyticsService
	Store        Pinger
}

// HTTPServer exposes the marketplace JSON API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	auth    *Authenticator
	limiter *rateLimiter
	server  *http.Server
	log     zerolog.Logger
	now     func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
		now:     time.Now,
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	} else {
		srv.log = zerolog.Nop()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", headerAccountID, headerAccountRole},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         s.cfg.CORS.MaxAge,
	}))
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealthz)
		r.Get("/readyz", s.handleReadyz)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/me", s.handleGetMe)
			r.Put("/me", s.handleUpdateMe)

			r.Route("/listings", func(r chi.Router) {
				r.Get("/", s.handleSearchListings)
				r.Post("/", s.handleCreateListing)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetListing)
					r.Patch("/", s.handleUpdateListing)
					r.Delete("/", s.handleArchiveListing)
					r.Get("/reviews", s.handleListingReviews)
					r.Get("/slots", s.handleListingSlots)
				})
			})

			r.Route("/provider", func(r chi.Router) {
				r.Get("/availability", s.handleOwnAvailability)
				r.Put("/availability", s.handleSetAvailability)
				r.Post("/blocked-dates", s.handleBlockDate)
				r.Delete("/blocked-dates/{date}", s.handleUnblockDate)
				r.Get("/analytics", s.handleAnalytics)
				r.Get("/analytics/export", s.handleAnalyticsExport)
			})

			r.Route("/providers/{id}", func(r chi.Router) {
				r.Get("/listings", s.handleProviderListings)
				r.Get("/availability", s.handleProviderAvailability)
				r.Get("/blocked-dates", s.handleProviderBlockedDates)
			})

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", s.handleCreateBooking)
				r.Get("/", s.handleListBookings)
				r.Get("/stream", s.handleBookingStream)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetBooking)
					r.Get("/transitions", s.handleTransitions)
					r.Post("/status", s.handleUpdateStatus)
					r.Put("/location", s.handleShareLocation)
					r.Get("/distance", s.handleDistance)
					r.Get("/verification", s.handleVerificationStatus)
					r.Post("/verification", s.handleGenerateCode)
					r.Post("/verification/verify", s.handleVerifyCode)
					r.Get("/messages", s.handleThread)
					r.Post("/messages", s.handleSendMessage)
					r.Get("/messages/stream", s.handleMessageStream)
					r.Post("/review", s.handleSubmitReview)
				})
			})

			r.Post("/reviews/{id}/response", s.handleRespondReview)
		})
	})

	return r
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Store.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
