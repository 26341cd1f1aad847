package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicehub/internal/api"
	"servicehub/internal/config"
	"servicehub/internal/database"
	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/logging"
	"servicehub/internal/metrics"
	"servicehub/internal/repository"
	"servicehub/internal/service"
	"servicehub/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	hub := events.NewHub(cfg.Realtime.Buffer, logging.Component(&logger, "realtime"))
	db, err := initDatabase(ctx, cfg, hub, redisClient, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := buildServices(cfg, db, redisClient, &logger)

	grpcServer, err := api.NewGRPCServer(&cfg.API, db, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}
	httpServer := api.NewHTTPServer(cfg.API, svc, &logger)

	startBackground(ctx, cfg, db, redisClient, &logger)
	startMetrics(ctx, cfg, &logger)
	go grpcServer.WatchHealth(ctx)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initDatabase opens the gateway. With realtime.use_redis, writes fan out through redis
// and come back into the local hub, so every instance sees every change.
func initDatabase(ctx context.Context, cfg *config.Config, hub *events.Hub, redisClient *redis.Client, logger *zerolog.Logger) (*database.DB, error) {
	opts := []database.Option{database.WithHub(hub)}
	if cfg.Realtime.UseRedis && redisClient != nil {
		listener := events.NewRedisListener(redisClient, hub, logging.Component(logger, "realtime"))
		if _, err := listener.Listen(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis change listener failed, using local realtime only")
		} else {
			opts = append(opts, database.WithPublisher(events.NewRedisPublisher(redisClient, hub, logger)))
		}
	}

	db, err := database.NewDB(cfg.Database.Path, logger, opts...)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func buildServices(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) api.Services {
	svcLogger := logging.Component(logger, "service")

	var limiter domain.AttemptLimiter = repository.NewMemoryAttemptLimiter()
	if redisClient != nil {
		limiter = repository.NewFailoverAttemptLimiter(repository.NewRedisAttemptLimiter(redisClient), limiter, svcLogger)
	}

	return api.Services{
		Accounts:     service.NewAccountService(db, svcLogger),
		Listings:     service.NewListingService(db, svcLogger),
		Bookings:     service.NewBookingService(db, cfg.Booking.MaxDaysAhead, svcLogger),
		Verification: service.NewVerificationService(db, limiter, cfg.Verification, svcLogger),
		Reviews:      service.NewReviewService(db, svcLogger),
		Messages:     service.NewMessageService(db, svcLogger),
		Search:       service.NewSearchService(db, cfg.Search, svcLogger),
		Analytics:    service.NewAnalyticsService(db, svcLogger),
		Store:        db,
	}
}

func startBackground(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) {
	if cfg.Notifications.Enabled {
		notifyLogger := logging.Component(logger, "notifications")
		w := worker.NewNotificationWorker(db, buildNotifier(cfg, redisClient, notifyLogger), cfg.Notifications, notifyLogger)
		go w.Start(ctx)
	}

	backup := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backup.Start(ctx)
}

func buildNotifier(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) worker.Notifier {
	var notifier worker.Notifier = worker.NewLogNotifier(logger)
	if redisClient != nil {
		notifier = worker.NewRedisNotifier(redisClient)
	}

	tg := cfg.Notifications.Telegram
	if tg.BotToken == "" {
		return notifier
	}
	botAPI, err := tgbotapi.NewBotAPI(tg.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot init failed, operator chat disabled")
		return notifier
	}
	botAPI.Debug = tg.Debug
	logger.Info().Str("bot", botAPI.Self.UserName).Int64("chat_id", tg.ChatID).Msg("mirroring notifications to telegram")
	return worker.FanoutNotifier{notifier, worker.NewTelegramNotifier(botAPI, tg.ChatID)}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if !cfg.API.GRPC.Enabled {
			return
		}
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
