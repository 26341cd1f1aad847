package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/database"
	"servicehub/internal/export"
	"servicehub/internal/logging"
	"servicehub/internal/models"
	"servicehub/internal/service"
	"servicehub/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config.yaml")
		providerID = flag.String("provider", "", "provider account id")
		days       = flag.Int("days", 30, "report window in days")
	)
	flag.Parse()

	if *providerID == "" {
		return fmt.Errorf("-provider is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "report").Logger()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	sess, err := session.New(*providerID, models.RoleProvider)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	analytics := service.NewAnalyticsService(db, &logger)
	path, err := writeReport(ctx, analytics, sess, *days, cfg.Exports.Path, time.Now())
	if err != nil {
		return err
	}

	logger.Info().Str("path", path).Msg("Report written")

	gs := cfg.Exports.GoogleSheets
	if gs.SpreadsheetID == "" {
		return nil
	}
	publisher, err := export.NewSheetsPublisher(ctx, gs.CredentialsFile, gs.SpreadsheetID)
	if err != nil {
		return err
	}
	if err := publishReport(ctx, analytics, publisher, sess, *days, time.Now()); err != nil {
		return err
	}
	logger.Info().Str("spreadsheet_id", gs.SpreadsheetID).Msg("Report published to Google Sheets")
	return nil
}

type reportPublisher interface {
	Publish(ctx context.Context, stats *models.ProviderStats, generatedAt time.Time) error
}

func publishReport(ctx context.Context, analytics *service.AnalyticsService, p reportPublisher, sess session.Session, days int, now time.Time) error {
	stats, err := analytics.Stats(ctx, sess, days)
	if err != nil {
		return err
	}
	return p.Publish(ctx, stats, now)
}

// writeReport renders into a temp file next to the target and renames it into place.
// A failed export leaves nothing in dir.
func writeReport(ctx context.Context, analytics *service.AnalyticsService, sess session.Session, days int, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	target := filepath.Join(dir, sess.AccountID+"_"+export.FileName(now))
	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := analytics.Export(ctx, sess, days, tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move report into place: %w", err)
	}
	return target, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
