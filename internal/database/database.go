package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"servicehub/internal/domain"
	"servicehub/internal/events"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the sqlite implementation of domain.Gateway.
type DB struct {
	*sql.DB
	path      string
	logger    *zerolog.Logger
	hub       *events.Hub
	publisher events.Publisher
}

var _ domain.Gateway = (*DB)(nil)

type Option func(*DB)

// WithHub makes the gateway publish to and subscribe from hub.
func WithHub(hub *events.Hub) Option {
	return func(db *DB) { db.hub = hub }
}

// WithPublisher overrides where writes are published. Subscriptions still use the hub.
func WithPublisher(p events.Publisher) Option {
	return func(db *DB) { db.publisher = p }
}

func NewDB(path string, logger *zerolog.Logger, opts ...Option) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if !isMemory(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	sqlDB, err := sql.Open("sqlite3", path+sep+"_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite has a single writer; one connection also keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, logger: logger}
	for _, opt := range opts {
		opt(db)
	}
	if db.hub == nil {
		db.hub = events.NewHub(events.DefaultBuffer, logger)
	}
	if db.publisher == nil {
		db.publisher = db.hub
	}

	if err := db.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Path returns the sqlite file backing the gateway.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Hub() *events.Hub {
	return db.hub
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return gatewayErr("ping", err)
	}
	return nil
}

func (db *DB) Subscribe(collection string, match map[string]string, types ...events.ChangeType) *events.Subscription {
	return db.hub.Subscribe(collection, match, types...)
}

// publish emits a change after a successful write. Encoding failures are logged, never returned.
func (db *DB) publish(collection string, typ events.ChangeType, key string, fields map[string]string, record any) {
	change, err := events.NewChange(collection, typ, key, fields, record)
	if err != nil {
		db.logger.Error().Err(err).Str("collection", collection).Str("key", key).Msg("Failed to encode change")
		return
	}
	db.publisher.Publish(change)
}

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrGatewayFailure, op, err)
}

// notFoundOr maps sql.ErrNoRows to domain.ErrNotFound and wraps anything else.
func notFoundOr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return gatewayErr(op, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

type rowScanner interface {
	Scan(dest ...any) error
}
