package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/config"
)

// PostgresDB wraps a pgx connection pool with convenience methods.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresDB creates a new PostgreSQL connection pool.
func NewPostgresDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DBName),
		zap.Int("max_conns", cfg.MaxConns),
	)

	return &PostgresDB{
		Pool:   pool,
		logger: logger,
	}, nil
}

// schema is applied on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		email        TEXT NOT NULL DEFAULT '',
		role         TEXT NOT NULL,
		company_name TEXT NOT NULL DEFAULT '',
		ad_account_id TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id                 TEXT PRIMARY KEY,
		client_id          TEXT NOT NULL,
		external_id        TEXT,
		name               TEXT NOT NULL,
		status             TEXT NOT NULL,
		spend              DOUBLE PRECISION NOT NULL DEFAULT 0,
		impressions        BIGINT NOT NULL DEFAULT 0,
		clicks             BIGINT NOT NULL DEFAULT 0,
		ctr                DOUBLE PRECISION NOT NULL DEFAULT 0,
		cpc                DOUBLE PRECISION NOT NULL DEFAULT 0,
		roas               DOUBLE PRECISION NOT NULL DEFAULT 0,
		conversations      BIGINT NOT NULL DEFAULT 0,
		leads              BIGINT NOT NULL DEFAULT 0,
		platform           TEXT NOT NULL,
		age_breakdown      JSONB,
		gender_breakdown   JSONB,
		platform_breakdown JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS campaigns_client_idx ON campaigns (client_id)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id        TEXT PRIMARY KEY,
		client_id TEXT NOT NULL DEFAULT '',
		title     TEXT NOT NULL,
		assignee  TEXT NOT NULL DEFAULT '',
		status    TEXT NOT NULL,
		priority  TEXT NOT NULL,
		due_date  TEXT NOT NULL DEFAULT '',
		tags      TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id             TEXT PRIMARY KEY,
		meta_ads_token TEXT NOT NULL DEFAULT '',
		google_ads_key TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the portal tables when they do not exist.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	db.logger.Debug("schema up to date", zap.Int("statements", len(schema)))
	return nil
}

// Close closes the database connection pool.
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("PostgreSQL connection pool closed")
	}
}

// Health checks if the database is reachable.
func (db *PostgresDB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (db *PostgresDB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}
