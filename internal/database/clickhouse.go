package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/config"
)

// ClickHouseDB wraps the native ClickHouse connection used for campaign
// snapshot history.
type ClickHouseDB struct {
	Conn   driver.Conn
	logger *zap.Logger
}

const snapshotTableDDL = `CREATE TABLE IF NOT EXISTS campaign_snapshots (
	sync_id       String,
	synced_at     DateTime64(3),
	client_id     String,
	campaign_id   String,
	external_id   String,
	date_window   LowCardinality(String),
	status        LowCardinality(String),
	spend         Float64,
	impressions   Int64,
	clicks        Int64,
	ctr           Float64,
	cpc           Float64,
	roas          Float64,
	conversations Int64,
	leads         Int64
) ENGINE = MergeTree
ORDER BY (client_id, synced_at)`

// NewClickHouseDB opens and pings a ClickHouse connection and makes sure the
// snapshot table exists.
func NewClickHouseDB(ctx context.Context, cfg config.ClickHouseConfig, logger *zap.Logger) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	if err := conn.Exec(ctx, snapshotTableDDL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	logger.Info("connected to ClickHouse",
		zap.Strings("addr", cfg.Addr),
		zap.String("database", cfg.Database),
	)

	return &ClickHouseDB{Conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (db *ClickHouseDB) Close() error {
	if db.Conn != nil {
		db.logger.Info("ClickHouse connection closed")
		return db.Conn.Close()
	}
	return nil
}

// Health pings the server.
func (db *ClickHouseDB) Health(ctx context.Context) error {
	return db.Conn.Ping(ctx)
}
