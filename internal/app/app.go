// Package app wires configuration, backing stores and services into a
// running portal. Both the server and the operator CLI build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/adsync"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/database"
	"github.com/radiusdt/agency-portal/internal/httpserver"
	"github.com/radiusdt/agency-portal/internal/insight"
	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/metrics"
	"github.com/radiusdt/agency-portal/internal/portal"
	"github.com/radiusdt/agency-portal/internal/scheduler"
	"github.com/radiusdt/agency-portal/internal/storage"
)

// App holds every long-lived component.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Stores    *storage.Stores
	Meta      *meta.Client
	Portal    *portal.Service
	Sync      *adsync.Service
	Scheduler *scheduler.Scheduler
	Checks    map[string]httpserver.HealthChecker

	postgres *database.PostgresDB
	closers  []func()
}

// New connects to the configured backends. Unreachable optional backends
// degrade to in-process fallbacks with a warning. An unreachable store is
// fatal when cfg.Store.Required is set, as are configuration errors. reg may
// be nil for the default registry.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewMetrics("portal", reg),
		Checks:  make(map[string]httpserver.HealthChecker),
	}

	stores, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Stores = stores

	var locker adsync.Locker
	var status adsync.StatusStore
	if cfg.Redis.Enabled {
		rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, sync locks are process-local", zap.Error(err))
		} else {
			state := adsync.NewRedisState(rdb.Client)
			locker, status = state, state
			a.Checks["redis"] = rdb
			a.onClose(func() { _ = rdb.Close() })
		}
	}

	var sink storage.SnapshotSink = storage.NopSnapshotSink{}
	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse not available, snapshot history disabled", zap.Error(err))
		} else {
			sink = storage.NewClickHouseSnapshotSink(ch.Conn)
			a.Checks["clickhouse"] = ch
			a.onClose(func() { _ = ch.Close() })
		}
	}

	a.Meta = meta.NewClient(cfg.Meta, logger, a.Metrics)
	a.Sync = adsync.NewService(adsync.Deps{
		Clients:   a.Stores.Clients,
		Campaigns: a.Stores.Campaigns,
		Fetcher:   meta.NewFetcher(a.Meta, cfg.Meta.PageLimit, logger, a.Metrics),
		Policy: adsync.Policy{
			Rules:                           adsync.DefaultRules,
			EstimateConversationsFromClicks: cfg.Sync.EstimateConversationsFromClicks,
		},
		Locker:    locker,
		Status:    status,
		Snapshots: sink,
		Purger:    adsync.NewPurger(a.Stores.Campaigns, cfg.Purge.PageSize, cfg.Purge.BatchPause, logger, a.Metrics),
		LockTTL:   cfg.Sync.LockTTL,
		Logger:    logger,
		Metrics:   a.Metrics,
	})
	a.Portal = portal.NewService(a.Stores, a.Meta, insight.NewClient(cfg.Insight, logger), logger)

	if cfg.Sync.Schedule != "" {
		window, err := meta.ParseWindow(cfg.Sync.ScheduleWindow)
		if err != nil {
			a.Close()
			return nil, err
		}
		sched, err := scheduler.New(cfg.Sync.Schedule, window, a.Stores.Clients, a.Stores.Settings, a.Sync, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Scheduler = sched
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context) (*storage.Stores, error) {
	cfg, logger := a.Config, a.Logger

	// fallback reports err when the store is required and otherwise
	// degrades to in-memory storage.
	fallback := func(msg string, err error) (*storage.Stores, error) {
		if cfg.Store.Required {
			return nil, fmt.Errorf("%s store: %w", cfg.Store.Driver, err)
		}
		logger.Warn(msg+", using in-memory storage", zap.Error(err))
		return storage.NewInMemoryStores(), nil
	}

	switch cfg.Store.Driver {
	case "firestore":
		fs, err := database.NewFirestoreDB(ctx, cfg.Firestore, logger)
		if err != nil {
			return fallback("Firestore not available", err)
		}
		a.onClose(func() { _ = fs.Close() })
		return storage.NewFirestoreStores(fs.Client), nil
	case "postgres":
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			return fallback("PostgreSQL not available", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return fallback("PostgreSQL migration failed", err)
		}
		a.postgres = db
		a.Checks["postgres"] = db
		a.onClose(db.Close)
		return storage.NewPostgresStores(db.Pool), nil
	}
	logger.Info("using in-memory storage")
	return storage.NewInMemoryStores(), nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// HTTPDependencies bundles what the HTTP API needs.
func (a *App) HTTPDependencies() *httpserver.Dependencies {
	return &httpserver.Dependencies{
		Portal:  a.Portal,
		Sync:    a.Sync,
		Checks:  a.Checks,
		Config:  a.Config,
		Logger:  a.Logger,
		Metrics: a.Metrics,
	}
}

// ReportPoolStats publishes connection pool gauges until ctx is done. It
// returns at once when no PostgreSQL pool is in use.
func (a *App) ReportPoolStats(ctx context.Context, every time.Duration) {
	if a.postgres == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := a.postgres.Stats()
			a.Metrics.UpdateDBStats(int(st.IdleConns()), int(st.AcquiredConns()), int(st.TotalConns()))
		}
	}
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
