// Package scheduler runs periodic campaign syncs for every client that has
// an ad account.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/adsync"
	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
	"github.com/radiusdt/agency-portal/internal/storage"
)

// Syncer runs one client sync.
type Syncer interface {
	Sync(ctx context.Context, clientID string, window meta.Window, settings models.Settings) (*adsync.SyncResult, error)
}

// RunSummary counts the outcome of one scheduled pass.
type RunSummary struct {
	Synced  int
	Failed  int
	Skipped int
}

type Scheduler struct {
	cron     *cron.Cron
	clients  storage.ClientRepo
	settings storage.SettingsRepo
	syncer   Syncer
	window   meta.Window
	timeout  time.Duration
	logger   *zap.Logger
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 1h") and registers the sync pass. Nothing runs until Start.
func New(spec string, window meta.Window, clients storage.ClientRepo, settings storage.SettingsRepo, syncer Syncer, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		clients:  clients,
		settings: settings,
		syncer:   syncer,
		window:   window,
		timeout:  10 * time.Minute,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("sync scheduler started", zap.String("window", string(s.window)))
	s.cron.Start()
}

// Stop halts scheduling and waits for a running pass to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("sync scheduler stop timed out")
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled sync pass failed", zap.Error(err))
	}
}

// RunOnce syncs every client with an ad account, one after another. A
// failing client is logged and the pass moves on.
func (s *Scheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	var sum RunSummary

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return sum, fmt.Errorf("load settings: %w", err)
	}
	if settings.MetaAdsToken == "" {
		s.logger.Warn("scheduled sync skipped: ad platform token not configured")
		return sum, nil
	}

	clients, err := s.clients.ListClients(ctx)
	if err != nil {
		return sum, fmt.Errorf("list clients: %w", err)
	}

	start := time.Now()
	for _, c := range clients {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if adsync.NormalizeAccountID(c.AdAccountID) == "" {
			sum.Skipped++
			continue
		}
		if _, err := s.syncer.Sync(ctx, c.ID, s.window, settings); err != nil {
			sum.Failed++
			s.logger.Warn("scheduled sync failed", zap.String("client_id", c.ID), zap.Error(err))
			continue
		}
		sum.Synced++
	}

	s.logger.Info("scheduled sync pass completed",
		zap.Int("synced", sum.Synced),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return sum, nil
}
