package adsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/metrics"
	"github.com/radiusdt/agency-portal/internal/storage"
)

// PurgeResult reports what a purge removed.
type PurgeResult struct {
	Deleted int `json:"deleted"`
	Batches int `json:"batches"`
}

// Purger deletes every campaign record in pages.
type Purger struct {
	campaigns storage.CampaignRepo
	pageSize  int
	pause     time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewPurger clamps pageSize to the store's batch limit. m may be nil.
func NewPurger(campaigns storage.CampaignRepo, pageSize int, pause time.Duration, logger *zap.Logger, m *metrics.Metrics) *Purger {
	if pageSize <= 0 {
		pageSize = 400
	}
	if pageSize > storage.MaxBatchWrites {
		pageSize = storage.MaxBatchWrites
	}
	return &Purger{campaigns: campaigns, pageSize: pageSize, pause: pause, logger: logger, metrics: m}
}

// Purge fetches a page of ids, deletes it atomically and repeats. It stops
// after the first page that is empty or shorter than the page size, so a
// collection of N records costs at most N/pageSize+1 fetches. On failure
// the count deleted so far is returned with the error; earlier batches stay
// deleted.
func (p *Purger) Purge(ctx context.Context) (PurgeResult, error) {
	var res PurgeResult
	for {
		ids, err := p.campaigns.ListCampaignIDs(ctx, p.pageSize)
		if err != nil {
			return res, fmt.Errorf("purge: fetch page after %d deleted: %w", res.Deleted, err)
		}
		if len(ids) == 0 {
			break
		}

		if err := p.campaigns.DeleteCampaigns(ctx, ids); err != nil {
			return res, fmt.Errorf("purge: batch %d after %d deleted: %w", res.Batches+1, res.Deleted, err)
		}
		res.Deleted += len(ids)
		res.Batches++
		if p.metrics != nil {
			p.metrics.RecordPurgeBatch(len(ids))
		}
		p.logger.Debug("purge batch committed",
			zap.Int("batch", res.Batches),
			zap.Int("size", len(ids)),
			zap.Int("deleted", res.Deleted),
		)

		if len(ids) < p.pageSize {
			break
		}
		if err := sleep(ctx, p.pause); err != nil {
			return res, err
		}
	}

	p.logger.Info("purge completed",
		zap.Int("deleted", res.Deleted),
		zap.Int("batches", res.Batches),
	)
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
