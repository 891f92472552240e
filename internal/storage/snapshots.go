package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/radiusdt/agency-portal/internal/models"
)

// Snapshot is one campaign's metrics as written by a completed sync.
type Snapshot struct {
	SyncID   string
	SyncedAt time.Time
	Window   string
	Campaign *models.Campaign
}

// SnapshotSink appends campaign snapshots to an analytics history. It never
// feeds back into reconciliation.
type SnapshotSink interface {
	WriteSnapshots(ctx context.Context, snaps []Snapshot) error
}

// NopSnapshotSink discards snapshots.
type NopSnapshotSink struct{}

func (NopSnapshotSink) WriteSnapshots(context.Context, []Snapshot) error { return nil }

// ClickHouseSnapshotSink writes snapshots to the campaign_snapshots table.
type ClickHouseSnapshotSink struct {
	conn driver.Conn
}

func NewClickHouseSnapshotSink(conn driver.Conn) *ClickHouseSnapshotSink {
	return &ClickHouseSnapshotSink{conn: conn}
}

func (s *ClickHouseSnapshotSink) WriteSnapshots(ctx context.Context, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO campaign_snapshots (
		sync_id, synced_at, client_id, campaign_id, external_id, date_window, status,
		spend, impressions, clicks, ctr, cpc, roas, conversations, leads
	)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}

	for _, snap := range snaps {
		c := snap.Campaign
		if err := batch.Append(
			snap.SyncID, snap.SyncedAt, c.ClientID, c.ID, c.ExternalID, snap.Window, string(c.Status),
			c.Spend, c.Impressions, c.Clicks, c.CTR, c.CPC, c.ROAS, c.Conversations, c.Leads,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append snapshot: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send snapshot batch: %w", err)
	}
	return nil
}

// InMemorySnapshotSink keeps snapshots in memory, mostly for tests.
type InMemorySnapshotSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (s *InMemorySnapshotSink) WriteSnapshots(ctx context.Context, snaps []Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		snap.Campaign = snap.Campaign.Clone()
		s.snaps = append(s.snaps, snap)
	}
	return nil
}

// Snapshots returns everything written so far.
func (s *InMemorySnapshotSink) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, len(s.snaps))
	copy(out, s.snaps)
	return out
}
