package adsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/agency-portal/internal/apperr"
)

func TestMemoryState_LockExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryState()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	release, err := s.Acquire(ctx, "c1", time.Minute)
	require.NoError(t, err)

	_, err = s.Acquire(ctx, "c1", time.Minute)
	assert.ErrorIs(t, err, apperr.ErrSyncInProgress)

	_, err = s.Acquire(ctx, "c2", time.Minute)
	assert.NoError(t, err, "locks are per client")

	now = now.Add(2 * time.Minute)
	release2, err := s.Acquire(ctx, "c1", time.Minute)
	require.NoError(t, err, "expired lock can be taken over")

	// A stale release must not drop the new holder's lock.
	release()
	_, err = s.Acquire(ctx, "c1", time.Minute)
	assert.ErrorIs(t, err, apperr.ErrSyncInProgress)
	release2()
}

func TestMemoryState_Statuses(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryState()

	got, err := s.GetStatus(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SaveStatus(ctx, &SyncResult{ClientID: "c1", Inserted: 2}))
	require.NoError(t, s.SaveStatus(ctx, &SyncResult{ClientID: "c2"}))

	got, _ = s.GetStatus(ctx, "c1")
	assert.Equal(t, 2, got.Inserted)

	n, err := s.ClearStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, _ = s.GetStatus(ctx, "c1")
	assert.Nil(t, got)
}
