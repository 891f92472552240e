package adsync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/models"
	"github.com/radiusdt/agency-portal/internal/storage"
)

// countingRepo counts page fetches and can fail a given delete batch.
type countingRepo struct {
	*storage.InMemoryCampaignRepo
	fetches   int
	deletes   int
	failBatch int
}

func (r *countingRepo) ListCampaignIDs(ctx context.Context, limit int) ([]string, error) {
	r.fetches++
	return r.InMemoryCampaignRepo.ListCampaignIDs(ctx, limit)
}

func (r *countingRepo) DeleteCampaigns(ctx context.Context, ids []string) error {
	r.deletes++
	if r.deletes == r.failBatch {
		return errors.New("commit rejected")
	}
	return r.InMemoryCampaignRepo.DeleteCampaigns(ctx, ids)
}

func seed(t *testing.T, n int) *countingRepo {
	t.Helper()
	repo := &countingRepo{InMemoryCampaignRepo: storage.NewInMemoryCampaignRepo()}
	for i := 0; i < n; i++ {
		require.NoError(t, repo.CreateCampaign(context.Background(), &models.Campaign{
			ID: fmt.Sprintf("c-%04d", i), ClientID: fmt.Sprintf("client-%d", i%3),
			Name: "x", Status: models.CampaignStatusActive,
		}))
	}
	return repo
}

func TestPurge_950With400(t *testing.T) {
	repo := seed(t, 950)
	p := NewPurger(repo, 400, 0, zap.NewNop(), nil)

	res, err := p.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 950, res.Deleted)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, repo.fetches)

	left, _ := repo.ListCampaigns(context.Background(), "")
	assert.Empty(t, left)
}

func TestPurge_ExactMultipleNeedsOneEmptyFetch(t *testing.T) {
	repo := seed(t, 800)
	res, err := NewPurger(repo, 400, 0, zap.NewNop(), nil).Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 800, res.Deleted)
	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 3, repo.fetches)
}

func TestPurge_Empty(t *testing.T) {
	repo := seed(t, 0)
	res, err := NewPurger(repo, 400, 0, zap.NewNop(), nil).Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
	assert.Equal(t, 1, repo.fetches)
}

func TestPurge_FailureReportsDeletedSoFar(t *testing.T) {
	repo := seed(t, 950)
	repo.failBatch = 2

	res, err := NewPurger(repo, 400, 0, zap.NewNop(), nil).Purge(context.Background())
	require.Error(t, err)
	assert.Equal(t, 400, res.Deleted)
	assert.Equal(t, 1, res.Batches)

	left, _ := repo.ListCampaigns(context.Background(), "")
	assert.Len(t, left, 550)
}

func TestNewPurger_ClampsPageSize(t *testing.T) {
	p := NewPurger(storage.NewInMemoryCampaignRepo(), 10_000, 0, zap.NewNop(), nil)
	assert.Equal(t, storage.MaxBatchWrites, p.pageSize)
}
