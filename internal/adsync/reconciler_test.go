package adsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
)

func allAvailable(w meta.Window) ReconcileOptions {
	return ReconcileOptions{Window: w, AgeGenderAvailable: true, PlatformAvailable: true}
}

func campaign(id, ext string, status models.CampaignStatus, spend float64) *models.Campaign {
	return &models.Campaign{
		ID: id, ClientID: "c1", ExternalID: ext, Name: "camp " + ext,
		Status: status, Spend: spend, Impressions: 100, Clicks: 10,
		CTR: 10, CPC: 0.5, ROAS: 1.5, Conversations: 3, Leads: 2,
		Platform: models.PlatformMeta,
	}
}

func TestReconcile_InsertAndUpdate(t *testing.T) {
	stored := []*models.Campaign{campaign("s1", "A", models.CampaignStatusActive, 10)}
	fresh := []*models.Campaign{
		campaign("", "A", models.CampaignStatusActive, 25),
		campaign("", "B", models.CampaignStatusActive, 5),
	}

	plan := Reconcile(fresh, stored, allAvailable(meta.WindowToday))

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "s1", plan.Updates[0].ID)
	assert.Equal(t, 25.0, plan.Updates[0].Spend)
	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, "B", plan.Inserts[0].ExternalID)
	assert.Empty(t, plan.Inserts[0].ID)
	assert.Len(t, plan.Current, 2)
}

func TestReconcile_UnchangedIsNotWritten(t *testing.T) {
	stored := []*models.Campaign{campaign("s1", "A", models.CampaignStatusActive, 10)}
	fresh := []*models.Campaign{campaign("", "A", models.CampaignStatusActive, 10)}

	plan := Reconcile(fresh, stored, allAvailable(meta.WindowMaximum))
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Inserts)
	assert.Equal(t, 1, plan.Unchanged)
}

func TestReconcile_BoundedWindowZeroesGhosts(t *testing.T) {
	stored := []*models.Campaign{
		campaign("s1", "A", models.CampaignStatusActive, 10),
		campaign("s2", "B", models.CampaignStatusPaused, 7),
		campaign("s3", "C", models.CampaignStatusCompleted, 0),
	}

	plan := Reconcile(nil, stored, allAvailable(meta.WindowToday))

	require.Len(t, plan.Zeroed, 2)
	for _, z := range plan.Zeroed {
		assert.Zero(t, z.Spend)
		assert.Zero(t, z.Impressions)
		assert.Zero(t, z.Clicks)
		assert.Zero(t, z.CTR)
		assert.Zero(t, z.CPC)
		assert.Zero(t, z.ROAS)
		assert.Zero(t, z.Conversations)
		assert.Zero(t, z.Leads)
	}
	assert.Equal(t, models.CampaignStatusActive, plan.Zeroed[0].Status, "status survives zeroing")
	assert.Empty(t, plan.Paused)
	assert.Equal(t, 1, plan.Unchanged)

	// Inputs are not mutated.
	assert.Equal(t, 10.0, stored[0].Spend)
}

func TestReconcile_AllTimePausesActiveGhosts(t *testing.T) {
	stored := []*models.Campaign{
		campaign("s1", "A", models.CampaignStatusActive, 10),
		campaign("s2", "B", models.CampaignStatusCompleted, 4),
	}

	plan := Reconcile(nil, stored, allAvailable(meta.WindowMaximum))

	require.Len(t, plan.Paused, 1)
	p := plan.Paused[0]
	assert.Equal(t, "s1", p.ID)
	assert.Equal(t, models.CampaignStatusPaused, p.Status)
	assert.Equal(t, 10.0, p.Spend)
	assert.Equal(t, int64(3), p.Conversations)
	assert.Empty(t, plan.Zeroed)
	assert.Equal(t, 1, plan.Unchanged)
}

func TestReconcile_TruncatedFetchLeavesGhostsAlone(t *testing.T) {
	stored := []*models.Campaign{
		campaign("s1", "A", models.CampaignStatusActive, 10),
		campaign("s2", "B", models.CampaignStatusActive, 8),
	}
	fresh := []*models.Campaign{campaign("", "A", models.CampaignStatusActive, 12)}

	for _, w := range []meta.Window{meta.WindowMaximum, meta.WindowToday} {
		opts := allAvailable(w)
		opts.Truncated = true

		plan := Reconcile(fresh, stored, opts)

		require.Len(t, plan.Updates, 1, w)
		assert.Equal(t, "s1", plan.Updates[0].ID)
		assert.Empty(t, plan.Paused, w)
		assert.Empty(t, plan.Zeroed, w)
	}
}

func TestReconcile_ManualRecordsAreExempt(t *testing.T) {
	manual := campaign("m1", "", models.CampaignStatusActive, 99)
	plan := Reconcile(nil, []*models.Campaign{manual}, allAvailable(meta.WindowToday))
	assert.Empty(t, plan.Zeroed)
	assert.Empty(t, plan.Paused)
	assert.Zero(t, plan.Unchanged)
}

func TestReconcile_DuplicateUpstreamRowsLastWins(t *testing.T) {
	first := campaign("", "A", models.CampaignStatusActive, 1)
	second := campaign("", "A", models.CampaignStatusActive, 2)

	plan := Reconcile([]*models.Campaign{first, second}, nil, allAvailable(meta.WindowToday))
	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, 2.0, plan.Inserts[0].Spend)
}

func TestReconcile_StoredDuplicatesMatchLowestID(t *testing.T) {
	stored := []*models.Campaign{
		campaign("zz", "A", models.CampaignStatusActive, 1),
		campaign("aa", "A", models.CampaignStatusActive, 1),
	}
	fresh := []*models.Campaign{campaign("", "A", models.CampaignStatusActive, 5)}

	plan := Reconcile(fresh, stored, allAvailable(meta.WindowToday))
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "aa", plan.Updates[0].ID)
	assert.Empty(t, plan.Zeroed)
}

func TestReconcile_KeepsBreakdownWhenUnavailable(t *testing.T) {
	prev := campaign("s1", "A", models.CampaignStatusActive, 10)
	prev.AgeBreakdown = models.BreakdownData{"18-24": 5}
	prev.PlatformBreakdown = models.BreakdownData{"facebook": 10}

	next := campaign("", "A", models.CampaignStatusActive, 12)
	next.PlatformBreakdown = models.BreakdownData{"instagram": 12}

	plan := Reconcile([]*models.Campaign{next}, []*models.Campaign{prev},
		ReconcileOptions{Window: meta.WindowToday, AgeGenderAvailable: false, PlatformAvailable: true})

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, models.BreakdownData{"18-24": 5}, plan.Updates[0].AgeBreakdown)
	assert.Equal(t, models.BreakdownData{"instagram": 12}, plan.Updates[0].PlatformBreakdown)
}
