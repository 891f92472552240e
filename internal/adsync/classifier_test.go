package adsync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
)

func actions(pairs ...any) []meta.Action {
	out := make([]meta.Action, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, meta.Action{ActionType: pairs[i].(string), Value: meta.Number(pairs[i+1].(float64))})
	}
	return out
}

func TestClassifyActions(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	tests := []struct {
		name       string
		actions    []meta.Action
		values     []meta.Action
		objective  string
		linkClicks float64
		want       Classification
	}{
		{
			name:       "messaging conversation and lead",
			actions:    actions("onsite_conversion.messaging_conversation_started_7d", 12.0, "lead", 3.0),
			objective:  "OUTCOME_TRAFFIC",
			linkClicks: 50,
			want:       Classification{Conversations: 12, Leads: 3},
		},
		{
			name: "conversation patterns are summed",
			actions: actions(
				"onsite_conversion.messaging_conversation_started_7d", 4.0,
				"contact_total", 2.0,
				"onsite_conversion.total_messaging_connection", 1.0,
			),
			objective: "OUTCOME_ENGAGEMENT",
			want:      Classification{Conversations: 7},
		},
		{
			name: "inclusive leads",
			actions: actions(
				"lead", 1.0,
				"offsite_conversion.fb_pixel_lead", 2.0,
				"on_facebook_lead", 3.0,
				"onsite_conversion.lead_grouped", 4.0,
				"contact", 5.0,
				"schedule", 6.0,
				"submit_application", 7.0,
				"complete_registration", 8.0,
			),
			want: Classification{Leads: 36},
		},
		{
			name:       "click fallback for traffic objective",
			objective:  "OUTCOME_TRAFFIC",
			linkClicks: 40,
			want:       Classification{Conversations: 40, EstimatedFromClicks: true},
		},
		{
			name:       "no fallback for sales objective",
			objective:  "OUTCOME_SALES",
			linkClicks: 40,
			want:       Classification{},
		},
		{
			name:       "no fallback without clicks",
			objective:  "MESSAGES",
			linkClicks: 0,
			want:       Classification{},
		},
		{
			name:   "first purchase type wins",
			values: actions("add_to_cart", 9.0, "omni_purchase", 120.0, "purchase", 80.0),
			want:   Classification{PurchaseRevenue: 120},
		},
		{
			name:    "partial matches do not count as leads",
			actions: actions("leadgen_other", 5.0, "contact_mobile_app", 2.0),
			want:    Classification{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyActions(tt.actions, tt.values, tt.objective, tt.linkClicks)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyActions_FallbackDisabled(t *testing.T) {
	c := NewClassifier(Policy{EstimateConversationsFromClicks: false})
	got := c.ClassifyActions(nil, nil, "OUTCOME_TRAFFIC", 40)
	assert.Zero(t, got.Conversations)
}

func TestClassifyActions_OneBucketHitPerAction(t *testing.T) {
	rules := []EventRule{
		{Pattern: "messaging", Match: MatchContains, Bucket: BucketConversations},
		{Pattern: "conversation", Match: MatchContains, Bucket: BucketConversations},
	}
	c := NewClassifier(Policy{Rules: rules})
	got := c.ClassifyActions(actions("messaging_conversation_started", 5.0), nil, "", 0)
	assert.Equal(t, 5.0, got.Conversations)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, models.CampaignStatusActive, MapStatus("ACTIVE", "ACTIVE"))
	assert.Equal(t, models.CampaignStatusPaused, MapStatus("CAMPAIGN_PAUSED", "ACTIVE"))
	assert.Equal(t, models.CampaignStatusPaused, MapStatus("", "ARCHIVED"))
	assert.Equal(t, models.CampaignStatusPaused, MapStatus("DELETED", ""))
	assert.Equal(t, models.CampaignStatusCompleted, MapStatus("IN_PROCESS", "ACTIVE"))
	assert.Equal(t, models.CampaignStatusCompleted, MapStatus("", ""))
}

func TestROAS(t *testing.T) {
	assert.Equal(t, 0.0, ROAS(100, 0))
	assert.Equal(t, 0.0, ROAS(0, 50))
	assert.Equal(t, 2.0, ROAS(100, 50))
	assert.Equal(t, 0.0, ROAS(-10, 50))
}

func TestClassify_Scenario(t *testing.T) {
	links := meta.Number(50)
	raw := meta.Campaign{
		ID:              "111",
		Name:            "Spring",
		Status:          "ACTIVE",
		EffectiveStatus: "ACTIVE",
		Objective:       "OUTCOME_TRAFFIC",
	}
	raw.Insights = &struct {
		Data []meta.Insight `json:"data"`
	}{Data: []meta.Insight{{
		Spend:            100,
		Impressions:      1000,
		Clicks:           60,
		CTR:              0.06,
		CPC:              1.67,
		InlineLinkClicks: &links,
		Actions:          actions("onsite_conversion.messaging_conversation_started_7d", 12.0, "lead", 3.0),
	}}}

	got := NewClassifier(DefaultPolicy()).Classify("client-1", raw)

	assert.Equal(t, int64(12), got.Conversations)
	assert.Equal(t, int64(3), got.Leads)
	assert.Equal(t, 0.0, got.ROAS)
	assert.Equal(t, 100.0, got.Spend)
	assert.InDelta(t, 6.0, got.CTR, 1e-9)
	assert.Equal(t, "111", got.ExternalID)
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, models.PlatformMeta, got.Platform)
	assert.Equal(t, models.CampaignStatusActive, got.Status)
}

func TestClassify_ZeroInlineLinkClicksDoesNotEstimate(t *testing.T) {
	zero := meta.Number(0)
	raw := meta.Campaign{ID: "222", Name: "Reach", Status: "ACTIVE", EffectiveStatus: "ACTIVE", Objective: "OUTCOME_TRAFFIC"}
	raw.Insights = &struct {
		Data []meta.Insight `json:"data"`
	}{Data: []meta.Insight{{Spend: 40, Impressions: 5000, Clicks: 80, InlineLinkClicks: &zero}}}

	c := NewClassifier(DefaultPolicy())
	got := c.Classify("client-1", raw)
	assert.Zero(t, got.Conversations)
	assert.Equal(t, int64(80), got.Clicks)

	in := raw.Insight()
	cls := c.ClassifyActions(in.Actions, in.ActionValues, raw.Objective, in.LinkClicks())
	assert.False(t, cls.EstimatedFromClicks)
}

func TestClassify_MissingInlineLinkClicksFallsBackToClicks(t *testing.T) {
	raw := meta.Campaign{ID: "333", Name: "Traffic", Status: "ACTIVE", EffectiveStatus: "ACTIVE", Objective: "OUTCOME_TRAFFIC"}
	raw.Insights = &struct {
		Data []meta.Insight `json:"data"`
	}{Data: []meta.Insight{{Spend: 40, Impressions: 5000, Clicks: 80}}}

	c := NewClassifier(DefaultPolicy())
	got := c.Classify("client-1", raw)
	assert.Equal(t, int64(80), got.Conversations)

	in := raw.Insight()
	cls := c.ClassifyActions(in.Actions, in.ActionValues, raw.Objective, in.LinkClicks())
	assert.True(t, cls.EstimatedFromClicks)
}

func TestClassify_NoInsights(t *testing.T) {
	got := NewClassifier(DefaultPolicy()).Classify("c", meta.Campaign{ID: "9", Name: "Idle", Status: "PAUSED"})
	assert.Zero(t, got.Spend)
	assert.Zero(t, got.ROAS)
	assert.Equal(t, models.CampaignStatusPaused, got.Status)
}

func TestApplyBreakdowns(t *testing.T) {
	a := &models.Campaign{ExternalID: "1"}
	byExt := map[string]*models.Campaign{"1": a}

	ApplyBreakdowns(byExt,
		[]meta.BreakdownRow{
			{CampaignID: "1", Age: "18-24", Gender: "female", Impressions: 100},
			{CampaignID: "1", Age: "18-24", Gender: "male", Impressions: 50},
			{CampaignID: "2", Age: "25-34", Gender: "male", Impressions: 999},
		},
		[]meta.BreakdownRow{
			{CampaignID: "1", PublisherPlatform: "instagram", Spend: 10},
			{CampaignID: "1", PublisherPlatform: "instagram", Spend: 5.5},
		},
	)

	assert.Equal(t, models.BreakdownData{"18-24": 150}, a.AgeBreakdown)
	assert.Equal(t, models.BreakdownData{"female": 100, "male": 50}, a.GenderBreakdown)
	assert.Equal(t, models.BreakdownData{"instagram": 15.5}, a.PlatformBreakdown)
}
