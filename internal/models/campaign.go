package models

import (
	"errors"
	"fmt"
)

type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "Active"
	CampaignStatusPaused    CampaignStatus = "Paused"
	CampaignStatusCompleted CampaignStatus = "Completed"
)

// Valid reports whether s is one of the three local campaign states.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	}
	return false
}

type Platform string

const (
	PlatformMeta   Platform = "Meta"
	PlatformGoogle Platform = "Google"
	PlatformTikTok Platform = "TikTok"
)

// BreakdownData maps a dimension label (age bracket, gender, publisher
// platform) to an additive numeric weight.
type BreakdownData map[string]float64

// Add accumulates v under label.
func (b BreakdownData) Add(label string, v float64) {
	b[label] += v
}

// Campaign is a single advertising campaign, either entered by hand or
// mirrored from the ad platform. Mirrored campaigns carry ExternalID, which
// is unique per client and is the natural key used by sync.
type Campaign struct {
	ID            string         `json:"id" firestore:"-"`
	ClientID      string         `json:"client_id" firestore:"clientId"`
	ExternalID    string         `json:"external_id,omitempty" firestore:"externalId,omitempty"`
	Name          string         `json:"name" firestore:"name"`
	Status        CampaignStatus `json:"status" firestore:"status"`
	Spend         float64        `json:"spend" firestore:"spend"`
	Impressions   int64          `json:"impressions" firestore:"impressions"`
	Clicks        int64          `json:"clicks" firestore:"clicks"`
	CTR           float64        `json:"ctr" firestore:"ctr"`
	CPC           float64        `json:"cpc" firestore:"cpc"`
	ROAS          float64        `json:"roas" firestore:"roas"`
	Conversations int64          `json:"conversations" firestore:"conversations"`
	Leads         int64          `json:"leads" firestore:"leads"`
	Platform      Platform       `json:"platform" firestore:"platform"`

	AgeBreakdown      BreakdownData `json:"age_breakdown,omitempty" firestore:"ageBreakdown,omitempty"`
	GenderBreakdown   BreakdownData `json:"gender_breakdown,omitempty" firestore:"genderBreakdown,omitempty"`
	PlatformBreakdown BreakdownData `json:"platform_breakdown,omitempty" firestore:"platformBreakdown,omitempty"`
}

// IsExternal reports whether the campaign is mirrored from the ad platform.
func (c *Campaign) IsExternal() bool {
	return c.ExternalID != ""
}

// ZeroMetrics resets the core counters and derived ratios.
func (c *Campaign) ZeroMetrics() {
	c.Spend = 0
	c.Impressions = 0
	c.Clicks = 0
	c.CTR = 0
	c.CPC = 0
	c.ROAS = 0
	c.Conversations = 0
	c.Leads = 0
}

// Clone returns a deep copy, breakdown maps included.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	cp := *c
	cp.AgeBreakdown = cloneBreakdown(c.AgeBreakdown)
	cp.GenderBreakdown = cloneBreakdown(c.GenderBreakdown)
	cp.PlatformBreakdown = cloneBreakdown(c.PlatformBreakdown)
	return &cp
}

func cloneBreakdown(b BreakdownData) BreakdownData {
	if b == nil {
		return nil
	}
	out := make(BreakdownData, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (c *Campaign) Validate() error {
	if c.ClientID == "" {
		return errors.New("client_id is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("invalid status %q", c.Status)
	}
	if c.Spend < 0 || c.Impressions < 0 || c.Clicks < 0 || c.Conversations < 0 || c.Leads < 0 {
		return errors.New("metrics must be non-negative")
	}
	return nil
}
