package adsync

import (
	"math"
	"strings"

	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
)

// Bucket is a normalized counter that upstream actions are folded into.
type Bucket string

const (
	BucketConversations Bucket = "conversations"
	BucketLeads         Bucket = "leads"
)

// MatchKind selects how EventRule.Pattern is compared to an action type.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchContains
)

// EventRule routes actions whose type matches Pattern into Bucket.
type EventRule struct {
	Pattern string
	Match   MatchKind
	Bucket  Bucket
}

func (r EventRule) matches(actionType string) bool {
	if r.Match == MatchContains {
		return strings.Contains(actionType, r.Pattern)
	}
	return actionType == r.Pattern
}

// DefaultRules is the classification table. Leads are counted inclusively:
// contact, schedule, application and registration events count as leads
// alongside pixel and on-platform lead forms.
var DefaultRules = []EventRule{
	{Pattern: "messaging_conversation_started", Match: MatchContains, Bucket: BucketConversations},
	{Pattern: "contact_total", Match: MatchContains, Bucket: BucketConversations},
	{Pattern: "onsite_conversion.total_messaging_connection", Match: MatchContains, Bucket: BucketConversations},

	{Pattern: "lead", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "offsite_conversion.fb_pixel_lead", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "on_facebook_lead", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "onsite_conversion.lead_grouped", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "contact", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "schedule", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "submit_application", Match: MatchExact, Bucket: BucketLeads},
	{Pattern: "complete_registration", Match: MatchExact, Bucket: BucketLeads},
}

// PurchaseTypes are the action-value types read as purchase revenue, in
// lookup order.
var PurchaseTypes = []string{"purchase", "omni_purchase", "offsite_conversion.fb_pixel_purchase"}

// FallbackObjectives are objective substrings for which link clicks may
// stand in for missing conversation events.
var FallbackObjectives = []string{"TRAFFIC", "MESSAGES", "LINK_CLICKS"}

var pausedStatuses = map[string]bool{
	"PAUSED":          true,
	"CAMPAIGN_PAUSED": true,
	"ADSET_PAUSED":    true,
	"ARCHIVED":        true,
	"DELETED":         true,
}

// Policy holds the tunable parts of classification.
type Policy struct {
	Rules []EventRule
	// EstimateConversationsFromClicks uses link clicks as the conversation
	// count for traffic and message objectives that report none.
	EstimateConversationsFromClicks bool
}

// DefaultPolicy returns the default rule table with the click fallback on.
func DefaultPolicy() Policy {
	return Policy{Rules: DefaultRules, EstimateConversationsFromClicks: true}
}

// Classification is the normalized outcome for one campaign's actions.
type Classification struct {
	Conversations       float64
	Leads               float64
	PurchaseRevenue     float64
	EstimatedFromClicks bool
}

// Classifier turns raw upstream campaigns into local campaign records.
type Classifier struct {
	policy Policy
}

func NewClassifier(policy Policy) *Classifier {
	if policy.Rules == nil {
		policy.Rules = DefaultRules
	}
	return &Classifier{policy: policy}
}

// ClassifyActions buckets actions and reads purchase revenue. Each action
// contributes at most once per bucket; values are summed within a bucket.
func (c *Classifier) ClassifyActions(actions, actionValues []meta.Action, objective string, linkClicks float64) Classification {
	sums := make(map[Bucket]float64, 2)
	for _, a := range actions {
		hit := make(map[Bucket]bool, 2)
		for _, rule := range c.policy.Rules {
			if hit[rule.Bucket] || !rule.matches(a.ActionType) {
				continue
			}
			hit[rule.Bucket] = true
			sums[rule.Bucket] += a.Value.Float()
		}
	}

	out := Classification{
		Conversations:   sums[BucketConversations],
		Leads:           sums[BucketLeads],
		PurchaseRevenue: purchaseRevenue(actionValues),
	}

	if out.Conversations == 0 && c.policy.EstimateConversationsFromClicks &&
		linkClicks > 0 && objectiveAllowsFallback(objective) {
		out.Conversations = linkClicks
		out.EstimatedFromClicks = true
	}
	return out
}

func purchaseRevenue(values []meta.Action) float64 {
	for _, v := range values {
		for _, t := range PurchaseTypes {
			if v.ActionType == t {
				return v.Value.Float()
			}
		}
	}
	return 0
}

func objectiveAllowsFallback(objective string) bool {
	for _, o := range FallbackObjectives {
		if strings.Contains(objective, o) {
			return true
		}
	}
	return false
}

// MapStatus maps the upstream delivery status to the local three states.
// effective_status wins over the configured status when present.
func MapStatus(effective, configured string) models.CampaignStatus {
	s := effective
	if s == "" {
		s = configured
	}
	switch {
	case s == "ACTIVE":
		return models.CampaignStatusActive
	case pausedStatuses[s]:
		return models.CampaignStatusPaused
	default:
		return models.CampaignStatusCompleted
	}
}

// ROAS is revenue over spend, or 0 when nothing was spent.
func ROAS(revenue, spend float64) float64 {
	if spend <= 0 || revenue <= 0 {
		return 0
	}
	return revenue / spend
}

// Classify builds the local record for one upstream campaign. ID is left
// empty for the reconciler to fill.
func (c *Classifier) Classify(clientID string, raw meta.Campaign) *models.Campaign {
	in := raw.Insight()
	cls := c.ClassifyActions(in.Actions, in.ActionValues, raw.Objective, in.LinkClicks())
	spend := in.Spend.Float()

	return &models.Campaign{
		ClientID:      clientID,
		ExternalID:    raw.ID,
		Name:          raw.Name,
		Status:        MapStatus(raw.EffectiveStatus, raw.Status),
		Spend:         spend,
		Impressions:   int64(math.Round(in.Impressions.Float())),
		Clicks:        int64(math.Round(in.Clicks.Float())),
		CTR:           in.CTR.Float() * 100,
		CPC:           in.CPC.Float(),
		ROAS:          ROAS(cls.PurchaseRevenue, spend),
		Conversations: int64(math.Round(cls.Conversations)),
		Leads:         int64(math.Round(cls.Leads)),
		Platform:      models.PlatformMeta,
	}
}

// ApplyBreakdowns folds breakdown rows into the campaigns keyed by external
// id. Age and gender accumulate impressions; publisher platform accumulates
// spend. Rows for unknown campaigns are ignored.
func ApplyBreakdowns(byExternalID map[string]*models.Campaign, ageGender, platform []meta.BreakdownRow) {
	for _, row := range ageGender {
		c, ok := byExternalID[row.CampaignID]
		if !ok {
			continue
		}
		if row.Age != "" {
			if c.AgeBreakdown == nil {
				c.AgeBreakdown = models.BreakdownData{}
			}
			c.AgeBreakdown.Add(row.Age, row.Impressions.Float())
		}
		if row.Gender != "" {
			if c.GenderBreakdown == nil {
				c.GenderBreakdown = models.BreakdownData{}
			}
			c.GenderBreakdown.Add(row.Gender, row.Impressions.Float())
		}
	}
	for _, row := range platform {
		c, ok := byExternalID[row.CampaignID]
		if !ok || row.PublisherPlatform == "" {
			continue
		}
		if c.PlatformBreakdown == nil {
			c.PlatformBreakdown = models.BreakdownData{}
		}
		c.PlatformBreakdown.Add(row.PublisherPlatform, row.Spend.Float())
	}
}
