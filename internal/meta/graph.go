package meta

import (
	"fmt"
	"strconv"
	"strings"
)

// Number decodes Graph API numerics, which arrive as JSON strings ("12.5")
// or plain numbers depending on the field. Empty and null read as zero.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*n = Number(f)
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Action is one named event count or value inside an insight row.
type Action struct {
	ActionType string `json:"action_type"`
	Value      Number `json:"value"`
}

// Insight is the per-campaign aggregate nested under a campaign.
type Insight struct {
	Spend            Number   `json:"spend"`
	Impressions      Number   `json:"impressions"`
	Clicks           Number   `json:"clicks"`
	CPC              Number   `json:"cpc"`
	CTR              Number   `json:"ctr"`
	InlineLinkClicks *Number  `json:"inline_link_clicks"`
	Actions          []Action `json:"actions"`
	ActionValues     []Action `json:"action_values"`
}

// LinkClicks prefers inline link clicks and falls back to all clicks only
// when the field is absent. A reported zero stays zero.
func (i *Insight) LinkClicks() float64 {
	if i.InlineLinkClicks != nil {
		return i.InlineLinkClicks.Float()
	}
	return i.Clicks.Float()
}

// Campaign is one row of the campaigns edge.
type Campaign struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	Objective       string `json:"objective"`
	Insights        *struct {
		Data []Insight `json:"data"`
	} `json:"insights"`
}

// Insight returns the first insight row, or an empty one when the campaign
// had no activity in the window.
func (c *Campaign) Insight() Insight {
	if c.Insights == nil || len(c.Insights.Data) == 0 {
		return Insight{}
	}
	return c.Insights.Data[0]
}

// BreakdownRow is one account-level insight row split by a breakdown
// dimension. Only the fields requested for the breakdown are populated.
type BreakdownRow struct {
	CampaignID        string `json:"campaign_id"`
	Age               string `json:"age"`
	Gender            string `json:"gender"`
	PublisherPlatform string `json:"publisher_platform"`
	Impressions       Number `json:"impressions"`
	Spend             Number `json:"spend"`
}

type paging struct {
	Next string `json:"next"`
}

type campaignsPage struct {
	Data   []Campaign `json:"data"`
	Paging *paging    `json:"paging"`
}

type breakdownPage struct {
	Data   []BreakdownRow `json:"data"`
	Paging *paging        `json:"paging"`
}

// apiError is the structured error object the Graph API returns instead of
// data.
type apiError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// Me is the identity returned by the token check.
type Me struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
