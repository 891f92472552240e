package meta

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/metrics"
)

const (
	campaignFields = "name,status,effective_status,objective," +
		"insights{spend,impressions,clicks,cpc,ctr,actions,action_values,inline_link_clicks}"

	BreakdownAgeGender = "age_gender"
	BreakdownPlatform  = "publisher_platform"
)

// FetchResult is the joined output of the three sync calls. A breakdown that
// failed at transport level is reported unavailable and left empty.
type FetchResult struct {
	Campaigns          []Campaign
	AgeGender          []BreakdownRow
	Platform           []BreakdownRow
	AgeGenderAvailable bool
	PlatformAvailable  bool
	// Truncated is set when any response carried a next-page cursor.
	Truncated bool
}

// Fetcher issues the campaign and breakdown calls for one sync.
type Fetcher struct {
	client    *Client
	pageLimit int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewFetcher creates a Fetcher. m may be nil.
func NewFetcher(client *Client, pageLimit int, logger *zap.Logger, m *metrics.Metrics) *Fetcher {
	if pageLimit <= 0 {
		pageLimit = 500
	}
	return &Fetcher{client: client, pageLimit: pageLimit, logger: logger, metrics: m}
}

// Fetch runs the three calls concurrently and waits for all of them. A
// failure of the campaign call or any structured API error is returned;
// transport failures of the breakdown calls only mark the breakdown
// unavailable.
func (f *Fetcher) Fetch(ctx context.Context, account, token string, window Window) (*FetchResult, error) {
	var (
		res                   FetchResult
		campaigns             campaignsPage
		ageGender, platform   breakdownPage
		ageGenderErr, platErr error
		g                     errgroup.Group
	)

	g.Go(func() error {
		params := f.baseParams(token, window)
		params.Set("fields", campaignFields)
		params.Set("use_account_attribution_setting", "true")
		return f.client.get(ctx, "campaigns", account+"/campaigns", params, &campaigns)
	})
	g.Go(func() error {
		params := f.baseParams(token, window)
		params.Set("level", "campaign")
		params.Set("fields", "campaign_id,impressions")
		params.Set("breakdowns", "age,gender")
		ageGenderErr = f.client.get(ctx, BreakdownAgeGender, account+"/insights", params, &ageGender)
		return fatalOnly(ageGenderErr)
	})
	g.Go(func() error {
		params := f.baseParams(token, window)
		params.Set("level", "campaign")
		params.Set("fields", "campaign_id,spend")
		params.Set("breakdowns", "publisher_platform")
		platErr = f.client.get(ctx, BreakdownPlatform, account+"/insights", params, &platform)
		return fatalOnly(platErr)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Campaigns = campaigns.Data
	res.AgeGender, res.AgeGenderAvailable = f.breakdown(BreakdownAgeGender, account, ageGender, ageGenderErr)
	res.Platform, res.PlatformAvailable = f.breakdown(BreakdownPlatform, account, platform, platErr)

	for name, p := range map[string]*paging{
		"campaigns":        campaigns.Paging,
		BreakdownAgeGender: ageGender.Paging,
		BreakdownPlatform:  platform.Paging,
	} {
		if p != nil && p.Next != "" {
			res.Truncated = true
			f.logger.Warn("ad platform response truncated to one page",
				zap.String("call", name),
				zap.String("account", account),
				zap.Int("page_limit", f.pageLimit),
			)
		}
	}

	return &res, nil
}

func (f *Fetcher) baseParams(token string, window Window) url.Values {
	params := url.Values{}
	params.Set("date_preset", string(window))
	params.Set("limit", strconv.Itoa(f.pageLimit))
	params.Set("access_token", token)
	return params
}

func (f *Fetcher) breakdown(name, account string, page breakdownPage, err error) ([]BreakdownRow, bool) {
	if err == nil {
		return page.Data, true
	}
	f.logger.Warn("breakdown unavailable",
		zap.String("breakdown", name),
		zap.String("account", account),
		zap.Error(err),
	)
	if f.metrics != nil {
		f.metrics.RecordBreakdownMiss(name)
	}
	return nil, false
}

// fatalOnly lets structured API errors abort the sync and swallows the rest.
func fatalOnly(err error) error {
	if errors.Is(err, apperr.ErrUpstreamRejected) {
		return err
	}
	return nil
}

// TokenStatus is the outcome of a credential check.
type TokenStatus struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ValidateToken checks token against the identity endpoint. Failures are
// reported in the status rather than as an error.
func (c *Client) ValidateToken(ctx context.Context, token string) TokenStatus {
	if token == "" {
		return TokenStatus{Message: "access token is empty"}
	}
	me, err := c.Me(ctx, token)
	if err != nil {
		var rejected *apperr.UpstreamRejectedError
		if errors.As(err, &rejected) {
			return TokenStatus{Message: rejected.Message}
		}
		return TokenStatus{Message: "network error contacting ad platform: " + err.Error()}
	}
	return TokenStatus{
		Valid:   true,
		Message: "connected as " + me.Name,
		ID:      me.ID,
		Name:    me.Name,
	}
}
