package meta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/json"
)

const campaignsBody = `{
  "data": [{
    "id": "111",
    "name": "Spring Sale",
    "status": "ACTIVE",
    "effective_status": "ACTIVE",
    "objective": "OUTCOME_TRAFFIC",
    "insights": {"data": [{
      "spend": "100.50",
      "impressions": "2000",
      "clicks": "80",
      "cpc": "1.25",
      "ctr": "0.04",
      "inline_link_clicks": "50",
      "actions": [{"action_type": "lead", "value": "3"}],
      "action_values": [{"action_type": "purchase", "value": 201}]
    }]}
  }]
}`

const ageGenderBody = `{"data": [
  {"campaign_id": "111", "age": "18-24", "gender": "female", "impressions": "700"},
  {"campaign_id": "111", "age": "25-34", "gender": "male", "impressions": "1300"}
]}`

const platformBody = `{"data": [
  {"campaign_id": "111", "publisher_platform": "instagram", "spend": "60.5"},
  {"campaign_id": "111", "publisher_platform": "facebook", "spend": "40"}
]}`

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(config.MetaConfig{
		BaseURL:         url,
		Timeout:         2 * time.Second,
		PageLimit:       500,
		MaxRetries:      2,
		RetryBaseDelay:  time.Millisecond,
		BreakerFailures: 100,
		BreakerTimeout:  time.Second,
	}, zap.NewNop(), nil)
}

type graphStub struct {
	campaigns http.HandlerFunc
	ageGender http.HandlerFunc
	platform  http.HandlerFunc
}

func (s graphStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/act_1/campaigns":
		s.campaigns(w, r)
	case r.URL.Path == "/act_1/insights" && r.URL.Query().Get("breakdowns") == "age,gender":
		s.ageGender(w, r)
	case r.URL.Path == "/act_1/insights" && r.URL.Query().Get("breakdowns") == "publisher_platform":
		s.platform(w, r)
	default:
		http.NotFound(w, r)
	}
}

func body(s string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(s)) }
}

func status(code int, s string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(s))
	}
}

func TestFetch_JoinsAllThreeCalls(t *testing.T) {
	var seen atomic.Value
	stub := graphStub{
		campaigns: func(w http.ResponseWriter, r *http.Request) {
			seen.Store(r.URL.Query())
			body(campaignsBody)(w, r)
		},
		ageGender: body(ageGenderBody),
		platform:  body(platformBody),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	res, err := f.Fetch(context.Background(), "act_1", "tok", WindowToday)
	require.NoError(t, err)

	q := seen.Load().(url.Values)
	assert.Equal(t, []string{"today"}, q["date_preset"])
	assert.Equal(t, []string{"500"}, q["limit"])
	assert.Equal(t, []string{"true"}, q["use_account_attribution_setting"])
	assert.Equal(t, []string{campaignFields}, q["fields"])

	require.Len(t, res.Campaigns, 1)
	c := res.Campaigns[0]
	assert.Equal(t, "111", c.ID)
	in := c.Insight()
	assert.InDelta(t, 100.5, in.Spend.Float(), 1e-9)
	assert.Equal(t, 50.0, in.LinkClicks())
	assert.Equal(t, 201.0, in.ActionValues[0].Value.Float())

	assert.True(t, res.AgeGenderAvailable)
	assert.True(t, res.PlatformAvailable)
	assert.Len(t, res.AgeGender, 2)
	assert.Len(t, res.Platform, 2)
	assert.False(t, res.Truncated)
}

func TestFetch_BreakdownTransportFailureIsNotFatal(t *testing.T) {
	stub := graphStub{
		campaigns: body(campaignsBody),
		ageGender: status(http.StatusBadGateway, ""),
		platform:  body(platformBody),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	res, err := f.Fetch(context.Background(), "act_1", "tok", WindowMaximum)
	require.NoError(t, err)
	assert.False(t, res.AgeGenderAvailable)
	assert.Empty(t, res.AgeGender)
	assert.True(t, res.PlatformAvailable)
	assert.Len(t, res.Campaigns, 1)
}

func TestFetch_CampaignTransportFailureIsFatal(t *testing.T) {
	stub := graphStub{
		campaigns: status(http.StatusServiceUnavailable, ""),
		ageGender: body(ageGenderBody),
		platform:  body(platformBody),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	_, err := f.Fetch(context.Background(), "act_1", "tok", WindowToday)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTransport)
}

func TestFetch_StructuredErrorOnBreakdownIsFatal(t *testing.T) {
	stub := graphStub{
		campaigns: body(campaignsBody),
		ageGender: body(ageGenderBody),
		platform: status(http.StatusBadRequest,
			`{"error": {"message": "(#100) Invalid breakdown", "type": "OAuthException", "code": 100, "fbtrace_id": "abc"}}`),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	_, err := f.Fetch(context.Background(), "act_1", "tok", WindowToday)
	require.Error(t, err)

	var rejected *apperr.UpstreamRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "(#100) Invalid breakdown", rejected.Message)
	assert.Equal(t, 100, rejected.Code)
	assert.ErrorIs(t, err, apperr.ErrUpstreamRejected)
}

func TestFetch_StructuredErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	stub := graphStub{
		campaigns: func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			status(http.StatusUnauthorized, `{"error": {"message": "Invalid OAuth access token.", "code": 190}}`)(w, r)
		},
		ageGender: body(ageGenderBody),
		platform:  body(platformBody),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	_, err := f.Fetch(context.Background(), "act_1", "tok", WindowToday)
	assert.ErrorIs(t, err, apperr.ErrUpstreamRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	stub := graphStub{
		campaigns: func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			body(campaignsBody)(w, r)
		},
		ageGender: body(ageGenderBody),
		platform:  body(platformBody),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	res, err := f.Fetch(context.Background(), "act_1", "tok", WindowToday)
	require.NoError(t, err)
	assert.Len(t, res.Campaigns, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_FlagsTruncatedPage(t *testing.T) {
	stub := graphStub{
		campaigns: body(`{"data": [], "paging": {"next": "https://graph.facebook.com/next"}}`),
		ageGender: body(`{"data": []}`),
		platform:  body(`{"data": []}`),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	f := NewFetcher(testClient(t, srv.URL), 500, zap.NewNop(), nil)
	res, err := f.Fetch(context.Background(), "act_1", "tok", WindowToday)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
}

func TestValidateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") == "good" {
			_, _ = w.Write([]byte(`{"id": "42", "name": "Agency Bot"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Error validating access token", "code": 190}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	ok := c.ValidateToken(context.Background(), "good")
	assert.True(t, ok.Valid)
	assert.Equal(t, "Agency Bot", ok.Name)

	bad := c.ValidateToken(context.Background(), "bad")
	assert.False(t, bad.Valid)
	assert.Equal(t, "Error validating access token", bad.Message)

	empty := c.ValidateToken(context.Background(), "")
	assert.False(t, empty.Valid)
}

func TestValidateToken_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	st := testClient(t, addr).ValidateToken(context.Background(), "tok")
	assert.False(t, st.Valid)
	assert.Contains(t, st.Message, "network error")
	assert.NotContains(t, st.Message, "tok")
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowMaximum, w)
	assert.True(t, w.AllTime())

	w, err = ParseWindow("last_7d")
	require.NoError(t, err)
	assert.False(t, w.AllTime())

	_, err = ParseWindow("lifetime")
	assert.Error(t, err)
}

func TestInsight_LinkClicks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"inline reported", `{"clicks":"80","inline_link_clicks":"30"}`, 30},
		{"inline zero", `{"clicks":"80","inline_link_clicks":"0"}`, 0},
		{"inline absent", `{"clicks":"80"}`, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Insight
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))
			assert.Equal(t, tt.want, in.LinkClicks())
		})
	}
}
