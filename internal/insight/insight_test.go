package insight

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/models"
)

func newTestClient(baseURL, key string) *Client {
	return NewClient(config.InsightConfig{
		BaseURL: baseURL,
		APIKey:  key,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func sampleCampaigns() []*models.Campaign {
	return []*models.Campaign{
		{Name: "Leads BR", Spend: 100, Conversations: 8, Clicks: 40, Platform: models.PlatformMeta},
		{Name: "Brand", Spend: 50, Clicks: 10, Platform: models.PlatformMeta},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleCampaigns())
	require.Len(t, s, 2)
	assert.Equal(t, "12.50", s[0].CostPerConversation)
	assert.Equal(t, "N/A", s[1].CostPerConversation)
	assert.Equal(t, "Meta", s[0].Platform)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModePerformance, m)

	m, err = ParseMode("whatsapp")
	require.NoError(t, err)
	assert.Equal(t, ModeWhatsApp, m)

	_, err = ParseMode("REACH")
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"<p><b>Diagnosis</b></p>"}]}}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL, "k1").Analyze(context.Background(), sampleCampaigns(), ModeWhatsApp)
	require.NoError(t, err)

	assert.Equal(t, "<p><b>Diagnosis</b></p>", text)
	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, "k1", gotKey)
	assert.Contains(t, gotBody, "WhatsApp conversations")
	assert.Contains(t, gotBody, "costPerConversation")
}

func TestAnalyzeEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL, "k1").Analyze(context.Background(), nil, ModeTraffic)
	require.NoError(t, err)
	assert.Equal(t, NoInsight, text)
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := newTestClient("http://unused", "").Analyze(context.Background(), nil, ModePerformance)
		assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL, "bad").Analyze(context.Background(), nil, ModePerformance)
		var rejected *apperr.UpstreamRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "API key not valid", rejected.Message)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL, "k1").Analyze(context.Background(), nil, ModePerformance)
		assert.ErrorIs(t, err, apperr.ErrTransport)
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := srv.URL
		srv.Close()

		_, err := newTestClient(addr, "k1").Analyze(context.Background(), nil, ModePerformance)
		assert.ErrorIs(t, err, apperr.ErrTransport)
		assert.False(t, strings.Contains(err.Error(), "k1"))
	})
}
