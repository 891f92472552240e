// Package insight turns a client's campaign figures into a short written
// analysis using a hosted generative model.
package insight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/json"
	"github.com/radiusdt/agency-portal/internal/models"
)

// Mode selects what the analysis focuses on.
type Mode string

const (
	ModePerformance Mode = "PERFORMANCE"
	ModeTraffic     Mode = "TRAFFIC"
	ModeBranding    Mode = "BRANDING"
	ModeWhatsApp    Mode = "WHATSAPP"
)

// NoInsight is returned when the model answers with no text.
const NoInsight = "No insight could be generated right now."

var modeFocus = map[Mode]string{
	ModePerformance: "Focus on ROAS and direct sales. Ignore vanity metrics.",
	ModeTraffic:     "Focus on CTR, CPC and click volume. Judge how attractive the ads are.",
	ModeBranding:    "Focus on reach, impressions and CPM. The goal is brand visibility.",
	ModeWhatsApp:    "Focus on lead generation and WhatsApp conversations. Ignore ROAS. Analyse cost per conversation and the click to conversation rate.",
}

// ParseMode validates m. Empty selects ModePerformance.
func ParseMode(m string) (Mode, error) {
	if m == "" {
		return ModePerformance, nil
	}
	mode := Mode(strings.ToUpper(m))
	if _, ok := modeFocus[mode]; !ok {
		return "", fmt.Errorf("unknown analysis mode %q", m)
	}
	return mode, nil
}

// CampaignSummary is the per-campaign payload handed to the model.
type CampaignSummary struct {
	Name                string  `json:"name"`
	Spend               float64 `json:"spend"`
	ROAS                float64 `json:"roas"`
	CTR                 float64 `json:"ctr"`
	CPC                 float64 `json:"cpc"`
	Conversations       int64   `json:"conversations"`
	Leads               int64   `json:"leads"`
	CostPerConversation string  `json:"costPerConversation"`
	Clicks              int64   `json:"clicks"`
	Platform            string  `json:"platform"`
}

// Summarize projects campaigns onto the model payload.
func Summarize(campaigns []*models.Campaign) []CampaignSummary {
	out := make([]CampaignSummary, 0, len(campaigns))
	for _, c := range campaigns {
		cpc := "N/A"
		if c.Conversations > 0 {
			cpc = fmt.Sprintf("%.2f", c.Spend/float64(c.Conversations))
		}
		out = append(out, CampaignSummary{
			Name:                c.Name,
			Spend:               c.Spend,
			ROAS:                c.ROAS,
			CTR:                 c.CTR,
			CPC:                 c.CPC,
			Conversations:       c.Conversations,
			Leads:               c.Leads,
			CostPerConversation: cpc,
			Clicks:              c.Clicks,
			Platform:            string(c.Platform),
		})
	}
	return out
}

// Client calls the generateContent endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.InsightConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Analyze asks the model for a report on campaigns and returns its text
// unchanged.
func (c *Client) Analyze(ctx context.Context, campaigns []*models.Campaign, mode Mode) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: insight api key not set", apperr.ErrConfigurationMissing)
	}

	prompt, err := buildPrompt(campaigns, mode)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("%w: generateContent: %v", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: generateContent: read body: %v", apperr.ErrTransport, err)
	}
	c.logger.Debug("insight request completed",
		zap.String("mode", string(mode)),
		zap.Int("campaigns", len(campaigns)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: generateContent: status %d", apperr.ErrTransport, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: generateContent: malformed response: %v", apperr.ErrTransport, err)
	}
	if out.Error != nil {
		return "", &apperr.UpstreamRejectedError{
			Message: out.Error.Message,
			Type:    out.Error.Status,
			Code:    out.Error.Code,
		}
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: generateContent: status %d", apperr.ErrTransport, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apperr.UpstreamRejectedError{
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	var sb strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return NoInsight, nil
	}
	return sb.String(), nil
}

func buildPrompt(campaigns []*models.Campaign, mode Mode) (string, error) {
	data, err := json.Marshal(Summarize(campaigns))
	if err != nil {
		return "", fmt.Errorf("encode campaigns: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a senior performance media buyer at a marketing agency.\n\n")
	b.WriteString(modeFocus[mode])
	b.WriteString("\n\nCAMPAIGN DATA (JSON):\n")
	b.Write(data)
	fmt.Fprintf(&b, `

Write a report in basic HTML (only <b>, <br>, <ul>, <li>, <p>) with exactly these sections:

1. <p><b>Diagnosis (%s):</b></p>
   Summarise performance against the selected objective only and say whether spend is efficient.

2. <p><b>Opportunities and cuts:</b></p>
   Name the campaign to scale and the one to pause, based on cost per result for this objective.

3. <p><b>Strategic action:</b></p>
   Give one short tactical instruction.

Keep the tone professional and direct.`, mode)
	return b.String(), nil
}
