// Package portal implements the operator-facing operations of the agency
// portal that sit outside campaign sync: clients, manual campaigns, the task
// board, integration settings and generated insights.
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/adsync"
	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/insight"
	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/models"
	"github.com/radiusdt/agency-portal/internal/storage"
)

// AllClients selects every client in list filters.
const AllClients = "all"

// TokenValidator checks an ad-platform access token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) meta.TokenStatus
}

// Analyzer produces a written analysis of campaign figures.
type Analyzer interface {
	Analyze(ctx context.Context, campaigns []*models.Campaign, mode insight.Mode) (string, error)
}

type Service struct {
	stores    *storage.Stores
	validator TokenValidator
	analyzer  Analyzer
	logger    *zap.Logger
}

func NewService(stores *storage.Stores, validator TokenValidator, analyzer Analyzer, logger *zap.Logger) *Service {
	return &Service{stores: stores, validator: validator, analyzer: analyzer, logger: logger}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

func clientFilter(clientID string) string {
	if strings.EqualFold(clientID, AllClients) {
		return ""
	}
	return clientID
}

// =============================================
// CLIENTS
// =============================================

func (s *Service) ListClients(ctx context.Context) ([]*models.ClientAccount, error) {
	return s.stores.Clients.ListClients(ctx)
}

func (s *Service) GetClient(ctx context.Context, id string) (*models.ClientAccount, error) {
	c, err := s.stores.Clients.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", id, err)
	}
	if c == nil {
		return nil, fmt.Errorf("client %s: %w", id, apperr.ErrNotFound)
	}
	return c, nil
}

// SaveClient creates or replaces a profile. The ad-account id is stored in
// its normalized act_ form.
func (s *Service) SaveClient(ctx context.Context, c *models.ClientAccount) (*models.ClientAccount, error) {
	if c.Role == "" {
		c.Role = models.RoleClient
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.AdAccountID = adsync.NormalizeAccountID(c.AdAccountID)
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.stores.Clients.UpsertClient(ctx, c); err != nil {
		return nil, fmt.Errorf("save client %s: %w", c.ID, err)
	}
	s.logger.Info("client saved", zap.String("client_id", c.ID), zap.String("ad_account", c.AdAccountID))
	return c, nil
}

// =============================================
// CAMPAIGNS
// =============================================

// ListCampaigns returns one client's campaigns, or every campaign when
// clientID is empty or "all".
func (s *Service) ListCampaigns(ctx context.Context, clientID string) ([]*models.Campaign, error) {
	return s.stores.Campaigns.ListCampaigns(ctx, clientFilter(clientID))
}

// CreateCampaign stores a manually entered campaign. Mirrored campaigns are
// only ever written by sync, so an external id is refused.
func (s *Service) CreateCampaign(ctx context.Context, c *models.Campaign) (*models.Campaign, error) {
	if c.ExternalID != "" {
		return nil, invalid(fmt.Errorf("external_id is managed by sync"))
	}
	c.ID = uuid.NewString()
	if c.Platform == "" {
		c.Platform = models.PlatformMeta
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusActive
	}
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.stores.Campaigns.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

// =============================================
// TASKS
// =============================================

func (s *Service) ListTasks(ctx context.Context, clientID string) ([]*models.Task, error) {
	return s.stores.Tasks.ListTasks(ctx, clientFilter(clientID))
}

func (s *Service) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	t.ID = uuid.NewString()
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if err := t.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.stores.Tasks.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus moves a task to another board column.
func (s *Service) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, invalid(fmt.Errorf("invalid status %q", status))
	}
	if err := s.stores.Tasks.UpdateTaskStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.stores.Tasks.GetTask(ctx, id)
}

// =============================================
// SETTINGS
// =============================================

func (s *Service) GetSettings(ctx context.Context) (models.Settings, error) {
	return s.stores.Settings.GetSettings(ctx)
}

// SaveSettings merges update into the stored record. Empty fields keep the
// stored value.
func (s *Service) SaveSettings(ctx context.Context, update models.Settings) (models.Settings, error) {
	current, err := s.stores.Settings.GetSettings(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	merged := current.Merge(update)
	if err := s.stores.Settings.SaveSettings(ctx, merged); err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("settings saved", zap.Bool("meta_token_changed", update.MetaAdsToken != ""))
	return merged, nil
}

// ValidateToken checks token, or the stored token when token is empty.
func (s *Service) ValidateToken(ctx context.Context, token string) (meta.TokenStatus, error) {
	if token == "" {
		st, err := s.stores.Settings.GetSettings(ctx)
		if err != nil {
			return meta.TokenStatus{}, fmt.Errorf("load settings: %w", err)
		}
		token = st.MetaAdsToken
	}
	return s.validator.ValidateToken(ctx, token), nil
}

// =============================================
// INSIGHTS
// =============================================

// Insights analyses the stored campaigns of clientID ("all" for every
// client) in the given mode.
func (s *Service) Insights(ctx context.Context, clientID, mode string) (string, error) {
	m, err := insight.ParseMode(mode)
	if err != nil {
		return "", invalid(err)
	}
	filter := clientFilter(clientID)
	if filter != "" {
		if _, err := s.GetClient(ctx, filter); err != nil {
			return "", err
		}
	}
	campaigns, err := s.stores.Campaigns.ListCampaigns(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("load campaigns: %w", err)
	}
	return s.analyzer.Analyze(ctx, campaigns, m)
}
