package storage

import (
	"context"

	"github.com/radiusdt/agency-portal/internal/models"
)

// MaxBatchWrites is the largest number of writes any backend accepts in a
// single atomic batch. Firestore enforces 500; the other backends follow.
const MaxBatchWrites = 500

// Collection names shared by every backend.
const (
	ClientsCollection   = "users"
	CampaignsCollection = "campaigns"
	TasksCollection     = "tasks"
	SettingsCollection  = "settings"
	SettingsDocument    = "integrations"
)

// =============================================
// CLIENT REPOSITORY
// =============================================

// ClientRepo reads portal user profiles. Get methods return (nil, nil) when
// the record does not exist.
type ClientRepo interface {
	GetClient(ctx context.Context, id string) (*models.ClientAccount, error)
	// ListClients returns every profile with the CLIENT role.
	ListClients(ctx context.Context) ([]*models.ClientAccount, error)
	UpsertClient(ctx context.Context, c *models.ClientAccount) error
}

// =============================================
// CAMPAIGN REPOSITORY
// =============================================

// CampaignRepo defines operations for campaign storage.
type CampaignRepo interface {
	// ListCampaigns returns the campaigns of one client, or of every client
	// when clientID is empty.
	ListCampaigns(ctx context.Context, clientID string) ([]*models.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	// CreateCampaign inserts c, assigning c.ID when it is empty.
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	// ReplaceCampaign overwrites every field of the record with c.ID.
	ReplaceCampaign(ctx context.Context, c *models.Campaign) error

	// ListCampaignIDs returns up to limit ids irrespective of client.
	ListCampaignIDs(ctx context.Context, limit int) ([]string, error)
	// DeleteCampaigns removes ids in one atomic batch of at most
	// MaxBatchWrites entries.
	DeleteCampaigns(ctx context.Context, ids []string) error
}

// =============================================
// TASK REPOSITORY
// =============================================

// TaskRepo defines operations for kanban task storage.
type TaskRepo interface {
	ListTasks(ctx context.Context, clientID string) ([]*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, t *models.Task) error
	// UpdateTaskStatus returns apperr.ErrNotFound when id does not exist.
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error
}

// =============================================
// SETTINGS REPOSITORY
// =============================================

// SettingsRepo reads and writes the singleton integrations record. A missing
// record reads as the zero Settings.
type SettingsRepo interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, s models.Settings) error
}

// Stores bundles one implementation of each repository.
type Stores struct {
	Clients   ClientRepo
	Campaigns CampaignRepo
	Tasks     TaskRepo
	Settings  SettingsRepo
}
