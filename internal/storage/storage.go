package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/models"
)

// In-memory implementations. They back the service when no database is
// reachable and are what the package tests run against.

// NewInMemoryStores returns a fresh set of in-memory repositories.
func NewInMemoryStores() *Stores {
	return &Stores{
		Clients:   NewInMemoryClientRepo(),
		Campaigns: NewInMemoryCampaignRepo(),
		Tasks:     NewInMemoryTaskRepo(),
		Settings:  NewInMemorySettingsRepo(),
	}
}

// InMemoryClientRepo stores client profiles in memory.
type InMemoryClientRepo struct {
	mu      sync.RWMutex
	clients map[string]*models.ClientAccount
}

func NewInMemoryClientRepo() *InMemoryClientRepo {
	return &InMemoryClientRepo{
		clients: make(map[string]*models.ClientAccount),
	}
}

func (r *InMemoryClientRepo) GetClient(ctx context.Context, id string) (*models.ClientAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemoryClientRepo) ListClients(ctx context.Context) ([]*models.ClientAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.ClientAccount, 0, len(r.clients))
	for _, c := range r.clients {
		if c.Role != models.RoleClient {
			continue
		}
		cp := *c
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryClientRepo) UpsertClient(ctx context.Context, c *models.ClientAccount) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

// InMemoryCampaignRepo stores campaigns in memory.
type InMemoryCampaignRepo struct {
	mu        sync.RWMutex
	campaigns map[string]*models.Campaign
}

func NewInMemoryCampaignRepo() *InMemoryCampaignRepo {
	return &InMemoryCampaignRepo{
		campaigns: make(map[string]*models.Campaign),
	}
}

func (r *InMemoryCampaignRepo) ListCampaigns(ctx context.Context, clientID string) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if clientID != "" && c.ClientID != clientID {
			continue
		}
		res = append(res, c.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryCampaignRepo) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.campaigns[id]; ok {
		return c.Clone(), nil
	}
	return nil, nil
}

func (r *InMemoryCampaignRepo) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := r.campaigns[c.ID]; exists {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}
	r.campaigns[c.ID] = c.Clone()
	return nil
}

func (r *InMemoryCampaignRepo) ReplaceCampaign(ctx context.Context, c *models.Campaign) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; !ok {
		return fmt.Errorf("campaign %s: %w", c.ID, apperr.ErrNotFound)
	}
	r.campaigns[c.ID] = c.Clone()
	return nil
}

func (r *InMemoryCampaignRepo) ListCampaignIDs(ctx context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.campaigns))
	for id := range r.campaigns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *InMemoryCampaignRepo) DeleteCampaigns(ctx context.Context, ids []string) error {
	if len(ids) > MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds limit %d", len(ids), MaxBatchWrites)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.campaigns, id)
	}
	return nil
}

// InMemoryTaskRepo stores tasks in memory.
type InMemoryTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

func NewInMemoryTaskRepo() *InMemoryTaskRepo {
	return &InMemoryTaskRepo{
		tasks: make(map[string]*models.Task),
	}
}

func (r *InMemoryTaskRepo) ListTasks(ctx context.Context, clientID string) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if clientID != "" && t.ClientID != clientID {
			continue
		}
		cp := *t
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryTaskRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemoryTaskRepo) CreateTask(ctx context.Context, t *models.Task) error {
	if t == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *InMemoryTaskRepo) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	t.Status = status
	return nil
}

// InMemorySettingsRepo holds the singleton settings record.
type InMemorySettingsRepo struct {
	mu       sync.RWMutex
	settings models.Settings
}

func NewInMemorySettingsRepo() *InMemorySettingsRepo {
	return &InMemorySettingsRepo{}
}

func (r *InMemorySettingsRepo) GetSettings(ctx context.Context) (models.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings, nil
}

func (r *InMemorySettingsRepo) SaveSettings(ctx context.Context, s models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	return nil
}
