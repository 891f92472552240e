package storage

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/models"
)

// Firestore implementations. Document ids are the record ids; the id is not
// repeated inside the document body.

// NewFirestoreStores returns repositories backed by one Firestore client.
func NewFirestoreStores(client *firestore.Client) *Stores {
	return &Stores{
		Clients:   &FirestoreClientRepo{client: client},
		Campaigns: &FirestoreCampaignRepo{client: client},
		Tasks:     &FirestoreTaskRepo{client: client},
		Settings:  &FirestoreSettingsRepo{client: client},
	}
}

// getDoc fetches ref into dst. It reports false, with no error, when the
// document does not exist.
func getDoc(ctx context.Context, ref *firestore.DocumentRef, dst any) (bool, error) {
	snap, err := ref.Get(ctx)
	if snap != nil && !snap.Exists() {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := snap.DataTo(dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", ref.Path, err)
	}
	return true, nil
}

// FirestoreClientRepo reads portal users from the users collection.
type FirestoreClientRepo struct {
	client *firestore.Client
}

func (r *FirestoreClientRepo) GetClient(ctx context.Context, id string) (*models.ClientAccount, error) {
	var d clientDoc
	ok, err := getDoc(ctx, r.client.Collection(ClientsCollection).Doc(id), &d)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	if !ok {
		return nil, nil
	}
	c, err := d.toModel(id)
	if err != nil {
		return nil, fmt.Errorf("failed to decode client: %w", err)
	}
	return c, nil
}

func (r *FirestoreClientRepo) ListClients(ctx context.Context) ([]*models.ClientAccount, error) {
	iter := r.client.Collection(ClientsCollection).
		Where("role", "==", string(models.RoleClient)).
		Documents(ctx)
	defer iter.Stop()

	var clients []*models.ClientAccount
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list clients: %w", err)
		}
		var d clientDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode client %s: %w", snap.Ref.ID, err)
		}
		c, err := d.toModel(snap.Ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to decode client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func (r *FirestoreClientRepo) UpsertClient(ctx context.Context, c *models.ClientAccount) error {
	if _, err := r.client.Collection(ClientsCollection).Doc(c.ID).Set(ctx, newClientDoc(c)); err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

// FirestoreCampaignRepo stores campaigns in the campaigns collection.
type FirestoreCampaignRepo struct {
	client *firestore.Client
}

func (r *FirestoreCampaignRepo) ListCampaigns(ctx context.Context, clientID string) ([]*models.Campaign, error) {
	q := r.client.Collection(CampaignsCollection).Query
	if clientID != "" {
		q = q.Where("clientId", "==", clientID)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var campaigns []*models.Campaign
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list campaigns: %w", err)
		}
		var c models.Campaign
		if err := snap.DataTo(&c); err != nil {
			return nil, fmt.Errorf("failed to decode campaign %s: %w", snap.Ref.ID, err)
		}
		c.ID = snap.Ref.ID
		campaigns = append(campaigns, &c)
	}
	return campaigns, nil
}

func (r *FirestoreCampaignRepo) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	ok, err := getDoc(ctx, r.client.Collection(CampaignsCollection).Doc(id), &c)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if !ok {
		return nil, nil
	}
	c.ID = id
	return &c, nil
}

func (r *FirestoreCampaignRepo) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := r.client.Collection(CampaignsCollection).Doc(c.ID).Create(ctx, c); err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (r *FirestoreCampaignRepo) ReplaceCampaign(ctx context.Context, c *models.Campaign) error {
	ref := r.client.Collection(CampaignsCollection).Doc(c.ID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if snap != nil && !snap.Exists() {
			return fmt.Errorf("campaign %s: %w", c.ID, apperr.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read campaign: %w", err)
		}
		return tx.Set(ref, c)
	})
}

func (r *FirestoreCampaignRepo) ListCampaignIDs(ctx context.Context, limit int) ([]string, error) {
	// An empty Select returns references only.
	iter := r.client.Collection(CampaignsCollection).Select().Limit(limit).Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list campaign ids: %w", err)
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (r *FirestoreCampaignRepo) DeleteCampaigns(ctx context.Context, ids []string) error {
	if len(ids) > MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds limit %d", len(ids), MaxBatchWrites)
	}
	col := r.client.Collection(CampaignsCollection)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range ids {
			if err := tx.Delete(col.Doc(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete campaigns: %w", err)
	}
	return nil
}

// FirestoreTaskRepo stores kanban tasks in the tasks collection.
type FirestoreTaskRepo struct {
	client *firestore.Client
}

func (r *FirestoreTaskRepo) ListTasks(ctx context.Context, clientID string) ([]*models.Task, error) {
	q := r.client.Collection(TasksCollection).Query
	if clientID != "" {
		q = q.Where("clientId", "==", clientID)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var tasks []*models.Task
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		var d taskDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", snap.Ref.ID, err)
		}
		tasks = append(tasks, d.toModel(snap.Ref.ID))
	}
	return tasks, nil
}

func (r *FirestoreTaskRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var d taskDoc
	ok, err := getDoc(ctx, r.client.Collection(TasksCollection).Doc(id), &d)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return d.toModel(id), nil
}

func (r *FirestoreTaskRepo) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, err := r.client.Collection(TasksCollection).Doc(t.ID).Create(ctx, newTaskDoc(t)); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *FirestoreTaskRepo) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	ref := r.client.Collection(TasksCollection).Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if snap != nil && !snap.Exists() {
			return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read task: %w", err)
		}
		return tx.Update(ref, []firestore.Update{{Path: "status", Value: taskStatusToDoc(status)}})
	})
}

// FirestoreSettingsRepo keeps the single settings/integrations document.
type FirestoreSettingsRepo struct {
	client *firestore.Client
}

func (r *FirestoreSettingsRepo) GetSettings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	if _, err := getDoc(ctx, r.client.Collection(SettingsCollection).Doc(SettingsDocument), &s); err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

func (r *FirestoreSettingsRepo) SaveSettings(ctx context.Context, s models.Settings) error {
	if _, err := r.client.Collection(SettingsCollection).Doc(SettingsDocument).Set(ctx, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
