package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/json"
	"github.com/radiusdt/agency-portal/internal/models"
)

// NewPostgresStores returns repositories backed by one pgx pool.
func NewPostgresStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Clients:   NewPostgresClientRepo(pool),
		Campaigns: NewPostgresCampaignRepo(pool),
		Tasks:     NewPostgresTaskRepo(pool),
		Settings:  NewPostgresSettingsRepo(pool),
	}
}

// PostgresClientRepo implements ClientRepo using PostgreSQL.
type PostgresClientRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresClientRepo(pool *pgxpool.Pool) *PostgresClientRepo {
	return &PostgresClientRepo{pool: pool}
}

func (r *PostgresClientRepo) GetClient(ctx context.Context, id string) (*models.ClientAccount, error) {
	var c models.ClientAccount
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role, company_name, ad_account_id, created_at
		FROM users WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Role, &c.CompanyName, &c.AdAccountID, &c.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

func (r *PostgresClientRepo) ListClients(ctx context.Context) ([]*models.ClientAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, role, company_name, ad_account_id, created_at
		FROM users WHERE role = $1 ORDER BY id
	`, models.RoleClient)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.ClientAccount
	for rows.Next() {
		var c models.ClientAccount
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Role, &c.CompanyName, &c.AdAccountID, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

func (r *PostgresClientRepo) UpsertClient(ctx context.Context, c *models.ClientAccount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, role, company_name, ad_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			company_name = EXCLUDED.company_name,
			ad_account_id = EXCLUDED.ad_account_id
	`, c.ID, c.Name, c.Email, c.Role, c.CompanyName, c.AdAccountID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

// PostgresCampaignRepo implements CampaignRepo using PostgreSQL.
type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool) *PostgresCampaignRepo {
	return &PostgresCampaignRepo{pool: pool}
}

const campaignColumns = `id, client_id, COALESCE(external_id, ''), name, status,
	spend, impressions, clicks, ctr, cpc, roas, conversations, leads, platform,
	age_breakdown, gender_breakdown, platform_breakdown`

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	var ageJSON, genderJSON, platformJSON []byte
	if err := row.Scan(
		&c.ID, &c.ClientID, &c.ExternalID, &c.Name, &c.Status,
		&c.Spend, &c.Impressions, &c.Clicks, &c.CTR, &c.CPC, &c.ROAS,
		&c.Conversations, &c.Leads, &c.Platform,
		&ageJSON, &genderJSON, &platformJSON,
	); err != nil {
		return nil, err
	}
	var err error
	if c.AgeBreakdown, err = decodeBreakdown(ageJSON); err != nil {
		return nil, err
	}
	if c.GenderBreakdown, err = decodeBreakdown(genderJSON); err != nil {
		return nil, err
	}
	if c.PlatformBreakdown, err = decodeBreakdown(platformJSON); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeBreakdown(raw []byte) (models.BreakdownData, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var b models.BreakdownData
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("failed to parse breakdown: %w", err)
	}
	return b, nil
}

func encodeBreakdown(b models.BreakdownData) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (r *PostgresCampaignRepo) ListCampaigns(ctx context.Context, clientID string) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PostgresCampaignRepo) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

func (r *PostgresCampaignRepo) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	age, gender, platform, err := encodeBreakdowns(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO campaigns (
			id, client_id, external_id, name, status,
			spend, impressions, clicks, ctr, cpc, roas, conversations, leads, platform,
			age_breakdown, gender_breakdown, platform_breakdown
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		c.ID, c.ClientID, c.ExternalID, c.Name, c.Status,
		c.Spend, c.Impressions, c.Clicks, c.CTR, c.CPC, c.ROAS, c.Conversations, c.Leads, c.Platform,
		age, gender, platform,
	)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (r *PostgresCampaignRepo) ReplaceCampaign(ctx context.Context, c *models.Campaign) error {
	age, gender, platform, err := encodeBreakdowns(c)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET
			client_id = $2, external_id = NULLIF($3, ''), name = $4, status = $5,
			spend = $6, impressions = $7, clicks = $8, ctr = $9, cpc = $10, roas = $11,
			conversations = $12, leads = $13, platform = $14,
			age_breakdown = $15, gender_breakdown = $16, platform_breakdown = $17
		WHERE id = $1
	`,
		c.ID, c.ClientID, c.ExternalID, c.Name, c.Status,
		c.Spend, c.Impressions, c.Clicks, c.CTR, c.CPC, c.ROAS, c.Conversations, c.Leads, c.Platform,
		age, gender, platform,
	)
	if err != nil {
		return fmt.Errorf("failed to replace campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s: %w", c.ID, apperr.ErrNotFound)
	}
	return nil
}

func encodeBreakdowns(c *models.Campaign) (age, gender, platform []byte, err error) {
	if age, err = encodeBreakdown(c.AgeBreakdown); err != nil {
		return
	}
	if gender, err = encodeBreakdown(c.GenderBreakdown); err != nil {
		return
	}
	platform, err = encodeBreakdown(c.PlatformBreakdown)
	return
}

func (r *PostgresCampaignRepo) ListCampaignIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM campaigns ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresCampaignRepo) DeleteCampaigns(ctx context.Context, ids []string) error {
	if len(ids) > MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds limit %d", len(ids), MaxBatchWrites)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete campaigns: %w", err)
	}
	return tx.Commit(ctx)
}

// PostgresTaskRepo implements TaskRepo using PostgreSQL.
type PostgresTaskRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTaskRepo(pool *pgxpool.Pool) *PostgresTaskRepo {
	return &PostgresTaskRepo{pool: pool}
}

func (r *PostgresTaskRepo) ListTasks(ctx context.Context, clientID string) ([]*models.Task, error) {
	query := `SELECT id, client_id, title, assignee, status, priority, due_date, tags FROM tasks`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Assignee, &t.Status, &t.Priority, &t.DueDate, &t.Tags); err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (r *PostgresTaskRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_id, title, assignee, status, priority, due_date, tags
		FROM tasks WHERE id = $1
	`, id).Scan(&t.ID, &t.ClientID, &t.Title, &t.Assignee, &t.Status, &t.Priority, &t.DueDate, &t.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

func (r *PostgresTaskRepo) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, client_id, title, assignee, status, priority, due_date, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.ClientID, t.Title, t.Assignee, t.Status, t.Priority, t.DueDate, tags)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepo) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// PostgresSettingsRepo implements SettingsRepo using PostgreSQL.
type PostgresSettingsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSettingsRepo(pool *pgxpool.Pool) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{pool: pool}
}

func (r *PostgresSettingsRepo) GetSettings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT meta_ads_token, google_ads_key FROM settings WHERE id = $1
	`, SettingsDocument).Scan(&s.MetaAdsToken, &s.GoogleAdsKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Settings{}, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

func (r *PostgresSettingsRepo) SaveSettings(ctx context.Context, s models.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, meta_ads_token, google_ads_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			meta_ads_token = EXCLUDED.meta_ads_token,
			google_ads_key = EXCLUDED.google_ads_key
	`, SettingsDocument, s.MetaAdsToken, s.GoogleAdsKey)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
