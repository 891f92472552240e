package adsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/meta"
	"github.com/radiusdt/agency-portal/internal/metrics"
	"github.com/radiusdt/agency-portal/internal/models"
	"github.com/radiusdt/agency-portal/internal/storage"
)

// CampaignFetcher loads one window of campaign data for an ad account.
type CampaignFetcher interface {
	Fetch(ctx context.Context, account, token string, window meta.Window) (*meta.FetchResult, error)
}

// Deps wires a Service. Locker, Status, Snapshots and Metrics are optional.
type Deps struct {
	Clients   storage.ClientRepo
	Campaigns storage.CampaignRepo
	Fetcher   CampaignFetcher
	Policy    Policy
	Locker    Locker
	Status    StatusStore
	Snapshots storage.SnapshotSink
	Purger    *Purger
	LockTTL   time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Service runs campaign syncs and purges.
type Service struct {
	resolver   *Resolver
	fetcher    CampaignFetcher
	classifier *Classifier
	campaigns  storage.CampaignRepo
	locker     Locker
	status     StatusStore
	snapshots  storage.SnapshotSink
	purger     *Purger
	lockTTL    time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		resolver:   NewResolver(d.Clients),
		fetcher:    d.Fetcher,
		classifier: NewClassifier(d.Policy),
		campaigns:  d.Campaigns,
		locker:     d.Locker,
		status:     d.Status,
		snapshots:  d.Snapshots,
		purger:     d.Purger,
		lockTTL:    d.LockTTL,
		logger:     d.Logger,
		metrics:    d.Metrics,
		tracer:     otel.Tracer("github.com/radiusdt/agency-portal/internal/adsync"),
		now:        time.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	mem := NewMemoryState()
	if s.locker == nil {
		s.locker = mem
	}
	if s.status == nil {
		s.status = mem
	}
	if s.snapshots == nil {
		s.snapshots = storage.NopSnapshotSink{}
	}
	if s.purger == nil {
		s.purger = NewPurger(d.Campaigns, 0, 0, s.logger, d.Metrics)
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 5 * time.Minute
	}
	return s
}

// Sync mirrors one window of the client's ad account into the campaign
// store. settings is read once by the caller and passed by value. Writes
// are applied one by one; a failure part way leaves earlier writes in place
// and a rerun converges.
func (s *Service) Sync(ctx context.Context, clientID string, window meta.Window, settings models.Settings) (res *SyncResult, err error) {
	ctx, span := s.tracer.Start(ctx, "adsync.Sync", trace.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("window", string(window)),
	))
	defer span.End()

	res = &SyncResult{
		SyncID:    uuid.NewString(),
		ClientID:  clientID,
		Window:    window,
		StartedAt: s.now(),
	}
	log := s.logger.With(
		zap.String("sync_id", res.SyncID),
		zap.String("client_id", clientID),
		zap.String("window", string(window)),
	)

	if settings.MetaAdsToken == "" {
		return nil, apperr.ErrMissingCredential
	}
	_, account, err := s.resolver.Resolve(ctx, clientID)
	if err != nil {
		return nil, err
	}
	res.Account = account

	release, err := s.locker.Acquire(ctx, clientID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	defer func() {
		res.FinishedAt = s.now()
		res.Success = err == nil
		if err != nil {
			res.Message = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("sync failed", zap.Error(err))
		}
		if serr := s.status.SaveStatus(context.WithoutCancel(ctx), res); serr != nil {
			log.Warn("failed to store sync status", zap.Error(serr))
		}
		if s.metrics != nil {
			outcome := "success"
			if err != nil {
				outcome = "error"
			} else {
				s.metrics.MarkSyncSuccess(clientID, res.FinishedAt)
			}
			s.metrics.RecordSync(string(window), outcome, res.FinishedAt.Sub(res.StartedAt))
		}
	}()

	fetched, err := s.fetcher.Fetch(ctx, account, settings.MetaAdsToken, window)
	if err != nil {
		return res, err
	}
	res.Fetched = len(fetched.Campaigns)
	res.AgeGenderAvailable = fetched.AgeGenderAvailable
	res.PlatformAvailable = fetched.PlatformAvailable
	res.Truncated = fetched.Truncated
	if s.metrics != nil {
		s.metrics.RecordFetched(string(window), res.Fetched)
	}

	fresh := make([]*models.Campaign, 0, len(fetched.Campaigns))
	byExternal := make(map[string]*models.Campaign, len(fetched.Campaigns))
	for _, raw := range fetched.Campaigns {
		c := s.classifier.Classify(clientID, raw)
		fresh = append(fresh, c)
		byExternal[c.ExternalID] = c
	}
	ApplyBreakdowns(byExternal, fetched.AgeGender, fetched.Platform)

	stored, err := s.campaigns.ListCampaigns(ctx, clientID)
	if err != nil {
		return res, fmt.Errorf("load stored campaigns: %w", err)
	}

	plan := Reconcile(fresh, stored, ReconcileOptions{
		Window:             window,
		AgeGenderAvailable: fetched.AgeGenderAvailable,
		PlatformAvailable:  fetched.PlatformAvailable,
		Truncated:          fetched.Truncated,
	})
	res.Unchanged = plan.Unchanged

	if err := s.apply(ctx, plan, res); err != nil {
		return res, err
	}

	if err := s.snapshot(ctx, plan, window, res.SyncID); err != nil {
		log.Warn("failed to record campaign snapshots", zap.Error(err))
	}

	res.Message = fmt.Sprintf("sync completed for window %s", window)
	log.Info("sync completed",
		zap.String("account", account),
		zap.Int("fetched", res.Fetched),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("zeroed", res.Zeroed),
		zap.Int("paused", res.Paused),
		zap.Int("unchanged", res.Unchanged),
		zap.Bool("truncated", res.Truncated),
	)
	return res, nil
}

// apply writes the plan sequentially, counting as it goes so a failure
// still reports what landed.
func (s *Service) apply(ctx context.Context, plan *Plan, res *SyncResult) error {
	for _, c := range plan.Inserts {
		if err := s.campaigns.CreateCampaign(ctx, c); err != nil {
			return fmt.Errorf("insert campaign %s: %w", c.ExternalID, err)
		}
		res.Inserted++
	}
	for _, group := range []struct {
		action string
		items  []*models.Campaign
		count  *int
	}{
		{"update", plan.Updates, &res.Updated},
		{"zero", plan.Zeroed, &res.Zeroed},
		{"pause", plan.Paused, &res.Paused},
	} {
		for _, c := range group.items {
			if err := s.campaigns.ReplaceCampaign(ctx, c); err != nil {
				s.recordWrites(res)
				return fmt.Errorf("%s campaign %s: %w", group.action, c.ID, err)
			}
			*group.count++
		}
	}
	s.recordWrites(res)
	return nil
}

func (s *Service) recordWrites(res *SyncResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordWrites("insert", res.Inserted)
	s.metrics.RecordWrites("update", res.Updated)
	s.metrics.RecordWrites("zero", res.Zeroed)
	s.metrics.RecordWrites("pause", res.Paused)
}

func (s *Service) snapshot(ctx context.Context, plan *Plan, window meta.Window, syncID string) error {
	if len(plan.Current) == 0 {
		return nil
	}
	at := s.now()
	snaps := make([]storage.Snapshot, 0, len(plan.Current))
	for _, c := range plan.Current {
		snaps = append(snaps, storage.Snapshot{SyncID: syncID, SyncedAt: at, Window: string(window), Campaign: c})
	}
	return s.snapshots.WriteSnapshots(ctx, snaps)
}

// Status returns the last stored sync result of a client.
func (s *Service) Status(ctx context.Context, clientID string) (*SyncResult, error) {
	res, err := s.status.GetStatus(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("sync status of %s: %w", clientID, apperr.ErrNotFound)
	}
	return res, nil
}

// Purge deletes every campaign of every client and then forgets all sync
// statuses.
func (s *Service) Purge(ctx context.Context) (PurgeResult, error) {
	res, err := s.purger.Purge(ctx)
	if err != nil {
		return res, err
	}
	n, err := s.status.ClearStatuses(ctx)
	if err != nil {
		s.logger.Warn("failed to clear sync statuses", zap.Error(err))
	} else {
		s.logger.Debug("cleared sync statuses", zap.Int("count", n))
	}
	return res, nil
}
