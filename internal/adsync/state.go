package adsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/json"
	"github.com/radiusdt/agency-portal/internal/meta"
)

// SyncResult summarizes one sync run. It is also the stored last-sync status
// of a client.
type SyncResult struct {
	SyncID   string      `json:"sync_id"`
	ClientID string      `json:"client_id"`
	Account  string      `json:"account,omitempty"`
	Window   meta.Window `json:"window"`

	Fetched   int `json:"fetched"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Zeroed    int `json:"zeroed"`
	Paused    int `json:"paused"`
	Unchanged int `json:"unchanged"`

	AgeGenderAvailable bool `json:"age_gender_available"`
	PlatformAvailable  bool `json:"platform_available"`
	Truncated          bool `json:"truncated"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
}

// Locker serializes syncs of the same client.
type Locker interface {
	// Acquire returns apperr.ErrSyncInProgress when the lock is held.
	Acquire(ctx context.Context, clientID string, ttl time.Duration) (release func(), err error)
}

// StatusStore keeps the last sync result per client.
type StatusStore interface {
	SaveStatus(ctx context.Context, res *SyncResult) error
	// GetStatus returns (nil, nil) when the client was never synced.
	GetStatus(ctx context.Context, clientID string) (*SyncResult, error)
	// ClearStatuses removes every stored status and reports how many.
	ClearStatuses(ctx context.Context) (int, error)
}

const (
	lockKeyPrefix   = "portal:sync:lock:"
	statusKeyPrefix = "portal:sync:status:"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisState implements Locker and StatusStore on Redis so that replicas
// share locks and status.
type RedisState struct {
	client *redis.Client
}

func NewRedisState(client *redis.Client) *RedisState {
	return &RedisState{client: client}
}

func (s *RedisState) Acquire(ctx context.Context, clientID string, ttl time.Duration) (func(), error) {
	key := lockKeyPrefix + clientID
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("client %s: %w", clientID, apperr.ErrSyncInProgress)
	}
	return func() {
		// The request context may already be done; release regardless.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, s.client, []string{key}, token).Err()
	}, nil
}

func (s *RedisState) SaveStatus(ctx context.Context, res *SyncResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode sync status: %w", err)
	}
	if err := s.client.Set(ctx, statusKeyPrefix+res.ClientID, data, 0).Err(); err != nil {
		return fmt.Errorf("save sync status: %w", err)
	}
	return nil
}

func (s *RedisState) GetStatus(ctx context.Context, clientID string) (*SyncResult, error) {
	data, err := s.client.Get(ctx, statusKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sync status: %w", err)
	}
	var res SyncResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode sync status: %w", err)
	}
	return &res, nil
}

func (s *RedisState) ClearStatuses(ctx context.Context) (int, error) {
	var cleared int
	iter := s.client.Scan(ctx, 0, statusKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return cleared, fmt.Errorf("clear sync status: %w", err)
		}
		cleared += int(n)
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("scan sync status: %w", err)
	}
	return cleared, nil
}

// MemoryState is the single-process Locker and StatusStore.
type MemoryState struct {
	mu       sync.Mutex
	locks    map[string]time.Time
	statuses map[string]*SyncResult
	now      func() time.Time
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		locks:    make(map[string]time.Time),
		statuses: make(map[string]*SyncResult),
		now:      time.Now,
	}
}

func (s *MemoryState) Acquire(ctx context.Context, clientID string, ttl time.Duration) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, held := s.locks[clientID]; held && (ttl <= 0 || now.Before(exp)) {
		return nil, fmt.Errorf("client %s: %w", clientID, apperr.ErrSyncInProgress)
	}
	exp := now.Add(ttl)
	s.locks[clientID] = exp
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.locks[clientID] == exp {
			delete(s.locks, clientID)
		}
	}, nil
}

func (s *MemoryState) SaveStatus(ctx context.Context, res *SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *res
	s.statuses[res.ClientID] = &cp
	return nil
}

func (s *MemoryState) GetStatus(ctx context.Context, clientID string) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.statuses[clientID]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryState) ClearStatuses(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.statuses)
	s.statuses = make(map[string]*SyncResult)
	return n, nil
}
