package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the agency portal.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Firestore  FirestoreConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Meta       MetaConfig
	Insight    InsightConfig
	Sync       SyncConfig
	Purge      PurgeConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// StoreConfig selects the document store backend: firestore, postgres or memory.
type StoreConfig struct {
	Driver string
	// Required makes an unreachable firestore or postgres store fatal
	// instead of falling back to in-memory storage.
	Required bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// FirestoreConfig points at the Firebase project. CredentialsJSON wins over
// CredentialsFile when both are set.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type ClickHouseConfig struct {
	Enabled  bool
	Addr     []string
	Database string
	Username string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

// RateLimitConfig bounds how often upstream-heavy endpoints (sync, insights)
// may be hit; everything else shares the general limiter.
type RateLimitConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	SyncRPS   float64
	SyncBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// MetaConfig configures the Graph API client.
type MetaConfig struct {
	BaseURL         string
	Timeout         time.Duration
	PageLimit       int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// InsightConfig configures the generative text endpoint.
type InsightConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type SyncConfig struct {
	// EstimateConversationsFromClicks enables the link-click fallback for
	// traffic/message campaigns that report no messaging events.
	EstimateConversationsFromClicks bool
	LockTTL                         time.Duration
	Schedule                        string
	ScheduleWindow                  string
}

type PurgeConfig struct {
	PageSize   int
	BatchPause time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("PORTAL_HTTP_ADDR", ":8080"),
			Env:             getEnv("PORTAL_ENV", "development"),
			ShutdownTimeout: getDurationEnv("PORTAL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getEnv("PORTAL_STORE_DRIVER", "firestore")),
			Required: getBoolEnv("PORTAL_STORE_REQUIRED", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PORTAL_DB_HOST", "localhost"),
			Port:     getIntEnv("PORTAL_DB_PORT", 5432),
			User:     getEnv("PORTAL_DB_USER", "portal"),
			Password: getEnv("PORTAL_DB_PASSWORD", "portal_secret"),
			DBName:   getEnv("PORTAL_DB_NAME", "portal"),
			SSLMode:  getEnv("PORTAL_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("PORTAL_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("PORTAL_DB_MIN_CONNS", 2),
		},
		Firestore: FirestoreConfig{
			ProjectID:       getEnv("PORTAL_FIREBASE_PROJECT_ID", ""),
			CredentialsJSON: getEnv("FIREBASE_CREDENTIALS", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("PORTAL_REDIS_ENABLED", true),
			Addr:     getEnv("PORTAL_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("PORTAL_REDIS_PASSWORD", ""),
			DB:       getIntEnv("PORTAL_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("PORTAL_CLICKHOUSE_ENABLED", false),
			Addr:     getSliceEnv("PORTAL_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database: getEnv("PORTAL_CLICKHOUSE_DB", "portal"),
			Username: getEnv("PORTAL_CLICKHOUSE_USER", "default"),
			Password: getEnv("PORTAL_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("PORTAL_AUTH_ENABLED", true),
			MasterKey: getEnv("PORTAL_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("PORTAL_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getBoolEnv("PORTAL_RATE_LIMIT_ENABLED", true),
			RPS:       getFloatEnv("PORTAL_RATE_LIMIT_RPS", 50),
			Burst:     getIntEnv("PORTAL_RATE_LIMIT_BURST", 20),
			SyncRPS:   getFloatEnv("PORTAL_RATE_LIMIT_SYNC_RPS", 1),
			SyncBurst: getIntEnv("PORTAL_RATE_LIMIT_SYNC_BURST", 3),
		},
		Log: LogConfig{
			Level:  getEnv("PORTAL_LOG_LEVEL", "info"),
			Format: getEnv("PORTAL_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("PORTAL_METRICS_ENABLED", true),
			Path:    getEnv("PORTAL_METRICS_PATH", "/metrics"),
		},
		Meta: MetaConfig{
			BaseURL:         getEnv("PORTAL_META_BASE_URL", "https://graph.facebook.com/v19.0"),
			Timeout:         getDurationEnv("PORTAL_META_TIMEOUT", 20*time.Second),
			PageLimit:       getIntEnv("PORTAL_META_PAGE_LIMIT", 500),
			MaxRetries:      getIntEnv("PORTAL_META_MAX_RETRIES", 3),
			RetryBaseDelay:  getDurationEnv("PORTAL_META_RETRY_BASE_DELAY", 200*time.Millisecond),
			BreakerFailures: uint32(getIntEnv("PORTAL_META_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getDurationEnv("PORTAL_META_BREAKER_TIMEOUT", 30*time.Second),
		},
		Insight: InsightConfig{
			BaseURL: getEnv("PORTAL_INSIGHT_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey:  getEnv("PORTAL_INSIGHT_API_KEY", ""),
			Model:   getEnv("PORTAL_INSIGHT_MODEL", "gemini-1.5-flash"),
			Timeout: getDurationEnv("PORTAL_INSIGHT_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			EstimateConversationsFromClicks: getBoolEnv("PORTAL_SYNC_ESTIMATE_CONVERSATIONS", true),
			LockTTL:                         getDurationEnv("PORTAL_SYNC_LOCK_TTL", 5*time.Minute),
			Schedule:                        getEnv("PORTAL_SYNC_SCHEDULE", ""),
			ScheduleWindow:                  getEnv("PORTAL_SYNC_SCHEDULE_WINDOW", "today"),
		},
		Purge: PurgeConfig{
			PageSize:   getIntEnv("PORTAL_PURGE_PAGE_SIZE", 400),
			BatchPause: getDurationEnv("PORTAL_PURGE_BATCH_PAUSE", 250*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("PORTAL_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Store.Driver {
	case "firestore", "postgres", "memory":
	default:
		return fmt.Errorf("PORTAL_STORE_DRIVER must be one of firestore, postgres, memory (got %q)", c.Store.Driver)
	}
	if c.Purge.PageSize <= 0 {
		return fmt.Errorf("PORTAL_PURGE_PAGE_SIZE must be > 0")
	}
	if c.Meta.PageLimit <= 0 {
		return fmt.Errorf("PORTAL_META_PAGE_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
