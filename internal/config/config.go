package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Triage     TriageConfig
	Classifier ClassifierConfig
	Slack      SlackConfig
	Retrieval  RetrievalConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// TriageConfig tunes the escalation pipeline.
type TriageConfig struct {
	PolicyPath           string
	RepeatWindowHours    int
	SweepIntervalMinutes int
	SweepBatchSize       int
	SweepLeaseSeconds    int
}

// ClassifierConfig controls the AI department classifier.
type ClassifierConfig struct {
	APIKey              string
	Model               string
	ConfidenceThreshold float64
	TimeoutSeconds      int
	CacheTTLMinutes     int
}

// SlackConfig holds breach alert delivery settings. An empty token
// disables Slack and alerts fall back to the log notifier.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// RetrievalConfig points at the vector search backend.
type RetrievalConfig struct {
	BaseURL        string
	Collection     string
	APIKey         string
	TimeoutSeconds int
	DefaultLimit   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Triage: TriageConfig{
			PolicyPath:           getEnv("TRIAGE_POLICY_PATH", "configs/triage.yaml"),
			RepeatWindowHours:    getEnvAsInt("TRIAGE_REPEAT_WINDOW_HOURS", 3),
			SweepIntervalMinutes: getEnvAsInt("SLA_SWEEP_INTERVAL_MINUTES", 5),
			SweepBatchSize:       getEnvAsInt("SLA_SWEEP_BATCH_SIZE", 200),
			SweepLeaseSeconds:    getEnvAsInt("SLA_SWEEP_LEASE_SECONDS", 240),
		},
		Classifier: ClassifierConfig{
			APIKey:              os.Getenv("ANTHROPIC_API_KEY"),
			Model:               getEnv("CLASSIFIER_MODEL", "claude-3-5-haiku-latest"),
			ConfidenceThreshold: getEnvAsFloat("CLASSIFIER_CONFIDENCE_THRESHOLD", 0.75),
			TimeoutSeconds:      getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 3),
			CacheTTLMinutes:     getEnvAsInt("CLASSIFIER_CACHE_TTL_MINUTES", 60),
		},
		Slack: SlackConfig{
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
			Channel:  getEnv("SLACK_ALERT_CHANNEL", "#helpdesk-alerts"),
		},
		Retrieval: RetrievalConfig{
			BaseURL:        getEnv("QDRANT_BASE_URL", "http://127.0.0.1:6333"),
			Collection:     getEnv("QDRANT_COLLECTION", "knowledge_base"),
			APIKey:         os.Getenv("QDRANT_API_KEY"),
			TimeoutSeconds: getEnvAsInt("QDRANT_TIMEOUT_SECONDS", 5),
			DefaultLimit:   getEnvAsInt("QDRANT_DEFAULT_LIMIT", 5),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RepeatWindow returns the duration in which a reopened complaint is
// folded into an existing active ticket.
func (t TriageConfig) RepeatWindow() time.Duration {
	return time.Duration(t.RepeatWindowHours) * time.Hour
}

// SweepInterval returns how often the SLA monitor runs.
func (t TriageConfig) SweepInterval() time.Duration {
	return time.Duration(t.SweepIntervalMinutes) * time.Minute
}

// SweepLease returns the leader lease TTL for the SLA sweep.
func (t TriageConfig) SweepLease() time.Duration {
	return time.Duration(t.SweepLeaseSeconds) * time.Second
}

// Timeout returns the per-call classifier deadline.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long classifier verdicts are cached.
func (c ClassifierConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Timeout returns the per-call search deadline.
func (r RetrievalConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
