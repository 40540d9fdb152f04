package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	AI       AIConfig
	Payment  PaymentConfig
	Branches BranchesConfig
	Feed     FeedConfig
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

// PostgresConfig holds DB connection values. An empty DSN selects in-memory collections.
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

// AuthConfig defines how bearer tokens from the auth provider are verified.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// AIConfig configures the text generation service used by advisory flows.
type AIConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	RatePerSecond float64
	Burst         int
	Temperature   float64
}

// PaymentConfig holds the gateway's shared checkout secret.
type PaymentConfig struct {
	KeySecret string
}

// BranchesConfig points at the branch roster spreadsheet.
type BranchesConfig struct {
	FilePath  string
	SheetName string
}

// FeedConfig selects the change feed backend ("memory" or "redis").
type FeedConfig struct {
	Backend       string
	ChannelPrefix string
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
			Name:                  getEnv("APP_NAME", "garage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
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
		},
		AI: AIConfig{
			BaseURL:       strings.TrimRight(getEnv("AI_BASE_URL", "https://api.openai.com"), "/"),
			APIKey:        os.Getenv("AI_API_KEY"),
			Model:         getEnv("AI_MODEL", "gpt-4o-mini"),
			Timeout:       getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
			MaxRetries:    getEnvAsInt("AI_MAX_RETRIES", 2),
			RatePerSecond: getEnvAsFloat("AI_RATE_PER_SECOND", 2),
			Burst:         getEnvAsInt("AI_BURST", 4),
			Temperature:   getEnvAsFloat("AI_TEMPERATURE", 0.2),
		},
		Payment: PaymentConfig{
			KeySecret: os.Getenv("PAYMENT_KEY_SECRET"),
		},
		Branches: BranchesConfig{
			FilePath:  getEnv("BRANCHES_FILE", "data/branches.xlsx"),
			SheetName: os.Getenv("BRANCHES_SHEET"),
		},
		Feed: FeedConfig{
			Backend:       strings.ToLower(getEnv("FEED_BACKEND", "memory")),
			ChannelPrefix: getEnv("FEED_CHANNEL_PREFIX", "garage:changes"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Feed.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid FEED_BACKEND %q: want memory or redis", c.Feed.Backend)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("invalid AI_MAX_RETRIES: %d", c.AI.MaxRetries)
	}
	if c.AI.RatePerSecond <= 0 {
		return fmt.Errorf("invalid AI_RATE_PER_SECOND: %v", c.AI.RatePerSecond)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	return nil
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
