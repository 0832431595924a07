package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// CasdoorConfig holds the identity provider settings used by the auth middleware
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	StorageDriver   string
	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnMaxLife   time.Duration
	RedisURL        string
	CatalogCacheTTL time.Duration
	SeedFile        string

	KafkaBrokers     []string
	KafkaTopicPrefix string

	Casdoor CasdoorConfig

	SweepInterval  time.Duration
	SweepBatchSize int

	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig reads .env (when present) and the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := &Config{
		Port:             GetEnv("PORT", "8080"),
		Environment:      GetEnv("ENVIRONMENT", "development"),
		StorageDriver:    strings.ToLower(GetEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		DatabaseURL:      GetEnv("DATABASE_URL"),
		RedisURL:         GetEnv("REDIS_URL"),
		SeedFile:         GetEnv("SEED_FILE"),
		KafkaBrokers:     splitList(GetEnv("KAFKA_BROKERS")),
		KafkaTopicPrefix: GetEnv("KAFKA_TOPIC_PREFIX", "attempt-engine."),
		Casdoor: CasdoorConfig{
			Endpoint:     GetEnv("CASDOOR_ENDPOINT"),
			ClientID:     GetEnv("CASDOOR_CLIENT_ID"),
			ClientSecret: GetEnv("CASDOOR_CLIENT_SECRET"),
			Cert:         strings.ReplaceAll(GetEnv("CASDOOR_CERT"), `\n`, "\n"),
			Organization: GetEnv("CASDOOR_ORGANIZATION"),
			Application:  GetEnv("CASDOOR_APPLICATION"),
		},
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(GetEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.DBConnMaxLife, err = getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize, err = getInt("SWEEP_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 10); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that only make sense together
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for storage driver %q", c.StorageDriver)
		}
	case StorageDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("storage driver %q is not available in production", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("SWEEP_INTERVAL cannot be negative")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings cannot be negative")
	}
	if c.Casdoor.Endpoint == "" && c.IsProduction() {
		return fmt.Errorf("CASDOOR_ENDPOINT is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetEnv returns the variable or the optional default when it is unset
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func getInt(key string, defaultValue int) (int, error) {
	raw := GetEnv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := GetEnv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := GetEnv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
