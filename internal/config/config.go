package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Redis      RedisConfig
	Judge      JudgeConfig
	Budget     BudgetConfig
	Pricing    PricingConfig
	Recommend  RecommendConfig
	Logging    LoggingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred over the fields below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// RedisConfig holds the reality-context cache configuration.
// An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// JudgeConfig holds the LLM judge configuration
type JudgeConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout time.Duration
	RPM     int
	Enabled bool
}

// BudgetConfig holds budget calculator defaults
type BudgetConfig struct {
	PlacesPerDay  int
	RateTableFile string
}

// PricingConfig holds circuit breaker settings for the pricing source
type PricingConfig struct {
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// RecommendConfig holds result limits for recommendation endpoints
type RecommendConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
	File  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "tripcore"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REALITY_CACHE_TTL", 10*time.Minute),
		},
		Judge: JudgeConfig{
			APIKey:  getEnv("JUDGE_API_KEY", ""),
			APIBase: getEnv("JUDGE_API_BASE", "https://api.openai.com/v1"),
			Model:   getEnv("JUDGE_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsDuration("JUDGE_TIMEOUT", 60*time.Second),
			RPM:     getEnvAsInt("JUDGE_RPM", 30),
			Enabled: getEnv("JUDGE_API_KEY", "") != "",
		},
		Budget: BudgetConfig{
			PlacesPerDay:  getEnvAsInt("BUDGET_PLACES_PER_DAY", 4),
			RateTableFile: getEnv("RATE_TABLE_FILE", ""),
		},
		Pricing: PricingConfig{
			BreakerFailures: uint32(getEnvAsInt("PRICING_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getEnvAsDuration("PRICING_BREAKER_TIMEOUT", 30*time.Second),
		},
		Recommend: RecommendConfig{
			DefaultLimit: getEnvAsInt("RECOMMEND_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("RECOMMEND_MAX_LIMIT", 100),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if cfg.Budget.PlacesPerDay <= 0 {
		return nil, fmt.Errorf("BUDGET_PLACES_PER_DAY must be positive, got %d", cfg.Budget.PlacesPerDay)
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
