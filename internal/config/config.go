package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origins                   []string
	Environment               string
	JWTRefreshSecret          string
	JWTRefreshExpirationHours int
	AuthTokenTTLHours         int
	ShutdownTimeout           time.Duration
	Database                  DatabaseConfig
	Logging                   LoggingConfig
	RateLimit                 RateLimitConfig
	Pagination                PaginationConfig
	Kafka                     KafkaConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	Username     string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	DSN          string
}

// LoggingConfig selects the zerolog level and output format.
type LoggingConfig struct {
	Level  string
	Format string
}

// RateLimitConfig holds the per-client token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond       float64
	Burst                   int
	SearchRequestsPerSecond float64
}

// PaginationConfig bounds list endpoint page sizes.
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// KafkaConfig enables enrollment event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "health_registry"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
	defaultPort := "3306"
	if dbConfig.Driver == "postgres" {
		defaultPort = "5432"
	}
	dbConfig.Port = getEnv("DB_PORT", defaultPort)

	var err error
	if dbConfig.MaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return nil, err
	}
	if dbConfig.MaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	dbConfig.DSN = buildDSN(dbConfig)

	cfg := &Config{
		Port:             getEnv("PORT", "8000"),
		Origins:          splitList(getEnv("ORIGIN", "http://localhost:3000")),
		Environment:      getEnv("NODE_ENV", "development"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:         dbConfig,
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "enrollment-events"),
		},
	}

	if cfg.JWTRefreshExpirationHours, err = getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168); err != nil {
		return nil, err
	}
	if cfg.AuthTokenTTLHours, err = getEnvInt("AUTH_TOKEN_TTL_HOURS", 0); err != nil {
		return nil, err
	}
	shutdownSeconds, err := getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout = time.Duration(shutdownSeconds) * time.Second

	if cfg.RateLimit.RequestsPerSecond, err = getEnvFloat("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getEnvInt("RATE_LIMIT_BURST", 60); err != nil {
		return nil, err
	}
	if cfg.RateLimit.SearchRequestsPerSecond, err = getEnvFloat("SEARCH_RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.Pagination.DefaultPageSize, err = getEnvInt("PAGE_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.Pagination.MaxPageSize, err = getEnvInt("MAX_PAGE_SIZE", 100); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Driver != "mysql" && c.Database.Driver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be \"mysql\" or \"postgres\", got %q", c.Database.Driver)
	}
	if c.IsProduction() && c.JWTRefreshSecret == "default_refresh_secret" {
		return fmt.Errorf("JWT_REFRESH_SECRET must be set in production")
	}
	if c.AuthTokenTTLHours < 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL_HOURS must not be negative")
	}
	if c.Pagination.DefaultPageSize <= 0 || c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return fmt.Errorf("PAGE_SIZE must be positive and not exceed MAX_PAGE_SIZE")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	return nil
}

// IsProduction reports whether NODE_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuthTokenTTL is zero when issued tokens never expire.
func (c *Config) AuthTokenTTL() time.Duration {
	return time.Duration(c.AuthTokenTTLHours) * time.Hour
}

func buildDSN(db DatabaseConfig) string {
	if db.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			db.Host, db.Port, db.Username, db.Password, db.Name, db.SSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		db.Username, db.Password, db.Host, db.Port, db.Name)
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v, err := strconv.ParseFloat(getEnv(key, strconv.FormatFloat(defaultValue, 'f', -1, 64)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
