// Package config reads the cart service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	CatalogSQLite = "sqlite"
	CatalogMemory = "memory"
)

type Config struct {
	HTTPPort           string
	LogLevel           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	CatalogBackend        string
	CatalogDBPath         string
	CatalogMigrationsPath string

	PostgresHost          string
	PostgresPort          int
	PostgresUser          string
	PostgresPassword      string
	PostgresDB            string
	LedgerMigrationsPath  string
	JournalMigrationsPath string
	CheckoutStepTimeout   time.Duration
	IncidentPollInterval  time.Duration

	KafkaBrokers []string
	NotifyTopic  string

	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxRequestBodySize: 1 << 20, // 1MB

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "cart"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CatalogBackend:        getEnv("CATALOG_BACKEND", CatalogSQLite),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "internal/catalog/migrations"),

		PostgresHost:          getEnv("POSTGRES_HOST", "localhost"),
		PostgresUser:          getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:      getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:            getEnv("POSTGRES_DB", "checkout"),
		LedgerMigrationsPath:  getEnv("LEDGER_MIGRATIONS_PATH", "internal/ledger/migrations"),
		JournalMigrationsPath: getEnv("JOURNAL_MIGRATIONS_PATH", "internal/journal/migrations"),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		NotifyTopic:  getEnv("NOTIFY_TOPIC", "order-confirmations"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CartCacheTTL, err = getDuration("CART_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CheckoutStepTimeout, err = getDuration("CHECKOUT_STEP_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.IncidentPollInterval, err = getDuration("INCIDENT_POLL_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BreakerOpenTimeout, err = getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	port, err := getUint("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, err
	}
	cfg.PostgresPort = int(port)
	threshold, err := getUint("BREAKER_FAILURE_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	cfg.BreakerFailureThreshold = threshold

	switch cfg.CatalogBackend {
	case CatalogSQLite, CatalogMemory:
	default:
		return nil, fmt.Errorf("CATALOG_BACKEND must be %q or %q, got %q", CatalogSQLite, CatalogMemory, cfg.CatalogBackend)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getUint(key string, defaultValue uint32) (uint32, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return uint32(n), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
