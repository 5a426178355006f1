package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, CatalogSQLite, cfg.CatalogBackend)
	assert.Equal(t, uint32(5), cfg.BreakerFailureThreshold)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CART_CACHE_TTL", "5m")
	t.Setenv("CATALOG_BACKEND", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "3")
	t.Setenv("CHECKOUT_STEP_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, CatalogMemory, cfg.CatalogBackend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, uint32(3), cfg.BreakerFailureThreshold)
	assert.Equal(t, 750*time.Millisecond, cfg.CheckoutStepTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "REQUEST_TIMEOUT", "soon"},
		{"negative duration", "SHUTDOWN_TIMEOUT", "-1s"},
		{"bad threshold", "BREAKER_FAILURE_THRESHOLD", "many"},
		{"bad port", "POSTGRES_PORT", "http"},
		{"unknown catalog", "CATALOG_BACKEND", "csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
