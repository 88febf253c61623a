package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, EventsBackendRedis, cfg.EventsBackend)
	assert.True(t, cfg.ReadOnFetch)
	assert.Equal(t, 60, cfg.MessageRateLimit)
	assert.Equal(t, time.Minute, cfg.MessageRateWindow)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("READ_ON_FETCH", "false")
	t.Setenv("MESSAGE_RATE_LIMIT", "5")
	t.Setenv("MESSAGE_RATE_WINDOW", "10s")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("EVENTS_BACKEND", "NATS")
	t.Setenv("NATS_SUBJECT_PREFIX", "founders.events")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.False(t, cfg.ReadOnFetch)
	assert.Equal(t, 5, cfg.MessageRateLimit)
	assert.Equal(t, 10*time.Second, cfg.MessageRateWindow)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, EventsBackendNATS, cfg.EventsBackend)
	assert.Equal(t, "founders.events", cfg.NATSSubject)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "lots")
	t.Setenv("S3_PRESIGN_TTL", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 20, cfg.DBMaxConns)
	assert.Equal(t, 15*time.Minute, cfg.S3PresignTTL)
}
