package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"CASEWORK_ADDR", "CASEWORK_STORE", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "CASEWORK_JWT_SIGNING_KEY", "CASEWORK_CASE_NUMBER_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 5, cfg.CaseNumberAttempts)
	assert.Equal(t, "casework.case-audit", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.Equal(t, 3*time.Second, cfg.Redis.ReadTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CASEWORK_ADDR", ":9090")
	t.Setenv("CASEWORK_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("REDIS_DIAL_TIMEOUT", "250ms")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CASEWORK_CASE_NUMBER_ATTEMPTS", "9")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 32, cfg.Redis.PoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.DialTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9, cfg.CaseNumberAttempts)
}

func TestFromEnvRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"postgres without url": {"CASEWORK_STORE": "postgres", "DATABASE_URL": ""},
		"redis without url":    {"CASEWORK_STORE": "redis", "REDIS_URL": ""},
		"unknown store":        {"CASEWORK_STORE": "sqlite"},
		"bad attempts":         {"CASEWORK_STORE": "memory", "CASEWORK_CASE_NUMBER_ATTEMPTS": "many"},
		"zero attempts":        {"CASEWORK_STORE": "memory", "CASEWORK_CASE_NUMBER_ATTEMPTS": "0"},
		"bad duration":         {"CASEWORK_STORE": "memory", "REDIS_READ_TIMEOUT": "soon"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
