package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "42")
	t.Setenv("CFG_TEST_BAD_INT", "forty")
	t.Setenv("CFG_TEST_DUR", "90m")
	t.Setenv("CFG_TEST_NEG_DUR", "-1h")
	t.Setenv("CFG_TEST_BOOL", "true")

	assert.Equal(t, 42, EnvIntDefault("CFG_TEST_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("CFG_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Minute, EnvDurationDefault("CFG_TEST_DUR", time.Hour))
	assert.Equal(t, time.Hour, EnvDurationDefault("CFG_TEST_NEG_DUR", time.Hour))
	assert.Equal(t, time.Hour, EnvDurationDefault("CFG_TEST_MISSING", time.Hour))
	assert.True(t, EnvBoolDefault("CFG_TEST_BOOL", false))
	assert.Equal(t, "def", EnvDefault("CFG_TEST_MISSING", "def"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BASE_URL", "https://contacts.example.com/")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()
	assert.Equal(t, "https://contacts.example.com", cfg.BaseURL)
	assert.Equal(t, []byte("a"), cfg.JWTAccessSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "notification_events", cfg.NotifyTopic)
}
