package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "HTTP_PORT", "SHUTDOWN_TIMEOUT", "READ_HEADER_TIMEOUT", "SWAGGER_HOST",
	"STORE_BACKEND", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"CONVERSATION_TTL", "LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "LLM_TIMEOUT",
	"LLM_TEMPERATURE", "LLM_MAX_TOKENS", "RETENTION_INTERVAL",
}

// clearEnv unsets every config key for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		if v, ok := os.LookupEnv(key); ok {
			key, v := key, v
			t.Cleanup(func() { os.Setenv(key, v) })
		} else {
			key := key
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoadFiles_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, "localhost:8080", cfg.SwaggerHost)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Equal(t, 24*time.Hour, cfg.ConversationTTL)
	assert.Equal(t, "http://localhost:1234/v1", cfg.LLMBaseURL)
	assert.Equal(t, "llama-3.2-3b-instruct", cfg.LLMModel)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 0.7, cfg.LLMTemperature)
	assert.Equal(t, -1, cfg.LLMMaxTokens)
	assert.Equal(t, time.Minute, cfg.RetentionInterval)
}

func TestLoadFiles_Environment(t *testing.T) {
	clearEnv(t)
	os.Setenv("HTTP_PORT", "9090")
	os.Setenv("STORE_BACKEND", "memory")
	os.Setenv("CONVERSATION_TTL", "2h")
	os.Setenv("LLM_TEMPERATURE", "0.1")
	os.Setenv("REDIS_PORT", "not-a-number")

	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "localhost:9090", cfg.SwaggerHost)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 2*time.Hour, cfg.ConversationTTL)
	assert.Equal(t, 0.1, cfg.LLMTemperature)
	assert.Equal(t, 6379, cfg.RedisPort, "invalid values fall back to defaults")
}

func TestLoadFiles_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("LLM_MODEL", "from-environment")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LLM_MODEL=from-file\nREDIS_HOST=redis.internal\n"), 0o600))

	cfg, err := LoadFiles(envFile)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.RedisHost)
	assert.Equal(t, "from-environment", cfg.LLMModel, "environment wins over .env")
}

func TestLoadFiles_UnknownStore(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORE_BACKEND", "etcd")

	_, err := LoadFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE_BACKEND")
}
