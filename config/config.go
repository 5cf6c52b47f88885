package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env               string
	HTTPPort          int
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	SwaggerHost       string

	StoreBackend    string
	RedisHost       string
	RedisPort       int
	RedisPassword   string
	RedisDB         int
	RedisPoolSize   int
	ConversationTTL time.Duration

	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMTimeout     time.Duration
	LLMTemperature float64
	LLMMaxTokens   int

	RetentionInterval time.Duration
}

const (
	defaultEnv               = "development"
	defaultHTTPPort          = 8080
	defaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second

	defaultStoreBackend    = StoreRedis
	defaultRedisHost       = "localhost"
	defaultRedisPort       = 6379
	defaultRedisPoolSize   = 10
	defaultConversationTTL = 24 * time.Hour

	defaultLLMBaseURL     = "http://localhost:1234/v1"
	defaultLLMModel       = "llama-3.2-3b-instruct"
	defaultLLMTimeout     = 120 * time.Second
	defaultLLMTemperature = 0.7
	defaultLLMMaxTokens   = -1

	defaultRetentionInterval = time.Minute
)

// Load reads an optional .env file from the working directory and then the
// environment, applying defaults where necessary. Variables already set in
// the environment win over .env entries.
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit .env paths. Missing files are ignored.
func LoadFiles(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Config{
		Env:               getEnv("APP_ENV", defaultEnv),
		HTTPPort:          getInt("HTTP_PORT", defaultHTTPPort),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ReadHeaderTimeout: getDuration("READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),

		StoreBackend:    getEnv("STORE_BACKEND", defaultStoreBackend),
		RedisHost:       getEnv("REDIS_HOST", defaultRedisHost),
		RedisPort:       getInt("REDIS_PORT", defaultRedisPort),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		RedisPoolSize:   getInt("REDIS_POOL_SIZE", defaultRedisPoolSize),
		ConversationTTL: getDuration("CONVERSATION_TTL", defaultConversationTTL),

		LLMBaseURL:     getEnv("LLM_BASE_URL", defaultLLMBaseURL),
		LLMModel:       getEnv("LLM_MODEL", defaultLLMModel),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMTimeout:     getDuration("LLM_TIMEOUT", defaultLLMTimeout),
		LLMTemperature: getFloat("LLM_TEMPERATURE", defaultLLMTemperature),
		LLMMaxTokens:   getInt("LLM_MAX_TOKENS", defaultLLMMaxTokens),

		RetentionInterval: getDuration("RETENTION_INTERVAL", defaultRetentionInterval),
	}
	cfg.SwaggerHost = getEnv("SWAGGER_HOST", fmt.Sprintf("localhost:%d", cfg.HTTPPort))

	switch cfg.StoreBackend {
	case StoreRedis, StoreMemory:
		// ok
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND value: %s", cfg.StoreBackend)
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
