package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"prescription-chatbot/internal/llm"
)

// Config holds the server settings.  Inference settings live in LLM.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	StoreBackend  string // memory, postgres, sqlite or redis
	DatabaseURL   string
	SQLitePath    string
	RedisURL      string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	NotifyChannel string

	LexiconPath   string
	ChromePath    string
	RenderTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigin     string

	OTLPEndpoint string

	LLM llm.Config
}

// Load reads the configuration from the environment.  A .env file in the
// working directory, when present, is loaded first without overriding
// variables that are already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not read .env file")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "intake.db"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:    getDurationEnv("SESSION_TTL", 24*time.Hour),
		SweepInterval: getDurationEnv("SWEEP_INTERVAL", 15*time.Minute),
		NotifyChannel: getEnv("POSTGRES_NOTIFY_CHANNEL", "prescription_complete"),

		LexiconPath:   getEnv("LEXICON_PATH", ""),
		ChromePath:    getEnv("CHROME_PATH", ""),
		RenderTimeout: getDurationEnv("RENDER_TIMEOUT", 30*time.Second),

		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 5),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		LLM: llm.LoadConfig(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("90s", "24h") or plain seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
