// Package config loads service settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultNarratorBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultNarratorBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

type Config struct {
	Port string

	DatabaseURL string        // PostgreSQL; takes precedence over SQLitePath
	SQLitePath  string        // embedded store when DatabaseURL is empty; "" = in-memory
	RedisURL    string        // optional read-through cache
	CacheTTL    time.Duration // default 30s

	JWTSecret string
	TokenTTL  time.Duration // default 7 days

	NarratorAPIKey  string
	NarratorBaseURL string
	NarratorModel   string
	NarratorTimeout time.Duration // default 20s

	MonthLocale string // default "pt-BR"
	LogLevel    slog.Level
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvDefault("PORT", "3000"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getEnvDefault("SQLITE_PATH", "maestria.db"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		NarratorAPIKey:  getEnvDefault("NARRATOR_API_KEY", os.Getenv("GEMINI_API_KEY")),
		NarratorBaseURL: getEnvDefault("NARRATOR_BASE_URL", DefaultNarratorBaseURL),
		NarratorModel:   getEnvDefault("NARRATOR_MODEL", "gemini-2.0-flash"),
		MonthLocale:     getEnvDefault("MONTH_LOCALE", "pt-BR"),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.NarratorTimeout, err = getDuration("NARRATOR_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 bytes, got %d", len(cfg.JWTSecret))
	}
	if cfg.SQLitePath == ":memory:" {
		cfg.SQLitePath = ""
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}
