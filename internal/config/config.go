package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Env          string
	ServerPort   int
	DatabasePath string

	// Signing key for bearer tokens. Required in every environment; the
	// process refuses to start without it.
	JWTSecret string
	TokenTTL  time.Duration

	GroqAPIKey   string
	GroqModel    string
	PixazoAPIKey string

	// Cron expression gating the collective-narrative digest runs.
	DigestCron string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("missing required environment variable JWT_SECRET")
	}

	ttlMinutes, err := getEnvAsInt("TOKEN_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:          getEnv("APP_ENV", "development"),
		ServerPort:   port,
		DatabasePath: getEnv("DATABASE_PATH", "./dreamloom.db"),
		JWTSecret:    secret,
		TokenTTL:     time.Duration(ttlMinutes) * time.Minute,
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GroqModel:    getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		PixazoAPIKey: os.Getenv("PIXAZO_API_KEY"),
		DigestCron:   getEnv("DIGEST_CRON", "@hourly"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, valStr, err)
	}
	return val, nil
}
