package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries all runtime settings for the API process.
type Config struct {
	Port         string
	DatabaseURL  string
	JWTSecret    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Parse reads configuration from environment variables, applying defaults
// suitable for local development.
func Parse() Config {
	return Config{
		Port:         getString("PORT", "8080"),
		DatabaseURL:  getString("DATABASE_URL", ""),
		JWTSecret:    getString("JWT_SECRET", "dev-secret-change-me"),
		ReadTimeout:  time.Duration(getInt("READ_TIMEOUT_SECONDS", 5)) * time.Second,
		WriteTimeout: time.Duration(getInt("WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
