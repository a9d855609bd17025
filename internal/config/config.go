// Package config loads client settings from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerOrigin is the http(s) origin of the arena server; the websocket
	// endpoint is derived from it.
	ServerOrigin string
	// DataDir holds the persisted session file.
	DataDir string
	// LogLevel is a zap level string (debug, info, warn, error).
	LogLevel string
}

func Load() Config {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := Config{
		ServerOrigin: getenv("ARENA_SERVER_URL", "http://localhost:8000"),
		DataDir:      getenv("ARENA_DATA_DIR", defaultDataDir()),
		LogLevel:     getenv("ARENA_LOG_LEVEL", "info"),
	}
	return cfg
}

func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".arena-client"
	}
	return filepath.Join(base, "arena-client")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
