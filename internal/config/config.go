package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the potluck server.
type Config struct {
	Port               string
	DBPath             string
	LogLevel           string
	RefreshInterval    time.Duration
	ResolveConcurrency int
	// AllowedOrigins lists extra host patterns allowed to open websockets.
	AllowedOrigins []string
}

// Load reads an optional .env file and then the POTLUCK_* environment.
// Variables already present in the environment take precedence over .env.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:               getenv("POTLUCK_PORT", "8080"),
		DBPath:             getenv("POTLUCK_DB_PATH", "potluck.db"),
		LogLevel:           getenv("POTLUCK_LOG_LEVEL", "info"),
		RefreshInterval:    3 * time.Second,
		ResolveConcurrency: 4,
	}

	if v := os.Getenv("POTLUCK_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid POTLUCK_REFRESH_INTERVAL %q", v)
		}
		cfg.RefreshInterval = d
	}

	if v := os.Getenv("POTLUCK_RESOLVE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid POTLUCK_RESOLVE_CONCURRENCY %q", v)
		}
		cfg.ResolveConcurrency = n
	}

	for _, o := range strings.Split(os.Getenv("POTLUCK_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
