package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yukikurage/tasktide/internal/constants"
)

// Config holds process-wide settings. It is read once at startup and
// treated as immutable afterwards.
type Config struct {
	// Storage
	DataDir     string
	TaskDBPath  string
	AuthDBPath  string
	DatabaseKey string

	// Auth
	JWTSecret         string
	Pepper            string
	TokenTTL          time.Duration
	LoginRateInterval time.Duration
	LoginRateBurst    int

	// Observability
	LogLevel        string
	SQLLog          bool
	MetricsTextfile string
}

// Load reads the configuration from the environment. The three secrets
// are required; a missing one is reported together with the others.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseKey = os.Getenv("TASK_DB_KEY")
	if cfg.DatabaseKey == "" {
		missing = append(missing, "TASK_DB_KEY")
	}

	cfg.JWTSecret = os.Getenv("AUTH_PEPPER_JWT")
	if cfg.JWTSecret == "" {
		missing = append(missing, "AUTH_PEPPER_JWT")
	}

	cfg.Pepper = os.Getenv("AUTH_PEPPER")
	if cfg.Pepper == "" {
		missing = append(missing, "AUTH_PEPPER")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.DataDir = getEnv("TASKTIDE_DATA_DIR", "./data")
	cfg.TaskDBPath = getEnv("TASKTIDE_TASK_DB", filepath.Join(cfg.DataDir, "tasks.db"))
	cfg.AuthDBPath = getEnv("TASKTIDE_AUTH_DB", filepath.Join(cfg.DataDir, "auth.db"))
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", constants.DefaultTokenTTL)
	cfg.LoginRateInterval = getEnvDuration("LOGIN_RATE_INTERVAL", 2*time.Second)
	if cfg.LoginRateInterval <= 0 {
		cfg.LoginRateInterval = 2 * time.Second
	}
	// A zero burst would refuse every login.
	cfg.LoginRateBurst = max(getEnvInt("LOGIN_RATE_BURST", 5), 1)
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.SQLLog = getEnvBool("SQL_LOG", false)
	cfg.MetricsTextfile = getEnv("METRICS_TEXTFILE", "")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
