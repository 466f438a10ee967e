// Package config loads client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultProfile        = "default"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollInterval   = 30 * time.Second
)

// Session store kinds. Any redis:// or rediss:// URL selects Redis.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds client settings. The backend base URL is fixed at build time
// and is not part of it.
type Config struct {
	Home           string        // SAWA_HOME, default ~/.sawa
	Profile        string        // SAWA_PROFILE
	SessionStore   string        // SAWA_SESSION_STORE: file, memory or a redis:// URL
	RequestTimeout time.Duration // SAWA_REQUEST_TIMEOUT
	PollInterval   time.Duration // SAWA_POLL_INTERVAL
	LogLevel       string        // SAWA_LOG_LEVEL
	LogFormat      string        // SAWA_LOG_FORMAT: text or json
}

// Load reads an optional .env file (or SAWA_ENV_FILE) and then the
// environment. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	home := os.Getenv("SAWA_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		home = filepath.Join(userHome, ".sawa")
	}

	timeout, err := getEnvDuration("SAWA_REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	poll, err := getEnvDuration("SAWA_POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Home:           home,
		Profile:        getEnv("SAWA_PROFILE", DefaultProfile),
		SessionStore:   getEnv("SAWA_SESSION_STORE", StoreFile),
		RequestTimeout: timeout,
		PollInterval:   poll,
		LogLevel:       getEnv("SAWA_LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(getEnv("SAWA_LOG_FORMAT", "text")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that Load cannot default away. Flag overrides
// should be validated again after they are applied.
func (c *Config) Validate() error {
	switch {
	case c.SessionStore == StoreFile, c.SessionStore == StoreMemory:
	case strings.HasPrefix(c.SessionStore, "redis://"), strings.HasPrefix(c.SessionStore, "rediss://"):
	default:
		return fmt.Errorf("SAWA_SESSION_STORE: unsupported store %q (want file, memory or redis://...)", c.SessionStore)
	}
	if c.Profile == "" || strings.ContainsAny(c.Profile, `/\:`) || strings.HasPrefix(c.Profile, ".") {
		return fmt.Errorf("invalid profile name %q", c.Profile)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("SAWA_POLL_INTERVAL must be at least 1s, got %s", c.PollInterval)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("SAWA_LOG_FORMAT: unsupported format %q", c.LogFormat)
	}
	return nil
}

// SessionDir is where the file store keeps the session slots.
func (c *Config) SessionDir() string {
	if c.Profile == DefaultProfile {
		return filepath.Join(c.Home, "session")
	}
	return filepath.Join(c.Home, "profiles", c.Profile, "session")
}

// DebugLogPath is the log file used while the TUI owns the terminal.
func (c *Config) DebugLogPath() string {
	return filepath.Join(c.Home, "debug.log")
}

func loadDotEnv() error {
	path := os.Getenv("SAWA_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
