// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults match the paths the host setup step provisions.
const (
	defaultDBPath     = "/var/lib/gatekeeper/gatekeeper.db"
	defaultSessionDir = "/var/log/gatekeeper/sessions"
	defaultLockWaitMS = 5000
)

// Config holds all application configuration. Every gatekeeper process on
// the host must point at the same DBPath; it is the sole coordination point.
type Config struct {
	DBPath     string
	SessionDir string
	LockWait   time.Duration
	Shells     []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:     getEnv("GATEKEEPER_DB_PATH", defaultDBPath),
		SessionDir: getEnv("GATEKEEPER_SESSION_DIR", defaultSessionDir),
		LockWait:   time.Duration(getEnvInt("GATEKEEPER_LOCK_WAIT_MS", defaultLockWaitMS)) * time.Millisecond,
		Shells:     getEnvList("GATEKEEPER_SHELLS", []string{"/bin/bash", "/bin/sh"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("GATEKEEPER_DB_PATH cannot be empty")
	}
	if c.SessionDir == "" {
		return fmt.Errorf("GATEKEEPER_SESSION_DIR cannot be empty")
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("GATEKEEPER_LOCK_WAIT_MS must be > 0")
	}
	if len(c.Shells) == 0 {
		return fmt.Errorf("GATEKEEPER_SHELLS cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
