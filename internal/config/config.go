// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for both the server daemon and the
// client session. Unused fields are simply ignored by whichever binary
// loads them.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Server
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	DBPath      string `envconfig:"DB_PATH" default:"livedev.db"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Simulator
	SimStepInterval time.Duration `envconfig:"SIM_STEP_INTERVAL" default:"200ms"`
	SimPlaybookPath string        `envconfig:"SIM_PLAYBOOK_PATH"`

	// File watcher (disabled when WatchDir is empty)
	WatchDir string `envconfig:"WATCH_DIR"`

	// Client
	BackendURL        string        `envconfig:"BACKEND_URL" default:"http://localhost:8080"`
	ReconnectInterval time.Duration `envconfig:"RECONNECT_INTERVAL" default:"3s"`
	EventLogCap       int           `envconfig:"EVENT_LOG_CAP" default:"1000"`
}

// WatcherEnabled returns true if a watch directory is configured.
func (c *Config) WatcherEnabled() bool {
	return c.WatchDir != ""
}

// StreamURL derives the live event stream URL from the backend base URL:
// the HTTP scheme is swapped for its WebSocket equivalent and the fixed
// stream path appended.
func (c *Config) StreamURL() (string, error) {
	return StreamURL(c.BackendURL)
}

// StreamURL converts an HTTP base URL into the ws:// or wss:// URL of
// the /api/ws/live endpoint.
func StreamURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing backend url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws/live"
	return u.String(), nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
