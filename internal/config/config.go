// Package config loads supervisor configuration from an optional jsonc file
// and environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"
)

// Defaults.
const (
	DefaultCheckIntervalMs = 5000
	DefaultHTTPAddr        = ":3100"
	DefaultAuthCacheRoot   = ".wwebjs_auth"
	DefaultDataDir         = ".izing"
	DefaultConfigFile      = "izing.jsonc"
)

// Config holds the supervisor configuration.
type Config struct {
	// CheckIntervalMs is the liveness probe period in milliseconds.
	CheckIntervalMs int `json:"checkIntervalMs"`
	// ChromeBin is the path to the automation browser binary. Empty means
	// the client library's bundled browser.
	ChromeBin string `json:"chromeBin"`
	// AuthCacheRoot is the directory holding per-session auth caches.
	AuthCacheRoot string `json:"authCacheRoot"`
	// HTTPAddr is the listen address of the admin/observation API.
	HTTPAddr string `json:"httpAddr"`
	// LogLevel is the minimum log level (DEBUG..FATAL).
	LogLevel string `json:"logLevel"`
	// DataDir is where the file-backed account store keeps its records.
	DataDir string `json:"dataDir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		CheckIntervalMs: DefaultCheckIntervalMs,
		AuthCacheRoot:   DefaultAuthCacheRoot,
		HTTPAddr:        DefaultHTTPAddr,
		LogLevel:        "INFO",
		DataDir:         DefaultDataDir,
	}
}

// Load builds the configuration: defaults, then the jsonc file (the given
// path, or izing.jsonc in the working directory if present), then environment
// overrides. Environment variables win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. Unparseable values are
// ignored in favor of what is already set.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.CheckIntervalMs = ms
		}
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		cfg.ChromeBin = v
	}
	if v := os.Getenv("WWEBJS_AUTH_ROOT"); v != "" {
		cfg.AuthCacheRoot = v
	}
	if v := os.Getenv("IZING_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("IZING_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

// CheckInterval returns the liveness probe period.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMs) * time.Millisecond
}
