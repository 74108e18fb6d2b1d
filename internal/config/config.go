package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"respondo/internal/extractor"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all respondo configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Reply service (the remote text-generation endpoint)
	Server ServerConfig `yaml:"server"`

	// Page-context channel
	Bridge BridgeConfig `yaml:"bridge"`

	// Live Chrome page source
	Browser BrowserConfig `yaml:"browser"`

	// DOM selector profile
	Extractor extractor.Selectors `yaml:"extractor"`

	// Popup behaviour
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the reply service client.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // "0" disables the bound
}

// DefaultBaseURL is where the reply service listens when run locally.
const DefaultBaseURL = "http://localhost:8000"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "respondo",
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL: DefaultBaseURL,
			Timeout: "120s",
		},

		Bridge:    DefaultBridgeConfig(),
		Browser:   DefaultBrowserConfig(),
		Extractor: extractor.DefaultSelectors(),
		UI:        *DefaultUIConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultDir returns the state directory (~/.respondo).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".respondo"
	}
	return filepath.Join(home, ".respondo")
}

// DefaultConfigPath returns the default path to config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults. Environment variables (including any
// found in a .env file in the working directory) override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	loadDotEnv()
	cfg.applyEnvOverrides()
	cfg.Extractor = cfg.Extractor.WithDefaults()

	return cfg, nil
}

// loadDotEnv loads .env without overriding variables that are already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("RESPONDO_BASE_URL"); url != "" {
		c.Server.BaseURL = url
	}
	if timeout := os.Getenv("RESPONDO_TIMEOUT"); timeout != "" {
		c.Server.Timeout = timeout
	}

	if transport := os.Getenv("RESPONDO_BRIDGE"); transport != "" {
		c.Bridge.Transport = transport
	}
	if snapshot := os.Getenv("RESPONDO_SNAPSHOT"); snapshot != "" {
		c.Bridge.Source = SourceSnapshot
		c.Bridge.SnapshotPath = snapshot
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Bridge.NATS.URL = url
	}
	if token := os.Getenv("NATS_TOKEN"); token != "" {
		c.Bridge.NATS.Token = token
	}
	if url := os.Getenv("RESPONDO_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}

	if debug := os.Getenv("RESPONDO_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// GetServerTimeout returns the reply call bound. Zero means unbounded.
func (c *Config) GetServerTimeout() time.Duration {
	if strings.TrimSpace(c.Server.Timeout) == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d < 0 {
		return 120 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("server.base_url is empty (set it in the config file or RESPONDO_BASE_URL)")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	return c.Bridge.Validate()
}
