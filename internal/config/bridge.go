package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Bridge transports.
const (
	TransportLocal = "local" // in-process responder
	TransportNATS  = "nats"  // remote responder over NATS request/reply
	TransportHTTP  = "http"  // remote responder over HTTP
)

// Page sources for the local responder.
const (
	SourceSnapshot = "snapshot" // saved HTML file
	SourceBrowser  = "browser"  // live Chrome tab
)

// ValidTransports lists all supported bridge transports.
var ValidTransports = []string{TransportLocal, TransportNATS, TransportHTTP}

// BridgeConfig configures how the UI reaches the page context.
type BridgeConfig struct {
	Transport    string   `yaml:"transport"`
	Source       string   `yaml:"source"`
	SnapshotPath string   `yaml:"snapshot_path"`
	PageURL      string   `yaml:"page_url"` // URL reported for a snapshot; read from the document when empty
	AllowedHosts []string `yaml:"allowed_hosts"`

	NATS NATSConfig       `yaml:"nats"`
	HTTP HTTPBridgeConfig `yaml:"http"`
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	Subject        string `yaml:"subject"`
	RequestTimeout string `yaml:"request_timeout"`
}

// HTTPBridgeConfig configures the HTTP transport.
type HTTPBridgeConfig struct {
	Listen  string `yaml:"listen"` // responder side
	URL     string `yaml:"url"`    // UI side
	Timeout string `yaml:"timeout"`
}

// BrowserConfig configures the Chrome DevTools connection.
type BrowserConfig struct {
	DebuggerURL         string `yaml:"debugger_url"`
	ControlFile         string `yaml:"control_file"`
	Headless            bool   `yaml:"headless"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
}

// DefaultBridgeConfig returns the bridge defaults: an in-process responder over the live browser, vk.com only.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Transport:    TransportLocal,
		Source:       SourceBrowser,
		AllowedHosts: []string{"vk.com"},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			Subject:        "respondo.page",
			RequestTimeout: "5s",
		},
		HTTP: HTTPBridgeConfig{
			Listen:  "127.0.0.1:8765",
			URL:     "http://127.0.0.1:8765",
			Timeout: "10s",
		},
	}
}

// DefaultBrowserConfig returns browser defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		ControlFile:         filepath.Join(DefaultDir(), "browser", "control.txt"),
		Headless:            false,
		NavigationTimeoutMs: 30000,
	}
}

// Validate checks transport/source combinations.
func (b BridgeConfig) Validate() error {
	valid := false
	for _, t := range ValidTransports {
		if b.Transport == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid bridge transport: %s (valid: %v)", b.Transport, ValidTransports)
	}
	if b.Transport == TransportLocal {
		switch b.Source {
		case SourceSnapshot:
			if b.SnapshotPath == "" {
				return fmt.Errorf("bridge.snapshot_path is required for the snapshot source")
			}
		case SourceBrowser:
		default:
			return fmt.Errorf("invalid bridge source: %s (valid: snapshot, browser)", b.Source)
		}
	}
	if len(b.AllowedHosts) == 0 {
		return fmt.Errorf("bridge.allowed_hosts must name at least one host")
	}
	return nil
}

// GetNATSRequestTimeout returns the NATS request timeout.
func (b BridgeConfig) GetNATSRequestTimeout() time.Duration {
	d, err := time.ParseDuration(b.NATS.RequestTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// GetHTTPTimeout returns the HTTP bridge request timeout.
func (b BridgeConfig) GetHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(b.HTTP.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// NavigationTimeout returns the navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}
