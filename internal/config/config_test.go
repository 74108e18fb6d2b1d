package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RESPONDO_BASE_URL", "RESPONDO_TIMEOUT", "RESPONDO_BRIDGE", "RESPONDO_SNAPSHOT",
		"NATS_URL", "NATS_TOKEN", "RESPONDO_DEBUGGER_URL", "RESPONDO_DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "respondo" {
		t.Errorf("expected Name=respondo, got %s", cfg.Name)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("expected local base URL, got %s", cfg.Server.BaseURL)
	}
	if cfg.Bridge.Transport != TransportLocal {
		t.Errorf("expected local transport, got %s", cfg.Bridge.Transport)
	}
	if len(cfg.Extractor.Containers) != 3 {
		t.Errorf("expected 3 container strategies, got %d", len(cfg.Extractor.Containers))
	}
	if !cfg.UI.AutoRun {
		t.Error("expected auto-run by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.BaseURL = "http://reply.internal:9000"
	cfg.Bridge.Transport = TransportNATS
	cfg.Extractor.Texts = []string{".bubble"}
	cfg.UI.AutoRun = false

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.BaseURL != "http://reply.internal:9000" {
		t.Errorf("expected saved base URL, got %s", loaded.Server.BaseURL)
	}
	if loaded.Bridge.Transport != TransportNATS {
		t.Errorf("expected nats transport, got %s", loaded.Bridge.Transport)
	}
	if len(loaded.Extractor.Texts) != 1 || loaded.Extractor.Texts[0] != ".bubble" {
		t.Errorf("expected custom text selectors, got %v", loaded.Extractor.Texts)
	}
	if loaded.UI.AutoRun {
		t.Error("expected auto_run=false to survive a round trip")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", cfg.Server.BaseURL)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  base_url: http://10.0.0.5:8000\nextractor:\n  outgoing_class: mine\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("base URL not loaded: %s", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != "120s" {
		t.Errorf("timeout default lost: %q", cfg.Server.Timeout)
	}
	if cfg.Extractor.OutgoingClass != "mine" {
		t.Errorf("outgoing class not loaded: %s", cfg.Extractor.OutgoingClass)
	}
	if len(cfg.Extractor.Containers) == 0 {
		t.Error("container defaults lost")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty base URL")
	}

	cfg = DefaultConfig()
	cfg.Server.BaseURL = "localhost:8000"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for scheme-less URL")
	}

	cfg = DefaultConfig()
	cfg.Bridge.Transport = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid transport")
	}

	cfg = DefaultConfig()
	cfg.Bridge.Source = SourceSnapshot
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for snapshot source without path")
	}
	cfg.Bridge.SnapshotPath = "dialog.html"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.Bridge.AllowedHosts = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for no allowed hosts")
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetServerTimeout(); got != 120*time.Second {
		t.Errorf("expected 120s, got %v", got)
	}
	cfg.Server.Timeout = "0"
	if got := cfg.GetServerTimeout(); got != 0 {
		t.Errorf("expected unbounded, got %v", got)
	}
	cfg.Server.Timeout = "garbage"
	if got := cfg.GetServerTimeout(); got != 120*time.Second {
		t.Errorf("expected fallback, got %v", got)
	}

	if got := cfg.Bridge.GetNATSRequestTimeout(); got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
	if got := cfg.Bridge.GetHTTPTimeout(); got != 10*time.Second {
		t.Errorf("expected 10s, got %v", got)
	}
	if got := cfg.Browser.NavigationTimeout(); got != 30*time.Second {
		t.Errorf("expected 30s, got %v", got)
	}
	cfg.UI.TickInterval = "-1s"
	if got := cfg.UI.GetTickInterval(); got != 50*time.Millisecond {
		t.Errorf("expected 50ms fallback, got %v", got)
	}
}

func TestLoggingConfig_Categories(t *testing.T) {
	lc := LoggingConfig{DebugMode: false}
	if lc.IsCategoryEnabled("bridge") {
		t.Error("production mode should disable all categories")
	}
	lc = LoggingConfig{DebugMode: true, Categories: map[string]bool{"bridge": false}, Format: "json"}
	if lc.IsCategoryEnabled("bridge") {
		t.Error("bridge should be disabled")
	}
	if !lc.IsCategoryEnabled("reply") {
		t.Error("unlisted categories default to enabled")
	}
	if !lc.Options().JSONFormat {
		t.Error("format json should map to JSONFormat")
	}
}
