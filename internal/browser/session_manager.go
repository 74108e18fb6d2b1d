// Package browser reaches chat pages in a running Chrome over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"respondo/internal/bridge"
	"respondo/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Session describes one open tab.
type Session struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Tab converts the session to the bridge's tab shape.
func (s Session) Tab() bridge.Tab {
	return bridge.Tab{ID: s.TargetID, URL: s.URL, Title: s.Title}
}

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string `json:"debugger_url"`
	ControlFile         string `json:"control_file"`
	Headless            bool   `json:"headless"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
	// Launch starts a new Chrome when no debugger URL is known.
	Launch bool `json:"launch"`
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ErrNotRunning means there is no Chrome to connect to and launching was not requested.
var ErrNotRunning = errors.New("no browser running - use 'respondo browser launch' first")

// SessionManager owns the connection to Chrome.
type SessionManager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	conn       io.Closer          // DevTools websocket
	launched   *launcher.Launcher // set when this manager started Chrome
	controlURL string             // WebSocket URL for DevTools
}

// NewSessionManager creates a new session manager.
func NewSessionManager(cfg Config) *SessionManager {
	return &SessionManager{cfg: cfg}
}

// Start connects to an existing Chrome or, if configured, launches a new one.
// The debugger URL comes from the config, then from the control file.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("stale browser connection detected, reconnecting")
		m.disconnect()
		m.controlURL = ""
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		controlURL = ReadControlFile(m.cfg.ControlFile)
	}

	if controlURL == "" {
		if !m.cfg.Launch {
			return ErrNotRunning
		}
		l := launcher.New().Headless(m.cfg.Headless).Leakless(false)
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		m.launched = l
		controlURL = url
		logging.Browser("launched chrome at %s", url)
	} else if strings.HasPrefix(controlURL, "http") {
		// Accept http://host:port and resolve the websocket endpoint.
		resolved, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return fmt.Errorf("resolve debugger url %s: %w", controlURL, err)
		}
		controlURL = resolved
	}

	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, controlURL, nil); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	b := rod.New().Client(cdp.New().Start(ws))
	if err := b.Connect(); err != nil {
		_ = ws.Close()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = b
	m.conn = ws
	m.controlURL = controlURL
	logging.Browser("connected to chrome at %s", controlURL)
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown disconnects. A Chrome launched by this manager is closed; an existing one is left running.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil && m.launched != nil {
		err = m.browser.Close()
		m.launched.Cleanup()
		m.launched = nil
	}
	m.disconnect()
	m.controlURL = ""
	return err
}

// disconnect drops the DevTools connection and leaves Chrome running. Callers hold mu.
func (m *SessionManager) disconnect() {
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			logging.BrowserWarn("close devtools connection: %v", err)
		}
		m.conn = nil
	}
	m.browser = nil
}

func (m *SessionManager) connected(ctx context.Context) (*rod.Browser, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser.Context(ctx), nil
}

// List returns the open tabs.
func (m *SessionManager) List(ctx context.Context) ([]Session, error) {
	b, err := m.connected(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	results := make([]Session, 0, len(pages))
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			logging.BrowserWarn("page info for %s: %v", p.TargetID, err)
			continue
		}
		results = append(results, Session{
			TargetID: string(info.TargetID),
			URL:      info.URL,
			Title:    info.Title,
		})
	}
	return results, nil
}

// ActiveTab picks the tab to talk to: the first one on an allowed host, else the first
// tab (which then fails the host check upstream). No tabs yields bridge.ErrNoActiveTab.
func (m *SessionManager) ActiveTab(ctx context.Context, allowedHosts []string) (Session, error) {
	sessions, err := m.List(ctx)
	if err != nil {
		return Session{}, err
	}
	return pickTab(sessions, allowedHosts)
}

func pickTab(sessions []Session, allowedHosts []string) (Session, error) {
	if len(sessions) == 0 {
		return Session{}, bridge.ErrNoActiveTab
	}
	for _, s := range sessions {
		if bridge.HostAllowed(s.URL, allowedHosts) {
			return s, nil
		}
	}
	return sessions[0], nil
}

// HTML returns the current rendered markup of a tab.
func (m *SessionManager) HTML(ctx context.Context, targetID string) (string, error) {
	b, err := m.connected(ctx)
	if err != nil {
		return "", err
	}
	page, err := b.PageFromTarget(proto.TargetTargetID(targetID))
	if err != nil {
		return "", fmt.Errorf("attach to target %s: %w", targetID, err)
	}
	markup, err := page.Timeout(m.cfg.NavigationTimeout()).HTML()
	if err != nil {
		return "", fmt.Errorf("read html of %s: %w", targetID, err)
	}
	return markup, nil
}

// Open opens url in a new tab and waits for it to load.
func (m *SessionManager) Open(ctx context.Context, url string) (Session, error) {
	b, err := m.connected(ctx)
	if err != nil {
		return Session{}, err
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return Session{}, fmt.Errorf("create page: %w", err)
	}
	if err := page.Timeout(m.cfg.NavigationTimeout()).WaitLoad(); err != nil {
		logging.BrowserWarn("waiting for %s: %v", url, err)
	}
	return Session{TargetID: string(page.TargetID), URL: url}, nil
}

// WriteControlFile records the debugger URL for later commands.
func (m *SessionManager) WriteControlFile() error {
	if m.cfg.ControlFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.ControlFile), 0o755); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	return os.WriteFile(m.cfg.ControlFile, []byte(m.ControlURL()), 0o644)
}

// RemoveControlFile deletes the control file.
func (m *SessionManager) RemoveControlFile() error {
	if m.cfg.ControlFile == "" {
		return nil
	}
	if err := os.Remove(m.cfg.ControlFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadControlFile returns the debugger URL stored at path, or "".
func ReadControlFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
