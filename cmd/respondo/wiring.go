package main

import (
	"context"
	"fmt"

	"respondo/internal/bridge"
	"respondo/internal/browser"
	"respondo/internal/clipboard"
	"respondo/internal/config"
	"respondo/internal/controller"
	"respondo/internal/extractor"
	"respondo/internal/reply"
	"respondo/internal/usage"

	"go.uber.org/zap"
)

// newClipboard is swapped out in tests.
var newClipboard = func() clipboard.Writer { return clipboard.New() }

// browserConfig maps the config file section onto the session manager config.
func browserConfig(c *config.Config, launch bool) browser.Config {
	return browser.Config{
		DebuggerURL:         c.Browser.DebuggerURL,
		ControlFile:         c.Browser.ControlFile,
		Headless:            c.Browser.Headless,
		NavigationTimeoutMs: c.Browser.NavigationTimeoutMs,
		Launch:              launch,
	}
}

// newPage returns the page source for an in-process responder.
func newPage(c *config.Config) (bridge.Page, func(), error) {
	switch c.Bridge.Source {
	case config.SourceSnapshot:
		logger.Debug("Using snapshot page", zap.String("path", c.Bridge.SnapshotPath))
		return bridge.NewSnapshotPage(c.Bridge.SnapshotPath, c.Bridge.PageURL), func() {}, nil
	case config.SourceBrowser:
		mgr := browser.NewSessionManager(browserConfig(c, false))
		cleanup := func() {
			_ = mgr.Shutdown(context.Background())
		}
		return browser.NewTabPage(mgr, c.Bridge.AllowedHosts), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown page source: %s", c.Bridge.Source)
	}
}

// newResponder builds the page-context side of the bridge.
func newResponder(c *config.Config) (*bridge.Responder, func(), error) {
	page, cleanup, err := newPage(c)
	if err != nil {
		return nil, nil, err
	}
	return bridge.NewResponder(page, extractor.New(c.Extractor)), cleanup, nil
}

// newBridge builds the UI side of the bridge over the configured transport.
func newBridge(c *config.Config) (*bridge.Bridge, func(), error) {
	switch c.Bridge.Transport {
	case config.TransportLocal:
		r, cleanup, err := newResponder(c)
		if err != nil {
			return nil, nil, err
		}
		return bridge.New(bridge.NewLocalChannel(r), c.Bridge.AllowedHosts), cleanup, nil

	case config.TransportNATS:
		logger.Debug("Connecting to NATS", zap.String("url", c.Bridge.NATS.URL))
		conn, err := bridge.ConnectNATS(c.Bridge.NATS.URL, c.Bridge.NATS.Token)
		if err != nil {
			return nil, nil, err
		}
		ch := bridge.NewNATSChannel(conn, c.Bridge.NATS.Subject, c.Bridge.GetNATSRequestTimeout())
		return bridge.New(ch, c.Bridge.AllowedHosts), conn.Close, nil

	case config.TransportHTTP:
		ch := bridge.NewHTTPChannel(c.Bridge.HTTP.URL, c.Bridge.GetHTTPTimeout())
		return bridge.New(ch, c.Bridge.AllowedHosts), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown bridge transport: %s", c.Bridge.Transport)
	}
}

// newReplyClient builds the reply service client.
func newReplyClient(c *config.Config) *reply.Client {
	return reply.NewClient(c.Server.BaseURL, c.GetServerTimeout())
}

// openTracker opens the cycle statistics file. Statistics are best effort, so a
// failure only disables them.
func openTracker() *usage.Tracker {
	t, err := usage.NewTracker(config.DefaultDir())
	if err != nil {
		logger.Warn("Usage statistics disabled", zap.Error(err))
		return nil
	}
	return t
}

// trackerObserver avoids wrapping a nil *usage.Tracker in a non-nil interface.
func trackerObserver(t *usage.Tracker) controller.Observer {
	if t == nil {
		return nil
	}
	return t
}
