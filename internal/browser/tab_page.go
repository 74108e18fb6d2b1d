package browser

import (
	"context"
	"sync"

	"respondo/internal/bridge"
)

// TabPage is a bridge.Page over the live browser: Tab picks the active chat tab and
// HTML reads that same tab.
type TabPage struct {
	m     *SessionManager
	hosts []string

	mu     sync.Mutex
	target string
}

// NewTabPage creates a page that prefers tabs on allowedHosts.
func NewTabPage(m *SessionManager, allowedHosts []string) *TabPage {
	return &TabPage{m: m, hosts: allowedHosts}
}

// Tab implements bridge.Page.
func (p *TabPage) Tab(ctx context.Context) (bridge.Tab, error) {
	s, err := p.m.ActiveTab(ctx, p.hosts)
	if err != nil {
		return bridge.Tab{}, err
	}
	p.mu.Lock()
	p.target = s.TargetID
	p.mu.Unlock()
	return s.Tab(), nil
}

// HTML implements bridge.Page.
func (p *TabPage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()

	if target == "" {
		tab, err := p.Tab(ctx)
		if err != nil {
			return "", err
		}
		target = tab.ID
	}
	return p.m.HTML(ctx, target)
}
