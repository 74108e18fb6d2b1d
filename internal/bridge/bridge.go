package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"respondo/internal/logging"
	"respondo/internal/types"
)

// Bridge performs the getMessages round trip with typed failures.
type Bridge struct {
	ch    Channel
	hosts []string
	mu    sync.Mutex // one outstanding request
}

// New creates a bridge that only talks to tabs on the given hosts (or their subdomains).
func New(ch Channel, allowedHosts []string) *Bridge {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Bridge{ch: ch, hosts: hosts}
}

// RequestMessages asks the active tab for its messages.
//
// Failures are *types.Error: WrongPage when the tab is not on an allowed host (nothing
// is sent), ChannelUnavailable when nothing answers, EmptyResult when the reply carries
// no messages.
func (b *Bridge) RequestMessages(ctx context.Context) ([]types.MessageRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tab, err := b.ch.ActiveTab(ctx)
	if err != nil {
		if errors.Is(err, ErrNoActiveTab) {
			return nil, types.WrongPage("")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.BridgeWarn("active tab lookup failed: %v", err)
		return nil, types.ChannelUnavailable(err)
	}

	if !b.Eligible(tab.URL) {
		logging.Bridge("tab %s is not eligible: %s", tab.ID, tab.URL)
		return nil, types.WrongPage(tab.URL)
	}

	logging.BridgeDebug("sending %s to tab %s (%s)", ActionGetMessages, tab.ID, tab.URL)
	resp, err := b.ch.Send(ctx, tab, Request{Action: ActionGetMessages})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.BridgeWarn("send to tab %s failed: %v", tab.ID, err)
		return nil, types.ChannelUnavailable(err)
	}
	if resp.Error != "" {
		logging.BridgeWarn("responder error from tab %s: %s", tab.ID, resp.Error)
		return nil, types.ChannelUnavailable(fmt.Errorf("responder: %s", resp.Error))
	}
	if len(resp.Messages) == 0 {
		return nil, types.EmptyResult()
	}

	logging.Bridge("received %d messages from tab %s", len(resp.Messages), tab.ID)
	return resp.Messages, nil
}

// Eligible reports whether rawURL is on one of the bridge's allowed hosts.
func (b *Bridge) Eligible(rawURL string) bool {
	return HostAllowed(rawURL, b.hosts)
}

// HostAllowed reports whether rawURL's host equals one of hosts or is a subdomain of one.
func HostAllowed(rawURL string, hosts []string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range hosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
