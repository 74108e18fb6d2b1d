// Package bridge carries the getMessages round trip between the UI and the page context.
//
// The UI side holds a Bridge over a Channel. The page side is a Responder over a Page
// (a saved snapshot or a live browser tab), reachable in-process or over NATS or HTTP.
package bridge

import (
	"context"
	"errors"

	"respondo/internal/types"
)

// ActionGetMessages is the only action the page context answers.
const ActionGetMessages = "getMessages"

// Request is the single outbound message to the page context.
type Request struct {
	Action string `json:"action"`
}

// Response is the page context's correlated reply. Error is set by remote
// responders when the page could not be read.
type Response struct {
	Messages []types.MessageRecord `json:"messages"`
	Error    string                `json:"error,omitempty"`
}

// Tab describes the page a channel would talk to.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Channel reaches the page context: find the active tab, then send it one request.
type Channel interface {
	ActiveTab(ctx context.Context) (Tab, error)
	Send(ctx context.Context, tab Tab, req Request) (Response, error)
}

var (
	// ErrNoActiveTab means no page is open at all.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrNoResponder means nothing answered on the channel.
	ErrNoResponder = errors.New("no responder")
	// ErrUnknownAction is returned by a Responder for anything but getMessages.
	ErrUnknownAction = errors.New("unknown action")
)

// codeNoActiveTab marks ErrNoActiveTab on the wire.
const codeNoActiveTab = "no_active_tab"

// tabReply is the wire shape of an ActiveTab answer.
type tabReply struct {
	Tab   *Tab   `json:"tab,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

func (r tabReply) result() (Tab, error) {
	switch {
	case r.Code == codeNoActiveTab:
		return Tab{}, ErrNoActiveTab
	case r.Error != "":
		return Tab{}, errors.New(r.Error)
	case r.Tab == nil:
		return Tab{}, ErrNoActiveTab
	}
	return *r.Tab, nil
}
