package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"respondo/internal/extractor"
	"respondo/internal/logging"
)

// Page is a source of rendered HTML: a snapshot file or a live browser tab.
type Page interface {
	// Tab describes the page. It returns ErrNoActiveTab when nothing is open.
	Tab(ctx context.Context) (Tab, error)
	// HTML returns the page's current rendered markup.
	HTML(ctx context.Context) (string, error)
}

// Responder answers page-context requests for one Page.
type Responder struct {
	page Page
	ex   *extractor.Extractor
}

// NewResponder creates a responder. A nil extractor uses the default profile.
func NewResponder(page Page, ex *extractor.Extractor) *Responder {
	if ex == nil {
		ex = extractor.Default()
	}
	return &Responder{page: page, ex: ex}
}

// ActiveTab describes the responder's page.
func (r *Responder) ActiveTab(ctx context.Context) (Tab, error) {
	return r.page.Tab(ctx)
}

// Handle answers one request.
func (r *Responder) Handle(ctx context.Context, req Request) (Response, error) {
	switch req.Action {
	case ActionGetMessages:
		markup, err := r.page.HTML(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("read page: %w", err)
		}
		records, err := r.ex.ExtractHTML(strings.NewReader(markup))
		if err != nil {
			return Response{}, err
		}
		logging.BridgeDebug("responder extracted %d messages", len(records))
		return Response{Messages: records}, nil
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

// answerTab builds the wire answer for an ActiveTab request.
func (r *Responder) answerTab(ctx context.Context) tabReply {
	tab, err := r.ActiveTab(ctx)
	if errors.Is(err, ErrNoActiveTab) {
		return tabReply{Error: err.Error(), Code: codeNoActiveTab}
	}
	if err != nil {
		return tabReply{Error: err.Error()}
	}
	return tabReply{Tab: &tab}
}

var errBadRequest = errors.New("bad request")

// answerMessages decodes a wire request and builds the wire answer.
func (r *Responder) answerMessages(ctx context.Context, data []byte) (Response, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Response{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return r.Handle(ctx, req)
}

// LocalChannel talks to an in-process Responder.
type LocalChannel struct {
	r *Responder
}

// NewLocalChannel wraps a responder as a Channel.
func NewLocalChannel(r *Responder) *LocalChannel {
	return &LocalChannel{r: r}
}

// ActiveTab implements Channel.
func (c *LocalChannel) ActiveTab(ctx context.Context) (Tab, error) {
	return c.r.ActiveTab(ctx)
}

// Send implements Channel.
func (c *LocalChannel) Send(ctx context.Context, _ Tab, req Request) (Response, error) {
	return c.r.Handle(ctx, req)
}
