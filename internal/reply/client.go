// Package reply is the HTTP client for the reply suggestion service.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"respondo/internal/logging"
	"respondo/internal/types"
)

// EmptyReplyPlaceholder stands in for a missing suggested_reply.
const EmptyReplyPlaceholder = "(empty reply)"

// DefaultTimeout bounds one SuggestReply call unless configured otherwise.
const DefaultTimeout = 120 * time.Second

// Client talks to the reply service at a single base URL.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewClient creates a client. A zero timeout leaves calls unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type suggestResponse struct {
	SuggestedReply *string  `json:"suggested_reply"`
	ProcessingTime *float64 `json:"processing_time"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// SuggestReply posts the conversation to /api/suggest-reply. It makes exactly one attempt.
//
// Failures are *types.Error: ServerError for a non-2xx status (carrying the body's detail
// when present), NetworkError when no response arrived.
func (c *Client) SuggestReply(ctx context.Context, turns []types.ConversationTurn) (types.SuggestReplyResult, error) {
	if turns == nil {
		turns = []types.ConversationTurn{}
	}
	payload := types.SuggestReplyRequest{Messages: turns, Context: ""}

	timer := logging.StartTimer(logging.CategoryReply, "suggest-reply")
	var out suggestResponse
	err := c.post(ctx, "/api/suggest-reply", payload, &out)
	timer.StopWithThreshold(30 * time.Second)
	if err != nil {
		return types.SuggestReplyResult{}, err
	}

	result := types.SuggestReplyResult{
		SuggestedReply:        EmptyReplyPlaceholder,
		ProcessingTimeSeconds: out.ProcessingTime,
	}
	if out.SuggestedReply != nil && *out.SuggestedReply != "" {
		result.SuggestedReply = *out.SuggestedReply
	}
	logging.Reply("suggested reply received (%d chars, %d turns)", len(result.SuggestedReply), len(turns))
	return result, nil
}

// TestDialog posts the conversation to /api/test, which formats it without calling the model.
func (c *Client) TestDialog(ctx context.Context, turns []types.ConversationTurn) (types.TestDialogResult, error) {
	if turns == nil {
		turns = []types.ConversationTurn{}
	}
	var out types.TestDialogResult
	if err := c.post(ctx, "/api/test", types.SuggestReplyRequest{Messages: turns}, &out); err != nil {
		return types.TestDialogResult{}, err
	}
	return out, nil
}

// Health checks GET /health and expects {"status": "healthy"}.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, req, &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return types.ServerError(fmt.Sprintf("service reports status %q", out.Status))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logging.ReplyDebug("POST %s (%d bytes)", req.URL, len(body))
	return c.do(ctx, req, out)
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorDetail(respBody)
		if msg == "" {
			msg = fmt.Sprintf("HTTP error %d", resp.StatusCode)
		}
		logging.ReplyError("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, msg)
		return types.ServerError(msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return types.ServerError(fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}

// errorDetail extracts {"detail": ...} from an error body. A non-string detail (as
// returned for validation failures) is rendered as compact JSON.
func errorDetail(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) != nil || len(e.Detail) == 0 || string(e.Detail) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(e.Detail, &s) == nil {
		return strings.TrimSpace(s)
	}
	return string(e.Detail)
}

// classifyTransport maps a failed round trip. Cancellation by the caller is returned as is.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logging.ReplyError("request timed out: %v", err)
		return types.TimeoutError(err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logging.ReplyError("request timed out: %v", err)
		return types.TimeoutError(err)
	}
	logging.ReplyError("request failed: %v", err)
	return types.NetworkError(err)
}
