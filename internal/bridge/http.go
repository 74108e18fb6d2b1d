package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"respondo/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewHTTPHandler exposes a Responder as GET /tab, POST /messages and GET /health.
func NewHTTPHandler(r *Responder) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Get("/tab", func(w http.ResponseWriter, req *http.Request) {
		reply := r.answerTab(req.Context())
		status := http.StatusOK
		switch {
		case reply.Code == codeNoActiveTab:
			status = http.StatusNotFound
		case reply.Error != "":
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, reply)
	})

	router.Post("/messages", func(w http.ResponseWriter, req *http.Request) {
		data, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
			return
		}
		resp, err := r.answerMessages(req.Context(), data)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, ErrUnknownAction) || errors.Is(err, errBadRequest) {
				status = http.StatusBadRequest
			}
			logging.BridgeWarn("http /messages: %v", err)
			writeJSON(w, status, Response{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves the responder on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, r *Responder) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHTTPHandler(r),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Bridge("serving page context on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http responder: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// HTTPChannel reaches a remote Responder over HTTP.
type HTTPChannel struct {
	baseURL string
	client  *http.Client
}

// NewHTTPChannel creates a channel against a responder at baseURL.
func NewHTTPChannel(baseURL string, timeout time.Duration) *HTTPChannel {
	return &HTTPChannel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ActiveTab implements Channel.
func (c *HTTPChannel) ActiveTab(ctx context.Context) (Tab, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tab", nil)
	if err != nil {
		return Tab{}, fmt.Errorf("create request: %w", err)
	}
	var reply tabReply
	if _, err := c.do(req, &reply); err != nil {
		return Tab{}, err
	}
	return reply.result()
}

// Send implements Channel.
func (c *HTTPChannel) Send(ctx context.Context, _ Tab, r Request) (Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp Response
	status, err := c.do(req, &resp)
	if err != nil {
		return Response{}, err
	}
	if status >= 300 && resp.Error == "" {
		resp.Error = fmt.Sprintf("HTTP %d", status)
	}
	return resp, nil
}

// do runs req and decodes any JSON body into out, returning the status code.
func (c *HTTPChannel) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w at %s: %v", ErrNoResponder, c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
