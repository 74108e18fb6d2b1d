package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"respondo/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHandler_Endpoints(t *testing.T) {
	h := NewHTTPHandler(NewResponder(&fakePage{tab: vkTab, html: dialogHTML}, nil))

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("tab", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tab", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var reply tabReply
		require.NoError(t, json.NewDecoder(w.Body).Decode(&reply))
		require.NotNil(t, reply.Tab)
		assert.Equal(t, vkTab.URL, reply.Tab.URL)
	})

	t.Run("messages", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"action":"getMessages"}`)))
		require.Equal(t, http.StatusOK, w.Code)

		var resp Response
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Messages, 2)
	})

	t.Run("unknown action", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"action":"nope"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPChannel_EndToEnd(t *testing.T) {
	page := &fakePage{tab: vkTab, html: dialogHTML}
	srv := httptest.NewServer(NewHTTPHandler(NewResponder(page, nil)))
	defer srv.Close()

	b := New(NewHTTPChannel(srv.URL, 5*time.Second), []string{"vk.com"})

	msgs, err := b.RequestMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello there", msgs[1].Text)
	assert.True(t, msgs[1].IsOutgoing)

	page.set(func(p *fakePage) { p.tab = Tab{ID: "t9", URL: "https://example.com/"} })
	_, err = b.RequestMessages(context.Background())
	assert.True(t, types.IsKind(err, types.ErrorWrongPage))

	page.set(func(p *fakePage) { p.tab, p.tabErr = Tab{}, ErrNoActiveTab })
	_, err = b.RequestMessages(context.Background())
	assert.True(t, types.IsKind(err, types.ErrorWrongPage))

	page.set(func(p *fakePage) {
		p.tab, p.tabErr = vkTab, nil
		p.html = "<html></html>"
	})
	_, err = b.RequestMessages(context.Background())
	assert.True(t, types.IsKind(err, types.ErrorEmptyResult))
}

func TestHTTPChannel_NoResponder(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b := New(NewHTTPChannel(url, time.Second), []string{"vk.com"})
	_, err := b.RequestMessages(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorChannelUnavailable))
	assert.ErrorIs(t, err, ErrNoResponder)
}
