//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"respondo/internal/bridge"
	"respondo/internal/browser"

	"github.com/stretchr/testify/require"
)

func TestTabPage_ExtractsFromLiveTab_Integration(t *testing.T) {
	if os.Getenv("RESPONDO_CHROME") == "" {
		t.Skip("RESPONDO_CHROME not set, skipping browser integration test")
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body>
<div class="im-mess _im_mess" data-msgid="1"><div class="im-mess--text">Hi</div></div>
<div class="im-mess im-mess_out _im_mess" data-msgid="2"><div class="im-mess--text">Hello there</div></div>
</body></html>`)
	}))
	defer ts.Close()

	sm := browser.NewSessionManager(browser.Config{Headless: true, Launch: true, NavigationTimeoutMs: 10000})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer func() {
		_ = sm.Shutdown(context.Background())
	}()

	require.NoError(t, sm.Start(ctx))
	_, err := sm.Open(ctx, ts.URL)
	require.NoError(t, err)

	// The test server is on 127.0.0.1, so allow it like a chat host.
	page := browser.NewTabPage(sm, []string{"127.0.0.1"})
	b := bridge.New(bridge.NewLocalChannel(bridge.NewResponder(page, nil)), []string{"127.0.0.1"})

	msgs, err := b.RequestMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "Hello there", msgs[1].Text)
	require.True(t, msgs[1].IsOutgoing)
}
