package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"respondo/internal/bridge"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickTab(t *testing.T) {
	hosts := []string{"vk.com"}

	_, err := pickTab(nil, hosts)
	assert.ErrorIs(t, err, bridge.ErrNoActiveTab)

	sessions := []Session{
		{TargetID: "a", URL: "https://news.example.com/"},
		{TargetID: "b", URL: "https://vk.com/im?sel=7"},
		{TargetID: "c", URL: "https://m.vk.com/mail"},
	}
	got, err := pickTab(sessions, hosts)
	require.NoError(t, err)
	assert.Equal(t, "b", got.TargetID)

	got, err = pickTab(sessions[:1], hosts)
	require.NoError(t, err)
	assert.Equal(t, "a", got.TargetID, "falls back to the first tab so the host check can reject it")
}

func TestControlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser", "control.txt")
	assert.Empty(t, ReadControlFile(path))
	assert.Empty(t, ReadControlFile(""))

	m := NewSessionManager(Config{ControlFile: path})
	m.controlURL = "ws://127.0.0.1:9222/devtools/browser/abc"
	require.NoError(t, m.WriteControlFile())
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", ReadControlFile(path))

	require.NoError(t, m.RemoveControlFile())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, m.RemoveControlFile())
}

func TestStart_NotRunning(t *testing.T) {
	m := NewSessionManager(Config{ControlFile: filepath.Join(t.TempDir(), "control.txt")})
	err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, m.IsConnected())

	_, err = NewTabPage(m, []string{"vk.com"}).Tab(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestConfig_NavigationTimeout(t *testing.T) {
	assert.Equal(t, "30s", Config{}.NavigationTimeout().String())
	assert.Equal(t, "1.5s", Config{NavigationTimeoutMs: 1500}.NavigationTimeout().String())
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestShutdown_ClosesConnectionToExistingChrome(t *testing.T) {
	conn := &closeCounter{}
	m := NewSessionManager(Config{})
	m.browser = rod.New()
	m.conn = conn
	m.controlURL = "ws://127.0.0.1:9222/devtools/browser/x"

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, 1, conn.closed)
	assert.False(t, m.IsConnected())
	assert.Empty(t, m.ControlURL())

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, 1, conn.closed)
}
