package clipboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSystem(t *testing.T, supported bool, fn func(string) error) {
	t.Helper()
	origWrite, origSupported := systemWriteAll, systemSupported
	systemWriteAll = fn
	systemSupported = func() bool { return supported }
	t.Cleanup(func() {
		systemWriteAll, systemSupported = origWrite, origSupported
	})
}

func TestWriteAll_SystemClipboard(t *testing.T) {
	var got string
	stubSystem(t, true, func(s string) error { got = s; return nil })

	var term bytes.Buffer
	require.NoError(t, NewWithTerminal(&term).WriteAll("Sure, I can help"))
	assert.Equal(t, "Sure, I can help", got)
	assert.Zero(t, term.Len(), "fallback must not run when the system write succeeds")
}

func TestWriteAll_FallsBackToOSC52(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("STY", "")
	stubSystem(t, true, func(string) error { return errors.New("exec: xclip not found") })

	var term bytes.Buffer
	require.NoError(t, NewWithTerminal(&term).WriteAll("привет"))

	out := term.String()
	assert.True(t, strings.HasPrefix(out, "\x1b]52;c;"), "unexpected sequence %q", out)
	assert.Contains(t, out, base64.StdEncoding.EncodeToString([]byte("привет")))
}

func TestWriteAll_UnsupportedUsesFallback(t *testing.T) {
	called := false
	stubSystem(t, false, func(string) error { called = true; return nil })

	var term bytes.Buffer
	require.NoError(t, NewWithTerminal(&term).WriteAll("x"))
	assert.False(t, called)
	assert.NotZero(t, term.Len())
}

func TestWriteAll_NoFallback(t *testing.T) {
	stubSystem(t, true, func(string) error { return errors.New("no display") })

	err := NewWithTerminal(nil).WriteAll("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}
