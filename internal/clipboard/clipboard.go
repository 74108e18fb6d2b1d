// Package clipboard copies suggested replies to the system clipboard.
// When no system clipboard is reachable (SSH sessions, headless hosts) it falls back to
// an OSC 52 escape sequence, which most terminals turn into a local clipboard write.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"respondo/internal/logging"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// Writer writes text to a clipboard.
type Writer interface {
	WriteAll(text string) error
}

// Swapped in tests.
var (
	systemWriteAll  = clipboard.WriteAll
	systemSupported = func() bool { return !clipboard.Unsupported }
)

// System writes to the OS clipboard, then to the terminal over OSC 52 when that fails.
type System struct {
	term     io.Writer
	fallback bool
}

// New returns a system clipboard writer with the OSC 52 fallback on stderr.
func New() *System {
	return &System{term: os.Stderr, fallback: true}
}

// NewWithTerminal returns a writer whose OSC 52 fallback goes to term. A nil term
// disables the fallback.
func NewWithTerminal(term io.Writer) *System {
	return &System{term: term, fallback: term != nil}
}

// WriteAll implements Writer.
func (s *System) WriteAll(text string) error {
	var sysErr error
	if systemSupported() {
		if sysErr = systemWriteAll(text); sysErr == nil {
			return nil
		}
		logging.ClipboardWarn("system clipboard write failed: %v", sysErr)
	} else {
		sysErr = errors.New("no system clipboard utility available")
	}

	if !s.fallback {
		return fmt.Errorf("copy to clipboard: %w", sysErr)
	}

	seq := osc52.New(text)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(s.term); err != nil {
		return fmt.Errorf("copy to clipboard: %w (osc52: %v)", sysErr, err)
	}
	logging.Get(logging.CategoryClipboard).Info("copied %d bytes over OSC 52", len(text))
	return nil
}
