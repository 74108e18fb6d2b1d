package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"respondo/internal/controller"
	"respondo/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	runs, retries int
	err           error
}

func (f *fakeRunner) Run(context.Context) (controller.Outcome, error) {
	f.runs++
	return controller.Outcome{}, f.err
}

func (f *fakeRunner) Retry(context.Context) (controller.Outcome, error) {
	f.retries++
	return controller.Outcome{}, f.err
}

func newTestModel(t *testing.T, r Runner, cfg Config) Model {
	t.Helper()
	t.Setenv("COLORFGBG", "")
	t.Setenv("RESPONDO_DARK_MODE", "")
	cfg.Theme = "light"
	return NewModel(context.Background(), r, cfg)
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func transition(from, to controller.State, gen uint64, o *controller.Outcome) eventMsg {
	return eventMsg{Transition: &controller.Transition{From: from, To: to, CycleID: "c", Generation: gen, Outcome: o}}
}

func tick(gen uint64, d time.Duration) eventMsg {
	return eventMsg{Tick: &controller.Tick{CycleID: "c", Generation: gen, Elapsed: d}}
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func TestPopup_IdleWaitsForKey(t *testing.T) {
	r := &fakeRunner{}
	m := newTestModel(t, r, Config{})
	assert.Equal(t, controller.StateIdle, m.State())
	assert.Contains(t, m.View(), "press enter")

	m, cmd := send(t, m, enter())
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, r.runs)
	assert.Equal(t, 0, r.retries)

	m, _ = send(t, m, msg)
	assert.Empty(t, m.notice)
}

func TestPopup_LoadingShowsElapsed(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, Config{})
	m, _ = send(t, m, transition(controller.StateIdle, controller.StateLoading, 1, nil))
	m, _ = send(t, m, tick(1, 1250*time.Millisecond))

	assert.Equal(t, controller.StateLoading, m.State())
	assert.Equal(t, 1250*time.Millisecond, m.Elapsed())
	assert.Contains(t, m.View(), "1.25s")
	assert.NotContains(t, m.View(), "retry")
}

func TestPopup_StaleTicksIgnored(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, Config{})
	m, _ = send(t, m, transition(controller.StateIdle, controller.StateLoading, 2, nil))
	m, _ = send(t, m, tick(2, time.Second))

	// Older generation.
	m, _ = send(t, m, tick(1, 5*time.Second))
	assert.Equal(t, time.Second, m.Elapsed())

	// Non-monotonic.
	m, _ = send(t, m, tick(2, 500*time.Millisecond))
	assert.Equal(t, time.Second, m.Elapsed())

	outcome := &controller.Outcome{State: controller.StateResult, Reply: "ok", Elapsed: 1100 * time.Millisecond}
	m, _ = send(t, m, transition(controller.StateLoading, controller.StateResult, 2, outcome))

	// After the terminal transition.
	m, _ = send(t, m, tick(2, 9*time.Second))
	assert.Equal(t, 1100*time.Millisecond, m.Elapsed())
	assert.Equal(t, controller.StateResult, m.State())
}

func TestPopup_ResultView(t *testing.T) {
	pt := 0.42
	ts := int64(1700000030)
	outcome := &controller.Outcome{
		State:          controller.StateResult,
		Reply:          "Sure, I can help",
		ProcessingTime: &pt,
		Elapsed:        2 * time.Second,
		Messages:       []types.MessageRecord{types.NewMessageRecord("101", &ts, false, "1", "Hi")},
	}
	m := newTestModel(t, &fakeRunner{}, Config{ShowMessages: true})
	m.renderer = nil
	m, _ = send(t, m, transition(controller.StateIdle, controller.StateLoading, 1, nil))
	m, _ = send(t, m, transition(controller.StateLoading, controller.StateResult, 1, outcome))

	view := m.View()
	assert.Contains(t, view, "Sure, I can help")
	assert.Contains(t, view, "Copied to clipboard")
	assert.Contains(t, view, "2.00s")
	assert.Contains(t, view, "server 0.42s")
	assert.Contains(t, view, types.AuthorCounterparty)
	assert.Contains(t, view, "ID: 101")
	assert.Contains(t, view, "retry")
}

func TestPopup_NarrowTerminal(t *testing.T) {
	ts := int64(1700000030)
	outcome := &controller.Outcome{
		State:    controller.StateResult,
		Reply:    "ok",
		Elapsed:  time.Second,
		Messages: []types.MessageRecord{types.NewMessageRecord("101", &ts, false, "1", "Hi")},
	}
	m := newTestModel(t, &fakeRunner{}, Config{ShowMessages: true})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 2, Height: 5})
	m, _ = send(t, m, transition(controller.StateIdle, controller.StateLoading, 1, nil))
	m, _ = send(t, m, transition(controller.StateLoading, controller.StateResult, 1, outcome))

	var view string
	require.NotPanics(t, func() { view = m.View() })
	assert.Contains(t, view, "Hi")
}

func TestPopup_ResultWithCopyFailure(t *testing.T) {
	outcome := &controller.Outcome{
		State:   controller.StateResult,
		Reply:   "hello",
		CopyErr: errors.New("no display"),
	}
	m := newTestModel(t, &fakeRunner{}, Config{})
	m, _ = send(t, m, transition(controller.StateLoading, controller.StateResult, 1, outcome))

	view := m.View()
	assert.Contains(t, view, "Could not copy to clipboard")
	assert.NotContains(t, view, "Copied to clipboard")
}

func TestPopup_ErrorViewShowsHint(t *testing.T) {
	outcome := &controller.Outcome{
		State: controller.StateError,
		Err:   types.ServerError("quota exceeded"),
	}
	m := newTestModel(t, &fakeRunner{}, Config{})
	m, _ = send(t, m, transition(controller.StateLoading, controller.StateError, 1, outcome))

	view := m.View()
	assert.Contains(t, view, "quota exceeded")
	assert.Contains(t, view, "reply server")
}

func TestPopup_RetryFromTerminal(t *testing.T) {
	r := &fakeRunner{}
	m := newTestModel(t, r, Config{})
	m, _ = send(t, m, transition(controller.StateLoading, controller.StateError, 1, &controller.Outcome{Err: types.EmptyResult()}))

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, r.retries)
	assert.Equal(t, 0, r.runs)
}

func TestPopup_KeyIgnoredWhileLoading(t *testing.T) {
	r := &fakeRunner{}
	m := newTestModel(t, r, Config{})
	m, _ = send(t, m, transition(controller.StateIdle, controller.StateLoading, 1, nil))

	_, cmd := send(t, m, enter())
	assert.Nil(t, cmd)
}

func TestPopup_CycleErrorsBecomeNotice(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, Config{})

	m, _ = send(t, m, cycleDoneMsg{err: controller.ErrCycleInProgress})
	assert.Empty(t, m.notice)

	m, _ = send(t, m, cycleDoneMsg{err: controller.ErrClosed})
	assert.Contains(t, m.View(), controller.ErrClosed.Error())
}

func TestPopup_SnapshotChangeRetriesOnlyWhenTerminal(t *testing.T) {
	r := &fakeRunner{}
	changes := make(chan struct{}, 1)
	m := newTestModel(t, r, Config{Changes: changes})

	m, _ = send(t, m, transition(controller.StateIdle, controller.StateLoading, 1, nil))
	m, cmd := send(t, m, snapshotMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, 0, r.retries)

	m, _ = send(t, m, transition(controller.StateLoading, controller.StateResult, 1, &controller.Outcome{Reply: "x"}))
	_, cmd = send(t, m, snapshotMsg{})
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)

	changes <- struct{}{}
	var got []tea.Msg
	for _, c := range batch {
		got = append(got, c())
	}
	assert.Contains(t, got, tea.Msg(snapshotMsg{}))
	assert.Equal(t, 1, r.retries)
}

func TestPopup_EventsChannel(t *testing.T) {
	events := make(chan controller.Event, 1)
	m := newTestModel(t, &fakeRunner{}, Config{Events: events})

	events <- controller.Event{Transition: &controller.Transition{To: controller.StateLoading, Generation: 1}}
	msg := m.waitForEvent()()
	m, cmd := send(t, m, msg)
	assert.Equal(t, controller.StateLoading, m.State())
	require.NotNil(t, cmd)

	close(events)
	assert.IsType(t, eventsEndedMsg{}, cmd())
}

func TestPopup_Quit(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, Config{})
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, strings.TrimSpace(m.View()) == "")
}
