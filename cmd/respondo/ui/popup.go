package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"respondo/internal/controller"
	"respondo/internal/logging"
	"respondo/internal/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Runner starts extraction cycles. *controller.Controller satisfies it.
type Runner interface {
	Run(ctx context.Context) (controller.Outcome, error)
	Retry(ctx context.Context) (controller.Outcome, error)
}

// Config configures the popup.
type Config struct {
	AutoRun      bool
	ShowMessages bool
	Theme        string
	BaseURL      string // shown in the header
	Events       <-chan controller.Event
	Changes      <-chan struct{} // snapshot rewrites; nil disables auto-retry
}

// Messages
type (
	eventMsg       controller.Event
	cycleDoneMsg   struct{ err error }
	snapshotMsg    struct{}
	eventsEndedMsg struct{}
)

type keyMap struct {
	Start key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("enter", "r"),
			key.WithHelp("enter/r", "suggest reply"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the popup: one view per controller state.
type Model struct {
	ctx    context.Context
	runner Runner
	cfg    Config

	styles   Styles
	keys     keyMap
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	width    int

	state      controller.State
	generation uint64
	elapsed    time.Duration
	outcome    *controller.Outcome
	notice     string
	quitting   bool
}

// NewModel builds the popup over a runner whose observer feeds cfg.Events.
func NewModel(ctx context.Context, runner Runner, cfg Config) Model {
	styles := NewStyles(ThemeByName(cfg.Theme))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(72),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(72),
		)
	}

	return Model{
		ctx:      ctx,
		runner:   runner,
		cfg:      cfg,
		styles:   styles,
		keys:     defaultKeys(),
		spinner:  sp,
		renderer: renderer,
		width:    80,
		state:    controller.StateIdle,
	}
}

// State returns the state the view is rendering.
func (m Model) State() controller.State {
	return m.state
}

// Elapsed returns the elapsed time last shown.
func (m Model) Elapsed() time.Duration {
	return m.elapsed
}

// Outcome returns the outcome on screen, if any.
func (m Model) Outcome() *controller.Outcome {
	return m.outcome
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForEvent(), m.waitForSnapshot()}
	if m.cfg.AutoRun {
		cmds = append(cmds, m.startCycle(false))
	}
	return tea.Batch(cmds...)
}

// waitForEvent waits for the next controller event.
func (m Model) waitForEvent() tea.Cmd {
	if m.cfg.Events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-m.cfg.Events
		if !ok {
			return eventsEndedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) waitForSnapshot() tea.Cmd {
	if m.cfg.Changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-m.cfg.Changes; !ok {
			return nil
		}
		return snapshotMsg{}
	}
}

// startCycle runs one cycle off the update loop; the view follows the events.
func (m Model) startCycle(retry bool) tea.Cmd {
	ctx, runner := m.ctx, m.runner
	return func() tea.Msg {
		var err error
		if retry {
			_, err = runner.Retry(ctx)
		} else {
			_, err = runner.Run(ctx)
		}
		return cycleDoneMsg{err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Start):
			switch {
			case m.state == controller.StateIdle:
				return m, m.startCycle(false)
			case m.state.Terminal():
				return m, m.startCycle(true)
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		m.apply(controller.Event(msg))
		return m, m.waitForEvent()

	case eventsEndedMsg:
		return m, nil

	case cycleDoneMsg:
		m.notice = ""
		if msg.err != nil && !errors.Is(msg.err, controller.ErrCycleInProgress) {
			m.notice = msg.err.Error()
		}
		return m, nil

	case snapshotMsg:
		logging.UIDebug("snapshot changed in state %s", m.state)
		if m.state.Terminal() {
			return m, tea.Batch(m.startCycle(true), m.waitForSnapshot())
		}
		return m, m.waitForSnapshot()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds one controller event into the view state.
func (m *Model) apply(ev controller.Event) {
	if t := ev.Transition; t != nil {
		logging.UIDebug("cycle %s: %s -> %s", t.CycleID, t.From, t.To)
		m.state = t.To
		m.generation = t.Generation
		if t.To == controller.StateLoading {
			m.elapsed = 0
			m.outcome = nil
			m.notice = ""
		}
		if t.To.Terminal() && t.Outcome != nil {
			m.outcome = t.Outcome
			m.elapsed = t.Outcome.Elapsed
		}
	}
	// Ticks from an older cycle, or arriving after the terminal transition, are stale.
	if tick := ev.Tick; tick != nil {
		if tick.Generation == m.generation && m.state == controller.StateLoading && tick.Elapsed >= m.elapsed {
			m.elapsed = tick.Elapsed
		}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	var body string
	switch m.state {
	case controller.StateIdle:
		body = m.styles.Muted.Render("Open a dialog and press enter to suggest a reply.")
	case controller.StateLoading:
		body = fmt.Sprintf("%s Generating reply... %s",
			m.spinner.View(), m.styles.Elapsed.Render(formatElapsed(m.elapsed)))
	case controller.StateResult:
		body = m.renderResult()
	case controller.StateError:
		body = m.renderError()
	}
	b.WriteString(m.styles.Content.Render(body))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(m.styles.Content.Render(m.styles.Warning.Render(m.notice)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := "respondo"
	if m.cfg.BaseURL != "" {
		title += "  " + m.cfg.BaseURL
	}
	return m.styles.Header.Render(title)
}

func (m Model) renderFooter() string {
	start := m.keys.Start.Help()
	quit := m.keys.Quit.Help()
	action := "suggest reply"
	if m.state.Terminal() {
		action = "retry"
	}
	parts := []string{}
	if m.state != controller.StateLoading {
		parts = append(parts, start.Key+" "+action)
	}
	parts = append(parts, quit.Key+" "+quit.Desc)
	return m.styles.Footer.Render(strings.Join(parts, " • "))
}

func (m Model) renderResult() string {
	o := m.outcome
	if o == nil {
		return ""
	}
	var b strings.Builder

	if m.cfg.ShowMessages && len(o.Messages) > 0 {
		b.WriteString(m.renderMessages(o.Messages))
		b.WriteString("\n")
		b.WriteString(m.styles.RenderDivider(min(m.width-4, 60)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.styles.Bold.Render("Suggested reply"))
	b.WriteString("\n")
	b.WriteString(m.styles.Reply.Render(m.renderReply(o.Reply)))
	b.WriteString("\n\n")

	if o.CopyErr != nil {
		b.WriteString(m.styles.Warning.Render("Could not copy to clipboard: " + o.CopyErr.Error()))
	} else {
		b.WriteString(m.styles.Success.Render("Copied to clipboard"))
	}
	b.WriteString("\n")

	timing := "Generated in " + formatElapsed(o.Elapsed)
	if o.ProcessingTime != nil {
		timing += fmt.Sprintf(" (server %.2fs)", *o.ProcessingTime)
	}
	b.WriteString(m.styles.Elapsed.Render(timing))
	return b.String()
}

func (m Model) renderReply(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

func (m Model) renderMessages(msgs []types.MessageRecord) string {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		header := types.AuthorFor(msg.Role)
		if msg.Date != "" {
			header += " | " + msg.Date
		}
		if msg.ID != "" {
			header += " | ID: " + msg.ID
		}
		b.WriteString(m.styles.Author.Render(header))
		b.WriteString("\n")
		b.WriteString(m.styles.Message.Render(msg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderError() string {
	var b strings.Builder
	var err *types.Error
	if m.outcome != nil {
		err = m.outcome.Err
	}
	if err == nil {
		b.WriteString(m.styles.Error.Render("Something went wrong"))
	} else {
		b.WriteString(m.styles.Error.Render(err.Message))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(err.Hint.Text()))
	}
	if m.outcome != nil && len(m.outcome.Messages) > 0 && m.cfg.ShowMessages {
		b.WriteString("\n\n")
		b.WriteString(m.renderMessages(m.outcome.Messages))
	}
	if m.outcome != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Elapsed.Render("After " + formatElapsed(m.outcome.Elapsed)))
	}
	return lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(b.String())
}

// formatElapsed renders seconds with two decimals.
func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Run opens the popup and blocks until the user quits.
func Run(ctx context.Context, runner Runner, cfg Config) error {
	p := tea.NewProgram(NewModel(ctx, runner, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
