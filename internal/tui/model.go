// Package tui is a terminal shell for the assistant built on bubbletea. It drives the
// same session.State as the web widget.
package tui

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/session"
	"github.com/ashureev/wpassist/internal/view"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	chromeHeight  = 6
)

// Options configures the shell.
type Options struct {
	// SiteURL is connected on start when set.
	SiteURL string
	// Style is a glamour style name; "auto" detects the terminal background.
	Style string
}

type snapshotMsg session.Snapshot

type subscriptionClosedMsg struct{}

type requestDoneMsg struct {
	err error
}

// Model is the bubbletea model of the shell.
type Model struct {
	ctx         context.Context
	state       *session.State
	updates     <-chan session.Snapshot
	unsubscribe func()
	opts        Options

	snap      session.Snapshot
	connected bool
	notice    string
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer
	styles    Styles
	width     int
	height    int
}

// NewModel subscribes to state and builds the shell. Call Close when done.
func NewModel(ctx context.Context, state *session.State, opts Options) Model {
	styles := DefaultStyles()
	if opts.Style == "" {
		opts.Style = "auto"
	}

	ti := textinput.New()
	ti.Placeholder = "https://example.com"
	ti.Prompt = "│ "
	ti.CharLimit = 2048
	ti.Width = defaultWidth - 4
	ti.PromptStyle = styles.Prompt
	ti.SetValue(opts.SiteURL)
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	updates, unsubscribe := state.Subscribe(1)
	m := Model{
		ctx:         ctx,
		state:       state,
		updates:     updates,
		unsubscribe: unsubscribe,
		opts:        opts,
		snap:        state.Snapshot(),
		input:       ti,
		viewport:    viewport.New(defaultWidth, defaultHeight-chromeHeight),
		spinner:     sp,
		styles:      styles,
		width:       defaultWidth,
		height:      defaultHeight,
	}
	m.renderer = newRenderer(opts.Style, defaultWidth)
	m.syncInput()
	m.refreshTranscript()
	return m
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	styleOpt := glamour.WithStandardStyle(style)
	if style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return nil
	}
	return r
}

// Close ends the snapshot subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, waitForSnapshot(m.updates)}
	if url := strings.TrimSpace(m.opts.SiteURL); url != "" {
		cmds = append(cmds, m.autoConnect(url))
	}
	return tea.Batch(cmds...)
}

func waitForSnapshot(updates <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) connect(url string) tea.Cmd {
	ctx, state := m.ctx, m.state
	return func() tea.Msg {
		return requestDoneMsg{err: state.Connect(ctx, url)}
	}
}

func (m Model) autoConnect(url string) tea.Cmd {
	ctx, state := m.ctx, m.state
	return func() tea.Msg {
		return requestDoneMsg{err: state.AutoConnect(ctx, url)}
	}
}

func complete(ctx context.Context, pending *session.Pending) tea.Cmd {
	return func() tea.Msg {
		return requestDoneMsg{err: pending.Complete(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width <= 0 || msg.Height <= 0 {
			return m, nil
		}
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.renderer = newRenderer(m.opts.Style, msg.Width)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		m.syncInput()
		m.refreshTranscript()
		return m, waitForSnapshot(m.updates)

	case subscriptionClosedMsg:
		return m, tea.Quit

	case requestDoneMsg:
		m.notice = ""
		if errors.Is(msg.err, session.ErrBusy) {
			m.notice = "Still working on the previous request."
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+r":
		m.notice = ""
		m.state.Reset()
		return m, nil

	case "tab":
		next := domain.TabSettings
		if m.snap.Tab == domain.TabSettings {
			next = domain.TabChat
		}
		m.state.SetTab(next)
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" || m.snap.Loading {
			return m, nil
		}
		if !m.snap.Site.Connected {
			return m, m.connect(value)
		}
		pending, err := m.state.BeginSubmit(m.input.Value())
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.input.Reset()
		return m, complete(m.ctx, pending)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.snap.Site.Connected {
		m.state.SetDraft(m.input.Value())
	}
	return m, cmd
}

// syncInput adapts the input to the current phase. The URL typed during setup is
// cleared once the site is loaded.
func (m *Model) syncInput() {
	connected := m.snap.Site.Connected
	if connected && !m.connected {
		m.input.Reset()
	}
	m.connected = connected
	if connected {
		m.input.Placeholder = "Search site content..."
	} else {
		m.input.Placeholder = "https://example.com"
	}
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	for _, turn := range m.snap.Turns {
		stamp := m.styles.Muted.Render(turn.CreatedAt.Format("15:04"))
		if turn.IsUser() {
			fmt.Fprintf(&b, "%s %s\n%s\n\n", m.styles.User.Render("You"), stamp, turn.Text)
			continue
		}
		fmt.Fprintf(&b, "%s %s\n%s", m.styles.Assistant.Render("Assistant"), stamp, m.markdown(turn.Text))
		if len(turn.RelatedItems) > 0 {
			b.WriteString(m.styles.Muted.Render("  Top Matches") + "\n")
			for _, item := range turn.RelatedItems {
				title := html.UnescapeString(string(view.TitleHTML(item.RenderedTitle)))
				b.WriteString(m.styles.Related.Render(fmt.Sprintf("→ %s  %s", title, view.SafeLink(item.Link))) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) markdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := m.styles.Header.Render("WP Assistant") + " " + m.styles.Live.Render("● AI Live")
	if m.snap.Site.Connected {
		header += " " + m.styles.Muted.Render(fmt.Sprintf("%s · %d items", m.snap.Site.URL, len(m.snap.Site.Items)))
	}
	b.WriteString(header + "\n\n")

	switch {
	case m.snap.Tab == domain.TabSettings:
		b.WriteString(m.settingsView())
	case !m.snap.Site.Connected:
		b.WriteString(m.setupView())
	default:
		b.WriteString(m.viewport.View() + "\n")
		if m.snap.Loading {
			b.WriteString(m.spinner.View() + m.styles.Muted.Render(" thinking...") + "\n")
		}
		b.WriteString(m.input.View() + "\n")
	}

	if m.notice != "" {
		b.WriteString(m.styles.Error.Render(m.notice) + "\n")
	}
	b.WriteString(m.styles.Muted.Render("enter send · tab settings · ctrl+r reset · esc quit"))
	return b.String()
}

func (m Model) setupView() string {
	var b strings.Builder
	b.WriteString("Setup Required\n")
	b.WriteString(m.styles.Muted.Render("Enter your site URL to allow the AI to read your posts and pages.") + "\n\n")
	b.WriteString(m.input.View() + "\n")
	if m.snap.Loading {
		b.WriteString(m.spinner.View() + " Connecting...\n")
	} else {
		b.WriteString(m.styles.Muted.Render("Press enter to Start Indexing") + "\n")
	}
	if m.snap.Error != "" {
		b.WriteString(m.styles.Error.Render(m.snap.Error) + "\n")
	}
	return b.String()
}

func (m Model) settingsView() string {
	var b strings.Builder
	b.WriteString("WordPress Integration\n\n")
	b.WriteString(m.styles.Muted.Render("Inline Chatbot: place inside any Page or Post content") + "\n")
	b.WriteString(m.styles.Code.Render(view.InlineShortcode) + "\n\n")
	b.WriteString(m.styles.Muted.Render("Floating Widget: appears automatically, but you can force it") + "\n")
	b.WriteString(m.styles.Code.Render(view.WidgetShortcode) + "\n\n")
	if m.snap.Site.Connected {
		fmt.Fprintf(&b, "Connected to %s (%d items)\n", m.snap.Site.URL, len(m.snap.Site.Items))
	}
	b.WriteString(m.styles.Muted.Render("Press ctrl+r to re-index website data.") + "\n")
	return b.String()
}

// Run starts the shell and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, state *session.State, opts Options) error {
	m := NewModel(ctx, state, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal shell: %w", err)
	}
	return nil
}
