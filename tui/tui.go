// Package tui provides a Bubble Tea terminal UI over a console session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elenyx/discordrpg/cli"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	style    string // action style, for choices
	isInput  bool   // true for echoed player input
	isSystem bool   // true for system messages
}

// Model is the Bubble Tea model for the quest console.
type Model struct {
	ctx     context.Context
	session *cli.Session

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated lines (unstyled, for re-wrapping)

	width     int
	height    int
	ready     bool
	quitting  bool
	lastInput string
}

// replyMsg carries a session reply into the Update loop.
type replyMsg struct {
	input string // echoed player input (empty for intro)
	reply cli.Reply
}

// New creates a TUI model wired to the given session.
func New(ctx context.Context, s *cli.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		session: s,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program. It returns when the player quits or
// ctx is cancelled.
func Run(ctx context.Context, s *cli.Session) error {
	m := New(ctx, s)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init greets the player.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.intro())
}

func (m Model) intro() tea.Cmd {
	return func() tea.Msg {
		return replyMsg{reply: m.session.Intro(m.ctx)}
	}
}

// Update handles messages (key presses, window resize, replies).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case replyMsg:
		m = m.appendReply(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	lower := strings.ToLower(input)
	if isRepeat(input) {
		if m.lastInput == "" {
			m = m.appendReply(replyMsg{input: input, reply: cli.Reply{System: []string{"Nothing to repeat."}}})
			return m, nil
		}
		input = m.lastInput
	} else {
		m.lastInput = input
	}

	reply := m.session.Exec(m.ctx, input)
	if lower == "/help" {
		reply.System = append(reply.System, "PgUp/PgDn scroll, Up/Down recall earlier input.")
	}
	m = m.appendReply(replyMsg{input: input, reply: reply})
	if reply.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendReply adds a reply to the transcript and refreshes the viewport.
func (m Model) appendReply(msg replyMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	m.rawLines = append(m.rawLines, replyLines(msg.reply)...)

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()
	return m
}

// replyLines flattens a reply into classified lines.
func replyLines(r cli.Reply) []rawLine {
	var out []rawLine
	if r.Title != "" {
		out = append(out, rawLine{text: r.Title, kind: kindTitle})
	}
	if r.Text != "" {
		for _, line := range strings.Split(r.Text, "\n") {
			out = append(out, rawLine{text: line, kind: classifyLine(line)})
		}
	}
	for i, e := range r.Entries {
		out = append(out, rawLine{text: fmt.Sprintf("%d) %s", i+1, e.Label), kind: kindChoice, style: e.Style})
	}
	for _, s := range r.System {
		out = append(out, rawLine{text: s, isSystem: true})
	}
	for _, t := range r.Trace {
		out = append(out, rawLine{text: t, kind: kindTrace})
	}
	return out
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLine(wrapped, rl))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

func renderLine(line string, rl rawLine) string {
	switch rl.kind {
	case kindTitle:
		return styleTitle.Render(line)
	case kindChoice:
		return choiceStyle(rl.style).Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport, status bar, input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
