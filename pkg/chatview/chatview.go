// Package chatview is the terminal conversation view: a scrollable list of
// messages, an input line, and a typewriter reveal of the latest answer.
package chatview

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/conversation"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/typewriter"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// Rows used by the title, the input line and the help line.
	chromeHeight = 5
)

// Options configures a Model.
type Options struct {
	Title string

	// RevealInterval is the delay between typed characters. Zero shows
	// every answer at once.
	RevealInterval time.Duration

	// MarkdownStyle is a glamour standard style ("dark", "light", "notty").
	// Empty disables markdown rendering of settled answers.
	MarkdownStyle string

	Logger *zap.Logger
}

// answerMsg carries the outcome of one round trip back into the event loop.
type answerMsg struct {
	answer string
	err    error
}

// Model is the bubbletea model of the conversation view.
type Model struct {
	ctx    context.Context
	conv   *conversation.Conversation
	asker  conversation.Asker
	logger *zap.Logger
	opts   Options

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	writer   typewriter.Model
	markdown *glamour.TermRenderer

	width    int
	height   int
	initCmd  tea.Cmd
	quitting bool
}

// New builds the view over conv. Questions are answered by asker, bounded by
// ctx. The latest assistant message, usually the greeting, starts revealing
// as soon as the program runs.
func New(ctx context.Context, conv *conversation.Conversation, asker conversation.Asker, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Title == "" {
		opts.Title = "Chat with my resume"
	}

	input := textinput.New()
	input.Placeholder = "Ask me about me..."
	input.Prompt = "› "
	input.Focus()

	m := Model{
		ctx:      ctx,
		conv:     conv,
		asker:    asker,
		logger:   opts.Logger,
		opts:     opts,
		input:    input,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		writer:   typewriter.New(),
	}
	m.writer.Interval = opts.RevealInterval
	m = m.resize(defaultWidth, defaultHeight)

	if latest := conv.Latest(); latest.Role == llm.RoleAssistant {
		m.writer, m.initCmd = m.reveal(latest.Content)
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initCmd)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.writer = m.writer.Stop()
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyCtrlS:
			m.writer = m.writer.Skip()
			m.refresh()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		if msg.err != nil {
			m.logger.Warn("chat request failed", zap.Error(msg.err))
		}
		m.conv.Resolve(msg.answer, msg.err)

		var cmd tea.Cmd
		m.writer, cmd = m.reveal(m.conv.Latest().Content)
		m.refresh()
		return m, cmd

	case typewriter.TickMsg:
		var cmd tea.Cmd
		m.writer, cmd = m.writer.Update(msg)
		m.refresh()
		return m, cmd

	case spinner.TickMsg:
		if !m.conv.Pending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a round trip for the current input. Blank input and submits
// while a question is pending are ignored and leave the input untouched.
func (m Model) submit() (tea.Model, tea.Cmd) {
	question, ok := m.conv.Begin(m.input.Value())
	if !ok {
		return m, nil
	}

	m.input.SetValue("")
	// The animated message is no longer the latest one.
	m.writer = m.writer.Stop()
	m.refresh()

	return m, tea.Batch(m.ask(question), m.spinner.Tick)
}

// reveal starts typing text out, or shows it whole when there is no reveal
// interval.
func (m Model) reveal(text string) (typewriter.Model, tea.Cmd) {
	writer, cmd := m.writer.SetText(text)
	if m.opts.RevealInterval <= 0 {
		return writer.Skip(), nil
	}
	return writer, cmd
}

func (m Model) ask(question string) tea.Cmd {
	ctx, asker := m.ctx, m.asker
	return func() tea.Msg {
		answer, err := conversation.Ask(ctx, asker, question)
		return answerMsg{answer: answer, err: err}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.opts.Title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.conv.Pending() {
		b.WriteString(m.spinner.View() + " " + helpStyle.Render("Thinking..."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send • ctrl+s skip animation • pgup/pgdn scroll • esc quit"))
	return b.String()
}

// Conversation exposes the underlying conversation.
func (m Model) Conversation() *conversation.Conversation {
	return m.conv
}

// Typewriter exposes the reveal state of the latest answer.
func (m Model) Typewriter() typewriter.Model {
	return m.writer
}

func (m Model) resize(width, height int) Model {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.Width = max(width-4, 10)

	if m.opts.MarkdownStyle != "" {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.opts.MarkdownStyle),
			glamour.WithWordWrap(m.bubbleWidth()),
		)
		if err != nil {
			m.logger.Warn("markdown renderer unavailable", zap.Error(err))
			renderer = nil
		}
		m.markdown = renderer
	}
	return m
}

// refresh re-renders every message into the viewport and keeps the newest
// content in view.
func (m *Model) refresh() {
	messages := m.conv.Messages()
	last := len(messages) - 1

	blocks := make([]string, 0, len(messages))
	for i, msg := range messages {
		if msg.Role == llm.RoleUser {
			blocks = append(blocks, m.renderUser(msg.Content))
			continue
		}
		if i == last {
			blocks = append(blocks, m.renderAnimated())
			continue
		}
		blocks = append(blocks, m.renderSettled(msg.Content))
	}

	m.viewport.SetContent(strings.Join(blocks, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) bubbleWidth() int {
	return max(m.width*4/5, 20)
}

func (m Model) renderUser(content string) string {
	bubble := userStyle.Render(ansi.Wrap(content, m.bubbleWidth()-userStyle.GetHorizontalFrameSize(), ""))
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble)
}

func (m Model) renderAnimated() string {
	text := ansi.Wrap(m.writer.Displayed(), m.bubbleWidth()-assistantStyle.GetHorizontalFrameSize(), "")
	if !m.writer.Complete() {
		text += cursorStyle.Render(typewriter.Cursor)
	}
	return assistantStyle.Render(text)
}

func (m Model) renderSettled(content string) string {
	if m.markdown != nil {
		if out, err := m.markdown.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return assistantStyle.Render(ansi.Wrap(content, m.bubbleWidth()-assistantStyle.GetHorizontalFrameSize(), ""))
}
