// Package typewriter reveals a complete text one character at a time.
//
// The full text is in memory before the reveal starts; the animation is a
// finite, restartable sequence of prefixes driven by a timer. Model is the
// bubbletea component used by the terminal chat view, Play writes the same
// reveal to a plain io.Writer.
package typewriter

import (
	"context"
	"io"
	"iter"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// DefaultInterval is the delay between two reveals.
	DefaultInterval = 30 * time.Millisecond

	// Cursor is shown after the revealed prefix until the reveal completes.
	Cursor = "▋"
)

// Reveal yields every displayed state of text in order: the empty prefix
// first, then one more character per step, ending with the full text. Text of
// N characters yields N+1 states.
func Reveal(text string) iter.Seq[string] {
	runes := []rune(text)
	return func(yield func(string) bool) {
		for i := 0; i <= len(runes); i++ {
			if !yield(string(runes[:i])) {
				return
			}
		}
	}
}

var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}

// TickMsg asks a Model to reveal its next character.
type TickMsg struct {
	Time time.Time
	ID   int
	tag  int
}

// Model is a bubbletea component animating one text value. Every SetText or
// Stop bumps an internal tag, and ticks carrying an older tag are dropped, so
// at most one reveal loop drives the display.
type Model struct {
	// Interval between reveals; DefaultInterval when zero.
	Interval time.Duration

	id       int
	tag      int
	text     []rune
	pos      int
	complete bool
}

// New returns an idle Model with no text.
func New() Model {
	return Model{
		Interval: DefaultInterval,
		id:       nextID(),
		complete: true,
	}
}

// ID identifies this Model's ticks.
func (m Model) ID() int {
	return m.id
}

// SetText restarts the reveal from the first character of text and returns
// the command scheduling the first step. Empty text completes immediately.
func (m Model) SetText(text string) (Model, tea.Cmd) {
	m.tag++
	m.text = []rune(text)
	m.pos = 0
	m.complete = len(m.text) == 0
	if m.complete {
		return m, nil
	}
	return m, m.tick()
}

// Stop cancels the pending step, e.g. when the view is torn down. The
// displayed prefix stays as it is.
func (m Model) Stop() Model {
	m.tag++
	return m
}

// Skip reveals the whole text at once.
func (m Model) Skip() Model {
	m.tag++
	m.pos = len(m.text)
	m.complete = true
	return m
}

// Update advances the reveal on a TickMsg addressed to this Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != m.id || tick.tag != m.tag || m.complete {
		return m, nil
	}

	m.pos++
	if m.pos >= len(m.text) {
		m.pos = len(m.text)
		m.complete = true
		return m, nil
	}
	return m, m.tick()
}

// Displayed is the currently revealed prefix.
func (m Model) Displayed() string {
	return string(m.text[:m.pos])
}

// Text is the full text being revealed.
func (m Model) Text() string {
	return string(m.text)
}

// Complete reports whether the whole text is shown.
func (m Model) Complete() bool {
	return m.complete
}

// View renders the revealed prefix followed by the cursor while incomplete.
func (m Model) View() string {
	if m.complete {
		return m.Displayed()
	}
	return m.Displayed() + Cursor
}

func (m Model) tick() tea.Cmd {
	id, tag := m.id, m.tag
	return tea.Tick(m.interval(), func(t time.Time) tea.Msg {
		return TickMsg{Time: t, ID: id, tag: tag}
	})
}

func (m Model) interval() time.Duration {
	if m.Interval <= 0 {
		return DefaultInterval
	}
	return m.Interval
}

// Play writes text to w one character per interval and returns once the
// whole text is written or ctx is done. A non-positive interval writes the
// text at once.
func Play(ctx context.Context, w io.Writer, text string, interval time.Duration) error {
	if interval <= 0 {
		_, err := io.WriteString(w, text)
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, r := range text {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := io.WriteString(w, string(r)); err != nil {
			return err
		}
	}
	return nil
}
