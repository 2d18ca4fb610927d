package chatview

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/conversation"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/typewriter"
)

// collect runs cmd and flattens any batch into the messages it produced.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func findAnswer(cmd tea.Cmd) answerMsg {
	for _, msg := range collect(cmd) {
		if a, ok := msg.(answerMsg); ok {
			return a
		}
	}
	Fail("no answer in command output")
	return answerMsg{}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(m Model, text string) Model {
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// settle drives typewriter ticks until the reveal completes.
func settle(m Model, cmd tea.Cmd) Model {
	for cmd != nil {
		var tick tea.Msg
		for _, msg := range collect(cmd) {
			if t, ok := msg.(typewriter.TickMsg); ok {
				tick = t
			}
		}
		if tick == nil {
			break
		}
		m, cmd = update(m, tick)
	}
	return m
}

var _ = Describe("Model", func() {
	var (
		conv  *conversation.Conversation
		calls atomic.Int32
		reply string
		fail  error
		m     Model
	)

	BeforeEach(func() {
		conv = conversation.New("")
		calls.Store(0)
		reply = "I know Go and Rust."
		fail = nil
		asker := conversation.AskerFunc(func(context.Context, string) (string, error) {
			calls.Add(1)
			return reply, fail
		})
		m = New(context.Background(), conv, asker, Options{RevealInterval: time.Millisecond})
	})

	It("animates the greeting on start", func() {
		Expect(m.Typewriter().Text()).To(Equal(conversation.DefaultGreeting))
		Expect(m.Typewriter().Complete()).To(BeFalse())
		Expect(m.View()).To(ContainSubstring(typewriter.Cursor))
		Expect(m.Init()).NotTo(BeNil())
	})

	It("sends a question and reveals the answer", func() {
		m = typeText(m, "What languages?")
		var cmd tea.Cmd
		m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})

		Expect(conv.Pending()).To(BeTrue())
		Expect(conv.Messages()[1]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "What languages?"}))
		Expect(m.input.Value()).To(BeEmpty())
		Expect(m.View()).To(ContainSubstring("Thinking..."))

		m, cmd = update(m, findAnswer(cmd))

		Expect(conv.Pending()).To(BeFalse())
		Expect(conv.Latest()).To(Equal(llm.Message{Role: llm.RoleAssistant, Content: reply}))
		Expect(m.Typewriter().Text()).To(Equal(reply))
		Expect(calls.Load()).To(Equal(int32(1)))

		m = settle(m, cmd)
		Expect(m.Typewriter().Complete()).To(BeTrue())
		Expect(m.View()).To(ContainSubstring(reply))
		Expect(m.View()).NotTo(ContainSubstring(typewriter.Cursor))
	})

	It("ignores blank input", func() {
		m = typeText(m, "   ")
		var cmd tea.Cmd
		m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})

		Expect(cmd).To(BeNil())
		Expect(conv.Len()).To(Equal(1))
		Expect(conv.Pending()).To(BeFalse())
		Expect(m.input.Value()).To(Equal("   "))
	})

	It("ignores enter while a question is pending", func() {
		var first, second tea.Cmd
		m = typeText(m, "first")
		m, first = update(m, tea.KeyMsg{Type: tea.KeyEnter})

		m = typeText(m, "second")
		m, second = update(m, tea.KeyMsg{Type: tea.KeyEnter})

		Expect(second).To(BeNil())
		Expect(conv.Len()).To(Equal(2))
		Expect(m.input.Value()).To(Equal("second"))

		m, _ = update(m, findAnswer(first))
		Expect(conv.Len()).To(Equal(3))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("shows the apology when the round trip fails", func() {
		fail = errors.New("connection refused")

		var cmd tea.Cmd
		m = typeText(m, "hello")
		m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})
		m, cmd = update(m, findAnswer(cmd))

		Expect(conv.Latest().Content).To(Equal(conversation.Apology))
		m = settle(m, cmd)
		Expect(m.View()).NotTo(ContainSubstring("connection refused"))
	})

	It("reveals the whole answer on ctrl+s", func() {
		m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlS})

		Expect(m.Typewriter().Complete()).To(BeTrue())
		Expect(m.Typewriter().Displayed()).To(Equal(conversation.DefaultGreeting))
	})

	It("drops the greeting's ticks once a new answer arrives", func() {
		stale := m.initCmd

		var cmd tea.Cmd
		m = typeText(m, "hi")
		m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})
		m, _ = update(m, findAnswer(cmd))

		for _, msg := range collect(stale) {
			m, _ = update(m, msg)
		}
		Expect(m.Typewriter().Text()).To(Equal(reply))
		Expect(m.Typewriter().Displayed()).To(BeEmpty())
	})

	It("stops spinning once nothing is pending", func() {
		tick, ok := m.spinner.Tick().(spinner.TickMsg)
		Expect(ok).To(BeTrue())

		_, cmd := update(m, tick)
		Expect(cmd).To(BeNil())
	})

	It("quits on esc and clears the view", func() {
		var cmd tea.Cmd
		m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEsc})

		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.Quit()))
		Expect(m.View()).To(BeEmpty())
	})

	It("shows answers whole without a reveal interval", func() {
		instant := New(context.Background(), conv, conversation.AskerFunc(func(context.Context, string) (string, error) {
			return reply, nil
		}), Options{})

		Expect(instant.initCmd).To(BeNil())
		Expect(instant.Typewriter().Complete()).To(BeTrue())
		Expect(instant.Typewriter().Displayed()).To(Equal(conversation.DefaultGreeting))

		var cmd tea.Cmd
		instant = typeText(instant, "hello")
		instant, cmd = update(instant, tea.KeyMsg{Type: tea.KeyEnter})
		instant, cmd = update(instant, findAnswer(cmd))

		Expect(cmd).To(BeNil())
		Expect(instant.Typewriter().Complete()).To(BeTrue())
		Expect(instant.Typewriter().Displayed()).To(Equal(reply))
		Expect(instant.View()).NotTo(ContainSubstring(typewriter.Cursor))
	})

	It("follows the window size", func() {
		m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})

		Expect(m.viewport.Width).To(Equal(120))
		Expect(m.viewport.Height).To(Equal(40 - chromeHeight))
	})
})
