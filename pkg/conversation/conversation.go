// Package conversation holds the visible exchange between a visitor and the
// resume chatbot, and drives one question/answer round trip at a time.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/papercomputeco/folio/pkg/llm"
)

const (
	// DefaultGreeting seeds every new conversation.
	DefaultGreeting = "Hi! I'm an AI trained on this resume. Feel free to ask me anything about experience, skills, or projects!"

	// Apology replaces the answer whenever a round trip fails. The raw error
	// is never shown to the visitor.
	Apology = "I apologize, but I'm having trouble accessing my knowledge base right now. Please try again in a moment."
)

// Asker sends one question and returns the answer.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, question string) (string, error)

func (f AskerFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// Conversation is an append-only, chronologically ordered list of messages
// plus the pending flag that allows at most one outstanding question.
// It is safe for concurrent use.
type Conversation struct {
	mu       sync.Mutex
	messages []llm.Message
	pending  bool
}

// New starts a conversation seeded with one assistant greeting. An empty
// greeting selects DefaultGreeting.
func New(greeting string) *Conversation {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	return &Conversation{
		messages: []llm.Message{{Role: llm.RoleAssistant, Content: greeting}},
	}
}

// Begin starts a round trip for input. It returns false, changing nothing,
// when the input is blank or another question is still pending. Otherwise
// the user message is appended as typed and the conversation becomes pending.
func (c *Conversation) Begin(input string) (string, bool) {
	if strings.TrimSpace(input) == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return "", false
	}
	c.messages = append(c.messages, llm.Message{Role: llm.RoleUser, Content: input})
	c.pending = true
	return input, true
}

// Resolve settles the pending round trip: it appends the answer, or the
// Apology when err is non-nil, and clears the pending flag. Resolve without a
// pending round trip is a no-op.
func (c *Conversation) Resolve(answer string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		return
	}
	if err != nil {
		answer = Apology
	}
	c.messages = append(c.messages, llm.Message{Role: llm.RoleAssistant, Content: answer})
	c.pending = false
}

// Submit runs a full round trip: Begin, one call to asker, Resolve. It
// reports whether a round trip happened. The asker's error, if any, is
// returned for logging; the conversation itself only ever shows the Apology.
func (c *Conversation) Submit(ctx context.Context, asker Asker, input string) (bool, error) {
	question, ok := c.Begin(input)
	if !ok {
		return false, nil
	}

	answer, err := Ask(ctx, asker, question)
	c.Resolve(answer, err)
	return true, err
}

// Ask calls asker once, turning a panic into an error so the round trip
// still settles.
func Ask(ctx context.Context, asker Asker, question string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("asker panicked: %v", r)
		}
	}()
	return asker.Ask(ctx, question)
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.messages)
}

// Pending reports whether a question is awaiting its answer.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending
}

// Latest returns the most recent message.
func (c *Conversation) Latest() llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.messages[len(c.messages)-1]
}
