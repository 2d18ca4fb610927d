// Package answer provides the strategies that turn a question into an answer:
// forwarding to a live backend, or replying with canned lines.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/config"
)

// Provider answers a single question. The question is the JSON value the
// caller sent, usually a string; nil means the caller sent none, and
// providers pass that through rather than inventing one.
type Provider interface {
	Ask(ctx context.Context, question json.RawMessage) (string, error)
}

// DefaultCannedLines are used by the canned strategy when none are configured.
var DefaultCannedLines = []string{
	"I spend most of my time building backend services in Go.",
	"My recent projects include a chat proxy and a terminal UI for it.",
	"I enjoy distributed systems, developer tooling, and clean APIs.",
	"Feel free to reach out through the links on this page!",
}

// Canned replies with one of a fixed set of lines and never performs I/O.
type Canned struct {
	Lines []string

	// Pick returns an index in [0, n). Defaults to a uniform random pick.
	Pick func(n int) int
}

// NewCanned returns a canned provider over lines, or DefaultCannedLines when
// lines is empty.
func NewCanned(lines []string) *Canned {
	if len(lines) == 0 {
		lines = DefaultCannedLines
	}
	return &Canned{Lines: lines}
}

func (c *Canned) Ask(ctx context.Context, _ json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.Lines) == 0 {
		return "", fmt.Errorf("no canned lines configured")
	}

	pick := c.Pick
	if pick == nil {
		pick = rand.IntN
	}

	i := pick(len(c.Lines))
	if i < 0 || i >= len(c.Lines) {
		return "", fmt.Errorf("canned pick %d out of range [0, %d)", i, len(c.Lines))
	}
	return c.Lines[i], nil
}

// FromConfig builds the provider selected by cfg.Strategy. The live backend
// reads its address from source on every call.
func FromConfig(cfg config.BackendConfig, source config.BackendSource, logger *zap.Logger) (Provider, error) {
	switch cfg.Strategy {
	case config.StrategyCanned:
		return NewCanned(cfg.Canned), nil
	case config.StrategyLive, "":
		return NewBackend(source, &http.Client{}, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend strategy %q", cfg.Strategy)
	}
}
