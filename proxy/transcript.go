package proxy

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/merkle"
)

// transcript records answered exchanges as two-node chains (question, then
// answer) and keeps at most limit of them, evicting the oldest.
type transcript struct {
	mu     sync.Mutex
	storer merkle.Storer
	limit  int
	heads  []string
}

func newTranscript(storer merkle.Storer, limit int) *transcript {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	return &transcript{storer: storer, limit: limit}
}

// record stores one exchange and returns the hash of its answer node. A
// repeated identical exchange is stored once and keeps its place in line.
func (t *transcript) record(ctx context.Context, question, reply string) (string, error) {
	q := merkle.NewNode(merkle.Turn{Role: llm.RoleUser, Content: question}, nil)
	a := merkle.NewNode(merkle.Turn{Role: llm.RoleAssistant, Content: reply}, q)

	t.mu.Lock()
	defer t.mu.Unlock()

	seen, err := t.storer.Has(ctx, a.Hash)
	if err != nil {
		return "", err
	}
	if seen {
		return a.Hash, nil
	}

	for _, node := range []*merkle.Node{q, a} {
		if err := t.storer.Put(ctx, node); err != nil {
			return "", err
		}
	}
	t.heads = append(t.heads, a.Hash)

	for len(t.heads) > t.limit {
		if err := t.evict(ctx, t.heads[0]); err != nil {
			return "", err
		}
		t.heads = t.heads[1:]
	}
	return a.Hash, nil
}

// evict removes an answer node, and its question once no other answer
// shares it.
func (t *transcript) evict(ctx context.Context, head string) error {
	node, err := t.storer.Get(ctx, head)
	if err != nil {
		return err
	}
	if err := t.storer.Delete(ctx, head); err != nil {
		return err
	}
	if node.ParentHash == nil {
		return nil
	}

	err = t.storer.Delete(ctx, *node.ParentHash)
	if errors.Is(err, merkle.ErrHasChildren) {
		return nil
	}
	return err
}

// HistoryResponse contains the exchange leading up to a given node.
type HistoryResponse struct {
	// Messages in chronological order (oldest first, up to and including the requested node)
	Messages []HistoryMessage `json:"messages"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of messages in the history
	Depth int `json:"depth"`
}

// HistoryMessage represents a message in the transcript.
type HistoryMessage struct {
	Hash       string   `json:"hash"`
	ParentHash *string  `json:"parent_hash,omitempty"`
	Role       llm.Role `json:"role"`
	Content    string   `json:"content"`
}

// handleTranscriptStats returns counts over the recorded exchanges. Every
// exchange ends in its own answer leaf; a question asked more than once with
// different answers is one root shared by several exchanges.
func (p *Proxy) handleTranscriptStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	storer := p.transcript.storer

	nodes, err := storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes":        len(nodes),
		"exchange_count":     len(leaves),
		"distinct_questions": len(roots),
		"limit":              p.transcript.limit,
	})
}

// handleGetNode returns a single node by its hash.
func (p *Proxy) handleGetNode(c *fiber.Ctx) error {
	node, err := p.transcript.storer.Get(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(node)
}

// handleListHistories returns every recorded exchange, one per leaf.
func (p *Proxy) handleListHistories(c *fiber.Ctx) error {
	ctx := c.UserContext()

	leaves, err := p.transcript.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := p.buildHistory(ctx, leaf.Hash)
		if err != nil {
			p.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

// handleGetHistory returns the exchange leading up to a given node.
func (p *Proxy) handleGetHistory(c *fiber.Ctx) error {
	history, err := p.buildHistory(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(history)
}

func (p *Proxy) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	path, err := p.transcript.storer.Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, 0, len(path))
	for _, node := range path {
		msg := HistoryMessage{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
		}
		if turn, ok := node.Turn(); ok {
			msg.Role = turn.Role
			msg.Content = turn.Content
		}
		messages = append(messages, msg)
	}

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}
