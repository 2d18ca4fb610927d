package merkle

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// MemoryStorer keeps nodes in process memory. Nothing survives a restart.
type MemoryStorer struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	order    []string
	children map[string]int
	closed   bool
}

// NewMemoryStorer creates an empty in-memory store.
func NewMemoryStorer() *MemoryStorer {
	return &MemoryStorer{
		nodes:    make(map[string]*Node),
		children: make(map[string]int),
	}
}

var errClosed = errors.New("memory storer is closed")

func (s *MemoryStorer) Put(_ context.Context, node *Node) error {
	if node == nil {
		return errors.New("cannot store nil node")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	if _, ok := s.nodes[node.Hash]; ok {
		return nil
	}

	s.nodes[node.Hash] = node
	s.order = append(s.order, node.Hash)
	if node.ParentHash != nil {
		s.children[*node.ParentHash]++
	}
	return nil
}

func (s *MemoryStorer) Get(_ context.Context, hash string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	return node, nil
}

func (s *MemoryStorer) Has(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.nodes[hash]
	return ok, nil
}

func (s *MemoryStorer) GetByParent(_ context.Context, parentHash *string) ([]*Node, error) {
	return s.filter(func(n *Node) bool {
		if parentHash == nil {
			return n.ParentHash == nil
		}
		return n.ParentHash != nil && *n.ParentHash == *parentHash
	}), nil
}

func (s *MemoryStorer) List(_ context.Context) ([]*Node, error) {
	return s.filter(func(*Node) bool { return true }), nil
}

func (s *MemoryStorer) Roots(ctx context.Context) ([]*Node, error) {
	return s.GetByParent(ctx, nil)
}

func (s *MemoryStorer) Leaves(_ context.Context) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leaves := make([]*Node, 0)
	for _, hash := range s.order {
		if s.children[hash] == 0 {
			leaves = append(leaves, s.nodes[hash])
		}
	}
	return leaves, nil
}

func (s *MemoryStorer) Ancestry(_ context.Context, hash string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var path []*Node
	current := hash
	for {
		node, ok := s.nodes[current]
		if !ok {
			return nil, ErrNotFound{Hash: current}
		}
		path = append(path, node)
		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}

func (s *MemoryStorer) Descendants(ctx context.Context, hash string) ([]*Node, error) {
	path, err := s.Ancestry(ctx, hash)
	if err != nil {
		return nil, err
	}
	slices.Reverse(path)
	return path, nil
}

func (s *MemoryStorer) Depth(ctx context.Context, hash string) (int, error) {
	path, err := s.Ancestry(ctx, hash)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}

func (s *MemoryStorer) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[hash]
	if !ok {
		return ErrNotFound{Hash: hash}
	}
	if s.children[hash] > 0 {
		return ErrHasChildren
	}

	delete(s.nodes, hash)
	delete(s.children, hash)
	s.order = slices.DeleteFunc(s.order, func(h string) bool { return h == hash })
	if node.ParentHash != nil {
		s.children[*node.ParentHash]--
	}
	return nil
}

func (s *MemoryStorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *MemoryStorer) filter(keep func(*Node) bool) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0)
	for _, hash := range s.order {
		if n := s.nodes[hash]; keep(n) {
			out = append(out, n)
		}
	}
	return out
}
