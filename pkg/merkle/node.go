// Package merkle is a content-addressed Merkle DAG used to keep a transcript
// of the exchanges served by the proxy.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/folio/pkg/llm"
)

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Content is the hashable content for the node
	Content any `json:"content"`
}

// Turn is the node content recorded for one message of an exchange.
// Fields are declared in key order so a Turn hashes like its decoded map.
type Turn struct {
	Content string   `json:"content"`
	Role    llm.Role `json:"role"`
}

// input is the canonical form hashed for a node.
type input struct {
	Content any    `json:"content"`
	Parent  string `json:"parent,omitempty"`
}

// NewNode creates a new node with the computed hash for the provided content
func NewNode(content any, parent *Node) *Node {
	n := &Node{
		Content: content,
	}

	if parent != nil {
		n.ParentHash = &parent.Hash
	}

	n.Hash = n.computeHash()
	return n
}

func (n *Node) computeHash() string {
	i := &input{
		Content: n.Content,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Turn decodes the node content as a Turn. It accepts both a Turn value and
// the generic map form content takes after a JSON round trip.
func (n *Node) Turn() (Turn, bool) {
	switch c := n.Content.(type) {
	case Turn:
		return c, true
	case *Turn:
		if c == nil {
			return Turn{}, false
		}
		return *c, true
	case map[string]any:
		role, _ := c["role"].(string)
		content, _ := c["content"].(string)
		if role == "" {
			return Turn{}, false
		}
		return Turn{Role: llm.Role(role), Content: content}, true
	default:
		return Turn{}, false
	}
}
