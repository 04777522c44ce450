package tree

import (
	"sync"

	"github.com/agentic-research/pagetree/api"
)

// ChainedKey is the hidden definition key that links a primary root to its chained tree.
const ChainedKey = "_chainedTree"

// Meta is the side-table record of a node.
type Meta struct {
	// Definition is the stored definition; set on tracked roots only.
	Definition api.Definition

	mirror *Node
	hidden map[string]*Hidden
}

// Hidden is a definition value resolved lazily at read time and kept out of
// the node's enumerable properties.
type Hidden struct {
	Resolve func() *Node
}

// MetaOf returns the side-table record of n, creating it on first use.
func (t *Tree) MetaOf(n *Node) *Meta {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.meta[n]
	if !ok {
		m = &Meta{}
		t.meta[n] = m
	}
	return m
}

func (t *Tree) lookup(n *Node) (*Meta, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.meta[n]
	return m, ok
}

// ContextCell holds the test context of a page object. The primary and the
// chained tree of one page object share a cell.
type ContextCell struct {
	mu    sync.RWMutex
	value any
}

// Load returns the current test context.
func (c *ContextCell) Load() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Store replaces the test context; nil removes it.
func (c *ContextCell) Store(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}
