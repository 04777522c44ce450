// Package tree builds page object trees from definitions.
//
// The builder walks a definition and instantiates one Node per nested
// definition. How a node is populated is pluggable (Assembler); how actions
// are invoked is pluggable per tree (Invoker). Metadata that must not show up
// as enumerable properties lives in a per-tree side table keyed by node.
package tree

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/scope"
)

// RootKey names the root node in paths.
const RootKey = "page"

var (
	// ErrMalformed reports a definition the builder cannot instantiate.
	ErrMalformed = errors.New("malformed definition")
	// ErrNoProperty reports a lookup of an undefined property.
	ErrNoProperty = errors.New("no such property")
	// ErrNotAction reports an invocation of something that is not an action.
	ErrNotAction = errors.New("property is not an action")
	// ErrNotQuery reports a read of an action.
	ErrNotQuery = errors.New("property is an action")
)

// Query is a leaf read against the node it is bound to.
type Query interface {
	Query(ctx context.Context, n *Node, args ...any) (any, error)
}

// Action is a leaf invoked against the node it is bound to.
type Action interface {
	Act(ctx context.Context, n *Node, args ...any) error
}

// Node is an instantiated composite of a page object tree.
type Node struct {
	key     string
	index   int // position within a collection when item is set
	item    bool
	parent  *Node
	tree    *Tree
	locator scope.Locator

	keys     []string
	children map[string]*Node
	lists    map[string]*Collection
	props    map[string]any
	values   map[string]any
}

// Key returns the property name of n within its parent.
func (n *Node) Key() string { return n.key }

// Index reports the position of n within a collection.
func (n *Node) Index() (int, bool) { return n.index, n.item }

// Parent returns the enclosing node, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Tree returns the build n belongs to.
func (n *Node) Tree() *Tree { return n.tree }

// Root returns the root of the tree n belongs to.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Locator returns the resolved query scope of n.
func (n *Node) Locator() scope.Locator { return n.locator }

// IsChained reports whether n belongs to a chained tree.
func (n *Node) IsChained() bool { return n.tree.chained }

// Context returns the test context leaf invocations run against.
func (n *Node) Context() any { return n.tree.cell.Load() }

// Path returns a readable address such as "page.foo[1].bar".
func (n *Node) Path() string {
	if n.parent == nil {
		return RootKey
	}
	p := n.parent.Path() + "." + n.key
	if n.item {
		p += "[" + strconv.Itoa(n.index) + "]"
	}
	return p
}

// Keys returns the enumerable property names of n in sorted order.
// Reserved keys and hidden metadata are not listed.
func (n *Node) Keys() []string {
	return slices.Clone(n.keys)
}

// Has reports whether n defines name.
func (n *Node) Has(name string) bool {
	if _, ok := n.property(name); ok {
		return true
	}
	if _, ok := n.values[name]; ok {
		return true
	}
	return n.children[name] != nil || n.lists[name] != nil
}

// Child returns the nested node called name, or nil.
func (n *Node) Child(name string) *Node {
	return n.children[name]
}

// Collection returns the collection called name, or nil.
func (n *Node) Collection(name string) *Collection {
	return n.lists[name]
}

// Value reads name: queries are evaluated, plain values returned as they are,
// nested nodes and collections returned as *Node and *Collection.
func (n *Node) Value(ctx context.Context, name string, args ...any) (any, error) {
	if p, ok := n.property(name); ok {
		q, ok := p.(Query)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotQuery, n.addr(name))
		}
		v, err := q.Query(ctx, n, args...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.addr(name), err)
		}
		return v, nil
	}
	if v, ok := n.values[name]; ok {
		return v, nil
	}
	if c := n.lists[name]; c != nil {
		return c, nil
	}
	if child := n.children[name]; child != nil {
		return child, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoProperty, n.addr(name))
}

// StringValue reads name and requires a string result.
func (n *Node) StringValue(ctx context.Context, name string, args ...any) (string, error) {
	v, err := n.Value(ctx, name, args...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not a string", n.addr(name), v)
	}
	return s, nil
}

// BoolValue reads name and requires a boolean result.
func (n *Node) BoolValue(ctx context.Context, name string, args ...any) (bool, error) {
	v, err := n.Value(ctx, name, args...)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s is %T, not a bool", n.addr(name), v)
	}
	return b, nil
}

// Do invokes the action called name through the tree's invocation strategy.
// The returned step continues on the chained counterpart of n, so
//
//	n.Do(ctx, "a").Do(ctx, "b")
//
// waits for the application to settle between a and b, while two separate
// n.Do calls do not.
func (n *Node) Do(ctx context.Context, name string, args ...any) *Step {
	step := &Step{node: n.Mirror(), testContext: n.Context(), invoker: n.tree.invoker}

	p, ok := n.property(name)
	if !ok {
		step.err = fmt.Errorf("%w: %s", ErrNoProperty, n.addr(name))
		return step
	}
	act, ok := p.(Action)
	if !ok {
		step.err = fmt.Errorf("%w: %s", ErrNotAction, n.addr(name))
		return step
	}
	err := n.tree.invoker.Invoke(ctx, step.testContext, func(ctx context.Context) error {
		return act.Act(ctx, n, args...)
	})
	if err != nil {
		step.err = fmt.Errorf("%s: %w", n.addr(name), err)
	}
	return step
}

// StoredDefinition implements api.Composable. Only the root of a tracked
// page object reports a definition; nested nodes never do. The result is a
// copy the caller may modify.
func (n *Node) StoredDefinition() (api.Definition, bool) {
	if n.parent != nil {
		return nil, false
	}
	m, ok := n.tree.lookup(n)
	if !ok || m.Definition == nil {
		return nil, false
	}
	return api.Clone(m.Definition), true
}

// Mirror returns the chained counterpart of n. Chained nodes, and nodes of a
// tree built without a mirror, are their own counterpart.
func (n *Node) Mirror() *Node {
	if n.tree.chained {
		return n
	}
	if m, ok := n.tree.lookup(n); ok && m.mirror != nil {
		return m.mirror
	}
	mirror := n.resolveMirror()
	if mirror == nil {
		return n
	}
	n.tree.MetaOf(n).mirror = mirror
	return mirror
}

func (n *Node) resolveMirror() *Node {
	if n.parent == nil {
		m, ok := n.tree.lookup(n)
		if !ok {
			return nil
		}
		if h := m.hidden[ChainedKey]; h != nil && h.Resolve != nil {
			return h.Resolve()
		}
		return nil
	}

	pm := n.parent.Mirror()
	if pm == n.parent {
		return nil
	}
	if n.item {
		c := pm.Collection(n.key)
		if c == nil {
			return nil
		}
		item, err := c.ObjectAt(n.index)
		if err != nil {
			return nil
		}
		return item
	}
	return pm.Child(n.key)
}

func (n *Node) property(name string) (any, bool) {
	if p, ok := n.props[name]; ok {
		return p, true
	}
	if n.tree.chained && n.tree.fallback != nil {
		if _, shadowed := n.values[name]; shadowed || n.children[name] != nil || n.lists[name] != nil {
			return nil, false
		}
		if p, ok := n.tree.fallback[name]; ok && isLeaf(p) {
			return p, true
		}
	}
	return nil, false
}

func (n *Node) addr(name string) string {
	return n.Path() + "." + name
}

func isLeaf(v any) bool {
	switch v.(type) {
	case Query, Action:
		return true
	}
	return false
}
