package tree

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/collection"
	"github.com/agentic-research/pagetree/internal/scope"
)

// ErrNoCounter reports a length read on a tree built without a CountFunc.
var ErrNoCounter = errors.New("collection has no element counter")

// Setup is a definition value that materializes itself when its owner is built.
type Setup interface {
	Setup(t *Tree, owner *Node, key string) (any, error)
}

// CollectionSpec is the rescoped form of a collection descriptor.
type CollectionSpec struct {
	scope string
	item  api.Definition
	opts  api.CollectionOptions
}

// NewCollectionSpec turns a collection descriptor and its normalized item
// definition into a Setup value. The item's resetScope and testContainer
// apply to the whole collection.
func NewCollectionSpec(c *api.Collection, item api.Definition) any {
	opts := c.Options
	if reset, ok := item[api.KeyResetScope].(bool); ok && reset {
		opts.ResetScope = true
	}
	if container, ok := item[api.KeyTestContainer].(string); ok && container != "" {
		opts.TestContainer = container
	}
	return &CollectionSpec{scope: c.Scope, item: item, opts: opts}
}

// Scope returns the item scope of the collection.
func (s *CollectionSpec) Scope() string { return s.scope }

// Setup implements Setup.
func (s *CollectionSpec) Setup(t *Tree, owner *Node, key string) (any, error) {
	if strings.TrimSpace(s.scope) == "" {
		return nil, fmt.Errorf("%w: collection %s has no scope", ErrMalformed, owner.addr(key))
	}
	c := &Collection{
		owner: owner,
		key:   key,
		spec:  s,
		items: scope.Resolve(owner.locator, s.scope, s.opts.ResetScope, s.opts.TestContainer),
	}
	c.memo = collection.New(c.count, c.build)
	return c, nil
}

// Collection is a live, array-like view over the elements matched by an item
// scope. Items are built on first access and memoized.
type Collection struct {
	owner *Node
	key   string
	spec  *CollectionSpec
	items scope.Locator
	memo  *collection.Memo[*Node]
}

// Key returns the property name of the collection within its owner.
func (c *Collection) Key() string { return c.key }

// Owner returns the node that declares the collection.
func (c *Collection) Owner() *Node { return c.owner }

// Locator returns the item scope, without an index.
func (c *Collection) Locator() scope.Locator { return c.items }

// Path returns a readable address of the collection.
func (c *Collection) Path() string { return c.owner.addr(c.key) }

// Len counts the matching elements in the current test context. The count is
// never cached.
func (c *Collection) Len(ctx context.Context) (int, error) {
	return c.memo.Len(ctx)
}

// ObjectAt returns the item at index i. Repeated calls with the same index
// return the same node. An index past the current length is not an error;
// reads on such an item fail once they reach the test context. A negative
// index counts back from the last match.
func (c *Collection) ObjectAt(i int) (*Node, error) {
	item, err := c.memo.At(i)
	if err != nil {
		return nil, fmt.Errorf("%s[%d]: %w", c.Path(), i, err)
	}
	return item, nil
}

// ToArray materializes every current item.
func (c *Collection) ToArray(ctx context.Context) ([]*Node, error) {
	return c.memo.ToSlice(ctx)
}

// ForEach calls fn for every current item.
func (c *Collection) ForEach(ctx context.Context, fn func(i int, item *Node) error) error {
	return c.memo.ForEach(ctx, fn)
}

// All iterates the current items.
func (c *Collection) All(ctx context.Context) iter.Seq2[*Node, error] {
	return c.memo.All(ctx)
}

// Map applies fn to every current item.
func (c *Collection) Map(ctx context.Context, fn func(item *Node) (any, error)) ([]any, error) {
	return collection.Map(ctx, c.memo, fn)
}

// MapBy reads name on every current item. Items that do not define name
// contribute nil.
func (c *Collection) MapBy(ctx context.Context, name string) ([]any, error) {
	return c.Map(ctx, func(item *Node) (any, error) {
		if !item.Has(name) {
			return nil, nil
		}
		return item.Value(ctx, name)
	})
}

// Filter keeps the items for which keep reports true.
func (c *Collection) Filter(ctx context.Context, keep func(item *Node) (bool, error)) ([]*Node, error) {
	return c.memo.Filter(ctx, keep)
}

// FilterBy keeps the items whose name property is truthy. Items that do not
// define name are dropped.
func (c *Collection) FilterBy(ctx context.Context, name string) ([]*Node, error) {
	return c.Filter(ctx, func(item *Node) (bool, error) {
		if !item.Has(name) {
			return false, nil
		}
		v, err := item.Value(ctx, name)
		if err != nil {
			return false, err
		}
		return truthy(v), nil
	})
}

// FindOne returns the single item matching keep. Zero or several matches are
// an error naming the collection.
func (c *Collection) FindOne(ctx context.Context, keep func(item *Node) (bool, error)) (*Node, error) {
	found, err := c.Filter(ctx, keep)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return nil, fmt.Errorf("%s: no item matched", c.Path())
	default:
		return nil, fmt.Errorf("%s: %d items matched, expected one", c.Path(), len(found))
	}
}

// Materialized reports the non-negative indices built so far.
func (c *Collection) Materialized() *roaring64.Bitmap {
	return c.memo.Materialized()
}

func (c *Collection) count(ctx context.Context) (int, error) {
	t := c.owner.tree
	if t.count == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoCounter, c.Path())
	}
	return t.count(ctx, c.owner.Context(), c.items)
}

func (c *Collection) build(i int) (*Node, error) {
	t := c.owner.tree
	item := t.newNode(c.owner, c.key, i, true, c.items.At(i))
	if err := t.Assemble(item, c.spec.item); err != nil {
		return nil, err
	}
	return item, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	return true
}

func noChild(n *Node, name string) error {
	return fmt.Errorf("%w: %s", ErrNoProperty, n.addr(name))
}
