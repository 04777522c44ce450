package tree

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/logging"
	"github.com/agentic-research/pagetree/internal/scope"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Assembler populates node n from def. Implementations typically adjust def
// and delegate to (*Tree).Default.
type Assembler func(t *Tree, n *Node, def api.Definition) error

// Invoker decides how actions run against a test context.
type Invoker interface {
	// Invoke runs act.
	Invoke(ctx context.Context, testContext any, act func(context.Context) error) error
	// Settle waits until the application under test is settled.
	Settle(ctx context.Context, testContext any) error
}

// CountFunc counts the elements matched by loc in a test context.
type CountFunc func(ctx context.Context, testContext any, loc scope.Locator) (int, error)

// Options configure a build.
type Options struct {
	// Assemble populates every composite node. Defaults to (*Tree).Default.
	Assemble Assembler
	// Invoker runs actions. Defaults to invoking them directly.
	Invoker Invoker
	// Chained marks the tree as the chained mirror of a primary tree.
	Chained bool
	// Context holds the test context; it may be shared between trees.
	Context *ContextCell
	// Fallback leaves are resolved on chained nodes that do not define them.
	Fallback api.Definition
	// Count backs collection lengths.
	Count CountFunc
	Logger logrus.FieldLogger
}

// Tree is the state shared by all nodes of one build.
type Tree struct {
	id       string
	chained  bool
	assemble Assembler
	invoker  Invoker
	cell     *ContextCell
	fallback api.Definition
	count    CountFunc
	log      logrus.FieldLogger

	mu   sync.Mutex
	meta map[*Node]*Meta
}

// Build instantiates a tree from def. Construction failures are returned unchanged.
func Build(def api.Definition, opts Options) (*Node, error) {
	t := &Tree{
		id:       uuid.NewString(),
		chained:  opts.Chained,
		assemble: opts.Assemble,
		invoker:  opts.Invoker,
		cell:     opts.Context,
		fallback: opts.Fallback,
		count:    opts.Count,
		meta:     make(map[*Node]*Meta),
	}
	if t.assemble == nil {
		t.assemble = func(t *Tree, n *Node, def api.Definition) error { return t.Default(n, def) }
	}
	if t.invoker == nil {
		t.invoker = direct{}
	}
	if t.cell == nil {
		t.cell = &ContextCell{}
	}
	t.log = logging.OrDiscard(opts.Logger).WithFields(logrus.Fields{
		"build":   t.id,
		"chained": t.chained,
	})

	root := t.newNode(nil, RootKey, 0, false, scope.Root(""))
	if err := t.Assemble(root, def); err != nil {
		return nil, err
	}
	t.log.Debug("tree built")
	return root, nil
}

// ID identifies the build.
func (t *Tree) ID() string { return t.id }

// Logger returns the build's logger.
func (t *Tree) Logger() logrus.FieldLogger { return t.log }

// Assemble populates n from def with the tree's assembler.
func (t *Tree) Assemble(n *Node, def api.Definition) error {
	return t.assemble(t, n, def)
}

// Default is the generic per-node assembly. It resolves the scope of n,
// then instantiates every entry of def in key order:
// nested definitions become child nodes, setup descriptors are materialized,
// hidden descriptors go to the side table, leaves are bound and anything
// else is kept as a plain value.
func (t *Tree) Default(n *Node, def api.Definition) error {
	own, _ := def[api.KeyScope].(string)
	if n.item {
		// collection items already carry their index-qualified item scope
		n.locator = n.locator.Narrow(own)
	} else {
		reset, _ := def[api.KeyResetScope].(bool)
		container, _ := def[api.KeyTestContainer].(string)
		n.locator = scope.Resolve(n.locator, own, reset, container)
	}

	keys := make([]string, 0, len(def))
	for k := range def {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if err := t.assembleKey(n, key, def[key]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) assembleKey(n *Node, key string, value any) error {
	if key == api.KeyContext {
		return nil
	}

	switch v := value.(type) {
	case *Hidden:
		m := t.MetaOf(n)
		if m.hidden == nil {
			m.hidden = make(map[string]*Hidden)
		}
		m.hidden[key] = v
		return nil
	case Setup:
		out, err := v.Setup(t, n, key)
		if err != nil {
			return err
		}
		if c, ok := out.(*Collection); ok {
			n.lists[key] = c
		} else {
			n.values[key] = out
		}
		n.keys = append(n.keys, key)
		return nil
	case Query, Action:
		n.props[key] = v
		n.keys = append(n.keys, key)
		return nil
	case *api.Collection:
		return fmt.Errorf("%w: collection %s was not rescoped before build", ErrMalformed, n.addr(key))
	case api.Composable:
		return fmt.Errorf("%w: %s holds a built node; normalize the definition first", ErrMalformed, n.addr(key))
	}

	if nested, ok := api.AsDefinition(value); ok {
		child := t.newNode(n, key, 0, false, n.locator)
		if err := t.Assemble(child, nested); err != nil {
			return err
		}
		n.children[key] = child
		n.keys = append(n.keys, key)
		return nil
	}

	n.values[key] = value
	switch key {
	case api.KeyScope, api.KeyResetScope, api.KeyTestContainer:
	default:
		n.keys = append(n.keys, key)
	}
	return nil
}

func (t *Tree) newNode(parent *Node, key string, index int, item bool, base scope.Locator) *Node {
	return &Node{
		key:      key,
		index:    index,
		item:     item,
		parent:   parent,
		tree:     t,
		locator:  base,
		children: make(map[string]*Node),
		lists:    make(map[string]*Collection),
		props:    make(map[string]any),
		values:   make(map[string]any),
	}
}

// direct invokes actions as they come and treats every state as settled.
type direct struct{}

func (direct) Invoke(ctx context.Context, _ any, act func(context.Context) error) error {
	return act(ctx)
}

func (direct) Settle(context.Context, any) error { return nil }
