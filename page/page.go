// Package page builds page objects: navigable trees of scoped DOM queries and
// actions described by a declarative definition.
//
//	p, err := page.Create(api.Definition{
//		"scope": "#login",
//		"name":  page.Fillable("input[name=user]"),
//		"title": page.Text("h1"),
//	}, page.WithContext(doc))
//
// Every page object is backed by two trees built from the same definition.
// The primary tree runs actions immediately; the chained tree waits for the
// application to settle first. Do returns a step on the chained tree, so
//
//	p.Do(ctx, "click").Do(ctx, "click")
//
// settles between the two clicks while two separate p.Do calls do not.
package page

import (
	"context"
	"fmt"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/definition"
	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/execution"
	"github.com/agentic-research/pagetree/internal/logging"
	"github.com/agentic-research/pagetree/internal/props"
	"github.com/agentic-research/pagetree/internal/tree"
)

// Page is the root of a built page object.
type Page struct {
	*tree.Node

	def  api.Definition // normalized definition the page was built from
	cell *tree.ContextCell
}

type settings struct {
	context    any
	hasContext bool
	untracked  bool
	log        logrus.FieldLogger
}

// Option configures Create.
type Option func(*settings)

// WithContext sets the test context leaves run against, typically a
// *htmldoc.Document or a *roddriver.Driver.
func WithContext(testContext any) Option {
	return func(s *settings) { s.context, s.hasContext = testContext, true }
}

// Untracked builds a page object that does not record its definition:
// StoredDefinition reports nothing and the page cannot be composed into other
// definitions. Definition and Extend keep working. Embedded page objects in
// def are still replaced by their stored definitions.
func Untracked() Option {
	return func(s *settings) { s.untracked = true }
}

// WithLogger traces builds and settling to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) { s.log = l }
}

// Create builds a page object from def. A "context" key in def is used as the
// test context unless WithContext is given; it is never built.
func Create(def api.Definition, opts ...Option) (*Page, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	log := logging.OrDiscard(s.log)

	raw := maps.Clone(def)
	if raw == nil {
		raw = api.Definition{}
	}
	if tc, ok := raw[api.KeyContext]; ok {
		if !s.hasContext {
			s.context, s.hasContext = tc, true
		}
		delete(raw, api.KeyContext)
	}

	normalized := definition.Normalize(raw)
	cell := &tree.ContextCell{}
	defaults := props.Defaults()

	chainedDef, err := definition.Rescope(normalized, tree.NewCollectionSpec)
	if err != nil {
		return nil, err
	}
	chained, err := tree.Build(chainedDef, tree.Options{
		Invoker:  execution.Chained{Log: log},
		Chained:  true,
		Context:  cell,
		Fallback: defaults,
		Count:    props.CountElements,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	working, err := definition.Rescope(normalized, tree.NewCollectionSpec)
	if err != nil {
		return nil, err
	}
	working[tree.ChainedKey] = &tree.Hidden{Resolve: func() *tree.Node { return chained }}

	root, err := tree.Build(working, tree.Options{
		Assemble: withDefaults(defaults),
		Invoker:  execution.Immediate{},
		Context:  cell,
		Count:    props.CountElements,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	if !s.untracked {
		root.Tree().MetaOf(root).Definition = normalized
	}
	p := &Page{Node: root, def: normalized, cell: cell}
	if s.hasContext {
		p.SetContext(s.context)
	}
	root.Tree().Logger().WithField("tracked", !s.untracked).Debug("page object created")
	return p, nil
}

// CreateAt builds a page object that can visit path, as with Visitable.
func CreateAt(path string, def api.Definition, opts ...Option) (*Page, error) {
	withVisit := maps.Clone(def)
	if withVisit == nil {
		withVisit = api.Definition{}
	}
	withVisit["visit"] = props.Visitable(path)
	return Create(withVisit, opts...)
}

// withDefaults adds the default leaves a definition does not override.
func withDefaults(defaults api.Definition) tree.Assembler {
	return func(t *tree.Tree, n *tree.Node, def api.Definition) error {
		merged := make(api.Definition, len(defaults)+len(def))
		maps.Copy(merged, defaults)
		maps.Copy(merged, def)
		return t.Default(n, merged)
	}
}

// Extend returns a new definition: the page's definition deep-merged with
// overrides. Built page objects in overrides contribute their definitions.
// Neither the page nor overrides are modified.
func (p *Page) Extend(overrides api.Definition) api.Definition {
	return definition.Merge(p.def, definition.Normalize(overrides))
}

// Definition returns a copy of the definition the page was built from.
func (p *Page) Definition() api.Definition {
	return api.Clone(p.def)
}

// SetContext sets the test context of the page and of its chained tree.
func (p *Page) SetContext(testContext any) {
	p.cell.Store(testContext)
}

// RemoveContext detaches the test context.
func (p *Page) RemoveContext() {
	p.cell.Store(nil)
}

// Render replaces the document of the test context with html.
func (p *Page) Render(ctx context.Context, html string) error {
	r, ok := p.Context().(dom.Renderer)
	if !ok {
		return fmt.Errorf("%w: %T cannot render", dom.ErrNoContext, p.Context())
	}
	return r.Render(ctx, html)
}

// Chained returns the root of the chained tree.
func (p *Page) Chained() *tree.Node {
	return p.Mirror()
}
