package page

import (
	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/definition"
	"github.com/agentic-research/pagetree/internal/props"
)

// Leaf properties. Each takes a selector relative to the node it is declared
// on; an empty selector targets the node's own scope.
var (
	Text        = props.Text
	Attribute   = props.Attribute
	Value       = props.Value
	HasClass    = props.HasClass
	IsVisible   = props.IsVisible
	IsHidden    = props.IsHidden
	IsPresent   = props.IsPresent
	Contains    = props.Contains
	Count       = props.Count
	Clickable   = props.Clickable
	ClickOnText = props.ClickOnText
	Fillable    = props.Fillable
	Selectable  = props.Selectable
	Focusable   = props.Focusable
	Blurrable   = props.Blurrable
	Visitable   = props.Visitable
)

// Leaf options.
var (
	At            = props.At
	Multiple      = props.Multiple
	Scope         = props.Scope
	ResetScope    = props.ResetScope
	TestContainer = props.TestContainer
	Raw           = props.Raw
)

// LeafOption tunes how a leaf locates its elements.
type LeafOption = props.Option

// Params fills the dynamic segments and query string of a visit.
type Params = props.Params

// CollectionOption configures Collection.
type CollectionOption func(*api.CollectionOptions)

// ItemsFromRoot resolves the item scope from the query root instead of the
// enclosing node.
func ItemsFromRoot() CollectionOption {
	return func(o *api.CollectionOptions) { o.ResetScope = true }
}

// ItemsIn resolves the item scope within container.
func ItemsIn(container string) CollectionOption {
	return func(o *api.CollectionOptions) { o.TestContainer = container }
}

// Collection declares a list of items matched by scope, each built from item.
// item is a definition or a built page object. The items are built lazily,
// once per index, every time the enclosing page object is built.
func Collection(scope string, item any, opts ...CollectionOption) *api.Collection {
	c := &api.Collection{Scope: scope, Item: definition.Item(item)}
	for _, opt := range opts {
		opt(&c.Options)
	}
	return c
}
