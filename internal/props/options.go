// Package props provides the leaf properties of page objects: scoped DOM
// queries and interactions bound to the node they are declared on.
package props

import (
	"github.com/agentic-research/pagetree/internal/scope"
	"github.com/agentic-research/pagetree/internal/tree"
)

// Options tune how a leaf locates its elements.
type Options struct {
	at            int
	hasAt         bool
	multiple      bool
	scope         string
	resetScope    bool
	testContainer string
	raw           bool
}

// Option configures a leaf.
type Option func(*Options)

// At picks the i-th matched element.
func At(i int) Option {
	return func(o *Options) { o.at, o.hasAt = i, true }
}

// Multiple allows, and returns, every matched element.
func Multiple() Option {
	return func(o *Options) { o.multiple = true }
}

// Scope narrows the search to sel within the node's scope.
func Scope(sel string) Option {
	return func(o *Options) { o.scope = sel }
}

// ResetScope searches from the query root instead of the node's scope.
func ResetScope() Option {
	return func(o *Options) { o.resetScope = true }
}

// TestContainer searches within container instead of the default query root.
func TestContainer(container string) Option {
	return func(o *Options) { o.testContainer = container }
}

// Raw keeps text exactly as rendered instead of collapsing whitespace.
func Raw() Option {
	return func(o *Options) { o.raw = true }
}

func newOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// target is what a leaf looks for, relative to the node it is bound to.
type target struct {
	selector string
	opts     Options
}

func newTarget(selector string, opts []Option) target {
	return target{selector: selector, opts: newOptions(opts)}
}

func (t target) locator(n *tree.Node) scope.Locator {
	loc := scope.Resolve(n.Locator(), t.opts.scope, t.opts.resetScope, t.opts.testContainer).Narrow(t.selector)
	if t.opts.hasAt {
		loc = loc.At(t.opts.at)
	}
	return loc
}
