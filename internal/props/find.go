package props

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/scope"
	"github.com/agentic-research/pagetree/internal/tree"
)

var (
	// ErrElementNotFound reports a query that matched nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrMultipleElements reports a single-element query that matched several.
	ErrMultipleElements = errors.New("matched more than one element; use Multiple() if this is expected")
)

// QueryError ties a lookup failure to the selector that produced it.
type QueryError struct {
	Selector string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v (selector %q)", e.Err, e.Selector)
}

func (e *QueryError) Unwrap() error { return e.Err }

func driver(n *tree.Node) (dom.Driver, error) {
	return dom.From(n.Context())
}

func query(ctx context.Context, n *tree.Node, loc scope.Locator) ([]dom.Element, error) {
	d, err := driver(n)
	if err != nil {
		return nil, err
	}
	return d.Query(ctx, loc)
}

// findAll returns the matched elements, requiring at least one and, unless
// Multiple is set, at most one.
func (t target) findAll(ctx context.Context, n *tree.Node) ([]dom.Element, error) {
	loc := t.locator(n)
	els, err := query(ctx, n, loc)
	if err != nil {
		return nil, err
	}
	switch {
	case len(els) == 0:
		return nil, &QueryError{Selector: describe(loc), Err: ErrElementNotFound}
	case len(els) > 1 && !t.opts.multiple:
		return nil, &QueryError{Selector: describe(loc), Err: ErrMultipleElements}
	}
	return els, nil
}

// each maps fn over the matched elements. A single-element target yields
// the bare result, a Multiple target a slice.
func each[R any](ctx context.Context, t target, n *tree.Node, fn func(el dom.Element) (R, error)) (any, error) {
	els, err := t.findAll(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]R, 0, len(els))
	for _, el := range els {
		r, err := fn(el)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if !t.opts.multiple {
		return out[0], nil
	}
	return out, nil
}

func describe(loc scope.Locator) string {
	s := loc.String()
	if loc.Container != "" {
		s = strings.TrimSpace(loc.Container + " " + s)
	}
	if s == "" {
		return ":root"
	}
	return s
}

// CountElements counts the elements loc matches in testContext. It backs
// collection lengths.
func CountElements(ctx context.Context, testContext any, loc scope.Locator) (int, error) {
	d, err := dom.From(testContext)
	if err != nil {
		return 0, err
	}
	els, err := d.Query(ctx, loc)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func normalizeText(s string, raw bool) string {
	if raw {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
