package props

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/tree"
)

// QueryFunc adapts a function to tree.Query.
type QueryFunc func(ctx context.Context, n *tree.Node, args ...any) (any, error)

func (f QueryFunc) Query(ctx context.Context, n *tree.Node, args ...any) (any, error) {
	return f(ctx, n, args...)
}

// Text reads the text of the matched element, whitespace collapsed.
func Text(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		return each(ctx, t, n, func(el dom.Element) (string, error) {
			s, err := el.Text(ctx)
			return normalizeText(s, t.opts.raw), err
		})
	})
}

// Attribute reads an attribute of the matched element. An absent attribute
// reads as nil.
func Attribute(name, selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		return each(ctx, t, n, func(el dom.Element) (any, error) {
			v, ok, err := el.Attribute(ctx, name)
			if err != nil || !ok {
				return nil, err
			}
			return v, nil
		})
	})
}

// Value reads the form value of the matched element.
func Value(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		return each(ctx, t, n, func(el dom.Element) (string, error) {
			return el.Value(ctx)
		})
	})
}

// HasClass reports whether the matched element carries class.
func HasClass(class, selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		return all(ctx, t, n, func(el dom.Element) (bool, error) {
			v, _, err := el.Attribute(ctx, "class")
			return slices.Contains(strings.Fields(v), class), err
		})
	})
}

// IsVisible reports whether the matched element is visible. A missing
// element is an error.
func IsVisible(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		return all(ctx, t, n, func(el dom.Element) (bool, error) {
			return el.Visible(ctx)
		})
	})
}

// IsHidden reports whether the matched element is hidden. A missing element
// counts as hidden.
func IsHidden(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		els, err := query(ctx, n, t.locator(n))
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			return true, nil
		}
		return all(ctx, t, n, func(el dom.Element) (bool, error) {
			visible, err := el.Visible(ctx)
			return !visible, err
		})
	})
}

// IsPresent reports whether the selector matches anything.
func IsPresent(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		loc := t.locator(n)
		els, err := query(ctx, n, loc)
		if err != nil {
			return nil, err
		}
		if len(els) > 1 && !t.opts.multiple {
			return nil, &QueryError{Selector: describe(loc), Err: ErrMultipleElements}
		}
		return len(els) > 0, nil
	})
}

// Contains reports whether the matched element's text contains its argument.
func Contains(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, args ...any) (any, error) {
		needle, err := stringArg(args, 0, "text")
		if err != nil {
			return nil, err
		}
		return all(ctx, t, n, func(el dom.Element) (bool, error) {
			s, err := el.Text(ctx)
			return strings.Contains(normalizeText(s, false), normalizeText(needle, false)), err
		})
	})
}

// Count returns the number of matched elements.
func Count(selector string, opts ...Option) tree.Query {
	t := newTarget(selector, opts)
	return QueryFunc(func(ctx context.Context, n *tree.Node, _ ...any) (any, error) {
		els, err := query(ctx, n, t.locator(n))
		if err != nil {
			return nil, err
		}
		return len(els), nil
	})
}

// all reports whether fn holds for every matched element.
func all(ctx context.Context, t target, n *tree.Node, fn func(el dom.Element) (bool, error)) (any, error) {
	els, err := t.findAll(ctx, n)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		ok, err := fn(el)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func stringArg(args []any, i int, name string) (string, error) {
	if len(args) <= i {
		return "", fmt.Errorf("missing %s argument", name)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(args[i]), nil
}
