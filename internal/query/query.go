// Package query evaluates property paths against a built page object, e.g.
// "form.name.value", "rows[1].name", "rows.length" or "rows[*].name".
// Paths use JSONPath syntax; the leading "$." is optional.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/pagetree/internal/tree"
)

// ErrPath reports an expression that cannot be applied to a page object.
var ErrPath = errors.New("invalid property path")

// Compile parses expr.
func Compile(expr string) (jp.Expr, error) {
	src := strings.TrimSpace(expr)
	if !strings.HasPrefix(src, "$") {
		src = "$." + src
	}
	x, err := jp.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrPath, expr, err)
	}
	return x, nil
}

// Resolve evaluates expr against root. A path without wildcards yields a
// single value; a path with wildcards yields a []any.
func Resolve(ctx context.Context, root *tree.Node, expr string) (any, error) {
	x, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	current := []any{root}
	fanned := false
	for _, frag := range x {
		next := make([]any, 0, len(current))
		for _, v := range current {
			out, err := step(ctx, v, frag)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", expr, err)
			}
			next = append(next, out...)
		}
		if _, ok := frag.(jp.Wildcard); ok {
			fanned = true
		}
		current = next
	}

	if fanned {
		return current, nil
	}
	if len(current) != 1 {
		return nil, fmt.Errorf("%w: %q matched %d values", ErrPath, expr, len(current))
	}
	return current[0], nil
}

func step(ctx context.Context, v any, frag jp.Frag) ([]any, error) {
	switch f := frag.(type) {
	case jp.Root, jp.Bracket:
		return []any{v}, nil
	case jp.Child:
		return child(ctx, v, string(f))
	case jp.Nth:
		return nth(v, int(f))
	case jp.Wildcard:
		return wildcard(ctx, v)
	}
	return nil, fmt.Errorf("%w: unsupported fragment %T", ErrPath, frag)
}

func child(ctx context.Context, v any, name string) ([]any, error) {
	switch x := v.(type) {
	case *tree.Node:
		out, err := x.Value(ctx, name)
		if err != nil {
			return nil, err
		}
		return []any{out}, nil
	case *tree.Collection:
		if name != "length" {
			return nil, fmt.Errorf("%w: %s has no property %q", ErrPath, x.Path(), name)
		}
		n, err := x.Len(ctx)
		if err != nil {
			return nil, err
		}
		return []any{n}, nil
	}
	return nil, fmt.Errorf("%w: cannot read %q of %T", ErrPath, name, v)
}

func nth(v any, i int) ([]any, error) {
	c, ok := v.(*tree.Collection)
	if !ok {
		return nil, fmt.Errorf("%w: cannot index %T", ErrPath, v)
	}
	item, err := c.ObjectAt(i)
	if err != nil {
		return nil, err
	}
	return []any{item}, nil
}

func wildcard(ctx context.Context, v any) ([]any, error) {
	switch x := v.(type) {
	case *tree.Collection:
		items, err := x.ToArray(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, nil
	case *tree.Node:
		var out []any
		for _, k := range x.Keys() {
			if c := x.Child(k); c != nil {
				out = append(out, c)
			} else if c := x.Collection(k); c != nil {
				out = append(out, c)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot expand %T", ErrPath, v)
}
