package props

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/scope"
	"github.com/agentic-research/pagetree/internal/tree"
)

// ActionFunc adapts a function to tree.Action.
type ActionFunc func(ctx context.Context, n *tree.Node, args ...any) error

func (f ActionFunc) Act(ctx context.Context, n *tree.Node, args ...any) error {
	return f(ctx, n, args...)
}

// Clickable clicks the matched element.
func Clickable(selector string, opts ...Option) tree.Action {
	t := newTarget(selector, opts)
	return ActionFunc(func(ctx context.Context, n *tree.Node, _ ...any) error {
		return forEach(ctx, t, n, func(el dom.Element) error { return el.Click(ctx) })
	})
}

// ClickOnText clicks the innermost element containing its argument, looking
// first among the descendants of the matched element and then at the matched
// element itself.
func ClickOnText(selector string, opts ...Option) tree.Action {
	t := newTarget(selector, opts)
	return ActionFunc(func(ctx context.Context, n *tree.Node, args ...any) error {
		text, err := stringArg(args, 0, "text")
		if err != nil {
			return err
		}
		base := t.locator(n)
		for _, loc := range []scope.Locator{base.Narrow("*"), base} {
			els, err := query(ctx, n, loc)
			if err != nil {
				return err
			}
			el, err := lastContaining(ctx, els, text)
			if err != nil {
				return err
			}
			if el != nil {
				return el.Click(ctx)
			}
		}
		return &QueryError{Selector: fmt.Sprintf("%s :contains(%q)", describe(base), text), Err: ErrElementNotFound}
	})
}

func lastContaining(ctx context.Context, els []dom.Element, text string) (dom.Element, error) {
	want := normalizeText(text, false)
	for i := len(els) - 1; i >= 0; i-- {
		s, err := els[i].Text(ctx)
		if err != nil {
			return nil, err
		}
		if strings.Contains(normalizeText(s, false), want) {
			return els[i], nil
		}
	}
	return nil, nil
}

// Fillable fills the matched element. Called with one argument it fills the
// element itself; with two, the first is a clue naming a control inside it by
// data-test, aria-label, placeholder, name or id.
func Fillable(selector string, opts ...Option) tree.Action {
	t := newTarget(selector, opts)
	return ActionFunc(func(ctx context.Context, n *tree.Node, args ...any) error {
		target := t
		var value string
		var err error
		switch len(args) {
		case 1:
			value, err = stringArg(args, 0, "value")
		case 2:
			var clue string
			if clue, err = stringArg(args, 0, "clue"); err == nil {
				value, err = stringArg(args, 1, "value")
				target = t.withClue(clue)
			}
		default:
			err = fmt.Errorf("fill expects a value or a clue and a value, got %d arguments", len(args))
		}
		if err != nil {
			return err
		}
		return forEach(ctx, target, n, func(el dom.Element) error { return el.Fill(ctx, value) })
	})
}

// Selectable picks the option matching its argument, by value or label.
func Selectable(selector string, opts ...Option) tree.Action {
	return Fillable(selector, opts...)
}

// Focusable focuses the matched element.
func Focusable(selector string, opts ...Option) tree.Action {
	t := newTarget(selector, opts)
	return ActionFunc(func(ctx context.Context, n *tree.Node, _ ...any) error {
		return forEach(ctx, t, n, func(el dom.Element) error { return el.Focus(ctx) })
	})
}

// Blurrable blurs the matched element.
func Blurrable(selector string, opts ...Option) tree.Action {
	t := newTarget(selector, opts)
	return ActionFunc(func(ctx context.Context, n *tree.Node, _ ...any) error {
		return forEach(ctx, t, n, func(el dom.Element) error { return el.Blur(ctx) })
	})
}

func (t target) withClue(clue string) target {
	q := fmt.Sprintf("%q", clue)
	parts := []string{
		"[data-test=" + q + "]",
		"[aria-label=" + q + "]",
		"[placeholder=" + q + "]",
		"[name=" + q + "]",
	}
	if isIdent(clue) {
		parts = append(parts, "#"+clue)
	}
	sel := strings.Join(parts, ", ")
	if t.selector != "" {
		sel = t.selector + " " + strings.Join(parts, ", "+t.selector+" ")
	}
	return target{selector: sel, opts: t.opts}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '-' || r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func forEach(ctx context.Context, t target, n *tree.Node, fn func(el dom.Element) error) error {
	els, err := t.findAll(ctx, n)
	if err != nil {
		return err
	}
	for _, el := range els {
		if err := fn(el); err != nil {
			return err
		}
	}
	return nil
}
