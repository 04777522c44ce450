package roddriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type element struct {
	el *rod.Element
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Value(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.value === undefined ? "" : String(this.value)`)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	tag, err := el.Eval(`() => this.tagName`)
	if err != nil {
		return err
	}
	if strings.EqualFold(tag.Value.String(), "select") {
		if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
			return fmt.Errorf("select %q: %w", value, err)
		}
		return nil
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (e *element) Focus(ctx context.Context) error {
	return e.el.Context(ctx).Focus()
}

func (e *element) Blur(ctx context.Context) error {
	return e.el.Context(ctx).Blur()
}
