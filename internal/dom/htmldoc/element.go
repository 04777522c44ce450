package htmldoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type element struct {
	doc *Document
	sel *goquery.Selection
}

func (e *element) Text(context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.sel.Text(), nil
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Value(context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	switch tag(e.sel) {
	case atom.Input, atom.Option:
		return optionValue(e.sel), nil
	case atom.Textarea:
		return e.sel.Text(), nil
	case atom.Select:
		selected := e.sel.Find("option[selected]")
		if selected.Length() == 0 {
			selected = e.sel.Find("option")
		}
		if selected.Length() == 0 {
			return "", nil
		}
		return optionValue(selected.First()), nil
	}
	return "", nil
}

func (e *element) Visible(context.Context) (bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	hidden := false
	e.sel.Parents().AddSelection(e.sel).Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) {
			hidden = true
		}
	})
	return !hidden, nil
}

func (e *element) Click(context.Context) error {
	e.doc.mu.Lock()
	if _, disabled := e.sel.Attr("disabled"); disabled {
		e.doc.mu.Unlock()
		return fmt.Errorf("click %s: element is disabled", describe(e.sel))
	}
	e.doc.record("click", e.sel, "")
	handlers := e.doc.clickHandlers(e.sel)
	e.doc.mu.Unlock()

	for _, h := range handlers {
		h(e.doc, e.sel)
	}
	return nil
}

func (e *element) Fill(_ context.Context, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	switch tag(e.sel) {
	case atom.Input:
		e.sel.SetAttr("value", value)
	case atom.Textarea:
		e.sel.SetText(value)
	case atom.Select:
		options := e.sel.Find("option")
		match := options.FilterFunction(func(_ int, o *goquery.Selection) bool {
			return optionValue(o) == value || strings.TrimSpace(o.Text()) == value
		})
		if match.Length() == 0 {
			return fmt.Errorf("select %s: no option %q", describe(e.sel), value)
		}
		options.RemoveAttr("selected")
		match.First().SetAttr("selected", "selected")
	default:
		if _, ok := e.sel.Attr("contenteditable"); !ok {
			return fmt.Errorf("fill %s: element is not fillable", describe(e.sel))
		}
		e.sel.SetText(value)
	}
	e.doc.record("input", e.sel, value)
	e.doc.record("change", e.sel, value)
	return nil
}

func (e *element) Focus(context.Context) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.record("focus", e.sel, "")
	return nil
}

func (e *element) Blur(context.Context) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.record("blur", e.sel, "")
	return nil
}

// tag returns the element type of the first node in s.
func tag(s *goquery.Selection) atom.Atom {
	if len(s.Nodes) == 0 || s.Nodes[0].Type != html.ElementNode {
		return 0
	}
	return s.Nodes[0].DataAtom
}

func optionValue(s *goquery.Selection) string {
	if v, ok := s.Attr("value"); ok {
		return v
	}
	if tag(s) == atom.Option {
		return strings.TrimSpace(s.Text())
	}
	return ""
}

func isHidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if tag(s) == atom.Input {
		if typ, _ := s.Attr("type"); typ == "hidden" {
			return true
		}
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// describe renders a short CSS-like name such as "button#save.primary".
func describe(s *goquery.Selection) string {
	var b strings.Builder
	b.WriteString(goquery.NodeName(s))
	if id, ok := s.Attr("id"); ok && id != "" {
		b.WriteString("#" + id)
	}
	if class, ok := s.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			b.WriteString("." + c)
		}
	}
	return b.String()
}
