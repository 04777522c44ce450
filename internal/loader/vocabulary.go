// Package loader reads page object definitions from JSON, YAML and HCL
// sources. All three formats share one vocabulary: nested objects are nodes,
// objects carrying a "$kind" directive are leaves, scalars are plain values.
//
//	{
//	  "scope": ".users",
//	  "title": {"$text": "h1"},
//	  "rows": {"$collection": "tr", "item": {"name": {"$text": "td", "at": 0}}}
//	}
package loader

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/props"
	"github.com/agentic-research/pagetree/page"
)

// ErrVocabulary reports a source that does not follow the definition vocabulary.
var ErrVocabulary = errors.New("invalid definition")

type leafFactory func(target string, args map[string]any, opts []props.Option) (any, error)

var leaves = map[string]leafFactory{
	"text":  func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Text(sel, o...), nil },
	"value": func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Value(sel, o...), nil },
	"attribute": func(sel string, a map[string]any, o []props.Option) (any, error) {
		name, err := requireString(a, "name")
		return props.Attribute(name, sel, o...), err
	},
	"hasClass": func(sel string, a map[string]any, o []props.Option) (any, error) {
		class, err := requireString(a, "class")
		return props.HasClass(class, sel, o...), err
	},
	"isVisible":   func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.IsVisible(sel, o...), nil },
	"isHidden":    func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.IsHidden(sel, o...), nil },
	"isPresent":   func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.IsPresent(sel, o...), nil },
	"contains":    func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Contains(sel, o...), nil },
	"count":       func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Count(sel, o...), nil },
	"clickable":   func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Clickable(sel, o...), nil },
	"clickOnText": func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.ClickOnText(sel, o...), nil },
	"fillable":    func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Fillable(sel, o...), nil },
	"selectable":  func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Selectable(sel, o...), nil },
	"focusable":   func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Focusable(sel, o...), nil },
	"blurrable":   func(sel string, _ map[string]any, o []props.Option) (any, error) { return props.Blurrable(sel, o...), nil },
	"visitable":   func(path string, _ map[string]any, _ []props.Option) (any, error) { return props.Visitable(path), nil },
}

// Kinds lists the leaf kinds the vocabulary understands, plus "collection".
func Kinds() []string {
	out := make([]string, 0, len(leaves)+1)
	for k := range leaves {
		out = append(out, k)
	}
	out = append(out, "collection")
	slices.Sort(out)
	return out
}

// Build turns a decoded source document into a definition.
func Build(raw map[string]any) (api.Definition, error) {
	return buildNode(raw, "")
}

func buildNode(raw map[string]any, path string) (api.Definition, error) {
	def := make(api.Definition, len(raw))
	for key, value := range raw {
		v, err := buildValue(value, join(path, key))
		if err != nil {
			return nil, err
		}
		def[key] = v
	}
	return def, nil
}

func buildValue(value any, path string) (any, error) {
	m, ok := asMap(value)
	if !ok {
		return normalizeScalar(value), nil
	}
	kind, target, ok, err := directive(m, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return buildNode(m, path)
	}
	if kind == "collection" {
		return buildCollection(m, target, path)
	}

	factory := leaves[kind]
	opts, err := leafOptions(m, path)
	if err != nil {
		return nil, err
	}
	leaf, err := factory(target, m, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVocabulary, path, err)
	}
	return leaf, nil
}

func buildCollection(m map[string]any, scope, path string) (any, error) {
	var item api.Definition
	if raw, ok := m["item"]; ok {
		im, ok := asMap(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s.item must be an object", ErrVocabulary, path)
		}
		var err error
		if item, err = buildNode(im, path+".item"); err != nil {
			return nil, err
		}
	}
	var opts []page.CollectionOption
	if b, _ := m["resetScope"].(bool); b {
		opts = append(opts, page.ItemsFromRoot())
	}
	if s, _ := m["testContainer"].(string); s != "" {
		opts = append(opts, page.ItemsIn(s))
	}
	return page.Collection(scope, item, opts...), nil
}

// directive finds the single "$kind" key of a leaf object.
func directive(m map[string]any, path string) (kind, target string, ok bool, err error) {
	for k, v := range m {
		name, isDirective := strings.CutPrefix(k, "$")
		if !isDirective {
			continue
		}
		if ok {
			return "", "", false, fmt.Errorf("%w: %s has more than one directive", ErrVocabulary, path)
		}
		if _, known := leaves[name]; !known && name != "collection" {
			return "", "", false, fmt.Errorf("%w: %s: unknown kind %q", ErrVocabulary, path, name)
		}
		s, isString := v.(string)
		if !isString {
			return "", "", false, fmt.Errorf("%w: %s: %s must be a string", ErrVocabulary, path, k)
		}
		kind, target, ok = name, s, true
	}
	return kind, target, ok, nil
}

func leafOptions(m map[string]any, path string) ([]props.Option, error) {
	var opts []props.Option
	for k, v := range m {
		switch k {
		case "at":
			i, ok := normalizeScalar(v).(int64)
			if !ok || i < 0 || i > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %s.at must be a non-negative integer", ErrVocabulary, path)
			}
			opts = append(opts, props.At(int(i)))
		case "multiple":
			if b, _ := v.(bool); b {
				opts = append(opts, props.Multiple())
			}
		case "resetScope":
			if b, _ := v.(bool); b {
				opts = append(opts, props.ResetScope())
			}
		case "raw":
			if b, _ := v.(bool); b {
				opts = append(opts, props.Raw())
			}
		case "scope":
			s, _ := v.(string)
			opts = append(opts, props.Scope(s))
		case "testContainer":
			s, _ := v.(string)
			opts = append(opts, props.TestContainer(s))
		}
	}
	return opts, nil
}

func requireString(m map[string]any, key string) (string, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%q is required", key)
	}
	return s, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case api.Definition:
		return m, true
	}
	return nil, false
}

// normalizeScalar maps the number types of the decoders onto int64 and float64.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
	}
	return v
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
