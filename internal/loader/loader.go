package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/ohler55/ojg/oj"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/pagetree/api"
)

// Format is a definition source format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	HCL  Format = "hcl"
)

// FormatOf infers the format of a file from its extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".hcl":
		return HCL, nil
	}
	return "", fmt.Errorf("%w: unsupported file type %q", ErrVocabulary, name)
}

// Load reads and builds the definition stored at name in fs.
func Load(fs billy.Filesystem, name string) (api.Definition, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	src, err := util.ReadFile(fs, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	def, err := Parse(format, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return def, nil
}

// Parse builds a definition from src.
func Parse(format Format, src []byte) (api.Definition, error) {
	raw, err := Decode(format, src)
	if err != nil {
		return nil, err
	}
	return Build(raw)
}

// Decode parses src into the generic document form Build consumes.
func Decode(format Format, src []byte) (map[string]any, error) {
	switch format {
	case JSON:
		v, err := oj.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: top level must be an object, got %T", ErrVocabulary, v)
		}
		return m, nil
	case YAML:
		var m map[string]any
		if err := yaml.Unmarshal(src, &m); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if m == nil {
			m = map[string]any{}
		}
		return m, nil
	case HCL:
		return decodeHCL(src)
	}
	return nil, fmt.Errorf("%w: unknown format %q", ErrVocabulary, format)
}

// decodeHCL maps HCL onto the document form:
//
//	scope = ".users"
//	text "title" { selector = "h1" }
//	node "form" { fillable "name" { selector = "input" } }
//	collection "rows" {
//	  selector = "tr"
//	  item { text "name" { selector = "td" } }
//	}
//	visitable "visit" { path = "/users/:id" }
func decodeHCL(src []byte) (map[string]any, error) {
	file, diags := hclsyntax.ParseConfig(src, "definition.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse hcl: %s", diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("parse hcl: unexpected body %T", file.Body)
	}
	return hclBody(body)
}

func hclBody(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any, len(body.Attributes)+len(body.Blocks))
	for name, attr := range body.Attributes {
		v, err := hclValue(attr)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}

	for _, block := range body.Blocks {
		if block.Type == "item" {
			continue
		}
		if len(block.Labels) != 1 {
			return nil, fmt.Errorf("%w: %s block at %s needs exactly one label", ErrVocabulary, block.Type, block.TypeRange)
		}
		name := block.Labels[0]
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: %q defined twice", ErrVocabulary, name)
		}
		inner, err := hclBody(block.Body)
		if err != nil {
			return nil, err
		}

		switch block.Type {
		case "node":
			out[name] = inner
		case "collection":
			item, err := hclItem(block.Body)
			if err != nil {
				return nil, err
			}
			inner["$collection"] = inner["selector"]
			delete(inner, "selector")
			if item != nil {
				inner["item"] = item
			}
			out[name] = inner
		case "visitable":
			inner["$visitable"] = inner["path"]
			delete(inner, "path")
			out[name] = inner
		default:
			sel, ok := inner["selector"]
			if !ok {
				sel = ""
			}
			inner["$"+block.Type] = sel
			delete(inner, "selector")
			out[name] = inner
		}
	}
	return out, nil
}

func hclItem(body *hclsyntax.Body) (map[string]any, error) {
	for _, b := range body.Blocks {
		if b.Type == "item" {
			return hclBody(b.Body)
		}
	}
	return nil, nil
}

func hclValue(attr *hclsyntax.Attribute) (any, error) {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %s", attr.Name, diags.Error())
	}
	if v.IsNull() {
		return nil, nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s has unsupported type %s", ErrVocabulary, attr.Name, v.Type().FriendlyName())
}
