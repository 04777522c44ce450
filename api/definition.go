package api

// Definition is the declarative description of a page object.
// It maps property names to nested definitions, leaf properties,
// collection descriptors, built page objects or plain values.
// Definitions are treated as immutable: every transformation returns a new mapping.
type Definition map[string]any

// Reserved definition keys.
const (
	// KeyScope narrows the query scope of a node.
	KeyScope = "scope"
	// KeyResetScope discards the inherited scope when true.
	KeyResetScope = "resetScope"
	// KeyTestContainer replaces the element queries start from.
	KeyTestContainer = "testContainer"
	// KeyContext carries a test context. It is extracted at create time and never built.
	KeyContext = "context"
)

// Composable is implemented by built page objects.
// StoredDefinition reports the definition the object was built from;
// only the root of a tracked page object has one. Implementations return a
// copy, so callers may modify the result.
type Composable interface {
	StoredDefinition() (Definition, bool)
}

// CollectionOptions apply to the item scope of a collection.
type CollectionOptions struct {
	// ResetScope resolves the item scope from the query root instead of the enclosing node.
	ResetScope bool
	// TestContainer replaces the query root for items.
	TestContainer string
}

// Collection is an inert descriptor for a repeatable item sub-tree.
// It is materialized into a fresh collection on every build.
type Collection struct {
	// Scope matches the item elements within the enclosing node.
	Scope string
	// Item is the definition built once per matched element.
	Item Definition
	// Options apply to the item scope.
	Options CollectionOptions
}

// AsDefinition reports whether v is a nested definition.
// Both Definition and plain map[string]any values qualify.
func AsDefinition(v any) (Definition, bool) {
	switch d := v.(type) {
	case Definition:
		return d, true
	case map[string]any:
		return Definition(d), true
	default:
		return nil, false
	}
}

// Clone deep-copies the nested mappings of def. Leaves are shared.
func Clone(def Definition) Definition {
	if def == nil {
		return nil
	}
	out := make(Definition, len(def))
	for k, v := range def {
		if nested, ok := AsDefinition(v); ok {
			out[k] = Clone(nested)
			continue
		}
		out[k] = v
	}
	return out
}
