// Package definition transforms page object definitions.
//
// Every function returns a new mapping and leaves its inputs untouched.
// Leaf properties are shared between input and output.
package definition

import "github.com/agentic-research/pagetree/api"

// Normalize replaces every built page object in def with a copy of the
// definition it was built from, so the result has no dependency on live objects.
// Collection descriptors are left as they are; they normalize their item at authoring time.
func Normalize(def api.Definition) api.Definition {
	if def == nil {
		return api.Definition{}
	}
	out := make(api.Definition, len(def))
	for key, value := range def {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case *api.Collection:
		return v
	case api.Composable:
		if stored, ok := v.StoredDefinition(); ok {
			return stored
		}
		return v
	}
	if nested, ok := api.AsDefinition(value); ok {
		return Normalize(nested)
	}
	return value
}

// Item resolves the item of a collection descriptor: a built page object
// contributes its stored definition, a definition is normalized.
// Anything else yields an empty item.
func Item(item any) api.Definition {
	switch v := normalizeValue(item).(type) {
	case api.Definition:
		return v
	case map[string]any:
		return api.Definition(v)
	default:
		return api.Definition{}
	}
}
