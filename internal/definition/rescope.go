package definition

import (
	"errors"
	"fmt"

	"github.com/agentic-research/pagetree/api"
)

// ErrNotCollection reports a value tagged as a collection that cannot be rescoped.
var ErrNotCollection = errors.New("value is not a collection descriptor")

// CollectionFactory materializes a collection descriptor with an already rescoped item.
type CollectionFactory func(c *api.Collection, item api.Definition) any

// Rescope returns a working copy of def in which every collection descriptor is
// replaced by a fresh value from factory. Nested collections are rescoped depth-first.
// The input, typically a stored definition, keeps its inert descriptors.
func Rescope(def api.Definition, factory CollectionFactory) (api.Definition, error) {
	out := make(api.Definition, len(def))
	for key, value := range def {
		rescoped, err := rescopeValue(value, factory)
		if err != nil {
			return nil, fmt.Errorf("rescope %q: %w", key, err)
		}
		out[key] = rescoped
	}
	return out, nil
}

func rescopeValue(value any, factory CollectionFactory) (any, error) {
	if c, ok := value.(*api.Collection); ok {
		if c == nil {
			return nil, ErrNotCollection
		}
		item, err := Rescope(c.Item, factory)
		if err != nil {
			return nil, err
		}
		return factory(c, item), nil
	}
	if nested, ok := api.AsDefinition(value); ok {
		return Rescope(nested, factory)
	}
	return value, nil
}
