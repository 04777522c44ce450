package definition

import "github.com/agentic-research/pagetree/api"

// Merge deep-merges overrides into base. Where both sides hold a nested
// definition the merge recurses; otherwise the override wins outright.
// Keys present on one side only pass through. The result shares no mapping
// with either input.
func Merge(base, overrides api.Definition) api.Definition {
	out := api.Clone(base)
	if out == nil {
		out = api.Definition{}
	}
	for key, value := range overrides {
		over, overNested := api.AsDefinition(value)
		cur, curNested := api.AsDefinition(out[key])
		switch {
		case overNested && curNested:
			out[key] = Merge(cur, over)
		case overNested:
			out[key] = api.Clone(over)
		default:
			out[key] = value
		}
	}
	return out
}
