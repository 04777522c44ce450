package props

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/agentic-research/pagetree/internal/tree"
)

// Params are the dynamic segments and query parameters of a visit.
type Params map[string]any

// Visitable navigates to path. Dynamic segments (":user_id") are filled from
// the Params argument; leftover params become the query string.
func Visitable(path string) tree.Action {
	return ActionFunc(func(ctx context.Context, n *tree.Node, args ...any) error {
		var params Params
		if len(args) > 0 {
			switch p := args[0].(type) {
			case Params:
				params = p
			case map[string]any:
				params = p
			case nil:
			default:
				return fmt.Errorf("visit expects Params, got %T", args[0])
			}
		}
		u, err := BuildURL(path, params)
		if err != nil {
			return err
		}
		d, err := driver(n)
		if err != nil {
			return err
		}
		return d.Visit(ctx, u)
	})
}

// BuildURL fills the dynamic segments of path from params and appends the
// remaining params as a sorted query string.
func BuildURL(path string, params Params) (string, error) {
	used := make(map[string]bool)
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok {
			continue
		}
		v, ok := params[name]
		if !ok {
			return "", fmt.Errorf("Missing parameter for '%s'", name) //nolint:staticcheck
		}
		segments[i] = url.PathEscape(fmt.Sprint(v))
		used[name] = true
	}

	out := strings.Join(segments, "/")
	q := url.Values{}
	for k, v := range params {
		if !used[k] {
			q.Set(k, fmt.Sprint(v))
		}
	}
	if len(q) > 0 {
		out += "?" + q.Encode()
	}
	return out, nil
}
