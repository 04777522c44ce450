package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/pagetree/internal/dom/htmldoc"
	"github.com/agentic-research/pagetree/internal/dom/roddriver"
	"github.com/agentic-research/pagetree/internal/query"
	"github.com/agentic-research/pagetree/internal/tree"
	"github.com/agentic-research/pagetree/page"
)

var (
	pageHTML    string
	pageURL     string
	pageBrowser bool
	pageWith    string
)

var queryCmd = &cobra.Command{
	Use:   "query <definition|@name> <expr>...",
	Short: "Evaluate path expressions against a page object",
	Long: `Builds the page object and evaluates each expression against it,
printing the results as JSON. Expressions address properties, e.g.
"form.title", "rows[0].name" or "rows[*].name".

The page is an HTML fixture (--html), a URL rendered by a browser
(--url with --browser), or a URL resolved against the fixture.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, closeFn, err := openPage(ctx, args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		return runQueries(ctx, cmd.OutOrStdout(), p.Node, args[1:])
	},
}

func init() {
	addPageFlags(queryCmd)
}

// addPageFlags registers the flags openPage reads.
func addPageFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&pageHTML, "html", "", "HTML fixture file to load")
	flags.StringVar(&pageURL, "url", "", "URL to visit first")
	flags.BoolVar(&pageBrowser, "browser", false, "Use a browser page instead of the fixture")
	flags.StringVar(&pageWith, "with", "", "Definition whose properties override the loaded one")
}

func openPage(ctx context.Context, ref string) (*page.Page, func(), error) {
	def, err := loadDefinition(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	p, err := page.Create(def, page.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	if pageWith != "" {
		overrides, err := loadDefinition(ctx, pageWith)
		if err != nil {
			return nil, nil, err
		}
		if p, err = page.Create(p.Extend(overrides), page.WithLogger(log)); err != nil {
			return nil, nil, err
		}
	}

	if pageBrowser {
		d, err := roddriver.Connect(ctx, roddriver.Config{
			ControlURL:  cfg.BrowserURL,
			Headless:    cfg.Headless,
			NavTimeout:  cfg.NavTimeout,
			IdleTimeout: cfg.SettleTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := d.Close(); err != nil {
				log.WithError(err).Warn("close browser")
			}
		}
		p.SetContext(d)
		if err := load(ctx, p, d.Visit); err != nil {
			closeFn()
			return nil, nil, err
		}
		return p, closeFn, nil
	}

	doc := htmldoc.New(htmldoc.WithLogger(log))
	if pageHTML != "" {
		src, err := readFile(pageHTML)
		if err != nil {
			return nil, nil, err
		}
		if err := doc.Render(ctx, string(src)); err != nil {
			return nil, nil, err
		}
	}
	p.SetContext(doc)
	if err := load(ctx, p, doc.Visit); err != nil {
		return nil, nil, err
	}
	return p, func() {}, nil
}

// load visits --url, or the definition's own visit action when it has one and
// no fixture was given.
func load(ctx context.Context, p *page.Page, visit func(context.Context, string) error) error {
	switch {
	case pageURL != "":
		return visit(ctx, pageURL)
	case pageHTML == "" && p.Has("visit") && pageBrowser:
		return p.Do(ctx, "visit").Err()
	}
	return nil
}

func runQueries(ctx context.Context, w io.Writer, root *tree.Node, exprs []string) error {
	for _, expr := range exprs {
		v, err := query.Resolve(ctx, root, expr)
		if err != nil {
			return err
		}
		if len(exprs) > 1 {
			if _, err := fmt.Fprintf(w, "%s: ", expr); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, oj.JSON(printable(ctx, v), &ojg.Options{Sort: true})); err != nil {
			return err
		}
	}
	return nil
}

// printable replaces nodes and collections with a description of where they
// point.
func printable(ctx context.Context, v any) any {
	switch v := v.(type) {
	case *tree.Node:
		return map[string]any{"path": v.Path(), "scope": v.Locator().String()}
	case *tree.Collection:
		out := map[string]any{"path": v.Path(), "scope": v.Locator().String()}
		if n, err := v.Len(ctx); err == nil {
			out["length"] = n
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = printable(ctx, e)
		}
		return out
	}
	return v
}
