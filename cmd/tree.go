package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/pagetree/internal/props"
	"github.com/agentic-research/pagetree/internal/scope"
	"github.com/agentic-research/pagetree/internal/tree"
	"github.com/agentic-research/pagetree/page"
)

var (
	treeAll  bool
	treeWith string
)

var treeCmd = &cobra.Command{
	Use:   "tree <definition|@name>",
	Short: "Print the structure and resolved scopes of a page object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		def, err := loadDefinition(ctx, args[0])
		if err != nil {
			return err
		}
		if treeWith != "" {
			overrides, err := loadDefinition(ctx, treeWith)
			if err != nil {
				return err
			}
			base, err := page.Create(def, page.WithLogger(log))
			if err != nil {
				return err
			}
			def = base.Extend(overrides)
		}
		p, err := page.Create(def, page.WithLogger(log))
		if err != nil {
			return err
		}
		return printTree(cmd.OutOrStdout(), p.Node, treeAll)
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeAll, "all", false, "Include the default properties every node carries")
	treeCmd.Flags().StringVar(&treeWith, "with", "", "Definition whose properties override the loaded one")
}

func printTree(w io.Writer, root *tree.Node, all bool) error {
	var defaults []string
	if !all {
		for k := range props.Defaults() {
			defaults = append(defaults, k)
		}
	}
	var b strings.Builder
	writeNode(&b, root, tree.RootKey, 0, defaults)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, n *tree.Node, label string, depth int, skip []string) {
	fmt.Fprintf(b, "%s%s  %s\n", strings.Repeat("  ", depth), label, describe(n.Locator()))
	writeKeys(b, n, depth+1, skip)
}

func writeKeys(b *strings.Builder, n *tree.Node, depth int, skip []string) {
	indent := strings.Repeat("  ", depth)
	for _, k := range n.Keys() {
		switch {
		case n.Child(k) != nil:
			writeNode(b, n.Child(k), k, depth, skip)
		case n.Collection(k) != nil:
			c := n.Collection(k)
			fmt.Fprintf(b, "%s%s[]  %s\n", indent, k, describe(c.Locator()))
			// the first item stands in for all of them
			if item, err := c.ObjectAt(0); err == nil {
				writeKeys(b, item, depth+1, skip)
			}
		case !slices.Contains(skip, k):
			fmt.Fprintf(b, "%s%s\n", indent, k)
		}
	}
}

func describe(loc scope.Locator) string {
	s := loc.String()
	if loc.IsRoot() {
		s = "(root)"
	}
	if loc.Container != "" {
		s += " in " + loc.Container
	}
	return s
}
