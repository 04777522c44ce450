package cmd

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/pagetree/internal/pagefs"
	"github.com/agentic-research/pagetree/internal/props"
)

var snapshotAll bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <definition|@name> <dir>",
	Short: "Write the current values of a page object to a directory",
	Long: `Evaluates every query of the page object and writes the results as a
directory tree: nodes and collection items become directories, queries
and plain values become files, and each directory gets a _scope file
with its resolved locator.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, closeFn, err := openPage(ctx, args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		var opts []pagefs.Option
		if !snapshotAll {
			for k := range props.Defaults() {
				opts = append(opts, pagefs.Exclude(k))
			}
		}
		out, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		if err := pagefs.New(ctx, p.Node, opts...).Export(osfs.New(out), "/"); err != nil {
			return err
		}
		log.WithField("dir", out).Info("snapshot written")
		return nil
	},
}

func init() {
	addPageFlags(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotAll, "all", false, "Include the default properties every node carries")
}
