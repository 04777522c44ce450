package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/pagetree/internal/loader"
	"github.com/agentic-research/pagetree/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage named definitions",
}

var registryPutCmd = &cobra.Command{
	Use:   "put <name> <file>",
	Short: "Store a definition file under a name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := loader.FormatOf(args[1])
		if err != nil {
			return err
		}
		src, err := readFile(args[1])
		if err != nil {
			return err
		}
		return withRegistry(func(reg *registry.Registry) error {
			if err := reg.Put(cmd.Context(), args[0], format, src); err != nil {
				return err
			}
			log.WithField("name", args[0]).Info("definition stored")
			return nil
		})
	},
}

var registryGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a stored definition source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(reg *registry.Registry) error {
			e, err := reg.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(e.Source)
			return err
		})
	},
}

var registryListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored definitions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(reg *registry.Registry) error {
			entries, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Format, e.Updated.Format(time.RFC3339))
			}
			return w.Flush()
		})
	},
}

var registryRemoveCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"remove"},
	Short:   "Delete a stored definition",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(reg *registry.Registry) error {
			return reg.Delete(cmd.Context(), args[0])
		})
	},
}

func init() {
	registryCmd.AddCommand(registryPutCmd, registryGetCmd, registryListCmd, registryRemoveCmd)
}

func withRegistry(fn func(reg *registry.Registry) error) error {
	if err := hostFS.MkdirAll(registryDir(), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()
	return fn(reg)
}
