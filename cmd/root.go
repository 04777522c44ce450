package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentic-research/pagetree/internal/config"
	"github.com/agentic-research/pagetree/internal/logging"
)

var (
	cfg config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "pagetree",
	Short:         "Build and inspect declarative page objects",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.Load(nil)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("log-level") {
			cfg.LogLevel = env.LogLevel
		}
		if !flags.Changed("log-format") {
			cfg.LogFormat = env.LogFormat
		}
		if !flags.Changed("registry") {
			cfg.Registry = env.Registry
		}
		if !flags.Changed("browser-url") {
			cfg.BrowserURL = env.BrowserURL
		}
		cfg.Headless = env.Headless
		cfg.NavTimeout = env.NavTimeout
		cfg.SettleTimeout = env.SettleTimeout

		log, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		return err
	},
}

func init() {
	defaults := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFormat, "log-format", defaults.LogFormat, "Log format (text, json)")
	pf.StringVar(&cfg.Registry, "registry", defaults.Registry, "Path to the definition registry database")
	pf.StringVar(&cfg.BrowserURL, "browser-url", "", "DevTools URL of a running browser")

	rootCmd.AddCommand(queryCmd, treeCmd, snapshotCmd, registryCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
