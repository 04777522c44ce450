// Package config holds the runtime settings of the pagetree CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mstoykov/envconfig"
)

// Config is read from PAGETREE_* environment variables; command line flags
// override it.
type Config struct {
	LogLevel  string `envconfig:"PAGETREE_LOG_LEVEL"`
	LogFormat string `envconfig:"PAGETREE_LOG_FORMAT"`

	// Registry is the SQLite file named definitions are stored in.
	Registry string `envconfig:"PAGETREE_REGISTRY"`

	// BrowserURL attaches to a running browser instead of launching one.
	BrowserURL    string        `envconfig:"PAGETREE_BROWSER_URL"`
	Headless      bool          `envconfig:"PAGETREE_HEADLESS"`
	NavTimeout    time.Duration `envconfig:"PAGETREE_NAV_TIMEOUT"`
	SettleTimeout time.Duration `envconfig:"PAGETREE_SETTLE_TIMEOUT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:      "warn",
		LogFormat:     "text",
		Registry:      defaultRegistry(),
		Headless:      true,
		NavTimeout:    30 * time.Second,
		SettleTimeout: 5 * time.Second,
	}
}

// Load overlays the environment on Default. A nil lookup reads the process
// environment.
func Load(lookup func(key string) (string, bool)) (Config, error) {
	cfg := Default()
	var err error
	if lookup == nil {
		err = envconfig.Process("", &cfg)
	} else {
		err = envconfig.Process("", &cfg, lookup)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func defaultRegistry() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pagetree.db"
	}
	return filepath.Join(dir, "pagetree", "registry.db")
}
