package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/loader"
	"github.com/agentic-research/pagetree/internal/registry"
)

// hostFS resolves absolute paths on the local filesystem.
var hostFS billy.Filesystem = osfs.New("/")

// loadDefinition reads a definition from a file, or from the registry when
// ref has the form "@name".
func loadDefinition(ctx context.Context, ref string) (api.Definition, error) {
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		reg, err := registry.Open(cfg.Registry)
		if err != nil {
			return nil, err
		}
		defer func() { _ = reg.Close() }()

		entry, err := reg.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return entry.Definition()
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return loader.Load(hostFS, abs)
}

func readFile(name string) ([]byte, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	return util.ReadFile(hostFS, abs)
}

func registryDir() string {
	abs, err := filepath.Abs(cfg.Registry)
	if err != nil {
		return filepath.Dir(cfg.Registry)
	}
	return filepath.Dir(abs)
}
