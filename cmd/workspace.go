package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/afero"
)

// workspaceFs backs every command that touches the workspace.
var workspaceFs = afero.NewOsFs()

// workspaceDir resolves dir to an absolute path and checks it is an existing directory.
func workspaceDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory %s: %w", dir, err)
	}
	ok, err := afero.DirExists(workspaceFs, abs)
	if err != nil || !ok {
		return "", fmt.Errorf("directory '%s' does not exist", dir)
	}
	return abs, nil
}

// interruptContext derives a context from parent that is cancelled on Ctrl+C.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}
