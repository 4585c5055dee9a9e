package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/ui"
)

// watchState re-runs render whenever file changes under the workspace state
// directory, until the command context is cancelled or the user interrupts.
func watchState(cmd *cobra.Command, root, file string, render func() error) error {
	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	fmt.Fprintln(cmd.ErrOrStderr(), ui.StyleSubtle.Render("Watching "+file+" for changes (Ctrl+C to stop)"))
	return state.Watch(ctx, root, func(changed string) {
		if changed != file {
			return
		}
		if err := render(); err != nil {
			slog.Warn("render after change failed", "file", changed, "error", err)
		}
	})
}
