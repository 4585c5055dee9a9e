/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/ui"
)

var (
	statusDirectory string
	statusWatch     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the persisted situation summary",
	Long: `Print the situation summary stored in .gpt_worker/state_summary.md.

With --watch the summary is printed again every time a running agent
rewrites it. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusDirectory, "directory", "d", ".", "workspace directory")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "reprint when the summary changes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := workspaceDir(statusDirectory)
	if err != nil {
		return err
	}

	render := func() error { return printSummary(cmd.OutOrStdout(), root) }
	if err := render(); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}
	return watchState(cmd, root, state.SummaryFile, render)
}

func printSummary(out io.Writer, root string) error {
	summary, err := state.ReadSummary(workspaceFs, root)
	if errors.Is(err, state.ErrNotExist) {
		fmt.Fprintln(out, "State summary does not exist")
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(summary) == "" {
		fmt.Fprintln(out, "State summary is empty")
		return nil
	}
	fmt.Fprintln(out, "\n"+ui.StyleHeader.Render("=== State Summary ===")+"\n")
	fmt.Fprintln(out, summary)
	return nil
}
