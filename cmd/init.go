/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/famano/gpt-worker/internal/state"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a workspace",
	Long: `Create the workspace directory if needed, plus the .gpt_worker state
directory with an empty task list (plan.json) and situation summary
(state_summary.md). Existing state files are never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory %s: %w", dir, err)
	}

	rootExists, err := afero.DirExists(workspaceFs, root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	stateExists, err := afero.DirExists(workspaceFs, state.StateDir(root))
	if err != nil {
		return fmt.Errorf("stat %s: %w", state.StateDir(root), err)
	}

	created, err := state.Init(workspaceFs, root)
	if err != nil {
		return fmt.Errorf("initialize workspace: %w", err)
	}

	out := cmd.OutOrStdout()
	if verbose {
		if !rootExists {
			fmt.Fprintf(out, "Created directory: %s\n", root)
		}
		if !stateExists {
			fmt.Fprintf(out, "Created GPT Worker directory: %s\n", state.StateDir(root))
		}
		for _, path := range created {
			switch filepath.Base(path) {
			case state.PlanFile:
				fmt.Fprintf(out, "Created task list file: %s\n", path)
			case state.SummaryFile:
				fmt.Fprintf(out, "Created state summary file: %s\n", path)
			}
		}
	}
	fmt.Fprintf(out, "Initialized workspace '%s'\n", dir)
	return nil
}
