/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/famano/gpt-worker/internal/state"
)

var (
	listDirectory string
	listFormat    string
	listWatch     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the persisted task list",
	Long: `Print the task list stored in .gpt_worker/plan.json.

With --watch the list is printed again every time a running agent
rewrites the plan. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listDirectory, "directory", "d", ".", "workspace directory")
	listCmd.Flags().StringVar(&listFormat, "format", "json", "output format: json or yaml")
	listCmd.Flags().BoolVarP(&listWatch, "watch", "w", false, "reprint when the task list changes")
}

func runList(cmd *cobra.Command, args []string) error {
	if listFormat != "json" && listFormat != "yaml" {
		return fmt.Errorf("unsupported format %q (use json or yaml)", listFormat)
	}
	root, err := workspaceDir(listDirectory)
	if err != nil {
		return err
	}

	render := func() error { return printTasks(cmd.OutOrStdout(), root, listFormat) }
	if err := render(); err != nil {
		return err
	}
	if !listWatch {
		return nil
	}
	return watchState(cmd, root, state.PlanFile, render)
}

func printTasks(out io.Writer, root, format string) error {
	tasks, err := state.ReadPlan(workspaceFs, root)
	if errors.Is(err, state.ErrNotExist) {
		fmt.Fprintln(out, "Task list does not exist")
		return nil
	}
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "Task list is empty")
		return nil
	}

	for i, task := range tasks {
		fmt.Fprintf(out, "\nTask %d:\n", i)
		var data []byte
		if format == "yaml" {
			data, err = yaml.Marshal(task)
		} else {
			data, err = json.MarshalIndent(task, "", "  ")
			data = append(data, '\n')
		}
		if err != nil {
			return fmt.Errorf("encode task %d: %w", i, err)
		}
		fmt.Fprint(out, string(data))
	}
	return nil
}
