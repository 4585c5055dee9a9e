/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/famano/gpt-worker/internal/agents"
	"github.com/famano/gpt-worker/internal/config"
	"github.com/famano/gpt-worker/internal/llm"
	"github.com/famano/gpt-worker/internal/logger"
	"github.com/famano/gpt-worker/internal/policy"
	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/tools"
	"github.com/famano/gpt-worker/internal/ui"
)

var (
	runModel     string
	runDirectory string
)

// newChatModel builds the provider client. Tests replace it with a scripted model.
var newChatModel = llm.NewChatModel

var runCmd = &cobra.Command{
	Use:   "run [order]",
	Short: "Plan and work in the workspace",
	Long: `Run the planner and then the worker against the workspace.

The optional order is passed to both agents as an instruction. Without one
the agents infer what to do from the workspace contents and the persisted
task list and summary.

Examples:
  gpt-worker run "add a --name flag to the greeting command"
  gpt-worker run -d ./project -m claude-sonnet-4-5`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "model to use (default from config, gpt-4o for openai)")
	runCmd.Flags().StringVarP(&runDirectory, "directory", "d", ".", "workspace directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	order := strings.Join(args, " ")

	root, err := workspaceDir(runDirectory)
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if runModel != "" {
		settings.LLM.Model = runModel
		if provider, ok := llm.InferProvider(runModel); ok {
			settings.LLM.Provider = string(provider)
		}
	}

	runID := uuid.NewString()
	logger.SetBasePath(state.StateDir(root))
	logger.SetRunID(runID)
	defer logger.RecoverAndLog()
	log := slog.Default().With("run_id", runID)

	st, err := state.Load(workspaceFs, root)
	if err != nil {
		return fmt.Errorf("load workspace state: %w", err)
	}

	out := cmd.OutOrStdout()
	if verbose {
		fmt.Fprintln(out, "Loaded task list:")
		fmt.Fprintln(out, st.TasksJSON())
		fmt.Fprintln(out, "Model:", settings.LLM.Model)
		fmt.Fprintln(out, "Directory:", root)
	}

	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	chat, err := newChatModel(ctx, settings.LLMConfig())
	if err != nil {
		return fmt.Errorf("create chat model: %w", err)
	}
	runner, err := newRunCommand(ctx, root, settings, out)
	if err != nil {
		return err
	}

	metrics := agents.NewMetrics()
	conn := agents.NewConnector(chat, agents.RetryPolicy{
		MaxAttempts: settings.Agent.Retry.MaxAttempts,
		Delay:       settings.Agent.Retry.Delay,
	}, metrics)
	orch := agents.NewOrchestrator(conn, st, tools.Catalog(runner), settings.Agent.MaxIterations)
	transcript := &ui.Transcript{Out: out, Verbose: verbose}

	log.Info("run started", "provider", settings.LLM.Provider, "model", settings.LLM.Model, "directory", root)
	reason, err := orch.Run(ctx, order, transcript.Print)
	if err != nil {
		log.Error("run failed", "error", err)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
		return err
	}

	usage := metrics.Usage()
	log.Info("run finished",
		"reason", reason.String(),
		"model_calls", metrics.ModelCalls.Load(),
		"tool_calls", metrics.ToolCalls.Load(),
		"tool_failures", metrics.ToolFailures.Load(),
		"retries", metrics.Retries.Load(),
		"tokens", usage.Total(),
		"estimated", usage.Estimated)

	cost := llm.CalculateCost(settings.LLM.Model, usage.PromptTokens, usage.CompletionTokens)
	fmt.Fprintln(out, ui.Usage(settings.LLM.Model, usage.PromptTokens, usage.CompletionTokens, llm.FormatCost(settings.LLM.Model, cost)))
	return nil
}

// newRunCommand wires the run_command tool to the workspace policies, the
// decision audit log and the configured confirmation mode.
func newRunCommand(ctx context.Context, root string, settings *config.Settings, out io.Writer) (*tools.RunCommand, error) {
	engine, err := policy.NewEngine(ctx, policy.EngineConfig{WorkDir: root, Fs: workspaceFs})
	if err != nil {
		return nil, fmt.Errorf("load command policies: %w", err)
	}

	runner := tools.NewRunCommand(engine)
	runner.Audit = policy.NewAuditLog(workspaceFs, policy.AuditPath(root))
	runner.Allowed = settings.Commands.Allowed
	runner.Timeout = settings.Commands.Timeout
	if settings.Commands.Confirm == config.ConfirmPrompt {
		runner.Confirmer = tools.NewTerminalConfirmer(os.Stdin, out)
	}
	return runner, nil
}
