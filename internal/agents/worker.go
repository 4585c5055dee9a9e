package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/tools"
)

// WorkerTools is the tool set the Worker offers by default.
var WorkerTools = []string{
	tools.ReadFileName,
	tools.WriteFileName,
	tools.RunCommandName,
	tools.MakePlanName,
	tools.UpdatePlanName,
	tools.UpdateSituationName,
}

// DefaultMaxIterations caps Worker rounds.
const DefaultMaxIterations = 10

// StopReason tells why the Worker loop ended.
type StopReason int

const (
	StopAllComplete StopReason = iota
	StopMaxIterations
	StopNoProgress
)

func (r StopReason) String() string {
	switch r {
	case StopAllComplete:
		return "all tasks complete"
	case StopMaxIterations:
		return "max iterations reached"
	case StopNoProgress:
		return "no progress detected"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// NoProgressWarning is emitted when two rounds leave every (id, done) pair unchanged.
const NoProgressWarning = "Warning: No progress detected in tasks between iterations. Stopping execution to prevent infinite loop."

// MaxIterationsWarning is emitted when the round cap is hit.
func MaxIterationsWarning(n int) string {
	return fmt.Sprintf("Warning: Reached maximum number of iterations (%d). Stopping execution to prevent infinite loop. Some tasks may remain incomplete.", n)
}

// Worker repeatedly asks the model to make progress on incomplete tasks.
type Worker struct {
	connector     *Connector
	state         *state.State
	tools         *tools.Toolset
	maxIterations int
}

// NewWorker offers the WorkerTools subset of catalog. Tools missing from the
// catalog, such as run_command when no command runner is configured, are skipped.
func NewWorker(conn *Connector, st *state.State, catalog *tools.Toolset, maxIterations int) *Worker {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Worker{
		connector:     conn,
		state:         st,
		tools:         catalog.Subset(WorkerTools...),
		maxIterations: maxIterations,
	}
}

func (w *Worker) Name() string { return "worker" }

// Conversation builds one round's prompt from the current state.
func (w *Worker) Conversation(order string) ([]*schema.Message, error) {
	data := promptData{
		Root:    w.state.Root(),
		Order:   strings.TrimSpace(order),
		Summary: w.state.Summary(),
		Tasks:   w.state.TasksJSON(),
	}
	system, err := render(workerSystemTmpl, data)
	if err != nil {
		return nil, err
	}
	user, err := render(workerUserTmpl, data)
	if err != nil {
		return nil, err
	}
	return []*schema.Message{schema.SystemMessage(system), schema.UserMessage(user)}, nil
}

// Run loops until every task is done, the round cap is hit, or a round
// leaves the (id, done) snapshot unchanged. Guard warnings are emitted as
// assistant messages.
func (w *Worker) Run(ctx context.Context, order string, emit Emit) (StopReason, error) {
	if emit == nil {
		emit = func(*schema.Message) {}
	}
	d := tools.NewDispatcher(w.tools, w.state)

	var previous state.Progress
	for iteration := 0; ; iteration++ {
		if iteration >= w.maxIterations {
			emit(schema.AssistantMessage(MaxIterationsWarning(w.maxIterations), nil))
			slog.Warn("worker stopped", "reason", StopMaxIterations, "iterations", iteration)
			return StopMaxIterations, nil
		}

		incomplete := w.state.Incomplete()
		if len(incomplete) == 0 {
			slog.Info("worker finished", "iterations", iteration)
			return StopAllComplete, nil
		}

		current := w.state.Progress()
		if iteration > 0 && current.Equal(previous) {
			emit(schema.AssistantMessage(NoProgressWarning, nil))
			slog.Warn("worker stopped", "reason", StopNoProgress, "iterations", iteration)
			return StopNoProgress, nil
		}
		previous = current

		conv, err := w.Conversation(order)
		if err != nil {
			return 0, fmt.Errorf("worker prompt: %w", err)
		}
		slog.Info("worker round", "iteration", iteration+1, "incomplete", len(incomplete))

		if _, err := w.connector.Run(ctx, conv, d, emit); err != nil {
			return 0, fmt.Errorf("worker round %d: %w", iteration+1, err)
		}
	}
}
