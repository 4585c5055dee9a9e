package agents

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/tools"
)

// Orchestrator runs the Planner once and then the Worker over the same state.
type Orchestrator struct {
	Planner *Planner
	Worker  *Worker
}

// NewOrchestrator wires both agents to one connector and tool catalog.
func NewOrchestrator(conn *Connector, st *state.State, catalog *tools.Toolset, maxIterations int) *Orchestrator {
	return &Orchestrator{
		Planner: NewPlanner(conn, st, catalog),
		Worker:  NewWorker(conn, st, catalog, maxIterations),
	}
}

// Run streams every message of both phases to emit, in order.
func (o *Orchestrator) Run(ctx context.Context, order string, emit Emit) (StopReason, error) {
	if err := o.Planner.Run(ctx, order, emit); err != nil {
		return 0, err
	}
	return o.Worker.Run(ctx, order, emit)
}

// Collect runs the orchestrator and returns all produced messages.
func (o *Orchestrator) Collect(ctx context.Context, order string) ([]*schema.Message, StopReason, error) {
	var out []*schema.Message
	reason, err := o.Run(ctx, order, func(m *schema.Message) { out = append(out, m) })
	return out, reason, err
}
