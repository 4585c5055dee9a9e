package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/config"
	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/tools"
)

// PlannerTools is the tool set the Planner offers by default.
var PlannerTools = []string{tools.ReadFileName, tools.MakePlanName, tools.UpdateSituationName}

// Planner makes a single pass that surveys the workspace and refreshes the task list.
type Planner struct {
	connector *Connector
	state     *state.State
	tools     *tools.Toolset
}

// NewPlanner offers the PlannerTools subset of catalog.
func NewPlanner(conn *Connector, st *state.State, catalog *tools.Toolset) *Planner {
	return &Planner{connector: conn, state: st, tools: catalog.Subset(PlannerTools...)}
}

func (p *Planner) Name() string { return "planner" }

// Conversation builds the planning prompt from the current state.
func (p *Planner) Conversation(order string) ([]*schema.Message, error) {
	listing, err := ListWorkspace(p.state.Fs(), p.state.Root(), DefaultListingLimit)
	if err != nil {
		return nil, err
	}
	user, err := render(plannerUserTmpl, promptData{
		Order:   strings.TrimSpace(order),
		Summary: p.state.Summary(),
		Tasks:   p.state.TasksJSON(),
		Listing: listing,
	})
	if err != nil {
		return nil, err
	}
	return []*schema.Message{
		schema.SystemMessage(config.SystemPromptPlanner),
		schema.UserMessage(user),
	}, nil
}

// Run drives one planning conversation, streaming its messages to emit.
func (p *Planner) Run(ctx context.Context, order string, emit Emit) error {
	conv, err := p.Conversation(order)
	if err != nil {
		return fmt.Errorf("planner prompt: %w", err)
	}
	slog.Info("planner started", "tasks", len(p.state.Tasks()))

	d := tools.NewDispatcher(p.tools, p.state)
	if _, err := p.connector.Run(ctx, conv, d, emit); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	return nil
}
