package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/state"
)

func taskParams(withID bool) map[string]*schema.ParameterInfo {
	params := map[string]*schema.ParameterInfo{
		"name": {
			Type:     schema.String,
			Desc:     "Name of the task",
			Required: !withID,
		},
		"description": {
			Type:     schema.String,
			Desc:     "Detailed description of the task",
			Required: !withID,
		},
		"next_step": {
			Type:     schema.String,
			Desc:     "Concrete and detailed explanation of what to do next",
			Required: !withID,
		},
		"done_flg": {
			Type:     schema.Boolean,
			Desc:     "True only when the task is actually completed",
			Required: !withID,
		},
	}
	if withID {
		params["task_id"] = &schema.ParameterInfo{
			Type:     schema.Integer,
			Desc:     "ID of the task to update",
			Required: true,
		}
	}
	return params
}

type tasklistArgs struct {
	Tasklist json.RawMessage `json:"tasklist"`
}

// MakePlan replaces the task list wholesale.
type MakePlan struct{}

// NewMakePlan creates the make_plan contract.
func NewMakePlan() *MakePlan { return &MakePlan{} }

// Name implements Contract.
func (t *MakePlan) Name() string { return MakePlanName }

// Info implements tool.BaseTool.
func (t *MakePlan) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: MakePlanName,
		Desc: `Create a new task list, replacing the existing one.
Task IDs are assigned automatically in list order starting from 0.`,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"tasklist": {
				Type:     schema.Array,
				Desc:     "Tasks to plan, in the order they should be worked on",
				Required: true,
				ElemInfo: &schema.ParameterInfo{
					Type:      schema.Object,
					SubParams: taskParams(false),
				},
			},
		}),
	}, nil
}

// Execute implements Contract.
func (t *MakePlan) Execute(_ context.Context, st *state.State, raw json.RawMessage) Envelope {
	var args tasklistArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Fail(err.Error())
	}
	if !isJSONArray(args.Tasklist) {
		return Fail("tasklist must be a list")
	}

	var tasks []state.Task
	if err := json.Unmarshal(args.Tasklist, &tasks); err != nil {
		return Failf("Invalid tasklist: %v", err)
	}

	planned, err := st.ReplacePlan(tasks)
	if err != nil {
		return Failf("Failed to save plan: %v", err)
	}
	slog.Info("plan created", "tasks", len(planned))
	return Ok(st.TasksJSON())
}

// UpdatePlan merges partial task updates by ID.
type UpdatePlan struct{}

// NewUpdatePlan creates the update_plan contract.
func NewUpdatePlan() *UpdatePlan { return &UpdatePlan{} }

// Name implements Contract.
func (t *UpdatePlan) Name() string { return UpdatePlanName }

// Info implements tool.BaseTool.
func (t *UpdatePlan) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: UpdatePlanName,
		Desc: `Update part of the task list. Only tasks whose task_id matches an entry are changed;
fields left out of an entry keep their current value. Other tasks are untouched.`,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"tasklist": {
				Type:     schema.Array,
				Desc:     "Task updates, each identified by task_id",
				Required: true,
				ElemInfo: &schema.ParameterInfo{
					Type:      schema.Object,
					SubParams: taskParams(true),
				},
			},
		}),
	}, nil
}

// Execute implements Contract.
func (t *UpdatePlan) Execute(_ context.Context, st *state.State, raw json.RawMessage) Envelope {
	var args tasklistArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Fail(err.Error())
	}
	if !isJSONArray(args.Tasklist) {
		return Fail("tasklist must be a list")
	}

	var patches []state.TaskPatch
	if err := json.Unmarshal(args.Tasklist, &patches); err != nil {
		return Failf("Invalid tasklist: %v", err)
	}

	updated, err := st.MergePlan(patches)
	if err != nil {
		return Failf("Failed to save plan: %v", err)
	}
	slog.Info("plan updated", "tasks", updated)
	return Ok(st.TasksJSON())
}

// UpdateSituation replaces the situation summary.
type UpdateSituation struct{}

// NewUpdateSituation creates the update_situation contract.
func NewUpdateSituation() *UpdateSituation { return &UpdateSituation{} }

// Name implements Contract.
func (t *UpdateSituation) Name() string { return UpdateSituationName }

// Info implements tool.BaseTool.
func (t *UpdateSituation) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: UpdateSituationName,
		Desc: "Replace the summary of the current situation in the workspace.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"state_summary": {
				Type:     schema.String,
				Desc:     "Summary of the current situation",
				Required: true,
			},
		}),
	}, nil
}

type situationArgs struct {
	StateSummary string `json:"state_summary" validate:"required"`
}

// Execute implements Contract.
func (t *UpdateSituation) Execute(_ context.Context, st *state.State, raw json.RawMessage) Envelope {
	var args situationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Fail(err.Error())
	}
	if err := st.SetSummary(args.StateSummary); err != nil {
		return Failf("Error updating state: %v", err)
	}
	return Envelope{Success: true}
}
