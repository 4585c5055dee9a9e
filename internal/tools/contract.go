/*
Package tools defines the actions the model may request: reading and writing
workspace files, running commands, and replacing or merging the task list and
situation summary held in *state.State.

Every contract reports its outcome as an Envelope. Failures of the underlying
operation are never returned as Go errors.
*/
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/state"
)

// Tool names offered to the model.
const (
	ReadFileName        = "read_file"
	WriteFileName       = "write_file"
	RunCommandName      = "run_command"
	MakePlanName        = "make_plan"
	UpdatePlanName      = "update_plan"
	UpdateSituationName = "update_situation"
)

// Contract is a named, schema-described action. Info describes the
// parameters to the model; Execute validates them and acts on st.
type Contract interface {
	tool.BaseTool
	Name() string
	Execute(ctx context.Context, st *state.State, args json.RawMessage) Envelope
}

// Envelope is the normalized result of a tool execution.
type Envelope struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Ok returns a successful envelope.
func Ok(content string) Envelope {
	return Envelope{Success: true, Content: content}
}

// Fail returns a failing envelope carrying a diagnostic.
func Fail(diagnostic string) Envelope {
	return Envelope{Content: diagnostic}
}

// Failf is Fail with formatting.
func Failf(format string, a ...any) Envelope {
	return Envelope{Content: fmt.Sprintf(format, a...)}
}

// JSON renders the envelope as the tool message content.
func (e Envelope) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return `{"success":false}`
	}
	return string(data)
}

// Toolset is a static name → contract table in offer order.
type Toolset struct {
	order  []Contract
	byName map[string]Contract
}

// NewToolset builds a toolset. Later contracts replace earlier ones with the same name.
func NewToolset(contracts ...Contract) *Toolset {
	ts := &Toolset{byName: make(map[string]Contract, len(contracts))}
	index := make(map[string]int, len(contracts))
	for _, c := range contracts {
		if c == nil {
			continue
		}
		if i, dup := index[c.Name()]; dup {
			ts.order[i] = c
		} else {
			index[c.Name()] = len(ts.order)
			ts.order = append(ts.order, c)
		}
		ts.byName[c.Name()] = c
	}
	return ts
}

// Lookup finds a contract by exact name.
func (ts *Toolset) Lookup(name string) (Contract, bool) {
	c, ok := ts.byName[name]
	return c, ok
}

// Names returns the tool names in offer order.
func (ts *Toolset) Names() []string {
	names := make([]string, len(ts.order))
	for i, c := range ts.order {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of contracts.
func (ts *Toolset) Len() int { return len(ts.order) }

// Subset returns a toolset restricted to names, in the order given.
// Names with no contract are skipped.
func (ts *Toolset) Subset(names ...string) *Toolset {
	var picked []Contract
	for _, n := range names {
		if c, ok := ts.byName[n]; ok {
			picked = append(picked, c)
		}
	}
	return NewToolset(picked...)
}

// Infos returns the schema of every contract for model.WithTools.
func (ts *Toolset) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts.order))
	for _, c := range ts.order {
		info, err := c.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %s info: %w", c.Name(), err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Catalog returns every contract. run may be nil when commands are not offered.
func Catalog(run *RunCommand) *Toolset {
	contracts := []Contract{
		NewReadFile(),
		NewWriteFile(),
		NewMakePlan(),
		NewUpdatePlan(),
		NewUpdateSituation(),
	}
	if run != nil {
		contracts = append(contracts, run)
	}
	return NewToolset(contracts...)
}
