package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/famano/gpt-worker/internal/state"
)

// ErrToolNotFound is returned when the model requests a tool that is not offered.
var ErrToolNotFound = errors.New("tool not found")

// Dispatcher routes tool calls to the contracts of one conversation.
type Dispatcher struct {
	tools *Toolset
	state *state.State
}

// NewDispatcher creates a dispatcher over the offered tools and the run's state.
func NewDispatcher(tools *Toolset, st *state.State) *Dispatcher {
	return &Dispatcher{tools: tools, state: st}
}

// Tools returns the offered toolset.
func (d *Dispatcher) Tools() *Toolset { return d.tools }

// Dispatch parses arguments, looks up the contract and executes it.
// Malformed arguments produce a failing envelope. An unknown tool name is
// the only error.
func (d *Dispatcher) Dispatch(ctx context.Context, name, arguments string) (Envelope, error) {
	raw := strings.TrimSpace(arguments)
	if raw == "" {
		raw = "{}"
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		slog.Warn("tool arguments rejected", "tool", name, "error", err)
		return Failf("Failed to parse arguments: %v", err), nil
	}

	contract, ok := d.tools.Lookup(name)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	env := contract.Execute(ctx, d.state, json.RawMessage(raw))
	if env.Success {
		slog.Debug("tool executed", "tool", name)
	} else {
		slog.Warn("tool failed", "tool", name, "diagnostic", env.Content)
	}
	return env, nil
}
