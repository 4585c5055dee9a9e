// Package policy decides whether a shell command proposed by the model may run.
// Decisions come from Rego policies evaluated locally with OPA: a built-in
// policy approves allow-listed commands, and workspace policies under
// .gpt_worker/policies can add deny and warn rules.
package policy

import (
	"encoding/json"
	"time"
)

// Decision results.
const (
	// ResultAllow means the command is approved and runs without asking.
	ResultAllow = "allow"
	// ResultConfirm means no rule approved or denied the command; the user decides.
	ResultConfirm = "confirm"
	// ResultDeny means at least one deny rule fired.
	ResultDeny = "deny"
)

// Decision is the outcome of evaluating policies against a command.
type Decision struct {
	DecisionID  string    `json:"decisionId"`
	PolicyPath  string    `json:"policyPath"`
	Result      string    `json:"result"`
	Violations  []string  `json:"violations,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	Input       *Input    `json:"input"`
	Outcome     string    `json:"outcome,omitempty"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// Outcome values recorded after the decision has been acted on.
const (
	OutcomeExecuted = "executed"
	OutcomeDeclined = "declined"
	OutcomeBlocked  = "blocked"
)

// IsAllowed reports whether the command may run without confirmation.
func (d *Decision) IsAllowed() bool { return d.Result == ResultAllow }

// IsDenied reports whether a deny rule fired.
func (d *Decision) IsDenied() bool { return d.Result == ResultDeny }

// NeedsConfirmation reports whether the user has to approve the command.
func (d *Decision) NeedsConfirmation() bool { return d.Result == ResultConfirm }

// Input is what Rego policies receive as `input`.
type Input struct {
	Command         Command  `json:"command"`
	AllowedCommands []string `json:"allowed_commands"`
	Workspace       string   `json:"workspace"`
}

// Command is a whitespace-split command line.
type Command struct {
	Line string   `json:"line"`
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// JSON renders the decision as a single line.
func (d *Decision) JSON() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}
