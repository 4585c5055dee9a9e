package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/policy"
	"github.com/famano/gpt-worker/internal/state"
)

// DefaultCommandTimeout bounds every command run.
const DefaultCommandTimeout = 30 * time.Second

// DefaultAllowedCommands run without confirmation.
var DefaultAllowedCommands = []string{
	"ls", "cat", "echo", "pwd", "mkdir", "cp", "mv", "git", "npm",
	"tree", "grep", "head", "tail", "touch", "wc",
}

// Executor runs a program. It exists so tests can substitute the process layer.
type Executor interface {
	Execute(ctx context.Context, workDir, name string, args ...string) (stdout, stderr string, err error)
}

// processWaitDelay bounds how long Execute waits for output pipes to close
// after the process group has been killed.
const processWaitDelay = 2 * time.Second

// ProcessExecutor runs real processes without a shell. When ctx is done the
// whole process group is killed, including grandchildren holding the pipes.
type ProcessExecutor struct{}

// Execute runs name with args in workDir and returns its output.
func (ProcessExecutor) Execute(ctx context.Context, workDir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = processWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Decider evaluates a command line against the command policy.
type Decider interface {
	EvaluateCommand(ctx context.Context, line string, allowed []string, workspace string) (*policy.Decision, error)
}

// RunCommand executes a command line in the workspace root. The line is split
// on whitespace and run without a shell.
type RunCommand struct {
	Policy    Decider
	Audit     *policy.AuditLog
	Allowed   []string
	Timeout   time.Duration
	Confirmer Confirmer
	Executor  Executor
}

// NewRunCommand creates the run_command contract with default timeout,
// allow-list and process executor. Non-allow-listed commands are declined
// until a Confirmer is set.
func NewRunCommand(decider Decider) *RunCommand {
	return &RunCommand{
		Policy:    decider,
		Allowed:   DefaultAllowedCommands,
		Timeout:   DefaultCommandTimeout,
		Confirmer: DenyAll,
		Executor:  ProcessExecutor{},
	}
}

// Name implements Contract.
func (t *RunCommand) Name() string { return RunCommandName }

// Info implements tool.BaseTool.
func (t *RunCommand) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: RunCommandName,
		Desc: fmt.Sprintf(`Run a command in the workspace root directory.
This is not a shell: pipes, redirection and shell built-ins such as cd are not available.
Commands time out after %s.
Commands other than %s need operator approval.`, t.timeout(), strings.Join(t.Allowed, ", ")),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"command": {
				Type:     schema.String,
				Desc:     "Command line to run, e.g. \"ls -la src\"",
				Required: true,
			},
		}),
	}, nil
}

type runCommandArgs struct {
	Command string `json:"command" validate:"required"`
}

// Execute implements Contract.
func (t *RunCommand) Execute(ctx context.Context, st *state.State, raw json.RawMessage) Envelope {
	var args runCommandArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Fail(err.Error())
	}
	line := strings.TrimSpace(args.Command)
	parsed := policy.ParseCommand(line)
	if parsed.Name == "" {
		return Fail("command is required")
	}

	decision, err := t.decide(ctx, line, st.Root())
	if err != nil {
		return Failf("Error executing command: %v", err)
	}
	for _, w := range decision.Warnings {
		slog.Warn("command policy warning", "command", line, "warning", w)
	}

	switch {
	case decision.IsDenied():
		t.record(decision, policy.OutcomeBlocked)
		return Failf("Command denied by policy: %s", strings.Join(decision.Violations, "; "))
	case decision.NeedsConfirmation():
		ok, err := t.confirmer().Confirm(ctx, line)
		if err != nil {
			slog.Warn("confirmation failed", "command", line, "error", err)
		}
		if !ok {
			t.record(decision, policy.OutcomeDeclined)
			return Fail("User aborted execution")
		}
	}
	t.record(decision, policy.OutcomeExecuted)

	runCtx, cancel := context.WithTimeout(ctx, t.timeout())
	defer cancel()

	slog.Info("executing command", "command", line)
	stdout, stderr, err := t.executor().Execute(runCtx, st.Root(), parsed.Name, parsed.Args...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Failf("Command timed out after %g seconds", t.timeout().Seconds())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Failf("Command failed with error: %s", stderr)
		}
		return Failf("Error executing command: %v", err)
	}
	return Ok(stdout)
}

func (t *RunCommand) decide(ctx context.Context, line, root string) (*policy.Decision, error) {
	if t.Policy != nil {
		return t.Policy.EvaluateCommand(ctx, line, t.Allowed, root)
	}
	// Without a policy engine only the allow-list applies.
	parsed := policy.ParseCommand(line)
	d := &policy.Decision{Result: policy.ResultConfirm, Input: &policy.Input{Command: parsed, AllowedCommands: t.Allowed, Workspace: root}}
	for _, name := range t.Allowed {
		if name == parsed.Name {
			d.Result = policy.ResultAllow
			break
		}
	}
	return d, nil
}

func (t *RunCommand) record(d *policy.Decision, outcome string) {
	if t.Audit == nil {
		return
	}
	d.Outcome = outcome
	if err := t.Audit.Record(d); err != nil {
		slog.Warn("policy audit write failed", "error", err)
	}
}

func (t *RunCommand) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultCommandTimeout
	}
	return t.Timeout
}

func (t *RunCommand) confirmer() Confirmer {
	if t.Confirmer == nil {
		return DenyAll
	}
	return t.Confirmer
}

func (t *RunCommand) executor() Executor {
	if t.Executor == nil {
		return ProcessExecutor{}
	}
	return t.Executor
}
