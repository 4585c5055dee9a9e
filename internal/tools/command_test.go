package tools

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famano/gpt-worker/internal/policy"
	"github.com/famano/gpt-worker/internal/state"
)

type fakeExecutor struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
	block  bool
}

func (f *fakeExecutor) Execute(ctx context.Context, workDir, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, append([]string{workDir, name}, args...))
	if f.block {
		<-ctx.Done()
		return "", "", ctx.Err()
	}
	return f.stdout, f.stderr, f.err
}

type scriptedConfirmer struct {
	answer bool
	asked  []string
}

func (s *scriptedConfirmer) Confirm(_ context.Context, command string) (bool, error) {
	s.asked = append(s.asked, command)
	return s.answer, nil
}

func newRunCommand(t *testing.T, fx Executor, confirm Confirmer, policies ...*policy.PolicyFile) *RunCommand {
	t.Helper()
	engine, err := policy.NewEngineWithPolicies(context.Background(), policies)
	require.NoError(t, err)
	rc := NewRunCommand(engine)
	rc.Executor = fx
	rc.Confirmer = confirm
	return rc
}

func TestRunCommand_AllowListedRunsWithoutPrompt(t *testing.T) {
	fx := &fakeExecutor{stdout: "a.txt\nb.txt\n"}
	confirm := &scriptedConfirmer{}
	rc := newRunCommand(t, fx, confirm)

	env := rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "ls -la"}))

	require.True(t, env.Success, env.Content)
	assert.Equal(t, "a.txt\nb.txt\n", env.Content)
	assert.Empty(t, confirm.asked)
	require.Len(t, fx.calls, 1)
	assert.Equal(t, []string{"/work", "ls", "-la"}, fx.calls[0])
}

func TestRunCommand_DeclinedConfirmation(t *testing.T) {
	fx := &fakeExecutor{}
	confirm := &scriptedConfirmer{answer: false}
	rc := newRunCommand(t, fx, confirm)

	env := rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "rm -rf build"}))

	assert.False(t, env.Success)
	assert.Contains(t, env.Content, "aborted")
	assert.Equal(t, []string{"rm -rf build"}, confirm.asked)
	assert.Empty(t, fx.calls)
}

func TestRunCommand_ApprovedConfirmation(t *testing.T) {
	fx := &fakeExecutor{stdout: "done"}
	confirm := &scriptedConfirmer{answer: true}
	rc := newRunCommand(t, fx, confirm)

	env := rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "python3 build.py"}))

	require.True(t, env.Success)
	assert.Equal(t, "done", env.Content)
	require.Len(t, fx.calls, 1)
	assert.Equal(t, "python3", fx.calls[0][1])
}

func TestRunCommand_DeniedByPolicy(t *testing.T) {
	fx := &fakeExecutor{}
	confirm := &scriptedConfirmer{answer: true}
	rc := newRunCommand(t, fx, confirm, &policy.PolicyFile{
		Name: "sample", Path: "sample.rego", Content: policy.SamplePolicy,
	})
	fs := afero.NewMemMapFs()
	rc.Audit = policy.NewAuditLog(fs, policy.AuditPath("/work"))

	env := rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "git push origin main"}))

	assert.False(t, env.Success)
	assert.Equal(t, "Command denied by policy: git push is not allowed", env.Content)
	assert.Empty(t, confirm.asked)
	assert.Empty(t, fx.calls)

	decisions, err := rc.Audit.List(0)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, policy.ResultDeny, decisions[0].Result)
	assert.Equal(t, policy.OutcomeBlocked, decisions[0].Outcome)
}

func TestRunCommand_Failures(t *testing.T) {
	tests := []struct {
		name        string
		exec        *fakeExecutor
		timeout     time.Duration
		wantContent string
	}{
		{
			name:        "non-zero exit",
			exec:        &fakeExecutor{stderr: "cat: x: No such file or directory\n", err: &exec.ExitError{}},
			wantContent: "Command failed with error: cat: x: No such file or directory\n",
		},
		{
			name:        "timeout",
			exec:        &fakeExecutor{block: true},
			timeout:     20 * time.Millisecond,
			wantContent: "Command timed out after 0.02 seconds",
		},
		{
			name:        "start failure",
			exec:        &fakeExecutor{err: errors.New("exec: not found")},
			wantContent: "Error executing command: exec: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := newRunCommand(t, tt.exec, DenyAll)
			rc.Timeout = tt.timeout

			env := rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "cat x"}))
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantContent, env.Content)
		})
	}
}

func TestRunCommand_MissingCommand(t *testing.T) {
	rc := newRunCommand(t, &fakeExecutor{}, DenyAll)

	for _, raw := range []map[string]any{{}, {"command": "   "}} {
		env := rc.Execute(context.Background(), newMemState(t), args(t, raw))
		assert.False(t, env.Success)
		assert.Equal(t, "command is required", env.Content)
	}
}

func TestRunCommand_WithoutPolicyEngine(t *testing.T) {
	fx := &fakeExecutor{stdout: "ok"}
	rc := NewRunCommand(nil)
	rc.Executor = fx

	env := rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "echo ok"}))
	assert.True(t, env.Success)

	env = rc.Execute(context.Background(), newMemState(t), args(t, map[string]any{"command": "curl example.com"}))
	assert.False(t, env.Success)
	assert.Equal(t, "User aborted execution", env.Content)
}

func TestRunCommand_RealProcess(t *testing.T) {
	if _, err := exec.LookPath("ls"); err != nil {
		t.Skip("ls not available")
	}
	dir := t.TempDir()
	fs := afero.NewOsFs()
	require.NoError(t, afero.WriteFile(fs, dir+"/hello.txt", []byte("hi"), 0o644))

	rc := NewRunCommand(nil)
	st := state.New(fs, dir, nil, "")

	env := rc.Execute(context.Background(), st, args(t, map[string]any{"command": "ls"}))
	require.True(t, env.Success, env.Content)
	assert.True(t, strings.Contains(env.Content, "hello.txt"))
}

func TestRunCommand_RealProcessTimeoutKillsGrandchildren(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups are unix only")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	rc := NewRunCommand(nil)
	rc.Allowed = []string{"sh"}
	rc.Timeout = 300 * time.Millisecond
	st := state.New(afero.NewOsFs(), t.TempDir(), nil, "")

	// The trailing command keeps sh from exec'ing sleep, so sleep is a
	// grandchild that inherits the output pipes.
	start := time.Now()
	env := rc.Execute(context.Background(), st, args(t, map[string]any{"command": "sh -c sleep${IFS}10;true"}))
	elapsed := time.Since(start)

	assert.False(t, env.Success)
	assert.Equal(t, "Command timed out after 0.3 seconds", env.Content)
	assert.Less(t, elapsed, processWaitDelay, "sleep outlived the timeout")
}

func TestTerminalConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"yes\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out strings.Builder
		c := &TerminalConfirmer{In: strings.NewReader(tt.input), Out: &out}
		got, err := c.Confirm(context.Background(), "rm -rf build")
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.Contains(t, out.String(), "rm -rf build")
	}
}

func TestTerminalConfirmer_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &TerminalConfirmer{In: neverReader{}, Out: io.Discard}
	ok, err := c.Confirm(ctx, "rm x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerminalConfirmer_CancelledPromptKeepsNextAnswer(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := &TerminalConfirmer{In: pr, Out: io.Discard}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := c.Confirm(ctx, "rm a")
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ok)

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := c.Confirm(context.Background(), "rm b")
		done <- result{ok, err}
	}()

	_, err = io.WriteString(pw, "y\n")
	require.NoError(t, err)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.ok)
	case <-time.After(2 * time.Second):
		t.Fatal("answer was lost to the cancelled prompt")
	}
}

func TestTerminalConfirmer_SequentialPrompts(t *testing.T) {
	c := &TerminalConfirmer{In: strings.NewReader("y\nn\ny\n"), Out: io.Discard}
	var got []bool
	for i := 0; i < 4; i++ {
		ok, err := c.Confirm(context.Background(), "make")
		require.NoError(t, err)
		got = append(got, ok)
	}
	assert.Equal(t, []bool{true, false, true, false}, got)
}

type neverReader struct{}

func (neverReader) Read([]byte) (int, error) { select {} }
