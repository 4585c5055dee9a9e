package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famano/gpt-worker/internal/llm"
	"github.com/famano/gpt-worker/internal/state"
	"github.com/famano/gpt-worker/internal/tools"
)

func TestRunCmd_PlansAndWorks(t *testing.T) {
	dir := t.TempDir()
	_, err := executeCommand(t, "init", dir)
	require.NoError(t, err)

	m := &scriptedModel{steps: []*schema.Message{
		toolCall("p1", tools.MakePlanName, `{"tasklist":[{"name":"write greeting","description":"create out.txt","next_step":"write it","done_flg":false}]}`),
		schema.AssistantMessage("Plan is ready", nil),
		toolCall("w1", tools.WriteFileName, `{"path":"out.txt","content":"hello"}`),
		toolCall("w2", tools.UpdatePlanName, `{"tasklist":[{"task_id":0,"done_flg":true}]}`),
		schema.AssistantMessage("All tasks finished", nil),
	}}
	cfg := useModel(t, m)

	out, err := executeCommand(t, "run", "-d", dir, "write a greeting")
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 5, m.calls)

	assert.Contains(t, out, "Agent:\nPlan is ready")
	assert.Contains(t, out, "tool_calls:\n  make_plan(")
	assert.Contains(t, out, "Tool execution: success")
	assert.Contains(t, out, "All tasks finished")
	assert.Contains(t, out, "Tokens:")
	assert.Contains(t, out, "model gpt-4o")
	assert.NotContains(t, out, "role:")

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	tasks, err := state.ReadPlan(workspaceFs, dir)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Done)
}

func TestRunCmd_Verbose(t *testing.T) {
	dir := t.TempDir()
	m := &scriptedModel{steps: []*schema.Message{
		toolCall("p1", tools.ReadFileName, `{"path":"missing.txt"}`),
		schema.AssistantMessage("nothing to plan", nil),
	}}
	useModel(t, m)

	out, err := executeCommand(t, "run", "-d", dir, "-v")
	require.NoError(t, err)

	assert.Contains(t, out, "Loaded task list:\n[]")
	assert.Contains(t, out, "Model: gpt-4o")
	assert.Contains(t, out, "Directory: "+dir)
	assert.Contains(t, out, "role: assistant")
	assert.Contains(t, out, "role: tool")
	assert.Contains(t, out, "Tool execution: failure")
	assert.Contains(t, out, "Error: File not found")
}

func TestRunCmd_ModelFlagInfersProvider(t *testing.T) {
	cfg := useModel(t, &scriptedModel{})

	_, err := executeCommand(t, "run", "-d", t.TempDir(), "--model", "claude-sonnet-4-5")
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
}

func TestRunCmd_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		useModel(t, &scriptedModel{})
		_, err := executeCommand(t, "run", "-d", "/no/such/workspace")
		assert.EqualError(t, err, "directory '/no/such/workspace' does not exist")
	})

	t.Run("invalid configuration", func(t *testing.T) {
		useModel(t, &scriptedModel{})
		t.Setenv("GPT_WORKER_AGENT_MAXITERATIONS", "0")
		_, err := executeCommand(t, "run", "-d", t.TempDir())
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("unknown tool aborts", func(t *testing.T) {
		useModel(t, &scriptedModel{steps: []*schema.Message{toolCall("x", "format_disk", `{}`)}})
		_, err := executeCommand(t, "run", "-d", t.TempDir())
		assert.ErrorIs(t, err, tools.ErrToolNotFound)
	})
}
