package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel implements model.BaseChatModel with a scripted responder.
type MockChatModel struct {
	mu      sync.Mutex
	Respond func(call int, input []*schema.Message) (*schema.Message, error)

	calls  int
	inputs [][]*schema.Message
	tools  [][]string
}

func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := model.GetCommonOptions(&model.Options{}, opts...)
	var names []string
	for _, info := range o.Tools {
		names = append(names, info.Name)
	}
	m.tools = append(m.tools, names)
	m.inputs = append(m.inputs, append([]*schema.Message(nil), input...))

	call := m.calls
	m.calls++
	if m.Respond == nil {
		return schema.AssistantMessage("done", nil), nil
	}
	return m.Respond(call, input)
}

func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// script replies with the given messages in order, then "done".
func script(steps ...*schema.Message) func(int, []*schema.Message) (*schema.Message, error) {
	return func(call int, _ []*schema.Message) (*schema.Message, error) {
		if call < len(steps) {
			return steps[call], nil
		}
		return schema.AssistantMessage("done", nil), nil
	}
}

func toolCalls(calls ...schema.ToolCall) *schema.Message {
	return schema.AssistantMessage("", calls)
}

func call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func lastIsToolResult(input []*schema.Message) bool {
	return len(input) > 0 && input[len(input)-1].Role == schema.Tool
}

func planArgs(n int, done bool) string {
	tasks := "["
	for i := range n {
		if i > 0 {
			tasks += ","
		}
		tasks += fmt.Sprintf(`{"name":"t%d","description":"d","next_step":"s","done_flg":%t}`, i, done)
	}
	return `{"tasklist":` + tasks + `]}`
}
