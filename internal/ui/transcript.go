// Package ui renders the streamed agent transcript.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const separator = "------"

// Transcript prints role-tagged messages as they stream out of a run.
type Transcript struct {
	Out     io.Writer
	Verbose bool
}

// Print writes one message block.
func (t *Transcript) Print(msg *schema.Message) {
	if msg == nil {
		return
	}
	fmt.Fprintln(t.Out, StyleSubtle.Render(separator))
	if t.Verbose {
		fmt.Fprintln(t.Out, StylePrefixRole.Render("role: "+string(msg.Role)))
	}

	if msg.Role == schema.Tool {
		t.printToolResult(msg)
		return
	}

	if msg.Content != "" {
		fmt.Fprintln(t.Out, StylePrefixAgent.Render("Agent:"))
		fmt.Fprintln(t.Out, msg.Content)
	}
	if len(msg.ToolCalls) > 0 {
		fmt.Fprintln(t.Out, StylePrefixToolCall.Render("tool_calls:"))
		for _, call := range msg.ToolCalls {
			args := call.Function.Arguments
			if !t.Verbose {
				args = truncate(args, 120)
			}
			fmt.Fprintf(t.Out, "  %s(%s)\n", call.Function.Name, args)
		}
	}
}

func (t *Transcript) printToolResult(msg *schema.Message) {
	var env struct {
		Success bool   `json:"success"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &env); err != nil {
		env.Content = msg.Content
	}

	if env.Success {
		fmt.Fprintln(t.Out, "Tool execution: "+StyleSuccess.Render("success"))
		return
	}
	fmt.Fprintln(t.Out, "Tool execution: "+StyleError.Render("failure"))
	if t.Verbose {
		diag := env.Content
		if strings.TrimSpace(diag) == "" {
			diag = "Unknown error"
		}
		fmt.Fprintln(t.Out, StyleError.Render("Error: ")+diag)
	}
}

// Usage renders the end-of-run token usage line.
func Usage(model string, prompt, completion int, cost string) string {
	return StyleSubtle.Render(fmt.Sprintf("Tokens: %d prompt + %d completion = %d total (model %s, est. cost %s)",
		prompt, completion, prompt+completion, model, cost))
}

// truncate shortens s to maxLen runes, ending in "..." when there is room.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
