package agents

import (
	"sync/atomic"

	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/llm"
)

// Metrics accumulates counters across every conversation of a run.
type Metrics struct {
	ModelCalls       atomic.Int64
	ToolCalls        atomic.Int64
	ToolFailures     atomic.Int64
	Retries          atomic.Int64
	PromptTokens     atomic.Int64
	CompletionTokens atomic.Int64
	EstimatedUsage   atomic.Bool
}

// Usage is a point-in-time copy of token counts.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Estimated        bool
}

func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordResponse adds the token usage of one model response. Providers that
// report no usage are estimated from the conversation text.
func (m *Metrics) RecordResponse(conv []*schema.Message, resp *schema.Message) {
	if m == nil {
		return
	}
	m.ModelCalls.Add(1)

	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := resp.ResponseMeta.Usage
		m.PromptTokens.Add(int64(u.PromptTokens))
		m.CompletionTokens.Add(int64(u.CompletionTokens))
		return
	}

	m.EstimatedUsage.Store(true)
	prompt := 0
	for _, msg := range conv {
		prompt += llm.EstimateTokens(msg.Content)
	}
	completion := llm.EstimateTokens(resp.Content)
	for _, call := range resp.ToolCalls {
		completion += llm.EstimateTokens(call.Function.Name + call.Function.Arguments)
	}
	m.PromptTokens.Add(int64(prompt))
	m.CompletionTokens.Add(int64(completion))
}

// RecordTool counts one tool execution.
func (m *Metrics) RecordTool(success bool) {
	if m == nil {
		return
	}
	m.ToolCalls.Add(1)
	if !success {
		m.ToolFailures.Add(1)
	}
}

// Usage returns the accumulated token usage.
func (m *Metrics) Usage() Usage {
	return Usage{
		PromptTokens:     int(m.PromptTokens.Load()),
		CompletionTokens: int(m.CompletionTokens.Load()),
		Estimated:        m.EstimatedUsage.Load(),
	}
}
