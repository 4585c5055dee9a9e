/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com

Package agents drives the model through tool-calling conversations: the
Connector loop, the Planner and Worker agents, and the Orchestrator that
runs them in sequence over one shared state.
*/
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/famano/gpt-worker/internal/logger"
	"github.com/famano/gpt-worker/internal/tools"
)

// ErrConnection is returned when the model cannot be reached or keeps
// rate-limiting past the retry budget. It aborts the run.
var ErrConnection = errors.New("connection error")

// Emit receives every message appended to a conversation, in order.
type Emit func(msg *schema.Message)

// RetryPolicy bounds rate-limit retries of a single model call.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy allows 3 attempts, 20s apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: 20 * time.Second}

// Connector runs one conversation until the model stops requesting tools.
type Connector struct {
	model   model.BaseChatModel
	retry   RetryPolicy
	metrics *Metrics
}

// NewConnector wraps a chat model. metrics may be nil.
func NewConnector(m model.BaseChatModel, retry RetryPolicy, metrics *Metrics) *Connector {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Connector{model: m, retry: retry, metrics: metrics}
}

// Run appends to conv until a round produces no tool calls and returns the
// final conversation. Tool failures are fed back to the model; unknown
// tools and connection failures abort with an error.
func (c *Connector) Run(ctx context.Context, conv []*schema.Message, d *tools.Dispatcher, emit Emit) ([]*schema.Message, error) {
	if emit == nil {
		emit = func(*schema.Message) {}
	}
	infos, err := d.Tools().Infos(ctx)
	if err != nil {
		return conv, fmt.Errorf("tool schemas: %w", err)
	}

	appendMsg := func(m *schema.Message) {
		conv = append(conv, m)
		emit(m)
	}

	for round := 1; ; round++ {
		resp, err := c.generate(ctx, conv, infos)
		if err != nil {
			return conv, err
		}
		c.metrics.RecordResponse(conv, resp)
		slog.Debug("model round", "round", round, "tool_calls", len(resp.ToolCalls), "text", resp.Content != "")

		if resp.Content != "" {
			appendMsg(schema.AssistantMessage(resp.Content, nil))
		}
		if len(resp.ToolCalls) == 0 {
			return conv, nil
		}

		appendMsg(schema.AssistantMessage("", resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			env, err := d.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return conv, err
			}
			c.metrics.RecordTool(env.Success)

			result := schema.ToolMessage(env.JSON(), call.ID)
			result.ToolName = call.Function.Name
			appendMsg(result)
		}
	}
}

// generate performs one model call, retrying the same request on rate limits.
func (c *Connector) generate(ctx context.Context, conv []*schema.Message, infos []*schema.ToolInfo) (*schema.Message, error) {
	logger.SetLastPrompt(lastPrompt(conv))

	for attempt := 1; ; attempt++ {
		resp, err := c.model.Generate(ctx, conv, model.WithTools(infos))
		if err == nil {
			if resp == nil {
				return nil, fmt.Errorf("%w: no response choices returned", ErrConnection)
			}
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !isRateLimit(err) {
			return nil, fmt.Errorf("%w: %w", ErrConnection, err)
		}
		if attempt >= c.retry.MaxAttempts {
			return nil, fmt.Errorf("%w: rate limit exceeded after %d attempts: %w", ErrConnection, attempt, err)
		}

		if c.metrics != nil {
			c.metrics.Retries.Add(1)
		}
		slog.Warn("rate limit reached, retrying", "attempt", attempt, "delay", c.retry.Delay)
		timer := time.NewTimer(c.retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// rateLimitStatus matches 429 only as a whole number.
var rateLimitStatus = regexp.MustCompile(`\b429\b`)

// isRateLimit recognises provider throttling errors. The eino providers do
// not share an error type, so this matches on the message.
func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	if rateLimitStatus.MatchString(msg) {
		return true
	}
	for _, marker := range []string{"rate limit", "ratelimit", "too many requests", "resource_exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func lastPrompt(conv []*schema.Message) string {
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == schema.User {
			return conv[i].Content
		}
	}
	return ""
}
