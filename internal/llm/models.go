package llm

import (
	"fmt"
	"strings"
)

// Provider IDs.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"

	// DefaultProvider is used when no provider is configured.
	DefaultProvider = ProviderOpenAI
)

// DefaultOllamaURL is the default URL for a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultMaxTokens caps completions for providers that require a limit.
const DefaultMaxTokens = 4096

// Model describes a known model and its pricing per 1M tokens in USD.
type Model struct {
	ID          string
	ProviderID  Provider
	Aliases     []string
	InputPer1M  float64
	OutputPer1M float64
	IsDefault   bool
}

// ModelRegistry lists the models with known pricing.
// Prices last updated: 2025-12
var ModelRegistry = []Model{
	{ID: "gpt-4o", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-4o-2024-08-06"}, InputPer1M: 2.50, OutputPer1M: 10.00, IsDefault: true},
	{ID: "gpt-4o-mini", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-4o-mini-2024-07-18"}, InputPer1M: 0.15, OutputPer1M: 0.60},
	{ID: "gpt-4.1-mini", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-4.1-mini-2025-04-14"}, InputPer1M: 0.15, OutputPer1M: 0.60},
	{ID: "gpt-5-mini", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-5-mini-2025-08-07"}, InputPer1M: 0.22, OutputPer1M: 1.80},
	{ID: "gpt-5.1", ProviderID: ProviderOpenAI, InputPer1M: 1.10, OutputPer1M: 9.00},

	{ID: "claude-sonnet-4-5", ProviderID: ProviderAnthropic, Aliases: []string{"claude-sonnet-4.5"}, InputPer1M: 3.00, OutputPer1M: 15.00, IsDefault: true},
	{ID: "claude-haiku-4-5", ProviderID: ProviderAnthropic, Aliases: []string{"claude-haiku-4.5"}, InputPer1M: 1.00, OutputPer1M: 5.00},
	{ID: "claude-opus-4-5", ProviderID: ProviderAnthropic, Aliases: []string{"claude-opus-4.5"}, InputPer1M: 5.00, OutputPer1M: 25.00},

	{ID: "gemini-2.5-flash", ProviderID: ProviderGemini, InputPer1M: 0.30, OutputPer1M: 2.50, IsDefault: true},
	{ID: "gemini-2.5-pro", ProviderID: ProviderGemini, InputPer1M: 1.25, OutputPer1M: 10.00},

	{ID: "llama3.2", ProviderID: ProviderOllama, IsDefault: true},
}

var modelIndex = buildModelIndex()

func buildModelIndex() map[string]*Model {
	index := make(map[string]*Model)
	for i := range ModelRegistry {
		m := &ModelRegistry[i]
		index[m.ID] = m
		for _, alias := range m.Aliases {
			index[alias] = m
		}
	}
	return index
}

// GetModel returns the model for an ID or alias, or nil.
func GetModel(modelID string) *Model {
	return modelIndex[modelID]
}

// DefaultModelForProvider returns the default model ID for a provider.
func DefaultModelForProvider(provider string) string {
	for _, m := range ModelRegistry {
		if string(m.ProviderID) == provider && m.IsDefault {
			return m.ID
		}
	}
	return ""
}

// InferProvider guesses the provider from a model name.
func InferProvider(modelID string) (Provider, bool) {
	if m := GetModel(modelID); m != nil {
		return m.ProviderID, true
	}
	switch {
	case strings.HasPrefix(modelID, "gpt-"), strings.HasPrefix(modelID, "o1"), strings.HasPrefix(modelID, "o3"), strings.HasPrefix(modelID, "o4"):
		return ProviderOpenAI, true
	case strings.HasPrefix(modelID, "claude-"):
		return ProviderAnthropic, true
	case strings.HasPrefix(modelID, "gemini-"):
		return ProviderGemini, true
	case strings.HasPrefix(modelID, "llama"), strings.HasPrefix(modelID, "mistral"), strings.HasPrefix(modelID, "qwen"), strings.HasPrefix(modelID, "phi"):
		return ProviderOllama, true
	}
	return "", false
}

// CalculateCost returns the USD cost of a token count, or 0 for unknown models.
func CalculateCost(modelID string, inputTokens, outputTokens int) float64 {
	m := GetModel(modelID)
	if m == nil {
		return 0
	}
	return float64(inputTokens)/1_000_000*m.InputPer1M + float64(outputTokens)/1_000_000*m.OutputPer1M
}

// FormatCost renders a cost for display. Unknown pricing renders as "n/a".
func FormatCost(modelID string, cost float64) string {
	if GetModel(modelID) == nil {
		return "n/a"
	}
	if cost < 0.01 {
		return fmt.Sprintf("$%.4f", cost)
	}
	return fmt.Sprintf("$%.2f", cost)
}

// EstimateTokens approximates a token count at ~4 characters per token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
