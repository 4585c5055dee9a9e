// Package config provides centralized configuration for gpt-worker.
// All default values are defined here to keep a single source of truth.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/famano/gpt-worker/internal/tools"
)

const (
	// EnvPrefix prefixes every environment override, e.g. GPT_WORKER_LLM_MODEL.
	EnvPrefix = "GPT_WORKER"

	// ConfigName is the file name searched for inside the workspace state dir.
	ConfigName = "config"
	// HomeConfigName is the file name searched for in $HOME.
	HomeConfigName = ".gpt_worker"
)

// Agent defaults
const (
	DefaultMaxIterations    = 10
	DefaultRetryMaxAttempts = 3
	DefaultRetryDelay       = 20 * time.Second
)

// Confirmation modes for commands outside the allow-list.
const (
	ConfirmPrompt = "prompt"
	ConfirmDeny   = "deny"
)

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.baseURL", "")

	viper.SetDefault("agent.maxIterations", DefaultMaxIterations)
	viper.SetDefault("agent.retry.maxAttempts", DefaultRetryMaxAttempts)
	viper.SetDefault("agent.retry.delay", DefaultRetryDelay)

	viper.SetDefault("commands.timeout", tools.DefaultCommandTimeout)
	viper.SetDefault("commands.allowed", tools.DefaultAllowedCommands)
	viper.SetDefault("commands.confirm", ConfirmPrompt)

	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.level", "")
}
