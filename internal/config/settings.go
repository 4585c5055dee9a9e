package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/famano/gpt-worker/internal/llm"
)

// Settings is the validated runtime configuration.
type Settings struct {
	LLM      LLMSettings     `mapstructure:"llm"`
	Agent    AgentSettings   `mapstructure:"agent"`
	Commands CommandSettings `mapstructure:"commands"`
	Log      LogSettings     `mapstructure:"log"`
}

type LLMSettings struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=openai ollama anthropic gemini"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"baseURL" validate:"omitempty,url"`
}

type AgentSettings struct {
	MaxIterations int           `mapstructure:"maxIterations" validate:"min=1"`
	Retry         RetrySettings `mapstructure:"retry"`
}

type RetrySettings struct {
	MaxAttempts int           `mapstructure:"maxAttempts" validate:"min=1"`
	Delay       time.Duration `mapstructure:"delay" validate:"min=0"`
}

type CommandSettings struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Allowed []string      `mapstructure:"allowed" validate:"dive,required"`
	Confirm string        `mapstructure:"confirm" validate:"oneof=prompt deny"`
}

type LogSettings struct {
	Format string `mapstructure:"format" validate:"oneof=text json"`
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load unmarshals the current viper state into Settings and validates it.
// SetDefaults must have been called.
func Load() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if s.LLM.Model == "" {
		s.LLM.Model = llm.DefaultModelForProvider(s.LLM.Provider)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", describe(err))
	}
	return &s, nil
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Settings.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// LLMConfig builds the provider configuration, resolving the API key.
func (s *Settings) LLMConfig() llm.Config {
	provider := llm.Provider(s.LLM.Provider)
	return llm.Config{
		Provider: provider,
		Model:    s.LLM.Model,
		APIKey:   ResolveAPIKey(provider),
		BaseURL:  s.LLM.BaseURL,
	}
}
