package policy

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"
)

// DefaultPolicyPackage is the Rego package every policy file contributes to.
const DefaultPolicyPackage = "gptworker.policy"

//go:embed default.rego
var defaultPolicy string

// Engine evaluates command lines against the built-in policy plus any
// workspace policies. All evaluation happens locally.
type Engine struct {
	policies []*PolicyFile
	pkg      string
	query    rego.PreparedEvalQuery
}

// EngineConfig holds configuration for creating an Engine.
type EngineConfig struct {
	// WorkDir is the workspace root.
	WorkDir string

	// PoliciesDir defaults to {WorkDir}/.gpt_worker/policies.
	PoliciesDir string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

// NewEngine loads the workspace policies and compiles them together with the
// built-in policy. A policy that fails to compile is an error.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.PoliciesDir == "" && cfg.WorkDir != "" {
		cfg.PoliciesDir = PoliciesPath(cfg.WorkDir)
	}

	var policies []*PolicyFile
	if cfg.PoliciesDir != "" {
		loaded, err := NewLoader(cfg.Fs, cfg.PoliciesDir).LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
		policies = loaded
	}
	return NewEngineWithPolicies(ctx, policies)
}

// NewEngineWithPolicies compiles the built-in policy plus the given files.
func NewEngineWithPolicies(ctx context.Context, policies []*PolicyFile) (*Engine, error) {
	RegisterBuiltins()

	opts := []func(*rego.Rego){
		rego.Query("data." + DefaultPolicyPackage),
		rego.Module("default.rego", defaultPolicy),
	}
	for _, p := range policies {
		opts = append(opts, rego.Module(p.Path, p.Content))
	}

	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}

	return &Engine{
		policies: policies,
		pkg:      DefaultPolicyPackage,
		query:    query,
	}, nil
}

// PolicyCount returns the number of workspace policy files.
func (e *Engine) PolicyCount() int {
	return len(e.policies)
}

// Policies returns the workspace policy files.
func (e *Engine) Policies() []*PolicyFile {
	return e.policies
}

// EvaluateCommand splits line on whitespace and evaluates it.
func (e *Engine) EvaluateCommand(ctx context.Context, line string, allowed []string, workspace string) (*Decision, error) {
	return e.Evaluate(ctx, &Input{
		Command:         ParseCommand(line),
		AllowedCommands: nonNil(allowed),
		Workspace:       workspace,
	})
}

// Evaluate runs the policies against input.
//
// Any string produced by a `deny` rule denies the command. Strings produced by
// `warn` rules are reported but never block. Otherwise the command is allowed
// when `approved` is true and needs confirmation when it is not.
func (e *Engine) Evaluate(ctx context.Context, input *Input) (*Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluate policies: %w", err)
	}

	var doc map[string]any
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		doc, _ = rs[0].Expressions[0].Value.(map[string]any)
	}

	decision := &Decision{
		DecisionID:  uuid.New().String(),
		PolicyPath:  e.pkg,
		Violations:  stringSet(doc["deny"]),
		Warnings:    stringSet(doc["warn"]),
		Input:       input,
		EvaluatedAt: time.Now().UTC(),
	}

	approved, _ := doc["approved"].(bool)
	switch {
	case len(decision.Violations) > 0:
		decision.Result = ResultDeny
	case approved:
		decision.Result = ResultAllow
	default:
		decision.Result = ResultConfirm
	}
	return decision, nil
}

// ParseCommand splits a command line on whitespace. No shell quoting is applied.
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	cmd := Command{Line: line, Args: []string{}}
	if len(fields) == 0 {
		return cmd
	}
	cmd.Name = fields[0]
	cmd.Args = fields[1:]
	return cmd
}

// ValidatePolicy checks that content is valid Rego.
func ValidatePolicy(ctx context.Context, content string) error {
	RegisterBuiltins()
	_, err := rego.New(
		rego.Query("data"),
		rego.Module("validation.rego", content),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	return nil
}

// stringSet extracts the string members of a Rego set, which OPA returns as []any.
func stringSet(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
