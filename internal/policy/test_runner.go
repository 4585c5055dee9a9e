package policy

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/tester"
	"github.com/open-policy-agent/opa/v1/topdown"
	"github.com/spf13/afero"
)

// TestResult is the result of a single Rego test rule.
type TestResult struct {
	Name     string        `json:"name"`
	Package  string        `json:"package"`
	Passed   bool          `json:"passed"`
	Failed   bool          `json:"failed"`
	Skipped  bool          `json:"skipped"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Output   []string      `json:"output,omitempty"`
}

// TestSummary aggregates test results.
type TestSummary struct {
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Errored  int           `json:"errored"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
	Results  []*TestResult `json:"results"`
}

// TestRunner runs the test_ rules found in a policies directory. The built-in
// policy is compiled alongside so tests can assert on `approved`.
type TestRunner struct {
	fs          afero.Fs
	policiesDir string
}

// NewTestRunner creates a runner. A nil fs means the OS filesystem.
func NewTestRunner(fsys afero.Fs, policiesDir string) *TestRunner {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &TestRunner{fs: fsys, policiesDir: policiesDir}
}

// Run compiles and runs every test in the policies directory.
func (r *TestRunner) Run(ctx context.Context) (*TestSummary, error) {
	start := time.Now()
	RegisterBuiltins()

	modules, err := r.loadModules()
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}

	compiler := ast.NewCompiler()
	compiler.Compile(modules)
	if compiler.Failed() {
		var msgs []string
		for _, err := range compiler.Errors {
			msgs = append(msgs, err.Error())
		}
		return nil, fmt.Errorf("compile policies: %s", strings.Join(msgs, "; "))
	}

	runner := tester.NewRunner().
		SetCompiler(compiler).
		SetModules(modules).
		EnableTracing(true).
		SetTimeout(30 * time.Second)

	ch, err := runner.RunTests(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("run tests: %w", err)
	}

	summary := &TestSummary{Results: []*TestResult{}}
	for tr := range ch {
		result := &TestResult{
			Name:     tr.Name,
			Package:  tr.Package,
			Duration: tr.Duration,
		}
		switch {
		case tr.Skip:
			result.Skipped = true
			summary.Skipped++
		case tr.Error != nil:
			result.Error = tr.Error.Error()
			summary.Errored++
		case tr.Fail:
			result.Failed = true
			summary.Failed++
		default:
			result.Passed = true
			summary.Passed++
		}
		for _, evt := range tr.Trace {
			if evt.Op == topdown.NoteOp && evt.Message != "" {
				result.Output = append(result.Output, evt.Message)
			}
		}
		summary.Total++
		summary.Results = append(summary.Results, result)
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// HasTests reports whether any *_test.rego file exists.
func (r *TestRunner) HasTests() (bool, error) {
	files, err := NewLoader(r.fs, r.policiesDir).ListFiles()
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if strings.HasSuffix(f, "_test.rego") {
			return true, nil
		}
	}
	return false, nil
}

func (r *TestRunner) loadModules() (map[string]*ast.Module, error) {
	builtin, err := ast.ParseModule("default.rego", defaultPolicy)
	if err != nil {
		return nil, err
	}
	modules := map[string]*ast.Module{"default.rego": builtin}

	exists, err := afero.DirExists(r.fs, r.policiesDir)
	if err != nil || !exists {
		return modules, err
	}

	err = afero.Walk(r.fs, r.policiesDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".rego") {
			return nil
		}
		content, err := afero.ReadFile(r.fs, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		module, err := ast.ParseModule(path, string(content))
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		rel, err := filepath.Rel(r.policiesDir, path)
		if err != nil {
			rel = path
		}
		modules[rel] = module
		return nil
	})
	return modules, err
}

// FormatSummary renders a one-line summary.
func (s *TestSummary) FormatSummary() string {
	if s.Total == 0 {
		return "No tests found.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%d tests, %d passed", s.Total, s.Passed)
	if s.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", s.Failed)
	}
	if s.Errored > 0 {
		fmt.Fprintf(&sb, ", %d errored", s.Errored)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&sb, ", %d skipped", s.Skipped)
	}
	fmt.Fprintf(&sb, " in %s\n", s.Duration.Round(time.Millisecond))
	return sb.String()
}

// AllPassed reports whether no test failed or errored.
func (s *TestSummary) AllPassed() bool {
	return s.Failed == 0 && s.Errored == 0
}
