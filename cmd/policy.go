/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/famano/gpt-worker/internal/policy"
	"github.com/famano/gpt-worker/internal/ui"
)

// policyCmd represents the policy parent command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage OPA policies for agent commands",
	Long: `Manage Open Policy Agent (OPA) policies that decide which shell commands
the worker may run.

Policies are written in Rego and stored in .gpt_worker/policies/*.rego.
A built-in policy approves allow-listed commands; workspace policies add
deny and warn rules on top.

Examples:
  gpt-worker policy init               # Create a sample policy and test
  gpt-worker policy list               # List policy files
  gpt-worker policy check git push     # Evaluate a command line
  gpt-worker policy test               # Run *_test.rego unit tests
  gpt-worker policy log                # Show recent decisions`,
}

var policyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample policy and policy test",
	RunE:  runPolicyInit,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policy files",
	RunE:  runPolicyList,
}

var policyCheckCmd = &cobra.Command{
	Use:   "check <command line>",
	Short: "Evaluate a command line against the policies",
	Long: `Evaluate a command line the way run_command would, without running it.

Exits non-zero when a deny rule fires.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPolicyCheck,
}

var policyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Run policy unit tests",
	RunE:  runPolicyTest,
}

var policyLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent policy decisions",
	RunE:  runPolicyLog,
}

var (
	policyDirectory string
	policyForce     bool
	policyLogLimit  int
)

func init() {
	rootCmd.AddCommand(policyCmd)

	policyCmd.AddCommand(policyInitCmd)
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyCheckCmd)
	policyCmd.AddCommand(policyTestCmd)
	policyCmd.AddCommand(policyLogCmd)

	policyCmd.PersistentFlags().StringVarP(&policyDirectory, "directory", "d", ".", "workspace directory")
	policyInitCmd.Flags().BoolVar(&policyForce, "force", false, "overwrite existing sample files")
	policyLogCmd.Flags().IntVarP(&policyLogLimit, "limit", "n", 20, "number of decisions to show (0 for all)")
}

func runPolicyInit(cmd *cobra.Command, args []string) error {
	root, err := workspaceDir(policyDirectory)
	if err != nil {
		return err
	}
	dir := policy.PoliciesPath(root)
	if err := workspaceFs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create policies directory: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"workspace.rego", policy.SamplePolicy},
		{"workspace_test.rego", policy.SamplePolicyTest},
	}
	out := cmd.OutOrStdout()
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		exists, err := afero.Exists(workspaceFs, path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if exists && !policyForce {
			fmt.Fprintf(out, "Policy file already exists: %s\n", path)
			continue
		}
		if err := afero.WriteFile(workspaceFs, path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "%s Created %s\n", ui.Icon("✓", ui.StyleSuccess), path)
	}
	return nil
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	root, err := workspaceDir(policyDirectory)
	if err != nil {
		return err
	}
	dir := policy.PoliciesPath(root)
	policies, err := policy.NewLoader(workspaceFs, dir).LoadAll()
	if err != nil {
		return fmt.Errorf("load policies: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Built-in functions: %s\n", strings.Join(policy.BuiltinNames, ", "))
	if len(policies) == 0 {
		fmt.Fprintln(out, "No workspace policies. Only the built-in allow-list policy applies.")
		fmt.Fprintln(out, "Run 'gpt-worker policy init' to create a sample policy.")
		return nil
	}

	fmt.Fprintf(out, "Policies directory: %s\n", dir)
	fmt.Fprintln(out, ui.StyleTitle.Render(fmt.Sprintf("Loaded %d policy file(s):", len(policies)))+"\n")
	for _, p := range policies {
		rel, err := filepath.Rel(root, p.Path)
		if err != nil {
			rel = p.Path
		}
		if err := policy.ValidatePolicy(cmd.Context(), p.Content); err != nil {
			fmt.Fprintf(out, "  %s %s (%s): %v\n", ui.Icon("✗", ui.StyleError), p.Name, rel, err)
			continue
		}
		fmt.Fprintf(out, "  • %s (%s)\n", p.Name, rel)
	}
	return nil
}

func runPolicyCheck(cmd *cobra.Command, args []string) error {
	root, err := workspaceDir(policyDirectory)
	if err != nil {
		return err
	}
	engine, err := policy.NewEngine(cmd.Context(), policy.EngineConfig{WorkDir: root, Fs: workspaceFs})
	if err != nil {
		return fmt.Errorf("create policy engine: %w", err)
	}

	line := strings.Join(args, " ")
	decision, err := engine.EvaluateCommand(cmd.Context(), line, viper.GetStringSlice("commands.allowed"), root)
	if err != nil {
		return fmt.Errorf("evaluate policies: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Command: %s\n", line)
	for _, w := range decision.Warnings {
		fmt.Fprintf(out, "%s %s\n", ui.Icon("!", ui.StyleWarning), w)
	}
	switch {
	case decision.IsAllowed():
		fmt.Fprintf(out, "%s allowed\n", ui.Icon("✓", ui.StyleSuccess))
	case decision.NeedsConfirmation():
		fmt.Fprintf(out, "%s needs confirmation (not in the allow-list)\n", ui.Icon("?", ui.StyleWarning))
	default:
		fmt.Fprintf(out, "%s denied\n", ui.Icon("✗", ui.StyleError))
		for _, v := range decision.Violations {
			fmt.Fprintf(out, "  %s\n", v)
		}
		return fmt.Errorf("policy check failed with %d violation(s)", len(decision.Violations))
	}
	return nil
}

func runPolicyTest(cmd *cobra.Command, args []string) error {
	root, err := workspaceDir(policyDirectory)
	if err != nil {
		return err
	}
	runner := policy.NewTestRunner(workspaceFs, policy.PoliciesPath(root))

	out := cmd.OutOrStdout()
	hasTests, err := runner.HasTests()
	if err != nil {
		return fmt.Errorf("find policy tests: %w", err)
	}
	if !hasTests {
		fmt.Fprintln(out, "No policy tests found in", policy.PoliciesPath(root))
		return nil
	}

	summary, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run policy tests: %w", err)
	}
	for _, r := range summary.Results {
		switch {
		case r.Passed:
			fmt.Fprintf(out, "%s %s\n", ui.Icon("✓", ui.StyleSuccess), r.Name)
		case r.Skipped:
			fmt.Fprintf(out, "- %s (skipped)\n", r.Name)
		default:
			fmt.Fprintf(out, "%s %s %s\n", ui.Icon("✗", ui.StyleError), r.Name, r.Error)
		}
	}
	fmt.Fprint(out, summary.FormatSummary())

	if !summary.AllPassed() {
		return fmt.Errorf("%d policy test(s) failed", summary.Failed+summary.Errored)
	}
	return nil
}

func runPolicyLog(cmd *cobra.Command, args []string) error {
	root, err := workspaceDir(policyDirectory)
	if err != nil {
		return err
	}
	decisions, err := policy.NewAuditLog(workspaceFs, policy.AuditPath(root)).List(policyLogLimit)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(decisions) == 0 {
		fmt.Fprintln(out, "No policy decisions recorded.")
		return nil
	}
	for _, d := range decisions {
		line := ""
		if d.Input != nil {
			line = d.Input.Command.Line
		}
		fmt.Fprintf(out, "%s  %-7s  %-8s  %s\n",
			d.EvaluatedAt.Local().Format("2006-01-02 15:04:05"), d.Result, d.Outcome, line)
		for _, v := range d.Violations {
			fmt.Fprintf(out, "    %s\n", v)
		}
	}
	return nil
}
