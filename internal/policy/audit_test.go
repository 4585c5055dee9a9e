package policy

import (
	"context"
	"testing"

	"github.com/spf13/afero"
)

func TestAuditLog_RecordAndList(t *testing.T) {
	fs := afero.NewMemMapFs()
	log := NewAuditLog(fs, AuditPath("/work"))

	decisions, err := log.List(0)
	if err != nil {
		t.Fatalf("List() on missing file error = %v", err)
	}
	if len(decisions) != 0 {
		t.Fatalf("List() = %d decisions, want 0", len(decisions))
	}

	for _, line := range []string{"ls", "rm x", "cat y"} {
		d := &Decision{Result: ResultConfirm, Input: &Input{Command: ParseCommand(line)}}
		if err := log.Record(d); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if d.DecisionID == "" {
			t.Error("Record() did not assign a DecisionID")
		}
	}

	all, err := log.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("List(0) = %d decisions, want 3", len(all))
	}

	last, err := log.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[1].Input.Command.Line != "cat y" {
		t.Errorf("List(2) = %+v", last)
	}
}

func TestAuditLog_SkipsMalformedLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := AuditPath("/work")
	if err := fs.MkdirAll("/work/.gpt_worker", 0o755); err != nil {
		t.Fatal(err)
	}
	content := "{\"result\":\"allow\"}\nnot json\n{\"result\":\"deny\"}\n"
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	decisions, err := NewAuditLog(fs, path).List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 2 {
		t.Fatalf("List() = %d decisions, want 2", len(decisions))
	}
}

func TestAuditLog_RecordNil(t *testing.T) {
	if err := NewAuditLog(afero.NewMemMapFs(), "/a.jsonl").Record(nil); err == nil {
		t.Error("expected error for nil decision")
	}
}

func TestLoader_SkipsTestsAndNonRego(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := PoliciesPath("/work")
	files := map[string]string{
		dir + "/a.rego":        "package gptworker.policy",
		dir + "/nested/b.rego": "package gptworker.policy",
		dir + "/a_test.rego":   "package gptworker.policy",
		dir + "/README.md":     "docs",
	}
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loader := NewLoader(fs, dir)
	policies, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(policies) != 2 {
		t.Errorf("LoadAll() = %d policies, want 2", len(policies))
	}

	paths, err := loader.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Errorf("ListFiles() = %v, want 3 entries", paths)
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	policies, err := NewLoader(afero.NewMemMapFs(), "/nope").LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(policies) != 0 {
		t.Errorf("LoadAll() = %v, want none", policies)
	}
}

func TestTestRunner_SamplePolicy(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := PoliciesPath("/work")
	if err := afero.WriteFile(fs, dir+"/sample.rego", []byte(SamplePolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, dir+"/sample_test.rego", []byte(SamplePolicyTest), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := NewTestRunner(fs, dir)
	hasTests, err := runner.HasTests()
	if err != nil || !hasTests {
		t.Fatalf("HasTests() = %v, %v", hasTests, err)
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 3 || !summary.AllPassed() {
		t.Errorf("summary = %+v", summary)
	}
}
