package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DirName is the hidden state directory created inside the workspace.
	DirName = ".gpt_worker"
	// PlanFile holds the persisted task list.
	PlanFile = "plan.json"
	// SummaryFile holds the persisted situation summary.
	SummaryFile = "state_summary.md"
)

// ErrNotExist is returned when a state file has never been created.
var ErrNotExist = errors.New("state file does not exist")

// StateDir returns the state directory for a workspace root.
func StateDir(root string) string { return filepath.Join(root, DirName) }

// PlanPath returns the plan.json path for a workspace root.
func PlanPath(root string) string { return filepath.Join(root, DirName, PlanFile) }

// SummaryPath returns the state_summary.md path for a workspace root.
func SummaryPath(root string) string { return filepath.Join(root, DirName, SummaryFile) }

// Init prepares a workspace: it creates the root and state directories and
// seeds an empty plan and summary. Existing state files are left untouched.
// It returns the paths it created.
func Init(fs afero.Fs, root string) ([]string, error) {
	var created []string

	if err := fs.MkdirAll(StateDir(root), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	seeds := []struct {
		path    string
		content string
	}{
		{PlanPath(root), "[]"},
		{SummaryPath(root), ""},
	}
	for _, seed := range seeds {
		exists, err := afero.Exists(fs, seed.path)
		if err != nil {
			return created, fmt.Errorf("stat %s: %w", seed.path, err)
		}
		if exists {
			continue
		}
		if err := afero.WriteFile(fs, seed.path, []byte(seed.content), 0o644); err != nil {
			return created, fmt.Errorf("write %s: %w", seed.path, err)
		}
		created = append(created, seed.path)
	}
	return created, nil
}

// Load reads the workspace state from disk. Missing state files yield an
// empty plan and summary.
func Load(fs afero.Fs, root string) (*State, error) {
	tasks, err := ReadPlan(fs, root)
	if err != nil && !errors.Is(err, ErrNotExist) {
		return nil, err
	}
	summary, err := ReadSummary(fs, root)
	if err != nil && !errors.Is(err, ErrNotExist) {
		return nil, err
	}
	return New(fs, root, tasks, summary), nil
}

// ReadPlan reads plan.json. It returns ErrNotExist when the file is absent.
func ReadPlan(fs afero.Fs, root string) ([]Task, error) {
	data, err := afero.ReadFile(fs, PlanPath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if len(data) == 0 {
		return []Task{}, nil
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PlanPath(root), err)
	}
	return tasks, nil
}

// ReadSummary reads state_summary.md. It returns ErrNotExist when the file is absent.
func ReadSummary(fs afero.Fs, root string) (string, error) {
	data, err := afero.ReadFile(fs, SummaryPath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotExist
		}
		return "", fmt.Errorf("read summary: %w", err)
	}
	return string(data), nil
}
