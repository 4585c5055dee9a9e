/*
Package state holds the run-scoped shared state: the task list, the free-text
situation summary and the workspace root. Every tool invocation in a run reads
and mutates the same *State, and every successful mutation is persisted to the
workspace's state directory before it returns.

A State has a single owner per run and is not safe for concurrent use.
*/
package state

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// State is the single source of truth the agents build prompts from.
type State struct {
	fs      afero.Fs
	root    string
	tasks   []Task
	summary string
}

// New creates a State over the given filesystem and workspace root.
// Task IDs are renumbered by position.
func New(fs afero.Fs, root string, tasks []Task, summary string) *State {
	return &State{
		fs:      fs,
		root:    root,
		tasks:   numbered(tasks),
		summary: summary,
	}
}

// Root returns the workspace root directory.
func (s *State) Root() string { return s.root }

// Fs returns the filesystem the workspace lives on.
func (s *State) Fs() afero.Fs { return s.fs }

// Dir returns the hidden state directory inside the workspace.
func (s *State) Dir() string { return StateDir(s.root) }

// Summary returns the current situation summary.
func (s *State) Summary() string { return s.summary }

// Tasks returns a copy of the current task list.
func (s *State) Tasks() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Incomplete returns the tasks whose done flag is false.
func (s *State) Incomplete() []Task {
	var out []Task
	for _, t := range s.tasks {
		if !t.Done {
			out = append(out, t)
		}
	}
	return out
}

// Progress snapshots the (identifier, done) pair of every task.
func (s *State) Progress() Progress {
	p := make(Progress, len(s.tasks))
	for i, t := range s.tasks {
		p[i] = TaskProgress{ID: t.ID, Done: t.Done}
	}
	return p
}

// ReplacePlan replaces the task list wholesale. IDs are assigned 0..n-1 by
// position, the list is persisted to plan.json and only then becomes current.
func (s *State) ReplacePlan(tasks []Task) ([]Task, error) {
	next := numbered(tasks)
	if err := s.writePlan(next); err != nil {
		return nil, err
	}
	s.tasks = next
	return s.Tasks(), nil
}

// MergePlan applies each patch to the existing task with the same ID.
// Patches without an ID or with an unknown ID are ignored; tasks without a
// matching patch are left untouched. It returns the number of updated tasks.
func (s *State) MergePlan(patches []TaskPatch) (int, error) {
	next := s.Tasks()
	updated := 0
	for i := range next {
		for _, p := range patches {
			if p.ID == nil || *p.ID != next[i].ID {
				continue
			}
			p.Apply(&next[i])
			updated++
			break
		}
	}
	if err := s.writePlan(next); err != nil {
		return 0, err
	}
	s.tasks = next
	return updated, nil
}

// SetSummary overwrites the situation summary and persists it.
func (s *State) SetSummary(text string) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, SummaryPath(s.root), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	s.summary = text
	return nil
}

// TasksJSON renders the task list for prompts.
func (s *State) TasksJSON() string {
	data, err := json.MarshalIndent(nonNil(s.tasks), "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func (s *State) writePlan(tasks []Task) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(nonNil(tasks), "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := afero.WriteFile(s.fs, PlanPath(s.root), data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

func (s *State) ensureDir() error {
	if err := s.fs.MkdirAll(filepath.Join(s.root, DirName), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	return nil
}

func nonNil(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	return tasks
}
