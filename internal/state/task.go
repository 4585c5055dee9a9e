package state

import "slices"

// Task is a single unit of planned work.
// ID is the task's position in the list at the time the list was last replaced.
type Task struct {
	ID          int    `json:"task_id" yaml:"task_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	NextStep    string `json:"next_step" yaml:"next_step"`
	Done        bool   `json:"done_flg" yaml:"done_flg"`
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	ID          *int    `json:"task_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	NextStep    *string `json:"next_step,omitempty"`
	Done        *bool   `json:"done_flg,omitempty"`
}

// Apply copies every non-nil field of the patch onto t. The task ID is never changed.
func (p TaskPatch) Apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.NextStep != nil {
		t.NextStep = *p.NextStep
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
}

// TaskProgress is the (identifier, done) pair used for stagnation detection.
type TaskProgress struct {
	ID   int
	Done bool
}

// Progress is a snapshot of every task's completion state, in list order.
type Progress []TaskProgress

// Equal reports whether two snapshots are identical.
func (p Progress) Equal(other Progress) bool {
	return slices.Equal(p, other)
}

// numbered returns a copy of tasks with IDs reassigned to 0..n-1 by position.
func numbered(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		t.ID = i
		out[i] = t
	}
	return out
}
