package state

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTestState(t *testing.T, tasks []Task) (*State, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(fs, "/work", tasks, ""), fs
}

func TestReplacePlan_AssignsPositionalIDs(t *testing.T) {
	st, fs := newTestState(t, nil)

	got, err := st.ReplacePlan([]Task{
		{ID: 7, Name: "a"},
		{ID: 3, Name: "b"},
		{Name: "c", Done: true},
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	for i, task := range got {
		assert.Equal(t, i, task.ID)
	}
	assert.Equal(t, "c", got[2].Name)
	assert.True(t, got[2].Done)

	data, err := afero.ReadFile(fs, PlanPath("/work"))
	require.NoError(t, err)
	var persisted []Task
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, got, persisted)
}

func TestReplacePlan_EmptyListPersistsArray(t *testing.T) {
	st, fs := newTestState(t, []Task{{Name: "old"}})

	got, err := st.ReplacePlan(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, st.Tasks())

	data, err := afero.ReadFile(fs, PlanPath("/work"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestMergePlan(t *testing.T) {
	initial := []Task{
		{Name: "a", Description: "first"},
		{Name: "b", Description: "second"},
		{Name: "c", Description: "third"},
	}

	tests := []struct {
		name        string
		patches     []TaskPatch
		wantUpdated int
		want        []Task
	}{
		{
			name:        "marks one task done",
			patches:     []TaskPatch{{ID: ptr(1), Done: ptr(true)}},
			wantUpdated: 1,
			want: []Task{
				{ID: 0, Name: "a", Description: "first"},
				{ID: 1, Name: "b", Description: "second", Done: true},
				{ID: 2, Name: "c", Description: "third"},
			},
		},
		{
			name:        "unknown id is ignored",
			patches:     []TaskPatch{{ID: ptr(99), Name: ptr("zzz")}},
			wantUpdated: 0,
			want: []Task{
				{ID: 0, Name: "a", Description: "first"},
				{ID: 1, Name: "b", Description: "second"},
				{ID: 2, Name: "c", Description: "third"},
			},
		},
		{
			name:        "patch without id is ignored",
			patches:     []TaskPatch{{Name: ptr("zzz")}},
			wantUpdated: 0,
			want: []Task{
				{ID: 0, Name: "a", Description: "first"},
				{ID: 1, Name: "b", Description: "second"},
				{ID: 2, Name: "c", Description: "third"},
			},
		},
		{
			name: "only supplied fields change",
			patches: []TaskPatch{
				{ID: ptr(0), NextStep: ptr("write tests")},
				{ID: ptr(2), Name: ptr("C"), Done: ptr(true)},
			},
			wantUpdated: 2,
			want: []Task{
				{ID: 0, Name: "a", Description: "first", NextStep: "write tests"},
				{ID: 1, Name: "b", Description: "second"},
				{ID: 2, Name: "C", Description: "third", Done: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, fs := newTestState(t, initial)

			updated, err := st.MergePlan(tt.patches)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdated, updated)
			assert.Equal(t, tt.want, st.Tasks())

			persisted, err := ReadPlan(fs, "/work")
			require.NoError(t, err)
			assert.Equal(t, tt.want, persisted)
		})
	}
}

func TestSetSummary_Persists(t *testing.T) {
	st, fs := newTestState(t, nil)

	require.NoError(t, st.SetSummary("x"))
	assert.Equal(t, "x", st.Summary())

	got, err := ReadSummary(fs, "/work")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestIncompleteAndProgress(t *testing.T) {
	st, _ := newTestState(t, []Task{
		{Name: "a", Done: true},
		{Name: "b"},
		{Name: "c"},
	})

	incomplete := st.Incomplete()
	require.Len(t, incomplete, 2)
	assert.Equal(t, 1, incomplete[0].ID)
	assert.Equal(t, 2, incomplete[1].ID)

	before := st.Progress()
	assert.True(t, before.Equal(st.Progress()))

	// Renaming a task is not progress.
	_, err := st.MergePlan([]TaskPatch{{ID: ptr(1), Name: ptr("renamed")}})
	require.NoError(t, err)
	assert.True(t, before.Equal(st.Progress()))

	_, err = st.MergePlan([]TaskPatch{{ID: ptr(1), Done: ptr(true)}})
	require.NoError(t, err)
	assert.False(t, before.Equal(st.Progress()))
}

func TestTasksReturnsCopy(t *testing.T) {
	st, _ := newTestState(t, []Task{{Name: "a"}})

	tasks := st.Tasks()
	tasks[0].Name = "mutated"
	assert.Equal(t, "a", st.Tasks()[0].Name)
}

func TestInitAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	created, err := Init(fs, "/work")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{PlanPath("/work"), SummaryPath("/work")}, created)

	st, err := Load(fs, "/work")
	require.NoError(t, err)
	assert.Empty(t, st.Tasks())
	assert.Empty(t, st.Summary())

	_, err = st.ReplacePlan([]Task{{Name: "keep me"}})
	require.NoError(t, err)

	// Re-initializing must not clobber existing state.
	created, err = Init(fs, "/work")
	require.NoError(t, err)
	assert.Empty(t, created)

	st, err = Load(fs, "/work")
	require.NoError(t, err)
	require.Len(t, st.Tasks(), 1)
	assert.Equal(t, "keep me", st.Tasks()[0].Name)
}

func TestLoad_MissingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()

	st, err := Load(fs, "/nowhere")
	require.NoError(t, err)
	assert.Empty(t, st.Tasks())

	_, err = ReadPlan(fs, "/nowhere")
	assert.ErrorIs(t, err, ErrNotExist)
	_, err = ReadSummary(fs, "/nowhere")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLoad_InvalidPlan(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(StateDir("/work"), 0o755))
	require.NoError(t, afero.WriteFile(fs, PlanPath("/work"), []byte("{not json"), 0o644))

	_, err := Load(fs, "/work")
	assert.Error(t, err)
}
