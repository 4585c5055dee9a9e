package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher(t *testing.T) {
	st := newMemState(t)
	d := NewDispatcher(Catalog(nil).Subset(MakePlanName, UpdateSituationName), st)

	t.Run("executes offered tool", func(t *testing.T) {
		env, err := d.Dispatch(context.Background(), UpdateSituationName, `{"state_summary":"x"}`)
		require.NoError(t, err)
		assert.True(t, env.Success)
		assert.Equal(t, "x", st.Summary())
	})

	t.Run("malformed arguments fail the call", func(t *testing.T) {
		env, err := d.Dispatch(context.Background(), MakePlanName, `{"tasklist": [`)
		require.NoError(t, err)
		assert.False(t, env.Success)
		assert.Contains(t, env.Content, "Failed to parse arguments")
	})

	t.Run("non-object arguments fail the call", func(t *testing.T) {
		env, err := d.Dispatch(context.Background(), MakePlanName, `[1,2]`)
		require.NoError(t, err)
		assert.False(t, env.Success)
	})

	t.Run("empty arguments are an empty object", func(t *testing.T) {
		env, err := d.Dispatch(context.Background(), UpdateSituationName, "")
		require.NoError(t, err)
		assert.False(t, env.Success)
		assert.Equal(t, "state_summary is required", env.Content)
	})

	t.Run("tool not offered", func(t *testing.T) {
		_, err := d.Dispatch(context.Background(), ReadFileName, `{"path":"a"}`)
		assert.ErrorIs(t, err, ErrToolNotFound)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := d.Dispatch(context.Background(), "delete_everything", `{}`)
		assert.ErrorIs(t, err, ErrToolNotFound)
	})
}

func TestEnvelopeJSON(t *testing.T) {
	assert.JSONEq(t, `{"success":true,"content":"hi"}`, Ok("hi").JSON())
	assert.JSONEq(t, `{"success":false,"content":"boom"}`, Fail("boom").JSON())
	assert.JSONEq(t, `{"success":true,"path":"/w/a"}`, Envelope{Success: true, Path: "/w/a"}.JSON())
}
