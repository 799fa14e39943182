package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun("books", "config_books.yaml")
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.False(t, run.IsFinished())
	assert.Zero(t, run.Duration())

	run.MarkRunning()
	require.NotNil(t, run.StartedAt)
	assert.Equal(t, RunStatusRunning, run.Status)

	run.MarkSucceeded([]any{"a"})
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.IsFinished())
	assert.Equal(t, []any{"a"}, run.Output)
	assert.GreaterOrEqual(t, run.Duration().Nanoseconds(), int64(0))
}

func TestRun_MarkFailed(t *testing.T) {
	run := NewRun("books", "")
	run.MarkRunning()
	run.MarkFailed("step 2 (fetch): boom")

	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "step 2 (fetch): boom", run.Error)
	assert.True(t, run.IsFinished())
}

func TestRunStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusPending, false},
		{RunStatusRunning, false},
		{RunStatusSucceeded, true},
		{RunStatusFailed, true},
		{RunStatusCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}
