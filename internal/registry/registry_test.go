// internal/registry/registry_test.go
package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(5*time.Millisecond, zaptest.NewLogger(t))
	t.Cleanup(r.Close)
	return r
}

func TestCreateExecutionSeedsState(t *testing.T) {
	r := newTestRegistry(t)

	id := r.CreateExecution("research the weather")
	exec, err := r.GetExecution(id)
	require.NoError(t, err)

	assert.Equal(t, schemas.StatusRunning, exec.Status)
	assert.Equal(t, "research the weather", exec.Task)
	require.NotEmpty(t, exec.Thoughts, "a planning thought is seeded at creation")
	assert.Equal(t, schemas.ThoughtPlanning, exec.Thoughts[0].ThoughtType)
	require.NotEmpty(t, exec.Logs, "a log line is seeded at creation")
	assert.Contains(t, exec.Logs[0], "research the weather")
}

func TestProgressionCompletesExecution(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(time.Millisecond, zaptest.NewLogger(t))
	id := r.CreateExecution("demo task")

	// Poll until the background progression finishes.
	require.Eventually(t, func() bool {
		exec, err := r.GetExecution(id)
		return err == nil && exec.Status == schemas.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	exec, err := r.GetExecution(id)
	require.NoError(t, err)
	assert.Equal(t, "All phases completed successfully", exec.FinalResult)
	require.NotNil(t, exec.CompletedAt)

	// Every phase left a completed action and a log line, in declared order.
	require.Len(t, exec.Actions, len(progressionPhases))
	for i, phase := range progressionPhases {
		assert.Equal(t, phase.ActionType, exec.Actions[i].ActionType)
		assert.Equal(t, schemas.StatusCompleted, exec.Actions[i].Status)
		assert.Equal(t, phase.Result, exec.Actions[i].Result)
	}
	assert.Len(t, exec.Thoughts, len(progressionPhases)+1, "seed thought plus one per phase")

	r.Close()
}

func TestDeleteExecutionStopsProgression(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(20*time.Millisecond, zaptest.NewLogger(t))
	id := r.CreateExecution("doomed task")

	require.NoError(t, r.DeleteExecution(id))
	_, err := r.GetExecution(id)
	require.ErrorIs(t, err, ErrNotFound)

	// The in-flight progression notices the deletion and drains.
	r.Close()
}

func TestExecutionNotFound(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.GetExecution("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, r.DeleteExecution("missing"), ErrNotFound)
	_, err = r.AddThought("missing", "x", schemas.ThoughtPlanning)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.AddAction("missing", "browse", "x")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.AddLog("missing", "x"), ErrNotFound)
}

func TestAddThoughtRejectsUnknownType(t *testing.T) {
	r := newTestRegistry(t)
	id := r.CreateExecution("typed")

	_, err := r.AddThought(id, "x", schemas.ThoughtType("daydream"))
	require.ErrorIs(t, err, ErrInvalid)
	_, err = r.AddThought(id, "x", "")
	require.ErrorIs(t, err, ErrInvalid)

	// The rejected thoughts must not have been appended.
	exec, getErr := r.GetExecution(id)
	require.NoError(t, getErr)
	for _, thought := range exec.Thoughts {
		assert.NotEqual(t, schemas.ThoughtType("daydream"), thought.ThoughtType)
		assert.NotEqual(t, schemas.ThoughtType(""), thought.ThoughtType)
	}

	for _, tt := range []schemas.ThoughtType{
		schemas.ThoughtPlanning, schemas.ThoughtAnalysis,
		schemas.ThoughtDecision, schemas.ThoughtObservation,
	} {
		_, err := r.AddThought(id, "x", tt)
		require.NoError(t, err)
	}
}

func TestManualMutators(t *testing.T) {
	r := newTestRegistry(t)
	id := r.CreateExecution("manual")

	thoughtID, err := r.AddThought(id, "observing the page", schemas.ThoughtObservation)
	require.NoError(t, err)
	assert.NotEmpty(t, thoughtID)

	actionID, err := r.AddAction(id, "browse", "open example.com")
	require.NoError(t, err)
	require.NoError(t, r.StartAction(id, actionID))
	require.NoError(t, r.CompleteAction(id, actionID, "", "navigation refused"))

	exec, err := r.GetExecution(id)
	require.NoError(t, err)

	var action *schemas.AgentAction
	for i := range exec.Actions {
		if exec.Actions[i].ID == actionID {
			action = &exec.Actions[i]
		}
	}
	require.NotNil(t, action)
	assert.Equal(t, schemas.StatusFailed, action.Status)
	assert.Equal(t, "navigation refused", action.Error)
	require.NotNil(t, action.StartedAt)
	require.NotNil(t, action.CompletedAt)
}

func TestListExecutionsSnapshots(t *testing.T) {
	r := newTestRegistry(t)
	idA := r.CreateExecution("a")
	idB := r.CreateExecution("b")

	list := r.ListExecutions()
	assert.Len(t, list, 2)

	// Deleting one leaves exactly the other.
	require.NoError(t, r.DeleteExecution(idA))
	list = r.ListExecutions()
	require.Len(t, list, 1)
	assert.Equal(t, idB, list[0].ExecutionID)
}

func TestSnapshotIsolation(t *testing.T) {
	r := newTestRegistry(t)
	id := r.CreateExecution("isolated")

	snap, err := r.GetExecution(id)
	require.NoError(t, err)
	before := len(snap.Logs)

	require.NoError(t, r.AddLog(id, "later line"))
	assert.Len(t, snap.Logs, before, "snapshots must not observe later mutations")
}
