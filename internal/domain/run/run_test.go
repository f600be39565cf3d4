package run_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/run"
)

func TestNewRun_CreatesWithQueuedStatusAndRecordsCreatedEvent(t *testing.T) {
	input := map[string]interface{}{"message": "hi"}

	r, err := run.NewRun("thread-1", "assistant-1", input)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID())
	assert.Equal(t, "thread-1", r.ThreadID())
	assert.Equal(t, "assistant-1", r.AssistantID())
	assert.Equal(t, run.StatusQueued, r.Status())
	assert.Equal(t, input, r.Input())

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, run.EventTypeRunCreated, events[0].EventType())
}

func TestNewRun_RejectsMissingThreadOrAssistantID(t *testing.T) {
	_, err := run.NewRun("", "assistant-1", nil)
	assert.Error(t, err)

	_, err = run.NewRun("thread-1", "", nil)
	assert.Error(t, err)
}

func TestNewRun_DefaultsMultitaskStrategyToReject(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "reject", r.MultitaskStrategy())
}

func TestRun_StartTransitionsToRunningAndRecordsEvent(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	r.ClearEvents()

	require.NoError(t, r.Start())

	assert.True(t, r.Status().Normalize() == run.StatusRunning)
	require.NotNil(t, r.StartedAt())

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, run.EventTypeRunStarted, events[0].EventType())
}

func TestRun_CompleteStoresOutputAndCompletedAt(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	r.ClearEvents()

	output := map[string]interface{}{"result": "ok"}
	require.NoError(t, r.Complete(output))

	assert.True(t, r.Status().Normalize() == run.StatusSuccess)
	assert.Equal(t, output, r.Output())
	require.NotNil(t, r.CompletedAt())

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, run.EventTypeRunCompleted, events[0].EventType())
}

func TestRun_FailStoresErrorMessage(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	require.NoError(t, r.Start())

	require.NoError(t, r.Fail("boom"))

	assert.True(t, r.Status().Normalize() == run.StatusError)
	assert.Equal(t, "boom", r.Error())
}

func TestRun_RejectsInvalidStateTransition(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	require.NoError(t, r.Complete(nil))

	// A completed run is terminal; starting it again must be rejected.
	assert.Error(t, r.Start())
}

func TestRun_RequiresActionThenResumeReturnsToRunning(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	r.ClearEvents()

	require.NoError(t, r.RequiresAction("interrupt-1", "needs approval", nil))
	assert.Equal(t, run.StatusRequiresAction, r.Status())

	require.NoError(t, r.Resume("interrupt-1", []map[string]interface{}{{"output": "approved"}}))
	assert.True(t, r.Status().Normalize() == run.StatusRunning)

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, run.EventTypeRunRequiresAction, events[0].EventType())
	assert.Equal(t, run.EventTypeRunResumed, events[1].EventType())
}

func TestRun_CancelFromQueuedRecordsReason(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	r.ClearEvents()

	require.NoError(t, r.Cancel("user requested"))
	assert.True(t, r.Status().Normalize() == run.StatusCancelled)

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, run.EventTypeRunCancelled, events[0].EventType())
}

func TestRun_ClearEventsEmptiesUncommittedEvents(t *testing.T) {
	r, err := run.NewRun("thread-1", "assistant-1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, r.Events())

	r.ClearEvents()
	assert.Empty(t, r.Events())
}
