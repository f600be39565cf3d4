package execution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
)

// stubBody is a minimal NodeBody for scheduler tests: it records whether it
// ran and accepts any handle as an overflow attribute so driving/incoming
// connections can bind onto it regardless of handle name, the way a real
// node body with a JSON-sourced config map would.
type stubBody struct {
	class   string
	ran     bool
	execErr error
	attrs   map[string]interface{}
}

func (b *stubBody) ClassName() string { return b.class }
func (b *stubBody) Execute(rc *RunContext) error {
	b.ran = true
	return b.execErr
}
func (b *stubBody) OverflowMap() map[string]interface{} {
	if b.attrs == nil {
		b.attrs = make(map[string]interface{})
	}
	return b.attrs
}

func newState(runID string) *ExecutionState {
	return NewExecutionState(runID)
}

func newRunContext(state *ExecutionState) *RunContext {
	return NewRunContext(context.Background(), "run-1", "flow-1", "project-1", "nsv-1", state)
}

func addNode(state *ExecutionState, id string, body NodeBody) *NodeInstance {
	inst := NewNodeInstance(id, "handle-"+id, body, false)
	state.RegisterNode(inst)
	return inst
}

func TestExecuteNode_LinearChainRunsEachNodeOnce(t *testing.T) {
	state := newState("run-1")
	a := addNode(state, "a", &stubBody{class: "Start"})
	b := addNode(state, "b", &stubBody{class: "Plain"})
	c := addNode(state, "c", &stubBody{class: "End"})

	state.RegisterConnections([]*Connection{
		NewConnection("c1", "a", "node", "b", "node"),
		NewConnection("c2", "b", "node", "c", "node"),
	})

	rc := newRunContext(state)
	require.NoError(t, ExecuteNode(rc, a))

	assert.True(t, a.Body.(*stubBody).ran)
	assert.True(t, b.Body.(*stubBody).ran)
	assert.True(t, c.Body.(*stubBody).ran)
	assert.True(t, a.IsProcessed())
	assert.True(t, b.IsProcessed())
	assert.True(t, c.IsProcessed())
}

func TestExecuteNode_IsIdempotentOnAlreadyProcessedNode(t *testing.T) {
	state := newState("run-1")
	a := addNode(state, "a", &stubBody{class: "Start"})

	rc := newRunContext(state)
	require.NoError(t, ExecuteNode(rc, a))
	require.NoError(t, ExecuteNode(rc, a))

	assert.True(t, a.Body.(*stubBody).ran)
}

func TestExecuteNode_PendingNodeIsLeftUntouched(t *testing.T) {
	state := newState("run-1")
	a := addNode(state, "a", &stubBody{class: "Human"})
	a.SetPending(true)

	rc := newRunContext(state)
	require.NoError(t, ExecuteNode(rc, a))

	assert.False(t, a.Body.(*stubBody).ran)
	assert.False(t, a.IsProcessed())
	assert.True(t, a.IsPending())
}

func TestExecuteNode_KillsForwardWhenAllDrivingConnectionsAreKillers(t *testing.T) {
	state := newState("run-1")
	a := addNode(state, "a", &stubBody{class: "Start"})
	b := addNode(state, "b", &stubBody{class: "Plain"})
	c := addNode(state, "c", &stubBody{class: "End"})

	drive := NewConnection("c1", "a", "node", "b", "node")
	drive.MakeKiller()
	state.RegisterConnections([]*Connection{
		drive,
		NewConnection("c2", "b", "node", "c", "node"),
	})

	rc := newRunContext(state)
	require.NoError(t, ExecuteNode(rc, b))

	assert.True(t, b.IsKilled())
	assert.False(t, b.Body.(*stubBody).ran)
	// kill must propagate forward onto c as well.
	assert.True(t, c.IsKilled())
	for _, conn := range b.OutConnections() {
		assert.True(t, conn.IsKiller())
	}
}

// branchBody mimics a Condition node's public true_path/false_path
// attributes so applyBranchFanOut can be exercised through the scheduler.
type branchBody struct {
	TruePath  bool `node:"true_path"`
	FalsePath bool `node:"false_path"`
}

func (b *branchBody) ClassName() string               { return "Condition" }
func (b *branchBody) Execute(rc *RunContext) error { return nil }

func TestExecuteNode_ConditionFalsePathKillsTruePathSuccessors(t *testing.T) {
	state := newState("run-1")
	cond := addNode(state, "cond", &branchBody{TruePath: false, FalsePath: false})
	onTrue := addNode(state, "onTrue", &stubBody{class: "Plain"})

	state.RegisterConnections([]*Connection{
		{UUID: "c1", SourceNodeID: "cond", SourceHandle: "true_path", TargetNodeID: "onTrue", TargetHandle: "true_path"},
	})

	rc := newRunContext(state)
	require.NoError(t, ExecuteNode(rc, cond))

	for _, c := range cond.OutConnectionsOnTruePath() {
		assert.True(t, c.IsKiller(), "connections on the true_path branch must be killed when true_path is falsy")
	}
	_ = onTrue
}

func TestSnipe_ResurrectsLoopBodyAndTruncatesJournal(t *testing.T) {
	state := newState("run-1")
	jump := addNode(state, "jump", &stubBody{class: "Jump"})
	body := addNode(state, "body", &stubBody{class: "Plain"})

	state.RegisterConnections([]*Connection{
		NewConnection("c1", "jump", "node", "body", "node"),
	})

	rc := newRunContext(state)
	require.NoError(t, ExecuteNode(rc, jump))
	firstOrder := rc.NodesOrder()
	require.NotEmpty(t, firstOrder)

	// Matches wireLoops: FindNodesInLoop's collected body excludes the
	// origin (Jump) node itself, so Snipe is responsible for resurrecting
	// the restart target separately from the discovered interior body.
	require.NoError(t, Snipe(rc, jump, []*NodeInstance{body}))

	assert.True(t, jump.IsProcessed())
	assert.True(t, body.IsProcessed())
	assert.NotEmpty(t, rc.NodesOrder(), "re-execution after truncation should re-append journal entries")
}
