package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
)

func nodeIDs(nodes []*NodeInstance) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestFindNodesForJump_StopsAtFirstJumpNode(t *testing.T) {
	state := newState("run-1")
	start := addNode(state, "start", &stubBody{class: "Start"})
	addNode(state, "mid", &stubBody{class: "Plain"})
	addNode(state, "jump", &stubBody{class: "Jump"})
	addNode(state, "beyond", &stubBody{class: "Plain"})

	state.RegisterConnections([]*Connection{
		NewConnection("c1", "start", "node", "mid", "node"),
		NewConnection("c2", "mid", "node", "jump", "node"),
		NewConnection("c3", "jump", "node", "beyond", "node"),
	})

	found, terminator := FindNodesForJump(state, start)

	require.NotNil(t, terminator)
	assert.Equal(t, "jump", terminator.ID)

	ids := nodeIDs(found)
	assert.NotContains(t, ids, "start", "the origin node is where the walk starts, not something it discovers")
	assert.Contains(t, ids, "mid")
	assert.NotContains(t, ids, "jump", "the terminator is returned separately, not folded into the collected body")
	assert.NotContains(t, ids, "beyond", "traversal must stop at the Jump node, not continue past it")
}

func TestFindNodesInLoop_MarksVisitedNodesInLoopAndStopsAtLoopEnd(t *testing.T) {
	state := newState("run-1")
	jump := addNode(state, "jump", &stubBody{class: "Jump"})
	body1 := addNode(state, "body1", &stubBody{class: "Plain"})
	body2 := addNode(state, "body2", &stubBody{class: "Plain"})
	loopEnd := addNode(state, "loopEnd", &stubBody{class: "LoopEnd"})
	after := addNode(state, "after", &stubBody{class: "Plain"})

	state.RegisterConnections([]*Connection{
		NewConnection("c1", "jump", "node", "body1", "node"),
		NewConnection("c2", "body1", "node", "body2", "node"),
		NewConnection("c3", "body2", "node", "loopEnd", "node"),
		NewConnection("c4", "loopEnd", "node", "after", "node"),
	})

	found, terminator := FindNodesInLoop(state, jump)

	require.NotNil(t, terminator)
	assert.Equal(t, "loopEnd", terminator.ID)

	ids := nodeIDs(found)
	assert.NotContains(t, ids, "jump", "the origin Jump node is not part of its own loop body")
	assert.Contains(t, ids, "body1")
	assert.Contains(t, ids, "body2")
	assert.NotContains(t, ids, "loopEnd", "the terminator is returned separately, not folded into the collected body")
	assert.NotContains(t, ids, "after")

	assert.False(t, jump.IsInLoop(), "the Jump node itself is not tagged in_loop")
	assert.True(t, body1.IsInLoop())
	assert.True(t, body2.IsInLoop())
	assert.False(t, loopEnd.IsInLoop(), "the LoopEnd node itself is not tagged in_loop")
	assert.False(t, after.IsInLoop())
}

func TestFindNodesInLoop_DoesNotDescendPastListLoopNodes(t *testing.T) {
	state := newState("run-1")
	jump := addNode(state, "jump", &stubBody{class: "Jump"})
	addNode(state, "listLoop", &stubBody{class: "ListLoopEach"})
	addNode(state, "hidden", &stubBody{class: "Plain"})

	state.RegisterConnections([]*Connection{
		NewConnection("c1", "jump", "node", "listLoop", "node"),
		NewConnection("c2", "listLoop", "node", "hidden", "node"),
	})

	found, terminator := FindNodesInLoop(state, jump)

	assert.Nil(t, terminator, "no LoopEnd node exists to reach")

	ids := nodeIDs(found)
	assert.NotContains(t, ids, "jump")
	assert.NotContains(t, ids, "listLoop", "a skip-matched node is excluded entirely, not just left undescended")
	assert.NotContains(t, ids, "hidden", "traversal must not descend past a ListLoop* node")
}

func TestFindNodesInListLoop_StopsAtListLoopEndAndMarksBody(t *testing.T) {
	state := newState("run-1")
	start := addNode(state, "listStart", &stubBody{class: "ListLoopStart"})
	body := addNode(state, "body", &stubBody{class: "Plain"})
	end := addNode(state, "listEnd", &stubBody{class: "ListLoopEnd"})
	after := addNode(state, "after", &stubBody{class: "Plain"})

	state.RegisterConnections([]*Connection{
		NewConnection("c1", "listStart", "node", "body", "node"),
		NewConnection("c2", "body", "node", "listEnd", "node"),
		NewConnection("c3", "listEnd", "node", "after", "node"),
	})

	found, terminator := FindNodesInListLoop(state, start)

	require.NotNil(t, terminator)
	assert.Equal(t, "listEnd", terminator.ID)

	ids := nodeIDs(found)
	assert.NotContains(t, ids, "listStart")
	assert.Contains(t, ids, "body")
	assert.NotContains(t, ids, "listEnd")
	assert.NotContains(t, ids, "after")

	assert.True(t, body.IsInLoop())
	assert.False(t, end.IsInLoop())
}
