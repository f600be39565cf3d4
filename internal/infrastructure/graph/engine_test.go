package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/workflow"
	. "github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/graph"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/llm"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/tools"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/eventbus"
)

func buildGraph(t *testing.T, nodes []workflow.NodeDefinition, conns []workflow.ConnectionDefinition) *workflow.Graph {
	t.Helper()
	g, err := workflow.NewGraph("assistant-1", "test-graph", "1.0.0", "", nodes, conns, nil)
	require.NoError(t, err)
	return g
}

func TestEngine_Execute_LinearGraphCollectsEndNodeOutput(t *testing.T) {
	nodes := []workflow.NodeDefinition{
		{ID: "start", Handle: "start", Type: "Start"},
		{ID: "end", Handle: "end", Type: "End"},
	}
	conns := []workflow.ConnectionDefinition{
		{ID: "c1", SourceNodeID: "start", SourceHandle: "node", TargetNodeID: "end", TargetHandle: "node"},
	}
	g := buildGraph(t, nodes, conns)

	engine := NewEngine(eventbus.New(), nil, nil, nil, nil, nil,
		map[string]llm.Client{}, tools.NewRegistry())

	output, err := engine.Execute(context.Background(), "run-1", g, map[string]interface{}{"message": "hi"}, eventbus.New())

	require.NoError(t, err)
	assert.NotNil(t, output)
}

func TestEngine_Execute_HumanNodePausesWithRequiresAction(t *testing.T) {
	nodes := []workflow.NodeDefinition{
		{ID: "start", Handle: "start", Type: "Start"},
		{ID: "human", Handle: "human", Type: "Human", Config: map[string]interface{}{"reason": "needs approval"}},
	}
	conns := []workflow.ConnectionDefinition{
		{ID: "c1", SourceNodeID: "start", SourceHandle: "node", TargetNodeID: "human", TargetHandle: "node"},
	}
	g := buildGraph(t, nodes, conns)

	engine := NewEngine(eventbus.New(), nil, nil, nil, nil, nil,
		map[string]llm.Client{}, tools.NewRegistry())

	output, err := engine.Execute(context.Background(), "run-1", g, nil, eventbus.New())

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, true, output["requires_action"])
	assert.Equal(t, "human", output["node_id"])
	assert.Equal(t, "needs approval", output["reason"])
}

func TestEngine_Execute_UnknownNodeTypeErrors(t *testing.T) {
	nodes := []workflow.NodeDefinition{
		{ID: "weird", Handle: "weird", Type: "DoesNotExist"},
	}
	g := buildGraph(t, nodes, nil)

	engine := NewEngine(eventbus.New(), nil, nil, nil, nil, nil,
		map[string]llm.Client{}, tools.NewRegistry())

	_, err := engine.Execute(context.Background(), "run-1", g, nil, eventbus.New())

	assert.Error(t, err)
}

func TestEngine_Execute_MissingStartNodeErrors(t *testing.T) {
	nodes := []workflow.NodeDefinition{
		{ID: "end", Handle: "end", Type: "End"},
	}
	g := buildGraph(t, nodes, nil)

	engine := NewEngine(eventbus.New(), nil, nil, nil, nil, nil,
		map[string]llm.Client{}, tools.NewRegistry())

	_, err := engine.Execute(context.Background(), "run-1", g, nil, eventbus.New())

	assert.Error(t, err)
}

func TestEngine_Execute_ConditionFalseBranchKillsDownstreamEndNode(t *testing.T) {
	nodes := []workflow.NodeDefinition{
		{ID: "start", Handle: "start", Type: "Start"},
		{ID: "cond", Handle: "cond", Type: "Condition", Config: map[string]interface{}{"value": false}},
		{ID: "end", Handle: "end", Type: "End"},
	}
	conns := []workflow.ConnectionDefinition{
		{ID: "c1", SourceNodeID: "start", SourceHandle: "node", TargetNodeID: "cond", TargetHandle: "node"},
		{ID: "c2", SourceNodeID: "cond", SourceHandle: "true_path", TargetNodeID: "end", TargetHandle: "node"},
	}
	g := buildGraph(t, nodes, conns)

	engine := NewEngine(eventbus.New(), nil, nil, nil, nil, nil,
		map[string]llm.Client{}, tools.NewRegistry())

	output, err := engine.Execute(context.Background(), "run-1", g, nil, eventbus.New())

	require.NoError(t, err)
	// The End node was reached only via the killed true_path branch, so it
	// never ran and contributes nothing to the collected output.
	assert.Empty(t, output)
}
