package execution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	. "github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/execution"
)

func TestStartNode_ExposesInputAsAttribute(t *testing.T) {
	n := NewStartNode()
	n.Input["message"] = "hello"

	value, ok := domexec.GetAttribute(n, "input")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"message": "hello"}, value)
}

func TestEndNode_CollectsOutput(t *testing.T) {
	n := NewEndNode()
	require.NoError(t, domexec.SetAttribute(n, "output", map[string]interface{}{"result": "ok"}))
	assert.Equal(t, "ok", n.Output["result"])
}

func TestConditionNode_DerivesBranchAttributesFromValue(t *testing.T) {
	n := NewConditionNode()
	n.Value = true

	require.NoError(t, n.Execute(nil))
	assert.True(t, n.TruePath)
	assert.False(t, n.FalsePath)

	n.Value = false
	require.NoError(t, n.Execute(nil))
	assert.False(t, n.TruePath)
	assert.True(t, n.FalsePath)
}

func TestConditionNode_ExpressionRefinesTheBoundValue(t *testing.T) {
	n := NewConditionNode()
	n.Value = true
	n.Expression = "!value"

	require.NoError(t, n.Execute(nil))
	assert.False(t, n.TruePath)
	assert.True(t, n.FalsePath)
}

func TestConditionNode_ExpressionErrorsWhenNotBoolean(t *testing.T) {
	n := NewConditionNode()
	n.Expression = "1 + 1"

	err := n.Execute(nil)
	assert.Error(t, err)
}

func TestConditionNode_ExpressionErrorsOnInvalidSyntax(t *testing.T) {
	n := NewConditionNode()
	n.Expression = "value &&"

	err := n.Execute(nil)
	assert.Error(t, err)
}

func TestHumanNode_MarksOwningInstancePendingUntilResolved(t *testing.T) {
	body := NewHumanNode()
	instance := domexec.NewNodeInstance("human-1", "human-1", body, false)
	body.Bind(instance)

	require.NoError(t, body.Execute(nil))
	assert.True(t, instance.IsPending())

	body.Resolved = map[string]interface{}{"approved": true}
	require.NoError(t, body.Execute(nil))
}

func TestHumanNode_ExecuteErrorsWhenUnbound(t *testing.T) {
	body := NewHumanNode()
	err := body.Execute(nil)
	assert.Error(t, err)
}

func TestLoopEndNode_SnipesBackToBoundJumpUntilMaxIterations(t *testing.T) {
	state := domexec.NewExecutionState("run-1")

	jumpBody := NewJumpNode()
	jumpInst := domexec.NewNodeInstance("jump", "jump", jumpBody, false)
	state.RegisterNode(jumpInst)

	loopEndBody := NewLoopEndNode()
	loopEndBody.MaxIterations = 2
	loopEndInst := domexec.NewNodeInstance("loopEnd", "loopEnd", loopEndBody, false)
	state.RegisterNode(loopEndInst)

	state.RegisterConnections([]*domexec.Connection{
		domexec.NewConnection("c1", "jump", "node", "loopEnd", "node"),
	})

	// The bound body holds only the loop's interior nodes — neither the
	// Jump restart target nor the LoopEnd node itself — since that's what
	// the graph's loop discovery now hands wireLoops.
	loopEndBody.BindLoop(jumpInst, nil)

	rc := domexec.NewRunContext(nil, "run-1", "flow-1", "project-1", "nsv-1", state)

	// The scheduler marks a node processed before running its body, so the
	// re-run jump node's forward pass does not execute loopEnd a second time.
	loopEndInst.MarkProcessed()

	// First iteration: snipes back to jump, re-running it. Exercised through
	// loopEndInst.Body rather than the loopEndBody variable directly, so a
	// Resurrect that swapped the instance's Body wouldn't go unnoticed.
	require.NoError(t, loopEndInst.Body.Execute(rc))
	assert.True(t, jumpInst.IsProcessed(), "Snipe should resurrect and re-run the bound jump node")
	assert.Equal(t, 1, loopEndBody.Iterations())

	// Second call reaches MaxIterations and falls through without sniping.
	loopEndInst.MarkProcessed()
	require.NoError(t, loopEndInst.Body.Execute(rc))
	assert.Equal(t, 2, loopEndBody.Iterations())
}

func TestListLoopEndNode_SnipesBackToBoundListLoopStartUntilMaxIterations(t *testing.T) {
	state := domexec.NewExecutionState("run-1")

	startBody := NewListLoopStartNode()
	startInst := domexec.NewNodeInstance("listStart", "listStart", startBody, false)
	state.RegisterNode(startInst)

	endBody := NewListLoopEndNode()
	endBody.MaxIterations = 2
	endInst := domexec.NewNodeInstance("listEnd", "listEnd", endBody, false)
	state.RegisterNode(endInst)

	state.RegisterConnections([]*domexec.Connection{
		domexec.NewConnection("c1", "listStart", "node", "listEnd", "node"),
	})

	endBody.BindLoop(startInst, nil)

	rc := domexec.NewRunContext(nil, "run-1", "flow-1", "project-1", "nsv-1", state)

	endInst.MarkProcessed()

	require.NoError(t, endInst.Body.Execute(rc))
	assert.True(t, startInst.IsProcessed(), "Snipe should resurrect and re-run the bound ListLoopStart node")
	assert.Equal(t, 1, endBody.Iterations())

	endInst.MarkProcessed()
	require.NoError(t, endInst.Body.Execute(rc))
	assert.Equal(t, 2, endBody.Iterations())
}

func TestVariableSecretNode_ResolvesTruePathAsLiteralKey(t *testing.T) {
	state := domexec.NewExecutionState("run-1")
	rc := domexec.NewRunContext(context.Background(), "run-1", "flow-1", "project-1", "nsv-1", state)
	rc.Secrets = &literalSecrets{secrets: map[string]string{"API_KEY": "sk-live-123"}}

	n := NewVariableSecretNode()
	n.TruePath = "API_KEY"

	require.NoError(t, n.Execute(rc))
	assert.Equal(t, "sk-live-123", n.Resolved)
	assert.Equal(t, map[string]string{"sk-live-123": "API_KEY"}, rc.SecretsByValue())
}

func TestVariableSecretNode_FallsBackToKeyWhenTruePathEmpty(t *testing.T) {
	state := domexec.NewExecutionState("run-1")
	rc := domexec.NewRunContext(context.Background(), "run-1", "flow-1", "project-1", "nsv-1", state)
	rc.Secrets = &literalSecrets{secrets: map[string]string{"API_KEY": "sk-live-123"}}

	n := NewVariableSecretNode()
	n.Key = "API_KEY"

	require.NoError(t, n.Execute(rc))
	assert.Equal(t, "sk-live-123", n.Resolved)
}

func TestVariableEnvironmentNode_ResolvesTruePathAsLiteralKey(t *testing.T) {
	state := domexec.NewExecutionState("run-1")
	rc := domexec.NewRunContext(context.Background(), "run-1", "flow-1", "project-1", "nsv-1", state)
	rc.Secrets = &literalSecrets{envVars: map[string]string{"REGION": "eu-west-1"}}

	n := NewVariableEnvironmentNode()
	n.TruePath = "REGION"

	require.NoError(t, n.Execute(rc))
	assert.Equal(t, "eu-west-1", n.Resolved)
}

type literalSecrets struct {
	secrets map[string]string
	envVars map[string]string
}

func (f *literalSecrets) GetSecret(ctx context.Context, projectID, stage, key string) (string, bool) {
	v, ok := f.secrets[key]
	return v, ok
}

func (f *literalSecrets) GetEnvVar(ctx context.Context, projectID, stage, key string) (string, bool) {
	v, ok := f.envVars[key]
	return v, ok
}
