package placeholder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	infraexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/execution"
	. "github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/placeholder"
)

type fakeSecrets struct {
	secrets map[string]string
	envVars map[string]string
}

func (f *fakeSecrets) GetSecret(ctx context.Context, projectID, stage, key string) (string, bool) {
	v, ok := f.secrets[key]
	return v, ok
}

func (f *fakeSecrets) GetEnvVar(ctx context.Context, projectID, stage, key string) (string, bool) {
	v, ok := f.envVars[key]
	return v, ok
}

func newRunContext(state *execution.ExecutionState) *execution.RunContext {
	return execution.NewRunContext(context.Background(), "run-1", "flow-1", "project-1", "nsv-1", state)
}

func TestResolveSecretsAndEnv_SubstitutesKnownSecretAndRecordsForRedaction(t *testing.T) {
	secrets := &fakeSecrets{secrets: map[string]string{"API_KEY": "sk-live-123"}}
	eng := NewEngine(secrets)
	rc := newRunContext(execution.NewExecutionState("run-1"))

	result := eng.ResolveSecretsAndEnv(rc, "Authorization: Bearer <secret:API_KEY>")

	assert.Equal(t, "Authorization: Bearer sk-live-123", result)
	assert.Equal(t, map[string]string{"sk-live-123": "API_KEY"}, rc.SecretsByValue())
}

func TestResolveSecretsAndEnv_MissingSecretYieldsSentinel(t *testing.T) {
	eng := NewEngine(&fakeSecrets{})
	rc := newRunContext(execution.NewExecutionState("run-1"))

	result := eng.ResolveSecretsAndEnv(rc, "<secret:MISSING>")

	assert.Equal(t, "<SECRET::NOT::FOUND>", result)
}

func TestResolveSecretsAndEnv_SubstitutesEnvVar(t *testing.T) {
	secrets := &fakeSecrets{envVars: map[string]string{"REGION": "eu-west-1"}}
	eng := NewEngine(secrets)
	rc := newRunContext(execution.NewExecutionState("run-1"))

	result := eng.ResolveSecretsAndEnv(rc, "<environment:REGION>")

	assert.Equal(t, "eu-west-1", result)
}

func TestResolveSecretsAndEnv_RecursesIntoMapsAndSlices(t *testing.T) {
	secrets := &fakeSecrets{secrets: map[string]string{"TOKEN": "tok-abc"}}
	eng := NewEngine(secrets)
	rc := newRunContext(execution.NewExecutionState("run-1"))

	input := map[string]interface{}{
		"headers": []interface{}{"<secret:TOKEN>", "plain"},
	}

	result := eng.ResolveSecretsAndEnv(rc, input)

	resultMap, ok := result.(map[string]interface{})
	require.True(t, ok)
	headers, ok := resultMap["headers"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "tok-abc", headers[0])
	assert.Equal(t, "plain", headers[1])
}

func TestRenderTemplates_ResolvesHandlePathFromExecutedNode(t *testing.T) {
	state := execution.NewExecutionState("run-1")
	start := infraexec.NewStartNode()
	start.Input["message"] = "world"
	node := execution.NewNodeInstance("start-1", "start", start, false)
	node.MarkProcessed()
	state.RegisterNode(node)

	eng := NewEngine(nil)
	result, err := eng.RenderTemplates(state, nil, "hello {{ start.input.message }}")

	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestRenderTemplates_FallsBackToBackwardDFSForUnreachedHandle(t *testing.T) {
	state := execution.NewExecutionState("run-1")

	// Two nodes register under the same "upstream" handle. reachable is
	// wired into downstream's ancestry and has already executed; shadow is
	// registered afterwards so the handle index's last-write-wins overwrite
	// points at it instead, and it never runs. A direct handle lookup alone
	// would resolve to shadow's (wrong, unprocessed) attributes, so this
	// only passes if lookup rejects that hit and falls back to the
	// backward DFS that finds reachable through downstream's connections.
	reachable := infraexec.NewStartNode()
	reachable.Input["message"] = "reachable"
	reachableInst := execution.NewNodeInstance("up-1", "upstream", reachable, false)
	reachableInst.MarkProcessed()

	shadow := infraexec.NewStartNode()
	shadow.Input["message"] = "shadow"
	shadowInst := execution.NewNodeInstance("up-2", "upstream", shadow, false)

	downstream := execution.NewNodeInstance("down-1", "downstream", infraexec.NewEndNode(), false)

	state.RegisterNode(reachableInst)
	state.RegisterNode(downstream)
	state.RegisterNode(shadowInst)
	state.RegisterConnections([]*execution.Connection{
		execution.NewConnection("c1", "up-1", "node", "down-1", "node"),
	})

	eng := NewEngine(nil)
	result, err := eng.RenderTemplates(state, downstream, "{{ upstream.input.message }}")

	require.NoError(t, err)
	assert.Equal(t, "reachable", result, "lookup must reject the unprocessed handle-index hit and fall back to the backward DFS")
}
