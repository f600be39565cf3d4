package execution

import "context"

// ResultRecorder persists per-run execution artifacts. Implementations
// live in infrastructure (Postgres-backed in this module, DynamoDB in the
// system this was grounded on).
type ResultRecorder interface {
	StoreNodeResult(ctx context.Context, flowID, runID string, node *NodeInstance, order int, stage, subStage string, secretsByValue map[string]string) error
	StoreConnectionsResult(ctx context.Context, runID string, conns []*Connection) error
	StoreMockNodesResult(ctx context.Context, runID string, nodes []*NodeInstance) error
	ClearPreviousExecution(ctx context.Context, flowID, currentRunID string) error
}

// EventEmitter fires fire-and-forget run progress notifications.
type EventEmitter interface {
	SendFlowEvent(ctx context.Context, flowID, runID, nodeID, eventType string, order int, status string)
	SendInteractionEvent(ctx context.Context, flowID, runID, nodeID, interactionType string, data map[string]interface{}, tenantID, userID string)
}

// ListenerCache answers whether a frontend mock listener is currently
// attached for a given node setup version, gating whether "mock" stage
// events are worth emitting at all.
type ListenerCache interface {
	HasListener(ctx context.Context, nodeSetupVersionID string, requiredStage string) bool
}

// SecretResolver resolves a <secret:KEY>/<environment:KEY> placeholder to
// its concrete value for a given project/stage, or reports it missing.
type SecretResolver interface {
	GetSecret(ctx context.Context, projectID, stage, key string) (string, bool)
	GetEnvVar(ctx context.Context, projectID, stage, key string) (string, bool)
}

// PlaceholderResolver performs the two substitution passes a node's
// attributes go through before Execute runs: secret/environment
// placeholder substitution, and {{ handle.path }} template rendering
// against the run's node attribute tables.
type PlaceholderResolver interface {
	ResolveSecretsAndEnv(rc *RunContext, value interface{}) interface{}
	RenderTemplates(state *ExecutionState, origin *NodeInstance, value interface{}) (interface{}, error)
}

// RunContext is the per-run execution context threaded through every
// ExecuteNode call: it is the Go analogue of the original's per-run
// Context object, carrying identity, stage selection, and the side-effect
// ports a node's Execute implementation may need without requiring every
// node body to import the infrastructure layer directly.
type RunContext struct {
	Context context.Context

	RunID               string
	FlowID              string
	ProjectID           string
	NodeSetupVersionID  string
	Stage               string // "mock" or "real"
	SubStage            string // defaults to "mock"
	TriggerNodeID       string

	State         *ExecutionState
	Recorder      ResultRecorder
	Events        EventEmitter
	Listeners     ListenerCache
	Secrets       SecretResolver
	Placeholders  PlaceholderResolver

	secretsMap map[string]string // resolved secret value -> key, for redaction
	nodesOrder []nodeOrderEntry
}

type nodeOrderEntry struct {
	NodeID string
	Order  int
}

// NewRunContext builds a fresh run context. Stage/subStage follow the
// original's "mock" default.
func NewRunContext(ctx context.Context, runID, flowID, projectID, nodeSetupVersionID string, state *ExecutionState) *RunContext {
	return &RunContext{
		Context:             ctx,
		RunID:               runID,
		FlowID:              flowID,
		ProjectID:           projectID,
		NodeSetupVersionID:  nodeSetupVersionID,
		Stage:               "mock",
		SubStage:            "mock",
		State:               state,
		secretsMap:          make(map[string]string),
	}
}

// EffectiveStage mirrors the original's get_effective_stage: when running
// in "mock" stage with a non-"mock" sub-stage selected, the sub-stage wins.
func (rc *RunContext) EffectiveStage() string {
	if rc.Stage == "mock" && rc.SubStage != "mock" {
		return rc.SubStage
	}
	return rc.Stage
}

// RecordSecret registers a resolved secret's value under its key so the
// result recorder can redact it from stored output later.
func (rc *RunContext) RecordSecret(key, value string) {
	if value == "" {
		return
	}
	rc.secretsMap[value] = key
}

// SecretsByValue returns the accumulated value->key map for redaction.
func (rc *RunContext) SecretsByValue() map[string]string {
	out := make(map[string]string, len(rc.secretsMap))
	for k, v := range rc.secretsMap {
		out[k] = v
	}
	return out
}

// AppendNodesOrder records a node's position in the run's execution
// journal and returns its assigned order (0-based, matching
// len(nodes_order) at append time in the original).
func (rc *RunContext) AppendNodesOrder(nodeID string) int {
	order := len(rc.nodesOrder)
	rc.nodesOrder = append(rc.nodesOrder, nodeOrderEntry{NodeID: nodeID, Order: order})
	return order
}

// NodesOrder returns the accumulated execution journal.
func (rc *RunContext) NodesOrder() []nodeOrderEntry {
	return rc.nodesOrder
}

// TruncateNodesOrderAfter drops every journal entry for the given node and
// everything appended after it, used by Snipe when a loop iteration
// restarts from a node already present in the journal.
func (rc *RunContext) TruncateNodesOrderAfter(nodeID string) {
	for i, entry := range rc.nodesOrder {
		if entry.NodeID == nodeID {
			rc.nodesOrder = rc.nodesOrder[:i]
			return
		}
	}
}
