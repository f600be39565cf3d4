package graph

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/workflow"
	infraexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/execution"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/llm"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/streaming"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/tools"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/errors"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/eventbus"
)

var tracer = otel.Tracer("polysynergy/graph")

// Engine drives a workflow.Graph through the domain/execution scheduler:
// it hydrates NodeDefinitions into NodeInstances via a node-type factory,
// registers them and their connections into a fresh ExecutionState, and
// calls execution.ExecuteNode on the graph's Start node. Everything about
// *how* a node reaches its neighbours, binds its attributes, and fans out
// kill propagation lives in domain/execution; the Engine's job is wiring a
// persisted graph definition into that scheduler and translating its
// outcome back into the run_service's requires_action/output contract.
type Engine struct {
	eventBus     *eventbus.EventBus
	recorder     execution.ResultRecorder
	events       execution.EventEmitter
	listeners    execution.ListenerCache
	secrets      execution.SecretResolver
	placeholders execution.PlaceholderResolver
	llmClients   map[string]llm.Client
	tools        *tools.Registry
}

// NewEngine wires a graph execution engine against its supporting
// infrastructure. Any of recorder/events/listeners/secrets/placeholders
// may be nil, in which case the corresponding side effect is skipped for
// the run (useful for tests that only care about scheduling).
func NewEngine(
	eventBus *eventbus.EventBus,
	recorder execution.ResultRecorder,
	events execution.EventEmitter,
	listeners execution.ListenerCache,
	secrets execution.SecretResolver,
	placeholders execution.PlaceholderResolver,
	llmClients map[string]llm.Client,
	toolRegistry *tools.Registry,
) *Engine {
	return &Engine{
		eventBus:     eventBus,
		recorder:     recorder,
		events:       events,
		listeners:    listeners,
		secrets:      secrets,
		placeholders: placeholders,
		llmClients:   llmClients,
		tools:        toolRegistry,
	}
}

// Execute runs a graph to completion or to its first human-interaction
// pause and returns the End node's collected output, or a
// requires_action/node_id/reason triple when a Human node parked the run.
func (e *Engine) Execute(ctx context.Context, runID string, g *workflow.Graph, input map[string]interface{}, eventBus *eventbus.EventBus) (map[string]interface{}, error) {
	state, startNode, err := e.buildState(runID, g)
	if err != nil {
		return nil, err
	}

	if sn, ok := startNode.Body.(*infraexec.StartNode); ok {
		for k, v := range input {
			sn.Input[k] = v
		}
	}

	rc := execution.NewRunContext(ctx, runID, g.ID(), g.AssistantID(), g.Version(), state)
	rc.Recorder = e.recorder
	rc.Events = e.events
	rc.Listeners = e.listeners
	rc.Secrets = e.secrets
	rc.Placeholders = e.placeholders
	rc.TriggerNodeID = startNode.ID
	if stage, ok := input["stage"].(string); ok && stage != "" {
		rc.Stage = stage
	}
	if sub, ok := input["sub_stage"].(string); ok && sub != "" {
		rc.SubStage = sub
	}

	if e.recorder != nil {
		_ = e.recorder.ClearPreviousExecution(ctx, rc.FlowID, runID)
	}

	spanCtx, span := tracer.Start(ctx, "execute_node", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("node_id", startNode.ID),
		attribute.String("graph_id", g.ID()),
	))
	defer span.End()
	rc.Context = spanCtx

	startTime := time.Now()
	eventBus.Publish(ctx, execution.NodeStarted{
		RunID: runID, NodeID: startNode.ID, NodeType: "Start", Input: input, OccurredAt: startTime,
	})

	if err := execution.ExecuteNode(rc, startNode); err != nil {
		eventBus.Publish(ctx, execution.NodeFailed{
			RunID: runID, NodeID: startNode.ID, NodeType: "Start", Error: err.Error(), Input: input, OccurredAt: time.Now(),
		})
		return nil, err
	}

	if e.recorder != nil {
		_ = e.recorder.StoreConnectionsResult(ctx, runID, state.Connections())
		_ = e.recorder.StoreMockNodesResult(ctx, runID, state.Nodes())
	}

	for _, n := range state.Nodes() {
		if !n.IsPending() && !n.IsBlocking() {
			continue
		}
		reason := ""
		message := fmt.Sprintf("awaiting external resolution at node %s", n.ID)
		if hn, ok := n.Body.(*infraexec.HumanNode); ok {
			reason = hn.Reason
			message = fmt.Sprintf("awaiting human interaction at node %s", n.ID)
		}
		streaming.EmitDebugEvent(eventBus, ctx, runID, "info", message,
			map[string]interface{}{"node_id": n.ID})
		return map[string]interface{}{
			"requires_action": true,
			"node_id":         n.ID,
			"reason":          reason,
		}, nil
	}

	output := make(map[string]interface{})
	for _, n := range state.Nodes() {
		if n.IsKilled() {
			continue
		}
		if en, ok := n.Body.(*infraexec.EndNode); ok {
			for k, v := range en.Output {
				output[k] = v
			}
		}
	}

	eventBus.Publish(ctx, execution.NodeCompleted{
		RunID: runID, NodeID: startNode.ID, NodeType: "Start", Output: output,
		DurationMs: time.Since(startTime).Milliseconds(), OccurredAt: time.Now(),
	})
	streaming.EmitValuesEvent(eventBus, ctx, runID, output)

	return output, nil
}

// buildState hydrates every NodeDefinition into a NodeInstance via
// newNodeBody, registers the graph's connections, and wires loop restart
// points before returning the trigger (Start) node to begin execution
// from.
func (e *Engine) buildState(runID string, g *workflow.Graph) (*execution.ExecutionState, *execution.NodeInstance, error) {
	state := execution.NewExecutionState(runID)

	var startNode *execution.NodeInstance
	for _, nd := range g.Nodes() {
		body, err := e.newNodeBody(nd.Type, nd.Config)
		if err != nil {
			return nil, nil, err
		}
		inst := execution.NewNodeInstance(nd.ID, nd.Handle, body, nd.Stateful)
		if hn, ok := body.(*infraexec.HumanNode); ok {
			hn.Bind(inst)
		}
		if ln, ok := body.(*infraexec.LLMNode); ok {
			ln.Bind(inst)
		}
		state.RegisterNode(inst)
		if body.ClassName() == "Start" {
			startNode = inst
		}
	}
	if startNode == nil {
		return nil, nil, errors.InvalidInput("graph", "no start node found")
	}

	conns := make([]*execution.Connection, 0, len(g.Connections()))
	for _, cd := range g.Connections() {
		conns = append(conns, execution.NewConnection(cd.ID, cd.SourceNodeID, cd.SourceHandle, cd.TargetNodeID, cd.TargetHandle))
	}
	state.RegisterConnections(conns)

	wireLoops(state)

	return state, startNode, nil
}

// newNodeBody constructs the typed attribute struct for a node's declared
// class and hydrates it from the editor-authored config map.
func (e *Engine) newNodeBody(nodeType string, config map[string]interface{}) (execution.NodeBody, error) {
	var body execution.NodeBody
	switch nodeType {
	case "Start":
		body = infraexec.NewStartNode()
	case "End":
		body = infraexec.NewEndNode()
	case "Condition":
		body = infraexec.NewConditionNode()
	case "Human":
		body = infraexec.NewHumanNode()
	case "Jump":
		body = infraexec.NewJumpNode()
	case "LoopEnd":
		body = infraexec.NewLoopEndNode()
	case "ListLoopStart":
		body = infraexec.NewListLoopStartNode()
	case "ListLoopEnd":
		body = infraexec.NewListLoopEndNode()
	case "VariableSecret":
		body = infraexec.NewVariableSecretNode()
	case "VariableEnvironment":
		body = infraexec.NewVariableEnvironmentNode()
	case "LLM":
		body = infraexec.NewLLMNode(e.llmClients)
	case "Tool":
		body = infraexec.NewToolNode(e.tools)
	default:
		return nil, errors.InvalidInput("node_type", fmt.Sprintf("unknown node type %q", nodeType))
	}
	for k, v := range config {
		_ = execution.SetAttribute(body, k, v)
	}
	return body, nil
}

// wireLoops binds every LoopEnd node to its restarting Jump node and the
// body of nodes discovered between them, so LoopEndNode.Execute can Snipe
// back to the start of its loop on each iteration.
func wireLoops(state *execution.ExecutionState) {
	for _, n := range state.Nodes() {
		if n.Body.ClassName() != "Jump" {
			continue
		}
		body, terminator := execution.FindNodesInLoop(state, n)
		if terminator == nil {
			continue
		}
		if le, ok := terminator.Body.(*infraexec.LoopEndNode); ok {
			le.BindLoop(n, body)
		}
	}

	// Second pass: bind nested "list loops" from their own ListLoopStart
	// markers, which the outer scan above refused to descend into.
	for _, n := range state.Nodes() {
		if n.Body.ClassName() != "ListLoopStart" {
			continue
		}
		body, terminator := execution.FindNodesInListLoop(state, n)
		if terminator == nil {
			continue
		}
		if lle, ok := terminator.Body.(*infraexec.ListLoopEndNode); ok {
			lle.BindLoop(n, body)
		}
	}
}
