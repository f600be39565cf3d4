package execution

import (
	"context"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/workflow"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/eventbus"
)

// Executor is the port a run service drives a graph through. graph.Engine
// is the only implementation: it hydrates a workflow.Graph into an
// ExecutionState and drives it with ExecuteNode.
type Executor interface {
	Execute(ctx context.Context, runID string, graph *workflow.Graph, input map[string]interface{}, eventBus *eventbus.EventBus) (map[string]interface{}, error)
}
