package execution

import (
	"fmt"

	domexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/tools"
)

// ToolNode invokes a registered tool by name with bound arguments and
// exposes its result on the "result" handle.
type ToolNode struct {
	ToolName  string                 `node:"tool_name"`
	Arguments map[string]interface{} `node:"arguments"`

	Result map[string]interface{} `node:"result"`

	registry *tools.Registry
}

// NewToolNode wires a tool node body against the runner's tool registry.
func NewToolNode(registry *tools.Registry) *ToolNode {
	return &ToolNode{registry: registry, Arguments: map[string]interface{}{}}
}

func (n *ToolNode) ClassName() string { return "Tool" }

func (n *ToolNode) NewInstance() domexec.NodeBody {
	return &ToolNode{registry: n.registry, Arguments: map[string]interface{}{}}
}

func (n *ToolNode) Execute(rc *domexec.RunContext) error {
	if n.ToolName == "" {
		return fmt.Errorf("tool node: tool_name is required")
	}
	result, err := n.registry.Execute(rc.Context, n.ToolName, n.Arguments)
	if err != nil {
		return err
	}
	n.Result = result
	return nil
}
