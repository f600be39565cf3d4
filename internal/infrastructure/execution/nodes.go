package execution

import (
	"fmt"

	"github.com/google/cel-go/cel"

	domexec "github.com/dionsnoeijen/polysynergy-node-runner/internal/domain/execution"
)

// StartNode is the trigger node every run begins at. It has no driving
// connections and simply makes the run's initial input available as its
// own attributes for downstream binding.
type StartNode struct {
	Input map[string]interface{} `node:"input"`
}

func NewStartNode() *StartNode { return &StartNode{Input: map[string]interface{}{}} }

func (n *StartNode) ClassName() string                  { return "Start" }
func (n *StartNode) NewInstance() domexec.NodeBody      { return &StartNode{Input: map[string]interface{}{}} }
func (n *StartNode) Execute(rc *domexec.RunContext) error { return nil }

// EndNode collects whatever is bound onto it as the run's final output.
type EndNode struct {
	Output map[string]interface{} `node:"output"`
}

func NewEndNode() *EndNode { return &EndNode{Output: map[string]interface{}{}} }

func (n *EndNode) ClassName() string                  { return "End" }
func (n *EndNode) NewInstance() domexec.NodeBody      { return &EndNode{Output: map[string]interface{}{}} }
func (n *EndNode) Execute(rc *domexec.RunContext) error { return nil }

// ConditionNode evaluates a bound boolean (optionally refined by a CEL
// expression over that value) and exposes the result as both a plain
// result and the true_path/false_path branch attributes the scheduler's
// fan-out logic reads.
type ConditionNode struct {
	Value      bool   `node:"value"`
	Expression string `node:"expression"`
	TruePath   bool   `node:"true_path"`
	FalsePath  bool   `node:"false_path"`
}

func NewConditionNode() *ConditionNode { return &ConditionNode{} }

func (n *ConditionNode) ClassName() string             { return "Condition" }
func (n *ConditionNode) NewInstance() domexec.NodeBody { return &ConditionNode{} }
func (n *ConditionNode) Execute(rc *domexec.RunContext) error {
	result := n.Value
	if n.Expression != "" {
		evaluated, err := evaluateCondition(n.Expression, n.Value)
		if err != nil {
			return fmt.Errorf("condition node: %w", err)
		}
		result = evaluated
	}
	n.TruePath = result
	n.FalsePath = !result
	return nil
}

// evaluateCondition compiles and runs a CEL boolean expression, exposing
// the node's driving value as the `value` variable so editor-authored
// conditions like `value && true` can refine the plain passthrough.
func evaluateCondition(expr string, value bool) (bool, error) {
	env, err := cel.NewEnv(cel.Variable("value", cel.BoolType))
	if err != nil {
		return false, fmt.Errorf("building CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compiling expression %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("building program for %q: %w", expr, err)
	}

	out, _, err := prg.Eval(map[string]interface{}{"value": value})
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", expr, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not evaluate to a boolean", expr)
	}

	return result, nil
}

// HumanNode pauses the run for external interaction: its owning
// NodeInstance is marked pending so the scheduler leaves it untouched
// until SetPending(false) is called by whatever resumes the run.
type HumanNode struct {
	Reason string                 `node:"reason"`
	Data   map[string]interface{} `node:"data"`

	Resolved map[string]interface{} `node:"resolved"`

	instance *domexec.NodeInstance
}

// NewHumanNode wires a human-interaction node body; Bind must be called
// once its owning NodeInstance exists so Execute can flip the pending bit.
func NewHumanNode() *HumanNode { return &HumanNode{Data: map[string]interface{}{}} }

func (n *HumanNode) Bind(instance *domexec.NodeInstance) { n.instance = instance }

func (n *HumanNode) ClassName() string             { return "Human" }
func (n *HumanNode) NewInstance() domexec.NodeBody { return &HumanNode{Data: map[string]interface{}{}, instance: n.instance} }

func (n *HumanNode) Execute(rc *domexec.RunContext) error {
	if n.Resolved != nil {
		return nil
	}
	if n.instance == nil {
		return fmt.Errorf("human node: not bound to an instance")
	}
	n.instance.SetPending(true)
	return nil
}

// JumpNode marks the end of a discoverable loop-restart point; its own
// Execute is a no-op, the restart is driven by Snipe from a LoopEnd node
// elsewhere in the graph.
type JumpNode struct{}

func NewJumpNode() *JumpNode                          { return &JumpNode{} }
func (n *JumpNode) ClassName() string                  { return "Jump" }
func (n *JumpNode) NewInstance() domexec.NodeBody      { return &JumpNode{} }
func (n *JumpNode) Execute(rc *domexec.RunContext) error { return nil }

// LoopEndNode terminates a ForEach/While loop body. MaxIterations guards
// against runaway re-entry; once reached the loop is left to fall through
// normally instead of sniping back to its Jump node.
type LoopEndNode struct {
	MaxIterations int `node:"max_iterations"`

	iterations int
	jump       *domexec.NodeInstance
	body       []*domexec.NodeInstance
}

func NewLoopEndNode() *LoopEndNode { return &LoopEndNode{MaxIterations: 1000} }

func (n *LoopEndNode) ClassName() string        { return "LoopEnd" }
func (n *LoopEndNode) NewInstance() domexec.NodeBody {
	return &LoopEndNode{MaxIterations: n.MaxIterations, jump: n.jump, body: n.body}
}

// BindLoop wires the loop's restart target and the set of nodes discovered
// between the Jump node and this LoopEnd, computed once when the graph is
// loaded (see engine.go's wireLoops).
func (n *LoopEndNode) BindLoop(jump *domexec.NodeInstance, body []*domexec.NodeInstance) {
	n.jump = jump
	n.body = body
}

func (n *LoopEndNode) Execute(rc *domexec.RunContext) error {
	n.iterations++
	if n.jump == nil || n.iterations >= n.MaxIterations {
		return nil
	}
	return domexec.Snipe(rc, n.jump, n.body)
}

// Iterations reports how many times this loop has re-entered its body so
// far, for callers (tests, instrumentation) that need to observe the
// counter from outside the package.
func (n *LoopEndNode) Iterations() int { return n.iterations }

// ListLoopStartNode marks the restart point of a loop nested inside
// another loop's body (a "list loop"), e.g. iterating the elements of one
// bound list per outer iteration. Its class name's "ListLoop" prefix tells
// domexec.FindNodesInLoop not to descend into it while discovering the
// outer loop's body, so the nested loop's own nodes are tagged on a later,
// separate scan rather than folded into the outer one.
type ListLoopStartNode struct{}

func NewListLoopStartNode() *ListLoopStartNode { return &ListLoopStartNode{} }

func (n *ListLoopStartNode) ClassName() string             { return "ListLoopStart" }
func (n *ListLoopStartNode) NewInstance() domexec.NodeBody { return &ListLoopStartNode{} }
func (n *ListLoopStartNode) Execute(rc *domexec.RunContext) error { return nil }

// ListLoopEndNode is ListLoopStartNode's counterpart: a LoopEnd variant
// whose class name also carries the "ListLoop" prefix, so it binds and
// snipes back to its own ListLoopStart the same way LoopEndNode does for
// Jump, without the outer loop's wireLoops pass ever walking into it.
type ListLoopEndNode struct {
	MaxIterations int `node:"max_iterations"`

	iterations int
	start      *domexec.NodeInstance
	body       []*domexec.NodeInstance
}

func NewListLoopEndNode() *ListLoopEndNode { return &ListLoopEndNode{MaxIterations: 1000} }

func (n *ListLoopEndNode) ClassName() string { return "ListLoopEnd" }
func (n *ListLoopEndNode) NewInstance() domexec.NodeBody {
	return &ListLoopEndNode{MaxIterations: n.MaxIterations, start: n.start, body: n.body}
}

// BindLoop wires the nested loop's restart target and body, computed the
// same way wireLoops binds a plain LoopEnd, but scanning from
// ListLoopStart nodes in a second pass so nested bodies aren't absorbed
// into their enclosing loop's body set.
func (n *ListLoopEndNode) BindLoop(start *domexec.NodeInstance, body []*domexec.NodeInstance) {
	n.start = start
	n.body = body
}

func (n *ListLoopEndNode) Execute(rc *domexec.RunContext) error {
	n.iterations++
	if n.start == nil || n.iterations >= n.MaxIterations {
		return nil
	}
	return domexec.Snipe(rc, n.start, n.body)
}

// Iterations reports how many times this nested loop has re-entered its
// body so far, for callers (tests, instrumentation) that need to observe
// the counter from outside the package.
func (n *ListLoopEndNode) Iterations() int { return n.iterations }

// VariableSecretNode resolves a named secret for the run's project/stage
// as a literal key lookup against its TruePath attribute, rather than the
// <secret:KEY>/<sec:KEY> pattern-substitution every other node's string
// attributes go through. It exposes the resolved value on Resolved for
// downstream binding, and records it for output redaction like any other
// secret resolution.
type VariableSecretNode struct {
	Key      string `node:"key"`
	TruePath string `node:"true_path"`

	Resolved string `node:"resolved"`
}

func NewVariableSecretNode() *VariableSecretNode { return &VariableSecretNode{} }

func (n *VariableSecretNode) ClassName() string             { return "VariableSecret" }
func (n *VariableSecretNode) NewInstance() domexec.NodeBody { return &VariableSecretNode{} }

func (n *VariableSecretNode) Execute(rc *domexec.RunContext) error {
	key := n.TruePath
	if key == "" {
		key = n.Key
	}
	if key == "" || rc.Secrets == nil {
		return nil
	}
	value, ok := rc.Secrets.GetSecret(rc.Context, rc.ProjectID, rc.EffectiveStage(), key)
	if !ok {
		return nil
	}
	rc.RecordSecret(key, value)
	n.Resolved = value
	return nil
}

// VariableEnvironmentNode is VariableSecretNode's environment-variable
// counterpart: a literal key lookup against TruePath rather than a
// <environment:KEY> pattern match.
type VariableEnvironmentNode struct {
	Key      string `node:"key"`
	TruePath string `node:"true_path"`

	Resolved string `node:"resolved"`
}

func NewVariableEnvironmentNode() *VariableEnvironmentNode { return &VariableEnvironmentNode{} }

func (n *VariableEnvironmentNode) ClassName() string             { return "VariableEnvironment" }
func (n *VariableEnvironmentNode) NewInstance() domexec.NodeBody { return &VariableEnvironmentNode{} }

func (n *VariableEnvironmentNode) Execute(rc *domexec.RunContext) error {
	key := n.TruePath
	if key == "" {
		key = n.Key
	}
	if key == "" || rc.Secrets == nil {
		return nil
	}
	value, ok := rc.Secrets.GetEnvVar(rc.Context, rc.ProjectID, rc.EffectiveStage(), key)
	if !ok {
		return nil
	}
	n.Resolved = value
	return nil
}
