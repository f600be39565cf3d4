package execution

import "fmt"

// BindingError is returned when a dotted target handle names a parent
// attribute that isn't map-shaped; the original's equivalent is a bare
// TypeError raised at binding time.
type BindingError struct {
	NodeID  string
	Handle  string
	Message string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("node %s: cannot bind handle %q: %s", e.NodeID, e.Handle, e.Message)
}

// ApplyFromDrivingConnection binds a node's driving connection according to
// its current flow state: FlowStateEnabled delegates to ordinary incoming
// binding, FlowStateFlowIn copies every attribute the driving source shares
// by name, and any other flow state is a no-op.
func ApplyFromDrivingConnection(state *ExecutionState, target *NodeInstance, c *Connection) error {
	switch target.FlowState() {
	case FlowStateEnabled:
		if !IsDeclaredAttribute(target.Body, c.TargetHandle) {
			// A driving connection's reserved handle ("node", "a", "b")
			// marks a control-flow edge; unlike a named data connection, a
			// node body isn't required to declare it, so a target that
			// doesn't care about the value is simply not bound.
			return nil
		}
		return ApplyFromIncomingConnection(state, target, c)
	case FlowStateFlowIn:
		source, ok := state.GetNodeByID(c.SourceNodeID)
		if !ok {
			return nil
		}
		for _, name := range AttributeNames(source.Body) {
			if _, hasTarget := GetAttribute(target.Body, name); !hasTarget {
				continue
			}
			value, _ := GetAttribute(source.Body, name)
			if err := SetAttribute(target.Body, name, value); err != nil {
				return &BindingError{NodeID: target.ID, Handle: name, Message: err.Error()}
			}
		}
		return nil
	default:
		return nil
	}
}

// ApplyFromIncomingConnection binds a single data connection's resolved
// source value onto the target node's attribute named by the connection's
// target handle. A dotted target handle ("config.retries") requires the
// parent attribute ("config") to already hold a map; anything else is a
// binding-time error.
func ApplyFromIncomingConnection(state *ExecutionState, target *NodeInstance, c *Connection) error {
	value, err := state.GetConnectionSourceVariable(c)
	if err != nil {
		return err
	}
	return applyAttribute(target, c.TargetHandle, value)
}

func applyAttribute(target *NodeInstance, handle string, value interface{}) error {
	segments := splitDotted(handle)
	if len(segments) == 1 {
		return SetAttribute(target.Body, segments[0], value)
	}

	parentName := segments[0]
	parentRaw, found := GetAttribute(target.Body, parentName)
	if !found {
		parentRaw = map[string]interface{}{}
	}
	parent, ok := parentRaw.(map[string]interface{})
	if !ok {
		return &BindingError{
			NodeID:  target.ID,
			Handle:  handle,
			Message: fmt.Sprintf("parent attribute %q is not a map", parentName),
		}
	}

	cursor := parent
	for _, seg := range segments[1 : len(segments)-1] {
		next, ok := cursor[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cursor[seg] = next
		}
		cursor = next
	}
	cursor[segments[len(segments)-1]] = value

	return SetAttribute(target.Body, parentName, parent)
}
