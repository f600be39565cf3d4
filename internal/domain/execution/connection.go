package execution

// drivingHandles is the reserved target-handle vocabulary that marks a
// connection as control/flow driving rather than data-carrying. Anything
// outside this set is an incoming (data) connection.
var drivingHandles = map[string]bool{
	"node": true,
	"a":    true,
	"b":    true,
}

// Connection is a directed edge between two (node, handle) endpoints. It
// is a value object: the execution state owns nodes, connections own
// nothing, and nodes never hold direct references to one another.
type Connection struct {
	UUID         string
	SourceNodeID string
	SourceHandle string
	TargetNodeID string
	TargetHandle string

	touched bool
	killer  bool
}

// NewConnection builds a fresh, untouched, non-killer connection.
func NewConnection(uuid, sourceNodeID, sourceHandle, targetNodeID, targetHandle string) *Connection {
	return &Connection{
		UUID:         uuid,
		SourceNodeID: sourceNodeID,
		SourceHandle: sourceHandle,
		TargetNodeID: targetNodeID,
		TargetHandle: targetHandle,
	}
}

// Touch marks the connection as having been traversed at least once.
func (c *Connection) Touch() { c.touched = true }

// Touched reports whether the connection has ever been traversed.
func (c *Connection) Touched() bool { return c.touched }

// MakeKiller semantically disables the connection: its target may not
// consume the payload it would otherwise carry.
func (c *Connection) MakeKiller() { c.killer = true }

// Resurrect clears the killer bit, as happens when a loop body revisits
// the connection's endpoints.
func (c *Connection) Resurrect() { c.killer = false }

// IsKiller reports whether the connection is currently disabled.
func (c *Connection) IsKiller() bool { return c.killer }

// IsDriving reports whether the connection's target handle falls in the
// reserved driving vocabulary {node, a, b}.
func (c *Connection) IsDriving() bool { return drivingHandles[c.TargetHandle] }

// IsIncoming is the complement of IsDriving: every non-driving connection
// carries data into a named input slot.
func (c *Connection) IsIncoming() bool { return !c.IsDriving() }

// ToDict serializes the connection for the result recorder's connections
// snapshot (spec's "connections result").
func (c *Connection) ToDict() map[string]interface{} {
	return map[string]interface{}{
		"uuid":          c.UUID,
		"source_node_id": c.SourceNodeID,
		"source_handle":  c.SourceHandle,
		"target_node_id": c.TargetNodeID,
		"target_handle":  c.TargetHandle,
		"touched":        c.touched,
		"killer":         c.killer,
	}
}
