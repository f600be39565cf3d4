package execution

import "fmt"

// NodeBody is implemented by every node class's typed attribute struct. It
// carries no lifecycle state of its own — that lives on NodeInstance — only
// the declared attributes (handles) and the domain logic that reads and
// writes them.
type NodeBody interface {
	// ClassName identifies the node's class, used by traversal terminator
	// and skip predicates (e.g. "Jump", "LoopEnd*", "ListLoop*").
	ClassName() string
	// Execute runs the node's domain logic against its currently bound
	// attributes. A returned error is captured onto the owning instance's
	// exception rather than aborting the run.
	Execute(ctx *RunContext) error
}

// Stateful is implemented by node bodies whose attributes should survive a
// loop re-run by being reset in place rather than by constructing a fresh
// instance (see NodeInstance.Resurrect).
type Stateful interface {
	NodeBody
	ResetState()
}

// Factory is implemented by node bodies that instead resurrect by
// constructing a brand new body instance, discarding any accumulated
// attribute state. Exactly one of Stateful or Factory should describe a
// given node class; a class satisfying neither keeps its existing body
// instance on resurrection and only has its lifecycle bits reset.
type Factory interface {
	NodeBody
	NewInstance() NodeBody
}

// NodeInstance is the runtime wrapper around a NodeBody: it owns the
// lifecycle bits (flow state, killed/processed/blocking), the node's
// driving/incoming/outgoing connections, and the loop/jump bookkeeping the
// scheduler needs. Nodes never hold references to one another directly;
// all graph navigation goes through the owning ExecutionState's connection
// lists.
type NodeInstance struct {
	ID       string
	Handle   string
	Body     NodeBody
	Stateful bool

	flowState FlowState
	killed    bool
	processed bool
	blocking  bool
	inLoop    bool
	pending   bool
	foundBy   map[string]bool
	exception error

	driving []*Connection
	in      []*Connection
	out     []*Connection
}

// NewNodeInstance wires a node body into a fresh, unexecuted instance.
func NewNodeInstance(id, handle string, body NodeBody, stateful bool) *NodeInstance {
	return &NodeInstance{
		ID:        id,
		Handle:    handle,
		Body:      body,
		Stateful:  stateful,
		flowState: FlowStateEnabled,
		foundBy:   make(map[string]bool),
	}
}

// SetConnections installs the node's classified connection lists. Called
// once by the ExecutionState when the graph is loaded.
func (n *NodeInstance) SetConnections(driving, in, out []*Connection) {
	n.driving = driving
	n.in = in
	n.out = out
}

func (n *NodeInstance) DrivingConnections() []*Connection { return n.driving }
func (n *NodeInstance) InConnections() []*Connection       { return n.in }
func (n *NodeInstance) OutConnections() []*Connection      { return n.out }

// AliveInConnections returns the incoming connections that are not killed.
func (n *NodeInstance) AliveInConnections() []*Connection {
	alive := make([]*Connection, 0, len(n.in))
	for _, c := range n.in {
		if !c.IsKiller() {
			alive = append(alive, c)
		}
	}
	return alive
}

// IsDriven reports whether the node has at least one driving connection.
func (n *NodeInstance) IsDriven() bool { return len(n.driving) > 0 }

// HasInConnections reports whether the node has any incoming (data)
// connections at all.
func (n *NodeInstance) HasInConnections() bool { return len(n.in) > 0 }

// HasOutConnections reports whether the node has any outgoing connections.
func (n *NodeInstance) HasOutConnections() bool { return len(n.out) > 0 }

// OutConnectionsExceptOnFalsePath returns every outgoing connection except
// those leaving via the false_path handle — used on a truthy branch result.
func (n *NodeInstance) OutConnectionsExceptOnFalsePath() []*Connection {
	out := make([]*Connection, 0, len(n.out))
	for _, c := range n.out {
		if c.SourceHandle != "false_path" {
			out = append(out, c)
		}
	}
	return out
}

// OutConnectionsOnTruePath returns outgoing connections leaving via
// true_path.
func (n *NodeInstance) OutConnectionsOnTruePath() []*Connection {
	out := make([]*Connection, 0)
	for _, c := range n.out {
		if c.SourceHandle == "true_path" {
			out = append(out, c)
		}
	}
	return out
}

// OutConnectionsOnFalsePath returns outgoing connections leaving via
// false_path.
func (n *NodeInstance) OutConnectionsOnFalsePath() []*Connection {
	out := make([]*Connection, 0)
	for _, c := range n.out {
		if c.SourceHandle == "false_path" {
			out = append(out, c)
		}
	}
	return out
}

// --- lifecycle bits ---

func (n *NodeInstance) FlowState() FlowState        { return n.flowState }
func (n *NodeInstance) SetFlowState(fs FlowState)    { n.flowState = fs }
func (n *NodeInstance) IsKilled() bool               { return n.killed }
func (n *NodeInstance) IsProcessed() bool            { return n.processed }
func (n *NodeInstance) MarkProcessed()               { n.processed = true }
func (n *NodeInstance) GetException() error          { return n.exception }
func (n *NodeInstance) SetException(err error)       { n.exception = err }
func (n *NodeInstance) IsBlocking() bool             { return n.blocking }
func (n *NodeInstance) MakeBlocking()                { n.blocking = true }
func (n *NodeInstance) Unblock()                     { n.blocking = false }
func (n *NodeInstance) IsPending() bool              { return n.pending }
func (n *NodeInstance) IsInLoop() bool               { return n.inLoop }
func (n *NodeInstance) SetInLoop(v bool)             { n.inLoop = v }

// SetPending sets or clears the pending wait state. The flow state only
// moves to FlowStatePending when pending is actually being set true; a
// caller clearing pending returns the node to FlowStateEnabled so the
// scheduler will revisit it on the next resume.
func (n *NodeInstance) SetPending(pending bool) {
	n.pending = pending
	if pending {
		n.flowState = FlowStatePending
	} else if n.flowState == FlowStatePending {
		n.flowState = FlowStateEnabled
	}
}

// AddFoundBy records that this node was reached through the connection
// with the given UUID, so the scheduler's backward phase can recognize a
// connection it already drove a recursion through during the forward
// phase and skip re-descending through it.
func (n *NodeInstance) AddFoundBy(connectionUUID string) { n.foundBy[connectionUUID] = true }

// WasFoundBy reports whether this node was already reached through the
// connection with the given UUID during the current run.
func (n *NodeInstance) WasFoundBy(connectionUUID string) bool { return n.foundBy[connectionUUID] }

// Kill marks the node itself killed. It does not touch its connections;
// forward kill propagation is the scheduler's job.
func (n *NodeInstance) Kill() { n.killed = true }

// reset clears every per-run lifecycle bit and resurrects this node's
// connections, without touching the body's attributes.
func (n *NodeInstance) reset() {
	n.killed = false
	n.processed = false
	n.exception = nil
	n.foundBy = make(map[string]bool)
	n.flowState = FlowStateEnabled
	n.pending = false
	for _, c := range n.driving {
		c.Resurrect()
	}
	for _, c := range n.in {
		c.Resurrect()
	}
	for _, c := range n.out {
		c.Resurrect()
	}
}

// Resurrect revives a node for loop re-entry: a Stateful body is reset in
// place, a Factory body is replaced with a fresh body instance, and any
// other body is kept as is; in every case the ID, handle, and connection
// wiring stay the same.
func (n *NodeInstance) Resurrect() *NodeInstance {
	if sf, ok := n.Body.(Stateful); ok && n.Stateful {
		sf.ResetState()
		n.reset()
		return n
	}
	if f, ok := n.Body.(Factory); ok {
		n.Body = f.NewInstance()
	}
	n.reset()
	return n
}

// ToDict serializes the node's attributes plus lifecycle bits for the
// result recorder.
func (n *NodeInstance) ToDict() map[string]interface{} {
	out := ToDict(n.Body)
	out["id"] = n.ID
	out["handle"] = n.Handle
	out["flow_state"] = string(n.flowState)
	out["killed"] = n.killed
	out["processed"] = n.processed
	out["blocking"] = n.blocking
	out["in_loop"] = n.inLoop
	if n.exception != nil {
		out["error"] = n.exception.Error()
	}
	return out
}

func (n *NodeInstance) String() string {
	return fmt.Sprintf("Node(%s/%s)", n.ID, n.Handle)
}
