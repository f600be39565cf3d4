package execution

import "fmt"

// ExecutionState is the per-run node/connection registry: it is the only
// thing a node or connection may use to reach another node. Nodes hold no
// direct references to each other.
type ExecutionState struct {
	RunID string

	nodesByID     map[string]*NodeInstance
	nodesByHandle map[string]*NodeInstance
	order         []string // insertion order, for deterministic iteration
	connections   []*Connection
}

// NewExecutionState creates an empty registry for a run.
func NewExecutionState(runID string) *ExecutionState {
	return &ExecutionState{
		RunID:         runID,
		nodesByID:     make(map[string]*NodeInstance),
		nodesByHandle: make(map[string]*NodeInstance),
	}
}

// RegisterNode adds a node to the registry, indexed by both ID and handle.
func (s *ExecutionState) RegisterNode(n *NodeInstance) {
	if _, exists := s.nodesByID[n.ID]; !exists {
		s.order = append(s.order, n.ID)
	}
	s.nodesByID[n.ID] = n
	if n.Handle != "" {
		s.nodesByHandle[n.Handle] = n
	}
}

// GetNodeByID looks up a node by its stable ID.
func (s *ExecutionState) GetNodeByID(id string) (*NodeInstance, bool) {
	n, ok := s.nodesByID[id]
	return n, ok
}

// GetNodeByHandle looks up a node by its editor-assigned handle.
func (s *ExecutionState) GetNodeByHandle(handle string) (*NodeInstance, bool) {
	n, ok := s.nodesByHandle[handle]
	return n, ok
}

// Nodes returns every registered node in registration order.
func (s *ExecutionState) Nodes() []*NodeInstance {
	out := make([]*NodeInstance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodesByID[id])
	}
	return out
}

// RegisterConnections installs the run's full connection list and wires
// each node's classified driving/incoming/outgoing views against it.
func (s *ExecutionState) RegisterConnections(conns []*Connection) {
	s.connections = conns

	byTarget := make(map[string][]*Connection)
	bySource := make(map[string][]*Connection)
	for _, c := range conns {
		byTarget[c.TargetNodeID] = append(byTarget[c.TargetNodeID], c)
		bySource[c.SourceNodeID] = append(bySource[c.SourceNodeID], c)
	}

	for _, n := range s.nodesByID {
		incoming := byTarget[n.ID]
		var driving, in []*Connection
		for _, c := range incoming {
			if c.IsDriving() {
				driving = append(driving, c)
			} else {
				in = append(in, c)
			}
		}
		n.SetConnections(driving, in, bySource[n.ID])
	}
}

// Connections returns every connection in the run.
func (s *ExecutionState) Connections() []*Connection { return s.connections }

// GetConnectionSourceVariable resolves the value a connection carries from
// its source node: it reads the source node's attribute named by the
// connection's source handle, then walks any remaining dotted path
// segments as map-key-or-struct-field lookups, stopping (and returning nil)
// at the first nil segment.
func (s *ExecutionState) GetConnectionSourceVariable(c *Connection) (interface{}, error) {
	source, ok := s.GetNodeByID(c.SourceNodeID)
	if !ok {
		return nil, fmt.Errorf("source node %q not found", c.SourceNodeID)
	}
	segments := splitDotted(c.SourceHandle)
	if len(segments) == 0 {
		return nil, nil
	}
	value, found := GetAttribute(source.Body, segments[0])
	if !found {
		return nil, nil
	}
	for _, seg := range segments[1:] {
		if value == nil {
			return nil, nil
		}
		value = lookupSegment(value, seg)
	}
	return value, nil
}

func splitDotted(handle string) []string {
	if handle == "" {
		return nil
	}
	var segments []string
	start := 0
	for i := 0; i < len(handle); i++ {
		if handle[i] == '.' {
			segments = append(segments, handle[start:i])
			start = i + 1
		}
	}
	segments = append(segments, handle[start:])
	return segments
}

func lookupSegment(value interface{}, segment string) interface{} {
	switch m := value.(type) {
	case map[string]interface{}:
		return m[segment]
	default:
		if v, ok := GetAttribute(value, segment); ok {
			return v
		}
		return nil
	}
}
