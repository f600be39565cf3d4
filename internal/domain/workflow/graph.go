package workflow

import (
	"time"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/errors"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/eventbus"
	pkguuid "github.com/dionsnoeijen/polysynergy-node-runner/internal/pkg/uuid"
)

// NodeDefinition is the static, serialized description of a node within a
// workflow graph, as it comes off the wire. Type names the node's class
// (the execute body looked up in the node registry); Config carries the
// class's declared attribute values as they were authored in the editor.
type NodeDefinition struct {
	ID       string                 `json:"id"`
	Handle   string                 `json:"handle"`
	Type     string                 `json:"type"`
	Stateful bool                   `json:"stateful"`
	Config   map[string]interface{} `json:"config,omitempty"`
	Position map[string]float64     `json:"position,omitempty"`
}

// ConnectionDefinition is the static, serialized description of an edge
// between two (node, handle) endpoints.
type ConnectionDefinition struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id"`
	SourceHandle string `json:"source_handle"`
	TargetNodeID string `json:"target_node_id"`
	TargetHandle string `json:"target_handle"`
}

// Graph represents a workflow graph aggregate: the versioned, persisted
// definition a run is instantiated from.
type Graph struct {
	id          string
	assistantID string
	name        string
	version     string
	description string
	nodes       []NodeDefinition
	connections []ConnectionDefinition
	config      map[string]interface{}
	createdAt   time.Time
	updatedAt   time.Time

	events []eventbus.Event
}

// NewGraph creates a new Graph aggregate.
func NewGraph(assistantID, name, version, description string, nodes []NodeDefinition, connections []ConnectionDefinition, config map[string]interface{}) (*Graph, error) {
	if assistantID == "" {
		return nil, errors.InvalidInput("assistant_id", "assistant_id is required")
	}
	if name == "" {
		return nil, errors.InvalidInput("name", "name is required")
	}
	if version == "" {
		version = "1.0.0"
	}

	if err := validateGraph(nodes, connections); err != nil {
		return nil, err
	}

	now := time.Now()
	graphID := pkguuid.New()

	if config == nil {
		config = make(map[string]interface{})
	}

	graph := &Graph{
		id:          graphID,
		assistantID: assistantID,
		name:        name,
		version:     version,
		description: description,
		nodes:       nodes,
		connections: connections,
		config:      config,
		createdAt:   now,
		updatedAt:   now,
		events:      make([]eventbus.Event, 0),
	}

	graph.recordEvent(GraphDefined{
		GraphID:     graphID,
		AssistantID: assistantID,
		Name:        name,
		Version:     version,
		Description: description,
		Nodes:       nodes,
		Connections: connections,
		Config:      config,
		OccurredAt:  now,
	})

	return graph, nil
}

func (g *Graph) ID() string          { return g.id }
func (g *Graph) AssistantID() string { return g.assistantID }
func (g *Graph) Name() string        { return g.name }
func (g *Graph) Version() string     { return g.version }
func (g *Graph) Description() string { return g.description }

func (g *Graph) Nodes() []NodeDefinition             { return g.nodes }
func (g *Graph) Connections() []ConnectionDefinition { return g.connections }
func (g *Graph) Config() map[string]interface{}      { return g.config }
func (g *Graph) CreatedAt() time.Time                { return g.createdAt }
func (g *Graph) UpdatedAt() time.Time                { return g.updatedAt }

// Update updates the graph definition.
func (g *Graph) Update(name, description *string, nodes []NodeDefinition, connections []ConnectionDefinition, config map[string]interface{}) error {
	if nodes != nil && connections != nil {
		if err := validateGraph(nodes, connections); err != nil {
			return err
		}
	}

	now := time.Now()
	event := GraphUpdated{
		GraphID:    g.id,
		OccurredAt: now,
	}

	if name != nil && *name != "" {
		g.name = *name
		event.Name = name
	}
	if description != nil {
		g.description = *description
		event.Description = description
	}
	if nodes != nil {
		g.nodes = nodes
		event.Nodes = nodes
	}
	if connections != nil {
		g.connections = connections
		event.Connections = connections
	}
	if config != nil {
		g.config = config
		event.Config = config
	}

	g.updatedAt = now
	g.recordEvent(event)

	return nil
}

func (g *Graph) Events() []eventbus.Event { return g.events }
func (g *Graph) ClearEvents()              { g.events = make([]eventbus.Event, 0) }

func (g *Graph) recordEvent(event eventbus.Event) {
	g.events = append(g.events, event)
}

// validateGraph checks structural invariants of a workflow definition:
// unique node ids and connections that only reference declared nodes.
// Unlike a fixed start/end node-type requirement, node classes here are
// open-ended (registered by name in the node registry), so no particular
// type is mandatory.
func validateGraph(nodes []NodeDefinition, connections []ConnectionDefinition) error {
	if len(nodes) == 0 {
		return errors.InvalidInput("nodes", "at least one node is required")
	}

	nodeMap := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if node.ID == "" {
			return errors.InvalidInput("node.id", "node ID is required")
		}
		if nodeMap[node.ID] {
			return errors.InvalidInput("node.id", "duplicate node ID: "+node.ID)
		}
		nodeMap[node.ID] = true
	}

	for _, conn := range connections {
		if conn.SourceNodeID == "" || conn.TargetNodeID == "" {
			return errors.InvalidInput("connection", "connection source and target are required")
		}
		if !nodeMap[conn.SourceNodeID] {
			return errors.InvalidInput("connection.source_node_id", "source node not found: "+conn.SourceNodeID)
		}
		if !nodeMap[conn.TargetNodeID] {
			return errors.InvalidInput("connection.target_node_id", "target node not found: "+conn.TargetNodeID)
		}
	}

	return nil
}
