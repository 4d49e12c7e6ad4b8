package framework

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// NodeType enumerates supported node categories.
type NodeType string

const (
	NodeTypeLLM         NodeType = "llm"
	NodeTypeTool        NodeType = "tool"
	NodeTypeTerminal    NodeType = "terminal"
	NodeTypeSystem      NodeType = "system"
	NodeTypeObservation NodeType = "observation"
)

// ErrNodeVisitLimit is returned when a node is entered more often than the
// graph allows, which guards against accidental cycles.
var ErrNodeVisitLimit = errors.New("node visit limit exceeded")

// Node describes the unit of work executed inside a graph.
type Node interface {
	ID() string
	Type() NodeType
	Execute(ctx context.Context, state *AgentState) (*Result, error)
}

// ConditionFunc determines whether an edge should be followed.
type ConditionFunc func(result *Result, state *AgentState) bool

// Edge describes a transition between nodes.
type Edge struct {
	From      string
	To        string
	Condition ConditionFunc
}

// Graph orchestrates a workflow of nodes. It behaves like a tiny, deterministic
// state machine: nodes are registered ahead of time, edges describe transitions,
// and Execute walks the graph one node at a time while recording telemetry and
// enforcing bounded node visits.
type Graph struct {
	mu            sync.RWMutex
	nodes         map[string]Node
	edges         map[string][]Edge
	startNodeID   string
	maxNodeVisits int
	telemetry     Telemetry
	execMu        sync.Mutex
	visitCounts   map[string]int
	executionPath []string
}

// NewGraph creates a graph with sane defaults.
func NewGraph() *Graph {
	return &Graph{
		nodes:         make(map[string]Node),
		edges:         make(map[string][]Edge),
		maxNodeVisits: 1024,
		visitCounts:   make(map[string]int),
		executionPath: make([]string, 0),
	}
}

// SetMaxNodeVisits bounds how often any single node may run per execution.
func (g *Graph) SetMaxNodeVisits(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > 0 {
		g.maxNodeVisits = n
	}
}

// SetTelemetry wires a telemetry sink for execution traces.
func (g *Graph) SetTelemetry(t Telemetry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.telemetry = t
}

func (g *Graph) emit(event Event) {
	g.mu.RLock()
	telemetry := g.telemetry
	g.mu.RUnlock()
	if telemetry == nil {
		return
	}
	telemetry.Emit(event)
}

// SetStart marks the starting node.
func (g *Graph) SetStart(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("start node %s not found", id)
	}
	g.startNodeID = id
	return nil
}

// AddNode registers a node.
func (g *Graph) AddNode(node Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[node.ID()]; exists {
		return fmt.Errorf("node %s already exists", node.ID())
	}
	g.nodes[node.ID()] = node
	return nil
}

// AddEdge wires two nodes together. A nil condition always matches.
func (g *Graph) AddEdge(from, to string, condition ConditionFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("node %s not defined", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("node %s not defined", to)
	}
	g.edges[from] = append(g.edges[from], Edge{
		From:      from,
		To:        to,
		Condition: condition,
	})
	return nil
}

// ExecutionPath returns the node IDs visited by the last execution.
func (g *Graph) ExecutionPath() []string {
	g.execMu.Lock()
	defer g.execMu.Unlock()
	return append([]string(nil), g.executionPath...)
}

// Execute runs the graph from its start node until a terminal node or a node
// without a matching outgoing edge is reached.
func (g *Graph) Execute(ctx context.Context, state *AgentState) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	taskID := state.ID()
	if _, ok := RunContextFrom(ctx); !ok {
		ctx = WithRunContext(ctx, RunContext{ID: taskID, Question: state.Question()})
	}
	g.emit(Event{Type: EventGraphStart, TaskID: taskID, Timestamp: time.Now().UTC()})
	result, err := g.run(ctx, state, taskID)
	status := "success"
	if err != nil {
		status = "error"
	}
	g.emit(Event{
		Type:      EventGraphFinish,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{"status": status},
	})
	return result, err
}

func (g *Graph) run(ctx context.Context, state *AgentState, taskID string) (*Result, error) {
	g.execMu.Lock()
	defer g.execMu.Unlock()
	g.visitCounts = make(map[string]int)
	g.executionPath = make([]string, 0)
	g.mu.RLock()
	defer g.mu.RUnlock()

	var lastResult *Result
	current := g.startNodeID
	for current != "" {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		node, ok := g.nodes[current]
		if !ok {
			return nil, fmt.Errorf("node %s missing", current)
		}
		g.visitCounts[current]++
		if g.visitCounts[current] > g.maxNodeVisits {
			return nil, fmt.Errorf("%w at node %s", ErrNodeVisitLimit, current)
		}
		g.executionPath = append(g.executionPath, current)
		g.emitLocked(Event{Type: EventNodeStart, NodeID: current, TaskID: taskID, Timestamp: time.Now().UTC()})
		result, err := node.Execute(ctx, state)
		if err != nil {
			err = fmt.Errorf("node %s execution failed: %w", current, err)
			g.emitLocked(Event{
				Type:      EventNodeError,
				NodeID:    current,
				TaskID:    taskID,
				Timestamp: time.Now().UTC(),
				Message:   err.Error(),
			})
			return nil, err
		}
		if result == nil {
			result = &Result{Success: true, Data: map[string]any{}}
		}
		result.NodeID = current
		lastResult = result
		g.emitLocked(Event{
			Type:      EventNodeFinish,
			NodeID:    current,
			TaskID:    taskID,
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]any{"success": result.Success},
		})
		next, err := g.nextNode(state, node, result)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return lastResult, nil
}

// emitLocked is emit for callers already holding g.mu for reading.
func (g *Graph) emitLocked(event Event) {
	if g.telemetry != nil {
		g.telemetry.Emit(event)
	}
}

// nextNode evaluates the outgoing edges for a node. Exactly one matching edge
// is a transition, none ends the run and more than one is a wiring bug.
func (g *Graph) nextNode(state *AgentState, node Node, result *Result) (string, error) {
	outEdges := g.edges[node.ID()]
	if len(outEdges) == 0 || node.Type() == NodeTypeTerminal {
		return "", nil
	}
	var matched []Edge
	for _, edge := range outEdges {
		if edge.Condition != nil && !edge.Condition(result, state) {
			continue
		}
		matched = append(matched, edge)
	}
	switch len(matched) {
	case 0:
		return "", nil
	case 1:
		return matched[0].To, nil
	default:
		return "", fmt.Errorf("ambiguous transitions from %s", node.ID())
	}
}

// Validate ensures the start node and every edge reference exist.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.nodes) == 0 {
		return errors.New("graph has no nodes")
	}
	if g.startNodeID == "" {
		return errors.New("graph has no start node")
	}
	for from, edges := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge references missing node %s", from)
		}
		for _, edge := range edges {
			if _, ok := g.nodes[edge.To]; !ok {
				return fmt.Errorf("edge references missing node %s", edge.To)
			}
		}
	}
	return nil
}

// TerminalNode marks the end of the workflow.
type TerminalNode struct {
	id string
}

// NewTerminalNode creates a terminal node.
func NewTerminalNode(id string) *TerminalNode {
	return &TerminalNode{id: id}
}

// ID implements Node.
func (n *TerminalNode) ID() string { return n.id }

// Type implements Node.
func (n *TerminalNode) Type() NodeType { return NodeTypeTerminal }

// Execute moves the state into PhaseDone.
func (n *TerminalNode) Execute(ctx context.Context, state *AgentState) (*Result, error) {
	state.EnterPhase(PhaseDone)
	return &Result{NodeID: n.id, Success: true}, nil
}
