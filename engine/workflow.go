package engine

import "time"

// WorkflowStatus describes the lifecycle state of a Workflow definition.
// Unlike Thread status, this is not a state machine the engine drives —
// it is set by whatever owns workflow definitions (out of scope here) and
// merely read by the engine as a precondition.
type WorkflowStatus string

const (
	WorkflowActive   WorkflowStatus = "active"
	WorkflowInactive WorkflowStatus = "inactive"
	WorkflowDeleted  WorkflowStatus = "deleted"
)

// EdgeKind classifies an Edge for the Conditional Router's bucketing
// algorithm (see Router.Route).
type EdgeKind string

const (
	// EdgeNormal is evaluated when the just-executed node succeeded.
	EdgeNormal EdgeKind = "normal"
	// EdgeError is evaluated when the just-executed node failed.
	EdgeError EdgeKind = "error"
	// EdgeDefault is taken when no guarded edge in the selected bucket
	// matched; at most one default edge should exist per node.
	EdgeDefault EdgeKind = "default"
)

// NodeDescriptor is the engine's read-only view of a workflow node. The
// engine never interprets Properties; it passes them through to the
// NodeExecutor the node's Type resolves to.
type NodeDescriptor struct {
	ID   string
	Type string
	// Properties carries node-type-specific configuration. The engine
	// treats this as opaque; type-specific executors validate and coerce.
	Properties map[string]any
	// Position is display metadata, untouched by the engine.
	Position map[string]any
	// IsStart marks the node the engine should enter first. If no node
	// has IsStart set, the engine falls back to the first node in
	// insertion order (see Workflow.StartNode).
	IsStart bool
	// Policy optionally overrides retry/timeout defaults for this node.
	Policy *NodePolicy
}

// Edge is a directed, optionally-guarded connection between two nodes.
type Edge struct {
	ID    string
	From  string
	To    string
	Kind  EdgeKind
	Guard string // expression text; empty means unconditional
}

// Workflow is the engine's immutable input: a DAG of nodes and guarded
// edges. Callers must not mutate a Workflow after handing it to the
// engine; derive a new Workflow instead.
type Workflow struct {
	ID      string
	Nodes   map[string]NodeDescriptor
	Edges   map[string]Edge
	Status  WorkflowStatus
	// nodeOrder preserves insertion order for the start-node fallback and
	// for deterministic edge iteration when callers build Workflow via
	// NewWorkflow/AddNode.
	nodeOrder []string
	// outgoing indexes edges by their From node, preserving the order
	// AddEdge was called so the Conditional Router iterates in
	// declaration order per spec.
	outgoing map[string][]string
}

// NewWorkflow constructs an empty, active Workflow ready for AddNode/AddEdge.
func NewWorkflow(id string) *Workflow {
	return &Workflow{
		ID:       id,
		Nodes:    make(map[string]NodeDescriptor),
		Edges:    make(map[string]Edge),
		Status:   WorkflowActive,
		outgoing: make(map[string][]string),
	}
}

// AddNode registers a node descriptor, preserving insertion order.
func (w *Workflow) AddNode(n NodeDescriptor) {
	if _, exists := w.Nodes[n.ID]; !exists {
		w.nodeOrder = append(w.nodeOrder, n.ID)
	}
	w.Nodes[n.ID] = n
}

// AddEdge registers an edge, preserving declaration order per source node.
func (w *Workflow) AddEdge(e Edge) {
	w.Edges[e.ID] = e
	w.outgoing[e.From] = append(w.outgoing[e.From], e.ID)
}

// IsEmpty reports whether the workflow has no nodes.
func (w *Workflow) IsEmpty() bool {
	return len(w.Nodes) == 0
}

// StartNode returns the node tagged IsStart, or the first node added if
// none is tagged.
func (w *Workflow) StartNode() (NodeDescriptor, bool) {
	for _, id := range w.nodeOrder {
		if w.Nodes[id].IsStart {
			return w.Nodes[id], true
		}
	}
	if len(w.nodeOrder) == 0 {
		return NodeDescriptor{}, false
	}
	return w.Nodes[w.nodeOrder[0]], true
}

// OutgoingEdges returns the edges leaving nodeID in declaration order.
func (w *Workflow) OutgoingEdges(nodeID string) []Edge {
	ids := w.outgoing[nodeID]
	edges := make([]Edge, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, w.Edges[id])
	}
	return edges
}

// ExecutionStatus is the terminal (or in-flight) outcome of a workflow run,
// reported on WorkflowExecutionResult.Status.
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusCancelled ExecutionStatus = "cancelled"
	StatusTimeout   ExecutionStatus = "timeout"
	StatusStepLimit ExecutionStatus = "step-limit"
	StatusError     ExecutionStatus = "error"
)

// ExecutionErrorDetails describes why a run ended in StatusError (or
// carries the failing node for other terminal statuses where relevant).
type ExecutionErrorDetails struct {
	NodeID    string
	ErrorType ErrorType
	Message   string
	Timestamp time.Time
}

// WorkflowExecutionResult is returned by Engine.Execute on every exit path.
type WorkflowExecutionResult struct {
	Success         bool
	FinalState      WorkflowState
	ExecutedNodes   int
	ExecutionTime   time.Duration
	CheckpointCount int
	Status          ExecutionStatus
	ErrorDetails    *ExecutionErrorDetails
}
