package archway

import (
	"context"
	"strings"
)

// NodeFunc is the body of a workflow Node: given the current execution
// context, produce the next WorkflowState. A node may call
// WorkflowContext.Interrupt to pause the workflow.
type NodeFunc func(ctx *WorkflowContext) (WorkflowState, error)

// Node is a unit of workflow work with a unique id and a run function.
type Node struct {
	ID  string
	Run NodeFunc
}

// EdgeCondition gates whether an Edge is eligible to fire, given the state
// produced by the edge's source node.
type EdgeCondition func(state WorkflowState) bool

// Edge is a directed transition between two nodes, optionally gated by a
// state predicate. An Edge with a nil Condition is unconditional.
type Edge struct {
	FromID    string
	ToID      string
	Condition EdgeCondition
}

// Workflow is a directed graph of Nodes and Edges with a start node and an
// optional end node.
type Workflow struct {
	ID          string
	nodes       map[string]Node
	edges       []Edge
	startID     string
	endID       string
	persistence Persistence
	bus         *Bus
}

// NewWorkflow creates an empty workflow. A nil persistence means
// interrupts escape to the caller unchanged (no save/resume support).
func NewWorkflow(id string, persistence Persistence) *Workflow {
	return &Workflow{
		ID:          id,
		nodes:       make(map[string]Node),
		persistence: persistence,
		bus:         NewBus(nil),
	}
}

// Bus exposes the workflow's Observer Bus.
func (w *Workflow) Bus() *Bus { return w.bus }

// AddNode registers a node. IDs must be unique and non-empty.
func (w *Workflow) AddNode(node Node) *Workflow {
	w.nodes[node.ID] = node
	return w
}

// AddEdge registers a directed transition, optionally gated by condition.
func (w *Workflow) AddEdge(fromID, toID string, condition EdgeCondition) *Workflow {
	w.edges = append(w.edges, Edge{FromID: fromID, ToID: toID, Condition: condition})
	return w
}

// SetStartNodeID sets the node execution begins at.
func (w *Workflow) SetStartNodeID(id string) *Workflow { w.startID = id; return w }

// SetEndNodeID sets the node whose completion terminates the run.
func (w *Workflow) SetEndNodeID(id string) *Workflow { w.endID = id; return w }

func (w *Workflow) validate() error {
	if w.startID == "" {
		return &WorkflowError{WorkflowID: w.ID, Message: "no start node set"}
	}
	if _, ok := w.nodes[w.startID]; !ok {
		return &WorkflowError{WorkflowID: w.ID, Message: "start node " + w.startID + " not found"}
	}
	for _, e := range w.edges {
		if _, ok := w.nodes[e.FromID]; !ok {
			return &WorkflowError{WorkflowID: w.ID, Message: "edge references unknown source node " + e.FromID}
		}
		if _, ok := w.nodes[e.ToID]; !ok {
			return &WorkflowError{WorkflowID: w.ID, Message: "edge references unknown target node " + e.ToID}
		}
	}
	return nil
}

// WorkflowContext is threaded through every Node.Run invocation for one
// workflow execution. Run is single-threaded per execution; the
// persistence backend, not the context, must be safe under concurrent
// executions of different workflow instances.
type WorkflowContext struct {
	WorkflowID      string
	CurrentNodeID   string
	CurrentState    WorkflowState
	IsResuming      bool
	FeedbackForNode any

	ctx context.Context
	wf  *Workflow
}

// Context returns the Go context.Context for this run, for cancellation
// and deadline propagation into node bodies (e.g. provider calls).
func (c *WorkflowContext) Context() context.Context { return c.ctx }

// Interrupt pauses the workflow. If the context is currently resuming with
// pending feedback, Interrupt consumes and returns that feedback instead of
// pausing — the node can then proceed using the returned value. Otherwise
// it returns a *WorkflowInterrupt carrying the current node id and the
// state that should be persisted (CurrentState merged with dataToSave).
func (c *WorkflowContext) Interrupt(dataToSave WorkflowState) (any, error) {
	if c.IsResuming && c.FeedbackForNode != nil {
		feedback := c.FeedbackForNode
		c.IsResuming = false
		c.FeedbackForNode = nil
		return feedback, nil
	}
	return nil, &WorkflowInterrupt{
		NodeID:     c.CurrentNodeID,
		State:      c.CurrentState.Merge(dataToSave),
		DataToSave: dataToSave,
	}
}

// WorkflowInterrupt is a control-flow signal, not a true error: a node
// paused the workflow to await external input. The engine catches it,
// optionally persists it, and re-surfaces it to the caller of Run/Resume.
type WorkflowInterrupt struct {
	NodeID     string
	State      WorkflowState
	DataToSave WorkflowState
}

func (e *WorkflowInterrupt) Error() string {
	return "workflow interrupted at node " + e.NodeID
}

// Run executes the workflow from initialState until it reaches the end
// node (if set), runs out of eligible outgoing edges (implicit end), or a
// node interrupts. On interrupt, if a Persistence backend is configured,
// the interrupt is saved before being returned to the caller.
func (w *Workflow) Run(ctx context.Context, initialState WorkflowState) (WorkflowState, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	wctx := &WorkflowContext{
		WorkflowID:    w.ID,
		CurrentNodeID: w.startID,
		CurrentState:  initialState,
		ctx:           ctx,
		wf:            w,
	}
	w.publish(ctx, EventWorkflowStart, wctx.CurrentNodeID, nil)
	return w.loop(wctx)
}

// Resume reconstructs execution context from a previously saved
// WorkflowInterrupt and continues the standard execution loop, supplying
// feedback to the node that interrupted. Requires a configured Persistence
// backend and a prior saved interrupt for w.ID.
func (w *Workflow) Resume(ctx context.Context, feedback any) (WorkflowState, error) {
	if w.persistence == nil {
		return nil, &WorkflowError{WorkflowID: w.ID, Message: "resume requires a configured Persistence backend"}
	}
	saved, err := w.persistence.Load(ctx, w.ID)
	if err != nil {
		return nil, &WorkflowError{WorkflowID: w.ID, Message: "load saved state", Cause: err}
	}
	if saved == nil {
		return nil, &WorkflowError{WorkflowID: w.ID, Message: "no saved state"}
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	wctx := &WorkflowContext{
		WorkflowID:      w.ID,
		CurrentNodeID:   saved.NodeID,
		CurrentState:    saved.State,
		IsResuming:      true,
		FeedbackForNode: feedback,
		ctx:             ctx,
		wf:              w,
	}
	w.publish(ctx, EventWorkflowResume, wctx.CurrentNodeID, nil)

	state, err := w.loop(wctx)
	if err != nil {
		return state, err
	}
	if err := w.persistence.Delete(ctx, w.ID); err != nil {
		return state, &WorkflowError{WorkflowID: w.ID, Message: "delete saved state", Cause: err}
	}
	return state, nil
}

func (w *Workflow) loop(wctx *WorkflowContext) (WorkflowState, error) {
	for {
		node, ok := w.nodes[wctx.CurrentNodeID]
		if !ok {
			return nil, &WorkflowError{WorkflowID: w.ID, NodeID: wctx.CurrentNodeID, Message: "unknown node"}
		}

		w.publish(wctx.ctx, EventWorkflowNodeStart, node.ID, nil)
		state, err := node.Run(wctx)
		if err != nil {
			var interrupt *WorkflowInterrupt
			if asWorkflowInterrupt(err, &interrupt) {
				w.publish(wctx.ctx, EventWorkflowInterrupt, node.ID, map[string]any{"nodeId": interrupt.NodeID})
				if w.persistence != nil {
					if saveErr := w.persistence.Save(wctx.ctx, w.ID, interrupt); saveErr != nil {
						return nil, &WorkflowError{WorkflowID: w.ID, NodeID: node.ID, Message: "save interrupt", Cause: saveErr}
					}
				}
				return nil, interrupt
			}
			w.publish(wctx.ctx, EventError, node.ID, map[string]any{"error": err.Error()})
			return nil, &WorkflowError{WorkflowID: w.ID, NodeID: node.ID, Message: "node execution failed", Cause: err}
		}
		wctx.CurrentState = state
		w.publish(wctx.ctx, EventWorkflowNodeStop, node.ID, nil)

		if w.endID != "" && node.ID == w.endID {
			w.publish(wctx.ctx, EventWorkflowStop, node.ID, nil)
			return wctx.CurrentState, nil
		}

		next, found := w.findNextNode(node.ID, wctx.CurrentState)
		if !found {
			w.publish(wctx.ctx, EventWorkflowStop, node.ID, nil)
			return wctx.CurrentState, nil // implicit end: no eligible outgoing edge
		}
		wctx.CurrentNodeID = next
	}
}

// findNextNode iterates edges from fromID in registration order and
// returns the first whose Condition (if any) evaluates true against state.
func (w *Workflow) findNextNode(fromID string, state WorkflowState) (string, bool) {
	for _, e := range w.edges {
		if e.FromID != fromID {
			continue
		}
		if e.Condition == nil || e.Condition(state) {
			return e.ToID, true
		}
	}
	return "", false
}

func (w *Workflow) publish(ctx context.Context, name, nodeID string, payload map[string]any) {
	w.bus.Publish(ctx, Event{Name: name, Source: w.ID, CorrelationID: w.ID, Payload: mergeNodeID(payload, nodeID)})
}

func mergeNodeID(payload map[string]any, nodeID string) map[string]any {
	out := map[string]any{"nodeId": nodeID}
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func asWorkflowInterrupt(err error, target **WorkflowInterrupt) bool {
	wi, ok := err.(*WorkflowInterrupt)
	if !ok {
		return false
	}
	*target = wi
	return true
}

// --- Mermaid diagram export ---

// Mermaid renders the workflow as a Mermaid flowchart string. Node ids are
// sanitized by replacing whitespace and `; : ,` with underscores and
// removing all other non-alphanumeric/underscore/hyphen characters; labels
// are quoted with `"` escaped to `#quot;` and `\` doubled. Conditional
// edges are labeled "Conditional". Start/end nodes receive distinct
// styling classes.
func (w *Workflow) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	ids := make([]string, 0, len(w.nodes))
	for id := range w.nodes {
		ids = append(ids, id)
	}
	for _, id := range ids {
		b.WriteString("    ")
		b.WriteString(sanitizeMermaidID(id))
		b.WriteString("[\"")
		b.WriteString(escapeMermaidLabel(id))
		b.WriteString("\"]\n")
	}
	for _, e := range w.edges {
		b.WriteString("    ")
		b.WriteString(sanitizeMermaidID(e.FromID))
		b.WriteString(" -->")
		if e.Condition != nil {
			b.WriteString("|Conditional|")
		}
		b.WriteString(" ")
		b.WriteString(sanitizeMermaidID(e.ToID))
		b.WriteString("\n")
	}
	if w.startID != "" {
		b.WriteString("    class ")
		b.WriteString(sanitizeMermaidID(w.startID))
		b.WriteString(" startNode\n")
	}
	if w.endID != "" {
		b.WriteString("    class ")
		b.WriteString(sanitizeMermaidID(w.endID))
		b.WriteString(" endNode\n")
	}
	b.WriteString("    classDef startNode fill:#9f9,stroke:#333\n")
	b.WriteString("    classDef endNode fill:#f99,stroke:#333\n")
	return b.String()
}

func sanitizeMermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == ';' || r == ':' || r == ',':
			b.WriteRune('_')
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeMermaidLabel(label string) string {
	label = strings.ReplaceAll(label, `\`, `\\`)
	label = strings.ReplaceAll(label, `"`, "#quot;")
	return label
}
