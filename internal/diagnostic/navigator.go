package diagnostic

import (
	"fmt"
	"time"
)

// Navigator drives sessions through one validated decision graph. The graph
// is shared read-only, so a single Navigator serves any number of concurrent
// sessions; what it must not see is concurrent Advance calls on the SAME
// session — the caller serializes those.
type Navigator struct {
	graph      *Graph
	catalog    CatalogLookup
	thresholds Thresholds
	now        func() time.Time
}

// NavigatorOption customizes a Navigator.
type NavigatorOption func(*Navigator)

// WithThresholds overrides the default confirmation/early-exit constants.
func WithThresholds(th Thresholds) NavigatorOption {
	return func(n *Navigator) { n.thresholds = th }
}

// WithClock injects the time source. Timestamps only label records; they
// never influence routing, so tests can pin the clock.
func WithClock(now func() time.Time) NavigatorOption {
	return func(n *Navigator) { n.now = now }
}

// NewNavigator builds a navigator over an already-validated graph.
func NewNavigator(graph *Graph, catalog CatalogLookup, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		graph:      graph,
		catalog:    catalog,
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Outcome is what one Advance call produced: either the next node to show,
// or the final result when the session terminated.
type Outcome struct {
	Terminal bool    `json:"terminal"`
	NextNode *Node   `json:"next_node,omitempty"`
	Result   *Result `json:"result,omitempty"`
}

// Start creates a fresh in-progress session positioned at the graph root.
func (n *Navigator) Start(sessionID, learnerID, formID string) *Session {
	return &Session{
		SessionID:               sessionID,
		LearnerID:               learnerID,
		FormID:                  formID,
		CurrentNodeID:           n.graph.RootNodeID,
		VisitedNodes:            []string{},
		Responses:               map[string]string{},
		SuspectedMisconceptions: map[string]float64{},
		ConfirmedMisconceptions: []string{},
		Status:                  StatusInProgress,
		StartedAt:               n.now(),
	}
}

// Advance applies one response to the session and either moves it to the
// next node or finalizes it. For a fixed graph and response sequence the
// resulting state and Result are fully deterministic.
//
// The edge is resolved before anything is recorded, so an ErrUnknownOption
// leaves the session exactly as it was.
func (n *Navigator) Advance(s *Session, option string, elapsedSeconds int) (*Outcome, error) {
	if s.Status != StatusInProgress {
		return nil, ErrSessionCompleted
	}

	node, ok := n.graph.Node(s.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, s.CurrentNodeID)
	}
	if !node.HasOption(option) {
		return nil, fmt.Errorf("%w: node %s has no option %q", ErrUnknownOption, s.CurrentNodeID, option)
	}
	edge, ok := n.graph.EdgeFor(s.CurrentNodeID, option)
	if !ok {
		// A validated graph covers every option with exactly one edge.
		return nil, fmt.Errorf("%w: node %s has no edge for option %q", ErrUnknownOption, s.CurrentNodeID, option)
	}

	// Record the response, then fold the edge's evidence into the
	// confidence state.
	s.Responses[s.CurrentNodeID] = option
	s.VisitedNodes = append(s.VisitedNodes, s.CurrentNodeID)
	if elapsedSeconds > 0 {
		s.TotalTimeSeconds += elapsedSeconds
	}

	s.SuspectedMisconceptions = ApplyConfidence(s.SuspectedMisconceptions, edge.MisconceptionTag, edge.ConfidenceDelta)
	if edge.MisconceptionTag != "" &&
		s.SuspectedMisconceptions[edge.MisconceptionTag] >= n.thresholds.Confirm &&
		!s.Confirmed(edge.MisconceptionTag) {
		s.ConfirmedMisconceptions = append(s.ConfirmedMisconceptions, edge.MisconceptionTag)
	}

	if IsTerminal(n.graph, s, edge, n.thresholds) {
		completedAt := n.now()
		s.Status = StatusCompleted
		s.CompletedAt = &completedAt
		return &Outcome{
			Terminal: true,
			Result:   Synthesize(s, n.catalog, completedAt),
		}, nil
	}

	s.CurrentNodeID = *edge.ToNodeID
	next, ok := n.graph.Node(s.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, s.CurrentNodeID)
	}
	return &Outcome{NextNode: &next}, nil
}

// CurrentNode returns the node the session is waiting on. Graphs are
// immutable, so a miss here means the graph was swapped out from under an
// active session.
func (n *Navigator) CurrentNode(s *Session) (*Node, error) {
	node, ok := n.graph.Node(s.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, s.CurrentNodeID)
	}
	return &node, nil
}

// Abandon marks a session abandoned. The engine never triggers this itself;
// an external housekeeping process decides when a stale session is dead.
func (n *Navigator) Abandon(s *Session) error {
	if s.Status == StatusCompleted {
		return ErrSessionCompleted
	}
	s.Status = StatusAbandoned
	return nil
}
