package diagnostic

import (
	"encoding/json"
	"fmt"
)

// NodeKind discriminates the two node variants of a decision graph.
type NodeKind string

const (
	KindItem  NodeKind = "item"
	KindProbe NodeKind = "probe"
)

// CorrectAnswer 正确选项及其推理依据
type CorrectAnswer struct {
	OptionID  string `json:"option_id"`
	Value     string `json:"value"`
	Reasoning string `json:"reasoning"`
}

// Distractor 错误选项，映射到一个具体的误解标签
type Distractor struct {
	OptionID         string  `json:"option_id"`
	Value            string  `json:"value"`
	MisconceptionTag string  `json:"misconception_tag"`
	ConfidenceWeight float64 `json:"confidence_weight"`
}

// Node is one question in the decision graph. Kind distinguishes the root
// item variant from follow-up probes; the probe-only fields are empty on
// items.
type Node struct {
	NodeID        string        `json:"node_id"`
	Kind          NodeKind      `json:"type"`
	Stem          string        `json:"stem"`
	CorrectAnswer CorrectAnswer `json:"correct_answer"`
	Distractors   []Distractor  `json:"distractors"`

	// Probe-only fields
	ParentNodeID          string `json:"parent_node_id,omitempty"`
	MisconceptionTag      string `json:"misconception_tag,omitempty"`
	ConfirmsMisconception bool   `json:"confirms_misconception,omitempty"`
}

// OptionIDs 返回节点全部合法选项（正确答案 + 干扰项），按声明顺序
func (n *Node) OptionIDs() []string {
	ids := make([]string, 0, len(n.Distractors)+1)
	ids = append(ids, n.CorrectAnswer.OptionID)
	for _, d := range n.Distractors {
		ids = append(ids, d.OptionID)
	}
	return ids
}

// HasOption reports whether optionID is valid on this node.
func (n *Node) HasOption(optionID string) bool {
	if n.CorrectAnswer.OptionID == optionID {
		return true
	}
	for _, d := range n.Distractors {
		if d.OptionID == optionID {
			return true
		}
	}
	return false
}

// Edge routes (from_node, option_selected) to the next node. A nil ToNodeID
// marks an author-declared leaf. The optional misconception tag and delta
// feed the confidence tracker.
type Edge struct {
	FromNodeID       string  `json:"from_node_id"`
	OptionSelected   string  `json:"option_selected"`
	ToNodeID         *string `json:"to_node_id"`
	MisconceptionTag string  `json:"misconception_tag,omitempty"`
	ConfidenceDelta  float64 `json:"confidence_delta"`
}

// Terminal reports whether this edge ends the session by graph structure.
func (e *Edge) Terminal() bool {
	return e.ToNodeID == nil
}

// Graph is an immutable decision graph: an arena of nodes keyed by string id
// plus a directed edge list. It is shared read-only across sessions; nothing
// in this package mutates it after construction.
type Graph struct {
	RootNodeID string          `json:"root_node_id"`
	MaxDepth   int             `json:"max_depth"`
	Nodes      map[string]Node `json:"nodes"`
	Edges      []Edge          `json:"edges"`
}

// Node looks up a node by id.
func (g *Graph) Node(nodeID string) (Node, bool) {
	n, ok := g.Nodes[nodeID]
	return n, ok
}

// EdgeFor finds the outgoing edge for (nodeID, optionID). Edge lists are
// small (a handful of options per node), a linear scan is fine.
func (g *Graph) EdgeFor(nodeID, optionID string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.FromNodeID == nodeID && e.OptionSelected == optionID {
			return e, true
		}
	}
	return Edge{}, false
}

// ParseGraph decodes the wire shape produced by the form generation
// pipeline. Structural correctness is the validator's job; this only rejects
// JSON that cannot represent a graph at all.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGraph, err)
	}
	if g.RootNodeID == "" {
		return nil, fmt.Errorf("%w: missing root_node_id", ErrMalformedGraph)
	}
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrMalformedGraph)
	}
	if g.MaxDepth <= 0 {
		return nil, fmt.Errorf("%w: max_depth must be positive", ErrMalformedGraph)
	}
	for id, n := range g.Nodes {
		if n.NodeID == "" {
			n.NodeID = id
			g.Nodes[id] = n
		} else if n.NodeID != id {
			return nil, fmt.Errorf("%w: node key %q disagrees with node_id %q", ErrMalformedGraph, id, n.NodeID)
		}
	}
	return &g, nil
}

// EncodeGraph serializes a graph back to the wire shape. encoding/json sorts
// map keys, so output is stable for a given graph.
func EncodeGraph(g *Graph) ([]byte, error) {
	return json.Marshal(g)
}
