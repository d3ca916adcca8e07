package diagnostic

import "fmt"

// Violation is one structural defect found in a decision graph. A form with
// any violation must not be handed to the navigator; validation is the
// build-time gate for the generation pipeline.
type Violation struct {
	Code    string `json:"code"`
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.NodeID == "" {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", v.Code, v.NodeID, v.Message)
}

// Violation codes.
const (
	ViolationDuplicateOption = "duplicate_option"
	ViolationMissingEdge     = "missing_edge"
	ViolationDuplicateEdge   = "duplicate_edge"
	ViolationDanglingEdge    = "dangling_edge"
	ViolationUnknownNode     = "unknown_node"
	ViolationCycle           = "cycle"
	ViolationNoRoot          = "no_root"
)

// Validate runs every structural check and collects all violations instead
// of stopping at the first one, so the generation pipeline gets a complete
// defect report in one pass.
func Validate(g *Graph) []Violation {
	var out []Violation

	if _, ok := g.Nodes[g.RootNodeID]; !ok {
		out = append(out, Violation{
			Code:    ViolationNoRoot,
			NodeID:  g.RootNodeID,
			Message: fmt.Sprintf("root_node_id %q does not reference a node", g.RootNodeID),
		})
	}

	out = append(out, checkOptionUniqueness(g)...)
	out = append(out, checkEdgeCoverage(g)...)
	out = append(out, checkEdgeTargets(g)...)
	out = append(out, checkCycles(g)...)

	return out
}

// checkOptionUniqueness 校验每个节点内 option_id 互不重复（含正确答案）
func checkOptionUniqueness(g *Graph) []Violation {
	var out []Violation
	for id, n := range g.Nodes {
		seen := map[string]bool{}
		for _, opt := range n.OptionIDs() {
			if seen[opt] {
				out = append(out, Violation{
					Code:    ViolationDuplicateOption,
					NodeID:  id,
					Message: fmt.Sprintf("option_id %q appears more than once", opt),
				})
			}
			seen[opt] = true
		}
	}
	return out
}

// checkEdgeCoverage verifies every option of every node has exactly one
// outgoing edge and that no edge references an option its node lacks.
func checkEdgeCoverage(g *Graph) []Violation {
	var out []Violation

	// (from_node, option) -> edge count
	counts := map[string]map[string]int{}
	for _, e := range g.Edges {
		if counts[e.FromNodeID] == nil {
			counts[e.FromNodeID] = map[string]int{}
		}
		counts[e.FromNodeID][e.OptionSelected]++
	}

	for id, n := range g.Nodes {
		for _, opt := range n.OptionIDs() {
			switch c := counts[id][opt]; {
			case c == 0:
				out = append(out, Violation{
					Code:    ViolationMissingEdge,
					NodeID:  id,
					Message: fmt.Sprintf("option %q has no outgoing edge", opt),
				})
			case c > 1:
				out = append(out, Violation{
					Code:    ViolationDuplicateEdge,
					NodeID:  id,
					Message: fmt.Sprintf("option %q has %d outgoing edges, want exactly one", opt, c),
				})
			}
		}
	}

	for _, e := range g.Edges {
		n, ok := g.Nodes[e.FromNodeID]
		if !ok {
			out = append(out, Violation{
				Code:    ViolationDanglingEdge,
				NodeID:  e.FromNodeID,
				Message: fmt.Sprintf("edge starts at unknown node %q", e.FromNodeID),
			})
			continue
		}
		if !n.HasOption(e.OptionSelected) {
			out = append(out, Violation{
				Code:    ViolationDanglingEdge,
				NodeID:  e.FromNodeID,
				Message: fmt.Sprintf("edge references option %q which node %q does not have", e.OptionSelected, e.FromNodeID),
			})
		}
	}

	return out
}

// checkEdgeTargets verifies every non-null to_node_id resolves to a node.
func checkEdgeTargets(g *Graph) []Violation {
	var out []Violation
	for _, e := range g.Edges {
		if e.ToNodeID == nil {
			continue
		}
		if _, ok := g.Nodes[*e.ToNodeID]; !ok {
			out = append(out, Violation{
				Code:    ViolationUnknownNode,
				NodeID:  e.FromNodeID,
				Message: fmt.Sprintf("edge (%s, %s) targets unknown node %q", e.FromNodeID, e.OptionSelected, *e.ToNodeID),
			})
		}
	}
	return out
}

// checkCycles runs a visited-set DFS over every node, not just the subgraph
// reachable from the root: an unreachable cycle still means depth-bounded
// traversal cannot guarantee termination and the graph must be rejected.
func checkCycles(g *Graph) []Violation {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS stack
		black = 2 // fully explored
	)

	color := make(map[string]int, len(g.Nodes))
	var out []Violation
	reported := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		for _, e := range g.Edges {
			if e.FromNodeID != id || e.ToNodeID == nil {
				continue
			}
			next := *e.ToNodeID
			if _, ok := g.Nodes[next]; !ok {
				continue // reported by checkEdgeTargets
			}
			switch color[next] {
			case white:
				visit(next)
			case grey:
				if !reported[next] {
					reported[next] = true
					out = append(out, Violation{
						Code:    ViolationCycle,
						NodeID:  next,
						Message: fmt.Sprintf("cycle detected through node %q", next),
					})
				}
			}
		}
		color[id] = black
	}

	// Start from the root first so cycle reports name reachable nodes when
	// possible, then sweep the remainder.
	if _, ok := g.Nodes[g.RootNodeID]; ok {
		visit(g.RootNodeID)
	}
	for id := range g.Nodes {
		if color[id] == white {
			visit(id)
		}
	}

	return out
}
