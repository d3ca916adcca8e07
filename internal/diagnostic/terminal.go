package diagnostic

// IsTerminal decides whether a session is finished. It is evaluated after a
// response has been recorded but before the session advances, with the edge
// that matched that response. A session ends when any of these hold:
//
//  1. the matched edge is an author-declared leaf (to_node_id is null);
//  2. any suspected misconception reached the early-exit confidence,
//     even if the graph would route onward — evidence is overwhelming and
//     further probing only burdens the learner;
//  3. the visited path hit max_depth+1 nodes (root counts as depth 1),
//     the hard backstop against runaway or cyclic-looking graphs.
func IsTerminal(g *Graph, s *Session, edge Edge, th Thresholds) bool {
	if edge.Terminal() {
		return true
	}

	// Exclusive at the boundary: a signal landing exactly on the threshold
	// still routes to its confirming probe instead of exiting.
	for _, conf := range s.SuspectedMisconceptions {
		if conf > th.EarlyExit {
			return true
		}
	}

	return len(s.VisitedNodes) >= g.MaxDepth+1
}
