package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violationCodes(vs []Violation) []string {
	codes := make([]string, 0, len(vs))
	for _, v := range vs {
		codes = append(codes, v.Code)
	}
	return codes
}

func TestValidate_CleanGraph(t *testing.T) {
	assert.Empty(t, Validate(twoNodeGraph()))
}

func TestValidate_DuplicateOption(t *testing.T) {
	g := twoNodeGraph()
	n := g.Nodes["R1"]
	n.Distractors = append(n.Distractors, Distractor{OptionID: "A", Value: "1", MisconceptionTag: "MISC-2"})
	g.Nodes["R1"] = n

	vs := Validate(g)
	require.Len(t, vs, 1)
	assert.Equal(t, ViolationDuplicateOption, vs[0].Code)
	assert.Equal(t, "R1", vs[0].NodeID)
}

func TestValidate_MissingEdge(t *testing.T) {
	g := twoNodeGraph()
	g.Edges = g.Edges[1:] // drop (R1, A)

	vs := Validate(g)
	require.Len(t, vs, 1)
	assert.Equal(t, ViolationMissingEdge, vs[0].Code)
	assert.Equal(t, "R1", vs[0].NodeID)
}

func TestValidate_DuplicateEdge(t *testing.T) {
	g := twoNodeGraph()
	g.Edges = append(g.Edges, Edge{FromNodeID: "R1", OptionSelected: "A", ToNodeID: nil})

	vs := Validate(g)
	require.Len(t, vs, 1)
	assert.Equal(t, ViolationDuplicateEdge, vs[0].Code)
}

func TestValidate_DanglingEdges(t *testing.T) {
	g := twoNodeGraph()
	g.Edges = append(g.Edges,
		Edge{FromNodeID: "R1", OptionSelected: "Z", ToNodeID: nil}, // no such option
		Edge{FromNodeID: "R9", OptionSelected: "A", ToNodeID: nil}, // no such node
	)

	codes := violationCodes(Validate(g))
	assert.Equal(t, []string{ViolationDanglingEdge, ViolationDanglingEdge}, codes)
}

func TestValidate_UnknownTarget(t *testing.T) {
	g := twoNodeGraph()
	g.Edges[1].ToNodeID = strPtr("GHOST")

	vs := Validate(g)
	require.Len(t, vs, 1)
	assert.Equal(t, ViolationUnknownNode, vs[0].Code)
}

func TestValidate_MissingRoot(t *testing.T) {
	g := twoNodeGraph()
	g.RootNodeID = "NOPE"

	codes := violationCodes(Validate(g))
	assert.Contains(t, codes, ViolationNoRoot)
}

func TestValidate_ReachableCycle(t *testing.T) {
	g := twoNodeGraph()
	// Route the probe's wrong answer back to the root.
	g.Edges[3].ToNodeID = strPtr("R1")

	codes := violationCodes(Validate(g))
	assert.Contains(t, codes, ViolationCycle)
}

func TestValidate_UnreachableCycle(t *testing.T) {
	g := twoNodeGraph()
	// Two nodes cycling between each other, disconnected from the root.
	for _, id := range []string{"X1", "X2"} {
		g.Nodes[id] = Node{
			NodeID:        id,
			Kind:          KindProbe,
			Stem:          "loop",
			CorrectAnswer: CorrectAnswer{OptionID: "A", Value: "1"},
		}
	}
	g.Edges = append(g.Edges,
		Edge{FromNodeID: "X1", OptionSelected: "A", ToNodeID: strPtr("X2")},
		Edge{FromNodeID: "X2", OptionSelected: "A", ToNodeID: strPtr("X1")},
	)

	codes := violationCodes(Validate(g))
	assert.Contains(t, codes, ViolationCycle)
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	// One broken graph, several independent defects: validation must report
	// them all instead of short-circuiting.
	g := twoNodeGraph()
	g.RootNodeID = "NOPE"
	g.Edges = g.Edges[1:]
	g.Edges = append(g.Edges, Edge{FromNodeID: "R1", OptionSelected: "Z", ToNodeID: strPtr("GHOST")})

	codes := violationCodes(Validate(g))
	assert.Contains(t, codes, ViolationNoRoot)
	assert.Contains(t, codes, ViolationMissingEdge)
	assert.Contains(t, codes, ViolationDanglingEdge)
	assert.Contains(t, codes, ViolationUnknownNode)
}

func TestViolation_String(t *testing.T) {
	v := Violation{Code: ViolationMissingEdge, NodeID: "R1", Message: `option "A" has no outgoing edge`}
	assert.Equal(t, `missing_edge [R1]: option "A" has no outgoing edge`, v.String())

	v = Violation{Code: ViolationNoRoot, Message: "root gone"}
	assert.Equal(t, "no_root: root gone", v.String())
}
