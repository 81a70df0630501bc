package sim

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireIssues asserts err is a ConfigurationError and returns its reasons joined per issue.
func requireIssues(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConfiguration)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	out := make([]string, len(cfgErr.Issues))
	for i, issue := range cfgErr.Issues {
		out[i] = issue.String()
	}
	return out
}

func containsIssue(issues []string, fragment string) bool {
	for _, s := range issues {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

func TestValidate_RejectsEndpointOutsideDigraph(t *testing.T) {
	// GIVEN a coupling whose target was never added to the digraph
	gen, _ := newTicker("gen", 5)
	stranger, _ := newRecorder("stranger", Infinity)
	root := NewDigraph("top").Add(gen).Couple(gen, "out", stranger, "in")

	// WHEN validated
	issues := requireIssues(t, Validate(root))

	// THEN the stranger is named
	assert.True(t, containsIssue(issues, "stranger is not a child of top"), issues)
}

func TestValidate_AllCouplingClasses(t *testing.T) {
	// GIVEN EIC, IC, EOC and a pass-through coupling
	gen, _ := newTicker("gen", 5)
	rec, _ := newRecorder("rec", 1)
	root := NewDigraph("top").AddInputPort("in", nil).AddOutputPort("out", nil).AddOutputPort("echo", nil)
	root.Add(gen, rec).
		Couple(root, "in", rec, "in").
		Couple(gen, "out", rec, "in").
		Couple(rec, "out", root, "out").
		Couple(root, "in", root, "echo")

	// THEN the graph validates
	assert.NoError(t, Validate(root))
}

func TestValidate_ReportsEveryProblemAtOnce(t *testing.T) {
	// GIVEN a digraph with several independent mistakes
	gen, _ := newTicker("gen", 5)
	rec, _ := newRecorder("rec", Infinity)
	dup, _ := newRecorder("rec", Infinity)
	root := NewDigraph("top").AddOutputPort("out", TypeOf[string]())
	root.Add(gen, rec, dup)
	// unknown source port
	root.Couple(gen, "missing", rec, "in")
	// target is an output port
	root.Couple(gen, "out", rec, "out")
	root.Couple(rec, "out", rec, "in")
	// int into string
	root.Couple(gen, "out", root, "out")
	root.Couple(gen, "out", rec, "in")
	root.Couple(gen, "out", rec, "in")

	// WHEN validated
	issues := requireIssues(t, Validate(root))

	// THEN each problem is listed
	for _, fragment := range []string{
		`duplicate child name "rec"`,
		`gen has no output port "missing"`,
		`rec has no input port "out"`,
		"couples rec to itself",
		"type int is not assignable to string",
		"duplicate coupling",
	} {
		assert.True(t, containsIssue(issues, fragment), "missing %q in %v", fragment, issues)
	}
	assert.Len(t, issues, 6)
}

func TestValidate_NamesAndPorts(t *testing.T) {
	tests := []struct {
		name     string
		model    func() Model
		fragment string
	}{
		{
			name:     "empty child name",
			model:    func() Model { l, _ := newTicker("", 1); return NewDigraph("top").Add(l) },
			fragment: "model name cannot be empty",
		},
		{
			name:     "dotted name",
			model:    func() Model { l, _ := newTicker("a.b", 1); return l },
			fragment: "cannot contain '.'",
		},
		{
			name:     "duplicate port",
			model:    func() Model { return NewLeaf("x", &ticker{period: 1}).AddOutputPort("out", nil).AddOutputPort("out", nil) },
			fragment: `x.out: output port "out" declared twice`,
		},
		{
			name:     "nil atomic",
			model:    func() Model { return NewLeaf("x", nil) },
			fragment: "atomic behavior is nil",
		},
		{
			name: "model in two parents",
			model: func() Model {
				shared, _ := newTicker("shared", 1)
				return NewDigraph("top").Add(NewDigraph("a").Add(shared), NewDigraph("b").Add(shared))
			},
			fragment: "already part of the graph at top.a.shared",
		},
		{
			name:     "nil child",
			model:    func() Model { return NewDigraph("top").Add(nil) },
			fragment: "nil child model",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			issues := requireIssues(t, Validate(tc.model()))
			assert.True(t, containsIssue(issues, tc.fragment), "missing %q in %v", tc.fragment, issues)
		})
	}
	t.Run("nil root", func(t *testing.T) {
		requireIssues(t, Validate(nil))
	})
}

func TestValidate_TransformTypes(t *testing.T) {
	// GIVEN an int source, a string target and transforms of various shapes
	build := func(tr *Transform) Model {
		gen, _ := newTicker("gen", 1)
		sink := NewLeaf("sink", &recorder{sigma: Infinity, replyAfter: Infinity}).AddInputPort("in", TypeOf[string]())
		return NewDigraph("top").Add(gen, sink).Couple(gen, "out", sink, "in", WithTransform(tr))
	}
	toString := Map(func(n int) string { return "x" })
	fromString := Map(func(s string) string { return s })
	toFloat := Map(func(n int) float64 { return float64(n) })

	// THEN only the int->string transform is accepted
	assert.NoError(t, Validate(build(toString)))
	assert.True(t, containsIssue(requireIssues(t, Validate(build(fromString))), "does not match transform"))
	assert.True(t, containsIssue(requireIssues(t, Validate(build(toFloat))), "float64 is not assignable to string"))
}

func TestValidate_TransformedParallelEdgesAreAllowed(t *testing.T) {
	// GIVEN the same endpoint pair coupled twice with different transforms
	gen, _ := newTicker("gen", 1)
	rec, _ := newRecorder("rec", Infinity)
	double := Map(func(n int) int { return 2 * n })
	triple := Map(func(n int) int { return 3 * n })
	root := NewDigraph("top").Add(gen, rec).
		Couple(gen, "out", rec, "in", WithTransform(double)).
		Couple(gen, "out", rec, "in", WithTransform(triple))

	// THEN both edges are kept
	assert.NoError(t, Validate(root))
}

func TestValidate_DetectsInstantaneousLoop(t *testing.T) {
	// GIVEN two pass-through digraphs feeding each other
	a := NewDigraph("a").AddInputPort("in", nil).AddOutputPort("out", nil)
	a.Couple(a, "in", a, "out")
	b := NewDigraph("b").AddInputPort("in", nil).AddOutputPort("out", nil)
	b.Couple(b, "in", b, "out")
	root := NewDigraph("top").Add(a, b).
		Couple(a, "out", b, "in").
		Couple(b, "out", a, "in")

	// WHEN validated
	issues := requireIssues(t, Validate(root))

	// THEN the loop is reported
	assert.True(t, containsIssue(issues, "instantaneous coupling loop"), issues)
}

func TestValidate_FeedbackThroughAtomicIsNotALoop(t *testing.T) {
	// GIVEN two echo models feeding each other (the cycle passes through atomics)
	a, _ := newRecorder("a", 0)
	b, _ := newRecorder("b", 0)
	root := NewDigraph("top").Add(a, b).
		Couple(a, "out", b, "in").
		Couple(b, "out", a, "in")

	// THEN the graph is valid; only running it can tell whether it quiesces
	assert.NoError(t, Validate(root))
}

func TestBuildArena_PreorderWithParents(t *testing.T) {
	// GIVEN top{ x, sub{ y, z }, w }
	x, _ := newTicker("x", 1)
	y, _ := newTicker("y", 1)
	z, _ := newTicker("z", 1)
	w, _ := newTicker("w", 1)
	sub := NewDigraph("sub").Add(y, z)
	root := NewDigraph("top").Add(x, sub, w)

	// WHEN the arena is built
	nodes, err := buildArena(root)
	require.NoError(t, err)

	// THEN nodes follow declared depth-first order and point at their parents
	paths := make([]string, len(nodes))
	for i := range nodes {
		paths[i] = nodes[i].path
	}
	assert.Equal(t, []string{"top", "top.x", "top.sub", "top.sub.y", "top.sub.z", "top.w"}, paths)
	assert.Equal(t, self, nodes[0].parent)
	assert.Equal(t, 2, nodes[3].parent)
	assert.Equal(t, []int{1, 2, 5}, nodes[0].children)
	assert.True(t, nodes[1].leaf)
	assert.False(t, nodes[2].leaf)
}
