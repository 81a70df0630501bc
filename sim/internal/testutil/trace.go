// Package testutil provides shared test infrastructure for devsim.
// It holds trace comparison helpers for engine tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/devsim/devsim/sim/trace"
)

// Fingerprint renders every record of st as one line: outputs, then inputs, then
// transitions, each in recording order. With shortNames, model paths are reduced to
// their last segment so nested and flattened versions of a model compare equal; root
// outputs are always labelled "<root>".
func Fingerprint(st *trace.SimulationTrace, shortNames bool) []string {
	name := func(path string, root bool) string {
		if root {
			return "<root>"
		}
		if shortNames {
			return path[strings.LastIndex(path, ".")+1:]
		}
		return path
	}
	var lines []string
	for _, r := range st.Outputs {
		lines = append(lines, fmt.Sprintf("out  t=%d %s.%s=%v", r.Clock, name(r.Model, r.Root), r.Port, r.Value))
	}
	for _, r := range st.Inputs {
		lines = append(lines, fmt.Sprintf("in   t=%d %s.%s=%v", r.Clock, name(r.Model, false), r.Port, r.Value))
	}
	for _, r := range st.Transitions {
		lines = append(lines, fmt.Sprintf("tr   t=%d %s %s e=%d next=%d passive=%v",
			r.Clock, name(r.Model, false), r.Kind, r.Elapsed, r.Next, r.Passive))
	}
	return lines
}

// AssertSameTrace fails t when the two traces differ, reporting the first difference.
func AssertSameTrace(t *testing.T, want, got *trace.SimulationTrace, shortNames bool) {
	t.Helper()
	w, g := Fingerprint(want, shortNames), Fingerprint(got, shortNames)
	for i := 0; i < len(w) && i < len(g); i++ {
		if w[i] != g[i] {
			t.Fatalf("traces diverge at line %d:\n want: %s\n  got: %s", i, w[i], g[i])
		}
	}
	if len(w) != len(g) {
		t.Fatalf("trace lengths differ: want %d lines, got %d", len(w), len(g))
	}
}
