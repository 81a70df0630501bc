package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsim/devsim/sim"
	"github.com/devsim/devsim/sim/config"
	"github.com/devsim/devsim/sim/library"
	"github.com/devsim/devsim/sim/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

const pipelineYAML = `
version: "1"
engine:
  max_iterations: 50
  workers: 2
  until: 20
root:
  name: top
  outputs:
    - { name: ids, type: int }
  models:
    - name: gen
      kind: generator
      params: { period: 5, limit: 3 }
    - name: hold
      kind: delay
      params: { delay: 2 }
    - name: sink
      kind: sink
  couplings:
    - { from: gen.out, to: hold.in }
    - { from: hold.out, to: sink.in }
    - { from: gen.out, to: ids, transform: job-id }
`

func parse(t *testing.T, doc string) *config.ModelSpec {
	t.Helper()
	spec, err := config.ParseModelSpec([]byte(doc))
	require.NoError(t, err)
	return spec
}

func TestNewSimulator_RunsYAMLPipeline(t *testing.T) {
	// GIVEN a pipeline defined in YAML
	spec := parse(t, pipelineYAML)
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelOutputs})

	// WHEN it is built and run to the configured horizon
	s, err := config.NewSimulator(spec, sim.WithListener(sim.NewTraceListener(st)))
	require.NoError(t, err)
	require.NoError(t, s.RunUntil(spec.Engine.UntilTime()))

	// THEN the root output carries the job ids through the registered transform
	require.Len(t, st.Outputs, 3)
	for i, rec := range st.Outputs {
		assert.Equal(t, i+1, rec.Value)
		assert.Equal(t, int64(5*i), rec.Clock)
	}
	sink, ok := s.Atomic("top.sink")
	require.True(t, ok)
	assert.Equal(t, 3, sink.(*library.Sink).Count())
	assert.Equal(t, sim.Time(12), s.CurrentTime())
}

func TestParseModelSpec_RejectsUnknownFields(t *testing.T) {
	_, err := config.ParseModelSpec([]byte("version: \"1\"\nroot: {name: x, kind: sink}\nengin: {}\n"))
	assert.ErrorContains(t, err, "engin")
}

func TestLoadModelSpec_ExampleFileBuilds(t *testing.T) {
	// GIVEN the example shipped with the repository
	spec, err := config.LoadModelSpec(filepath.Join("..", "..", "examples", "queue.yaml"))
	require.NoError(t, err)

	// WHEN built
	s, err := config.NewSimulator(spec)
	require.NoError(t, err)

	// THEN it runs to its horizon
	require.NoError(t, s.RunUntil(spec.Engine.UntilTime()))
	assert.LessOrEqual(t, s.CurrentTime(), sim.Time(200))
	assert.Greater(t, s.Cycles(), 0)
}

func TestLoadModelSpec_MissingFile(t *testing.T) {
	_, err := config.LoadModelSpec(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading model spec")
}

func TestValidate_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing version",
			doc:  "root: {name: x, kind: sink}\n",
			want: "version",
		},
		{
			name: "wrong version",
			doc:  "version: \"2\"\nroot: {name: x, kind: sink}\n",
			want: "oneof",
		},
		{
			name: "negative workers",
			doc:  "version: \"1\"\nengine: {workers: -1}\nroot: {name: x, kind: sink}\n",
			want: "workers",
		},
		{
			name: "dotted name",
			doc:  "version: \"1\"\nroot: {name: a.b, kind: sink}\n",
			want: "cannot contain '.'",
		},
		{
			name: "atomic with children",
			doc:  "version: \"1\"\nroot: {name: x, kind: sink, models: [{name: y, kind: sink}]}\n",
			want: "cannot have models or couplings",
		},
		{
			name: "atomic with ports",
			doc:  "version: \"1\"\nroot: {name: x, kind: sink, inputs: [{name: in}]}\n",
			want: "defined by its kind",
		},
		{
			name: "params without kind",
			doc:  "version: \"1\"\nroot: {name: x, params: {a: 1}}\n",
			want: "params require a kind",
		},
		{
			name: "bad endpoint",
			doc:  "version: \"1\"\nroot: {name: x, couplings: [{from: a.b.c, to: d}]}\n",
			want: `invalid endpoint "a.b.c"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := parse(t, tc.doc)
			err := spec.Validate()
			assert.ErrorContains(t, err, tc.want)
			assert.True(t, errors.Is(err, sim.ErrConfiguration))

			_, err = config.Build(spec)
			assert.True(t, errors.Is(err, sim.ErrConfiguration), "Build validates first")
		})
	}
}

func TestBuild_MalformedEndpointIsConfigurationError(t *testing.T) {
	// GIVEN a coupling whose source has one segment too many
	spec := parse(t, `
version: "1"
root:
  name: top
  models:
    - { name: g, kind: generator }
    - { name: k, kind: sink }
  couplings:
    - { from: g.out.extra, to: k.in }
`)

	// WHEN built
	_, err := config.Build(spec)

	// THEN it fails like any other graph problem
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))
	var cfgErr *sim.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Len(t, cfgErr.Issues, 1)
	assert.Equal(t, "top", cfgErr.Issues[0].Model)
	assert.Contains(t, cfgErr.Issues[0].Reason, `coupling 0: invalid endpoint "g.out.extra"`)
}

func TestValidate_ReportsEveryShapeProblem(t *testing.T) {
	// GIVEN a spec with a bad version, a dotted name, params on a coupled component and a bad endpoint
	spec := parse(t, `
version: "2"
root:
  name: top
  params: { a: 1 }
  models:
    - { name: a.b, kind: sink }
  couplings:
    - { from: ".x", to: y }
`)

	// WHEN validated
	err := spec.Validate()

	// THEN one configuration error lists all four
	var cfgErr *sim.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Issues, 4)
	msg := err.Error()
	for _, fragment := range []string{"oneof", "params require a kind", "cannot contain '.'", `invalid endpoint ".x"`} {
		assert.Contains(t, msg, fragment)
	}
}

func TestBuild_AggregatesRegistryProblems(t *testing.T) {
	// GIVEN a spec naming an unknown kind, type, transform and model, plus bad params
	spec := parse(t, `
version: "1"
root:
  name: top
  inputs:
    - { name: in, type: complex }
  models:
    - { name: a, kind: teleporter }
    - { name: b, kind: generator, params: { period: 0 } }
    - { name: c, kind: sink, params: { colour: red } }
    - { name: r, kind: relay }
    - { name: r2, kind: relay }
  couplings:
    - { from: a.out, to: r.in }
    - { from: c.out, to: r.in }
    - { from: ghost.out, to: r.in }
    - { from: r.out, to: r2.in, transform: teleport }
`)

	// WHEN built
	_, err := config.Build(spec)

	// THEN one configuration error lists every problem
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))
	var cfgErr *sim.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	msg := err.Error()
	for _, fragment := range []string{
		`unknown type "complex"`,
		`unknown kind "teleporter"`,
		"kind generator: params:",
		"kind sink: params:",
		`no model named "ghost"`,
		`unknown transform "teleport"`,
	} {
		assert.Contains(t, msg, fragment)
	}
	assert.NotContains(t, msg, `"a"`, "couplings on models that failed to build are not reported again")
	assert.Len(t, cfgErr.Issues, 6)
}

func TestBuild_GraphProblemsComeFromTheEngine(t *testing.T) {
	// GIVEN a well-formed spec whose coupling targets an output port
	spec := parse(t, `
version: "1"
root:
  name: top
  models:
    - { name: g, kind: generator }
    - { name: r, kind: relay }
  couplings:
    - { from: g.out, to: r.out }
`)

	_, err := config.Build(spec)

	assert.True(t, errors.Is(err, sim.ErrConfiguration))
	assert.ErrorContains(t, err, `r has no input port "out"`)
}

func TestBuild_TypeMismatchAcrossRegistries(t *testing.T) {
	// GIVEN a job output coupled onto a root port declared as string
	spec := parse(t, `
version: "1"
root:
  name: top
  outputs: [{ name: out, type: string }]
  models:
    - { name: g, kind: generator }
  couplings:
    - { from: g.out, to: out }
`)

	_, err := config.Build(spec)

	assert.ErrorContains(t, err, "library.Job is not assignable to string")
}

func TestNewSimulator_EngineSettings(t *testing.T) {
	// GIVEN a zero-time echo loop with a tight iteration bound and a start time
	spec := parse(t, `
version: "1"
engine: { max_iterations: 4, start: 10 }
root:
  name: top
  models:
    - { name: g, kind: generator, params: { start: 1, limit: 1 } }
    - { name: a, kind: relay }
    - { name: b, kind: relay }
  couplings:
    - { from: g.out, to: a.in }
    - { from: a.out, to: b.in }
    - { from: b.out, to: a.in }
`)

	s, err := config.NewSimulator(spec)
	require.NoError(t, err)
	assert.Equal(t, sim.Time(11), s.NextEventTime())

	_, err = s.AdvanceToNextEvent()

	var deadlock *sim.DeadlockError
	require.True(t, errors.As(err, &deadlock))
	assert.Equal(t, 4, deadlock.Iterations)
	assert.Equal(t, sim.Time(11), deadlock.Time)
	assert.True(t, spec.Engine.UntilTime().IsInf())
}

func TestKindsAndTypes_IncludeLibrary(t *testing.T) {
	var names []string
	for _, k := range config.Kinds() {
		names = append(names, k.Name)
		assert.NotEmpty(t, k.Description)
	}
	assert.Equal(t, []string{"delay", "generator", "processor", "relay", "sink"}, names)
	assert.Equal(t, []string{"any", "bool", "float", "int", "job", "string"}, config.TypeNames())
	assert.Contains(t, config.TransformNames(), "job-id")
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	assert.Panics(t, func() { config.RegisterType("int", nil) })
	assert.Panics(t, func() { config.Register("sink", "again", nil) })
	assert.Panics(t, func() { config.RegisterTransform("x", nil) })
}

func TestDecodeParams_DefaultsStrictnessAndValidation(t *testing.T) {
	type params struct {
		Rate  int    `yaml:"rate" validate:"gt=0"`
		Label string `yaml:"label"`
	}
	spec := parse(t, "version: \"1\"\nroot:\n  name: x\n  kind: sink\n  params: { label: hi }\n")

	// defaults survive when the key is absent
	p := params{Rate: 3}
	require.NoError(t, config.DecodeParams(&spec.Root.Params, &p))
	assert.Equal(t, params{Rate: 3, Label: "hi"}, p)

	// an absent params node keeps everything at its default
	q := params{Rate: 1}
	require.NoError(t, config.DecodeParams(nil, &q))

	// validation runs after decoding
	bad := params{}
	assert.ErrorContains(t, config.DecodeParams(nil, &bad), "rate")

	// unknown keys are rejected
	spec = parse(t, "version: \"1\"\nroot:\n  name: x\n  kind: sink\n  params: { lable: hi }\n")
	assert.Error(t, config.DecodeParams(&spec.Root.Params, &params{Rate: 1}))
}
