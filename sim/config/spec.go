// Package config loads YAML model definitions and builds them into sim models.
// Atomic kinds, port types and coupling transforms are looked up in registries that
// model libraries fill from their init functions (see sim/library).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/devsim/devsim/sim"
)

// ModelSpec is the top-level YAML document.
type ModelSpec struct {
	Version string        `yaml:"version" validate:"required,oneof=1"`
	Engine  EngineSpec    `yaml:"engine"`
	Root    ComponentSpec `yaml:"root"`
}

// EngineSpec holds run settings. Zero values keep the engine defaults.
type EngineSpec struct {
	MaxIterations int       `yaml:"max_iterations" validate:"gte=0"`
	Workers       int       `yaml:"workers" validate:"gte=0"`
	Start         sim.Time  `yaml:"start" validate:"gte=0"`
	Until         *sim.Time `yaml:"until,omitempty"`
}

// UntilTime returns the configured horizon, Infinity when unset.
func (e EngineSpec) UntilTime() sim.Time {
	if e.Until == nil {
		return sim.Infinity
	}
	return *e.Until
}

// ComponentSpec is either atomic (Kind + Params) or coupled (Models + Couplings).
// Atomic components take their ports from their kind.
type ComponentSpec struct {
	Name      string          `yaml:"name" validate:"required"`
	Kind      string          `yaml:"kind,omitempty"`
	Params    yaml.Node       `yaml:"params,omitempty" validate:"-"`
	Inputs    []PortSpec      `yaml:"inputs,omitempty" validate:"dive"`
	Outputs   []PortSpec      `yaml:"outputs,omitempty" validate:"dive"`
	Models    []ComponentSpec `yaml:"models,omitempty" validate:"dive"`
	Couplings []CouplingSpec  `yaml:"couplings,omitempty" validate:"dive"`
}

// IsAtomic reports whether the component names a registered kind.
func (c *ComponentSpec) IsAtomic() bool {
	return c.Kind != ""
}

// PortSpec declares a port of a coupled component. An empty Type accepts any value.
type PortSpec struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type,omitempty"`
}

// CouplingSpec connects two endpoints written "model.port", or "port" for the
// enclosing component's own port.
type CouplingSpec struct {
	From      string `yaml:"from" validate:"required"`
	To        string `yaml:"to" validate:"required"`
	Transform string `yaml:"transform,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadModelSpec reads and parses a YAML model definition file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadModelSpec(path string) (*ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model spec: %w", err)
	}
	return ParseModelSpec(data)
}

// ParseModelSpec parses a YAML model definition.
func ParseModelSpec(data []byte) (*ModelSpec, error) {
	var spec ModelSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing model spec: %w", err)
	}
	return &spec, nil
}

// Validate checks field constraints and the shape of every component.
// Every problem is reported in one *sim.ConfigurationError. Registry lookups and
// graph checks happen in Build.
func (s *ModelSpec) Validate() error {
	var issues []sim.Issue
	if err := validate.Struct(s); err != nil {
		issues = append(issues, validationIssues(err)...)
	}
	s.Root.validate(s.Root.Name, &issues)
	if len(issues) > 0 {
		return &sim.ConfigurationError{Issues: issues}
	}
	return nil
}

func (c *ComponentSpec) validate(path string, issues *[]sim.Issue) {
	report := func(format string, args ...any) {
		*issues = append(*issues, sim.Issue{Model: path, Reason: fmt.Sprintf(format, args...)})
	}
	if strings.Contains(c.Name, ".") {
		report("component name cannot contain '.'")
	}
	if c.IsAtomic() {
		if len(c.Models) > 0 || len(c.Couplings) > 0 {
			report("atomic component (kind %q) cannot have models or couplings", c.Kind)
		}
		if len(c.Inputs) > 0 || len(c.Outputs) > 0 {
			report("ports of an atomic component are defined by its kind %q", c.Kind)
		}
		return
	}
	if c.Params.Kind != 0 {
		report("params require a kind")
	}
	for i, cp := range c.Couplings {
		for _, ep := range []string{cp.From, cp.To} {
			if _, _, err := splitEndpoint(ep); err != nil {
				report("coupling %d: %v", i, err)
			}
		}
	}
	for i := range c.Models {
		c.Models[i].validate(path+"."+c.Models[i].Name, issues)
	}
}

// splitEndpoint parses "model.port" or "port". An empty model means the enclosing component.
func splitEndpoint(ep string) (model, port string, err error) {
	parts := strings.Split(ep, ".")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return "", parts[0], nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("invalid endpoint %q; want \"model.port\" or \"port\"", ep)
}

// validationIssues turns validator errors into one issue per failing field.
func validationIssues(err error) []sim.Issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []sim.Issue{{Model: "<spec>", Reason: err.Error()}}
	}
	issues := make([]sim.Issue, len(verrs))
	for i, fe := range verrs {
		issues[i] = sim.Issue{Model: fe.Namespace(), Reason: failedTag(fe)}
	}
	return issues
}

// formatValidation turns validator errors into one message naming each field.
func formatValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: %s", fe.Namespace(), failedTag(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func failedTag(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}
