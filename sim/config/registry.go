package config

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/devsim/devsim/sim"
)

// Factory builds the leaf for one atomic component. params is the raw params
// node of the component, possibly empty; decode it with DecodeParams.
type Factory func(name string, params *yaml.Node) (*sim.Leaf, error)

// KindInfo describes a registered atomic kind.
type KindInfo struct {
	Name        string
	Description string
}

type kindEntry struct {
	info    KindInfo
	factory Factory
}

var (
	mu         sync.RWMutex
	kinds      = map[string]kindEntry{}
	types      = map[string]reflect.Type{}
	transforms = map[string]*sim.Transform{}
)

func init() {
	RegisterType("any", nil)
	RegisterType("int", reflect.TypeOf((*int)(nil)).Elem())
	RegisterType("float", reflect.TypeOf((*float64)(nil)).Elem())
	RegisterType("string", reflect.TypeOf((*string)(nil)).Elem())
	RegisterType("bool", reflect.TypeOf((*bool)(nil)).Elem())
}

// Register makes an atomic kind available to model definitions.
// Panics if the name is empty, already taken, or f is nil.
func Register(kind, description string, f Factory) {
	if kind == "" || f == nil {
		panic("config.Register: kind name and factory are required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := kinds[kind]; dup {
		panic(fmt.Sprintf("config.Register: kind %q registered twice", kind))
	}
	kinds[kind] = kindEntry{info: KindInfo{Name: kind, Description: description}, factory: f}
}

// RegisterType names a port value type. A nil t accepts any value.
func RegisterType(name string, t reflect.Type) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := types[name]; dup {
		panic(fmt.Sprintf("config.RegisterType: type %q registered twice", name))
	}
	types[name] = t
}

// RegisterTransform names a coupling transform.
func RegisterTransform(name string, tr *sim.Transform) {
	if tr == nil {
		panic("config.RegisterTransform: transform is nil")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := transforms[name]; dup {
		panic(fmt.Sprintf("config.RegisterTransform: transform %q registered twice", name))
	}
	transforms[name] = tr
}

// Kinds returns the registered kinds sorted by name.
func Kinds() []KindInfo {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TypeNames returns the registered port type names, sorted.
func TypeNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(types)
}

// TransformNames returns the registered transform names, sorted.
func TransformNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(transforms)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookupKind(kind string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	k, ok := kinds[kind]
	return k.factory, ok
}

// lookupType resolves a port type name; "" means any.
func lookupType(name string) (reflect.Type, bool) {
	if name == "" {
		return nil, true
	}
	mu.RLock()
	defer mu.RUnlock()
	t, ok := types[name]
	return t, ok
}

func lookupTransform(name string) (*sim.Transform, bool) {
	mu.RLock()
	defer mu.RUnlock()
	tr, ok := transforms[name]
	return tr, ok
}

// DecodeParams strictly decodes a params node into dst (a pointer to a struct),
// then checks dst's validate tags. Fields already set in dst act as defaults.
func DecodeParams(params *yaml.Node, dst any) error {
	if params != nil && params.Kind != 0 {
		data, err := yaml.Marshal(params)
		if err != nil {
			return fmt.Errorf("params: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(dst); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("params: %w", formatValidation(err))
	}
	return nil
}
