package dagflow

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"reflect"
	"runtime"
	"slices"
	"strings"
)

// Kind distinguishes raw inputs from computed nodes.
type Kind string

const (
	// KindSeed is a node with no sources whose value comes from an accessor.
	KindSeed Kind = "seed"
	// KindStep is a node computed from the values of its sources.
	KindStep Kind = "step"
)

// SeedFunc produces a seed's value for one workflow instance.
type SeedFunc func(ctx context.Context, inst *Instance) (any, error)

// StepFunc computes a step's value from its resolved inputs.
type StepFunc func(ctx context.Context, in Inputs) (any, error)

// Source names the node a step reads from. It is a lookup key only.
type Source struct {
	Target string
}

// Ref returns a Source pointing at name.
func Ref(name string) Source {
	return Source{Target: name}
}

// Refs returns one Source per name, in order.
func Refs(names ...string) []Source {
	out := make([]Source, len(names))
	for i, n := range names {
		out[i] = Ref(n)
	}
	return out
}

// String returns the target name.
func (s Source) String() string {
	return s.Target
}

// Node is one named vertex of a Definition. Nodes are immutable once built.
type Node struct {
	name   string
	kind   Kind
	label  string
	seed   SeedFunc
	step   StepFunc
	args   []Source
	kwargs map[string]Source
	params map[string]any
}

// Name returns the node's unique name.
func (n *Node) Name() string { return n.name }

// Kind returns whether the node is a seed or a step.
func (n *Node) Kind() Kind { return n.kind }

// Label returns the step's function label. Seeds have none.
func (n *Node) Label() string { return n.label }

// Args returns the positional sources in declaration order.
func (n *Node) Args() []Source { return slices.Clone(n.args) }

// Kwargs returns the named sources.
func (n *Node) Kwargs() map[string]Source { return maps.Clone(n.kwargs) }

// Params returns the static params.
func (n *Node) Params() map[string]any { return maps.Clone(n.params) }

// Sources returns every source: args in order, then kwargs sorted by keyword.
func (n *Node) Sources() []Source {
	out := make([]Source, 0, len(n.args)+len(n.kwargs))
	out = append(out, n.args...)
	for _, k := range n.kwargNames() {
		out = append(out, n.kwargs[k])
	}
	return out
}

func (n *Node) kwargNames() []string {
	return slices.Sorted(maps.Keys(n.kwargs))
}

// Inputs carries a step's resolved sources and static params.
type Inputs struct {
	// Args holds resolved positional sources, in declaration order.
	Args []any
	// Kwargs holds resolved named sources.
	Kwargs map[string]any
	// Params holds the static params declared with the step.
	Params map[string]any
}

// Arg returns the i-th positional value, or nil when out of range.
func (in Inputs) Arg(i int) any {
	if i < 0 || i >= len(in.Args) {
		return nil
	}
	return in.Args[i]
}

// Lookup returns a keyword value, checking kwargs before params.
func (in Inputs) Lookup(name string) (any, bool) {
	if v, ok := in.Kwargs[name]; ok {
		return v, true
	}
	v, ok := in.Params[name]
	return v, ok
}

// As converts v to T. A direct type assertion is tried first; otherwise v is
// converted through JSON, which covers values reloaded from an encoding
// workspace (float64 to int, map[string]any to a struct).
func As[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	data, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("convert %T to %s: %w", v, typeName[T](), err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("convert %T to %s: %w", v, typeName[T](), err)
	}
	return out, nil
}

// ArgAs returns the i-th positional value converted to T.
func ArgAs[T any](in Inputs, i int) (T, error) {
	if i < 0 || i >= len(in.Args) {
		var zero T
		return zero, fmt.Errorf("arg %d out of range (have %d)", i, len(in.Args))
	}
	return As[T](in.Args[i])
}

// Get returns the kwarg or param called name converted to T.
func Get[T any](in Inputs, name string) (T, error) {
	v, ok := in.Lookup(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("no kwarg or param %q", name)
	}
	return As[T](v)
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Const returns a SeedFunc that always yields v.
func Const(v any) SeedFunc {
	return func(context.Context, *Instance) (any, error) {
		return v, nil
	}
}

// FromVar returns a SeedFunc that reads the instance variable key.
func FromVar(key string) SeedFunc {
	return func(_ context.Context, inst *Instance) (any, error) {
		v, ok := inst.Var(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrVarNotSet, key)
		}
		return v, nil
	}
}

// FromFile returns a SeedFunc that reads the file at the path produced by
// expanding template against the instance (see Instance.ResolvePath).
// The value is the file's raw bytes.
func FromFile(template string) SeedFunc {
	return func(_ context.Context, inst *Instance) (any, error) {
		path, err := inst.ResolvePath(template, nil)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		return data, nil
	}
}

// StepOption configures a step declaration.
type StepOption func(*Node)

// Args appends positional sources.
func Args(sources ...Source) StepOption {
	return func(n *Node) {
		n.args = append(n.args, sources...)
	}
}

// Kwarg adds a named source. Panics if keyword is empty or already used.
func Kwarg(keyword string, src Source) StepOption {
	return func(n *Node) {
		if keyword == "" {
			panic(fmt.Sprintf("dagflow: step %s: kwarg name cannot be empty", n.name))
		}
		if _, exists := n.kwargs[keyword]; exists {
			panic(fmt.Sprintf("dagflow: step %s: duplicate kwarg %s", n.name, keyword))
		}
		n.kwargs[keyword] = src
	}
}

// Kwargs adds several named sources.
func Kwargs(sources map[string]Source) StepOption {
	return func(n *Node) {
		for _, k := range slices.Sorted(maps.Keys(sources)) {
			Kwarg(k, sources[k])(n)
		}
	}
}

// Params sets static params passed to the function alongside the sources.
// Later calls add to earlier ones.
func Params(params map[string]any) StepOption {
	return func(n *Node) {
		maps.Copy(n.params, params)
	}
}

// WithLabel overrides the edge label, which defaults to the function's name.
func WithLabel(label string) StepOption {
	return func(n *Node) {
		n.label = label
	}
}

// funcLabel derives a short label from a function's symbol name:
// "github.com/x/pkg.double" becomes "double", closures keep their suffix.
func funcLabel(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
