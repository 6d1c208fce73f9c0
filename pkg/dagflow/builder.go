package dagflow

import (
	"errors"
	"fmt"
	"strings"
)

// Builder collects seed and step declarations for a Definition.
// Use NewBuilder, chain Seed and Step calls, then call Build.
//
// Builder is NOT thread-safe. Build once from a single goroutine and share
// the resulting Definition.
//
// Example:
//
//	def, err := dagflow.NewBuilder("features").
//	    Seed("raw", dagflow.FromVar("raw")).
//	    Step("doubled", double, dagflow.Args(dagflow.Ref("raw"))).
//	    Step("plus_one", plusOne, dagflow.Args(dagflow.Ref("doubled"))).
//	    Build()
type Builder struct {
	name  string
	nodes map[string]*Node
	order []string
}

// NewBuilder starts a definition called name.
// Panics if name is empty.
func NewBuilder(name string) *Builder {
	if name == "" {
		panic("dagflow: definition name cannot be empty")
	}
	return &Builder{
		name:  name,
		nodes: make(map[string]*Node),
	}
}

// Seed declares a raw-input node.
// Returns the builder for method chaining.
//
// Panics if:
//   - name is empty or contains whitespace
//   - fn is nil
//   - name is already declared
func (b *Builder) Seed(name string, fn SeedFunc) *Builder {
	b.checkName(name)
	if fn == nil {
		panic("dagflow: seed function cannot be nil")
	}
	b.add(&Node{name: name, kind: KindSeed, seed: fn})
	return b
}

// Step declares a computed node. Sources are declared with Args, Kwarg and
// Kwargs; static values with Params. Sources may name nodes declared later.
// Returns the builder for method chaining.
//
// Panics if:
//   - name is empty or contains whitespace
//   - fn is nil
//   - name is already declared
func (b *Builder) Step(name string, fn StepFunc, opts ...StepOption) *Builder {
	b.checkName(name)
	if fn == nil {
		panic("dagflow: step function cannot be nil")
	}

	n := &Node{
		name:   name,
		kind:   KindStep,
		step:   fn,
		label:  funcLabel(fn),
		kwargs: make(map[string]Source),
		params: make(map[string]any),
	}
	for _, opt := range opts {
		opt(n)
	}
	b.add(n)
	return b
}

func (b *Builder) checkName(name string) {
	if name == "" {
		panic("dagflow: node name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n\r") {
		panic("dagflow: node name cannot contain whitespace")
	}
	if _, exists := b.nodes[name]; exists {
		panic(fmt.Sprintf("dagflow: duplicate node name: %s", name))
	}
}

func (b *Builder) add(n *Node) {
	b.nodes[n.name] = n
	b.order = append(b.order, n.name)
}

// Build validates the declarations and returns an immutable Definition.
// Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Every source names a declared seed or step (*UnknownSourceError)
//  2. No static param shares a name with a kwarg (ErrParamConflict)
//  3. The dependency graph is acyclic (*CyclicDependencyError)
//
// The cycle check only runs when 1 and 2 pass.
func (b *Builder) Build() (*Definition, error) {
	var errs []error

	for _, name := range b.order {
		n := b.nodes[name]
		if n.kind != KindStep {
			continue
		}
		for _, src := range n.Sources() {
			if _, ok := b.nodes[src.Target]; !ok {
				errs = append(errs, &UnknownSourceError{Step: name, Source: src.Target})
			}
		}
		for _, k := range n.kwargNames() {
			if _, clash := n.params[k]; clash {
				errs = append(errs, fmt.Errorf("%w: step %s: %s", ErrParamConflict, name, k))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	nodes := make(map[string]*Node, len(b.nodes))
	for name, n := range b.nodes {
		nodes[name] = n.clone()
	}
	order := append([]string(nil), b.order...)

	g, err := newGraph(nodes, order)
	if err != nil {
		return nil, err
	}

	return &Definition{
		name:  b.name,
		nodes: nodes,
		order: order,
		graph: g,
	}, nil
}

// MustBuild is like Build but panics on error.
// Intended for package-level definitions.
func (b *Builder) MustBuild() *Definition {
	def, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("dagflow: build %s: %v", b.name, err))
	}
	return def
}

func (n *Node) clone() *Node {
	c := *n
	c.args = n.Args()
	c.kwargs = n.Kwargs()
	c.params = n.Params()
	return &c
}
