package dagflow

import "slices"

// Definition is a validated, immutable workflow declaration.
// It is built once and shared by every Instance of the workflow.
type Definition struct {
	name  string
	nodes map[string]*Node
	order []string
	graph *Graph
}

// Name returns the workflow type name.
func (d *Definition) Name() string {
	return d.name
}

// NodeNames returns every node name in declaration order.
func (d *Definition) NodeNames() []string {
	return slices.Clone(d.order)
}

// Seeds returns seed names in declaration order.
func (d *Definition) Seeds() []string {
	return d.namesOfKind(KindSeed)
}

// Steps returns step names in declaration order.
func (d *Definition) Steps() []string {
	return d.namesOfKind(KindStep)
}

func (d *Definition) namesOfKind(k Kind) []string {
	var out []string
	for _, name := range d.order {
		if d.nodes[name].kind == k {
			out = append(out, name)
		}
	}
	return out
}

// Node returns the named node.
func (d *Definition) Node(name string) (*Node, bool) {
	n, ok := d.nodes[name]
	return n, ok
}

// Has reports whether name is declared.
func (d *Definition) Has(name string) bool {
	_, ok := d.nodes[name]
	return ok
}

// Sources returns the distinct nodes name reads from.
func (d *Definition) Sources(name string) []string {
	return d.graph.Predecessors(name)
}

// Dependents returns the steps that read name directly.
func (d *Definition) Dependents(name string) []string {
	return d.graph.Successors(name)
}

// Descendants returns every node downstream of name, in topological order.
func (d *Definition) Descendants(name string) []string {
	return d.graph.descendants(name)
}

// Graph returns the dependency graph.
func (d *Definition) Graph() *Graph {
	return d.graph
}
