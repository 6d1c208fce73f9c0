package dagflow

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GraphExport is a serializable snapshot of a Graph for external
// visualization tools.
type GraphExport struct {
	Name  string       `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []ExportNode `json:"nodes" yaml:"nodes"`
	Edges []ExportEdge `json:"edges" yaml:"edges"`
}

// ExportNode describes one node.
type ExportNode struct {
	Name  string `json:"name" yaml:"name"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Level int    `json:"level" yaml:"level"`
}

// ExportEdge describes one source-to-step edge.
type ExportEdge struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Export snapshots the graph. Nodes are in topological order.
func (g *Graph) Export() GraphExport {
	out := GraphExport{
		Nodes: make([]ExportNode, 0, len(g.order)),
		Edges: make([]ExportEdge, 0, len(g.edges)),
	}
	for _, name := range g.order {
		out.Nodes = append(out.Nodes, ExportNode{
			Name:  name,
			Kind:  g.kinds[name],
			Level: g.level[name],
		})
	}
	for _, e := range g.edges {
		out.Edges = append(out.Edges, ExportEdge(e))
	}
	return out
}

// Export snapshots the definition's graph under the definition's name.
func (d *Definition) Export() GraphExport {
	out := d.graph.Export()
	out.Name = d.name
	return out
}

// DOT renders the export as Graphviz source. Seeds are drawn as ellipses
// and steps as boxes; edges carry the step's label.
func (e GraphExport) DOT() string {
	var b strings.Builder

	name := e.Name
	if name == "" {
		name = "dagflow"
	}
	fmt.Fprintf(&b, "digraph %s {\n", strconv.Quote(name))
	b.WriteString("  rankdir=LR;\n")

	for _, n := range e.Nodes {
		shape := "box"
		if n.Kind == KindSeed {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  %s [shape=%s];\n", strconv.Quote(n.Name), shape)
	}
	for _, edge := range e.Edges {
		if edge.Label != "" {
			fmt.Fprintf(&b, "  %s -> %s [label=%s];\n",
				strconv.Quote(edge.From), strconv.Quote(edge.To), strconv.Quote(edge.Label))
			continue
		}
		fmt.Fprintf(&b, "  %s -> %s;\n", strconv.Quote(edge.From), strconv.Quote(edge.To))
	}

	b.WriteString("}\n")
	return b.String()
}

// WriteJSON writes the export as indented JSON.
func (e GraphExport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode graph json: %w", err)
	}
	return nil
}

// WriteYAML writes the export as YAML.
func (e GraphExport) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode graph yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode graph yaml: %w", err)
	}
	return nil
}
