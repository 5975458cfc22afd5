package procflow

import (
	"encoding/json"
	"fmt"
)

// Edge is a directed connection between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a process modeled as nodes and edges. Available is the cached
// pool of tasks not bound to any existing node, maintained by SyncTasks.
//
// Cycles are allowed; the only structural rule the graph enforces itself is
// that an edge added through AddEdge joins two existing, distinct nodes.
type Graph struct {
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	Available []Task `json:"available,omitempty"`
}

func (g *Graph) index(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	if i := g.index(id); i >= 0 {
		return &g.Nodes[i], true
	}
	return nil, false
}

// AddNode creates a node of the given kind at pos and appends it.
func (g *Graph) AddNode(kind Kind, pos Position) Node {
	n := NewNode(kind, pos)
	g.Nodes = append(g.Nodes, n)
	return n
}

// InsertNode appends a node built elsewhere (for example loaded from storage).
func (g *Graph) InsertNode(n Node) error {
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
	if n.ID == "" {
		return fmt.Errorf("procflow: node without id")
	}
	if g.index(n.ID) >= 0 {
		return fmt.Errorf("procflow: duplicate node id %q", n.ID)
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}

// RemoveNode deletes a node together with every edge touching it.
// It reports whether the node existed.
func (g *Graph) RemoveNode(id string) bool {
	i := g.index(id)
	if i < 0 {
		return false
	}
	g.Nodes = append(g.Nodes[:i:i], g.Nodes[i+1:]...)

	edges := g.Edges[:0:0]
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
	return true
}

// AddEdge connects source to target. Adding an edge that already exists
// replaces it in place.
func (g *Graph) AddEdge(source, target string) error {
	if source == target {
		return ErrSelfLoop
	}
	if g.index(source) < 0 {
		return fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	if g.index(target) < 0 {
		return fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}
	e := Edge{Source: source, Target: target}
	for i := range g.Edges {
		if g.Edges[i] == e {
			g.Edges[i] = e
			return nil
		}
	}
	g.Edges = append(g.Edges, e)
	return nil
}

// RemoveEdge deletes the edge from source to target, reporting whether it
// existed.
func (g *Graph) RemoveEdge(source, target string) bool {
	for i, e := range g.Edges {
		if e.Source == source && e.Target == target {
			g.Edges = append(g.Edges[:i:i], g.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// Successors returns the targets of edges leaving id, in edge order.
func (g *Graph) Successors(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

// Predecessors returns the sources of edges entering id, in edge order.
func (g *Graph) Predecessors(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e.Source)
		}
	}
	return out
}

// MergeAttributes shallow-merges a JSON object into a node's attributes.
// Every top-level key in patch replaces the current value; an explicit null
// clears it. The last writer wins.
func (g *Graph) MergeAttributes(id string, patch json.RawMessage) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return fmt.Errorf("procflow: decode attribute patch: %w", err)
	}

	current, err := json.Marshal(n.Attributes)
	if err != nil {
		return fmt.Errorf("procflow: encode attributes: %w", err)
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("procflow: decode attributes: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("procflow: encode merged attributes: %w", err)
	}
	var next Attributes
	if err := json.Unmarshal(raw, &next); err != nil {
		return fmt.Errorf("procflow: apply attribute patch: %w", err)
	}
	n.Attributes = next
	return nil
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		Edges:     append([]Edge(nil), g.Edges...),
		Available: cloneTasks(g.Available),
	}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.clone()
		}
	}
	return out
}
