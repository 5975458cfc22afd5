package procflow

import (
	"cmp"
	"slices"
	"time"
)

// ProcessDeadline is the single due date or offset of a whole process,
// taken from its terminal step.
type ProcessDeadline struct {
	Type            DeadlineType `json:"type"`
	At              *time.Time   `json:"at,omitempty"`
	Value           float64      `json:"value,omitempty"`
	Unit            TimeUnit     `json:"unit,omitempty"`
	SourceNodeID    string       `json:"sourceNodeId"`
	SourceNodeLabel string       `json:"sourceNodeLabel"`
}

// Equal compares two deadlines field by field. Two nil deadlines are equal.
func (d *ProcessDeadline) Equal(o *ProcessDeadline) bool {
	if d == nil || o == nil {
		return d == nil && o == nil
	}
	if d.Type != o.Type || d.Value != o.Value || d.Unit != o.Unit ||
		d.SourceNodeID != o.SourceNodeID || d.SourceNodeLabel != o.SourceNodeLabel {
		return false
	}
	if d.At == nil || o.At == nil {
		return d.At == nil && o.At == nil
	}
	return d.At.Equal(*o.At)
}

// DueFrom turns the deadline into a point in time for a process started at
// start.
func (d *ProcessDeadline) DueFrom(start time.Time) (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	switch d.Type {
	case DeadlineAbsolute:
		if d.At == nil {
			return time.Time{}, false
		}
		return *d.At, true
	case DeadlineRelative:
		unit, ok := d.Unit.duration()
		if !ok {
			return time.Time{}, false
		}
		return start.Add(time.Duration(d.Value * float64(unit))), true
	}
	return time.Time{}, false
}

func deadlineFrom(n *Node) *ProcessDeadline {
	r := n.Attributes.Deadline
	d := &ProcessDeadline{
		Type:            r.Type,
		SourceNodeID:    n.ID,
		SourceNodeLabel: n.Attributes.Label,
	}
	switch r.Type {
	case DeadlineAbsolute:
		at := *r.At
		d.At = &at
	case DeadlineRelative:
		d.Value, _ = r.amount()
		d.Unit = r.Unit
	}
	return d
}

// qualifying returns the steps with a fully configured deadline, in graph order.
func qualifying(g *Graph) []*Node {
	var out []*Node
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.IsStep() && n.Attributes.Deadline.Configured() {
			out = append(out, n)
		}
	}
	return out
}

// ResolveDeadline derives the process deadline from the lowest positioned
// step that has a configured deadline. Layout order stands in for process
// order because generated flows stack steps top to bottom; a rearranged
// layout can mislead it, see ResolveDeadlineTopological.
func ResolveDeadline(g *Graph) *ProcessDeadline {
	if g == nil {
		return nil
	}
	steps := qualifying(g)
	if len(steps) == 0 {
		return nil
	}
	slices.SortStableFunc(steps, func(a, b *Node) int {
		return cmp.Compare(a.Position.Y, b.Position.Y)
	})
	return deadlineFrom(steps[len(steps)-1])
}

// ResolveDeadlineTopological is ResolveDeadline with steps ordered by the
// edges instead of the layout. Cyclic graphs have no such order and fall
// back to ResolveDeadline.
func ResolveDeadlineTopological(g *Graph) *ProcessDeadline {
	if g == nil {
		return nil
	}
	steps := qualifying(g)
	if len(steps) == 0 {
		return nil
	}
	order, ok := topoOrder(g)
	if !ok {
		return ResolveDeadline(g)
	}
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	slices.SortStableFunc(steps, func(a, b *Node) int {
		return cmp.Compare(rank[a.ID], rank[b.ID])
	})
	return deadlineFrom(steps[len(steps)-1])
}

// topoOrder returns the node ids in topological order, or false when the
// graph has a cycle. Among unordered nodes the higher one comes first.
func topoOrder(g *Graph) ([]string, bool) {
	y := make(map[string]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		y[n.ID] = n.Position.Y
	}
	// Visiting lower nodes first puts them last in the reversed post-order.
	byYDesc := func(a, b string) int { return cmp.Compare(y[b], y[a]) }

	adj := make(map[string][]string)
	for _, e := range g.Edges {
		if _, ok := y[e.Source]; !ok {
			continue
		}
		if _, ok := y[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	for id := range adj {
		slices.SortStableFunc(adj[id], byYDesc)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(g.Nodes))
	post := make([]string, 0, len(g.Nodes))

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		post = append(post, id)
		return false
	}

	roots := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		roots = append(roots, n.ID)
	}
	slices.SortStableFunc(roots, byYDesc)
	for _, id := range roots {
		if state[id] == unvisited && dfs(id) {
			return nil, false
		}
	}
	slices.Reverse(post)
	return post, true
}

// DeadlineWatcher re-resolves the process deadline after each graph change
// and calls Notify only when the result differs from the last one emitted.
type DeadlineWatcher struct {
	Resolve func(*Graph) *ProcessDeadline
	Notify  func(*ProcessDeadline)

	last *ProcessDeadline
}

// NewDeadlineWatcher returns a watcher that considers last already emitted.
func NewDeadlineWatcher(last *ProcessDeadline, notify func(*ProcessDeadline)) *DeadlineWatcher {
	return &DeadlineWatcher{Notify: notify, last: last}
}

// Last returns the most recently emitted deadline.
func (w *DeadlineWatcher) Last() *ProcessDeadline {
	return w.last
}

// Observe resolves g and reports whether the deadline changed.
func (w *DeadlineWatcher) Observe(g *Graph) (*ProcessDeadline, bool) {
	resolve := w.Resolve
	if resolve == nil {
		resolve = ResolveDeadline
	}
	d := resolve(g)
	if d.Equal(w.last) {
		return w.last, false
	}
	w.last = d
	if w.Notify != nil {
		w.Notify(d)
	}
	return d, true
}
