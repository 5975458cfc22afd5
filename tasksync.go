package procflow

// SyncTasks brings every node's cached task view and the graph's pool of
// available tasks in line with tasks.
//
// A node's view is the tasks whose NodeID names it, in input order. Tasks
// naming no node, or a node that no longer exists, go to the pool. Views
// that already match keep their backing slice, and when nothing differs g
// itself is returned with false. Otherwise a shallow copy of g carrying the
// new views is returned with true; g is never modified.
func SyncTasks(g *Graph, tasks []Task) (*Graph, bool) {
	if g == nil {
		return nil, false
	}

	exists := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		exists[n.ID] = struct{}{}
	}

	byNode := make(map[string][]Task)
	var pool []Task
	for _, t := range tasks {
		if _, ok := exists[t.NodeID]; ok && t.NodeID != "" {
			byNode[t.NodeID] = append(byNode[t.NodeID], t)
			continue
		}
		pool = append(pool, t)
	}

	var nodes []Node
	for i, n := range g.Nodes {
		want := byNode[n.ID]
		if equalTasks(n.Tasks, want) {
			continue
		}
		if nodes == nil {
			nodes = append([]Node(nil), g.Nodes...)
		}
		nodes[i].Tasks = want
	}
	poolChanged := !equalTasks(g.Available, pool)

	if nodes == nil && !poolChanged {
		return g, false
	}
	out := *g
	if nodes != nil {
		out.Nodes = nodes
	}
	if poolChanged {
		out.Available = pool
	}
	return &out, true
}
