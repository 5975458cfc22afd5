package procflow

import (
	"fmt"
	"strings"
)

// Layout of a generated flow: one column, fixed vertical spacing.
const (
	flowColumnX = 250
	flowStartY  = 50
	flowSpacing = 150
)

// Flow is the result of GenerateSequentialFlow. StepNodeIDs[i] is the step
// generated for the i-th input task.
type Flow struct {
	Graph       *Graph
	StepNodeIDs []string
}

// GenerateSequentialFlow lays tasks out as a single chain
// start -> step per task -> end. An empty task list yields start -> end.
// Tasks are not touched; use Flow.Bind to point them at their steps.
func GenerateSequentialFlow(tasks []Task) Flow {
	g := &Graph{
		Nodes: make([]Node, 0, len(tasks)+2),
		Edges: make([]Edge, 0, len(tasks)+1),
	}
	ids := make([]string, 0, len(tasks))

	prev := g.AddNode(KindStart, Position{X: flowColumnX, Y: flowStartY}).ID
	for i, t := range tasks {
		step := NewNode(KindStep, Position{X: flowColumnX, Y: flowStartY + float64(i+1)*flowSpacing})
		if label := strings.TrimSpace(t.Text); label != "" {
			step.Attributes.Label = label
		} else {
			step.Attributes.Label = fmt.Sprintf("Step %d", i+1)
		}
		g.Nodes = append(g.Nodes, step)
		g.Edges = append(g.Edges, Edge{Source: prev, Target: step.ID})
		ids = append(ids, step.ID)
		prev = step.ID
	}
	end := g.AddNode(KindEnd, Position{X: flowColumnX, Y: flowStartY + float64(len(tasks)+1)*flowSpacing})
	g.Edges = append(g.Edges, Edge{Source: prev, Target: end.ID})

	return Flow{Graph: g, StepNodeIDs: ids}
}

// Bind returns a copy of tasks with each task re-bound to the step that was
// generated for it. Tasks beyond the generated steps keep their binding.
func (f Flow) Bind(tasks []Task) []Task {
	out := cloneTasks(tasks)
	for i := range out {
		if i < len(f.StepNodeIDs) {
			out[i].NodeID = f.StepNodeIDs[i]
		}
	}
	return out
}
