package procflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksN(n int) []Task {
	out := make([]Task, n)
	for i := range out {
		out[i] = Task{ID: TaskID(fmt.Sprint(i + 1)), Text: fmt.Sprintf("task %d", i+1)}
	}
	return out
}

// walkChain follows single outgoing edges from the start node and returns
// the visited ids.
func walkChain(t *testing.T, g *Graph) []string {
	t.Helper()
	var start string
	for _, n := range g.Nodes {
		if n.Kind == KindStart {
			require.Empty(t, start, "more than one start node")
			start = n.ID
		}
	}
	require.NotEmpty(t, start)

	path := []string{start}
	for cur := start; ; {
		next := g.Successors(cur)
		if len(next) == 0 {
			break
		}
		require.Len(t, next, 1, "chain must not branch")
		cur = next[0]
		path = append(path, cur)
		require.LessOrEqual(t, len(path), len(g.Nodes), "chain must not loop")
	}
	return path
}

func TestGenerateSequentialFlow_Shape(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7} {
		t.Run(fmt.Sprintf("%d tasks", n), func(t *testing.T) {
			flow := GenerateSequentialFlow(tasksN(n))
			g := flow.Graph

			assert.Len(t, g.Nodes, n+2)
			assert.Len(t, g.Edges, n+1)
			assert.Len(t, flow.StepNodeIDs, n)

			path := walkChain(t, g)
			require.Len(t, path, n+2, "chain must visit every node")
			last, _ := g.Node(path[len(path)-1])
			assert.Equal(t, KindEnd, last.Kind)
			assert.Equal(t, flow.StepNodeIDs, path[1:len(path)-1])
		})
	}
}

func TestGenerateSequentialFlow_StepsFollowTasks(t *testing.T) {
	tasks := []Task{{ID: "a", Text: "Collect forms"}, {ID: "b", Text: "  "}}
	flow := GenerateSequentialFlow(tasks)

	first, _ := flow.Graph.Node(flow.StepNodeIDs[0])
	second, _ := flow.Graph.Node(flow.StepNodeIDs[1])
	assert.Equal(t, KindStep, first.Kind)
	assert.Equal(t, "Collect forms", first.Attributes.Label)
	assert.Equal(t, "Step 2", second.Attributes.Label)
	assert.Equal(t, float64(flowSpacing), second.Position.Y-first.Position.Y)
	assert.Equal(t, first.Position.X, second.Position.X)

	assert.Empty(t, tasks[0].NodeID, "generator must not touch tasks")
}

func TestFlow_Bind(t *testing.T) {
	tasks := tasksN(3)
	flow := GenerateSequentialFlow(tasks[:2])

	bound := flow.Bind(tasks)
	assert.Equal(t, flow.StepNodeIDs[0], bound[0].NodeID)
	assert.Equal(t, flow.StepNodeIDs[1], bound[1].NodeID)
	assert.Empty(t, bound[2].NodeID)
	assert.Empty(t, tasks[0].NodeID)
}
