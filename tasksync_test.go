package procflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTasks_BuildsViews(t *testing.T) {
	flow := GenerateSequentialFlow(tasksN(2))
	tasks := flow.Bind(tasksN(2))
	tasks = append(tasks,
		Task{ID: "3", Text: "loose"},
		Task{ID: "4", Text: "orphan", NodeID: "gone"},
		Task{ID: "5", Text: "second on step 1", NodeID: flow.StepNodeIDs[0]},
	)

	g, changed := SyncTasks(flow.Graph, tasks)
	require.True(t, changed)
	assert.NotSame(t, flow.Graph, g)

	first, _ := g.Node(flow.StepNodeIDs[0])
	second, _ := g.Node(flow.StepNodeIDs[1])
	require.Len(t, first.Tasks, 2)
	assert.Equal(t, TaskID("1"), first.Tasks[0].ID)
	assert.Equal(t, TaskID("5"), first.Tasks[1].ID)
	require.Len(t, second.Tasks, 1)
	assert.Equal(t, TaskID("2"), second.Tasks[0].ID)

	require.Len(t, g.Available, 2)
	assert.Equal(t, TaskID("3"), g.Available[0].ID)
	assert.Equal(t, TaskID("4"), g.Available[1].ID, "tasks on missing nodes are orphaned, not an error")

	for _, n := range flow.Graph.Nodes {
		assert.Empty(t, n.Tasks, "input graph must not be modified")
	}
}

func TestSyncTasks_NoChangeKeepsGraph(t *testing.T) {
	flow := GenerateSequentialFlow(tasksN(3))
	tasks := flow.Bind(tasksN(3))

	g1, changed := SyncTasks(flow.Graph, tasks)
	require.True(t, changed)

	g2, changed := SyncTasks(g1, cloneTasks(tasks))
	assert.False(t, changed)
	assert.Same(t, g1, g2)
}

func TestSyncTasks_UntouchedViewsKeepTheirSlice(t *testing.T) {
	flow := GenerateSequentialFlow(tasksN(3))
	tasks := flow.Bind(tasksN(3))
	g1, _ := SyncTasks(flow.Graph, tasks)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks[1].Completed = true
	tasks[1].CompletedBy = "alice"
	tasks[1].CompletedAt = &at

	g2, changed := SyncTasks(g1, tasks)
	require.True(t, changed)

	before0, _ := g1.Node(flow.StepNodeIDs[0])
	after0, _ := g2.Node(flow.StepNodeIDs[0])
	assert.Same(t, &before0.Tasks[0], &after0.Tasks[0])

	before2, _ := g1.Node(flow.StepNodeIDs[2])
	after2, _ := g2.Node(flow.StepNodeIDs[2])
	assert.Same(t, &before2.Tasks[0], &after2.Tasks[0])

	before1, _ := g1.Node(flow.StepNodeIDs[1])
	after1, _ := g2.Node(flow.StepNodeIDs[1])
	assert.NotSame(t, &before1.Tasks[0], &after1.Tasks[0])
	assert.True(t, after1.Tasks[0].Completed)
	assert.False(t, before1.Tasks[0].Completed)
}

func TestSyncTasks_ReorderIsAChange(t *testing.T) {
	g := &Graph{}
	n := g.AddNode(KindStep, Position{})
	tasks := []Task{{ID: "a", NodeID: n.ID}, {ID: "b", NodeID: n.ID}}
	g1, _ := SyncTasks(g, tasks)

	_, changed := SyncTasks(g1, []Task{tasks[1], tasks[0]})
	assert.True(t, changed)
}

func TestSyncTasks_PoolStability(t *testing.T) {
	g := &Graph{}
	n := g.AddNode(KindStep, Position{})
	tasks := []Task{{ID: "a"}, {ID: "b", NodeID: n.ID}}
	g1, _ := SyncTasks(g, tasks)
	require.Len(t, g1.Available, 1)

	tasks[1].Text = "renamed"
	g2, changed := SyncTasks(g1, tasks)
	require.True(t, changed)
	assert.Same(t, &g1.Available[0], &g2.Available[0])
}

func TestSyncTasks_NilGraph(t *testing.T) {
	g, changed := SyncTasks(nil, tasksN(2))
	assert.Nil(t, g)
	assert.False(t, changed)
}
