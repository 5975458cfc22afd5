package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/procflow"
	"github.com/meikuraledutech/procflow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	h := newHandler(memory.New(), time.UTC)
	h.now = func() time.Time { return testNow }
	h.quiet = true
	return h.app()
}

func call(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "alice")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}

func createProcess(t *testing.T, app *fiber.App, tasks ...string) procflow.Process {
	t.Helper()
	in := make([]fiber.Map, len(tasks))
	for i, text := range tasks {
		in[i] = fiber.Map{"text": text}
	}
	var p procflow.Process
	status := call(t, app, http.MethodPost, "/processes", fiber.Map{"name": "Onboarding", "tasks": in}, &p)
	require.Equal(t, http.StatusCreated, status)
	return p
}

func TestCreateProcess(t *testing.T) {
	app := newTestApp(t)
	p := createProcess(t, app, "Collect documents", "Create accounts")

	assert.NotEmpty(t, p.ID)
	assert.Len(t, p.Graph.Nodes, 4)
	assert.Len(t, p.Graph.Edges, 3)
	require.Len(t, p.Tasks, 2)
	assert.NotEmpty(t, p.Tasks[0].NodeID)

	var got procflow.Process
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/processes/"+p.ID, nil, &got))
	assert.Equal(t, p.Tasks, got.Tasks)

	var list []procflow.ProcessSummary
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/processes", nil, &list))
	assert.Len(t, list, 1)
}

func TestCreateProcess_Validation(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		name string
		body any
	}{
		{name: "not json", body: "{"},
		{name: "missing name", body: fiber.Map{"tasks": []fiber.Map{}}},
		{name: "blank name", body: fiber.Map{"name": "  "}},
		{name: "blank task", body: fiber.Map{"name": "x", "tasks": []fiber.Map{{"text": ""}}}},
		{name: "bad due", body: fiber.Map{"name": "x", "tasks": []fiber.Map{{"text": "a", "due": "soon"}}}},
		{name: "bad order", body: fiber.Map{"name": "x", "deadlineOrder": "random"}},
		{name: "repeated task id", body: fiber.Map{"name": "x", "tasks": []fiber.Map{{"id": 1, "text": "a"}, {"id": "1", "text": "b"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out fiber.Map
			assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, "/processes", tt.body, &out))
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestMissingProcess(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, "/processes/nope", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodPost, "/processes/nope/flow", nil, nil))
	assert.Equal(t, http.StatusNoContent, call(t, app, http.MethodDelete, "/processes/nope", nil, nil))
}

func TestDeadlineAndStatus(t *testing.T) {
	app := newTestApp(t)
	p := createProcess(t, app, "Draft", "Sign off")
	first, second := p.Tasks[0].NodeID, p.Tasks[1].NodeID

	patch := func(nodeID string, body any) int {
		return call(t, app, http.MethodPatch, "/processes/"+p.ID+"/nodes/"+nodeID, body, nil)
	}
	assert.Equal(t, http.StatusOK, patch(first, fiber.Map{"assignee": "alice", "deadline": fiber.Map{"type": "relative", "value": "2", "unit": "days"}}))
	assert.Equal(t, http.StatusOK, patch(second, fiber.Map{"deadline": fiber.Map{"type": "relative", "value": "5", "unit": "days"}}))
	assert.Equal(t, http.StatusBadRequest, patch(second, "[1]"))
	assert.Equal(t, http.StatusNotFound, patch("missing", fiber.Map{}))

	var dl struct {
		Deadline *procflow.ProcessDeadline `json:"deadline"`
	}
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/processes/"+p.ID+"/deadline", nil, &dl))
	require.NotNil(t, dl.Deadline)
	assert.Equal(t, second, dl.Deadline.SourceNodeID)
	assert.Equal(t, 5.0, dl.Deadline.Value)

	var report []procflow.StepReport
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/processes/"+p.ID+"/status", nil, &report))
	require.Len(t, report, 2)
	assert.Equal(t, procflow.StatusPending, report[0].Status)
	assert.Equal(t, procflow.StatusUnassigned, report[1].Status)
}

func TestTasksAndOutput(t *testing.T) {
	app := newTestApp(t)
	p := createProcess(t, app, "Draft")
	step := p.Tasks[0].NodeID
	base := "/processes/" + p.ID

	require.Equal(t, http.StatusOK, call(t, app, http.MethodPatch, base+"/nodes/"+step, fiber.Map{"assignee": "alice"}, nil))

	var added procflow.Task
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, base+"/tasks", fiber.Map{"text": "Review", "nodeId": step}, &added))

	var updated procflow.Task
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPatch, base+"/tasks/"+string(added.ID), fiber.Map{"completed": true, "due": "2024-03-12"}, &updated))
	assert.True(t, updated.Completed)
	assert.Equal(t, "alice", updated.CompletedBy)
	assert.Equal(t, "2024-03-12", updated.Due)

	var report []procflow.StepReport
	call(t, app, http.MethodGet, base+"/status", nil, &report)
	assert.Equal(t, procflow.StatusInProgress, report[0].Status)

	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodPatch, base+"/tasks/missing", fiber.Map{"completed": true}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, call(t, app, http.MethodPatch, base+"/tasks/"+string(added.ID), fiber.Map{"nodeId": p.Graph.Nodes[0].ID}, nil))

	out := base + "/nodes/" + step + "/output"
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPut, out, fiber.Map{"type": "link"}, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPut, out, fiber.Map{"type": "file"}, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPut, out, fiber.Map{"type": "fax"}, nil))

	var sub procflow.Submission
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPut, out, fiber.Map{"type": "link", "value": "https://example.com/doc"}, &sub))
	assert.Equal(t, "alice", sub.CompletedBy)
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPut, out, fiber.Map{"type": "markDone"}, &sub))
	assert.Equal(t, http.StatusUnprocessableEntity, call(t, app, http.MethodPut, out, fiber.Map{"type": "text", "value": "late"}, nil))

	var log []procflow.LogEntry
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, base+"/nodes/"+step+"/log", nil, &log))
	require.Len(t, log, 2)
	assert.Equal(t, "alice • Marked as done • Mar 10, 2024 2:30 PM", log[0].Text)

	call(t, app, http.MethodGet, base+"/status", nil, &report)
	assert.Equal(t, procflow.StatusCompleted, report[0].Status)

	assert.Equal(t, http.StatusNoContent, call(t, app, http.MethodDelete, base+"/tasks/"+string(added.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodDelete, base+"/tasks/"+string(added.ID), nil, nil))
}

func TestGraphEditing(t *testing.T) {
	app := newTestApp(t)
	p := createProcess(t, app)
	base := "/processes/" + p.ID
	start, end := p.Graph.Nodes[0].ID, p.Graph.Nodes[1].ID

	var n procflow.Node
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, base+"/nodes", fiber.Map{"kind": "step", "position": fiber.Map{"x": 250, "y": 120}}, &n))
	assert.Equal(t, procflow.KindStep, n.Kind)
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, base+"/nodes", fiber.Map{"kind": "loop"}, nil))

	assert.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, base+"/edges", fiber.Map{"source": start, "target": n.ID}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, call(t, app, http.MethodPost, base+"/edges", fiber.Map{"source": n.ID, "target": n.ID}, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodPost, base+"/edges", fiber.Map{"source": n.ID, "target": "missing"}, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, base+"/edges", fiber.Map{"source": n.ID}, nil))

	assert.Equal(t, http.StatusNoContent, call(t, app, http.MethodDelete, base+"/edges?source="+start+"&target="+end, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodDelete, base+"/edges?source="+start+"&target="+end, nil, nil))

	var got procflow.Process
	call(t, app, http.MethodGet, base, nil, &got)
	assert.Len(t, got.Graph.Nodes, 3)
	assert.Len(t, got.Graph.Edges, 1)

	assert.Equal(t, http.StatusNoContent, call(t, app, http.MethodDelete, base+"/nodes/"+n.ID, nil, nil))
	call(t, app, http.MethodGet, base, nil, &got)
	assert.Len(t, got.Graph.Nodes, 2)
	assert.Empty(t, got.Graph.Edges)

	var regenerated procflow.Process
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, base+"/flow", nil, &regenerated))
	assert.Len(t, regenerated.Graph.Edges, 1)
}

func TestUpdateProcess(t *testing.T) {
	app := newTestApp(t)
	p := createProcess(t, app, "a")

	var got procflow.Process
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPatch, "/processes/"+p.ID, fiber.Map{"name": "Offboarding", "deadlineOrder": "topology"}, &got))
	assert.Equal(t, "Offboarding", got.Name)
	assert.Equal(t, procflow.OrderByTopology, got.DeadlineOrder)
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPatch, "/processes/"+p.ID, fiber.Map{"deadlineOrder": "random"}, nil))
}

func TestCalendar(t *testing.T) {
	app := newTestApp(t)
	p := createProcess(t, app, "Draft")
	step := p.Tasks[0].NodeID
	base := "/processes/" + p.ID

	require.Equal(t, http.StatusOK, call(t, app, http.MethodPatch, base+"/tasks/"+string(p.Tasks[0].ID), fiber.Map{"due": "2024-03-10"}, nil))
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPatch, base+"/nodes/"+step, fiber.Map{"deadline": fiber.Map{"type": "absolute", "at": "2024-03-10T00:00:00Z"}}, nil))
	var extra procflow.Task
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, base+"/tasks", fiber.Map{"text": "Follow up", "due": "2024-04-02", "nodeId": step}, &extra))

	var cal struct {
		Month   string                              `json:"month"`
		Entries []procflow.CalendarEntry            `json:"entries"`
		Days    map[string][]procflow.CalendarEntry `json:"days"`
	}
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, base+"/calendar", nil, &cal))
	assert.Equal(t, "2024-03", cal.Month)
	assert.Len(t, cal.Entries, 2)
	require.Len(t, cal.Days["10"], 1)
	assert.Equal(t, step, cal.Days["10"][0].Node.ID)

	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, base+"/calendar?year=2024&month=4", nil, &cal))
	assert.Equal(t, "2024-04", cal.Month)
	assert.Len(t, cal.Days["2"], 1)

	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodGet, base+"/calendar?month=13", nil, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodGet, base+"/calendar?year=abc", nil, nil))
}

func TestSchemaRoutes(t *testing.T) {
	app := newTestApp(t)
	createProcess(t, app, "a")
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/schema", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodDelete, "/schema", nil, nil))

	var list []procflow.ProcessSummary
	call(t, app, http.MethodGet, "/processes", nil, &list)
	assert.Empty(t, list)
}
