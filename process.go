package procflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeadlineOrder selects how the terminal step of a process is picked.
type DeadlineOrder string

const (
	OrderByPosition DeadlineOrder = "position"
	OrderByTopology DeadlineOrder = "topology"
)

func (o DeadlineOrder) resolver() func(*Graph) *ProcessDeadline {
	if o == OrderByTopology {
		return ResolveDeadlineTopological
	}
	return ResolveDeadline
}

// Process is one standard operating procedure together with its tasks and
// submissions. A Process is owned by a single session: mutations are applied
// one at a time and each one re-derives the task views and the deadline.
// It is not safe for concurrent use.
type Process struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Graph         *Graph           `json:"graph"`
	Tasks         []Task           `json:"tasks"`
	Submissions   Submissions      `json:"submissions"`
	Deadline      *ProcessDeadline `json:"deadline"`
	DeadlineOrder DeadlineOrder    `json:"deadlineOrder,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`

	watcher *DeadlineWatcher
	now     func() time.Time
}

// NewProcess creates a process whose graph is the sequential flow of tasks.
// Tasks without an id, or repeating an earlier task's id, get a fresh one.
func NewProcess(name string, tasks []Task) *Process {
	p := &Process{
		ID:          uuid.NewString(),
		Name:        name,
		Submissions: Submissions{},
	}
	p.CreatedAt = p.clock()
	p.UpdatedAt = p.CreatedAt

	p.Tasks = cloneTasks(tasks)
	seen := make(map[TaskID]struct{}, len(p.Tasks))
	for i := range p.Tasks {
		if _, dup := seen[p.Tasks[i].ID]; dup || p.Tasks[i].ID == "" {
			p.Tasks[i].ID = TaskID(uuid.NewString())
		}
		seen[p.Tasks[i].ID] = struct{}{}
	}
	p.RegenerateFlow()
	return p
}

// SetClock overrides the time source used for timestamps.
func (p *Process) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Process) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

// Refresh re-syncs the task views and re-resolves the deadline. It reports
// whether the deadline changed. Mutations call it themselves; call it after
// loading a process.
func (p *Process) Refresh() bool {
	if p.Graph == nil {
		p.Graph = &Graph{}
	}
	if p.Submissions == nil {
		p.Submissions = Submissions{}
	}
	if p.watcher == nil {
		p.watcher = NewDeadlineWatcher(p.Deadline, func(d *ProcessDeadline) {
			p.Deadline = d
		})
	}
	p.watcher.Resolve = p.DeadlineOrder.resolver()

	if g, changed := SyncTasks(p.Graph, p.Tasks); changed {
		p.Graph = g
	}
	_, changed := p.watcher.Observe(p.Graph)
	return changed
}

func (p *Process) touch() {
	p.UpdatedAt = p.clock()
	p.Refresh()
}

// RegenerateFlow replaces the graph with the sequential flow of the current
// tasks and binds each task to its step. Hand edits to the graph are lost.
func (p *Process) RegenerateFlow() {
	flow := GenerateSequentialFlow(p.Tasks)
	p.Graph = flow.Graph
	p.Tasks = flow.Bind(p.Tasks)
	for id := range p.Submissions {
		if _, ok := p.Graph.Node(id); !ok {
			delete(p.Submissions, id)
		}
	}
	p.touch()
}

// SetDeadlineOrder switches how the terminal step is picked.
func (p *Process) SetDeadlineOrder(o DeadlineOrder) {
	p.DeadlineOrder = o
	p.touch()
}

func (p *Process) step(nodeID string) (*Node, error) {
	n, ok := p.Graph.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	if !n.IsStep() {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotAStep, nodeID, n.Kind)
	}
	return n, nil
}

// AddNode adds a node of kind at pos.
func (p *Process) AddNode(kind Kind, pos Position) (Node, error) {
	if !kind.Valid() {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	n := p.Graph.AddNode(kind, pos)
	p.touch()
	return n, nil
}

// RemoveNode deletes a node, its edges and its submission. Tasks bound to
// it are kept and show up in the available pool.
func (p *Process) RemoveNode(nodeID string) error {
	if !p.Graph.RemoveNode(nodeID) {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	delete(p.Submissions, nodeID)
	p.touch()
	return nil
}

// Connect adds the edge source -> target.
func (p *Process) Connect(source, target string) error {
	if err := p.Graph.AddEdge(source, target); err != nil {
		return err
	}
	p.touch()
	return nil
}

// Disconnect removes the edge source -> target.
func (p *Process) Disconnect(source, target string) error {
	if !p.Graph.RemoveEdge(source, target) {
		return fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, source, target)
	}
	p.touch()
	return nil
}

// UpdateNodeAttributes shallow-merges patch into a node's attributes.
func (p *Process) UpdateNodeAttributes(nodeID string, patch json.RawMessage) error {
	if err := p.Graph.MergeAttributes(nodeID, patch); err != nil {
		return err
	}
	p.touch()
	return nil
}

func (p *Process) task(id TaskID) (*Task, error) {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
}

// Task returns the task with the given id.
func (p *Process) Task(id TaskID) (Task, bool) {
	t, err := p.task(id)
	if err != nil {
		return Task{}, false
	}
	return *t, true
}

// AddTask creates a task, bound to nodeID when it is not empty.
func (p *Process) AddTask(text, due, nodeID string) (Task, error) {
	if nodeID != "" {
		if _, err := p.step(nodeID); err != nil {
			return Task{}, err
		}
	}
	t := Task{
		ID:     TaskID(uuid.NewString()),
		Text:   strings.TrimSpace(text),
		Due:    strings.TrimSpace(due),
		NodeID: nodeID,
	}
	p.Tasks = append(p.Tasks, t)
	p.touch()
	return t, nil
}

// AssignTask binds a task to a step. An empty nodeID unassigns it.
func (p *Process) AssignTask(id TaskID, nodeID string) error {
	t, err := p.task(id)
	if err != nil {
		return err
	}
	if nodeID != "" {
		if _, err := p.step(nodeID); err != nil {
			return err
		}
	}
	t.NodeID = nodeID
	p.touch()
	return nil
}

// SetTaskDue changes a task's due date. An empty value clears it.
func (p *Process) SetTaskDue(id TaskID, due string) error {
	t, err := p.task(id)
	if err != nil {
		return err
	}
	t.Due = strings.TrimSpace(due)
	p.touch()
	return nil
}

// CompleteTask marks a task done by actor at the given time.
func (p *Process) CompleteTask(id TaskID, actor string, at time.Time) error {
	t, err := p.task(id)
	if err != nil {
		return err
	}
	t.Completed = true
	t.CompletedBy = actor
	t.CompletedAt = &at
	p.touch()
	return nil
}

// ReopenTask clears a task's completion.
func (p *Process) ReopenTask(id TaskID) error {
	t, err := p.task(id)
	if err != nil {
		return err
	}
	t.Completed = false
	t.CompletedBy = ""
	t.CompletedAt = nil
	p.touch()
	return nil
}

// DeleteTask removes a task.
func (p *Process) DeleteTask(id TaskID) error {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			p.Tasks = append(p.Tasks[:i:i], p.Tasks[i+1:]...)
			p.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
}

// SubmitOutput records the output of a step, replacing any earlier one.
func (p *Process) SubmitOutput(nodeID string, payload Payload, actor string, at time.Time) (Submission, error) {
	if _, err := p.step(nodeID); err != nil {
		return Submission{}, err
	}
	sub, err := p.Submissions.Submit(nodeID, payload, actor, at)
	if err != nil {
		return sub, err
	}
	p.touch()
	return sub, nil
}

// Status reports every step of the process.
func (p *Process) Status(dir Directory) []StepReport {
	return StepStatuses(p.Graph, p.Tasks, p.Submissions, dir)
}

// Log returns the completion log of a step.
func (p *Process) Log(nodeID string) ([]LogEntry, error) {
	if _, err := p.step(nodeID); err != nil {
		return nil, err
	}
	return CompletionLog(nodeID, p.Tasks, p.Submissions), nil
}

// Calendar builds the schedule of the process in loc.
func (p *Process) Calendar(loc *time.Location) Calendar {
	return BuildCalendar(p.Graph, p.Tasks, loc)
}

// Summary returns the listing view of p.
func (p *Process) Summary() ProcessSummary {
	return ProcessSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Deadline:    p.Deadline,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Clone returns a deep copy of p without its session state.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	out := &Process{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Graph:         p.Graph.Clone(),
		Tasks:         cloneTasks(p.Tasks),
		Submissions:   p.Submissions.Clone(),
		DeadlineOrder: p.DeadlineOrder,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Deadline != nil {
		d := *p.Deadline
		if d.At != nil {
			at := *d.At
			d.At = &at
		}
		out.Deadline = &d
	}
	return out
}
