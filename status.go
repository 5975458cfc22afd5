package procflow

import "strings"

// Status is the lifecycle state of a step.
type Status string

const (
	StatusUnassigned Status = "unassigned"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Directory turns assignee and role ids into display labels. An empty label
// means the id does not resolve.
type Directory interface {
	PersonLabel(id string) string
	RoleLabel(id string) string
}

func resolveLabel(id string, lookup func(string) string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if lookup == nil {
		return id
	}
	return strings.TrimSpace(lookup(id))
}

// AssigneeLabel returns the label of whoever is accountable for n: the
// assignment type picks which of person and role is tried first. A nil
// directory uses the raw ids as labels.
func AssigneeLabel(n *Node, dir Directory) string {
	var person, role func(string) string
	if dir != nil {
		person, role = dir.PersonLabel, dir.RoleLabel
	}
	a := n.Attributes
	if a.AssignmentType == AssignRole {
		if l := resolveLabel(a.Role, role); l != "" {
			return l
		}
		return resolveLabel(a.Assignee, person)
	}
	if l := resolveLabel(a.Assignee, person); l != "" {
		return l
	}
	return resolveLabel(a.Role, role)
}

// NodeStatus computes the status of a step from its current inputs. tasks
// are the tasks bound to n; sub is its output submission, if any. Nothing
// counts until someone is accountable, so an unassigned step stays
// unassigned whatever its tasks say. Non-step nodes have no status.
func NodeStatus(n *Node, tasks []Task, sub *Submission, dir Directory) Status {
	if !n.IsStep() {
		return ""
	}
	if AssigneeLabel(n, dir) == "" {
		return StatusUnassigned
	}
	if sub != nil {
		return StatusCompleted
	}
	if len(tasks) == 0 {
		return StatusPending
	}
	switch done := countCompleted(tasks); {
	case done == len(tasks):
		return StatusCompleted
	case done > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// Progress returns how far a step is, 0 to 100.
func Progress(tasks []Task, sub *Submission) int {
	if sub != nil {
		return 100
	}
	if len(tasks) == 0 {
		return 0
	}
	return countCompleted(tasks) * 100 / len(tasks)
}

func countCompleted(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// StepReport is one row of the per-step status table.
type StepReport struct {
	NodeID     string `json:"nodeId"`
	Label      string `json:"label"`
	Assignee   string `json:"assignee,omitempty"`
	Status     Status `json:"status"`
	Progress   int    `json:"progress"`
	TasksTotal int    `json:"tasksTotal"`
	TasksDone  int    `json:"tasksDone"`
}

// StepStatuses reports every step of g in graph order.
func StepStatuses(g *Graph, tasks []Task, subs Submissions, dir Directory) []StepReport {
	if g == nil {
		return nil
	}
	out := make([]StepReport, 0, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.IsStep() {
			continue
		}
		linked := linkedTasks(tasks, n.ID)
		sub := subs.Get(n.ID)
		out = append(out, StepReport{
			NodeID:     n.ID,
			Label:      n.Attributes.Label,
			Assignee:   AssigneeLabel(n, dir),
			Status:     NodeStatus(n, linked, sub, dir),
			Progress:   Progress(linked, sub),
			TasksTotal: len(linked),
			TasksDone:  countCompleted(linked),
		})
	}
	return out
}
