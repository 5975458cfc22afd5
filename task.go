package procflow

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// TaskID identifies a task. Hosts hand out both numeric and string ids, so a
// JSON number decodes into its decimal form.
type TaskID string

func (id *TaskID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = TaskID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = TaskID(s)
	return nil
}

// Task is a unit of work. NodeID is empty while the task is unassigned.
type Task struct {
	ID          TaskID     `json:"id"`
	Text        string     `json:"text"`
	Due         string     `json:"due,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedBy string     `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	NodeID      string     `json:"nodeId,omitempty"`
}

// Accepted due date layouts, tried in order.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDue parses a due date string. Values without a zone are read in loc.
func ParseDue(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DueTime returns the parsed due date of t.
func (t Task) DueTime(loc *time.Location) (time.Time, bool) {
	return ParseDue(t.Due, loc)
}

// Equal compares every field that the per-node task views depend on.
func (t Task) Equal(o Task) bool {
	if t.ID != o.ID || t.Text != o.Text || t.Due != o.Due ||
		t.Completed != o.Completed || t.CompletedBy != o.CompletedBy || t.NodeID != o.NodeID {
		return false
	}
	if t.CompletedAt == nil || o.CompletedAt == nil {
		return t.CompletedAt == o.CompletedAt
	}
	return t.CompletedAt.Equal(*o.CompletedAt)
}

// equalTasks is an order-sensitive deep comparison. nil and empty are equal.
func equalTasks(a, b []Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func cloneTasks(ts []Task) []Task {
	if ts == nil {
		return nil
	}
	out := make([]Task, len(ts))
	for i, t := range ts {
		if t.CompletedAt != nil {
			at := *t.CompletedAt
			t.CompletedAt = &at
		}
		out[i] = t
	}
	return out
}

// linkedTasks returns the tasks bound to nodeID, in input order.
func linkedTasks(tasks []Task, nodeID string) []Task {
	var out []Task
	for _, t := range tasks {
		if t.NodeID == nodeID {
			out = append(out, t)
		}
	}
	return out
}
