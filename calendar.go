package procflow

import (
	"slices"
	"time"
)

// CalendarEntry pairs a task or a step with the moment it is due.
type CalendarEntry struct {
	ID   string    `json:"id"`
	Task *Task     `json:"task,omitempty"`
	Node *Node     `json:"node,omitempty"`
	Due  time.Time `json:"due"`
}

// Calendar is the sorted schedule of a process.
type Calendar struct {
	entries []CalendarEntry
	loc     *time.Location
}

// BuildCalendar collects every task with a parseable due date and every step
// with an absolute deadline. A step deadline already covered by a task due
// at the same instant on that step is left out. Entries are sorted by due
// time; on ties tasks come before steps.
func BuildCalendar(g *Graph, tasks []Task, loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	nodes := make(map[string]*Node)
	if g != nil {
		for i := range g.Nodes {
			nodes[g.Nodes[i].ID] = &g.Nodes[i]
		}
	}

	type key struct {
		node string
		at   int64
	}
	seen := make(map[key]struct{})

	var entries []CalendarEntry
	for i := range tasks {
		t := tasks[i]
		due, ok := t.DueTime(loc)
		if !ok {
			continue
		}
		e := CalendarEntry{ID: "task-" + string(t.ID), Task: &t, Due: due}
		if n, ok := nodes[t.NodeID]; ok {
			nc := n.clone()
			e.Node = &nc
			seen[key{n.ID, due.UnixNano()}] = struct{}{}
		}
		entries = append(entries, e)
	}

	if g != nil {
		for i := range g.Nodes {
			n := &g.Nodes[i]
			r := n.Attributes.Deadline
			if !n.IsStep() || r == nil || r.Type != DeadlineAbsolute || !r.Configured() {
				continue
			}
			due := r.At.In(loc)
			if _, dup := seen[key{n.ID, due.UnixNano()}]; dup {
				continue
			}
			nc := n.clone()
			entries = append(entries, CalendarEntry{ID: "node-" + n.ID, Node: &nc, Due: due})
		}
	}

	slices.SortStableFunc(entries, func(a, b CalendarEntry) int {
		return a.Due.Compare(b.Due)
	})
	return Calendar{entries: entries, loc: loc}
}

// Entries returns every entry regardless of month.
func (c Calendar) Entries() []CalendarEntry {
	return c.entries
}

// Days buckets the entries of one month by day of month. Entries of other
// months stay in Entries but are not bucketed.
func (c Calendar) Days(year int, month time.Month) map[int][]CalendarEntry {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[int][]CalendarEntry)
	for _, e := range c.entries {
		d := e.Due.In(loc)
		if d.Year() != year || d.Month() != month {
			continue
		}
		days[d.Day()] = append(days[d.Day()], e)
	}
	return days
}

// Upcoming returns at most n entries due at or after from.
func (c Calendar) Upcoming(from time.Time, n int) []CalendarEntry {
	i, _ := slices.BinarySearchFunc(c.entries, from, func(e CalendarEntry, t time.Time) int {
		return e.Due.Compare(t)
	})
	out := c.entries[i:]
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
