package procflow

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// LogTimeLayout formats timestamps in completion log entries.
const LogTimeLayout = "Jan 2, 2006 3:04 PM"

const (
	logSeparator = " • "
	unknownActor = "Unknown"
	markDoneText = "done"
)

// Payload is what a portal sends when a step's output is handed in.
// Required fields are checked by the caller before Submit.
type Payload struct {
	Type     OutputType `json:"type"`
	Value    string     `json:"value,omitempty"`
	FileName string     `json:"fileName,omitempty"`
}

// Submission is the recorded evidence that a step's output was provided.
type Submission struct {
	NodeID      string     `json:"nodeId"`
	Type        OutputType `json:"type"`
	Value       string     `json:"value,omitempty"`
	FileName    string     `json:"fileName,omitempty"`
	CompletedBy string     `json:"completedBy"`
	CompletedAt time.Time  `json:"completedAt"`
}

// ActionLabel describes the submission for the completion log.
func (s Submission) ActionLabel() string {
	switch s.Type {
	case OutputMarkDone:
		return "Marked as done"
	case OutputFile:
		if s.FileName != "" {
			return "Uploaded " + s.FileName
		}
		return "Uploaded a file"
	case OutputLink:
		return "Shared link"
	case OutputText:
		return "Submitted response"
	}
	return "Submitted output"
}

// Submissions holds the current submission of each step, keyed by node id.
// There is no history: a new submission replaces the old one.
type Submissions map[string]Submission

// Get returns the submission for nodeID, or nil.
func (s Submissions) Get(nodeID string) *Submission {
	sub, ok := s[nodeID]
	if !ok {
		return nil
	}
	return &sub
}

// Submit stamps p with actor and at and stores it as the submission of
// nodeID. A step marked as done stays done.
func (s Submissions) Submit(nodeID string, p Payload, actor string, at time.Time) (Submission, error) {
	if prev, ok := s[nodeID]; ok && prev.Type == OutputMarkDone {
		return prev, ErrOutputFinalized
	}
	sub := Submission{
		NodeID:      nodeID,
		Type:        p.Type,
		Value:       p.Value,
		CompletedBy: actor,
		CompletedAt: at,
	}
	switch p.Type {
	case OutputMarkDone:
		sub.Value = markDoneText
	case OutputFile:
		sub.FileName = p.FileName
	}
	s[nodeID] = sub
	return sub, nil
}

// Clone returns a copy of s.
func (s Submissions) Clone() Submissions {
	if s == nil {
		return nil
	}
	out := make(Submissions, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// LogEntry is one line of a step's completion log.
type LogEntry struct {
	Text   string    `json:"text"`
	At     time.Time `json:"at,omitzero"`
	TaskID TaskID    `json:"taskId,omitempty"`
}

func actorOrUnknown(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return unknownActor
}

// CompletionLog merges the submission of nodeID and the completed tasks
// bound to it. The submission always comes first; task completions follow,
// newest first, with undated ones last.
func CompletionLog(nodeID string, tasks []Task, subs Submissions) []LogEntry {
	var out []LogEntry
	if sub := subs.Get(nodeID); sub != nil {
		out = append(out, LogEntry{
			Text: strings.Join([]string{
				actorOrUnknown(sub.CompletedBy),
				sub.ActionLabel(),
				sub.CompletedAt.Format(LogTimeLayout),
			}, logSeparator),
			At: sub.CompletedAt,
		})
	}

	var done []Task
	for _, t := range linkedTasks(tasks, nodeID) {
		if t.Completed {
			done = append(done, t)
		}
	}
	slices.SortStableFunc(done, func(a, b Task) int {
		switch {
		case a.CompletedAt == nil && b.CompletedAt == nil:
			return 0
		case a.CompletedAt == nil:
			return 1
		case b.CompletedAt == nil:
			return -1
		}
		return cmp.Compare(b.CompletedAt.UnixNano(), a.CompletedAt.UnixNano())
	})

	for _, t := range done {
		e := LogEntry{TaskID: t.ID, Text: actorOrUnknown(t.CompletedBy)}
		if t.CompletedAt != nil {
			e.At = *t.CompletedAt
			e.Text = fmt.Sprintf("%s%s%s", e.Text, logSeparator, t.CompletedAt.Format(LogTimeLayout))
		}
		out = append(out, e)
	}
	return out
}
