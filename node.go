package procflow

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a node represents in a process.
type Kind string

const (
	KindStart  Kind = "start"
	KindEnd    Kind = "end"
	KindStep   Kind = "step"
	KindBranch Kind = "branch"
	KindScript Kind = "script"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindStart, KindEnd, KindStep, KindBranch, KindScript:
		return true
	}
	return false
}

// AssignmentType selects whether a step is owned by a person or a role.
type AssignmentType string

const (
	AssignIndividual AssignmentType = "individual"
	AssignRole       AssignmentType = "role"
)

// OutputType is the kind of evidence a step expects when it is finished.
type OutputType string

const (
	OutputMarkDone OutputType = "markDone"
	OutputFile     OutputType = "file"
	OutputLink     OutputType = "link"
	OutputText     OutputType = "text"
)

// DeadlineType distinguishes fixed date-times from offsets.
type DeadlineType string

const (
	DeadlineAbsolute DeadlineType = "absolute"
	DeadlineRelative DeadlineType = "relative"
)

// TimeUnit is the unit of a relative offset.
type TimeUnit string

const (
	UnitHours TimeUnit = "hours"
	UnitDays  TimeUnit = "days"
)

func (u TimeUnit) duration() (time.Duration, bool) {
	switch u {
	case UnitHours:
		return time.Hour, true
	case UnitDays:
		return 24 * time.Hour, true
	}
	return 0, false
}

// Position is the layout coordinate of a node. Only Y carries meaning:
// steps are laid out top to bottom in process order.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DeadlineRule is the deadline configured on a step. Value is kept as the
// raw form input so a half-typed rule survives a round trip.
type DeadlineRule struct {
	Type  DeadlineType `json:"type"`
	At    *time.Time   `json:"at,omitempty"`
	Value string       `json:"value,omitempty"`
	Unit  TimeUnit     `json:"unit,omitempty"`
}

// amount parses Value as a finite number.
func (r *DeadlineRule) amount() (float64, bool) {
	v := strings.TrimSpace(r.Value)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Configured reports whether the rule carries enough to produce a deadline.
func (r *DeadlineRule) Configured() bool {
	if r == nil {
		return false
	}
	switch r.Type {
	case DeadlineAbsolute:
		return r.At != nil && !r.At.IsZero()
	case DeadlineRelative:
		if _, ok := r.amount(); !ok {
			return false
		}
		_, ok := r.Unit.duration()
		return ok
	}
	return false
}

// ReminderRule says how long before the deadline a reminder goes out.
type ReminderRule struct {
	Value string   `json:"value"`
	Unit  TimeUnit `json:"unit"`
}

// Trigger describes how a process is started.
type Trigger struct {
	Type     string `json:"type"`
	Schedule string `json:"schedule,omitempty"`
}

// Attributes holds the kind-specific fields of a node. Fields that do not
// apply to a node's kind stay empty.
type Attributes struct {
	Label string `json:"label"`

	// step
	AssignmentType   AssignmentType `json:"assignmentType,omitempty"`
	Assignee         string         `json:"assignee,omitempty"`
	Role             string         `json:"role,omitempty"`
	Approver         string         `json:"approver,omitempty"`
	ExpectedDuration string         `json:"expectedDuration,omitempty"`
	Deadline         *DeadlineRule  `json:"deadline,omitempty"`
	Reminder         *ReminderRule  `json:"reminder,omitempty"`
	OutputType       OutputType     `json:"outputType,omitempty"`

	// start
	Trigger *Trigger `json:"trigger,omitempty"`

	// end
	Completion string   `json:"completion,omitempty"`
	Alerts     []string `json:"alerts,omitempty"`

	// branch
	Condition string `json:"condition,omitempty"`

	// script
	Language string `json:"language,omitempty"`
	Source   string `json:"source,omitempty"`
}

func (a Attributes) clone() Attributes {
	out := a
	if a.Deadline != nil {
		d := *a.Deadline
		if d.At != nil {
			at := *d.At
			d.At = &at
		}
		out.Deadline = &d
	}
	if a.Reminder != nil {
		r := *a.Reminder
		out.Reminder = &r
	}
	if a.Trigger != nil {
		t := *a.Trigger
		out.Trigger = &t
	}
	if a.Alerts != nil {
		out.Alerts = append([]string(nil), a.Alerts...)
	}
	return out
}

// DefaultAttributes returns the attributes a freshly created node of kind k
// starts with.
func DefaultAttributes(k Kind) Attributes {
	switch k {
	case KindStart:
		return Attributes{Label: "Start", Trigger: &Trigger{Type: "manual"}}
	case KindEnd:
		return Attributes{Label: "End", Completion: "allSteps"}
	case KindStep:
		return Attributes{Label: "Step", AssignmentType: AssignIndividual, OutputType: OutputMarkDone}
	case KindBranch:
		return Attributes{Label: "Condition"}
	case KindScript:
		return Attributes{Label: "Script", Language: "javascript"}
	}
	return Attributes{}
}

// Node is a step in a process graph. Kind never changes after creation.
// Tasks is the cached view of the tasks bound to this node, maintained by
// SyncTasks; it is not persisted.
type Node struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Position   Position   `json:"position"`
	Attributes Attributes `json:"attributes"`
	Tasks      []Task     `json:"tasks,omitempty"`
}

// NewNode creates a node with a fresh id and the default attributes for kind.
func NewNode(kind Kind, pos Position) Node {
	return Node{
		ID:         uuid.NewString(),
		Kind:       kind,
		Position:   pos,
		Attributes: DefaultAttributes(kind),
	}
}

// IsStep reports whether n carries assignment, deadline and output semantics.
func (n *Node) IsStep() bool {
	return n != nil && n.Kind == KindStep
}

func (n Node) clone() Node {
	n.Attributes = n.Attributes.clone()
	if n.Tasks != nil {
		n.Tasks = cloneTasks(n.Tasks)
	}
	return n
}
