package procflow

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProcessNotFound = errors.New("procflow: process not found")
	ErrNodeNotFound    = errors.New("procflow: node not found")
	ErrEdgeNotFound    = errors.New("procflow: edge not found")
	ErrTaskNotFound    = errors.New("procflow: task not found")
	ErrSelfLoop        = errors.New("procflow: edge cannot connect a node to itself")
	ErrNotAStep        = errors.New("procflow: node is not a step")
	ErrOutputFinalized = errors.New("procflow: output already marked as done")
	ErrUnknownKind     = errors.New("procflow: unknown node kind")
)

// ProcessSummary is the listing view of a stored process.
type ProcessSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Deadline    *ProcessDeadline `json:"deadline"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Store defines the contract for persisting and retrieving processes.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Processes
	SaveProcess(ctx context.Context, p *Process) error
	GetProcess(ctx context.Context, id string) (*Process, error)
	ListProcesses(ctx context.Context) ([]ProcessSummary, error)
	DeleteProcess(ctx context.Context, id string) error
}
