// Package memory is an in-process procflow.Store, intended for development
// and tests. Processes are copied on the way in and out so callers never
// share state with the store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/meikuraledutech/procflow"
)

// Store implements procflow.Store on a map guarded by a RWMutex.
type Store struct {
	mu        sync.RWMutex
	processes map[string]*procflow.Process
}

// New returns an empty Store.
func New() *Store {
	return &Store{processes: make(map[string]*procflow.Process)}
}

// CreateSchema is a no-op; the map needs no schema.
func (s *Store) CreateSchema(ctx context.Context) error {
	return nil
}

// DropSchema forgets every process.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes = make(map[string]*procflow.Process)
	return nil
}

// SaveProcess stores a copy of p, replacing any earlier version.
func (s *Store) SaveProcess(ctx context.Context, p *procflow.Process) error {
	if p == nil || p.ID == "" {
		return procflow.ErrProcessNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[p.ID] = p.Clone()
	return nil
}

// GetProcess returns a copy of the process.
// Returns nil, nil if not found.
func (s *Store) GetProcess(ctx context.Context, id string) (*procflow.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// ListProcesses returns every process ordered by name, then id.
func (s *Store) ListProcesses(ctx context.Context) ([]procflow.ProcessSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]procflow.ProcessSummary, 0, len(s.processes))
	for _, p := range s.processes {
		out = append(out, p.Clone().Summary())
	}
	slices.SortFunc(out, func(a, b procflow.ProcessSummary) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// DeleteProcess removes a process.
// No error if the process doesn't exist.
func (s *Store) DeleteProcess(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processes, id)
	return nil
}
