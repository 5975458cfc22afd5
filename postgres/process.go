package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/procflow"
)

// SaveProcess saves a full process (graph, tasks, submissions) in one
// transaction. Rows already stored for the process are replaced.
func (s *PGStore) SaveProcess(ctx context.Context, p *procflow.Process) error {
	if p == nil || p.ID == "" {
		return procflow.ErrProcessNotFound
	}

	deadline, err := encodeDeadline(p.Deadline)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("procflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO processes (id, name, description, deadline, deadline_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     deadline = EXCLUDED.deadline,
		     deadline_order = EXCLUDED.deadline_order,
		     updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Description, deadline, string(p.DeadlineOrder), p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("procflow: upsert process: %w", err)
	}

	// Replace semantics: clear children, edges first.
	for _, table := range []string{"process_edges", "process_submissions", "process_tasks", "process_nodes"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE process_id = $1`, p.ID); err != nil {
			return fmt.Errorf("procflow: clear %s: %w", table, err)
		}
	}

	if p.Graph != nil {
		if err := insertNodes(ctx, tx, p.ID, p.Graph.Nodes); err != nil {
			return err
		}
		if err := insertEdges(ctx, tx, p.ID, p.Graph.Edges); err != nil {
			return err
		}
	}
	if err := insertTasks(ctx, tx, p.ID, p.Tasks); err != nil {
		return err
	}
	if err := insertSubmissions(ctx, tx, p.ID, p.Submissions); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("procflow: commit: %w", err)
	}
	return nil
}

// GetProcess retrieves a full process by its ID. Cached task views are not
// stored; call Refresh on the result.
// Returns nil, nil if not found.
func (s *PGStore) GetProcess(ctx context.Context, id string) (*procflow.Process, error) {
	p := &procflow.Process{ID: id}
	var (
		deadline []byte
		order    string
	)
	err := s.db.QueryRow(ctx,
		`SELECT name, description, deadline, deadline_order, created_at, updated_at FROM processes WHERE id = $1`, id,
	).Scan(&p.Name, &p.Description, &deadline, &order, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("procflow: get process: %w", err)
	}
	p.DeadlineOrder = procflow.DeadlineOrder(order)
	if p.Deadline, err = decodeDeadline(deadline); err != nil {
		return nil, err
	}

	p.Graph = &procflow.Graph{}
	if p.Graph.Nodes, err = listNodes(ctx, s.db, id); err != nil {
		return nil, err
	}
	if p.Graph.Edges, err = listEdges(ctx, s.db, id); err != nil {
		return nil, err
	}
	if p.Tasks, err = listTasks(ctx, s.db, id); err != nil {
		return nil, err
	}
	if p.Submissions, err = listSubmissions(ctx, s.db, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProcesses returns every process ordered by name.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListProcesses(ctx context.Context) ([]procflow.ProcessSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, deadline, updated_at FROM processes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("procflow: list processes: %w", err)
	}
	defer rows.Close()

	out := []procflow.ProcessSummary{}
	for rows.Next() {
		var (
			ps       procflow.ProcessSummary
			deadline []byte
		)
		if err := rows.Scan(&ps.ID, &ps.Name, &ps.Description, &deadline, &ps.UpdatedAt); err != nil {
			return nil, fmt.Errorf("procflow: scan process: %w", err)
		}
		if ps.Deadline, err = decodeDeadline(deadline); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("procflow: rows processes: %w", err)
	}
	return out, nil
}

// DeleteProcess removes a process; its rows cascade.
// No error if the process doesn't exist.
func (s *PGStore) DeleteProcess(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM processes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("procflow: delete process: %w", err)
	}
	return nil
}

func encodeDeadline(d *procflow.ProcessDeadline) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("procflow: encode deadline: %w", err)
	}
	return b, nil
}

func decodeDeadline(b []byte) (*procflow.ProcessDeadline, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var d procflow.ProcessDeadline
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("procflow: decode deadline: %w", err)
	}
	return &d, nil
}
