package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/procflow"
)

// insertTasks stores tasks in list order. node_id is not a foreign key: a
// task may keep pointing at a node that was removed.
func insertTasks(ctx context.Context, q querier, processID string, tasks []procflow.Task) error {
	for i, t := range tasks {
		if _, err := q.Exec(ctx,
			`INSERT INTO process_tasks (process_id, id, seq, text, due, completed, completed_by, completed_at, node_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			processID, string(t.ID), i, t.Text, t.Due, t.Completed, t.CompletedBy, t.CompletedAt, t.NodeID,
		); err != nil {
			return fmt.Errorf("procflow: insert task %s: %w", t.ID, err)
		}
	}
	return nil
}

// listTasks returns all tasks of a process in list order.
// Returns an empty slice (not nil) if none found.
func listTasks(ctx context.Context, q querier, processID string) ([]procflow.Task, error) {
	rows, err := q.Query(ctx,
		`SELECT id, text, due, completed, completed_by, completed_at, node_id
		 FROM process_tasks WHERE process_id = $1 ORDER BY seq`, processID)
	if err != nil {
		return nil, fmt.Errorf("procflow: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []procflow.Task{}
	for rows.Next() {
		var (
			t  procflow.Task
			id string
		)
		if err := rows.Scan(&id, &t.Text, &t.Due, &t.Completed, &t.CompletedBy, &t.CompletedAt, &t.NodeID); err != nil {
			return nil, fmt.Errorf("procflow: scan task: %w", err)
		}
		t.ID = procflow.TaskID(id)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("procflow: rows tasks: %w", err)
	}
	return tasks, nil
}
