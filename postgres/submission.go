package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/procflow"
)

func insertSubmissions(ctx context.Context, q querier, processID string, subs procflow.Submissions) error {
	for nodeID, sub := range subs {
		if _, err := q.Exec(ctx,
			`INSERT INTO process_submissions (process_id, node_id, type, value, file_name, completed_by, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			processID, nodeID, string(sub.Type), sub.Value, sub.FileName, sub.CompletedBy, sub.CompletedAt,
		); err != nil {
			return fmt.Errorf("procflow: insert submission for %s: %w", nodeID, err)
		}
	}
	return nil
}

// listSubmissions returns the current submission of every step of a process.
func listSubmissions(ctx context.Context, q querier, processID string) (procflow.Submissions, error) {
	rows, err := q.Query(ctx,
		`SELECT node_id, type, value, file_name, completed_by, completed_at
		 FROM process_submissions WHERE process_id = $1`, processID)
	if err != nil {
		return nil, fmt.Errorf("procflow: list submissions: %w", err)
	}
	defer rows.Close()

	subs := procflow.Submissions{}
	for rows.Next() {
		var (
			sub procflow.Submission
			typ string
		)
		if err := rows.Scan(&sub.NodeID, &typ, &sub.Value, &sub.FileName, &sub.CompletedBy, &sub.CompletedAt); err != nil {
			return nil, fmt.Errorf("procflow: scan submission: %w", err)
		}
		sub.Type = procflow.OutputType(typ)
		subs[sub.NodeID] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("procflow: rows submissions: %w", err)
	}
	return subs, nil
}
