package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/procflow"
)

// insertEdges stores edges in graph order. Duplicate pairs keep the last one.
func insertEdges(ctx context.Context, q querier, processID string, edges []procflow.Edge) error {
	for i, e := range edges {
		if _, err := q.Exec(ctx,
			`INSERT INTO process_edges (process_id, source_id, target_id, seq) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (process_id, source_id, target_id) DO UPDATE SET seq = EXCLUDED.seq`,
			processID, e.Source, e.Target, i,
		); err != nil {
			return fmt.Errorf("procflow: insert edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

// listEdges returns all edges of a process in graph order.
// Returns an empty slice (not nil) if none found.
func listEdges(ctx context.Context, q querier, processID string) ([]procflow.Edge, error) {
	rows, err := q.Query(ctx,
		`SELECT source_id, target_id FROM process_edges WHERE process_id = $1 ORDER BY seq`, processID)
	if err != nil {
		return nil, fmt.Errorf("procflow: list edges: %w", err)
	}
	defer rows.Close()

	edges := []procflow.Edge{}
	for rows.Next() {
		var e procflow.Edge
		if err := rows.Scan(&e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("procflow: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("procflow: rows edges: %w", err)
	}
	return edges, nil
}
