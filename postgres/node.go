package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/procflow"
)

// insertNodes stores nodes in graph order. Nodes without an id get a UUID.
func insertNodes(ctx context.Context, q querier, processID string, nodes []procflow.Node) error {
	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		attrs, err := json.Marshal(n.Attributes)
		if err != nil {
			return fmt.Errorf("procflow: encode attributes of %s: %w", n.ID, err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO process_nodes (id, process_id, seq, kind, pos_x, pos_y, attributes) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, processID, i, string(n.Kind), n.Position.X, n.Position.Y, json.RawMessage(attrs),
		); err != nil {
			return fmt.Errorf("procflow: insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

// listNodes returns all nodes of a process in graph order.
// Returns an empty slice (not nil) if none found.
func listNodes(ctx context.Context, q querier, processID string) ([]procflow.Node, error) {
	rows, err := q.Query(ctx,
		`SELECT id, kind, pos_x, pos_y, attributes FROM process_nodes WHERE process_id = $1 ORDER BY seq`, processID)
	if err != nil {
		return nil, fmt.Errorf("procflow: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []procflow.Node{}
	for rows.Next() {
		var (
			n     procflow.Node
			kind  string
			attrs []byte
		)
		if err := rows.Scan(&n.ID, &kind, &n.Position.X, &n.Position.Y, &attrs); err != nil {
			return nil, fmt.Errorf("procflow: scan node: %w", err)
		}
		n.Kind = procflow.Kind(kind)
		if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
			return nil, fmt.Errorf("procflow: decode attributes of %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("procflow: rows nodes: %w", err)
	}
	return nodes, nil
}
