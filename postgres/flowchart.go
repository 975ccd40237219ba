package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/internal/codec"
)

var _ flowchart.Store = (*PGStore)(nil)

// SaveFlowchart saves a full flowchart (metadata, nodes, edges) in one
// transaction, replacing whatever was stored under the same id.
// If f.Metadata.ID is empty, a UUID is auto-generated and written back.
func (s *PGStore) SaveFlowchart(ctx context.Context, f *flowchart.Flowchart) error {
	if f.Metadata.ID == "" {
		f.Metadata.ID = uuid.NewString()
	}
	m := f.Metadata
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flowchart: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO flowcharts (id, title, description, version, author, tags, department, approval_status, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			version = EXCLUDED.version,
			author = EXCLUDED.author,
			tags = EXCLUDED.tags,
			department = EXCLUDED.department,
			approval_status = EXCLUDED.approval_status,
			last_modified = EXCLUDED.last_modified`,
		m.ID, m.Title, m.Description, m.Version, m.Author, tags, m.Department, string(m.ApprovalStatus), m.LastModified,
	); err != nil {
		return fmt.Errorf("flowchart: upsert flowchart: %w", err)
	}

	// Replace semantics: edges go with their nodes via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx, `DELETE FROM flowchart_nodes WHERE flowchart_id = $1`, m.ID); err != nil {
		return fmt.Errorf("flowchart: delete nodes: %w", err)
	}

	for i, n := range f.Nodes {
		data, err := codec.NodeData(n.Data)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO flowchart_nodes (flowchart_id, id, ordinal, type, x, y, width, height, data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			m.ID, n.ID, i, string(n.Type), n.Position.X, n.Position.Y, n.Width, n.Height, data,
		); err != nil {
			return fmt.Errorf("flowchart: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range f.Edges {
		data, err := codec.EdgeData(e.Data)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO flowchart_edges (flowchart_id, id, ordinal, source_id, target_id, source_handle, target_handle, type, data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			m.ID, e.ID, i, e.Source, e.Target, e.SourceHandle, e.TargetHandle, string(e.Type), data,
		); err != nil {
			return fmt.Errorf("flowchart: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("flowchart: commit: %w", err)
	}
	return nil
}

// GetFlowchart retrieves a full flowchart by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetFlowchart(ctx context.Context, id string) (*flowchart.Flowchart, error) {
	f := &flowchart.Flowchart{Nodes: []flowchart.Node{}, Edges: []flowchart.Edge{}}
	m := &f.Metadata
	var status string
	err := s.db.QueryRow(ctx,
		`SELECT id, title, description, version, author, tags, department, approval_status, last_modified
		 FROM flowcharts WHERE id = $1`, id,
	).Scan(&m.ID, &m.Title, &m.Description, &m.Version, &m.Author, &m.Tags, &m.Department, &status, &m.LastModified)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowchart: get flowchart: %w", err)
	}
	m.ApprovalStatus = flowchart.ApprovalStatus(status)
	if len(m.Tags) == 0 {
		m.Tags = nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, type, x, y, width, height, data FROM flowchart_nodes
		 WHERE flowchart_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("flowchart: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n     flowchart.Node
			shape string
			data  []byte
		)
		if err := rows.Scan(&n.ID, &shape, &n.Position.X, &n.Position.Y, &n.Width, &n.Height, &data); err != nil {
			return nil, fmt.Errorf("flowchart: scan node: %w", err)
		}
		n.Type = flowchart.Shape(shape)
		if n.Data, err = codec.ParseNodeData(data); err != nil {
			return nil, err
		}
		f.Nodes = append(f.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowchart: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, source_id, target_id, source_handle, target_handle, type, data FROM flowchart_edges
		 WHERE flowchart_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("flowchart: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e     flowchart.Edge
			style string
			data  []byte
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.SourceHandle, &e.TargetHandle, &style, &data); err != nil {
			return nil, fmt.Errorf("flowchart: scan edge: %w", err)
		}
		e.Type = flowchart.EdgeStyle(style)
		if e.Data, err = codec.ParseEdgeData(data); err != nil {
			return nil, err
		}
		f.Edges = append(f.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowchart: rows edges: %w", err)
	}

	return f, nil
}

// DeleteFlowchart removes a flowchart with its nodes and edges.
// No error if the flowchart doesn't exist.
func (s *PGStore) DeleteFlowchart(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flowcharts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("flowchart: delete flowchart: %w", err)
	}
	return nil
}

// ListFlowcharts returns the metadata of every stored flowchart, most
// recently modified first. Returns an empty slice (not nil) if none found.
func (s *PGStore) ListFlowcharts(ctx context.Context) ([]flowchart.Metadata, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, description, version, author, tags, department, approval_status, last_modified
		 FROM flowcharts ORDER BY last_modified DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("flowchart: list flowcharts: %w", err)
	}
	defer rows.Close()

	list := []flowchart.Metadata{}
	for rows.Next() {
		var (
			m      flowchart.Metadata
			status string
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Version, &m.Author, &m.Tags, &m.Department, &status, &m.LastModified); err != nil {
			return nil, fmt.Errorf("flowchart: scan flowchart: %w", err)
		}
		m.ApprovalStatus = flowchart.ApprovalStatus(status)
		if len(m.Tags) == 0 {
			m.Tags = nil
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowchart: rows flowcharts: %w", err)
	}

	return list, nil
}
