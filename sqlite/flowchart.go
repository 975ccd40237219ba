package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/internal/codec"
)

var _ flowchart.Store = (*Store)(nil)

const metadataColumns = `id, title, description, version, author, tags, department, approval_status, last_modified`

// SaveFlowchart saves a full flowchart in one transaction, replacing
// whatever was stored under the same id. If f.Metadata.ID is empty, a UUID
// is auto-generated and written back.
func (s *Store) SaveFlowchart(ctx context.Context, f *flowchart.Flowchart) error {
	if f.Metadata.ID == "" {
		f.Metadata.ID = uuid.NewString()
	}
	m := f.Metadata
	tags, err := codec.Tags(m.Tags)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flowchart: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO flowcharts (`+metadataColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			version = excluded.version,
			author = excluded.author,
			tags = excluded.tags,
			department = excluded.department,
			approval_status = excluded.approval_status,
			last_modified = excluded.last_modified`,
		m.ID, m.Title, m.Description, m.Version, m.Author, tags, m.Department, string(m.ApprovalStatus), m.LastModified.UnixNano(),
	); err != nil {
		return fmt.Errorf("flowchart: upsert flowchart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM flowchart_nodes WHERE flowchart_id = ?`, m.ID); err != nil {
		return fmt.Errorf("flowchart: delete nodes: %w", err)
	}

	for i, n := range f.Nodes {
		data, err := codec.NodeData(n.Data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flowchart_nodes (flowchart_id, id, ordinal, type, x, y, width, height, data)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, n.ID, i, string(n.Type), n.Position.X, n.Position.Y, n.Width, n.Height, string(data),
		); err != nil {
			return fmt.Errorf("flowchart: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range f.Edges {
		data, err := codec.EdgeData(e.Data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flowchart_edges (flowchart_id, id, ordinal, source_id, target_id, source_handle, target_handle, type, data)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, e.ID, i, e.Source, e.Target, e.SourceHandle, e.TargetHandle, string(e.Type), string(data),
		); err != nil {
			return fmt.Errorf("flowchart: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flowchart: commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row scanner) (flowchart.Metadata, error) {
	var (
		m            flowchart.Metadata
		tags, status string
		modified     int64
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Version, &m.Author, &tags, &m.Department, &status, &modified); err != nil {
		return m, err
	}
	var err error
	if m.Tags, err = codec.ParseTags(tags); err != nil {
		return m, err
	}
	m.ApprovalStatus = flowchart.ApprovalStatus(status)
	m.LastModified = time.Unix(0, modified).UTC()
	return m, nil
}

// GetFlowchart retrieves a full flowchart by its ID.
// Returns nil, nil if not found.
func (s *Store) GetFlowchart(ctx context.Context, id string) (*flowchart.Flowchart, error) {
	m, err := scanMetadata(s.db.QueryRowContext(ctx,
		`SELECT `+metadataColumns+` FROM flowcharts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("flowchart: get flowchart: %w", err)
	}
	f := &flowchart.Flowchart{Metadata: m, Nodes: []flowchart.Node{}, Edges: []flowchart.Edge{}}

	if f.Nodes, err = s.listNodes(ctx, id); err != nil {
		return nil, err
	}
	if f.Edges, err = s.listEdges(ctx, id); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) listNodes(ctx context.Context, id string) ([]flowchart.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, x, y, width, height, data FROM flowchart_nodes
		 WHERE flowchart_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("flowchart: query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []flowchart.Node{}
	for rows.Next() {
		var (
			n           flowchart.Node
			shape, data string
		)
		if err := rows.Scan(&n.ID, &shape, &n.Position.X, &n.Position.Y, &n.Width, &n.Height, &data); err != nil {
			return nil, fmt.Errorf("flowchart: scan node: %w", err)
		}
		n.Type = flowchart.Shape(shape)
		if n.Data, err = codec.ParseNodeData([]byte(data)); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowchart: rows nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) listEdges(ctx context.Context, id string) ([]flowchart.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id, source_handle, target_handle, type, data FROM flowchart_edges
		 WHERE flowchart_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("flowchart: query edges: %w", err)
	}
	defer rows.Close()

	edges := []flowchart.Edge{}
	for rows.Next() {
		var (
			e           flowchart.Edge
			style, data string
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.SourceHandle, &e.TargetHandle, &style, &data); err != nil {
			return nil, fmt.Errorf("flowchart: scan edge: %w", err)
		}
		e.Type = flowchart.EdgeStyle(style)
		if e.Data, err = codec.ParseEdgeData([]byte(data)); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowchart: rows edges: %w", err)
	}
	return edges, nil
}

// DeleteFlowchart removes a flowchart with its nodes and edges.
// No error if the flowchart doesn't exist.
func (s *Store) DeleteFlowchart(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flowcharts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("flowchart: delete flowchart: %w", err)
	}
	return nil
}

// ListFlowcharts returns the metadata of every stored flowchart, most
// recently modified first. Returns an empty slice (not nil) if none found.
func (s *Store) ListFlowcharts(ctx context.Context) ([]flowchart.Metadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+metadataColumns+` FROM flowcharts ORDER BY last_modified DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("flowchart: list flowcharts: %w", err)
	}
	defer rows.Close()

	list := []flowchart.Metadata{}
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("flowchart: scan flowchart: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flowchart: rows flowcharts: %w", err)
	}
	return list, nil
}
