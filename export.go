package flowchart

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// DropMIMEType is the drag-data format the shape palette writes.
const DropMIMEType = "application/reactflow-shape"

// DropPayload is the record carried from the shape palette to the canvas.
type DropPayload struct {
	ShapeType string `json:"shapeType"`
}

// ParseDropPayload decodes drag data. It accepts the JSON record or, as the
// palette historically sent, the bare shape tag.
func ParseDropPayload(b []byte) (DropPayload, error) {
	b = bytes.TrimSpace(b)
	var p DropPayload
	if len(b) > 0 && b[0] == '{' {
		if err := json.Unmarshal(b, &p); err != nil {
			return DropPayload{}, fmt.Errorf("flowchart: decode drop payload: %w", err)
		}
	} else {
		p.ShapeType = string(b)
	}
	if _, err := ParseShape(p.ShapeType); err != nil {
		return DropPayload{}, err
	}
	return p, nil
}

// EncodeFlowchart renders f as indented JSON.
func EncodeFlowchart(f Flowchart) ([]byte, error) {
	if f.Nodes == nil {
		f.Nodes = []Node{}
	}
	if f.Edges == nil {
		f.Edges = []Edge{}
	}
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("flowchart: encode: %w", err)
	}
	return out, nil
}

// DecodeFlowchart parses JSON produced by EncodeFlowchart. Unknown shapes
// and edge styles are rejected, as are repeated node or edge ids.
func DecodeFlowchart(b []byte) (Flowchart, error) {
	var f Flowchart
	if err := json.Unmarshal(b, &f); err != nil {
		return Flowchart{}, fmt.Errorf("flowchart: decode: %w", err)
	}
	nodes := make(map[string]struct{}, len(f.Nodes))
	for _, n := range f.Nodes {
		if !n.Type.Valid() {
			return Flowchart{}, fmt.Errorf("%w: node %s has %q", ErrUnknownShape, n.ID, n.Type)
		}
		if _, dup := nodes[n.ID]; dup {
			return Flowchart{}, fmt.Errorf("%w: node %q", ErrDuplicateID, n.ID)
		}
		nodes[n.ID] = struct{}{}
	}
	edges := make(map[string]struct{}, len(f.Edges))
	for _, e := range f.Edges {
		if !e.Type.Valid() {
			return Flowchart{}, fmt.Errorf("%w: edge %s has %q", ErrUnknownEdgeStyle, e.ID, e.Type)
		}
		if _, dup := edges[e.ID]; dup {
			return Flowchart{}, fmt.Errorf("%w: edge %q", ErrDuplicateID, e.ID)
		}
		edges[e.ID] = struct{}{}
	}
	return f, nil
}
