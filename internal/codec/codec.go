// Package codec converts node and edge payloads to and from the JSON
// columns used by the SQL stores.
package codec

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/meikuraledutech/flowchart"
)

// NodeData encodes d for a data column.
func NodeData(d flowchart.NodeData) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("flowchart: encode node data: %w", err)
	}
	return b, nil
}

// EdgeData encodes d for a data column.
func EdgeData(d flowchart.EdgeData) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("flowchart: encode edge data: %w", err)
	}
	return b, nil
}

// ParseNodeData decodes a node data column. An empty column is the zero value.
func ParseNodeData(b []byte) (flowchart.NodeData, error) {
	var d flowchart.NodeData
	if len(b) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("flowchart: decode node data: %w", err)
	}
	return d, nil
}

// ParseEdgeData decodes an edge data column. An empty column is the zero value.
func ParseEdgeData(b []byte) (flowchart.EdgeData, error) {
	var d flowchart.EdgeData
	if len(b) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("flowchart: decode edge data: %w", err)
	}
	return d, nil
}

// Tags encodes a tag list for stores without array columns.
func Tags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("flowchart: encode tags: %w", err)
	}
	return string(b), nil
}

// ParseTags decodes a tag list written by Tags. Empty lists decode to nil.
func ParseTags(s string) ([]string, error) {
	var tags []string
	if s == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("flowchart: decode tags: %w", err)
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}
