package flowchart

import (
	"context"
	"errors"
)

var (
	ErrFlowchartNotFound = errors.New("flowchart: flowchart not found")
	ErrUnknownShape      = errors.New("flowchart: unknown shape")
	ErrUnknownEdgeStyle  = errors.New("flowchart: unknown edge style")
	ErrDuplicateID       = errors.New("flowchart: duplicate id")
)

// Store defines the contract for persisting and retrieving flowcharts.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Flowcharts
	SaveFlowchart(ctx context.Context, f *Flowchart) error
	GetFlowchart(ctx context.Context, id string) (*Flowchart, error)
	DeleteFlowchart(ctx context.Context, id string) error
	ListFlowcharts(ctx context.Context) ([]Metadata, error)
}
