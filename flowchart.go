// Package flowchart is the document model and editor of a flowchart
// designer: nodes and edges under bounded undo/redo, with validation,
// statistics and export.
package flowchart

import (
	"bytes"
	"slices"
	"time"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Attachment is the file attached to a node in the inspector.
// A nil Data means the attachment is a filename reference only.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

func (a *Attachment) equal(b *Attachment) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Filename == b.Filename && a.ContentType == b.ContentType && bytes.Equal(a.Data, b.Data)
}

func (a *Attachment) clone() *Attachment {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = bytes.Clone(a.Data)
	return &c
}

// Priority ranks the business importance of a step.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is the progress state of a step.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on-hold"
	StatusCancelled  Status = "cancelled"
)

// BusinessAttributes carry the business-process fields of a node.
type BusinessAttributes struct {
	Owner            string     `json:"owner,omitempty"`
	Department       string     `json:"department,omitempty"`
	EstimatedMinutes *float64   `json:"estimated_minutes,omitempty"`
	Priority         Priority   `json:"priority,omitempty"`
	Status           Status     `json:"status,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

func (b *BusinessAttributes) equal(o *BusinessAttributes) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Owner != o.Owner || b.Department != o.Department || b.Priority != o.Priority ||
		b.Status != o.Status || b.Notes != o.Notes || !slices.Equal(b.Tags, o.Tags) {
		return false
	}
	if (b.EstimatedMinutes == nil) != (o.EstimatedMinutes == nil) ||
		b.EstimatedMinutes != nil && *b.EstimatedMinutes != *o.EstimatedMinutes {
		return false
	}
	if (b.DueDate == nil) != (o.DueDate == nil) ||
		b.DueDate != nil && !b.DueDate.Equal(*o.DueDate) {
		return false
	}
	return true
}

func (b *BusinessAttributes) clone() *BusinessAttributes {
	if b == nil {
		return nil
	}
	c := *b
	c.Tags = slices.Clone(b.Tags)
	if b.EstimatedMinutes != nil {
		m := *b.EstimatedMinutes
		c.EstimatedMinutes = &m
	}
	if b.DueDate != nil {
		d := *b.DueDate
		c.DueDate = &d
	}
	return &c
}

// estimated returns the estimated duration in minutes, zero when unset.
func (b *BusinessAttributes) estimated() float64 {
	if b == nil || b.EstimatedMinutes == nil {
		return 0
	}
	return *b.EstimatedMinutes
}

// NodeData is the editable content of a node.
// It never holds callbacks; see Editor.NodeDataFunc.
type NodeData struct {
	Label       string              `json:"label"`
	Description string              `json:"description"`
	Attachment  *Attachment         `json:"attachment,omitempty"`
	Business    *BusinessAttributes `json:"business,omitempty"`
}

// Equal reports whether two node payloads are structurally identical.
func (d NodeData) Equal(o NodeData) bool {
	return d.Label == o.Label &&
		d.Description == o.Description &&
		d.Attachment.equal(o.Attachment) &&
		d.Business.equal(o.Business)
}

// clone returns a deep copy; history snapshots never share pointers with
// values handed out or taken in.
func (d NodeData) clone() NodeData {
	d.Attachment = d.Attachment.clone()
	d.Business = d.Business.clone()
	return d
}

// Node is one flowchart step on the canvas.
type Node struct {
	ID       string   `json:"id"`
	Type     Shape    `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
	Selected bool     `json:"selected,omitempty"`
	Width    float64  `json:"width,omitempty"`
	Height   float64  `json:"height,omitempty"`
}

// Equal reports whether two nodes are structurally identical.
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID &&
		n.Type == o.Type &&
		n.Position == o.Position &&
		n.Selected == o.Selected &&
		n.Width == o.Width &&
		n.Height == o.Height &&
		n.Data.Equal(o.Data)
}

func (n Node) clone() Node {
	n.Data = n.Data.clone()
	return n
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}

// EdgeData is the editable content of an edge.
type EdgeData struct {
	Label       string  `json:"label,omitempty"`
	Condition   string  `json:"condition,omitempty"`
	Probability float64 `json:"probability,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle string    `json:"source_handle,omitempty"`
	TargetHandle string    `json:"target_handle,omitempty"`
	Type         EdgeStyle `json:"type"`
	Data         EdgeData  `json:"data"`
	Selected     bool      `json:"selected,omitempty"`
}

// Equal reports whether two edges are structurally identical.
func (e Edge) Equal(o Edge) bool {
	return e == o
}

// Connection is the gesture payload for linking two nodes.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Document is the undoable part of the editor state.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Equal compares documents field by field. Two documents built from fresh
// slices around the same nodes and edges are equal.
func (d Document) Equal(o Document) bool {
	return slices.EqualFunc(d.Nodes, o.Nodes, Node.Equal) &&
		slices.EqualFunc(d.Edges, o.Edges, Edge.Equal)
}

// NodeIndex returns the position of the node with the given id, or -1.
func (d Document) NodeIndex(id string) int {
	return slices.IndexFunc(d.Nodes, func(n Node) bool { return n.ID == id })
}

// EdgeIndex returns the position of the edge with the given id, or -1.
func (d Document) EdgeIndex(id string) int {
	return slices.IndexFunc(d.Edges, func(e Edge) bool { return e.ID == id })
}

// HasNode reports whether a node with the given id exists.
func (d Document) HasNode(id string) bool {
	return d.NodeIndex(id) >= 0
}

// ApprovalStatus is the review state of a flowchart.
type ApprovalStatus string

const (
	ApprovalDraft    ApprovalStatus = "draft"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Metadata describes a flowchart as a whole. It is not part of undo history.
type Metadata struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Version        string         `json:"version"`
	Author         string         `json:"author"`
	LastModified   time.Time      `json:"last_modified"`
	Tags           []string       `json:"tags,omitempty"`
	Department     string         `json:"department,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status,omitempty"`
}

// Flowchart is the persisted and exported form of an editing session.
type Flowchart struct {
	Metadata Metadata `json:"metadata"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
}

// Document returns the nodes and edges of f as a Document.
func (f Flowchart) Document() Document {
	return Document{Nodes: f.Nodes, Edges: f.Edges}
}
