package flowchart

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/flowchart/temporal"
)

// SeedNodeID is the id of the node every new editor starts with.
const SeedNodeID = "1"

// SeedDocument returns the document a new editor starts from: a single
// start node.
func SeedDocument() Document {
	return Document{
		Nodes: []Node{{
			ID:       SeedNodeID,
			Type:     ShapeStartEnd,
			Position: Position{X: 250, Y: 50},
			Data: NodeData{
				Label:       "Start",
				Description: "Beginning of the flowchart",
				Business:    defaultBusiness(),
			},
		}},
		Edges: []Edge{},
	}
}

func defaultBusiness() *BusinessAttributes {
	return &BusinessAttributes{Priority: PriorityMedium, Status: StatusDraft}
}

// EventKind tells a subscriber which part of the editor state changed.
type EventKind string

const (
	EventDocument  EventKind = "document"
	EventHistory   EventKind = "history"
	EventSelection EventKind = "selection"
	EventEdgeStyle EventKind = "edge_style"
	EventMetadata  EventKind = "metadata"
	EventReset     EventKind = "reset"
)

// Event is delivered to subscribers after a state change.
type Event struct {
	Kind EventKind
	Op   string
}

// Editor is the single source of truth of one editing session: the
// document under undo/redo, plus ephemeral selection and edge style.
//
// Editor is not safe for concurrent use; callers that share an editor across
// goroutines serialize access themselves (see package session).
type Editor struct {
	history *temporal.History[Document]

	selectedNode string
	selectedEdge string
	edgeStyle    EdgeStyle
	meta         Metadata

	validate bool
	issues   []Issue

	listeners    map[int]func(Event)
	nextListener int

	seed         Document
	historyLimit int
	newID        func() string
	now          func() time.Time
	log          *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithHistoryLimit bounds the number of undo steps kept.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.historyLimit = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSeed replaces the initial document.
func WithSeed(d Document) Option {
	return func(e *Editor) { e.seed = d }
}

// WithValidation turns realtime validation on or off.
func WithValidation(on bool) Option {
	return func(e *Editor) { e.validate = on }
}

// WithIDFunc overrides node and edge id generation.
func WithIDFunc(fn func() string) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock overrides the time source used for LastModified.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEditor returns an editor holding the seed document and an empty history.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{
		edgeStyle:    DefaultEdgeStyle,
		validate:     true,
		listeners:    make(map[int]func(Event)),
		seed:         SeedDocument(),
		historyLimit: temporal.DefaultLimit,
		newID:        uuid.NewString,
		now:          time.Now,
		log:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	seed := Document{
		Nodes: cloneNodes(e.seed.Nodes),
		Edges: pruneEdges(e.seed.Nodes, e.seed.Edges),
	}
	for i := range seed.Nodes {
		seed.Nodes[i].Selected = false
	}
	for i := range seed.Edges {
		seed.Edges[i].Selected = false
	}
	e.history = temporal.New(seed,
		temporal.WithLimit[Document](e.historyLimit),
		temporal.WithEqual(Document.Equal),
	)
	e.meta = e.newMetadata()
	e.refreshIssues()
	return e
}

func (e *Editor) newMetadata() Metadata {
	return Metadata{
		ID:             e.newID(),
		Title:          "Untitled flowchart",
		Version:        "1.0.0",
		Author:         "user",
		LastModified:   e.now(),
		ApprovalStatus: ApprovalDraft,
	}
}

// ── Read accessors ──────────────────────────────────────────────────

// Document returns a copy of the current document.
func (e *Editor) Document() Document {
	return Document{Nodes: e.Nodes(), Edges: e.Edges()}
}

// Nodes returns a deep copy of the current nodes with selection flags applied.
func (e *Editor) Nodes() []Node {
	nodes := cloneNodes(e.history.Present().Nodes)
	for i := range nodes {
		nodes[i].Selected = nodes[i].ID == e.selectedNode
	}
	return nodes
}

// Edges returns a copy of the current edges with selection flags applied.
func (e *Editor) Edges() []Edge {
	edges := slices.Clone(e.history.Present().Edges)
	for i := range edges {
		edges[i].Selected = edges[i].ID == e.selectedEdge
	}
	return edges
}

// Node looks a node up by id.
func (e *Editor) Node(id string) (Node, bool) {
	doc := e.history.Present()
	i := doc.NodeIndex(id)
	if i < 0 {
		return Node{}, false
	}
	n := doc.Nodes[i].clone()
	n.Selected = n.ID == e.selectedNode
	return n, true
}

// Edge looks an edge up by id.
func (e *Editor) Edge(id string) (Edge, bool) {
	doc := e.history.Present()
	i := doc.EdgeIndex(id)
	if i < 0 {
		return Edge{}, false
	}
	ed := doc.Edges[i]
	ed.Selected = ed.ID == e.selectedEdge
	return ed, true
}

// SelectedNodeID returns the selected node id, or "" when nothing is selected.
func (e *Editor) SelectedNodeID() string { return e.selectedNode }

// SelectedEdgeID returns the selected edge id, or "".
func (e *Editor) SelectedEdgeID() string { return e.selectedEdge }

// ActiveEdgeStyle is the style given to newly connected edges.
func (e *Editor) ActiveEdgeStyle() EdgeStyle { return e.edgeStyle }

func (e *Editor) CanUndo() bool  { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool  { return e.history.CanRedo() }
func (e *Editor) UndoDepth() int { return e.history.PastLen() }
func (e *Editor) RedoDepth() int { return e.history.FutureLen() }

// Metadata returns the flowchart metadata.
func (e *Editor) Metadata() Metadata {
	m := e.meta
	m.Tags = slices.Clone(m.Tags)
	return m
}

// Issues returns the latest realtime validation findings.
func (e *Editor) Issues() []Issue { return slices.Clone(e.issues) }

// ValidationEnabled reports whether realtime validation runs after changes.
func (e *Editor) ValidationEnabled() bool { return e.validate }

// Validate runs the full rule set against the current document.
func (e *Editor) Validate() []Issue {
	return Validate(e.history.Present(), e.now())
}

// Statistics summarizes the current document.
func (e *Editor) Statistics() Statistics {
	return ComputeStatistics(e.history.Present())
}

// Flowchart returns the persistable form of the session.
func (e *Editor) Flowchart() Flowchart {
	doc := e.history.Present()
	return Flowchart{
		Metadata: e.Metadata(),
		Nodes:    cloneNodes(doc.Nodes),
		Edges:    slices.Clone(doc.Edges),
	}
}

// ── Mutations ───────────────────────────────────────────────────────

// NodeDataPatch lists the node fields to overwrite; nil fields are kept.
type NodeDataPatch struct {
	Label           *string             `json:"label,omitempty"`
	Description     *string             `json:"description,omitempty"`
	Shape           *Shape              `json:"shape,omitempty"`
	Attachment      *Attachment         `json:"attachment,omitempty"`
	ClearAttachment bool                `json:"clear_attachment,omitempty"`
	Business        *BusinessAttributes `json:"business,omitempty"`
}

func (p NodeDataPatch) apply(n Node) Node {
	if p.Label != nil {
		n.Data.Label = *p.Label
	}
	if p.Description != nil {
		n.Data.Description = *p.Description
	}
	if p.Shape != nil && p.Shape.Valid() {
		n.Type = *p.Shape
	}
	if p.ClearAttachment {
		n.Data.Attachment = nil
	}
	if p.Attachment != nil {
		n.Data.Attachment = p.Attachment.clone()
	}
	if p.Business != nil {
		n.Data.Business = p.Business.clone()
	}
	return n
}

// EdgeDataPatch lists the edge fields to overwrite; nil fields are kept.
type EdgeDataPatch struct {
	Label       *string    `json:"label,omitempty"`
	Condition   *string    `json:"condition,omitempty"`
	Probability *float64   `json:"probability,omitempty"`
	Description *string    `json:"description,omitempty"`
	Type        *EdgeStyle `json:"type,omitempty"`
}

func (p EdgeDataPatch) apply(ed Edge) Edge {
	if p.Label != nil {
		ed.Data.Label = *p.Label
	}
	if p.Condition != nil {
		ed.Data.Condition = *p.Condition
	}
	if p.Probability != nil {
		ed.Data.Probability = *p.Probability
	}
	if p.Description != nil {
		ed.Data.Description = *p.Description
	}
	if p.Type != nil && p.Type.Valid() {
		ed.Type = *p.Type
	}
	return ed
}

// AddNode appends a node of the given shape and returns its id.
// Unknown shapes become ShapeCustom.
func (e *Editor) AddNode(shape Shape, pos Position) string {
	if !shape.Valid() {
		shape = ShapeCustom
	}
	doc := e.history.Present()
	n := Node{
		ID:       e.newID(),
		Type:     shape,
		Position: pos,
		Data: NodeData{
			Label:    shape.DefaultLabel(),
			Business: defaultBusiness(),
		},
	}
	nodes := make([]Node, 0, len(doc.Nodes)+1)
	nodes = append(append(nodes, doc.Nodes...), n)
	e.commit("add_node", Document{Nodes: nodes, Edges: doc.Edges})
	return n.ID
}

// Drop adds a node for a payload dragged in from the shape palette.
func (e *Editor) Drop(p DropPayload, pos Position) (string, error) {
	shape, err := ParseShape(p.ShapeType)
	if err != nil {
		return "", err
	}
	return e.AddNode(shape, pos), nil
}

// UpdateNodeData merges patch into the node's data. Unknown ids are ignored.
func (e *Editor) UpdateNodeData(id string, patch NodeDataPatch) {
	doc := e.history.Present()
	i := doc.NodeIndex(id)
	if i < 0 {
		return
	}
	nodes := slices.Clone(doc.Nodes)
	nodes[i] = patch.apply(nodes[i])
	e.commit("update_node", Document{Nodes: nodes, Edges: doc.Edges})
}

// NodeDataFunc returns a callback bound to a node id. The node is resolved
// against the live document each time the callback runs, so it stays
// valid across undo and redo.
func (e *Editor) NodeDataFunc(id string) func(NodeDataPatch) {
	return func(p NodeDataPatch) { e.UpdateNodeData(id, p) }
}

// UpdateEdgeData merges patch into the edge's data. Unknown ids are ignored.
func (e *Editor) UpdateEdgeData(id string, patch EdgeDataPatch) {
	doc := e.history.Present()
	i := doc.EdgeIndex(id)
	if i < 0 {
		return
	}
	edges := slices.Clone(doc.Edges)
	edges[i] = patch.apply(edges[i])
	e.commit("update_edge", Document{Nodes: doc.Nodes, Edges: edges})
}

// Connect adds an edge in the active style. It returns false, creating
// nothing, when an endpoint is missing or the same connection already exists.
// Self-loops are allowed.
func (e *Editor) Connect(c Connection) (string, bool) {
	doc := e.history.Present()
	if !doc.HasNode(c.Source) || !doc.HasNode(c.Target) {
		e.log.Debug("flowchart: connect skipped, missing endpoint",
			"source", c.Source, "target", c.Target)
		return "", false
	}
	for _, ed := range doc.Edges {
		if ed.Source == c.Source && ed.Target == c.Target &&
			ed.SourceHandle == c.SourceHandle && ed.TargetHandle == c.TargetHandle {
			return "", false
		}
	}
	ed := Edge{
		ID:           e.newID(),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
		Type:         e.edgeStyle,
	}
	edges := make([]Edge, 0, len(doc.Edges)+1)
	edges = append(append(edges, doc.Edges...), ed)
	e.commit("connect", Document{Nodes: doc.Nodes, Edges: edges})
	return ed.ID, true
}

// RemoveNode deletes a node and every edge attached to it as one step.
func (e *Editor) RemoveNode(id string) {
	e.ApplyNodeChanges([]NodeChange{{Type: ChangeRemove, ID: id}})
}

// RemoveEdge deletes an edge.
func (e *Editor) RemoveEdge(id string) {
	e.ApplyEdgeChanges([]EdgeChange{{Type: ChangeRemove, ID: id}})
}

// ApplyNodeChanges applies a node change-set as one history step. Edges left
// dangling by removed nodes are dropped in the same step. Select directives
// only move the ephemeral selection.
func (e *Editor) ApplyNodeChanges(changes []NodeChange) {
	doc := e.history.Present()
	structural := make([]NodeChange, 0, len(changes))
	for _, c := range changes {
		if c.Type == ChangeSelect {
			if doc.HasNode(c.ID) {
				e.selectNode(c.ID, c.Selected)
			}
			continue
		}
		if c.Item != nil {
			item := *c.Item
			item.Selected = false
			c.Item = &item
		}
		structural = append(structural, c)
	}
	if len(structural) == 0 {
		return
	}

	nodes := ApplyNodeChanges(structural, doc.Nodes)
	edges := pruneEdges(nodes, doc.Edges)
	if e.commit("node_changes", Document{Nodes: nodes, Edges: edges}) {
		e.dropStaleSelection()
	}
}

// ApplyEdgeChanges applies an edge change-set as one history step. Added
// edges must reference existing nodes.
func (e *Editor) ApplyEdgeChanges(changes []EdgeChange) {
	doc := e.history.Present()
	structural := make([]EdgeChange, 0, len(changes))
	for _, c := range changes {
		if c.Type == ChangeSelect {
			if doc.EdgeIndex(c.ID) >= 0 {
				e.selectEdge(c.ID, c.Selected)
			}
			continue
		}
		if c.Item != nil {
			item := *c.Item
			item.Selected = false
			c.Item = &item
		}
		structural = append(structural, c)
	}
	if len(structural) == 0 {
		return
	}

	edges := pruneEdges(doc.Nodes, ApplyEdgeChanges(structural, doc.Edges))
	if e.commit("edge_changes", Document{Nodes: doc.Nodes, Edges: edges}) {
		e.dropStaleSelection()
	}
}

// SetSelectedNode selects a node, or clears the selection when id is "".
// Selection is not recorded in history.
func (e *Editor) SetSelectedNode(id string) {
	if e.selectedNode == id {
		return
	}
	e.selectedNode = id
	e.emit(Event{Kind: EventSelection})
}

func (e *Editor) selectNode(id string, on bool) {
	switch {
	case on:
		e.SetSelectedNode(id)
	case e.selectedNode == id:
		e.SetSelectedNode("")
	}
}

func (e *Editor) selectEdge(id string, on bool) {
	switch {
	case on && e.selectedEdge != id:
		e.selectedEdge = id
	case !on && e.selectedEdge == id:
		e.selectedEdge = ""
	default:
		return
	}
	e.emit(Event{Kind: EventSelection})
}

// SetActiveEdgeStyle changes the style used by later Connect calls.
// Unknown styles are ignored.
func (e *Editor) SetActiveEdgeStyle(style EdgeStyle) {
	if !style.Valid() || style == e.edgeStyle {
		return
	}
	e.edgeStyle = style
	e.emit(Event{Kind: EventEdgeStyle})
}

// Undo steps the document back once. It is a no-op with an empty past.
func (e *Editor) Undo() {
	if !e.history.Undo() {
		return
	}
	e.afterTravel("undo")
}

// Redo re-applies the last undone step. It is a no-op with an empty future.
func (e *Editor) Redo() {
	if !e.history.Redo() {
		return
	}
	e.afterTravel("redo")
}

func (e *Editor) afterTravel(op string) {
	e.touch()
	e.dropStaleSelection()
	e.log.Debug("flowchart: history traversal", "op", op,
		"undo", e.history.PastLen(), "redo", e.history.FutureLen())
	e.emit(Event{Kind: EventHistory, Op: op})
}

// Load replaces the whole session with f and discards history.
// Only the first node or edge of each id is kept; empty ids and edges whose
// endpoints are missing are dropped.
func (e *Editor) Load(f Flowchart) {
	seen := make(map[string]struct{}, len(f.Nodes))
	nodes := make([]Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		if _, dup := seen[n.ID]; dup || n.ID == "" {
			continue
		}
		seen[n.ID] = struct{}{}
		n = n.clone()
		if !n.Type.Valid() {
			n.Type = ShapeCustom
		}
		n.Selected = false
		nodes = append(nodes, n)
	}

	clear(seen)
	edges := make([]Edge, 0, len(f.Edges))
	for _, ed := range pruneEdges(nodes, f.Edges) {
		if _, dup := seen[ed.ID]; dup || ed.ID == "" {
			continue
		}
		seen[ed.ID] = struct{}{}
		ed.Selected = false
		if !ed.Type.Valid() {
			ed.Type = DefaultEdgeStyle
		}
		edges = append(edges, ed)
	}

	e.history.Reset(Document{Nodes: nodes, Edges: edges})
	e.meta = f.Metadata
	e.meta.Tags = slices.Clone(f.Metadata.Tags)
	if e.meta.ID == "" {
		e.meta.ID = e.newID()
	}
	e.selectedNode, e.selectedEdge = "", ""
	e.refreshIssues()
	e.log.Debug("flowchart: loaded", "id", e.meta.ID, "nodes", len(nodes), "edges", len(edges))
	e.emit(Event{Kind: EventReset, Op: "load"})
}

// Reset empties the document, renews metadata and discards history.
func (e *Editor) Reset() {
	e.history.Reset(Document{Nodes: []Node{}, Edges: []Edge{}})
	e.meta = e.newMetadata()
	e.selectedNode, e.selectedEdge = "", ""
	e.refreshIssues()
	e.emit(Event{Kind: EventReset, Op: "reset"})
}

// MetadataPatch lists the metadata fields to overwrite; nil fields are kept.
type MetadataPatch struct {
	Title          *string         `json:"title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Version        *string         `json:"version,omitempty"`
	Author         *string         `json:"author,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Department     *string         `json:"department,omitempty"`
	ApprovalStatus *ApprovalStatus `json:"approval_status,omitempty"`
}

// UpdateMetadata merges patch into the metadata. Metadata is not undoable.
func (e *Editor) UpdateMetadata(p MetadataPatch) {
	if p.Title != nil {
		e.meta.Title = *p.Title
	}
	if p.Description != nil {
		e.meta.Description = *p.Description
	}
	if p.Version != nil {
		e.meta.Version = *p.Version
	}
	if p.Author != nil {
		e.meta.Author = *p.Author
	}
	if p.Tags != nil {
		e.meta.Tags = slices.Clone(p.Tags)
	}
	if p.Department != nil {
		e.meta.Department = *p.Department
	}
	if p.ApprovalStatus != nil {
		e.meta.ApprovalStatus = *p.ApprovalStatus
	}
	e.touch()
	e.emit(Event{Kind: EventMetadata})
}

// SetValidation toggles realtime validation. Turning it on runs the full
// rule set once; turning it off clears the findings.
func (e *Editor) SetValidation(on bool) {
	e.validate = on
	if on {
		e.issues = e.Validate()
	} else {
		e.issues = nil
	}
}

// Subscribe registers fn to run after every state change. The returned
// func removes the subscription.
func (e *Editor) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	return func() { delete(e.listeners, id) }
}

// ── internals ───────────────────────────────────────────────────────

// commit records next as the new present. It returns false when next is
// structurally equal to the present document.
func (e *Editor) commit(op string, next Document) bool {
	if !e.history.Record(next) {
		return false
	}
	e.touch()
	e.refreshIssues()
	e.log.Debug("flowchart: document changed", "op", op,
		"nodes", len(next.Nodes), "edges", len(next.Edges), "undo", e.history.PastLen())
	e.emit(Event{Kind: EventDocument, Op: op})
	return true
}

func (e *Editor) touch() {
	e.meta.LastModified = e.now()
}

func (e *Editor) refreshIssues() {
	if !e.validate {
		e.issues = nil
		return
	}
	e.issues = ValidateRealtime(e.history.Present(), e.now())
}

func (e *Editor) dropStaleSelection() {
	doc := e.history.Present()
	changed := false
	if e.selectedNode != "" && !doc.HasNode(e.selectedNode) {
		e.selectedNode = ""
		changed = true
	}
	if e.selectedEdge != "" && doc.EdgeIndex(e.selectedEdge) < 0 {
		e.selectedEdge = ""
		changed = true
	}
	if changed {
		e.emit(Event{Kind: EventSelection})
	}
}

func (e *Editor) emit(ev Event) {
	for _, fn := range e.listeners {
		fn(ev)
	}
}
