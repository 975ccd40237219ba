package flowchart

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqIDs returns an id func yielding N2, N3, ...
func seqIDs() func() string {
	i := 1
	return func() string {
		i++
		return fmt.Sprintf("N%d", i)
	}
}

func seedN1() Document {
	d := SeedDocument()
	d.Nodes[0].ID = "N1"
	return d
}

func strPtr(s string) *string { return &s }

func TestNewEditorStartsFromSeed(t *testing.T) {
	e := NewEditor()

	nodes := e.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, SeedNodeID, nodes[0].ID)
	assert.Equal(t, ShapeStartEnd, nodes[0].Type)
	assert.Empty(t, e.Edges())
	assert.False(t, e.CanUndo())
	assert.False(t, e.CanRedo())
	assert.Equal(t, DefaultEdgeStyle, e.ActiveEdgeStyle())
	assert.Equal(t, "", e.SelectedNodeID())
}

func TestAddNodeReturnsDistinctIDs(t *testing.T) {
	e := NewEditor(WithHistoryLimit(5))

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := e.AddNode(Shapes[i%len(Shapes)], Position{X: float64(i)})
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, e.Nodes(), 501)
}

func TestAddNodeDefaults(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeDiamond, Position{X: 10, Y: 20})

	n, ok := e.Node(id)
	require.True(t, ok)
	assert.Equal(t, ShapeDiamond, n.Type)
	assert.Equal(t, Position{X: 10, Y: 20}, n.Position)
	assert.Equal(t, "Decision", n.Data.Label)
	assert.Empty(t, n.Data.Description)
	assert.Nil(t, n.Data.Attachment)
	require.NotNil(t, n.Data.Business)
	assert.Equal(t, PriorityMedium, n.Data.Business.Priority)
	assert.Equal(t, StatusDraft, n.Data.Business.Status)

	// unknown shapes never fail
	id = e.AddNode(Shape("hexagon"), Position{})
	n, _ = e.Node(id)
	assert.Equal(t, ShapeCustom, n.Type)
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	e := NewEditor(WithIDFunc(seqIDs()))
	a := e.AddNode(ShapeRectangle, Position{})
	b := e.AddNode(ShapeRectangle, Position{})

	_, ok := e.Connect(Connection{Source: SeedNodeID, Target: a})
	require.True(t, ok)
	_, ok = e.Connect(Connection{Source: a, Target: b})
	require.True(t, ok)
	_, ok = e.Connect(Connection{Source: b, Target: SeedNodeID})
	require.True(t, ok)
	before := e.Document()

	e.RemoveNode(a)

	for _, ed := range e.Edges() {
		assert.NotEqual(t, a, ed.Source)
		assert.NotEqual(t, a, ed.Target)
	}
	assert.Len(t, e.Edges(), 1)
	assert.Len(t, e.Nodes(), 2)

	// node and edges went away in one step
	e.Undo()
	assert.True(t, before.Equal(e.Document()))
}

func TestRemoveUnknownNodeIsNoOp(t *testing.T) {
	e := NewEditor()
	e.RemoveNode("nope")
	e.RemoveEdge("nope")
	assert.False(t, e.CanUndo())
}

func TestUndoRedoRestoresSnapshots(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeRectangle, Position{X: 1, Y: 2})
	pre := e.Document()

	e.UpdateNodeData(id, NodeDataPatch{Label: strPtr("Ship order"), Description: strPtr("pack and send")})
	post := e.Document()
	require.False(t, pre.Equal(post))

	e.Undo()
	assert.True(t, pre.Equal(e.Document()))
	e.Redo()
	assert.True(t, post.Equal(e.Document()))
}

func TestMutationAfterUndoClearsRedo(t *testing.T) {
	e := NewEditor()
	e.AddNode(ShapeRectangle, Position{})
	e.AddNode(ShapeRectangle, Position{})
	e.Undo()
	require.True(t, e.CanRedo())

	e.AddNode(ShapeDocument, Position{})
	assert.False(t, e.CanRedo())
	assert.Equal(t, 0, e.RedoDepth())
}

func TestHistoryIsBounded(t *testing.T) {
	const bound = 10
	e := NewEditor(WithHistoryLimit(bound))
	for i := 0; i < bound+5; i++ {
		e.AddNode(ShapeRectangle, Position{X: float64(i)})
	}
	assert.Equal(t, bound, e.UndoDepth())

	for e.CanUndo() {
		e.Undo()
	}
	// the five oldest steps were dropped
	assert.Len(t, e.Nodes(), 1+5)
}

func TestSelectionDoesNotTouchHistory(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeRectangle, Position{})
	depth := e.UndoDepth()

	e.SetSelectedNode(id)
	e.SetSelectedNode(SeedNodeID)
	e.SetSelectedNode("")
	e.SetSelectedNode(id)

	assert.Equal(t, depth, e.UndoDepth())
	assert.Equal(t, 0, e.RedoDepth())
	assert.Equal(t, id, e.SelectedNodeID())

	n, _ := e.Node(id)
	assert.True(t, n.Selected)
}

func TestScenarioSeedAddConnectUndo(t *testing.T) {
	e := NewEditor(WithSeed(seedN1()), WithIDFunc(seqIDs()))
	seed := e.Document()

	n2 := e.AddNode(ShapeRectangle, Position{X: 10, Y: 10})
	assert.Equal(t, "N2", n2)

	_, ok := e.Connect(Connection{Source: "N1", Target: n2})
	require.True(t, ok)
	edges := e.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "N1", edges[0].Source)
	assert.Equal(t, "N2", edges[0].Target)

	e.Undo()
	e.Undo()
	nodes := e.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "N1", nodes[0].ID)
	assert.Empty(t, e.Edges())
	assert.True(t, seed.Equal(e.Document()))
}

func TestConnect(t *testing.T) {
	e := NewEditor()
	a := e.AddNode(ShapeRectangle, Position{})

	t.Run("missing endpoint", func(t *testing.T) {
		depth := e.UndoDepth()
		_, ok := e.Connect(Connection{Source: a, Target: "ghost"})
		assert.False(t, ok)
		assert.Empty(t, e.Edges())
		assert.Equal(t, depth, e.UndoDepth())
	})

	t.Run("uses active style", func(t *testing.T) {
		e.SetActiveEdgeStyle(EdgeDashed)
		id, ok := e.Connect(Connection{Source: SeedNodeID, Target: a})
		require.True(t, ok)
		ed, _ := e.Edge(id)
		assert.Equal(t, EdgeDashed, ed.Type)
	})

	t.Run("duplicate ignored", func(t *testing.T) {
		_, ok := e.Connect(Connection{Source: SeedNodeID, Target: a})
		assert.False(t, ok)
		assert.Len(t, e.Edges(), 1)
	})

	t.Run("self loop allowed", func(t *testing.T) {
		_, ok := e.Connect(Connection{Source: a, Target: a})
		assert.True(t, ok)
		assert.Len(t, e.Edges(), 2)
	})
}

func TestSetActiveEdgeStyleIgnoresUnknown(t *testing.T) {
	e := NewEditor()
	e.SetActiveEdgeStyle(EdgeStyle("zigzag"))
	assert.Equal(t, DefaultEdgeStyle, e.ActiveEdgeStyle())
	assert.False(t, e.CanUndo())
}

func TestUpdateNodeData(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeRectangle, Position{})
	depth := e.UndoDepth()

	shape := ShapeDocument
	e.UpdateNodeData(id, NodeDataPatch{
		Description: strPtr("invoice"),
		Shape:       &shape,
		Attachment:  &Attachment{Filename: "invoice.pdf"},
	})
	n, _ := e.Node(id)
	assert.Equal(t, "Process", n.Data.Label, "unset fields are kept")
	assert.Equal(t, "invoice", n.Data.Description)
	assert.Equal(t, ShapeDocument, n.Type)
	require.NotNil(t, n.Data.Attachment)
	assert.Equal(t, "invoice.pdf", n.Data.Attachment.Filename)
	assert.Equal(t, depth+1, e.UndoDepth())

	e.UpdateNodeData(id, NodeDataPatch{ClearAttachment: true})
	n, _ = e.Node(id)
	assert.Nil(t, n.Data.Attachment)

	t.Run("unknown id", func(t *testing.T) {
		d := e.UndoDepth()
		e.UpdateNodeData("ghost", NodeDataPatch{Label: strPtr("x")})
		assert.Equal(t, d, e.UndoDepth())
	})

	t.Run("equal patch records nothing", func(t *testing.T) {
		d := e.UndoDepth()
		e.UpdateNodeData(id, NodeDataPatch{Description: strPtr("invoice")})
		assert.Equal(t, d, e.UndoDepth())
	})
}

func TestUpdateEdgeData(t *testing.T) {
	e := NewEditor()
	a := e.AddNode(ShapeDiamond, Position{})
	id, _ := e.Connect(Connection{Source: SeedNodeID, Target: a})

	p := 40.0
	e.UpdateEdgeData(id, EdgeDataPatch{Label: strPtr("yes"), Condition: strPtr("amount > 100"), Probability: &p})
	ed, _ := e.Edge(id)
	assert.Equal(t, "yes", ed.Data.Label)
	assert.Equal(t, "amount > 100", ed.Data.Condition)
	assert.Equal(t, 40.0, ed.Data.Probability)

	e.Undo()
	ed, _ = e.Edge(id)
	assert.Empty(t, ed.Data.Label)
}

func TestNodeDataFuncFollowsLiveDocument(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeRectangle, Position{})
	onChange := e.NodeDataFunc(id)

	onChange(NodeDataPatch{Label: strPtr("first")})
	e.Undo()
	e.UpdateNodeData(id, NodeDataPatch{Description: strPtr("kept")})

	onChange(NodeDataPatch{Label: strPtr("second")})
	n, _ := e.Node(id)
	assert.Equal(t, "second", n.Data.Label)
	assert.Equal(t, "kept", n.Data.Description)

	// removed node: the callback degrades to a no-op
	e.RemoveNode(id)
	depth := e.UndoDepth()
	onChange(NodeDataPatch{Label: strPtr("third")})
	assert.Equal(t, depth, e.UndoDepth())
}

func TestApplyNodeChangesOnEditor(t *testing.T) {
	e := NewEditor(WithIDFunc(seqIDs()))
	a := e.AddNode(ShapeRectangle, Position{X: 0, Y: 0})
	e.Connect(Connection{Source: SeedNodeID, Target: a})
	depth := e.UndoDepth()

	t.Run("select is ephemeral", func(t *testing.T) {
		e.ApplyNodeChanges([]NodeChange{{Type: ChangeSelect, ID: a, Selected: true}})
		assert.Equal(t, a, e.SelectedNodeID())
		assert.Equal(t, depth, e.UndoDepth())

		e.ApplyNodeChanges([]NodeChange{{Type: ChangeSelect, ID: a, Selected: false}})
		assert.Equal(t, "", e.SelectedNodeID())
	})

	t.Run("move records one step", func(t *testing.T) {
		e.ApplyNodeChanges([]NodeChange{
			{Type: ChangePosition, ID: a, Delta: &Position{X: 5, Y: 5}},
			{Type: ChangePosition, ID: a, Delta: &Position{X: 5, Y: -1}},
			{Type: ChangePosition, ID: "ghost", Delta: &Position{X: 1}},
		})
		n, _ := e.Node(a)
		assert.Equal(t, Position{X: 10, Y: 4}, n.Position)
		assert.Equal(t, depth+1, e.UndoDepth())
	})

	t.Run("remove cascades and clears selection", func(t *testing.T) {
		e.SetSelectedNode(a)
		e.ApplyNodeChanges([]NodeChange{{Type: ChangeRemove, ID: a}})
		assert.Empty(t, e.Edges())
		assert.Equal(t, "", e.SelectedNodeID())
	})
}

func TestApplyEdgeChangesRejectsDanglingAdds(t *testing.T) {
	e := NewEditor()
	e.ApplyEdgeChanges([]EdgeChange{{
		Type: ChangeAdd,
		Item: &Edge{ID: "e1", Source: SeedNodeID, Target: "ghost", Type: EdgeStep},
	}})
	assert.Empty(t, e.Edges())
	assert.False(t, e.CanUndo())
}

func TestUndoDropsStaleSelection(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeRectangle, Position{})
	e.SetSelectedNode(id)

	e.Undo()
	assert.Equal(t, "", e.SelectedNodeID())
}

func TestDrop(t *testing.T) {
	e := NewEditor()

	id, err := e.Drop(DropPayload{ShapeType: "parallelogram"}, Position{X: 3, Y: 4})
	require.NoError(t, err)
	n, ok := e.Node(id)
	require.True(t, ok)
	assert.Equal(t, ShapeParallelogram, n.Type)

	_, err = e.Drop(DropPayload{ShapeType: "hexagon"}, Position{})
	assert.ErrorIs(t, err, ErrUnknownShape)
}

func TestLoadDiscardsHistoryAndPrunes(t *testing.T) {
	e := NewEditor()
	e.AddNode(ShapeRectangle, Position{})
	e.SetSelectedNode(SeedNodeID)

	e.Load(Flowchart{
		Metadata: Metadata{ID: "fc-1", Title: "Invoices"},
		Nodes: []Node{
			{ID: "a", Type: ShapeStartEnd, Data: NodeData{Label: "Start"}},
			{ID: "b", Type: ShapeRectangle, Data: NodeData{Label: "Check"}},
		},
		Edges: []Edge{
			{ID: "ab", Source: "a", Target: "b", Type: EdgeBezier},
			{ID: "ax", Source: "a", Target: "x", Type: EdgeBezier},
		},
	})

	assert.False(t, e.CanUndo())
	assert.Len(t, e.Nodes(), 2)
	require.Len(t, e.Edges(), 1)
	assert.Equal(t, "ab", e.Edges()[0].ID)
	assert.Equal(t, "Invoices", e.Metadata().Title)
	assert.Equal(t, "", e.SelectedNodeID())
}

func TestReset(t *testing.T) {
	e := NewEditor()
	e.AddNode(ShapeRectangle, Position{})
	oldID := e.Metadata().ID

	e.Reset()
	assert.Empty(t, e.Nodes())
	assert.Empty(t, e.Edges())
	assert.False(t, e.CanUndo())
	assert.False(t, e.CanRedo())
	assert.NotEqual(t, oldID, e.Metadata().ID)
}

func TestMetadataIsNotUndoable(t *testing.T) {
	clock := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	e := NewEditor(WithClock(func() time.Time { return clock }))

	e.UpdateMetadata(MetadataPatch{Title: strPtr("Onboarding"), Tags: []string{"hr"}})
	assert.Equal(t, "Onboarding", e.Metadata().Title)
	assert.Equal(t, []string{"hr"}, e.Metadata().Tags)
	assert.False(t, e.CanUndo())

	clock = clock.Add(time.Minute)
	e.AddNode(ShapeRectangle, Position{})
	assert.Equal(t, clock, e.Metadata().LastModified)
}

func TestRealtimeValidation(t *testing.T) {
	e := NewEditor()
	id := e.AddNode(ShapeRectangle, Position{})
	e.UpdateNodeData(id, NodeDataPatch{Label: strPtr(" ")})

	errs, _ := Partition(e.Issues())
	require.Len(t, errs, 1)
	assert.Equal(t, id, errs[0].NodeID)

	e.SetValidation(false)
	assert.Empty(t, e.Issues())
	e.AddNode(ShapeRectangle, Position{})
	assert.Empty(t, e.Issues())
}

func TestSubscribe(t *testing.T) {
	e := NewEditor()
	var got []EventKind
	unsubscribe := e.Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	id := e.AddNode(ShapeRectangle, Position{})
	e.SetSelectedNode(id)
	e.Undo()
	e.Undo() // no-op, no event

	assert.Equal(t, []EventKind{EventDocument, EventSelection, EventSelection, EventHistory}, got)

	unsubscribe()
	e.Redo()
	assert.Len(t, got, 4)
}

func TestReadAccessorsReturnCopies(t *testing.T) {
	e := NewEditor()
	e.UpdateNodeData(SeedNodeID, NodeDataPatch{
		Attachment: &Attachment{Filename: "a.txt", Data: []byte("abc")},
	})

	nodes := e.Nodes()
	nodes[0].Data.Label = "mutated"
	nodes[0].Data.Business.Owner = "bob"
	nodes[0].Data.Attachment.Data[0] = 'X'

	n, _ := e.Node(SeedNodeID)
	assert.Equal(t, "Start", n.Data.Label)
	assert.Empty(t, n.Data.Business.Owner)
	assert.Equal(t, []byte("abc"), n.Data.Attachment.Data)

	n.Data.Business.Owner = "carol"
	f := e.Flowchart()
	f.Nodes[0].Data.Business.Owner = "dave"

	e.Undo()
	seed, _ := e.Node(SeedNodeID)
	assert.Empty(t, seed.Data.Business.Owner)
	assert.Nil(t, seed.Data.Attachment)
}

func TestPatchIsCopiedIntoHistory(t *testing.T) {
	e := NewEditor()
	tags := []string{"finance"}
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	est := 30.0
	patch := NodeDataPatch{Business: &BusinessAttributes{Tags: tags, DueDate: &due, EstimatedMinutes: &est}}
	e.UpdateNodeData(SeedNodeID, patch)

	tags[0] = "changed"
	due = due.AddDate(-10, 0, 0)
	est = -1
	patch.Business.Owner = "bob"

	n, _ := e.Node(SeedNodeID)
	assert.Equal(t, []string{"finance"}, n.Data.Business.Tags)
	assert.Equal(t, 2030, n.Data.Business.DueDate.Year())
	assert.Equal(t, 30.0, *n.Data.Business.EstimatedMinutes)
	assert.Empty(t, n.Data.Business.Owner)
}

func TestLoadKeepsFirstOfDuplicateIDs(t *testing.T) {
	e := NewEditor()
	e.Load(Flowchart{
		Nodes: []Node{
			{ID: "a", Type: ShapeStartEnd, Data: NodeData{Label: "first"}},
			{ID: "a", Type: ShapeRectangle, Data: NodeData{Label: "second"}},
			{ID: "", Type: ShapeRectangle},
			{ID: "b", Type: ShapeRectangle},
		},
		Edges: []Edge{
			{ID: "e", Source: "a", Target: "b", Type: EdgeStep},
			{ID: "e", Source: "b", Target: "a", Type: EdgeStep},
		},
	})

	nodes := e.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "first", nodes[0].Data.Label)
	assert.Equal(t, "b", nodes[1].ID)
	edges := e.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source)

	e.RemoveNode("a")
	assert.Len(t, e.Nodes(), 1)
	assert.Empty(t, e.Edges())
}
