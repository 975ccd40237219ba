// Package storetest holds the behaviour every flowchart.Store must share.
// Store packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart"
)

// Run exercises s against the flowchart.Store contract. It drops and
// recreates the schema first.
func Run(t *testing.T, s flowchart.Store) {
	ctx := context.Background()
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx), "schema creation is idempotent")

	t.Run("missing flowchart", func(t *testing.T) {
		got, err := s.GetFlowchart(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, s.DeleteFlowchart(ctx, "nope"))

		list, err := s.ListFlowcharts(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("round trip", func(t *testing.T) {
		want := sample(time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC))
		require.NoError(t, s.SaveFlowchart(ctx, &want))

		got, err := s.GetFlowchart(ctx, want.Metadata.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.True(t, want.Document().Equal(got.Document()), "document differs:\nwant %+v\ngot  %+v", want.Document(), got.Document())
		assertMetadata(t, want.Metadata, got.Metadata)
	})

	t.Run("replace semantics", func(t *testing.T) {
		f := sample(time.Date(2025, 6, 8, 11, 0, 0, 0, time.UTC))
		f.Metadata.ID = "replace-me"
		require.NoError(t, s.SaveFlowchart(ctx, &f))

		e := flowchart.NewEditor(flowchart.WithValidation(false))
		e.Load(f)
		e.RemoveNode(f.Nodes[1].ID)
		e.UpdateMetadata(flowchart.MetadataPatch{Title: ptr("Shorter")})
		next := e.Flowchart()
		require.NoError(t, s.SaveFlowchart(ctx, &next))

		got, err := s.GetFlowchart(ctx, "replace-me")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Nodes, len(f.Nodes)-1)
		assert.Empty(t, got.Edges)
		assert.Equal(t, "Shorter", got.Metadata.Title)
	})

	t.Run("generated id", func(t *testing.T) {
		f := flowchart.Flowchart{Metadata: flowchart.Metadata{Title: "anonymous", LastModified: time.Now()}}
		require.NoError(t, s.SaveFlowchart(ctx, &f))
		assert.NotEmpty(t, f.Metadata.ID)

		got, err := s.GetFlowchart(ctx, f.Metadata.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Nodes)
		assert.NotNil(t, got.Nodes)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, s.DropSchema(ctx))
		require.NoError(t, s.CreateSchema(ctx))

		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for _, c := range []struct {
			id  string
			age time.Duration
		}{{"old", 0}, {"newest", 2 * time.Hour}, {"middle", time.Hour}} {
			f := flowchart.Flowchart{Metadata: flowchart.Metadata{ID: c.id, Title: c.id, LastModified: base.Add(c.age)}}
			require.NoError(t, s.SaveFlowchart(ctx, &f))
		}

		list, err := s.ListFlowcharts(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, m := range list {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []string{"newest", "middle", "old"}, ids)

		require.NoError(t, s.DeleteFlowchart(ctx, "middle"))
		got, err := s.GetFlowchart(ctx, "middle")
		require.NoError(t, err)
		assert.Nil(t, got)

		list, err = s.ListFlowcharts(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func assertMetadata(t *testing.T, want, got flowchart.Metadata) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Author, got.Author)
	assert.Equal(t, want.Tags, got.Tags)
	assert.Equal(t, want.Department, got.Department)
	assert.Equal(t, want.ApprovalStatus, got.ApprovalStatus)
	assert.True(t, want.LastModified.Equal(got.LastModified), "last modified: want %s got %s", want.LastModified, got.LastModified)
}

func ptr[T any](v T) *T { return &v }

// sample builds a flowchart through the editor so it has the shape real
// sessions produce.
func sample(now time.Time) flowchart.Flowchart {
	ids := []string{"fc-invoice", "check", "decide", "e1", "e2"}
	next := 0
	e := flowchart.NewEditor(
		flowchart.WithClock(func() time.Time { return now }),
		flowchart.WithIDFunc(func() string {
			id := ids[next%len(ids)]
			next++
			return id
		}),
	)
	check := e.AddNode(flowchart.ShapeRectangle, flowchart.Position{X: 100, Y: 200.5})
	decide := e.AddNode(flowchart.ShapeDiamond, flowchart.Position{X: 100, Y: 320})

	due := now.Add(72 * time.Hour)
	e.UpdateNodeData(check, flowchart.NodeDataPatch{
		Label:       ptr("Check invoice"),
		Description: ptr("Compare against the purchase order"),
		Attachment:  &flowchart.Attachment{Filename: "po.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
		Business: &flowchart.BusinessAttributes{
			Owner:            "accounting",
			Department:       "finance",
			EstimatedMinutes: ptr(15.0),
			Priority:         flowchart.PriorityHigh,
			Status:           flowchart.StatusInProgress,
			DueDate:          &due,
			Tags:             []string{"ap", "monthly"},
		},
	})
	e.ApplyNodeChanges([]flowchart.NodeChange{{
		Type:       flowchart.ChangeDimensions,
		ID:         decide,
		Dimensions: &flowchart.Dimensions{Width: 120, Height: 80},
	}})

	e.Connect(flowchart.Connection{Source: flowchart.SeedNodeID, Target: check})
	e.SetActiveEdgeStyle(flowchart.EdgeDashed)
	edge, _ := e.Connect(flowchart.Connection{Source: check, Target: decide, SourceHandle: "bottom"})
	e.UpdateEdgeData(edge, flowchart.EdgeDataPatch{Label: ptr("ok"), Probability: ptr(90.0)})

	e.UpdateMetadata(flowchart.MetadataPatch{
		Title:      ptr("Invoice approval"),
		Tags:       []string{"finance"},
		Department: ptr("finance"),
	})
	return e.Flowchart()
}
