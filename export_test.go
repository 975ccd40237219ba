package flowchart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDropPayload(t *testing.T) {
	p, err := ParseDropPayload([]byte(`{"shapeType":"diamond"}`))
	require.NoError(t, err)
	assert.Equal(t, "diamond", p.ShapeType)

	p, err = ParseDropPayload([]byte(" startEnd\n"))
	require.NoError(t, err)
	assert.Equal(t, "startEnd", p.ShapeType)

	_, err = ParseDropPayload([]byte(`{"shapeType":"hexagon"}`))
	assert.ErrorIs(t, err, ErrUnknownShape)

	_, err = ParseDropPayload([]byte(`{"shapeType":`))
	assert.Error(t, err)
}

func TestEncodeDecodeFlowchart(t *testing.T) {
	e := NewEditor(WithClock(func() time.Time {
		return time.Date(2025, 6, 8, 9, 30, 0, 0, time.UTC)
	}))
	id := e.AddNode(ShapeDocument, Position{X: 12.5, Y: -4})
	e.UpdateNodeData(id, NodeDataPatch{
		Attachment: &Attachment{Filename: "scan.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})
	e.Connect(Connection{Source: SeedNodeID, Target: id})
	want := e.Flowchart()

	raw, err := EncodeFlowchart(want)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type": "document"`)

	got, err := DecodeFlowchart(raw)
	require.NoError(t, err)
	assert.True(t, want.Document().Equal(got.Document()))
	assert.Equal(t, want.Metadata.ID, got.Metadata.ID)
	assert.True(t, want.Metadata.LastModified.Equal(got.Metadata.LastModified))
}

func TestDecodeFlowchartRejectsUnknownTags(t *testing.T) {
	_, err := DecodeFlowchart([]byte(`{"nodes":[{"id":"a","type":"hexagon"}],"edges":[]}`))
	assert.ErrorIs(t, err, ErrUnknownShape)

	_, err = DecodeFlowchart([]byte(`{"nodes":[],"edges":[{"id":"e","source":"a","target":"b","type":"zigzag"}]}`))
	assert.ErrorIs(t, err, ErrUnknownEdgeStyle)
}

func TestDecodeFlowchartRejectsDuplicateIDs(t *testing.T) {
	_, err := DecodeFlowchart([]byte(`{"nodes":[{"id":"a","type":"rectangle"},{"id":"a","type":"diamond"}],"edges":[]}`))
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = DecodeFlowchart([]byte(`{"nodes":[{"id":"a","type":"rectangle"},{"id":"b","type":"rectangle"}],
		"edges":[{"id":"e","source":"a","target":"b","type":"step"},{"id":"e","source":"b","target":"a","type":"step"}]}`))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestEncodeEmptyFlowchartUsesArrays(t *testing.T) {
	raw, err := EncodeFlowchart(Flowchart{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"nodes": []`)
	assert.Contains(t, string(raw), `"edges": []`)
}
