package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/goccy/go-json"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/config"
	"github.com/meikuraledutech/flowchart/sqlite"
)

func main() {
	ctx := context.Background()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer store.Close()

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Build a flowchart in an editor session ────────────────────────
	e := flowchart.NewEditor(flowchart.WithLogger(config.NewLogger("debug", "text", os.Stderr)))
	e.Subscribe(func(ev flowchart.Event) {
		fmt.Printf("  event: %s %s\n", ev.Kind, ev.Op)
	})

	review := e.AddNode(flowchart.ShapeRectangle, flowchart.Position{X: 250, Y: 150})
	e.NodeDataFunc(review)(flowchart.NodeDataPatch{Label: ptr("Review request")})

	decide, err := e.Drop(flowchart.DropPayload{ShapeType: "diamond"}, flowchart.Position{X: 250, Y: 250})
	if err != nil {
		log.Fatalf("drop: %v", err)
	}
	done := e.AddNode(flowchart.ShapeStartEnd, flowchart.Position{X: 250, Y: 350})
	e.UpdateNodeData(done, flowchart.NodeDataPatch{Label: ptr("End")})

	e.Connect(flowchart.Connection{Source: flowchart.SeedNodeID, Target: review})
	e.Connect(flowchart.Connection{Source: review, Target: decide})
	e.SetActiveEdgeStyle(flowchart.EdgeDashed)
	yes, _ := e.Connect(flowchart.Connection{Source: decide, Target: done})
	e.UpdateEdgeData(yes, flowchart.EdgeDataPatch{Label: ptr("approved")})
	e.UpdateMetadata(flowchart.MetadataPatch{Title: ptr("Request approval")})

	fmt.Printf("\nnodes=%d edges=%d undo=%d\n", len(e.Nodes()), len(e.Edges()), e.UndoDepth())

	// ── Undo / redo ───────────────────────────────────────────────────
	e.RemoveNode(decide)
	fmt.Printf("removed decision: nodes=%d edges=%d\n", len(e.Nodes()), len(e.Edges()))
	e.Undo()
	fmt.Printf("undo: nodes=%d edges=%d redo=%d\n", len(e.Nodes()), len(e.Edges()), e.RedoDepth())

	// ── Validation and statistics ─────────────────────────────────────
	errs, warnings := flowchart.Partition(e.Validate())
	fmt.Printf("\nvalidation: %d errors, %d warnings\n", len(errs), len(warnings))
	for _, is := range append(errs, warnings...) {
		fmt.Printf("  %s %s: %s\n", is.Severity, is.Code, is.Message)
	}
	fmt.Println("\nstatistics:")
	printJSON(e.Statistics())

	// ── Save and reload ───────────────────────────────────────────────
	f := e.Flowchart()
	if err := store.SaveFlowchart(ctx, &f); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("\nsaved %s\n", f.Metadata.ID)

	loaded, err := store.GetFlowchart(ctx, f.Metadata.ID)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	reopened := flowchart.NewEditor()
	reopened.Load(*loaded)
	fmt.Printf("reloaded %q: nodes=%d edges=%d undo=%d\n",
		reopened.Metadata().Title, len(reopened.Nodes()), len(reopened.Edges()), reopened.UndoDepth())

	// ── Export ────────────────────────────────────────────────────────
	out, err := flowchart.EncodeFlowchart(reopened.Flowchart())
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Println("\nexport:")
	fmt.Println(string(out))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteFlowchart(ctx, f.Metadata.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nflowchart deleted")
}

func ptr[T any](v T) *T { return &v }

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
