// Package api exposes editing sessions and stored flowcharts over HTTP.
package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/session"
)

var (
	errNodeNotFound = errors.New("node not found")
	errEdgeNotFound = errors.New("edge not found")
	errInvalidBody  = errors.New("invalid body")
)

// NewApp returns a fiber app that encodes and decodes JSON with goccy/go-json.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:     "flowchart",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
}

type handler struct {
	sessions *session.Manager
	store    flowchart.Store
	log      *slog.Logger
}

// SessionView is the state of a session as clients see it.
type SessionView struct {
	ID             string              `json:"id"`
	Metadata       flowchart.Metadata  `json:"metadata"`
	Nodes          []flowchart.Node    `json:"nodes"`
	Edges          []flowchart.Edge    `json:"edges"`
	SelectedNodeID string              `json:"selected_node_id,omitempty"`
	SelectedEdgeID string              `json:"selected_edge_id,omitempty"`
	EdgeStyle      flowchart.EdgeStyle `json:"edge_style"`
	CanUndo        bool                `json:"can_undo"`
	CanRedo        bool                `json:"can_redo"`
	Issues         []flowchart.Issue   `json:"issues"`
}

func viewOf(id string, e *flowchart.Editor) SessionView {
	issues := e.Issues()
	if issues == nil {
		issues = []flowchart.Issue{}
	}
	return SessionView{
		ID:             id,
		Metadata:       e.Metadata(),
		Nodes:          e.Nodes(),
		Edges:          e.Edges(),
		SelectedNodeID: e.SelectedNodeID(),
		SelectedEdgeID: e.SelectedEdgeID(),
		EdgeStyle:      e.ActiveEdgeStyle(),
		CanUndo:        e.CanUndo(),
		CanRedo:        e.CanRedo(),
		Issues:         issues,
	}
}

// Register mounts every route on r.
func Register(r fiber.Router, sessions *session.Manager, store flowchart.Store, log *slog.Logger) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	h := &handler{sessions: sessions, store: store, log: log}

	// ── Schema ────────────────────────────────────────────────────────
	r.Post("/schema", h.createSchema)
	r.Delete("/schema", h.dropSchema)

	// ── Sessions ──────────────────────────────────────────────────────
	r.Post("/sessions", h.createSession)
	r.Get("/sessions", h.listSessions)
	r.Get("/sessions/:id", h.getSession)
	r.Delete("/sessions/:id", h.closeSession)

	r.Post("/sessions/:id/nodes", h.addNode)
	r.Patch("/sessions/:id/nodes/:nodeId", h.updateNode)
	r.Delete("/sessions/:id/nodes/:nodeId", h.removeNode)
	r.Post("/sessions/:id/node-changes", h.nodeChanges)

	r.Post("/sessions/:id/connections", h.connect)
	r.Patch("/sessions/:id/edges/:edgeId", h.updateEdge)
	r.Delete("/sessions/:id/edges/:edgeId", h.removeEdge)
	r.Post("/sessions/:id/edge-changes", h.edgeChanges)

	r.Put("/sessions/:id/selection", h.setSelection)
	r.Put("/sessions/:id/edge-style", h.setEdgeStyle)
	r.Post("/sessions/:id/undo", h.travel((*flowchart.Editor).Undo))
	r.Post("/sessions/:id/redo", h.travel((*flowchart.Editor).Redo))
	r.Post("/sessions/:id/reset", h.travel((*flowchart.Editor).Reset))
	r.Patch("/sessions/:id/metadata", h.updateMetadata)

	r.Get("/sessions/:id/validation", h.validation)
	r.Get("/sessions/:id/statistics", h.statistics)
	r.Get("/sessions/:id/export", h.export)
	r.Post("/sessions/:id/save", h.save)

	// ── Stored flowcharts ─────────────────────────────────────────────
	r.Get("/flowcharts", h.listFlowcharts)
	r.Post("/flowcharts", h.importFlowchart)
	r.Get("/flowcharts/:id", h.getFlowchart)
	r.Delete("/flowcharts/:id", h.deleteFlowchart)
}

// fail maps err to a status code and JSON error body.
func (h *handler) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "session not found"})
	case errors.Is(err, flowchart.ErrFlowchartNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "flowchart not found"})
	case errors.Is(err, errNodeNotFound), errors.Is(err, errEdgeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errInvalidBody),
		errors.Is(err, flowchart.ErrUnknownShape),
		errors.Is(err, flowchart.ErrUnknownEdgeStyle),
		errors.Is(err, flowchart.ErrDuplicateID):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}

// bind decodes the JSON body into v.
func bind(c fiber.Ctx, v any) error {
	if err := c.Bind().JSON(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// edit runs fn on the session named by :id and responds with the
// resulting session state.
func (h *handler) edit(c fiber.Ctx, fn func(*flowchart.Editor) error) error {
	id := c.Params("id")
	var view SessionView
	err := h.sessions.With(id, func(e *flowchart.Editor) error {
		if err := fn(e); err != nil {
			return err
		}
		view = viewOf(id, e)
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *handler) createSchema(c fiber.Ctx) error {
	if err := h.store.CreateSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (h *handler) dropSchema(c fiber.Ctx) error {
	if err := h.store.DropSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

type createSessionRequest struct {
	FlowchartID string `json:"flowchartId"`
}

func (h *handler) createSession(c fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return h.fail(c, err)
		}
	}

	var stored *flowchart.Flowchart
	if req.FlowchartID != "" {
		f, err := h.store.GetFlowchart(c.Context(), req.FlowchartID)
		if err != nil {
			return h.fail(c, err)
		}
		if f == nil {
			return h.fail(c, flowchart.ErrFlowchartNotFound)
		}
		stored = f
	}

	id := h.sessions.Create()
	var view SessionView
	err := h.sessions.With(id, func(e *flowchart.Editor) error {
		if stored != nil {
			e.Load(*stored)
		}
		view = viewOf(id, e)
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(201).JSON(view)
}

func (h *handler) listSessions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": h.sessions.IDs()})
}

func (h *handler) getSession(c fiber.Ctx) error {
	return h.edit(c, func(*flowchart.Editor) error { return nil })
}

func (h *handler) closeSession(c fiber.Ctx) error {
	if err := h.sessions.Close(c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

// ── Nodes ─────────────────────────────────────────────────────────────

type addNodeRequest struct {
	flowchart.DropPayload
	Position flowchart.Position `json:"position"`
}

// addNode accepts either a JSON body with shapeType and position, or raw
// palette drag data sent as DropMIMEType with the position in ?x=&y=.
func (h *handler) addNode(c fiber.Ctx) error {
	var req addNodeRequest
	if c.Get(fiber.HeaderContentType) == flowchart.DropMIMEType {
		p, err := flowchart.ParseDropPayload(c.Body())
		if err != nil {
			return h.fail(c, err)
		}
		req.DropPayload = p
		req.Position.X = fiber.Query[float64](c, "x")
		req.Position.Y = fiber.Query[float64](c, "y")
	} else if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	var nodeID string
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		var err error
		nodeID, err = e.Drop(req.DropPayload, req.Position)
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": nodeID})
}

func (h *handler) updateNode(c fiber.Ctx) error {
	var patch flowchart.NodeDataPatch
	if err := bind(c, &patch); err != nil {
		return h.fail(c, err)
	}
	if patch.Shape != nil && !patch.Shape.Valid() {
		return h.fail(c, fmt.Errorf("%w: %q", flowchart.ErrUnknownShape, *patch.Shape))
	}
	nodeID := c.Params("nodeId")
	return h.edit(c, func(e *flowchart.Editor) error {
		if _, ok := e.Node(nodeID); !ok {
			return errNodeNotFound
		}
		e.NodeDataFunc(nodeID)(patch)
		return nil
	})
}

func (h *handler) removeNode(c fiber.Ctx) error {
	nodeID := c.Params("nodeId")
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		e.RemoveNode(nodeID)
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *handler) nodeChanges(c fiber.Ctx) error {
	var changes []flowchart.NodeChange
	if err := bind(c, &changes); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(e *flowchart.Editor) error {
		e.ApplyNodeChanges(changes)
		return nil
	})
}

// ── Edges ─────────────────────────────────────────────────────────────

func (h *handler) connect(c fiber.Ctx) error {
	var conn flowchart.Connection
	if err := bind(c, &conn); err != nil {
		return h.fail(c, err)
	}
	var (
		edgeID string
		ok     bool
	)
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		edgeID, ok = e.Connect(conn)
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.Status(422).JSON(fiber.Map{"error": "missing endpoint or duplicate connection"})
	}
	return c.Status(201).JSON(fiber.Map{"id": edgeID})
}

func (h *handler) updateEdge(c fiber.Ctx) error {
	var patch flowchart.EdgeDataPatch
	if err := bind(c, &patch); err != nil {
		return h.fail(c, err)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return h.fail(c, fmt.Errorf("%w: %q", flowchart.ErrUnknownEdgeStyle, *patch.Type))
	}
	edgeID := c.Params("edgeId")
	return h.edit(c, func(e *flowchart.Editor) error {
		if _, ok := e.Edge(edgeID); !ok {
			return errEdgeNotFound
		}
		e.UpdateEdgeData(edgeID, patch)
		return nil
	})
}

func (h *handler) removeEdge(c fiber.Ctx) error {
	edgeID := c.Params("edgeId")
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		e.RemoveEdge(edgeID)
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *handler) edgeChanges(c fiber.Ctx) error {
	var changes []flowchart.EdgeChange
	if err := bind(c, &changes); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(e *flowchart.Editor) error {
		e.ApplyEdgeChanges(changes)
		return nil
	})
}

// ── Ephemeral state and history ───────────────────────────────────────

type selectionRequest struct {
	NodeID string `json:"node_id"`
}

func (h *handler) setSelection(c fiber.Ctx) error {
	var req selectionRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(e *flowchart.Editor) error {
		if req.NodeID != "" {
			if _, ok := e.Node(req.NodeID); !ok {
				return errNodeNotFound
			}
		}
		e.SetSelectedNode(req.NodeID)
		return nil
	})
}

type edgeStyleRequest struct {
	Style string `json:"style"`
}

func (h *handler) setEdgeStyle(c fiber.Ctx) error {
	var req edgeStyleRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	style, err := flowchart.ParseEdgeStyle(req.Style)
	if err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(e *flowchart.Editor) error {
		e.SetActiveEdgeStyle(style)
		return nil
	})
}

func (h *handler) travel(op func(*flowchart.Editor)) fiber.Handler {
	return func(c fiber.Ctx) error {
		return h.edit(c, func(e *flowchart.Editor) error {
			op(e)
			return nil
		})
	}
}

func (h *handler) updateMetadata(c fiber.Ctx) error {
	var patch flowchart.MetadataPatch
	if err := bind(c, &patch); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(e *flowchart.Editor) error {
		e.UpdateMetadata(patch)
		return nil
	})
}

// ── Reports ───────────────────────────────────────────────────────────

func (h *handler) validation(c fiber.Ctx) error {
	var issues []flowchart.Issue
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		issues = e.Validate()
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	errs, warnings := flowchart.Partition(issues)
	return c.JSON(fiber.Map{
		"valid":    len(errs) == 0,
		"errors":   nonNil(errs),
		"warnings": nonNil(warnings),
	})
}

func nonNil(issues []flowchart.Issue) []flowchart.Issue {
	if issues == nil {
		return []flowchart.Issue{}
	}
	return issues
}

func (h *handler) statistics(c fiber.Ctx) error {
	var st flowchart.Statistics
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		st = e.Statistics()
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *handler) snapshot(c fiber.Ctx) (flowchart.Flowchart, error) {
	var f flowchart.Flowchart
	err := h.sessions.With(c.Params("id"), func(e *flowchart.Editor) error {
		f = e.Flowchart()
		return nil
	})
	return f, err
}

func (h *handler) export(c fiber.Ctx) error {
	f, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, err)
	}
	raw, err := flowchart.EncodeFlowchart(f)
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="flowchart-%s.json"`, f.Metadata.ID))
	return c.Send(raw)
}

func (h *handler) save(c fiber.Ctx) error {
	f, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.store.SaveFlowchart(c.Context(), &f); err != nil {
		return h.fail(c, err)
	}
	h.log.Info("flowchart saved", "session", c.Params("id"), "flowchart", f.Metadata.ID,
		"nodes", len(f.Nodes), "edges", len(f.Edges))
	return c.JSON(fiber.Map{"id": f.Metadata.ID})
}

// ── Stored flowcharts ─────────────────────────────────────────────────

func (h *handler) listFlowcharts(c fiber.Ctx) error {
	list, err := h.store.ListFlowcharts(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// importFlowchart stores a document produced by the export route.
func (h *handler) importFlowchart(c fiber.Ctx) error {
	f, err := flowchart.DecodeFlowchart(c.Body())
	if err != nil {
		if !errors.Is(err, flowchart.ErrUnknownShape) && !errors.Is(err, flowchart.ErrUnknownEdgeStyle) &&
			!errors.Is(err, flowchart.ErrDuplicateID) {
			err = fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return h.fail(c, err)
	}
	if err := h.store.SaveFlowchart(c.Context(), &f); err != nil {
		return h.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": f.Metadata.ID})
}

func (h *handler) getFlowchart(c fiber.Ctx) error {
	f, err := h.store.GetFlowchart(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if f == nil {
		return h.fail(c, flowchart.ErrFlowchartNotFound)
	}
	return c.JSON(f)
}

func (h *handler) deleteFlowchart(c fiber.Ctx) error {
	if err := h.store.DeleteFlowchart(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}
