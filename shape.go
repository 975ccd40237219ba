package flowchart

import "fmt"

// Shape is the closed set of node kinds a flowchart can contain.
type Shape string

const (
	ShapeRectangle         Shape = "rectangle"
	ShapeDiamond           Shape = "diamond"
	ShapeParallelogram     Shape = "parallelogram"
	ShapeStartEnd          Shape = "startEnd"
	ShapePredefinedProcess Shape = "predefinedProcess"
	ShapeDocument          Shape = "document"
	ShapeCustom            Shape = "custom"
)

// Shapes lists every shape in palette order.
var Shapes = []Shape{
	ShapeRectangle,
	ShapeDiamond,
	ShapeParallelogram,
	ShapeStartEnd,
	ShapePredefinedProcess,
	ShapeDocument,
	ShapeCustom,
}

// ParseShape converts a string tag into a Shape.
func ParseShape(s string) (Shape, error) {
	sh := Shape(s)
	if !sh.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownShape, s)
	}
	return sh, nil
}

// Valid reports whether s is one of the known shapes.
func (s Shape) Valid() bool {
	return s.DefaultLabel() != ""
}

// DefaultLabel is the label given to freshly created nodes of this shape.
// It returns "" for unknown shapes.
func (s Shape) DefaultLabel() string {
	switch s {
	case ShapeRectangle:
		return "Process"
	case ShapeDiamond:
		return "Decision"
	case ShapeParallelogram:
		return "Data"
	case ShapeStartEnd:
		return "Start / End"
	case ShapePredefinedProcess:
		return "Predefined Process"
	case ShapeDocument:
		return "Document"
	case ShapeCustom:
		return "Custom"
	}
	return ""
}

// EdgeStyle is the visual routing of an edge.
type EdgeStyle string

const (
	EdgeStraight   EdgeStyle = "straight"
	EdgeStep       EdgeStyle = "step"
	EdgeSmoothStep EdgeStyle = "smoothstep"
	EdgeBezier     EdgeStyle = "bezier"
	EdgeDashed     EdgeStyle = "dashed"
)

// DefaultEdgeStyle is the active style of a new editor.
const DefaultEdgeStyle = EdgeStep

// ParseEdgeStyle converts a string tag into an EdgeStyle.
func ParseEdgeStyle(s string) (EdgeStyle, error) {
	st := EdgeStyle(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEdgeStyle, s)
	}
	return st, nil
}

// Valid reports whether s is one of the known edge styles.
func (s EdgeStyle) Valid() bool {
	switch s {
	case EdgeStraight, EdgeStep, EdgeSmoothStep, EdgeBezier, EdgeDashed:
		return true
	}
	return false
}
