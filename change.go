package flowchart

// ChangeType names the kind of an incremental change directive.
type ChangeType string

const (
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeAdd        ChangeType = "add"
	ChangeReplace    ChangeType = "replace"
)

// Dimensions is the measured size of a rendered node.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeChange is one directive of a node change-set.
//
// Position sets an absolute position, Delta moves by an offset; both may be
// given and are applied in that order. Item carries the node for add and
// replace directives.
type NodeChange struct {
	Type       ChangeType  `json:"type"`
	ID         string      `json:"id"`
	Position   *Position   `json:"position,omitempty"`
	Delta      *Position   `json:"delta,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Selected   bool        `json:"selected,omitempty"`
	Item       *Node       `json:"item,omitempty"`
}

// EdgeChange is one directive of an edge change-set.
type EdgeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id"`
	Selected bool       `json:"selected,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
}

// ApplyNodeChanges applies the directives in order and returns a new slice.
// The input slice is never modified. Directives that address unknown ids are
// skipped, as are adds whose id is empty or already taken. Added and
// replacing nodes are deep-copied.
func ApplyNodeChanges(changes []NodeChange, nodes []Node) []Node {
	out := make([]Node, len(nodes), len(nodes)+len(changes))
	copy(out, nodes)

	index := make(map[string]int, len(out))
	for i, n := range out {
		index[n.ID] = i
	}
	removed := make(map[int]bool)

	for _, c := range changes {
		if c.Type == ChangeAdd {
			if c.Item == nil || c.Item.ID == "" {
				continue
			}
			if _, taken := index[c.Item.ID]; taken {
				continue
			}
			index[c.Item.ID] = len(out)
			out = append(out, c.Item.clone())
			continue
		}

		i, ok := index[c.ID]
		if !ok {
			continue
		}
		n := &out[i]

		switch c.Type {
		case ChangePosition:
			if c.Position != nil {
				n.Position = *c.Position
			}
			if c.Delta != nil {
				n.Position.X += c.Delta.X
				n.Position.Y += c.Delta.Y
			}
		case ChangeDimensions:
			if c.Dimensions != nil {
				n.Width = c.Dimensions.Width
				n.Height = c.Dimensions.Height
			}
		case ChangeSelect:
			n.Selected = c.Selected
		case ChangeReplace:
			if c.Item != nil {
				*n = c.Item.clone()
				n.ID = c.ID
			}
		case ChangeRemove:
			removed[i] = true
			delete(index, c.ID)
		}
	}

	if len(removed) == 0 {
		return out
	}
	kept := out[:0]
	for i, n := range out {
		if !removed[i] {
			kept = append(kept, n)
		}
	}
	return kept
}

// ApplyEdgeChanges is the edge counterpart of ApplyNodeChanges.
func ApplyEdgeChanges(changes []EdgeChange, edges []Edge) []Edge {
	out := make([]Edge, len(edges), len(edges)+len(changes))
	copy(out, edges)

	index := make(map[string]int, len(out))
	for i, e := range out {
		index[e.ID] = i
	}
	removed := make(map[int]bool)

	for _, c := range changes {
		if c.Type == ChangeAdd {
			if c.Item == nil || c.Item.ID == "" {
				continue
			}
			if _, taken := index[c.Item.ID]; taken {
				continue
			}
			index[c.Item.ID] = len(out)
			out = append(out, *c.Item)
			continue
		}

		i, ok := index[c.ID]
		if !ok {
			continue
		}

		switch c.Type {
		case ChangeSelect:
			out[i].Selected = c.Selected
		case ChangeReplace:
			if c.Item != nil {
				out[i] = *c.Item
				out[i].ID = c.ID
			}
		case ChangeRemove:
			removed[i] = true
			delete(index, c.ID)
		}
	}

	if len(removed) == 0 {
		return out
	}
	kept := out[:0]
	for i, e := range out {
		if !removed[i] {
			kept = append(kept, e)
		}
	}
	return kept
}

// pruneEdges drops every edge whose source or target is not among nodes.
func pruneEdges(nodes []Node, edges []Edge) []Edge {
	live := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		live[n.ID] = struct{}{}
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		_, okS := live[e.Source]
		_, okT := live[e.Target]
		if okS && okT {
			out = append(out, e)
		}
	}
	return out
}
