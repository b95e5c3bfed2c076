package board

import (
	"math"

	"github.com/matzehuels/kitchenboard/pkg/drag"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/layout"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// SceneNode is a visible node and where to draw it.
type SceneNode struct {
	Node       kitchen.Node
	Projection layout.Projection
	Dragging   bool
	Settling   bool
	Pending    bool
}

// SceneEdge is a visible edge and its geometry.
type SceneEdge struct {
	Edge kitchen.Edge
	Path layout.Path
}

// Scene is one rendered frame of the board.
type Scene struct {
	Bounds layout.Bounds
	Nodes  []SceneNode
	Edges  []SceneEdge
	Stats  kitchen.Stats
}

// Scene derives the current frame. Bounds come from the unfiltered
// snapshot; positions of dragged or settling nodes come from the drag
// overrides, and edge endpoints follow them.
func (b *Board) Scene() Scene {
	bounds := b.Bounds()
	view := visibility.Apply(b.graph, b.filter)

	s := Scene{
		Bounds: bounds,
		Nodes:  make([]SceneNode, 0, len(view.Nodes)),
		Edges:  make([]SceneEdge, 0, len(view.Edges)),
		Stats:  b.graph.Stats(),
	}
	at := make(map[string]layout.Point, len(view.Nodes))
	for i := range view.Nodes {
		n := &view.Nodes[i]
		p, overridden := b.drag.Override(n.ID)
		if !overridden {
			p = layout.Project(n, bounds, b.opts)
		}
		s.Nodes = append(s.Nodes, SceneNode{
			Node:       *n,
			Projection: p,
			Dragging:   b.drag.Dragging(n.ID),
			Settling:   b.drag.Settling(n.ID),
			Pending:    b.facade.InFlight(n.ID),
		})
		at[n.ID] = p.Point()
	}
	for _, e := range view.Edges {
		s.Edges = append(s.Edges, SceneEdge{
			Edge: e,
			Path: drag.EdgePath(at[e.SourceNodeID], at[e.TargetNodeID]),
		})
	}
	return s
}

// Node returns the scene node with the given id.
func (s *Scene) Node(id string) (SceneNode, bool) {
	for _, n := range s.Nodes {
		if n.Node.ID == id {
			return n, true
		}
	}
	return SceneNode{}, false
}

// NodeAt returns the node drawn nearest to p (in percent) within the given
// per-axis tolerance. Later nodes win ties, matching draw order.
func (s *Scene) NodeAt(p layout.Point, tolX, tolY float64) (SceneNode, bool) {
	best, found := SceneNode{}, false
	bestDist := math.Inf(1)
	for _, n := range s.Nodes {
		dx := math.Abs(n.Projection.Left - p.X)
		dy := math.Abs(n.Projection.Top - p.Y)
		if dx > tolX || dy > tolY {
			continue
		}
		if d := math.Hypot(dx, dy); d <= bestDist {
			best, bestDist, found = n, d, true
		}
	}
	return best, found
}
