package kitchen

import (
	"slices"
	"strings"
)

// Graph is the snapshot of one restaurant's kitchen graph as returned by the
// Graph Store: every category, node (including soft-deleted ones the store
// still reports) and edge.
type Graph struct {
	RestaurantID string     `json:"restaurant_id" bson:"restaurant_id"`
	Categories   []Category `json:"categories" bson:"categories"`
	Nodes        []Node     `json:"nodes" bson:"nodes"`
	Edges        []Edge     `json:"edges" bson:"edges"`
}

// Stats summarises a graph for display.
type Stats struct {
	Nodes       int                `json:"nodes"`
	Deleted     int                `json:"deleted"`
	Edges       int                `json:"edges"`
	Dangling    int                `json:"dangling"`
	Categories  int                `json:"categories"`
	Unavailable int                `json:"unavailable"`
	ByType      map[EntityType]int `json:"by_type,omitempty"`
}

// Node returns the node with the given id, including soft-deleted nodes.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// ActiveNode returns the node with the given id unless it is soft-deleted.
func (g *Graph) ActiveNode(id string) (*Node, bool) {
	n, ok := g.Node(id)
	if !ok || n.IsDeleted() {
		return nil, false
	}
	return n, true
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (*Edge, bool) {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i], true
		}
	}
	return nil, false
}

// Category returns the category with the given id.
func (g *Graph) Category(id string) (*Category, bool) {
	for i := range g.Categories {
		if g.Categories[i].ID == id {
			return &g.Categories[i], true
		}
	}
	return nil, false
}

// ActiveNodes returns the nodes that are not soft-deleted, in stored order.
func (g *Graph) ActiveNodes() []Node {
	out := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if !n.IsDeleted() {
			out = append(out, n)
		}
	}
	return out
}

// ReplaceNode swaps in n for the node with the same id.
// Returns false if no such node exists.
func (g *Graph) ReplaceNode(n Node) bool {
	for i := range g.Nodes {
		if g.Nodes[i].ID == n.ID {
			g.Nodes[i] = n
			return true
		}
	}
	return false
}

// SortedCategories returns categories ordered by display order, then name.
func (g *Graph) SortedCategories() []Category {
	out := slices.Clone(g.Categories)
	slices.SortStableFunc(out, func(a, b Category) int {
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		RestaurantID: g.RestaurantID,
		Categories:   slices.Clone(g.Categories),
		Nodes:        make([]Node, len(g.Nodes)),
		Edges:        slices.Clone(g.Edges),
	}
	for i := range g.Nodes {
		out.Nodes[i] = g.Nodes[i].Clone()
	}
	return out
}

// Stats counts nodes, edges and categories. An edge is dangling when either
// endpoint is missing or soft-deleted.
func (g *Graph) Stats() Stats {
	s := Stats{
		Edges:      len(g.Edges),
		Categories: len(g.Categories),
		ByType:     make(map[EntityType]int),
	}
	for _, n := range g.Nodes {
		if n.IsDeleted() {
			s.Deleted++
			continue
		}
		s.Nodes++
		s.ByType[n.EntityType]++
		if !n.Available {
			s.Unavailable++
		}
	}
	for _, e := range g.Edges {
		_, okSrc := g.ActiveNode(e.SourceNodeID)
		_, okDst := g.ActiveNode(e.TargetNodeID)
		if !okSrc || !okDst {
			s.Dangling++
		}
	}
	return s
}
