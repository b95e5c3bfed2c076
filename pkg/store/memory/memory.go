// Package memory is an in-process Graph Store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// Store keeps graphs in memory. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	categories map[string]kitchen.Category
	nodes      map[string]*kitchen.Node
	edges      map[string]*kitchen.Edge
	order      []string // node ids in insertion order
	edgeOrder  []string
	newID      func() string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		categories: make(map[string]kitchen.Category),
		nodes:      make(map[string]*kitchen.Node),
		edges:      make(map[string]*kitchen.Edge),
		newID:      func() string { return uuid.NewString() },
	}
}

// Seed returns a store preloaded with g.
func Seed(g *kitchen.Graph) *Store {
	s := New()
	_ = s.Import(context.Background(), g)
	return s
}

// Graph returns a copy of the restaurant's graph, including soft-deleted
// nodes.
func (s *Store) Graph(ctx context.Context, restaurantID string) (*kitchen.Graph, error) {
	if err := errors.ValidateID("restaurant_id", restaurantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &kitchen.Graph{
		RestaurantID: restaurantID,
		Categories:   []kitchen.Category{},
		Nodes:        []kitchen.Node{},
		Edges:        []kitchen.Edge{},
	}
	for _, c := range s.categories {
		if c.RestaurantID == restaurantID {
			g.Categories = append(g.Categories, c)
		}
	}
	g.Categories = slices.SortedFunc(slices.Values(g.Categories), func(a, b kitchen.Category) int {
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return strings.Compare(a.ID, b.ID)
	})
	for _, id := range s.order {
		if n := s.nodes[id]; n.RestaurantID == restaurantID {
			g.Nodes = append(g.Nodes, n.Clone())
		}
	}
	for _, id := range s.edgeOrder {
		if e := s.edges[id]; e.RestaurantID == restaurantID {
			g.Edges = append(g.Edges, *e)
		}
	}
	return g, nil
}

// CreateNode validates in and stores a new node.
func (s *Store) CreateNode(ctx context.Context, in kitchen.NodeInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var cat *kitchen.Category
	if c, ok := s.categories[in.CategoryID]; ok {
		cat = &c
	}
	if err := store.CheckCategory(in, cat); err != nil {
		return nil, err
	}
	n := in.Node()
	n.ID = s.newID()
	n.CreatedAt = store.Now()
	n.UpdatedAt = n.CreatedAt
	s.nodes[n.ID] = &n
	s.order = append(s.order, n.ID)
	out := n.Clone()
	return &out, nil
}

// MoveNode updates the position views of a live node.
func (s *Store) MoveNode(ctx context.Context, nodeID string, in kitchen.MoveInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.update(nodeID, func(n *kitchen.Node) { in.Apply(n) })
}

// ToggleNode flips availability.
func (s *Store) ToggleNode(ctx context.Context, nodeID string) (*kitchen.Node, error) {
	return s.update(nodeID, func(n *kitchen.Node) { n.Available = !n.Available })
}

func (s *Store) update(nodeID string, fn func(*kitchen.Node)) (*kitchen.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok || n.IsDeleted() {
		return nil, store.NodeNotFound(nodeID)
	}
	fn(n)
	n.UpdatedAt = store.Now()
	out := n.Clone()
	return &out, nil
}

// DeleteNode marks the node deleted. Deleting twice reports not found.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok || n.IsDeleted() {
		return store.NodeNotFound(nodeID)
	}
	now := store.Now()
	n.DeletedAt = &now
	n.UpdatedAt = now
	return nil
}

// CreateEdge validates and stores an edge between two live nodes.
func (s *Store) CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*kitchen.Edge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.CheckEdge(in, s.nodes[in.SourceNodeID], s.nodes[in.TargetNodeID]); err != nil {
		return nil, err
	}
	e := in.Edge()
	e.ID = s.newID()
	e.CreatedAt = store.Now()
	e.UpdatedAt = e.CreatedAt
	s.edges[e.ID] = &e
	s.edgeOrder = append(s.edgeOrder, e.ID)
	out := e
	return &out, nil
}

// DeleteEdge removes an edge.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[edgeID]; !ok {
		return store.EdgeNotFound(edgeID)
	}
	delete(s.edges, edgeID)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(id string) bool { return id == edgeID })
	return nil
}

// Import replaces the restaurant's categories, nodes and edges with g.
// Ids in g are kept.
func (s *Store) Import(ctx context.Context, g *kitchen.Graph) error {
	if g == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil graph")
	}
	if err := errors.ValidateID("restaurant_id", g.RestaurantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rid := g.RestaurantID
	for id, c := range s.categories {
		if c.RestaurantID == rid {
			delete(s.categories, id)
		}
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		if s.nodes[id].RestaurantID == rid {
			delete(s.nodes, id)
			return true
		}
		return false
	})
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(id string) bool {
		if s.edges[id].RestaurantID == rid {
			delete(s.edges, id)
			return true
		}
		return false
	})

	for _, c := range g.Categories {
		c.RestaurantID = rid
		s.categories[c.ID] = c
	}
	for i := range g.Nodes {
		n := g.Nodes[i].Clone()
		n.RestaurantID = rid
		if _, ok := s.nodes[n.ID]; !ok {
			s.order = append(s.order, n.ID)
		}
		s.nodes[n.ID] = &n
	}
	for _, e := range g.Edges {
		e.RestaurantID = rid
		if _, ok := s.edges[e.ID]; !ok {
			s.edgeOrder = append(s.edgeOrder, e.ID)
		}
		s.edges[e.ID] = &e
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close does nothing.
func (s *Store) Close() error { return nil }

var (
	_ store.Store    = (*Store)(nil)
	_ store.Importer = (*Store)(nil)
	_ store.Pinger   = (*Store)(nil)
)
