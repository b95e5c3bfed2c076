package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

// newStore holds a "<restaurant>-starters" category for r1 and r2.
func newStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	for _, rid := range []string{"r1", "r2"} {
		require.NoError(t, s.Import(context.Background(), &kitchen.Graph{
			RestaurantID: rid,
			Categories:   []kitchen.Category{{ID: rid + "-starters", Name: "Starters"}},
		}))
	}
	return s
}

func dish(restaurant, entity string) kitchen.NodeInput {
	return kitchen.NodeInput{
		RestaurantID: restaurant,
		CategoryID:   restaurant + "-starters",
		EntityType:   kitchen.EntityDish,
		EntityID:     entity,
		X:            kitchen.Float(10),
		Y:            kitchen.Float(20),
	}
}

func TestCreateNodeDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	n, err := s.CreateNode(ctx, dish("r1", "42"))
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.True(t, n.Available)
	assert.False(t, n.CreatedAt.IsZero())

	_, err = s.CreateNode(ctx, kitchen.NodeInput{RestaurantID: "r1", EntityType: "drink"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	assert.Equal(t, []string{"category_id", "entity_type", "entity_id"}, errors.FieldsOf(err))

	g, err := s.Graph(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1, "invalid node must not be stored")
}

func TestCreateNodeNeedsKnownCategory(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	tests := []struct {
		name     string
		category string
	}{
		{"unknown", "ghost"},
		{"other restaurant", "r2-starters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := dish("r1", "9")
			in.CategoryID = tt.category
			_, err := s.CreateNode(ctx, in)
			require.Error(t, err)
			assert.Equal(t, []string{"category_id"}, errors.FieldsOf(err))
		})
	}

	g, _ := s.Graph(ctx, "r1")
	assert.Empty(t, g.Nodes)
}

func TestMoveNodeIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	n, err := s.CreateNode(ctx, dish("r1", "1"))
	require.NoError(t, err)

	in := kitchen.MoveInput{X: kitchen.Float(75), Y: kitchen.Float(25), XPosition: kitchen.Float(0.75), YPosition: kitchen.Float(0.25)}
	first, err := s.MoveNode(ctx, n.ID, in)
	require.NoError(t, err)
	second, err := s.MoveNode(ctx, n.ID, in)
	require.NoError(t, err)
	assert.True(t, first.SamePosition(second))
	assert.Equal(t, 75.0, *second.X)
	assert.Equal(t, 0.25, *second.YPosition)

	_, err = s.MoveNode(ctx, n.ID, kitchen.MoveInput{X: kitchen.Float(1)})
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
}

func TestToggleKeepsEverythingElse(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	n, _ := s.CreateNode(ctx, dish("r1", "1"))

	toggled, err := s.ToggleNode(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Available)
	assert.Equal(t, n.CategoryID, toggled.CategoryID)
	assert.True(t, n.SamePosition(toggled))

	back, err := s.ToggleNode(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, back.Available)
}

func TestDeleteNodeKeepsEdges(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a, _ := s.CreateNode(ctx, dish("r1", "1"))
	b, _ := s.CreateNode(ctx, dish("r1", "2"))
	e, err := s.CreateEdge(ctx, kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: a.ID, TargetNodeID: b.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, a.ID))
	g, _ := s.Graph(ctx, "r1")
	deleted, ok := g.Node(a.ID)
	require.True(t, ok, "soft-deleted node is still reported")
	assert.True(t, deleted.IsDeleted())
	_, ok = g.Edge(e.ID)
	assert.True(t, ok, "edge record must survive endpoint deletion")

	err = s.DeleteNode(ctx, a.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNodeNotFound))
	_, err = s.ToggleNode(ctx, a.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateEdgeValidation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a, _ := s.CreateNode(ctx, dish("r1", "1"))
	other, _ := s.CreateNode(ctx, dish("r2", "1"))

	tests := []struct {
		name   string
		in     kitchen.EdgeInput
		fields []string
	}{
		{"unknown source", kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: "nope", TargetNodeID: a.ID}, []string{"source_node_id"}},
		{"cross restaurant", kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: a.ID, TargetNodeID: other.ID}, []string{"target_node_id"}},
		{"self loop", kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: a.ID, TargetNodeID: a.ID}, []string{"target_node_id"}},
		{"missing restaurant", kitchen.EdgeInput{SourceNodeID: a.ID, TargetNodeID: "x"}, []string{"restaurant_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateEdge(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeValidation))
			assert.Equal(t, tt.fields, errors.FieldsOf(err))
		})
	}

	g, _ := s.Graph(ctx, "r1")
	assert.Empty(t, g.Edges)
}

func TestDeleteEdge(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a, _ := s.CreateNode(ctx, dish("r1", "1"))
	b, _ := s.CreateNode(ctx, dish("r1", "2"))
	e, _ := s.CreateEdge(ctx, kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: a.ID, TargetNodeID: b.ID, Label: "pairs with"})

	require.NoError(t, s.DeleteEdge(ctx, e.ID))
	assert.True(t, errors.Is(s.DeleteEdge(ctx, e.ID), errors.ErrCodeEdgeNotFound))
}

func TestGraphIsolatedPerRestaurant(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _ = s.CreateNode(ctx, dish("r1", "1"))
	_, _ = s.CreateNode(ctx, dish("r2", "1"))

	g, err := s.Graph(ctx, "r2")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "r2", g.Nodes[0].RestaurantID)

	_, err = s.Graph(ctx, "../etc")
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
}

func TestGraphReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	n, _ := s.CreateNode(ctx, dish("r1", "1"))

	g, _ := s.Graph(ctx, "r1")
	*g.Nodes[0].X = 999
	g.Nodes[0].Available = false

	again, _ := s.Graph(ctx, "r1")
	got, _ := again.Node(n.ID)
	assert.Equal(t, 10.0, *got.X)
	assert.True(t, got.Available)
}

func TestImportReplacesRestaurant(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _ = s.CreateNode(ctx, dish("r1", "old"))
	_, _ = s.CreateNode(ctx, dish("r2", "keep"))

	err := s.Import(ctx, &kitchen.Graph{
		RestaurantID: "r1",
		Categories:   []kitchen.Category{{ID: "starters", Name: "Starters"}},
		Nodes: []kitchen.Node{
			{ID: "a", EntityType: kitchen.EntityDish, EntityID: "1", Available: true},
			{ID: "b", EntityType: kitchen.EntityDish, EntityID: "2"},
		},
		Edges: []kitchen.Edge{{ID: "e", SourceNodeID: "a", TargetNodeID: "b"}},
	})
	require.NoError(t, err)

	g, _ := s.Graph(ctx, "r1")
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
	require.Len(t, g.Categories, 1)
	assert.Equal(t, "r1", g.Categories[0].RestaurantID)

	other, _ := s.Graph(ctx, "r2")
	assert.Len(t, other.Nodes, 1)

	assert.Error(t, s.Import(ctx, nil))
}
