package mongo

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(mt *mtest.T) *Store {
	s := New(mt.DB, log.New(io.Discard))
	s.newID = func() string { return "id-1" }
	return s
}

// toDoc encodes v the way the driver stores it.
func toDoc(t testing.TB, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

func soup() kitchen.Node {
	return kitchen.Node{
		ID: "n1", RestaurantID: "r1", CategoryID: "c1",
		EntityType: kitchen.EntityDish, EntityID: "42", Available: true,
		X: kitchen.Float(10), Y: kitchen.Float(20),
		Metadata:  kitchen.Metadata{"label": "Soup"},
		CreatedAt: created, UpdatedAt: created,
	}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("graph", func(mt *mtest.T) {
		s := newStore(mt)
		bread := kitchen.Node{
			ID: "n2", RestaurantID: "r1", EntityType: kitchen.EntityModification, EntityID: "7",
			XPosition: kitchen.Float(0.5), YPosition: kitchen.Float(0.25), CreatedAt: created, UpdatedAt: created,
		}
		edge := kitchen.Edge{ID: "e1", RestaurantID: "r1", SourceNodeID: "n1", TargetNodeID: "n2", Label: "topping"}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, CategoriesCollection), mtest.FirstBatch,
				toDoc(mt, kitchen.Category{ID: "c1", RestaurantID: "r1", Name: "Starters"})),
			mtest.CreateCursorResponse(0, ns(mt, NodesCollection), mtest.FirstBatch, toDoc(mt, soup()), toDoc(mt, bread)),
			mtest.CreateCursorResponse(0, ns(mt, EdgesCollection), mtest.FirstBatch, toDoc(mt, edge)),
		)

		g, err := s.Graph(context.Background(), "r1")
		require.NoError(mt, err)
		require.Len(mt, g.Categories, 1)
		require.Len(mt, g.Nodes, 2)
		require.Len(mt, g.Edges, 1)

		assert.Equal(mt, "Soup", g.Nodes[0].Label())
		assert.Equal(mt, 20.0, *g.Nodes[0].Y)
		assert.Nil(mt, g.Nodes[1].X)
		assert.Equal(mt, 0.5, *g.Nodes[1].XPosition)
		assert.Equal(mt, "topping", g.Edges[0].Label)
	})

	mt.Run("graph of empty restaurant", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, CategoriesCollection), mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns(mt, NodesCollection), mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns(mt, EdgesCollection), mtest.FirstBatch),
		)
		g, err := s.Graph(context.Background(), "r2")
		require.NoError(mt, err)
		assert.NotNil(mt, g.Nodes)
		assert.Empty(mt, g.Nodes)
	})

	mt.Run("create node", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, CategoriesCollection), mtest.FirstBatch,
				toDoc(mt, kitchen.Category{ID: "c1", RestaurantID: "r1", Name: "Starters"})),
			mtest.CreateSuccessResponse(),
		)

		n, err := s.CreateNode(context.Background(), kitchen.NodeInput{
			RestaurantID: "r1", CategoryID: "c1", EntityType: kitchen.EntityDish, EntityID: "42",
		})
		require.NoError(mt, err)
		assert.Equal(mt, "id-1", n.ID)
		assert.True(mt, n.Available)
	})

	mt.Run("create node duplicate id", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, CategoriesCollection), mtest.FirstBatch,
				toDoc(mt, kitchen.Category{ID: "c1", RestaurantID: "r1", Name: "Starters"})),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
		)

		_, err := s.CreateNode(context.Background(), kitchen.NodeInput{
			RestaurantID: "r1", CategoryID: "c1", EntityType: kitchen.EntityDish, EntityID: "42",
		})
		assert.True(mt, errors.Is(err, errors.ErrCodeValidation))
	})

	mt.Run("create node in unknown category", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, CategoriesCollection), mtest.FirstBatch))

		_, err := s.CreateNode(context.Background(), kitchen.NodeInput{
			RestaurantID: "r1", CategoryID: "ghost", EntityType: kitchen.EntityDish, EntityID: "42",
		})
		require.True(mt, errors.Is(err, errors.ErrCodeValidation))
		assert.Equal(mt, []string{"category_id"}, errors.FieldsOf(err))
	})

	mt.Run("create node in another restaurant's category", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, CategoriesCollection), mtest.FirstBatch,
			toDoc(mt, kitchen.Category{ID: "c9", RestaurantID: "r2", Name: "Mains"})))

		_, err := s.CreateNode(context.Background(), kitchen.NodeInput{
			RestaurantID: "r1", CategoryID: "c9", EntityType: kitchen.EntityDish, EntityID: "42",
		})
		assert.Equal(mt, []string{"category_id"}, errors.FieldsOf(err))
	})

	mt.Run("toggle", func(mt *mtest.T) {
		s := newStore(mt)
		off := soup()
		off.Available = false
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt, off)}))

		n, err := s.ToggleNode(context.Background(), "n1")
		require.NoError(mt, err)
		assert.False(mt, n.Available)
		assert.Equal(mt, 10.0, *n.X)
	})

	mt.Run("move missing node", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.MoveNode(context.Background(), "ghost", kitchen.MoveInput{X: kitchen.Float(1), Y: kitchen.Float(2)})
		assert.True(mt, errors.Is(err, errors.ErrCodeNodeNotFound))
	})

	mt.Run("delete node", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		require.NoError(mt, s.DeleteNode(context.Background(), "n1"))
		err := s.DeleteNode(context.Background(), "n1")
		assert.True(mt, errors.Is(err, errors.ErrCodeNodeNotFound))
	})

	mt.Run("create edge with missing endpoint", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, NodesCollection), mtest.FirstBatch, toDoc(mt, soup())),
			mtest.CreateCursorResponse(0, ns(mt, NodesCollection), mtest.FirstBatch),
		)

		_, err := s.CreateEdge(context.Background(), kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: "n1", TargetNodeID: "n9"})
		require.Error(mt, err)
		assert.Equal(mt, []string{"target_node_id"}, errors.FieldsOf(err))
	})

	mt.Run("create edge", func(mt *mtest.T) {
		s := newStore(mt)
		other := soup()
		other.ID = "n2"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, NodesCollection), mtest.FirstBatch, toDoc(mt, soup())),
			mtest.CreateCursorResponse(0, ns(mt, NodesCollection), mtest.FirstBatch, toDoc(mt, other)),
			mtest.CreateSuccessResponse(),
		)

		e, err := s.CreateEdge(context.Background(), kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: "n1", TargetNodeID: "n2"})
		require.NoError(mt, err)
		assert.Equal(mt, "id-1", e.ID)
	})

	mt.Run("delete edge", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := s.DeleteEdge(context.Background(), "e1")
		assert.True(mt, errors.Is(err, errors.ErrCodeEdgeNotFound))
	})
}
