// Package mongo is a Graph Store backed by MongoDB.
//
// Categories, nodes and edges live in three collections of one database.
// Documents use the bson tags declared on the kitchen types, with string
// UUIDs as _id.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// Collection names.
const (
	CategoriesCollection = "categories"
	NodesCollection      = "nodes"
	EdgesCollection      = "edges"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "kitchenboard"

// Store persists graphs in MongoDB.
type Store struct {
	client     *mongo.Client
	categories *mongo.Collection
	nodes      *mongo.Collection
	edges      *mongo.Collection
	logger     *log.Logger
	newID      func() string
}

// Connect dials uri, verifies the connection and opens database.
func Connect(ctx context.Context, uri, database string, logger *log.Logger) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	s := New(client.Database(database), logger)
	s.client = client
	return s, nil
}

// New uses an existing database handle. Close does not disconnect a client
// it did not create.
func New(db *mongo.Database, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		categories: db.Collection(CategoriesCollection),
		nodes:      db.Collection(NodesCollection),
		edges:      db.Collection(EdgesCollection),
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// EnsureIndexes creates the restaurant lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{Keys: bson.D{{Key: "restaurant_id", Value: 1}}}
	for _, c := range []*mongo.Collection{s.categories, s.nodes, s.edges} {
		if _, err := c.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("index %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Graph loads every category, node and edge of the restaurant.
func (s *Store) Graph(ctx context.Context, restaurantID string) (*kitchen.Graph, error) {
	if err := errors.ValidateID("restaurant_id", restaurantID); err != nil {
		return nil, err
	}
	g := &kitchen.Graph{
		RestaurantID: restaurantID,
		Categories:   []kitchen.Category{},
		Nodes:        []kitchen.Node{},
		Edges:        []kitchen.Edge{},
	}
	filter := bson.M{"restaurant_id": restaurantID}

	if err := findAll(ctx, s.categories, filter, bson.D{{Key: "display_order", Value: 1}, {Key: "_id", Value: 1}}, &g.Categories); err != nil {
		return nil, err
	}
	if err := findAll(ctx, s.nodes, filter, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, &g.Nodes); err != nil {
		return nil, err
	}
	if err := findAll(ctx, s.edges, filter, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, &g.Edges); err != nil {
		return nil, err
	}
	return g, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, sort bson.D, out *[]T) error {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return fmt.Errorf("find %s: %w", c.Name(), err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	if docs != nil {
		*out = docs
	}
	return nil
}

// CreateNode inserts a validated node.
func (s *Store) CreateNode(ctx context.Context, in kitchen.NodeInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	cat, err := s.category(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckCategory(in, cat); err != nil {
		return nil, err
	}
	n := in.Node()
	n.ID = s.newID()
	n.CreatedAt = store.Now()
	n.UpdatedAt = n.CreatedAt
	if _, err := s.nodes.InsertOne(ctx, n); err != nil {
		return nil, mapError(err, "insert node")
	}
	return &n, nil
}

// MoveNode writes the supplied coordinate pairs.
func (s *Store) MoveNode(ctx context.Context, nodeID string, in kitchen.MoveInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	set := bson.D{}
	if in.X != nil && in.Y != nil {
		set = append(set, bson.E{Key: "x", Value: *in.X}, bson.E{Key: "y", Value: *in.Y})
	}
	if in.XPosition != nil && in.YPosition != nil {
		set = append(set, bson.E{Key: "x_position", Value: *in.XPosition}, bson.E{Key: "y_position", Value: *in.YPosition})
	}
	set = append(set, bson.E{Key: "updated_at", Value: store.Now()})
	return s.updateNode(ctx, nodeID, bson.D{{Key: "$set", Value: set}})
}

// ToggleNode flips availability in a single server-side update.
func (s *Store) ToggleNode(ctx context.Context, nodeID string) (*kitchen.Node, error) {
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "available", Value: bson.D{{Key: "$not", Value: "$available"}}},
		{Key: "updated_at", Value: store.Now()},
	}}}}
	return s.updateNode(ctx, nodeID, update)
}

func (s *Store) updateNode(ctx context.Context, nodeID string, update any) (*kitchen.Node, error) {
	var n kitchen.Node
	err := s.nodes.FindOneAndUpdate(ctx, activeNode(nodeID), update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&n)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NodeNotFound(nodeID)
	}
	if err != nil {
		return nil, mapError(err, "update node")
	}
	return &n, nil
}

// DeleteNode soft-deletes a node. Edges are left in place.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	now := store.Now()
	res, err := s.nodes.UpdateOne(ctx, activeNode(nodeID),
		bson.D{{Key: "$set", Value: bson.D{{Key: "deleted_at", Value: now}, {Key: "updated_at", Value: now}}}})
	if err != nil {
		return mapError(err, "delete node")
	}
	if res.MatchedCount == 0 {
		return store.NodeNotFound(nodeID)
	}
	return nil
}

// CreateEdge validates the endpoints and inserts the edge.
func (s *Store) CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*kitchen.Edge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	src, err := s.endpoint(ctx, in.SourceNodeID)
	if err != nil {
		return nil, err
	}
	dst, err := s.endpoint(ctx, in.TargetNodeID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckEdge(in, src, dst); err != nil {
		return nil, err
	}

	e := in.Edge()
	e.ID = s.newID()
	e.CreatedAt = store.Now()
	e.UpdatedAt = e.CreatedAt
	if _, err := s.edges.InsertOne(ctx, e); err != nil {
		return nil, mapError(err, "insert edge")
	}
	return &e, nil
}

func (s *Store) category(ctx context.Context, id string) (*kitchen.Category, error) {
	var c kitchen.Category
	err := s.categories.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) endpoint(ctx context.Context, id string) (*kitchen.Node, error) {
	var n kitchen.Node
	err := s.nodes.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load endpoint %s: %w", id, err)
	}
	return &n, nil
}

// DeleteEdge removes an edge.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	res, err := s.edges.DeleteOne(ctx, bson.M{"_id": edgeID})
	if err != nil {
		return mapError(err, "delete edge")
	}
	if res.DeletedCount == 0 {
		return store.EdgeNotFound(edgeID)
	}
	return nil
}

// Import replaces the restaurant's data. It is not atomic; a failure
// part-way leaves the restaurant partially imported and the import can be
// re-run.
func (s *Store) Import(ctx context.Context, g *kitchen.Graph) error {
	if g == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil graph")
	}
	if err := errors.ValidateID("restaurant_id", g.RestaurantID); err != nil {
		return err
	}
	rid := g.RestaurantID
	filter := bson.M{"restaurant_id": rid}
	for _, c := range []*mongo.Collection{s.edges, s.nodes, s.categories} {
		if _, err := c.DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("clear %s: %w", c.Name(), err)
		}
	}

	now := store.Now()
	categories := make([]any, 0, len(g.Categories))
	for _, c := range g.Categories {
		c.RestaurantID = rid
		c.CreatedAt, c.UpdatedAt = stamp(c.CreatedAt, c.UpdatedAt, now)
		categories = append(categories, c)
	}
	nodes := make([]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		n.RestaurantID = rid
		n.CreatedAt, n.UpdatedAt = stamp(n.CreatedAt, n.UpdatedAt, now)
		nodes = append(nodes, n)
	}
	edges := make([]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		e.RestaurantID = rid
		e.CreatedAt, e.UpdatedAt = stamp(e.CreatedAt, e.UpdatedAt, now)
		edges = append(edges, e)
	}
	for _, batch := range []struct {
		c    *mongo.Collection
		docs []any
	}{{s.categories, categories}, {s.nodes, nodes}, {s.edges, edges}} {
		if len(batch.docs) == 0 {
			continue
		}
		if _, err := batch.c.InsertMany(ctx, batch.docs); err != nil {
			return mapError(err, "import "+batch.c.Name())
		}
	}
	s.logger.Info("imported graph", "restaurant", rid, "nodes", len(nodes), "edges", len(edges))
	return nil
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.nodes.Database().Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client when the store created it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func activeNode(id string) bson.M {
	return bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}
}

func stamp(created, updated, now time.Time) (time.Time, time.Time) {
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}
	return created, updated
}

func mapError(err error, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Validation("id")
	}
	if mongo.IsNetworkError(err) {
		return errors.Wrap(errors.ErrCodeNetwork, err, "%s", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Importer = (*Store)(nil)
	_ store.Pinger   = (*Store)(nil)
)
