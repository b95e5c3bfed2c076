// Package store defines the Graph Store boundary: the external service that
// persists categories, nodes and edges of each restaurant.
//
// Implementations live in subpackages:
//
//   - store/memory   in-process, used by tests and `kitchenboard serve --store memory`
//   - store/mongo    MongoDB collections
//   - store/postgres PostgreSQL via the pgx driver
//   - store/remote   HTTP client for a running kitchenboard server
//
// All implementations report failures with *errors.Error codes from
// pkg/errors: VALIDATION_FAILED (with the offending fields), NODE_NOT_FOUND,
// EDGE_NOT_FOUND, UNAUTHORIZED, NETWORK_ERROR. None of them is fatal to a
// caller; the board turns each into a notice.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

// Store is the Graph Store API.
type Store interface {
	// Graph returns every category, node and edge of a restaurant.
	Graph(ctx context.Context, restaurantID string) (*kitchen.Graph, error)

	// CreateNode validates and persists a new node.
	CreateNode(ctx context.Context, in kitchen.NodeInput) (*kitchen.Node, error)

	// MoveNode writes the supplied position views. Moving to the same
	// position twice is idempotent.
	MoveNode(ctx context.Context, nodeID string, in kitchen.MoveInput) (*kitchen.Node, error)

	// ToggleNode flips the availability flag and nothing else.
	ToggleNode(ctx context.Context, nodeID string) (*kitchen.Node, error)

	// DeleteNode soft-deletes the node. Edges touching it are kept.
	DeleteNode(ctx context.Context, nodeID string) error

	// CreateEdge links two nodes of the same restaurant.
	CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*kitchen.Edge, error)

	// DeleteEdge removes the edge.
	DeleteEdge(ctx context.Context, edgeID string) error

	// Close releases connections.
	Close() error
}

// Importer is implemented by stores that can load a whole graph at once,
// replacing the restaurant's existing data.
type Importer interface {
	Import(ctx context.Context, g *kitchen.Graph) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NodeNotFound returns the error for an unknown or deleted node.
func NodeNotFound(id string) error {
	return errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
}

// EdgeNotFound returns the error for an unknown edge.
func EdgeNotFound(id string) error {
	return errors.New(errors.ErrCodeEdgeNotFound, "edge %s not found", id)
}

// Now is the clock used for timestamps. Tests replace it.
var Now = func() time.Time { return time.Now().UTC() }

// CheckCategory validates the category a new node is filed under. c is nil
// when the category is unknown; it must belong to the node's restaurant.
func CheckCategory(in kitchen.NodeInput, c *kitchen.Category) error {
	if c == nil || c.RestaurantID != in.RestaurantID {
		return errors.Validation("category_id")
	}
	return nil
}

// CheckEdge validates an edge against the endpoints it resolves to. src and
// dst are nil when the node is unknown or deleted. Both endpoints must belong
// to the edge's restaurant.
func CheckEdge(in kitchen.EdgeInput, src, dst *kitchen.Node) error {
	var fields []string
	if src == nil || src.IsDeleted() || src.RestaurantID != in.RestaurantID {
		fields = append(fields, "source_node_id")
	}
	if dst == nil || dst.IsDeleted() || dst.RestaurantID != in.RestaurantID {
		fields = append(fields, "target_node_id")
	}
	if len(fields) > 0 {
		return errors.Validation(fields...)
	}
	return nil
}
