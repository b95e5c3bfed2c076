// Package mutation is the write path between the board and the Graph Store.
//
// Every write goes through a [Facade]. Calls validate their input before
// anything leaves the process, mark the target entity as in flight, and
// return a [Pending] result immediately; the store call runs on its own
// goroutine. A second write to an entity that is still in flight is
// rejected with IN_FLIGHT rather than queued, which keeps at most one
// outstanding mutation per entity.
//
// On success the restaurant's cached snapshot is invalidated through the
// [Loader], so the next read observes the write.
package mutation

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/observability"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// Operation names reported to hooks and logs.
const (
	OpCreateNode = "create_node"
	OpMoveNode   = "move_node"
	OpToggleNode = "toggle_node"
	OpDeleteNode = "delete_node"
	OpCreateEdge = "create_edge"
	OpDeleteEdge = "delete_edge"
)

// Facade serializes writes per entity and dispatches them asynchronously.
type Facade struct {
	store  store.Store
	loader *Loader
	logger *log.Logger

	mu       sync.Mutex
	inFlight map[string]string // entity key -> operation
	wg       sync.WaitGroup
}

// NewFacade creates a façade writing to st and invalidating through loader.
func NewFacade(st store.Store, loader *Loader, logger *log.Logger) *Facade {
	if logger == nil {
		logger = log.Default()
	}
	if loader == nil {
		loader = NewLoader(st, nil, nil, logger)
	}
	return &Facade{
		store:    st,
		loader:   loader,
		logger:   logger,
		inFlight: make(map[string]string),
	}
}

// Loader returns the loader the façade invalidates.
func (f *Facade) Loader() *Loader { return f.loader }

// InFlight reports whether a write for the entity is outstanding. For nodes
// and edges the key is the id.
func (f *Facade) InFlight(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inFlight[key]
	return ok
}

// Wait blocks until every dispatched write has resolved.
func (f *Facade) Wait() { f.wg.Wait() }

// CreateNode validates in and creates the node.
func (f *Facade) CreateNode(ctx context.Context, in kitchen.NodeInput) (*Pending[*kitchen.Node], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	key := CreateKey(in.EntityType, in.EntityID)
	return dispatch(f, ctx, OpCreateNode, key, in.RestaurantID, func(ctx context.Context) (*kitchen.Node, error) {
		return f.store.CreateNode(ctx, in)
	})
}

// MoveNode persists a new position for nodeID.
func (f *Facade) MoveNode(ctx context.Context, restaurantID, nodeID string, in kitchen.MoveInput) (*Pending[*kitchen.Node], error) {
	if err := errors.ValidateID("node_id", nodeID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return dispatch(f, ctx, OpMoveNode, nodeID, restaurantID, func(ctx context.Context) (*kitchen.Node, error) {
		return f.store.MoveNode(ctx, nodeID, in)
	})
}

// ToggleAvailability flips the availability of nodeID.
func (f *Facade) ToggleAvailability(ctx context.Context, restaurantID, nodeID string) (*Pending[*kitchen.Node], error) {
	if err := errors.ValidateID("node_id", nodeID); err != nil {
		return nil, err
	}
	return dispatch(f, ctx, OpToggleNode, nodeID, restaurantID, func(ctx context.Context) (*kitchen.Node, error) {
		return f.store.ToggleNode(ctx, nodeID)
	})
}

// DeleteNode soft-deletes nodeID. Confirmation is the caller's job.
func (f *Facade) DeleteNode(ctx context.Context, restaurantID, nodeID string) (*Pending[struct{}], error) {
	if err := errors.ValidateID("node_id", nodeID); err != nil {
		return nil, err
	}
	return dispatch(f, ctx, OpDeleteNode, nodeID, restaurantID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.store.DeleteNode(ctx, nodeID)
	})
}

// CreateEdge validates in and creates the edge.
func (f *Facade) CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*Pending[*kitchen.Edge], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	key := EdgeKey(in.SourceNodeID, in.TargetNodeID)
	return dispatch(f, ctx, OpCreateEdge, key, in.RestaurantID, func(ctx context.Context) (*kitchen.Edge, error) {
		return f.store.CreateEdge(ctx, in)
	})
}

// DeleteEdge removes edgeID.
func (f *Facade) DeleteEdge(ctx context.Context, restaurantID, edgeID string) (*Pending[struct{}], error) {
	if err := errors.ValidateID("edge_id", edgeID); err != nil {
		return nil, err
	}
	return dispatch(f, ctx, OpDeleteEdge, edgeID, restaurantID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.store.DeleteEdge(ctx, edgeID)
	})
}

// CreateKey is the in-flight key of a node creation.
func CreateKey(t kitchen.EntityType, entityID string) string {
	return "create:" + string(t) + ":" + entityID
}

// EdgeKey is the in-flight key of an edge creation.
func EdgeKey(source, target string) string {
	return "edge:" + source + "->" + target
}

func dispatch[T any](f *Facade, ctx context.Context, op, key, restaurantID string, call func(context.Context) (T, error)) (*Pending[T], error) {
	if !f.acquire(key, op) {
		return nil, errors.New(errors.ErrCodeInFlight, "%s: a change to %s is still pending", op, key)
	}
	p := newPending[T]()
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		start := time.Now()
		observability.Mutation().OnMutationStart(ctx, op, key)

		v, err := call(ctx)
		err = Classify(err)

		observability.Mutation().OnMutationComplete(ctx, op, key, time.Since(start), err)
		if err != nil {
			f.logger.Debug("mutation failed", "op", op, "key", key, "code", errors.GetCode(err), "err", err)
		} else {
			f.logger.Debug("mutation applied", "op", op, "key", key, "duration", time.Since(start))
			if restaurantID != "" {
				if ierr := f.loader.Invalidate(context.WithoutCancel(ctx), restaurantID); ierr != nil {
					f.logger.Warn("cache invalidation failed", "restaurant", restaurantID, "err", ierr)
				}
			}
		}
		f.release(key)
		p.resolve(v, err)
	}()
	return p, nil
}

func (f *Facade) acquire(key, op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.inFlight[key]; busy {
		return false
	}
	f.inFlight[key] = op
	return true
}

func (f *Facade) release(key string) {
	f.mu.Lock()
	delete(f.inFlight, key)
	f.mu.Unlock()
}

// Classify maps a store error into the error taxonomy. Coded errors pass
// through, deadlines become TIMEOUT, and anything else is treated as the
// store being unreachable.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return err
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "graph store timed out")
	case stderrors.Is(err, context.Canceled):
		return err
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "graph store unavailable")
}
