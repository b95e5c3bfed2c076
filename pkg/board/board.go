// Package board composes the kitchen graph into an interactive surface.
//
// A [Board] owns the settled graph snapshot of one restaurant, the filter
// state, a drag controller and the mutation façade. Each frame is derived
// with [Board.Scene], a pure function of (snapshot, filter, drag overrides):
//
//	snapshot ──ComputeBounds──▶ bounds
//	snapshot ──visibility.Apply(filter)──▶ visible nodes/edges
//	visible + bounds + overrides ──Project──▶ Scene
//
// Writes follow an intent → pending → reconcile cycle. Gestures and commands
// return an [Op]; the caller waits on it off the UI goroutine and hands the
// [Outcome] back to [Board.Resolve], which either adopts the new state or
// restores the pre-intent node and raises a [Notice]. Nothing is retried
// automatically: a failed move is repeated by dragging again.
//
// A Board is not safe for concurrent use.
package board

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/drag"
	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/layout"
	"github.com/matzehuels/kitchenboard/pkg/mutation"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// Options configures a Board.
type Options struct {
	RestaurantID string
	Layout       layout.Options
	Filter       *visibility.Filter
	Logger       *log.Logger
}

// Board is the interactive kitchen graph of one restaurant.
type Board struct {
	restaurantID string
	opts         layout.Options
	facade       *mutation.Facade
	logger       *log.Logger

	bus  *drag.Bus
	drag *drag.Controller

	graph   *kitchen.Graph
	filter  visibility.Filter
	notices []Notice

	pendingDelete *Target

	// set while a pointer event is being delivered
	opCtx  context.Context
	lastOp *Op
}

// New creates an empty board. Call Refresh to load the snapshot.
func New(facade *mutation.Facade, opts Options) *Board {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Layout == (layout.Options{}) {
		opts.Layout = layout.DefaultOptions()
	}
	filter := visibility.DefaultFilter()
	if opts.Filter != nil {
		filter = opts.Filter.Clone()
	}
	b := &Board{
		restaurantID: opts.RestaurantID,
		opts:         opts.Layout,
		facade:       facade,
		logger:       opts.Logger,
		bus:          drag.NewBus(),
		graph:        &kitchen.Graph{RestaurantID: opts.RestaurantID},
		filter:       filter,
	}
	b.drag = drag.New(b.bus, b, opts.Layout, b.commitMove)
	return b
}

// RestaurantID returns the restaurant shown on the board.
func (b *Board) RestaurantID() string { return b.restaurantID }

// Snapshot returns the settled graph. Callers must not modify it.
func (b *Board) Snapshot() *kitchen.Graph { return b.graph }

// Layout returns the projection options.
func (b *Board) Layout() layout.Options { return b.opts }

// Refresh reloads the snapshot from the store, bypassing the cache.
func (b *Board) Refresh(ctx context.Context) error {
	g, err := b.Fetch(ctx)
	if err != nil {
		return err
	}
	b.graph = g
	return nil
}

// Load reads the snapshot, served from cache when fresh.
func (b *Board) Load(ctx context.Context) error {
	g, err := b.facade.Loader().Graph(ctx, b.restaurantID, false)
	if err != nil {
		return err
	}
	b.graph = g
	return nil
}

// =============================================================================
// Frame (drag collaborator)
// =============================================================================

// Bounds returns the layout bounds of the full, unfiltered snapshot.
func (b *Board) Bounds() layout.Bounds {
	return layout.ComputeBounds(b.graph.Nodes, b.opts)
}

// InFlight reports whether a write for id is pending.
func (b *Board) InFlight(id string) bool {
	return b.facade.InFlight(id)
}

// DragState returns the drag controller state.
func (b *Board) DragState() drag.State { return b.drag.State() }

// =============================================================================
// Filters
// =============================================================================

// Filter returns a copy of the current filter.
func (b *Board) Filter() visibility.Filter { return b.filter.Clone() }

// SetFilter replaces the filter. Bounds are unaffected.
func (b *Board) SetFilter(f visibility.Filter) { b.filter = f.Clone() }

// UpdateFilter edits the filter in place.
func (b *Board) UpdateFilter(fn func(*visibility.Filter)) { fn(&b.filter) }

// =============================================================================
// Gestures
// =============================================================================

// Press starts dragging nodeID. pointer is in screen units of viewport.
func (b *Board) Press(nodeID string, pointer drag.Point, viewport drag.Rect) error {
	n, ok := b.graph.ActiveNode(nodeID)
	if !ok || !b.filter.Match(n) {
		return errors.New(errors.ErrCodeNodeNotFound, "node %s is not on the board", nodeID)
	}
	p, ok := b.drag.Override(nodeID)
	if !ok {
		p = layout.Project(n, b.Bounds(), b.opts)
	}
	return b.drag.Begin(drag.Anchor{NodeID: nodeID, Projection: p}, pointer, viewport)
}

// Pointer delivers a global pointer event. It returns the move Op when the
// event finished a drag that changed the position, else nil.
func (b *Board) Pointer(ctx context.Context, ev drag.PointerEvent) *Op {
	b.opCtx, b.lastOp = ctx, nil
	b.bus.Publish(ev)
	op := b.lastOp
	b.opCtx, b.lastOp = nil, nil
	return op
}

func (b *Board) commitMove(c drag.Commit) {
	ctx := b.opCtx
	if ctx == nil {
		ctx = context.Background()
	}
	var before *kitchen.Node
	if n, ok := b.graph.Node(c.NodeID); ok {
		clone := n.Clone()
		before = &clone
	}
	in := kitchen.MoveInput{
		X:         kitchen.Float(c.X),
		Y:         kitchen.Float(c.Y),
		XPosition: kitchen.Float(c.XPosition),
		YPosition: kitchen.Float(c.YPosition),
	}
	p, err := b.facade.MoveNode(ctx, b.restaurantID, c.NodeID, in)
	if err != nil {
		b.drag.Settle(c.NodeID)
		b.notify(noticeFor(OpMove, err))
		return
	}
	b.logger.Debug("move dispatched", "node", c.NodeID, "x", c.X, "y", c.Y)
	b.lastOp = nodeOp(OpMove, c.NodeID, before, p)
}

// =============================================================================
// Commands
// =============================================================================

// Toggle flips the availability of nodeID. The snapshot changes only once
// the store confirms.
func (b *Board) Toggle(ctx context.Context, nodeID string) (*Op, error) {
	n, ok := b.graph.ActiveNode(nodeID)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %s is not on the board", nodeID)
	}
	before := n.Clone()
	p, err := b.facade.ToggleAvailability(ctx, b.restaurantID, nodeID)
	if err != nil {
		return nil, err
	}
	return nodeOp(OpToggle, nodeID, &before, p), nil
}

// CreateNode adds a node to the board's restaurant. A category that is not
// on the board is rejected before anything reaches the store.
func (b *Board) CreateNode(ctx context.Context, in kitchen.NodeInput) (*Op, error) {
	if in.RestaurantID == "" {
		in.RestaurantID = b.restaurantID
	}
	if in.CategoryID != "" {
		if _, ok := b.graph.Category(in.CategoryID); !ok {
			return nil, errors.Validation("category_id")
		}
	}
	p, err := b.facade.CreateNode(ctx, in)
	if err != nil {
		return nil, err
	}
	return nodeOp(OpCreateNode, mutation.CreateKey(in.EntityType, in.EntityID), nil, p), nil
}

// CreateEdge links two nodes of the board's restaurant.
func (b *Board) CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*Op, error) {
	if in.RestaurantID == "" {
		in.RestaurantID = b.restaurantID
	}
	p, err := b.facade.CreateEdge(ctx, in)
	if err != nil {
		return nil, err
	}
	return edgeOp(OpCreateEdge, mutation.EdgeKey(in.SourceNodeID, in.TargetNodeID), p), nil
}

// TargetKind distinguishes deletable items.
type TargetKind int

const (
	TargetNode TargetKind = iota
	TargetEdge
)

// Target is an item awaiting delete confirmation.
type Target struct {
	Kind  TargetKind
	ID    string
	Label string
}

// RequestDelete arms a delete that only runs after Confirm.
func (b *Board) RequestDelete(t Target) error {
	switch t.Kind {
	case TargetNode:
		n, ok := b.graph.ActiveNode(t.ID)
		if !ok {
			return errors.New(errors.ErrCodeNodeNotFound, "node %s is not on the board", t.ID)
		}
		t.Label = n.Label()
	case TargetEdge:
		e, ok := b.graph.Edge(t.ID)
		if !ok {
			return errors.New(errors.ErrCodeEdgeNotFound, "edge %s is not on the board", t.ID)
		}
		if t.Label = e.Label; t.Label == "" {
			t.Label = e.SourceNodeID + " → " + e.TargetNodeID
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown delete target")
	}
	b.pendingDelete = &t
	return nil
}

// PendingDelete returns the armed delete, if any.
func (b *Board) PendingDelete() (Target, bool) {
	if b.pendingDelete == nil {
		return Target{}, false
	}
	return *b.pendingDelete, true
}

// Dismiss cancels the armed delete.
func (b *Board) Dismiss() { b.pendingDelete = nil }

// Confirm dispatches the armed delete.
func (b *Board) Confirm(ctx context.Context) (*Op, error) {
	t := b.pendingDelete
	if t == nil {
		return nil, errors.New(errors.ErrCodeConfirmationRequired, "nothing to confirm")
	}
	b.pendingDelete = nil

	if t.Kind == TargetEdge {
		p, err := b.facade.DeleteEdge(ctx, b.restaurantID, t.ID)
		if err != nil {
			return nil, err
		}
		return deleteOp(OpDeleteEdge, t.ID, nil, p), nil
	}
	var before *kitchen.Node
	if n, ok := b.graph.Node(t.ID); ok {
		clone := n.Clone()
		before = &clone
	}
	p, err := b.facade.DeleteNode(ctx, b.restaurantID, t.ID)
	if err != nil {
		return nil, err
	}
	return deleteOp(OpDeleteNode, t.ID, before, p), nil
}

// =============================================================================
// Reconciliation
// =============================================================================

// Resolve reconciles the board with a finished Op and, when needed, reloads
// the snapshot before returning. Interactive callers use [Board.Reconcile]
// and [Board.Fetch] instead so the store read happens off their goroutine.
func (b *Board) Resolve(ctx context.Context, out Outcome) {
	if b.Reconcile(out) {
		b.ApplyRefresh(b.Fetch(ctx))
	}
}

// Reconcile applies a finished Op to the snapshot without touching the
// store and reports whether the snapshot should be reloaded.
//
// On success the returned entity is adopted. On not-found the stale item
// must be dropped by a reload. On any other failure the pre-intent node is
// restored. Every failure raises a notice, and a move's settling override
// is released once the snapshot holds the node's final position.
func (b *Board) Reconcile(out Outcome) (reload bool) {
	op := out.Op
	defer func() {
		if op.Kind == OpMove {
			b.drag.Settle(op.EntityID)
		}
	}()

	switch {
	case out.Err == nil:
		if out.Node != nil {
			if !b.graph.ReplaceNode(*out.Node) && op.Kind == OpCreateNode {
				b.graph.Nodes = append(b.graph.Nodes, *out.Node)
			}
		}
		if out.Edge != nil && op.Kind == OpCreateEdge {
			b.graph.Edges = append(b.graph.Edges, *out.Edge)
		}
		if op.Kind == OpDeleteNode {
			b.markDeleted(op.EntityID)
		}
		if op.Kind == OpDeleteEdge {
			b.dropEdge(op.EntityID)
		}
		return true

	case errors.IsNotFound(out.Err):
		b.notify(noticeFor(op.Kind, out.Err))
		return true

	default:
		if op.Before != nil {
			b.graph.ReplaceNode(op.Before.Clone())
		}
		b.notify(noticeFor(op.Kind, out.Err))
		return false
	}
}

// Fetch reads a fresh snapshot from the store, bypassing the cache. It does
// not touch the board's state, so it may run on any goroutine.
func (b *Board) Fetch(ctx context.Context) (*kitchen.Graph, error) {
	return b.facade.Loader().Graph(ctx, b.restaurantID, true)
}

// ApplyRefresh installs a snapshot returned by Fetch. A failed fetch keeps
// the current snapshot and raises a warning.
func (b *Board) ApplyRefresh(g *kitchen.Graph, err error) {
	if err != nil {
		b.logger.Warn("reload failed", "restaurant", b.restaurantID, "err", err)
		b.notify(Notice{
			Level:   LevelWarn,
			Message: "could not reload the board: " + errors.UserMessage(err),
			Code:    errors.GetCode(err),
			At:      time.Now(),
		})
		return
	}
	b.graph = g
}

func (b *Board) markDeleted(id string) {
	if n, ok := b.graph.Node(id); ok && !n.IsDeleted() {
		now := time.Now().UTC()
		n.DeletedAt = &now
	}
}

func (b *Board) dropEdge(id string) {
	edges := b.graph.Edges[:0]
	for _, e := range b.graph.Edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	b.graph.Edges = edges
}

// =============================================================================
// Notices
// =============================================================================

func (b *Board) notify(n Notice) {
	b.logger.Debug("notice", "level", n.Level, "msg", n.Message, "code", n.Code)
	b.notices = append(b.notices, n)
}

// Notices returns the queued notices without clearing them.
func (b *Board) Notices() []Notice {
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// DrainNotices returns and clears the queued notices.
func (b *Board) DrainNotices() []Notice {
	out := b.notices
	b.notices = nil
	return out
}
