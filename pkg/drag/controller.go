// Package drag implements the drag session state machine of the board.
//
// A session starts when a node is pressed, follows global pointer events
// delivered through a [Bus], and ends on pointer up or pointer cancel. Both
// end events commit: a drag whose normalized displacement stays under
// [Epsilon] on both axes is a no-op, anything else yields exactly one
// [Commit] with the position in both coordinate views.
//
//	Idle ──Begin──▶ Dragging ──up/cancel──▶ Committing ──▶ Idle
//
// After a commit the last live position stays available as a "settling"
// override until the caller settles it, so the node does not jump back to
// its stale snapshot position while the write is in flight.
//
// A Controller is driven from a single goroutine (the UI loop) and never
// blocks.
package drag

import (
	"math"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/layout"
)

// Epsilon is the normalized displacement below which a drag is a no-op.
const Epsilon = 0.001

// State is the controller state.
type State int

const (
	Idle State = iota
	Dragging
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	}
	return "unknown"
}

// Frame supplies what the controller needs from its surroundings at the
// moment it needs it.
type Frame interface {
	// Bounds returns the current layout bounds.
	Bounds() layout.Bounds
	// InFlight reports whether a mutation for nodeID is pending.
	InFlight(nodeID string) bool
}

// Anchor identifies the pressed node and where it is currently drawn.
type Anchor struct {
	NodeID     string
	Projection layout.Projection
}

// Session is an active drag.
type Session struct {
	NodeID   string
	Viewport Rect
	Offset   Point
	Start    layout.Projection
	Current  layout.Projection
}

// Commit is the position a finished drag asks to persist.
type Commit struct {
	NodeID    string
	X, Y      float64
	XPosition float64
	YPosition float64
	From      layout.Projection
	To        layout.Projection
}

// CommitFunc receives the commit of a finished drag.
type CommitFunc func(Commit)

// Controller owns the drag state machine.
type Controller struct {
	bus      *Bus
	frame    Frame
	opts     layout.Options
	onCommit CommitFunc

	state       State
	session     *Session
	unsubscribe func()
	settling    map[string]layout.Projection
}

// New returns an idle controller.
func New(bus *Bus, frame Frame, opts layout.Options, onCommit CommitFunc) *Controller {
	return &Controller{
		bus:      bus,
		frame:    frame,
		opts:     opts,
		onCommit: onCommit,
		settling: make(map[string]layout.Projection),
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Session returns the active session, if any.
func (c *Controller) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Begin starts a drag of the anchored node. pointer is the press position
// in screen coordinates and viewport the surface rectangle at press time.
func (c *Controller) Begin(anchor Anchor, pointer Point, viewport Rect) error {
	if c.state != Idle {
		return errors.New(errors.ErrCodeInFlight, "a drag is already in progress")
	}
	if anchor.NodeID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "drag anchor has no node")
	}
	if c.frame.InFlight(anchor.NodeID) {
		return errors.New(errors.ErrCodeInFlight, "node %s has a pending change", anchor.NodeID)
	}
	if viewport.Empty() {
		return errors.New(errors.ErrCodeInvalidInput, "board surface has no size")
	}

	at := viewport.Percent(pointer)
	c.session = &Session{
		NodeID:   anchor.NodeID,
		Viewport: viewport,
		Offset:   Point{X: at.X - anchor.Projection.Left, Y: at.Y - anchor.Projection.Top},
		Start:    anchor.Projection,
		Current:  anchor.Projection,
	}
	delete(c.settling, anchor.NodeID)
	c.state = Dragging
	c.unsubscribe = c.bus.Subscribe(c.handle)
	return nil
}

func (c *Controller) handle(ev PointerEvent) {
	if c.state != Dragging {
		return
	}
	switch ev.Kind {
	case PointerMove:
		c.move(ev.Point())
	case PointerUp, PointerCancel:
		c.end()
	}
}

func (c *Controller) move(p Point) {
	s := c.session
	at := s.Viewport.Percent(p)
	left := layout.ClampPercent(at.X-s.Offset.X, c.opts)
	top := layout.ClampPercent(at.Y-s.Offset.Y, c.opts)
	s.Current = layout.FromNormalized(
		layout.NormalizedFromPercent(left, c.opts),
		layout.NormalizedFromPercent(top, c.opts),
		c.opts,
	)
}

func (c *Controller) end() {
	c.state = Committing
	s := c.session

	if math.Abs(s.Current.NormX-s.Start.NormX) >= Epsilon ||
		math.Abs(s.Current.NormY-s.Start.NormY) >= Epsilon {
		b := c.frame.Bounds()
		commit := Commit{
			NodeID:    s.NodeID,
			X:         math.Round(b.Denormalize(layout.AxisX, s.Current.NormX)),
			Y:         math.Round(b.Denormalize(layout.AxisY, s.Current.NormY)),
			XPosition: layout.RoundFraction(s.Current.NormX),
			YPosition: layout.RoundFraction(s.Current.NormY),
			From:      s.Start,
			To:        s.Current,
		}
		c.settling[s.NodeID] = s.Current
		if c.onCommit != nil {
			c.onCommit(commit)
		}
	}

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.session = nil
	c.state = Idle
}

// Override returns the position the node should be drawn at instead of its
// snapshot position: the live drag position or a settling commit.
func (c *Controller) Override(nodeID string) (layout.Projection, bool) {
	if c.session != nil && c.session.NodeID == nodeID {
		return c.session.Current, true
	}
	p, ok := c.settling[nodeID]
	return p, ok
}

// Dragging reports whether nodeID is the node being dragged.
func (c *Controller) Dragging(nodeID string) bool {
	return c.session != nil && c.session.NodeID == nodeID
}

// Settling reports whether nodeID holds a committed, unsettled override.
func (c *Controller) Settling(nodeID string) bool {
	_, ok := c.settling[nodeID]
	return ok
}

// Settle drops the settling override of nodeID once its write resolved.
func (c *Controller) Settle(nodeID string) {
	delete(c.settling, nodeID)
}

// EdgePath returns the straight path between two endpoint positions.
func EdgePath(from, to Point) Path {
	return layout.NewPath(from, to)
}
