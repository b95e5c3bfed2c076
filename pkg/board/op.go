package board

import (
	"context"
	"time"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/mutation"
)

// OpKind names a user intent.
type OpKind int

const (
	OpMove OpKind = iota
	OpToggle
	OpDeleteNode
	OpCreateNode
	OpCreateEdge
	OpDeleteEdge
)

func (k OpKind) String() string {
	switch k {
	case OpMove:
		return "move"
	case OpToggle:
		return "toggle"
	case OpDeleteNode:
		return "delete node"
	case OpCreateNode:
		return "create node"
	case OpCreateEdge:
		return "create edge"
	case OpDeleteEdge:
		return "delete edge"
	}
	return "unknown"
}

// Op is a dispatched intent waiting for the store. Wait may be called from
// any goroutine; the Outcome must be handed back to [Board.Resolve] on the
// goroutine that owns the board.
type Op struct {
	Kind     OpKind
	EntityID string
	// Before is the node as it was when the intent was made, used to roll
	// back a failed move or toggle.
	Before *kitchen.Node

	wait func(ctx context.Context) (*kitchen.Node, *kitchen.Edge, error)
}

// Outcome is the settled result of an Op.
type Outcome struct {
	Op   *Op
	Node *kitchen.Node
	Edge *kitchen.Edge
	Err  error
}

// Wait blocks until the store answered or ctx ended.
func (o *Op) Wait(ctx context.Context) Outcome {
	n, e, err := o.wait(ctx)
	return Outcome{Op: o, Node: n, Edge: e, Err: err}
}

func nodeOp(kind OpKind, id string, before *kitchen.Node, p *mutation.Pending[*kitchen.Node]) *Op {
	return &Op{Kind: kind, EntityID: id, Before: before, wait: func(ctx context.Context) (*kitchen.Node, *kitchen.Edge, error) {
		n, err := p.Wait(ctx)
		return n, nil, err
	}}
}

func edgeOp(kind OpKind, id string, p *mutation.Pending[*kitchen.Edge]) *Op {
	return &Op{Kind: kind, EntityID: id, wait: func(ctx context.Context) (*kitchen.Node, *kitchen.Edge, error) {
		e, err := p.Wait(ctx)
		return nil, e, err
	}}
}

func deleteOp(kind OpKind, id string, before *kitchen.Node, p *mutation.Pending[struct{}]) *Op {
	return &Op{Kind: kind, EntityID: id, Before: before, wait: func(ctx context.Context) (*kitchen.Node, *kitchen.Edge, error) {
		_, err := p.Wait(ctx)
		return nil, nil, err
	}}
}

// =============================================================================
// Notices
// =============================================================================

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notice is a transient, user-facing message.
type Notice struct {
	Level   Level
	Message string
	Code    errors.Code
	Fields  []string
	At      time.Time
}

func noticeFor(op OpKind, err error) Notice {
	n := Notice{
		Level:   LevelError,
		Message: op.String() + " failed: " + errors.UserMessage(err),
		Code:    errors.GetCode(err),
		Fields:  errors.FieldsOf(err),
		At:      time.Now(),
	}
	if errors.IsNotFound(err) {
		n.Level = LevelWarn
		n.Message = op.String() + ": the item no longer exists, reloading"
	}
	return n
}
