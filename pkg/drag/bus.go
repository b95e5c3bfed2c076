package drag

import (
	"slices"
	"sync"

	"github.com/matzehuels/kitchenboard/pkg/layout"
)

// Point is a position, in screen units for pointer events and in percent
// for projections.
type Point = layout.Point

// Path is the rendered geometry of an edge.
type Path = layout.Path

// PointerKind distinguishes pointer events.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerUp
	PointerCancel
)

func (k PointerKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	}
	return "unknown"
}

// PointerEvent is a global pointer event in screen coordinates.
type PointerEvent struct {
	Kind PointerKind
	X, Y float64
}

// Point returns the event position.
func (e PointerEvent) Point() Point { return Point{X: e.X, Y: e.Y} }

// Handler receives pointer events.
type Handler func(PointerEvent)

// Bus fans pointer events out to subscribers. A drag session subscribes on
// start and unsubscribes on end, so events outside a drag reach nobody.
type Bus struct {
	mu   sync.Mutex
	next int
	subs []subscription // live only, in subscription order
}

type subscription struct {
	id int
	h  Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it. The returned
// function is safe to call more than once.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs = append(b.subs, subscription{id: id, h: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

// Publish delivers ev to every current subscriber in subscription order.
// Handlers may unsubscribe during delivery.
func (b *Bus) Publish(ev PointerEvent) {
	b.mu.Lock()
	hs := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		hs[i] = s.h
	}
	b.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Rect is the on-screen rectangle of the board surface.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Percent converts a screen point into percent of r.
func (r Rect) Percent(p Point) Point {
	return Point{
		X: (p.X - r.Left) / r.Width * 100,
		Y: (p.Y - r.Top) / r.Height * 100,
	}
}

// Screen converts a percent point of r back into screen coordinates.
func (r Rect) Screen(p Point) Point {
	return Point{
		X: r.Left + p.X/100*r.Width,
		Y: r.Top + p.Y/100*r.Height,
	}
}
