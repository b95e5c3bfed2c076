// Package layout maps node positions between the persisted domain
// coordinate space and the padded percentage space the board draws in.
//
// # Coordinate Spaces
//
//	domain      (x, y)            unbounded, arbitrary unit, persisted
//	normalized  (nx, ny) ∈ [0,1]  domain rescaled against the current Bounds
//	percent     (left, top)       normalized mapped into [P, 100−P]
//
// The mapping is driven by [Bounds], recomputed from the full (unfiltered)
// node set on every render so that filtering never reshuffles the nodes
// that remain visible.
//
// # Degenerate Input
//
// An axis with no domain coordinates gets a symmetric frame of EmptySpan
// around zero. An axis whose raw span is below MinSpan is expanded
// symmetrically around its midpoint, so a single node or a collinear layout
// always has a non-zero denominator and lands in the middle of the surface.
//
// # Usage
//
//	opts := layout.DefaultOptions()
//	b := layout.ComputeBounds(g.Nodes, opts)
//	p := layout.Project(&node, b, opts)        // p.Left, p.Top in percent
//	x := b.DomainFromPercent(layout.AxisX, p.Left, opts)
package layout

import (
	"fmt"
	"math"

	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultMinSpan is the smallest range an axis may have, in domain units.
	DefaultMinSpan = 100.0

	// DefaultEmptySpan is the range synthesized for an axis with no domain
	// coordinates at all.
	DefaultEmptySpan = 200.0

	// DefaultPadding is the percentage reserved on every side of the surface.
	DefaultPadding = 8.0

	// FractionDecimals is the precision fractional positions are persisted with.
	FractionDecimals = 4
)

// Options configures the projection.
type Options struct {
	MinSpan   float64 `toml:"min_span" json:"min_span"`
	EmptySpan float64 `toml:"empty_span" json:"empty_span"`
	Padding   float64 `toml:"padding" json:"padding"`
}

// DefaultOptions returns the standard board projection settings.
func DefaultOptions() Options {
	return Options{
		MinSpan:   DefaultMinSpan,
		EmptySpan: DefaultEmptySpan,
		Padding:   DefaultPadding,
	}
}

// Validate checks that spans are positive and padding leaves a usable area.
func (o Options) Validate() error {
	if o.MinSpan <= 0 {
		return fmt.Errorf("min_span must be positive, got %v", o.MinSpan)
	}
	if o.EmptySpan <= 0 {
		return fmt.Errorf("empty_span must be positive, got %v", o.EmptySpan)
	}
	if o.Padding < 0 || o.Padding >= 50 {
		return fmt.Errorf("padding must be in [0, 50), got %v", o.Padding)
	}
	return nil
}

// Usable returns the drawable span U = 100 − 2P.
func (o Options) Usable() float64 { return 100 - 2*o.Padding }

// =============================================================================
// Bounds
// =============================================================================

// Axis selects the horizontal or vertical coordinate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Bounds is the min/max/range envelope of the node set, expanded to the
// minimum span. It is derived on every render and never persisted.
type Bounds struct {
	MinX   float64 `json:"min_x"`
	MaxX   float64 `json:"max_x"`
	MinY   float64 `json:"min_y"`
	MaxY   float64 `json:"max_y"`
	RangeX float64 `json:"range_x"`
	RangeY float64 `json:"range_y"`
}

// ComputeBounds derives the bounds from nodes. Soft-deleted nodes and nodes
// without a domain coordinate on an axis do not contribute to that axis.
func ComputeBounds(nodes []kitchen.Node, opts Options) Bounds {
	var xs, ys axisExtent
	for i := range nodes {
		n := &nodes[i]
		if n.IsDeleted() {
			continue
		}
		if n.X != nil {
			xs.add(*n.X)
		}
		if n.Y != nil {
			ys.add(*n.Y)
		}
	}
	minX, maxX := xs.frame(opts)
	minY, maxY := ys.frame(opts)
	return Bounds{
		MinX:   minX,
		MaxX:   maxX,
		MinY:   minY,
		MaxY:   maxY,
		RangeX: math.Max(maxX-minX, opts.MinSpan),
		RangeY: math.Max(maxY-minY, opts.MinSpan),
	}
}

// Min returns the lower bound of the axis.
func (b Bounds) Min(a Axis) float64 {
	if a == AxisY {
		return b.MinY
	}
	return b.MinX
}

// Range returns the span of the axis.
func (b Bounds) Range(a Axis) float64 {
	if a == AxisY {
		return b.RangeY
	}
	return b.RangeX
}

// Normalize rescales a domain coordinate into [0,1] against the axis.
func (b Bounds) Normalize(a Axis, v float64) float64 {
	return Clamp01((v - b.Min(a)) / b.Range(a))
}

// Denormalize maps a normalized value back to an unrounded domain coordinate.
func (b Bounds) Denormalize(a Axis, n float64) float64 {
	return b.Min(a) + Clamp01(n)*b.Range(a)
}

// DomainFromPercent inverts the projection for a percentage position,
// rounded to the nearest integer domain unit.
func (b Bounds) DomainFromPercent(a Axis, percent float64, opts Options) float64 {
	return math.Round(b.Denormalize(a, NormalizedFromPercent(percent, opts)))
}

// PercentFromDomain projects a domain coordinate to a percentage position.
func (b Bounds) PercentFromDomain(a Axis, v float64, opts Options) float64 {
	return PercentFromNormalized(b.Normalize(a, v), opts)
}

type axisExtent struct {
	min, max float64
	seen     bool
}

func (e *axisExtent) add(v float64) {
	if !e.seen {
		e.min, e.max, e.seen = v, v, true
		return
	}
	e.min = math.Min(e.min, v)
	e.max = math.Max(e.max, v)
}

func (e *axisExtent) frame(opts Options) (lo, hi float64) {
	if !e.seen {
		return -opts.EmptySpan / 2, opts.EmptySpan / 2
	}
	lo, hi = e.min, e.max
	if hi-lo < opts.MinSpan {
		mid := (lo + hi) / 2
		lo, hi = mid-opts.MinSpan/2, mid+opts.MinSpan/2
	}
	return lo, hi
}

// =============================================================================
// Projection
// =============================================================================

// Projection is a node's rendered position.
type Projection struct {
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	NormX float64 `json:"norm_x"`
	NormY float64 `json:"norm_y"`
}

// Point returns the projection as a percentage point.
func (p Projection) Point() Point { return Point{X: p.Left, Y: p.Top} }

// Project resolves the node's position views once per axis: the domain
// coordinate when present, else the fractional coordinate, else the centre.
func Project(n *kitchen.Node, b Bounds, opts Options) Projection {
	nx := resolve(n.X, n.XPosition, AxisX, b)
	ny := resolve(n.Y, n.YPosition, AxisY, b)
	return FromNormalized(nx, ny, opts)
}

// FromNormalized builds a projection from normalized coordinates.
func FromNormalized(nx, ny float64, opts Options) Projection {
	nx, ny = Clamp01(nx), Clamp01(ny)
	return Projection{
		Left:  PercentFromNormalized(nx, opts),
		Top:   PercentFromNormalized(ny, opts),
		NormX: nx,
		NormY: ny,
	}
}

func resolve(domain, fraction *float64, a Axis, b Bounds) float64 {
	switch {
	case domain != nil:
		return b.Normalize(a, *domain)
	case fraction != nil:
		return Clamp01(*fraction)
	default:
		return 0.5
	}
}

// PercentFromNormalized maps n ∈ [0,1] into the padded range [P, 100−P].
func PercentFromNormalized(n float64, opts Options) float64 {
	return opts.Padding + Clamp01(n)*opts.Usable()
}

// NormalizedFromPercent inverts PercentFromNormalized, clamping to [0,1].
func NormalizedFromPercent(p float64, opts Options) float64 {
	u := opts.Usable()
	if u <= 0 {
		return 0.5
	}
	return Clamp01((p - opts.Padding) / u)
}

// ClampPercent keeps p out of the padding margin.
func ClampPercent(p float64, opts Options) float64 {
	return math.Min(math.Max(p, opts.Padding), 100-opts.Padding)
}

// Clamp01 clamps v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RoundFraction rounds a fractional coordinate to the persisted precision.
func RoundFraction(v float64) float64 {
	const scale = 1e4
	return math.Round(v*scale) / scale
}

// =============================================================================
// Geometry
// =============================================================================

// Point is a position in percentage space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is the rendered geometry of an edge.
type Path struct {
	From Point `json:"from"`
	To   Point `json:"to"`
	Mid  Point `json:"mid"`
}

// NewPath builds the straight path between two points with its midpoint,
// used for label placement.
func NewPath(from, to Point) Path {
	return Path{
		From: from,
		To:   to,
		Mid:  Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2},
	}
}
