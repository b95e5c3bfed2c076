// Package visibility projects a kitchen graph through the board filters.
//
// Filtering is a pure function of the graph snapshot and the [Filter]: it
// never touches the layout bounds, which are always derived from the full
// node set, so hiding nodes does not move the ones that remain.
package visibility

import (
	"fmt"
	"maps"
	"strings"

	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

// Availability selects nodes by their availability flag.
type Availability string

const (
	AvailabilityAll         Availability = "all"
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// ParseAvailability converts s into an Availability. Empty means all.
func ParseAvailability(s string) (Availability, error) {
	switch a := Availability(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AvailabilityAll, nil
	case AvailabilityAll, AvailabilityAvailable, AvailabilityUnavailable:
		return a, nil
	}
	return "", fmt.Errorf("unknown availability %q", s)
}

// Next cycles all → available → unavailable → all.
func (a Availability) Next() Availability {
	switch a {
	case AvailabilityAll, "":
		return AvailabilityAvailable
	case AvailabilityAvailable:
		return AvailabilityUnavailable
	default:
		return AvailabilityAll
	}
}

func (a Availability) match(available bool) bool {
	switch a {
	case AvailabilityAvailable:
		return available
	case AvailabilityUnavailable:
		return !available
	default:
		return true
	}
}

// Filter is the set of board filters. The zero CategoryID and Search match
// everything.
type Filter struct {
	EntityTypes  map[kitchen.EntityType]bool
	Availability Availability
	CategoryID   string
	Search       string
}

// DefaultFilter enables every entity type and shows all nodes.
func DefaultFilter() Filter {
	types := make(map[kitchen.EntityType]bool, len(kitchen.EntityTypes))
	for _, t := range kitchen.EntityTypes {
		types[t] = true
	}
	return Filter{EntityTypes: types, Availability: AvailabilityAll}
}

// Clone returns a copy of f that shares no state with it.
func (f Filter) Clone() Filter {
	f.EntityTypes = maps.Clone(f.EntityTypes)
	return f
}

// ToggleType flips whether nodes of type t are shown.
func (f *Filter) ToggleType(t kitchen.EntityType) {
	if f.EntityTypes == nil {
		f.EntityTypes = make(map[kitchen.EntityType]bool)
	}
	f.EntityTypes[t] = !f.EntityTypes[t]
}

// Match reports whether n passes every filter. Soft-deleted nodes never match.
func (f *Filter) Match(n *kitchen.Node) bool {
	if n.IsDeleted() {
		return false
	}
	if !f.EntityTypes[n.EntityType] {
		return false
	}
	if !f.Availability.match(n.Available) {
		return false
	}
	if f.CategoryID != "" && n.CategoryID != f.CategoryID {
		return false
	}
	return matchSearch(n, f.Search)
}

func matchSearch(n *kitchen.Node, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Label()), q) {
		return true
	}
	for _, v := range n.Metadata {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// View is the visible subset of a graph.
type View struct {
	Nodes   []kitchen.Node
	Edges   []kitchen.Edge
	NodeIDs map[string]bool
}

// Visible reports whether the node with the given id is in the view.
func (v *View) Visible(id string) bool { return v.NodeIDs[id] }

// Apply computes the visible nodes and edges. An edge is visible iff both of
// its endpoints are visible, so edges to deleted or unknown nodes are hidden
// but never removed from the graph.
func Apply(g *kitchen.Graph, f Filter) View {
	v := View{NodeIDs: make(map[string]bool)}
	if g == nil {
		return v
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if f.Match(n) {
			v.Nodes = append(v.Nodes, *n)
			v.NodeIDs[n.ID] = true
		}
	}
	for _, e := range g.Edges {
		if v.NodeIDs[e.SourceNodeID] && v.NodeIDs[e.TargetNodeID] {
			v.Edges = append(v.Edges, e)
		}
	}
	return v
}
