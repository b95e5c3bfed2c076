package kitchen

import (
	"maps"

	"github.com/matzehuels/kitchenboard/pkg/errors"
)

// NodeInput is the payload for creating a node.
type NodeInput struct {
	RestaurantID string     `json:"restaurant_id"`
	CategoryID   string     `json:"category_id"`
	EntityType   EntityType `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	DisplayName  string     `json:"display_name,omitempty"`
	Available    *bool      `json:"available,omitempty"`
	X            *float64   `json:"x,omitempty"`
	Y            *float64   `json:"y,omitempty"`
	XPosition    *float64   `json:"x_position,omitempty"`
	YPosition    *float64   `json:"y_position,omitempty"`
	Metadata     Metadata   `json:"metadata,omitempty"`
}

// Validate reports every missing or malformed required field at once.
// A category id is required for creation even though stored nodes may
// transiently lack one.
func (in *NodeInput) Validate() error {
	var fields []string
	if in.RestaurantID == "" {
		fields = append(fields, "restaurant_id")
	}
	if in.CategoryID == "" {
		fields = append(fields, "category_id")
	}
	if !in.EntityType.Valid() {
		fields = append(fields, "entity_type")
	}
	if in.EntityID == "" {
		fields = append(fields, "entity_id")
	}
	fields = append(fields, positionFields(in.X, in.Y, in.XPosition, in.YPosition)...)
	if len(fields) > 0 {
		return errors.Validation(fields...)
	}
	return nil
}

// Node builds the node described by in. Availability defaults to true.
// The caller assigns id and timestamps.
func (in *NodeInput) Node() Node {
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	n := Node{
		RestaurantID: in.RestaurantID,
		CategoryID:   in.CategoryID,
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		DisplayName:  in.DisplayName,
		Available:    available,
		X:            clonePtr(in.X),
		Y:            clonePtr(in.Y),
		XPosition:    clonePtr(in.XPosition),
		YPosition:    clonePtr(in.YPosition),
	}
	if in.Metadata != nil {
		n.Metadata = maps.Clone(in.Metadata)
	}
	return n
}

// MoveInput is the payload for repositioning a node. Either or both
// coordinate views may be supplied.
type MoveInput struct {
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	XPosition *float64 `json:"x_position,omitempty"`
	YPosition *float64 `json:"y_position,omitempty"`
}

// Validate requires at least one complete coordinate pair. Pairs are
// both-or-none and fractional values must lie in [0,1].
func (in *MoveInput) Validate() error {
	fields := positionFields(in.X, in.Y, in.XPosition, in.YPosition)
	if len(fields) == 0 && in.X == nil && in.XPosition == nil {
		fields = []string{"x", "y", "x_position", "y_position"}
	}
	if len(fields) > 0 {
		return errors.Validation(fields...)
	}
	return nil
}

// Apply writes the supplied coordinate views onto n. Views that are not
// supplied are left untouched, so applying the same input twice yields the
// same stored position.
func (in *MoveInput) Apply(n *Node) {
	if in.X != nil && in.Y != nil {
		n.X, n.Y = clonePtr(in.X), clonePtr(in.Y)
	}
	if in.XPosition != nil && in.YPosition != nil {
		n.XPosition, n.YPosition = clonePtr(in.XPosition), clonePtr(in.YPosition)
	}
}

// EdgeInput is the payload for creating an edge.
type EdgeInput struct {
	RestaurantID string `json:"restaurant_id"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
	Label        string `json:"label,omitempty"`
}

// Validate checks required fields. A self loop is reported on target_node_id.
// Whether the endpoints resolve is the store's concern.
func (in *EdgeInput) Validate() error {
	var fields []string
	if in.RestaurantID == "" {
		fields = append(fields, "restaurant_id")
	}
	if in.SourceNodeID == "" {
		fields = append(fields, "source_node_id")
	}
	if in.TargetNodeID == "" {
		fields = append(fields, "target_node_id")
	}
	if len(fields) == 0 && in.SourceNodeID == in.TargetNodeID {
		fields = append(fields, "target_node_id")
	}
	if len(fields) > 0 {
		return errors.Validation(fields...)
	}
	return nil
}

// Edge builds the edge described by in. The caller assigns id and timestamps.
func (in *EdgeInput) Edge() Edge {
	return Edge{
		RestaurantID: in.RestaurantID,
		SourceNodeID: in.SourceNodeID,
		TargetNodeID: in.TargetNodeID,
		Label:        in.Label,
	}
}

// positionFields returns the offending fields among the optional position
// views: half-specified pairs and fractions outside [0,1].
func positionFields(x, y, xp, yp *float64) []string {
	var fields []string
	if (x == nil) != (y == nil) {
		if x == nil {
			fields = append(fields, "x")
		} else {
			fields = append(fields, "y")
		}
	}
	if (xp == nil) != (yp == nil) {
		if xp == nil {
			fields = append(fields, "x_position")
		} else {
			fields = append(fields, "y_position")
		}
	}
	if xp != nil && (*xp < 0 || *xp > 1) {
		fields = append(fields, "x_position")
	}
	if yp != nil && (*yp < 0 || *yp > 1) {
		fields = append(fields, "y_position")
	}
	return fields
}
