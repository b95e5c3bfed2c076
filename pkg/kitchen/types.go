package kitchen

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// =============================================================================
// Entity Types
// =============================================================================

// EntityType tags the entity a node represents.
type EntityType string

// Entity types a node can represent.
const (
	EntityDish         EntityType = "dish"
	EntityModification EntityType = "modification"
	EntityCategory     EntityType = "category"
)

// EntityTypes lists every entity type in display order.
var EntityTypes = []EntityType{EntityDish, EntityModification, EntityCategory}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityDish, EntityModification, EntityCategory:
		return true
	}
	return false
}

// ParseEntityType converts s (case-insensitive) into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Metadata keys the board understands. Everything else is free-form.
const (
	MetaLabel       = "label"
	MetaDescription = "description"
)

// Metadata is a free-form key-value map attached to a node.
type Metadata map[string]any

// =============================================================================
// Category
// =============================================================================

// Category groups nodes for display and filtering.
type Category struct {
	ID           string    `json:"id" bson:"_id"`
	RestaurantID string    `json:"restaurant_id" bson:"restaurant_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	DisplayOrder int       `json:"display_order" bson:"display_order"`
	Color        string    `json:"color,omitempty" bson:"color,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// =============================================================================
// Node
// =============================================================================

// Node is an inventory node: one dish, modification or category placed on
// the kitchen graph.
type Node struct {
	ID           string     `json:"id" bson:"_id"`
	RestaurantID string     `json:"restaurant_id" bson:"restaurant_id"`
	CategoryID   string     `json:"category_id,omitempty" bson:"category_id,omitempty"`
	EntityType   EntityType `json:"entity_type" bson:"entity_type"`
	EntityID     string     `json:"entity_id" bson:"entity_id"`
	DisplayName  string     `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Available    bool       `json:"available" bson:"available"`

	// Domain coordinates.
	X *float64 `json:"x,omitempty" bson:"x,omitempty"`
	Y *float64 `json:"y,omitempty" bson:"y,omitempty"`

	// Fractional coordinates in [0,1].
	XPosition *float64 `json:"x_position,omitempty" bson:"x_position,omitempty"`
	YPosition *float64 `json:"y_position,omitempty" bson:"y_position,omitempty"`

	Metadata  Metadata   `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
}

// Label returns the name shown on the board: the display name override,
// then the metadata label, then a synthetic "<type> #<entity id>".
func (n *Node) Label() string {
	if n.DisplayName != "" {
		return n.DisplayName
	}
	if s, ok := n.Metadata[MetaLabel].(string); ok && s != "" {
		return s
	}
	return fmt.Sprintf("%s #%s", n.EntityType, n.EntityID)
}

// IsDeleted reports whether the node carries a soft-delete marker.
func (n *Node) IsDeleted() bool { return n.DeletedAt != nil }

// HasDomain reports whether both domain coordinates are set.
func (n *Node) HasDomain() bool { return n.X != nil && n.Y != nil }

// HasFraction reports whether both fractional coordinates are set.
func (n *Node) HasFraction() bool { return n.XPosition != nil && n.YPosition != nil }

// Clone returns a deep copy of n.
func (n *Node) Clone() Node {
	out := *n
	out.X = clonePtr(n.X)
	out.Y = clonePtr(n.Y)
	out.XPosition = clonePtr(n.XPosition)
	out.YPosition = clonePtr(n.YPosition)
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		out.DeletedAt = &t
	}
	if n.Metadata != nil {
		out.Metadata = maps.Clone(n.Metadata)
	}
	return out
}

// SamePosition reports whether n and o hold identical position views.
func (n *Node) SamePosition(o *Node) bool {
	return eqPtr(n.X, o.X) && eqPtr(n.Y, o.Y) &&
		eqPtr(n.XPosition, o.XPosition) && eqPtr(n.YPosition, o.YPosition)
}

// =============================================================================
// Edge
// =============================================================================

// Edge links two nodes of the same restaurant.
type Edge struct {
	ID           string    `json:"id" bson:"_id"`
	RestaurantID string    `json:"restaurant_id" bson:"restaurant_id"`
	SourceNodeID string    `json:"source_node_id" bson:"source_node_id"`
	TargetNodeID string    `json:"target_node_id" bson:"target_node_id"`
	Label        string    `json:"label,omitempty" bson:"label,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Touches reports whether nodeID is either endpoint of e.
func (e *Edge) Touches(nodeID string) bool {
	return e.SourceNodeID == nodeID || e.TargetNodeID == nodeID
}

// Float returns a pointer to v. Handy for building positions.
func Float(v float64) *float64 { return &v }

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func eqPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
