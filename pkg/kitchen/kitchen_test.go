package kitchen

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/kitchenboard/pkg/errors"
)

func testGraph() *Graph {
	deleted := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Graph{
		RestaurantID: "r1",
		Categories: []Category{
			{ID: "c2", Name: "Drinks", DisplayOrder: 2},
			{ID: "c1", Name: "Mains", DisplayOrder: 1},
		},
		Nodes: []Node{
			{ID: "n2", RestaurantID: "r1", CategoryID: "c1", EntityType: EntityDish, EntityID: "d2", Available: true, X: Float(100), Y: Float(0)},
			{ID: "n1", RestaurantID: "r1", CategoryID: "c1", EntityType: EntityDish, EntityID: "d1", DisplayName: "Burger", Available: true, X: Float(0), Y: Float(0)},
			{ID: "n3", RestaurantID: "r1", CategoryID: "c2", EntityType: EntityModification, EntityID: "m1", DeletedAt: &deleted},
		},
		Edges: []Edge{
			{ID: "e2", RestaurantID: "r1", SourceNodeID: "n1", TargetNodeID: "n3"},
			{ID: "e1", RestaurantID: "r1", SourceNodeID: "n1", TargetNodeID: "n2", Label: "with"},
		},
	}
}

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityType
		wantErr bool
	}{
		{"dish", EntityDish, false},
		{" Modification ", EntityModification, false},
		{"CATEGORY", EntityCategory, false},
		{"drink", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEntityType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEntityType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNodeLabel(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"display name", Node{DisplayName: "Fries", Metadata: Metadata{MetaLabel: "ignored"}}, "Fries"},
		{"metadata label", Node{Metadata: Metadata{MetaLabel: "Extra cheese"}}, "Extra cheese"},
		{"non-string label", Node{EntityType: EntityDish, EntityID: "7", Metadata: Metadata{MetaLabel: 3}}, "dish #7"},
		{"fallback", Node{EntityType: EntityModification, EntityID: "42"}, "modification #42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeClone(t *testing.T) {
	n := Node{ID: "n", X: Float(1), Y: Float(2), Metadata: Metadata{"k": "v"}}
	c := n.Clone()
	*c.X = 99
	c.Metadata["k"] = "changed"

	if *n.X != 1 {
		t.Errorf("original X = %v, want 1", *n.X)
	}
	if n.Metadata["k"] != "v" {
		t.Errorf("original metadata = %v, want v", n.Metadata["k"])
	}
	if n.SamePosition(&c) {
		t.Error("SamePosition() = true after changing clone")
	}
}

func TestGraphLookups(t *testing.T) {
	g := testGraph()

	if _, ok := g.Node("n3"); !ok {
		t.Error("Node(n3) should find soft-deleted node")
	}
	if _, ok := g.ActiveNode("n3"); ok {
		t.Error("ActiveNode(n3) should skip soft-deleted node")
	}
	if _, ok := g.Edge("e1"); !ok {
		t.Error("Edge(e1) not found")
	}
	if _, ok := g.Category("missing"); ok {
		t.Error("Category(missing) found")
	}
	if got := len(g.ActiveNodes()); got != 2 {
		t.Errorf("ActiveNodes() = %d, want 2", got)
	}

	cats := g.SortedCategories()
	if cats[0].ID != "c1" || cats[1].ID != "c2" {
		t.Errorf("SortedCategories() order = %s,%s", cats[0].ID, cats[1].ID)
	}
}

func TestGraphReplaceNodeAndClone(t *testing.T) {
	g := testGraph()
	c := g.Clone()

	n, _ := c.Node("n1")
	moved := n.Clone()
	moved.X = Float(50)
	if !c.ReplaceNode(moved) {
		t.Fatal("ReplaceNode returned false")
	}
	if c.ReplaceNode(Node{ID: "nope"}) {
		t.Error("ReplaceNode(nope) returned true")
	}

	orig, _ := g.Node("n1")
	if *orig.X != 0 {
		t.Errorf("original graph mutated through clone: X = %v", *orig.X)
	}
	got, _ := c.Node("n1")
	if *got.X != 50 {
		t.Errorf("clone X = %v, want 50", *got.X)
	}
}

func TestGraphStats(t *testing.T) {
	s := testGraph().Stats()
	want := Stats{
		Nodes:      2,
		Deleted:    1,
		Edges:      2,
		Dangling:   1,
		Categories: 2,
		ByType:     map[EntityType]int{EntityDish: 2},
	}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("Stats() = %+v, want %+v", s, want)
	}
}

func TestNodeInputValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      NodeInput
		wantFields []string
	}{
		{
			name:  "valid",
			input: NodeInput{RestaurantID: "r", CategoryID: "c", EntityType: EntityDish, EntityID: "d"},
		},
		{
			name:       "missing everything",
			input:      NodeInput{},
			wantFields: []string{"restaurant_id", "category_id", "entity_type", "entity_id"},
		},
		{
			name:       "no category selected",
			input:      NodeInput{RestaurantID: "r", EntityType: EntityModification, EntityID: "m"},
			wantFields: []string{"category_id"},
		},
		{
			name:       "modification with no backing option",
			input:      NodeInput{RestaurantID: "r", CategoryID: "c", EntityType: EntityModification},
			wantFields: []string{"entity_id"},
		},
		{
			name:       "half position",
			input:      NodeInput{RestaurantID: "r", CategoryID: "c", EntityType: EntityDish, EntityID: "d", X: Float(1)},
			wantFields: []string{"y"},
		},
		{
			name:       "fraction out of range",
			input:      NodeInput{RestaurantID: "r", CategoryID: "c", EntityType: EntityDish, EntityID: "d", XPosition: Float(1.5), YPosition: Float(0.5)},
			wantFields: []string{"x_position"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, errors.ErrCodeValidation) {
				t.Fatalf("Validate() = %v, want validation error", err)
			}
			if got := errors.FieldsOf(err); !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestNodeInputNode(t *testing.T) {
	in := NodeInput{RestaurantID: "r", CategoryID: "c", EntityType: EntityDish, EntityID: "d", X: Float(3), Y: Float(4)}
	n := in.Node()
	if !n.Available {
		t.Error("Available should default to true")
	}
	*in.X = 10
	if *n.X != 3 {
		t.Error("Node() must copy position pointers")
	}

	off := false
	in.Available = &off
	if in.Node().Available {
		t.Error("Available = true, want explicit false")
	}
}

func TestMoveInput(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		err := (&MoveInput{}).Validate()
		if !errors.Is(err, errors.ErrCodeValidation) {
			t.Fatalf("Validate() = %v, want validation error", err)
		}
	})

	t.Run("fraction only", func(t *testing.T) {
		in := MoveInput{XPosition: Float(0.25), YPosition: Float(0.75)}
		if err := in.Validate(); err != nil {
			t.Fatalf("Validate() = %v", err)
		}
		n := Node{X: Float(1), Y: Float(2)}
		in.Apply(&n)
		if *n.X != 1 || *n.XPosition != 0.25 || *n.YPosition != 0.75 {
			t.Errorf("Apply() = %+v", n)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		in := MoveInput{X: Float(10), Y: Float(-20), XPosition: Float(0.1), YPosition: Float(0.2)}
		a := Node{}
		in.Apply(&a)
		b := a.Clone()
		in.Apply(&b)
		if !a.SamePosition(&b) {
			t.Errorf("second Apply changed position: %+v vs %+v", a, b)
		}
	})
}

func TestEdgeInputValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      EdgeInput
		wantFields []string
	}{
		{"valid", EdgeInput{RestaurantID: "r", SourceNodeID: "a", TargetNodeID: "b"}, nil},
		{"missing source", EdgeInput{RestaurantID: "r", TargetNodeID: "b"}, []string{"source_node_id"}},
		{"missing all", EdgeInput{}, []string{"restaurant_id", "source_node_id", "target_node_id"}},
		{"self loop", EdgeInput{RestaurantID: "r", SourceNodeID: "a", TargetNodeID: "a"}, []string{"target_node_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if got := errors.FieldsOf(err); !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("fields = %v, want %v (err %v)", got, tt.wantFields, err)
			}
		})
	}
}

func TestMarshalGraphSorted(t *testing.T) {
	data, err := MarshalGraph(testGraph())
	if err != nil {
		t.Fatalf("MarshalGraph: %v", err)
	}

	var out Graph
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Nodes[0].ID != "n1" || out.Edges[0].ID != "e1" || out.Categories[0].ID != "c1" {
		t.Errorf("output not sorted: %s %s %s", out.Nodes[0].ID, out.Edges[0].ID, out.Categories[0].ID)
	}
	if strings.Contains(string(data), "null") {
		t.Error("nil positions and markers must be omitted")
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantEdges int
		wantErr   bool
	}{
		{
			name: "Valid",
			input: `{
				"restaurant_id": "r1",
				"nodes": [
					{"id": "a", "entity_type": "dish", "entity_id": "1", "x": 0, "y": 0},
					{"id": "b", "entity_type": "modification", "entity_id": "2", "x_position": 0.5, "y_position": 0.5}
				],
				"edges": [{"id": "e", "source_node_id": "a", "target_node_id": "b"}]
			}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:      "DanglingEdgeAllowed",
			input:     `{"nodes": [], "edges": [{"id": "e", "source_node_id": "x", "target_node_id": "y"}]}`,
			wantEdges: 1,
		},
		{
			name:    "DuplicateNode",
			input:   `{"nodes": [{"id": "a", "entity_type": "dish", "entity_id": "1"}, {"id": "a", "entity_type": "dish", "entity_id": "2"}]}`,
			wantErr: true,
		},
		{
			name:    "MissingEntity",
			input:   `{"nodes": [{"id": "a", "entity_type": "dish"}]}`,
			wantErr: true,
		},
		{
			name:    "Invalid",
			input:   `{invalid json}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if got := len(g.Nodes); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(g.Edges); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
		})
	}
}

func TestGraphFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.json")
	if err := WriteGraphFile(testGraph(), path); err != nil {
		t.Fatalf("WriteGraphFile: %v", err)
	}

	g, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	n, ok := g.Node("n3")
	if !ok || !n.IsDeleted() {
		t.Errorf("soft-delete marker lost: %+v", n)
	}
	if n, _ := g.Node("n2"); n.X == nil || *n.X != 100 {
		t.Errorf("domain position lost: %+v", n)
	}
}

func TestReadGraphFileNotFound(t *testing.T) {
	if _, err := ReadGraphFile("nonexistent.json"); err == nil {
		t.Error("expected error for nonexistent file")
	}
	if _, err := os.Stat("nonexistent.json"); err == nil {
		t.Error("ReadGraphFile must not create files")
	}
}

func TestWriteGraph(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGraph(&Graph{}, &buf); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}
	g, err := UnmarshalGraph(buf.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalGraph: %v", err)
	}
	if len(g.Nodes) != 0 {
		t.Errorf("nodes = %d, want 0", len(g.Nodes))
	}
}
