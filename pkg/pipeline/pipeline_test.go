package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/cache"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/layout"
	"github.com/matzehuels/kitchenboard/pkg/mutation"
	"github.com/matzehuels/kitchenboard/pkg/store/memory"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"dot", false},
		{"json", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if len(o.Formats) != 1 || o.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", o.Formats)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Scale != DefaultScale {
		t.Errorf("defaults not applied: %+v", o)
	}

	bad := Options{Formats: []string{"gif"}}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("gif should be rejected")
	}
	neg := Options{Width: -1}
	if err := neg.ValidateAndSetDefaults(); err == nil {
		t.Error("negative width should be rejected")
	}
}

func scene() board.Scene {
	return board.Scene{
		Nodes: []board.SceneNode{{
			Node:       kitchen.Node{ID: "n1", EntityType: kitchen.EntityDish, EntityID: "1", DisplayName: "Soup", Available: true},
			Projection: layout.Projection{Left: 50, Top: 50},
		}},
	}
}

func TestRenderSceneCaches(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	r := NewRunner(mc, nil, log.New(io.Discard))
	opts := Options{Formats: []string{FormatDOT, FormatJSON}}

	first, err := r.RenderScene(ctx, scene(), opts)
	if err != nil {
		t.Fatalf("RenderScene() error: %v", err)
	}
	if first.CacheInfo.RenderHit {
		t.Error("first run should miss")
	}
	if !strings.Contains(string(first.Artifacts[FormatDOT]), `pos="400.00,300.00!"`) {
		t.Errorf("dot artifact missing pinned position:\n%s", first.Artifacts[FormatDOT])
	}
	var decoded board.Scene
	if err := json.Unmarshal(first.Artifacts[FormatJSON], &decoded); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if len(decoded.Nodes) != 1 || decoded.Nodes[0].Node.ID != "n1" {
		t.Errorf("json artifact = %+v", decoded)
	}
	if mc.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", mc.Len())
	}

	second, err := r.RenderScene(ctx, scene(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second run should hit")
	}
	if second.SceneHash != first.SceneHash {
		t.Error("identical scenes should hash identically")
	}

	moved := scene()
	moved.Nodes[0].Projection.Left = 60
	third, _ := r.RenderScene(ctx, moved, opts)
	if third.CacheInfo.RenderHit || third.SceneHash == first.SceneHash {
		t.Error("moving a node should change the cache key")
	}

	refreshed, _ := r.RenderScene(ctx, scene(), Options{Formats: opts.Formats, Refresh: true})
	if refreshed.CacheInfo.RenderHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestRenderPNGUsesSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz runtime start-up is slow")
	}
	var gotScale float64
	toPNG = func(svg []byte, scale float64) ([]byte, error) {
		gotScale = scale
		return append([]byte("PNG:"), svg...), nil
	}
	t.Cleanup(func() { toPNG = renderToPNG })

	opts := Options{Formats: []string{FormatSVG, FormatPNG}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	s := scene()
	out, err := Render(s, DOT(s, opts), opts)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if string(out[FormatPNG]) != "PNG:"+string(out[FormatSVG]) {
		t.Errorf("png artifact = %q", out[FormatPNG])
	}
	if gotScale != DefaultScale {
		t.Errorf("scale = %v, want %v", gotScale, DefaultScale)
	}
}

func TestExecuteUsesBoardScene(t *testing.T) {
	ctx := context.Background()
	st := memory.Seed(&kitchen.Graph{
		RestaurantID: "r1",
		Categories:   []kitchen.Category{{ID: "c1", RestaurantID: "r1", Name: "Mains", Color: "#abcdef"}},
		Nodes: []kitchen.Node{{
			ID: "n1", RestaurantID: "r1", CategoryID: "c1", EntityType: kitchen.EntityDish, EntityID: "1",
			Available: true, X: kitchen.Float(0), Y: kitchen.Float(0),
		}},
	})
	logger := log.New(io.Discard)
	facade := mutation.NewFacade(st, mutation.NewLoader(st, nil, nil, logger), logger)
	b := board.New(facade, board.Options{RestaurantID: "r1", Logger: logger})
	if err := b.Load(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := NewRunner(nil, nil, logger).Execute(ctx, b, Options{Formats: []string{FormatDOT}})
	if err != nil {
		t.Fatal(err)
	}
	dot := string(res.Artifacts[FormatDOT])
	if !strings.Contains(dot, `fillcolor="#abcdef"`) {
		t.Errorf("category colour not applied:\n%s", dot)
	}
	if res.Stats.NodeCount != 1 {
		t.Errorf("NodeCount = %d", res.Stats.NodeCount)
	}
}
