package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"png", []string{"png"}},
		{"SVG, png,,json ", []string{"svg", "png", "json"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutputBase(t *testing.T) {
	tests := []struct {
		output, want string
	}{
		{"", "r1"},
		{"menu", "menu"},
		{"out/menu.svg", "out/menu"},
		{"menu.pdf", "menu"},
		{"menu.v2", "menu.v2"},
	}
	for _, tt := range tests {
		if got := outputBase(tt.output, "r1"); got != tt.want {
			t.Errorf("outputBase(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "menu")
	artifacts := map[string][]byte{"svg": []byte("<svg/>"), "dot": []byte("digraph{}")}

	paths, err := writeArtifacts(artifacts, []string{"svg", "dot"}, base)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{base + ".svg", base + ".dot"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	data, err := os.ReadFile(base + ".dot")
	if err != nil || string(data) != "digraph{}" {
		t.Errorf("dot file = %q, %v", data, err)
	}
}

func TestRenderOptsFilter(t *testing.T) {
	o := renderOpts{availability: "available", category: "c1", types: "dish,modification", search: "thai"}
	f, err := o.filter()
	if err != nil {
		t.Fatal(err)
	}
	if f.Availability != visibility.AvailabilityAvailable || f.CategoryID != "c1" || f.Search != "thai" {
		t.Errorf("filter = %+v", f)
	}
	if !f.EntityTypes[kitchen.EntityDish] || !f.EntityTypes[kitchen.EntityModification] || f.EntityTypes[kitchen.EntityCategory] {
		t.Errorf("entity types = %v", f.EntityTypes)
	}

	if _, err := (&renderOpts{availability: "sometimes"}).filter(); err == nil {
		t.Error("bad availability should fail")
	}
	if _, err := (&renderOpts{types: "dish,drink"}).filter(); err == nil {
		t.Error("bad entity type should fail")
	}
}

func TestRenderCommandJSONToStdout(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("render", "-f", "json", "-o", "-", "--availability", "available"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := env.out.String()
	if !json.Valid([]byte(out)) {
		t.Fatalf("stdout is not JSON:\n%s", out)
	}
	if !strings.Contains(out, "Pad Thai") || strings.Contains(out, "Extra Chili") {
		t.Errorf("availability filter not applied:\n%s", out)
	}
}

func TestRenderCommandRejects(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("render", "-f", "gif"); err == nil {
		t.Error("unknown format should fail")
	}
	if err := env.run("render", "-f", "svg,dot", "-o", "-"); err == nil {
		t.Error("stdout with two formats should fail")
	}
}

func TestRenderCommandWritesFiles(t *testing.T) {
	env := newTestEnv(t)
	base := filepath.Join(env.dir, "board")

	if err := env.run("render", "-f", "dot,json", "-o", base+".dot"); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, ext := range []string{".dot", ".json"} {
		if _, err := os.Stat(base + ext); err != nil {
			t.Errorf("missing %s: %v", ext, err)
		}
	}
}
