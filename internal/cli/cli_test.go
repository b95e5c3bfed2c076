package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

const seedGraph = `{
  "restaurant_id": "r1",
  "categories": [{"id": "c1", "restaurant_id": "r1", "name": "Mains", "display_order": 1}],
  "nodes": [
    {"id": "n1", "restaurant_id": "r1", "category_id": "c1", "entity_type": "dish", "entity_id": "1",
     "display_name": "Pad Thai", "available": true, "x": 10, "y": 20},
    {"id": "n2", "restaurant_id": "r1", "category_id": "c1", "entity_type": "modification", "entity_id": "7",
     "display_name": "Extra Chili", "available": false, "x_position": 0.5, "y_position": 0.25}
  ],
  "edges": [{"id": "e1", "restaurant_id": "r1", "source_node_id": "n1", "target_node_id": "n2", "label": "adds"}]
}`

// testEnv isolates a CLI run: temp XDG dirs, a memory store seeded with
// seedGraph, no cache and captured output.
type testEnv struct {
	t      *testing.T
	dir    string
	config string
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", dir)
	for _, k := range []string{"STORE", "DSN", "ENDPOINT", "TOKEN", "SEED", "CACHE", "RESTAURANT"} {
		t.Setenv("KITCHENBOARD_"+k, "")
	}

	seed := filepath.Join(dir, "seed.json")
	writeFile(t, seed, seedGraph)
	cfg := filepath.Join(dir, "config.toml")
	writeFile(t, cfg, "[store]\ndriver = \"memory\"\nseed = "+quote(seed)+"\n\n[cache]\ndriver = \"null\"\n\n[board]\nrestaurant = \"r1\"\n")

	out := &bytes.Buffer{}
	oldOut, oldSpin := defaultOut, spinnerOut
	defaultOut, spinnerOut = out, io.Discard
	t.Cleanup(func() { defaultOut, spinnerOut = oldOut, oldSpin })

	return &testEnv{t: t, dir: dir, config: cfg, out: out}
}

// run executes one command line against a fresh CLI.
func (e *testEnv) run(args ...string) error {
	e.t.Helper()
	e.out.Reset()
	c := New(io.Discard, LogInfo)
	c.sessFn = sessionsAt(e.t, e.dir)
	root := c.RootCommand()
	root.SetArgs(append([]string{"--config", e.config}, args...))
	root.SetOut(e.out)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// =============================================================================
// Root
// =============================================================================

func TestRootCommandHasSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"board", "graph", "node", "edge", "render", "serve", "login", "logout", "cache", "completion"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("restaurant") == nil || root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing persistent flags")
	}
}

func TestRestaurantID(t *testing.T) {
	env := newTestEnv(t)

	c := New(io.Discard, LogInfo)
	c.ConfigPath = env.config
	if got, err := c.restaurantID(); err != nil || got != "r1" {
		t.Errorf("restaurantID() = %q, %v; want r1 from config", got, err)
	}

	c.Restaurant = "r9"
	if got, _ := c.restaurantID(); got != "r9" {
		t.Errorf("flag should win, got %q", got)
	}

	empty := filepath.Join(env.dir, "empty.toml")
	writeFile(t, empty, "")
	c = New(io.Discard, LogInfo)
	c.ConfigPath = empty
	if _, err := c.restaurantID(); err == nil {
		t.Error("expected error without a restaurant")
	}
}

// =============================================================================
// graph
// =============================================================================

func TestGraphShow(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("graph", "show", "--edges"); err != nil {
		t.Fatalf("graph show: %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"Restaurant r1", "Pad Thai", "Extra Chili", "Mains", "10.0, 20.0", "0.50, 0.25 (frac)", "adds"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGraphShowEmptyRestaurant(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("graph", "show", "-r", "other"); err != nil {
		t.Fatalf("graph show: %v", err)
	}
	if !strings.Contains(env.out.String(), "No nodes yet") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestGraphExport(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "out", "r1.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := env.run("graph", "export", path); err != nil {
		t.Fatalf("graph export: %v", err)
	}
	g, err := kitchen.ReadGraphFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.RestaurantID != "r1" || len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("exported graph = %+v", g.Stats())
	}

	if err := env.run("graph", "export", "-"); err != nil {
		t.Fatal(err)
	}
	if _, err := kitchen.ReadGraph(strings.NewReader(env.out.String())); err != nil {
		t.Errorf("stdout export is not a graph: %v", err)
	}
}

func TestGraphImport(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "import.json")
	writeFile(t, path, `{"restaurant_id":"","categories":[],"nodes":[{"id":"x1","entity_type":"dish","entity_id":"9","available":true}],"edges":[]}`)

	err := env.run("graph", "import", path)
	if !errors.Is(err, errors.ErrCodeConfirmationRequired) {
		t.Fatalf("import without --yes = %v, want confirmation required", err)
	}

	if err := env.run("graph", "import", path, "--yes"); err != nil {
		t.Fatalf("import --yes: %v", err)
	}
	if !strings.Contains(env.out.String(), "Imported") {
		t.Errorf("output = %q", env.out.String())
	}

	other := filepath.Join(env.dir, "other.json")
	writeFile(t, other, `{"restaurant_id":"r2","categories":[],"nodes":[],"edges":[]}`)
	if err := env.run("graph", "import", other, "--yes"); err == nil {
		t.Error("importing another restaurant's graph should fail")
	}
}

// =============================================================================
// node and edge
// =============================================================================

func TestNodeToggle(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("node", "toggle", "n1"); err != nil {
		t.Fatalf("node toggle: %v", err)
	}
	if out := env.out.String(); !strings.Contains(out, "Pad Thai is now unavailable") {
		t.Errorf("output = %q", out)
	}

	if err := env.run("node", "toggle", "missing"); !errors.IsNotFound(err) {
		t.Errorf("toggle missing node = %v, want not found", err)
	}
}

func TestNodeDeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("node", "delete", "n2")
	if !errors.Is(err, errors.ErrCodeConfirmationRequired) {
		t.Fatalf("delete without --yes = %v", err)
	}
	if !strings.Contains(env.out.String(), "Delete Extra Chili?") {
		t.Errorf("output = %q", env.out.String())
	}

	if err := env.run("node", "delete", "n2", "--yes"); err != nil {
		t.Fatalf("delete --yes: %v", err)
	}
	if !strings.Contains(env.out.String(), "Deleted Extra Chili") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestNodeMove(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("node", "move", "n1", "--x", "42", "--y", "7"); err != nil {
		t.Fatalf("node move: %v", err)
	}
	if !strings.Contains(env.out.String(), "42.0, 7.0") {
		t.Errorf("output = %q", env.out.String())
	}

	if err := env.run("node", "move", "n1", "--x", "1"); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("half a pair = %v, want validation error", err)
	}
}

func TestNodeCreate(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("node", "create", "--category", "c1", "--type", "dish", "--entity", "5",
		"--name", "Green Curry", "--xp", "0.1", "--yp", "0.9", "--meta", `{"spice":3}`)
	if err != nil {
		t.Fatalf("node create: %v", err)
	}
	if !strings.Contains(env.out.String(), "Created dish Green Curry") {
		t.Errorf("output = %q", env.out.String())
	}

	if err := env.run("node", "create", "--category", "c1", "--type", "drink", "--entity", "5"); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("bad type = %v, want validation error", err)
	}
	if err := env.run("node", "create", "--category", "c1", "--type", "dish", "--entity", "5", "--meta", "{"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad meta = %v, want invalid input", err)
	}
}

func TestEdgeCommands(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("edge", "create", "n2", "n1", "--label", "goes with"); err != nil {
		t.Fatalf("edge create: %v", err)
	}
	if !strings.Contains(env.out.String(), "Extra Chili (modification)") {
		t.Errorf("output = %q", env.out.String())
	}

	if err := env.run("edge", "delete", "e1"); !errors.Is(err, errors.ErrCodeConfirmationRequired) {
		t.Errorf("edge delete without --yes = %v", err)
	}
	if err := env.run("edge", "delete", "e1", "--yes"); err != nil {
		t.Errorf("edge delete --yes: %v", err)
	}
}

// =============================================================================
// cache
// =============================================================================

func TestCachePathAndClear(t *testing.T) {
	env := newTestEnv(t)
	cfg := filepath.Join(env.dir, "file-cache.toml")
	cacheDir := filepath.Join(env.dir, "cache")
	writeFile(t, cfg, "[cache]\ndriver = \"file\"\ndir = "+quote(cacheDir)+"\n")
	env.config = cfg

	if err := env.run("cache", "path"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(env.out.String()); got != cacheDir {
		t.Errorf("cache path = %q, want %q", got, cacheDir)
	}

	if err := env.run("cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "Cache is empty") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestCacheClearOtherDriver(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "cannot be cleared") {
		t.Errorf("output = %q", env.out.String())
	}
	if err := env.run("cache", "invalidate"); err != nil {
		t.Errorf("cache invalidate: %v", err)
	}
}
