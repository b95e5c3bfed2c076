package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/kitchenboard/pkg/session"
)

// sessionsAt points the CLI's session store at dir instead of ~/.config.
func sessionsAt(t *testing.T, dir string) func() (*session.CLIStore, error) {
	t.Helper()
	return func() (*session.CLIStore, error) {
		return session.NewCLIStoreAt(filepath.Join(dir, "sessions"))
	}
}

func TestReadToken(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"secret\n", "secret", false},
		{"  secret  ", "secret", false},
		{"first\nsecond\n", "first", false},
		{"", "", true},
		{"\n", "", true},
	}
	for _, tt := range tests {
		got, err := readToken(strings.NewReader(tt.in))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("readToken(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	oldIn := stdin
	stdin = strings.NewReader("piped-token\n")
	t.Cleanup(func() { stdin = oldIn })

	if err := env.run("login", "http://board.example.com/", "--no-verify"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(env.out.String(), "Logged in to http://board.example.com") {
		t.Errorf("output = %q", env.out.String())
	}

	c := New(io.Discard, LogInfo)
	c.sessFn = sessionsAt(t, env.dir)
	sess, err := c.loadSession(context.Background())
	if err != nil {
		t.Fatalf("loadSession: %v", err)
	}
	if sess.Endpoint != "http://board.example.com" || sess.Token != "piped-token" {
		t.Errorf("session = %+v", sess)
	}

	if err := env.run("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := c.loadSession(context.Background()); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("after logout loadSession() error = %v", err)
	}
}

func TestLoginVerifiesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := env.run("login", srv.URL, "--token", "t1"); err != nil {
		t.Fatalf("login against healthy server: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if err := env.run("login", down.URL, "--token", "t1"); err == nil {
		t.Error("login against an unhealthy server should fail")
	}
}

func TestRemoteStoreUsesSession(t *testing.T) {
	env := newTestEnv(t)
	cfg := filepath.Join(env.dir, "remote.toml")
	writeFile(t, cfg, "[store]\ndriver = \"remote\"\n[cache]\ndriver = \"null\"\n")
	env.config = cfg

	err := env.run("graph", "show", "-r", "r1")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("remote store without session = %v, want not logged in", err)
	}
}
