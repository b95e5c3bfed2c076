package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sess, err := New("http://localhost:8080", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Set(ctx, sess); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := fs.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil || got.Token != "secret" || got.Endpoint != "http://localhost:8080" {
		t.Fatalf("Get() = %+v", got)
	}

	info, err := os.Stat(fs.file(sess.ID))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	if err := fs.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if got, _ := fs.Get(ctx, sess.ID); got != nil {
		t.Error("session should be gone after Delete")
	}
}

func TestExpiredSessionsAreDropped(t *testing.T) {
	ctx := context.Background()
	fs, _ := NewFileStore(t.TempDir())

	stale := &Session{ID: "stale", Token: "t", ExpiresAt: time.Now().Add(-time.Minute)}
	fresh := &Session{ID: "fresh", Token: "t"}
	for _, s := range []*Session{stale, fresh} {
		if err := fs.Set(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	n, err := fs.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}
	if got, _ := fs.Get(ctx, "fresh"); got == nil {
		t.Error("session without expiry should survive")
	}
	if _, err := os.Stat(filepath.Join(fs.Path(), "stale.json")); !os.IsNotExist(err) {
		t.Error("expired session file should be removed")
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	if err := fs.Set(context.Background(), &Session{ID: "../escape"}); err == nil {
		t.Error("Set() should reject path characters")
	}
	if _, err := fs.Get(context.Background(), ""); err == nil {
		t.Error("Get() should reject empty id")
	}
}

func TestCLIStore(t *testing.T) {
	ctx := context.Background()
	cs, err := NewCLIStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got, err := cs.GetSession(ctx); err != nil || got != nil {
		t.Fatalf("GetSession() on empty store = %v, %v", got, err)
	}

	sess, _ := New("http://board", "tok", 0)
	if err := cs.SaveSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if sess.ID != cliSessionID {
		t.Errorf("ID = %q, want %q", sess.ID, cliSessionID)
	}
	got, err := cs.GetSession(ctx)
	if err != nil || got == nil || got.Token != "tok" {
		t.Fatalf("GetSession() = %+v, %v", got, err)
	}
	if filepath.Base(cs.Path()) != "default.json" {
		t.Errorf("Path() = %s", cs.Path())
	}
	if err := cs.DeleteSession(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := cs.GetSession(ctx); got != nil {
		t.Error("session should be deleted")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	a, _ := GenerateID()
	b, _ := GenerateID()
	if a == "" || a == b {
		t.Errorf("GenerateID() = %q, %q", a, b)
	}
}
