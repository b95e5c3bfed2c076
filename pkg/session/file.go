package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/kitchenboard/pkg/errors"
)

// FileStore keeps one JSON file per session in a directory only the owner
// can read.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore opens dir, creating it with mode 0700. An empty dir means
// $XDG_CONFIG_HOME/kitchenboard/sessions, falling back to ~/.config.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := defaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func defaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kitchenboard", "sessions"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "kitchenboard", "sessions"), nil
}

func (s *FileStore) file(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// load decodes a session file. Expired sessions come back with expired set
// so callers can drop them.
func load(path string) (sess *Session, expired bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	sess = new(Session)
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, false, fmt.Errorf("parse session %s: %w", filepath.Base(path), err)
	}
	return sess, sess.IsExpired(), nil
}

// Get returns the session, or nil when it is missing or expired. Expired
// files are deleted on the way.
func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := errors.ValidateID("session_id", id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, expired, err := load(s.file(id))
	switch {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, err
	case expired:
		_ = os.Remove(s.file(id))
		return nil, nil
	}
	return sess, nil
}

// Set writes the session atomically with mode 0600.
func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	if err := errors.ValidateID("session_id", sess.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+sess.ID+"-*")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file(sess.ID)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Delete removes the session. A missing session is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateID("session_id", id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.file(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Cleanup implements [Store] on top of Prune.
func (s *FileStore) Cleanup(ctx context.Context) error {
	_, err := s.Prune()
	return err
}

// Prune deletes expired session files and returns how many it removed.
// Unreadable files are left alone.
func (s *FileStore) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read session dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, name)
		if _, expired, err := load(path); err == nil && expired {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the session directory.
func (s *FileStore) Path() string { return s.dir }

var _ Store = (*FileStore)(nil)

// =============================================================================
// CLIStore
// =============================================================================

// CLIStore is the single login the CLI keeps, stored as "default".
type CLIStore struct {
	files *FileStore
}

const cliSessionID = "default"

// NewCLIStore opens the CLI login in the default directory.
func NewCLIStore() (*CLIStore, error) {
	return NewCLIStoreAt("")
}

// NewCLIStoreAt opens the CLI login in dir.
func NewCLIStoreAt(dir string) (*CLIStore, error) {
	files, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &CLIStore{files: files}, nil
}

// GetSession returns the saved login, or nil.
func (c *CLIStore) GetSession(ctx context.Context) (*Session, error) {
	return c.files.Get(ctx, cliSessionID)
}

// SaveSession replaces the saved login.
func (c *CLIStore) SaveSession(ctx context.Context, sess *Session) error {
	sess.ID = cliSessionID
	return c.files.Set(ctx, sess)
}

// DeleteSession removes the saved login and any expired leftovers.
func (c *CLIStore) DeleteSession(ctx context.Context) error {
	if err := c.files.Delete(ctx, cliSessionID); err != nil {
		return err
	}
	return c.files.Cleanup(ctx)
}

// Path returns the file holding the login.
func (c *CLIStore) Path() string {
	return c.files.file(cliSessionID)
}
