// Package workspace manages the ganda runtime directory structure.
// All runtime state (session sandbox roots, the history database, log
// files) lives under a single workspace root, keeping the tool portable.
//
// Default workspace: ~/.ganda/workspace (configurable via config or the
// GANDA_WORKSPACE env var).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Default workspace location relative to the user home directory.
const defaultRelativePath = ".ganda/workspace"

// Workspace manages the runtime directories and derived paths.
type Workspace struct {
	Root string

	mu      sync.Mutex
	created map[string]bool // directories already ensured
}

// New creates a Workspace rooted at the given path. It resolves ~ to the
// user's home directory and creates the root if it does not exist.
func New(root string) (*Workspace, error) {
	resolved, err := resolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", root, err)
	}

	w := &Workspace{
		Root:    resolved,
		created: make(map[string]bool),
	}

	if err := w.ensureDir(resolved, 0750); err != nil {
		return nil, fmt.Errorf("creating workspace root: %w", err)
	}

	return w, nil
}

// Default creates a Workspace at ~/.ganda/workspace.
func Default() (*Workspace, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}
	return New(filepath.Join(home, defaultRelativePath))
}

// SessionsDir returns <root>/sessions/. Each session's sandbox root lives
// underneath it.
func (w *Workspace) SessionsDir() string {
	return w.dir("sessions")
}

// DataDir returns <root>/data/. Holds the history database.
func (w *Workspace) DataDir() string {
	return w.dir("data")
}

// LogsDir returns <root>/logs/.
func (w *Workspace) LogsDir() string {
	return w.dir("logs")
}

// DatabasePath returns <root>/data/ganda.db, the default SQLite location.
func (w *Workspace) DatabasePath() string {
	return filepath.Join(w.DataDir(), "ganda.db")
}

// SessionRoot returns <root>/sessions/<sessionID>/, creating it if needed.
// The session ID is sanitized so it cannot escape the sessions directory.
func (w *Workspace) SessionRoot(sessionID string) (string, error) {
	p := filepath.Join(w.SessionsDir(), sanitizeName(sessionID))
	if err := w.ensureDir(p, 0750); err != nil {
		return "", err
	}
	return p, nil
}

// CleanSessions removes every session sandbox under the workspace.
func (w *Workspace) CleanSessions() error {
	dir := filepath.Join(w.Root, "sessions")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading sessions dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("removing session root %s: %w", entry.Name(), err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.created {
		if strings.HasPrefix(p, dir+string(filepath.Separator)) {
			delete(w.created, p)
		}
	}
	return nil
}

// EnsureAll creates all standard workspace directories. Called on startup.
func (w *Workspace) EnsureAll() error {
	for _, d := range []string{w.SessionsDir(), w.DataDir(), w.LogsDir()} {
		if err := w.ensureDir(d, 0750); err != nil {
			return err
		}
	}
	return nil
}

// dir returns an absolute path under the root and ensures it exists.
func (w *Workspace) dir(name string) string {
	p := filepath.Join(w.Root, name)
	_ = w.ensureDir(p, 0750)
	return p
}

// ensureDir creates a directory if it doesn't already exist.
// Uses a cache to avoid redundant stat/mkdir calls.
func (w *Workspace) ensureDir(path string, perm os.FileMode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.created[path] {
		return nil
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	w.created[path] = true
	return nil
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

// sanitizeName replaces path separator characters to prevent directory traversal.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "_"
	}
	return name
}
