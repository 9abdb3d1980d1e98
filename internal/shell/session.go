package shell

import (
	"path/filepath"
	"time"
)

// Session is one user's isolated interpreter state: a virtual working
// directory and an append-only command history. It is a plain data struct
// operated on by the dispatcher and handlers, so every handler can be unit
// tested against a synthetic Session.
//
// Session is not safe for concurrent use; callers that share a Session
// across goroutines must serialize access (see sessions.Manager).
type Session struct {
	// ID identifies the session to transports. Informational for the core.
	ID string

	// Home is the session's home directory: the target of a bare `cd`
	// and the initial working directory. Absolute.
	Home string

	// WorkingDir is the current working directory. Mutated only by a
	// successful cd. Absolute, and always a directory that existed at
	// the time of mutation.
	WorkingDir string

	history []HistoryEntry
}

// HistoryEntry records one accepted command invocation. Immutable once
// appended.
type HistoryEntry struct {
	// Seq is 1-based and strictly increasing within a session.
	Seq int `json:"sequence_number"`
	// Timestamp is fixed at the moment the command was accepted,
	// before execution.
	Timestamp time.Time `json:"timestamp"`
	// Command is the resolved command name, lowercased and trimmed.
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// NewSession creates a Session rooted at home. home must be an absolute
// path to an existing directory.
func NewSession(id, home string) *Session {
	return &Session{
		ID:         id,
		Home:       home,
		WorkingDir: home,
	}
}

// Resolve turns a command operand into an absolute, cleaned path,
// interpreting relative paths against the working directory.
func (s *Session) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.WorkingDir, path)
}

// History returns a copy of the history, oldest first.
func (s *Session) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryLen returns the number of recorded invocations.
func (s *Session) HistoryLen() int { return len(s.history) }

// LastEntry returns the most recent history entry, if any.
func (s *Session) LastEntry() (HistoryEntry, bool) {
	if len(s.history) == 0 {
		return HistoryEntry{}, false
	}
	return s.history[len(s.history)-1], true
}

// appendHistory assigns the next sequence number and records the entry.
// Only the dispatcher calls this; history is append-only by design.
func (s *Session) appendHistory(e HistoryEntry) HistoryEntry {
	e.Seq = len(s.history) + 1
	s.history = append(s.history, e)
	return e
}
