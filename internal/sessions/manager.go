// Package sessions manages the lifecycle of interpreter sessions shared by
// the HTTP, WebSocket, and MCP gateways. Each session carries its own working
// directory and command history; the manager serializes command execution per
// session so concurrent requests against the same session cannot interleave.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jkaninda/ganda/internal/shell"
	"github.com/jkaninda/ganda/internal/storage"
)

// ErrTooManySessions is returned when creating a session would exceed the cap.
var ErrTooManySessions = errors.New("too many active sessions")

// Config controls session lifecycle limits.
type Config struct {
	IdleTTL     time.Duration // Sessions idle longer than this are evicted. 0 = never.
	MaxSessions int           // Hard cap on live sessions. 0 = unlimited.
	SweepSpec   string        // Cron spec for the eviction sweeper. Default: "@every 1m".
}

// HomeFunc provides the home (and initial working) directory for a new session.
type HomeFunc func(sessionID string) (string, error)

// ExecOutcome is the result of executing one command line in a session.
type ExecOutcome struct {
	SessionID  string       `json:"session_id"`
	Result     shell.Result `json:"result"`
	WorkingDir string       `json:"working_dir"`
	Seq        int          `json:"sequence_number,omitempty"` // 0 when no history entry was recorded.
}

// Info is a read-only snapshot of a live session.
type Info struct {
	ID         string    `json:"id"`
	WorkingDir string    `json:"working_dir"`
	LastUsed   time.Time `json:"last_used"`
	HistoryLen int       `json:"history_len"`
}

// managed pairs a session with its own lock. The per-session mutex is held
// for the full duration of a command so execution within a session is serial.
// All fields, including the session's working directory and history, are
// read and written under mu.
type managed struct {
	mu       sync.Mutex
	sess     *shell.Session
	lastUsed time.Time
}

// snapshot reads the session state under its own lock, waiting out any
// in-flight command so readers never observe a half-applied mutation.
func (ms *managed) snapshot(id string) Info {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return Info{
		ID:         id,
		WorkingDir: ms.sess.WorkingDir,
		LastUsed:   ms.lastUsed,
		HistoryLen: ms.sess.HistoryLen(),
	}
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managed

	dispatcher *shell.Dispatcher
	newHome    HomeFunc
	cfg        Config
	history    storage.HistoryStore // optional; nil = in-memory history only
	metrics    *Metrics             // optional
	logger     *slog.Logger
	onEvict    func(sessionID string) // optional eviction hook
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistoryStore enables best-effort history persistence.
func WithHistoryStore(hs storage.HistoryStore) Option {
	return func(m *Manager) { m.history = hs }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithEvictHook registers a callback invoked after a session is evicted.
// Used by gateways to release per-session resources such as rate limit buckets.
func WithEvictHook(fn func(sessionID string)) Option {
	return func(m *Manager) { m.onEvict = fn }
}

// NewManager creates a session manager.
func NewManager(dispatcher *shell.Dispatcher, newHome HomeFunc, cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions:   make(map[string]*managed),
		dispatcher: dispatcher,
		newHome:    newHome,
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs one command line in the named session, creating the session
// on first use. Empty input is a successful no-op and does not create a session.
func (m *Manager) Execute(ctx context.Context, sessionID, line string) (ExecOutcome, error) {
	if strings.TrimSpace(line) == "" {
		return ExecOutcome{SessionID: sessionID, Result: shell.Result{Success: true}}, nil
	}

	ms, err := m.acquire(sessionID)
	if err != nil {
		return ExecOutcome{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	start := time.Now()
	result := m.dispatcher.Execute(ctx, ms.sess, line)
	ms.lastUsed = time.Now()

	outcome := ExecOutcome{
		SessionID:  sessionID,
		Result:     result,
		WorkingDir: ms.sess.WorkingDir,
	}

	entry, ok := ms.sess.LastEntry()
	if ok {
		outcome.Seq = entry.Seq
		m.observe(entry.Command, result.Success, time.Since(start))
		m.persist(ctx, sessionID, entry, result.Success)
	}

	return outcome, nil
}

// acquire returns the managed session, creating it if needed.
func (m *Manager) acquire(sessionID string) (*managed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.sessions[sessionID]; ok {
		return ms, nil
	}

	// At the cap, the oldest-idle session makes room for the new one.
	// Only when every live session has a command in flight is the new
	// session rejected.
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		if !m.evictOldestIdleLocked() {
			return nil, fmt.Errorf("%w: limit %d reached", ErrTooManySessions, m.cfg.MaxSessions)
		}
	}

	home, err := m.newHome(sessionID)
	if err != nil {
		return nil, fmt.Errorf("creating session home: %w", err)
	}

	ms := &managed{
		sess:     shell.NewSession(sessionID, home),
		lastUsed: time.Now(),
	}
	m.sessions[sessionID] = ms

	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.logger.Info("session created", slog.String("session_id", sessionID), slog.String("home", home))
	return ms, nil
}

// evictOldestIdleLocked removes the session with the oldest lastUsed among
// those with no command in flight. Returns false when no session could be
// evicted. Caller holds m.mu.
func (m *Manager) evictOldestIdleLocked() bool {
	var victimID string
	var victim *managed
	for id, ms := range m.sessions {
		if !ms.mu.TryLock() {
			continue // mid-command, not a candidate
		}
		if victim == nil || ms.lastUsed.Before(victim.lastUsed) {
			if victim != nil {
				victim.mu.Unlock()
			}
			victim, victimID = ms, id
			continue
		}
		ms.mu.Unlock()
	}
	if victim == nil {
		return false
	}

	delete(m.sessions, victimID)
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.metrics.SessionsEvicted.Inc()
	}
	victim.mu.Unlock()

	if m.onEvict != nil {
		m.onEvict(victimID)
	}
	m.logger.Info("session evicted",
		slog.String("session_id", victimID),
		slog.String("reason", "session cap"),
	)
	return true
}

// History returns the in-memory history of a session, oldest first.
// A session that was never created has no history.
func (m *Manager) History(sessionID string) []shell.HistoryEntry {
	m.mu.Lock()
	ms, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.sess.History()
}

// Lookup returns a snapshot of one live session. Blocks until any
// in-flight command on the session completes.
func (m *Manager) Lookup(sessionID string) (Info, bool) {
	m.mu.Lock()
	ms, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return Info{}, false
	}
	return ms.snapshot(sessionID), true
}

// List returns snapshots of all live sessions, sorted by ID.
func (m *Manager) List() []Info {
	m.mu.Lock()
	live := make(map[string]*managed, len(m.sessions))
	for id, ms := range m.sessions {
		live[id] = ms
	}
	m.mu.Unlock()

	// Snapshot outside the manager lock so one busy session does not
	// block creation of new ones.
	infos := make([]Info, 0, len(live))
	for id, ms := range live {
		infos = append(infos, ms.snapshot(id))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Evict removes a session. Returns false if the session did not exist.
// Blocks until any in-flight command on the session completes.
func (m *Manager) Evict(sessionID string) bool {
	m.mu.Lock()
	ms, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		if m.metrics != nil {
			m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		}
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	// Wait for any running command before declaring the session gone.
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SessionsEvicted.Inc()
	}
	if m.onEvict != nil {
		m.onEvict(sessionID)
	}
	m.logger.Info("session evicted", slog.String("session_id", sessionID))
	return true
}

// EvictIdle removes sessions idle longer than the configured TTL.
// Sessions with a command in flight are skipped and retried on the next sweep.
// Returns the number of sessions evicted.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.evictIfIdle(id, now) {
			n++
		}
	}
	return n
}

// evictIfIdle evicts one session if it is still idle at eviction time.
// Idleness is judged under the session lock, so a command that arrived
// after the sweep started keeps its session alive.
func (m *Manager) evictIfIdle(sessionID string, now time.Time) bool {
	m.mu.Lock()
	ms, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false // already gone
	}
	if !ms.mu.TryLock() {
		m.mu.Unlock()
		return false // busy; next sweep will catch it
	}
	if now.Sub(ms.lastUsed) <= m.cfg.IdleTTL {
		ms.mu.Unlock()
		m.mu.Unlock()
		return false // used since the sweep started
	}

	delete(m.sessions, sessionID)
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.metrics.SessionsEvicted.Inc()
	}
	m.mu.Unlock()
	ms.mu.Unlock()

	if m.onEvict != nil {
		m.onEvict(sessionID)
	}
	m.logger.Info("session evicted",
		slog.String("session_id", sessionID),
		slog.String("reason", "idle"),
	)
	return true
}

// StartSweeper runs the idle eviction sweep on the configured cron spec.
// Returns a stop function that blocks until any running sweep completes.
func (m *Manager) StartSweeper() (func(), error) {
	spec := m.cfg.SweepSpec
	if spec == "" {
		spec = "@every 1m"
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := m.EvictIdle(time.Now()); n > 0 {
			m.logger.Info("idle sessions evicted", slog.Int("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep spec %q: %w", spec, err)
	}
	c.Start()
	m.logger.Info("session sweeper started",
		slog.String("spec", spec),
		slog.Duration("idle_ttl", m.cfg.IdleTTL),
	)

	return func() { <-c.Stop().Done() }, nil
}

// persist records the entry in the history store, best effort.
// A storage failure never fails the command that produced the entry.
func (m *Manager) persist(ctx context.Context, sessionID string, entry shell.HistoryEntry, success bool) {
	if m.history == nil {
		return
	}
	err := m.history.Append(ctx, storage.HistoryEvent{
		SessionID: sessionID,
		Seq:       entry.Seq,
		Timestamp: entry.Timestamp,
		Command:   entry.Command,
		Args:      entry.Args,
		Success:   success,
	})
	if err != nil {
		m.logger.Warn("persisting history entry failed",
			slog.String("session_id", sessionID),
			slog.Int("seq", entry.Seq),
			slog.Any("error", err),
		)
	}
}

func (m *Manager) observe(command string, success bool, elapsed time.Duration) {
	if m.metrics == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	m.metrics.CommandsTotal.WithLabelValues(command, status).Inc()
	m.metrics.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}
