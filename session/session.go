// Package session keeps the live editors of concurrent editing sessions.
//
// An Editor is single-writer; Manager hands out access one caller at a time
// per session so HTTP handlers can share editors safely.
package session

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/meikuraledutech/flowchart"
)

// ErrSessionNotFound is returned for ids that were never created or are closed.
var ErrSessionNotFound = errors.New("flowchart: session not found")

type entry struct {
	mu      sync.Mutex
	editor  *flowchart.Editor
	created time.Time
}

// Manager is a registry of editing sessions keyed by ULID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	editorOpts []flowchart.Option
	log        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithEditorOptions sets options applied to every editor the manager creates.
func WithEditorOptions(opts ...flowchart.Option) Option {
	return func(m *Manager) { m.editorOpts = append(m.editorOpts, opts...) }
}

// WithLogger sets the logger for session lifecycle events. Editors get a
// child logger tagged with their session id.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager returns an empty registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session holding a fresh editor and returns its id.
// opts are applied after the manager-wide editor options.
func (m *Manager) Create(opts ...flowchart.Option) string {
	id := ulid.Make().String()
	all := slices.Concat(m.editorOpts, opts, []flowchart.Option{
		flowchart.WithLogger(m.log.With("session", id)),
	})
	e := &entry{editor: flowchart.NewEditor(all...), created: time.Now()}

	m.mu.Lock()
	m.sessions[id] = e
	n := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("session created", "session", id, "open", n)
	return id
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// Get returns the editor of a session. The caller must not use it
// concurrently with With on the same session.
func (m *Manager) Get(id string) (*flowchart.Editor, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.editor, nil
}

// With runs fn while holding the session's lock and returns fn's error.
func (m *Manager) With(id string, fn func(*flowchart.Editor) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.editor)
}

// Close ends a session and drops its editor and history.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.log.Info("session closed", "session", id, "open", n, "age", time.Since(e.created).Round(time.Millisecond))
	return nil
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the open session ids in creation order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	// ULIDs sort lexically by creation time.
	slices.Sort(ids)
	return ids
}
