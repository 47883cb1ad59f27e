package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/passfoto/PassFoto/util/log"
)

// Manager keeps the live sessions in memory.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	transform TransformFunc
	defaults  Selection

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewManager creates a Manager. New sessions start with defaults selected, so
// a capture renders before any selection is made.
func NewManager(transform TransformFunc, defaults Selection) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		transform: transform,
		defaults:  defaults,
	}
}

// Subscribe adds a listener for updates of every session.
func (m *Manager) Subscribe(l Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notify(u Update) {
	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()
	for _, l := range m.listeners {
		l(u)
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	s := newSession(id, m.defaults, m.transform, m.notify)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Debugf("Session %s created", id)
	return s
}

// Get looks up a session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes and forgets a session. It reports whether it existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
		log.Debugf("Session %s removed", id)
	}
	return ok
}

// IDs returns the live session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Printf("Closed %d session(s)", len(sessions))
}
