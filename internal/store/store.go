// Package store keeps the per-user sessions, conversation states, and
// settings in memory, and snapshots them to a Bolt database.
package store

import (
	"sync"

	"github.com/GlebZemlyanikin/RowingModel/internal/models"
)

// Memory is the in-memory source of truth for all per-user state. Disk
// persistence is best-effort snapshotting on top of it, never the other way
// around.
type Memory struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
	states   map[int64]models.ConversationState
	settings map[int64]models.Settings
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[int64]models.Session),
		states:   make(map[int64]models.ConversationState),
		settings: make(map[int64]models.Settings),
	}
}

// Session returns a clone: callers edit results in place while the
// snapshotter marshals concurrently, so handed-out sessions must never
// share backing arrays with the stored ones.
func (m *Memory) Session(userID int64) (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]

	return s.Clone(), ok
}

func (m *Memory) SetSession(userID int64, s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = s.Clone()
}

func (m *Memory) DeleteSession(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

func (m *Memory) State(userID int64) (models.ConversationState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.states[userID]

	return s, ok
}

func (m *Memory) SetState(userID int64, s models.ConversationState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[userID] = s
}

func (m *Memory) DeleteState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, userID)
}

func (m *Memory) Settings(userID int64) (models.Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[userID]

	return s, ok
}

func (m *Memory) SetSettings(userID int64, s models.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[userID] = s
}

// Snapshot captures the whole store as explicit key-value listings.
func (m *Memory) Snapshot() models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snap models.Snapshot

	for k, v := range m.sessions {
		snap.Sessions = append(snap.Sessions, models.KV[models.Session]{Key: k, Value: v.Clone()})
	}

	for k, v := range m.states {
		snap.States = append(snap.States, models.KV[models.ConversationState]{Key: k, Value: v})
	}

	for k, v := range m.settings {
		snap.Settings = append(snap.Settings, models.KV[models.Settings]{Key: k, Value: v})
	}

	return snap
}

// Restore replaces the store contents with the given snapshot.
func (m *Memory) Restore(snap models.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make(map[int64]models.Session, len(snap.Sessions))
	m.states = make(map[int64]models.ConversationState, len(snap.States))
	m.settings = make(map[int64]models.Settings, len(snap.Settings))

	for _, kv := range snap.Sessions {
		m.sessions[kv.Key] = kv.Value
	}

	for _, kv := range snap.States {
		m.states[kv.Key] = kv.Value
	}

	for _, kv := range snap.Settings {
		m.settings[kv.Key] = kv.Value
	}
}
