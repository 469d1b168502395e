package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

// MemorySessionStore keeps encoded snapshots in process memory. Callers never
// share a *Session with the store. Updates on one id are serialized by a
// per-id lock.
type MemorySessionStore struct {
	mu       sync.Mutex // guards sessions and locks
	sessions map[string][]byte
	locks    map[string]*sync.Mutex
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string][]byte{},
		locks:    map[string]*sync.Mutex{},
	}
}

func (m *MemorySessionStore) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeSession(id, raw)
}

func (m *MemorySessionStore) Save(_ context.Context, s *model.Session) error {
	if s == nil || s.ID == "" {
		return errx.Validation("session id is required", nil)
	}
	l := m.lockFor(s.ID)
	l.Lock()
	defer l.Unlock()
	return m.put(s)
}

func (m *MemorySessionStore) put(s *model.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	m.mu.Lock()
	m.sessions[s.ID] = b
	m.mu.Unlock()
	return nil
}

// Delete waits for an in-flight Update on id so the session is not written
// back afterwards.
func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids, nil
}

func (m *MemorySessionStore) Update(ctx context.Context, id string, fn func(*model.Session) (*model.Session, error)) (*model.Session, error) {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	current, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("update of session %s produced no session", id)
	}
	if next.ID != id {
		return nil, fmt.Errorf("update of session %s returned session %s", id, next.ID)
	}
	if err := m.put(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (m *MemorySessionStore) Prune(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	var candidates []string
	for id, raw := range m.sessions {
		if isStale(id, raw, cutoff) {
			candidates = append(candidates, id)
		}
	}
	m.mu.Unlock()

	removed := 0
	for _, id := range candidates {
		if m.pruneOne(id, cutoff) {
			removed++
		}
	}
	return removed, nil
}

// pruneOne re-checks id under its lock; a turn may have refreshed it since
// the candidate scan.
func (m *MemorySessionStore) pruneOne(id string, cutoff time.Time) bool {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.sessions[id]
	if !ok || !isStale(id, raw, cutoff) {
		return false
	}
	delete(m.sessions, id)
	return true
}

func isStale(id string, raw []byte, cutoff time.Time) bool {
	s, err := decodeSession(id, raw)
	if err != nil {
		return false
	}
	return s.LastActivity.Before(cutoff)
}

var _ model.SessionStore = (*MemorySessionStore)(nil)
