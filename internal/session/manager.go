package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyActive is returned by Create when the user already holds a slot
// in the Active-Session Registry.
var ErrAlreadyActive = errors.New("session: user already has an active session")

// ErrNotFound is returned when a lookup or mutation targets an unknown
// session id.
var ErrNotFound = errors.New("session: not found")

// Manager owns the in-process table of sessions and coordinates with a
// Registry to enforce one active session per user.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	registry Registry
}

// NewManager builds a Manager backed by the given Registry. Pass
// NewInMemoryRegistry() when REGISTRY_REDIS_URL is unset.
func NewManager(registry Registry) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		registry: registry,
	}
}

// Create allocates a new session for userID, provided the Registry does not
// already consider userID active. Returns ErrAlreadyActive otherwise.
func (m *Manager) Create(ctx context.Context, userID string, cfg Config) (*Session, error) {
	inserted, err := m.registry.TryInsert(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyActive
	}

	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusActive,
		StartedAt: time.Now().UTC(),
		Config:    cfg,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return clone(s), nil
}

// Get returns a copy of the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// RecordTopicCovered increments the session's topic counter.
func (m *Manager) RecordTopicCovered(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.TopicsCovered++
	return nil
}

// RecordFollowups adds n to the session's follow-up counter.
func (m *Manager) RecordFollowups(id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.TotalFollowups += n
	return nil
}

// End marks the session with a terminal status, frees its registry slot and
// returns the final snapshot. A second call on an already-ended session is a
// no-op that returns the existing snapshot.
func (m *Manager) End(ctx context.Context, id string, status Status) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	wasActive := s.Status == StatusActive
	if wasActive {
		now := time.Now().UTC()
		s.Status = status
		s.EndedAt = &now
	}
	out := clone(s)
	m.mu.Unlock()

	if !wasActive {
		return out, nil
	}
	if err := m.registry.Remove(ctx, s.UserID); err != nil {
		return out, err
	}
	return out, nil
}

// ActiveCount reports the number of sessions currently in StatusActive.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			n++
		}
	}
	return n
}

func clone(s *Session) *Session {
	c := *s
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		c.EndedAt = &endedAt
	}
	return &c
}
