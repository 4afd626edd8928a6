package logsink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemorySink is a process-local Sink for local/dev use and tests.
type InMemorySink struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemorySink returns an empty in-process sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

func (s *InMemorySink) Record(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// BySession returns every entry recorded for a session, for tests and
// diagnostics.
func (s *InMemorySink) BySession(sessionID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

func (s *InMemorySink) Close() error { return nil }
