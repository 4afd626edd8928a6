package memory

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is the interview's working memory: for each (session, topic) pair
// it holds the main question, the candidate's reply, and any follow-up
// exchanges gathered while that topic was active. Entries are held only in
// process memory — this is scratch state for the duration of an interview,
// not the persisted interaction log (see internal/logsink).
type Store struct {
	mu  sync.RWMutex
	ttl time.Duration
	// entries is keyed first by session id, then by topic name.
	entries map[string]map[string]*TopicEntry

	sweep singleflight.Group
}

// NewStore builds a working-memory table whose entries are eligible for
// expiry once idle for longer than ttl. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		entries: make(map[string]map[string]*TopicEntry),
	}
}

// Has reports whether a topic has already been started for this session.
func (s *Store) Has(sessionID, topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topics, ok := s.entries[sessionID]
	if !ok {
		return false
	}
	_, ok = topics[topic]
	return ok
}

// StartTopic records the main question and the candidate's first reply for
// a new topic within a session.
func (s *Store) StartTopic(sessionID, topic, question, reply string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, ok := s.entries[sessionID]
	if !ok {
		topics = make(map[string]*TopicEntry)
		s.entries[sessionID] = topics
	}
	topics[topic] = &TopicEntry{
		Topic:        topic,
		MainQuestion: question,
		MainReply:    reply,
		StartedAt:    now,
		LastAccessAt: now,
	}
}

// AppendFollowup adds a follow-up question/reply pair to an existing topic
// entry and refreshes its last-access timestamp. A no-op if the topic was
// never started (or has since been cleaned up) for this session.
func (s *Store) AppendFollowup(sessionID, topic, question, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, ok := s.entries[sessionID]
	if !ok {
		return
	}
	entry, ok := topics[topic]
	if !ok {
		return
	}
	now := time.Now()
	entry.Followups = append(entry.Followups, Followup{
		Question: question,
		Reply:    reply,
		AskedAt:  now,
	})
	entry.LastAccessAt = now
}

// History returns the recorded entry for a single (session, topic) pair.
// Touches LastAccessAt on that entry only, since retrieval for prompt
// context counts as access to that topic, not to every topic in the
// session.
func (s *Store) History(sessionID, topic string) (TopicEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics, ok := s.entries[sessionID]
	if !ok {
		return TopicEntry{}, false
	}
	entry, ok := topics[topic]
	if !ok {
		return TopicEntry{}, false
	}
	entry.LastAccessAt = time.Now()
	return *entry, true
}

// CleanupSession discards all working memory for a session, regardless of
// per-topic age. Called once a session ends. Returns whether the session
// had any working memory to discard, so callers can tell a fresh cleanup
// from one repeated against an already-cleaned session.
func (s *Store) CleanupSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[sessionID]
	delete(s.entries, sessionID)
	return ok
}

// CleanupExpired drops sessions where every topic has been idle longer than
// the store's ttl. A session with at least one non-expired topic is left
// entirely intact. Returns the number of sessions removed.
//
// The sweep itself is deduplicated through a singleflight.Group: the
// janitor ticker and an operator-triggered sweep can land in the same
// instant, and only one of them should pay the full-table scan while the
// other waits on its result.
func (s *Store) CleanupExpired() int {
	if s.ttl <= 0 {
		return 0
	}
	v, _, _ := s.sweep.Do("expire", func() (interface{}, error) {
		return s.sweepExpired(), nil
	})
	return v.(int)
}

func (s *Store) sweepExpired() int {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sessionID, topics := range s.entries {
		stale := true
		for _, entry := range topics {
			if entry.LastAccessAt.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(s.entries, sessionID)
			removed++
		}
	}
	return removed
}

// ForceCleanupAll empties the entire working-memory table, used during
// shutdown or in test teardown. Returns the number of sessions removed.
func (s *Store) ForceCleanupAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.entries)
	s.entries = make(map[string]map[string]*TopicEntry)
	return removed
}

// Stats reports topic counts for a single session.
func (s *Store) Stats(sessionID string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Sessions: 1, Topics: len(s.entries[sessionID])}
}

// GlobalStats reports the total number of tracked sessions and topics.
func (s *Store) GlobalStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topics := 0
	for _, t := range s.entries {
		topics += len(t)
	}
	return Stats{Sessions: len(s.entries), Topics: topics}
}

// StartJanitor runs CleanupExpired on a fixed interval until stopCh is
// closed.
func (s *Store) StartJanitor(interval time.Duration, stopCh <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}
