package memory

import (
	"testing"
	"time"
)

func TestStoreStartTopicAndHas(t *testing.T) {
	s := NewStore(time.Hour)
	if s.Has("s1", "leadership") {
		t.Fatalf("Has() = true before StartTopic")
	}
	s.StartTopic("s1", "leadership", "Tell me about a time you led a team.", "I led a migration project.")
	if !s.Has("s1", "leadership") {
		t.Fatalf("Has() = false after StartTopic")
	}
}

func TestStoreAppendFollowupAccumulates(t *testing.T) {
	s := NewStore(time.Hour)
	s.StartTopic("s1", "conflict", "Describe a conflict you resolved.", "A teammate disagreed on design.")
	s.AppendFollowup("s1", "conflict", "What did you do differently afterward?", "I set up a review doc.")
	s.AppendFollowup("s1", "conflict", "How did that change things?", "Reviews caught issues earlier.")

	entry, ok := s.History("s1", "conflict")
	if !ok {
		t.Fatalf("History() ok = false, want true")
	}
	if len(entry.Followups) != 2 {
		t.Fatalf("Followups len = %d, want 2", len(entry.Followups))
	}
}

func TestStoreAppendFollowupNoOpWithoutStartTopic(t *testing.T) {
	s := NewStore(time.Hour)
	s.AppendFollowup("s1", "missing", "q", "a")
	if s.Has("s1", "missing") {
		t.Fatalf("Has() = true, AppendFollowup should not create a topic")
	}
}

func TestStoreHistoryTouchesOnlyTheRequestedTopic(t *testing.T) {
	s := NewStore(time.Hour)
	s.StartTopic("s1", "first", "q1", "a1")
	s.StartTopic("s1", "second", "q2", "a2")

	entry, ok := s.History("s1", "first")
	if !ok || entry.Topic != "first" {
		t.Fatalf("History() = %+v, ok=%v, want topic %q", entry, ok, "first")
	}

	if _, ok := s.History("s1", "missing"); ok {
		t.Fatalf("History() ok = true for a topic never started")
	}
}

func TestStoreCleanupSessionRemovesAllTopics(t *testing.T) {
	s := NewStore(time.Hour)
	s.StartTopic("s1", "a", "q", "a")
	s.StartTopic("s1", "b", "q", "a")

	if removed := s.CleanupSession("s1"); !removed {
		t.Fatalf("CleanupSession() = false, want true on first call")
	}
	if s.Has("s1", "a") {
		t.Fatalf("session should have no topics after CleanupSession")
	}
	if removed := s.CleanupSession("s1"); removed {
		t.Fatalf("CleanupSession() = true on repeat call, want false")
	}
}

func TestStoreCleanupExpiredKeepsSessionWithFreshTopic(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	s.StartTopic("s1", "stale", "q", "a")
	time.Sleep(30 * time.Millisecond)
	s.StartTopic("s1", "fresh", "q2", "a2")

	removed := s.CleanupExpired()
	if removed != 0 {
		t.Fatalf("CleanupExpired() removed = %d, want 0 (session has a fresh topic)", removed)
	}
	if !s.Has("s1", "stale") {
		t.Fatalf("stale topic should survive alongside a fresh sibling")
	}
}

func TestStoreCleanupExpiredDropsFullyStaleSession(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	s.StartTopic("s1", "stale", "q", "a")
	time.Sleep(30 * time.Millisecond)

	removed := s.CleanupExpired()
	if removed != 1 {
		t.Fatalf("CleanupExpired() removed = %d, want 1", removed)
	}
	if s.Has("s1", "stale") {
		t.Fatalf("stale topic should have been removed")
	}
}

func TestStoreForceCleanupAll(t *testing.T) {
	s := NewStore(time.Hour)
	s.StartTopic("s1", "a", "q", "a")
	s.StartTopic("s2", "b", "q", "a")
	s.ForceCleanupAll()

	stats := s.GlobalStats()
	if stats.Sessions != 0 || stats.Topics != 0 {
		t.Fatalf("GlobalStats() = %+v, want zero", stats)
	}
}

func TestStoreGlobalStats(t *testing.T) {
	s := NewStore(time.Hour)
	s.StartTopic("s1", "a", "q", "a")
	s.StartTopic("s1", "b", "q", "a")
	s.StartTopic("s2", "c", "q", "a")

	stats := s.GlobalStats()
	if stats.Sessions != 2 || stats.Topics != 3 {
		t.Fatalf("GlobalStats() = %+v, want {2 3}", stats)
	}
}
