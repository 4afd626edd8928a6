package session

import (
	"time"

	"github.com/fieldnotes-ai/interviewer/internal/observability"
)

// Status is the lifecycle state of an interview session.
type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusTerminated  Status = "terminated"
	StatusError       Status = "error"
)

// Config is the immutable-per-session configuration snapshot.
type Config struct {
	DurationLimit      time.Duration
	MinTopics          int
	MaxFollowupsPerTop int
}

// Session is the per-candidate interview instance.
type Session struct {
	ID             string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	TopicsCovered  int        `json:"topics_covered"`
	TotalFollowups int        `json:"total_followups"`
	Config         Config     `json:"-"`
}

// TimeRemaining returns the duration left before the session's duration limit
// elapses, measured from StartedAt. Never negative.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	remaining := s.Config.DurationLimit - now.Sub(s.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StatsResponse is the HTTP-facing snapshot of a session's progress.
type StatsResponse struct {
	SessionID      string                        `json:"session_id"`
	UserID         string                        `json:"user_id"`
	Status         Status                        `json:"status"`
	StartedAt      time.Time                     `json:"started_at"`
	TopicsCovered  int                           `json:"topics_covered"`
	TotalFollowups int                           `json:"total_followups"`
	TimeRemainingS int64                         `json:"time_remaining_seconds"`
	TurnStages     observability.TurnStageSnapshot `json:"turn_stages"`
}
