package logsink

import "time"

// Entry is one completed topic's interaction record, persisted once a topic
// is fully wrapped up (main question/reply plus any follow-ups).
type Entry struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Topic        string    `json:"topic"`
	MainQuestion string    `json:"main_question"`
	MainReply    string    `json:"main_reply"`
	Followups    []Followup `json:"followups"`
	PIIRedacted  bool      `json:"pii_redacted"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Followup mirrors memory.Followup for the persisted shape, kept
// independent so the log sink's wire/storage format doesn't change shape
// every time working-memory internals do.
type Followup struct {
	Question string    `json:"question"`
	Reply    string    `json:"reply"`
	AskedAt  time.Time `json:"asked_at"`
}
