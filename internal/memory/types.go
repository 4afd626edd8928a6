package memory

import "time"

// Followup is one follow-up exchange recorded against a topic: the generated follow-up question and the candidate's reply.
type Followup struct {
	Question string    `json:"question"`
	Reply    string    `json:"reply"`
	AskedAt  time.Time `json:"asked_at"`
}

// TopicEntry is the working memory for a single topic within a single
// session: the main question asked, the candidate's first reply, and any
// follow-up exchanges accumulated afterward.
type TopicEntry struct {
	Topic         string     `json:"topic"`
	MainQuestion  string     `json:"main_question"`
	MainReply     string     `json:"main_reply"`
	Followups     []Followup `json:"followups"`
	StartedAt     time.Time  `json:"started_at"`
	LastAccessAt  time.Time  `json:"last_access_at"`
}

// Stats summarizes the current size of the working-memory table, as
// returned by Store.Stats and Store.GlobalStats.
type Stats struct {
	Sessions int
	Topics   int
}
