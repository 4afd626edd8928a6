package logsink

import (
	"context"

	"github.com/fieldnotes-ai/interviewer/internal/policy"
)

// Sink persists completed interaction log entries. PII is redacted from
// free-text fields before any implementation ever sees raw input, so a
// Sink implementation never needs to redact itself.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// Redact scrubs PII from an entry's free-text fields in place and reports
// whether anything was changed. Call before handing the entry to a Sink.
func Redact(entry *Entry) bool {
	changed := false

	if red, ch := policy.RedactPII(entry.MainQuestion); ch {
		entry.MainQuestion = red
		changed = true
	}
	if red, ch := policy.RedactPII(entry.MainReply); ch {
		entry.MainReply = red
		changed = true
	}
	for i, f := range entry.Followups {
		if red, ch := policy.RedactPII(f.Question); ch {
			entry.Followups[i].Question = red
			changed = true
		}
		if red, ch := policy.RedactPII(f.Reply); ch {
			entry.Followups[i].Reply = red
			changed = true
		}
	}

	entry.PIIRedacted = changed
	return changed
}
