package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClientMessageAudioPlaybackCompleted(t *testing.T) {
	raw := []byte(`{"type":"audio_playback_completed","message_id":"m1"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	ack, ok := msg.(AudioPlaybackCompleted)
	if !ok {
		t.Fatalf("ParseClientMessage() = %T, want AudioPlaybackCompleted", msg)
	}
	if ack.MessageID != "m1" {
		t.Fatalf("MessageID = %q, want %q", ack.MessageID, "m1")
	}
}

func TestParseClientMessageAudioPlaybackError(t *testing.T) {
	raw := []byte(`{"type":"audio_playback_error","message_id":"m1","error":"decode failed"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	ev, ok := msg.(AudioPlaybackError)
	if !ok {
		t.Fatalf("ParseClientMessage() = %T, want AudioPlaybackError", msg)
	}
	if ev.Error != "decode failed" {
		t.Fatalf("Error = %q, want %q", ev.Error, "decode failed")
	}
}

func TestParseClientMessageEndSession(t *testing.T) {
	raw := []byte(`{"type":"end_session"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(EndSession); !ok {
		t.Fatalf("ParseClientMessage() = %T, want EndSession", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	raw := []byte(`{"type":"not_a_real_type"}`)
	_, err := ParseClientMessage(raw)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ParseClientMessage() error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsServerOriginType(t *testing.T) {
	raw := []byte(`{"type":"question","text":"hi"}`)
	_, err := ParseClientMessage(raw)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ParseClientMessage() error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsMissingMessageID(t *testing.T) {
	raw := []byte(`{"type":"audio_playback_completed"}`)
	_, err := ParseClientMessage(raw)
	if err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want error")
	}
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type": `))
	if err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want error")
	}
}

func TestQuestionMarshalsExpectedFields(t *testing.T) {
	q := Question{
		Type:      TypeQuestion,
		MessageID: "m1",
		Topic:     "leadership",
		Text:      "Tell me about a time you led a team.",
	}
	raw, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["type"] != "question" || decoded["topic"] != "leadership" {
		t.Fatalf("unexpected marshaled fields: %+v", decoded)
	}
}

func BenchmarkParseClientMessageAudioPlaybackCompleted(b *testing.B) {
	raw := []byte(`{"type":"audio_playback_completed","message_id":"m1"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(AudioPlaybackCompleted); !ok {
			b.Fatalf("message type = %T, want AudioPlaybackCompleted", msg)
		}
	}
}
