// Package audio implements the ask-and-listen handshake between the
// orchestrator and a connected client: text-to-speech emission, playback
// acknowledgement, and speech-to-text transcript collection.
package audio

import (
	"context"
	"time"
)

// STTEngine transcribes the candidate's next spoken utterance. Real
// implementations stream from a vendor API; this spec only requires the
// synchronous surface below, bounded by silenceStop (stop listening after
// this much trailing silence) and maxWait (give up if the candidate never
// speaks at all).
type STTEngine interface {
	Listen(ctx context.Context, silenceStop, maxWait time.Duration) (transcript string, err error)
}

// TTSEngine synthesizes speech audio for a line of text.
type TTSEngine interface {
	Synthesize(ctx context.Context, text string) (audioBase64, format string, err error)
}

// MockSTTEngine returns a fixed canned transcript (or none), for tests and
// for operators without a real STT vendor configured.
type MockSTTEngine struct {
	Transcripts []string
	next        int
}

// NewMockSTTEngine builds an engine that yields each of transcripts in
// order on successive calls, then empty strings thereafter.
func NewMockSTTEngine(transcripts ...string) *MockSTTEngine {
	return &MockSTTEngine{Transcripts: transcripts}
}

func (m *MockSTTEngine) Listen(ctx context.Context, _, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.next >= len(m.Transcripts) {
		return "", nil
	}
	t := m.Transcripts[m.next]
	m.next++
	return t, nil
}

// MockTTSEngine returns a fixed placeholder payload for every call.
type MockTTSEngine struct{}

// NewMockTTSEngine builds a no-op synthesis engine.
func NewMockTTSEngine() *MockTTSEngine {
	return &MockTTSEngine{}
}

func (m *MockTTSEngine) Synthesize(_ context.Context, _ string) (string, string, error) {
	return "", "mock", nil
}
