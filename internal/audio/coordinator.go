package audio

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldnotes-ai/interviewer/internal/protocol"
	"github.com/fieldnotes-ai/interviewer/internal/telemetry"
)

// errPlaybackTimeout records a handshake span outcome when the client never
// acknowledges playback within PlaybackWait.
var errPlaybackTimeout = errors.New("audio: playback-complete timeout")

// Config bounds the Coordinator's timeouts and retry behavior.
type Config struct {
	PlaybackWait  time.Duration
	SilenceStop   time.Duration
	MaxWait       time.Duration
	MaxSTTRetries int
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		PlaybackWait:  30 * time.Second,
		SilenceStop:   3 * time.Second,
		MaxWait:       60 * time.Second,
		MaxSTTRetries: 2,
	}
}

type pendingUtterance struct {
	done chan struct{}
}

// Coordinator is the sole interviewer-facing surface for speaking to and
// listening from the candidate. All its methods run on the Turn Engine's
// goroutine; OnClientMessage may be called concurrently from the
// Supervisor's message-reader goroutine and only touches the pending map
// under mu.
type Coordinator struct {
	outbound  chan<- any
	stt       STTEngine
	tts       TTSEngine
	cfg       Config
	sessionID string
	tracer    *telemetry.Provider

	mu      sync.Mutex
	pending map[string]*pendingUtterance
}

// NewCoordinator builds a Coordinator that writes envelopes onto outbound.
// tracer may be nil; sessionID is only used to tag handshake spans.
func NewCoordinator(outbound chan<- any, stt STTEngine, tts TTSEngine, cfg Config, sessionID string, tracer *telemetry.Provider) *Coordinator {
	return &Coordinator{
		outbound:  outbound,
		stt:       stt,
		tts:       tts,
		cfg:       cfg,
		sessionID: sessionID,
		tracer:    tracer,
		pending:   make(map[string]*pendingUtterance),
	}
}

// SpeakAndWait emits a speech envelope of the given kind and blocks until
// the client acknowledges playback or the playback-wait timeout elapses.
func (c *Coordinator) SpeakAndWait(ctx context.Context, text string, kind protocol.SpeechType) {
	audioData, format, err := c.tts.Synthesize(ctx, text)
	if err != nil {
		log.Printf("audio: tts synthesis failed, falling back to text-only: %v", err)
		audioData, format = "", ""
	}

	messageID := uuid.NewString()
	done := c.register(messageID)

	select {
	case c.outbound <- protocol.Speech{
		Type:       protocol.TypeSpeech,
		MessageID:  messageID,
		Text:       text,
		SpeechType: kind,
		AudioData:  audioData,
		Format:     format,
	}:
	case <-ctx.Done():
		c.forget(messageID)
		return
	}

	c.awaitPlayback(ctx, messageID, done)
}

// AskAndListen emits a question envelope, awaits playback, opens the
// listen gate, and invokes STT with retry-on-empty up to MaxSTTRetries. On
// exhaustion it speaks a skip notice and returns ("", false).
func (c *Coordinator) AskAndListen(ctx context.Context, question string) (string, bool) {
	if !c.askQuestion(ctx, question) {
		return "", false
	}
	return c.listenWithRetry(ctx)
}

// AskQuestionRepeat re-emits the same question (used on a "repeat"
// moderation verdict) and then listens again. Identical to AskAndListen;
// named separately so call sites read as intent, not mechanism.
func (c *Coordinator) AskQuestionRepeat(ctx context.Context, question string) (string, bool) {
	return c.AskAndListen(ctx, question)
}

// ListenOnly opens the listen gate without re-emitting any question or
// speech, used after a moderation branch that must re-listen without
// repeating the prompt.
func (c *Coordinator) ListenOnly(ctx context.Context) (string, bool) {
	return c.listenWithRetry(ctx)
}

func (c *Coordinator) askQuestion(ctx context.Context, question string) bool {
	audioData, format, err := c.tts.Synthesize(ctx, question)
	if err != nil {
		log.Printf("audio: tts synthesis failed, falling back to text-only: %v", err)
		audioData, format = "", ""
	}

	messageID := uuid.NewString()
	done := c.register(messageID)

	select {
	case c.outbound <- protocol.Question{
		Type:       protocol.TypeQuestion,
		MessageID:  messageID,
		Text:       question,
		AudioData:  audioData,
		Format:     format,
	}:
	case <-ctx.Done():
		c.forget(messageID)
		return false
	}

	c.awaitPlayback(ctx, messageID, done)
	return ctx.Err() == nil
}

func (c *Coordinator) listenWithRetry(ctx context.Context) (string, bool) {
	select {
	case c.outbound <- protocol.StartListening{Type: protocol.TypeStartListening}:
	case <-ctx.Done():
		return "", false
	}

	for attempt := 0; attempt < c.cfg.MaxSTTRetries; attempt++ {
		transcript, err := c.stt.Listen(ctx, c.cfg.SilenceStop, c.cfg.MaxWait)
		if err != nil {
			if ctx.Err() != nil {
				return "", false
			}
			log.Printf("audio: stt error on attempt %d: %v", attempt, err)
			continue
		}
		if transcript != "" {
			select {
			case c.outbound <- protocol.Answer{Type: protocol.TypeAnswer, Text: transcript}:
			case <-ctx.Done():
				return "", false
			}
			return transcript, true
		}
		if attempt < c.cfg.MaxSTTRetries-1 {
			c.SpeakAndWait(ctx, "I didn't catch that. Could you say that again?", protocol.SpeechRetry)
			select {
			case c.outbound <- protocol.StartListening{Type: protocol.TypeStartListening}:
			case <-ctx.Done():
				return "", false
			}
		}
	}

	c.SpeakAndWait(ctx, "Let's move on to the next question.", protocol.SpeechSkip)
	return "", false
}

// OnClientMessage dispatches playback-complete and playback-error
// envelopes from the client, resolving the matching pending utterance. A
// playback error is treated as playback-complete for handshake purposes.
func (c *Coordinator) OnClientMessage(msg any) {
	switch m := msg.(type) {
	case protocol.AudioPlaybackCompleted:
		c.settle(m.MessageID)
	case protocol.AudioPlaybackError:
		log.Printf("audio: client playback error for message %s: %s", m.MessageID, m.Error)
		c.settle(m.MessageID)
	}
}

func (c *Coordinator) register(messageID string) chan struct{} {
	done := make(chan struct{})
	c.mu.Lock()
	c.pending[messageID] = &pendingUtterance{done: done}
	c.mu.Unlock()
	return done
}

func (c *Coordinator) forget(messageID string) {
	c.mu.Lock()
	delete(c.pending, messageID)
	c.mu.Unlock()
}

func (c *Coordinator) settle(messageID string) {
	c.mu.Lock()
	p, ok := c.pending[messageID]
	if ok {
		delete(c.pending, messageID)
	}
	c.mu.Unlock()
	if ok {
		close(p.done)
	}
}

func (c *Coordinator) awaitPlayback(ctx context.Context, messageID string, done chan struct{}) {
	var span trace.Span
	if c.tracer != nil {
		_, span = c.tracer.StartHandshakeSpan(ctx, c.sessionID, messageID)
	}

	timer := time.NewTimer(c.cfg.PlaybackWait)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		log.Printf("audio: playback-complete timeout for message %s", messageID)
		c.forget(messageID)
		err = errPlaybackTimeout
	case <-ctx.Done():
		c.forget(messageID)
		err = ctx.Err()
	}

	if span != nil {
		telemetry.EndHandshakeSpan(span, err)
	}
}
