// Package supervisor accepts one authenticated connection, deduplicates
// it against the Active-Session Registry, and runs the Turn Engine
// alongside a message reader and a heartbeat task, all sharing one
// session-scoped cancellation context.
package supervisor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fieldnotes-ai/interviewer/internal/audio"
	"github.com/fieldnotes-ai/interviewer/internal/auth"
	"github.com/fieldnotes-ai/interviewer/internal/followup"
	"github.com/fieldnotes-ai/interviewer/internal/logsink"
	"github.com/fieldnotes-ai/interviewer/internal/memory"
	"github.com/fieldnotes-ai/interviewer/internal/moderation"
	"github.com/fieldnotes-ai/interviewer/internal/observability"
	"github.com/fieldnotes-ai/interviewer/internal/protocol"
	"github.com/fieldnotes-ai/interviewer/internal/questionbank"
	"github.com/fieldnotes-ai/interviewer/internal/session"
	"github.com/fieldnotes-ai/interviewer/internal/telemetry"
	"github.com/fieldnotes-ai/interviewer/internal/turn"
)

// ErrAlreadyActive is returned by Handle when the authenticated user
// already holds an active session.
var ErrAlreadyActive = session.ErrAlreadyActive

// Deps collects every collaborator the Turn Engine and its auxiliary
// tasks need, built once at startup and shared across connections.
type Deps struct {
	Verifier  auth.TokenVerifier
	Sessions  *session.Manager
	Moderation *moderation.Adapter
	Followups *followup.Adapter
	Memory    *memory.Store
	Bank      questionbank.Bank
	Sink      logsink.Sink
	Tracer    *telemetry.Provider
	Metrics   *observability.Metrics
	STT       audio.STTEngine
	TTS       audio.TTSEngine

	SessionConfig     session.Config
	TurnConfig        turn.Config
	AudioConfig       audio.Config
	HeartbeatInterval time.Duration
	GracePeriod       time.Duration
}

// Supervisor runs one session per accepted connection.
type Supervisor struct {
	deps Deps
}

// New builds a Supervisor over deps, filling unset durations with the
// spec's defaults.
func New(deps Deps) *Supervisor {
	if deps.HeartbeatInterval <= 0 {
		deps.HeartbeatInterval = 5 * time.Second
	}
	if deps.GracePeriod <= 0 {
		deps.GracePeriod = 5 * time.Second
	}
	return &Supervisor{deps: deps}
}

// Authenticate verifies token against the configured verifier.
func (sv *Supervisor) Authenticate(token string) (userID string, err error) {
	return sv.deps.Verifier.Verify(token)
}

// Handle runs one session for userID to completion. inbound carries
// parsed client envelopes (closed by the transport on disconnect);
// outbound carries server envelopes for the transport to write out, in
// emission order. Handle returns once the session has fully wound down
// and the user's registry slot has been freed on every exit path,
// including a recovered panic.
func (sv *Supervisor) Handle(parent context.Context, userID string, inbound <-chan any, outbound chan<- any) (err error) {
	sess, createErr := sv.deps.Sessions.Create(parent, userID, sv.deps.SessionConfig)
	if createErr != nil {
		if errors.Is(createErr, session.ErrAlreadyActive) {
			sv.sendBestEffort(outbound, protocol.Terminate{Type: protocol.TypeTerminate, Reason: "already active"})
			sv.observeSessionEvent("rejected_duplicate")
		}
		return createErr
	}
	sv.observeSessionEvent("created")
	sv.observeActiveSessions()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	finalStatus := session.StatusTerminated
	defer func() {
		if r := recover(); r != nil {
			log.Printf("supervisor: recovered panic in session %s: %v", sess.ID, r)
			finalStatus = session.StatusError
			err = errorFromPanic(r)
		}
		cancel()
		ended, endErr := sv.deps.Sessions.End(context.Background(), sess.ID, finalStatus)
		if endErr != nil {
			log.Printf("supervisor: session end failed for %s: %v", sess.ID, endErr)
		}
		sv.observeSessionEvent(string(finalStatus))
		sv.observeActiveSessions()
		if ended != nil && ended.EndedAt != nil {
			sv.observeSessionDuration(ended.EndedAt.Sub(ended.StartedAt))
		}
	}()

	coordinator := audio.NewCoordinator(outbound, sv.deps.STT, sv.deps.TTS, sv.deps.AudioConfig, sess.ID, sv.deps.Tracer)
	engine := turn.New(
		sess.ID, sess.UserID, cancel, outbound,
		coordinator, sv.deps.Moderation, sv.deps.Followups, sv.deps.Memory, sv.deps.Bank,
		sv.deps.Sink, sv.deps.Sessions, sv.deps.Tracer, sv.deps.Metrics, sv.deps.TurnConfig,
	)

	var turnPanicked bool
	turnDone := make(chan struct{})
	go func() {
		defer close(turnDone)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("supervisor: recovered panic in turn engine for session %s: %v", sess.ID, r)
				turnPanicked = true
				cancel()
			}
		}()
		engine.Run(ctx)
	}()

	readerDone := runMessageReader(ctx, cancel, inbound, coordinator)
	heartbeatDone := runHeartbeat(ctx, cancel, outbound, sv.deps.HeartbeatInterval)

	select {
	case <-turnDone:
		if turnPanicked {
			finalStatus = session.StatusError
		} else {
			finalStatus = session.StatusCompleted
		}
	case <-readerDone:
	case <-heartbeatDone:
	}

	cancel()
	waitWithGrace(sv.deps.GracePeriod, turnDone, readerDone, heartbeatDone)

	return nil
}

func waitWithGrace(grace time.Duration, dones ...<-chan struct{}) {
	deadline := time.After(grace)
	for _, d := range dones {
		select {
		case <-d:
		case <-deadline:
			return
		}
	}
}

func runMessageReader(ctx context.Context, cancel context.CancelFunc, inbound <-chan any, coordinator *audio.Coordinator) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-inbound:
				if !ok {
					return
				}
				switch m := msg.(type) {
				case protocol.AudioPlaybackCompleted:
					coordinator.OnClientMessage(m)
				case protocol.AudioPlaybackError:
					coordinator.OnClientMessage(m)
				case protocol.EndSession:
					return
				}
			}
		}
	}()
	return done
}

func runHeartbeat(ctx context.Context, cancel context.CancelFunc, outbound chan<- any, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case outbound <- protocol.Heartbeat{Type: protocol.TypeHeartbeat, Timestamp: t.Unix()}:
				case <-ctx.Done():
					return
				default:
					log.Printf("supervisor: heartbeat emission failed, outbound saturated")
					return
				}
			}
		}
	}()
	return done
}

func (sv *Supervisor) observeSessionEvent(event string) {
	if sv.deps.Metrics == nil {
		return
	}
	sv.deps.Metrics.SessionEvents.WithLabelValues(event).Inc()
}

func (sv *Supervisor) observeActiveSessions() {
	if sv.deps.Metrics == nil {
		return
	}
	sv.deps.Metrics.ActiveSessions.Set(float64(sv.deps.Sessions.ActiveCount()))
}

func (sv *Supervisor) observeSessionDuration(d time.Duration) {
	sv.deps.Metrics.ObserveSessionDuration(d)
}

func (sv *Supervisor) sendBestEffort(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
	}
}

func errorFromPanic(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return errors.New("supervisor: recovered panic")
}
