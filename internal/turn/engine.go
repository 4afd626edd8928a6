// Package turn drives one interview session end to end: introduction,
// the topic loop with moderation branching and follow-up probing, and
// the closing sequence. It is the single long-running task the Session
// Supervisor spawns per connection.
package turn

import (
	"context"
	"log"
	"time"

	"github.com/fieldnotes-ai/interviewer/internal/audio"
	"github.com/fieldnotes-ai/interviewer/internal/followup"
	"github.com/fieldnotes-ai/interviewer/internal/logsink"
	"github.com/fieldnotes-ai/interviewer/internal/memory"
	"github.com/fieldnotes-ai/interviewer/internal/moderation"
	"github.com/fieldnotes-ai/interviewer/internal/observability"
	"github.com/fieldnotes-ai/interviewer/internal/protocol"
	"github.com/fieldnotes-ai/interviewer/internal/questionbank"
	"github.com/fieldnotes-ai/interviewer/internal/session"
	"github.com/fieldnotes-ai/interviewer/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
)

const (
	introText           = "Hi, thanks for joining. Before we start, could you tell me a little about yourself?"
	transitionWithIntro = "Great, thank you for sharing that. Let's get started."
	transitionNoIntro   = "No problem, let's go ahead and get started."
	transitionBetween   = "Thanks. Let's move on to the next topic."
	completionText      = "That's all the questions I have for you today. Thank you for your time, and best of luck."
	terminationText     = "I need to end this interview here. Thank you for your time."
	redirectText        = "Let's bring it back to the question I asked."
	changeRefusalText   = "I'm not able to skip this topic, but let's keep going."
	thinkingText        = "Take your time."
	repeatConfirmText   = "Sure, let me repeat that."
)

// Config bounds one session's topic loop. The duration limit itself
// lives on the session's own Config (§ session.Config) and is enforced
// via timeRemaining, which reads it back from the Session Manager.
type Config struct {
	MinTopics            int
	MaxFollowupsPerTopic int
}

// Engine runs the full question-and-answer lifecycle for one session.
type Engine struct {
	sessionID string
	userID    string
	cancel    context.CancelFunc
	outbound  chan<- any

	audio      *audio.Coordinator
	moderation *moderation.Adapter
	followups  *followup.Adapter
	memory     *memory.Store
	bank       questionbank.Bank
	selector   *questionbank.Selector
	sink       logsink.Sink
	sessions   *session.Manager
	tracer     *telemetry.Provider
	metrics    *observability.Metrics

	cfg       Config
	startedAt time.Time
}

// New builds an Engine for one session. cancel is the session's own
// cancellation function, invoked by the Engine on a fatal moderation
// verdict.
func New(
	sessionID, userID string,
	cancel context.CancelFunc,
	outbound chan<- any,
	coordinator *audio.Coordinator,
	moderationAdapter *moderation.Adapter,
	followupAdapter *followup.Adapter,
	mem *memory.Store,
	bank questionbank.Bank,
	sink logsink.Sink,
	sessions *session.Manager,
	tracer *telemetry.Provider,
	metrics *observability.Metrics,
	cfg Config,
) *Engine {
	return &Engine{
		sessionID:  sessionID,
		userID:     userID,
		cancel:     cancel,
		outbound:   outbound,
		audio:      coordinator,
		moderation: moderationAdapter,
		followups:  followupAdapter,
		memory:     mem,
		bank:       bank,
		selector:   bank.NewSelector(),
		sink:       sink,
		sessions:   sessions,
		tracer:     tracer,
		metrics:    metrics,
		cfg:        cfg,
		startedAt:  time.Now().UTC(),
	}
}

// Run executes the session lifecycle. It returns when the session
// completes normally, when ctx is cancelled by another component (a
// disconnect, a heartbeat failure, an end_session request), or when a
// fatal moderation verdict cancels the session itself.
func (e *Engine) Run(ctx context.Context) {
	e.emit(ctx, protocol.System{
		Type:      protocol.TypeSystem,
		SessionID: e.sessionID,
		Text:      "Interview session starting.",
	})

	var introReply string
	e.observeStage("stt_listen", func() {
		introReply, _ = e.audio.AskAndListen(ctx, introText)
	})
	if ctx.Err() != nil {
		return
	}
	if introReply != "" {
		e.observeStage("tts_synthesis", func() {
			e.audio.SpeakAndWait(ctx, transitionWithIntro, protocol.SpeechTransition)
		})
	} else {
		e.observeStage("tts_synthesis", func() {
			e.audio.SpeakAndWait(ctx, transitionNoIntro, protocol.SpeechTransition)
		})
	}

	topicsCovered := 0
	for e.timeRemaining() > 0 && topicsCovered < e.cfg.MinTopics && ctx.Err() == nil {
		topic, ok := e.selector.PickNewTopic()
		if !ok {
			break
		}
		seed, err := e.bank.PickQuestion(topic)
		if err != nil {
			log.Printf("turn: no seed question for topic %q, skipping: %v", topic, err)
			continue
		}

		turnCtx := ctx
		var span trace.Span
		if e.tracer != nil {
			turnCtx, span = e.tracer.StartTurnSpan(ctx, e.sessionID, e.userID, topic)
		}

		mainAnswer, label := e.askWithModeration(turnCtx, seed)
		if ctx.Err() != nil {
			if span != nil {
				telemetry.EndTurnSpan(span, string(label), 0, ctx.Err())
			}
			return
		}
		if mainAnswer == "" {
			if span != nil {
				telemetry.EndTurnSpan(span, string(label), 0, nil)
			}
			continue
		}

		followupRecords := e.handleFollowups(turnCtx, topic, seed, mainAnswer, topicsCovered)
		if span != nil {
			telemetry.EndTurnSpan(span, string(label), len(followupRecords), ctx.Err())
		}
		if ctx.Err() != nil {
			return
		}

		e.recordTurn(ctx, topic, seed, mainAnswer, followupRecords)
		topicsCovered++

		if topicsCovered < e.cfg.MinTopics && e.timeRemaining() > 0 && ctx.Err() == nil {
			e.audio.SpeakAndWait(ctx, transitionBetween, protocol.SpeechTransition)
		}
	}

	if ctx.Err() != nil {
		return
	}

	e.audio.SpeakAndWait(ctx, completionText, protocol.SpeechCompletion)
	e.emit(ctx, protocol.Complete{Type: protocol.TypeComplete, SessionID: e.sessionID})
	if _, err := e.sessions.End(context.Background(), e.sessionID, session.StatusCompleted); err != nil {
		log.Printf("turn: session end failed for %s: %v", e.sessionID, err)
	}
	if removed := e.memory.CleanupSession(e.sessionID); !removed {
		log.Printf("turn: cleanup for session %s found no working memory to discard", e.sessionID)
	}
}

// askWithModeration asks question (or re-listens, per the moderation
// branch) until it collects a safe reply, the candidate never replies,
// or a fatal verdict cancels the session.
func (e *Engine) askWithModeration(ctx context.Context, question string) (string, moderation.Label) {
	var reply string
	var ok bool
	e.observeStage("stt_listen", func() {
		reply, ok = e.audio.AskAndListen(ctx, question)
	})

	for {
		if ctx.Err() != nil {
			return "", moderation.LabelSafe
		}
		if !ok || reply == "" {
			return "", moderation.LabelSafe
		}

		var label moderation.Label
		e.observeStage("moderation", func() {
			label = e.moderation.Moderate(ctx, question, reply)
		})
		if e.metrics != nil {
			e.metrics.ObserveModerationLabel(string(label))
		}
		switch label {
		case moderation.LabelSafe:
			return reply, label
		case moderation.LabelAbusive, moderation.LabelMalicious:
			e.audio.SpeakAndWait(ctx, terminationText, protocol.SpeechTermination)
			e.emit(ctx, protocol.Terminate{Type: protocol.TypeTerminate, Reason: "inappropriate"})
			e.cancel()
			return "", label
		case moderation.LabelOffTopic:
			e.observeStage("tts_synthesis", func() { e.audio.SpeakAndWait(ctx, redirectText, protocol.SpeechModeration) })
			e.observeStage("stt_listen", func() { reply, ok = e.audio.ListenOnly(ctx) })
		case moderation.LabelChange:
			e.observeStage("tts_synthesis", func() { e.audio.SpeakAndWait(ctx, changeRefusalText, protocol.SpeechModeration) })
			e.observeStage("stt_listen", func() { reply, ok = e.audio.ListenOnly(ctx) })
		case moderation.LabelThinking:
			e.observeStage("tts_synthesis", func() { e.audio.SpeakAndWait(ctx, thinkingText, protocol.SpeechModeration) })
			e.observeStage("stt_listen", func() { reply, ok = e.audio.ListenOnly(ctx) })
		case moderation.LabelRepeat:
			e.observeStage("tts_synthesis", func() { e.audio.SpeakAndWait(ctx, repeatConfirmText, protocol.SpeechModeration) })
			e.observeStage("stt_listen", func() { reply, ok = e.audio.AskQuestionRepeat(ctx, question) })
		default:
			return reply, label
		}
	}
}

// handleFollowups probes a topic with additional questions while time,
// the per-topic cap, and the candidate's engagement allow it.
func (e *Engine) handleFollowups(ctx context.Context, topic, lastQ, lastA string, topicsCovered int) []logsink.Followup {
	var out []logsink.Followup
	followupsSoFar := 0

	for followupsSoFar < e.cfg.MaxFollowupsPerTopic && e.timeRemaining() > 0 && ctx.Err() == nil {
		remainingMin := e.timeRemaining().Minutes()
		spentMin := time.Since(e.startedAt).Minutes()

		var should bool
		e.observeStage("followup_decision", func() {
			should = e.followups.ShouldGenerate(ctx, e.sessionID, topic, lastQ, lastA, remainingMin, spentMin, followupsSoFar, topicsCovered)
		})
		if !should {
			break
		}

		var genQ string
		var err error
		e.observeStage("followup_generate", func() {
			genQ, err = e.followups.Generate(ctx, e.sessionID, topic, lastQ, lastA)
		})
		if err != nil {
			log.Printf("turn: follow-up generation failed for session %s topic %q: %v", e.sessionID, topic, err)
			break
		}

		answer, _ := e.askWithModeration(ctx, genQ)
		if ctx.Err() != nil || answer == "" {
			break
		}

		out = append(out, logsink.Followup{Question: genQ, Reply: answer, AskedAt: time.Now().UTC()})
		lastQ, lastA = genQ, answer
		followupsSoFar++
	}

	return out
}

func (e *Engine) recordTurn(ctx context.Context, topic, question, answer string, followups []logsink.Followup) {
	entry := logsink.Entry{
		SessionID:    e.sessionID,
		UserID:       e.userID,
		Topic:        topic,
		MainQuestion: question,
		MainReply:    answer,
		Followups:    followups,
		RecordedAt:   time.Now().UTC(),
	}
	logsink.Redact(&entry)

	if err := e.sink.Record(ctx, entry); err != nil {
		log.Printf("turn: log sink record failed for session %s topic %q: %v", e.sessionID, topic, err)
	}
	if err := e.sessions.RecordTopicCovered(e.sessionID); err != nil {
		log.Printf("turn: record topic covered failed for session %s: %v", e.sessionID, err)
	}
	if len(followups) > 0 {
		if err := e.sessions.RecordFollowups(e.sessionID, len(followups)); err != nil {
			log.Printf("turn: record follow-ups failed for session %s: %v", e.sessionID, err)
		}
	}
}

func (e *Engine) timeRemaining() time.Duration {
	s, err := e.sessions.Get(e.sessionID)
	if err != nil {
		return 0
	}
	return s.TimeRemaining(time.Now())
}

func (e *Engine) emit(ctx context.Context, msg any) {
	select {
	case e.outbound <- msg:
	case <-ctx.Done():
	}
}

// observeStage times fn and feeds the result into the turn-stage latency
// histogram and rolling window under the given stage label.
func (e *Engine) observeStage(stage string, fn func()) {
	start := time.Now()
	fn()
	if e.metrics != nil {
		e.metrics.ObserveTurnStage(stage, time.Since(start))
	}
}
