// Package telemetry wires OpenTelemetry tracing for the orchestrator: a
// span per interview turn and a span per audio handshake exchange,
// exported to stdout or to an OTLP collector when configured.
package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config selects the span exporter.
type Config struct {
	ServiceName string
	Exporter    string // "stdout" or "otlp"; any other value, "none" or empty included, yields a no-op tracer
	OTLPEndpoint string
	OTLPInsecure bool
}

// DefaultConfig selects the stdout exporter. The orchestrator started with
// no OTEL_EXPORTER set uses "none" instead and records no spans.
func DefaultConfig() Config {
	return Config{ServiceName: "interviewer", Exporter: "stdout"}
}

// Provider owns the tracer and the underlying SDK provider's lifecycle.
type Provider struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewProvider builds a Provider per cfg. Exporter "none" yields a
// no-op tracer so call sites never need a nil check.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "interviewer"
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "otlp":
		exporter, err = otlptracegrpc.New(context.Background(), otlpOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		log.Printf("telemetry: otlp exporter targeting %s", cfg.OTLPEndpoint)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		log.Printf("telemetry: stdout exporter initialized")
	default:
		return &Provider{tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	return &Provider{tracer: tp.Tracer(cfg.ServiceName), provider: tp}, nil
}

func otlpOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

// NoopProvider returns a Provider that records nothing, for tests and
// for components constructed without telemetry wiring.
func NoopProvider() *Provider {
	return &Provider{tracer: otel.Tracer("interviewer-noop")}
}

// Tracer returns the tracer for creating ad-hoc spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown drains the SDK provider, if one was created.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Span attribute keys used across turn and handshake spans.
const (
	AttrSessionID  = "interview.session.id"
	AttrUserID     = "interview.user.id"
	AttrTopic      = "interview.topic"
	AttrMessageID  = "interview.message.id"
	AttrModeration = "interview.moderation.label"
	AttrFollowups  = "interview.followups.count"
)

// StartTurnSpan opens a span covering one question-and-answer turn
// (question emission through moderation verdict and any follow-ups).
func (p *Provider) StartTurnSpan(ctx context.Context, sessionID, userID, topic string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "interview.turn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrUserID, userID),
			attribute.String(AttrTopic, topic),
		),
	)
}

// EndTurnSpan closes a turn span with its outcome.
func EndTurnSpan(span trace.Span, moderationLabel string, followupCount int, err error) {
	span.SetAttributes(
		attribute.String(AttrModeration, moderationLabel),
		attribute.Int(AttrFollowups, followupCount),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// StartHandshakeSpan opens a span covering one speak/listen handshake
// exchange (TTS emission through playback acknowledgement or STT
// transcript).
func (p *Provider) StartHandshakeSpan(ctx context.Context, sessionID, messageID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "interview.handshake",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrMessageID, messageID),
		),
	)
}

// EndHandshakeSpan closes a handshake span.
func EndHandshakeSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
