package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fieldnotes-ai/interviewer/internal/auth"
	"github.com/fieldnotes-ai/interviewer/internal/audio"
	"github.com/fieldnotes-ai/interviewer/internal/config"
	"github.com/fieldnotes-ai/interviewer/internal/followup"
	"github.com/fieldnotes-ai/interviewer/internal/httpapi"
	"github.com/fieldnotes-ai/interviewer/internal/llm"
	"github.com/fieldnotes-ai/interviewer/internal/logsink"
	"github.com/fieldnotes-ai/interviewer/internal/memory"
	"github.com/fieldnotes-ai/interviewer/internal/moderation"
	"github.com/fieldnotes-ai/interviewer/internal/observability"
	"github.com/fieldnotes-ai/interviewer/internal/questionbank"
	"github.com/fieldnotes-ai/interviewer/internal/session"
	"github.com/fieldnotes-ai/interviewer/internal/supervisor"
	"github.com/fieldnotes-ai/interviewer/internal/telemetry"
	"github.com/fieldnotes-ai/interviewer/internal/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	tracer, err := buildTracer(cfg.OTELExporter)
	if err != nil {
		log.Fatalf("telemetry init failed: %v", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown failed: %v", err)
		}
	}()

	sink, err := logsink.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("log sink init failed: %v", err)
	}
	defer sink.Close()

	bank, loaded := questionbank.Load(cfg.QuestionBankPath)
	if !loaded {
		log.Printf("question bank: falling back to built-in bank (could not load %s)", cfg.QuestionBankPath)
	}

	client, err := buildLLMClient(cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}

	verifier, err := buildVerifier(cfg.AuthMode, cfg.AuthHMACSecret)
	if err != nil {
		log.Fatalf("auth init failed: %v", err)
	}

	registry, closeRegistry, err := buildRegistry(cfg.RegistryRedisURL)
	if err != nil {
		log.Fatalf("session registry init failed: %v", err)
	}
	defer closeRegistry()

	sessions := session.NewManager(registry)

	memStore := memory.NewStore(cfg.MemoryTTL)
	stopJanitor := make(chan struct{})
	defer close(stopJanitor)
	memStore.StartJanitor(5*time.Minute, stopJanitor)

	deps := supervisor.Deps{
		Verifier:   verifier,
		Sessions:   sessions,
		Moderation: moderation.New(client),
		Followups:  followup.New(client, memStore),
		Memory:     memStore,
		Bank:       bank,
		Sink:       sink,
		Tracer:     tracer,
		Metrics:    metrics,
		STT:        audio.NewMockSTTEngine(),
		TTS:        audio.NewMockTTSEngine(),

		SessionConfig: session.Config{
			DurationLimit:      cfg.SessionDurationLimit,
			MinTopics:          cfg.MinTopics,
			MaxFollowupsPerTop: cfg.MaxFollowupsPerTopic,
		},
		TurnConfig: turn.Config{
			MinTopics:            cfg.MinTopics,
			MaxFollowupsPerTopic: cfg.MaxFollowupsPerTopic,
		},
		AudioConfig: audio.Config{
			PlaybackWait:  cfg.PlaybackWait,
			SilenceStop:   cfg.STTSilenceStop,
			MaxWait:       cfg.STTMaxWait,
			MaxSTTRetries: 2,
		},
		HeartbeatInterval: cfg.HeartbeatInterval,
		GracePeriod:       cfg.SupervisorGrace,
	}
	sv := supervisor.New(deps)

	api := httpapi.New(cfg, sessions, sv, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

// buildTracer maps OTEL_EXPORTER to a telemetry.Provider, falling back to a
// no-op tracer for "none" so call sites never need a nil check.
func buildTracer(exporter string) (*telemetry.Provider, error) {
	if exporter == "none" || exporter == "" {
		return telemetry.NoopProvider(), nil
	}
	return telemetry.NewProvider(telemetry.Config{ServiceName: "interviewer", Exporter: exporter})
}

// buildLLMClient special-cases LLM_PROVIDER=mock, which llm.New does not
// accept since it has no corresponding any-llm backend.
func buildLLMClient(provider, model string) (llm.Client, error) {
	if strings.EqualFold(provider, "mock") {
		return llm.NewMock(), nil
	}
	return llm.New(provider, model)
}

func buildVerifier(authMode, hmacSecret string) (auth.TokenVerifier, error) {
	if strings.EqualFold(authMode, "insecure-dev") {
		log.Printf("auth: running in insecure-dev mode, accepting any bearer token")
		return auth.AllowAnyVerifier{}, nil
	}
	return auth.NewVerifier(hmacSecret), nil
}

// buildRegistry returns a Redis-backed registry when REGISTRY_REDIS_URL is
// set, otherwise an in-process one. The returned close func is always
// safe to call.
func buildRegistry(redisURL string) (session.Registry, func(), error) {
	if strings.TrimSpace(redisURL) == "" {
		return session.NewInMemoryRegistry(), func() {}, nil
	}
	reg, err := session.NewRedisRegistry(redisURL, 24*time.Hour)
	if err != nil {
		return nil, nil, err
	}
	return reg, func() {
		if err := reg.Close(); err != nil {
			log.Printf("registry close failed: %v", err)
		}
	}, nil
}
