// Package config loads runtime settings for the interview service from
// environment variables, applying the spec's defaults and failing fast on
// anything unparseable or missing that the service cannot run without.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the interview orchestrator.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	AllowAnyOrigin   bool
	MetricsNamespace string
	OTELExporter     string

	SessionDurationLimit time.Duration
	MinTopics            int
	MaxFollowupsPerTopic int
	MemoryTTL            time.Duration

	PlaybackWait   time.Duration
	STTSilenceStop time.Duration
	STTMaxWait     time.Duration

	HeartbeatInterval time.Duration
	SupervisorGrace   time.Duration

	QuestionBankPath string

	DatabaseURL      string
	RegistryRedisURL string

	LLMProvider string
	LLMModel    string

	AuthMode       string
	AuthHMACSecret string
}

// Load reads environment variables and applies the spec's defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		AllowAnyOrigin:   false,
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "interview"),
		OTELExporter:     envOrDefault("OTEL_EXPORTER", "none"),

		MinTopics:            1,
		MaxFollowupsPerTopic: 2,

		QuestionBankPath: envOrDefault("QUESTION_BANK_PATH", "configs/questions.yaml"),

		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		RegistryRedisURL: stringsTrimSpace("REGISTRY_REDIS_URL"),

		LLMProvider: envOrDefault("LLM_PROVIDER", "mock"),
		LLMModel:    envOrDefault("LLM_MODEL", "mock"),

		AuthMode:       envOrDefault("AUTH_MODE", ""),
		AuthHMACSecret: stringsTrimSpace("AUTH_HMAC_SECRET"),

		ShutdownTimeout:      15 * time.Second,
		SessionDurationLimit: 1800 * time.Second,
		MemoryTTL:            7200 * time.Second,
		PlaybackWait:         30 * time.Second,
		STTSilenceStop:       3 * time.Second,
		STTMaxWait:           60 * time.Second,
		HeartbeatInterval:    5 * time.Second,
		SupervisorGrace:      5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionDurationLimit, err = secondsFromEnv("SESSION_DURATION_LIMIT_SECONDS", cfg.SessionDurationLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MinTopics, err = intFromEnv("MIN_TOPICS", cfg.MinTopics)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxFollowupsPerTopic, err = intFromEnv("MAX_FOLLOWUPS_PER_TOPIC", cfg.MaxFollowupsPerTopic)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTTL, err = secondsFromEnv("MEMORY_TTL_SECONDS", cfg.MemoryTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.PlaybackWait, err = secondsFromEnv("PLAYBACK_WAIT_SECONDS", cfg.PlaybackWait)
	if err != nil {
		return Config{}, err
	}
	cfg.STTSilenceStop, err = secondsFromEnv("STT_SILENCE_STOP_SECONDS", cfg.STTSilenceStop)
	if err != nil {
		return Config{}, err
	}
	cfg.STTMaxWait, err = secondsFromEnv("STT_MAX_WAIT_SECONDS", cfg.STTMaxWait)
	if err != nil {
		return Config{}, err
	}
	cfg.HeartbeatInterval, err = secondsFromEnv("HEARTBEAT_INTERVAL_SECONDS", cfg.HeartbeatInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SupervisorGrace, err = secondsFromEnv("SUPERVISOR_GRACE_SECONDS", cfg.SupervisorGrace)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionDurationLimit < 30*time.Second {
		return Config{}, fmt.Errorf("SESSION_DURATION_LIMIT_SECONDS must be at least 30s")
	}
	if cfg.MinTopics < 0 {
		return Config{}, fmt.Errorf("MIN_TOPICS must be >= 0")
	}
	if cfg.MaxFollowupsPerTopic < 0 {
		return Config{}, fmt.Errorf("MAX_FOLLOWUPS_PER_TOPIC must be >= 0")
	}
	if strings.ToLower(cfg.AuthMode) != "insecure-dev" && cfg.AuthHMACSecret == "" {
		return Config{}, fmt.Errorf("AUTH_HMAC_SECRET is required unless AUTH_MODE=insecure-dev")
	}
	switch cfg.OTELExporter {
	case "none", "stdout", "otlp":
	default:
		return Config{}, fmt.Errorf("OTEL_EXPORTER must be one of none, stdout, otlp")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

// secondsFromEnv parses a plain integer count of seconds, matching the
// spec's *_SECONDS env var convention.
func secondsFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
