package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.SessionDurationLimit.Seconds() != 1800 {
		t.Fatalf("SessionDurationLimit = %v, want 1800s", cfg.SessionDurationLimit)
	}
	if cfg.MinTopics != 1 {
		t.Fatalf("MinTopics = %d, want 1", cfg.MinTopics)
	}
	if cfg.MaxFollowupsPerTopic != 2 {
		t.Fatalf("MaxFollowupsPerTopic = %d, want 2", cfg.MaxFollowupsPerTopic)
	}
	if cfg.MemoryTTL.Seconds() != 7200 {
		t.Fatalf("MemoryTTL = %v, want 7200s", cfg.MemoryTTL)
	}
	if cfg.QuestionBankPath != "configs/questions.yaml" {
		t.Fatalf("QuestionBankPath = %q, want default", cfg.QuestionBankPath)
	}
	if cfg.LLMProvider != "mock" || cfg.LLMModel != "mock" {
		t.Fatalf("LLMProvider/LLMModel = %q/%q, want mock/mock", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.OTELExporter != "none" {
		t.Fatalf("OTELExporter = %q, want none", cfg.OTELExporter)
	}
}

func TestLoadOverridesSecondsEnvVars(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")
	t.Setenv("SESSION_DURATION_LIMIT_SECONDS", "600")
	t.Setenv("MIN_TOPICS", "3")
	t.Setenv("MAX_FOLLOWUPS_PER_TOPIC", "0")
	t.Setenv("HEARTBEAT_INTERVAL_SECONDS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionDurationLimit.Seconds() != 600 {
		t.Fatalf("SessionDurationLimit = %v, want 600s", cfg.SessionDurationLimit)
	}
	if cfg.MinTopics != 3 {
		t.Fatalf("MinTopics = %d, want 3", cfg.MinTopics)
	}
	if cfg.MaxFollowupsPerTopic != 0 {
		t.Fatalf("MaxFollowupsPerTopic = %d, want 0", cfg.MaxFollowupsPerTopic)
	}
	if cfg.HeartbeatInterval.Seconds() != 10 {
		t.Fatalf("HeartbeatInterval = %v, want 10s", cfg.HeartbeatInterval)
	}
}

func TestLoadRequiresHMACSecretUnlessInsecureDev(t *testing.T) {
	setCoreEnvEmpty(t)

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for missing AUTH_HMAC_SECRET")
	}

	t.Setenv("AUTH_MODE", "insecure-dev")
	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v, want nil under AUTH_MODE=insecure-dev", err)
	}
}

func TestLoadRejectsUnknownOTELExporter(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")
	t.Setenv("OTEL_EXPORTER", "not-a-real-exporter")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for invalid OTEL_EXPORTER")
	}
}

func TestLoadRejectsTooShortDurationLimit(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_HMAC_SECRET", "test-secret")
	t.Setenv("SESSION_DURATION_LIMIT_SECONDS", "5")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for too-short session duration limit")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_ALLOW_ANY_ORIGIN",
		"METRICS_NAMESPACE",
		"OTEL_EXPORTER",
		"SESSION_DURATION_LIMIT_SECONDS",
		"MIN_TOPICS",
		"MAX_FOLLOWUPS_PER_TOPIC",
		"MEMORY_TTL_SECONDS",
		"PLAYBACK_WAIT_SECONDS",
		"STT_SILENCE_STOP_SECONDS",
		"STT_MAX_WAIT_SECONDS",
		"HEARTBEAT_INTERVAL_SECONDS",
		"SUPERVISOR_GRACE_SECONDS",
		"QUESTION_BANK_PATH",
		"DATABASE_URL",
		"REGISTRY_REDIS_URL",
		"LLM_PROVIDER",
		"LLM_MODEL",
		"AUTH_MODE",
		"AUTH_HMAC_SECRET",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
