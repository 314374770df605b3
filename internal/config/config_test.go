package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GCS_BUCKET", "interviews")
	t.Setenv("TRANSCRIBE_API_URL", "https://transcribe.example.com")
	t.Setenv("TRANSCRIBE_SIGNING_KEY", "secret")
	t.Setenv("GENERATE_API_URL", "https://generate.example.com")
	t.Setenv("GENERATE_API_KEY", "api-key")
}

// TestLoadDefaults checks defaults for everything optional.
func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := Load()

	if cfg.LanguageCode != "en-US" {
		t.Fatalf("language = %q", cfg.LanguageCode)
	}
	if cfg.Specialty != "PRIMARYCARE" || cfg.ConversationType != "CONVERSATION" {
		t.Fatalf("domain flags = %q/%q", cfg.Specialty, cfg.ConversationType)
	}
	if cfg.MaxSpeakers != 2 {
		t.Fatalf("max speakers = %d", cfg.MaxSpeakers)
	}
	if cfg.PollInterval != 5*time.Second || cfg.PollMaxWait != 15*time.Minute {
		t.Fatalf("poll settings = %v/%v", cfg.PollInterval, cfg.PollMaxWait)
	}
	if cfg.PollMultiplier != 1.5 {
		t.Fatalf("poll multiplier = %v", cfg.PollMultiplier)
	}
	if cfg.MaxTokens != 4096 || cfg.Temperature != 0 {
		t.Fatalf("generation settings = %d/%v", cfg.MaxTokens, cfg.Temperature)
	}
}

// TestLoadOverrides reads tuning values from the environment.
func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL_SECONDS", "2")
	t.Setenv("TRANSCRIBE_MAX_SPEAKERS", "4")
	t.Setenv("GENERATE_TEMPERATURE", "0.3")

	cfg := Load()

	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v", cfg.PollInterval)
	}
	if cfg.MaxSpeakers != 4 {
		t.Fatalf("max speakers = %d", cfg.MaxSpeakers)
	}
	if cfg.Temperature != 0.3 {
		t.Fatalf("temperature = %v", cfg.Temperature)
	}
}

// TestLoadPanicsOnMissingBucket: required settings have no fallback.
func TestLoadPanicsOnMissingBucket(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GCS_BUCKET", "")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing GCS_BUCKET")
		}
	}()
	Load()
}
