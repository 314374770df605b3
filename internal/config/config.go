package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Sample data
	SampleAudioURL string
	WorkDir        string

	// Object storage
	GCSBucket            string
	GCSSigningEmail      string
	GCSSigningPrivateKey string
	SignedURLTTL         time.Duration

	// Transcription service
	TranscribeAPIURL     string
	TranscribeSigningKey string
	TranscribeIssuer     string
	TranscribeTokenTTL   time.Duration
	LanguageCode         string
	Specialty            string
	ConversationType     string
	MaxSpeakers          int

	// Poller settings
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	PollMultiplier  float64
	PollMaxWait     time.Duration

	// Generation service
	GenerateAPIURL string
	GenerateAPIKey string
	ModelID        string
	MaxTokens      int
	Temperature    float64

	// Optional run ledger
	DatabaseURL string

	// Logging
	LogLevel string
}

const defaultSampleAudioURL = "https://springfield-artifacts.storage.googleapis.com/samples/patient-interview.tar.gz"

func Load() Config {
	cfg := Config{
		SampleAudioURL:       getEnv("SAMPLE_AUDIO_URL", defaultSampleAudioURL),
		WorkDir:              getEnv("WORK_DIR", os.TempDir()),
		GCSBucket:            getEnv("GCS_BUCKET", ""),
		GCSSigningEmail:      getEnv("GCS_SIGNING_EMAIL", ""),
		GCSSigningPrivateKey: getEnv("GCS_SIGNING_PRIVATE_KEY", ""),
		TranscribeAPIURL:     getEnv("TRANSCRIBE_API_URL", ""),
		TranscribeSigningKey: getEnv("TRANSCRIBE_SIGNING_KEY", ""),
		TranscribeIssuer:     getEnv("TRANSCRIBE_ISSUER", "clinical-notes"),
		LanguageCode:         getEnv("TRANSCRIBE_LANGUAGE_CODE", "en-US"),
		Specialty:            getEnv("TRANSCRIBE_SPECIALTY", "PRIMARYCARE"),
		ConversationType:     getEnv("TRANSCRIBE_CONVERSATION_TYPE", "CONVERSATION"),
		GenerateAPIURL:       getEnv("GENERATE_API_URL", ""),
		GenerateAPIKey:       getEnv("GENERATE_API_KEY", ""),
		ModelID:              getEnv("GENERATE_MODEL_ID", "claude-3-5-sonnet-latest"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	cfg.SignedURLTTL = durationSecondsEnv("GCS_SIGNED_URL_TTL_SECONDS", 3600)
	cfg.TranscribeTokenTTL = durationSecondsEnv("TRANSCRIBE_TOKEN_TTL_SECONDS", 300)
	cfg.PollInterval = durationSecondsEnv("POLL_INTERVAL_SECONDS", 5)
	cfg.PollMaxInterval = durationSecondsEnv("POLL_MAX_INTERVAL_SECONDS", 30)
	cfg.PollMaxWait = durationSecondsEnv("POLL_MAX_WAIT_SECONDS", 900)

	multiplier, err := strconv.ParseFloat(getEnv("POLL_MULTIPLIER", "1.5"), 64)
	if err != nil || multiplier < 1 {
		panic(fmt.Sprintf("invalid POLL_MULTIPLIER: %v", err))
	}
	cfg.PollMultiplier = multiplier

	maxSpeakers, err := strconv.Atoi(getEnv("TRANSCRIBE_MAX_SPEAKERS", "2"))
	if err != nil || maxSpeakers < 1 {
		panic(fmt.Sprintf("invalid TRANSCRIBE_MAX_SPEAKERS: %v", err))
	}
	cfg.MaxSpeakers = maxSpeakers

	maxTokens, err := strconv.Atoi(getEnv("GENERATE_MAX_TOKENS", "4096"))
	if err != nil || maxTokens < 1 {
		panic(fmt.Sprintf("invalid GENERATE_MAX_TOKENS: %v", err))
	}
	cfg.MaxTokens = maxTokens

	temperature, err := strconv.ParseFloat(getEnv("GENERATE_TEMPERATURE", "0"), 64)
	if err != nil || temperature < 0 {
		panic(fmt.Sprintf("invalid GENERATE_TEMPERATURE: %v", err))
	}
	cfg.Temperature = temperature

	// Validate required fields
	if cfg.GCSBucket == "" {
		panic("GCS_BUCKET is required")
	}

	if cfg.TranscribeAPIURL == "" {
		panic("TRANSCRIBE_API_URL is required")
	}

	if cfg.TranscribeSigningKey == "" {
		panic("TRANSCRIBE_SIGNING_KEY is required")
	}

	if cfg.GenerateAPIURL == "" {
		panic("GENERATE_API_URL is required")
	}

	if cfg.GenerateAPIKey == "" {
		panic("GENERATE_API_KEY is required")
	}

	return cfg
}

func durationSecondsEnv(key string, defaultSeconds int) time.Duration {
	seconds, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultSeconds)))
	if err != nil || seconds < 0 {
		panic(fmt.Sprintf("invalid %s: %v", key, err))
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}
