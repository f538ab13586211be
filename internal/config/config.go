package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	WSAuthToken string

	LogLevel  string
	LogPretty bool

	// STT (Whisper-compatible transcription endpoint)
	STTBaseURL string
	STTAPIKey  string
	STTModel   string
	STTTimeout time.Duration

	// Dialogue policy (OpenAI-compatible chat completions endpoint)
	PolicyBaseURL string
	PolicyAPIKey  string
	PolicyModel   string
	PolicyTimeout time.Duration

	// TTS
	TTSProvider       string // "elevenlabs" or "deepgram"
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	DeepgramKey       string
	DeepgramModel     string
	TTSTimeout        time.Duration

	// Visual risk monitor
	FrameSampleInterval int
	ObserverWorkers     int
	ObserverQueueSize   int
	FaceCascadePath     string

	// Completion hooks
	SupabaseURL        string
	SupabaseKey        string
	SupabaseBucket     string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	TwilioNotifyNumber string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	cfg := Config{
		HTTPAddress: getenv("HTTP_ADDRESS", ":8080"),
		WSAuthToken: os.Getenv("WS_AUTH_TOKEN"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogPretty: getenvBool("LOG_PRETTY", false),

		STTBaseURL: getenv("STT_BASE_URL", "https://api.groq.com/openai/v1"),
		STTAPIKey:  os.Getenv("STT_API_KEY"),
		STTModel:   getenv("STT_MODEL", "whisper-large-v3"),
		STTTimeout: getenvDuration("STT_TIMEOUT", 30*time.Second),

		PolicyBaseURL: getenv("POLICY_BASE_URL", "https://api.cerebras.ai/v1"),
		PolicyAPIKey:  os.Getenv("POLICY_API_KEY"),
		PolicyModel:   getenv("POLICY_MODEL", "llama-4-maverick-17b-128e-instruct"),
		PolicyTimeout: getenvDuration("POLICY_TIMEOUT", 20*time.Second),

		TTSProvider:       getenv("TTS_PROVIDER", "elevenlabs"),
		ElevenLabsKey:     os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		DeepgramKey:       os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:     getenv("DEEPGRAM_MODEL", "aura-2-thalia-en"),
		TTSTimeout:        getenvDuration("TTS_TIMEOUT", 30*time.Second),

		FrameSampleInterval: getenvInt("FRAME_SAMPLE_INTERVAL", 5),
		ObserverWorkers:     getenvInt("OBSERVER_WORKERS", 4),
		ObserverQueueSize:   getenvInt("OBSERVER_QUEUE_SIZE", 64),
		FaceCascadePath:     getenv("FACE_CASCADE_PATH", "cascade/facefinder"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseKey:        os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_BUCKET", "interview-transcripts"),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:   os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioNotifyNumber: os.Getenv("TWILIO_NOTIFY_NUMBER"),
	}

	if cfg.STTAPIKey == "" {
		log.Warn().Msg("STT_API_KEY not set - transcription will not work")
	}
	if cfg.PolicyAPIKey == "" {
		log.Warn().Msg("POLICY_API_KEY not set - dialogue policy will not work")
	}
	if cfg.TTSProvider == "elevenlabs" && cfg.ElevenLabsKey == "" {
		log.Warn().Msg("ELEVENLABS_API_KEY not set - speech synthesis will not work")
	}
	if cfg.TTSProvider == "deepgram" && cfg.DeepgramKey == "" {
		log.Warn().Msg("DEEPGRAM_API_KEY not set - speech synthesis will not work")
	}
	if cfg.FrameSampleInterval < 1 {
		cfg.FrameSampleInterval = 1
	}
	if cfg.ObserverWorkers < 1 {
		cfg.ObserverWorkers = 1
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env value, using default")
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration env value, using default")
		return def
	}
	return d
}
