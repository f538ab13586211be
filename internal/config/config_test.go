package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "")
	t.Setenv("STT_MODEL", "")
	t.Setenv("FRAME_SAMPLE_INTERVAL", "")

	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, "whisper-large-v3", cfg.STTModel)
	require.Equal(t, 5, cfg.FrameSampleInterval)
	require.Equal(t, 20*time.Second, cfg.PolicyTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("FRAME_SAMPLE_INTERVAL", "3")
	t.Setenv("STT_TIMEOUT", "5s")
	t.Setenv("TTS_PROVIDER", "deepgram")

	cfg := Load()
	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, 3, cfg.FrameSampleInterval)
	require.Equal(t, 5*time.Second, cfg.STTTimeout)
	require.Equal(t, "deepgram", cfg.TTSProvider)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FRAME_SAMPLE_INTERVAL", "zero")
	t.Setenv("STT_TIMEOUT", "soon")

	cfg := Load()
	require.Equal(t, 5, cfg.FrameSampleInterval)
	require.Equal(t, 30*time.Second, cfg.STTTimeout)
}

func TestLoad_SampleIntervalNeverBelowOne(t *testing.T) {
	t.Setenv("FRAME_SAMPLE_INTERVAL", "0")
	cfg := Load()
	require.Equal(t, 1, cfg.FrameSampleInterval)
}
