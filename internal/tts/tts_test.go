package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/text-to-speech/voice-1/stream", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("xi-api-key"))
		// Two writes to exercise stream collection.
		_, _ = w.Write([]byte("chunk1-"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		_, _ = w.Write([]byte("chunk2"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("secret", "voice-1")
	c.BaseURL = srv.URL
	audio, err := c.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []byte("chunk1-chunk2"), audio)
}

func TestElevenLabs_EmptyTextShortCircuits(t *testing.T) {
	c := NewElevenLabsClient("secret", "voice-1")
	c.BaseURL = "http://unused"
	audio, err := c.Synthesize(context.Background(), "   ")
	require.NoError(t, err)
	require.Nil(t, audio)
}

func TestElevenLabs_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewElevenLabsClient("secret", "voice-1")
	c.BaseURL = srv.URL
	_, err := c.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=402")
}

func TestElevenLabs_MissingCredentials(t *testing.T) {
	c := NewElevenLabsClient("", "")
	_, err := c.Synthesize(context.Background(), "hello")
	require.Error(t, err)
}

// Smoke test: without an API key Synthesize must fail fast, not dial out.
func TestDeepgram_Synthesize_NoKey(t *testing.T) {
	d := NewDeepgramClient("", "")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := d.Synthesize(ctx, "hello")
	require.Error(t, err)
}

func TestDeepgram_EmptyText(t *testing.T) {
	d := NewDeepgramClient("key", "")
	audio, err := d.Synthesize(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, audio)
}
