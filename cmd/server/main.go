package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chadiek/interview-agent/internal/archive"
	"github.com/chadiek/interview-agent/internal/config"
	"github.com/chadiek/interview-agent/internal/httpserver"
	"github.com/chadiek/interview-agent/internal/logger"
	"github.com/chadiek/interview-agent/internal/notify"
	"github.com/chadiek/interview-agent/internal/observer"
	"github.com/chadiek/interview-agent/internal/policy"
	"github.com/chadiek/interview-agent/internal/session"
	"github.com/chadiek/interview-agent/internal/stt"
	"github.com/chadiek/interview-agent/internal/transport"
	"github.com/chadiek/interview-agent/internal/tts"
)

func main() {
	cfg := config.Load()
	logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	monitor := observer.New(newDetector(cfg), observer.Config{
		SampleInterval: cfg.FrameSampleInterval,
		Workers:        cfg.ObserverWorkers,
		QueueSize:      cfg.ObserverQueueSize,
	})
	defer monitor.Close()

	sttClient := stt.NewWhisperClient(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTModel)
	policyClient := policy.NewChatClient(cfg.PolicyBaseURL, cfg.PolicyAPIKey, cfg.PolicyModel)

	registry := session.NewRegistry()
	handler := transport.NewHandler(registry, sttClient, policyClient, newSynthesizer(cfg), monitor).
		WithAuthToken(cfg.WSAuthToken).
		WithTimeouts(cfg.STTTimeout, cfg.PolicyTimeout, cfg.TTSTimeout).
		WithOnFinished(newCompletionHook(cfg))

	e := httpserver.New(handler, registry)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.HTTPAddress).Msg("server listening")
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = server.Close()
	}
}

// newDetector loads the face cascade, or returns nil so the monitor runs
// with face analysis disabled.
func newDetector(cfg config.Config) observer.FaceDetector {
	detector, err := observer.NewPigoDetector(cfg.FaceCascadePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.FaceCascadePath).
			Msg("face cascade unavailable, visual risk analysis disabled")
		return nil
	}
	return detector
}

func newSynthesizer(cfg config.Config) session.TextToSpeech {
	switch cfg.TTSProvider {
	case "deepgram":
		return tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
	default:
		return tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	}
}

// newCompletionHook wires the optional post-interview side effects. Either
// integration can be left unconfigured independently.
func newCompletionHook(cfg config.Config) func(string, session.CandidateInfo, []session.Turn) {
	var store *archive.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		s, err := archive.New(archive.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Warn().Err(err).Msg("transcript archive disabled")
		} else {
			store = s
		}
	}

	var notifier *notify.SMSNotifier
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioNotifyNumber != "" {
		notifier = notify.New(notify.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFromNumber,
			To:         cfg.TwilioNotifyNumber,
		})
	}

	if store == nil && notifier == nil {
		return nil
	}

	return func(sessionID string, candidate session.CandidateInfo, transcript []session.Turn) {
		if store != nil {
			if err := store.SaveTranscript(sessionID, candidate, transcript); err != nil {
				log.Error().Err(err).Str("session", sessionID).Msg("transcript upload failed")
			}
		}
		if notifier != nil {
			if err := notifier.InterviewCompleted(sessionID, candidate.Name, len(transcript)); err != nil {
				log.Error().Err(err).Str("session", sessionID).Msg("completion sms failed")
			}
		}
	}
}
