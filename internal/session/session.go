package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Pipeline stages reported in ERROR events.
const (
	StageSTT    = "stt"
	StagePolicy = "policy"
	StageTTS    = "tts"
)

// Session orchestrates one interview connection: it owns the audio buffer
// and conversation history, and sequences STT -> DialoguePolicy -> TTS for
// each turn. All inbound events for a connection are dispatched from that
// connection's goroutine, so at most one turn pipeline is in flight.
type Session struct {
	id     string
	logger zerolog.Logger

	stt     SpeechToText
	policy  DialoguePolicy
	tts     TextToSpeech
	monitor VisualMonitor
	send    Sender

	sttTimeout    time.Duration
	policyTimeout time.Duration
	ttsTimeout    time.Duration

	// onFinished is invoked once, asynchronously, when the interview ends.
	onFinished func(sessionID string, candidate CandidateInfo, transcript []Turn)

	mu           sync.Mutex
	state        State
	audioBuf     []byte
	history      []Turn
	candidate    CandidateInfo
	candidateRaw json.RawMessage
}

// New constructs a Session in the IDLE state.
func New(id string, stt SpeechToText, policy DialoguePolicy, tts TextToSpeech, monitor VisualMonitor, send Sender) *Session {
	return &Session{
		id:            id,
		logger:        log.With().Str("session", id).Logger(),
		stt:           stt,
		policy:        policy,
		tts:           tts,
		monitor:       monitor,
		send:          send,
		sttTimeout:    30 * time.Second,
		policyTimeout: 20 * time.Second,
		ttsTimeout:    30 * time.Second,
		state:         StateIdle,
	}
}

// WithTimeouts overrides the per-call deadlines for the external services.
func (s *Session) WithTimeouts(stt, policy, tts time.Duration) *Session {
	s.sttTimeout, s.policyTimeout, s.ttsTimeout = stt, policy, tts
	return s
}

// WithOnFinished registers the completion hook.
func (s *Session) WithOnFinished(fn func(sessionID string, candidate CandidateInfo, transcript []Turn)) *Session {
	s.onFinished = fn
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch routes one inbound structured event. Events arriving after the
// interview finished are ignored.
func (s *Session) Dispatch(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventStartInterview:
		s.startInterview(ctx, ev.Payload)
	case EventUserFinishedSpeaking:
		s.processUserTurn(ctx)
	case EventVideoFrame:
		// Fire-and-forget: the monitor samples and analyzes in the
		// background, never joining the turn pipeline.
		if s.State() == StateFinished {
			return
		}
		var frame string
		if err := json.Unmarshal(ev.Payload, &frame); err != nil || frame == "" {
			return
		}
		s.monitor.Submit(s.id, frame)
	default:
		s.logger.Debug().Str("type", ev.Type).Msg("ignoring unknown event")
	}
}

// AppendAudio buffers a raw audio chunk. Chunks arriving while the session
// is not listening are discarded so stale audio never leaks into a turn.
func (s *Session) AppendAudio(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateListening {
		return
	}
	s.audioBuf = append(s.audioBuf, chunk...)
}

// Close releases the session's resources. Any in-flight pipeline result is
// discarded by the sender once the connection is gone.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateFinished
	s.audioBuf = nil
	s.mu.Unlock()
}

func (s *Session) startInterview(ctx context.Context, payload json.RawMessage) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateProcessing
	var cand CandidateInfo
	_ = json.Unmarshal(payload, &cand)
	s.candidate = cand
	s.candidateRaw = payload
	s.mu.Unlock()

	s.logger.Info().Str("candidate", cand.Name).Msg("interview starting")

	pctx, cancel := context.WithTimeout(ctx, s.policyTimeout)
	raw, err := s.policy.Chat(pctx, s.id, EventStartInterview, PolicyContext{Candidate: payload})
	cancel()
	if err != nil {
		s.logger.Error().Err(err).Msg("policy failed on interview start")
		_ = s.send.SendEvent(OutboundEvent{Type: OutError, Stage: StagePolicy})
		s.setState(StateIdle)
		return
	}

	// The intro goes through the same lenient parser, but its directive is
	// ignored: the policy cannot end an interview it has not started.
	intro, _ := ParseReply(raw)
	s.appendTurn(Turn{Role: "assistant", Text: intro})
	s.emitReply(ctx, intro)
	s.setState(StateListening)
}

// processUserTurn runs one full turn pipeline. The audio buffer is taken and
// cleared exactly once, before transcription, regardless of later failures.
func (s *Session) processUserTurn(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StateProcessing
	audio := s.audioBuf
	s.audioBuf = nil
	s.mu.Unlock()

	_ = s.send.SendEvent(OutboundEvent{Type: OutStateChange, State: "THINKING"})

	sctx, cancel := context.WithTimeout(ctx, s.sttTimeout)
	userText, err := s.stt.Transcribe(sctx, audio)
	cancel()
	if err != nil {
		s.logger.Error().Err(err).Msg("transcription failed")
		_ = s.send.SendEvent(OutboundEvent{Type: OutError, Stage: StageSTT})
		s.setState(StateListening)
		return
	}
	s.logger.Info().Str("text", userText).Msg("user said")

	// Best-effort visual context; a session with no processed frames gets
	// the neutral summary.
	risk := s.monitor.Summary(s.id)

	s.mu.Lock()
	histCopy := make([]Turn, len(s.history))
	copy(histCopy, s.history)
	candRaw := s.candidateRaw
	s.mu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, s.policyTimeout)
	raw, err := s.policy.Chat(pctx, s.id, userText, PolicyContext{
		Candidate:  candRaw,
		VisualRisk: risk,
		History:    histCopy,
	})
	cancel()
	if err != nil {
		s.logger.Error().Err(err).Msg("dialogue policy failed")
		_ = s.send.SendEvent(OutboundEvent{Type: OutError, Stage: StagePolicy})
		s.setState(StateListening)
		return
	}

	reply, action := ParseReply(raw)
	s.appendTurn(Turn{Role: "user", Text: userText}, Turn{Role: "assistant", Text: reply})
	s.emitReply(ctx, reply)

	if action == ActionEndInterview {
		s.setState(StateFinished)
		_ = s.send.SendEvent(OutboundEvent{Type: OutInterviewEnd})
		s.logger.Info().Msg("interview finished")
		s.fireOnFinished()
		return
	}
	s.setState(StateListening)
}

// emitReply sends the reply text followed by its synthesized audio. On TTS
// failure the text still goes out, with an ERROR event in place of the
// audio payload.
func (s *Session) emitReply(ctx context.Context, reply string) {
	tctx, cancel := context.WithTimeout(ctx, s.ttsTimeout)
	audio, err := s.tts.Synthesize(tctx, reply)
	cancel()

	_ = s.send.SendEvent(OutboundEvent{Type: OutAIResponse, Text: reply})
	if err != nil {
		s.logger.Error().Err(err).Msg("speech synthesis failed")
		_ = s.send.SendEvent(OutboundEvent{Type: OutError, Stage: StageTTS})
		return
	}
	if len(audio) > 0 {
		_ = s.send.SendAudio(audio)
	}
}

func (s *Session) fireOnFinished() {
	if s.onFinished == nil {
		return
	}
	s.mu.Lock()
	transcript := make([]Turn, len(s.history))
	copy(transcript, s.history)
	cand := s.candidate
	s.mu.Unlock()
	go s.onFinished(s.id, cand, transcript)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) appendTurn(turns ...Turn) {
	s.mu.Lock()
	s.history = append(s.history, turns...)
	s.mu.Unlock()
}
