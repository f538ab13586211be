package session

import (
	"context"
	"encoding/json"

	"github.com/chadiek/interview-agent/internal/observer"
)

// State is the lifecycle phase of a Session.
type State string

const (
	StateIdle       State = "IDLE"
	StateListening  State = "LISTENING"
	StateProcessing State = "PROCESSING"
	StateFinished   State = "FINISHED"
)

// Inbound event types carried over the connection.
const (
	EventStartInterview       = "START_INTERVIEW"
	EventUserFinishedSpeaking = "USER_FINISHED_SPEAKING"
	EventVideoFrame           = "VIDEO_FRAME"
	EventPing                 = "PING"
)

// Dialogue policy directives. Anything other than END_INTERVIEW means the
// interview continues.
const (
	ActionNextQuestion = "NEXT_QUESTION"
	ActionFollowUp     = "FOLLOW_UP"
	ActionEndInterview = "END_INTERVIEW"
)

// Event is an inbound structured message.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutboundEvent is an outbound structured message. Unset fields are omitted,
// so the one type covers the whole outbound vocabulary.
type OutboundEvent struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	Text  string `json:"text,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// Outbound event types.
const (
	OutStateChange  = "STATE_CHANGE"
	OutAIResponse   = "AI_RESPONSE"
	OutInterviewEnd = "INTERVIEW_END"
	OutError        = "ERROR"
	OutPong         = "PONG"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// CandidateInfo is the open candidate schema; only the display name is
// interpreted by the core.
type CandidateInfo struct {
	Name string `json:"name"`
}

// PolicyContext carries the conversation state handed to the dialogue policy.
type PolicyContext struct {
	Candidate  json.RawMessage
	VisualRisk observer.Summary
	History    []Turn
}

// SpeechToText converts an accumulated audio buffer to text. Empty input
// must yield an empty transcript, not an error.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// TextToSpeech converts reply text to a playable audio payload.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DialoguePolicy returns the raw reply payload for the latest user input,
// either plain text or a JSON object with reply/action fields.
type DialoguePolicy interface {
	Chat(ctx context.Context, sessionID, input string, pctx PolicyContext) (string, error)
}

// VisualMonitor receives decimated video frames and answers risk summaries.
type VisualMonitor interface {
	Submit(sessionID, frame string)
	Summary(sessionID string) observer.Summary
}

// Sender delivers outbound messages to the connection. Implementations must
// serialize writes; the session emits text metadata strictly before the
// paired audio payload.
type Sender interface {
	SendEvent(ev OutboundEvent) error
	SendAudio(audio []byte) error
}
