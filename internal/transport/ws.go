package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/chadiek/interview-agent/internal/observer"
	"github.com/chadiek/interview-agent/internal/session"
)

var errConnClosed = errors.New("connection closed")

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from the hosted frontend; restrict in production.
		return true
	},
}

// Monitor is the visual-risk collaborator as seen by the transport: the
// session feeds and reads it, the transport prunes it on disconnect.
type Monitor interface {
	Submit(sessionID, frame string)
	Summary(sessionID string) observer.Summary
	EndSession(sessionID string)
}

// Handler accepts interview WebSocket connections and binds each one to a
// fresh Session. Reconnects always mint a new session id.
type Handler struct {
	registry *session.Registry
	stt      session.SpeechToText
	policy   session.DialoguePolicy
	tts      session.TextToSpeech
	monitor  Monitor

	authToken     string
	sttTimeout    time.Duration
	policyTimeout time.Duration
	ttsTimeout    time.Duration
	onFinished    func(sessionID string, candidate session.CandidateInfo, transcript []session.Turn)
}

func NewHandler(registry *session.Registry, stt session.SpeechToText, policy session.DialoguePolicy, tts session.TextToSpeech, monitor Monitor) *Handler {
	return &Handler{
		registry:      registry,
		stt:           stt,
		policy:        policy,
		tts:           tts,
		monitor:       monitor,
		sttTimeout:    30 * time.Second,
		policyTimeout: 20 * time.Second,
		ttsTimeout:    30 * time.Second,
	}
}

// WithAuthToken requires the shared token on new connections. Empty disables auth.
func (h *Handler) WithAuthToken(token string) *Handler {
	h.authToken = token
	return h
}

// WithTimeouts sets the per-call deadlines handed to each session.
func (h *Handler) WithTimeouts(stt, policy, tts time.Duration) *Handler {
	h.sttTimeout, h.policyTimeout, h.ttsTimeout = stt, policy, tts
	return h
}

// WithOnFinished registers the interview completion hook.
func (h *Handler) WithOnFinished(fn func(string, session.CandidateInfo, []session.Turn)) *Handler {
	h.onFinished = fn
	return h
}

// ServeWS upgrades the connection and runs the per-connection event loop:
// JSON text frames are structured events, binary frames are audio chunks.
// The turn pipeline runs inline in this loop, so turns never overlap.
func (h *Handler) ServeWS(c echo.Context) error {
	r := c.Request()
	if h.authToken != "" && !checkAuthHeaderOrQuery(r, h.authToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return nil
	}
	defer func() { _ = conn.Close() }()

	id := uuid.NewString()
	sender := &connSender{conn: conn}
	sess := session.New(id, h.stt, h.policy, h.tts, h.monitor, sender).
		WithTimeouts(h.sttTimeout, h.policyTimeout, h.ttsTimeout).
		WithOnFinished(h.onFinished)

	h.registry.Add(sess)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		sender.close()
		sess.Close()
		h.registry.Remove(id)
		h.monitor.EndSession(id)
		log.Info().Str("session", id).Msg("connection closed")
	}()

	log.Info().Str("session", id).Msg("connection accepted")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		switch mt {
		case websocket.BinaryMessage:
			sess.AppendAudio(data)
		case websocket.TextMessage:
			var ev session.Event
			if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
				// Malformed inbound text is dropped silently.
				continue
			}
			if ev.Type == session.EventPing {
				_ = sender.SendEvent(session.OutboundEvent{Type: session.OutPong})
				continue
			}
			sess.Dispatch(ctx, ev)
		}
	}
}

// connSender serializes all writes to the socket and discards anything sent
// after the connection is torn down.
type connSender struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (s *connSender) SendEvent(ev session.OutboundEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errConnClosed
	}
	return s.conn.WriteJSON(ev)
}

func (s *connSender) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errConnClosed
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, audio)
}

func (s *connSender) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// checkAuthHeaderOrQuery accepts the shared token via ?token=, a bearer
// Authorization header, or X-Auth-Token.
func checkAuthHeaderOrQuery(r *http.Request, token string) bool {
	if r == nil || token == "" {
		return false
	}
	if q := r.URL.Query().Get("token"); q != "" && q == token {
		return true
	}
	ah := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		if strings.TrimSpace(ah[len("Bearer "):]) == token {
			return true
		}
	}
	if x := r.Header.Get("X-Auth-Token"); x != "" && x == token {
		return true
	}
	return false
}
