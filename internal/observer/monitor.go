package observer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session status values reported by Summary.
const (
	StatusNormal = "normal"
	StatusNoFace = "no_face_detected"
)

// EventNoFace is appended to the risk log when no face is visible in a frame.
const EventNoFace = "NO_FACE"

// LogEntry is one recorded visual-risk event.
type LogEntry struct {
	Frame int    `json:"frame"`
	Event string `json:"event"`
}

// Summary is the current visual-risk report for a session.
type Summary struct {
	Status    string    `json:"status"`
	RiskCount int       `json:"risk_count"`
	LastEntry *LogEntry `json:"last_log,omitempty"`
}

// FaceDetector reports whether a face is visible in the image.
type FaceDetector interface {
	HasFace(img image.Image) bool
}

// Config holds monitor tuning values.
type Config struct {
	SampleInterval int // analyze every Nth frame
	Workers        int
	QueueSize      int
}

type job struct {
	sessionID string
	frame     int
	payload   string
}

type sessionState struct {
	mu      sync.Mutex
	frames  int
	status  string
	riskLog []LogEntry
}

// Monitor watches the video feed of active sessions for integrity risks.
// Frames are sampled and analyzed by a bounded worker pool; a full queue
// drops the frame rather than blocking the caller.
type Monitor struct {
	detector FaceDetector
	interval int
	logger   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionState

	jobs chan job
	wg   sync.WaitGroup
}

// New constructs a Monitor and starts its workers. A nil detector disables
// face analysis; frames are still counted and decoded.
func New(detector FaceDetector, cfg Config) *Monitor {
	if cfg.SampleInterval < 1 {
		cfg.SampleInterval = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	m := &Monitor{
		detector: detector,
		interval: cfg.SampleInterval,
		logger:   log.With().Str("component", "observer").Logger(),
		sessions: make(map[string]*sessionState),
		jobs:     make(chan job, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Submit registers a received frame for the session and, if the frame falls
// on the sampling interval, queues it for analysis. Never blocks.
func (m *Monitor) Submit(sessionID, payload string) {
	st := m.state(sessionID)
	st.mu.Lock()
	st.frames++
	n := st.frames
	st.mu.Unlock()

	if n%m.interval != 0 {
		return
	}
	select {
	case m.jobs <- job{sessionID: sessionID, frame: n, payload: payload}:
	default:
		m.logger.Debug().Str("session", sessionID).Int("frame", n).Msg("analysis queue full, frame dropped")
	}
}

// Summary returns the current risk report for the session. Safe to call
// before any frame has been processed.
func (m *Monitor) Summary(sessionID string) Summary {
	m.mu.RLock()
	st, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return Summary{Status: StatusNormal}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s := Summary{Status: st.status, RiskCount: len(st.riskLog)}
	if s.Status == "" {
		s.Status = StatusNormal
	}
	if n := len(st.riskLog); n > 0 {
		last := st.riskLog[n-1]
		s.LastEntry = &last
	}
	return s
}

// EndSession discards the frame counter and risk log for the session.
func (m *Monitor) EndSession(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Close stops the workers after draining queued frames.
func (m *Monitor) Close() {
	close(m.jobs)
	m.wg.Wait()
}

func (m *Monitor) state(sessionID string) *sessionState {
	m.mu.RLock()
	st, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return st
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.sessions[sessionID]; ok {
		return st
	}
	st = &sessionState{status: StatusNormal}
	m.sessions[sessionID] = st
	return st
}

func (m *Monitor) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		m.analyze(j)
	}
}

// analyze decodes and inspects one sampled frame. Decode failures are
// swallowed; a bad frame never disturbs the session.
func (m *Monitor) analyze(j job) {
	img, err := decodeFrame(j.payload)
	if err != nil {
		m.logger.Debug().Str("session", j.sessionID).Err(err).Msg("frame decode failed")
		return
	}

	faceVisible := true
	if m.detector != nil {
		faceVisible = m.detector.HasFace(img)
	}

	st := m.state(j.sessionID)
	st.mu.Lock()
	if faceVisible {
		st.status = StatusNormal
	} else {
		st.status = StatusNoFace
		st.riskLog = append(st.riskLog, LogEntry{Frame: j.frame, Event: EventNoFace})
	}
	st.mu.Unlock()

	if !faceVisible {
		m.logger.Warn().Str("session", j.sessionID).Int("frame", j.frame).Str("event", EventNoFace).Msg("visual risk detected")
	}
}

// decodeFrame accepts a base64 image payload, optionally in data-URI form.
func decodeFrame(payload string) (image.Image, error) {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}
	return img, nil
}
