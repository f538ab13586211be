package observer

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingDetector struct {
	calls int32
	face  bool
}

func (d *countingDetector) HasFace(_ image.Image) bool {
	atomic.AddInt32(&d.calls, 1)
	return d.face
}

func encodedFrame(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestMonitor_SamplesEveryNthFrame(t *testing.T) {
	det := &countingDetector{face: true}
	m := New(det, Config{SampleInterval: 5, Workers: 2, QueueSize: 32})
	defer m.Close()

	frame := encodedFrame(t)
	for i := 0; i < 12; i++ {
		m.Submit("s1", frame)
	}

	// Frames 5 and 10 are the only ones analyzed.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&det.calls) == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 2, atomic.LoadInt32(&det.calls))
}

func TestMonitor_SummaryDefaultBeforeAnyFrame(t *testing.T) {
	m := New(nil, Config{SampleInterval: 5, Workers: 1, QueueSize: 8})
	defer m.Close()

	s := m.Summary("unknown")
	require.Equal(t, StatusNormal, s.Status)
	require.Zero(t, s.RiskCount)
	require.Nil(t, s.LastEntry)
}

func TestMonitor_NoFaceAppendsRiskLog(t *testing.T) {
	det := &countingDetector{face: false}
	m := New(det, Config{SampleInterval: 1, Workers: 1, QueueSize: 8})
	defer m.Close()

	frame := encodedFrame(t)
	m.Submit("s1", frame)
	m.Submit("s1", frame)

	require.Eventually(t, func() bool {
		return m.Summary("s1").RiskCount == 2
	}, time.Second, 5*time.Millisecond)

	s := m.Summary("s1")
	require.Equal(t, StatusNoFace, s.Status)
	require.NotNil(t, s.LastEntry)
	require.Equal(t, EventNoFace, s.LastEntry.Event)
	require.Equal(t, 2, s.LastEntry.Frame)
}

func TestMonitor_FaceRestoresNormalStatus(t *testing.T) {
	det := &countingDetector{face: false}
	m := New(det, Config{SampleInterval: 1, Workers: 1, QueueSize: 8})
	defer m.Close()

	frame := encodedFrame(t)
	m.Submit("s1", frame)
	require.Eventually(t, func() bool {
		return m.Summary("s1").Status == StatusNoFace
	}, time.Second, 5*time.Millisecond)

	det.face = true
	m.Submit("s1", frame)
	require.Eventually(t, func() bool {
		return m.Summary("s1").Status == StatusNormal
	}, time.Second, 5*time.Millisecond)

	// The risk log is append-only; recovering does not erase history.
	require.Equal(t, 1, m.Summary("s1").RiskCount)
}

func TestMonitor_BadFrameIsSwallowed(t *testing.T) {
	det := &countingDetector{face: true}
	m := New(det, Config{SampleInterval: 1, Workers: 1, QueueSize: 8})
	defer m.Close()

	m.Submit("s1", "not base64 at all!!!")
	m.Submit("s1", base64.StdEncoding.EncodeToString([]byte("not an image")))
	m.Submit("s1", encodedFrame(t))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&det.calls) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, StatusNormal, m.Summary("s1").Status)
}

func TestMonitor_DataURIPayload(t *testing.T) {
	det := &countingDetector{face: true}
	m := New(det, Config{SampleInterval: 1, Workers: 1, QueueSize: 8})
	defer m.Close()

	m.Submit("s1", "data:image/png;base64,"+encodedFrame(t))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&det.calls) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_EndSessionPrunesState(t *testing.T) {
	det := &countingDetector{face: false}
	m := New(det, Config{SampleInterval: 1, Workers: 1, QueueSize: 8})
	defer m.Close()

	m.Submit("s1", encodedFrame(t))
	require.Eventually(t, func() bool {
		return m.Summary("s1").RiskCount == 1
	}, time.Second, 5*time.Millisecond)

	m.EndSession("s1")
	s := m.Summary("s1")
	require.Equal(t, StatusNormal, s.Status)
	require.Zero(t, s.RiskCount)
}

func TestMonitor_SessionsAreIndependent(t *testing.T) {
	det := &countingDetector{face: false}
	m := New(det, Config{SampleInterval: 1, Workers: 2, QueueSize: 16})
	defer m.Close()

	frame := encodedFrame(t)
	m.Submit("a", frame)
	m.Submit("b", frame)
	m.Submit("b", frame)

	require.Eventually(t, func() bool {
		return m.Summary("a").RiskCount == 1 && m.Summary("b").RiskCount == 2
	}, time.Second, 5*time.Millisecond)
}
