package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/AdityaJethliya/hackcarpathia/internal/device"
	"github.com/AdityaJethliya/hackcarpathia/internal/visualizer"
)

// scriptedFeed hands the emit callback to the test so chunk arrival can be
// driven explicitly.
type scriptedFeed struct {
	mu      sync.Mutex
	emit    func(chunk []byte)
	stopped bool
}

func (f *scriptedFeed) Start(_ time.Duration, emit func(chunk []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emit = emit
	return nil
}

func (f *scriptedFeed) FrequencyBins(dst []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return 0
	}
	for i := range dst {
		dst[i] = 128
	}
	return len(dst)
}

func (f *scriptedFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

// Emit pushes a chunk through the captured callback.
func (f *scriptedFeed) Emit(chunk []byte) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	if emit != nil {
		emit(chunk)
	}
}

// scriptedDriver returns sessions over a scriptedFeed.
type scriptedDriver struct {
	mu   sync.Mutex
	feed *scriptedFeed
	err  *device.DeviceError
}

func (d *scriptedDriver) Open(_ context.Context, constraints device.Constraints) (*device.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	d.feed = &scriptedFeed{}
	return device.NewSession(d.feed, constraints.SampleRate, constraints.PreferredMIMEType), nil
}

func (d *scriptedDriver) Feed() *scriptedFeed {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feed
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestController(driver device.Driver) *Controller {
	return NewController(driver, Config{
		ChunkInterval: 20 * time.Millisecond,
		Constraints:   device.DefaultConstraints(),
		Visualizer:    visualizer.Config{TickInterval: 5 * time.Millisecond},
	}, testLogger(), nil)
}

func TestStartFromIdle(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if c.State() != StateRecording {
		t.Errorf("Expected Recording state, got %s", c.State())
	}

	info := c.Info()
	if info.ID == "" {
		t.Error("Expected a session ID")
	}
	if info.MIMEType != "audio/webm;codecs=opus" {
		t.Errorf("Expected native capture MIME type, got %s", info.MIMEType)
	}
}

func TestStartWhileRecordingRejected(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("Expected second Start to be rejected")
	}

	var transErr *TransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("Expected *TransitionError, got %T", err)
	}
	if transErr.From != StateRecording {
		t.Errorf("Expected rejection from Recording, got %s", transErr.From)
	}
}

func TestStopFromIdleIsNoOp(t *testing.T) {
	c := newTestController(&scriptedDriver{})

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop from Idle must be a no-op, got: %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected Idle after no-op Stop, got %s", c.State())
	}
}

func TestDeviceErrorSurfaced(t *testing.T) {
	driver := &scriptedDriver{
		err: &device.DeviceError{Code: device.PermissionDenied, Message: "denied"},
	}
	c := newTestController(driver)

	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("Expected device error")
	}
	if !device.IsCode(err, device.PermissionDenied) {
		t.Errorf("Expected PermissionDenied surfaced unwrapped, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected Idle after failed Start, got %s", c.State())
	}
}

func TestChunkConcatenation(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	feed := driver.Feed()

	// Three chunks of 4000 bytes each at the chunk cadence
	chunk := func(fill byte) []byte {
		b := make([]byte, 4000)
		for i := range b {
			b[i] = fill
		}
		return b
	}
	for i := 0; i < 3; i++ {
		feed.Emit(chunk(byte('a' + i)))
		time.Sleep(100 * time.Millisecond)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	artifact, err := c.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(artifact.Data) != 12000 {
		t.Errorf("Expected blob of exactly 12000 bytes, got %d", len(artifact.Data))
	}

	// Order must be preserved
	if !bytes.Equal(artifact.Data[:1], []byte{'a'}) ||
		!bytes.Equal(artifact.Data[4000:4001], []byte{'b'}) ||
		!bytes.Equal(artifact.Data[8000:8001], []byte{'c'}) {
		t.Error("Chunks concatenated out of order")
	}

	// Elapsed computed from wall clock: ~300ms with tolerance
	elapsed := c.Info().ElapsedSeconds
	if math.Abs(elapsed-0.3) > 0.1 {
		t.Errorf("Expected elapsed near 0.3s, got %.3fs", elapsed)
	}
}

func TestLateChunkDropped(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	feed := driver.Feed()
	feed.Emit(make([]byte, 100))
	time.Sleep(50 * time.Millisecond)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// A chunk arriving after Stop must be ignored, not appended
	feed.Emit(make([]byte, 100))

	artifact, err := c.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(artifact.Data) != 100 {
		t.Errorf("Expected 100-byte blob, late chunk leaked in: got %d bytes", len(artifact.Data))
	}
}

func TestSubmitEmptyRecording(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Zero chunks: submit still returns an artifact, just empty
	artifact, err := c.Submit()
	if err != nil {
		t.Fatalf("Submit of empty recording failed: %v", err)
	}
	if len(artifact.Data) != 0 {
		t.Errorf("Expected zero-byte artifact, got %d bytes", len(artifact.Data))
	}
	if artifact.Name == "" {
		t.Error("Expected a filename even for an empty recording")
	}
}

func TestDiscardReleasesSession(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	driver.Feed().Emit(make([]byte, 100))
	time.Sleep(50 * time.Millisecond)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	session := c.Session()
	if session == nil {
		t.Fatal("Expected a session after Stop")
	}

	if err := c.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	if c.State() != StateIdle {
		t.Errorf("Expected Idle after Discard, got %s", c.State())
	}
	if !session.Released() {
		t.Error("Session resources not released after Discard")
	}
	if session.ChunkCount() != 0 || session.BlobSize() != 0 {
		t.Error("Chunk sequence reachable after Discard")
	}
	if c.Session() != nil {
		t.Error("Controller still references discarded session")
	}

	// Discard lands in Idle proper: a fresh recording can start
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start after Discard failed: %v", err)
	}
	defer c.Close()
}

func TestDiscardFromIdleRejected(t *testing.T) {
	c := newTestController(&scriptedDriver{})

	var transErr *TransitionError
	if err := c.Discard(); !errors.As(err, &transErr) {
		t.Errorf("Expected *TransitionError for Discard from Idle, got %v", err)
	}
}

func TestSubmitWhileRecordingRejected(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var transErr *TransitionError
	if _, err := c.Submit(); !errors.As(err, &transErr) {
		t.Errorf("Expected *TransitionError for Submit while Recording, got %v", err)
	}
}

func TestRestartAfterStopReplacesSession(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first := c.Session()
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	second := c.Session()
	if second == first {
		t.Error("Expected a fresh session on restart")
	}
	if !first.Released() {
		t.Error("Previous session not released on restart")
	}
}

func TestVisualizerFeedEndsOnStop(t *testing.T) {
	driver := &scriptedDriver{}
	c := newTestController(driver)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frames := c.Frames()
	if frames == nil {
		t.Fatal("Expected a live frame feed while recording")
	}

	select {
	case frame := <-frames:
		if len(frame) != visualizer.FrameLength {
			t.Errorf("Expected frame length %d, got %d", visualizer.FrameLength, len(frame))
		}
	case <-time.After(time.Second):
		t.Fatal("No visualizer frame within a second")
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// After Stop returns the sequence must terminate
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Visualizer feed did not terminate after Stop")
		}
	}
}
