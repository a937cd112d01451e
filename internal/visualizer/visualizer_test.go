package visualizer

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AdityaJethliya/hackcarpathia/internal/device"
)

// stubSource serves a fixed bin pattern until closed.
type stubSource struct {
	closed atomic.Bool
}

func (s *stubSource) FrequencyBins(dst []byte) int {
	if s.closed.Load() {
		return 0
	}
	for i := range dst {
		dst[i] = byte(i)
	}
	return len(dst)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFrameShape(t *testing.T) {
	source := &stubSource{}
	v := New(source, Config{TickInterval: 5 * time.Millisecond}, testLogger())
	v.Start()
	defer v.Stop()

	select {
	case frame := <-v.Frames():
		if len(frame) != FrameLength {
			t.Errorf("Expected frame length %d, got %d", FrameLength, len(frame))
		}
		for i, val := range frame {
			if val < 0 || val > 1 {
				t.Errorf("Frame value %d out of [0,1]: %f", i, val)
			}
		}
		// Every 4th bin: frame[i] == (i*4)/255
		if frame[1] != float64(4)/255 {
			t.Errorf("Expected frame[1]=%f, got %f", float64(4)/255, frame[1])
		}
	case <-time.After(time.Second):
		t.Fatal("No frame within a second")
	}
}

func TestStopClosesSequence(t *testing.T) {
	source := &stubSource{}
	v := New(source, Config{TickInterval: 5 * time.Millisecond}, testLogger())
	v.Start()

	// Let it emit at least one frame
	select {
	case <-v.Frames():
	case <-time.After(time.Second):
		t.Fatal("No frame within a second")
	}

	v.Stop()

	// Channel must drain and close, with no new frames after Stop returned
	for {
		select {
		case _, ok := <-v.Frames():
			if !ok {
				return
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Frame channel not closed after Stop")
		}
	}
}

func TestSessionCloseEndsSequence(t *testing.T) {
	source := &stubSource{}
	v := New(source, Config{TickInterval: 5 * time.Millisecond}, testLogger())
	v.Start()

	select {
	case <-v.Frames():
	case <-time.After(time.Second):
		t.Fatal("No frame within a second")
	}

	// Closing the source ends the sequence on the next tick
	source.closed.Store(true)

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-v.Frames():
			if !ok {
				v.Stop() // still safe after self-termination
				return
			}
		case <-deadline:
			t.Fatal("Sequence did not terminate after source close")
		}
	}
}

func TestStopIdempotent(t *testing.T) {
	v := New(&stubSource{}, Config{}, testLogger())
	v.Start()
	v.Stop()
	v.Stop() // must not panic or block
}

func TestWithSyntheticDevice(t *testing.T) {
	driver := &device.SyntheticDriver{}
	session, err := driver.Open(context.Background(), device.DefaultConstraints())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer session.Close()

	v := New(session, Config{TickInterval: 5 * time.Millisecond}, testLogger())
	v.Start()
	defer v.Stop()

	select {
	case frame := <-v.Frames():
		var peak float64
		for _, val := range frame {
			if val > peak {
				peak = val
			}
		}
		if peak == 0 {
			t.Error("Expected non-zero magnitudes from synthetic device")
		}
	case <-time.After(time.Second):
		t.Fatal("No frame within a second")
	}
}
