package visualizer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AdityaJethliya/hackcarpathia/internal/device"
)

// FrameLength is the number of values per emitted frame: every 4th bin of
// the 256-bin transform.
const (
	binStride   = 4
	FrameLength = device.FrequencyBinCount / binStride
)

// DefaultTickInterval approximates the display refresh cadence.
const DefaultTickInterval = 16 * time.Millisecond

// FrequencySource is the slice of a capture session the visualizer needs.
type FrequencySource interface {
	FrequencyBins(dst []byte) int
}

// Config controls frame production.
type Config struct {
	// TickInterval is the frame cadence. Zero means DefaultTickInterval.
	TickInterval time.Duration
}

// Visualizer produces a lazy sequence of normalized magnitude vectors from a
// running capture session. The sequence is infinite while the recording is
// live and terminates the tick after Stop (or the session's close) is
// observed. A Visualizer is not restartable: a new recording builds a new
// one.
type Visualizer struct {
	source FrequencySource
	logger *slog.Logger
	frames chan []float64

	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	framesEmitted uint64
	mu            sync.RWMutex
}

// New creates a visualizer over the session's frequency feed.
func New(source FrequencySource, cfg Config, logger *slog.Logger) *Visualizer {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Visualizer{
		source:   source,
		logger:   logger,
		frames:   make(chan []float64, 1),
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Frames returns the frame channel. It is closed after Stop.
func (v *Visualizer) Frames() <-chan []float64 {
	return v.frames
}

// Start begins frame production. Subsequent calls are no-ops.
func (v *Visualizer) Start() {
	v.startOnce.Do(func() {
		v.wg.Add(1)
		go v.run()
	})
}

// Stop ends frame production synchronously: once Stop returns, no further
// frames are delivered and the frame channel is closed. Safe to call more
// than once.
func (v *Visualizer) Stop() {
	v.stopOnce.Do(func() {
		v.cancel()
		v.wg.Wait()

		v.logger.Debug("Visualizer stopped",
			slog.Uint64("frames_emitted", v.FramesEmitted()),
		)
	})
}

// FramesEmitted returns the number of frames produced so far.
func (v *Visualizer) FramesEmitted() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.framesEmitted
}

// run is the production loop. It drops frames the consumer has not drained
// rather than blocking the tick; live rendering only ever wants the latest
// frame anyway.
func (v *Visualizer) run() {
	defer v.wg.Done()
	defer close(v.frames)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	bins := make([]byte, device.FrequencyBinCount)

	for {
		select {
		case <-v.ctx.Done():
			return
		case <-ticker.C:
			n := v.source.FrequencyBins(bins)
			if n == 0 {
				// Session closed underneath us; the sequence ends here.
				return
			}

			frame := normalize(bins[:n])

			select {
			case v.frames <- frame:
				v.mu.Lock()
				v.framesEmitted++
				v.mu.Unlock()
			case <-v.ctx.Done():
				return
			default:
				// Consumer is behind; replace the stale frame.
				select {
				case <-v.frames:
				default:
				}
				select {
				case v.frames <- frame:
					v.mu.Lock()
					v.framesEmitted++
					v.mu.Unlock()
				default:
				}
			}
		}
	}
}

// normalize downsamples by taking every 4th bin and maps byte magnitudes
// (0-255) into [0, 1].
func normalize(bins []byte) []float64 {
	frame := make([]float64, 0, FrameLength)
	for i := 0; i < len(bins); i += binStride {
		frame = append(frame, float64(bins[i])/255)
	}
	return frame
}
